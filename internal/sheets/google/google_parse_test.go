package google

import (
	"testing"
)

func TestParseExpenseRows(t *testing.T) {
	values := [][]interface{}{
		{"user_id", "date", "amount", "category", "note"},
		{"u1", "2026-08-01", "150.50", "Food", "lunch"},
		{"u2", "2026-08-01", "999", "food", ""},
		{"u1", "2026-08-02", "₱1,200", "transport"},
		{"u1", "2026-08-03", "not a number", "food", "bad row"},
		{"u1", "2026-08-04", float64(300), "School", "books"},
	}

	expenses, skipped := parseExpenseRows(values, "u1")
	if len(expenses) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(expenses))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}

	if float64(expenses[0].Amount) != 150.50 || expenses[0].Category != "food" {
		t.Errorf("first row parsed wrong: %+v", expenses[0])
	}
	if float64(expenses[1].Amount) != 1200 {
		t.Errorf("peso-formatted amount parsed wrong: %+v", expenses[1])
	}
	if float64(expenses[2].Amount) != 300 || expenses[2].Category != "school" {
		t.Errorf("numeric cell parsed wrong: %+v", expenses[2])
	}
}

func TestParseExpenseRowsEmpty(t *testing.T) {
	expenses, skipped := parseExpenseRows(nil, "u1")
	if len(expenses) != 0 || skipped != 0 {
		t.Errorf("empty sheet should yield nothing, got %d expenses, %d skipped", len(expenses), skipped)
	}
}

func TestParseExpenseRowsNoHeader(t *testing.T) {
	values := [][]interface{}{
		{"u1", "2026-08-01", "50", "food", ""},
	}
	expenses, _ := parseExpenseRows(values, "u1")
	if len(expenses) != 1 {
		t.Fatalf("headerless sheet should still parse, got %d", len(expenses))
	}
}

func TestYearPrefixedName(t *testing.T) {
	if got := yearPrefixedName("Expenses", 2026); got != "2026 Expenses" {
		t.Errorf("yearPrefixedName = %q", got)
	}
	if got := yearPrefixedName("2026 Expenses", 2026); got != "2026 Expenses" {
		t.Errorf("already-prefixed name should pass through, got %q", got)
	}
}
