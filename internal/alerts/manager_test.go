package alerts

import (
	"context"
	"strings"
	"testing"

	"gafi/internal/core"
	"gafi/internal/insights"
)

func TestProcessExpenseAlertMonthly(t *testing.T) {
	tests := []struct {
		name      string
		spent     float64
		amount    float64
		monthly   float64
		wantLevel insights.AlertLevel
		wantNone  bool
	}{
		{"exceeded", 1000, 200, 1000, insights.LevelExceeded, false},
		{"critical", 900, 50, 1000, insights.LevelCritical, false},
		{"warning", 700, 100, 1000, insights.LevelWarning, false},
		{"quiet", 100, 50, 1000, "", true},
		{"no budget", 5000, 500, 0, "", true},
	}
	m := NewManager()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := map[string]float64{"food": tt.spent}
			expense := core.Expense{Amount: core.Amount(tt.amount), Category: "food"}
			alerts, err := m.ProcessExpenseAlert(context.Background(), "u1", expense, core.Budget{Monthly: tt.monthly}, totals)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNone {
				if len(alerts) != 0 {
					t.Fatalf("expected no alerts, got %+v", alerts)
				}
				return
			}
			if len(alerts) != 1 {
				t.Fatalf("expected one alert, got %d", len(alerts))
			}
			if alerts[0].Level != tt.wantLevel {
				t.Errorf("level = %q, want %q", alerts[0].Level, tt.wantLevel)
			}
		})
	}
}

func TestProcessExpenseAlertExceededMessage(t *testing.T) {
	m := NewManager()
	totals := map[string]float64{"food": 1000}
	expense := core.Expense{Amount: 200, Category: "food"}
	alerts, err := m.ProcessExpenseAlert(context.Background(), "u1", expense, core.Budget{Monthly: 1000}, totals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts))
	}
	if !strings.Contains(alerts[0].Message, "₱200") {
		t.Errorf("message should carry the overage: %q", alerts[0].Message)
	}
	if len(alerts[0].Actions) == 0 {
		t.Error("exceeded alert should carry follow-up actions")
	}
}

func TestProcessExpenseAlertCategoryLimit(t *testing.T) {
	m := NewManager()
	budget := core.Budget{Categories: map[string]float64{"food": 500}}
	totals := map[string]float64{"food": 450}
	expense := core.Expense{Amount: 100, Category: "Food"}

	alerts, err := m.ProcessExpenseAlert(context.Background(), "u1", expense, budget, totals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one category alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Level != insights.LevelExceeded {
		t.Errorf("level = %q, want exceeded", a.Level)
	}
	if a.Category != "food" {
		t.Errorf("category = %q, want normalized food", a.Category)
	}
	if !a.Urgent() {
		t.Error("exceeded category alert should be urgent")
	}
}

func TestProcessExpenseAlertBothBudgets(t *testing.T) {
	m := NewManager()
	budget := core.Budget{Monthly: 1000, Categories: map[string]float64{"food": 300}}
	totals := map[string]float64{"food": 280, "transport": 600}
	expense := core.Expense{Amount: 50, Category: "food"}

	alerts, err := m.ProcessExpenseAlert(context.Background(), "u1", expense, budget, totals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected monthly and category alerts, got %d", len(alerts))
	}
	if alerts[0].Level != insights.LevelCritical {
		t.Errorf("monthly alert level = %q, want critical", alerts[0].Level)
	}
	if alerts[1].Level != insights.LevelExceeded {
		t.Errorf("category alert level = %q, want exceeded", alerts[1].Level)
	}
}
