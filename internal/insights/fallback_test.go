package insights

import (
	"strings"
	"testing"

	"gafi/internal/core"
)

func TestGenerateFallbackInsightsEmpty(t *testing.T) {
	records := GenerateFallbackInsights(nil, core.Budget{})
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].ID != "welcome" {
		t.Errorf("expected id welcome, got %q", records[0].ID)
	}
	if records[0].Type != core.RecordInfo {
		t.Errorf("expected info type, got %q", records[0].Type)
	}
	if err := records[0].Validate(); err != nil {
		t.Errorf("welcome record invalid: %v", err)
	}
}

func TestGenerateFallbackInsightsTopCategory(t *testing.T) {
	expenses := []core.Expense{
		{Amount: 3000, Category: "food"},
		{Amount: 500, Category: "transport"},
	}
	records := GenerateFallbackInsights(expenses, core.Budget{})

	var top *core.InsightRecord
	for i := range records {
		if records[i].ID == "top-category" {
			top = &records[i]
		}
	}
	if top == nil {
		t.Fatal("no top-category record generated")
	}
	if !strings.Contains(top.Message, "food") {
		t.Errorf("message should name the category: %q", top.Message)
	}
	if !strings.Contains(top.Message, "3,000") {
		t.Errorf("message should carry the formatted amount: %q", top.Message)
	}
	if top.Icon != "restaurant-outline" {
		t.Errorf("expected restaurant icon for food, got %q", top.Icon)
	}
}

func TestGenerateFallbackInsightsBudgetBands(t *testing.T) {
	tests := []struct {
		name     string
		spent    float64
		monthly  float64
		wantType core.RecordType
		wantIn   string
	}{
		{"exceeded", 1200, 1000, core.RecordError, "200"},
		{"critical", 950, 1000, core.RecordWarning, "remaining"},
		{"warning", 800, 1000, core.RecordWarning, "three quarters"},
		{"on track", 300, 1000, core.RecordSuccess, "left"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expenses := []core.Expense{{Amount: core.Amount(tt.spent), Category: "food"}}
			records := GenerateFallbackInsights(expenses, core.Budget{Monthly: tt.monthly})

			var status *core.InsightRecord
			for i := range records {
				if records[i].ID == "budget-status" {
					status = &records[i]
				}
			}
			if status == nil {
				t.Fatal("no budget-status record generated")
			}
			if status.Type != tt.wantType {
				t.Errorf("type = %q, want %q", status.Type, tt.wantType)
			}
			if !strings.Contains(status.Message, tt.wantIn) {
				t.Errorf("message %q should contain %q", status.Message, tt.wantIn)
			}
		})
	}
}

func TestGenerateFallbackInsightsHabit(t *testing.T) {
	var expenses []core.Expense
	for i := 0; i < 5; i++ {
		expenses = append(expenses, core.Expense{Amount: 600, Category: "food"})
	}
	records := GenerateFallbackInsights(expenses, core.Budget{})

	found := false
	for _, r := range records {
		if r.ID == "habit" {
			found = true
			if !strings.Contains(r.Message, "600") {
				t.Errorf("habit message should carry the average: %q", r.Message)
			}
		}
	}
	if !found {
		t.Error("expected a habit record for high recent spending")
	}

	records = GenerateFallbackInsights(expenses[:4], core.Budget{})
	for _, r := range records {
		if r.ID == "habit" {
			t.Error("habit record should require five expenses")
		}
	}
}

func TestGenerateFallbackRecommendations(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		records := GenerateFallbackRecommendations(nil, core.Budget{})
		if len(records) != 1 || records[0].ID != "start-tracking" {
			t.Fatalf("expected single start-tracking record, got %+v", records)
		}
	})

	t.Run("category advice with budget warning", func(t *testing.T) {
		expenses := []core.Expense{{Amount: 1500, Category: "food"}}
		records := GenerateFallbackRecommendations(expenses, core.Budget{Monthly: 1600})
		if len(records) > maxRecommendations {
			t.Fatalf("got %d records, cap is %d", len(records), maxRecommendations)
		}
		if records[0].ID != "budget-watch" {
			t.Errorf("budget warning should lead, got %q", records[0].ID)
		}
		var advice *core.InsightRecord
		for i := range records {
			if records[i].ID == "category-advice" {
				advice = &records[i]
			}
		}
		if advice == nil {
			t.Fatal("expected category advice for 1500 on food")
		}
		if !strings.Contains(advice.Message, "1,500") {
			t.Errorf("advice message should carry the total: %q", advice.Message)
		}
	})

	t.Run("generic tip always present without budget pressure", func(t *testing.T) {
		expenses := []core.Expense{{Amount: 50, Category: "misc"}}
		records := GenerateFallbackRecommendations(expenses, core.Budget{})
		last := records[len(records)-1]
		if last.ID != "student-tip" {
			t.Errorf("expected student-tip last, got %q", last.ID)
		}
	})

	t.Run("all records valid", func(t *testing.T) {
		expenses := []core.Expense{
			{Amount: 2000, Category: "food"},
			{Amount: 900, Category: "entertainment"},
		}
		for _, r := range GenerateFallbackRecommendations(expenses, core.Budget{Monthly: 2500}) {
			if err := r.Validate(); err != nil {
				t.Errorf("record %q invalid: %v", r.ID, err)
			}
		}
	})
}
