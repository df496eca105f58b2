// Package alerts computes real-time budget alerts when an expense is
// logged. Severity thresholds mirror the budget bands used elsewhere:
// over 100% exceeded, over 90% critical, over 75% warning.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gafi/internal/core"
	"gafi/internal/insights"
)

const (
	thresholdExceeded = 100.0
	thresholdCritical = 90.0
	thresholdWarning  = 75.0
)

// Manager is the default insights.BudgetAlertManager. It is stateless;
// callers supply the current budget and category totals.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// ProcessExpenseAlert evaluates the expense against the monthly budget
// and the per-category limits, most severe alerts first.
func (m *Manager) ProcessExpenseAlert(ctx context.Context, userID string, expense core.Expense, budget core.Budget, categoryTotals map[string]float64) ([]insights.Alert, error) {
	var out []insights.Alert
	now := time.Now().UTC().Format(time.RFC3339)

	if budget.HasMonthly() {
		var total float64
		for _, t := range categoryTotals {
			total += t
		}
		total += float64(expense.Amount)
		if alert, ok := monthlyAlert(total, budget.Monthly, now); ok {
			out = append(out, alert)
		}
	}

	category := core.NormalizeCategory(expense.Category)
	if limit, ok := budget.Categories[category]; ok && limit > 0 {
		spent := categoryTotals[category] + float64(expense.Amount)
		if alert, ok := categoryAlert(category, spent, limit, now); ok {
			out = append(out, alert)
		}
	}

	if len(out) > 0 {
		slog.InfoContext(ctx, "budget alerts raised",
			"user_id", userID, "count", len(out), "level", out[0].Level)
	}
	return out, nil
}

func monthlyAlert(spent, monthly float64, timestamp string) (insights.Alert, bool) {
	percentage := spent / monthly * 100
	switch {
	case percentage > thresholdExceeded:
		return insights.Alert{
			ID:        "monthly-exceeded",
			Level:     insights.LevelExceeded,
			Title:     "Monthly Budget Exceeded",
			Message:   fmt.Sprintf("You've spent %s, %s over your monthly budget.", core.FormatPeso(spent), core.FormatPeso(spent-monthly)),
			Icon:      "alert-circle-outline",
			Timestamp: timestamp,
			Actions:   adjustActions(),
			Data:      budgetData(spent, monthly, percentage),
		}, true
	case percentage > thresholdCritical:
		return insights.Alert{
			ID:        "monthly-critical",
			Level:     insights.LevelCritical,
			Title:     "Monthly Budget Critical",
			Message:   fmt.Sprintf("You've used %.1f%% of your monthly budget. Only %s left.", percentage, core.FormatPeso(monthly-spent)),
			Icon:      "warning-outline",
			Timestamp: timestamp,
			Actions:   adjustActions(),
			Data:      budgetData(spent, monthly, percentage),
		}, true
	case percentage > thresholdWarning:
		return insights.Alert{
			ID:        "monthly-warning",
			Level:     insights.LevelWarning,
			Title:     "Monthly Budget Warning",
			Message:   fmt.Sprintf("You've used %.1f%% of your monthly budget.", percentage),
			Icon:      "warning-outline",
			Timestamp: timestamp,
			Data:      budgetData(spent, monthly, percentage),
		}, true
	}
	return insights.Alert{}, false
}

func categoryAlert(category string, spent, limit float64, timestamp string) (insights.Alert, bool) {
	percentage := spent / limit * 100
	switch {
	case percentage > thresholdExceeded:
		return insights.Alert{
			ID:        "category-exceeded-" + category,
			Level:     insights.LevelExceeded,
			Title:     "Category Limit Exceeded",
			Message:   fmt.Sprintf("Your %s spending hit %s, past its %s limit.", category, core.FormatPeso(spent), core.FormatPeso(limit)),
			Icon:      "alert-circle-outline",
			Category:  category,
			Timestamp: timestamp,
			Actions:   adjustActions(),
			Data:      budgetData(spent, limit, percentage),
		}, true
	case percentage > thresholdCritical:
		return insights.Alert{
			ID:        "category-critical-" + category,
			Level:     insights.LevelCritical,
			Title:     "Category Limit Almost Reached",
			Message:   fmt.Sprintf("Your %s spending is at %.1f%% of its limit.", category, percentage),
			Icon:      "warning-outline",
			Category:  category,
			Timestamp: timestamp,
			Data:      budgetData(spent, limit, percentage),
		}, true
	}
	return insights.Alert{}, false
}

func adjustActions() []core.AlertAction {
	return []core.AlertAction{
		{Label: "Review Expenses", Action: "open_expenses"},
		{Label: "Adjust Budget", Action: "open_budget"},
	}
}

func budgetData(spent, limit, percentage float64) map[string]any {
	return map[string]any{
		"spent":      spent,
		"limit":      limit,
		"percentage": percentage,
	}
}
