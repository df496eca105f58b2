// Package services orchestrates expense writes across SQLite, the
// alert manager, and the AMQP alert feed.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gafi/internal/amqp"
	"gafi/internal/core"
	"gafi/internal/insights"
	"gafi/internal/storage"
)

// AlertPublisher is the AMQP surface this service needs. Nil disables
// publishing without disabling alerts.
type AlertPublisher interface {
	PublishAlertEvent(ctx context.Context, eventID int64, userID, level string) error
}

var _ AlertPublisher = (*amqp.Client)(nil)

type ExpenseService struct {
	storage   *storage.SQLiteRepository
	alerts    insights.BudgetAlertManager
	publisher AlertPublisher
}

func NewExpenseService(repo *storage.SQLiteRepository, alerts insights.BudgetAlertManager, publisher AlertPublisher) *ExpenseService {
	return &ExpenseService{
		storage:   repo,
		alerts:    alerts,
		publisher: publisher,
	}
}

// CreateExpense saves the expense, evaluates budget alerts against the
// state before the write, and returns the alerts as insight records.
// Alert persistence and publishing failures never fail the request,
// the expense is already saved.
func (s *ExpenseService) CreateExpense(ctx context.Context, userID string, e core.Expense) (int64, []core.InsightRecord, error) {
	totals, err := s.storage.CategoryTotals(ctx, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("load category totals: %w", err)
	}
	budget, err := s.storage.GetBudget(ctx, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("load budget: %w", err)
	}

	id, err := s.storage.AppendExpense(ctx, userID, e)
	if err != nil {
		return 0, nil, fmt.Errorf("save expense: %w", err)
	}

	records := s.raiseAlerts(ctx, userID, e, budget, totals)
	return id, records, nil
}

func (s *ExpenseService) raiseAlerts(ctx context.Context, userID string, e core.Expense, budget core.Budget, totals map[string]float64) []core.InsightRecord {
	if s.alerts == nil {
		return nil
	}
	raised, err := s.alerts.ProcessExpenseAlert(ctx, userID, e, budget, totals)
	if err != nil {
		slog.ErrorContext(ctx, "alert evaluation failed", "user_id", userID, "error", err)
		return nil
	}

	records := insights.MapAlerts(raised)
	for i, alert := range raised {
		payload, err := json.Marshal(records[i])
		if err != nil {
			slog.ErrorContext(ctx, "failed to marshal alert payload",
				"user_id", userID, "alert_id", alert.ID, "error", err)
			continue
		}
		eventID, err := s.storage.SaveAlertEvent(ctx, userID, string(alert.Level), alert.Title, alert.Message, payload)
		if err != nil {
			slog.ErrorContext(ctx, "failed to store alert event",
				"user_id", userID, "alert_id", alert.ID, "error", err)
			continue
		}
		if s.publisher == nil {
			slog.WarnContext(ctx, "AMQP publisher not available, skipping alert publish",
				"event_id", eventID)
			continue
		}
		if err := s.publisher.PublishAlertEvent(ctx, eventID, userID, string(alert.Level)); err != nil {
			// Event is stored; the worker can still pick it up later
			slog.ErrorContext(ctx, "failed to publish alert event",
				"event_id", eventID, "error", err)
		}
	}
	return records
}

// DeleteExpense soft deletes an expense.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userID string, id int64) error {
	if err := s.storage.SoftDeleteExpense(ctx, userID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// ListExpenses returns the user's expenses.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, userID)
}
