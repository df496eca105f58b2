// Package sheets defines the ports for external expense sources.
package sheets

import (
	"context"

	"gafi/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseSource lists a user's logged expenses.
	ExpenseSource interface {
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
	}

	// ExpenseWriter appends a new expense and returns a row reference.
	ExpenseWriter interface {
		Append(ctx context.Context, userID string, e core.Expense) (rowRef string, err error)
	}
)
