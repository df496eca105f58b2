// Package memory is an in-memory expense source for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"gafi/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items map[string][]core.Expense
}

func New() *Store {
	return &Store{items: make(map[string][]core.Expense)}
}

// Seed pre-loads expenses for a user, mainly for tests.
func (s *Store) Seed(userID string, expenses []core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[userID] = append(s.items[userID], expenses...)
}

// Append stores the expense and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, userID string, e core.Expense) (string, error) {
	if float64(e.Amount) <= 0 {
		return "", core.ErrInvalidAmount
	}
	e.Category = core.NormalizeCategory(e.Category)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[userID] = append(s.items[userID], e)
	return fmt.Sprintf("mem:%d", len(s.items[userID])), nil
}

// ListExpenses returns the user's expenses in insertion order.
func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items[userID]...), nil
}
