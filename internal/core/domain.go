package core

import (
	"errors"
	"strings"
)

// RecordType classifies an insight for UI rendering.
type RecordType string

const (
	RecordInfo    RecordType = "info"
	RecordWarning RecordType = "warning"
	RecordError   RecordType = "error"
	RecordSuccess RecordType = "success"
)

type (
	// InsightRecord is the canonical output unit of the insights layer.
	// Every record handed to a caller has a non-empty Title, a non-empty
	// Message and an Icon drawn from the icon vocabulary.
	InsightRecord struct {
		ID       string         `json:"id"`
		Type     RecordType     `json:"type"`
		Title    string         `json:"title"`
		Message  string         `json:"message"`
		Icon     string         `json:"icon"`
		Color    string         `json:"color"`
		Actions  []AlertAction  `json:"actions,omitempty"`
		Category string         `json:"category,omitempty"`
		Data     map[string]any `json:"data,omitempty"`
		// Timestamp is pass-through metadata from alert-origin records.
		Timestamp string `json:"timestamp,omitempty"`
	}

	// AlertAction is a structured follow-up carried through from a budget
	// alert without modification.
	AlertAction struct {
		Label  string         `json:"label"`
		Action string         `json:"action"`
		Data   map[string]any `json:"data,omitempty"`
	}

	// Expense is a read-only snapshot of a logged expense. Amount is
	// parsed permissively; a malformed amount decodes as zero rather
	// than failing the batch.
	Expense struct {
		Amount   Amount `json:"amount"`
		Category string `json:"category"`
		Date     string `json:"date,omitempty"`
		Note     string `json:"note,omitempty"`
	}

	// Budget holds the monthly spending ceiling and optional per-category
	// limits, in whole currency units.
	Budget struct {
		Monthly    float64            `json:"monthly"`
		Categories map[string]float64 `json:"categories,omitempty"`
	}

	// UserProfile identifies the caller for recommendation generation.
	UserProfile struct {
		UserID string `json:"user_id"`
		Name   string `json:"name,omitempty"`
	}
)

// DefaultCategory is used when an expense carries no category.
const DefaultCategory = "others"

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyTitle    = errors.New("empty title")
	ErrEmptyMessage  = errors.New("empty message")
)

func (b Budget) HasMonthly() bool {
	return b.Monthly > 0
}

// Validate checks the output invariant for a single record.
func (r InsightRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	switch r.Type {
	case RecordInfo, RecordWarning, RecordError, RecordSuccess:
	default:
		return errors.New("invalid record type")
	}
	return nil
}

// NormalizeCategory lowercases and trims a free-form category name for
// aggregation. Empty input maps to DefaultCategory.
func NormalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultCategory
	}
	return s
}

// CategoryTotals aggregates expense amounts by normalized category.
func CategoryTotals(expenses []Expense) map[string]float64 {
	totals := make(map[string]float64, len(expenses))
	for _, e := range expenses {
		totals[NormalizeCategory(e.Category)] += float64(e.Amount)
	}
	return totals
}

// TopCategory returns the category with the highest total. Ties break on
// the lexicographically smaller name so the result is deterministic.
func TopCategory(totals map[string]float64) (string, float64) {
	var name string
	var max float64
	for cat, total := range totals {
		if total > max || (total == max && (name == "" || cat < name)) {
			name, max = cat, total
		}
	}
	return name, max
}

// TotalSpent sums all expense amounts with permissive coercion already
// applied at decode time.
func TotalSpent(expenses []Expense) float64 {
	var total float64
	for _, e := range expenses {
		total += float64(e.Amount)
	}
	return total
}
