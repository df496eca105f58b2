package insights

import (
	"context"
	"time"

	"gafi/internal/core"
	"gafi/internal/llm"
)

// Ports for collaborators owned outside this subsystem.
type (
	// CompletionClient is the network gateway to the model. The concrete
	// implementation is llm.Gateway.
	CompletionClient interface {
		Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
		Enabled() bool
	}

	// BudgetAlertManager computes real-time budget alerts for a newly
	// logged (or probe) expense.
	BudgetAlertManager interface {
		ProcessExpenseAlert(ctx context.Context, userID string, expense core.Expense, budget core.Budget, categoryTotals map[string]float64) ([]Alert, error)
	}

	// ChatMemory loads prior conversation turns for prompt context.
	ChatMemory interface {
		LoadMessages(ctx context.Context, userID, sessionID string, offset, limit int) ([]ChatMessage, error)
	}
)

// AlertLevel is the severity reported by the alert manager.
type AlertLevel string

const (
	LevelExceeded AlertLevel = "exceeded"
	LevelCritical AlertLevel = "critical"
	LevelWarning  AlertLevel = "warning"
	LevelInfo     AlertLevel = "info"
)

// Alert is a budget-alert event as produced by the manager. The bridge
// maps it onto the insight record shape.
type Alert struct {
	ID        string             `json:"id"`
	Level     AlertLevel         `json:"level"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Icon      string             `json:"icon"`
	Color     string             `json:"color"`
	Actions   []core.AlertAction `json:"actions,omitempty"`
	Category  string             `json:"category,omitempty"`
	Data      map[string]any     `json:"data,omitempty"`
	Timestamp string             `json:"timestamp,omitempty"`
}

// Urgent reports whether the alert must preempt recommendation
// generation.
func (a Alert) Urgent() bool {
	return a.Level == LevelExceeded || a.Level == LevelCritical
}

// ChatMessage is one stored conversation turn.
type ChatMessage struct {
	Text      string    `json:"text"`
	IsBot     bool      `json:"isBot"`
	Timestamp time.Time `json:"timestamp"`
}

// AsPrompt reshapes stored turns into chat-completion messages.
func AsPrompt(history []ChatMessage) []llm.Message {
	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.IsBot {
			role = "assistant"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Text})
	}
	return msgs
}
