package insights

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gafi/internal/core"
	"gafi/internal/extract"
	"gafi/internal/llm"
)

// Service is the facade the HTTP layer talks to. Both generation
// operations always succeed: the AI path is attempted when available and
// every failure mode degrades to the deterministic fallback.
type Service struct {
	completions CompletionClient
	alerts      BudgetAlertManager
	memory      ChatMemory
	logger      *slog.Logger
}

func NewService(completions CompletionClient, alerts BudgetAlertManager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{completions: completions, alerts: alerts, logger: logger}
}

// WithChatMemory attaches a conversation history source. Recent turns
// are spliced into recommendation prompts for continuity.
func (s *Service) WithChatMemory(memory ChatMemory) *Service {
	s.memory = memory
	return s
}

// GenerateInsights produces insight records for the user's current
// expenses and budget. Never returns an error to callers: the fallback
// generator covers every failure of the AI path.
func (s *Service) GenerateInsights(ctx context.Context, expenses []core.Expense, budget core.Budget) []core.InsightRecord {
	if records, ok := s.complete(ctx, insightsPrompt(expenses, budget), InsightDefaults()); ok {
		return records
	}
	s.logger.Info("insights: serving fallback", "expenses", len(expenses))
	return GenerateFallbackInsights(expenses, budget)
}

// GenerateRecommendations produces saving recommendations. Urgent budget
// alerts short-circuit the AI path entirely: the user sees only the
// mapped alerts until the budget situation is addressed.
func (s *Service) GenerateRecommendations(ctx context.Context, userID string, expenses []core.Expense, budget core.Budget) []core.InsightRecord {
	if urgent := s.urgentAlerts(ctx, userID, expenses, budget); len(urgent) > 0 {
		s.logger.Info("recommendations: urgent alerts preempt generation", "count", len(urgent))
		return MapAlerts(urgent)
	}
	prompt := recommendationsPrompt(expenses, budget)
	if history := s.recentHistory(ctx, userID); len(history) > 0 {
		// History sits between the system message and the data turn.
		prompt = append(prompt[:1:1], append(history, prompt[1:]...)...)
	}
	if records, ok := s.complete(ctx, prompt, RecommendationDefaults()); ok {
		return records
	}
	s.logger.Info("recommendations: serving fallback", "expenses", len(expenses))
	return GenerateFallbackRecommendations(expenses, budget)
}

// ProcessAlertsForExpense runs the alert manager for a newly logged
// expense and returns the alerts mapped into record form.
func (s *Service) ProcessAlertsForExpense(ctx context.Context, userID string, expense core.Expense, budget core.Budget, totals map[string]float64) ([]core.InsightRecord, error) {
	if s.alerts == nil {
		return nil, nil
	}
	alerts, err := s.alerts.ProcessExpenseAlert(ctx, userID, expense, budget, totals)
	if err != nil {
		return nil, fmt.Errorf("process expense alert: %w", err)
	}
	return MapAlerts(alerts), nil
}

// complete runs the full AI pipeline: completion, extraction, validation.
// ok is false whenever the caller should fall back.
func (s *Service) complete(ctx context.Context, messages []llm.Message, opts ValidateOptions) ([]core.InsightRecord, bool) {
	if s.completions == nil || !s.completions.Enabled() {
		return nil, false
	}
	reply, err := s.completions.Complete(ctx, messages, llm.DefaultOptions())
	if err != nil {
		s.logger.Warn("insights: completion failed", "error", err)
		return nil, false
	}
	candidate := extract.Extract(reply)
	records, err := ValidateRecords(candidate, opts)
	if err != nil {
		s.logger.Warn("insights: reply did not validate", "error", err)
		return nil, false
	}
	if len(records) == 0 {
		return nil, false
	}
	return records, true
}

// recentHistory loads the newest conversation turns. Memory errors are
// non-fatal; prompts simply go out without context.
func (s *Service) recentHistory(ctx context.Context, userID string) []llm.Message {
	if s.memory == nil || userID == "" {
		return nil
	}
	history, err := s.memory.LoadMessages(ctx, userID, "", 0, 6)
	if err != nil {
		s.logger.Warn("recommendations: chat memory unavailable", "error", err)
		return nil
	}
	return AsPrompt(history)
}

// urgentAlerts probes the alert manager with a zero expense to learn the
// current budget state. Alert errors are non-fatal here.
func (s *Service) urgentAlerts(ctx context.Context, userID string, expenses []core.Expense, budget core.Budget) []Alert {
	if s.alerts == nil {
		return nil
	}
	totals := core.CategoryTotals(expenses)
	alerts, err := s.alerts.ProcessExpenseAlert(ctx, userID, core.Expense{}, budget, totals)
	if err != nil {
		s.logger.Warn("recommendations: alert probe failed", "error", err)
		return nil
	}
	urgent := alerts[:0:0]
	for _, a := range alerts {
		if a.Urgent() {
			urgent = append(urgent, a)
		}
	}
	return urgent
}

func insightsPrompt(expenses []core.Expense, budget core.Budget) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: "You analyze a student's expense data and reply with a JSON array of insight objects. " +
			"Each object has: type (info|warning|error|success), title, message, icon, color. Reply with the JSON array only."},
		{Role: "user", Content: promptData("Generate 2-3 spending insights for this data.", expenses, budget)},
	}
}

func recommendationsPrompt(expenses []core.Expense, budget core.Budget) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: "You are a frugal-living coach for Filipino students. Reply with a JSON array of recommendation objects. " +
			"Each object has: type (info|warning|error|success), title, message, icon, color. Reply with the JSON array only."},
		{Role: "user", Content: promptData("Give 2-3 practical saving recommendations for this data.", expenses, budget)},
	}
}

func promptData(instruction string, expenses []core.Expense, budget core.Budget) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nExpenses:\n")
	if len(expenses) == 0 {
		b.WriteString("(none yet)\n")
	}
	for _, e := range expenses {
		fmt.Fprintf(&b, "- %s: %s on %s\n", e.Category, core.FormatPeso(float64(e.Amount)), e.Date)
	}
	if budget.HasMonthly() {
		fmt.Fprintf(&b, "\nMonthly budget: %s\n", core.FormatPeso(budget.Monthly))
	}
	fmt.Fprintf(&b, "Total spent: %s\n", core.FormatPeso(core.TotalSpent(expenses)))
	return b.String()
}
