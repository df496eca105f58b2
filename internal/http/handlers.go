package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"gafi/internal/core"
	"gafi/internal/log"
	"gafi/internal/mascot"
	ports "gafi/internal/sheets"
	"gafi/internal/storage"
)

// feedRequest is the shared body for the insight and recommendation
// endpoints. Expenses and budget are optional: when absent they are
// loaded from storage for the given user.
type feedRequest struct {
	UserID   string         `json:"user_id"`
	Expenses []core.Expense `json:"expenses"`
	Budget   *core.Budget   `json:"budget"`
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	req, ok := s.decodeFeedRequest(w, r)
	if !ok {
		return
	}

	if req.fromStorage {
		if cached, found := s.insightCache.Get(req.UserID); found {
			writeJSON(w, http.StatusOK, map[string]any{"insights": cached})
			return
		}
	}

	records := s.insights.GenerateInsights(r.Context(), req.Expenses, req.budget)
	if req.fromStorage {
		s.insightCache.Set(req.UserID, records)
	}
	writeJSON(w, http.StatusOK, map[string]any{"insights": records})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	req, ok := s.decodeFeedRequest(w, r)
	if !ok {
		return
	}

	if req.fromStorage {
		if cached, found := s.recommendationCache.Get(req.UserID); found {
			writeJSON(w, http.StatusOK, map[string]any{"recommendations": cached})
			return
		}
	}

	records := s.insights.GenerateRecommendations(r.Context(), req.UserID, req.Expenses, req.budget)
	if req.fromStorage {
		s.recommendationCache.Set(req.UserID, records)
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": records})
}

// handleOverview returns both feeds in one response, generated
// concurrently.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	expenses, budget, err := s.loadUserData(r, userID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load user data", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load expenses")
		return
	}

	var insightRecords, recommendationRecords []core.InsightRecord
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		insightRecords = s.insights.GenerateInsights(gctx, expenses, budget)
		return nil
	})
	g.Go(func() error {
		recommendationRecords = s.insights.GenerateRecommendations(gctx, userID, expenses, budget)
		return nil
	})
	_ = g.Wait()

	writeJSON(w, http.StatusOK, map[string]any{
		"insights":        insightRecords,
		"recommendations": recommendationRecords,
	})
}

type createExpenseRequest struct {
	UserID   string      `json:"user_id"`
	Amount   core.Amount `json:"amount"`
	Category string      `json:"category"`
	Note     string      `json:"note"`
	Date     string      `json:"date"`
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListExpenses(w, r)
	case http.MethodPost:
		s.handleCreateExpense(w, r)
	case http.MethodDelete:
		s.handleDeleteExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	expenses, err := s.listExpenses(r, userID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list expenses", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount must be positive")
		return
	}

	expense := core.Expense{
		Amount:   req.Amount,
		Category: sanitizeInput(req.Category),
		Note:     sanitizeInput(req.Note),
		Date:     sanitizeInput(req.Date),
	}
	id, alerts, err := s.expenses.CreateExpense(r.Context(), req.UserID, expense)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to create expense", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save expense")
		return
	}

	// Mirror to the external source when it accepts writes, so reads
	// served from it include the new expense.
	if writer, ok := s.expenseSource.(ports.ExpenseWriter); ok {
		if _, werr := writer.Append(r.Context(), req.UserID, expense); werr != nil {
			s.logger.WarnContext(r.Context(), "Failed to mirror expense to external source",
				"user_id", req.UserID, "error", werr)
		}
	}

	s.logger.InfoContext(r.Context(), "Expense created",
		log.NewFields().
			WithUser(req.UserID).
			WithExpense(float64(req.Amount), expense.Category).
			WithOperation(log.OpCreate).
			ToSlice()...)

	s.invalidateFeeds(req.UserID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     id,
		"alerts": alerts,
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	idStr := r.URL.Query().Get("id")
	if userID == "" || idStr == "" {
		writeError(w, http.StatusBadRequest, "user_id and id are required")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to delete expense", "user_id", userID, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	s.invalidateFeeds(userID)
	w.WriteHeader(http.StatusNoContent)
}

type budgetRequest struct {
	UserID     string             `json:"user_id"`
	Monthly    float64            `json:"monthly"`
	Categories map[string]float64 `json:"categories"`
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		budget, err := s.storage.GetBudget(r.Context(), userID)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to load budget", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load budget")
			return
		}
		writeJSON(w, http.StatusOK, budget)
	case http.MethodPost:
		var req budgetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		if req.Monthly < 0 {
			writeError(w, http.StatusUnprocessableEntity, "monthly budget must not be negative")
			return
		}
		if err := s.storage.SetBudget(r.Context(), req.UserID, req.Monthly); err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to set budget", "user_id", req.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save budget")
			return
		}
		for category, limit := range req.Categories {
			if err := s.storage.SetCategoryLimit(r.Context(), req.UserID, category, limit); err != nil {
				s.logger.ErrorContext(r.Context(), "Failed to set category limit",
					"user_id", req.UserID, "category", category, "error", err)
				writeError(w, http.StatusInternalServerError, "failed to save category limit")
				return
			}
		}
		s.invalidateFeeds(req.UserID)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type mascotChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (s *Server) handleMascotChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req mascotChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "user_id and message are required")
		return
	}

	amount := mascot.ExtractSavingsAmount(req.Message)
	if amount <= 0 {
		writeJSON(w, http.StatusOK, s.mascot.GeneralReply(req.Message))
		return
	}

	goal, err := s.storage.AddSavings(r.Context(), req.UserID, amount, req.Message)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to record savings",
			"user_id", req.UserID, "amount", amount, "error", err)
		writeJSON(w, http.StatusOK, s.mascot.SavingsErrorReply(amount))
		return
	}

	reply := s.mascot.SavingsReply(amount, mascot.Goal{
		Name:          goal.Name,
		TargetAmount:  goal.TargetAmount,
		CurrentAmount: goal.CurrentAmount,
	})
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleMascotTips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tip, category := s.mascot.DailyTip(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, map[string]any{
		"tip":         tip,
		"category":    category,
		"categories":  mascot.TipCategories(),
		"mascot_name": mascot.Name,
	})
}

func (s *Server) handleMascotStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	stats, err := s.storage.GoalStats(r.Context(), userID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load goal stats", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load savings stats")
		return
	}
	days, err := s.storage.SavingsDays(r.Context(), userID, 60)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load savings days", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load savings stats")
		return
	}
	streak := mascot.SavingsStreak(days, time.Now().UTC())

	resp := map[string]any{
		"total_saved":     stats.TotalSaved,
		"active_goals":    stats.ActiveGoals,
		"completed_goals": stats.CompletedGoals,
		"total_goals":     stats.TotalGoals,
		"streak_days":     streak,
		"encouragement":   mascot.Encouragement(stats.TotalSaved, streak, stats.CompletedGoals),
		"mascot_name":     mascot.Name,
	}
	if goal, err := s.storage.ActiveGoal(r.Context(), userID); err == nil {
		resp["goal"] = map[string]any{
			"name":           goal.Name,
			"target_amount":  goal.TargetAmount,
			"current_amount": goal.CurrentAmount,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodedFeed is a feedRequest with its storage fallback resolved.
type decodedFeed struct {
	feedRequest
	budget      core.Budget
	fromStorage bool
}

// decodeFeedRequest parses the body and fills missing expenses/budget
// from storage. Writes the error response itself when ok is false.
func (s *Server) decodeFeedRequest(w http.ResponseWriter, r *http.Request) (decodedFeed, bool) {
	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return decodedFeed{}, false
	}

	out := decodedFeed{feedRequest: req}
	if req.Budget != nil {
		out.budget = *req.Budget
	}

	if req.Expenses == nil {
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "user_id is required when expenses are not provided")
			return decodedFeed{}, false
		}
		expenses, budget, err := s.loadUserData(r, req.UserID)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to load user data", "user_id", req.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load expenses")
			return decodedFeed{}, false
		}
		out.Expenses = expenses
		if req.Budget == nil {
			out.budget = budget
		}
		out.fromStorage = true
	}
	return out, true
}

func (s *Server) loadUserData(r *http.Request, userID string) ([]core.Expense, core.Budget, error) {
	expenses, err := s.listExpenses(r, userID)
	if err != nil {
		return nil, core.Budget{}, err
	}
	budget, err := s.storage.GetBudget(r.Context(), userID)
	if err != nil {
		return nil, core.Budget{}, err
	}
	return expenses, budget, nil
}

// listExpenses reads from the configured external source when one is
// set, otherwise from SQLite.
func (s *Server) listExpenses(r *http.Request, userID string) ([]core.Expense, error) {
	if s.expenseSource != nil {
		return s.expenseSource.ListExpenses(r.Context(), userID)
	}
	return s.expenses.ListExpenses(r.Context(), userID)
}
