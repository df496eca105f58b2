package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"gafi/internal/alerts"
	"gafi/internal/core"
	"gafi/internal/insights"
	"gafi/internal/services"
	"gafi/internal/sheets/memory"
	"gafi/internal/storage"
)

// newTestServer wires a server against a throwaway SQLite database with
// no completion client, so generation exercises the fallback path.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "gafi.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	manager := alerts.NewManager()
	expenseSvc := services.NewExpenseService(repo, manager, nil)
	insightSvc := insights.NewService(nil, manager, nil)

	srv := NewServer(":0", repo, expenseSvc, insightSvc, nil)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}
}

func TestInsightsWithInlinePayload(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/insights", map[string]any{
		"expenses": []map[string]any{},
		"budget":   map[string]any{"monthly": 0},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "welcome") {
		t.Errorf("empty expenses should yield the welcome insight: %s", rr.Body.String())
	}
}

func TestInsightsRequiresUserWithoutExpenses(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/api/insights", map[string]any{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestExpenseLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	// Missing user
	rr := doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{"amount": 100})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing user_id, got %d", rr.Code)
	}

	// Non-positive amount
	rr = doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{"user_id": "u1", "amount": 0})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for zero amount, got %d", rr.Code)
	}

	// Success
	rr = doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"user_id": "u1", "amount": 150, "category": "Food", "note": "lunch",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil || created.ID == 0 {
		t.Fatalf("expected expense id in response: %s", rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/expenses?user_id=u1", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "food") {
		t.Fatalf("list failed: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/expenses?user_id=u1&id=1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodDelete, "/api/expenses?user_id=u1&id=1", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for already-deleted expense, got %d", rr.Code)
	}
}

func TestCreateExpenseRaisesBudgetAlerts(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/budget", map[string]any{
		"user_id": "u1", "monthly": 1000,
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("set budget: status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"user_id": "u1", "amount": 1200, "category": "food",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status=%d", rr.Code)
	}
	var created struct {
		Alerts []struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"alerts"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(created.Alerts) == 0 {
		t.Fatalf("expected a budget alert: %s", rr.Body.String())
	}
	if created.Alerts[0].Type != "error" {
		t.Errorf("exceeded budget should map to error, got %s", created.Alerts[0].Type)
	}
	if !strings.Contains(created.Alerts[0].Message, "200") {
		t.Errorf("alert message should carry the overage: %s", created.Alerts[0].Message)
	}
}

func TestBudgetRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/budget", map[string]any{
		"user_id": "u1", "monthly": 5000, "categories": map[string]float64{"food": 2000},
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("set budget: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/budget?user_id=u1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get budget: status=%d", rr.Code)
	}
	var budget struct {
		Monthly    float64            `json:"monthly"`
		Categories map[string]float64 `json:"categories"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &budget); err != nil {
		t.Fatalf("decode budget: %v", err)
	}
	if budget.Monthly != 5000 || budget.Categories["food"] != 2000 {
		t.Errorf("budget round-trip wrong: %+v", budget)
	}
}

func TestOverviewReturnsBothFeeds(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/overview?user_id=u1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := resp["insights"]; !ok {
		t.Error("missing insights key")
	}
	if _, ok := resp["recommendations"]; !ok {
		t.Error("missing recommendations key")
	}
}

func TestMascotChatRecordsSavings(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/mascot/chat", map[string]any{
		"user_id": "u1", "message": "I saved 500 today",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var reply struct {
		Type        string  `json:"type"`
		AmountAdded float64 `json:"amount_added"`
		TotalSaved  float64 `json:"total_saved"`
		MascotName  string  `json:"mascot_name"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Type != "savings_update" || reply.AmountAdded != 500 || reply.TotalSaved != 500 {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if reply.MascotName != "MonT" {
		t.Errorf("mascot name = %q", reply.MascotName)
	}

	// Non-savings message routes to a general reply
	rr = doJSON(t, srv, http.MethodPost, "/api/mascot/chat", map[string]any{
		"user_id": "u1", "message": "how do I budget better?",
	})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"general"`) {
		t.Errorf("general reply expected: status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMascotTipsAndStats(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/mascot/tips?category=budgeting", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"budgeting"`) {
		t.Fatalf("tips: status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Deposit once so stats have content
	doJSON(t, srv, http.MethodPost, "/api/mascot/chat", map[string]any{
		"user_id": "u1", "message": "saved 250 today",
	})

	rr = doJSON(t, srv, http.MethodGet, "/api/mascot/stats?user_id=u1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats: status=%d", rr.Code)
	}
	var stats struct {
		TotalSaved float64 `json:"total_saved"`
		StreakDays int     `json:"streak_days"`
		Goal       *struct {
			TargetAmount float64 `json:"target_amount"`
		} `json:"goal"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalSaved != 250 {
		t.Errorf("total_saved = %v", stats.TotalSaved)
	}
	if stats.Goal == nil || stats.Goal.TargetAmount != 10000 {
		t.Errorf("expected default goal in stats: %+v", stats.Goal)
	}
}

func TestExternalExpenseSource(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "gafi.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	store := memory.New()
	store.Seed("u1", []core.Expense{{Amount: 75, Category: "transport"}})

	manager := alerts.NewManager()
	srv := NewServer(":0", repo, services.NewExpenseService(repo, manager, nil), insights.NewService(nil, manager, nil), store)
	t.Cleanup(func() { srv.rateLimiter.stop() })

	rr := doJSON(t, srv, http.MethodGet, "/api/expenses?user_id=u1", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "transport") {
		t.Fatalf("external source list failed: status=%d body=%s", rr.Code, rr.Body.String())
	}

	// A writable source receives a mirror of each created expense.
	rr = doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"user_id": "u1", "amount": 120, "category": "Food",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/expenses?user_id=u1", nil)
	if !strings.Contains(rr.Body.String(), "food") {
		t.Errorf("created expense should be mirrored to the source: %s", rr.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	cases := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/insights"},
		{http.MethodGet, "/api/recommendations"},
		{http.MethodPost, "/api/overview"},
		{http.MethodGet, "/api/mascot/chat"},
		{http.MethodPost, "/api/mascot/tips"},
	}
	for _, tc := range cases {
		rr := doJSON(t, srv, tc.method, tc.path, nil)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected 405, got %d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  lunch\x00\x01  "); got != "lunch" {
		t.Errorf("sanitizeInput = %q", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")
	if got := clientIP(req); got != "10.0.0.1" {
		t.Errorf("clientIP = %q", got)
	}
	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "10.0.0.2")
	if got := clientIP(req); got != "10.0.0.2" {
		t.Errorf("clientIP = %q", got)
	}
}
