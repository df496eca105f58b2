// Package storage persists expenses, budgets, savings goals and alert
// events in SQLite.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"gafi/internal/core"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

// DefaultGoalName is assigned when a savings deposit arrives before the
// user has created a goal.
const DefaultGoalName = "My Savings Goal"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// runMigrations applies pending schema migrations over its own
// connection, kept separate from the repository pool.
func runMigrations(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("assemble migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AppendExpense stores a new expense and returns its row id.
func (r *SQLiteRepository) AppendExpense(ctx context.Context, userID string, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount, category, note, spent_on) VALUES (?, ?, ?, ?, ?)`,
		userID, float64(e.Amount), core.NormalizeCategory(e.Category), e.Note, e.Date)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "expense saved",
		"id", id, "user_id", userID,
		"amount", float64(e.Amount), "category", e.Category)
	return id, nil
}

// ListExpenses returns the user's non-deleted expenses, oldest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT amount, category, note, spent_on FROM expenses
		 WHERE user_id = ? AND deleted_at IS NULL ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var amount float64
		if err := rows.Scan(&amount, &e.Category, &e.Note, &e.Date); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Amount = core.Amount(amount)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// SoftDeleteExpense marks an expense deleted without removing the row.
func (r *SQLiteRepository) SoftDeleteExpense(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET deleted_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`, id, userID)
	if err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CategoryTotals sums non-deleted expense amounts per category.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID string) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount) FROM expenses
		 WHERE user_id = ? AND deleted_at IS NULL GROUP BY category`, userID)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var category string
		var total float64
		if err := rows.Scan(&category, &total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals[category] = total
	}
	return totals, rows.Err()
}

// GetBudget loads the monthly budget and per-category limits. A user
// without a budget row gets a zero budget, not an error.
func (r *SQLiteRepository) GetBudget(ctx context.Context, userID string) (core.Budget, error) {
	var budget core.Budget
	err := r.db.QueryRowContext(ctx,
		`SELECT monthly FROM budgets WHERE user_id = ?`, userID).Scan(&budget.Monthly)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, monthly_limit FROM category_limits WHERE user_id = ?`, userID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get category limits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var limit float64
		if err := rows.Scan(&category, &limit); err != nil {
			return core.Budget{}, fmt.Errorf("scan category limit: %w", err)
		}
		if budget.Categories == nil {
			budget.Categories = make(map[string]float64)
		}
		budget.Categories[category] = limit
	}
	return budget, rows.Err()
}

// SetBudget upserts the monthly budget ceiling.
func (r *SQLiteRepository) SetBudget(ctx context.Context, userID string, monthly float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, monthly, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id) DO UPDATE SET monthly = excluded.monthly, updated_at = CURRENT_TIMESTAMP`,
		userID, monthly)
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

// SetCategoryLimit upserts a per-category monthly limit.
func (r *SQLiteRepository) SetCategoryLimit(ctx context.Context, userID, category string, limit float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO category_limits (user_id, category, monthly_limit) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, category) DO UPDATE SET monthly_limit = excluded.monthly_limit`,
		userID, core.NormalizeCategory(category), limit)
	if err != nil {
		return fmt.Errorf("set category limit: %w", err)
	}
	return nil
}

// SavingsGoal is one row of the savings_goals table.
type SavingsGoal struct {
	ID            int64
	Name          string
	TargetAmount  float64
	CurrentAmount float64
	Status        string
}

// ActiveGoal returns the user's active savings goal or ErrNotFound.
func (r *SQLiteRepository) ActiveGoal(ctx context.Context, userID string) (SavingsGoal, error) {
	var g SavingsGoal
	err := r.db.QueryRowContext(ctx,
		`SELECT id, goal_name, target_amount, current_amount, status FROM savings_goals
		 WHERE user_id = ? AND status = 'active' ORDER BY created_at DESC LIMIT 1`, userID).
		Scan(&g.ID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return SavingsGoal{}, ErrNotFound
	}
	if err != nil {
		return SavingsGoal{}, fmt.Errorf("active goal: %w", err)
	}
	return g, nil
}

// AddSavings records a deposit against the active goal, creating a
// default goal when none exists, and returns the updated goal.
func (r *SQLiteRepository) AddSavings(ctx context.Context, userID string, amount float64, description string) (SavingsGoal, error) {
	goal, err := r.ActiveGoal(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		goal, err = r.createDefaultGoal(ctx, userID)
	}
	if err != nil {
		return SavingsGoal{}, err
	}

	goal.CurrentAmount += amount
	_, err = r.db.ExecContext(ctx,
		`UPDATE savings_goals SET current_amount = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		goal.CurrentAmount, goal.ID)
	if err != nil {
		return SavingsGoal{}, fmt.Errorf("update goal: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO savings_transactions (user_id, amount, description) VALUES (?, ?, ?)`,
		userID, amount, description)
	if err != nil {
		return SavingsGoal{}, fmt.Errorf("record savings transaction: %w", err)
	}

	slog.InfoContext(ctx, "savings recorded",
		"user_id", userID, "amount", amount, "total", goal.CurrentAmount)
	return goal, nil
}

func (r *SQLiteRepository) createDefaultGoal(ctx context.Context, userID string) (SavingsGoal, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (user_id, goal_name, target_amount) VALUES (?, ?, ?)`,
		userID, DefaultGoalName, 10000.0)
	if err != nil {
		return SavingsGoal{}, fmt.Errorf("create default goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return SavingsGoal{}, fmt.Errorf("default goal id: %w", err)
	}
	return SavingsGoal{ID: id, Name: DefaultGoalName, TargetAmount: 10000.0, Status: "active"}, nil
}

// SavingsDays returns the set of days (UTC, YYYY-MM-DD) with at least
// one deposit among the most recent transactions.
func (r *SQLiteRepository) SavingsDays(ctx context.Context, userID string, limit int) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT created_at FROM savings_transactions
		 WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("savings days: %w", err)
	}
	defer rows.Close()

	days := make(map[string]bool)
	for rows.Next() {
		var created time.Time
		if err := rows.Scan(&created); err != nil {
			return nil, fmt.Errorf("scan savings day: %w", err)
		}
		days[created.UTC().Format("2006-01-02")] = true
	}
	return days, rows.Err()
}

// GoalStats aggregates the user's savings goals.
type GoalStats struct {
	TotalSaved     float64
	ActiveGoals    int
	CompletedGoals int
	TotalGoals     int
}

func (r *SQLiteRepository) GoalStats(ctx context.Context, userID string) (GoalStats, error) {
	var stats GoalStats
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(current_amount), 0),
		        COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
		        COUNT(*)
		 FROM savings_goals WHERE user_id = ?`, userID).
		Scan(&stats.TotalSaved, &stats.ActiveGoals, &stats.CompletedGoals, &stats.TotalGoals)
	if err != nil {
		return GoalStats{}, fmt.Errorf("goal stats: %w", err)
	}
	return stats, nil
}

// SaveAlertEvent stores a raised alert for audit and the worker feed,
// returning the event row id.
func (r *SQLiteRepository) SaveAlertEvent(ctx context.Context, userID, level, title, message string, payload []byte) (int64, error) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO alert_events (user_id, level, title, message, payload) VALUES (?, ?, ?, ?, ?)`,
		userID, level, title, message, string(payload))
	if err != nil {
		return 0, fmt.Errorf("save alert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("alert event id: %w", err)
	}
	return id, nil
}

// AlertEvent is one stored alert_events row.
type AlertEvent struct {
	ID      int64
	UserID  string
	Level   string
	Title   string
	Message string
	Payload []byte
}

// GetAlertEvent loads a stored alert event by id.
func (r *SQLiteRepository) GetAlertEvent(ctx context.Context, id int64) (AlertEvent, error) {
	var ev AlertEvent
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, level, title, message, payload FROM alert_events WHERE id = ?`, id).
		Scan(&ev.ID, &ev.UserID, &ev.Level, &ev.Title, &ev.Message, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return AlertEvent{}, ErrNotFound
	}
	if err != nil {
		return AlertEvent{}, fmt.Errorf("get alert event: %w", err)
	}
	ev.Payload = []byte(payload)
	return ev, nil
}

// PendingAlertEvents returns undelivered alert events, oldest first.
// This backs the worker's recovery sweep when AMQP messages are lost.
func (r *SQLiteRepository) PendingAlertEvents(ctx context.Context, limit int) ([]AlertEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, level, title, message, payload
		 FROM alert_events
		 WHERE delivered_at IS NULL
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending alert events: %w", err)
	}
	defer rows.Close()

	var events []AlertEvent
	for rows.Next() {
		var ev AlertEvent
		var payload string
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Level, &ev.Title, &ev.Message, &payload); err != nil {
			return nil, fmt.Errorf("scan alert event: %w", err)
		}
		ev.Payload = []byte(payload)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MarkAlertDelivered records a successful delivery.
func (r *SQLiteRepository) MarkAlertDelivered(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alert_events SET delivered_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark alert delivered: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAlertDeliveryError bumps the attempt counter so repeated failures
// stay visible in the table.
func (r *SQLiteRepository) MarkAlertDeliveryError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE alert_events SET delivery_attempts = delivery_attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark alert delivery error: %w", err)
	}
	return nil
}
