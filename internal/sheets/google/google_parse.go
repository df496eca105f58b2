package google

import (
	"strings"

	"gafi/internal/core"
)

// parseExpenseRows converts a Sheets values matrix into expenses for
// one user. Expected columns: user_id, date, amount, category, note.
// A header row is detected and dropped; rows for other users are
// ignored; rows with a non-positive amount count as skipped.
func parseExpenseRows(values [][]interface{}, userID string) (expenses []core.Expense, skipped int) {
	for i, row := range values {
		cells := toStrings(row)
		if i == 0 && isHeaderRow(cells) {
			continue
		}
		if safeGet(cells, 0) != userID {
			continue
		}

		amount := core.ParseAmount(safeGet(cells, 2))
		if amount <= 0 {
			skipped++
			continue
		}

		expenses = append(expenses, core.Expense{
			Amount:   core.Amount(amount),
			Date:     safeGet(cells, 1),
			Category: core.NormalizeCategory(safeGet(cells, 3)),
			Note:     safeGet(cells, 4),
		})
	}
	return expenses, skipped
}

func isHeaderRow(cells []string) bool {
	first := strings.ToLower(safeGet(cells, 0))
	return first == "user_id" || first == "user" || first == "id"
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch t := v.(type) {
		case string:
			out[i] = strings.TrimSpace(t)
		case float64:
			out[i] = core.FormatAmount(t)
		}
	}
	return out
}

func safeGet(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}
