package insights

import (
	"fmt"

	"gafi/internal/core"
)

// The fallback generator replaces the model entirely when the AI path is
// disabled, fails or returns unusable output. Availability of the whole
// insights surface rests on it, so it is pure table-driven arithmetic:
// no I/O, no errors, no panics.

// Budget usage bands, in percent of the monthly ceiling.
const (
	budgetExceeded  = 100.0
	budgetCritical  = 90.0
	budgetWarning   = 75.0
	budgetRecommend = 80.0
)

// avgSpendThreshold is the recent-average spend (last 5 expenses) above
// which the habit nudge fires.
const avgSpendThreshold = 500.0

// maxRecommendations bounds the recommendation list shown in the app.
const maxRecommendations = 3

// categoryIcons maps normalized spending categories to vocabulary icons.
var categoryIcons = map[string]string{
	"food":          "restaurant-outline",
	"transport":     "car-outline",
	"transportation": "car-outline",
	"school":        "school-outline",
	"education":     "school-outline",
	"entertainment": "game-controller-outline",
	"shopping":      "cart-outline",
	"groceries":     "cart-outline",
	"bills":         "flash-outline",
	"utilities":     "flash-outline",
	"others":        "wallet-outline",
}

func categoryIcon(category string) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return "wallet-outline"
}

// categoryRule is one row of the recommendation advice table.
type categoryRule struct {
	threshold float64
	title     string
	message   string // fmt verb receives the formatted total
}

var categoryRules = map[string]categoryRule{
	"food": {
		threshold: 1000,
		title:     "Trim Food Spending",
		message:   "You've spent ₱%s on food. Meal prepping and campus canteens can cut that by a third.",
	},
	"transport": {
		threshold: 500,
		title:     "Cheaper Commutes",
		message:   "₱%s went to transport. Try carpooling, student fares, or walking shorter trips.",
	},
	"entertainment": {
		threshold: 800,
		title:     "Entertainment on a Budget",
		message:   "₱%s on entertainment this period. Look for student discounts and free campus events.",
	},
	"shopping": {
		threshold: 1000,
		title:     "Pause Before You Buy",
		message:   "₱%s on shopping. A 24-hour wait before non-essential purchases curbs impulse buys.",
	},
	"school": {
		threshold: 1500,
		title:     "Save on School Costs",
		message:   "₱%s on school expenses. Secondhand books and shared supplies can help.",
	},
}

var genericRule = categoryRule{
	threshold: 0,
	title:     "Watch Your Top Category",
	message:   "Your biggest spending category has reached ₱%s. Setting a limit for it keeps things predictable.",
}

// GenerateFallbackInsights synthesizes insight records directly from
// expense and budget data. It always returns at least one record.
func GenerateFallbackInsights(expenses []core.Expense, budget core.Budget) []core.InsightRecord {
	if len(expenses) == 0 {
		return []core.InsightRecord{{
			ID:      "welcome",
			Type:    core.RecordInfo,
			Title:   "Welcome to GaFi!",
			Message: "Start logging your expenses and I'll surface spending insights here.",
			Icon:    "sparkles-outline",
			Color:   colorInfo,
		}}
	}

	var records []core.InsightRecord

	totals := core.CategoryTotals(expenses)
	topCategory, topAmount := core.TopCategory(totals)
	records = append(records, core.InsightRecord{
		ID:      "top-category",
		Type:    core.RecordInfo,
		Title:   "Top Spending Category",
		Message: fmt.Sprintf("Most of your money goes to %s: ₱%s so far.", topCategory, core.FormatAmount(topAmount)),
		Icon:    categoryIcon(topCategory),
		Color:   colorInfo,
	})

	totalSpent := core.TotalSpent(expenses)
	if budget.HasMonthly() {
		records = append(records, budgetStatusRecord(totalSpent, budget.Monthly))
	}

	if rec, ok := spendingHabitRecord(expenses); ok {
		records = append(records, rec)
	}

	return records
}

func budgetStatusRecord(totalSpent, monthly float64) core.InsightRecord {
	percentage := totalSpent / monthly * 100

	switch {
	case percentage > budgetExceeded:
		return core.InsightRecord{
			ID:      "budget-status",
			Type:    core.RecordError,
			Title:   "Budget Exceeded",
			Message: fmt.Sprintf("You've gone over your monthly budget by ₱%s.", core.FormatAmount(totalSpent-monthly)),
			Icon:    "alert-circle-outline",
			Color:   colorError,
		}
	case percentage > budgetCritical:
		return core.InsightRecord{
			ID:      "budget-status",
			Type:    core.RecordWarning,
			Title:   "Almost at Your Limit",
			Message: fmt.Sprintf("You've used %.1f%% of your budget. Only ₱%s remaining.", percentage, core.FormatAmount(monthly-totalSpent)),
			Icon:    "warning-outline",
			Color:   colorWarning,
		}
	case percentage > budgetWarning:
		return core.InsightRecord{
			ID:      "budget-status",
			Type:    core.RecordWarning,
			Title:   "Budget Check",
			Message: "You're past three quarters of your monthly budget. Slowing down now keeps you on track.",
			Icon:    "analytics-outline",
			Color:   colorWarning,
		}
	default:
		return core.InsightRecord{
			ID:      "budget-status",
			Type:    core.RecordSuccess,
			Title:   "Budget on Track",
			Message: fmt.Sprintf("Nice pacing! You still have %.1f%% of your budget left.", 100-percentage),
			Icon:    "checkmark-circle-outline",
			Color:   colorSuccess,
		}
	}
}

func spendingHabitRecord(expenses []core.Expense) (core.InsightRecord, bool) {
	if len(expenses) < 5 {
		return core.InsightRecord{}, false
	}
	recent := expenses[len(expenses)-5:]
	var sum float64
	for _, e := range recent {
		sum += float64(e.Amount)
	}
	mean := sum / float64(len(recent))
	if mean <= avgSpendThreshold {
		return core.InsightRecord{}, false
	}
	return core.InsightRecord{
		ID:      "habit",
		Type:    core.RecordInfo,
		Title:   "Recent Purchases Run High",
		Message: fmt.Sprintf("Your last five expenses average ₱%s each. Smaller, planned purchases stretch an allowance further.", core.FormatAmount(mean)),
		Icon:    "trending-up-outline",
		Color:   colorInfo,
	}, true
}

// GenerateFallbackRecommendations synthesizes 1 to 3 recommendation
// records, budget-driven warnings first, a generic savings tip last.
func GenerateFallbackRecommendations(expenses []core.Expense, budget core.Budget) []core.InsightRecord {
	if len(expenses) == 0 {
		return []core.InsightRecord{{
			ID:      "start-tracking",
			Type:    core.RecordInfo,
			Title:   "Start Tracking",
			Message: "Log your first expense and I'll tailor saving recommendations to your habits.",
			Icon:    "wallet-outline",
			Color:   colorInfo,
		}}
	}

	var records []core.InsightRecord

	totalSpent := core.TotalSpent(expenses)
	if budget.HasMonthly() && totalSpent/budget.Monthly*100 > budgetRecommend {
		records = append(records, core.InsightRecord{
			ID:      "budget-watch",
			Type:    core.RecordWarning,
			Title:   "Budget Needs Attention",
			Message: fmt.Sprintf("You've used over 80%% of your monthly budget (₱%s of ₱%s). Plan the rest of the month before spending more.", core.FormatAmount(totalSpent), core.FormatAmount(budget.Monthly)),
			Icon:    "warning-outline",
			Color:   colorWarning,
		})
	}

	totals := core.CategoryTotals(expenses)
	topCategory, topAmount := core.TopCategory(totals)
	rule, ok := categoryRules[topCategory]
	if !ok {
		rule = genericRule
	}
	if topAmount >= rule.threshold {
		records = append(records, core.InsightRecord{
			ID:      "category-advice",
			Type:    core.RecordInfo,
			Title:   rule.title,
			Message: fmt.Sprintf(rule.message, core.FormatAmount(topAmount)),
			Icon:    categoryIcon(topCategory),
			Color:   colorInfo,
		})
	}

	records = append(records, core.InsightRecord{
		ID:      "student-tip",
		Type:    core.RecordSuccess,
		Title:   "Student Savings Tip",
		Message: "Set aside a fixed amount the day your allowance arrives. Paying yourself first beats saving leftovers.",
		Icon:    "bulb-outline",
		Color:   colorSuccess,
	})

	if len(records) > maxRecommendations {
		records = records[:maxRecommendations]
	}
	return records
}
