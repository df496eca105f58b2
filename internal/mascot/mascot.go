// Package mascot implements MonT, the financial-advisor mascot. It
// understands free-form savings messages, routes general questions to a
// tip category and produces motivational replies around a savings goal.
package mascot

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gafi/internal/core"
)

// Name is the mascot's display name.
const Name = "MonT"

// DefaultGoalAmount is used when a user chats savings without having
// set up a goal yet.
const DefaultGoalAmount = 10000.0

// Tip categories.
const (
	TipsSavings   = "savings"
	TipsBudgeting = "budgeting"
	TipsGoals     = "goals"
)

var literacyTips = map[string][]string{
	TipsSavings: {
		"Try the 50/30/20 rule: 50% needs, 30% wants, 20% savings!",
		"Saving ₱50 daily = ₱18,250 yearly! Small steps, big results!",
		"Automate your savings, pay yourself first before any expenses!",
		"Emergency fund goal: 3-6 months of living expenses!",
		"Every peso saved today is a peso earning for your future!",
	},
	TipsBudgeting: {
		"Track every expense for a week to understand spending patterns!",
		"Set realistic budget limits, being too strict leads to failure!",
		"Use the envelope method: allocate money for each category!",
		"Review and adjust your budget monthly based on actual spending!",
		"Budget isn't restriction, it's permission to spend guilt-free!",
	},
	TipsGoals: {
		"SMART goals: Specific, Measurable, Achievable, Relevant, Time-bound!",
		"Break big goals into smaller milestones for motivation!",
		"Celebrate small wins, every ₱100 saved is progress!",
		"Set both short-term (1 month) and long-term (1 year) goals!",
		"Visualize your goal, imagine how achieving it will feel!",
	},
}

var motivationalPhrases = []string{
	"Amazing job!",
	"You're crushing it!",
	"Keep up the great work!",
	"I'm so proud of you!",
	"You're building wealth step by step!",
	"Financial freedom is getting closer!",
}

// savingsPatterns recognize a savings amount inside free-form chat, in
// order of specificity. Group 1 always captures the amount.
var savingsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:saved|saving|put away|set aside)\s+(?:php\s*|₱\s*)?(\d+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?:php\s*|₱\s*)?(\d+(?:\.\d{2})?)\s*(?:saved|saving|today|yesterday)`),
	regexp.MustCompile(`i\s+(?:saved|put away|set aside)\s+(?:php\s*|₱\s*)?(\d+(?:\.\d{2})?)`),
	regexp.MustCompile(`added\s+(?:php\s*|₱\s*)?(\d+(?:\.\d{2})?)\s*to.*savings`),
}

// Reply is the mascot's answer to one chat message.
type Reply struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Tip         string  `json:"tip"`
	MascotName  string  `json:"mascot_name"`
	Timestamp   string  `json:"timestamp"`
	Progress    float64 `json:"progress,omitempty"`
	AmountAdded float64 `json:"amount_added,omitempty"`
	TotalSaved  float64 `json:"total_saved,omitempty"`
	GoalAmount  float64 `json:"goal_amount,omitempty"`
	GoalName    string  `json:"goal_name,omitempty"`
}

// Goal is the savings goal state a reply is generated against.
type Goal struct {
	Name          string
	TargetAmount  float64
	CurrentAmount float64
}

// Mascot generates replies. Safe for concurrent use is not required;
// the HTTP layer holds one instance per process and the rng is only
// used for phrase selection.
type Mascot struct {
	rng *rand.Rand
}

func New() *Mascot {
	return &Mascot{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// ExtractSavingsAmount pulls a savings amount out of a chat message.
// Returns 0 when the message carries none.
func ExtractSavingsAmount(message string) float64 {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, pattern := range savingsPatterns {
		m := pattern.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		amount, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return amount
	}
	return 0
}

// SavingsReply builds the reply for a recognized savings deposit. The
// goal already reflects the new total.
func (m *Mascot) SavingsReply(amount float64, goal Goal) Reply {
	progress := 0.0
	if goal.TargetAmount > 0 {
		progress = goal.CurrentAmount / goal.TargetAmount * 100
	}
	motivation := m.pick(motivationalPhrases)

	var message, tip string
	switch {
	case progress >= 100:
		message = fmt.Sprintf("%s You've reached your savings goal! Total saved: %s", motivation, core.FormatPeso(goal.CurrentAmount))
		tip = m.pick(literacyTips[TipsGoals])
	case progress >= 75:
		message = fmt.Sprintf("%s You're so close! Only %s left to reach your goal!", motivation, core.FormatPeso(goal.TargetAmount-goal.CurrentAmount))
		tip = "You're in the final stretch, keep that momentum going!"
	case progress >= 50:
		message = fmt.Sprintf("%s Halfway there! You've saved %s today. Total: %s", motivation, core.FormatPeso(amount), core.FormatPeso(goal.CurrentAmount))
		tip = m.pick(literacyTips[TipsSavings])
	case progress >= 25:
		message = fmt.Sprintf("%s Great progress! %s added today brings you to %s", motivation, core.FormatPeso(amount), core.FormatPeso(goal.CurrentAmount))
		tip = m.pick(literacyTips[TipsBudgeting])
	default:
		message = fmt.Sprintf("%s Every journey starts with a single step! %s saved today.", motivation, core.FormatPeso(amount))
		tip = m.pick(literacyTips[TipsSavings])
	}

	return m.stamp(Reply{
		Type:        "savings_update",
		Message:     message,
		Tip:         tip,
		Progress:    round1(progress),
		AmountAdded: amount,
		TotalSaved:  goal.CurrentAmount,
		GoalAmount:  goal.TargetAmount,
		GoalName:    goal.Name,
	})
}

// GeneralReply routes a non-savings message by keyword to a tip
// category.
func (m *Mascot) GeneralReply(message string) Reply {
	lower := strings.ToLower(message)

	var response, tip string
	switch {
	case containsAny(lower, "budget", "budgeting", "expense"):
		tip = m.pick(literacyTips[TipsBudgeting])
		response = "Great question about budgeting! " + tip
	case containsAny(lower, "save", "saving", "savings"):
		tip = m.pick(literacyTips[TipsSavings])
		response = "I love talking about savings! " + tip
	case containsAny(lower, "goal", "goals", "target"):
		tip = m.pick(literacyTips[TipsGoals])
		response = "Goals are so important! " + tip
	default:
		tip = m.pick(literacyTips[TipsSavings])
		response = "I'm here to help with your financial journey! Ask me about savings, budgeting, or setting goals!"
	}

	return m.stamp(Reply{Type: "general", Message: response, Tip: tip})
}

// SavingsErrorReply is returned when a deposit could not be persisted.
func (m *Mascot) SavingsErrorReply(amount float64) Reply {
	return m.stamp(Reply{
		Type:    "error",
		Message: fmt.Sprintf("I couldn't save your %s right now, but I appreciate your effort! Please try again.", core.FormatPeso(amount)),
		Tip:     "Keep tracking your savings manually until we fix this!",
	})
}

// DailyTip returns one tip from the category, falling back to savings
// for unknown categories.
func (m *Mascot) DailyTip(category string) (tip, resolved string) {
	tips, ok := literacyTips[category]
	if !ok {
		category = TipsSavings
		tips = literacyTips[TipsSavings]
	}
	return m.pick(tips), category
}

// TipCategories lists the available tip categories.
func TipCategories() []string {
	return []string{TipsSavings, TipsBudgeting, TipsGoals}
}

// Encouragement summarizes overall progress in one line.
func Encouragement(totalSaved float64, streakDays, completedGoals int) string {
	switch {
	case completedGoals > 0:
		return fmt.Sprintf("Amazing! You've completed %d goals and saved %s total!", completedGoals, core.FormatPeso(totalSaved))
	case streakDays >= 7:
		return fmt.Sprintf("Incredible %d-day savings streak! You're building an amazing habit!", streakDays)
	case streakDays >= 3:
		return fmt.Sprintf("%d days in a row! Keep this momentum going!", streakDays)
	case totalSaved >= 1000:
		return fmt.Sprintf("%s saved! You're building real wealth!", core.FormatPeso(totalSaved))
	default:
		return "Every peso saved is a step towards financial freedom! Keep going!"
	}
}

// SavingsStreak counts consecutive days with a deposit, ending today.
func SavingsStreak(days map[string]bool, today time.Time) int {
	streak := 0
	current := today
	for days[current.Format("2006-01-02")] {
		streak++
		current = current.AddDate(0, 0, -1)
	}
	return streak
}

func (m *Mascot) stamp(r Reply) Reply {
	r.MascotName = Name
	r.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return r
}

func (m *Mascot) pick(options []string) string {
	return options[m.rng.Intn(len(options))]
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
