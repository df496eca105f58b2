// Package icons guards the fixed vocabulary of icon identifiers allowed in
// insight records. Icon names drive mobile iconography; an identifier
// outside the vocabulary would fail to render, so Normalize is total and
// always returns a vocabulary member no matter what the model emitted.
package icons

import (
	"sort"
	"strings"
)

// Default is returned for absent or unrecognizable icon names.
const Default = "information-circle-outline"

// vocabulary is the closed allow-list of icon identifiers the app ships.
var vocabulary = map[string]bool{
	"alert-circle-outline":      true,
	"analytics-outline":         true,
	"bulb-outline":              true,
	"car-outline":               true,
	"card-outline":              true,
	"cart-outline":              true,
	"cash-outline":              true,
	"checkmark-circle-outline":  true,
	"flash-outline":             true,
	"game-controller-outline":   true,
	"gift-outline":              true,
	"happy-outline":             true,
	"information-circle-outline": true,
	"restaurant-outline":        true,
	"school-outline":            true,
	"shield-checkmark-outline":  true,
	"sparkles-outline":          true,
	"time-outline":              true,
	"trending-down-outline":     true,
	"trending-up-outline":       true,
	"trophy-outline":            true,
	"wallet-outline":            true,
	"warning-outline":           true,
}

// legacyAliases maps icon names from older Ionicons conventions the model
// still emits (ios-/md- prefixes, pre-outline names) to current ones.
var legacyAliases = map[string]string{
	"ios-warning":        "warning-outline",
	"md-warning":         "warning-outline",
	"ios-alert":          "alert-circle-outline",
	"md-alert":           "alert-circle-outline",
	"ios-analytics":      "analytics-outline",
	"md-analytics":       "analytics-outline",
	"ios-cash":           "cash-outline",
	"md-cash":            "cash-outline",
	"ios-wallet":         "wallet-outline",
	"md-wallet":          "wallet-outline",
	"ios-restaurant":     "restaurant-outline",
	"md-restaurant":      "restaurant-outline",
	"ios-car":            "car-outline",
	"md-car":             "car-outline",
	"ios-school":         "school-outline",
	"md-school":          "school-outline",
	"ios-cart":           "cart-outline",
	"md-cart":            "cart-outline",
	"ios-bulb":           "bulb-outline",
	"md-bulb":            "bulb-outline",
	"ios-trending-up":    "trending-up-outline",
	"ios-trending-down":  "trending-down-outline",
	"ios-checkmark-circle": "checkmark-circle-outline",
	"md-checkmark-circle":  "checkmark-circle-outline",
	"checkmark":          "checkmark-circle-outline",
	"warning":            "warning-outline",
	"alert":              "alert-circle-outline",
	"info":               "information-circle-outline",
}

// IsValid reports exact membership in the vocabulary.
func IsValid(name string) bool {
	return vocabulary[name]
}

// Normalize maps an arbitrary icon name to a vocabulary member. It never
// fails: unknown names fall through a legacy-alias table and a substring
// match before defaulting. Normalizing a vocabulary member returns it
// unchanged.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return Default
	}
	if vocabulary[name] {
		return name
	}
	lower := strings.ToLower(name)
	if mapped, ok := legacyAliases[lower]; ok {
		return mapped
	}
	for _, entry := range ordered {
		if strings.Contains(entry, lower) {
			return entry
		}
		if base := strings.TrimSuffix(entry, "-outline"); strings.Contains(lower, base) {
			return entry
		}
	}
	return Default
}

// Vocabulary returns the allow-list in deterministic order.
func Vocabulary() []string {
	return append([]string(nil), ordered...)
}

// ordered keeps substring matching deterministic.
var ordered = func() []string {
	names := make([]string, 0, len(vocabulary))
	for name := range vocabulary {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()
