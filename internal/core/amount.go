// Package core provides the domain types shared by the insights pipeline.
//
// This file contains permissive amount parsing and currency formatting.
// Model output and client payloads carry amounts as numbers, quoted
// numbers or free text; parsing degrades to zero instead of failing.
package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Amount is a peso value parsed permissively from JSON. Numbers, quoted
// numbers ("1250.50"), currency-prefixed strings ("₱1,250") and null all
// decode without error; anything unusable becomes zero.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = Amount(coercePositive(n))
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*a = Amount(ParseAmount(str))
		return nil
	}
	// Objects, arrays, booleans: treat as zero, never abort the batch.
	*a = 0
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(a))
}

// ParseAmount converts an arbitrary value to a non-negative float64.
// Strings are stripped of currency symbols, thousands separators and
// surrounding text before parsing. Unusable input yields zero.
func ParseAmount(v any) float64 {
	switch t := v.(type) {
	case float64:
		return coercePositive(t)
	case float32:
		return coercePositive(float64(t))
	case int:
		return coercePositive(float64(t))
	case int64:
		return coercePositive(float64(t))
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0
		}
		return coercePositive(n)
	case string:
		return parseAmountString(t)
	default:
		return 0
	}
}

func parseAmountString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			// thousands separator
		}
	}
	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return coercePositive(n)
}

func coercePositive(n float64) float64 {
	if n < 0 || n != n { // negative or NaN
		return 0
	}
	return n
}

// FormatAmount renders a peso value with comma thousands separators,
// e.g. 3000 -> "3,000" and 1250.5 -> "1,250.50". Whole values drop the
// decimal part to match the mobile app's display format.
func FormatAmount(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := int64(v)
	frac := v - float64(whole)

	s := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac >= 0.005 {
		cents := int64(frac*100 + 0.5)
		if cents >= 100 {
			// rounding carried into the whole part
			return FormatAmount(float64(whole + 1))
		}
		out += "." + pad2(cents)
	}
	if neg {
		return "-" + out
	}
	return out
}

// FormatPeso prefixes a formatted amount with the peso sign.
func FormatPeso(v float64) string {
	return "₱" + FormatAmount(v)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
