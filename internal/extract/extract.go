// Package extract rescues a JSON array from free-form LLM text.
//
// Model replies arrive truncated, fenced in markdown, wrapped in prose or
// syntactically broken. Extract runs an ordered cascade of repair
// strategies and always returns a string that can be handed to a JSON
// parser; it never fails. The truncation pre-check is a best-effort
// heuristic about model output, not a protocol guarantee.
package extract

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Defaults appended when repairing a truncated record that lost its
// trailing fields. They must stay inside the icon vocabulary and the
// insight color palette.
const (
	repairIcon  = "information-circle-outline"
	repairColor = "#3B82F6"
)

// EmptyArray is the terminal fallback result.
const EmptyArray = "[]"

// Strategy is a pure repair step: given raw text, it either produces a
// candidate JSON string or passes.
type Strategy struct {
	Name  string
	Apply func(string) (string, bool)
}

// Strategies is the ordered cascade; first success wins.
var Strategies = []Strategy{
	{"array_scan", extractArray},
	{"truncated_repair", repairTruncatedArray},
	{"object_wrap", wrapBareObject},
	{"fenced_block", extractFencedBlock},
	{"prose_strip", stripProse},
}

// Extract turns arbitrary model text into a candidate JSON string. The
// result is syntactically attemptable; it may still fail to parse
// downstream, which callers handle by falling back.
func Extract(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EmptyArray
	}

	// A reply ending mid-token must not be accepted verbatim: a truncated
	// array can be valid JSON of the wrong shape.
	if !looksTruncated(trimmed) && json.Valid([]byte(trimmed)) {
		slog.Debug("extract: direct parse accepted", "len", len(trimmed))
		return trimmed
	}

	for _, s := range Strategies {
		if out, ok := s.Apply(trimmed); ok {
			slog.Debug("extract: strategy succeeded", "strategy", s.Name, "len", len(out))
			return out
		}
		slog.Debug("extract: strategy passed", "strategy", s.Name)
	}

	slog.Debug("extract: no strategy matched, returning empty array")
	return EmptyArray
}

// looksTruncated flags replies that end with a dangling comma or quote or
// that do not close with a bracket or brace.
func looksTruncated(s string) bool {
	if s == "" {
		return true
	}
	switch s[len(s)-1] {
	case ',', '"':
		return true
	case ']', '}':
		return false
	default:
		return true
	}
}

// extractArray scans for a complete bracket-delimited array containing at
// least one object, tolerating trailing commas inside it.
func extractArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	for start != -1 {
		if end := matchDelimiter(s, start); end != -1 {
			candidate := cleanTrailingCommas(s[start : end+1])
			if strings.Contains(candidate, "{") && json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(s[start+1:], '[')
		if next == -1 {
			break
		}
		start += 1 + next
	}
	return "", false
}

// repairTruncatedArray handles an array opening with at least one object
// start but no closing bracket: it trims the dangling tail, restores a
// default icon/color pair when the last record lost its trailing fields,
// and appends the minimally required closing tokens.
func repairTruncatedArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start == -1 || !strings.Contains(s[start:], "{") {
		return "", false
	}
	candidate := strings.TrimSpace(s[start:])

	// Drop a dangling partial string.
	if quoteOpen(candidate) {
		candidate = candidate[:strings.LastIndexByte(candidate, '"')]
	}
	candidate = strings.TrimRight(candidate, " \t\r\n")
	candidate = strings.TrimRight(candidate, ",:")
	candidate = strings.TrimRight(candidate, " \t\r\n")

	// A key left without a value cannot be closed over; peel it off. A
	// trailing string preceded by ':' is a complete value and stays.
	for strings.HasSuffix(candidate, `"`) {
		body, ok := splitTrailingString(candidate)
		if !ok {
			break
		}
		body = strings.TrimRight(body, " \t\r\n")
		if strings.HasSuffix(body, ":") {
			break
		}
		candidate = strings.TrimRight(strings.TrimRight(body, ","), " \t\r\n")
	}

	opens, closes := delimiterBalance(candidate)
	if opens == 0 && closes == 0 {
		return "", false
	}

	// The icon/color pair sits last in a record; a truncated record that
	// lost them still needs valid values for the UI.
	if closes > 0 {
		last := lastOpenObject(candidate)
		if last != "" && !strings.Contains(last, `"icon"`) {
			candidate += `, "icon": "` + repairIcon + `", "color": "` + repairColor + `"`
		}
	}

	for i := 0; i < closes; i++ {
		candidate += "}"
	}
	for i := 0; i < opens; i++ {
		candidate += "]"
	}

	candidate = cleanTrailingCommas(candidate)
	if json.Valid([]byte(candidate)) {
		return candidate, true
	}
	return "", false
}

// wrapBareObject finds a single complete JSON object and wraps it in a
// one-element array.
func wrapBareObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}
	end := matchDelimiter(s, start)
	if end == -1 {
		return "", false
	}
	obj := cleanTrailingCommas(s[start : end+1])
	if !json.Valid([]byte(obj)) {
		return "", false
	}
	if obj[0] == '{' {
		return "[" + obj + "]", true
	}
	return "", false
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// extractFencedBlock pulls JSON out of a markdown code fence.
func extractFencedBlock(s string) (string, bool) {
	m := fencedBlockRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	inner := cleanTrailingCommas(strings.TrimSpace(m[1]))
	if inner == "" {
		return "", false
	}
	if json.Valid([]byte(inner)) {
		return inner, true
	}
	// The fence interior may itself be truncated or prose-wrapped; give
	// the structural repairs one pass over it.
	if out, ok := extractArray(inner); ok {
		return out, true
	}
	if out, ok := repairTruncatedArray(inner); ok {
		return out, true
	}
	if out, ok := wrapBareObject(inner); ok {
		return out, true
	}
	return "", false
}

// stripProse removes conversational preambles ("Here's...", "Based on...")
// before the first bracket or brace and any prose after the last one. The
// span is returned even if it does not parse; downstream handles that.
func stripProse(s string) (string, bool) {
	first := strings.IndexAny(s, "[{")
	last := strings.LastIndexAny(s, "]}")
	if first == -1 || last <= first {
		return "", false
	}
	span := cleanTrailingCommas(strings.TrimSpace(s[first : last+1]))
	if span == "" {
		return "", false
	}
	return span, true
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

func cleanTrailingCommas(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// matchDelimiter returns the index of the delimiter closing the one at
// start, skipping string literals, or -1 if the text ends first.
func matchDelimiter(s string, start int) int {
	open := s[start]
	var close byte
	switch open {
	case '[':
		close = ']'
	case '{':
		close = '}'
	default:
		return -1
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// delimiterBalance counts unclosed braces and brackets outside strings.
func delimiterBalance(s string) (brackets, braces int) {
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			brackets++
		case ']':
			brackets--
		case '{':
			braces++
		case '}':
			braces--
		}
	}
	return brackets, braces
}

// quoteOpen reports whether the text ends inside a string literal.
func quoteOpen(s string) bool {
	inString := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		}
	}
	return inString
}

// splitTrailingString removes a complete string literal from the end of s
// and returns what precedes it. Requires balanced quotes.
func splitTrailingString(s string) (string, bool) {
	if !strings.HasSuffix(s, `"`) {
		return s, false
	}
	for i := len(s) - 2; i >= 0; i-- {
		if s[i] != '"' {
			continue
		}
		// count preceding backslashes; an odd run escapes the quote
		back := 0
		for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
			back++
		}
		if back%2 == 0 {
			return s[:i], true
		}
	}
	return s, false
}

// lastOpenObject returns the text from the last unclosed '{' onward, or
// "" when every object is closed.
func lastOpenObject(s string) string {
	depth := 0
	last := -1
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
			last = i
		case '}':
			depth--
		}
	}
	if depth <= 0 || last == -1 {
		return ""
	}
	return s[last:]
}
