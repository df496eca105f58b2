package insights

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"gafi/internal/core"
	"gafi/internal/icons"
)

// ErrParseFailure signals that a candidate string could not be turned
// into a usable record array. It is always recovered locally through the
// fallback generator and never reaches the UI.
var ErrParseFailure = errors.New("insights: candidate is not a usable record array")

// Color palette defaults, one per record type plus per-mode defaults.
const (
	colorInfo    = "#3B82F6"
	colorWarning = "#F59E0B"
	colorError   = "#EF4444"
	colorSuccess = "#22C55E"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateOptions steer per-mode defaults.
type ValidateOptions struct {
	DefaultType  core.RecordType
	DefaultColor string
}

// InsightDefaults are used when validating insight replies.
func InsightDefaults() ValidateOptions {
	return ValidateOptions{DefaultType: core.RecordInfo, DefaultColor: colorInfo}
}

// RecommendationDefaults are used when validating recommendation replies.
func RecommendationDefaults() ValidateOptions {
	return ValidateOptions{DefaultType: core.RecordSuccess, DefaultColor: colorSuccess}
}

// rawRecord mirrors the duck-typed shape the model emits. Fields beyond
// these are ignored; the model gets no say over IDs or actions.
type rawRecord struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Icon    string `json:"icon"`
	Color   string `json:"color"`
}

// ValidateRecords parses the extractor's candidate string and filters it
// into canonical records. Elements that are not objects or lack a title
// or message are dropped, never partially emitted. An empty result with a
// nil error is valid.
func ValidateRecords(candidate string, opts ValidateOptions) ([]core.InsightRecord, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	batch := time.Now().UnixNano()
	records := make([]core.InsightRecord, 0, len(elements))
	for i, elem := range elements {
		var raw rawRecord
		if err := json.Unmarshal(elem, &raw); err != nil {
			slog.Debug("validator: dropping non-object element", "index", i)
			continue
		}
		if strings.TrimSpace(raw.Title) == "" || strings.TrimSpace(raw.Message) == "" {
			slog.Debug("validator: dropping incomplete record", "index", i)
			continue
		}
		records = append(records, core.InsightRecord{
			ID:      fmt.Sprintf("%d-%d", batch, i),
			Type:    normalizeType(raw.Type, opts.DefaultType),
			Title:   strings.TrimSpace(raw.Title),
			Message: strings.TrimSpace(raw.Message),
			Icon:    icons.Normalize(raw.Icon),
			Color:   normalizeColor(raw.Color, opts.DefaultColor),
		})
	}
	return records, nil
}

func normalizeType(t string, fallback core.RecordType) core.RecordType {
	switch core.RecordType(strings.ToLower(strings.TrimSpace(t))) {
	case core.RecordInfo:
		return core.RecordInfo
	case core.RecordWarning:
		return core.RecordWarning
	case core.RecordError:
		return core.RecordError
	case core.RecordSuccess:
		return core.RecordSuccess
	default:
		return fallback
	}
}

func normalizeColor(c, fallback string) string {
	c = strings.TrimSpace(c)
	if hexColorRe.MatchString(c) {
		return c
	}
	return fallback
}

func typeColor(t core.RecordType) string {
	switch t {
	case core.RecordWarning:
		return colorWarning
	case core.RecordError:
		return colorError
	case core.RecordSuccess:
		return colorSuccess
	default:
		return colorInfo
	}
}
