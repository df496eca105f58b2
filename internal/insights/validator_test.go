package insights

import (
	"errors"
	"testing"

	"gafi/internal/core"
	"gafi/internal/extract"
	"gafi/internal/icons"
)

func TestValidateRecords(t *testing.T) {
	t.Run("parse failure on non-array", func(t *testing.T) {
		for _, candidate := range []string{`{"title":"a"}`, `"text"`, `not json`, ``} {
			_, err := ValidateRecords(candidate, InsightDefaults())
			if !errors.Is(err, ErrParseFailure) {
				t.Errorf("ValidateRecords(%q) err = %v, want ErrParseFailure", candidate, err)
			}
		}
	})

	t.Run("empty array is valid", func(t *testing.T) {
		records, err := ValidateRecords("[]", InsightDefaults())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
	})

	t.Run("drops unusable elements", func(t *testing.T) {
		candidate := `[
			{"title":"Keep","message":"ok"},
			{"title":"","message":"no title"},
			{"title":"no message","message":"  "},
			42,
			{"title":"Also keep","message":"fine"}
		]`
		records, err := ValidateRecords(candidate, InsightDefaults())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Title != "Keep" || records[1].Title != "Also keep" {
			t.Errorf("kept wrong records: %+v", records)
		}
	})

	t.Run("normalizes type icon and color", func(t *testing.T) {
		candidate := `[{"title":"T","message":"M","type":"ALARM","icon":"ios-warning","color":"red"}]`
		records, err := ValidateRecords(candidate, InsightDefaults())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		r := records[0]
		if r.Type != core.RecordInfo {
			t.Errorf("unknown type should default to info, got %q", r.Type)
		}
		if r.Icon != "warning-outline" {
			t.Errorf("legacy icon should map to warning-outline, got %q", r.Icon)
		}
		if r.Color != colorInfo {
			t.Errorf("invalid color should default, got %q", r.Color)
		}
	})

	t.Run("valid fields pass through", func(t *testing.T) {
		candidate := `[{"title":" T ","message":"M","type":"warning","icon":"cart-outline","color":"#ABCDEF"}]`
		records, err := ValidateRecords(candidate, RecommendationDefaults())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		r := records[0]
		if r.Title != "T" {
			t.Errorf("title should be trimmed, got %q", r.Title)
		}
		if r.Type != core.RecordWarning || r.Icon != "cart-outline" || r.Color != "#ABCDEF" {
			t.Errorf("valid fields mangled: %+v", r)
		}
	})

	t.Run("ids are unique within a batch", func(t *testing.T) {
		candidate := `[{"title":"a","message":"m"},{"title":"b","message":"m"}]`
		records, err := ValidateRecords(candidate, InsightDefaults())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if records[0].ID == records[1].ID {
			t.Errorf("ids collide: %q", records[0].ID)
		}
	})
}

// Any extractor output either validates into well-formed records or
// fails with ErrParseFailure; nothing half-valid leaks through.
func TestExtractThenValidate(t *testing.T) {
	replies := []string{
		`[{"title":"A","message":"B","icon":"cash-outline"}]`,
		"Sure! Here's the data: [{\"title\":\"A\",\"message\":\"B\"},] more text",
		"```json\n[{\"title\":\"Fenced\",\"message\":\"ok\"}]\n```",
		`[{"title":"Cut","message":"off","icon":"wal`,
		`{"title":"Bare","message":"object"}`,
		"no structure at all",
		"",
	}
	for _, reply := range replies {
		candidate := extract.Extract(reply)
		records, err := ValidateRecords(candidate, InsightDefaults())
		if err != nil {
			if !errors.Is(err, ErrParseFailure) {
				t.Errorf("Extract(%q): unexpected error kind %v", reply, err)
			}
			continue
		}
		for _, r := range records {
			if vErr := r.Validate(); vErr != nil {
				t.Errorf("Extract(%q) produced invalid record %+v: %v", reply, r, vErr)
			}
			if !icons.IsValid(r.Icon) {
				t.Errorf("Extract(%q) produced out-of-vocabulary icon %q", reply, r.Icon)
			}
		}
	}
}
