package extract

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractDirectParse(t *testing.T) {
	in := `[{"title":"A","message":"B"}]`
	if got := Extract(in); got != in {
		t.Fatalf("Extract(valid) = %q, expected unchanged", got)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		if got := Extract(in); got != EmptyArray {
			t.Fatalf("Extract(%q) = %q, expected %q", in, got, EmptyArray)
		}
	}
}

func TestExtractProseWrappedArray(t *testing.T) {
	in := `Sure! Here's the data: [{"title":"A","message":"B"},] more text`
	got := Extract(in)

	var records []map[string]any
	if err := json.Unmarshal([]byte(got), &records); err != nil {
		t.Fatalf("result %q does not parse: %v", got, err)
	}
	if len(records) == 0 {
		t.Fatal("expected at least one recovered record")
	}
	if records[0]["title"] != "A" || records[0]["message"] != "B" {
		t.Fatalf("recovered record mismatch: %v", records[0])
	}
}

func TestExtractTruncatedArray(t *testing.T) {
	cases := []string{
		`[{"title":"A","message":"B","icon":"wal`,
		`[{"title":"A","message":"B",`,
		`[{"title":"A","message":"B"`,
		`[{"title":"A","message":"B","amount":12`,
	}
	for _, in := range cases {
		got := Extract(in)
		var records []map[string]any
		if err := json.Unmarshal([]byte(got), &records); err != nil {
			t.Fatalf("%q: result %q does not parse: %v", in, got, err)
		}
		if len(records) != 1 {
			t.Fatalf("%q: expected one repaired record, got %d", in, len(records))
		}
		if records[0]["title"] != "A" {
			t.Fatalf("%q: lost title in repair: %v", in, records[0])
		}
	}
}

func TestExtractTruncatedRepairAddsIconDefaults(t *testing.T) {
	got := Extract(`[{"title":"A","message":"B"`)
	var records []map[string]any
	if err := json.Unmarshal([]byte(got), &records); err != nil {
		t.Fatalf("repair result does not parse: %v", err)
	}
	if records[0]["icon"] != repairIcon {
		t.Fatalf("expected default icon %q, got %v", repairIcon, records[0]["icon"])
	}
	if records[0]["color"] != repairColor {
		t.Fatalf("expected default color %q, got %v", repairColor, records[0]["color"])
	}
}

func TestExtractBareObjectWrapped(t *testing.T) {
	got := Extract(`The result is {"title":"A","message":"B"} as requested.`)
	if !strings.HasPrefix(got, "[") || !strings.HasSuffix(got, "]") {
		t.Fatalf("expected wrapped array, got %q", got)
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(got), &records); err != nil || len(records) != 1 {
		t.Fatalf("wrap failed: %q (%v)", got, err)
	}
}

func TestExtractFencedBlock(t *testing.T) {
	in := "Here you go:\n```json\n[{\"title\":\"A\",\"message\":\"B\"}]\n```\nHope that helps!"
	got := Extract(in)
	var records []map[string]any
	if err := json.Unmarshal([]byte(got), &records); err != nil || len(records) != 1 {
		t.Fatalf("fenced extraction failed: %q (%v)", got, err)
	}
}

func TestExtractFencedTruncatedInterior(t *testing.T) {
	in := "Here you go:\n```json\n[{\"title\":\"A\",\"message\":\"B\"\n```"
	got := Extract(in)
	var records []map[string]any
	if err := json.Unmarshal([]byte(got), &records); err != nil {
		t.Fatalf("fenced truncated interior not repaired: %q (%v)", got, err)
	}
	if len(records) != 1 || records[0]["title"] != "A" {
		t.Fatalf("expected one repaired record, got %q", got)
	}
}

func TestExtractTrailingCommaAccepted(t *testing.T) {
	got := Extract(`[{"title":"A","message":"B"},]`)
	if !json.Valid([]byte(got)) {
		t.Fatalf("trailing comma not cleaned: %q", got)
	}
}

func TestExtractNeverPanicsAndAlwaysReturns(t *testing.T) {
	inputs := []string{
		"hello world",
		"[[[[",
		"}}}}",
		`{"a":`,
		"```",
		"```json\n\n```",
		`[1, 2, 3]`,
		strings.Repeat(`[{"x":"`, 50),
		"\x00\xff binary junk",
		`"just a string"`,
	}
	for _, in := range inputs {
		got := Extract(in)
		if got == "" {
			t.Fatalf("Extract(%q) returned empty string", in)
		}
	}
}

func TestLooksTruncated(t *testing.T) {
	cases := []struct {
		in  string
		out bool
	}{
		{`[{"a":1}]`, false},
		{`{"a":1}`, false},
		{`[{"a":1},`, true},
		{`[{"a":"b"`, true},
		{`[{"a":1}] trailing`, true},
	}
	for _, tc := range cases {
		if got := looksTruncated(tc.in); got != tc.out {
			t.Fatalf("looksTruncated(%q) = %v, expected %v", tc.in, got, tc.out)
		}
	}
}
