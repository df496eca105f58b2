package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  any
		out float64
	}{
		{120.5, 120.5},
		{"120.50", 120.5},
		{"₱1,250", 1250},
		{"PHP 300 pesos", 300},
		{" 42 ", 42},
		{"", 0},
		{"abc", 0},
		{-5.0, 0},
		{nil, 0},
		{true, 0},
	}
	for _, tc := range cases {
		if got := ParseAmount(tc.in); got != tc.out {
			t.Fatalf("ParseAmount(%v) = %v, expected %v", tc.in, got, tc.out)
		}
	}
}

func TestAmountUnmarshalJSON(t *testing.T) {
	cases := []struct {
		in  string
		out float64
	}{
		{`{"amount": 99.5}`, 99.5},
		{`{"amount": "99.5"}`, 99.5},
		{`{"amount": "₱3,000"}`, 3000},
		{`{"amount": null}`, 0},
		{`{"amount": "garbage"}`, 0},
		{`{"amount": {"nested": 1}}`, 0},
		{`{}`, 0},
	}
	for _, tc := range cases {
		var e Expense
		if err := json.Unmarshal([]byte(tc.in), &e); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.in, err)
		}
		if float64(e.Amount) != tc.out {
			t.Fatalf("%s: amount = %v, expected %v", tc.in, e.Amount, tc.out)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in  float64
		out string
	}{
		{3000, "3,000"},
		{200, "200"},
		{1250.5, "1,250.50"},
		{0, "0"},
		{1234567, "1,234,567"},
		{999.999, "1,000"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.in); got != tc.out {
			t.Fatalf("FormatAmount(%v) = %q, expected %q", tc.in, got, tc.out)
		}
	}
}

func TestFormatPeso(t *testing.T) {
	if got := FormatPeso(3000); got != "₱3,000" {
		t.Fatalf("FormatPeso(3000) = %q", got)
	}
}
