package icons

import "testing"

func TestNormalizeLegacyAliases(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"ios-warning", "warning-outline"},
		{"md-cash", "cash-outline"},
		{"warning", "warning-outline"},
		{"info", "information-circle-outline"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.out {
			t.Fatalf("Normalize(%q) = %q, expected %q", tc.in, got, tc.out)
		}
	}
}

func TestNormalizeValidUnchanged(t *testing.T) {
	for _, name := range Vocabulary() {
		if got := Normalize(name); got != name {
			t.Fatalf("Normalize(%q) = %q, expected unchanged", name, got)
		}
	}
}

func TestNormalizeFuzzy(t *testing.T) {
	// substring of a vocabulary entry
	if got := Normalize("restaurant"); got != "restaurant-outline" {
		t.Fatalf("Normalize(restaurant) = %q", got)
	}
	// vocabulary base contained in the input
	if got := Normalize("wallet-icon-v2"); got != "wallet-outline" {
		t.Fatalf("Normalize(wallet-icon-v2) = %q", got)
	}
}

func TestNormalizeTotal(t *testing.T) {
	inputs := []string{"", "   ", "💥", "no-such-icon-zzz", "DROP TABLE icons"}
	for _, in := range inputs {
		got := Normalize(in)
		if !IsValid(got) {
			t.Fatalf("Normalize(%q) = %q, not in vocabulary", in, got)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"ios-warning", "food stuff", "", "analytics-outline"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}
