package importer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount_TolerantFormats(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"1234.5", "1234.5"},
		{"$1,234.50 ", "1234.5"},
		{"(250.00)", "-250"},
		{"12%", "12"},
		{"", "0"},
		{"   ", "0"},
		{"-", "0"},
	}
	for _, tc := range cases {
		d, ok := ParseAmount(tc.in)
		if !ok {
			t.Fatalf("ParseAmount(%q) unexpectedly failed", tc.in)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseAmount(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseAmount_RejectsGarbage(t *testing.T) {
	if _, ok := ParseAmount("N/A"); ok {
		t.Fatal("ParseAmount(N/A) should fail")
	}
	if _, ok := ParseAmount("twelve"); ok {
		t.Fatal("ParseAmount(twelve) should fail")
	}
}

func TestParseDate_Layouts(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"3/7/2024", "2024-03-07"},
		{"03/07/2024", "2024-03-07"},
		{"2024-03-07", "2024-03-07"},
		{"03-07-2024", "2024-03-07"},
		{"3-7-2024", "2024-03-07"},
		{"01-15-2024", "2024-01-15"},
		{"3/7/24", "2024-03-07"},
		{"2024-03-07 14:30:00", "2024-03-07"},
	}
	for _, tc := range cases {
		parsed, ok := ParseDate(tc.in)
		if !ok {
			t.Fatalf("ParseDate(%q) unexpectedly failed", tc.in)
		}
		if got := parsed.Format("2006-01-02"); got != tc.expected {
			t.Fatalf("ParseDate(%q) expected %s, got %s", tc.in, tc.expected, got)
		}
	}
}

func TestParseDate_SpreadsheetSerial(t *testing.T) {
	// Serial 45000 is 2023-03-15 from the 1899-12-30 epoch.
	parsed, ok := ParseDate("45000")
	if !ok {
		t.Fatal("serial date should parse")
	}
	expected := time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)
	if !parsed.Equal(expected) {
		t.Fatalf("serial 45000 expected %v, got %v", expected, parsed)
	}

	// Fractional serials carry a time of day.
	parsed, ok = ParseDate("45000.5")
	if !ok {
		t.Fatal("fractional serial should parse")
	}
	if parsed.Hour() != 12 {
		t.Fatalf("serial 45000.5 expected noon, got hour %d", parsed.Hour())
	}
}

func TestParseDate_BlankAndGarbage(t *testing.T) {
	if parsed, ok := ParseDate(""); !ok || !parsed.IsZero() {
		t.Fatal("blank date should be ok with zero time")
	}
	if _, ok := ParseDate("sometime in march"); ok {
		t.Fatal("garbage date should fail")
	}
	// Out-of-range serials are not dates.
	if _, ok := ParseDate("2500000"); ok {
		t.Fatal("oversized serial should fail")
	}
}

func TestParseBool(t *testing.T) {
	for _, truthy := range []string{"true", "Yes", "Y", "1", "T", "x", " TRUE "} {
		if !ParseBool(truthy) {
			t.Fatalf("ParseBool(%q) expected true", truthy)
		}
	}
	for _, falsy := range []string{"", "no", "0", "false", "n"} {
		if ParseBool(falsy) {
			t.Fatalf("ParseBool(%q) expected false", falsy)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"  Acme   Corp.  ", "acme corp"},
		{"ACME-CORP", "acmecorp"},
		{"Acme & Sons, LLC", "acme sons llc"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeText(tc.in); got != tc.expected {
			t.Fatalf("NormalizeText(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestAmountsEqual_Tolerance(t *testing.T) {
	a := decimal.NewFromFloat(100.00)
	if !AmountsEqual(a, decimal.NewFromFloat(100.01)) {
		t.Fatal("difference of exactly 0.01 should compare equal")
	}
	if AmountsEqual(a, decimal.NewFromFloat(100.02)) {
		t.Fatal("difference of 0.02 should compare unequal")
	}
}
