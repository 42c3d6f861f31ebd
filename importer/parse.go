package importer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Spreadsheet serial dates count days from 1899-12-30 (the Lotus epoch,
// including its phantom leap day).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"2006-01-02",
	"01-02-2006",
	"1-2-2006",
	"1/2/06",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseAmount parses a currency/number cell tolerantly: "$1,234.50 " and
// "12%" both parse; blank cells are zero. The ok result is false only when
// a non-blank cell fails to parse.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return decimal.Zero, true
	}
	replacer := strings.NewReplacer("$", "", ",", "", "%", "", " ", "")
	cleaned = replacer.Replace(cleaned)
	// Accounting exports wrap negatives in parens.
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + cleaned[1:len(cleaned)-1]
	}
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseDate parses a date cell: the known layouts first, then a spreadsheet
// serial number. Unparseable non-blank cells return ok=false with a zero
// time; the caller counts that as a warning rather than failing the row.
func ParseDate(raw string) (time.Time, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return time.Time{}, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}
	// Spreadsheet serial number, possibly fractional (time of day).
	if serial, ok := ParseAmount(cleaned); ok && serial.IsPositive() {
		days := serial.IntPart()
		if days > 0 && days < 200000 {
			frac := serial.Sub(decimal.NewFromInt(days))
			seconds := frac.Mul(decimal.NewFromInt(86400)).IntPart()
			return serialEpoch.AddDate(0, 0, int(days)).Add(time.Duration(seconds) * time.Second), true
		}
	}
	return time.Time{}, false
}

// ParseBool reads the various truthy spellings ERP exports use.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1", "t", "x":
		return true
	}
	return false
}

// NormalizeText lowercases, trims and collapses inner whitespace, stripping
// punctuation. Used for string comparisons and canonical keys.
func NormalizeText(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t':
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// amountTolerance is the cent-level slack for treating two stored numbers as
// equal: spreadsheet exports round differently than the DB.
var amountTolerance = decimal.NewFromFloat(0.01)

// AmountsEqual compares within the 0.01 tolerance.
func AmountsEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(amountTolerance)
}

// TextEqual compares after normalization.
func TextEqual(a, b string) bool {
	return NormalizeText(a) == NormalizeText(b)
}
