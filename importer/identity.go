package importer

import (
	"strings"
)

// stateAbbrevs maps full US state names (folded) to postal codes.
var stateAbbrevs = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT",
	"delaware": "DE", "florida": "FL", "georgia": "GA", "hawaii": "HI",
	"idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME",
	"maryland": "MD", "massachusetts": "MA", "michigan": "MI",
	"minnesota": "MN", "mississippi": "MS", "missouri": "MO",
	"montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM",
	"new york": "NY", "north carolina": "NC", "north dakota": "ND",
	"ohio": "OH", "oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA",
	"rhode island": "RI", "south carolina": "SC", "south dakota": "SD",
	"tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT",
	"virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY",
	"district of columbia": "DC",
}

// NormalizeState maps a state cell to its 2-letter code. Already-abbreviated
// values pass through uppercased; unrecognized values pass through as-is.
func NormalizeState(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return ""
	}
	if len(cleaned) == 2 {
		return strings.ToUpper(cleaned)
	}
	if abbrev, ok := stateAbbrevs[NormalizeText(cleaned)]; ok {
		return abbrev
	}
	return cleaned
}

// Zip5 trims a zip cell to the 5-digit base.
func Zip5(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if idx := strings.Index(cleaned, "-"); idx > 0 {
		cleaned = cleaned[:idx]
	}
	if len(cleaned) > 5 {
		cleaned = cleaned[:5]
	}
	return cleaned
}

// idSanitizer replaces path separators, which the persistence layer treats
// as key delimiters, in raw ERP identifiers.
var idSanitizer = strings.NewReplacer("/", "_", "\\", "_")

// SanitizeID makes a raw ERP identifier safe to use as a document key.
// A blank or separator-only identifier sanitizes to "".
func SanitizeID(raw string) string {
	return strings.TrimSpace(idSanitizer.Replace(strings.TrimSpace(raw)))
}

// CustomerID is the canonical customer id: the sanitized external-ERP
// customer identifier. Display names are never part of the key.
func CustomerID(erpCustomerID string) string {
	return SanitizeID(erpCustomerID)
}

// OrderID is the canonical sales-order id: the sanitized ERP-assigned order
// id. The customer-facing SO number is not usable here since Fishbowl
// recycles SO numbers across customers.
func OrderID(erpOrderID string) string {
	return SanitizeID(erpOrderID)
}

// LineItemID is the canonical line-item id: the sanitized ERP line
// identifier.
func LineItemID(erpLineID string) string {
	return SanitizeID(erpLineID)
}

// CompositeCustomerKey builds the name+address key used to match records
// that carry no shared identifier. Records with no data at all get an empty
// key; empty keys never match anything.
func CompositeCustomerKey(name, street, city, state, zip string) string {
	parts := []string{
		NormalizeText(name),
		NormalizeText(street),
		NormalizeText(city),
		NormalizeText(NormalizeState(state)),
		Zip5(zip),
	}
	blank := true
	for _, part := range parts {
		if part != "" {
			blank = false
			break
		}
	}
	if blank {
		return ""
	}
	return strings.Join(parts, "|")
}
