package commission

import (
	"strings"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"github.com/shopspring/decimal"
)

// ClassifyOrderNumber derives the sales channel from the shape of the order
// number alone. Evaluation order matters: the "sh" prefix wins over length
// rules, and the "#" rule only fires on long numbers.
func ClassifyOrderNumber(soNumber string) string {
	cleaned := strings.ToLower(strings.TrimSpace(soNumber))
	if cleaned == "" {
		return models.ChannelUnknown
	}
	if strings.HasPrefix(cleaned, "sh") {
		return models.ChannelRetail
	}
	if strings.HasPrefix(cleaned, "#") && len(cleaned) >= 10 {
		return models.ChannelThirdParty
	}
	if isDigits(cleaned) && len(cleaned) >= 4 && len(cleaned) <= 6 {
		return models.ChannelErpDirect
	}
	if len(stripNonAlnum(cleaned)) >= 10 {
		return models.ChannelThirdParty
	}
	return models.ChannelUnknown
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsExcludedLine reports whether a line item is a non-commissionable charge.
// The importer applies the same predicate to keep these lines out of order
// revenue rollups.
func IsExcludedLine(productNumber, description string) bool {
	return models.IsExcludedLineItem(productNumber, description)
}

// SplitRevenue totals an order's lines into commissionable and excluded
// revenue.
func SplitRevenue(lines []*models.OrderLineItem) (commissionable, excluded decimal.Decimal) {
	for _, line := range lines {
		total := line.LineTotal()
		if line.IsExcluded() {
			excluded = excluded.Add(total)
		} else {
			commissionable = commissionable.Add(total)
		}
	}
	return commissionable, excluded
}
