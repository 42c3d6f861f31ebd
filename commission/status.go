package commission

import (
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
)

// Customer-age thresholds for the commission tiers.
const (
	newCustomerMonths = 6
	sixMonthTierMonths = 12
	dormancyMonths     = 24
)

// StatusFor derives the customer's commission status for a period.
//
// Manual overrides win: a transferred customer stays transferred, and a
// customer whose original owner is the rep being paid reports as own.
// Otherwise the tier follows the customer's age at the period start, with a
// dormancy rule: a gap of more than 24 months since the previous order
// resets the relationship to new.
func StatusFor(customer *models.Customer, rep string, periodStart time.Time, lastOrderBeforePeriod *time.Time) string {
	if customer.TransferStatus == models.CommissionStatusTransferred {
		return models.CommissionStatusTransferred
	}
	if customer.OriginalOwner != "" && customer.OriginalOwner == rep {
		return models.CommissionStatusOwn
	}

	if lastOrderBeforePeriod != nil &&
		monthsBetween(*lastOrderBeforePeriod, periodStart) > dormancyMonths {
		return models.CommissionStatusNew
	}

	if customer.FirstOrderDate == nil {
		return models.CommissionStatusNew
	}
	age := monthsBetween(*customer.FirstOrderDate, periodStart)
	switch {
	case age < newCustomerMonths:
		return models.CommissionStatusNew
	case age < sixMonthTierMonths:
		return models.CommissionStatusSixMonth
	default:
		return models.CommissionStatusTwelveMonth
	}
}

// monthsBetween counts whole calendar months from a to b.
func monthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return 0
	}
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// PeriodBounds converts "YYYY-MM" to [start, end).
func PeriodBounds(period string) (time.Time, time.Time, bool) {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), true
}

// PreviousPeriod returns the period string one month earlier.
func PreviousPeriod(period string) string {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return ""
	}
	return t.AddDate(0, -1, 0).Format("2006-01")
}
