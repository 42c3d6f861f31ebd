package commission

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
)

func dateP(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestStatusFor_AgeTiers(t *testing.T) {
	periodStart := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		firstOrder *time.Time
		expected   string
	}{
		{dateP(2024, 2, 15), models.CommissionStatusNew},        // ~3.5 months
		{dateP(2023, 9, 1), models.CommissionStatusSixMonth},    // 9 months
		{dateP(2023, 5, 1), models.CommissionStatusTwelveMonth}, // 13 months
		{nil, models.CommissionStatusNew},
	}
	for _, tc := range cases {
		customer := &models.Customer{ID: "10042", FirstOrderDate: tc.firstOrder}
		got := StatusFor(customer, "pat", periodStart, nil)
		if got != tc.expected {
			t.Fatalf("firstOrder %v expected %s, got %s", tc.firstOrder, tc.expected, got)
		}
	}
}

func TestStatusFor_BoundaryMonths(t *testing.T) {
	periodStart := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	// Exactly 6 months old leaves the new tier.
	customer := &models.Customer{ID: "10042", FirstOrderDate: dateP(2023, 12, 1)}
	if got := StatusFor(customer, "pat", periodStart, nil); got != models.CommissionStatusSixMonth {
		t.Fatalf("6-month-old customer expected 6month, got %s", got)
	}
	// Exactly 12 months old leaves the 6month tier.
	customer.FirstOrderDate = dateP(2023, 6, 1)
	if got := StatusFor(customer, "pat", periodStart, nil); got != models.CommissionStatusTwelveMonth {
		t.Fatalf("12-month-old customer expected 12month, got %s", got)
	}
}

func TestStatusFor_DormancyResetsToNew(t *testing.T) {
	periodStart := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	customer := &models.Customer{ID: "10042", FirstOrderDate: dateP(2019, 1, 1)}

	// Last order four years ago: the relationship restarts.
	if got := StatusFor(customer, "pat", periodStart, dateP(2020, 3, 1)); got != models.CommissionStatusNew {
		t.Fatalf("dormant customer expected new, got %s", got)
	}
	// Last order within 24 months: age tier applies.
	if got := StatusFor(customer, "pat", periodStart, dateP(2024, 1, 1)); got != models.CommissionStatusTwelveMonth {
		t.Fatalf("active long-term customer expected 12month, got %s", got)
	}
}

func TestStatusFor_ManualOverridesWin(t *testing.T) {
	periodStart := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	transferred := &models.Customer{ID: "10042", TransferStatus: models.CommissionStatusTransferred, FirstOrderDate: dateP(2024, 5, 1)}
	if got := StatusFor(transferred, "pat", periodStart, nil); got != models.CommissionStatusTransferred {
		t.Fatalf("transferred override expected to win, got %s", got)
	}

	owned := &models.Customer{ID: "10042", OriginalOwner: "pat", FirstOrderDate: dateP(2024, 5, 1)}
	if got := StatusFor(owned, "pat", periodStart, nil); got != models.CommissionStatusOwn {
		t.Fatalf("original owner expected own, got %s", got)
	}
	if got := StatusFor(owned, "sam", periodStart, nil); got == models.CommissionStatusOwn {
		t.Fatal("a different rep must not inherit own status")
	}
}

func TestPeriodBounds(t *testing.T) {
	start, end, ok := PeriodBounds("2024-06")
	if !ok {
		t.Fatal("2024-06 should parse")
	}
	if start.Format("2006-01-02") != "2024-06-01" || end.Format("2006-01-02") != "2024-07-01" {
		t.Fatalf("unexpected bounds %v..%v", start, end)
	}
	if _, _, ok := PeriodBounds("June 2024"); ok {
		t.Fatal("non YYYY-MM period should not parse")
	}
}

func TestPreviousPeriod(t *testing.T) {
	if got := PreviousPeriod("2024-01"); got != "2023-12" {
		t.Fatalf("expected 2023-12, got %s", got)
	}
	if got := PreviousPeriod("bad"); got != "" {
		t.Fatalf("expected empty for invalid period, got %s", got)
	}
}
