package commission

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"github.com/shopspring/decimal"
)

func periodFixture() PeriodInput {
	issued := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	maxBonus := decimal.NewFromInt(1000)
	return PeriodInput{
		Period: "2024-06",
		Orders: []*models.SalesOrder{
			{ID: "41876", SONumber: "1001", CustomerID: "10042", Salesman: "pat", DateIssued: issued},
			{ID: "41877", SONumber: "1002", CustomerID: "10077", Salesman: "pat", DateIssued: issued},
			{ID: "41878", SONumber: "SH200", CustomerID: "10077", Salesman: "pat", DateIssued: issued},
			{ID: "41879", SONumber: "1003", CustomerID: "10042", Salesman: "", DateIssued: issued},
			{ID: "41880", SONumber: "1004", CustomerID: "10099", Salesman: "sam", DateIssued: issued},
		},
		LinesByOrder: map[string][]*models.OrderLineItem{
			"41876": {
				{ID: "li-1", OrderID: "41876", ProductNumber: "WIDGET-1", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100)},
				{ID: "li-2", OrderID: "41876", ProductNumber: "SHIPPING", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(25)},
			},
			"41877": {
				{ID: "li-3", OrderID: "41877", ProductNumber: "WIDGET-1", Quantity: decimal.NewFromInt(8), UnitPrice: decimal.NewFromInt(100)},
			},
			"41878": {
				{ID: "li-4", OrderID: "41878", ProductNumber: "WIDGET-2", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
			},
			"41880": {
				{ID: "li-5", OrderID: "41880", ProductNumber: "WIDGET-1", Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(250)},
			},
		},
		Customers: map[string]*models.Customer{
			"10042": {ID: "10042", Name: "Acme Corp", FirstOrderDate: dateP(2024, 6, 5)},   // first order inside the period
			"10077": {ID: "10077", Name: "Globex LLC", FirstOrderDate: dateP(2020, 1, 1)}, // long-standing account
			"10099": {ID: "10099", Name: "Initech", AccountType: models.AccountTypeDistributor, FirstOrderDate: dateP(2024, 6, 5)},
		},
		Reps: map[string]*models.SalesRep{
			"pat": {
				Name:            "pat",
				NewBusinessGoal: decimal.NewFromInt(1000),
				ProductMixGoal:  decimal.NewFromInt(1000),
				RetentionGoal:   decimal.NewFromInt(1000),
				MaxBonus:        maxBonus,
			},
			"sam": {
				Name:            "sam",
				NewBusinessGoal: decimal.NewFromInt(2000),
				RetentionGoal:   decimal.NewFromInt(1000),
				MaxBonus:        maxBonus,
			},
		},
		Spiffs:          map[string][]*models.Spiff{},
		LastOrderBefore: map[string]*time.Time{},
	}
}

func TestComputePeriod_EntriesAndSummaries(t *testing.T) {
	out, err := ComputePeriod(periodFixture())
	if err != nil {
		t.Fatalf("ComputePeriod error: %v", err)
	}

	if out.SkippedNoRep != 1 {
		t.Fatalf("expected 1 skipped order without a rep, got %d", out.SkippedNoRep)
	}
	if len(out.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(out.Entries))
	}

	byOrder := make(map[string]*models.CommissionEntry)
	for _, e := range out.Entries {
		byOrder[e.OrderID] = e
	}

	acme := byOrder["41876"]
	if acme.Channel != models.ChannelErpDirect || acme.Status != models.CommissionStatusNew {
		t.Fatalf("41876 classification wrong: %s/%s", acme.Channel, acme.Status)
	}
	if !acme.Revenue.Equal(decimal.NewFromInt(1000)) || !acme.ExcludedRevenue.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("41876 revenue split wrong: %s / %s", acme.Revenue, acme.ExcludedRevenue)
	}

	if len(out.Summaries) != 2 {
		t.Fatalf("expected summaries for 2 reps, got %d", len(out.Summaries))
	}
	pat := out.Summaries[0]
	if pat.RepName != "pat" || pat.OrderCount != 3 {
		t.Fatalf("expected pat with 3 orders first, got %s with %d", pat.RepName, pat.OrderCount)
	}

	// Pat's actuals: new-business 1000/1000, retention 800/1000, product mix
	// 1800/1000 capped at 1.25. Overall = .4*1 + .2*1.25 + .4*.8 = 0.97 and
	// the payout = 400 + 250 + 320 = 970.
	if !pat.Attainment.Equal(decimal.NewFromFloat(0.97)) {
		t.Fatalf("pat expected attainment 0.97, got %s", pat.Attainment)
	}
	if !pat.TotalCommission.Equal(decimal.NewFromInt(970)) {
		t.Fatalf("pat expected total commission 970, got %s", pat.TotalCommission)
	}

	buckets := models.DecodeBucketResults(pat.BucketsJSON)
	if len(buckets) != 3 {
		t.Fatalf("expected 3 bucket results, got %d", len(buckets))
	}
	weightSum := decimal.Zero
	for _, b := range buckets {
		weightSum = weightSum.Add(b.Weight)
	}
	if !weightSum.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("bucket weights must partition 100%%, got %s", weightSum)
	}
	if buckets[1].Bucket != BucketProductMix || !buckets[1].Attainment.Equal(decimal.NewFromFloat(1.25)) {
		t.Fatalf("product mix should cap at 1.25, got %s on %s", buckets[1].Attainment, buckets[1].Bucket)
	}

	// Sam's only bucket with revenue attains 0.5, below the 0.75 floor.
	sam := out.Summaries[1]
	if !sam.Attainment.IsZero() || !sam.TotalCommission.IsZero() {
		t.Fatalf("sam below floor should pay zero, got %s at %s", sam.TotalCommission, sam.Attainment)
	}
}

func TestComputePeriod_EntryAllocationSumsToSummary(t *testing.T) {
	out, err := ComputePeriod(periodFixture())
	if err != nil {
		t.Fatalf("ComputePeriod error: %v", err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, e := range out.Entries {
		totals[e.RepName] = totals[e.RepName].Add(e.Amount)
		if e.RepName == "pat" && !e.Attainment.Equal(decimal.NewFromFloat(0.97)) {
			t.Fatalf("entry %s should carry pat's overall attainment, got %s", e.OrderID, e.Attainment)
		}
	}
	for _, s := range out.Summaries {
		if !totals[s.RepName].Equal(s.TotalCommission) {
			t.Fatalf("%s entries sum to %s, summary says %s", s.RepName, totals[s.RepName], s.TotalCommission)
		}
	}

	// Pro rata by revenue: pat's 970 over 2000 of revenue.
	byOrder := make(map[string]*models.CommissionEntry)
	for _, e := range out.Entries {
		byOrder[e.OrderID] = e
	}
	if !byOrder["41876"].Amount.Equal(decimal.NewFromInt(485)) {
		t.Fatalf("41876 expected 485, got %s", byOrder["41876"].Amount)
	}
	if !byOrder["41877"].Amount.Equal(decimal.NewFromInt(388)) {
		t.Fatalf("41877 expected 388, got %s", byOrder["41877"].Amount)
	}
	if !byOrder["41878"].Amount.Equal(decimal.NewFromInt(97)) {
		t.Fatalf("41878 expected the 97 remainder, got %s", byOrder["41878"].Amount)
	}
}

func TestComputePeriod_RetailExcludedFromGoals(t *testing.T) {
	in := periodFixture()
	// Flip globex to a retail account: its direct order must stop feeding
	// pat's retention bucket.
	in.Customers["10077"].AccountType = models.AccountTypeRetail

	out, err := ComputePeriod(in)
	if err != nil {
		t.Fatalf("ComputePeriod error: %v", err)
	}
	pat := out.Summaries[0]
	buckets := models.DecodeBucketResults(pat.BucketsJSON)
	for _, b := range buckets {
		if b.Bucket == BucketRetention && !b.Actual.IsZero() {
			t.Fatalf("retail account revenue leaked into retention: %s", b.Actual)
		}
	}
}

func TestComputePeriod_DeterministicIDs(t *testing.T) {
	out, err := ComputePeriod(periodFixture())
	if err != nil {
		t.Fatalf("ComputePeriod error: %v", err)
	}
	for _, e := range out.Entries {
		if e.ID != models.CommissionEntryID("2024-06", e.RepName, e.OrderID) {
			t.Fatalf("entry id not deterministic: %s", e.ID)
		}
	}
	for _, s := range out.Summaries {
		if s.ID != models.CommissionSummaryID("2024-06", s.RepName) {
			t.Fatalf("summary id not deterministic: %s", s.ID)
		}
	}

	again, err := ComputePeriod(periodFixture())
	if err != nil {
		t.Fatalf("second ComputePeriod error: %v", err)
	}
	for i := range out.Entries {
		if out.Entries[i].ID != again.Entries[i].ID {
			t.Fatal("entry ordering must be stable across recomputes")
		}
		if !out.Entries[i].Amount.Equal(again.Entries[i].Amount) {
			t.Fatal("entry amounts must be stable across recomputes")
		}
	}
	for i := range out.Summaries {
		if !out.Summaries[i].TotalCommission.Equal(again.Summaries[i].TotalCommission) {
			t.Fatal("summary totals must be stable across recomputes")
		}
	}
}

func TestComputePeriod_SwitcherDetection(t *testing.T) {
	in := periodFixture()
	in.Orders = []*models.SalesOrder{
		// Acme's direct relationship goes quiet on the 3rd; a third-party
		// order under a near-identical name appears on the 20th.
		{ID: "50001", SONumber: "2001", CustomerID: "10201", Salesman: "pat",
			DateIssued: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)},
		{ID: "50002", SONumber: "#AB12345678", CustomerID: "20201", Salesman: "pat",
			DateIssued: time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)},
		// Globex orders direct after its third-party order: still alive.
		{ID: "50003", SONumber: "#CD12345678", CustomerID: "20202", Salesman: "sam",
			DateIssued: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "50004", SONumber: "2002", CustomerID: "10202", Salesman: "sam",
			DateIssued: time.Date(2024, 6, 25, 0, 0, 0, 0, time.UTC)},
	}
	in.LinesByOrder = map[string][]*models.OrderLineItem{}
	in.Customers = map[string]*models.Customer{
		"10201": {ID: "10201", Name: "Acme Industrial", City: "Tulsa"},
		"20201": {ID: "20201", Name: "Acme Industrial LLC", City: "Tulsa"},
		"10202": {ID: "10202", Name: "Globex", City: "Reno"},
		"20202": {ID: "20202", Name: "Globex", City: "Reno"},
	}

	out, err := ComputePeriod(in)
	if err != nil {
		t.Fatalf("ComputePeriod error: %v", err)
	}
	if len(out.Switchers) != 1 {
		t.Fatalf("expected exactly 1 switcher, got %d", len(out.Switchers))
	}
	s := out.Switchers[0]
	if s.DirectCustomerID != "10201" || s.ChannelCustomerID != "20201" {
		t.Fatalf("unexpected switcher pair %s -> %s", s.DirectCustomerID, s.ChannelCustomerID)
	}
	if s.DirectRep != "pat" {
		t.Fatalf("switcher should record the direct rep, got %q", s.DirectRep)
	}
	if s.DaysBetweenSwitch != 17 {
		t.Fatalf("expected 17 days between switch, got %d", s.DaysBetweenSwitch)
	}
}

func TestComputePeriod_RejectsBadPeriod(t *testing.T) {
	in := periodFixture()
	in.Period = "June"
	if _, err := ComputePeriod(in); err == nil {
		t.Fatal("expected error for invalid period")
	}
}
