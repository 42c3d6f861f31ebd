package coppersync

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
)

func cf(id int64, value any) CustomField {
	return CustomField{CustomFieldDefinitionID: id, Value: value}
}

func TestCompletenessScore(t *testing.T) {
	assignee := int64(42)
	full := Company{
		ID:         1,
		Name:       "Acme Corp",
		AssigneeID: &assignee,
		CustomFields: []CustomField{
			cf(fieldRegion, "Southwest"),
			cf(fieldStreet, "123 Main St"),
			cf(fieldCity, "Austin"),
			cf(fieldState, "TX"),
			cf(fieldPostalCode, "78701"),
		},
	}
	if got := completenessScore(full); got != 30 {
		t.Fatalf("full company expected score 30, got %d", got)
	}

	bare := Company{ID: 2, Name: "Acme Corp"}
	if got := completenessScore(bare); got != 0 {
		t.Fatalf("bare company expected score 0, got %d", got)
	}

	partial := Company{ID: 3, CustomFields: []CustomField{cf(fieldRegion, "Southwest"), cf(fieldPostalCode, "78701")}}
	if got := completenessScore(partial); got != 13 {
		t.Fatalf("partial company expected score 13, got %d", got)
	}
}

func TestDedupeByAccountNumber(t *testing.T) {
	rich := Company{
		ID: 1,
		CustomFields: []CustomField{
			cf(fieldAccountOrderID, "10042"),
			cf(fieldRegion, "Southwest"),
			cf(fieldCity, "Austin"),
		},
	}
	poor := Company{
		ID:           2,
		CustomFields: []CustomField{cf(fieldAccountOrderID, "10042")},
	}
	noAccount := Company{ID: 3, Name: "Orphan"}

	out := dedupeByAccountNumber([]Company{poor, rich, noAccount})
	if len(out) != 2 {
		t.Fatalf("expected 2 companies after dedupe, got %d", len(out))
	}
	if out[0].ID != 1 {
		t.Fatalf("richer duplicate should win, got company %d", out[0].ID)
	}
	if out[1].ID != 3 {
		t.Fatalf("company without account number should pass through, got %d", out[1].ID)
	}
}

func TestDedupeByAccountNumber_TieKeepsFirst(t *testing.T) {
	a := Company{ID: 1, CustomFields: []CustomField{cf(fieldAccountOrderID, "10042")}}
	b := Company{ID: 2, CustomFields: []CustomField{cf(fieldAccountOrderID, "10042")}}
	out := dedupeByAccountNumber([]Company{a, b})
	if len(out) != 1 || out[0].ID != 1 {
		t.Fatalf("tie should keep the first company, got %v", out)
	}
}

func matchFixture() (*orderIndex, map[string]*models.Customer) {
	orders := []*models.SalesOrder{
		{ID: "41876", SONumber: "1001", CustomerID: "10042", CrmOpportunityId: 900,
			DateIssued: time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)},
		{ID: "41877", SONumber: "1002", CustomerID: "10042",
			DateIssued: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "41878", SONumber: "1003", CustomerID: "10042",
			DateIssued: time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)},
	}
	customersByAccount := map[string]*models.Customer{
		"10042": {ID: "10042", AccountNumber: "10042"},
	}
	return buildOrderIndex(orders), customersByAccount
}

func TestMatchOpportunity_Tier1StoredID(t *testing.T) {
	idx, customers := matchFixture()
	opp := Opportunity{ID: 900}
	order, tier := idx.matchOpportunity(opp, customers)
	if order == nil || order.ID != "41876" || tier != matchTierCrmID {
		t.Fatalf("expected tier-1 match on 41876, got %v tier %d", order, tier)
	}
}

func TestMatchOpportunity_Tier2AccountOrderID(t *testing.T) {
	idx, customers := matchFixture()
	opp := Opportunity{ID: 901, CustomFields: []CustomField{cf(fieldAccountOrderID, "1002")}}
	order, tier := idx.matchOpportunity(opp, customers)
	if order == nil || order.ID != "41877" || tier != matchTierAccountOrderID {
		t.Fatalf("expected tier-2 match on 41877, got %v tier %d", order, tier)
	}
}

func TestMatchOpportunity_Tier3DateWindow(t *testing.T) {
	idx, customers := matchFixture()
	opp := Opportunity{
		ID:           902,
		CloseDate:    "04/18/2024",
		CustomFields: []CustomField{cf(fieldAccountID, "10042")},
	}
	order, tier := idx.matchOpportunity(opp, customers)
	if order == nil || tier != matchTierAccountWindow {
		t.Fatalf("expected tier-3 match, got %v tier %d", order, tier)
	}
	// 41878 (Apr 20) is closer to Apr 18 than 41877 (Apr 1).
	if order.ID != "41878" {
		t.Fatalf("expected closest order 41878, got %s", order.ID)
	}
}

func TestMatchOpportunity_Tier3OutsideWindow(t *testing.T) {
	idx, customers := matchFixture()
	opp := Opportunity{
		ID:           903,
		CloseDate:    "12/01/2024",
		CustomFields: []CustomField{cf(fieldAccountID, "10042")},
	}
	if order, _ := idx.matchOpportunity(opp, customers); order != nil {
		t.Fatalf("close date outside the window should not match, got %s", order.ID)
	}
}

func TestMatchOpportunity_NoSignals(t *testing.T) {
	idx, customers := matchFixture()
	if order, _ := idx.matchOpportunity(Opportunity{ID: 904}, customers); order != nil {
		t.Fatalf("opportunity without identifiers should not match, got %s", order.ID)
	}
}

func TestCompanyCompositeKey_BlankCompanyYieldsNoKey(t *testing.T) {
	if key := companyCompositeKey(Company{}); key != "" {
		t.Fatalf("blank company must not produce a composite key, got %q", key)
	}
	named := Company{Name: "Acme Corp"}
	if key := companyCompositeKey(named); key == "" {
		t.Fatal("company with a name should produce a key")
	}
}
