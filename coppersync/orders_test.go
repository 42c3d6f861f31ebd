package coppersync

import (
	"reflect"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
)

func TestMergeCompanyIntoCustomer_EmptyNeverOverwrites(t *testing.T) {
	customer := &models.Customer{
		ID:          "10042",
		Street:      "123 Main St",
		City:        "Austin",
		State:       "TX",
		PostalCode:  "78701",
		Region:      "Southwest",
		AccountType: "wholesale",
	}
	company := Company{ID: 77, Name: "Acme Corp"} // carries no data at all

	patches := make(map[string]*customerPatch)
	changes, concerns := mergeCompanyIntoCustomer(customer, company, patches)

	for _, change := range changes {
		if change.Field != "crmCompanyId" {
			t.Fatalf("empty CRM fields must not produce changes, got %+v", change)
		}
	}
	if len(concerns) != 0 {
		t.Fatalf("no concerns expected, got %v", concerns)
	}
	patch := patches[customer.ID]
	if patch == nil {
		t.Fatal("expected a patch with the company linkage")
	}
	if len(patch.fields) != 1 || patch.fields["crm_company_id"] != "77" {
		t.Fatalf("expected only crm_company_id patch, got %v", patch.fields)
	}
}

func TestMergeCompanyIntoCustomer_FillsBlanksOnly(t *testing.T) {
	customer := &models.Customer{
		ID:           "10042",
		Street:       "123 Main St", // populated: CRM must not overwrite
		CrmCompanyId: 77,
	}
	company := Company{
		ID: 77,
		CustomFields: []CustomField{
			cf(fieldStreet, "999 Other Rd"),
			cf(fieldCity, "Austin"),
			cf(fieldState, "Texas"),
			cf(fieldPostalCode, "78701-1234"),
			cf(fieldRegion, "Southwest"),
			cf(fieldAccountType, float64(optionDistributor)),
		},
	}

	patches := make(map[string]*customerPatch)
	mergeCompanyIntoCustomer(customer, company, patches)

	patch := patches[customer.ID]
	if patch == nil {
		t.Fatal("expected a patch")
	}
	if _, ok := patch.fields["street"]; ok {
		t.Fatal("populated ERP street must not be overwritten")
	}
	if patch.fields["city"] != "Austin" {
		t.Fatalf("blank city should fill, got %v", patch.fields)
	}
	if patch.fields["state"] != "TX" {
		t.Fatalf("state should normalize to TX, got %q", patch.fields["state"])
	}
	if patch.fields["postal_code"] != "78701" {
		t.Fatalf("zip should trim to 5 digits, got %q", patch.fields["postal_code"])
	}
	if patch.fields["account_type"] != "distributor" {
		t.Fatalf("account type should map from the dropdown, got %q", patch.fields["account_type"])
	}
	if patch.fields["account_type_source"] != models.AccountTypeSourceCrmSync {
		t.Fatalf("account type changes should record their source, got %q", patch.fields["account_type_source"])
	}
	if patch.fields["region"] != "Southwest" {
		t.Fatalf("region should apply, got %q", patch.fields["region"])
	}
	if _, ok := patch.fields["crm_company_id"]; ok {
		t.Fatal("unchanged linkage should not patch")
	}
}

func TestMergeCompanyIntoCustomer_AccountTypeChangeRaisesConcern(t *testing.T) {
	customer := &models.Customer{
		ID:           "10042",
		AccountType:  "wholesale",
		CrmCompanyId: 77,
	}
	company := Company{
		ID:           77,
		CustomFields: []CustomField{cf(fieldAccountType, float64(optionDistributor))},
	}

	patches := make(map[string]*customerPatch)
	changes, concerns := mergeCompanyIntoCustomer(customer, company, patches)

	if len(changes) != 1 || changes[0].Field != "accountType" {
		t.Fatalf("expected the account type change, got %+v", changes)
	}
	if len(concerns) != 1 {
		t.Fatalf("an account type change must raise a review concern, got %v", concerns)
	}
	patch := patches[customer.ID]
	if patch.fields["account_type"] != "distributor" {
		t.Fatalf("the change still applies, got %v", patch.fields)
	}
	if patch.fields["needs_review"] != "1" {
		t.Fatalf("a changed account type flags the customer for review, got %v", patch.fields)
	}
}

func TestToAnyMap_ConvertsTypedColumns(t *testing.T) {
	out := toAnyMap(map[string]string{"crm_company_id": "77", "city": "Austin", "needs_review": "1"})
	if v, ok := out["crm_company_id"].(int64); !ok || v != 77 {
		t.Fatalf("crm_company_id should convert to int64, got %T %v", out["crm_company_id"], out["crm_company_id"])
	}
	if out["city"] != "Austin" {
		t.Fatalf("string fields pass through, got %v", out["city"])
	}
	if v, ok := out["needs_review"].(bool); !ok || !v {
		t.Fatalf("needs_review should convert to bool, got %T %v", out["needs_review"], out["needs_review"])
	}
}

func ordersPlanFixture() *ordersSnapshot {
	companyID := int64(77)
	orders := []*models.SalesOrder{
		{ID: "41876", SONumber: "1001", CustomerID: "10042",
			DateIssued: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	return &ordersSnapshot{
		opportunities: []Opportunity{
			{ID: 900, CompanyID: &companyID, CustomFields: []CustomField{cf(fieldAccountOrderID, "1001")}},
			{ID: 901}, // no identifiers at all
		},
		companiesByID: map[int64]Company{
			77: {ID: 77, Name: "Acme Corp", CustomFields: []CustomField{cf(fieldRegion, "Southwest")}},
		},
		index: buildOrderIndex(orders),
		customers: map[string]*models.Customer{
			"10042": {ID: "10042"},
		},
		customersByAccount: map[string]*models.Customer{},
	}
}

func TestPlanOrders_UnmatchedYieldsNoChangeDecision(t *testing.T) {
	result := &OrdersResult{}
	planOrders(ordersPlanFixture(), result)

	if result.Stats.Unmatched != 1 {
		t.Fatalf("expected 1 unmatched, got %d", result.Stats.Unmatched)
	}
	var unmatched *SyncDecision
	for i := range result.Decisions {
		if result.Decisions[i].EntityID == "901" {
			unmatched = &result.Decisions[i]
		}
	}
	if unmatched == nil {
		t.Fatal("unmatched opportunity must still produce a decision")
	}
	if unmatched.Action != DecisionNoChange || len(unmatched.Concerns) != 1 {
		t.Fatalf("unmatched should be a no_change decision with a concern, got %+v", unmatched)
	}
	if result.Stats.Errors != 0 {
		t.Fatalf("an unmatched opportunity is not an error, got %d", result.Stats.Errors)
	}
}

func TestPlanOrders_MatchedOrderLinksAndMerges(t *testing.T) {
	result := &OrdersResult{}
	plan := planOrders(ordersPlanFixture(), result)

	if result.Stats.MatchedTier2 != 1 {
		t.Fatalf("expected a tier-2 match, got %+v", result.Stats)
	}
	if len(plan.orderUpdates) != 1 || plan.orderUpdates[0].CrmOpportunityId != 900 {
		t.Fatalf("matched order should link the opportunity, got %+v", plan.orderUpdates)
	}
	patch := plan.patchesByCustomer["10042"]
	if patch == nil || patch.fields["region"] != "Southwest" {
		t.Fatalf("company region should patch the customer, got %+v", patch)
	}

	var decision *SyncDecision
	for i := range result.Decisions {
		if result.Decisions[i].EntityID == "41876" {
			decision = &result.Decisions[i]
		}
	}
	if decision == nil || decision.Action != DecisionUpdate {
		t.Fatalf("matched order with changes should decide update, got %+v", decision)
	}
}

func TestPlanOrders_DryRunParity(t *testing.T) {
	// The plan is pure: two passes over the same snapshot report the same
	// decisions and write set, which is what makes a dry run's report
	// predict a live run exactly.
	first := &OrdersResult{}
	firstPlan := planOrders(ordersPlanFixture(), first)
	second := &OrdersResult{}
	secondPlan := planOrders(ordersPlanFixture(), second)

	if !reflect.DeepEqual(first.Changes, second.Changes) {
		t.Fatalf("change sets differ:\n%+v\n%+v", first.Changes, second.Changes)
	}
	if !reflect.DeepEqual(first.Decisions, second.Decisions) {
		t.Fatalf("decision sets differ:\n%+v\n%+v", first.Decisions, second.Decisions)
	}
	if !reflect.DeepEqual(first.Stats, second.Stats) {
		t.Fatalf("stats differ: %+v vs %+v", first.Stats, second.Stats)
	}
	if len(firstPlan.patchesByCustomer) != len(secondPlan.patchesByCustomer) {
		t.Fatal("patch sets differ between passes")
	}
}
