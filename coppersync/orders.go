package coppersync

import (
	"context"
	"fmt"
	"strconv"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/importer"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"gorm.io/gorm"
)

// OrdersResult is the outcome of one CRM→ERP pass. Dry-run and live runs
// produce the same decisions and change list; only live runs apply them.
type OrdersResult struct {
	Stats     models.SyncStats
	Decisions []SyncDecision
	Changes   []ChangeDetail
}

// customerPatch is the set of CRM-sourced columns a matched order's customer
// may receive. Empty CRM values never appear here.
type customerPatch struct {
	customerID string
	fields     map[string]string
}

// ordersSnapshot is the read-only input to one planning pass, loaded once
// per run.
type ordersSnapshot struct {
	opportunities      []Opportunity
	companiesByID      map[int64]Company
	index              *orderIndex
	customers          map[string]*models.Customer
	customersByAccount map[string]*models.Customer
}

// ordersPlan is everything a live run will write. The same plan backs the
// dry-run report, so the report predicts the live writes exactly.
type ordersPlan struct {
	orderUpdates      []*models.SalesOrder
	patchesByCustomer map[string]*customerPatch
}

// ReconcileOrders runs Direction A: Copper opportunities and companies are
// pulled, inactive companies are dropped, the rest are deduped and matched
// against ERP orders, and the computed plan is applied to the ERP side. This
// direction never creates ERP customers and never writes to Copper.
func ReconcileOrders(ctx context.Context, api CopperAPI, run *models.SyncRun) (*OrdersResult, error) {
	result := &OrdersResult{}

	snap, err := loadOrdersSnapshot(ctx, api)
	if err != nil {
		return nil, err
	}

	plan := planOrders(snap, result)

	if run.DryRun {
		return result, nil
	}
	if err := applyOrdersPlan(ctx, plan); err != nil {
		return result, err
	}
	return result, nil
}

func loadOrdersSnapshot(ctx context.Context, api CopperAPI) (*ordersSnapshot, error) {
	opportunities, err := api.ListWonOpportunities(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing opportunities: %w", err)
	}
	companies, err := api.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	// Inactive companies are stale CRM records; they never feed ERP data.
	active := make([]Company, 0, len(companies))
	for _, company := range companies {
		if company.IsActive() {
			active = append(active, company)
		}
	}
	companies = dedupeByAccountNumber(active)

	companiesByID := make(map[int64]Company, len(companies))
	for _, company := range companies {
		companiesByID[company.ID] = company
	}

	orders, err := models.MapSalesOrdersById(ctx)
	if err != nil {
		return nil, err
	}
	orderSlice := make([]*models.SalesOrder, 0, len(orders))
	for _, order := range orders {
		orderSlice = append(orderSlice, order)
	}

	customersByAccount, err := models.MapCustomersByAccountNumber(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := models.MapCustomersById(ctx)
	if err != nil {
		return nil, err
	}

	return &ordersSnapshot{
		opportunities:      opportunities,
		companiesByID:      companiesByID,
		index:              buildOrderIndex(orderSlice),
		customers:          customers,
		customersByAccount: customersByAccount,
	}, nil
}

// planOrders computes the full decision set without touching the database.
func planOrders(snap *ordersSnapshot, result *OrdersResult) *ordersPlan {
	stats := &result.Stats
	plan := &ordersPlan{patchesByCustomer: make(map[string]*customerPatch)}

	for _, opp := range snap.opportunities {
		stats.Scanned++
		order, tier := snap.index.matchOpportunity(opp, snap.customersByAccount)
		if order == nil {
			stats.Unmatched++
			result.Decisions = append(result.Decisions, SyncDecision{
				EntityType: "opportunity",
				EntityID:   strconv.FormatInt(opp.ID, 10),
				Action:     DecisionNoChange,
				Concerns:   []string{"no ERP order matched; ERP customers are never created from CRM data"},
			})
			continue
		}
		switch tier {
		case matchTierCrmID:
			stats.MatchedTier1++
		case matchTierAccountOrderID:
			stats.MatchedTier2++
		case matchTierAccountWindow:
			stats.MatchedTier3++
		}

		decision := SyncDecision{
			EntityType: "order",
			EntityID:   order.ID,
			Action:     DecisionNoChange,
		}

		if order.CrmOpportunityId != opp.ID {
			decision.Changes = append(decision.Changes, ChangeDetail{
				EntityID: order.ID,
				Field:    "crmOpportunityId",
				OldValue: strconv.FormatInt(order.CrmOpportunityId, 10),
				NewValue: strconv.FormatInt(opp.ID, 10),
			})
			order.CrmOpportunityId = opp.ID
			plan.orderUpdates = append(plan.orderUpdates, order)
		}

		// Merge CRM company fields into the order's customer. Empty CRM
		// values never overwrite non-empty ERP values.
		if customer, ok := snap.customers[order.CustomerID]; ok {
			if opp.CompanyID != nil {
				if company, have := snap.companiesByID[*opp.CompanyID]; have {
					changes, concerns := mergeCompanyIntoCustomer(customer, company, plan.patchesByCustomer)
					decision.Changes = append(decision.Changes, changes...)
					decision.Concerns = append(decision.Concerns, concerns...)
				}
			}
		}

		if len(decision.Changes) > 0 {
			decision.Action = DecisionUpdate
		} else {
			stats.Skipped++
		}
		result.Changes = append(result.Changes, decision.Changes...)
		result.Decisions = append(result.Decisions, decision)
	}

	stats.Updated = len(plan.orderUpdates) + len(plan.patchesByCustomer)
	return plan
}

// applyOrdersPlan writes exactly what planOrders reported.
func applyOrdersPlan(ctx context.Context, plan *ordersPlan) error {
	if len(plan.orderUpdates) == 0 && len(plan.patchesByCustomer) == 0 {
		return nil
	}
	db := config.GetDB()
	batch := models.NewBatchWriter(ctx, db, models.SyncBatchCap)
	for _, order := range plan.orderUpdates {
		row := *order
		if err := batch.Add(func(tx *gorm.DB) error {
			return tx.Save(&row).Error
		}); err != nil {
			return err
		}
	}
	for _, patch := range plan.patchesByCustomer {
		customerID := patch.customerID
		fields := patch.fields
		if err := batch.Add(func(tx *gorm.DB) error {
			return tx.Model(&models.Customer{}).Where("id = ?", customerID).
				Updates(toAnyMap(fields)).Error
		}); err != nil {
			return err
		}
	}
	return batch.Flush()
}

// mergeCompanyIntoCustomer computes the field-level merge of one CRM company
// into one ERP customer, collecting a column patch plus the change details
// and review concerns for the decision record.
func mergeCompanyIntoCustomer(customer *models.Customer, company Company, patches map[string]*customerPatch) ([]ChangeDetail, []string) {
	patch, ok := patches[customer.ID]
	if !ok {
		patch = &customerPatch{customerID: customer.ID, fields: make(map[string]string)}
	}

	var changes []ChangeDetail
	var concerns []string

	add := func(field, column, oldValue, newValue string) {
		if newValue == "" || oldValue == newValue {
			return
		}
		changes = append(changes, ChangeDetail{
			EntityID: customer.ID,
			Field:    field,
			OldValue: oldValue,
			NewValue: newValue,
		})
		patch.fields[column] = newValue
	}

	add("crmCompanyId", "crm_company_id",
		strconv.FormatInt(customer.CrmCompanyId, 10), strconv.FormatInt(company.ID, 10))

	// An account-type change reprices commissions, so it is applied with a
	// review concern instead of silently.
	if newType := company.AccountType(); newType != "" && newType != customer.AccountType {
		if customer.AccountType != "" {
			concerns = append(concerns, fmt.Sprintf(
				"account type changing from %s to %s; flagged for review", customer.AccountType, newType))
			patch.fields["needs_review"] = "1"
		}
		add("accountType", "account_type", customer.AccountType, newType)
		patch.fields["account_type_source"] = models.AccountTypeSourceCrmSync
	}
	add("region", "region", customer.Region, company.Region())

	street, city, state, zip := company.StreetAddress()
	// Addresses only fill blanks on the ERP side; the ERP export remains the
	// address system of record.
	if customer.Street == "" {
		add("street", "street", customer.Street, street)
	}
	if customer.City == "" {
		add("city", "city", customer.City, city)
	}
	if customer.State == "" {
		add("state", "state", customer.State, importer.NormalizeState(state))
	}
	if customer.PostalCode == "" {
		add("postalCode", "postal_code", customer.PostalCode, importer.Zip5(zip))
	}

	if len(patch.fields) > 0 {
		patches[customer.ID] = patch
	}
	return changes, concerns
}

func toAnyMap(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch k {
		case "crm_company_id":
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				out[k] = n
				continue
			}
		case "needs_review":
			out[k] = v == "1"
			continue
		}
		out[k] = v
	}
	return out
}
