package coppersync

import (
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/importer"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
)

// completenessScore ranks duplicate companies sharing an account number.
// Weights favor the record with the richest address data.
func completenessScore(company Company) int {
	score := 0
	if company.Region() != "" {
		score += 10
	}
	street, city, state, zip := company.StreetAddress()
	if street != "" {
		score += 5
	}
	if city != "" {
		score += 5
	}
	if state != "" {
		score += 5
	}
	if zip != "" {
		score += 3
	}
	if company.AssigneeID != nil {
		score += 2
	}
	return score
}

// dedupeByAccountNumber keeps the most complete company per account number.
// Ties keep the first one seen. Companies without an account number pass
// through untouched.
func dedupeByAccountNumber(companies []Company) []Company {
	best := make(map[string]int) // account number -> index into result
	var result []Company
	for _, company := range companies {
		account := company.AccountNumber()
		if account == "" {
			result = append(result, company)
			continue
		}
		if idx, seen := best[account]; seen {
			if completenessScore(company) > completenessScore(result[idx]) {
				result[idx] = company
			}
			continue
		}
		best[account] = len(result)
		result = append(result, company)
	}
	return result
}

// companyCompositeKey builds the same name+address key the importer uses for
// ERP customers, so both sides land in one keyspace.
func companyCompositeKey(company Company) string {
	street, city, state, zip := company.StreetAddress()
	return importer.CompositeCustomerKey(company.Name, street, city, state, zip)
}

// Match tiers for opportunity → order resolution.
const (
	matchTierCrmID = 1 + iota
	matchTierAccountOrderID
	matchTierAccountWindow
)

// orderMatchWindow bounds tier-3 matches: the opportunity close date must
// fall within this many days of the order issue date.
const orderMatchWindowDays = 45

// orderIndex carries the prebuilt lookup maps for opportunity matching.
type orderIndex struct {
	byCrmID    map[int64]*models.SalesOrder
	bySONumber map[string]*models.SalesOrder
	byCustomer map[string][]*models.SalesOrder
}

func buildOrderIndex(orders []*models.SalesOrder) *orderIndex {
	idx := &orderIndex{
		byCrmID:    make(map[int64]*models.SalesOrder),
		bySONumber: make(map[string]*models.SalesOrder),
		byCustomer: make(map[string][]*models.SalesOrder),
	}
	for _, order := range orders {
		if order.CrmOpportunityId != 0 {
			idx.byCrmID[order.CrmOpportunityId] = order
		}
		idx.bySONumber[importer.NormalizeText(order.SONumber)] = order
		idx.byCustomer[order.CustomerID] = append(idx.byCustomer[order.CustomerID], order)
	}
	return idx
}

// matchOpportunity resolves an opportunity to an ERP order through the three
// tiers: stored opportunity id, the AccountOrderID custom field, then the
// company's account within the close-date window.
func (idx *orderIndex) matchOpportunity(opp Opportunity, customersByAccount map[string]*models.Customer) (*models.SalesOrder, int) {
	if order, ok := idx.byCrmID[opp.ID]; ok {
		return order, matchTierCrmID
	}

	if soNumber := opp.AccountOrderID(); soNumber != "" {
		if order, ok := idx.bySONumber[importer.NormalizeText(soNumber)]; ok {
			return order, matchTierAccountOrderID
		}
	}

	account := opp.AccountID()
	if account == "" {
		return nil, 0
	}
	customer, ok := customersByAccount[account]
	if !ok {
		return nil, 0
	}
	closeDate, ok := importer.ParseDate(opp.CloseDate)
	if !ok || closeDate.IsZero() {
		return nil, 0
	}
	window := time.Duration(orderMatchWindowDays) * 24 * time.Hour
	var best *models.SalesOrder
	var bestGap time.Duration
	for _, order := range idx.byCustomer[customer.ID] {
		if order.DateIssued.IsZero() {
			continue
		}
		gap := order.DateIssued.Sub(closeDate)
		if gap < 0 {
			gap = -gap
		}
		if gap > window {
			continue
		}
		if best == nil || gap < bestGap {
			best = order
			bestGap = gap
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, matchTierAccountWindow
}
