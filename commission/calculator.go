package commission

import (
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"github.com/shopspring/decimal"
)

// PeriodInput is everything a period computation needs, preloaded by the
// caller. The calculator itself never touches the database, which is what
// makes recomputes deterministic and testable.
type PeriodInput struct {
	Period          string
	Orders          []*models.SalesOrder
	LinesByOrder    map[string][]*models.OrderLineItem
	Customers       map[string]*models.Customer
	Reps            map[string]*models.SalesRep
	Spiffs          map[string][]*models.Spiff
	LastOrderBefore map[string]*time.Time // customer id -> latest order date before the period
}

// PeriodOutput is the full replacement set for the period: every entry and
// every summary, keyed deterministically, plus the switchers detected from
// the period's channel activity.
type PeriodOutput struct {
	Entries      []*models.CommissionEntry
	Summaries    []*models.CommissionSummary
	Switchers    []*Switcher
	SkippedNoRep int
}

// ComputePeriod classifies orders, scores each rep's incentive buckets and
// rolls the period up. Orders without a salesman are counted and skipped;
// they cannot be attributed.
//
// Bucket actuals count non-excluded order revenue: new-business takes the
// revenue of customers whose first order falls inside the period, retention
// takes everyone else, and product-mix takes the revenue landing on the
// period's top products. Retail-channel orders and retail-segment accounts
// still earn spiffs but never feed the goal buckets.
func ComputePeriod(in PeriodInput) (*PeriodOutput, error) {
	start, _, ok := PeriodBounds(in.Period)
	if !ok {
		return nil, fmt.Errorf("invalid period %q (want YYYY-MM)", in.Period)
	}
	if err := ValidateWeights(bucketWeights); err != nil {
		return nil, err
	}

	// Top products are ranked inside the period only, even though the line
	// snapshot spans all orders.
	periodLines := make(map[string][]*models.OrderLineItem, len(in.Orders))
	for _, order := range in.Orders {
		periodLines[order.ID] = in.LinesByOrder[order.ID]
	}
	top := topProducts(periodLines, productMixTopN)

	out := &PeriodOutput{}
	summaryByRep := make(map[string]*models.CommissionSummary)
	entriesByRep := make(map[string][]*models.CommissionEntry)
	actualsByRep := make(map[string]bucketActuals)
	revenueByRep := make(map[string]decimal.Decimal)

	directActivity := make(map[string]*ChannelActivity)
	channelActivity := make(map[string]*ChannelActivity)

	for _, order := range in.Orders {
		rep := order.Salesman
		if rep == "" {
			out.SkippedNoRep++
			continue
		}

		channel := ClassifyOrderNumber(order.SONumber)
		customer := in.Customers[order.CustomerID]

		status := models.CommissionStatusNew
		if customer != nil {
			status = StatusFor(customer, rep, start, in.LastOrderBefore[order.CustomerID])
		}

		revenue, excluded := SplitRevenue(in.LinesByOrder[order.ID])

		spiffTotal := decimal.Zero
		mixRevenue := decimal.Zero
		for _, line := range in.LinesByOrder[order.ID] {
			if line.IsExcluded() {
				continue
			}
			spiffTotal = spiffTotal.Add(SpiffFor(line, in.Spiffs))
			if top[line.ProductNumber] {
				mixRevenue = mixRevenue.Add(line.LineTotal())
			}
		}

		entry := &models.CommissionEntry{
			ID:              models.CommissionEntryID(in.Period, rep, order.ID),
			Period:          in.Period,
			RepName:         rep,
			CustomerID:      order.CustomerID,
			OrderID:         order.ID,
			SONumber:        order.SONumber,
			Channel:         channel,
			Status:          status,
			Revenue:         revenue,
			ExcludedRevenue: excluded,
			SpiffAmount:     spiffTotal,
		}
		out.Entries = append(out.Entries, entry)
		entriesByRep[rep] = append(entriesByRep[rep], entry)

		summary, ok := summaryByRep[rep]
		if !ok {
			summary = &models.CommissionSummary{
				ID:      models.CommissionSummaryID(in.Period, rep),
				Period:  in.Period,
				RepName: rep,
			}
			summaryByRep[rep] = summary
		}
		summary.OrderCount++
		summary.TotalRevenue = summary.TotalRevenue.Add(revenue)
		summary.TotalSpiffs = summary.TotalSpiffs.Add(spiffTotal)

		countsTowardGoals := channel != models.ChannelRetail &&
			(customer == nil || customer.AccountType != models.AccountTypeRetail)
		if countsTowardGoals {
			actuals, ok := actualsByRep[rep]
			if !ok {
				actuals = make(bucketActuals)
				actualsByRep[rep] = actuals
			}
			bucket := BucketRetention
			if customer != nil && customer.FirstOrderDate != nil && !customer.FirstOrderDate.Before(start) {
				bucket = BucketNewBusiness
			}
			actuals[bucket] = actuals[bucket].Add(revenue)
			actuals[BucketProductMix] = actuals[BucketProductMix].Add(mixRevenue)
		}
		revenueByRep[rep] = revenueByRep[rep].Add(revenue)

		recordChannelActivity(directActivity, channelActivity, order, customer, channel)
	}

	for rep, summary := range summaryByRep {
		results, overall, total := computeBucketResults(in.Reps[rep], actualsByRep[rep])
		encoded := models.EncodeBucketResults(results)
		summary.Attainment = overall
		summary.BucketsJSON = encoded
		summary.TotalCommission = total.Add(summary.TotalSpiffs)

		// The rep's capped payout is split across entries pro rata by
		// revenue; the final entry absorbs the rounding remainder so the
		// entries always sum back to the summary.
		entries := entriesByRep[rep]
		repRevenue := revenueByRep[rep]
		allocated := decimal.Zero
		for i, entry := range entries {
			entry.Attainment = overall
			entry.BucketsJSON = encoded
			share := decimal.Zero
			if i == len(entries)-1 {
				share = total.Sub(allocated)
			} else if !repRevenue.IsZero() {
				share = total.Mul(entry.Revenue).Div(repRevenue).Round(4)
				allocated = allocated.Add(share)
			}
			entry.Amount = share.Add(entry.SpiffAmount)
		}
	}

	for _, summary := range summaryByRep {
		out.Summaries = append(out.Summaries, summary)
	}
	sort.Slice(out.Summaries, func(i, j int) bool {
		return out.Summaries[i].RepName < out.Summaries[j].RepName
	})
	sort.Slice(out.Entries, func(i, j int) bool {
		return out.Entries[i].ID < out.Entries[j].ID
	})

	out.Switchers = DetectSwitchers(directActivity, channelActivity)

	return out, nil
}

// recordChannelActivity folds one order into its customer's per-channel
// aggregate. Only the ERP-direct and third-party channels participate in
// switcher detection.
func recordChannelActivity(direct, channel map[string]*ChannelActivity, order *models.SalesOrder, customer *models.Customer, ch string) {
	var byCustomer map[string]*ChannelActivity
	switch ch {
	case models.ChannelErpDirect:
		byCustomer = direct
	case models.ChannelThirdParty:
		byCustomer = channel
	default:
		return
	}
	if order.DateIssued.IsZero() {
		return
	}

	activity, ok := byCustomer[order.CustomerID]
	if !ok {
		activity = &ChannelActivity{
			CustomerID: order.CustomerID,
			Rep:        order.Salesman,
			FirstOrder: order.DateIssued,
			LastOrder:  order.DateIssued,
		}
		if customer != nil {
			activity.Name = customer.Name
			activity.City = customer.City
		}
		byCustomer[order.CustomerID] = activity
		return
	}
	if order.DateIssued.Before(activity.FirstOrder) {
		activity.FirstOrder = order.DateIssued
	}
	if order.DateIssued.After(activity.LastOrder) {
		activity.LastOrder = order.DateIssued
		// The rep on record is whoever owned the most recent order.
		activity.Rep = order.Salesman
	}
}
