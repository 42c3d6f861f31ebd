package commission

import (
	"fmt"
	"sort"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"github.com/shopspring/decimal"
)

// Named incentive buckets. Their weights partition the incentive and must
// sum to 100%.
const (
	BucketNewBusiness = "new-business"
	BucketProductMix  = "product-mix"
	BucketRetention   = "retention"
)

var bucketWeights = map[string]decimal.Decimal{
	BucketNewBusiness: decimal.NewFromFloat(0.40),
	BucketProductMix:  decimal.NewFromFloat(0.20),
	BucketRetention:   decimal.NewFromFloat(0.40),
}

// bucketOrder fixes the breakdown ordering across recomputes.
var bucketOrder = []string{BucketNewBusiness, BucketProductMix, BucketRetention}

// Attainment band: a bucket below the floor pays nothing at all, and
// overperformance past the cap stops earning.
var (
	minAttainment = decimal.NewFromFloat(0.75)
	maxAttainment = decimal.NewFromFloat(1.25)
)

var weightTolerance = decimal.NewFromFloat(0.0001)

// productMixTopN bounds the product-mix bucket to the period's strongest
// products by revenue.
const productMixTopN = 10

// Attainment is actual over goal; an unset goal attains nothing.
func Attainment(actual, goal decimal.Decimal) decimal.Decimal {
	if goal.IsZero() {
		return decimal.Zero
	}
	return actual.Div(goal)
}

// ApplyFloorAndCap bands an attainment: zero payout below the minimum
// threshold, earnings frozen at the maximum multiplier.
func ApplyFloorAndCap(attainment decimal.Decimal) decimal.Decimal {
	if attainment.LessThan(minAttainment) {
		return decimal.Zero
	}
	if attainment.GreaterThan(maxAttainment) {
		return maxAttainment
	}
	return attainment
}

// BucketMax is the dollar payout of one bucket at exactly 100% attainment.
func BucketMax(maxBonus, weight decimal.Decimal) decimal.Decimal {
	return maxBonus.Mul(weight)
}

// ValidateWeights rejects a weight table that does not partition 100%.
func ValidateWeights(weights map[string]decimal.Decimal) error {
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(weightTolerance) {
		return fmt.Errorf("bucket weights sum to %s, want 1", sum)
	}
	return nil
}

func bucketGoal(rep *models.SalesRep, bucket string) decimal.Decimal {
	if rep == nil {
		return decimal.Zero
	}
	switch bucket {
	case BucketNewBusiness:
		return rep.NewBusinessGoal
	case BucketProductMix:
		return rep.ProductMixGoal
	case BucketRetention:
		return rep.RetentionGoal
	}
	return decimal.Zero
}

// bucketActuals are the period revenue actuals feeding each bucket for one
// rep.
type bucketActuals map[string]decimal.Decimal

// computeBucketResults prices one rep's period. It returns the per-bucket
// breakdown, the overall weighted attainment, and the total payout with the
// rep's per-period cap already applied (breakdown payouts are scaled so
// they still sum to the capped total).
func computeBucketResults(rep *models.SalesRep, actuals bucketActuals) ([]models.BucketResult, decimal.Decimal, decimal.Decimal) {
	var maxBonus decimal.Decimal
	if rep != nil {
		maxBonus = rep.MaxBonus
	}

	results := make([]models.BucketResult, 0, len(bucketOrder))
	overall := decimal.Zero
	total := decimal.Zero
	for _, bucket := range bucketOrder {
		weight := bucketWeights[bucket]
		goal := bucketGoal(rep, bucket)
		actual := actuals[bucket]
		banded := ApplyFloorAndCap(Attainment(actual, goal))
		payout := banded.Mul(BucketMax(maxBonus, weight))
		results = append(results, models.BucketResult{
			Bucket:     bucket,
			Weight:     weight,
			Goal:       goal,
			Actual:     actual,
			Attainment: banded,
			Payout:     payout,
		})
		overall = overall.Add(weight.Mul(banded))
		total = total.Add(payout)
	}

	if rep != nil && rep.MaxPayout != nil && total.GreaterThan(*rep.MaxPayout) {
		scale := rep.MaxPayout.Div(total)
		for i := range results {
			results[i].Payout = results[i].Payout.Mul(scale)
		}
		total = *rep.MaxPayout
	}
	return results, overall, total
}

// topProducts returns the period's top-N product numbers by non-excluded
// revenue, the universe the product-mix bucket counts against.
func topProducts(linesByOrder map[string][]*models.OrderLineItem, n int) map[string]bool {
	revenueByProduct := make(map[string]decimal.Decimal)
	for _, lines := range linesByOrder {
		for _, line := range lines {
			if line.IsExcluded() || line.ProductNumber == "" {
				continue
			}
			revenueByProduct[line.ProductNumber] = revenueByProduct[line.ProductNumber].Add(line.LineTotal())
		}
	}
	products := make([]string, 0, len(revenueByProduct))
	for product := range revenueByProduct {
		products = append(products, product)
	}
	// Revenue descending; product number breaks ties deterministically.
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if !revenueByProduct[a].Equal(revenueByProduct[b]) {
			return revenueByProduct[a].GreaterThan(revenueByProduct[b])
		}
		return a < b
	})
	if len(products) > n {
		products = products[:n]
	}
	top := make(map[string]bool, len(products))
	for _, product := range products {
		top[product] = true
	}
	return top
}

// SpiffFor totals the spiffs that apply to one line item.
func SpiffFor(line *models.OrderLineItem, spiffs map[string][]*models.Spiff) decimal.Decimal {
	total := decimal.Zero
	candidates := spiffs[line.ProductNumber]
	if len(candidates) == 0 {
		return total
	}
	var when = line.CreatedAt
	if line.DateScheduled != nil {
		when = *line.DateScheduled
	}
	for _, spiff := range candidates {
		if !spiff.ActiveAt(when) {
			continue
		}
		switch spiff.Kind {
		case models.SpiffKindFlat:
			total = total.Add(spiff.Value.Mul(line.Quantity))
		case models.SpiffKindPercentage:
			total = total.Add(line.LineTotal().Mul(spiff.Value))
		}
	}
	return total
}
