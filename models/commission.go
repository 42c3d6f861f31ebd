package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/utils"
	"github.com/shopspring/decimal"
)

// SalesRep is a commissionable salesperson. Reps are keyed by the salesman
// string as it appears in ERP exports. The goal columns are the per-period
// dollar targets for each incentive bucket; MaxBonus is the payout at 100%
// attainment across all buckets.
type SalesRep struct {
	ID       int    `gorm:"primary_key" json:"id"`
	Name     string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Email    string `gorm:"size:100" json:"email"`
	IsActive *bool  `gorm:"not null;default:true" json:"is_active"`

	NewBusinessGoal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"new_business_goal"`
	ProductMixGoal  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"product_mix_goal"`
	RetentionGoal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"retention_goal"`
	MaxBonus        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"max_bonus"`
	// MaxPayout caps the rep's total commission for one period; nil = uncapped.
	MaxPayout *decimal.Decimal `gorm:"type:decimal(20,4)" json:"max_payout"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BucketResult is one named incentive bucket's outcome for a rep period:
// the weight share of the incentive, the dollar goal and actual, the capped
// attainment, and the payout it produced.
type BucketResult struct {
	Bucket     string          `json:"bucket"`
	Weight     decimal.Decimal `json:"weight"`
	Goal       decimal.Decimal `json:"goal"`
	Actual     decimal.Decimal `json:"actual"`
	Attainment decimal.Decimal `json:"attainment"`
	Payout     decimal.Decimal `json:"payout"`
}

// EncodeBucketResults marshals a bucket breakdown for a JSON column.
func EncodeBucketResults(buckets []BucketResult) []byte {
	if s, err := utils.MarshalToJSON(buckets); err == nil {
		return []byte(s)
	}
	return nil
}

// DecodeBucketResults is the read-side counterpart; bad JSON decodes empty.
func DecodeBucketResults(data []byte) []BucketResult {
	var buckets []BucketResult
	if len(data) > 0 {
		_ = utils.UnmarshalFromJSON(data, &buckets)
	}
	return buckets
}

// Spiff is a per-product commission add-on, flat dollars or a percent of the
// line total, active within an optional date window.
type Spiff struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ProductNumber string          `gorm:"size:100;index;not null" json:"product_number"`
	Kind          string          `gorm:"size:20;not null" json:"kind"`
	Value         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"value"`
	StartsAt      *time.Time      `json:"starts_at"`
	EndsAt        *time.Time      `json:"ends_at"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// ActiveAt reports whether the spiff applies on the given date.
func (s *Spiff) ActiveAt(t time.Time) bool {
	if s.IsActive != nil && !*s.IsActive {
		return false
	}
	if s.StartsAt != nil && t.Before(*s.StartsAt) {
		return false
	}
	if s.EndsAt != nil && t.After(*s.EndsAt) {
		return false
	}
	return true
}

// CommissionEntry is one order's commission for one rep in one period.
// The id is deterministic so a recompute overwrites in place.
type CommissionEntry struct {
	ID         string `gorm:"primaryKey;size:191" json:"id"`
	Period     string `gorm:"size:7;index;not null" json:"period"` // YYYY-MM
	RepName    string `gorm:"size:100;index;not null" json:"rep_name"`
	CustomerID string `gorm:"size:191;index" json:"customer_id"`
	OrderID    string `gorm:"size:191;index" json:"order_id"`
	SONumber   string `gorm:"size:64" json:"so_number"`

	Channel string `gorm:"size:20" json:"channel"`
	Status  string `gorm:"size:20" json:"status"`

	Revenue         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"revenue"`
	ExcludedRevenue decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"excluded_revenue"`
	// Attainment is the rep's overall weighted attainment for the period,
	// denormalized onto every entry of that rep.
	Attainment  decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"attainment"`
	BucketsJSON []byte          `gorm:"type:json" json:"buckets"`
	SpiffAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"spiff_amount"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CommissionSummary is the per-rep rollup for a period.
type CommissionSummary struct {
	ID              string          `gorm:"primaryKey;size:191" json:"id"`
	Period          string          `gorm:"size:7;index;not null" json:"period"`
	RepName         string          `gorm:"size:100;index;not null" json:"rep_name"`
	OrderCount      int             `json:"order_count"`
	TotalRevenue    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_revenue"`
	TotalCommission decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_commission"`
	TotalSpiffs     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_spiffs"`
	Attainment      decimal.Decimal `gorm:"type:decimal(8,4);default:0" json:"attainment"`
	BucketsJSON     []byte          `gorm:"type:json" json:"buckets"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func CommissionEntryID(period, repName, orderID string) string {
	return fmt.Sprintf("commission_%s_%s_%s", period, repName, orderID)
}

func CommissionSummaryID(period, repName string) string {
	return fmt.Sprintf("summary_%s_%s", period, repName)
}

// CommissionJob is the poll target for a running period recompute.
type CommissionJob struct {
	JobID      string    `gorm:"primaryKey;size:191" json:"job_id"`
	Period     string    `gorm:"size:7;index;not null" json:"period"`
	Status     string    `gorm:"size:20;not null" json:"status"`
	Processed  int       `json:"processed"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
	StatsJSON  []byte    `gorm:"type:json" json:"stats"`
	Error      string    `gorm:"type:text" json:"error"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func commissionJobRedisKey(jobID string) string {
	return "commissionJob:" + jobID
}

func SaveCommissionJob(ctx context.Context, job *CommissionJob) error {
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(job).Error; err != nil {
		return err
	}
	return config.SetRedisObject(commissionJobRedisKey(job.JobID), job, time.Hour)
}

func GetCommissionJob(ctx context.Context, jobID string) (*CommissionJob, error) {
	var job CommissionJob
	if found, err := config.GetRedisObject(commissionJobRedisKey(jobID), &job); err == nil && found {
		return &job, nil
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func ListCommissionSummaries(ctx context.Context, period string) ([]*CommissionSummary, error) {
	db := config.GetDB()
	var summaries []*CommissionSummary
	err := db.WithContext(ctx).Where("period = ?", period).Order("rep_name").Find(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func ListCommissionEntries(ctx context.Context, period string) ([]*CommissionEntry, error) {
	db := config.GetDB()
	var entries []*CommissionEntry
	err := db.WithContext(ctx).Where("period = ?", period).Order("rep_name, so_number").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListActiveSpiffs returns spiffs indexed by product number.
func ListActiveSpiffs(ctx context.Context) (map[string][]*Spiff, error) {
	db := config.GetDB()
	var spiffs []*Spiff
	if err := db.WithContext(ctx).Find(&spiffs).Error; err != nil {
		return nil, err
	}
	result := make(map[string][]*Spiff)
	for _, s := range spiffs {
		result[s.ProductNumber] = append(result[s.ProductNumber], s)
	}
	return result, nil
}

// MapSalesReps returns reps keyed by name.
func MapSalesReps(ctx context.Context) (map[string]*SalesRep, error) {
	db := config.GetDB()
	var reps []*SalesRep
	if err := db.WithContext(ctx).Find(&reps).Error; err != nil {
		return nil, err
	}
	result := make(map[string]*SalesRep, len(reps))
	for _, r := range reps {
		result[r.Name] = r
	}
	return result, nil
}

// EncodeJobStats marshals arbitrary job counters for the StatsJSON column.
func EncodeJobStats(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
