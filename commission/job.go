package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"bitbucket.org/mmdatafocus/salesops_backend/utils"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
)

const periodLockTTL = 15 * time.Minute

// RunPeriod recomputes one period end to end: load, compute, then delete and
// rewrite every entry and summary for the period inside batched transactions.
// Deterministic ids make the rewrite idempotent. A redis lock prevents two
// recomputes of the same period from interleaving.
func RunPeriod(ctx context.Context, period, jobID string) error {
	logger := config.GetLogger()

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "commissionPeriod:"+period, periodLockTTL, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return utils.ErrorLockNotAcquired
			}
			return err
		}
		defer lock.Release(context.Background())
	}

	job := &models.CommissionJob{
		JobID:  jobID,
		Period: period,
		Status: models.ImportStatusProcessing,
	}
	if err := models.SaveCommissionJob(ctx, job); err != nil {
		config.LogError(logger, "job.go", "RunPeriod", "creating job record", jobID, err)
	}

	input, err := loadPeriodInput(ctx, period)
	if err != nil {
		return failJob(ctx, job, err)
	}
	job.Total = len(input.Orders)
	if err := models.SaveCommissionJob(ctx, job); err != nil {
		config.LogError(logger, "job.go", "RunPeriod", "saving job total", jobID, err)
	}

	output, err := ComputePeriod(*input)
	if err != nil {
		return failJob(ctx, job, err)
	}

	if err := replacePeriod(ctx, period, output); err != nil {
		return failJob(ctx, job, err)
	}

	job.Status = models.ImportStatusCompleted
	job.Processed = len(input.Orders)
	job.Percentage = 100
	job.StatsJSON = models.EncodeJobStats(map[string]int{
		"entries":      len(output.Entries),
		"summaries":    len(output.Summaries),
		"skippedNoRep": output.SkippedNoRep,
		"switchers":    len(output.Switchers),
	})
	if err := models.SaveCommissionJob(ctx, job); err != nil {
		config.LogError(logger, "job.go", "RunPeriod", "finalizing job record", jobID, err)
	}

	if err := config.PublishOpsEvent(ctx, config.OpsEvent{
		Kind:        "commission.recomputed",
		ReferenceId: period,
		Status:      models.ImportStatusCompleted,
		StatsJSON:   job.StatsJSON,
	}); err != nil {
		config.LogError(logger, "job.go", "RunPeriod", "publishing ops event", period, err)
	}

	return nil
}

func failJob(ctx context.Context, job *models.CommissionJob, cause error) error {
	logger := config.GetLogger()
	job.Status = models.ImportStatusFailed
	job.Error = cause.Error()
	if err := models.SaveCommissionJob(ctx, job); err != nil {
		config.LogError(logger, "job.go", "failJob", "saving failed job", job.JobID, err)
	}
	return cause
}

// loadPeriodInput bulk-preloads everything ComputePeriod needs. All maps are
// per-run snapshots.
func loadPeriodInput(ctx context.Context, period string) (*PeriodInput, error) {
	start, end, ok := PeriodBounds(period)
	if !ok {
		return nil, fmt.Errorf("invalid period %q (want YYYY-MM)", period)
	}

	orders, err := models.ListOrdersInPeriod(ctx, start, end)
	if err != nil {
		return nil, err
	}
	lines, err := models.MapLineItemsByOrder(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := models.MapCustomersById(ctx)
	if err != nil {
		return nil, err
	}
	reps, err := models.MapSalesReps(ctx)
	if err != nil {
		return nil, err
	}
	spiffs, err := models.ListActiveSpiffs(ctx)
	if err != nil {
		return nil, err
	}

	lastBefore, err := lastOrderDatesBefore(ctx, start)
	if err != nil {
		return nil, err
	}

	return &PeriodInput{
		Period:          period,
		Orders:          orders,
		LinesByOrder:    lines,
		Customers:       customers,
		Reps:            reps,
		Spiffs:          spiffs,
		LastOrderBefore: lastBefore,
	}, nil
}

func lastOrderDatesBefore(ctx context.Context, before time.Time) (map[string]*time.Time, error) {
	db := config.GetDB()
	type row struct {
		CustomerID string
		LastDate   time.Time
	}
	var rows []row
	err := db.WithContext(ctx).Model(&models.SalesOrder{}).
		Select("customer_id, MAX(date_issued) AS last_date").
		Where("date_issued < ?", before).
		Group("customer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]*time.Time, len(rows))
	for i := range rows {
		d := rows[i].LastDate
		result[rows[i].CustomerID] = &d
	}
	return result, nil
}

// replacePeriod deletes the period's entries and summaries and writes the
// recomputed set through the batch writer.
func replacePeriod(ctx context.Context, period string, output *PeriodOutput) error {
	db := config.GetDB()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("period = ?", period).Delete(&models.CommissionEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("period = ?", period).Delete(&models.CommissionSummary{}).Error
	})
	if err != nil {
		return err
	}

	batch := models.NewBatchWriter(ctx, db, models.ImportBatchCap)
	for _, entry := range output.Entries {
		row := *entry
		if err := batch.Add(func(tx *gorm.DB) error {
			return tx.Create(&row).Error
		}); err != nil {
			return err
		}
	}
	for _, summary := range output.Summaries {
		row := *summary
		if err := batch.Add(func(tx *gorm.DB) error {
			return tx.Create(&row).Error
		}); err != nil {
			return err
		}
	}
	return batch.Flush()
}
