package coppersync

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
)

// startRun creates the run row and flips it to running.
func startRun(ctx context.Context, direction, triggeredBy string, dryRun bool, parentRunID *uint) (*models.SyncRun, error) {
	db := config.GetDB()
	now := time.Now()
	run := &models.SyncRun{
		Direction:   direction,
		Status:      models.SyncRunStatusRunning,
		TriggeredBy: triggeredBy,
		DryRun:      dryRun,
		ParentRunId: parentRunID,
		StartedAt:   &now,
	}
	if err := db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// finishRun persists the final status and stats. Partial means the run
// completed with per-record errors; Failed means it aborted.
func finishRun(ctx context.Context, run *models.SyncRun, stats models.SyncStats, runErr error) {
	db := config.GetDB()
	logger := config.GetLogger()

	now := time.Now()
	run.FinishedAt = &now
	if run.StartedAt != nil {
		run.DurationMs = now.Sub(*run.StartedAt).Milliseconds()
	}
	run.StatsJSON = models.EncodeSyncStats(stats)
	run.RecordsSynced = stats.Updated + stats.Created + stats.Backfilled
	run.ErrorCount = stats.Errors

	switch {
	case runErr != nil:
		run.Status = models.SyncRunStatusFailed
	case stats.Errors > 0:
		run.Status = models.SyncRunStatusPartial
	default:
		run.Status = models.SyncRunStatusSuccess
	}

	if err := db.WithContext(ctx).Save(run).Error; err != nil {
		config.LogError(logger, "runs.go", "finishRun", "saving sync run", run.ID, err)
	}

	if err := config.PublishOpsEvent(ctx, config.OpsEvent{
		Kind:        "sync.finished",
		ReferenceId: run.Direction,
		Status:      run.Status,
		StatsJSON:   run.StatsJSON,
	}); err != nil {
		config.LogError(logger, "runs.go", "finishRun", "publishing ops event", run.ID, err)
	}
}

// syncErrors buffers per-record failures during a run. Nothing is written
// until persist, so dry runs report errors without leaving rows behind.
type syncErrors struct {
	records []models.SyncErrorRecord
}

func (e *syncErrors) add(stats *models.SyncStats, entityType, entityID, code, message string, retryable bool) {
	stats.Errors++
	e.records = append(e.records, models.SyncErrorRecord{
		EntityType: entityType,
		EntityId:   entityID,
		ErrorCode:  code,
		Message:    message,
		Retryable:  retryable,
	})
}

// persist writes the buffered error rows for a live run.
func (e *syncErrors) persist(ctx context.Context, run *models.SyncRun) {
	if run.DryRun || len(e.records) == 0 {
		return
	}
	db := config.GetDB()
	logger := config.GetLogger()
	for i := range e.records {
		e.records[i].SyncRunId = run.ID
		if err := db.WithContext(ctx).Create(&e.records[i]).Error; err != nil {
			config.LogError(logger, "runs.go", "persist", "saving sync error record", e.records[i].EntityId, err)
		}
	}
}
