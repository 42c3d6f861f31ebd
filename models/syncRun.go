package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/utils"
)

// SyncStats is the counter block persisted on a sync run.
type SyncStats struct {
	Scanned      int `json:"scanned"`
	MatchedTier1 int `json:"matchedTier1"`
	MatchedTier2 int `json:"matchedTier2"`
	MatchedTier3 int `json:"matchedTier3"`
	Updated      int `json:"updated"`
	Created      int `json:"created"`
	Backfilled   int `json:"backfilled"`
	Skipped      int `json:"skipped"`
	Unmatched    int `json:"unmatched"`
	Errors       int `json:"errors"`
}

func EncodeSyncStats(stats SyncStats) []byte {
	s, err := utils.MarshalToJSON(stats)
	if err != nil {
		return nil
	}
	return []byte(s)
}

func DecodeSyncStats(raw []byte) SyncStats {
	var stats SyncStats
	if len(raw) > 0 {
		_ = utils.UnmarshalFromJSON(raw, &stats)
	}
	return stats
}

// SyncRun records one reconciliation pass in either direction.
type SyncRun struct {
	ID            uint       `gorm:"primary_key" json:"id"`
	Direction     string     `gorm:"index;size:20;not null" json:"direction"`
	Status        string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy   string     `gorm:"size:20" json:"triggered_by"`
	DryRun        bool       `gorm:"default:false" json:"dry_run"`
	StatsJSON     []byte     `gorm:"type:json" json:"stats"`
	RecordsSynced int        `json:"records_synced"`
	ErrorCount    int        `json:"error_count"`
	ParentRunId   *uint      `gorm:"index" json:"parent_run_id"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	DurationMs    int64      `json:"duration_ms"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// SyncErrorRecord is one per-record failure within a run. Retryable records
// can be re-enqueued via the retry endpoint.
type SyncErrorRecord struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	SyncRunId   uint      `gorm:"index;not null" json:"sync_run_id"`
	EntityType  string    `gorm:"size:50" json:"entity_type"`
	EntityId    string    `gorm:"size:191" json:"entity_id"`
	ErrorCode   string    `gorm:"size:64" json:"error_code"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:json" json:"payload"`
	Retryable   bool      `gorm:"default:false" json:"retryable"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func GetSyncRunById(ctx context.Context, id uint) (*SyncRun, error) {
	db := config.GetDB()
	var run SyncRun
	if err := db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func ListSyncRuns(ctx context.Context, limit int) ([]*SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	db := config.GetDB()
	var runs []*SyncRun
	err := db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func ListSyncErrors(ctx context.Context, runID uint) ([]*SyncErrorRecord, error) {
	db := config.GetDB()
	var records []*SyncErrorRecord
	err := db.WithContext(ctx).Where("sync_run_id = ?", runID).Order("id").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
