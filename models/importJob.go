package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
)

// ImportStats is the counter block carried on progress records and import logs.
type ImportStats struct {
	CustomersCreated  int `json:"customersCreated"`
	CustomersUpdated  int `json:"customersUpdated"`
	OrdersCreated     int `json:"ordersCreated"`
	OrdersUpdated     int `json:"ordersUpdated"`
	LineItemsCreated  int `json:"lineItemsCreated"`
	LineItemsUpdated  int `json:"lineItemsUpdated"`
	LineItemsDeleted  int `json:"lineItemsDeleted"`
	SkippedNoChange   int `json:"skippedNoChange"`
	SkippedRows       int `json:"skippedRows"`
	Warnings          int `json:"warnings"`
}

// ImportProgress is the poll target for a running import, mirrored to redis
// for cheap reads.
type ImportProgress struct {
	FileID     string    `gorm:"primaryKey;size:191" json:"file_id"`
	Status     string    `gorm:"size:20;not null" json:"status"`
	CurrentRow int       `json:"current_row"`
	TotalRows  int       `json:"total_rows"`
	Percentage int       `json:"percentage"`
	StatsJSON  []byte    `gorm:"type:json" json:"stats"`
	Error      string    `gorm:"type:text" json:"error"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *ImportProgress) Stats() ImportStats {
	var stats ImportStats
	if len(p.StatsJSON) > 0 {
		_ = json.Unmarshal(p.StatsJSON, &stats)
	}
	return stats
}

func (p *ImportProgress) SetStats(stats ImportStats) {
	b, _ := json.Marshal(stats)
	p.StatsJSON = b
}

func importProgressRedisKey(fileID string) string {
	return "importProgress:" + fileID
}

// SaveImportProgress upserts the DB row and mirrors it to redis.
func SaveImportProgress(ctx context.Context, progress *ImportProgress) error {
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(progress).Error; err != nil {
		return err
	}
	return config.SetRedisObject(importProgressRedisKey(progress.FileID), progress, time.Hour)
}

// GetImportProgress reads redis first and falls back to the DB row.
func GetImportProgress(ctx context.Context, fileID string) (*ImportProgress, error) {
	var progress ImportProgress
	if found, err := config.GetRedisObject(importProgressRedisKey(fileID), &progress); err == nil && found {
		return &progress, nil
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("file_id = ?", fileID).First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

// ImportChunk is one uploaded part of a chunked import. The row carries the
// bookkeeping; the payload itself lives in object storage under ObjectKey.
type ImportChunk struct {
	ID          string    `gorm:"primaryKey;size:191" json:"id"` // <fileId>_chunk_<index>
	FileID      string    `gorm:"size:191;index;not null" json:"file_id"`
	ChunkIndex  int       `gorm:"not null" json:"chunk_index"`
	TotalChunks int       `gorm:"not null" json:"total_chunks"`
	ObjectKey   string    `gorm:"size:255;not null" json:"object_key"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ImportLog is the permanent record of one completed import run.
type ImportLog struct {
	ID          int       `gorm:"primary_key" json:"id"`
	FileID      string    `gorm:"size:191;index" json:"file_id"`
	Filename    string    `gorm:"size:255" json:"filename"`
	TotalRows   int       `json:"total_rows"`
	StatsJSON   []byte    `gorm:"type:json" json:"stats"`
	DurationMs  int64     `json:"duration_ms"`
	TriggeredBy string    `gorm:"size:100" json:"triggered_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
