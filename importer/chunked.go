package importer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"bitbucket.org/mmdatafocus/salesops_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
)

// Partial chunk sets older than this are abandoned uploads.
const staleChunkAge = 24 * time.Hour

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// ChunkRequest is one part of a chunked upload. Payload is base64 so JSON
// clients can post binary xlsx content.
type ChunkRequest struct {
	FileID      string `json:"fileId" binding:"required"`
	Filename    string `json:"filename"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks" binding:"required"`
	Payload     string `json:"payload" binding:"required"`
}

func chunkID(fileID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", fileID, index)
}

func chunkObjectKey(fileID string, index int) string {
	return fmt.Sprintf("imports/chunks/%s", chunkID(fileID, index))
}

// StoreChunk persists one chunk part: payload to object storage, bookkeeping
// row to the DB. Returns true when this part completed the set.
func StoreChunk(ctx context.Context, req ChunkRequest) (bool, error) {
	data, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		return false, fmt.Errorf("invalid chunk payload: %w", err)
	}

	if req.ChunkIndex == 0 {
		cleanupStaleChunks(ctx)
	}

	objectKey := chunkObjectKey(req.FileID, req.ChunkIndex)
	if err := utils.UploadObjectToGCS(ctx, objectKey, "application/octet-stream", data); err != nil {
		return false, err
	}

	db := config.GetDB()
	chunk := models.ImportChunk{
		ID:          chunkID(req.FileID, req.ChunkIndex),
		FileID:      req.FileID,
		ChunkIndex:  req.ChunkIndex,
		TotalChunks: req.TotalChunks,
		ObjectKey:   objectKey,
		Size:        len(data),
	}
	// Retried uploads can race on the first insert of the same chunk row.
	if err := db.WithContext(ctx).Save(&chunk).Error; err != nil && !isDuplicateKeyErr(err) {
		return false, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.ImportChunk{}).
		Where("file_id = ?", req.FileID).Count(&count).Error; err != nil {
		return false, err
	}
	return int(count) >= req.TotalChunks, nil
}

// cleanupStaleChunks drops chunk parts whose set never completed. Failures
// are logged and ignored; a stale part never blocks a fresh upload.
func cleanupStaleChunks(ctx context.Context) {
	db := config.GetDB()
	logger := config.GetLogger()
	cutoff := time.Now().Add(-staleChunkAge)

	var stale []models.ImportChunk
	if err := db.WithContext(ctx).Where("created_at < ?", cutoff).Find(&stale).Error; err != nil {
		config.LogError(logger, "chunked.go", "cleanupStaleChunks", "listing stale chunks", nil, err)
		return
	}
	if len(stale) == 0 {
		return
	}
	for _, chunk := range stale {
		if err := utils.DeleteObjectFromGCS(ctx, chunk.ObjectKey); err != nil {
			config.LogError(logger, "chunked.go", "cleanupStaleChunks", "deleting chunk object", chunk.ObjectKey, err)
		}
	}
	if err := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ImportChunk{}).Error; err != nil {
		config.LogError(logger, "chunked.go", "cleanupStaleChunks", "deleting stale chunk rows", nil, err)
	}
}

// ReassembleChunks concatenates the stored parts in index order and deletes
// them once the whole payload is rebuilt.
func ReassembleChunks(ctx context.Context, fileID string) ([]byte, error) {
	db := config.GetDB()
	var chunks []models.ImportChunk
	if err := db.WithContext(ctx).Where("file_id = ?", fileID).Find(&chunks).Error; err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })

	total := chunks[0].TotalChunks
	if len(chunks) < total {
		return nil, fmt.Errorf("chunk set incomplete: have %d of %d", len(chunks), total)
	}

	var data []byte
	for _, chunk := range chunks {
		part, err := utils.DownloadObjectFromGCS(ctx, chunk.ObjectKey)
		if err != nil {
			return nil, fmt.Errorf("chunk %d read failed: %w", chunk.ChunkIndex, err)
		}
		data = append(data, part...)
	}

	logger := config.GetLogger()
	for _, chunk := range chunks {
		if err := utils.DeleteObjectFromGCS(ctx, chunk.ObjectKey); err != nil {
			config.LogError(logger, "chunked.go", "ReassembleChunks", "deleting chunk object", chunk.ObjectKey, err)
		}
	}
	if err := db.WithContext(ctx).Where("file_id = ?", fileID).Delete(&models.ImportChunk{}).Error; err != nil {
		config.LogError(logger, "chunked.go", "ReassembleChunks", "deleting chunk rows", fileID, err)
	}

	return data, nil
}
