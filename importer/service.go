package importer

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
)

// ImportRequest is one whole-file import.
type ImportRequest struct {
	FileID      string
	Filename    string
	Data        []byte
	TriggeredBy string
}

// RunImport executes the full pipeline: read, resolve headers, preflight,
// group, bulk-preload, upsert, log. Progress is kept current throughout so
// the poll endpoint always has something to serve.
func RunImport(ctx context.Context, req ImportRequest) (*models.ImportStats, error) {
	logger := config.GetLogger()
	startedAt := time.Now()

	progress := &models.ImportProgress{
		FileID: req.FileID,
		Status: models.ImportStatusProcessing,
	}
	if err := models.SaveImportProgress(ctx, progress); err != nil {
		config.LogError(logger, "service.go", "RunImport", "creating progress record", req.FileID, err)
	}

	result, err := parseUpload(req.Filename, req.Data)
	if err != nil {
		return nil, failImport(ctx, progress, err)
	}
	progress.TotalRows = result.TotalRows
	if err := models.SaveImportProgress(ctx, progress); err != nil {
		config.LogError(logger, "service.go", "RunImport", "saving total rows", req.FileID, err)
	}

	snap, err := loadSnapshot(ctx)
	if err != nil {
		return nil, failImport(ctx, progress, err)
	}

	stats, err := upsertParsed(ctx, req.FileID, result, snap, progress)
	if err != nil {
		return nil, failImport(ctx, progress, err)
	}

	progress.Status = models.ImportStatusCompleted
	progress.CurrentRow = result.TotalRows
	progress.Percentage = 100
	progress.SetStats(stats)
	if err := models.SaveImportProgress(ctx, progress); err != nil {
		config.LogError(logger, "service.go", "RunImport", "finalizing progress", req.FileID, err)
	}

	logRow := models.ImportLog{
		FileID:      req.FileID,
		Filename:    req.Filename,
		TotalRows:   result.TotalRows,
		StatsJSON:   progress.StatsJSON,
		DurationMs:  time.Since(startedAt).Milliseconds(),
		TriggeredBy: req.TriggeredBy,
	}
	if err := config.GetDB().WithContext(ctx).Create(&logRow).Error; err != nil {
		config.LogError(logger, "service.go", "RunImport", "writing import log", req.FileID, err)
	}

	if err := config.PublishOpsEvent(ctx, config.OpsEvent{
		Kind:        "import.completed",
		ReferenceId: req.FileID,
		Status:      models.ImportStatusCompleted,
		StatsJSON:   progress.StatsJSON,
	}); err != nil {
		config.LogError(logger, "service.go", "RunImport", "publishing ops event", req.FileID, err)
	}

	return &stats, nil
}

// parseUpload is the pure front half of an import: read the grid, resolve
// headers, preflight, group. A preflight failure returns before any row is
// touched, so the caller has nothing to write.
func parseUpload(filename string, data []byte) (*ParseResult, error) {
	rows, err := ReadRows(filename, data)
	if err != nil {
		return nil, err
	}
	hm := ResolveHeaders(rows[0])
	if err := hm.Preflight(); err != nil {
		return nil, err
	}
	return GroupRows(hm, rows), nil
}

func failImport(ctx context.Context, progress *models.ImportProgress, cause error) error {
	logger := config.GetLogger()
	progress.Status = models.ImportStatusFailed
	progress.Error = cause.Error()
	if err := models.SaveImportProgress(ctx, progress); err != nil {
		config.LogError(logger, "service.go", "failImport", "saving failed progress", progress.FileID, err)
	}
	return cause
}
