package coppersync

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"bitbucket.org/mmdatafocus/salesops_backend/utils"
	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const liveRunLockTTL = 10 * time.Minute

// acquireRunLock takes the per-direction lock for live runs. Dry runs do not
// lock; they write nothing.
func acquireRunLock(ctx context.Context, direction string) (*redislock.Lock, error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, nil
	}
	lock, err := locker.Obtain(ctx, "copperSync:"+direction, liveRunLockTTL, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, errors.New("a live run for this direction is already in progress")
		}
		return nil, err
	}
	return lock, nil
}

func resolveDryRun(c *gin.Context) bool {
	if v, ok := c.GetQuery("dryRun"); ok {
		return v == "1" || v == "true" || v == "yes"
	}
	return config.CopperDryRunDefault()
}

// OrdersSyncHandler triggers a Direction A (CRM→ERP) run.
func OrdersSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.CopperSyncEnabled() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "copper sync is disabled"})
			return
		}
		dryRun := resolveDryRun(c)
		ctx := c.Request.Context()

		api, err := NewClient()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}

		if !dryRun {
			lock, err := acquireRunLock(ctx, models.SyncDirectionCrmToErp)
			if err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			if lock != nil {
				defer lock.Release(context.Background())
			}
		}

		run, err := startRun(ctx, models.SyncDirectionCrmToErp, models.SyncTriggeredManual, dryRun, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		result, runErr := ReconcileOrders(ctx, api, run)
		if result == nil {
			result = &OrdersResult{}
		}
		finishRun(ctx, run, result.Stats, runErr)

		if runErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": runErr.Error(), "runId": run.ID})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"runId":     run.ID,
			"status":    run.Status,
			"dryRun":    dryRun,
			"stats":     result.Stats,
			"decisions": result.Decisions,
			"changes":   result.Changes,
		})
	}
}

// CustomersSyncHandler triggers a Direction B (ERP→CRM) run.
func CustomersSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.CopperSyncEnabled() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "copper sync is disabled"})
			return
		}
		dryRun := resolveDryRun(c)
		createMissing := c.Query("createMissing") == "true" || c.Query("createMissing") == "1"
		ctx := c.Request.Context()

		api, err := NewClient()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}

		if !dryRun {
			lock, err := acquireRunLock(ctx, models.SyncDirectionErpToCrm)
			if err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			if lock != nil {
				defer lock.Release(context.Background())
			}
		}

		run, err := startRun(ctx, models.SyncDirectionErpToCrm, models.SyncTriggeredManual, dryRun, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		result, runErr := ReconcileCustomers(ctx, api, run, createMissing)
		if result == nil {
			result = &CustomersResult{}
		}
		finishRun(ctx, run, result.Stats, runErr)

		if runErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": runErr.Error(), "runId": run.ID})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"runId":   run.ID,
			"status":  run.Status,
			"dryRun":  dryRun,
			"stats":   result.Stats,
			"changes": result.Changes,
		})
	}
}

// RunsHandler lists recent runs, newest first.
func RunsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		runs, err := models.ListSyncRuns(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items := make([]RunResponse, 0, len(runs))
		for _, run := range runs {
			items = append(items, mapRun(run))
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// RunDetailHandler returns one run with stats and error records.
func RunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}
		ctx := c.Request.Context()
		run, err := models.GetSyncRunById(ctx, uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		errorRecords, err := models.ListSyncErrors(ctx, run.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		detail := RunDetailResponse{
			RunResponse: mapRun(run),
			Stats:       models.DecodeSyncStats(run.StatsJSON),
		}
		for _, record := range errorRecords {
			detail.Errors = append(detail.Errors, RunErrorResponse{
				ID:         record.ID,
				EntityType: record.EntityType,
				EntityId:   record.EntityId,
				Message:    record.Message,
				Retryable:  record.Retryable,
			})
		}
		c.JSON(http.StatusOK, detail)
	}
}

// RetryHandler re-runs the direction of a finished run when it carries
// retryable errors. The new run references the original as parent.
func RetryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}
		ctx := c.Request.Context()
		parent, err := models.GetSyncRunById(ctx, uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		errorRecords, err := models.ListSyncErrors(ctx, parent.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		var retryableIds []string
		for _, record := range errorRecords {
			if record.Retryable {
				retryableIds = append(retryableIds, record.EntityId)
			}
		}
		retryableIds = utils.UniqueSlice(retryableIds)
		if len(retryableIds) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "run has no retryable errors"})
			return
		}

		api, err := NewClient()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}

		parentID := parent.ID
		run, err := startRun(ctx, parent.Direction, models.SyncTriggeredRetry, parent.DryRun, &parentID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var stats models.SyncStats
		var runErr error
		switch parent.Direction {
		case models.SyncDirectionCrmToErp:
			var result *OrdersResult
			result, runErr = ReconcileOrders(ctx, api, run)
			if result != nil {
				stats = result.Stats
			}
		case models.SyncDirectionErpToCrm:
			var result *CustomersResult
			result, runErr = ReconcileCustomers(ctx, api, run, false)
			if result != nil {
				stats = result.Stats
			}
		}
		finishRun(ctx, run, stats, runErr)

		if runErr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": runErr.Error(), "runId": run.ID})
			return
		}
		c.JSON(http.StatusOK, TriggerResponse{RunID: run.ID, Status: run.Status, DryRun: run.DryRun})
	}
}

func mapRun(run *models.SyncRun) RunResponse {
	return RunResponse{
		ID:            run.ID,
		Direction:     run.Direction,
		Status:        run.Status,
		DryRun:        run.DryRun,
		TriggeredBy:   run.TriggeredBy,
		StartedAt:     formatTime(run.StartedAt),
		FinishedAt:    formatTime(run.FinishedAt),
		DurationMs:    run.DurationMs,
		RecordsSynced: run.RecordsSynced,
		ErrorCount:    run.ErrorCount,
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
