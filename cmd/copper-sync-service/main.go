package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/coppersync"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"github.com/sirupsen/logrus"
)

const defaultIntervalMinutes = 60

func main() {
	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	}

	interval := time.Duration(intFromEnv("COPPER_SYNC_INTERVAL_MINUTES", defaultIntervalMinutes)) * time.Minute
	dryRun := strings.EqualFold(strings.TrimSpace(os.Getenv("COPPER_SYNC_DRY_RUN")), "true")

	logger.WithFields(logrus.Fields{
		"field":    "copper-sync-service",
		"interval": interval.String(),
		"dry_run":  dryRun,
	}).Info("starting sync loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run once on startup, then on every tick.
	runCycle(sigCtx, logger, dryRun)
	for {
		select {
		case <-sigCtx.Done():
			logger.WithFields(logrus.Fields{"field": "copper-sync-service"}).Info("shutting down")
			return
		case <-ticker.C:
			runCycle(sigCtx, logger, dryRun)
		}
	}
}

func runCycle(ctx context.Context, logger *logrus.Logger, dryRun bool) {
	if !config.CopperSyncEnabled() {
		logger.WithFields(logrus.Fields{"field": "copper-sync-service"}).Warn("copper sync is disabled; skipping cycle")
		return
	}
	for _, direction := range []string{models.SyncDirectionCrmToErp, models.SyncDirectionErpToCrm} {
		run, stats, err := coppersync.RunScheduled(ctx, direction, dryRun)
		if err != nil {
			config.LogError(logger, "main.go", "runCycle", "scheduled sync failed", direction, err)
			continue
		}
		logger.WithFields(logrus.Fields{
			"field":     "copper-sync-service",
			"direction": direction,
			"run_id":    run.ID,
			"status":    run.Status,
			"scanned":   stats.Scanned,
			"updated":   stats.Updated,
			"errors":    stats.Errors,
		}).Info("sync cycle finished")
	}
}

func intFromEnv(key string, def int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
