package coppersync

import (
	"context"

	"bitbucket.org/mmdatafocus/salesops_backend/models"
)

// RunScheduled executes one reconciliation pass for a direction. It is the
// entry point for the interval service; runs are recorded the same way as
// manually triggered ones.
func RunScheduled(ctx context.Context, direction string, dryRun bool) (*models.SyncRun, models.SyncStats, error) {
	api, err := NewClient()
	if err != nil {
		return nil, models.SyncStats{}, err
	}

	if !dryRun {
		lock, err := acquireRunLock(ctx, direction)
		if err != nil {
			return nil, models.SyncStats{}, err
		}
		if lock != nil {
			defer lock.Release(context.Background())
		}
	}

	run, err := startRun(ctx, direction, models.SyncTriggeredSystem, dryRun, nil)
	if err != nil {
		return nil, models.SyncStats{}, err
	}

	var stats models.SyncStats
	var runErr error
	switch direction {
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
	return run, stats, runErr
}
