package config

import (
	"os"
	"strings"
)

// Merge policies for the tabular import upserter.
//
// - "change-aware" (default): records are written only when a tracked field
//   actually differs from the stored row.
// - "always-write": every parsed record is written unconditionally.
//
// Set via env:
// - IMPORT_MERGE_POLICY=change-aware|always-write
const (
	MergePolicyChangeAware = "change-aware"
	MergePolicyAlwaysWrite = "always-write"
)

func ImportMergePolicy() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("IMPORT_MERGE_POLICY")))
	if v == MergePolicyAlwaysWrite {
		return MergePolicyAlwaysWrite
	}
	return MergePolicyChangeAware
}

// CopperSyncEnabled gates the Copper reconciliation endpoints and the
// background sync service loop.
//
// Set via env:
// - COPPER_SYNC_ENABLED=true
func CopperSyncEnabled() bool {
	return boolFromEnv("COPPER_SYNC_ENABLED")
}

// CopperDryRunDefault makes reconciliation runs default to dry-run when the
// caller does not pass an explicit dryRun flag.
//
// Set via env:
// - COPPER_DRY_RUN_DEFAULT=true
func CopperDryRunDefault() bool {
	return boolFromEnv("COPPER_DRY_RUN_DEFAULT")
}

// OpsEventsEnabled gates publishing of import/commission completion events
// to Pub/Sub. When off, PublishOpsEvent is a no-op.
//
// Set via env:
// - OPS_EVENTS_ENABLED=true
func OpsEventsEnabled() bool {
	return boolFromEnv("OPS_EVENTS_ENABLED")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
