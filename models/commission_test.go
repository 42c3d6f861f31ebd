package models

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/utils"
	"github.com/shopspring/decimal"
)

func TestCommissionIDs(t *testing.T) {
	if got := CommissionEntryID("2024-06", "pat", "41876"); got != "commission_2024-06_pat_41876" {
		t.Fatalf("unexpected entry id %q", got)
	}
	if got := CommissionSummaryID("2024-06", "pat"); got != "summary_2024-06_pat" {
		t.Fatalf("unexpected summary id %q", got)
	}
}

func TestSpiffActiveAt(t *testing.T) {
	starts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ends := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	spiff := &Spiff{ProductNumber: "WIDGET-1", Kind: SpiffKindFlat, Value: decimal.NewFromInt(1), StartsAt: &starts, EndsAt: &ends}
	if !spiff.ActiveAt(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("spiff should be active inside its window")
	}
	if spiff.ActiveAt(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("spiff should not be active after its window")
	}
	if spiff.ActiveAt(time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("spiff should not be active before its window")
	}

	spiff.IsActive = utils.NewFalse()
	if spiff.ActiveAt(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("disabled spiff should never be active")
	}

	open := &Spiff{ProductNumber: "WIDGET-2", Kind: SpiffKindFlat, Value: decimal.NewFromInt(1)}
	if !open.ActiveAt(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("spiff without a window should always be active")
	}
}
