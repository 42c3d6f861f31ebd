package models

import "testing"

func TestSyncStatsRoundTrip(t *testing.T) {
	stats := SyncStats{
		Scanned:      10,
		MatchedTier1: 3,
		MatchedTier2: 2,
		MatchedTier3: 1,
		Updated:      4,
		Backfilled:   2,
		Unmatched:    4,
		Errors:       1,
	}
	decoded := DecodeSyncStats(EncodeSyncStats(stats))
	if decoded != stats {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, stats)
	}
}

func TestDecodeSyncStats_EmptyAndGarbage(t *testing.T) {
	if got := DecodeSyncStats(nil); got != (SyncStats{}) {
		t.Fatalf("nil payload should decode to zero stats, got %+v", got)
	}
	if got := DecodeSyncStats([]byte("not json")); got != (SyncStats{}) {
		t.Fatalf("garbage payload should decode to zero stats, got %+v", got)
	}
}
