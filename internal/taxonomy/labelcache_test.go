package taxonomy

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLabelCachePreloadAndMatch(t *testing.T) {
	db := openTestDB(t)
	cache := NewLabelCache(db)
	if err := cache.EnsureSchema(); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := cache.PreloadLabels(KnownLabels()); err != nil {
		t.Fatalf("PreloadLabels() error = %v", err)
	}

	canonical, ok := cache.MatchesLabel("Splice")
	if !ok {
		t.Fatal("expected Splice to be found in the preloaded cache")
	}
	if canonical != "Splice" {
		t.Errorf("MatchesLabel() = %q, want Splice", canonical)
	}

	entries, hits, err := cache.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if entries == 0 {
		t.Error("expected preloaded entries, got 0")
	}
	if hits == 0 {
		t.Error("expected at least one hit after MatchesLabel call")
	}
}

func TestLabelCacheMiss(t *testing.T) {
	db := openTestDB(t)
	cache := NewLabelCache(db)
	if err := cache.EnsureSchema(); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	if _, ok := cache.MatchesLabel("Totally Unknown Label"); ok {
		t.Error("expected no match for an unseeded label")
	}
}
