package taxonomy

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/franz/sample-organizer/internal/util"
)

// LabelCache is an offline, sqlite-backed registry of known sample-label
// names (e.g. "Cymatics", "Splice", "Black Octopus Sound"). It is
// preloaded from the bundled known-labels list and never calls out to a
// network service — the teacher's MusicBrainz-backed artist cache used an
// HTTP API for the equivalent lookup, which spec.md's Non-goals rule out
// for this domain ("cross-host networking").
type LabelCache struct {
	db *sql.DB
}

// CachedLabel is a single known-label entry.
type CachedLabel struct {
	SearchName    string
	CanonicalName string
	HitCount      int
	CachedAt      time.Time
}

// NewLabelCache wraps a database connection with label-registry lookups.
func NewLabelCache(db *sql.DB) *LabelCache {
	return &LabelCache{db: db}
}

// EnsureSchema creates the label cache table if it doesn't exist.
func (c *LabelCache) EnsureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS label_registry (
		search_name TEXT PRIMARY KEY,
		canonical_name TEXT NOT NULL,
		cached_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		hit_count INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_label_canonical ON label_registry(canonical_name);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create label_registry table: %w", err)
	}
	return nil
}

// MatchesLabel reports whether name corresponds to a known label, and if
// so returns its canonical spelling. It checks the registry cache first;
// callers seed the registry via PreloadLabels at startup from the
// taxonomy's static known-label list.
func (c *LabelCache) MatchesLabel(name string) (canonical string, ok bool) {
	searchKey := strings.ToLower(strings.TrimSpace(name))
	cached, err := c.getFromCache(searchKey)
	if err != nil || cached == nil {
		return "", false
	}
	c.incrementHitCount(searchKey)
	return cached.CanonicalName, true
}

func (c *LabelCache) getFromCache(searchName string) (*CachedLabel, error) {
	var cached CachedLabel
	err := c.db.QueryRow(`
		SELECT canonical_name, hit_count, cached_at FROM label_registry WHERE search_name = ?
	`, searchName).Scan(&cached.CanonicalName, &cached.HitCount, &cached.CachedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query label registry: %w", err)
	}
	cached.SearchName = searchName
	return &cached, nil
}

func (c *LabelCache) incrementHitCount(searchName string) {
	_, err := c.db.Exec(`UPDATE label_registry SET hit_count = hit_count + 1 WHERE search_name = ?`, searchName)
	if err != nil {
		util.DebugLog("failed to increment label hit count: %v", err)
	}
}

// PreloadLabels seeds the registry with the taxonomy's known-label list.
// Entries already present are left untouched so hit counts survive
// repeated runs.
func (c *LabelCache) PreloadLabels(labels []string) error {
	for _, name := range labels {
		searchKey := strings.ToLower(strings.TrimSpace(name))
		_, err := c.db.Exec(`
			INSERT OR IGNORE INTO label_registry (search_name, canonical_name) VALUES (?, ?)
		`, searchKey, name)
		if err != nil {
			return fmt.Errorf("failed to preload label %q: %w", name, err)
		}
	}
	return nil
}

// GetStats returns registry statistics.
func (c *LabelCache) GetStats() (entries int, totalHits int64, err error) {
	err = c.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM label_registry`).Scan(&entries, &totalHits)
	return
}

// ClearCache removes all cached entries.
func (c *LabelCache) ClearCache() error {
	_, err := c.db.Exec("DELETE FROM label_registry")
	return err
}
