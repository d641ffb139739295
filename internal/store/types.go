// Package store persists indexed documents in SQLite using an explicit
// inverted index (postings table) and scores matches with BM25 computed over
// that index. Keeping scoring in Go means the k1/b parameters stay
// configurable and scores are higher-is-better by construction.
package store

import "time"

// Col selects which term column a posting belongs to.
type Col string

const (
	// ColStem is the stemmed column for Latin-script matching.
	ColStem Col = "stem"

	// ColSeg is the segmented column for CJK matching.
	ColSeg Col = "seg"
)

// Config configures a Store.
type Config struct {
	// Path is the database file path. Empty means an in-memory database,
	// used by tests; in-memory stores take no directory lock.
	Path string

	// LockPath is the advisory lock file guarding the store directory.
	// Empty disables locking.
	LockPath string

	// BM25K1 and BM25B are the ranking parameters.
	BM25K1 float64
	BM25B  float64
}

// DocMeta is the per-document index metadata keyed by content hash.
type DocMeta struct {
	Hash       string
	Name       string
	Path       string
	MediaType  string
	SizeBytes  int64
	ChunkCount int
	TokenCount int
	IndexedAt  time.Time
}

// Stale reports whether the index entry is older than threshold at now.
func (m *DocMeta) Stale(threshold time.Duration, now time.Time) bool {
	return now.Sub(m.IndexedAt) > threshold
}

// ChunkTokens is one chunk prepared for insertion: its display text plus the
// two token projections.
type ChunkTokens struct {
	UnitLabel string
	Offset    int
	Text      string
	Stem      []string
	Seg       []string
}

// Hit is one scored search result. Score is a BM25 score where higher means
// more relevant.
type Hit struct {
	Hash      string
	ChunkID   int
	Score     float64
	Text      string
	UnitLabel string
	Offset    int
	DocName   string
}

// Stats summarizes store contents. DocumentBytes sums the indexed source
// files' sizes; SizeBytes is the index database file itself (zero for an
// in-memory store).
type Stats struct {
	DocumentCount int
	ChunkCount    int
	TokenCount    int64
	TermCount     int
	DocumentBytes int64
	SizeBytes     int64
	OldestIndexed time.Time
	NewestIndexed time.Time
}
