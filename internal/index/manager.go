// Package index manages document index lifecycle: content-hash identity,
// idempotent ensure-indexed, staleness-driven rebuilds, orphan cleanup, and
// age-based garbage collection.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/docyard/docfind/internal/chunker"
	"github.com/docyard/docfind/internal/config"
	"github.com/docyard/docfind/internal/errors"
	"github.com/docyard/docfind/internal/extract"
	"github.com/docyard/docfind/internal/store"
	"github.com/docyard/docfind/internal/tokenizer"
)

// metaCacheSize bounds the in-process metadata cache. Entries are small;
// this covers any realistic working set.
const metaCacheSize = 1024

// Status reports what EnsureIndexed did.
type Status string

const (
	// StatusIndexed means the document was indexed for the first time.
	StatusIndexed Status = "indexed"

	// StatusSkipped means a fresh index entry already existed.
	StatusSkipped Status = "skipped"

	// StatusRefreshed means a stale entry was rebuilt.
	StatusRefreshed Status = "refreshed"
)

// Result is the outcome of EnsureIndexed.
type Result struct {
	Meta   *store.DocMeta
	Status Status
}

// Manager coordinates extraction, chunking, tokenization, and the store.
// Safe for concurrent use: concurrent EnsureIndexed calls for the same
// content hash collapse into a single indexing pass.
type Manager struct {
	store      *store.Store
	extractors []extract.Extractor
	chunker    *chunker.Chunker
	tok        *tokenizer.Tokenizer
	cache      *lru.Cache[string, *store.DocMeta]
	flight     singleflight.Group
	stale      time.Duration
	scope      string
	log        *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New constructs a Manager from configuration and an opened store.
func New(cfg *config.Config, st *store.Store, log *slog.Logger) (*Manager, error) {
	ch, err := chunker.New(chunker.Config{
		MaxSize:     cfg.ChunkMaxSize,
		MinSize:     cfg.ChunkMinSize,
		Overlap:     cfg.ChunkOverlap,
		Terminators: cfg.SentenceTerminators,
	})
	if err != nil {
		return nil, err
	}

	tok, err := tokenizer.New(tokenizer.Config{
		UseCJKSegmentation: cfg.UseCJKSegmentation,
		RemoveStopwords:    cfg.RemoveStopwords,
		ExtraEnglish:       cfg.Stopwords.English,
		ExtraChinese:       cfg.Stopwords.Chinese,
	})
	if err != nil {
		return nil, err
	}

	cache, err := lru.New[string, *store.DocMeta](metaCacheSize)
	if err != nil {
		return nil, errors.InternalError("failed to create metadata cache", err)
	}

	return &Manager{
		store:      st,
		extractors: []extract.Extractor{extract.NewTextExtractor()},
		chunker:    ch,
		tok:        tok,
		cache:      cache,
		stale:      cfg.StaleThreshold(),
		scope:      cfg.OrphanScope,
		log:        log,
		now:        time.Now,
	}, nil
}

// RegisterExtractor adds a format-specific extractor. Extractors are probed
// in registration order; the built-in text extractor is probed last.
func (m *Manager) RegisterExtractor(e extract.Extractor) {
	m.extractors = append([]extract.Extractor{e}, m.extractors...)
}

// Store exposes the underlying store for search and stats.
func (m *Manager) Store() *store.Store {
	return m.store
}

// Tokenizer exposes the tokenizer so queries use the same projections as
// indexing.
func (m *Manager) Tokenizer() *tokenizer.Tokenizer {
	return m.tok
}

// EnsureIndexed makes sure the file at path is indexed and fresh, and
// returns its index metadata. Identity is the SHA-256 of the file content:
// unchanged content is never re-extracted, changed content gets a new entry
// and older generations of the same logical name are removed.
func (m *Manager) EnsureIndexed(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound,
				fmt.Sprintf("file not found: %s", path), err)
		}
		return nil, errors.New(errors.ErrCodeFileNotFound,
			fmt.Sprintf("failed to read file: %s", path), err)
	}

	hash := hashContent(data)

	if meta, ok := m.cache.Get(hash); ok && !meta.Stale(m.stale, m.now()) {
		return &Result{Meta: meta, Status: StatusSkipped}, nil
	}

	v, err, _ := m.flight.Do(hash, func() (any, error) {
		return m.ensure(ctx, path, hash, data)
	})
	if err != nil {
		return nil, err
	}

	res := v.(*Result)
	m.cache.Add(hash, res.Meta)
	return res, nil
}

func (m *Manager) ensure(ctx context.Context, path, hash string, data []byte) (*Result, error) {
	existing, err := m.store.Exists(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.Stale(m.stale, m.now()) {
		return &Result{Meta: existing, Status: StatusSkipped}, nil
	}

	status := StatusIndexed
	if existing != nil {
		status = StatusRefreshed
		m.log.Info("index entry stale, rebuilding",
			"hash", shortHash(hash), "indexed_at", existing.IndexedAt)
	}

	meta, err := m.buildIndex(ctx, path, hash, data)
	if err != nil {
		return nil, err
	}

	if err := m.cleanupOrphans(ctx, meta.Name, hash); err != nil {
		// The new entry is committed; orphan cleanup failing only leaves
		// extra rows behind for the next pass.
		m.log.Warn("orphan cleanup failed", "name", meta.Name, "error", err)
	}

	return &Result{Meta: meta, Status: status}, nil
}

// buildIndex extracts, chunks, tokenizes, and writes the document in one
// store transaction. Transactional write failures are retried once.
func (m *Manager) buildIndex(ctx context.Context, path, hash string, data []byte) (*store.DocMeta, error) {
	start := m.now()
	ext := strings.ToLower(filepath.Ext(path))

	extractor := m.extractorFor(ext)
	if extractor == nil {
		return nil, errors.ExtractionError(
			fmt.Sprintf("no extractor for file type: %s", ext), nil)
	}

	units, err := extractor.Extract(path)
	if err != nil {
		return nil, err
	}

	var chunks []store.ChunkTokens
	for _, unit := range units {
		for _, span := range m.chunker.SplitUnit(unit.Text) {
			chunks = append(chunks, store.ChunkTokens{
				UnitLabel: unit.Label(),
				Offset:    span.Offset,
				Text:      span.Text,
				Stem:      m.tok.Stemmed(span.Text),
				Seg:       m.tok.Segmented(span.Text),
			})
		}
	}
	if len(chunks) == 0 {
		return nil, errors.ExtractionError(
			fmt.Sprintf("%s produced no indexable text", path), nil)
	}

	meta := store.DocMeta{
		Hash:      hash,
		Name:      m.logicalName(path),
		Path:      path,
		MediaType: extract.MediaType(ext),
		SizeBytes: int64(len(data)),
		IndexedAt: m.now().UTC(),
	}

	err = errors.Retry(ctx, errors.WriteRetryConfig(), func() error {
		return m.store.InsertDocument(ctx, meta, chunks)
	})
	if err != nil {
		return nil, err
	}

	stored, err := m.store.Exists(ctx, hash)
	if err != nil {
		return nil, err
	}

	m.log.Info("document indexed",
		"name", meta.Name,
		"hash", shortHash(hash),
		"chunks", stored.ChunkCount,
		"tokens", stored.TokenCount,
		"duration", m.now().Sub(start).Round(time.Millisecond))
	return stored, nil
}

// cleanupOrphans removes index entries that share the new entry's logical
// name but hold a different content hash. Because names are scoped, cleanup
// never touches documents indexed under another scope.
func (m *Manager) cleanupOrphans(ctx context.Context, name, keepHash string) error {
	same, err := m.store.FindByName(ctx, name)
	if err != nil {
		return err
	}
	for _, doc := range same {
		if doc.Hash == keepHash {
			continue
		}
		if _, err := m.store.DeleteDocument(ctx, doc.Hash); err != nil {
			return err
		}
		m.cache.Remove(doc.Hash)
		m.log.Info("orphan index removed", "name", name, "hash", shortHash(doc.Hash))
	}
	return nil
}

// RemoveByName deletes every index entry for the file's logical name.
// Used when a watched file is deleted. Returns the number of entries
// removed; removing a never-indexed file is not an error.
func (m *Manager) RemoveByName(ctx context.Context, path string) (int, error) {
	name := m.logicalName(path)
	docs, err := m.store.FindByName(ctx, name)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, doc := range docs {
		deleted, err := m.store.DeleteDocument(ctx, doc.Hash)
		if err != nil {
			return removed, err
		}
		m.cache.Remove(doc.Hash)
		if deleted {
			removed++
		}
	}
	if removed > 0 {
		m.log.Info("document removed from index", "name", name, "entries", removed)
	}
	return removed, nil
}

// CleanupOlderThan deletes index entries older than the given age. The pass
// is idempotent and stops early when ctx is cancelled; entries deleted
// before cancellation stay deleted.
func (m *Manager) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := m.now().Add(-age)
	docs, err := m.store.ListOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return removed, errors.InternalError("cleanup interrupted", err)
		}
		deleted, err := m.store.DeleteDocument(ctx, doc.Hash)
		if err != nil {
			return removed, err
		}
		m.cache.Remove(doc.Hash)
		if deleted {
			removed++
			m.log.Info("expired index removed",
				"name", doc.Name, "hash", shortHash(doc.Hash), "indexed_at", doc.IndexedAt)
		}
	}
	return removed, nil
}

// Stats returns store-wide statistics.
func (m *Manager) Stats(ctx context.Context) (*store.Stats, error) {
	return m.store.Stats(ctx)
}

// extractorFor returns the first registered extractor supporting ext.
func (m *Manager) extractorFor(ext string) extract.Extractor {
	for _, e := range m.extractors {
		if e.Supports(ext) {
			return e
		}
	}
	return nil
}

// logicalName maps a file path to its logical document name. The global
// scope uses the bare filename; any other scope prefixes it, which keeps
// orphan cleanup confined to that scope.
func (m *Manager) logicalName(path string) string {
	name := filepath.Base(path)
	if m.scope != config.OrphanScopeGlobal {
		return m.scope + "/" + name
	}
	return name
}

// HashFile returns the content hash for the file at path.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.New(errors.ErrCodeFileNotFound,
			fmt.Sprintf("failed to read file: %s", path), err)
	}
	return hashContent(data), nil
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
