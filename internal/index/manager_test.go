package index

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docyard/docfind/internal/config"
	"github.com/docyard/docfind/internal/errors"
	"github.com/docyard/docfind/internal/extract"
	"github.com/docyard/docfind/internal/store"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.UseCJKSegmentation = false
	cfg.ChunkMaxSize = 100
	cfg.ChunkMinSize = 10
	cfg.ChunkOverlap = 20
	return cfg
}

func newTestManager(t *testing.T, cfg *config.Config) *Manager {
	t.Helper()
	st, err := store.Open(store.Config{BM25K1: cfg.BM25K1, BM25B: cfg.BM25B})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := New(cfg, st, log)
	require.NoError(t, err)
	return m
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEnsureIndexedNewDocument(t *testing.T) {
	m := newTestManager(t, testConfig())
	dir := t.TempDir()
	path := writeFile(t, dir, "report.txt", "Quarterly revenue grew by twelve percent this year.")

	res, err := m.EnsureIndexed(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StatusIndexed, res.Status)
	assert.Equal(t, "report.txt", res.Meta.Name)
	assert.Equal(t, 64, len(res.Meta.Hash))
	assert.Equal(t, 1, res.Meta.ChunkCount)
	assert.NotZero(t, res.Meta.TokenCount)
}

func TestEnsureIndexedIsIdempotent(t *testing.T) {
	m := newTestManager(t, testConfig())
	dir := t.TempDir()
	path := writeFile(t, dir, "report.txt", "Stable content that does not change.")

	first, err := m.EnsureIndexed(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, StatusIndexed, first.Status)

	second, err := m.EnsureIndexed(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, second.Status)
	assert.Equal(t, first.Meta.Hash, second.Meta.Hash)
	assert.Equal(t, first.Meta.IndexedAt, second.Meta.IndexedAt)
}

// gatedExtractor counts Extract calls and holds them until the gate opens,
// so concurrent EnsureIndexed callers pile up on the same in-flight build.
type gatedExtractor struct {
	inner *extract.TextExtractor
	gate  chan struct{}
	calls atomic.Int32
}

func (g *gatedExtractor) Supports(ext string) bool { return g.inner.Supports(ext) }

func (g *gatedExtractor) Extract(path string) ([]extract.Unit, error) {
	g.calls.Add(1)
	<-g.gate
	return g.inner.Extract(path)
}

func TestEnsureIndexedConcurrentCallsCollapse(t *testing.T) {
	m := newTestManager(t, testConfig())
	dir := t.TempDir()
	path := writeFile(t, dir, "report.txt", "Contended content indexed exactly once.")

	ge := &gatedExtractor{inner: extract.NewTextExtractor(), gate: make(chan struct{})}
	m.RegisterExtractor(ge)

	const callers = 8
	var wg sync.WaitGroup
	hashes := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := m.EnsureIndexed(context.Background(), path)
			if err != nil {
				errs[i] = err
				return
			}
			hashes[i] = res.Meta.Hash
		}(i)
	}

	// Let the callers gather behind the in-flight build, then release it.
	time.Sleep(50 * time.Millisecond)
	close(ge.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, hashes[0], hashes[i])
	}
	assert.Equal(t, int32(1), ge.calls.Load())
}

func TestEnsureIndexedSameContentDifferentPath(t *testing.T) {
	m := newTestManager(t, testConfig())
	dir := t.TempDir()
	p1 := writeFile(t, dir, "one.txt", "Identical bytes in both files.")
	p2 := writeFile(t, dir, "two.txt", "Identical bytes in both files.")

	r1, err := m.EnsureIndexed(context.Background(), p1)
	require.NoError(t, err)
	r2, err := m.EnsureIndexed(context.Background(), p2)
	require.NoError(t, err)

	// Content hash identity: the second file reuses the first entry.
	assert.Equal(t, r1.Meta.Hash, r2.Meta.Hash)
	assert.Equal(t, StatusSkipped, r2.Status)
}

func TestEnsureIndexedReplacesOrphans(t *testing.T) {
	m := newTestManager(t, testConfig())
	dir := t.TempDir()
	path := writeFile(t, dir, "report.txt", "Original content version one here.")

	r1, err := m.EnsureIndexed(context.Background(), path)
	require.NoError(t, err)

	// Same logical file, new content: new hash, old generation removed.
	writeFile(t, dir, "report.txt", "Rewritten content version two here.")
	r2, err := m.EnsureIndexed(context.Background(), path)
	require.NoError(t, err)
	require.NotEqual(t, r1.Meta.Hash, r2.Meta.Hash)
	assert.Equal(t, StatusIndexed, r2.Status)

	old, err := m.Store().Exists(context.Background(), r1.Meta.Hash)
	require.NoError(t, err)
	assert.Nil(t, old)

	byName, err := m.Store().FindByName(context.Background(), "report.txt")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, r2.Meta.Hash, byName[0].Hash)
}

func TestEnsureIndexedStaleRefresh(t *testing.T) {
	m := newTestManager(t, testConfig())
	dir := t.TempDir()
	path := writeFile(t, dir, "report.txt", "Content that will go stale.")

	_, err := m.EnsureIndexed(context.Background(), path)
	require.NoError(t, err)

	// Move the clock past the staleness threshold.
	m.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	res, err := m.EnsureIndexed(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, StatusRefreshed, res.Status)
}

func TestEnsureIndexedMissingFile(t *testing.T) {
	m := newTestManager(t, testConfig())

	_, err := m.EnsureIndexed(context.Background(), filepath.Join(t.TempDir(), "ghost.txt"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.GetCode(err))
}

func TestEnsureIndexedUnsupportedType(t *testing.T) {
	m := newTestManager(t, testConfig())
	dir := t.TempDir()
	path := writeFile(t, dir, "image.png", "not really an image")

	_, err := m.EnsureIndexed(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExtractFailed, errors.GetCode(err))
}

func TestScopedLogicalNames(t *testing.T) {
	cfg := testConfig()
	cfg.OrphanScope = "team-a"
	m := newTestManager(t, cfg)
	dir := t.TempDir()
	path := writeFile(t, dir, "report.txt", "Scoped content here.")

	res, err := m.EnsureIndexed(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "team-a/report.txt", res.Meta.Name)
}

func TestRemoveByName(t *testing.T) {
	m := newTestManager(t, testConfig())
	dir := t.TempDir()
	path := writeFile(t, dir, "report.txt", "Content to be removed later.")

	_, err := m.EnsureIndexed(context.Background(), path)
	require.NoError(t, err)

	removed, err := m.RemoveByName(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Removing a never-indexed file is not an error.
	removed, err = m.RemoveByName(context.Background(), filepath.Join(dir, "other.txt"))
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCleanupOlderThan(t *testing.T) {
	m := newTestManager(t, testConfig())
	dir := t.TempDir()
	p1 := writeFile(t, dir, "old.txt", "This entry will expire.")
	p2 := writeFile(t, dir, "new.txt", "This entry stays fresh.")

	_, err := m.EnsureIndexed(context.Background(), p1)
	require.NoError(t, err)

	// Index the second document two days later.
	m.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = m.EnsureIndexed(context.Background(), p2)
	require.NoError(t, err)

	removed, err := m.CleanupOlderThan(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Idempotent: a second pass removes nothing.
	removed, err = m.CleanupOlderThan(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	st, err := m.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.DocumentCount)
}

func TestCleanupInterruptedByContext(t *testing.T) {
	m := newTestManager(t, testConfig())
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.txt", "Some content to index now.")

	_, err := m.EnsureIndexed(context.Background(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = m.CleanupOlderThan(ctx, time.Hour)
	require.Error(t, err)
}
