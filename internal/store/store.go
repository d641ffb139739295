package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/docyard/docfind/internal/errors"
)

// Store is a SQLite-backed inverted index. Safe for concurrent use; SQLite
// serializes writers and WAL mode lets readers proceed during writes.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	path string
	k1   float64
	b    float64
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	hash        TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	path        TEXT NOT NULL,
	media_type  TEXT NOT NULL,
	size_bytes  INTEGER NOT NULL,
	chunk_count INTEGER NOT NULL,
	token_count INTEGER NOT NULL,
	indexed_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_name ON documents(name);

CREATE TABLE IF NOT EXISTS chunks (
	hash        TEXT NOT NULL REFERENCES documents(hash) ON DELETE CASCADE,
	chunk_id    INTEGER NOT NULL,
	unit_label  TEXT NOT NULL,
	unit_offset INTEGER NOT NULL,
	text        TEXT NOT NULL,
	stem_len    INTEGER NOT NULL,
	seg_len     INTEGER NOT NULL,
	PRIMARY KEY (hash, chunk_id)
);

CREATE TABLE IF NOT EXISTS postings (
	term     TEXT NOT NULL,
	col      TEXT NOT NULL,
	hash     TEXT NOT NULL REFERENCES documents(hash) ON DELETE CASCADE,
	chunk_id INTEGER NOT NULL,
	freq     INTEGER NOT NULL,
	PRIMARY KEY (term, col, hash, chunk_id)
);

CREATE INDEX IF NOT EXISTS idx_postings_doc ON postings(hash);
`

// Open opens (or creates) the store. A file-backed store takes an advisory
// lock so two processes never write the same index directory.
func Open(cfg Config) (*Store, error) {
	s := &Store{
		path: cfg.Path,
		k1:   cfg.BM25K1,
		b:    cfg.BM25B,
	}

	dsn := ":memory:"
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, errors.New(errors.ErrCodeInternal, "failed to create store directory", err)
		}
		if cfg.LockPath != "" {
			lock := flock.New(cfg.LockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return nil, errors.New(errors.ErrCodeStoreLocked, "failed to acquire store lock", err)
			}
			if !locked {
				return nil, errors.New(errors.ErrCodeStoreLocked,
					fmt.Sprintf("store is locked by another process: %s", cfg.LockPath), nil)
			}
			s.lock = lock
		}
		dsn = cfg.Path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		s.unlock()
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to open index database", err)
	}
	s.db = db

	// Every pooled connection to :memory: would open its own database, so
	// the in-memory store is pinned to a single connection.
	if cfg.Path == "" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			s.Close()
			return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to configure database", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		s.Close()
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to create schema", err)
	}

	return s, nil
}

// Close closes the database and releases the directory lock.
func (s *Store) Close() error {
	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
	}
	s.unlock()
	return err
}

func (s *Store) unlock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
		s.lock = nil
	}
}

// InsertDocument writes a document's metadata, chunks, and postings in one
// transaction. Any existing entry for the same hash is replaced, so a
// re-index after staleness never leaves mixed generations behind. Failures
// roll back and surface as a retryable IndexWriteError.
func (s *Store) InsertDocument(ctx context.Context, meta DocMeta, chunks []ChunkTokens) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.IndexWriteError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE hash = ?`, meta.Hash); err != nil {
		return errors.IndexWriteError("failed to clear previous index entry", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (hash, name, path, media_type, size_bytes, chunk_count, token_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.Hash, meta.Name, meta.Path, meta.MediaType, meta.SizeBytes,
		len(chunks), tokenTotal(chunks), meta.IndexedAt.Unix())
	if err != nil {
		return errors.IndexWriteError("failed to insert document", err)
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (hash, chunk_id, unit_label, unit_offset, text, stem_len, seg_len)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.IndexWriteError("failed to prepare chunk insert", err)
	}
	defer chunkStmt.Close()

	postStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO postings (term, col, hash, chunk_id, freq)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.IndexWriteError("failed to prepare posting insert", err)
	}
	defer postStmt.Close()

	for id, ch := range chunks {
		_, err := chunkStmt.ExecContext(ctx, meta.Hash, id, ch.UnitLabel, ch.Offset,
			ch.Text, len(ch.Stem), len(ch.Seg))
		if err != nil {
			return errors.IndexWriteError(fmt.Sprintf("failed to insert chunk %d", id), err)
		}
		for col, tokens := range map[Col][]string{ColStem: ch.Stem, ColSeg: ch.Seg} {
			for term, freq := range termFreq(tokens) {
				if _, err := postStmt.ExecContext(ctx, term, string(col), meta.Hash, id, freq); err != nil {
					return errors.IndexWriteError(fmt.Sprintf("failed to insert posting for chunk %d", id), err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.IndexWriteError("failed to commit index entry", err)
	}
	return nil
}

// Exists returns the document's metadata, or nil when the hash is not
// indexed.
func (s *Store) Exists(ctx context.Context, hash string) (*DocMeta, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, name, path, media_type, size_bytes, chunk_count, token_count, indexed_at
		FROM documents WHERE hash = ?`, hash)

	meta, err := scanDocMeta(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to read document metadata", err)
	}
	return meta, nil
}

// DeleteDocument removes a document and, via cascading foreign keys, its
// chunks and postings. Returns false when the hash was not indexed.
func (s *Store) DeleteDocument(ctx context.Context, hash string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE hash = ?`, hash)
	if err != nil {
		return false, errors.IndexWriteError("failed to delete document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.IndexWriteError("failed to confirm delete", err)
	}
	return n > 0, nil
}

// FindByName lists all index entries sharing a logical name. Used for
// orphan cleanup: older content generations of the same document.
func (s *Store) FindByName(ctx context.Context, name string) ([]DocMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, name, path, media_type, size_bytes, chunk_count, token_count, indexed_at
		FROM documents WHERE name = ? ORDER BY indexed_at ASC, hash ASC`, name)
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to query documents by name", err)
	}
	defer rows.Close()
	return scanDocMetas(rows)
}

// ListOlderThan lists index entries whose indexed_at is strictly before
// cutoff, oldest first.
func (s *Store) ListOlderThan(ctx context.Context, cutoff time.Time) ([]DocMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, name, path, media_type, size_bytes, chunk_count, token_count, indexed_at
		FROM documents WHERE indexed_at < ? ORDER BY indexed_at ASC, hash ASC`, cutoff.Unix())
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to query documents by age", err)
	}
	defer rows.Close()
	return scanDocMetas(rows)
}

// Stats aggregates store-wide counters.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(chunk_count), 0), COALESCE(SUM(token_count), 0),
		       COALESCE(SUM(size_bytes), 0),
		       COALESCE(MIN(indexed_at), 0), COALESCE(MAX(indexed_at), 0)
		FROM documents`)
	var oldest, newest int64
	if err := row.Scan(&st.DocumentCount, &st.ChunkCount, &st.TokenCount,
		&st.DocumentBytes, &oldest, &newest); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to read document stats", err)
	}
	if oldest > 0 {
		st.OldestIndexed = time.Unix(oldest, 0).UTC()
	}
	if newest > 0 {
		st.NewestIndexed = time.Unix(newest, 0).UTC()
	}

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT term) FROM postings`)
	if err := row.Scan(&st.TermCount); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to read term stats", err)
	}

	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			st.SizeBytes = info.Size()
		}
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocMeta(row rowScanner) (*DocMeta, error) {
	var m DocMeta
	var indexedAt int64
	err := row.Scan(&m.Hash, &m.Name, &m.Path, &m.MediaType, &m.SizeBytes,
		&m.ChunkCount, &m.TokenCount, &indexedAt)
	if err != nil {
		return nil, err
	}
	m.IndexedAt = time.Unix(indexedAt, 0).UTC()
	return &m, nil
}

func scanDocMetas(rows *sql.Rows) ([]DocMeta, error) {
	var out []DocMeta
	for rows.Next() {
		m, err := scanDocMeta(rows)
		if err != nil {
			return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to scan document row", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to iterate document rows", err)
	}
	return out, nil
}

func tokenTotal(chunks []ChunkTokens) int {
	total := 0
	for _, ch := range chunks {
		total += len(ch.Stem) + len(ch.Seg)
	}
	return total
}

func termFreq(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	return freq
}
