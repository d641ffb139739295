// Package search answers queries against indexed documents. A query is
// projected with the same tokenizer as indexing and matched against the
// stemmed column; the segmented column is consulted only when the stemmed
// column yields nothing, so scores in one result set always share a single
// BM25 corpus.
package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/docyard/docfind/internal/errors"
	"github.com/docyard/docfind/internal/index"
	"github.com/docyard/docfind/internal/store"
)

// Service executes searches. Safe for concurrent use.
type Service struct {
	manager    *index.Manager
	maxResults int
	log        *slog.Logger
}

// New constructs a search service. maxResults is the default result cap
// applied when a caller passes a non-positive limit.
func New(manager *index.Manager, maxResults int, log *slog.Logger) *Service {
	return &Service{
		manager:    manager,
		maxResults: maxResults,
		log:        log,
	}
}

// Search searches within one document. A 64-character hexadecimal argument
// is treated as a content hash and queried verbatim; anything else is a file
// path, indexed first if needed. Results are best-first; ties rank by chunk
// position so runs over identical content are deterministic.
func (s *Service) Search(ctx context.Context, pathOrHash, query string, limit int) ([]store.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrCodeInvalidQuery, "query must not be empty", nil)
	}

	if isContentHash(pathOrHash) {
		return s.queryScope(ctx, pathOrHash, query, limit)
	}

	res, err := s.manager.EnsureIndexed(ctx, pathOrHash)
	if err != nil {
		return nil, err
	}
	return s.queryScope(ctx, res.Meta.Hash, query, limit)
}

// SearchHash searches within an already-indexed document identified by its
// content hash. An unindexed hash yields no results, not an error.
func (s *Service) SearchHash(ctx context.Context, hash, query string, limit int) ([]store.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrCodeInvalidQuery, "query must not be empty", nil)
	}
	return s.queryScope(ctx, hash, query, limit)
}

// SearchAll searches across every indexed document.
func (s *Service) SearchAll(ctx context.Context, query string, limit int) ([]store.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrCodeInvalidQuery, "query must not be empty", nil)
	}
	return s.queryScope(ctx, "", query, limit)
}

// queryScope runs the fallback-ordered query against one document (hash set)
// or the whole store (hash empty). The stemmed column is tried first; the
// segmented column is queried only when the stemmed column returns zero rows,
// so a result set never mixes scores from two corpora.
func (s *Service) queryScope(ctx context.Context, hash, query string, limit int) ([]store.Hit, error) {
	if limit <= 0 {
		limit = s.maxResults
	}

	tok := s.manager.Tokenizer()
	stemTerms := tok.Stemmed(query)
	segTerms := tok.Segmented(query)

	st := s.manager.Store()
	run := func(col store.Col, terms []string) ([]store.Hit, error) {
		if hash == "" {
			return st.Query(ctx, col, terms, limit)
		}
		return st.QueryDocument(ctx, hash, col, terms, limit)
	}

	var hits []store.Hit
	col := store.ColStem
	if len(stemTerms) > 0 {
		var err error
		hits, err = run(store.ColStem, stemTerms)
		if err != nil {
			return nil, err
		}
	}
	if len(hits) == 0 && len(segTerms) > 0 {
		col = store.ColSeg
		var err error
		hits, err = run(store.ColSeg, segTerms)
		if err != nil {
			return nil, err
		}
	}

	s.log.Debug("search complete",
		"query", query, "column", string(col),
		"stem_terms", len(stemTerms), "seg_terms", len(segTerms),
		"hits", len(hits))
	return hits, nil
}

// isContentHash reports whether s is shaped like a SHA-256 content hash:
// exactly 64 hexadecimal characters.
func isContentHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
