package store

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/docyard/docfind/internal/errors"
)

// Query scores all chunks in the store against the query terms in the given
// column and returns the top hits, best first. Ties break on (hash,
// chunk_id) ascending so identical corpora always rank identically.
func (s *Store) Query(ctx context.Context, col Col, terms []string, limit int) ([]Hit, error) {
	return s.query(ctx, col, terms, "", limit)
}

// QueryDocument is Query restricted to one document. The BM25 corpus is the
// document's own chunks, so scores are comparable within the document.
func (s *Store) QueryDocument(ctx context.Context, hash string, col Col, terms []string, limit int) ([]Hit, error) {
	return s.query(ctx, col, terms, hash, limit)
}

// candidate is one (term, chunk) posting joined with its chunk and document.
type candidate struct {
	term      string
	freq      int
	hash      string
	chunkID   int
	length    int
	text      string
	unitLabel string
	offset    int
	docName   string
}

func (s *Store) query(ctx context.Context, col Col, terms []string, hash string, limit int) ([]Hit, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	chunkCount, avgLen, err := s.scopeStats(ctx, col, hash)
	if err != nil {
		return nil, err
	}
	if chunkCount == 0 {
		return nil, nil
	}

	cands, err := s.candidates(ctx, col, terms, hash)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, nil
	}

	// Document frequency per term within the scope. Each candidate row is a
	// distinct (term, chunk) pair, so counting rows counts chunks.
	df := make(map[string]int)
	for _, c := range cands {
		df[c.term]++
	}

	// Repeated query terms weight their contribution, standard BM25.
	qtf := termFreq(terms)

	type key struct {
		hash    string
		chunkID int
	}
	hits := make(map[key]*Hit)
	for _, c := range cands {
		idf := math.Log((float64(chunkCount-df[c.term])+0.5)/(float64(df[c.term])+0.5) + 1)
		norm := 1 - s.b + s.b*float64(c.length)/avgLen
		tf := float64(c.freq) * (s.k1 + 1) / (float64(c.freq) + s.k1*norm)

		k := key{c.hash, c.chunkID}
		h, ok := hits[k]
		if !ok {
			h = &Hit{
				Hash:      c.hash,
				ChunkID:   c.chunkID,
				Text:      c.text,
				UnitLabel: c.unitLabel,
				Offset:    c.offset,
				DocName:   c.docName,
			}
			hits[k] = h
		}
		h.Score += float64(qtf[c.term]) * idf * tf
	}

	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Hash != out[j].Hash {
			return out[i].Hash < out[j].Hash
		}
		return out[i].ChunkID < out[j].ChunkID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// scopeStats returns the chunk count and average chunk length (in the given
// column) for the BM25 corpus: the whole store, or one document.
func (s *Store) scopeStats(ctx context.Context, col Col, hash string) (int, float64, error) {
	q := `SELECT COUNT(*), COALESCE(AVG(` + lenColumn(col) + `), 0) FROM chunks`
	args := []any{}
	if hash != "" {
		q += ` WHERE hash = ?`
		args = append(args, hash)
	}

	var count int
	var avg float64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&count, &avg); err != nil {
		return 0, 0, errors.New(errors.ErrCodeSearchFailed, "failed to read corpus stats", err)
	}
	if avg == 0 {
		avg = 1
	}
	return count, avg, nil
}

func (s *Store) candidates(ctx context.Context, col Col, terms []string, hash string) ([]candidate, error) {
	uniq := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		uniq = append(uniq, t)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(uniq)), ",")
	q := `
		SELECT p.term, p.freq, p.hash, p.chunk_id, c.` + lenColumn(col) + `,
		       c.text, c.unit_label, c.unit_offset, d.name
		FROM postings p
		JOIN chunks c ON c.hash = p.hash AND c.chunk_id = p.chunk_id
		JOIN documents d ON d.hash = p.hash
		WHERE p.col = ? AND p.term IN (` + placeholders + `)`

	args := make([]any, 0, len(uniq)+2)
	args = append(args, string(col))
	for _, t := range uniq {
		args = append(args, t)
	}
	if hash != "" {
		q += ` AND p.hash = ?`
		args = append(args, hash)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.New(errors.ErrCodeSearchFailed, "failed to query postings", err)
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var c candidate
		err := rows.Scan(&c.term, &c.freq, &c.hash, &c.chunkID, &c.length,
			&c.text, &c.unitLabel, &c.offset, &c.docName)
		if err != nil {
			return nil, errors.New(errors.ErrCodeSearchFailed, "failed to scan posting row", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.ErrCodeSearchFailed, "failed to iterate posting rows", err)
	}
	return out, nil
}

func lenColumn(col Col) string {
	if col == ColSeg {
		return "seg_len"
	}
	return "stem_len"
}
