// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/market-research/pkg/types"
)

// QueryOptions holds parameters for archive chunk queries.
type QueryOptions struct {
	// Query is free text; every word must appear in the chunk.
	Query string

	// URL restricts results to chunks from one page.
	URL string

	// MinScore drops chunks scored below it.
	MinScore float64

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return strings.TrimSpace(q.Query) == "" && q.URL == "" && q.MinScore <= 0
}

// QueryResult is an archived chunk with the run it came from.
type QueryResult struct {
	types.ContentChunk `yaml:",inline"`
	RunID              string `json:"run_id" yaml:"run_id"`
	RunQuery           string `json:"run_query" yaml:"run_query"`
}

// Query searches archived chunks. Text queries are ranked by FTS5
// relevance when the index is available; otherwise, and for filter-only
// queries, results are ordered by score.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	terms := strings.Fields(strings.ToLower(opts.Query))
	useFTS := s.fts && len(terms) > 0

	var (
		qb   strings.Builder
		args []any
	)
	if useFTS {
		qb.WriteString(
			`SELECT c.content, c.title, c.url, c.source, c.hop, c.score, c.run_id, r.query
			FROM chunks_fts
			JOIN chunks c ON c.rowid = chunks_fts.rowid
			JOIN runs r ON r.id = c.run_id
			WHERE chunks_fts MATCH ?`)
		args = append(args, ftsQuery(terms))
	} else {
		qb.WriteString(
			`SELECT c.content, c.title, c.url, c.source, c.hop, c.score, c.run_id, r.query
			FROM chunks c
			JOIN runs r ON r.id = c.run_id
			WHERE 1=1`)
		for _, t := range terms {
			qb.WriteString(` AND (lower(c.content) LIKE ? OR lower(c.title) LIKE ?)`)
			like := "%" + t + "%"
			args = append(args, like, like)
		}
	}

	if opts.URL != "" {
		qb.WriteString(` AND c.url = ?`)
		args = append(args, opts.URL)
	}
	if opts.MinScore > 0 {
		qb.WriteString(` AND c.score >= ?`)
		args = append(args, opts.MinScore)
	}

	if useFTS {
		qb.WriteString(` ORDER BY chunks_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY c.score DESC, r.started DESC, c.position`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var qr QueryResult
		var title, source sql.NullString
		if err := rows.Scan(&qr.Content, &title, &qr.URL, &source, &qr.Hop, &qr.Score, &qr.RunID, &qr.RunQuery); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		qr.Title = title.String
		qr.Source = source.String
		results = append(results, qr)
	}
	return results, rows.Err()
}

// ftsQuery quotes each term so punctuation such as "S&P" or "10-K" is
// matched literally instead of parsed as FTS5 syntax.
func ftsQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}
