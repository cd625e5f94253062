// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive keeps completed research runs in SQLite so past answers
// can be listed, reloaded and searched. Chunk text is indexed with FTS5
// when the driver is built with it (tag sqlite_fts5); otherwise queries
// fall back to substring matching.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/market-research/pkg/types"
)

const (
	dbFile            = "archive.db"
	defaultMaxResults = 20
	timeFormat        = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("research run not found")

// Store is the research archive database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
	fts        bool
}

// Open opens or creates the archive at cfg.Dir/archive.db.
func Open(cfg types.ArchiveConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// FullText reports whether chunk search uses the FTS5 index.
func (s *Store) FullText() bool {
	return s.fts
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			confidence REAL NOT NULL,
			summary TEXT,
			hops INTEGER,
			citations TEXT,
			started TEXT,
			finished TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			content TEXT NOT NULL,
			title TEXT,
			url TEXT NOT NULL,
			source TEXT,
			hop INTEGER NOT NULL,
			score REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_run_id ON chunks(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_url ON chunks(url)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='chunks_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}

	if _, err := s.db.Exec(`CREATE VIRTUAL TABLE chunks_fts USING fts5(content, title, content=chunks, content_rowid=rowid)`); err != nil {
		if strings.Contains(err.Error(), "no such module") {
			return nil
		}
		return fmt.Errorf("creating FTS table: %w", err)
	}
	triggers := []string{
		`CREATE TRIGGER chunks_ai AFTER INSERT ON chunks BEGIN
			INSERT INTO chunks_fts(rowid, content, title) VALUES (new.rowid, new.content, new.title);
		END`,
		`CREATE TRIGGER chunks_ad AFTER DELETE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, content, title) VALUES('delete', old.rowid, old.content, old.title);
		END`,
		`CREATE TRIGGER chunks_au AFTER UPDATE ON chunks BEGIN
			INSERT INTO chunks_fts(chunks_fts, rowid, content, title) VALUES('delete', old.rowid, old.content, old.title);
			INSERT INTO chunks_fts(rowid, content, title) VALUES (new.rowid, new.content, new.title);
		END`,
	}
	for _, stmt := range triggers {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS triggers: %w", err)
		}
	}
	s.fts = true
	return nil
}

// Save stores res, replacing any earlier run with the same ID.
func (s *Store) Save(ctx context.Context, res types.ResearchResult) error {
	if res.ID == "" {
		return fmt.Errorf("research result has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE run_id = ?`, res.ID); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}

	citations, _ := json.Marshal(res.Citations)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, query, confidence, summary, hops, citations, started, finished)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			query=excluded.query, confidence=excluded.confidence, summary=excluded.summary,
			hops=excluded.hops, citations=excluded.citations,
			started=excluded.started, finished=excluded.finished`,
		res.ID, res.Query, res.Confidence, res.Summary, res.Hops, string(citations),
		formatTime(res.Started), formatTime(res.Finished),
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (run_id, position, content, title, url, source, hop, score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range res.Chunks {
		if _, err := stmt.ExecContext(ctx, res.ID, i, c.Content, c.Title, c.URL, c.Source, c.Hop, c.Score); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Get loads a saved run with its chunks in their original order.
func (s *Store) Get(ctx context.Context, id string) (types.ResearchResult, error) {
	var (
		res       types.ResearchResult
		summary   sql.NullString
		citations sql.NullString
		started   sql.NullString
		finished  sql.NullString
		hops      sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, confidence, summary, hops, citations, started, finished FROM runs WHERE id = ?`, id,
	).Scan(&res.ID, &res.Query, &res.Confidence, &summary, &hops, &citations, &started, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ResearchResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return types.ResearchResult{}, fmt.Errorf("looking up run: %w", err)
	}
	res.Summary = summary.String
	res.Hops = int(hops.Int64)
	res.Started = parseTime(started.String)
	res.Finished = parseTime(finished.String)
	if citations.Valid && citations.String != "" {
		if err := json.Unmarshal([]byte(citations.String), &res.Citations); err != nil {
			return types.ResearchResult{}, fmt.Errorf("decoding citations of run %s: %w", id, err)
		}
	}
	if res.Citations == nil {
		res.Citations = []string{}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT content, title, url, source, hop, score FROM chunks WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return types.ResearchResult{}, fmt.Errorf("loading chunks: %w", err)
	}
	defer rows.Close()

	res.Chunks = []types.ContentChunk{}
	for rows.Next() {
		var c types.ContentChunk
		var title, source sql.NullString
		if err := rows.Scan(&c.Content, &title, &c.URL, &source, &c.Hop, &c.Score); err != nil {
			return types.ResearchResult{}, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Title = title.String
		c.Source = source.String
		res.Chunks = append(res.Chunks, c)
	}
	return res, rows.Err()
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	ID         string    `json:"id" yaml:"id"`
	Query      string    `json:"query" yaml:"query"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	Hops       int       `json:"hops" yaml:"hops"`
	Chunks     int       `json:"chunks" yaml:"chunks"`
	Started    time.Time `json:"started" yaml:"started"`
}

// Runs lists saved runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.query, r.confidence, r.hops, r.started,
			(SELECT count(*) FROM chunks c WHERE c.run_id = r.id)
		 FROM runs r ORDER BY r.started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var hops sql.NullInt64
		var started sql.NullString
		if err := rows.Scan(&rs.ID, &rs.Query, &rs.Confidence, &hops, &started, &rs.Chunks); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rs.Hops = int(hops.Int64)
		rs.Started = parseTime(started.String)
		out = append(out, rs)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeFormat, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
