package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/hyperifyio/jobextract/internal/posting"
)

// SQLiteSink stores records in a single table keyed by record id, with the
// URL key indexed for latest-by-URL lookups.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" keeps it in
// memory.
func OpenSQLite(path string) (*SQLiteSink, error) {
	var dsn string
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_timeout=5000"
	} else {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteSink{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	log.Debug().Str("stage", "persist").Str("path", path).Msg("sqlite sink ready")
	return s, nil
}

func (s *SQLiteSink) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS postings (
		id TEXT PRIMARY KEY,
		url_key TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		analyzed_at TEXT NOT NULL,
		record_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_postings_url_key ON postings(url_key, analyzed_at);
	`)
	return err
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Persist(ctx context.Context, p posting.JobPosting) error {
	if p.ID == "" {
		return errors.New("record has no id")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO postings (id, url_key, url, source, model, title, company, analyzed_at, record_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		record_json = excluded.record_json,
		analyzed_at = excluded.analyzed_at`,
		p.ID, posting.Key(p.URL), p.URL, p.Source, p.Model, p.Title, p.Company,
		p.AnalyzedAt.UTC().Format(time.RFC3339Nano), string(b))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Latest returns the most recently analyzed record for url.
func (s *SQLiteSink) Latest(ctx context.Context, url string) (posting.JobPosting, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT record_json FROM postings WHERE url_key = ? ORDER BY analyzed_at DESC LIMIT 1`,
		posting.Key(url)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return posting.JobPosting{}, false, nil
	}
	if err != nil {
		return posting.JobPosting{}, false, err
	}
	var p posting.JobPosting
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return posting.JobPosting{}, false, fmt.Errorf("decode record: %w", err)
	}
	return p, true, nil
}

func (s *SQLiteSink) Close() error { return s.db.Close() }
