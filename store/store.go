package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// LanguageStat is the number of snippets executed for one language.
type LanguageStat struct {
	Language string `yaml:"language"`
	Executed int64  `yaml:"executed"`
}

// Store provides database operations for usage statistics.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and initializes the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snippets (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		author   TEXT NOT NULL,
		language TEXT NOT NULL,
		code     TEXT NOT NULL,
		run_time INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snippets_author ON snippets(author);

	CREATE TABLE IF NOT EXISTS lang_stats (
		lang_name         TEXT PRIMARY KEY,
		snippets_executed INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// RecordSnippet stores a submitted snippet.
func (s *Store) RecordSnippet(ctx context.Context, author, languageName, code string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snippets (author, language, code, run_time) VALUES (?, ?, ?, ?)`,
		author, languageName, code, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record snippet: %w", err)
	}
	return nil
}

// RecordExecution increments the execution count of a language.
func (s *Store) RecordExecution(ctx context.Context, languageName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lang_stats (lang_name, snippets_executed) VALUES (?, 1)
		ON CONFLICT (lang_name) DO UPDATE SET snippets_executed = snippets_executed + 1`,
		languageName)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// Stats returns execution counts, most used language first.
func (s *Store) Stats(ctx context.Context) ([]LanguageStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lang_name, snippets_executed FROM lang_stats ORDER BY snippets_executed DESC, lang_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var stats []LanguageStat
	for rows.Next() {
		var st LanguageStat
		if err := rows.Scan(&st.Language, &st.Executed); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// SnippetCount returns how many snippets an author submitted. An empty author counts everyone.
func (s *Store) SnippetCount(ctx context.Context, author string) (int64, error) {
	var n int64
	var err error
	if author == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snippets`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snippets WHERE author = ?`, author).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count snippets: %w", err)
	}
	return n, nil
}
