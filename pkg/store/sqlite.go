package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/tursodatabase/go-libsql"
	"github.com/zpam/mailtype/pkg/ngram"
)

// SQLStore keeps models in a libsql/sqlite database, one row per
// (context, next word) pair. seq preserves first-observed order.
type SQLStore struct {
	db     *sql.DB
	name   string
	ownsDB bool
}

// Migrate creates the model tables if they do not exist.
func Migrate(db *sql.DB) error {
	schema := []string{
		// models: one row per saved model
		`CREATE TABLE IF NOT EXISTS models (
			name TEXT PRIMARY KEY,
			ord INTEGER NOT NULL,
			trained_at TEXT,
			observations INTEGER NOT NULL,
			saved_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		// ngrams: context is a JSON array of tokens
		`CREATE TABLE IF NOT EXISTS ngrams (
			model TEXT NOT NULL,
			seq INTEGER NOT NULL,
			context TEXT NOT NULL,
			next TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (model, seq)
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration statement: %w", err)
		}
	}
	return nil
}

// OpenSQLStore opens (creating if needed) the database at path and migrates it.
func OpenSQLStore(ctx context.Context, path, name string) (*SQLStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = "file:" + path
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	s, err := NewSQLStore(db, name)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewSQLStore uses an already migrated database. Close leaves db open.
func NewSQLStore(db *sql.DB, name string) (*SQLStore, error) {
	if name == "" {
		return nil, errors.New("model name cannot be empty")
	}
	return &SQLStore{db: db, name: name}, nil
}

// Save replaces the named model in a single transaction.
func (s *SQLStore) Save(ctx context.Context, m *ngram.Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ngrams WHERE model = ?`, s.name); err != nil {
		return fmt.Errorf("failed to clear ngrams: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM models WHERE name = ?`, s.name); err != nil {
		return fmt.Errorf("failed to clear model: %w", err)
	}

	var trainedAt sql.NullString
	if t := m.LastTrained(); !t.IsZero() {
		trainedAt = sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO models (name, ord, trained_at, observations) VALUES (?, ?, ?, ?)`,
		s.name, m.Order(), trainedAt, m.Observations()); err != nil {
		return fmt.Errorf("failed to insert model: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ngrams (model, seq, context, next, count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	seq := 0
	for _, e := range m.Entries() {
		ctxTokens := e.Context
		if ctxTokens == nil {
			ctxTokens = []string{}
		}
		encoded, err := json.Marshal(ctxTokens)
		if err != nil {
			return fmt.Errorf("failed to encode context: %w", err)
		}
		for _, c := range e.Next {
			if _, err := stmt.ExecContext(ctx, s.name, seq, string(encoded), c.Word, c.Count); err != nil {
				return fmt.Errorf("failed to insert ngram: %w", err)
			}
			seq++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit model: %w", err)
	}
	return nil
}

// Load reads the named model and validates it like any other artifact.
func (s *SQLStore) Load(ctx context.Context) (*ngram.Model, error) {
	var (
		order        int
		trainedAtRaw sql.NullString
		observations int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT ord, trained_at, observations FROM models WHERE name = ?`, s.name).
		Scan(&order, &trainedAtRaw, &observations)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: model %q", ErrNotFound, s.name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	var trainedAt time.Time
	if trainedAtRaw.Valid && trainedAtRaw.String != "" {
		trainedAt, err = time.Parse(time.RFC3339Nano, trainedAtRaw.String)
		if err != nil {
			return nil, corrupt("invalid trained_at", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT context, next, count FROM ngrams WHERE model = ? ORDER BY seq`, s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to read ngrams: %w", err)
	}
	defer rows.Close()

	var (
		entries []ngram.Entry
		lastRaw string
	)
	for rows.Next() {
		var (
			rawCtx string
			c      ngram.Candidate
		)
		if err := rows.Scan(&rawCtx, &c.Word, &c.Count); err != nil {
			return nil, corrupt("unreadable ngram row", err)
		}
		if len(entries) == 0 || rawCtx != lastRaw {
			var tokens []string
			if err := json.Unmarshal([]byte(rawCtx), &tokens); err != nil {
				return nil, corrupt("invalid context encoding", err)
			}
			entries = append(entries, ngram.Entry{Context: tokens})
			lastRaw = rawCtx
		}
		last := &entries[len(entries)-1]
		last.Next = append(last.Next, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ngrams: %w", err)
	}

	if order < 1 {
		return nil, corrupt(fmt.Sprintf("invalid order %d", order), nil)
	}
	m, err := ngram.Restore(order, trainedAt, entries)
	if err != nil {
		return nil, corrupt("invalid table", err)
	}
	if m.Observations() != observations {
		return nil, corrupt(fmt.Sprintf("observation count %d does not match table total %d",
			observations, m.Observations()), nil)
	}
	return m, nil
}

// Models lists saved model names.
func (s *SQLStore) Models(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM models ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the database if the store opened it.
func (s *SQLStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
