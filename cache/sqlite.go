package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/singleflight"

	"github.com/yhilem/distill/extract"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS results (
    key TEXT PRIMARY KEY,
    value JSON NOT NULL,
    size_bytes INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite is a persistent cache backed by a local SQLite database.
// Results are stored as JSON rows; embeddings survive round-trips, image
// bytes do too via base64.
type SQLite struct {
	db     *sql.DB
	flight singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewSQLite opens (or creates) the cache database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging cache database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &SQLite{db: db}, nil
}

func (s *SQLite) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (*extract.Result, error) {
	if result, err := s.lookup(ctx, key); err != nil {
		return nil, err
	} else if result != nil {
		s.hits.Add(1)
		return result, nil
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		if result, err := s.lookup(ctx, key); err != nil {
			return nil, err
		} else if result != nil {
			s.hits.Add(1)
			return result, nil
		}

		s.misses.Add(1)
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encoding cached result: %w", err)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO results (key, value, size_bytes) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, size_bytes = excluded.size_bytes
		`, key, value, len(value))
		if err != nil {
			return nil, fmt.Errorf("storing cached result: %w", err)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*extract.Result), nil
}

func (s *SQLite) lookup(ctx context.Context, key string) (*extract.Result, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM results WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}
	var result extract.Result
	if err := json.Unmarshal(value, &result); err != nil {
		// A corrupt row behaves like a miss and gets overwritten.
		return nil, nil
	}
	return &result, nil
}

func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var entries int
	var size sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM results`).Scan(&entries, &size)
	if err != nil {
		return Stats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	return Stats{
		Entries:   entries,
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		SizeBytes: size.Int64,
	}, nil
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM results`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
