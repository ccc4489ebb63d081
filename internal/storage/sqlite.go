package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// timeLayout is the canonical timestamp encoding. It is a fixed-width UTC
// format so that string comparison in SQL matches chronological order.
const timeLayout = time.RFC3339

// Client manages ledger persistence backed by SQLite. Methods borrow a
// connection from the database/sql pool per call, so scheduled jobs and
// HTTP triggers never contend on a shared handle.
type Client struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(path string, logger zerolog.Logger) (*Client, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	client := &Client{
		db:     db,
		path:   path,
		logger: logger.With().Str("component", "storage").Logger(),
	}
	if err := client.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return client, nil
}

// Close closes the underlying database connection.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Ping verifies the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// IsUniqueViolation reports whether err is a uniqueness-constraint failure.
// Reconciliation treats such inserts as already applied, not as errors.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()%256 == 19 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
