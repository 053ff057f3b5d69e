// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides item, OAuth client and grant persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/2389/wishlist/internal/wishlist"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite has a single writer, and every :memory: connection would be a
	// separate database.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := newSQLiteStoreWithDB(db, logger)

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// newSQLiteStoreWithDB wraps an already opened handle without touching the
// schema. Tests use it with sqlmock.
func newSQLiteStoreWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS wishlist_items (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			timeframe   TEXT NOT NULL,
			category    TEXT NOT NULL,
			budget      INTEGER,
			priority    TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'unstarted',
			desire_type TEXT NOT NULL DEFAULT 'general-image',
			memo        TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,

			CHECK (timeframe IN ('short-term', 'medium-term', 'long-term')),
			CHECK (category IN ('gadgets', 'experiences', 'skills', 'lifestyle', 'other')),
			CHECK (priority IN ('high', 'medium', 'low')),
			CHECK (status IN ('unstarted', 'considering', 'purchased')),
			CHECK (desire_type IN ('specific-product', 'general-image', 'problem-to-solve')),
			CHECK (budget IS NULL OR budget >= 0)
		);

		CREATE INDEX IF NOT EXISTS idx_items_timeframe ON wishlist_items(timeframe);
		CREATE INDEX IF NOT EXISTS idx_items_category ON wishlist_items(category);
		CREATE INDEX IF NOT EXISTS idx_items_status ON wishlist_items(status);
		CREATE INDEX IF NOT EXISTS idx_items_priority ON wishlist_items(priority);
		CREATE INDEX IF NOT EXISTS idx_items_created ON wishlist_items(created_at);

		CREATE TABLE IF NOT EXISTS oauth_clients (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			secret_hash   TEXT NOT NULL DEFAULT '',
			redirect_uris TEXT NOT NULL,
			created_at    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS oauth_codes (
			code_hash             TEXT PRIMARY KEY,
			client_id             TEXT NOT NULL,
			redirect_uri          TEXT NOT NULL,
			user_id               TEXT NOT NULL,
			scope                 TEXT NOT NULL,
			code_challenge        TEXT NOT NULL DEFAULT '',
			code_challenge_method TEXT NOT NULL DEFAULT '',
			expires_at            TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS oauth_refresh_tokens (
			token_hash TEXT PRIMARY KEY,
			client_id  TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			scope      TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_codes_expires ON oauth_codes(expires_at);
		CREATE INDEX IF NOT EXISTS idx_refresh_expires ON oauth_refresh_tokens(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// runMigrations applies schema migrations for existing databases.
// These are idempotent - safe to run multiple times.
func (s *SQLiteStore) runMigrations() error {
	// SQLite doesn't support ADD COLUMN IF NOT EXISTS, so we check first
	migrations := []struct {
		check  string
		apply  string
		column string
	}{
		{
			check:  `SELECT 1 FROM pragma_table_info('wishlist_items') WHERE name = 'desire_type'`,
			apply:  `ALTER TABLE wishlist_items ADD COLUMN desire_type TEXT NOT NULL DEFAULT 'general-image'`,
			column: "desire_type",
		},
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRow(m.check).Scan(&exists)
		if err == nil {
			continue
		}
		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to wishlist_items: %w", m.column, err)
		}
		s.logger.Info("applied migration", "column", m.column, "table", "wishlist_items")
	}

	return nil
}

// PurgeExpiredGrants deletes authorization codes and refresh tokens past
// their expiry. Returns the number of rows removed.
func (s *SQLiteStore) PurgeExpiredGrants(ctx context.Context) (int64, error) {
	now := formatTime(s.now())
	var total int64
	for _, table := range []string{"oauth_codes", "oauth_refresh_tokens"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE expires_at <= ?`, now)
		if err != nil {
			return total, fmt.Errorf("purging %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(wishlist.TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(wishlist.TimeLayout, s)
	if err != nil {
		// Rows written by other tools may carry plain RFC3339.
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}
