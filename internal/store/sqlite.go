// Package store implements the task-and-category store on a local SQLite
// database. It is the reference collaborator behind the HTTP API and the
// default backend of the CLI.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nhle/advisor-tasks/internal/remote"
)

// SQLiteStore implements remote.Store using a local SQLite database.
type SQLiteStore struct {
	db        *sqlx.DB
	now       func() time.Time
	exportDir string
	exportURL string
	log       zerolog.Logger
}

var _ remote.Store = (*SQLiteStore)(nil)

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock sets the clock used to evaluate lateness and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// WithExports sets the directory exports are written to and the base URL
// they are served from. An empty baseURL yields file:// URLs.
func WithExports(dir, baseURL string) Option {
	return func(s *SQLiteStore) {
		s.exportDir = dir
		s.exportURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *SQLiteStore) { s.log = l }
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:        db,
		now:       time.Now,
		exportDir: filepath.Join(os.TempDir(), "advisortasks-exports"),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ExportDir returns the directory exports are written to.
func (s *SQLiteStore) ExportDir() string {
	return s.exportDir
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		s.log.Debug().Int("version", m.version).Msg("applied migration")
	}

	return nil
}

// EnsureTenant creates the tenant if it does not exist yet.
func (s *SQLiteStore) EnsureTenant(ctx context.Context, id, name string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: tenant id must not be empty", remote.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO tenants (id, name, created_at) VALUES (?, ?, ?)",
		id, name, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("ensuring tenant %s: %w", id, err)
	}
	return nil
}

// Contact kinds.
const (
	ContactCustomer = "customer"
	ContactCompany  = "company"
	ContactManager  = "manager"
)

// UpsertContact records the display name of a customer, company, or manager.
func (s *SQLiteStore) UpsertContact(ctx context.Context, tenant, kind, id, name string) error {
	if err := s.requireTenant(ctx, tenant); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (tenant, kind, id, name) VALUES (?, ?, ?, ?)
		ON CONFLICT (tenant, kind, id) DO UPDATE SET name = excluded.name`,
		tenant, kind, id, name,
	)
	if err != nil {
		return fmt.Errorf("upserting %s %s: %w", kind, id, err)
	}
	return nil
}

// requireTenant returns remote.ErrNotFound when the tenant is unknown.
func (s *SQLiteStore) requireTenant(ctx context.Context, tenant string) error {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM tenants WHERE id = ?", tenant); err != nil {
		return fmt.Errorf("checking tenant %s: %w", tenant, err)
	}
	if n == 0 {
		return fmt.Errorf("tenant %s: %w", tenant, remote.ErrNotFound)
	}
	return nil
}

// IsBusyError returns true if the error is a SQLITE_BUSY error.
func IsBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_BUSY
	}
	return false
}

// isNoRows reports whether err is sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
