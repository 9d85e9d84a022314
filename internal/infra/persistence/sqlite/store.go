// Package sqlite provides the SQLite persistent store. Transactions run against
// the in-memory store and each committed change set is written to relational
// tables inside a single SQLite transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"missioncore/internal/infra/persistence/memory"
	"missioncore/internal/infra/persistence/relational"
	"missioncore/internal/infra/persistence/sqlbundle"
	"missioncore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "missioncore.db"

// Store persists committed changes to SQLite tables.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the SQLite database at path, applies the
// schema and loads existing rows.
func NewStore(ctx context.Context, path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", dataSource(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps the foreign_keys pragma and write ordering consistent.
	db.SetMaxOpenConns(1)
	if err := relational.ApplyDDL(ctx, db, sqlbundle.SQLite()); err != nil {
		_ = db.Close()
		return nil, err
	}
	snapshot, err := relational.LoadSnapshot(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore(engine)
	mem.ImportState(snapshot)
	mem.SetCommitHook(func(ctx context.Context, changes []domain.Change) error {
		return relational.ApplyChanges(ctx, db, relational.SQLite, changes)
	})
	return &Store{Store: mem, db: db, path: path}, nil
}

func dataSource(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + q.Encode()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
