package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/jio-scheduler/internal/persistence"
	"github.com/example/jio-scheduler/internal/persistence/memory"
	"github.com/example/jio-scheduler/internal/persistence/sqlite"
	"github.com/example/jio-scheduler/internal/persistence/sqlite/migration"
)

// StoreFactory opens a fresh, empty store that is closed when tb ends.
type StoreFactory func(tb testing.TB) persistence.DocumentStore

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore(tb testing.TB) persistence.DocumentStore {
	tb.Helper()
	store := memory.New()
	tb.Cleanup(func() { _ = store.Close() })
	return store
}

// NewSQLiteStore opens a migrated SQLite database in a temporary directory.
func NewSQLiteStore(tb testing.TB) persistence.DocumentStore {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "jio.db")
	store, err := sqlite.Open(migration.DefaultSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return store
}

// Stores lists every backend so behaviour can be checked against each.
func Stores() map[string]StoreFactory {
	return map[string]StoreFactory{
		"memory": NewMemoryStore,
		"sqlite": NewSQLiteStore,
	}
}
