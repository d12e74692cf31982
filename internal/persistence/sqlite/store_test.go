package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/example/jio-scheduler/internal/persistence"
	"github.com/example/jio-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/jio-scheduler/internal/persistence/storetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(migration.InMemoryTestSQLiteConfig(), nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	return store
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) persistence.DocumentStore {
		return openTestStore(t)
	})
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jio.db")

	store, err := Open(migration.DefaultSQLiteConfig(path), nil)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	if err := store.Write(ctx, "groups", "g1", persistence.Document{"name": "Dinner"}, false); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := Open(migration.DefaultSQLiteConfig(path), nil)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	if err := reopened.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}

	doc, err := reopened.Read(ctx, "groups", "g1")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if doc["name"] != "Dinner" {
		t.Fatalf("unexpected document %v", doc)
	}
}

func TestWriteRejectsUnencodableDocument(t *testing.T) {
	store := openTestStore(t)
	err := store.Write(context.Background(), "groups", "g1", persistence.Document{"bad": make(chan int)}, false)
	if !errors.Is(err, persistence.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestIsRetryableError(t *testing.T) {
	if !isRetryableError(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("expected locked error to be retryable")
	}
	if isRetryableError(errors.New("UNIQUE constraint failed")) {
		t.Fatal("expected constraint error not to be retryable")
	}
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("no such table")
	err := withRetry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("expected single call with permanent error, got %d calls and %v", calls, err)
	}

	calls = 0
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: 0, MaxDelay: 0, BackoffFactor: 1}
	err = withRetry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third attempt, got %d calls and %v", calls, err)
	}
}
