package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/example/jio-scheduler/internal/persistence"
	"github.com/example/jio-scheduler/internal/persistence/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) persistence.DocumentStore {
		store := New()
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestClosedStoreRejectsCalls(t *testing.T) {
	store := New()
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	ctx := context.Background()
	if err := store.Write(ctx, "groups", "g1", persistence.Document{}, false); !errors.Is(err, persistence.ErrClosed) {
		t.Fatalf("expected ErrClosed from Write, got %v", err)
	}
	if _, err := store.Read(ctx, "groups", "g1"); !errors.Is(err, persistence.ErrClosed) {
		t.Fatalf("expected ErrClosed from Read, got %v", err)
	}
	if _, err := store.Subscribe(ctx, "groups", persistence.Filter{}, func([]persistence.Document) {}); !errors.Is(err, persistence.ErrClosed) {
		t.Fatalf("expected ErrClosed from Subscribe, got %v", err)
	}
}

func TestWriteIgnoresIDField(t *testing.T) {
	ctx := context.Background()
	store := New()
	if err := store.Write(ctx, "groups", "g1", persistence.Document{"id": "spoofed", "name": "x"}, false); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	doc, err := store.Read(ctx, "groups", "g1")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if doc[persistence.IDField] != "g1" {
		t.Fatalf("expected id g1, got %v", doc[persistence.IDField])
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := New()
	if err := store.Write(ctx, "groups", "g1", persistence.Document{}, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
