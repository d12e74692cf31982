// Package storetest holds the behavioural suite every DocumentStore
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/jio-scheduler/internal/persistence"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) persistence.DocumentStore

const waitTimeout = 2 * time.Second

// Run exercises the DocumentStore contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("read missing document returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Read(context.Background(), "groups", "missing")
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("write then read returns document with id", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		if err := store.Write(ctx, "groups", "g1", persistence.Document{"name": "Dinner", "size": 3}, false); err != nil {
			t.Fatalf("Write returned error: %v", err)
		}
		doc, err := store.Read(ctx, "groups", "g1")
		if err != nil {
			t.Fatalf("Read returned error: %v", err)
		}
		if doc["name"] != "Dinner" || doc["size"] != float64(3) || doc[persistence.IDField] != "g1" {
			t.Fatalf("unexpected document %v", doc)
		}
	})

	t.Run("merge write keeps untouched fields", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mustWrite(t, store, "groups", "g1", persistence.Document{"name": "Dinner", "frequency": 7}, false)
		mustWrite(t, store, "groups", "g1", persistence.Document{"frequency": 14}, true)

		doc, err := store.Read(ctx, "groups", "g1")
		if err != nil {
			t.Fatalf("Read returned error: %v", err)
		}
		if doc["name"] != "Dinner" || doc["frequency"] != float64(14) {
			t.Fatalf("unexpected merged document %v", doc)
		}
	})

	t.Run("overwrite write replaces document", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mustWrite(t, store, "groups", "g1", persistence.Document{"name": "Dinner", "frequency": 7}, false)
		mustWrite(t, store, "groups", "g1", persistence.Document{"name": "Lunch"}, false)

		doc, err := store.Read(ctx, "groups", "g1")
		if err != nil {
			t.Fatalf("Read returned error: %v", err)
		}
		if _, ok := doc["frequency"]; ok {
			t.Fatalf("expected overwrite to drop old fields, got %v", doc)
		}
	})

	t.Run("returned documents are copies", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mustWrite(t, store, "groups", "g1", persistence.Document{"name": "Dinner"}, false)
		doc, _ := store.Read(ctx, "groups", "g1")
		doc["name"] = "mutated"
		again, _ := store.Read(ctx, "groups", "g1")
		if again["name"] != "Dinner" {
			t.Fatalf("expected stored document to be isolated, got %v", again)
		}
	})

	t.Run("query filters and orders by id", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mustWrite(t, store, "availability", "b", persistence.Document{"groupId": "g1", "users": []string{"u1"}}, false)
		mustWrite(t, store, "availability", "a", persistence.Document{"groupId": "g1", "users": []string{"u2"}}, false)
		mustWrite(t, store, "availability", "c", persistence.Document{"groupId": "g2", "users": []string{"u1"}}, false)
		mustWrite(t, store, "other", "d", persistence.Document{"groupId": "g1"}, false)

		docs, err := store.Query(ctx, "availability", persistence.Where("groupId", persistence.OpEqual, "g1"))
		if err != nil {
			t.Fatalf("Query returned error: %v", err)
		}
		if ids := idsOf(docs); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
			t.Fatalf("expected [a b], got %v", ids)
		}

		docs, err = store.Query(ctx, "availability", persistence.Where("users", persistence.OpArrayContains, "u1"))
		if err != nil {
			t.Fatalf("Query returned error: %v", err)
		}
		if ids := idsOf(docs); len(ids) != 2 || ids[0] != "b" || ids[1] != "c" {
			t.Fatalf("expected [b c], got %v", ids)
		}
	})

	t.Run("delete removes document and reports missing", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mustWrite(t, store, "groups", "g1", persistence.Document{"name": "Dinner"}, false)
		if err := store.Delete(ctx, "groups", "g1"); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
		if _, err := store.Read(ctx, "groups", "g1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := store.Delete(ctx, "groups", "g1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
		}
	})

	t.Run("subscribe delivers initial and updated snapshots", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mustWrite(t, store, "availability", "a", persistence.Document{"groupId": "g1"}, false)

		snapshots := make(chan []persistence.Document, 16)
		unsubscribe, err := store.Subscribe(ctx, "availability", persistence.Where("groupId", persistence.OpEqual, "g1"), func(docs []persistence.Document) {
			snapshots <- docs
		})
		if err != nil {
			t.Fatalf("Subscribe returned error: %v", err)
		}
		defer unsubscribe()

		waitFor(t, snapshots, func(docs []persistence.Document) bool { return len(docs) == 1 })

		mustWrite(t, store, "availability", "b", persistence.Document{"groupId": "g1"}, false)
		waitFor(t, snapshots, func(docs []persistence.Document) bool { return len(docs) == 2 })

		mustWrite(t, store, "availability", "c", persistence.Document{"groupId": "g2"}, false)
		if err := store.Delete(ctx, "availability", "a"); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
		waitFor(t, snapshots, func(docs []persistence.Document) bool {
			return len(docs) == 1 && docs[0][persistence.IDField] == "b"
		})
	})

	t.Run("unsubscribe stops delivery and keeps state", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		var mu sync.Mutex
		deliveries := 0
		first := make(chan struct{}, 1)
		unsubscribe, err := store.Subscribe(ctx, "groups", persistence.Filter{}, func(docs []persistence.Document) {
			mu.Lock()
			deliveries++
			mu.Unlock()
			select {
			case first <- struct{}{}:
			default:
			}
		})
		if err != nil {
			t.Fatalf("Subscribe returned error: %v", err)
		}
		select {
		case <-first:
		case <-time.After(waitTimeout):
			t.Fatal("timed out waiting for initial snapshot")
		}

		unsubscribe()
		unsubscribe()
		mu.Lock()
		before := deliveries
		mu.Unlock()

		mustWrite(t, store, "groups", "g1", persistence.Document{"name": "Dinner"}, false)
		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		after := deliveries
		mu.Unlock()
		if after != before {
			t.Fatalf("expected no deliveries after unsubscribe, got %d more", after-before)
		}
		if _, err := store.Read(ctx, "groups", "g1"); err != nil {
			t.Fatalf("expected write to persist after unsubscribe, got %v", err)
		}
	})

	t.Run("callback may write to the store", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		done := make(chan struct{})
		var once sync.Once
		unsubscribe, err := store.Subscribe(ctx, "groups", persistence.Filter{}, func(docs []persistence.Document) {
			if len(docs) == 0 {
				if err := store.Write(ctx, "groups", "seeded", persistence.Document{"name": "x"}, false); err != nil {
					t.Errorf("Write inside callback returned error: %v", err)
				}
				return
			}
			once.Do(func() { close(done) })
		})
		if err != nil {
			t.Fatalf("Subscribe returned error: %v", err)
		}
		defer unsubscribe()

		select {
		case <-done:
		case <-time.After(waitTimeout):
			t.Fatal("timed out waiting for snapshot written from callback")
		}
	})
}

func mustWrite(t *testing.T, store persistence.DocumentStore, collection, id string, doc persistence.Document, merge bool) {
	t.Helper()
	if err := store.Write(context.Background(), collection, id, doc, merge); err != nil {
		t.Fatalf("Write(%s/%s) returned error: %v", collection, id, err)
	}
}

func idsOf(docs []persistence.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id, _ := doc[persistence.IDField].(string)
		ids = append(ids, id)
	}
	return ids
}

func waitFor(t *testing.T, snapshots <-chan []persistence.Document, match func([]persistence.Document) bool) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case docs := <-snapshots:
			if match(docs) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
		}
	}
}
