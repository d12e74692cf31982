// Package memory provides an in-process DocumentStore used by tests and by
// the service when JIO_STORE=memory.
package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/example/jio-scheduler/internal/persistence"
)

// Store keeps documents in maps guarded by a single RWMutex.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]persistence.Document
	closed      bool
	hub         *persistence.Hub
}

var _ persistence.DocumentStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return NewWithLogger(nil)
}

// NewWithLogger returns an empty store that reports subscription failures to logger.
func NewWithLogger(logger *slog.Logger) *Store {
	s := &Store{collections: make(map[string]map[string]persistence.Document)}
	s.hub = persistence.NewHub(s.Query, logger)
	return s
}

// Close stops all subscriptions. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}

// Read returns a copy of the stored document.
func (s *Store) Read(ctx context.Context, collection, id string) (persistence.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, persistence.ErrClosed
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return withID(doc, id), nil
}

// Query returns copies of matching documents ordered by id.
func (s *Store) Query(ctx context.Context, collection string, filter persistence.Filter) ([]persistence.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, persistence.ErrClosed
	}
	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]persistence.Document, 0, len(ids))
	for _, id := range ids {
		doc := withID(docs[id], id)
		if filter.Matches(doc) {
			result = append(result, doc)
		}
	}
	return result, nil
}

// Write stores doc under id, merging top-level fields when merge is set.
func (s *Store) Write(ctx context.Context, collection, id string, doc persistence.Document, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := persistence.Normalize(doc)
	if err != nil {
		return err
	}
	delete(normalized, persistence.IDField)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return persistence.ErrClosed
	}
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]persistence.Document)
		s.collections[collection] = docs
	}
	if existing, found := docs[id]; found && merge {
		normalized = existing.Merge(normalized)
	}
	docs[id] = normalized
	s.mu.Unlock()

	s.hub.Publish(collection)
	return nil
}

// Delete removes the document or reports ErrNotFound.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return persistence.ErrClosed
	}
	if _, ok := s.collections[collection][id]; !ok {
		s.mu.Unlock()
		return persistence.ErrNotFound
	}
	delete(s.collections[collection], id)
	s.mu.Unlock()

	s.hub.Publish(collection)
	return nil
}

// Subscribe registers fn for snapshots of collection matching filter.
func (s *Store) Subscribe(ctx context.Context, collection string, filter persistence.Filter, fn persistence.SnapshotFunc) (persistence.Unsubscribe, error) {
	return s.hub.Subscribe(ctx, collection, filter, fn)
}

func withID(doc persistence.Document, id string) persistence.Document {
	out := doc.Clone()
	out[persistence.IDField] = id
	return out
}
