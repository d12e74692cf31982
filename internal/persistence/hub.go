package persistence

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// QueryFunc loads the current snapshot for a subscription.
type QueryFunc func(ctx context.Context, collection string, filter Filter) ([]Document, error)

// Hub fans change notifications out to subscribers. Each subscription owns a
// goroutine, so deliveries to one subscriber are serialized and a callback may
// write to the store or unsubscribe without deadlocking. Notifications that
// arrive while a delivery is running are coalesced into one fresh snapshot.
type Hub struct {
	query  QueryFunc
	logger *slog.Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription
	closed bool
}

type subscription struct {
	collection string
	filter     Filter
	fn         SnapshotFunc
	pending    chan struct{}
	done       chan struct{}
	stopOnce   sync.Once
	stopped    atomic.Bool
}

// NewHub constructs a hub that loads snapshots through query.
func NewHub(query QueryFunc, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{query: query, logger: logger, subs: make(map[uint64]*subscription)}
}

// Subscribe registers fn and schedules the initial snapshot. The subscription
// ends when the returned Unsubscribe is called, when ctx is done or when the
// hub is closed.
func (h *Hub) Subscribe(ctx context.Context, collection string, filter Filter, fn SnapshotFunc) (Unsubscribe, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &subscription{
		collection: collection,
		filter:     filter,
		fn:         fn,
		pending:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	h.mu.Unlock()

	sub.pending <- struct{}{}
	go h.run(ctx, id, sub)

	return func() { h.remove(id, sub) }, nil
}

// Publish notifies every subscriber of collection that it changed.
func (h *Hub) Publish(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.collection != collection {
			continue
		}
		select {
		case sub.pending <- struct{}{}:
		default:
		}
	}
}

// Close stops every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*subscription)
	h.closed = true
	h.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
}

func (h *Hub) remove(id uint64, sub *subscription) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
	sub.stop()
}

func (h *Hub) run(ctx context.Context, id uint64, sub *subscription) {
	for {
		select {
		case <-sub.done:
			return
		case <-ctx.Done():
			h.remove(id, sub)
			return
		case <-sub.pending:
			docs, err := h.query(ctx, sub.collection, sub.filter)
			if err != nil {
				h.logger.WarnContext(ctx, "subscription snapshot failed", "collection", sub.collection, "error", err)
				continue
			}
			if sub.stopped.Load() {
				return
			}
			sub.fn(docs)
		}
	}
}

func (s *subscription) stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		close(s.done)
	})
}
