package persistence

import "context"

// Collection names shared by every store implementation.
const (
	CollectionUsers         = "users"
	CollectionGroups        = "groups"
	CollectionAvailability  = "availability"
	CollectionConfirmations = "confirmations"
	CollectionActivities    = "activities"
	CollectionCalendar      = "calendar"
	CollectionReminders     = "reminders"
)

// SnapshotFunc receives the full set of documents matching a subscription.
type SnapshotFunc func(docs []Document)

// Unsubscribe stops further snapshot delivery. It is safe to call more than once.
type Unsubscribe func()

// DocumentStore is the minimal storage contract the application is written against.
type DocumentStore interface {
	Read(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)
	Write(ctx context.Context, collection, id string, doc Document, merge bool) error
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string, filter Filter, fn SnapshotFunc) (Unsubscribe, error)
}

// IDField is set on every document returned by a store.
const IDField = "id"
