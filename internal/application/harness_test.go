package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/persistence/memory"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sequenceIDs struct {
	mu sync.Mutex
	n  int
}

func (s *sequenceIDs) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("group-%d", s.n)
}

// testEnv wires every service over one memory store.
type testEnv struct {
	store         *memory.Store
	repo          *Repository
	clock         *testClock
	profiles      *ProfileService
	groups        *GroupService
	availability  *AvailabilityService
	confirmations *ConfirmationService
	calendar      *CalendarService
	reminders     *ReminderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewWithLogger(discardLogger)
	t.Cleanup(func() { _ = store.Close() })

	repo := NewRepository(store, discardLogger)
	clock := &testClock{now: time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)}
	ids := &sequenceIDs{}
	identity := ContextIdentity{}

	return &testEnv{
		store:         store,
		repo:          repo,
		clock:         clock,
		profiles:      NewProfileServiceWithLogger(repo, identity, clock.Now, discardLogger),
		groups:        NewGroupServiceWithLogger(repo, identity, repo, ids.Next, clock.Now, discardLogger),
		availability:  NewAvailabilityServiceWithLogger(repo, identity, clock.Now, discardLogger),
		confirmations: NewConfirmationServiceWithLogger(repo, identity, clock.Now, discardLogger),
		calendar:      NewCalendarServiceWithLogger(repo, identity, time.UTC, clock.Now, discardLogger),
		reminders:     NewReminderServiceWithLogger(repo, identity, time.UTC, clock.Now, discardLogger),
	}
}

func asUser(id, name string) context.Context {
	return ContextWithUser(context.Background(), User{ID: id, DisplayName: name})
}

// seedGroup creates a group owned by ann and joined by the other users.
func (e *testEnv) seedGroup(t *testing.T, name string, others ...User) domain.PollGroup {
	t.Helper()
	group, err := e.groups.CreateGroup(asUser("ann", "Ann"), CreateGroupInput{Name: name})
	if err != nil {
		t.Fatalf("CreateGroup returned error: %v", err)
	}
	for _, u := range others {
		if group, err = e.groups.JoinGroup(asUser(u.ID, u.DisplayName), group.ID); err != nil {
			t.Fatalf("JoinGroup(%s) returned error: %v", u.ID, err)
		}
	}
	return group
}
