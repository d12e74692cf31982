package testfixtures

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/example/jio-scheduler/internal/application"
	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/persistence"
)

// ServiceFactory builds the application services over a store with a
// shared clock and deterministic group ids.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Location    *time.Location
	Logger      *slog.Logger
}

type ServiceFactoryOption func(*ServiceFactory)

func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("group"),
		Location:    time.UTC,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the group id sequence. nil restores random ids.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation sets the zone used for reminder due dates and calendar export.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services is every application service wired to one repository. The
// signed-in user is read from the request context.
type Services struct {
	Repo          *application.Repository
	Profiles      *application.ProfileService
	Groups        *application.GroupService
	Availability  *application.AvailabilityService
	Confirmations *application.ConfirmationService
	Calendar      *application.CalendarService
	Reminders     *application.ReminderService
}

// Build wires the services over store.
func (f *ServiceFactory) Build(store persistence.DocumentStore) *Services {
	repo := application.NewRepository(store, f.Logger)
	identity := application.ContextIdentity{}
	now := f.Clock.NowFunc()

	return &Services{
		Repo:          repo,
		Profiles:      application.NewProfileServiceWithLogger(repo, identity, now, f.Logger),
		Groups:        application.NewGroupServiceWithLogger(repo, identity, repo, f.IDGenerator.NextFunc(), now, f.Logger),
		Availability:  application.NewAvailabilityServiceWithLogger(repo, identity, now, f.Logger),
		Confirmations: application.NewConfirmationServiceWithLogger(repo, identity, now, f.Logger),
		Calendar:      application.NewCalendarServiceWithLogger(repo, identity, f.Location, now, f.Logger),
		Reminders:     application.NewReminderServiceWithLogger(repo, identity, f.Location, now, f.Logger),
	}
}

// As returns ctx signed in as profile.
func As(ctx context.Context, profile ProfileFixture) context.Context {
	return application.ContextWithUser(ctx, profile.User())
}

// SeedProfiles stores profiles directly, bypassing username checks.
func (s *Services) SeedProfiles(ctx context.Context, profiles ...ProfileFixture) error {
	for _, p := range profiles {
		if err := s.Repo.PutProfile(ctx, p.Domain()); err != nil {
			return fmt.Errorf("seed profile %s: %w", p.UserID, err)
		}
	}
	return nil
}

// SeedGroup stores the group together with every participant's profile.
func (s *Services) SeedGroup(ctx context.Context, group GroupFixture) (domain.PollGroup, error) {
	if err := s.SeedProfiles(ctx, group.Profiles()...); err != nil {
		return domain.PollGroup{}, err
	}
	stored := group.Domain()
	if err := s.Repo.PutGroup(ctx, stored); err != nil {
		return domain.PollGroup{}, fmt.Errorf("seed group %s: %w", group.ID, err)
	}
	return stored, nil
}

// SeedAvailability stores availability records as-is.
func (s *Services) SeedAvailability(ctx context.Context, records ...domain.Availability) error {
	for _, a := range records {
		if err := s.Repo.PutAvailability(ctx, a); err != nil {
			return fmt.Errorf("seed availability %s/%s: %w", a.UserID, a.Date, err)
		}
	}
	return nil
}
