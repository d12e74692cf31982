package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/logging"
	"github.com/example/jio-scheduler/internal/persistence"
)

// GroupService manages jio groups and their membership.
type GroupService struct {
	repo        *Repository
	identity    actor
	directory   UsernameDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	// membership serializes read-modify-write of participant lists.
	membership sync.Mutex
}

// NewGroupService constructs a group service with the provided dependencies.
func NewGroupService(repo *Repository, identity IdentityProvider, directory UsernameDirectory, idGenerator func() string, now func() time.Time) *GroupService {
	return NewGroupServiceWithLogger(repo, identity, directory, idGenerator, now, nil)
}

// NewGroupServiceWithLogger constructs a group service with a specified logger.
func NewGroupServiceWithLogger(repo *Repository, identity IdentityProvider, directory UsernameDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *GroupService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if directory == nil && repo != nil {
		directory = repo
	}
	return &GroupService{
		repo:        repo,
		identity:    actor{identity: identity},
		directory:   directory,
		idGenerator: idGenerator,
		now:         now,
		logger:      logging.OrDefault(logger),
	}
}

func (s *GroupService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "GroupService", operation, attrs...)
}

// CreateGroup creates a group with the caller as creator and first participant.
func (s *GroupService) CreateGroup(ctx context.Context, input CreateGroupInput) (group domain.PollGroup, err error) {
	if s == nil {
		err = fmt.Errorf("GroupService is nil")
		return
	}

	var creator domain.Participant
	creator, err = s.identity.participant(ctx, s.repo)
	if err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateGroup", "user_id", creator.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create group", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("group_id", group.ID).InfoContext(ctx, "group created")
	}()

	vErr := &ValidationError{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.Add("name", "name is required")
	}
	if input.ReminderFrequencyDays < 0 {
		vErr.Add("reminderFrequencyDays", "must be zero or a positive number of days")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	group = domain.PollGroup{
		ID:                    s.idGenerator(),
		Name:                  name,
		Creator:               creator,
		Participants:          []domain.Participant{creator},
		ReminderFrequencyDays: input.ReminderFrequencyDays,
		CreatedAt:             s.now().UTC(),
	}
	group = group.SyncParticipantIDs()
	group.ConfirmedDates = []string{}

	err = s.repo.PutGroup(ctx, group)
	return
}

// GetGroup returns a group with participant labels refreshed from the
// current profiles. Any signed-in user may view a group so that an invite
// link can be opened before joining.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (domain.PollGroup, error) {
	if s == nil {
		return domain.PollGroup{}, fmt.Errorf("GroupService is nil")
	}
	if _, err := s.identity.user(ctx); err != nil {
		return domain.PollGroup{}, err
	}
	group, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return domain.PollGroup{}, err
	}
	return s.reconcile(ctx, group), nil
}

// ListGroups returns the groups the caller participates in.
func (s *GroupService) ListGroups(ctx context.Context) ([]domain.PollGroup, error) {
	if s == nil {
		return nil, fmt.Errorf("GroupService is nil")
	}
	user, err := s.identity.user(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.repo.ListGroupsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i] = s.reconcile(ctx, groups[i])
	}
	return groups, nil
}

// JoinGroup adds the caller to a group. Joining twice is a no-op.
func (s *GroupService) JoinGroup(ctx context.Context, groupID string) (group domain.PollGroup, err error) {
	if s == nil {
		err = fmt.Errorf("GroupService is nil")
		return
	}

	var participant domain.Participant
	participant, err = s.identity.participant(ctx, s.repo)
	if err != nil {
		return
	}

	logger := s.loggerWith(ctx, "JoinGroup", "user_id", participant.UserID, "group_id", groupID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to join group", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "group joined")
	}()

	s.membership.Lock()
	defer s.membership.Unlock()

	group, err = s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return
	}
	if group.HasParticipant(participant.UserID) {
		return
	}
	group = group.WithParticipant(participant)
	err = s.saveParticipants(ctx, group)
	return
}

// AddParticipantByUsername lets a participant invite another user by handle.
func (s *GroupService) AddParticipantByUsername(ctx context.Context, groupID, username string) (group domain.PollGroup, err error) {
	if s == nil {
		err = fmt.Errorf("GroupService is nil")
		return
	}

	var caller User
	caller, err = s.identity.user(ctx)
	if err != nil {
		return
	}

	logger := s.loggerWith(ctx, "AddParticipantByUsername", "user_id", caller.ID, "group_id", groupID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add participant", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "participant added")
	}()

	if strings.TrimSpace(username) == "" {
		err = newValidationError("username", "username is required")
		return
	}

	s.membership.Lock()
	defer s.membership.Unlock()

	group, err = s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return
	}
	if !group.HasParticipant(caller.ID) {
		err = ErrUnauthorized
		return
	}

	var invitee domain.Participant
	invitee, err = s.directory.Resolve(ctx, username)
	if errors.Is(err, ErrNotFound) {
		err = newValidationError("username", "no user with that username")
		return
	}
	if err != nil {
		return
	}

	if group.HasParticipant(invitee.UserID) {
		return
	}
	group = group.WithParticipant(invitee)
	err = s.saveParticipants(ctx, group)
	return
}

// SetReminderFrequency sets the reminder interval in days; 0 disables
// reminders. Any participant may change it.
func (s *GroupService) SetReminderFrequency(ctx context.Context, groupID string, days int) (group domain.PollGroup, err error) {
	if s == nil {
		err = fmt.Errorf("GroupService is nil")
		return
	}

	var caller User
	caller, err = s.identity.user(ctx)
	if err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SetReminderFrequency", "user_id", caller.ID, "group_id", groupID, "days", days)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set reminder frequency", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reminder frequency updated")
	}()

	if days < 0 {
		err = newValidationError("reminderFrequencyDays", "must be zero or a positive number of days")
		return
	}

	group, err = s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return
	}
	if !group.HasParticipant(caller.ID) {
		err = ErrUnauthorized
		return
	}
	group.ReminderFrequencyDays = days
	err = s.repo.UpdateGroupFields(ctx, groupID, persistence.Document{"reminderFrequencyDays": days})
	return
}

// WatchGroups calls fn with the caller's groups, newest first, now and
// whenever a group document they can see changes: someone joins, a group
// is created or deleted, or settings change. The subscription ends when
// the returned Unsubscribe is called or ctx is done.
func (s *GroupService) WatchGroups(ctx context.Context, fn func([]domain.PollGroup)) (persistence.Unsubscribe, error) {
	if s == nil {
		return nil, fmt.Errorf("GroupService is nil")
	}
	if fn == nil {
		return nil, fmt.Errorf("WatchGroups requires a callback")
	}
	user, err := s.identity.user(ctx)
	if err != nil {
		return nil, err
	}

	logger := s.loggerWith(ctx, "WatchGroups", "user_id", user.ID)
	return s.repo.Store().Subscribe(ctx, persistence.CollectionGroups, MemberFilter(user.ID), func(docs []persistence.Document) {
		groups, err := s.repo.DecodeGroups(ctx, docs)
		if err != nil {
			logger.WarnContext(ctx, "dropping group list update", "error", err, "error_kind", ErrorKind(err))
			return
		}
		for i := range groups {
			groups[i] = s.reconcile(ctx, groups[i])
		}
		fn(groups)
	})
}

// DeleteGroup removes a group and everything that depends on it. Only the
// creator may delete a group.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID string) (err error) {
	if s == nil {
		return fmt.Errorf("GroupService is nil")
	}

	caller, err := s.identity.user(ctx)
	if err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "DeleteGroup", "user_id", caller.ID, "group_id", groupID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete group", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "group deleted")
	}()

	group, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsCreator(caller.ID) {
		return ErrUnauthorized
	}

	// Dependents go first so a failure part-way leaves the group in place
	// and the delete can be retried.
	if err := s.cascade(ctx, groupID); err != nil {
		return err
	}
	return s.repo.DeleteGroup(ctx, groupID)
}

func (s *GroupService) cascade(ctx context.Context, groupID string) error {
	availability, err := s.repo.ListAvailability(ctx, groupID)
	if err != nil {
		return err
	}
	for _, a := range availability {
		if err := ignoreNotFound(s.repo.DeleteAvailability(ctx, a)); err != nil {
			return err
		}
	}

	entries, err := s.repo.ListGroupCalendarEntries(ctx, groupID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ignoreNotFound(s.repo.DeleteCalendarEntry(ctx, e.ID)); err != nil {
			return err
		}
	}

	activities, err := s.repo.ListActivities(ctx, groupID)
	if err != nil {
		return err
	}
	for _, a := range activities {
		if err := ignoreNotFound(s.repo.DeleteActivity(ctx, a.ID)); err != nil {
			return err
		}
	}

	confirmations, err := s.repo.ListConfirmations(ctx, groupID)
	if err != nil {
		return err
	}
	for _, c := range confirmations {
		if err := ignoreNotFound(s.repo.DeleteConfirmation(ctx, c.ID)); err != nil {
			return err
		}
	}

	return ignoreNotFound(s.repo.DeleteReminderState(ctx, groupID))
}

// reconcile refreshes participant labels from current profiles without
// persisting them. Stored snapshots keep the label valid when they joined.
func (s *GroupService) reconcile(ctx context.Context, group domain.PollGroup) domain.PollGroup {
	refresh := func(p domain.Participant) domain.Participant {
		profile, err := s.repo.GetProfile(ctx, p.UserID)
		if err != nil {
			return p
		}
		if profile.DisplayName != "" {
			p.DisplayName = profile.DisplayName
		}
		if profile.Username != "" {
			p.Username = profile.Username
		}
		return p
	}

	out := group
	out.Creator = refresh(group.Creator)
	out.Participants = make([]domain.Participant, len(group.Participants))
	for i, p := range group.Participants {
		out.Participants[i] = refresh(p)
	}
	return out
}

// saveParticipants writes only the membership fields so concurrent
// updates of other fields are kept.
func (s *GroupService) saveParticipants(ctx context.Context, group domain.PollGroup) error {
	group = group.SyncParticipantIDs()
	return s.repo.UpdateGroupFields(ctx, group.ID, persistence.Document{
		"participants":   group.Participants,
		"participantIds": group.ParticipantIDs,
	})
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
