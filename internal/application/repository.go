package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/logging"
	"github.com/example/jio-scheduler/internal/persistence"
)

// Repository maps domain entities onto a DocumentStore. Every document read
// back is decoded and validated before it is returned; documents that fail
// validation are skipped by list operations and reported by single reads.
type Repository struct {
	store  persistence.DocumentStore
	logger *slog.Logger
}

// ErrInvalidRecord is returned when a stored document does not decode into a valid entity.
var ErrInvalidRecord = errors.New("application: invalid stored record")

// NewRepository wraps store.
func NewRepository(store persistence.DocumentStore, logger *slog.Logger) *Repository {
	return &Repository{store: store, logger: logging.OrDefault(logger).With("component", "repository")}
}

// Store exposes the underlying document store.
func (r *Repository) Store() persistence.DocumentStore {
	return r.store
}

func decodeEntity[T any](doc persistence.Document) (T, error) {
	var out T
	if err := persistence.Decode(doc, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := domain.Validate(out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return out, nil
}

func readEntity[T any](ctx context.Context, r *Repository, collection, id string) (T, error) {
	var zero T
	doc, err := r.store.Read(ctx, collection, id)
	if err != nil {
		return zero, mapStoreError(err)
	}
	return decodeEntity[T](doc)
}

func queryEntities[T any](ctx context.Context, r *Repository, collection string, filter persistence.Filter) ([]T, error) {
	docs, err := r.store.Query(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](ctx, r, collection, docs), nil
}

func decodeAll[T any](ctx context.Context, r *Repository, collection string, docs []persistence.Document) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		entity, err := decodeEntity[T](doc)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping invalid document", "collection", collection, "id", doc[persistence.IDField], "error", err)
			continue
		}
		out = append(out, entity)
	}
	return out
}

func writeEntity(ctx context.Context, r *Repository, collection, id string, v any, merge bool) error {
	doc, err := persistence.Encode(v)
	if err != nil {
		return err
	}
	return r.store.Write(ctx, collection, id, doc, merge)
}

func (r *Repository) delete(ctx context.Context, collection, id string) error {
	return mapStoreError(r.store.Delete(ctx, collection, id))
}

// --- profiles ---

// GetProfile loads a user profile.
func (r *Repository) GetProfile(ctx context.Context, userID string) (domain.UserProfile, error) {
	return readEntity[domain.UserProfile](ctx, r, persistence.CollectionUsers, userID)
}

// FindProfileByUsername looks a profile up by normalized username.
func (r *Repository) FindProfileByUsername(ctx context.Context, username string) (domain.UserProfile, error) {
	profiles, err := queryEntities[domain.UserProfile](ctx, r, persistence.CollectionUsers,
		persistence.Where("username", persistence.OpEqual, domain.NormalizeUsername(username)))
	if err != nil {
		return domain.UserProfile{}, err
	}
	if len(profiles) == 0 {
		return domain.UserProfile{}, ErrNotFound
	}
	return profiles[0], nil
}

// PutProfile stores a profile under its user id.
func (r *Repository) PutProfile(ctx context.Context, profile domain.UserProfile) error {
	return writeEntity(ctx, r, persistence.CollectionUsers, profile.UserID, profile, false)
}

// Resolve implements UsernameDirectory over stored profiles.
func (r *Repository) Resolve(ctx context.Context, username string) (domain.Participant, error) {
	profile, err := r.FindProfileByUsername(ctx, username)
	if err != nil {
		return domain.Participant{}, err
	}
	return profile.Participant(), nil
}

// --- groups ---

// GetGroup loads a group and hydrates its confirmed dates.
func (r *Repository) GetGroup(ctx context.Context, id string) (domain.PollGroup, error) {
	group, err := readEntity[domain.PollGroup](ctx, r, persistence.CollectionGroups, id)
	if err != nil {
		return domain.PollGroup{}, err
	}
	return r.hydrate(ctx, group)
}

// PutGroup stores a group. Confirmed dates live in the confirmations
// collection and are not written here.
func (r *Repository) PutGroup(ctx context.Context, group domain.PollGroup) error {
	group = group.SyncParticipantIDs()
	group.ConfirmedDates = nil
	return writeEntity(ctx, r, persistence.CollectionGroups, group.ID, group, false)
}

// UpdateGroupFields merges fields onto the stored group document, leaving
// every other field as it is in the store.
func (r *Repository) UpdateGroupFields(ctx context.Context, id string, fields persistence.Document) error {
	return mapStoreError(r.store.Write(ctx, persistence.CollectionGroups, id, fields, true))
}

// GroupFilter selects the document of one group.
func GroupFilter(id string) persistence.Filter {
	return persistence.Where(persistence.IDField, persistence.OpEqual, id)
}

// MemberFilter selects the groups userID participates in.
func MemberFilter(userID string) persistence.Filter {
	return persistence.Where("participantIds", persistence.OpArrayContains, userID)
}

// ListGroupsForUser returns groups the user participates in, newest first.
func (r *Repository) ListGroupsForUser(ctx context.Context, userID string) ([]domain.PollGroup, error) {
	return r.listGroups(ctx, MemberFilter(userID))
}

// DecodeGroups turns group snapshot documents into hydrated groups, newest
// first. Invalid documents are skipped.
func (r *Repository) DecodeGroups(ctx context.Context, docs []persistence.Document) ([]domain.PollGroup, error) {
	return r.prepareGroups(ctx, decodeAll[domain.PollGroup](ctx, r, persistence.CollectionGroups, docs))
}

// ListAllGroups returns every group, newest first.
func (r *Repository) ListAllGroups(ctx context.Context) ([]domain.PollGroup, error) {
	return r.listGroups(ctx, persistence.Filter{})
}

func (r *Repository) listGroups(ctx context.Context, filter persistence.Filter) ([]domain.PollGroup, error) {
	groups, err := queryEntities[domain.PollGroup](ctx, r, persistence.CollectionGroups, filter)
	if err != nil {
		return nil, err
	}
	return r.prepareGroups(ctx, groups)
}

func (r *Repository) prepareGroups(ctx context.Context, groups []domain.PollGroup) ([]domain.PollGroup, error) {
	var err error
	for i := range groups {
		if groups[i], err = r.hydrate(ctx, groups[i]); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].CreatedAt.After(groups[j].CreatedAt)
	})
	return groups, nil
}

// DeleteGroup removes the group document.
func (r *Repository) DeleteGroup(ctx context.Context, id string) error {
	return r.delete(ctx, persistence.CollectionGroups, id)
}

func (r *Repository) hydrate(ctx context.Context, group domain.PollGroup) (domain.PollGroup, error) {
	confirmations, err := r.ListConfirmations(ctx, group.ID)
	if err != nil {
		return domain.PollGroup{}, err
	}
	group.ConfirmedDates = make([]string, 0, len(confirmations))
	for _, c := range confirmations {
		group.ConfirmedDates = append(group.ConfirmedDates, c.Date)
	}
	return group, nil
}

// --- confirmations ---

// AppendConfirmation records a confirmed date as its own document.
func (r *Repository) AppendConfirmation(ctx context.Context, c domain.Confirmation) error {
	return writeEntity(ctx, r, persistence.CollectionConfirmations, c.ID, c, false)
}

// ListConfirmations returns a group's confirmations in append order.
func (r *Repository) ListConfirmations(ctx context.Context, groupID string) ([]domain.Confirmation, error) {
	confirmations, err := queryEntities[domain.Confirmation](ctx, r, persistence.CollectionConfirmations,
		persistence.Where("groupId", persistence.OpEqual, groupID))
	if err != nil {
		return nil, err
	}
	domain.SortConfirmations(confirmations)
	return confirmations, nil
}

// DeleteConfirmation removes one confirmation.
func (r *Repository) DeleteConfirmation(ctx context.Context, id string) error {
	return r.delete(ctx, persistence.CollectionConfirmations, id)
}

// --- availability ---

// AvailabilityID is the document id of a (group, user, date) record.
func AvailabilityID(groupID, userID, date string) string {
	return persistence.Key("availability", groupID, userID, date)
}

// AvailabilityFilter selects every availability record of a group.
func AvailabilityFilter(groupID string) persistence.Filter {
	return persistence.Where("groupId", persistence.OpEqual, groupID)
}

// PutAvailability overwrites the record for (group, user, date).
func (r *Repository) PutAvailability(ctx context.Context, a domain.Availability) error {
	return writeEntity(ctx, r, persistence.CollectionAvailability, AvailabilityID(a.GroupID, a.UserID, a.Date), a, false)
}

// ListAvailability returns all records of a group.
func (r *Repository) ListAvailability(ctx context.Context, groupID string) ([]domain.Availability, error) {
	return queryEntities[domain.Availability](ctx, r, persistence.CollectionAvailability, AvailabilityFilter(groupID))
}

// ListUserAvailability returns one user's records in a group.
func (r *Repository) ListUserAvailability(ctx context.Context, groupID, userID string) ([]domain.Availability, error) {
	return queryEntities[domain.Availability](ctx, r, persistence.CollectionAvailability,
		AvailabilityFilter(groupID).And("userId", persistence.OpEqual, userID))
}

// DecodeAvailability validates raw availability documents from a subscription.
func (r *Repository) DecodeAvailability(ctx context.Context, docs []persistence.Document) []domain.Availability {
	return decodeAll[domain.Availability](ctx, r, persistence.CollectionAvailability, docs)
}

// DeleteAvailability removes a single availability document.
func (r *Repository) DeleteAvailability(ctx context.Context, a domain.Availability) error {
	return r.delete(ctx, persistence.CollectionAvailability, AvailabilityID(a.GroupID, a.UserID, a.Date))
}

// --- activities ---

// GetActivity loads a confirmed activity.
func (r *Repository) GetActivity(ctx context.Context, id string) (domain.ConfirmedActivity, error) {
	return readEntity[domain.ConfirmedActivity](ctx, r, persistence.CollectionActivities, id)
}

// PutActivity stores a confirmed activity.
func (r *Repository) PutActivity(ctx context.Context, activity domain.ConfirmedActivity) error {
	return writeEntity(ctx, r, persistence.CollectionActivities, activity.ID, activity, false)
}

// ListActivities returns a group's activities.
func (r *Repository) ListActivities(ctx context.Context, groupID string) ([]domain.ConfirmedActivity, error) {
	return queryEntities[domain.ConfirmedActivity](ctx, r, persistence.CollectionActivities,
		persistence.Where("groupId", persistence.OpEqual, groupID))
}

// DeleteActivity removes a confirmed activity.
func (r *Repository) DeleteActivity(ctx context.Context, id string) error {
	return r.delete(ctx, persistence.CollectionActivities, id)
}

// --- calendar ---

// PutCalendarEntry upserts a calendar entry.
func (r *Repository) PutCalendarEntry(ctx context.Context, entry domain.CalendarEntry) error {
	return writeEntity(ctx, r, persistence.CollectionCalendar, entry.ID, entry, false)
}

// GetCalendarEntry loads a calendar entry.
func (r *Repository) GetCalendarEntry(ctx context.Context, id string) (domain.CalendarEntry, error) {
	return readEntity[domain.CalendarEntry](ctx, r, persistence.CollectionCalendar, id)
}

// ListActivityEntries returns a user's entries for one activity.
func (r *Repository) ListActivityEntries(ctx context.Context, userID, activityID string) ([]domain.CalendarEntry, error) {
	return queryEntities[domain.CalendarEntry](ctx, r, persistence.CollectionCalendar,
		persistence.Where("userId", persistence.OpEqual, userID).And("activityId", persistence.OpEqual, activityID))
}

// ListCalendar returns a user's entries ordered by date and start time.
func (r *Repository) ListCalendar(ctx context.Context, userID string) ([]domain.CalendarEntry, error) {
	entries, err := queryEntities[domain.CalendarEntry](ctx, r, persistence.CollectionCalendar,
		persistence.Where("userId", persistence.OpEqual, userID))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date == entries[j].Date {
			return entries[i].StartTime < entries[j].StartTime
		}
		return entries[i].Date < entries[j].Date
	})
	return entries, nil
}

// ListGroupCalendarEntries returns every participant's entries for a group.
func (r *Repository) ListGroupCalendarEntries(ctx context.Context, groupID string) ([]domain.CalendarEntry, error) {
	return queryEntities[domain.CalendarEntry](ctx, r, persistence.CollectionCalendar,
		persistence.Where("groupId", persistence.OpEqual, groupID))
}

// DeleteCalendarEntry removes a calendar entry.
func (r *Repository) DeleteCalendarEntry(ctx context.Context, id string) error {
	return r.delete(ctx, persistence.CollectionCalendar, id)
}

// --- reminder state ---

// ReminderState returns the stored state and whether one exists.
func (r *Repository) ReminderState(ctx context.Context, groupID string) (domain.ReminderState, bool, error) {
	state, err := readEntity[domain.ReminderState](ctx, r, persistence.CollectionReminders, groupID)
	if errors.Is(err, ErrNotFound) {
		return domain.ReminderState{}, false, nil
	}
	if err != nil {
		return domain.ReminderState{}, false, err
	}
	return state, true, nil
}

// SaveReminderState stores the reminder state of a group.
func (r *Repository) SaveReminderState(ctx context.Context, state domain.ReminderState) error {
	return writeEntity(ctx, r, persistence.CollectionReminders, state.GroupID, state, false)
}

// DeleteReminderState removes a group's reminder state.
func (r *Repository) DeleteReminderState(ctx context.Context, groupID string) error {
	return r.delete(ctx, persistence.CollectionReminders, groupID)
}
