package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/jio-scheduler/internal/domain"
	"github.com/example/jio-scheduler/internal/heatmap"
	"github.com/example/jio-scheduler/internal/logging"
	"github.com/example/jio-scheduler/internal/persistence"
	"github.com/example/jio-scheduler/internal/timeslot"
)

// AvailabilityService records participant availability and aggregates it
// into heat-maps.
type AvailabilityService struct {
	repo     *Repository
	identity actor
	now      func() time.Time
	logger   *slog.Logger
}

// NewAvailabilityService constructs an availability service.
func NewAvailabilityService(repo *Repository, identity IdentityProvider, now func() time.Time) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(repo, identity, now, nil)
}

// NewAvailabilityServiceWithLogger constructs an availability service with a specified logger.
func NewAvailabilityServiceWithLogger(repo *Repository, identity IdentityProvider, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{
		repo:     repo,
		identity: actor{identity: identity},
		now:      now,
		logger:   logging.OrDefault(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// member resolves the caller and requires them to participate in groupID.
func (s *AvailabilityService) member(ctx context.Context, groupID string) (domain.Participant, domain.PollGroup, error) {
	participant, err := s.identity.participant(ctx, s.repo)
	if err != nil {
		return domain.Participant{}, domain.PollGroup{}, err
	}
	group, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return domain.Participant{}, domain.PollGroup{}, err
	}
	if !group.HasParticipant(participant.UserID) {
		return domain.Participant{}, domain.PollGroup{}, ErrUnauthorized
	}
	return participant, group, nil
}

// SubmitAvailability replaces the caller's selection on every listed date.
// Dates not listed are left untouched; an empty list clears a date.
func (s *AvailabilityService) SubmitAvailability(ctx context.Context, groupID string, input SubmitAvailabilityInput) (result MyAvailability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	var participant domain.Participant
	participant, _, err = s.member(ctx, groupID)
	if err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SubmitAvailability", "user_id", participant.UserID, "group_id", groupID, "dates", len(input.Dates))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "availability submitted")
	}()

	grid := timeslot.NewGrid()
	vErr := &ValidationError{}
	for date, labels := range input.Dates {
		if !domain.IsDate(date) {
			vErr.Add("dates."+date, "must be a YYYY-MM-DD date")
			continue
		}
		slots := make([]timeslot.Slot, 0, len(labels))
		for i, label := range labels {
			slot, parseErr := timeslot.ParseSlot(label)
			if parseErr != nil {
				vErr.Add(fmt.Sprintf("dates.%s[%d]", date, i), "must be a slot between 07:00 and 23:30 on a 30 minute boundary")
				continue
			}
			slots = append(slots, slot)
		}
		grid = grid.WithDate(date, slots)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	for _, date := range grid.Dates() {
		if err = s.save(ctx, participant, groupID, date, grid); err != nil {
			return
		}
	}

	result, err = s.mine(ctx, groupID, participant.UserID)
	return
}

// ToggleSlot flips one slot in the caller's selection.
func (s *AvailabilityService) ToggleSlot(ctx context.Context, groupID string, input SlotInput) (result MyAvailability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	var participant domain.Participant
	participant, _, err = s.member(ctx, groupID)
	if err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ToggleSlot", "user_id", participant.UserID, "group_id", groupID, "date", input.Date, "slot", input.Slot)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to toggle slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "slot toggled")
	}()

	vErr := &ValidationError{}
	if !domain.IsDate(input.Date) {
		vErr.Add("date", "must be a YYYY-MM-DD date")
	}
	slot, parseErr := timeslot.ParseSlot(input.Slot)
	if parseErr != nil {
		vErr.Add("slot", "must be a slot between 07:00 and 23:30 on a 30 minute boundary")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var grid timeslot.Grid
	grid, err = s.grid(ctx, groupID, participant.UserID)
	if err != nil {
		return
	}
	grid = grid.Toggle(input.Date, slot)
	if err = s.save(ctx, participant, groupID, input.Date, grid); err != nil {
		return
	}

	result, err = s.mine(ctx, groupID, participant.UserID)
	return
}

// AddSlotRange selects every slot from start to end inclusive.
func (s *AvailabilityService) AddSlotRange(ctx context.Context, groupID string, input RangeInput) (result MyAvailability, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	var participant domain.Participant
	participant, _, err = s.member(ctx, groupID)
	if err != nil {
		return
	}

	logger := s.loggerWith(ctx, "AddSlotRange", "user_id", participant.UserID, "group_id", groupID,
		"date", input.Date, "start", input.Start, "end", input.End)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add slot range", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot range added")
	}()

	vErr := &ValidationError{}
	if !domain.IsDate(input.Date) {
		vErr.Add("date", "must be a YYYY-MM-DD date")
	}
	// Bounds only need to be clock times here; grid membership and
	// alignment are reported by the range check itself.
	start, startErr := timeslot.ParseClock(input.Start)
	if startErr != nil {
		vErr.Add("start", "must be a HH:MM time")
	}
	end, endErr := timeslot.ParseClock(input.End)
	if endErr != nil {
		vErr.Add("end", "must be a HH:MM time")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var grid timeslot.Grid
	grid, err = s.grid(ctx, groupID, participant.UserID)
	if err != nil {
		return
	}
	grid, err = grid.BulkAdd(input.Date, start, end)
	if err != nil {
		err = rangeValidationError(err)
		return
	}
	logger = logger.With("slots", timeslot.RangeLen(start, end))
	if err = s.save(ctx, participant, groupID, input.Date, grid); err != nil {
		return
	}

	result, err = s.mine(ctx, groupID, participant.UserID)
	return
}

// GetMyAvailability returns the caller's selection in a group.
func (s *AvailabilityService) GetMyAvailability(ctx context.Context, groupID string) (MyAvailability, error) {
	if s == nil {
		return MyAvailability{}, fmt.Errorf("AvailabilityService is nil")
	}
	user, err := s.identity.user(ctx)
	if err != nil {
		return MyAvailability{}, err
	}
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return MyAvailability{}, err
	}
	return s.mine(ctx, groupID, user.ID)
}

// HeatMap returns the weekly heat-map of a group for the week holding week.
func (s *AvailabilityService) HeatMap(ctx context.Context, groupID string, week time.Time) (heatmap.WeekView, error) {
	if s == nil {
		return heatmap.WeekView{}, fmt.Errorf("AvailabilityService is nil")
	}
	if _, err := s.identity.user(ctx); err != nil {
		return heatmap.WeekView{}, err
	}
	if week.IsZero() {
		week = s.now()
	}
	hm, err := s.aggregate(ctx, groupID)
	if err != nil {
		return heatmap.WeekView{}, err
	}
	return hm.Week(week), nil
}

// HeatMapCell returns who can and who cannot make one slot of a group.
func (s *AvailabilityService) HeatMapCell(ctx context.Context, groupID, date, slot string) (heatmap.CellDetail, error) {
	if s == nil {
		return heatmap.CellDetail{}, fmt.Errorf("AvailabilityService is nil")
	}
	if _, err := s.identity.user(ctx); err != nil {
		return heatmap.CellDetail{}, err
	}
	vErr := &ValidationError{}
	if !domain.IsDate(date) {
		vErr.Add("date", "must be a YYYY-MM-DD date")
	}
	parsed, err := timeslot.ParseSlot(slot)
	if err != nil {
		vErr.Add("slot", "must be a half-hour slot between 07:00 and 23:30")
	}
	if vErr.HasErrors() {
		return heatmap.CellDetail{}, vErr
	}
	hm, err := s.aggregate(ctx, groupID)
	if err != nil {
		return heatmap.CellDetail{}, err
	}
	return hm.Detail(date, parsed), nil
}

// WatchHeatMap calls fn with a fresh heat-map whenever the group's
// availability or membership changes, starting with the current state.
// Both feeds are cancelled by the returned Unsubscribe or when ctx is done.
func (s *AvailabilityService) WatchHeatMap(ctx context.Context, groupID string, fn func(heatmap.HeatMap)) (persistence.Unsubscribe, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	if fn == nil {
		return nil, fmt.Errorf("WatchHeatMap requires a callback")
	}
	if _, err := s.identity.user(ctx); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	logger := s.loggerWith(ctx, "WatchHeatMap", "group_id", groupID)
	watch := &heatMapWatch{fn: fn}
	store := s.repo.Store()

	stopMembers, err := store.Subscribe(ctx, persistence.CollectionGroups, GroupFilter(groupID), func(docs []persistence.Document) {
		groups := decodeAll[domain.PollGroup](ctx, s.repo, persistence.CollectionGroups, docs)
		if len(groups) == 0 {
			logger.WarnContext(ctx, "group no longer readable; keeping last participants")
			return
		}
		watch.setParticipants(groups[0].Participants)
	})
	if err != nil {
		return nil, err
	}
	stopAvailability, err := store.Subscribe(ctx, persistence.CollectionAvailability, AvailabilityFilter(groupID), func(docs []persistence.Document) {
		watch.setRecords(s.repo.DecodeAvailability(ctx, docs))
	})
	if err != nil {
		stopMembers()
		return nil, err
	}

	return func() {
		stopAvailability()
		stopMembers()
	}, nil
}

// heatMapWatch joins the membership and availability feeds of one group and
// emits once both have delivered their first snapshot.
type heatMapWatch struct {
	mu           sync.Mutex
	participants []domain.Participant
	records      []domain.Availability
	haveMembers  bool
	haveRecords  bool
	fn           func(heatmap.HeatMap)
}

func (w *heatMapWatch) setParticipants(participants []domain.Participant) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.participants = participants
	w.haveMembers = true
	w.emit()
}

func (w *heatMapWatch) setRecords(records []domain.Availability) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = records
	w.haveRecords = true
	w.emit()
}

// emit must be called with mu held; deliveries are serialized by it.
func (w *heatMapWatch) emit() {
	if !w.haveMembers || !w.haveRecords {
		return
	}
	w.fn(heatmap.Aggregate(w.participants, w.records))
}

func (s *AvailabilityService) aggregate(ctx context.Context, groupID string) (heatmap.HeatMap, error) {
	group, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return heatmap.HeatMap{}, err
	}
	records, err := s.repo.ListAvailability(ctx, groupID)
	if err != nil {
		return heatmap.HeatMap{}, err
	}
	return heatmap.Aggregate(group.Participants, records), nil
}

// grid loads the stored selection of userID. Stored labels that are not
// grid slots are dropped.
func (s *AvailabilityService) grid(ctx context.Context, groupID, userID string) (timeslot.Grid, error) {
	records, err := s.repo.ListUserAvailability(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	grid := timeslot.NewGrid()
	for _, record := range records {
		slots := make([]timeslot.Slot, 0, len(record.Slots))
		for _, label := range record.Slots {
			if slot, err := timeslot.ParseSlot(label); err == nil {
				slots = append(slots, slot)
			}
		}
		grid = grid.WithDate(record.Date, slots)
	}
	return grid, nil
}

func (s *AvailabilityService) save(ctx context.Context, participant domain.Participant, groupID, date string, grid timeslot.Grid) error {
	return s.repo.PutAvailability(ctx, domain.Availability{
		GroupID:     groupID,
		UserID:      participant.UserID,
		DisplayName: participant.DisplayName,
		Date:        date,
		Slots:       grid.Labels(date),
		UpdatedAt:   s.now().UTC(),
	})
}

func (s *AvailabilityService) mine(ctx context.Context, groupID, userID string) (MyAvailability, error) {
	grid, err := s.grid(ctx, groupID, userID)
	if err != nil {
		return MyAvailability{}, err
	}
	out := MyAvailability{GroupID: groupID, Dates: make(map[string][]string, len(grid))}
	for _, date := range grid.Dates() {
		out.Dates[date] = grid.Labels(date)
	}
	return out, nil
}
