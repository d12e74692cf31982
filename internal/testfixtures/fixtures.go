package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/jio-scheduler/internal/application"
	"github.com/example/jio-scheduler/internal/domain"
)

var (
	profileCounter uint64
	groupCounter   uint64
)

var referenceTime = time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime is the default "now" of fixtures: Wednesday 2024-05-01 09:00 UTC.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Profile fixtures -----------------------------

// ProfileFixture describes a signed-in user with a saved profile.
type ProfileFixture struct {
	UserID      string
	DisplayName string
	Username    string
	Email       string
	UpdatedAt   time.Time
}

type ProfileOption func(*ProfileFixture)

// NewProfileFixture returns a unique profile such as user-001 / "User 001".
func NewProfileFixture(opts ...ProfileOption) ProfileFixture {
	idx := atomic.AddUint64(&profileCounter, 1)
	fixture := ProfileFixture{
		UserID:      fmt.Sprintf("user-%03d", idx),
		DisplayName: fmt.Sprintf("User %03d", idx),
		Username:    fmt.Sprintf("user%03d", idx),
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithProfileID(id string) ProfileOption {
	return func(f *ProfileFixture) {
		f.UserID = id
	}
}

func WithDisplayName(name string) ProfileOption {
	return func(f *ProfileFixture) {
		f.DisplayName = name
	}
}

func WithUsername(username string) ProfileOption {
	return func(f *ProfileFixture) {
		f.Username = username
	}
}

func WithEmail(email string) ProfileOption {
	return func(f *ProfileFixture) {
		f.Email = email
	}
}

func (f ProfileFixture) Domain() domain.UserProfile {
	return domain.UserProfile{
		UserID:      f.UserID,
		DisplayName: f.DisplayName,
		Username:    f.Username,
		Email:       f.Email,
		UpdatedAt:   f.UpdatedAt,
	}
}

func (f ProfileFixture) Participant() domain.Participant {
	return f.Domain().Participant()
}

// User is the identity the gateway would assert for this profile.
func (f ProfileFixture) User() application.User {
	return application.User{ID: f.UserID, DisplayName: f.DisplayName, Email: f.Email}
}

// ----------------------------- Group fixtures -----------------------------

// GroupFixture describes a stored poll group. The creator is always the
// first participant.
type GroupFixture struct {
	ID                    string
	Name                  string
	Creator               ProfileFixture
	Members               []ProfileFixture
	ReminderFrequencyDays int
	ConfirmedDates        []string
	CreatedAt             time.Time
}

type GroupOption func(*GroupFixture)

// NewGroupFixture returns a group created by a fresh profile with no other
// members.
func NewGroupFixture(opts ...GroupOption) GroupFixture {
	idx := atomic.AddUint64(&groupCounter, 1)
	fixture := GroupFixture{
		ID:             fmt.Sprintf("fixture-group-%03d", idx),
		Name:           fmt.Sprintf("Group %03d", idx),
		Creator:        NewProfileFixture(),
		ConfirmedDates: []string{},
		CreatedAt:      referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithGroupID(id string) GroupOption {
	return func(f *GroupFixture) {
		f.ID = id
	}
}

func WithGroupName(name string) GroupOption {
	return func(f *GroupFixture) {
		f.Name = name
	}
}

func WithCreator(creator ProfileFixture) GroupOption {
	return func(f *GroupFixture) {
		f.Creator = creator
	}
}

// WithMembers adds participants after the creator, in order.
func WithMembers(members ...ProfileFixture) GroupOption {
	return func(f *GroupFixture) {
		f.Members = append(f.Members, members...)
	}
}

func WithReminderFrequency(days int) GroupOption {
	return func(f *GroupFixture) {
		f.ReminderFrequencyDays = days
	}
}

func WithConfirmedDates(dates ...string) GroupOption {
	return func(f *GroupFixture) {
		f.ConfirmedDates = append([]string{}, dates...)
	}
}

// Profiles lists the creator followed by the members.
func (f GroupFixture) Profiles() []ProfileFixture {
	return append([]ProfileFixture{f.Creator}, f.Members...)
}

func (f GroupFixture) Domain() domain.PollGroup {
	participants := make([]domain.Participant, 0, len(f.Members)+1)
	for _, p := range f.Profiles() {
		participants = append(participants, p.Participant())
	}
	group := domain.PollGroup{
		ID:                    f.ID,
		Name:                  f.Name,
		Creator:               f.Creator.Participant(),
		Participants:          participants,
		ConfirmedDates:        append([]string{}, f.ConfirmedDates...),
		ReminderFrequencyDays: f.ReminderFrequencyDays,
		CreatedAt:             f.CreatedAt,
	}
	return group.SyncParticipantIDs()
}

// Availability builds member's record for date in this group.
func (f GroupFixture) Availability(member ProfileFixture, date string, slots ...string) domain.Availability {
	return domain.Availability{
		GroupID:     f.ID,
		UserID:      member.UserID,
		DisplayName: member.DisplayName,
		Date:        date,
		Slots:       append([]string{}, slots...),
		UpdatedAt:   referenceTime,
	}
}
