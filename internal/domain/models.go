// Package domain holds the entities shared by the scheduling core and the
// application layer, together with their validation rules.
package domain

import (
	"sort"
	"time"
)

// DateLayout is the ISO calendar date format used for every date field.
const DateLayout = "2006-01-02"

// DefaultColorTag is applied to confirmed activities without a color.
const DefaultColorTag = "peru"

// Participant is a denormalized snapshot of a user attached to a group.
type Participant struct {
	UserID      string `json:"userId" validate:"required"`
	DisplayName string `json:"displayName"`
	Username    string `json:"username,omitempty"`
}

// UserProfile is the stored identity record used for username lookups.
type UserProfile struct {
	UserID      string    `json:"userId" validate:"required"`
	DisplayName string    `json:"displayName"`
	Username    string    `json:"username,omitempty" validate:"omitempty,username"`
	Email       string    `json:"email,omitempty" validate:"omitempty,email"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Participant returns the snapshot of the profile used inside groups.
func (p UserProfile) Participant() Participant {
	return Participant{UserID: p.UserID, DisplayName: p.DisplayName, Username: p.Username}
}

// PollGroup is a jio group polling availability for an activity.
type PollGroup struct {
	ID                    string        `json:"id" validate:"required"`
	Name                  string        `json:"name" validate:"required"`
	Creator               Participant   `json:"creator"`
	Participants          []Participant `json:"participants" validate:"dive"`
	ParticipantIDs        []string      `json:"participantIds"`
	ConfirmedDates        []string      `json:"confirmedDates,omitempty" validate:"dive,isodate"`
	ReminderFrequencyDays int           `json:"reminderFrequencyDays" validate:"gte=0"`
	CreatedAt             time.Time     `json:"createdAt"`
}

// HasParticipant reports whether userID is among the participants.
func (g PollGroup) HasParticipant(userID string) bool {
	for _, p := range g.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// IsCreator reports whether userID created the group.
func (g PollGroup) IsCreator(userID string) bool {
	return g.Creator.UserID == userID
}

// WithParticipant returns a copy with p appended unless already present.
func (g PollGroup) WithParticipant(p Participant) PollGroup {
	if g.HasParticipant(p.UserID) {
		return g
	}
	next := g
	next.Participants = append(append([]Participant(nil), g.Participants...), p)
	next.ParticipantIDs = participantIDs(next.Participants)
	return next
}

// LastConfirmedDate returns the most recently appended confirmed date.
func (g PollGroup) LastConfirmedDate() (string, bool) {
	if len(g.ConfirmedDates) == 0 {
		return "", false
	}
	return g.ConfirmedDates[len(g.ConfirmedDates)-1], true
}

// SyncParticipantIDs refreshes the denormalized id list used by
// array-contains queries.
func (g PollGroup) SyncParticipantIDs() PollGroup {
	g.ParticipantIDs = participantIDs(g.Participants)
	return g
}

func participantIDs(participants []Participant) []string {
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// Availability is one user's selected slots for one date in one group.
type Availability struct {
	GroupID     string    `json:"groupId" validate:"required"`
	UserID      string    `json:"userId" validate:"required"`
	DisplayName string    `json:"displayName"`
	Date        string    `json:"date" validate:"isodate"`
	Slots       []string  `json:"slots" validate:"dive,timeslot"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Confirmation records that a date was confirmed for a group. Confirmations
// are append-only; a group's confirmed dates are their Date values ordered
// by ConfirmedAt then ID.
type Confirmation struct {
	ID          string    `json:"id" validate:"required"`
	GroupID     string    `json:"groupId" validate:"required"`
	ActivityID  string    `json:"activityId" validate:"required"`
	Date        string    `json:"date" validate:"isodate"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// SortConfirmations orders confirmations by ConfirmedAt then ID.
func SortConfirmations(confirmations []Confirmation) {
	sort.SliceStable(confirmations, func(i, j int) bool {
		if confirmations[i].ConfirmedAt.Equal(confirmations[j].ConfirmedAt) {
			return confirmations[i].ID < confirmations[j].ID
		}
		return confirmations[i].ConfirmedAt.Before(confirmations[j].ConfirmedAt)
	})
}

// ConfirmedActivity is the activity produced when a slot is confirmed.
type ConfirmedActivity struct {
	ID          string      `json:"id" validate:"required"`
	GroupID     string      `json:"groupId" validate:"required"`
	Name        string      `json:"name" validate:"required"`
	Title       string      `json:"title"`
	Location    string      `json:"location,omitempty"`
	Dates       []string    `json:"dates" validate:"min=1,dive,isodate"`
	StartTime   string      `json:"startTime" validate:"clock"`
	EndTime     string      `json:"endTime" validate:"clock"`
	ColorTag    string      `json:"colorTag"`
	ConfirmedBy Participant `json:"confirmedBy"`
	ConfirmedAt time.Time   `json:"confirmedAt"`
}

// CalendarEntry is a participant's personal copy of a confirmed activity on
// one date.
type CalendarEntry struct {
	ID         string `json:"id" validate:"required"`
	UserID     string `json:"userId" validate:"required"`
	ActivityID string `json:"activityId" validate:"required"`
	GroupID    string `json:"groupId" validate:"required"`
	Date       string `json:"date" validate:"isodate"`
	Name       string `json:"name"`
	Location   string `json:"location,omitempty"`
	StartTime  string `json:"startTime" validate:"clock"`
	EndTime    string `json:"endTime" validate:"clock"`
	ColorTag   string `json:"colorTag"`
}

// ReminderState remembers the due date a reminder was last sent for.
type ReminderState struct {
	GroupID         string    `json:"groupId" validate:"required"`
	LastNotifiedFor string    `json:"lastNotifiedFor" validate:"isodate"`
	NotifiedAt      time.Time `json:"notifiedAt"`
}
