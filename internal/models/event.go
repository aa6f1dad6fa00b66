package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is the confirmed outcome of a candidate that reached quorum.
// MinPlayers is read through the originating candidate, not copied.
type Event struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	RoomID      uuid.UUID  `json:"room_id" db:"room_id"`
	CandidateID uuid.UUID  `json:"candidate_id" db:"candidate_id"`
	Date        time.Time  `json:"date" db:"date"`
	MinPlayers  int        `json:"min_players" db:"min_players"`
	StartsAt    *time.Time `json:"starts_at" db:"starts_at"`
	Note        string     `json:"note,omitempty" db:"note"`
	CreatedByID uuid.UUID  `json:"created_by" db:"created_by"`
	ConfirmedAt time.Time  `json:"confirmed_at" db:"confirmed_at"`
	RemindedAt  *time.Time `json:"reminded_at,omitempty" db:"reminded_at"`
}

// DateString returns the event date as YYYY-MM-DD
func (e *Event) DateString() string {
	return e.Date.Format(DateLayout)
}

// StartTimeIn formats the start time as HH:MM in loc, or "" when unset
func (e *Event) StartTimeIn(loc *time.Location) string {
	if e.StartsAt == nil {
		return ""
	}
	return e.StartsAt.In(loc).Format("15:04")
}

// ParticipantKind distinguishes members from guests in an event's participant list
type ParticipantKind string

const (
	ParticipantMember ParticipantKind = "member"
	ParticipantGuest  ParticipantKind = "guest"
)

// Participant is one attendee of an event, derived from responses and guests
type Participant struct {
	Key         string          `json:"key"`
	Kind        ParticipantKind `json:"kind"`
	DisplayName string          `json:"display_name"`
	Note        string          `json:"note,omitempty"`
	IsMe        bool            `json:"is_me,omitempty"`
}
