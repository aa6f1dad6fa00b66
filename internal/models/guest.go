package models

import (
	"time"

	"github.com/google/uuid"
)

// Guest is a non-member attendee counted as an automatic yes for its candidate
type Guest struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	RoomID      uuid.UUID     `json:"room_id" db:"room_id"`
	CandidateID uuid.NullUUID `json:"candidate_id" db:"candidate_id"`
	Name        string        `json:"name" db:"name"`
	Note        string        `json:"note,omitempty" db:"note"`
	CreatedByID uuid.UUID     `json:"created_by" db:"created_by"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}

// AttachedTo reports whether the guest belongs to the given candidate
func (g *Guest) AttachedTo(candidateID uuid.UUID) bool {
	return g.CandidateID.Valid && g.CandidateID.UUID == candidateID
}
