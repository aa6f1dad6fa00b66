package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResponseStatus is a member's attendance intention
type ResponseStatus string

const (
	ResponseNone  ResponseStatus = ""
	ResponseYes   ResponseStatus = "yes"
	ResponseMaybe ResponseStatus = "maybe"
	ResponseNo    ResponseStatus = "no"
)

// ParseResponseStatus converts a form value into a ResponseStatus
func ParseResponseStatus(s string) (ResponseStatus, error) {
	st := ResponseStatus(s)
	if !st.Valid() {
		return ResponseNone, fmt.Errorf("status must be one of yes, maybe, no")
	}
	return st, nil
}

// Valid returns true for yes, maybe and no
func (s ResponseStatus) Valid() bool {
	switch s {
	case ResponseYes, ResponseMaybe, ResponseNo:
		return true
	}
	return false
}

// Label returns a short human readable label
func (s ResponseStatus) Label() string {
	switch s {
	case ResponseYes:
		return "Going"
	case ResponseMaybe:
		return "Maybe"
	case ResponseNo:
		return "Not going"
	}
	return "No answer"
}

// Response is the attendance record of one user for one candidate
type Response struct {
	CandidateID uuid.UUID      `json:"candidate_id" db:"candidate_id"`
	RoomID      uuid.UUID      `json:"room_id" db:"room_id"`
	UserID      uuid.UUID      `json:"user_id" db:"user_id"`
	Status      ResponseStatus `json:"status" db:"status"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}
