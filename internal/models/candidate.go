package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	MinPlayersLowerBound = 2
	MinPlayersUpperBound = 20
	DefaultMinPlayers    = 4
)

// DateLayout is the calendar date format used for candidates and events
const DateLayout = "2006-01-02"

// Candidate is a proposed date awaiting enough affirmative responses
type Candidate struct {
	ID          uuid.UUID `json:"id" db:"id"`
	RoomID      uuid.UUID `json:"room_id" db:"room_id"`
	Date        time.Time `json:"date" db:"date"`
	MinPlayers  int       `json:"min_players" db:"min_players"`
	IsConfirmed bool      `json:"is_confirmed" db:"is_confirmed"`
	CreatedByID uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// DateString returns the candidate date as YYYY-MM-DD
func (c *Candidate) DateString() string {
	return c.Date.Format(DateLayout)
}

// ValidateMinPlayers checks the minimum-attendee range enforced on creation
func ValidateMinPlayers(n int) error {
	if n < MinPlayersLowerBound || n > MinPlayersUpperBound {
		return fmt.Errorf("minimum players must be between %d and %d", MinPlayersLowerBound, MinPlayersUpperBound)
	}
	return nil
}
