// Package attendance turns raw response and guest rows into per-candidate
// summaries, participant lists and announcement text.
package attendance

import (
	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/models"
)

// Summary is the display-ready tally for one candidate
type Summary struct {
	CandidateID   uuid.UUID `json:"candidate_id"`
	Minimum       int       `json:"minimum"`
	YesMembers    int       `json:"yes_members"`
	Maybe         int       `json:"maybe"`
	No            int       `json:"no"`
	GuestCount    int       `json:"guest_count"`
	YesTotal      int       `json:"yes_total"`
	QuorumReached bool      `json:"quorum_reached"`
}

// Remaining returns how many more affirmative attendees are needed
func (s Summary) Remaining() int {
	if s.QuorumReached {
		return 0
	}
	return s.Minimum - s.YesTotal
}

// Tally counts the responses and guests that belong to candidateID. Rows for
// other candidates and guests without a candidate are ignored. Members who
// never responded are not counted in any category. When the same user appears
// more than once the last row wins.
func Tally(responses []*models.Response, guests []*models.Guest, candidateID uuid.UUID, minimum int) Summary {
	latest := make(map[uuid.UUID]models.ResponseStatus)
	for _, r := range responses {
		if r == nil || r.CandidateID != candidateID {
			continue
		}
		latest[r.UserID] = r.Status
	}

	s := Summary{CandidateID: candidateID, Minimum: minimum}
	for _, status := range latest {
		switch status {
		case models.ResponseYes:
			s.YesMembers++
		case models.ResponseMaybe:
			s.Maybe++
		case models.ResponseNo:
			s.No++
		}
	}

	for _, g := range guests {
		if g != nil && g.AttachedTo(candidateID) {
			s.GuestCount++
		}
	}

	s.YesTotal = s.YesMembers + s.GuestCount
	s.QuorumReached = s.YesTotal >= minimum
	return s
}

// TallyAll computes a summary for every candidate, keyed by candidate ID
func TallyAll(candidates []*models.Candidate, responses []*models.Response, guests []*models.Guest) map[uuid.UUID]Summary {
	out := make(map[uuid.UUID]Summary, len(candidates))
	for _, c := range candidates {
		out[c.ID] = Tally(responses, guests, c.ID, c.MinPlayers)
	}
	return out
}

// MyStatus returns userID's response for candidateID, or ResponseNone
func MyStatus(responses []*models.Response, candidateID, userID uuid.UUID) models.ResponseStatus {
	status := models.ResponseNone
	for _, r := range responses {
		if r.CandidateID == candidateID && r.UserID == userID {
			status = r.Status
		}
	}
	return status
}
