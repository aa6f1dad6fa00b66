package attendance

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/models"
)

// Participants derives the attendee list of a candidate: members who answered
// yes, sorted by display name, followed by the candidate's guests sorted by
// name. Members who left the room are not listed even if their response row
// survives.
func Participants(members []*models.Membership, responses []*models.Response, guests []*models.Guest, candidateID, me uuid.UUID) []models.Participant {
	yes := make(map[uuid.UUID]bool)
	for _, r := range responses {
		if r.CandidateID != candidateID {
			continue
		}
		yes[r.UserID] = r.Status == models.ResponseYes
	}

	var memberList []models.Participant
	for _, m := range members {
		if !yes[m.UserID] {
			continue
		}
		memberList = append(memberList, models.Participant{
			Key:         "m-" + m.UserID.String(),
			Kind:        models.ParticipantMember,
			DisplayName: m.DisplayName,
			IsMe:        me != uuid.Nil && m.UserID == me,
		})
	}

	var guestList []models.Participant
	for _, g := range guests {
		if !g.AttachedTo(candidateID) {
			continue
		}
		guestList = append(guestList, models.Participant{
			Key:         "g-" + g.ID.String(),
			Kind:        models.ParticipantGuest,
			DisplayName: g.Name,
			Note:        g.Note,
		})
	}

	sortByName(memberList)
	sortByName(guestList)
	return append(memberList, guestList...)
}

func sortByName(ps []models.Participant) {
	sort.SliceStable(ps, func(i, j int) bool {
		return strings.ToLower(ps[i].DisplayName) < strings.ToLower(ps[j].DisplayName)
	})
}
