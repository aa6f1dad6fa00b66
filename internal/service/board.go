package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/rollcall/internal/attendance"
	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/repository"
)

// MaxGuestNoteLength bounds the free text attached to a guest
const MaxGuestNoteLength = 200

// MemberResponse pairs a member with their answer for one candidate
type MemberResponse struct {
	Member *models.Membership
	Status models.ResponseStatus
}

// CandidateCard is everything the board shows for one candidate date
type CandidateCard struct {
	Candidate *models.Candidate
	Summary   attendance.Summary
	MyStatus  models.ResponseStatus
	Responses []MemberResponse
	Guests    []*models.Guest
	Event     *models.Event
}

// Board is the room page
type Board struct {
	Room      *models.Room
	Me        *models.Membership
	Members   []*models.Membership
	Cards     []CandidateCard
	InviteURL string
}

// RoomBoard loads a room with its upcoming candidates and a tally for each
func (s *Service) RoomBoard(ctx context.Context, sess auth.Session, roomID uuid.UUID) (*Board, error) {
	me, err := s.membership(ctx, sess, roomID)
	if err != nil {
		return nil, err
	}

	room, err := s.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	members, err := s.Rooms.Members(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	candidates, err := s.Candidates.ListUpcoming(ctx, roomID, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	responses, err := s.Responses.ListForRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	guests, err := s.Guests.ListForRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guests: %w", err)
	}
	events, err := s.Events.ListForRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	eventByCandidate := make(map[uuid.UUID]*models.Event, len(events))
	for _, e := range events {
		eventByCandidate[e.CandidateID] = e
	}

	tallies := attendance.TallyAll(candidates, responses, guests)
	cards := make([]CandidateCard, 0, len(candidates))
	for _, c := range candidates {
		card := CandidateCard{
			Candidate: c,
			Summary:   tallies[c.ID],
			MyStatus:  attendance.MyStatus(responses, c.ID, sess.UserID),
			Event:     eventByCandidate[c.ID],
		}
		for _, m := range members {
			card.Responses = append(card.Responses, MemberResponse{
				Member: m,
				Status: attendance.MyStatus(responses, c.ID, m.UserID),
			})
		}
		for _, g := range guests {
			if g.AttachedTo(c.ID) {
				card.Guests = append(card.Guests, g)
			}
		}
		cards = append(cards, card)
	}

	return &Board{
		Room:      room,
		Me:        me,
		Members:   members,
		Cards:     cards,
		InviteURL: s.link(room.InvitePath()),
	}, nil
}

// candidateInRoom loads a candidate together with the caller's membership
func (s *Service) candidateInRoom(ctx context.Context, sess auth.Session, candidateID uuid.UUID) (*models.Candidate, *models.Membership, error) {
	if sess.UserID == uuid.Nil {
		return nil, nil, ErrUnauthenticated
	}
	c, err := s.Candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load candidate: %w", err)
	}
	me, err := s.membership(ctx, sess, c.RoomID)
	if err != nil {
		return nil, nil, err
	}
	return c, me, nil
}

// AddCandidate proposes a date. minPlayers may be empty for the default.
func (s *Service) AddCandidate(ctx context.Context, sess auth.Session, roomID uuid.UUID, date, minPlayers string) (*models.Candidate, error) {
	if _, err := s.membership(ctx, sess, roomID); err != nil {
		return nil, err
	}

	date = strings.TrimSpace(date)
	if date == "" {
		return nil, invalid("date", "date is required")
	}
	day, err := time.ParseInLocation(models.DateLayout, date, s.loc)
	if err != nil {
		return nil, invalid("date", "date must be in YYYY-MM-DD format")
	}
	if day.Before(s.today()) {
		return nil, invalid("date", "date must be today or later")
	}

	minimum := models.DefaultMinPlayers
	if minPlayers = strings.TrimSpace(minPlayers); minPlayers != "" {
		if minimum, err = strconv.Atoi(minPlayers); err != nil {
			return nil, invalid("min_players", "minimum players must be a number")
		}
	}
	if err := models.ValidateMinPlayers(minimum); err != nil {
		return nil, invalid("min_players", "%s", err.Error())
	}

	c, err := s.Candidates.Create(ctx, &models.Candidate{
		RoomID:      roomID,
		Date:        day,
		MinPlayers:  minimum,
		CreatedByID: sess.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add candidate: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"room_id":      roomID,
		"candidate_id": c.ID,
		"date":         c.DateString(),
	}).Info("Candidate added")
	return c, nil
}

// DeleteCandidate removes a candidate with its responses, guests and event;
// owner only
func (s *Service) DeleteCandidate(ctx context.Context, sess auth.Session, candidateID uuid.UUID) error {
	c, me, err := s.candidateInRoom(ctx, sess, candidateID)
	if err != nil {
		return err
	}
	if !me.CanManage() {
		return ErrForbidden
	}

	if err := s.Procedures.DeleteCandidate(ctx, c.ID, sess.UserID); err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"room_id":      c.RoomID,
		"candidate_id": c.ID,
	}).Info("Candidate deleted")
	return nil
}

// SetResponse records an answer for a candidate. With a zero userID the
// caller answers for themselves; owners may answer on behalf of any member.
func (s *Service) SetResponse(ctx context.Context, sess auth.Session, candidateID, userID uuid.UUID, status string) error {
	st, err := models.ParseResponseStatus(strings.TrimSpace(status))
	if err != nil {
		return invalid("status", "%s", err.Error())
	}

	c, me, err := s.candidateInRoom(ctx, sess, candidateID)
	if err != nil {
		return err
	}

	target := sess.UserID
	if userID != uuid.Nil && userID != sess.UserID {
		if !me.CanManage() {
			return ErrForbidden
		}
		if _, err := s.Rooms.GetMembership(ctx, c.RoomID, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return invalid("user_id", "that user is not a member of this room")
			}
			return fmt.Errorf("failed to load member: %w", err)
		}
		target = userID
	}

	err = s.Responses.Upsert(ctx, &models.Response{
		CandidateID: c.ID,
		RoomID:      c.RoomID,
		UserID:      target,
		Status:      st,
	})
	if err != nil {
		return fmt.Errorf("failed to save response: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"candidate_id": c.ID,
		"user_id":      target,
		"by":           sess.UserID,
		"status":       st,
	}).Debug("Response saved")
	return nil
}

// GuestInput is the guest form
type GuestInput struct {
	CandidateID uuid.UUID
	Name        string
	Note        string
}

// AddGuest adds a non-member attendee. A guest attached to a candidate counts
// as a yes for it.
func (s *Service) AddGuest(ctx context.Context, sess auth.Session, roomID uuid.UUID, in GuestInput) (*models.Guest, error) {
	if _, err := s.membership(ctx, sess, roomID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "guest name is required")
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return nil, invalid("name", "guest name must be at most %d characters", MaxDisplayNameLength)
	}
	note := strings.TrimSpace(in.Note)
	if utf8.RuneCountInString(note) > MaxGuestNoteLength {
		return nil, invalid("note", "note must be at most %d characters", MaxGuestNoteLength)
	}

	guest := &models.Guest{
		RoomID:      roomID,
		Name:        name,
		Note:        note,
		CreatedByID: sess.UserID,
	}
	if in.CandidateID != uuid.Nil {
		c, err := s.Candidates.GetByID(ctx, in.CandidateID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to load candidate: %w", err)
		}
		if err != nil || c.RoomID != roomID {
			return nil, invalid("candidate_id", "that date does not belong to this room")
		}
		guest.CandidateID = uuid.NullUUID{UUID: c.ID, Valid: true}
	}

	created, err := s.Guests.Create(ctx, guest)
	if err != nil {
		return nil, fmt.Errorf("failed to add guest: %w", err)
	}
	return created, nil
}

// DeleteGuest removes a guest; allowed for the member who added it and for
// the owner
func (s *Service) DeleteGuest(ctx context.Context, sess auth.Session, guestID uuid.UUID) (*models.Guest, error) {
	if sess.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	g, err := s.Guests.GetByID(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest: %w", err)
	}
	me, err := s.membership(ctx, sess, g.RoomID)
	if err != nil {
		return nil, err
	}
	if g.CreatedByID != sess.UserID && !me.CanManage() {
		return nil, ErrForbidden
	}

	if err := s.Guests.Delete(ctx, g.ID); err != nil {
		return nil, fmt.Errorf("failed to delete guest: %w", err)
	}
	return g, nil
}

// CandidateTally returns the live tally of one candidate
func (s *Service) CandidateTally(ctx context.Context, sess auth.Session, candidateID uuid.UUID) (attendance.Summary, error) {
	c, _, err := s.candidateInRoom(ctx, sess, candidateID)
	if err != nil {
		return attendance.Summary{}, err
	}
	return s.tally(ctx, c)
}

func (s *Service) tally(ctx context.Context, c *models.Candidate) (attendance.Summary, error) {
	responses, err := s.Responses.ListForCandidate(ctx, c.RoomID, c.ID)
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to load responses: %w", err)
	}
	guests, err := s.Guests.ListForCandidate(ctx, c.RoomID, c.ID)
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to load guests: %w", err)
	}
	return attendance.Tally(responses, guests, c.ID, c.MinPlayers), nil
}

// ChatDigest is the board summary posted to a linked Telegram chat
type ChatDigest struct {
	Room  *models.Room
	Cards []CandidateCard
}

// ChatDigest returns the upcoming candidates of the room linked to chatID
func (s *Service) ChatDigest(ctx context.Context, chatID int64) (*ChatDigest, error) {
	room, err := s.Rooms.GetByTelegramChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to find room for chat: %w", err)
	}

	candidates, err := s.Candidates.ListUpcoming(ctx, room.ID, s.today())
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	responses, err := s.Responses.ListForRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}
	guests, err := s.Guests.ListForRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guests: %w", err)
	}

	tallies := attendance.TallyAll(candidates, responses, guests)
	digest := &ChatDigest{Room: room}
	for _, c := range candidates {
		digest.Cards = append(digest.Cards, CandidateCard{Candidate: c, Summary: tallies[c.ID]})
	}
	return digest, nil
}
