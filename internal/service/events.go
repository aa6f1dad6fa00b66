package service

import (
	"context"
	"errors"
	"fmt"
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

// MaxEventNoteLength bounds the event note
const MaxEventNoteLength = 500

// Outcomes passed to Recorder.ConfirmationAttempt
const (
	OutcomeConfirmed = "confirmed"
	OutcomeNoQuorum  = "no_quorum"
	OutcomeRejected  = "rejected"
)

// EventView is the event page
type EventView struct {
	Event        *models.Event
	Room         *models.Room
	Me           *models.Membership
	Summary      attendance.Summary
	Participants []models.Participant
	StartTime    string
	ShareText    string
	URL          string
}

// parseStartTime turns HH:MM on the given date into an instant in loc. An
// empty value means the start time is not decided.
func parseStartTime(date time.Time, hhmm string, loc *time.Location) (*time.Time, error) {
	hhmm = strings.TrimSpace(hhmm)
	if hhmm == "" {
		return nil, nil
	}
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return nil, invalid("start_time", "start time must be in HH:MM format")
	}
	y, m, d := date.Date()
	at := time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc)
	return &at, nil
}

// ConfirmCandidate turns a candidate that reached quorum into an event and
// announces it to the room's Telegram chat; owner only. The tally is checked
// here first, but the database decides.
func (s *Service) ConfirmCandidate(ctx context.Context, sess auth.Session, candidateID uuid.UUID, startTime string) (uuid.UUID, error) {
	c, me, err := s.candidateInRoom(ctx, sess, candidateID)
	if err != nil {
		return uuid.Nil, err
	}
	if !me.CanManage() {
		s.record(OutcomeRejected)
		return uuid.Nil, ErrForbidden
	}
	if c.IsConfirmed {
		s.record(OutcomeRejected)
		return uuid.Nil, repository.ErrAlreadyConfirmed
	}

	startsAt, err := parseStartTime(c.Date, startTime, s.loc)
	if err != nil {
		return uuid.Nil, err
	}

	summary, err := s.tally(ctx, c)
	if err != nil {
		return uuid.Nil, err
	}
	if !summary.QuorumReached {
		s.record(OutcomeNoQuorum)
		return uuid.Nil, &repository.Error{
			Kind:    repository.ErrQuorumNotReached,
			Message: fmt.Sprintf("quorum not reached (%d of %d)", summary.YesTotal, summary.Minimum),
		}
	}

	eventID, err := s.Procedures.ConfirmCandidate(ctx, c.ID, sess.UserID, startsAt)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrQuorumNotReached):
			s.record(OutcomeNoQuorum)
		case errors.Is(err, repository.ErrForbidden), errors.Is(err, repository.ErrAlreadyConfirmed):
			s.record(OutcomeRejected)
		}
		return uuid.Nil, fmt.Errorf("failed to confirm candidate: %w", err)
	}
	s.record(OutcomeConfirmed)

	s.logger.WithFields(logrus.Fields{
		"room_id":      c.RoomID,
		"candidate_id": c.ID,
		"event_id":     eventID,
		"yes_total":    summary.YesTotal,
	}).Info("Candidate confirmed")

	s.announceEvent(ctx, eventID)
	return eventID, nil
}

// announceEvent posts the share text to the linked chat. Failures are logged,
// the confirmation itself already happened.
func (s *Service) announceEvent(ctx context.Context, eventID uuid.UUID) {
	if s.announcer == nil {
		return
	}
	log := s.logger.WithField("event_id", eventID)

	e, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		log.WithError(err).Warn("Failed to load event for announcement")
		return
	}
	room, err := s.Rooms.GetByID(ctx, e.RoomID)
	if err != nil {
		log.WithError(err).Warn("Failed to load room for announcement")
		return
	}
	if room.TelegramChatID == nil {
		return
	}

	text, err := s.shareText(ctx, room, e)
	if err != nil {
		log.WithError(err).Warn("Failed to build announcement")
		return
	}
	if err := s.announcer.Announce(ctx, *room.TelegramChatID, text); err != nil {
		log.WithError(err).Warn("Failed to announce event")
	}
}

func (s *Service) participants(ctx context.Context, e *models.Event, me uuid.UUID) ([]models.Participant, []*models.Response, []*models.Guest, error) {
	members, err := s.Rooms.Members(ctx, e.RoomID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load members: %w", err)
	}
	responses, err := s.Responses.ListForCandidate(ctx, e.RoomID, e.CandidateID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load responses: %w", err)
	}
	guests, err := s.Guests.ListForCandidate(ctx, e.RoomID, e.CandidateID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load guests: %w", err)
	}
	return attendance.Participants(members, responses, guests, e.CandidateID, me), responses, guests, nil
}

func (s *Service) shareText(ctx context.Context, room *models.Room, e *models.Event) (string, error) {
	ps, _, _, err := s.participants(ctx, e, uuid.Nil)
	if err != nil {
		return "", err
	}
	return attendance.ShareText(attendance.ShareInput{
		RoomName:     room.Name,
		Date:         e.Date,
		StartTime:    e.StartTimeIn(s.loc),
		Participants: len(ps),
		URL:          s.link(eventPath(e.ID)),
		Note:         e.Note,
	}), nil
}

func eventPath(id uuid.UUID) string {
	return "/events/" + id.String()
}

// UnconfirmEvent cancels an event and reopens its candidate; owner only
func (s *Service) UnconfirmEvent(ctx context.Context, sess auth.Session, eventID uuid.UUID) (*models.Event, error) {
	if sess.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	e, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if _, err := s.requireOwner(ctx, sess, e.RoomID); err != nil {
		return nil, err
	}

	if err := s.Procedures.DeleteEvent(ctx, e.ID, sess.UserID); err != nil {
		return nil, fmt.Errorf("failed to cancel event: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"room_id":  e.RoomID,
		"event_id": e.ID,
	}).Info("Event cancelled")
	return e, nil
}

// EventDetail loads an event with its participants and share text
func (s *Service) EventDetail(ctx context.Context, sess auth.Session, eventID uuid.UUID) (*EventView, error) {
	if sess.UserID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	e, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	me, err := s.membership(ctx, sess, e.RoomID)
	if err != nil {
		return nil, err
	}
	room, err := s.Rooms.GetByID(ctx, e.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}

	ps, responses, guests, err := s.participants(ctx, e, sess.UserID)
	if err != nil {
		return nil, err
	}

	url := s.link(eventPath(e.ID))
	start := e.StartTimeIn(s.loc)
	return &EventView{
		Event:        e,
		Room:         room,
		Me:           me,
		Summary:      attendance.Tally(responses, guests, e.CandidateID, e.MinPlayers),
		Participants: ps,
		StartTime:    start,
		URL:          url,
		ShareText: attendance.ShareText(attendance.ShareInput{
			RoomName:     room.Name,
			Date:         e.Date,
			StartTime:    start,
			Participants: len(ps),
			URL:          url,
			Note:         e.Note,
		}),
	}, nil
}

// UpdateEventDetails sets the start time (HH:MM in the app time zone, empty
// to clear) and the note; any member may edit. Changing the start time
// re-arms the reminder.
func (s *Service) UpdateEventDetails(ctx context.Context, sess auth.Session, eventID uuid.UUID, startTime, note string) error {
	if sess.UserID == uuid.Nil {
		return ErrUnauthenticated
	}
	e, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load event: %w", err)
	}
	if _, err := s.membership(ctx, sess, e.RoomID); err != nil {
		return err
	}

	startsAt, err := parseStartTime(e.Date, startTime, s.loc)
	if err != nil {
		return err
	}
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > MaxEventNoteLength {
		return invalid("note", "note must be at most %d characters", MaxEventNoteLength)
	}

	if err := s.Events.UpdateDetails(ctx, e.ID, startsAt, note); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}
