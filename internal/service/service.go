package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/repository"
)

// Announcer posts a plain text message to a room's linked chat
type Announcer interface {
	Announce(ctx context.Context, chatID int64, text string) error
}

// Mailer delivers password reset links
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// Recorder counts business outcomes for metrics
type Recorder interface {
	ConfirmationAttempt(outcome string)
}

// Deps lists everything a Service needs. Announcer, Mailer and Recorder are
// optional.
type Deps struct {
	Logger     *logrus.Logger
	Users      repository.UserRepository
	Rooms      repository.RoomRepository
	Candidates repository.CandidateRepository
	Responses  repository.ResponseRepository
	Guests     repository.GuestRepository
	Events     repository.EventRepository
	Procedures repository.Procedures
	Tokens     *auth.TokenIssuer

	Announcer Announcer
	Mailer    Mailer
	Recorder  Recorder

	// Location is where calendar dates and start times are interpreted
	Location *time.Location
	// BaseURL prefixes links in announcements and emails
	BaseURL string
}

// Service is the central business logic layer that holds all repositories
// and provides the operations behind every page.
type Service struct {
	logger     *logrus.Logger
	Users      repository.UserRepository
	Rooms      repository.RoomRepository
	Candidates repository.CandidateRepository
	Responses  repository.ResponseRepository
	Guests     repository.GuestRepository
	Events     repository.EventRepository
	Procedures repository.Procedures

	tokens    *auth.TokenIssuer
	announcer Announcer
	mailer    Mailer
	recorder  Recorder
	loc       *time.Location
	baseURL   string
	now       func() time.Time
}

// New creates a new Service with all required dependencies.
func New(d Deps) *Service {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		logger:     d.Logger,
		Users:      d.Users,
		Rooms:      d.Rooms,
		Candidates: d.Candidates,
		Responses:  d.Responses,
		Guests:     d.Guests,
		Events:     d.Events,
		Procedures: d.Procedures,
		tokens:     d.Tokens,
		announcer:  d.Announcer,
		mailer:     d.Mailer,
		recorder:   d.Recorder,
		loc:        loc,
		baseURL:    d.BaseURL,
		now:        time.Now,
	}
	if s.mailer == nil {
		s.mailer = NewLogMailer(d.Logger)
	}
	return s
}

// Location returns the zone used for dates and start times
func (s *Service) Location() *time.Location {
	return s.loc
}

// today returns midnight of the current date in the service location
func (s *Service) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.ConfirmationAttempt(outcome)
	}
}

func (s *Service) link(path string) string {
	return s.baseURL + path
}
