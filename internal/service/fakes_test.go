package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/repository"
	"github.com/Kerhoff/rollcall/internal/repository/memory"
	"github.com/Kerhoff/rollcall/pkg/logger"
)

type announcement struct {
	chatID int64
	text   string
}

type fakeAnnouncer struct {
	mu   sync.Mutex
	sent []announcement
}

func (a *fakeAnnouncer) Announce(ctx context.Context, chatID int64, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, announcement{chatID, text})
	return nil
}

type fakeMailer struct {
	to, link string
	count    int
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	m.to, m.link = to, link
	m.count++
	return nil
}

type fakeRecorder struct {
	outcomes []string
}

func (r *fakeRecorder) ConfirmationAttempt(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

type harness struct {
	svc       *Service
	store     *memory.Store
	announcer *fakeAnnouncer
	mailer    *fakeMailer
	recorder  *fakeRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tokens, err := auth.NewTokenIssuer("test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	store := memory.New()
	h := &harness{
		store:     store,
		announcer: &fakeAnnouncer{},
		mailer:    &fakeMailer{},
		recorder:  &fakeRecorder{},
	}
	h.svc = New(Deps{
		Logger:     logger.Discard(),
		Users:      store.Users(),
		Rooms:      store.Rooms(),
		Candidates: store.Candidates(),
		Responses:  store.Responses(),
		Guests:     store.Guests(),
		Events:     store.Events(),
		Procedures: store.Procedures(),
		Tokens:     tokens,
		Announcer:  h.announcer,
		Mailer:     h.mailer,
		Recorder:   h.recorder,
		Location:   time.UTC,
		BaseURL:    "https://rollcall.test",
	})
	return h
}

// signUp creates an account and returns its session
func (h *harness) signUp(t *testing.T, email, name string) auth.Session {
	t.Helper()
	token, _, err := h.svc.SignUp(context.Background(), email, "correct-horse", name)
	if err != nil {
		t.Fatalf("SignUp(%s): %v", email, err)
	}
	sess, err := h.svc.tokens.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return sess
}

// roomWith creates a room owned by a new owner and joined by the given members
func (h *harness) roomWith(t *testing.T, members ...string) (*models.Room, auth.Session, []auth.Session) {
	t.Helper()
	ctx := context.Background()

	owner := h.signUp(t, "owner@example.com", "Owner")
	room, err := h.svc.CreateRoom(ctx, owner, "Friday Mahjong")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	var sessions []auth.Session
	for _, name := range members {
		sess := h.signUp(t, strings.ToLower(name)+"@example.com", name)
		if _, err := h.svc.JoinRoom(ctx, sess, room.InviteCode); err != nil {
			t.Fatalf("JoinRoom(%s): %v", name, err)
		}
		sessions = append(sessions, sess)
	}
	return room, owner, sessions
}

func (h *harness) futureDate(days int) string {
	return h.svc.today().AddDate(0, 0, days).Format(models.DateLayout)
}

// sessionFor issues a session for the first member of room holding role
func (h *harness) sessionFor(t *testing.T, room *models.Room, role models.Role) auth.Session {
	t.Helper()
	members, _ := h.svc.Rooms.Members(context.Background(), room.ID)
	for _, m := range members {
		if m.Role != role {
			continue
		}
		u, err := h.svc.Users.GetByID(context.Background(), m.UserID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		_, sess, err := h.svc.tokens.Issue(u.ID, u.Email, u.SessionVersion)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		return sess
	}
	t.Fatalf("no %s in room %s", role, room.ID)
	return auth.Session{}
}

// brokenCandidates fails every lookup the way a dropped connection would
type brokenCandidates struct {
	repository.CandidateRepository
}

func (brokenCandidates) GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	return nil, errors.New("connection reset by peer")
}

// rejoinProcedures reports every join as a unique-key violation, the way a
// concurrent join of the same user surfaces from the database
type rejoinProcedures struct {
	repository.Procedures
}

func (rejoinProcedures) JoinRoomByInvite(ctx context.Context, code string, userID uuid.UUID, displayName string) (uuid.UUID, error) {
	return uuid.Nil, &repository.Error{Kind: repository.ErrDuplicate, Message: "duplicate key value violates unique constraint"}
}

// brokenResets fails the password reset write
type brokenResets struct {
	repository.UserRepository
}

func (brokenResets) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error) {
	return uuid.Nil, errors.New("connection reset by peer")
}
