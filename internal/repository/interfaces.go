package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/models"
)

var (
	// ErrNotFound is returned when a single-row fetch matches nothing
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint
	ErrDuplicate = errors.New("duplicate key value violates unique constraint")
	// ErrForbidden is raised by a procedure when the caller lacks the owner role
	ErrForbidden = errors.New("only the room owner can do this")
	// ErrQuorumNotReached is raised by confirm_candidate when the tally is short
	ErrQuorumNotReached = errors.New("quorum not reached")
	// ErrInvalidInviteCode is raised by join_room_by_invite for an unknown code
	ErrInvalidInviteCode = errors.New("invalid invite code")
	// ErrAlreadyConfirmed is raised by confirm_candidate for a confirmed candidate
	ErrAlreadyConfirmed = errors.New("candidate is already confirmed")
)

// Error keeps the message reported by the database alongside the sentinel it
// maps to, so callers can match with errors.Is and still show the original text.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// UserRepository defines the interface for account data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error
	BumpSessionVersion(ctx context.Context, id uuid.UUID) (int, error)
	CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error
	// ResetPassword marks the token used and sets the owner's password in one
	// step, returning the user id; ErrNotFound when the token is unknown, used
	// or expired at now.
	ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error)
}

// RoomRepository defines the interface for room and membership operations
type RoomRepository interface {
	// Create inserts the room and the owner's membership together
	Create(ctx context.Context, room *models.Room, owner *models.Membership) (*models.Room, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Room, error)
	GetByTelegramChat(ctx context.Context, chatID int64) (*models.Room, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Room, error)
	Rename(ctx context.Context, id uuid.UUID, name string) error
	SetTelegramChat(ctx context.Context, id uuid.UUID, chatID *int64) error

	Members(ctx context.Context, roomID uuid.UUID) ([]*models.Membership, error)
	GetMembership(ctx context.Context, roomID, userID uuid.UUID) (*models.Membership, error)
	UpdateMemberDisplayName(ctx context.Context, roomID, userID uuid.UUID, displayName string) error
	UpdateDisplayNameEverywhere(ctx context.Context, userID uuid.UUID, displayName string) error
	RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error
}

// CandidateRepository defines the interface for candidate date operations
type CandidateRepository interface {
	Create(ctx context.Context, candidate *models.Candidate) (*models.Candidate, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error)
	ListUpcoming(ctx context.Context, roomID uuid.UUID, from time.Time) ([]*models.Candidate, error)
}

// ResponseRepository defines the interface for attendance response operations
type ResponseRepository interface {
	// Upsert writes the response keyed on (candidate_id, user_id)
	Upsert(ctx context.Context, response *models.Response) error
	ListForRoom(ctx context.Context, roomID uuid.UUID) ([]*models.Response, error)
	ListForCandidate(ctx context.Context, roomID, candidateID uuid.UUID) ([]*models.Response, error)
}

// GuestRepository defines the interface for guest operations
type GuestRepository interface {
	Create(ctx context.Context, guest *models.Guest) (*models.Guest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Guest, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListForRoom(ctx context.Context, roomID uuid.UUID) ([]*models.Guest, error)
	ListForCandidate(ctx context.Context, roomID, candidateID uuid.UUID) ([]*models.Guest, error)
}

// EventRepository defines the interface for confirmed event operations
type EventRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetByCandidate(ctx context.Context, candidateID uuid.UUID) (*models.Event, error)
	ListForRoom(ctx context.Context, roomID uuid.UUID) ([]*models.Event, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, startsAt *time.Time, note string) error
	// ListDueReminders returns unreminded events starting before until
	ListDueReminders(ctx context.Context, now, until time.Time) ([]*models.Event, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Procedures are the server-side operations that validate and mutate
// several rows at once.
type Procedures interface {
	JoinRoomByInvite(ctx context.Context, code string, userID uuid.UUID, displayName string) (uuid.UUID, error)
	ConfirmCandidate(ctx context.Context, candidateID, userID uuid.UUID, startsAt *time.Time) (uuid.UUID, error)
	DeleteCandidate(ctx context.Context, candidateID, userID uuid.UUID) error
	DeleteEvent(ctx context.Context, eventID, userID uuid.UUID) error
}
