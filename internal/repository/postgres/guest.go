package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/repository"
)

type guestRepository struct {
	db *sql.DB
}

// NewGuestRepository creates a new guest repository
func NewGuestRepository(db *sql.DB) repository.GuestRepository {
	return &guestRepository{db: db}
}

const guestColumns = `id, room_id, candidate_id, name, note, created_by, created_at`

func scanGuest(row interface{ Scan(...any) error }) (*models.Guest, error) {
	g := &models.Guest{}
	err := row.Scan(
		&g.ID,
		&g.RoomID,
		&g.CandidateID,
		&g.Name,
		&g.Note,
		&g.CreatedByID,
		&g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *guestRepository) Create(ctx context.Context, guest *models.Guest) (*models.Guest, error) {
	query := `
		INSERT INTO room_guests (room_id, candidate_id, name, note, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		guest.RoomID,
		guest.CandidateID,
		guest.Name,
		guest.Note,
		guest.CreatedByID,
		time.Now(),
	).Scan(&guest.ID, &guest.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create guest: %w", translate(err))
	}

	return guest, nil
}

func (r *guestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Guest, error) {
	query := `SELECT ` + guestColumns + ` FROM room_guests WHERE id = $1`

	g, err := scanGuest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get guest: %w", translate(err))
	}
	return g, nil
}

func (r *guestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return execOne(ctx, r.db, "delete guest", `DELETE FROM room_guests WHERE id = $1`, id)
}

func (r *guestRepository) ListForRoom(ctx context.Context, roomID uuid.UUID) ([]*models.Guest, error) {
	query := `
		SELECT ` + guestColumns + `
		FROM room_guests
		WHERE room_id = $1
		ORDER BY created_at ASC`

	return r.list(ctx, query, roomID)
}

func (r *guestRepository) ListForCandidate(ctx context.Context, roomID, candidateID uuid.UUID) ([]*models.Guest, error) {
	query := `
		SELECT ` + guestColumns + `
		FROM room_guests
		WHERE room_id = $1 AND candidate_id = $2
		ORDER BY created_at ASC`

	return r.list(ctx, query, roomID, candidateID)
}

func (r *guestRepository) list(ctx context.Context, query string, args ...any) ([]*models.Guest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()

	var guests []*models.Guest
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, g)
	}

	return guests, rows.Err()
}
