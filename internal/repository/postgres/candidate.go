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

type candidateRepository struct {
	db *sql.DB
}

// NewCandidateRepository creates a new candidate repository
func NewCandidateRepository(db *sql.DB) repository.CandidateRepository {
	return &candidateRepository{db: db}
}

const candidateColumns = `id, room_id, date, min_players, is_confirmed, created_by, created_at`

func scanCandidate(row interface{ Scan(...any) error }) (*models.Candidate, error) {
	c := &models.Candidate{}
	err := row.Scan(
		&c.ID,
		&c.RoomID,
		&c.Date,
		&c.MinPlayers,
		&c.IsConfirmed,
		&c.CreatedByID,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *candidateRepository) Create(ctx context.Context, candidate *models.Candidate) (*models.Candidate, error) {
	query := `
		INSERT INTO schedule_candidates (room_id, date, min_players, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_confirmed, created_at`

	err := r.db.QueryRowContext(ctx, query,
		candidate.RoomID,
		candidate.DateString(),
		candidate.MinPlayers,
		candidate.CreatedByID,
		time.Now(),
	).Scan(&candidate.ID, &candidate.IsConfirmed, &candidate.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create candidate: %w", translate(err))
	}

	return candidate, nil
}

func (r *candidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM schedule_candidates WHERE id = $1`

	c, err := scanCandidate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", translate(err))
	}
	return c, nil
}

func (r *candidateRepository) ListUpcoming(ctx context.Context, roomID uuid.UUID, from time.Time) ([]*models.Candidate, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM schedule_candidates
		WHERE room_id = $1 AND date >= $2
		ORDER BY date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, roomID, from.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}
