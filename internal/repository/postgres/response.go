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

type responseRepository struct {
	db *sql.DB
}

// NewResponseRepository creates a new response repository
func NewResponseRepository(db *sql.DB) repository.ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) Upsert(ctx context.Context, response *models.Response) error {
	query := `
		INSERT INTO rsvps (candidate_id, room_id, user_id, status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT rsvps_candidate_user_key DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`

	response.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		response.CandidateID,
		response.RoomID,
		response.UserID,
		string(response.Status),
		response.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert response: %w", translate(err))
	}
	return nil
}

func (r *responseRepository) ListForRoom(ctx context.Context, roomID uuid.UUID) ([]*models.Response, error) {
	query := `
		SELECT candidate_id, room_id, user_id, status, updated_at
		FROM rsvps
		WHERE room_id = $1
		ORDER BY updated_at ASC`

	return r.list(ctx, query, roomID)
}

func (r *responseRepository) ListForCandidate(ctx context.Context, roomID, candidateID uuid.UUID) ([]*models.Response, error) {
	query := `
		SELECT candidate_id, room_id, user_id, status, updated_at
		FROM rsvps
		WHERE room_id = $1 AND candidate_id = $2
		ORDER BY updated_at ASC`

	return r.list(ctx, query, roomID, candidateID)
}

func (r *responseRepository) list(ctx context.Context, query string, args ...any) ([]*models.Response, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	defer rows.Close()

	var responses []*models.Response
	for rows.Next() {
		resp := &models.Response{}
		var status string
		if err := rows.Scan(
			&resp.CandidateID,
			&resp.RoomID,
			&resp.UserID,
			&status,
			&resp.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		resp.Status = models.ResponseStatus(status)
		responses = append(responses, resp)
	}

	return responses, rows.Err()
}
