package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/repository"
)

type procedures struct {
	db *sql.DB
}

// NewProcedures returns the caller for the stored procedures defined in
// migrations/000002_procedures.up.sql
func NewProcedures(db *sql.DB) repository.Procedures {
	return &procedures{db: db}
}

func (p *procedures) JoinRoomByInvite(ctx context.Context, code string, userID uuid.UUID, displayName string) (uuid.UUID, error) {
	var roomID uuid.UUID
	err := p.db.QueryRowContext(ctx,
		`SELECT join_room_by_invite($1, $2, $3)`,
		code, userID, displayName,
	).Scan(&roomID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("join_room_by_invite: %w", translate(err))
	}
	return roomID, nil
}

func (p *procedures) ConfirmCandidate(ctx context.Context, candidateID, userID uuid.UUID, startsAt *time.Time) (uuid.UUID, error) {
	var eventID uuid.UUID
	err := p.db.QueryRowContext(ctx,
		`SELECT confirm_candidate($1, $2, $3)`,
		candidateID, userID, startsAt,
	).Scan(&eventID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("confirm_candidate: %w", translate(err))
	}
	return eventID, nil
}

func (p *procedures) DeleteCandidate(ctx context.Context, candidateID, userID uuid.UUID) error {
	if _, err := p.db.ExecContext(ctx, `SELECT delete_schedule_candidate($1, $2)`, candidateID, userID); err != nil {
		return fmt.Errorf("delete_schedule_candidate: %w", translate(err))
	}
	return nil
}

func (p *procedures) DeleteEvent(ctx context.Context, eventID, userID uuid.UUID) error {
	if _, err := p.db.ExecContext(ctx, `SELECT delete_event($1, $2)`, eventID, userID); err != nil {
		return fmt.Errorf("delete_event: %w", translate(err))
	}
	return nil
}
