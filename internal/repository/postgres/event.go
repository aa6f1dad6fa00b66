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

type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

// min_players is read from the originating candidate
const eventSelect = `
	SELECT e.id, e.room_id, e.candidate_id, e.date, c.min_players, e.starts_at, e.note,
	       e.created_by, e.confirmed_at, e.reminded_at
	FROM events e
	INNER JOIN schedule_candidates c ON c.id = e.candidate_id`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(
		&e.ID,
		&e.RoomID,
		&e.CandidateID,
		&e.Date,
		&e.MinPlayers,
		&e.StartsAt,
		&e.Note,
		&e.CreatedByID,
		&e.ConfirmedAt,
		&e.RemindedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, eventSelect+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", translate(err))
	}
	return e, nil
}

func (r *eventRepository) GetByCandidate(ctx context.Context, candidateID uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, eventSelect+` WHERE e.candidate_id = $1`, candidateID))
	if err != nil {
		return nil, fmt.Errorf("failed to get event by candidate: %w", translate(err))
	}
	return e, nil
}

func (r *eventRepository) ListForRoom(ctx context.Context, roomID uuid.UUID) ([]*models.Event, error) {
	return r.list(ctx, eventSelect+` WHERE e.room_id = $1 ORDER BY e.date ASC`, roomID)
}

func (r *eventRepository) UpdateDetails(ctx context.Context, id uuid.UUID, startsAt *time.Time, note string) error {
	// a new start time re-arms the reminder
	query := `
		UPDATE events
		SET starts_at = $2,
		    note = $3,
		    reminded_at = CASE WHEN starts_at IS DISTINCT FROM $2 THEN NULL ELSE reminded_at END
		WHERE id = $1`

	return execOne(ctx, r.db, "update event", query, id, startsAt, note)
}

func (r *eventRepository) ListDueReminders(ctx context.Context, now, until time.Time) ([]*models.Event, error) {
	query := eventSelect + `
		WHERE e.reminded_at IS NULL
		  AND e.starts_at IS NOT NULL
		  AND e.starts_at > $1
		  AND e.starts_at <= $2
		ORDER BY e.starts_at ASC`

	return r.list(ctx, query, now, until)
}

func (r *eventRepository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	return execOne(ctx, r.db, "mark event reminded", `UPDATE events SET reminded_at = $2 WHERE id = $1`, id, at)
}

func (r *eventRepository) list(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
