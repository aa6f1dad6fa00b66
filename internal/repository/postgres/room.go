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

type roomRepository struct {
	db *sql.DB
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *sql.DB) repository.RoomRepository {
	return &roomRepository{db: db}
}

const roomColumns = `r.id, r.name, r.invite_code, r.created_by, r.telegram_chat_id, r.created_at, r.updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*models.Room, error) {
	room := &models.Room{}
	var chatID sql.NullInt64
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.InviteCode,
		&room.CreatedByID,
		&chatID,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if chatID.Valid {
		room.TelegramChatID = &chatID.Int64
	}
	return room, nil
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room, owner *models.Membership) (*models.Room, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO rooms (name, invite_code, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		room.Name,
		room.InviteCode,
		room.CreatedByID,
		now,
		now,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", translate(err))
	}

	owner.RoomID = room.ID
	owner.Role = models.RoleOwner
	owner.CreatedAt = now
	_, err = tx.ExecContext(ctx, `
		INSERT INTO room_members (room_id, user_id, display_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		owner.RoomID,
		owner.UserID,
		owner.DisplayName,
		owner.Role.String(),
		owner.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add room owner: %w", translate(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit room: %w", err)
	}

	return room, nil
}

func (r *roomRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms r WHERE r.id = $1`

	room, err := scanRoom(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get room by ID: %w", translate(err))
	}
	return room, nil
}

func (r *roomRepository) GetByInviteCode(ctx context.Context, code string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms r WHERE r.invite_code = $1`

	room, err := scanRoom(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("failed to get room by invite code: %w", translate(err))
	}
	return room, nil
}

func (r *roomRepository) GetByTelegramChat(ctx context.Context, chatID int64) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms r WHERE r.telegram_chat_id = $1`

	room, err := scanRoom(r.db.QueryRowContext(ctx, query, chatID))
	if err != nil {
		return nil, fmt.Errorf("failed to get room by telegram chat: %w", translate(err))
	}
	return room, nil
}

func (r *roomRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		INNER JOIN room_members rm ON rm.room_id = r.id
		WHERE rm.user_id = $1
		ORDER BY r.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (r *roomRepository) Rename(ctx context.Context, id uuid.UUID, name string) error {
	query := `UPDATE rooms SET name = $2, updated_at = $3 WHERE id = $1`

	return execOne(ctx, r.db, "rename room", query, id, name, time.Now())
}

func (r *roomRepository) SetTelegramChat(ctx context.Context, id uuid.UUID, chatID *int64) error {
	query := `UPDATE rooms SET telegram_chat_id = $2, updated_at = $3 WHERE id = $1`

	var value sql.NullInt64
	if chatID != nil {
		value = sql.NullInt64{Int64: *chatID, Valid: true}
	}
	return execOne(ctx, r.db, "set telegram chat", query, id, value, time.Now())
}

func (r *roomRepository) Members(ctx context.Context, roomID uuid.UUID) ([]*models.Membership, error) {
	query := `
		SELECT room_id, user_id, display_name, role, created_at
		FROM room_members
		WHERE room_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query room members: %w", err)
	}
	defer rows.Close()

	var members []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

func (r *roomRepository) GetMembership(ctx context.Context, roomID, userID uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT room_id, user_id, display_name, role, created_at
		FROM room_members
		WHERE room_id = $1 AND user_id = $2`

	m, err := scanMembership(r.db.QueryRowContext(ctx, query, roomID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", translate(err))
	}
	return m, nil
}

func scanMembership(row interface{ Scan(...any) error }) (*models.Membership, error) {
	m := &models.Membership{}
	var role string
	if err := row.Scan(&m.RoomID, &m.UserID, &m.DisplayName, &role, &m.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}
	m.Role = parsed
	return m, nil
}

func (r *roomRepository) UpdateMemberDisplayName(ctx context.Context, roomID, userID uuid.UUID, displayName string) error {
	query := `UPDATE room_members SET display_name = $3 WHERE room_id = $1 AND user_id = $2`

	return execOne(ctx, r.db, "update member display name", query, roomID, userID, displayName)
}

func (r *roomRepository) UpdateDisplayNameEverywhere(ctx context.Context, userID uuid.UUID, displayName string) error {
	query := `UPDATE room_members SET display_name = $2 WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID, displayName); err != nil {
		return fmt.Errorf("failed to update display names: %w", translate(err))
	}
	return nil
}

func (r *roomRepository) RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error {
	query := `DELETE FROM room_members WHERE room_id = $1 AND user_id = $2 AND role <> 'owner'`

	return execOne(ctx, r.db, "remove room member", query, roomID, userID)
}
