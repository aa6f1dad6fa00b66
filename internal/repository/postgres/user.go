package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, password_hash, display_name, session_version, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.SessionVersion,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (email, password_hash, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, session_version, created_at, updated_at`

	now := time.Now()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := r.db.QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		now,
		now,
	).Scan(&user.ID, &user.SessionVersion, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", translate(err))
	}

	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", translate(err))
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", translate(err))
	}
	return user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, session_version = session_version + 1, updated_at = $3
		WHERE id = $1`

	return r.execOne(ctx, "update password", query, id, passwordHash, time.Now())
}

func (r *userRepository) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error {
	query := `UPDATE users SET display_name = $2, updated_at = $3 WHERE id = $1`

	return r.execOne(ctx, "update display name", query, id, displayName, time.Now())
}

func (r *userRepository) BumpSessionVersion(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE users
		SET session_version = session_version + 1, updated_at = $2
		WHERE id = $1
		RETURNING session_version`

	var version int
	if err := r.db.QueryRowContext(ctx, query, id, time.Now()).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to bump session version: %w", translate(err))
	}
	return version, nil
}

func (r *userRepository) CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	query := `
		INSERT INTO password_resets (token_hash, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`

	reset.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, reset.TokenHash, reset.UserID, reset.ExpiresAt, reset.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create password reset: %w", translate(err))
	}
	return nil
}

func (r *userRepository) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error) {
	query := `
		WITH used AS (
			UPDATE password_resets
			SET used_at = $3
			WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $3
			RETURNING user_id
		)
		UPDATE users
		SET password_hash = $2, session_version = session_version + 1, updated_at = $3
		FROM used
		WHERE users.id = used.user_id
		RETURNING users.id`

	var id uuid.UUID
	if err := r.db.QueryRowContext(ctx, query, tokenHash, passwordHash, now).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to reset password: %w", translate(err))
	}
	return id, nil
}

func (r *userRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	return execOne(ctx, r.db, op, query, args...)
}
