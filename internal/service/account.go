package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/repository"
)

// MaxDisplayNameLength bounds names shown on boards and participant lists
const MaxDisplayNameLength = 40

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalid("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "email address is not valid")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < auth.MinPasswordLength {
		return invalid("password", "password must be at least %d characters", auth.MinPasswordLength)
	}
	return nil
}

func normalizeDisplayName(name string, required bool) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" && required {
		return "", invalid("display_name", "display name is required")
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", invalid("display_name", "display name must be at most %d characters", MaxDisplayNameLength)
	}
	return name, nil
}

// SignUp creates an account and returns a session token for it
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (string, *models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", nil, err
	}
	if err := validatePassword(password); err != nil {
		return "", nil, err
	}
	displayName, err = normalizeDisplayName(displayName, false)
	if err != nil {
		return "", nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", nil, err
	}

	user, err := s.Users.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return "", nil, invalid("email", "an account with this email already exists")
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign up: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User signed up")
	return s.issue(user)
}

// SignIn checks credentials and returns a session token
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, auth.ErrInvalidCredentials
	}

	user, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign in: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		s.logger.WithField("user_id", user.ID).Warn("Failed sign in attempt")
		return "", nil, err
	}

	return s.issue(user)
}

func (s *Service) issue(user *models.User) (string, *models.User, error) {
	token, _, err := s.tokens.Issue(user.ID, user.Email, user.SessionVersion)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// SignOut invalidates every session issued to the caller so far
func (s *Service) SignOut(ctx context.Context, sess auth.Session) error {
	if sess.UserID == uuid.Nil {
		return nil
	}
	if _, err := s.Users.BumpSessionVersion(ctx, sess.UserID); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	s.logger.WithField("user_id", sess.UserID).Info("User signed out")
	return nil
}

// Authenticate verifies a session token and the account it belongs to
func (s *Service) Authenticate(ctx context.Context, token string) (auth.Session, *models.User, error) {
	sess, err := s.tokens.Parse(token)
	if err != nil {
		return auth.Session{}, nil, ErrUnauthenticated
	}
	user, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return auth.Session{}, nil, err
	}
	return sess, user, nil
}

// CurrentUser returns the account behind sess. Sessions issued before the
// last sign-out or password change are rejected.
func (s *Service) CurrentUser(ctx context.Context, sess auth.Session) (*models.User, error) {
	if !sess.Valid(s.now()) {
		return nil, ErrUnauthenticated
	}

	user, err := s.Users.GetByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load current user: %w", err)
	}

	if user.SessionVersion != sess.Version {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// ChangePassword replaces the caller's password. Other sessions are signed
// out; the returned token keeps the current browser signed in.
func (s *Service) ChangePassword(ctx context.Context, sess auth.Session, current, next string) (string, error) {
	user, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return "", err
	}
	if err := auth.CheckPassword(user.PasswordHash, current); err != nil {
		return "", invalid("current_password", "current password is incorrect")
	}
	if err := validatePassword(next); err != nil {
		return "", err
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return "", err
	}
	if err := s.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return "", fmt.Errorf("failed to change password: %w", err)
	}

	user, err = s.Users.GetByID(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to reload user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("Password changed")
	token, _, err := s.issue(user)
	return token, err
}

// RequestPasswordReset mails a single-use reset link. Unknown addresses are
// accepted silently so the form does not reveal which emails have accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Debug("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	token, hash, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	reset := &models.PasswordReset{
		TokenHash: hash,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(auth.ResetTokenTTL),
	}
	if err := s.Users.CreatePasswordReset(ctx, reset); err != nil {
		return fmt.Errorf("failed to store password reset: %w", err)
	}

	link := s.link("/password/reset?token=" + url.QueryEscape(token))
	if err := s.mailer.SendPasswordReset(ctx, user.Email, link); err != nil {
		return fmt.Errorf("failed to send password reset: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("Password reset requested")
	return nil
}

// ResetPassword redeems a reset token and sets a new password
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if strings.TrimSpace(token) == "" {
		return invalid("token", "reset link is invalid or has expired")
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	userID, err := s.Users.ResetPassword(ctx, auth.HashResetToken(token), hash, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("token", "reset link is invalid or has expired")
	}
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.logger.WithField("user_id", userID).Info("Password reset")
	return nil
}

// UpdateDisplayName changes the caller's profile name and the name shown in
// every room they belong to
func (s *Service) UpdateDisplayName(ctx context.Context, sess auth.Session, name string) error {
	if sess.UserID == uuid.Nil {
		return ErrUnauthenticated
	}
	name, err := normalizeDisplayName(name, true)
	if err != nil {
		return err
	}

	if err := s.Users.UpdateDisplayName(ctx, sess.UserID, name); err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	if err := s.Rooms.UpdateDisplayNameEverywhere(ctx, sess.UserID, name); err != nil {
		return fmt.Errorf("failed to update member names: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": sess.UserID,
	}).Info("Display name updated")
	return nil
}
