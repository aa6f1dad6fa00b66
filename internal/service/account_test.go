package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/Kerhoff/rollcall/internal/auth"
)

func TestSignUpAndSignIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	token, user, err := h.svc.SignUp(ctx, "  Alice@Example.com ", "correct-horse", " Alice ")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased and trimmed", user.Email)
	}
	if user.DisplayName != "Alice" {
		t.Errorf("display name = %q", user.DisplayName)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in plain text")
	}

	sess, user2, err := h.svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if sess.UserID != user.ID || user2.ID != user.ID {
		t.Errorf("session user = %s, want %s", sess.UserID, user.ID)
	}

	if _, _, err := h.svc.SignIn(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := h.svc.SignIn(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := h.svc.SignIn(ctx, "ALICE@example.com", "correct-horse"); err != nil {
		t.Errorf("SignIn: %v", err)
	}
}

func TestSignUpValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "taken@example.com", "")

	tests := []struct {
		name, email, password, field string
	}{
		{"missing email", "", "correct-horse", "email"},
		{"bad email", "not-an-email", "correct-horse", "email"},
		{"short password", "new@example.com", "short", "password"},
		{"duplicate", "Taken@example.com", "correct-horse", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := h.svc.SignUp(ctx, tt.email, tt.password, "")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestSignOutInvalidatesSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.signUp(t, "bob@example.com", "Bob")

	if _, err := h.svc.CurrentUser(ctx, sess); err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if err := h.svc.SignOut(ctx, sess); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := h.svc.CurrentUser(ctx, sess); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("after sign out: err = %v, want ErrUnauthenticated", err)
	}
	if _, err := h.svc.CurrentUser(ctx, auth.Session{}); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("empty session: err = %v, want ErrUnauthenticated", err)
	}
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.signUp(t, "carol@example.com", "Carol")

	if _, err := h.svc.ChangePassword(ctx, sess, "wrong", "new-password"); err == nil {
		t.Fatal("expected error for wrong current password")
	}
	if _, err := h.svc.ChangePassword(ctx, sess, "correct-horse", "short"); err == nil {
		t.Fatal("expected error for short password")
	}

	token, err := h.svc.ChangePassword(ctx, sess, "correct-horse", "new-password")
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := h.svc.CurrentUser(ctx, sess); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("old session should be invalid, err = %v", err)
	}
	if _, _, err := h.svc.Authenticate(ctx, token); err != nil {
		t.Errorf("new token rejected: %v", err)
	}
	if _, _, err := h.svc.SignIn(ctx, "carol@example.com", "new-password"); err != nil {
		t.Errorf("SignIn with new password: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "dave@example.com", "Dave")

	if err := h.svc.RequestPasswordReset(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email should not fail: %v", err)
	}
	if h.mailer.count != 0 {
		t.Fatal("no mail should be sent for unknown addresses")
	}

	if err := h.svc.RequestPasswordReset(ctx, "dave@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if h.mailer.to != "dave@example.com" {
		t.Errorf("mail sent to %q", h.mailer.to)
	}
	if !strings.HasPrefix(h.mailer.link, "https://rollcall.test/password/reset?token=") {
		t.Fatalf("unexpected link %q", h.mailer.link)
	}

	u, err := url.Parse(h.mailer.link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	token := u.Query().Get("token")

	if err := h.svc.ResetPassword(ctx, token, "short"); err == nil {
		t.Fatal("expected error for short password")
	}
	if err := h.svc.ResetPassword(ctx, token, "brand-new-pass"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if err := h.svc.ResetPassword(ctx, token, "another-pass"); err == nil {
		t.Fatal("reset token must be single-use")
	}
	if _, _, err := h.svc.SignIn(ctx, "dave@example.com", "brand-new-pass"); err != nil {
		t.Errorf("SignIn after reset: %v", err)
	}
}

func TestUpdateDisplayNameEverywhere(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room, _, members := h.roomWith(t, "Erin")

	if err := h.svc.UpdateDisplayName(ctx, members[0], "  "); err == nil {
		t.Fatal("expected error for blank name")
	}
	if err := h.svc.UpdateDisplayName(ctx, members[0], "Erin K."); err != nil {
		t.Fatalf("UpdateDisplayName: %v", err)
	}

	m, err := h.svc.Rooms.GetMembership(ctx, room.ID, members[0].UserID)
	if err != nil {
		t.Fatalf("GetMembership: %v", err)
	}
	if m.DisplayName != "Erin K." {
		t.Errorf("member display name = %q", m.DisplayName)
	}
	u, _ := h.svc.Users.GetByID(ctx, members[0].UserID)
	if u.DisplayName != "Erin K." {
		t.Errorf("profile display name = %q", u.DisplayName)
	}
}

func TestFailedPasswordResetKeepsToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "erin@example.com", "Erin")

	if err := h.svc.RequestPasswordReset(ctx, "erin@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	u, err := url.Parse(h.mailer.link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	token := u.Query().Get("token")

	users := h.svc.Users
	h.svc.Users = brokenResets{users}
	err = h.svc.ResetPassword(ctx, token, "brand-new-pass")
	var ve *ValidationError
	if err == nil || errors.As(err, &ve) {
		t.Fatalf("ResetPassword with failing store: err = %v", err)
	}

	h.svc.Users = users
	if err := h.svc.ResetPassword(ctx, token, "brand-new-pass"); err != nil {
		t.Fatalf("retry with the same link: %v", err)
	}
	if _, _, err := h.svc.SignIn(ctx, "erin@example.com", "brand-new-pass"); err != nil {
		t.Errorf("SignIn after reset: %v", err)
	}
}
