package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/repository"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", fmt.Errorf("wrap: %w", invalid("date", "date is required")), "date is required"},
		{"backend", fmt.Errorf("confirm: %w", &repository.Error{Kind: repository.ErrQuorumNotReached, Message: "quorum not reached (1 of 4)"}), "quorum not reached (1 of 4)"},
		{"forbidden", fmt.Errorf("x: %w", ErrForbidden), "only the room owner can do this"},
		{"credentials", auth.ErrInvalidCredentials, "invalid email or password"},
		{"not member", ErrNotMember, "you are not a member of this room"},
		{"not found", fmt.Errorf("load: %w", repository.ErrNotFound), "not found"},
		{"internal", errors.New("connection reset by peer"), "something went wrong, please try again"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
