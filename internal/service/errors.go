package service

import (
	"errors"
	"fmt"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/repository"
)

var (
	// ErrUnauthenticated means the request carries no usable session
	ErrUnauthenticated = errors.New("please sign in to continue")
	// ErrForbidden is returned before any write when the caller is not the room owner
	ErrForbidden = repository.ErrForbidden
	// ErrNotMember is returned when the caller does not belong to the room
	ErrNotMember = errors.New("you are not a member of this room")
)

// ValidationError rejects input before anything is sent to the database
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UserMessage returns the text shown to the user for err. Validation,
// authorization and database-raised errors are shown as they are; anything
// else becomes a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}

	var repoErr *repository.Error
	if errors.As(err, &repoErr) && repoErr.Message != "" {
		return repoErr.Message
	}

	switch {
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotMember),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, repository.ErrInvalidInviteCode),
		errors.Is(err, repository.ErrQuorumNotReached),
		errors.Is(err, repository.ErrAlreadyConfirmed):
		return innermost(err).Error()
	case errors.Is(err, repository.ErrNotFound):
		return "not found"
	}
	return "something went wrong, please try again"
}

func innermost(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
