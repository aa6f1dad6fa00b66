package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/Kerhoff/rollcall/internal/repository"
)

const (
	codeUniqueViolation pq.ErrorCode = "23505"
	codeForbidden       pq.ErrorCode = "RC403"
	codeNotFound        pq.ErrorCode = "RC404"
	codeAlreadyDone     pq.ErrorCode = "RC409"
	codeQuorum          pq.ErrorCode = "RC422"
)

// translate maps driver errors onto repository sentinels. Errors it does not
// recognise are returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	var kind error
	switch pqErr.Code {
	case codeUniqueViolation:
		kind = repository.ErrDuplicate
	case codeForbidden:
		kind = repository.ErrForbidden
	case codeNotFound:
		kind = repository.ErrNotFound
		if pqErr.Message == repository.ErrInvalidInviteCode.Error() {
			kind = repository.ErrInvalidInviteCode
		}
	case codeAlreadyDone:
		kind = repository.ErrAlreadyConfirmed
	case codeQuorum:
		kind = repository.ErrQuorumNotReached
	default:
		return err
	}
	return &repository.Error{Kind: kind, Message: pqErr.Message}
}
