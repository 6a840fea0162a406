package services

import (
	"errors"
	"fmt"

	"github.com/CUknot/chatflow_backend/database"
)

// Business failures. None of these succeed on retry; ErrStoreUnavailable may.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyMember    = errors.New("already a member of this room")
	ErrDuplicatePending = errors.New("a pending request already exists")
	ErrAlreadyResolved  = errors.New("request has already been resolved")
	ErrEmptyMessage     = errors.New("message text is empty")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAlreadyExists    = errors.New("already exists")
	ErrStoreUnavailable = errors.New("store unavailable")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "NotFound"},
	{ErrForbidden, "Forbidden"},
	{ErrAlreadyMember, "AlreadyMember"},
	{ErrDuplicatePending, "DuplicatePending"},
	{ErrAlreadyResolved, "AlreadyResolved"},
	{ErrEmptyMessage, "EmptyMessage"},
	{ErrValidation, "ValidationError"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrAlreadyExists, "AlreadyExists"},
	{ErrStoreUnavailable, "StoreUnavailable"},
}

// Code returns the wire code for err, or "Internal" for anything unclassified.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Internal"
}

// Retryable reports whether err is a storage failure worth retrying.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// fromStore maps database sentinels onto the business taxonomy. what names the
// addressed entity for not-found messages.
func fromStore(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("%s %w", what, ErrNotFound)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
