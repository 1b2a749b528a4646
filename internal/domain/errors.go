package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrTagNotFound   = errors.New("tag not found")
	ErrItemNotFound  = errors.New("item not found")
	ErrEntryNotFound = errors.New("cart entry not found")

	ErrStorageTimeout     = errors.New("storage timeout")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StorageError tags a failed storage round-trip as a timeout or as unavailability.
// Sentinel "not found" errors and validation errors pass through untouched.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTagNotFound) || errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrEntryNotFound) {
		return err
	}
	if errors.Is(err, ErrStorageTimeout) || errors.Is(err, ErrStorageUnavailable) || IsValidation(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
