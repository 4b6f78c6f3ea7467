package domain

import "errors"

var (
	// ErrNotFound is returned when a user, attendance record, todo or archive
	// entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when an active user already has the email.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a store uniqueness constraint rejects a write.
	ErrConflict = errors.New("conflict")

	// ErrForbidden is returned when a configured policy refuses the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrStorageUnavailable wraps backend connectivity failures.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
