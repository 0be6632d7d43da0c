package store

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a requested resource does not exist in the
	// store, or exists but is not owned by the requesting user.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrDuplicateEmail is returned when an email address is already taken.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrDuplicateService is returned when a service name is already registered.
	ErrDuplicateService = errors.New("service already exists")
)

// translateUserConflict maps a unique-constraint violation on the users table
// to the matching duplicate sentinel. The store does an explicit pre-check
// before inserting, but two concurrent registrations can both pass it; the
// database constraint is the authority and its error is translated here.
func translateUserConflict(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if !isUniqueViolation(msg) {
		return err
	}
	switch {
	case strings.Contains(msg, "username"):
		return ErrDuplicateUsername
	case strings.Contains(msg, "email"):
		return ErrDuplicateEmail
	}
	return err
}

func isUniqueViolation(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed")
}
