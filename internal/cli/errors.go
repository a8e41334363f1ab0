package cli

import (
	"context"
	"errors"

	"smart-library/library"
)

// describeError turns a library error into the message shown to members.
func describeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Operation timed out, nothing was changed."
	case errors.Is(err, library.ErrPersistence):
		return "Could not save changes, nothing was changed: " + err.Error()
	case errors.Is(err, library.ErrInvalidCredentials):
		return "Invalid User ID or Password. Try again."
	case errors.Is(err, library.ErrBookUnavailable):
		return "Book is not available: " + err.Error()
	case errors.Is(err, library.ErrNoOpenBorrow):
		return "No record found for this book being borrowed."
	case errors.Is(err, library.ErrBookBorrowed):
		return "Book is currently borrowed and cannot be removed."
	case errors.Is(err, library.ErrNotFound):
		return "Invalid user or book ID: " + err.Error()
	case errors.Is(err, library.ErrDuplicateKey):
		return "ID already exists! Try another: " + err.Error()
	case errors.Is(err, library.ErrInvalidArgument):
		return "Invalid input: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

// userError prints as describeError but still unwraps to the cause.
type userError struct{ err error }

func (e userError) Error() string { return describeError(e.err) }
func (e userError) Unwrap() error { return e.err }

func wrapUserError(err error) error {
	if err == nil {
		return nil
	}
	return userError{err: err}
}
