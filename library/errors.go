package library

import "errors"

// Every failure returned by the library wraps exactly one of these so the
// calling shell can render a precise message with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrBookUnavailable = errors.New("book unavailable")
	ErrBookBorrowed    = errors.New("book is currently borrowed")
	ErrNoOpenBorrow    = errors.New("no open borrow")
	ErrPersistence     = errors.New("persistence failure")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ErrInvalidCredentials is returned by the auth gate, never by the core
// transitions.
var ErrInvalidCredentials = errors.New("invalid member id or password")
