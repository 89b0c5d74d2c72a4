package domain

import "errors"

// Error kinds. Every signup failure wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
)

var (
	// ErrActivityNotFound is returned when no activity has the requested name.
	ErrActivityNotFound error = &kindError{kind: ErrNotFound, msg: "activity not found"}
	// ErrInvalidEmailDomain is returned for addresses outside the institutional domain.
	ErrInvalidEmailDomain error = &kindError{kind: ErrInvalidInput, msg: "email is not an institutional address"}
	// ErrAlreadySignedUp is returned when the student is already on the roster.
	ErrAlreadySignedUp error = &kindError{kind: ErrConflict, msg: "student already signed up for this activity"}
	// ErrActivityFull is returned when the roster is at capacity.
	ErrActivityFull error = &kindError{kind: ErrForbidden, msg: "activity is full"}
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
