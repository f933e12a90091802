package store

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned when a CAS insert loses to an existing username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrEmailTaken is returned when a CAS insert loses to an existing email.
	ErrEmailTaken = errors.New("email already registered")
)
