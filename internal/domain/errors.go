package domain

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

// FieldTakenError reports which unique field collided on registration.
type FieldTakenError struct {
	Field string
}

func (e *FieldTakenError) Error() string { return e.Field + " already taken" }

func (e *FieldTakenError) Unwrap() error { return ErrUserExists }

// ValidationError is a client input problem whose message is safe to show.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
