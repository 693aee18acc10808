package types

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrInvalidToken    = errors.New("invalid session token")
	ErrTokenExpired    = errors.New("session token expired")
	ErrForbidden       = errors.New("action forbidden")
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUpstream        = errors.New("upstream service failed")
)

// DetailedError pairs one of the sentinel errors above with a message that is
// safe to show to API clients.
type DetailedError struct {
	Kind    error
	Message string
}

func (e *DetailedError) Error() string {
	return e.Kind.Error() + ": " + e.Message
}

func (e *DetailedError) Unwrap() error {
	return e.Kind
}

// NewError returns an error that matches kind with errors.Is and carries a
// client facing message.
func NewError(kind error, message string) error {
	return &DetailedError{Kind: kind, Message: message}
}

// PublicMessage returns the client facing message attached with NewError,
// or fallback when err carries none.
func PublicMessage(err error, fallback string) string {
	var de *DetailedError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}
