package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound = "room_not_found"
	ErrCodeInvalidName  = "invalid_name"
	ErrCodeRoomStarted  = "room_started"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrInvalidName  = errors.New("invalid name")
	ErrRoomStarted  = errors.New("room already started")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// CodeFor maps a domain error to its wire-level error code.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return ErrCodeRoomNotFound
	case errors.Is(err, ErrInvalidName):
		return ErrCodeInvalidName
	case errors.Is(err, ErrRoomStarted):
		return ErrCodeRoomStarted
	default:
		return ErrCodeBadRequest
	}
}
