package session

import (
	"errors"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNoRefreshToken       = errors.New("no refresh token")
	ErrRefreshRejected      = errors.New("refresh rejected")
	ErrTransportFailure     = errors.New("transport failure")
	ErrRejected             = errors.New("rejected by server")
	ErrSessionEnded         = errors.New("session ended")
)

// RejectedError is a success:false answer of the server.
type RejectedError struct {
	Message     string
	FieldErrors map[string]string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}

	return ErrRejected.Error() + ": " + e.Message
}

func (e *RejectedError) Unwrap() error {
	return ErrRejected
}
