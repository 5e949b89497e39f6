package storefront

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when a call is still rejected after session recovery.
	ErrUnauthorized = errors.New("unauthorized")
	ErrTransport    = errors.New("storefront transport failure")
)

type APIError struct {
	StatusCode  int
	Message     string
	FieldErrors map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storefront call failed with status %d", e.StatusCode)
	}

	return fmt.Sprintf("storefront call failed with status %d: %s", e.StatusCode, e.Message)
}
