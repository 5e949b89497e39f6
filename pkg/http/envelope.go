package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// ErrTransport marks failures below the business level: network errors, 5xx responses and malformed bodies.
var ErrTransport = errors.New("transport failure")

// Envelope is the uniform response wrapper of the storefront API.
type Envelope[T any] struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       T               `json:"data"`
	Error      json.RawMessage `json:"error,omitempty"`
	Timestamp  string          `json:"timestamp"`
	StatusCode int             `json:"-"`
}

// FieldErrors returns the field to message mapping carried in the error member, nil when there is none.
func (e Envelope[T]) FieldErrors() map[string]string {
	if len(e.Error) == 0 {
		return nil
	}

	var plain map[string]string
	if err := json.Unmarshal(e.Error, &plain); err == nil {
		if len(plain) == 0 {
			return nil
		}
		return plain
	}

	var mixed map[string]any
	if err := json.Unmarshal(e.Error, &mixed); err != nil || len(mixed) == 0 {
		return nil
	}

	result := make(map[string]string, len(mixed))
	for field, value := range mixed {
		switch v := value.(type) {
		case string:
			result[field] = v
		case nil:
			continue
		default:
			result[field] = fmt.Sprint(v)
		}
	}

	return result
}

// ParseEnvelope classifies a resty call result.
// 4xx responses are business failures even when the body is not an envelope,
// an empty 2xx body is a success.
func ParseEnvelope[T any](resp *resty.Response, err error) (Envelope[T], error) {
	var result Envelope[T]
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if resp == nil {
		return result, fmt.Errorf("%w: empty response", ErrTransport)
	}

	result.StatusCode = resp.StatusCode()
	if resp.StatusCode() >= http.StatusInternalServerError {
		return result, fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode())
	}

	if len(resp.Body()) == 0 && resp.StatusCode() < http.StatusBadRequest {
		result.Success = true
		return result, nil
	}

	decodeErr := json.Unmarshal(resp.Body(), &result)
	result.StatusCode = resp.StatusCode()
	switch {
	case resp.StatusCode() >= http.StatusBadRequest:
		if decodeErr != nil {
			result = Envelope[T]{
				Message:    http.StatusText(resp.StatusCode()),
				StatusCode: resp.StatusCode(),
			}
		}
		result.Success = false
		return result, nil
	case decodeErr != nil:
		return Envelope[T]{StatusCode: resp.StatusCode()}, fmt.Errorf("%w: malformed response body: %w", ErrTransport, decodeErr)
	default:
		return result, nil
	}
}
