package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var errRetryableStatus = errors.New("retryable response status")

// RetryTripper retries idempotent requests on transport errors and 502/503/504 responses.
// The last response is returned when retries are exhausted.
func RetryTripper(maxRetries uint64, initialInterval time.Duration) Constructor {
	return func(next http.RoundTripper) http.RoundTripper {
		if maxRetries == 0 {
			return next
		}

		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if !isIdempotent(req.Method) || req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
				return next.RoundTrip(req)
			}

			eb := backoff.NewExponentialBackOff()
			eb.InitialInterval = initialInterval
			eb.MaxElapsedTime = 0
			policy := backoff.WithContext(backoff.WithMaxRetries(eb, maxRetries), req.Context())

			attempt := 0
			var resp *http.Response
			err := backoff.Retry(func() error {
				if resp != nil {
					drainAndClose(resp.Body)
					resp = nil
				}

				attemptReq, err := rewindRequest(req, attempt)
				attempt++
				if err != nil {
					return backoff.Permanent(err)
				}

				r, err := next.RoundTrip(attemptReq)
				if err != nil {
					if req.Context().Err() != nil {
						return backoff.Permanent(err)
					}
					return err
				}

				resp = r
				if isRetryableStatus(r.StatusCode) {
					return errRetryableStatus
				}
				return nil
			}, policy)
			if resp != nil {
				return resp, nil
			}

			return nil, err
		})
	}
}

func rewindRequest(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.GetBody == nil {
		return req, nil
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}

	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
