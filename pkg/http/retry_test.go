package http_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttp "github.com/klwxsrx/storefront-console/pkg/http"
)

func TestRetryTripper(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		statuses      []int
		expectStatus  int
		expectAttempt int32
	}{
		{
			name:          "retries_get_until_success",
			method:        http.MethodGet,
			statuses:      []int{http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusOK},
			expectStatus:  http.StatusOK,
			expectAttempt: 3,
		},
		{
			name:          "returns_last_response_when_exhausted",
			method:        http.MethodGet,
			statuses:      []int{http.StatusGatewayTimeout, http.StatusGatewayTimeout, http.StatusGatewayTimeout, http.StatusGatewayTimeout},
			expectStatus:  http.StatusGatewayTimeout,
			expectAttempt: 3,
		},
		{
			name:          "does_not_retry_post",
			method:        http.MethodPost,
			statuses:      []int{http.StatusServiceUnavailable, http.StatusOK},
			expectStatus:  http.StatusServiceUnavailable,
			expectAttempt: 1,
		},
		{
			name:          "does_not_retry_unauthorized",
			method:        http.MethodGet,
			statuses:      []int{http.StatusUnauthorized, http.StatusOK},
			expectStatus:  http.StatusUnauthorized,
			expectAttempt: 1,
		},
	}

	for _, test := range tests {
		tc := test
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var attempts atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := attempts.Add(1)
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(tc.statuses[n-1])
			}))
			defer srv.Close()

			rt := pkghttp.NewChain(pkghttp.RetryTripper(2, time.Millisecond)).Then(nil)
			req, err := http.NewRequest(tc.method, srv.URL, strings.NewReader(`{}`))
			require.NoError(t, err)

			resp, err := rt.RoundTrip(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectStatus, resp.StatusCode)
			assert.Equal(t, tc.expectAttempt, attempts.Load())
		})
	}
}

func TestRetryTripper_ResendsBodyOnRetry(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rt := pkghttp.RetryTripper(1, time.Millisecond)(http.DefaultTransport)
	req, err := http.NewRequest(http.MethodPut, srv.URL, strings.NewReader(`{"name":"shoes"}`))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{`{"name":"shoes"}`, `{"name":"shoes"}`}, bodies)
}
