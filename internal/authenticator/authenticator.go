package authenticator

import (
	"context"
	"errors"
	"io"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/klwxsrx/storefront-console/internal/session"
	pkghttp "github.com/klwxsrx/storefront-console/pkg/http"
	"github.com/klwxsrx/storefront-console/pkg/log"
	"github.com/klwxsrx/storefront-console/pkg/metric"
)

const (
	refreshFlightKey = "refresh"

	metricRefreshTotal = "session_refresh_total"
	resultSuccess      = "success"
	resultFailure      = "failure"
)

var errSessionEnded = errors.New("session ended by a concurrent refresh failure")

type (
	Option func(*Authenticator)

	// Authenticator attaches the stored access token to outgoing requests and recovers from
	// 401 responses with at most one refresh in flight at a time.
	Authenticator struct {
		sessions         session.Service
		flight           singleflight.Group
		onSessionExpired func(context.Context)
		metrics          metric.Metrics
		logger           log.Logger
	}
)

func New(sessions session.Service, opts ...Option) *Authenticator {
	a := &Authenticator{
		sessions:         sessions,
		onSessionExpired: func(context.Context) {},
		metrics:          metric.NewMetricsStub(),
		logger:           log.NewStub(),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithOnSessionExpired sets the hook called once per failed refresh, typically a redirect to login.
func WithOnSessionExpired(hook func(context.Context)) Option {
	return func(a *Authenticator) {
		a.onSessionExpired = hook
	}
}

func WithMetrics(metrics metric.Metrics) Option {
	return func(a *Authenticator) {
		a.metrics = metrics
	}
}

func WithLogger(logger log.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

func (a *Authenticator) Tripper() pkghttp.Constructor {
	return func(next http.RoundTripper) http.RoundTripper {
		return pkghttp.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return a.roundTrip(next, req)
		})
	}
}

func (a *Authenticator) roundTrip(next http.RoundTripper, req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	usedToken, _ := a.sessions.AccessToken(ctx)

	resp, err := next.RoundTrip(withBearer(req, req.Body, usedToken))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	newToken, err := a.recoverSession(ctx, usedToken)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			drainAndClose(resp.Body)
			return nil, ctxErr
		}
		return resp, nil
	}
	// The session is recovered for the next call, but a consumed body cannot be sent again.
	if !replayable(req) {
		return resp, nil
	}

	body := req.Body
	if req.GetBody != nil {
		body, err = req.GetBody()
		if err != nil {
			return resp, nil
		}
	}
	drainAndClose(resp.Body)

	return next.RoundTrip(withBearer(req, body, newToken))
}

// recoverSession joins the refresh in flight or starts one and waits for its outcome or for ctx.
func (a *Authenticator) recoverSession(ctx context.Context, usedToken string) (string, error) {
	current, ok := a.sessions.AccessToken(ctx)
	switch {
	case ok && current != usedToken:
		return current, nil
	case !ok && usedToken != "":
		return "", errSessionEnded
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := a.flight.DoChan(refreshFlightKey, func() (any, error) {
		return a.refresh(flightCtx, usedToken)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (a *Authenticator) refresh(ctx context.Context, usedToken string) (string, error) {
	if current, ok := a.sessions.AccessToken(ctx); ok && current != usedToken {
		return current, nil
	}

	refreshed, err := a.sessions.Refresh(ctx)
	if err != nil {
		a.metrics.With(metric.Labels{"result": resultFailure}).Increment(metricRefreshTotal)
		a.logger.WithError(err).Warn(ctx, "session refresh failed, ending session")

		a.sessions.EndSession(ctx, session.EndReasonRefreshFailed)
		a.onSessionExpired(ctx)
		return "", err
	}

	a.metrics.With(metric.Labels{"result": resultSuccess}).Increment(metricRefreshTotal)
	a.logger.Info(ctx, "session refreshed")
	return refreshed.AccessToken, nil
}

func withBearer(req *http.Request, body io.ReadCloser, token string) *http.Request {
	clone := req.Clone(req.Context())
	clone.Body = body
	if token == "" {
		clone.Header.Del("Authorization")
		return clone
	}

	clone.Header.Set("Authorization", "Bearer "+token)
	return clone
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
