//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "Service=Service"
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/klwxsrx/storefront-console/internal/claims"
	"github.com/klwxsrx/storefront-console/internal/tokenstore"
	"github.com/klwxsrx/storefront-console/pkg/event"
	"github.com/klwxsrx/storefront-console/pkg/log"
	pkgtime "github.com/klwxsrx/storefront-console/pkg/time"
	"github.com/klwxsrx/storefront-console/pkg/worker"
)

const (
	DefaultLogoutTimeout = 5 * time.Second
	DefaultEventTimeout  = 5 * time.Second
)

type (
	// Session is the view over the stored token pair and the access token claims.
	Session struct {
		AccessToken  string
		RefreshToken string
		claims.Claims
	}

	// Service is the only owner of the stored tokens.
	Service interface {
		Login(ctx context.Context, credentials Credentials) (Session, error)
		Register(ctx context.Context, registration Registration) (Result, error)
		Activate(ctx context.Context, email, otp string) (Result, error)
		ResendActivationCode(ctx context.Context, email string) (Result, error)
		Refresh(ctx context.Context) (Session, error)
		Logout(ctx context.Context)
		EndSession(ctx context.Context, reason EndReason)
		IsAuthenticated(ctx context.Context) bool
		Roles(ctx context.Context) []string
		RoleSession(ctx context.Context) (Session, bool)
		SubjectID(ctx context.Context) (int64, bool)
		AccessToken(ctx context.Context) (string, bool)
		Current(ctx context.Context) (Session, bool)
	}

	Option func(*service)

	service struct {
		api           API
		tokens        tokenstore.Store
		decoder       claims.Decoder
		clock         pkgtime.Clock
		events        event.Dispatcher
		eventPool     worker.Pool
		eventTimeout  time.Duration
		logger        log.Logger
		logoutTimeout time.Duration
	}
)

func NewService(api API, tokens tokenstore.Store, decoder claims.Decoder, opts ...Option) Service {
	s := &service{
		api:           api,
		tokens:        tokens,
		decoder:       decoder,
		clock:         pkgtime.NewClock(),
		events:        event.NewDispatcher(),
		eventPool:     worker.NewPool(worker.MaxWorkersCountUnlimited),
		eventTimeout:  DefaultEventTimeout,
		logger:        log.NewStub(),
		logoutTimeout: DefaultLogoutTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func WithClock(clock pkgtime.Clock) Option {
	return func(s *service) {
		s.clock = clock
	}
}

func WithEventDispatcher(dispatcher event.Dispatcher) Option {
	return func(s *service) {
		s.events = dispatcher
	}
}

// WithEventPool sets the pool session events are dispatched on, wait on it to flush pending events.
func WithEventPool(pool worker.Pool) Option {
	return func(s *service) {
		s.eventPool = pool
	}
}

func WithEventTimeout(timeout time.Duration) Option {
	return func(s *service) {
		if timeout > 0 {
			s.eventTimeout = timeout
		}
	}
}

func WithLogger(logger log.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

func WithLogoutTimeout(timeout time.Duration) Option {
	return func(s *service) {
		if timeout > 0 {
			s.logoutTimeout = timeout
		}
	}
}

func (s *service) Login(ctx context.Context, credentials Credentials) (Session, error) {
	pair, err := s.api.Login(ctx, credentials)
	if err != nil {
		s.logger.WithError(err).WithField("username", credentials.Username).Warn(ctx, "login failed")
		return Session{}, ErrAuthenticationFailed
	}

	tokenClaims, err := s.decoder.Decode(pair.AccessToken)
	if err != nil {
		s.logger.WithError(err).Error(ctx, "login returned undecodable access token")
		return Session{}, ErrAuthenticationFailed
	}

	err = s.replaceTokens(ctx, pair)
	if err != nil {
		s.logger.WithError(err).Error(ctx, "failed to store session tokens")
		s.clearTokens(ctx)
		return Session{}, ErrAuthenticationFailed
	}

	s.dispatch(ctx, EventSessionStarted{
		Base:      event.NewBase(s.clock.Now(ctx)),
		SubjectID: tokenClaims.SubjectID,
		Roles:     tokenClaims.Roles,
	})

	return Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Claims:       tokenClaims,
	}, nil
}

func (s *service) Register(ctx context.Context, registration Registration) (Result, error) {
	result, err := s.api.Register(ctx, registration)
	if err != nil {
		return Result{}, fmt.Errorf("register %s: %w", registration.Username, err)
	}

	return result, nil
}

func (s *service) Activate(ctx context.Context, email, otp string) (Result, error) {
	result, err := s.api.Activate(ctx, email, otp)
	if err != nil {
		return Result{}, fmt.Errorf("activate %s: %w", email, err)
	}

	return result, nil
}

func (s *service) ResendActivationCode(ctx context.Context, email string) (Result, error) {
	result, err := s.api.ResendActivationCode(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("resend activation code to %s: %w", email, err)
	}

	return result, nil
}

// Refresh never clears stored tokens, whoever drives the refresh decides whether the session is over.
func (s *service) Refresh(ctx context.Context) (Session, error) {
	refreshToken, err := s.tokens.Get(ctx, tokenstore.KindRefresh)
	if errors.Is(err, tokenstore.ErrNotFound) || err == nil && refreshToken == "" {
		return Session{}, ErrNoRefreshToken
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: read refresh token: %w", ErrRefreshRejected, err)
	}

	pair, err := s.api.RefreshToken(ctx, refreshToken)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrRefreshRejected, err)
	}

	tokenClaims, err := s.decoder.Decode(pair.AccessToken)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrRefreshRejected, err)
	}

	rotated := pair.RefreshToken != "" && pair.RefreshToken != refreshToken
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}

	err = s.replaceTokens(ctx, pair)
	if err != nil {
		return Session{}, fmt.Errorf("%w: store refreshed tokens: %w", ErrRefreshRejected, err)
	}

	s.dispatch(ctx, EventSessionRefreshed{
		Base:      event.NewBase(s.clock.Now(ctx)),
		SubjectID: tokenClaims.SubjectID,
		Rotated:   rotated,
	})

	return Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Claims:       tokenClaims,
	}, nil
}

func (s *service) Logout(ctx context.Context) {
	s.EndSession(ctx, EndReasonLogout)
}

// EndSession notifies the server within the logout timeout ignoring the outcome, then clears
// both tokens unconditionally.
func (s *service) EndSession(ctx context.Context, reason EndReason) {
	pair := TokenPair{
		AccessToken:  s.readToken(ctx, tokenstore.KindAccess),
		RefreshToken: s.readToken(ctx, tokenstore.KindRefresh),
	}
	if pair.AccessToken == "" && pair.RefreshToken == "" {
		s.clearTokens(ctx)
		return
	}

	var subjectID *int64
	if tokenClaims, err := s.decoder.Decode(pair.AccessToken); err == nil {
		subjectID = tokenClaims.SubjectID
	}

	if reason != EndReasonInvalidToken {
		s.notifyLogout(ctx, pair)
	}
	s.clearTokens(ctx)

	s.dispatch(ctx, EventSessionEnded{
		Base:      event.NewBase(s.clock.Now(ctx)),
		SubjectID: subjectID,
		Reason:    reason,
	})
}

func (s *service) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.Current(ctx)
	return ok
}

func (s *service) Roles(ctx context.Context) []string {
	current, ok := s.RoleSession(ctx)
	if !ok {
		return []string{}
	}

	return current.Roles
}

// RoleSession is Current for role decisions, an undecodable access token ends the session.
func (s *service) RoleSession(ctx context.Context) (Session, bool) {
	accessToken := s.readToken(ctx, tokenstore.KindAccess)
	if accessToken == "" {
		return Session{}, false
	}

	tokenClaims, err := s.decoder.Decode(accessToken)
	if err != nil {
		s.logger.WithError(err).Warn(ctx, "stored access token is undecodable, session dropped")
		s.EndSession(ctx, EndReasonInvalidToken)
		return Session{}, false
	}
	if tokenClaims.Expired(s.clock.Now(ctx)) {
		return Session{}, false
	}

	return Session{
		AccessToken:  accessToken,
		RefreshToken: s.readToken(ctx, tokenstore.KindRefresh),
		Claims:       tokenClaims,
	}, true
}

func (s *service) SubjectID(ctx context.Context) (int64, bool) {
	current, ok := s.Current(ctx)
	if !ok || current.SubjectID == nil {
		return 0, false
	}

	return *current.SubjectID, true
}

// AccessToken returns the stored token even if it has expired, the server decides on its validity.
func (s *service) AccessToken(ctx context.Context) (string, bool) {
	token := s.readToken(ctx, tokenstore.KindAccess)
	return token, token != ""
}

// Current is the authenticated session view, decode failures are logged and never clear storage.
func (s *service) Current(ctx context.Context) (Session, bool) {
	accessToken := s.readToken(ctx, tokenstore.KindAccess)
	if accessToken == "" {
		return Session{}, false
	}

	tokenClaims, err := s.decoder.Decode(accessToken)
	if err != nil {
		s.logger.WithError(err).Debug(ctx, "stored access token is undecodable")
		return Session{}, false
	}
	if tokenClaims.Expired(s.clock.Now(ctx)) {
		return Session{}, false
	}

	return Session{
		AccessToken:  accessToken,
		RefreshToken: s.readToken(ctx, tokenstore.KindRefresh),
		Claims:       tokenClaims,
	}, true
}

func (s *service) notifyLogout(ctx context.Context, pair TokenPair) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logoutTimeout)
	defer cancel()

	err := s.api.Logout(ctx, pair)
	if err != nil {
		s.logger.WithError(err).Warn(ctx, "server logout failed, clearing local session anyway")
	}
}

// replaceTokens writes the pair as a whole, a missing refresh token removes the stored one.
func (s *service) replaceTokens(ctx context.Context, pair TokenPair) error {
	if pair.AccessToken == "" {
		return errors.New("empty access token")
	}

	err := s.tokens.Set(ctx, tokenstore.KindAccess, pair.AccessToken)
	if err != nil {
		return err
	}

	if pair.RefreshToken == "" {
		return s.tokens.Clear(ctx, tokenstore.KindRefresh)
	}

	return s.tokens.Set(ctx, tokenstore.KindRefresh, pair.RefreshToken)
}

func (s *service) clearTokens(ctx context.Context) {
	for _, kind := range tokenstore.Kinds() {
		err := s.tokens.Clear(ctx, kind)
		if err != nil {
			s.logger.WithError(err).WithField("kind", string(kind)).Error(ctx, "failed to clear token")
		}
	}
}

func (s *service) readToken(ctx context.Context, kind tokenstore.Kind) string {
	token, err := s.tokens.Get(ctx, kind)
	if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
		s.logger.WithError(err).WithField("kind", string(kind)).Error(ctx, "failed to read token")
	}

	return token
}

// dispatch publishes off the caller's path, a slow subscriber never holds a login or a refresh.
func (s *service) dispatch(ctx context.Context, evt event.Event) {
	s.eventPool.Do(context.WithoutCancel(ctx), func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, s.eventTimeout)
		defer cancel()

		err := s.events.Dispatch(ctx, evt)
		if err != nil {
			s.logger.WithError(err).WithField("eventType", evt.Type()).Warn(ctx, "failed to dispatch session event")
		}
	})
}
