package session_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/klwxsrx/storefront-console/internal/claims"
	"github.com/klwxsrx/storefront-console/internal/claims/claimstest"
	"github.com/klwxsrx/storefront-console/internal/session"
	sessionmock "github.com/klwxsrx/storefront-console/internal/session/mock"
	"github.com/klwxsrx/storefront-console/internal/tokenstore"
	tokenstoremock "github.com/klwxsrx/storefront-console/internal/tokenstore/mock"
	"github.com/klwxsrx/storefront-console/pkg/event"
	pkgeventmock "github.com/klwxsrx/storefront-console/pkg/event/mock"
	pkgtime "github.com/klwxsrx/storefront-console/pkg/time"
	"github.com/klwxsrx/storefront-console/pkg/worker"
)

var now = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newService(api session.API, store tokenstore.Store, opts ...session.Option) session.Service {
	opts = append([]session.Option{session.WithClock(pkgtime.NewFixedClock(now))}, opts...)
	return session.NewService(api, store, claims.NewDecoder(), opts...)
}

func storedTokens(t *testing.T, store tokenstore.Store) (access, refresh string) {
	t.Helper()
	access, err := store.Get(context.Background(), tokenstore.KindAccess)
	if !errors.Is(err, tokenstore.ErrNotFound) {
		require.NoError(t, err)
	}
	refresh, err = store.Get(context.Background(), tokenstore.KindRefresh)
	if !errors.Is(err, tokenstore.ErrNotFound) {
		require.NoError(t, err)
	}
	return access, refresh
}

func TestService_Login_StartsSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	accessToken := claimstest.UserToken(t, 42, now.Add(time.Hour), "ROLE_USER")

	api := sessionmock.NewAPI(ctrl)
	api.EXPECT().
		Login(gomock.Any(), session.Credentials{Username: "alice", Password: "secret123"}).
		Return(session.TokenPair{AccessToken: accessToken, RefreshToken: "opaque-refresh"}, nil)

	dispatcher := pkgeventmock.NewDispatcher(ctrl)
	dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, events ...event.Event) {
			require.Len(t, events, 1)
			started, ok := events[0].(session.EventSessionStarted)
			require.True(t, ok)
			assert.Equal(t, []string{"ROLE_USER"}, started.Roles)
			assert.Equal(t, int64(42), *started.SubjectID)
		}).
		Return(nil)

	store := tokenstore.NewMemoryStore()
	srv := newService(api, store, session.WithEventDispatcher(dispatcher), session.WithEventPool(worker.NewPoolStub()))

	result, err := srv.Login(ctx, session.Credentials{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE_USER"}, result.Roles)

	assert.True(t, srv.IsAuthenticated(ctx))
	assert.Equal(t, []string{"ROLE_USER"}, srv.Roles(ctx))
	id, ok := srv.SubjectID(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	access, refresh := storedTokens(t, store)
	assert.Equal(t, accessToken, access)
	assert.Equal(t, "opaque-refresh", refresh)
}

func TestService_Login_Fails(t *testing.T) {
	tests := []struct {
		name  string
		login func(api *sessionmock.API)
	}{
		{
			name: "bad_credentials",
			login: func(api *sessionmock.API) {
				api.EXPECT().Login(gomock.Any(), gomock.Any()).
					Return(session.TokenPair{}, &session.RejectedError{Message: "Bad credentials"})
			},
		},
		{
			name: "network",
			login: func(api *sessionmock.API) {
				api.EXPECT().Login(gomock.Any(), gomock.Any()).
					Return(session.TokenPair{}, fmt.Errorf("%w: connection refused", session.ErrTransportFailure))
			},
		},
		{
			name: "undecodable_access_token",
			login: func(api *sessionmock.API) {
				api.EXPECT().Login(gomock.Any(), gomock.Any()).
					Return(session.TokenPair{AccessToken: "garbage", RefreshToken: "r"}, nil)
			},
		},
	}

	for _, test := range tests {
		tc := test
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			ctx := context.Background()

			previous := claimstest.UserToken(t, 1, now.Add(time.Hour), "ROLE_USER")
			store := tokenstore.NewMemoryStore()
			require.NoError(t, store.Set(ctx, tokenstore.KindAccess, previous))
			require.NoError(t, store.Set(ctx, tokenstore.KindRefresh, "previous-refresh"))

			api := sessionmock.NewAPI(ctrl)
			tc.login(api)

			_, err := newService(api, store).Login(ctx, session.Credentials{Username: "alice", Password: "wrong"})
			assert.Equal(t, session.ErrAuthenticationFailed, err)

			access, refresh := storedTokens(t, store)
			assert.Equal(t, previous, access)
			assert.Equal(t, "previous-refresh", refresh)
		})
	}
}

func TestService_Login_ReplacesWholePair(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, tokenstore.KindRefresh, "stale-refresh"))

	accessToken := claimstest.UserToken(t, 1, time.Time{}, "ROLE_USER")
	api := sessionmock.NewAPI(ctrl)
	api.EXPECT().Login(gomock.Any(), gomock.Any()).Return(session.TokenPair{AccessToken: accessToken}, nil)

	_, err := newService(api, store).Login(ctx, session.Credentials{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	access, refresh := storedTokens(t, store)
	assert.Equal(t, accessToken, access)
	assert.Empty(t, refresh)
}

func TestService_Register_DoesNotTouchTokens(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	api := sessionmock.NewAPI(ctrl)
	api.EXPECT().Register(gomock.Any(), session.Registration{Username: "bob", Email: "bob@example.com", Password: "pw"}).
		Return(session.Result{Success: false, Message: "validation failed", FieldErrors: map[string]string{"email": "taken"}}, nil)
	api.EXPECT().Activate(gomock.Any(), "bob@example.com", "123456").
		Return(session.Result{}, fmt.Errorf("%w: timeout", session.ErrTransportFailure))
	api.EXPECT().ResendActivationCode(gomock.Any(), "bob@example.com").
		Return(session.Result{Success: true, Message: "sent"}, nil)

	store := tokenstore.NewMemoryStore()
	srv := newService(api, store)

	result, err := srv.Register(ctx, session.Registration{Username: "bob", Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "taken", result.FieldErrors["email"])

	_, err = srv.Activate(ctx, "bob@example.com", "123456")
	assert.ErrorIs(t, err, session.ErrTransportFailure)

	result, err = srv.ResendActivationCode(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, result.Success)

	access, refresh := storedTokens(t, store)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestService_Refresh(t *testing.T) {
	oldAccess := "old-access"
	tests := []struct {
		name          string
		refreshToken  string
		refresh       func(t *testing.T, api *sessionmock.API) string
		expectErr     []error
		expectRefresh string
	}{
		{
			name:         "rotates_refresh_token",
			refreshToken: "refresh-1",
			refresh: func(t *testing.T, api *sessionmock.API) string {
				token := claimstest.UserToken(t, 1, now.Add(time.Hour), "ROLE_USER")
				api.EXPECT().RefreshToken(gomock.Any(), "refresh-1").
					Return(session.TokenPair{AccessToken: token, RefreshToken: "refresh-2"}, nil)
				return token
			},
			expectRefresh: "refresh-2",
		},
		{
			name:         "keeps_refresh_token_when_not_rotated",
			refreshToken: "refresh-1",
			refresh: func(t *testing.T, api *sessionmock.API) string {
				token := claimstest.UserToken(t, 1, now.Add(time.Hour), "ROLE_USER")
				api.EXPECT().RefreshToken(gomock.Any(), "refresh-1").
					Return(session.TokenPair{AccessToken: token}, nil)
				return token
			},
			expectRefresh: "refresh-1",
		},
		{
			name:         "no_refresh_token_makes_no_call",
			refreshToken: "",
			refresh: func(*testing.T, *sessionmock.API) string {
				return oldAccess
			},
			expectErr: []error{session.ErrNoRefreshToken},
		},
		{
			name:         "rejected_keeps_tokens",
			refreshToken: "refresh-1",
			refresh: func(_ *testing.T, api *sessionmock.API) string {
				api.EXPECT().RefreshToken(gomock.Any(), "refresh-1").
					Return(session.TokenPair{}, &session.RejectedError{Message: "Refresh token expired"})
				return oldAccess
			},
			expectErr:     []error{session.ErrRefreshRejected, session.ErrRejected},
			expectRefresh: "refresh-1",
		},
		{
			name:         "transport_failure_is_also_rejection",
			refreshToken: "refresh-1",
			refresh: func(_ *testing.T, api *sessionmock.API) string {
				api.EXPECT().RefreshToken(gomock.Any(), "refresh-1").
					Return(session.TokenPair{}, fmt.Errorf("%w: connection reset", session.ErrTransportFailure))
				return oldAccess
			},
			expectErr:     []error{session.ErrRefreshRejected, session.ErrTransportFailure},
			expectRefresh: "refresh-1",
		},
	}

	for _, test := range tests {
		tc := test
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			ctx := context.Background()

			store := tokenstore.NewMemoryStore()
			require.NoError(t, store.Set(ctx, tokenstore.KindAccess, oldAccess))
			if tc.refreshToken != "" {
				require.NoError(t, store.Set(ctx, tokenstore.KindRefresh, tc.refreshToken))
			}

			api := sessionmock.NewAPI(ctrl)
			expectAccess := tc.refresh(t, api)

			_, err := newService(api, store).Refresh(ctx)
			if len(tc.expectErr) == 0 {
				require.NoError(t, err)
			}
			for _, expectErr := range tc.expectErr {
				assert.ErrorIs(t, err, expectErr)
			}

			access, refresh := storedTokens(t, store)
			assert.Equal(t, expectAccess, access)
			assert.Equal(t, tc.expectRefresh, refresh)
		})
	}
}

func TestService_Refresh_DoesNotWaitForEventSubscribers(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, tokenstore.KindRefresh, "refresh-1"))

	token := claimstest.UserToken(t, 1, now.Add(time.Hour), "ROLE_USER")
	api := sessionmock.NewAPI(ctrl)
	api.EXPECT().RefreshToken(gomock.Any(), "refresh-1").
		Return(session.TokenPair{AccessToken: token, RefreshToken: "refresh-2"}, nil)

	release := make(chan struct{})
	delivered := make(chan session.EventSessionRefreshed, 1)
	dispatcher := event.NewDispatcher(event.Subscribe(func(_ context.Context, evt session.EventSessionRefreshed) error {
		<-release
		delivered <- evt
		return nil
	}))
	pool := worker.NewPool(worker.MaxWorkersCountUnlimited)

	srv := newService(api, store, session.WithEventDispatcher(dispatcher), session.WithEventPool(pool))
	refreshed, err := srv.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, token, refreshed.AccessToken)
	assert.Empty(t, delivered)

	close(release)
	pool.Wait()
	evt := <-delivered
	assert.True(t, evt.Rotated)
}

func TestService_Refresh_UnreadableStoreIsRejection(t *testing.T) {
	ctrl := gomock.NewController(t)
	errDiskFailure := errors.New("disk failure")

	store := tokenstoremock.NewStore(ctrl)
	store.EXPECT().Get(gomock.Any(), tokenstore.KindRefresh).Return("", errDiskFailure)

	_, err := newService(sessionmock.NewAPI(ctrl), store).Refresh(context.Background())
	assert.ErrorIs(t, err, session.ErrRefreshRejected)
	assert.ErrorIs(t, err, errDiskFailure)
}

func TestService_EndSession_ClearsEveryKindWhenOneFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	store := tokenstoremock.NewStore(ctrl)
	store.EXPECT().Get(gomock.Any(), tokenstore.KindAccess).Return("not-a-jwt", nil)
	store.EXPECT().Get(gomock.Any(), tokenstore.KindRefresh).Return("refresh-1", nil)
	store.EXPECT().Clear(gomock.Any(), tokenstore.KindAccess).Return(errors.New("read-only file"))
	store.EXPECT().Clear(gomock.Any(), tokenstore.KindRefresh).Return(nil)

	newService(sessionmock.NewAPI(ctrl), store).EndSession(ctx, session.EndReasonInvalidToken)
}

func TestService_Logout_IsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	accessToken := claimstest.UserToken(t, 1, now.Add(time.Hour), "ROLE_USER")
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, tokenstore.KindAccess, accessToken))
	require.NoError(t, store.Set(ctx, tokenstore.KindRefresh, "refresh-1"))

	api := sessionmock.NewAPI(ctrl)
	api.EXPECT().
		Logout(gomock.Any(), session.TokenPair{AccessToken: accessToken, RefreshToken: "refresh-1"}).
		Return(fmt.Errorf("%w: timeout", session.ErrTransportFailure)).
		Times(1)

	srv := newService(api, store)
	srv.Logout(ctx)
	assert.False(t, srv.IsAuthenticated(ctx))

	srv.Logout(ctx)
	assert.False(t, srv.IsAuthenticated(ctx))

	access, refresh := storedTokens(t, store)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestService_Logout_BoundedByTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), tokenstore.KindAccess, "access"))

	api := sessionmock.NewAPI(ctrl)
	api.EXPECT().Logout(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ session.TokenPair) error {
			assert.NoError(t, ctx.Err(), "caller cancellation must not abort the logout call")
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return nil
		})

	newService(api, store, session.WithLogoutTimeout(time.Second)).Logout(ctx)

	access, _ := storedTokens(t, store)
	assert.Empty(t, access)
}

func TestService_IsAuthenticated_ExpiryIsLazy(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	expired := claimstest.UserToken(t, 1, now.Add(-time.Minute), "ROLE_ADMIN")
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, tokenstore.KindAccess, expired))

	srv := newService(sessionmock.NewAPI(ctrl), store)
	assert.False(t, srv.IsAuthenticated(ctx))
	assert.Empty(t, srv.Roles(ctx))
	_, ok := srv.SubjectID(ctx)
	assert.False(t, ok)

	token, ok := srv.AccessToken(ctx)
	assert.True(t, ok)
	assert.Equal(t, expired, token)

	clock := pkgtime.NewAdjustableClock()
	earlier := clock.Set(ctx, now.Add(-time.Hour))
	assert.True(t, srv.IsAuthenticated(earlier))
}

func TestService_Roles_ClearsUndecodableSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, tokenstore.KindAccess, "not-a-token"))
	require.NoError(t, store.Set(ctx, tokenstore.KindRefresh, "refresh-1"))

	srv := newService(sessionmock.NewAPI(ctrl), store)

	assert.False(t, srv.IsAuthenticated(ctx))
	access, _ := storedTokens(t, store)
	assert.Equal(t, "not-a-token", access)

	assert.Empty(t, srv.Roles(ctx))
	access, refresh := storedTokens(t, store)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}
