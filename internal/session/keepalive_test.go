package session_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/klwxsrx/storefront-console/internal/claims/claimstest"
	"github.com/klwxsrx/storefront-console/internal/session"
	sessionmock "github.com/klwxsrx/storefront-console/internal/session/mock"
	"github.com/klwxsrx/storefront-console/internal/tokenstore"
	pkgtime "github.com/klwxsrx/storefront-console/pkg/time"
)

func TestKeepAlive(t *testing.T) {
	const threshold = 2 * time.Minute

	tests := []struct {
		name         string
		expiresIn    time.Duration
		refreshToken string
		prepare      func(t *testing.T, api *sessionmock.API)
		expectErr    error
		expectAuth   bool
	}{
		{
			name:         "fresh_token_is_left_alone",
			expiresIn:    time.Hour,
			refreshToken: "refresh-1",
			prepare:      func(*testing.T, *sessionmock.API) {},
			expectAuth:   true,
		},
		{
			name:         "token_close_to_expiry_is_refreshed",
			expiresIn:    time.Minute,
			refreshToken: "refresh-1",
			prepare: func(t *testing.T, api *sessionmock.API) {
				api.EXPECT().RefreshToken(gomock.Any(), "refresh-1").Return(session.TokenPair{
					AccessToken: claimstest.UserToken(t, 1, now.Add(time.Hour), "ROLE_USER"),
				}, nil)
			},
			expectAuth: true,
		},
		{
			name:         "expired_token_is_refreshed",
			expiresIn:    -time.Minute,
			refreshToken: "refresh-1",
			prepare: func(t *testing.T, api *sessionmock.API) {
				api.EXPECT().RefreshToken(gomock.Any(), "refresh-1").Return(session.TokenPair{
					AccessToken: claimstest.UserToken(t, 1, now.Add(time.Hour), "ROLE_USER"),
				}, nil)
			},
			expectAuth: true,
		},
		{
			name:       "valid_token_without_refresh_token_waits",
			expiresIn:  time.Minute,
			prepare:    func(*testing.T, *sessionmock.API) {},
			expectAuth: true,
		},
		{
			name:      "expired_token_without_refresh_token_ends_session",
			expiresIn: -time.Minute,
			prepare: func(_ *testing.T, api *sessionmock.API) {
				api.EXPECT().Logout(gomock.Any(), gomock.Any()).Return(nil)
			},
			expectErr: session.ErrSessionEnded,
		},
		{
			name:         "failed_refresh_ends_session",
			expiresIn:    time.Minute,
			refreshToken: "refresh-1",
			prepare: func(_ *testing.T, api *sessionmock.API) {
				api.EXPECT().RefreshToken(gomock.Any(), "refresh-1").
					Return(session.TokenPair{}, fmt.Errorf("%w: connection refused", session.ErrTransportFailure))
				api.EXPECT().Logout(gomock.Any(), gomock.Any()).Return(nil)
			},
			expectErr: session.ErrSessionEnded,
		},
	}
	for _, test := range tests {
		tc := test
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			ctx := context.Background()

			store := tokenstore.NewMemoryStore()
			require.NoError(t, store.Set(ctx, tokenstore.KindAccess, claimstest.UserToken(t, 1, now.Add(tc.expiresIn), "ROLE_USER")))
			if tc.refreshToken != "" {
				require.NoError(t, store.Set(ctx, tokenstore.KindRefresh, tc.refreshToken))
			}

			api := sessionmock.NewAPI(ctrl)
			tc.prepare(t, api)
			srv := newService(api, store)

			err := session.KeepAlive(srv, pkgtime.NewFixedClock(now), threshold)(ctx)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expectAuth, srv.IsAuthenticated(ctx))
		})
	}
}
