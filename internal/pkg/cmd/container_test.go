package cmd

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/storefront-console/internal/config"
	"github.com/klwxsrx/storefront-console/internal/session"
	"github.com/klwxsrx/storefront-console/internal/tokenstore"
	"github.com/klwxsrx/storefront-console/pkg/event"
	pkghttp "github.com/klwxsrx/storefront-console/pkg/http"
	"github.com/klwxsrx/storefront-console/pkg/lazy"
	"github.com/klwxsrx/storefront-console/pkg/log"
	"github.com/klwxsrx/storefront-console/pkg/pulsar"
	"github.com/klwxsrx/storefront-console/pkg/worker"
)

func TestSessionService_LogoutClearsTokensWhenBrokerIsDown(t *testing.T) {
	ctx := context.Background()

	var logoutCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/logout" {
			logoutCalls.Add(1)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := config.Config{
		APIURL:  srv.URL,
		Pulsar:  config.Pulsar{Address: "broker.invalid:6650"},
		Session: config.Session{LogoutTimeout: time.Second},
	}

	var connectAttempts atomic.Int32
	logger := lazy.New(func() (log.Logger, error) { return log.NewStub(), nil })
	conn := lazy.New(func() (pulsar.Connection, error) {
		connectAttempts.Add(1)
		return nil, errors.New("connect to broker: connection refused")
	})
	dispatcher := eventDispatcherProvider(ctx, cfg, conn, logger)

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, tokenstore.KindAccess, "access"))
	require.NoError(t, store.Set(ctx, tokenstore.KindRefresh, "refresh"))
	tokens := lazy.New(func() (tokenstore.Store, error) { return store, nil })
	clients := lazy.New(func() (pkghttp.ClientFactory, error) { return pkghttp.NewClientFactory(), nil })
	pool := worker.NewPool(worker.MaxWorkersCountUnlimited)

	sessions, err := sessionServiceProvider(cfg, clients, tokens, dispatcher, pool, logger).Load()
	require.NoError(t, err)
	assert.Equal(t, int32(0), connectAttempts.Load())

	sessions.Logout(ctx)
	pool.Wait()

	for _, kind := range tokenstore.Kinds() {
		_, err = store.Get(ctx, kind)
		assert.ErrorIs(t, err, tokenstore.ErrNotFound, kind)
	}
	assert.Equal(t, int32(1), logoutCalls.Load())
	assert.Equal(t, int32(1), connectAttempts.Load())

	local, err := dispatcher.Load()
	require.NoError(t, err)
	assert.NoError(t, local.Dispatch(ctx, session.EventSessionEnded{
		Base:   event.NewBase(time.Now()),
		Reason: session.EndReasonLogout,
	}))
}

func TestEventDispatcherProvider_WithoutBrokerAddressNeverConnects(t *testing.T) {
	conn := lazy.New(func() (pulsar.Connection, error) {
		t.Error("broker connection must not be opened")
		return nil, errors.New("unexpected")
	})
	logger := lazy.New(func() (log.Logger, error) { return log.NewStub(), nil })

	dispatcher, err := eventDispatcherProvider(context.Background(), config.Config{}, conn, logger).Load()
	require.NoError(t, err)
	assert.NotNil(t, dispatcher)
}
