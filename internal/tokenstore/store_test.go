package tokenstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/storefront-console/internal/tokenstore"
)

func TestStore_Contract(t *testing.T) {
	tests := []struct {
		name  string
		store func(t *testing.T) tokenstore.Store
	}{
		{
			name: "memory",
			store: func(*testing.T) tokenstore.Store {
				return tokenstore.NewMemoryStore()
			},
		},
		{
			name: "file",
			store: func(t *testing.T) tokenstore.Store {
				store, err := tokenstore.NewFileStore(t.TempDir(), "https://shop.example.com")
				require.NoError(t, err)
				return store
			},
		},
	}

	for _, test := range tests {
		tc := test
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := tc.store(t)

			_, err := store.Get(ctx, tokenstore.KindAccess)
			assert.ErrorIs(t, err, tokenstore.ErrNotFound)

			require.NoError(t, store.Set(ctx, tokenstore.KindAccess, "access-1"))
			require.NoError(t, store.Set(ctx, tokenstore.KindRefresh, "refresh-1"))
			require.NoError(t, store.Set(ctx, tokenstore.KindAccess, "access-2"))

			token, err := store.Get(ctx, tokenstore.KindAccess)
			require.NoError(t, err)
			assert.Equal(t, "access-2", token)

			require.NoError(t, store.Clear(ctx, tokenstore.KindAccess))
			require.NoError(t, store.Clear(ctx, tokenstore.KindAccess))
			_, err = store.Get(ctx, tokenstore.KindAccess)
			assert.ErrorIs(t, err, tokenstore.ErrNotFound)

			token, err = store.Get(ctx, tokenstore.KindRefresh)
			require.NoError(t, err)
			assert.Equal(t, "refresh-1", token)
		})
	}
}

func TestFileStore_ScopesAreIsolatedAndDurable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	shop, err := tokenstore.NewFileStore(dir, "https://shop.example.com")
	require.NoError(t, err)
	admin, err := tokenstore.NewFileStore(dir, "https://admin.example.com")
	require.NoError(t, err)

	require.NoError(t, shop.Set(ctx, tokenstore.KindAccess, "shop-token"))
	_, err = admin.Get(ctx, tokenstore.KindAccess)
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)

	reopened, err := tokenstore.NewFileStore(dir, "https://shop.example.com")
	require.NoError(t, err)
	token, err := reopened.Get(ctx, tokenstore.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "shop-token", token)
}

func TestOriginScope(t *testing.T) {
	scope, err := tokenstore.OriginScope("HTTPS://Shop.Example.com:8443/api/v1")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com:8443", scope)

	_, err = tokenstore.OriginScope("/api/v1")
	assert.Error(t, err)
}
