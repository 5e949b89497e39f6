package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttp "github.com/klwxsrx/storefront-console/pkg/http"
)

func TestChain_Then_AppliesConstructorsInOrder(t *testing.T) {
	var calls []string
	tagged := func(name string) pkghttp.Constructor {
		return func(next http.RoundTripper) http.RoundTripper {
			return pkghttp.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
				calls = append(calls, name)
				return next.RoundTrip(req)
			})
		}
	}

	base := pkghttp.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		calls = append(calls, "base")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
	})

	chain := pkghttp.NewChain(tagged("first"))
	extended := chain.Append(tagged("second"))

	req := httptest.NewRequest(http.MethodGet, "http://storefront.test/", nil)
	resp, err := extended.Then(base).RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"first", "second", "base"}, calls)

	calls = nil
	_, err = chain.Then(base).RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "base"}, calls)
}

func TestChain_Then_NilMeansDefaultTransport(t *testing.T) {
	assert.Equal(t, http.DefaultTransport, pkghttp.NewChain().Then(nil))
}
