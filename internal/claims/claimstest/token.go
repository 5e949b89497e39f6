// Package claimstest mints signed tokens for tests of the token consumers.
package claimstest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var signingKey = []byte("storefront-test-key")

func Token(t testing.TB, claims map[string]any) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims)).SignedString(signingKey)
	require.NoError(t, err)
	return token
}

// UserToken is a token of subject id with the roles, expiring at exp; zero exp omits the claim.
func UserToken(t testing.TB, id int64, exp time.Time, roles ...string) string {
	t.Helper()

	claims := map[string]any{
		"sub":   id,
		"roles": roles,
	}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}

	return Token(t, claims)
}
