//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "Store=Store"
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Keys are persisted as is, renaming them drops every stored session.
const (
	KindAccess  Kind = "access_token"
	KindRefresh Kind = "refresh_token"
)

var ErrNotFound = errors.New("token not found")

type (
	Kind string

	// Store keeps the raw token bytes without any validation.
	// A Set or Clear is visible to the next Get of the same process.
	Store interface {
		Get(ctx context.Context, kind Kind) (string, error)
		Set(ctx context.Context, kind Kind, token string) error
		Clear(ctx context.Context, kind Kind) error
	}
)

func Kinds() []Kind {
	return []Kind{KindAccess, KindRefresh}
}

// OriginScope reduces an API base URL to its origin, tokens of different origins never mix.
func OriginScope(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("api url %q has no origin", rawURL)
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}
