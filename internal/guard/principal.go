package guard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/klwxsrx/storefront-console/internal/session"
	"github.com/klwxsrx/storefront-console/pkg/auth"
)

const PrincipalTypeUser auth.PrincipalType = "user"

type (
	// Principal is the identity read from the locally decoded access token.
	// It drives navigation only, the server re-checks every call.
	Principal struct {
		SubjectID *int64
		RoleNames []string
	}

	SessionToken struct {
		Session session.Session
	}

	provider struct{}
)

func NewProvider() auth.Provider[Principal] {
	return provider{}
}

func (p provider) Authenticate(_ context.Context, token auth.Token) (auth.Authentication[Principal], error) {
	switch t := token.(type) {
	case SessionToken:
		return auth.Auth[Principal]{AuthPrincipal: &Principal{
			SubjectID: t.Session.SubjectID,
			RoleNames: t.Session.Roles,
		}}, nil
	default:
		return nil, fmt.Errorf("unknown token with type %s", token.Type())
	}
}

func (t SessionToken) Type() auth.PrincipalType {
	return PrincipalTypeUser
}

func (p Principal) Type() auth.PrincipalType {
	return PrincipalTypeUser
}

func (p Principal) ID() *string {
	if p.SubjectID == nil {
		return nil
	}

	id := strconv.FormatInt(*p.SubjectID, 10)
	return &id
}

func (p Principal) Roles() []string {
	return p.RoleNames
}
