package auth

import (
	"context"
	"errors"
	"slices"
)

var ErrUnauthenticated = errors.New("not authenticated")

type (
	Provider[T Principal] interface {
		Authenticate(context.Context, Token) (Authentication[T], error)
	}

	Token interface {
		Type() PrincipalType
	}

	Authentication[T Principal] interface {
		IsAuthenticated() bool
		Principal() *T
	}

	Principal interface {
		Type() PrincipalType
		ID() *string
		Roles() []string
	}

	Auth[T Principal] struct {
		AuthPrincipal *T
	}

	PrincipalType string
)

func (a Auth[T]) IsAuthenticated() bool {
	return a.AuthPrincipal != nil
}

func (a Auth[T]) Principal() *T {
	return a.AuthPrincipal
}

// HasRole reports whether the principal holds at least one of the roles.
func HasRole(p Principal, roles ...string) bool {
	if p == nil {
		return false
	}

	held := p.Roles()
	for _, role := range roles {
		if slices.Contains(held, role) {
			return true
		}
	}

	return false
}
