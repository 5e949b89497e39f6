package auth

import (
	"context"
	"errors"
	"fmt"
)

var ErrPermissionDenied = errors.New("permission denied")

type (
	PermissionService[T Principal] interface {
		Check(context.Context, Permission[T]) error
	}

	Permission[T Principal] func(Authentication[T]) (bool, error)

	permissionService[T Principal] struct{}
)

func NewPermissionService[T Principal]() PermissionService[T] {
	return permissionService[T]{}
}

// Check returns ErrUnauthenticated when the context has no authenticated principal
// and ErrPermissionDenied when the permission rejects it.
func (p permissionService[T]) Check(ctx context.Context, permission Permission[T]) error {
	auth, ok := GetAuthentication[T](ctx)
	if !ok || !auth.IsAuthenticated() {
		return ErrUnauthenticated
	}

	allowed, err := permission(auth)
	if err != nil {
		return fmt.Errorf("check permission: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}

	return nil
}

func Authenticated[T Principal]() Permission[T] {
	return func(a Authentication[T]) (bool, error) {
		return a.IsAuthenticated(), nil
	}
}

// HasAnyRole allows principals holding at least one of the roles; no roles means any authenticated principal.
func HasAnyRole[T Principal](roles ...string) Permission[T] {
	return func(a Authentication[T]) (bool, error) {
		if !a.IsAuthenticated() {
			return false, nil
		}
		if len(roles) == 0 {
			return true, nil
		}

		return HasRole(*a.Principal(), roles...), nil
	}
}
