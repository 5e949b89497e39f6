// Package guard decides whether a navigation may proceed for the current session.
// Decisions are local: they read the stored access token and never call the server.
package guard

import (
	"context"
	"errors"

	"github.com/klwxsrx/storefront-console/internal/session"
	"github.com/klwxsrx/storefront-console/pkg/auth"
	"github.com/klwxsrx/storefront-console/pkg/log"
)

const RoleAdmin = "ROLE_ADMIN"

type (
	Decision struct {
		Allowed  bool
		Redirect string
	}

	Paths struct {
		Login        string
		Forbidden    string
		AdminLanding string
		Landing      string
		ElevatedRole string
	}

	Option func(*Authorizer)

	Authorizer struct {
		sessions    session.Service
		provider    auth.Provider[Principal]
		permissions auth.PermissionService[Principal]
		paths       Paths
		logger      log.Logger
	}
)

func DefaultPaths() Paths {
	return Paths{
		Login:        "/auth/login",
		Forbidden:    "/forbidden",
		AdminLanding: "/admin",
		Landing:      "/",
		ElevatedRole: RoleAdmin,
	}
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func RedirectTo(path string) Decision {
	return Decision{Redirect: path}
}

func NewAuthorizer(sessions session.Service, opts ...Option) *Authorizer {
	a := &Authorizer{
		sessions:    sessions,
		provider:    NewProvider(),
		permissions: auth.NewPermissionService[Principal](),
		paths:       DefaultPaths(),
		logger:      log.NewStub(),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

func WithPaths(paths Paths) Option {
	return func(a *Authorizer) {
		a.paths = paths
	}
}

func WithLogger(logger log.Logger) Option {
	return func(a *Authorizer) {
		a.logger = logger
	}
}

func (a *Authorizer) Paths() Paths {
	return a.paths
}

func (a *Authorizer) RequireAuthenticated(ctx context.Context) Decision {
	return a.check(a.authenticate(ctx, a.sessions.Current), auth.Authenticated[Principal]())
}

// RequireRole allows sessions holding any of the roles. An anonymous session goes to login,
// an authenticated one lacking the roles goes to the forbidden page.
func (a *Authorizer) RequireRole(ctx context.Context, roles ...string) Decision {
	return a.check(a.authenticate(ctx, a.sessions.RoleSession), auth.HasAnyRole[Principal](roles...))
}

// RequireAnonymous sends an authenticated session to its landing page instead of blocking it.
func (a *Authorizer) RequireAnonymous(ctx context.Context) Decision {
	ctx = a.authenticate(ctx, a.sessions.RoleSession)
	authentication, ok := auth.GetAuthentication[Principal](ctx)
	if !ok || !authentication.IsAuthenticated() {
		return Allow()
	}

	if auth.HasRole(*authentication.Principal(), a.paths.ElevatedRole) {
		return RedirectTo(a.paths.AdminLanding)
	}
	return RedirectTo(a.paths.Landing)
}

func (a *Authorizer) check(ctx context.Context, permission auth.Permission[Principal]) Decision {
	err := a.permissions.Check(ctx, permission)
	switch {
	case err == nil:
		return Allow()
	case errors.Is(err, auth.ErrUnauthenticated):
		return RedirectTo(a.paths.Login)
	case errors.Is(err, auth.ErrPermissionDenied):
		return RedirectTo(a.paths.Forbidden)
	default:
		a.logger.WithError(err).Error(ctx, "failed to check route permission")
		return RedirectTo(a.paths.Login)
	}
}

// authenticate puts the principal resolved by lookup into ctx. Role decisions resolve through
// RoleSession, which drops a session whose access token cannot be decoded.
func (a *Authorizer) authenticate(
	ctx context.Context,
	lookup func(context.Context) (session.Session, bool),
) context.Context {
	current, ok := lookup(ctx)
	if !ok {
		return auth.WithAuthentication[Principal](ctx, auth.Auth[Principal]{})
	}

	authentication, err := a.provider.Authenticate(ctx, SessionToken{Session: current})
	if err != nil {
		a.logger.WithError(err).Error(ctx, "failed to authenticate session")
		return auth.WithAuthentication[Principal](ctx, auth.Auth[Principal]{})
	}

	return auth.WithAuthentication(ctx, authentication)
}
