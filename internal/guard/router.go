package guard

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

type (
	Guard func(ctx context.Context) Decision

	// Router matches navigation paths against the console route table and applies
	// the guard of the matched route. Unknown paths redirect to login.
	Router struct {
		authorizer *Authorizer
		routes     *mux.Router
	}

	Route struct {
		Path  string
		Guard Guard
	}

	guardHandler Guard
)

func (h guardHandler) ServeHTTP(http.ResponseWriter, *http.Request) {}

func NewRouter(authorizer *Authorizer, routes ...Route) *Router {
	r := &Router{
		authorizer: authorizer,
		routes:     mux.NewRouter(),
	}
	if len(routes) == 0 {
		routes = r.ConsoleRoutes()
	}
	for _, route := range routes {
		r.routes.Path(route.Path).Handler(guardHandler(route.Guard))
	}

	return r
}

// ConsoleRoutes is the storefront console route table.
func (r *Router) ConsoleRoutes() []Route {
	a := r.authorizer
	public := func(context.Context) Decision { return Allow() }
	anonymous := a.RequireAnonymous
	authenticated := a.RequireAuthenticated
	admin := func(ctx context.Context) Decision { return a.RequireRole(ctx, RoleAdmin) }

	return []Route{
		{Path: "/", Guard: public},
		{Path: "/category", Guard: public},
		{Path: "/category/{category}", Guard: public},
		{Path: "/forbidden", Guard: public},
		{Path: "/auth/login", Guard: anonymous},
		{Path: "/auth/register", Guard: anonymous},
		{Path: "/auth/active", Guard: anonymous},
		{Path: "/profile", Guard: authenticated},
		{Path: "/orders", Guard: authenticated},
		{Path: "/edit-profile", Guard: authenticated},
		{Path: "/change-password", Guard: authenticated},
		{Path: "/settings", Guard: authenticated},
		{Path: "/admin", Guard: admin},
		{Path: "/admin/users", Guard: admin},
		{Path: "/admin/categories", Guard: admin},
		{Path: "/admin/products", Guard: admin},
	}
}

func (r *Router) Paths() Paths {
	return r.authorizer.paths
}

func (r *Router) Navigate(ctx context.Context, path string) Decision {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return RedirectTo(r.authorizer.paths.Login)
	}

	return r.decide(req)
}

// Middleware answers 302 to the redirect target of a denied navigation.
func (r *Router) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			decision := r.decide(req)
			if !decision.Allowed {
				http.Redirect(w, req, decision.Redirect, http.StatusFound)
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}

func (r *Router) decide(req *http.Request) Decision {
	var match mux.RouteMatch
	if !r.routes.Match(req, &match) {
		return RedirectTo(r.authorizer.paths.Login)
	}

	guard, ok := match.Handler.(guardHandler)
	if !ok || guard == nil {
		return RedirectTo(r.authorizer.paths.Login)
	}

	return guard(req.Context())
}
