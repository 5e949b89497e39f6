package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	pkghttp "github.com/klwxsrx/storefront-console/pkg/http"
	"github.com/klwxsrx/storefront-console/pkg/worker"
)

const DestinationName = "storefront"

var (
	currentUserRoute     = pkghttp.Route{Method: http.MethodGet, URL: "/users/current"}
	changePasswordRoute  = pkghttp.Route{Method: http.MethodPost, URL: "/change-password"}
	countUsersRoute      = pkghttp.Route{Method: http.MethodGet, URL: "/users/count"}
	countProductsRoute   = pkghttp.Route{Method: http.MethodGet, URL: "/products/count"}
	countCategoriesRoute = pkghttp.Route{Method: http.MethodGet, URL: "/categories/count"}
)

type (
	Client interface {
		CurrentUser(ctx context.Context) (UserDetails, error)
		ChangePassword(ctx context.Context, change PasswordChange) error
		CountUsers(ctx context.Context) (int64, error)
		CountProducts(ctx context.Context) (int64, error)
		CountCategories(ctx context.Context) (int64, error)
		Dashboard(ctx context.Context) (Dashboard, error)
	}

	client struct {
		http pkghttp.Client
		pool worker.Pool
	}
)

// NewClient expects an http client carrying the request authenticator.
func NewClient(httpClient pkghttp.Client, pool worker.Pool) Client {
	return client{
		http: httpClient,
		pool: pool,
	}
}

func (c client) CurrentUser(ctx context.Context) (UserDetails, error) {
	return send[UserDetails](c.http.NewRequest(ctx), currentUserRoute)
}

func (c client) ChangePassword(ctx context.Context, change PasswordChange) error {
	_, err := send[json.RawMessage](c.http.NewRequest(ctx).SetBody(change), changePasswordRoute)
	return err
}

func (c client) CountUsers(ctx context.Context) (int64, error) {
	return send[int64](c.http.NewRequest(ctx), countUsersRoute)
}

func (c client) CountProducts(ctx context.Context) (int64, error) {
	return send[int64](c.http.NewRequest(ctx), countProductsRoute)
}

func (c client) CountCategories(ctx context.Context) (int64, error) {
	return send[int64](c.http.NewRequest(ctx), countCategoriesRoute)
}

// Dashboard loads the counters concurrently, the returned error joins the failures of the
// counters left nil.
func (c client) Dashboard(ctx context.Context) (Dashboard, error) {
	var result Dashboard
	group := worker.WithinFailSafeGroup(ctx, c.pool)
	group.Do(c.counter(&result.Users, "users", c.CountUsers))
	group.Do(c.counter(&result.Products, "products", c.CountProducts))
	group.Do(c.counter(&result.Categories, "categories", c.CountCategories))

	return result, group.Wait()
}

func (c client) counter(dst **int64, name string, count func(context.Context) (int64, error)) worker.ErrorJob {
	return func(ctx context.Context) error {
		n, err := count(ctx)
		if err != nil {
			return fmt.Errorf("count %s: %w", name, err)
		}

		*dst = &n
		return nil
	}
}

func send[T any](req *resty.Request, route pkghttp.Route) (T, error) {
	var zero T
	resp, err := route.Send(req)
	env, err := pkghttp.ParseEnvelope[T](resp, err)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if env.StatusCode == http.StatusUnauthorized {
		return zero, ErrUnauthorized
	}
	if !env.Success {
		return zero, &APIError{
			StatusCode:  env.StatusCode,
			Message:     env.Message,
			FieldErrors: env.FieldErrors(),
		}
	}

	return env.Data, nil
}
