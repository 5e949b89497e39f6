package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/klwxsrx/storefront-console/internal/session"
	pkghttp "github.com/klwxsrx/storefront-console/pkg/http"
)

const (
	DestinationName = "storefront-auth"

	otpTypeVerifyEmail = "VERIFY_EMAIL"
)

var (
	loginRoute        = pkghttp.Route{Method: http.MethodPost, URL: "/auth/login"}
	registerRoute     = pkghttp.Route{Method: http.MethodPost, URL: "/auth/register"}
	activateRoute     = pkghttp.Route{Method: http.MethodPost, URL: "/auth/active"}
	refreshTokenRoute = pkghttp.Route{Method: http.MethodPost, URL: "/auth/refresh-token"}
	logoutRoute       = pkghttp.Route{Method: http.MethodPost, URL: "/auth/logout"}
	resendOTPRoute    = pkghttp.Route{Method: http.MethodPost, URL: "/otp/resend"}
)

type api struct {
	client pkghttp.Client
}

// New binds the auth endpoints, the client must not carry the request authenticator.
func New(client pkghttp.Client) session.API {
	return api{client: client}
}

func (a api) Login(ctx context.Context, credentials session.Credentials) (session.TokenPair, error) {
	return a.requestTokens(ctx, loginRoute, loginRequest{
		Username: credentials.Username,
		Password: credentials.Password,
	})
}

func (a api) Register(ctx context.Context, registration session.Registration) (session.Result, error) {
	return a.requestResult(ctx, registerRoute, registerRequest{
		Username: registration.Username,
		Email:    registration.Email,
		Password: registration.Password,
	})
}

func (a api) Activate(ctx context.Context, email, otp string) (session.Result, error) {
	return a.requestResult(ctx, activateRoute, activateRequest{
		Email: email,
		OTP:   otp,
	})
}

func (a api) ResendActivationCode(ctx context.Context, email string) (session.Result, error) {
	return a.requestResult(ctx, resendOTPRoute, resendOTPRequest{
		Email: email,
		Type:  otpTypeVerifyEmail,
	})
}

func (a api) RefreshToken(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	return a.requestTokens(ctx, refreshTokenRoute, refreshTokenRequest{
		RefreshToken: refreshToken,
	})
}

func (a api) Logout(ctx context.Context, tokens session.TokenPair) error {
	resp, err := logoutRoute.Send(a.client.NewRequest(ctx).SetBody(logoutRequest{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}))

	env, err := pkghttp.ParseEnvelope[json.RawMessage](resp, err)
	if err != nil {
		return transportFailure(err)
	}
	if !env.Success {
		return rejected(env)
	}

	return nil
}

func (a api) requestTokens(ctx context.Context, route pkghttp.Route, body any) (session.TokenPair, error) {
	env, err := send[tokenPairResponse](a.client.NewRequest(ctx), route, body)
	if err != nil {
		return session.TokenPair{}, err
	}
	if !env.Success {
		return session.TokenPair{}, rejected(env)
	}
	if env.Data.AccessToken == "" {
		return session.TokenPair{}, &session.RejectedError{Message: "response has no access token"}
	}

	return session.TokenPair{
		AccessToken:  env.Data.AccessToken,
		RefreshToken: env.Data.RefreshToken,
	}, nil
}

func (a api) requestResult(ctx context.Context, route pkghttp.Route, body any) (session.Result, error) {
	env, err := send[json.RawMessage](a.client.NewRequest(ctx), route, body)
	if err != nil {
		return session.Result{}, err
	}

	return session.Result{
		Success:     env.Success,
		Message:     env.Message,
		FieldErrors: env.FieldErrors(),
	}, nil
}

func send[T any](req *resty.Request, route pkghttp.Route, body any) (pkghttp.Envelope[T], error) {
	resp, err := route.Send(req.SetBody(body))
	env, err := pkghttp.ParseEnvelope[T](resp, err)
	if err != nil {
		return env, transportFailure(err)
	}

	return env, nil
}

func rejected[T any](env pkghttp.Envelope[T]) error {
	return &session.RejectedError{
		Message:     env.Message,
		FieldErrors: env.FieldErrors(),
	}
}

func transportFailure(err error) error {
	if errors.Is(err, session.ErrTransportFailure) {
		return err
	}

	return fmt.Errorf("%w: %w", session.ErrTransportFailure, err)
}
