//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "API=API"
package session

import (
	"context"
)

type (
	Credentials struct {
		Username string
		Password string
	}

	Registration struct {
		Username string
		Email    string
		Password string
	}

	TokenPair struct {
		AccessToken  string
		RefreshToken string
	}

	// Result is the outcome of a call that does not create a session.
	// Success false carries the server message and per field messages.
	Result struct {
		Success     bool
		Message     string
		FieldErrors map[string]string
	}

	// API is the remote side of the session.
	// Transport failures wrap ErrTransportFailure, explicit rejections wrap ErrRejected.
	API interface {
		Login(ctx context.Context, credentials Credentials) (TokenPair, error)
		Register(ctx context.Context, registration Registration) (Result, error)
		Activate(ctx context.Context, email, otp string) (Result, error)
		ResendActivationCode(ctx context.Context, email string) (Result, error)
		RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error)
		Logout(ctx context.Context, tokens TokenPair) error
	}
)
