package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgtime "github.com/klwxsrx/storefront-console/pkg/time"
)

// KeepAlive returns a check that refreshes the session once its access token expires within threshold.
// A failed refresh ends the session and the check reports ErrSessionEnded.
func KeepAlive(s Service, clock pkgtime.Clock, threshold time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		current, ok := s.Current(ctx)
		if ok && !expiresWithin(current, clock.Now(ctx), threshold) {
			return nil
		}

		_, err := s.Refresh(ctx)
		switch {
		case err == nil:
			return nil
		case ok && errors.Is(err, ErrNoRefreshToken):
			return nil
		default:
			s.EndSession(ctx, EndReasonRefreshFailed)
			return fmt.Errorf("%w: %w", ErrSessionEnded, err)
		}
	}
}

func expiresWithin(s Session, now time.Time, threshold time.Duration) bool {
	if s.ExpiresAt == nil {
		return false
	}

	return s.ExpiresAt.Sub(now) <= threshold
}
