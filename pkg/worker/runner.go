package worker

import (
	"context"
	"time"
)

// PeriodicRunner calls job every interval until ctx is done, the first call happens after one interval.
func PeriodicRunner(job Job, every time.Duration) ErrorJob {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				job(ctx)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
