package worker

import (
	"context"
	"errors"

	"github.com/klwxsrx/storefront-console/pkg/log"
)

var errProcessCompleted = errors.New("process completed")

// RunHub runs the processes until the first of them returns, then cancels the rest.
// A process stopped by ctx cancellation is not an error.
func RunHub(ctx context.Context, logger log.Logger, process ErrorJob, processes ...ErrorJob) error {
	loggingWrapper := func(process ErrorJob) ErrorJob {
		return func(ctx context.Context) error {
			err := process(ctx)
			if err == nil {
				return errProcessCompleted
			}
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return err
			}

			logger.WithError(err).Error(ctx, "process completed with error")
			return err
		}
	}

	processGroup := NewFailFastGroup(ctx)
	processGroup.Do(loggingWrapper(process))
	for _, process := range processes {
		processGroup.Do(loggingWrapper(process))
	}

	err := processGroup.Wait()
	if errors.Is(err, errProcessCompleted) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}

	return err
}
