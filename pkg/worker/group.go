package worker

import (
	"context"
	"errors"
	"sync"
)

type ErrorJob func(context.Context) error

type Group interface {
	Do(ErrorJob)
	Wait() error
}

type group struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	failFast  bool

	mu   sync.Mutex
	errs []error

	pool Pool
	wg   sync.WaitGroup
}

// WithinFailFastGroup cancels the group context after the first error and reports only that error.
func WithinFailFastGroup(ctx context.Context, pool Pool) Group {
	return newGroup(ctx, pool, true)
}

// WithinFailSafeGroup lets every job finish and reports all errors joined.
func WithinFailSafeGroup(ctx context.Context, pool Pool) Group {
	return newGroup(ctx, pool, false)
}

func NewFailFastGroup(ctx context.Context) Group {
	return WithinFailFastGroup(ctx, NewPool(MaxWorkersCountUnlimited))
}

func newGroup(ctx context.Context, pool Pool, failFast bool) *group {
	ctx, cancel := context.WithCancel(ctx)
	return &group{
		ctx:       ctx,
		ctxCancel: cancel,
		failFast:  failFast,
		pool:      pool,
	}
}

func (g *group) Do(job ErrorJob) {
	g.wg.Add(1)
	g.pool.Do(g.ctx, func(ctx context.Context) {
		defer g.wg.Done()
		g.handleErr(job(ctx))
	})
}

func (g *group) Wait() error {
	g.wg.Wait()
	g.ctxCancel()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failFast && len(g.errs) > 0 {
		return g.errs[0]
	}

	return errors.Join(g.errs...)
}

func (g *group) handleErr(err error) {
	if err == nil {
		return
	}

	g.mu.Lock()
	g.errs = append(g.errs, err)
	first := len(g.errs) == 1
	g.mu.Unlock()

	if first && g.failFast {
		g.ctxCancel()
	}
}
