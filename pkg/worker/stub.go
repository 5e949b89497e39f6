package worker

import "context"

type poolStub struct{}

// NewPoolStub runs every job synchronously in the caller goroutine.
func NewPoolStub() Pool {
	return poolStub{}
}

func (s poolStub) Do(ctx context.Context, job Job) {
	job(ctx)
}

func (s poolStub) Wait() {}
