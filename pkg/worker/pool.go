package worker

import (
	"context"
	"runtime"
	"sync"
)

const (
	MaxWorkersCountNumCPU    = -1
	MaxWorkersCountUnlimited = 0
)

type Job func(context.Context)

// Pool runs jobs in the background, Wait blocks until every accepted job has returned.
type Pool interface {
	Do(context.Context, Job)
	Wait()
}

type pool struct {
	slots   chan struct{}
	pending sync.WaitGroup
}

func NewPool(maxWorkers int) Pool {
	if maxWorkers <= MaxWorkersCountNumCPU {
		maxWorkers = runtime.NumCPU()
	}

	p := &pool{}
	if maxWorkers > 0 {
		p.slots = make(chan struct{}, maxWorkers)
	}

	return p
}

// Do blocks while every slot is taken, the job itself runs asynchronously.
func (p *pool) Do(ctx context.Context, job Job) {
	p.pending.Add(1)
	if p.slots != nil {
		p.slots <- struct{}{}
	}

	go func() {
		defer p.pending.Done()
		if p.slots != nil {
			defer func() { <-p.slots }()
		}

		job(ctx)
	}()
}

func (p *pool) Wait() {
	p.pending.Wait()
}
