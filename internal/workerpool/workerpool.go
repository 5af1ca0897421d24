// Package workerpool implements the fixed-size goroutine pool each
// pipeline stage uses for its outbound-call fan-out: N workers pulling
// jobs off a buffered channel and invoking one blocking external call
// each, generalized from the teacher's agent/workflow ParallelAgent
// (which fans a fixed set of child agents out over goroutines and
// collects results) to an open-ended stream of jobs pulled from a
// channel instead of a fixed slice walked once.
package workerpool

import (
	"context"
	"runtime"
	"sync"
)

// Size clamps n to [2, 16], substituting runtime.NumCPU() when n <= 0,
// per the pool-size default spec.md §5 specifies.
func Size(n int) int {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n < 2 {
		n = 2
	}
	if n > 16 {
		n = 16
	}
	return n
}

// Job is one unit of work submitted to a Pool.
type Job func(ctx context.Context)

// Pool is a fixed-size goroutine pool reading Jobs off a buffered
// channel. Workers start on New and run until Close.
type Pool struct {
	jobs chan Job
	wg   sync.WaitGroup
}

// New starts a Pool with size workers (clamped via Size) and a job
// queue buffered to queueLen.
func New(size, queueLen int) *Pool {
	size = Size(size)
	if queueLen <= 0 {
		queueLen = size * 4
	}
	p := &Pool{jobs: make(chan Job, queueLen)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job(context.Background())
	}
}

// Submit enqueues job, blocking if the queue is full until a worker
// frees a slot or ctx is canceled.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new jobs and waits for queued jobs to drain.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
