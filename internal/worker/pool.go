package worker

import (
	"context"
	"iter"
	"sync"
)

// Job is one input tagged with its submission sequence number. A job that
// carries Err is passed through to the results without running.
type Job[In any] struct {
	Seq   int
	Input In
	Err   error
}

// Result is the outcome of one job.
type Result[Out any] struct {
	Seq   int
	Value Out
	Err   error

	passthrough bool
}

// GetError returns the job error, if any.
func (r Result[Out]) GetError() error { return r.Err }

// Pool runs a function over submitted jobs on a fixed set of goroutines.
// Results arrive in completion order; see Ordered for source order.
type Pool[In, Out any] struct {
	workers    int
	fn         func(context.Context, In) (Out, error)
	jobQueue   chan Job[In]
	results    chan Result[Out]
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeJobs  sync.Once
	closeOnce  sync.Once
}

// NewPool creates a pool with the given number of workers.
func NewPool[In, Out any](ctx context.Context, workers int, fn func(context.Context, In) (Out, error)) *Pool[In, Out] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool[In, Out]{
		workers:    workers,
		fn:         fn,
		jobQueue:   make(chan Job[In], workers*2),
		results:    make(chan Result[Out], workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers.
func (p *Pool[In, Out]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool[In, Out]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := Result[Out]{Seq: job.Seq, Err: job.Err, passthrough: job.Err != nil}
			if job.Err == nil {
				result.Value, result.Err = p.fn(p.ctx, job.Input)
			}
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It returns false once the pool is shutting down.
func (p *Pool[In, Out]) Submit(job Job[In]) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Results is closed after Close once every worker has exited.
func (p *Pool[In, Out]) Results() <-chan Result[Out] {
	return p.results
}

// Close stops accepting jobs and lets the workers drain the queue.
func (p *Pool[In, Out]) Close() {
	p.closeJobs.Do(func() {
		close(p.jobQueue)
		go func() {
			p.wg.Wait()
			p.closeResults()
		}()
	})
}

// Shutdown cancels the workers immediately and waits for them to exit.
func (p *Pool[In, Out]) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool[In, Out]) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// Ordered applies fn to every element of in using workers goroutines and
// yields the results in input order. At most 2*workers inputs are in flight.
// Errors from fn are yielded in place and the sequence continues; an error
// from in is yielded last.
func Ordered[In, Out any](ctx context.Context, workers int, in iter.Seq2[In, error], fn func(context.Context, In) (Out, error)) iter.Seq2[Out, error] {
	if workers <= 0 {
		workers = 1
	}
	return func(yield func(Out, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		pool := NewPool(ctx, workers, fn)
		pool.Start()
		defer pool.Shutdown()

		window := make(chan struct{}, workers*2)
		go func() {
			defer pool.Close()
			seq := 0
			for item, err := range in {
				select {
				case window <- struct{}{}:
				case <-ctx.Done():
					return
				}
				if !pool.Submit(Job[In]{Seq: seq, Input: item, Err: err}) || err != nil {
					return
				}
				seq++
			}
		}()

		pending := make(map[int]Result[Out])
		next := 0
		for r := range pool.Results() {
			pending[r.Seq] = r
			for {
				ready, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				<-window
				if !yield(ready.Value, ready.Err) || ready.passthrough {
					return
				}
			}
		}
		if err := ctx.Err(); err != nil {
			var zero Out
			yield(zero, err)
		}
	}
}
