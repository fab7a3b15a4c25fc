// Package stage defines the unit of work every pipeline step satisfies,
// whether it transforms a value, filters it or terminates the stream.
package stage

import (
	"context"
	"sync"

	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
)

// Sink consumes one item at a time. Every Stage is also a Sink of its input.
type Sink[T any] interface {
	Process(ctx context.Context, item T) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc[T any] func(ctx context.Context, item T) error

// Process calls f.
func (f SinkFunc[T]) Process(ctx context.Context, item T) error { return f(ctx, item) }

// Func transforms one item.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Stage applies fn to each item and forwards the result, unchanged, to every
// downstream sink in registration order. Run does not return until all
// downstream forwards for the current item have completed.
type Stage[In, Out any] struct {
	name       string
	fn         Func[In, Out]
	downstream []Sink[Out]
}

// New creates a stage. A stage with no downstream sinks is a sink itself;
// its output is only observable through Run's return value.
func New[In, Out any](name string, fn Func[In, Out], downstream ...Sink[Out]) *Stage[In, Out] {
	return &Stage[In, Out]{name: name, fn: fn, downstream: downstream}
}

// Name returns the stage identity used in errors.
func (s *Stage[In, Out]) Name() string { return s.name }

// Then registers more downstream sinks and returns s for chaining.
func (s *Stage[In, Out]) Then(sinks ...Sink[Out]) *Stage[In, Out] {
	s.downstream = append(s.downstream, sinks...)
	return s
}

// Run transforms in and forwards the result. A failure of fn is reported as
// a StageError naming this stage; a StageError raised downstream is returned
// as is so the failing stage keeps its identity.
func (s *Stage[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	out, err := s.fn(ctx, in)
	if err != nil {
		var zero Out
		if internalerr.IsStage(err) {
			return zero, err
		}
		return zero, &internalerr.StageError{Stage: s.name, Item: in, Err: err}
	}
	for _, next := range s.downstream {
		if err := next.Process(ctx, out); err != nil {
			if internalerr.IsStage(err) {
				return out, err
			}
			return out, &internalerr.StageError{Stage: s.name, Item: in, Err: err}
		}
	}
	return out, nil
}

// Process runs the stage and drops the result.
func (s *Stage[In, Out]) Process(ctx context.Context, in In) error {
	_, err := s.Run(ctx, in)
	return err
}

// Collector is a sink that keeps every item it receives. It is meant for
// single-shot driving and tests.
type Collector[T any] struct {
	mu    sync.Mutex
	items []T
}

// Process records item.
func (c *Collector[T]) Process(_ context.Context, item T) error {
	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()
	return nil
}

// Items returns a copy of everything received so far.
func (c *Collector[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Last returns the most recent item, if any.
func (c *Collector[T]) Last() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		var zero T
		return zero, false
	}
	return c.items[len(c.items)-1], true
}

// Discard returns a sink that drops everything.
func Discard[T any]() Sink[T] {
	return SinkFunc[T](func(context.Context, T) error { return nil })
}
