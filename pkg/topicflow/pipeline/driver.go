// Package pipeline drives items from a source through a stage graph.
package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"iter"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/topicflow/internal/worker"
	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
	"github.com/cognicore/topicflow/pkg/topicflow/stage"
)

// State is the lifecycle position of a Driver.
type State int

const (
	Idle State = iota
	Running
	Exhausted
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Exhausted:
		return "exhausted"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Policy decides what happens when a stage fails on one item.
type Policy int

const (
	// Abort stops the run at the first stage failure.
	Abort Policy = iota
	// Skip logs the failure and moves on to the next item.
	Skip
)

// ParsePolicy accepts "abort" or "skip".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "abort":
		return Abort, nil
	case "skip":
		return Skip, nil
	default:
		return Abort, internalerr.Configf("policy", "unknown failure policy %q", s)
	}
}

// ErrAlreadyRun is returned when Run is called on a driver that has finished.
var ErrAlreadyRun = errors.New("pipeline: driver already run")

// Stats summarises a run.
type Stats struct {
	RunID     string
	Processed int
	Skipped   int
	Started   time.Time
	Finished  time.Time
}

// Elapsed is the wall time of the run.
func (s Stats) Elapsed() time.Duration { return s.Finished.Sub(s.Started) }

// Option configures a Driver.
type Option func(*options)

type options struct {
	policy   Policy
	observer Observer
	logger   *log.Logger
}

// WithPolicy sets the failure policy. Abort is the default.
func WithPolicy(p Policy) Option { return func(o *options) { o.policy = p } }

// WithObserver reports progress after every item.
func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

// WithLogger sets the logger used for skipped items.
func WithLogger(l *log.Logger) Option { return func(o *options) { o.logger = l } }

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a sortable unique identifier for a run.
func NewRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// Driver pulls items one at a time and pushes each through head. The next
// item is pulled only after every effect of the current one has completed.
type Driver[T any] struct {
	head stage.Sink[T]
	opts options

	mu    sync.Mutex
	state State
}

// New creates an idle driver.
func New[T any](head stage.Sink[T], opts ...Option) *Driver[T] {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Driver[T]{head: head, opts: o}
}

// State returns the current state.
func (d *Driver[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Driver[T]) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Run drives items to exhaustion. total is the known or estimated number of
// items, or 0 when unknown; it only affects progress reports.
//
// Stage failures follow the configured policy, including StageErrors yielded
// by items (see Prefetch). Any other error ends the run.
func (d *Driver[T]) Run(ctx context.Context, items iter.Seq2[T, error], total int) (Stats, error) {
	d.mu.Lock()
	if d.state != Idle {
		d.mu.Unlock()
		return Stats{}, ErrAlreadyRun
	}
	d.state = Running
	d.mu.Unlock()

	stats := Stats{RunID: NewRunID(), Started: time.Now()}
	finish := func(s State, err error) (Stats, error) {
		stats.Finished = time.Now()
		d.setState(s)
		return stats, err
	}

	if err := ctx.Err(); err != nil {
		return finish(Failed, fmt.Errorf("cancelled before the first item: %w", err))
	}
	pos := 0
	for item, err := range items {
		if err != nil && !internalerr.Skippable(err) {
			return finish(Failed, fmt.Errorf("pull item %d: %w", pos, err))
		}
		if err == nil {
			err = d.head.Process(ctx, item)
		}
		if err != nil {
			if !internalerr.Skippable(err) || d.opts.policy == Abort {
				return finish(Failed, err)
			}
			stats.Skipped++
			d.opts.logger.Printf("skipping item %d: %v", pos, err)
		} else {
			stats.Processed++
		}
		pos++
		if d.opts.observer != nil {
			d.opts.observer.Report(pos, total)
		}
		if err := ctx.Err(); err != nil {
			return finish(Failed, fmt.Errorf("cancelled after %d items: %w", pos, err))
		}
	}
	if err := ctx.Err(); err != nil {
		return finish(Failed, fmt.Errorf("cancelled after %d items: %w", pos, err))
	}
	return finish(Exhausted, nil)
}

// Outputs exposes the graph as a pull sequence: each pulled item is run
// through head and its result yielded. The sequence ends at the first error.
func Outputs[In, Out any](ctx context.Context, items iter.Seq2[In, error], head *stage.Stage[In, Out]) iter.Seq2[Out, error] {
	return func(yield func(Out, error) bool) {
		for item, err := range items {
			var out Out
			if err == nil {
				err = ctx.Err()
			}
			if err == nil {
				out, err = head.Run(ctx, item)
			}
			if !yield(out, err) || err != nil {
				return
			}
		}
	}
}

// Prefetch runs a pure transform over items on a worker pool and yields the
// results in source order. fn must not touch shared mutable state.
// A failure of fn is yielded in place as a StageError named name, so the
// driver can apply its policy to it.
func Prefetch[In, Out any](ctx context.Context, items iter.Seq2[In, error], workers int, name string, fn stage.Func[In, Out]) iter.Seq2[Out, error] {
	wrapped := func(ctx context.Context, in In) (Out, error) {
		out, err := fn(ctx, in)
		if err != nil && !internalerr.IsStage(err) {
			err = &internalerr.StageError{Stage: name, Item: in, Err: err}
		}
		return out, err
	}
	return worker.Ordered(ctx, workers, items, wrapped)
}
