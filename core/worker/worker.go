// Package worker runs a single loop function on its own goroutine and lets
// the owner stop and join it.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var ErrAlreadyStarted = errors.New("worker already started")

type (
	OnPanic func(recovered any, stack []byte)

	Options struct {
		Name    string
		Logger  *slog.Logger
		OnPanic OnPanic
	}
)

// Worker is a joinable unit of concurrent execution. It runs exactly one
// function, once.
type Worker struct {
	log     *slog.Logger
	onPanic OnPanic

	ctx    context.Context
	cancel context.CancelFunc

	started atomic.Bool
	done    chan struct{}
	once    sync.Once
}

func New(opts Options) *Worker {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	log := opts.Logger
	if opts.Name != "" {
		log = log.With(slog.String("worker", opts.Name))
	}
	if opts.OnPanic == nil {
		opts.OnPanic = func(recovered any, stack []byte) {
			log.Error("worker panicked", slog.Any("recovered", recovered), slog.String("stack", string(stack)))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		log:     log,
		onPanic: opts.OnPanic,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Go runs fn on a new goroutine. The context passed to fn is canceled by Stop.
func (w *Worker) Go(fn func(ctx context.Context)) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	go func() {
		defer w.finish()
		defer func() {
			if r := recover(); r != nil {
				w.onPanic(r, debug.Stack())
			}
		}()
		fn(w.ctx)
	}()
	return nil
}

// Stop cancels the context of the running function. It does not wait.
func (w *Worker) Stop() { w.cancel() }

// Join waits until the function has returned or ctx is done. Joining a worker
// that was never started seals it: it counts as finished and Go fails.
func (w *Worker) Join(ctx context.Context) error {
	if w.started.CompareAndSwap(false, true) {
		w.finish()
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the function has returned.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Running reports whether the function was started and has not returned yet.
func (w *Worker) Running() bool {
	if !w.started.Load() {
		return false
	}
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

func (w *Worker) finish() {
	w.once.Do(func() {
		w.cancel()
		close(w.done)
	})
}
