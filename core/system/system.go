package system

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codewandler/postbox-go/core/actor"
	"github.com/codewandler/postbox-go/core/mailbox"
	"github.com/codewandler/postbox-go/core/router"
)

var ErrShutdown = errors.New("system is shut down")

type Metrics struct {
	Mailbox mailbox.Metrics
	Router  router.Metrics
	Actor   actor.ActorMetrics
}

// ActorDefaults apply to spawned actors that leave the field unset.
type ActorDefaults struct {
	SlotSize int
	Depth    int
}

type Config struct {
	// Context bounds the system; canceling it shuts the system down.
	Context context.Context
	Log     *slog.Logger
	Metrics *Metrics
	Actor   ActorDefaults
}

type System struct {
	ctx     context.Context
	cancel  context.CancelFunc
	log     *slog.Logger
	metrics Metrics
	defs    ActorDefaults
	router  *router.Router

	mu     sync.Mutex
	actors []*actor.Actor
	closed bool

	shutdownOnce sync.Once
	shutdownErr  error // set before done is closed
	done         chan struct{}
}

func New(config Config) *System {
	// === logger ===
	if config.Log == nil {
		config.Log = slog.Default()
	}

	// === context ===
	if config.Context == nil {
		config.Context = context.Background()
	}

	// === metrics ===
	m := Metrics{}
	if config.Metrics != nil {
		m = *config.Metrics
	}
	if m.Mailbox == nil {
		m.Mailbox = mailbox.NopMetrics()
	}
	if m.Router == nil {
		m.Router = router.NopMetrics()
	}
	if m.Actor == nil {
		m.Actor = actor.NopActorMetrics()
	}

	s := &System{
		log:     config.Log,
		metrics: m,
		defs:    config.Actor,
		done:    make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(config.Context)
	s.router = router.New(router.WithLogger(s.log), router.WithMetrics(m.Router))

	// canceling the context starts a shutdown nobody waits for
	go func() {
		<-s.ctx.Done()
		s.beginShutdown()
	}()

	s.log.Debug("system created", slog.Int("slot_size", s.defs.SlotSize), slog.Int("depth", s.defs.Depth))
	return s
}

func (s *System) Router() *router.Router { return s.router }

// Spawn creates a root actor on the system's router, starts it and tracks it
// for Shutdown. Unset options are taken from the system configuration.
func (s *System) Spawn(opts actor.Options) (*actor.Actor, error) {
	if opts.SlotSize == 0 {
		opts.SlotSize = s.defs.SlotSize
	}
	if opts.Depth == 0 {
		opts.Depth = s.defs.Depth
	}
	if opts.Logger == nil {
		opts.Logger = s.log
	}
	if opts.Metrics == nil {
		opts.Metrics = s.metrics.Actor
	}
	if opts.MailboxMetrics == nil {
		opts.MailboxMetrics = s.metrics.Mailbox
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrShutdown
	}

	a := actor.New(s.router, opts)
	if err := a.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", a.ID(), err)
	}
	s.actors = append(s.actors, a)
	return a, nil
}

// Actors returns the root actors spawned so far, in spawn order.
func (s *System) Actors() []*actor.Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.actors)
}

// Shutdown stops every spawned actor in parallel and waits for their loops to
// exit or ctx to be done. The stop keeps going in the background when ctx
// ends first; Done reports when it has finished. Every call after the last
// actor stopped returns the same result.
func (s *System) Shutdown(ctx context.Context) error {
	s.beginShutdown()
	select {
	case <-s.done:
		return s.shutdownErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *System) beginShutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		actors := s.actors
		s.mu.Unlock()

		s.log.Debug("shutting down", slog.Int("actors", len(actors)))
		go s.stopAll(actors)
	})
}

func (s *System) stopAll(actors []*actor.Actor) {
	var g errgroup.Group
	for _, a := range actors {
		g.Go(func() error { return a.Stop(context.Background()) })
	}
	s.shutdownErr = g.Wait()

	s.cancel()
	close(s.done)

	if s.shutdownErr != nil {
		s.log.Error("shutdown failed", slog.Any("error", s.shutdownErr))
		return
	}
	s.log.Info("system stopped")
}

// Done is closed once Shutdown has finished.
func (s *System) Done() <-chan struct{} { return s.done }
