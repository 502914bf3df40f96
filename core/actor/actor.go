package actor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/postbox-go/core/mailbox"
	"github.com/codewandler/postbox-go/core/router"
	"github.com/codewandler/postbox-go/core/worker"
)

type (
	// Handler processes one message on the actor's loop.
	Handler func(msg mailbox.Message)

	OnPanic func(recovered any, stack []byte, msg mailbox.Message)

	State int32
)

const (
	StateConstructed State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Options struct {
	// ID identifies the actor in logs and callback IDs. Defaults to actor-<id>.
	ID string
	// SlotSize and Depth size the mailbox, see mailbox.Options.
	SlotSize int
	Depth    int
	// Handler is the default handler, called for messages posted directly.
	Handler        Handler
	Logger         *slog.Logger
	OnPanic        OnPanic
	Metrics        ActorMetrics
	MailboxMetrics mailbox.Metrics
}

// ChildOptions configures an actor that shares its parent's mailbox and loop.
type ChildOptions struct {
	ID      string
	Handler Handler
	Logger  *slog.Logger
}

// Actor is either a root actor, owning its mailbox and worker, or a child
// sharing both with its parent.
type Actor struct {
	id      string
	log     *slog.Logger
	router  *router.Router
	parent  *Actor
	mailbox *mailbox.Mailbox
	worker  *worker.Worker
	handler Handler
	onPanic OnPanic
	metrics ActorMetrics

	// root only
	state    atomic.Int32
	stopping atomic.Bool
	stopOnce sync.Once
}

// New creates a root actor with a fresh mailbox. Call Start to run its loop.
func New(r *router.Router, opts Options) *Actor {
	if r == nil {
		panic("actor: nil router")
	}
	if opts.ID == "" {
		opts.ID = fmt.Sprintf("actor-%s", gonanoid.Must(6))
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopActorMetrics()
	}

	log := opts.Logger.With(slog.String("actor", opts.ID))

	if opts.OnPanic == nil {
		opts.OnPanic = func(recovered any, stack []byte, msg mailbox.Message) {
			log.Error(
				"actor panicked",
				slog.Any("recovered", recovered),
				slog.String("stack", string(stack)),
				slog.Int("tag", int(msg.Tag)),
			)
		}
	}

	a := &Actor{
		id:     opts.ID,
		log:    log,
		router: r,
		mailbox: mailbox.New(mailbox.Options{
			Name:     opts.ID,
			SlotSize: opts.SlotSize,
			Depth:    opts.Depth,
			Metrics:  opts.MailboxMetrics,
		}),
		worker:  worker.New(worker.Options{Name: opts.ID, Logger: opts.Logger}),
		onPanic: opts.OnPanic,
		metrics: opts.Metrics,
	}
	a.handler = orUnhandled(opts.Handler, log)
	return a
}

// NewChild creates an actor that is scheduled on a's loop. Children of
// children attach to the same root.
func (a *Actor) NewChild(opts ChildOptions) *Actor {
	if opts.ID == "" {
		opts.ID = fmt.Sprintf("%s/child-%s", a.id, gonanoid.Must(6))
	}
	log := opts.Logger
	if log == nil {
		log = a.log
	}
	log = log.With(slog.String("child", opts.ID))

	return &Actor{
		id:      opts.ID,
		log:     log,
		router:  a.router,
		parent:  a,
		mailbox: a.mailbox,
		worker:  a.worker,
		handler: orUnhandled(opts.Handler, log),
		onPanic: a.onPanic,
		metrics: a.metrics,
	}
}

func (a *Actor) ID() string                { return a.id }
func (a *Actor) Parent() *Actor            { return a.parent }
func (a *Actor) IsRoot() bool              { return a.parent == nil }
func (a *Actor) Mailbox() *mailbox.Mailbox { return a.mailbox }
func (a *Actor) Router() *router.Router    { return a.router }

// Done is closed when the loop this actor runs on has exited.
func (a *Actor) Done() <-chan struct{} { return a.worker.Done() }

// State reports the lifecycle state of the loop this actor runs on.
func (a *Actor) State() State {
	root := a.root()
	s := State(root.state.Load())
	if s == StateRunning && !root.worker.Running() {
		return StateStopped
	}
	return s
}

// Start runs the receive loop on the actor's worker. Only root actors can be
// started, and only once.
func (a *Actor) Start() error {
	if a.parent != nil {
		return ErrNotRoot
	}
	if !a.state.CompareAndSwap(int32(StateConstructed), int32(StateRunning)) {
		if State(a.state.Load()) == StateStopped {
			return ErrStopped
		}
		return ErrAlreadyStarted
	}
	if err := a.worker.Go(a.loop); err != nil {
		// a concurrent Stop sealed the worker first
		a.state.Store(int32(StateStopped))
		return ErrStopped
	}
	a.log.Debug("actor started")
	return nil
}

// RequestStop asks the loop to exit after the message it is processing and
// returns immediately. It is safe to call from a handler. No-op on children.
func (a *Actor) RequestStop() {
	if a.parent != nil {
		return
	}
	a.stopping.Store(true)
	a.worker.Stop()
}

// Stop removes the actor's subscriptions, stops the loop and waits for it to
// exit, then closes the mailbox. Queued messages are dropped unhandled.
// Stop is idempotent and must not be called from the actor's own handlers.
func (a *Actor) Stop(ctx context.Context) error {
	if a.parent != nil {
		return ErrNotRoot
	}

	a.stopOnce.Do(func() {
		a.router.UnsubscribeMailbox(a.mailbox)
		a.RequestStop()
	})

	if err := a.worker.Join(ctx); err != nil {
		return fmt.Errorf("stop actor %s: %w", a.id, err)
	}
	a.state.Store(int32(StateStopped))

	if dropped := a.mailbox.Close(); dropped > 0 {
		a.log.Debug("dropped queued messages", slog.Int("count", dropped))
	}
	return nil
}

// DefaultHandler invokes the actor's default handler.
func (a *Actor) DefaultHandler(msg mailbox.Message) { a.handler(msg) }

// Send posts msg directly to this actor. On a child the message carries the
// child's default handler so it does not end up at the root's.
func (a *Actor) Send(msg mailbox.Message) error {
	if a.parent != nil {
		msg = msg.Routed([]mailbox.Callback{a.defaultCallback()})
	}
	return a.mailbox.Send(msg)
}

// Post is the boolean form of Send.
func (a *Actor) Post(msg mailbox.Message) bool { return a.Send(msg) == nil }

// Publish hands msg to the router. It never blocks and returns the number of
// mailboxes that accepted the message.
func (a *Actor) Publish(msg mailbox.Message) int { return a.router.Publish(msg) }

// ---- internals ----

func (a *Actor) root() *Actor {
	r := a
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (a *Actor) defaultCallback() mailbox.Callback {
	return mailbox.Callback{ID: callbackID(a, defaultHandlerName), Fn: a.DefaultHandler}
}

func (a *Actor) loop(ctx context.Context) {
	a.metrics.ActorsRunning(1)
	defer a.metrics.ActorsRunning(-1)
	defer a.log.Debug("actor stopped")

	for {
		msg, err := a.mailbox.Receive(ctx)
		if err != nil || a.stopping.Load() {
			return
		}

		if msg.IsRouted() {
			for _, cb := range msg.Callbacks() {
				a.invoke(KindCallback, cb.Fn, msg)
			}
		} else {
			a.invoke(KindDefault, a.DefaultHandler, msg)
		}

		if a.stopping.Load() {
			return
		}
	}
}

// invoke runs one handler with crash containment.
func (a *Actor) invoke(kind string, fn func(mailbox.Message), msg mailbox.Message) {
	defer a.metrics.MessageDuration(kind).ObserveDuration()
	defer func() {
		r := recover()
		if r != nil {
			a.metrics.MessagePanic(kind)
			a.onPanic(r, debug.Stack(), msg)
		}
		a.metrics.MessageProcessed(kind, r == nil)
	}()
	fn(msg)
}

func orUnhandled(h Handler, log *slog.Logger) Handler {
	if h != nil {
		return h
	}
	return func(msg mailbox.Message) {
		log.Debug("unhandled message", slog.Int("tag", int(msg.Tag)), slog.Int("len", msg.Len()))
	}
}
