// Package timer posts a fixed message into a mailbox after a delay, and
// optionally every period after that. It is a producer like any other
// goroutine: ticks that find the target full are dropped.
package timer

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/codewandler/postbox-go/core/mailbox"
)

// Poster is anything a message can be posted to, typically a
// *mailbox.Mailbox or an *actor.Actor.
type Poster interface {
	Post(msg mailbox.Message) bool
}

type Option func(*Timer)

// WithClock replaces the wall clock, mostly for tests with clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(t *Timer) { t.clock = c }
}

func WithLogger(log *slog.Logger) Option {
	return func(t *Timer) { t.log = log }
}

type Timer struct {
	clock  clock.Clock
	log    *slog.Logger
	target Poster
	msg    mailbox.Message

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}

	fired   atomic.Uint64
	dropped atomic.Uint64
}

func New(target Poster, msg mailbox.Message, opts ...Option) *Timer {
	t := &Timer{
		clock:  clock.New(),
		log:    slog.New(slog.DiscardHandler),
		target: target,
		msg:    msg,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start (re)arms the timer: the first message is posted after delay, then
// every period. A period of zero makes the timer one-shot. A running timer is
// stopped first.
func (t *Timer) Start(delay, period time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	// created here, not in the goroutine, so the first deadline is relative
	// to the Start call
	tm := t.clock.Timer(delay)
	stop := make(chan struct{})
	done := make(chan struct{})
	t.stop, t.done = stop, done

	go t.run(tm, period, stop, done)
}

// Stop disarms the timer and waits for its goroutine to exit. It reports
// whether the timer was armed.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopLocked()
}

// Fired returns how many messages were posted successfully.
func (t *Timer) Fired() uint64 { return t.fired.Load() }

// Dropped returns how many ticks found the target full.
func (t *Timer) Dropped() uint64 { return t.dropped.Load() }

func (t *Timer) run(tm *clock.Timer, period time.Duration, stop, done chan struct{}) {
	defer close(done)
	defer tm.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tm.C:
		}

		// re-arm before posting so the next deadline is already scheduled
		// when the receiver sees this message
		if period > 0 {
			tm.Reset(period)
		}
		t.fire()
		if period <= 0 {
			return
		}
	}
}

func (t *Timer) fire() {
	if t.target.Post(t.msg) {
		t.fired.Add(1)
		return
	}
	t.dropped.Add(1)
	t.log.Debug("timer tick dropped", slog.Int("tag", int(t.msg.Tag)))
}

func (t *Timer) stopLocked() bool {
	if t.stop == nil {
		return false
	}

	armed := true
	select {
	case <-t.done:
		armed = false
	default:
	}

	close(t.stop)
	<-t.done
	t.stop, t.done = nil, nil
	return armed
}
