package mailbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Receive modes for [Mailbox.Pend]. Any positive duration waits at most that long.
const (
	NoWait      time.Duration = 0
	WaitForever time.Duration = -1
)

const (
	DefaultSlotSize = 1000
	DefaultDepth    = 64
)

var errTimeout = errors.New("pend timed out")

type Options struct {
	// Name labels the mailbox in logs and metrics. Defaults to mailbox-<id>.
	Name string
	// SlotSize is the payload capacity of every message in this mailbox.
	SlotSize int
	// Depth is the maximum number of queued messages.
	Depth   int
	Metrics Metrics
}

// slot owns the payload buffer of one queued message.
type slot struct {
	tag Tag
	buf []byte
	cbs []Callback
}

// Mailbox is a bounded FIFO queue. Any number of goroutines may send and
// receive concurrently.
type Mailbox struct {
	name     string
	slotSize int
	metrics  Metrics

	mu     sync.Mutex
	slots  []slot
	head   int
	n      int
	closed bool

	// wake holds at most one token. Send deposits it, a receiver that takes a
	// message while more are queued passes it on, so a wakeup is never lost.
	wake chan struct{}
	done chan struct{}
}

func New(opts Options) *Mailbox {
	if opts.Name == "" {
		opts.Name = fmt.Sprintf("mailbox-%s", gonanoid.Must(6))
	}
	if opts.SlotSize <= 0 {
		opts.SlotSize = DefaultSlotSize
	}
	if opts.Depth <= 0 {
		opts.Depth = DefaultDepth
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics()
	}

	return &Mailbox{
		name:     opts.Name,
		slotSize: opts.SlotSize,
		metrics:  opts.Metrics,
		slots:    make([]slot, opts.Depth),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (m *Mailbox) Name() string  { return m.name }
func (m *Mailbox) SlotSize() int { return m.slotSize }
func (m *Mailbox) Cap() int      { return len(m.slots) }

// Len returns the number of queued messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n
}

// Closed is closed once Close has been called.
func (m *Mailbox) Closed() <-chan struct{} { return m.done }

// Send enqueues a copy of msg without blocking. A full mailbox rejects the
// message with ErrMailboxFull and leaves the queue unchanged.
func (m *Mailbox) Send(msg Message) error {
	if len(msg.Payload) > m.slotSize {
		m.metrics.MessageDropped(m.name, DropTooLarge)
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(msg.Payload), m.slotSize)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.metrics.MessageDropped(m.name, DropClosed)
		return ErrMailboxClosed
	}
	if m.n == len(m.slots) {
		m.mu.Unlock()
		m.metrics.MessageDropped(m.name, DropFull)
		return ErrMailboxFull
	}

	s := &m.slots[(m.head+m.n)%len(m.slots)]
	if s.buf == nil {
		s.buf = make([]byte, 0, m.slotSize)
	}
	s.tag = msg.Tag
	s.buf = append(s.buf[:0], msg.Payload...)
	s.cbs = msg.callbacks
	m.n++
	// depth is reported under the lock so reports stay in queue order
	m.metrics.Depth(m.name, m.n)
	m.mu.Unlock()

	m.signal()
	m.metrics.MessagePosted(m.name)
	return nil
}

// Post is the boolean form of Send: true when the message was queued.
func (m *Mailbox) Post(msg Message) bool {
	return m.Send(msg) == nil
}

// Pend dequeues the oldest message. timeout is NoWait, WaitForever or a
// positive bound. It returns false when no message could be dequeued in time,
// or when the mailbox is closed.
func (m *Mailbox) Pend(timeout time.Duration) (Message, bool) {
	defer m.metrics.PendDuration(m.name).ObserveDuration()

	switch {
	case timeout == NoWait:
		msg, ok, _ := m.tryPop()
		return msg, ok
	case timeout < 0:
		msg, err := m.wait(context.Background(), nil)
		return msg, err == nil
	default:
		t := time.NewTimer(timeout)
		defer t.Stop()
		msg, err := m.wait(context.Background(), t.C)
		return msg, err == nil
	}
}

// Receive blocks until a message is available, ctx is done, or the mailbox
// is closed.
func (m *Mailbox) Receive(ctx context.Context) (Message, error) {
	defer m.metrics.PendDuration(m.name).ObserveDuration()
	return m.wait(ctx, nil)
}

// Close rejects further sends, wakes all receivers and drops every queued
// message without handling it. It returns the number of dropped messages.
func (m *Mailbox) Close() int {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0
	}
	m.closed = true
	dropped := m.n
	clear(m.slots)
	m.head, m.n = 0, 0
	close(m.done)
	m.metrics.Depth(m.name, 0)
	m.mu.Unlock()

	for range dropped {
		m.metrics.MessageDropped(m.name, DropClosed)
	}
	return dropped
}

// ---- internals ----

func (m *Mailbox) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Mailbox) wait(ctx context.Context, deadline <-chan time.Time) (Message, error) {
	for {
		msg, ok, err := m.tryPop()
		if ok {
			return msg, nil
		}
		if err != nil {
			return Message{}, err
		}

		select {
		case <-m.wake:
		case <-m.done:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-deadline:
			// a message may have landed together with the deadline
			if msg, ok, _ := m.tryPop(); ok {
				return msg, nil
			}
			return Message{}, errTimeout
		}
	}
}

func (m *Mailbox) tryPop() (Message, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.n == 0 {
		if m.closed {
			return Message{}, false, ErrMailboxClosed
		}
		return Message{}, false, nil
	}

	s := &m.slots[m.head]
	msg := Message{Tag: s.tag, Payload: bytes.Clone(s.buf), callbacks: s.cbs}
	s.buf = s.buf[:0]
	s.cbs = nil
	m.head = (m.head + 1) % len(m.slots)
	m.n--

	if m.n > 0 {
		m.signal()
	}
	m.metrics.Depth(m.name, m.n)
	return msg, true, nil
}
