// Package metrics provides the backend-neutral pieces shared by the
// per-package metrics interfaces (mailbox, router, actor). Backends such as
// adapters/prometheus implement those interfaces; core packages default to
// no-op implementations and never import a backend directly.
package metrics

import "time"

// Timer measures the duration of an operation. Call ObserveDuration when
// the operation completes to record the elapsed time.
type Timer interface {
	// ObserveDuration records the elapsed time since the timer was created.
	ObserveDuration()
}

// TimerFunc creates a new Timer. This allows deferred timing patterns like:
//
//	defer m.PendDuration("inbox").ObserveDuration()
type TimerFunc func() Timer

type stopwatch struct {
	start   time.Time
	observe func(time.Duration)
}

func (s *stopwatch) ObserveDuration() { s.observe(time.Since(s.start)) }

// NewTimer starts a Timer that hands the elapsed time to observe.
func NewTimer(observe func(time.Duration)) Timer {
	if observe == nil {
		return nopTimer{}
	}
	return &stopwatch{start: time.Now(), observe: observe}
}

type nopTimer struct{}

func (nopTimer) ObserveDuration() {}

// NopTimer returns a no-op Timer.
func NopTimer() Timer { return nopTimer{} }
