package actor

import "github.com/codewandler/postbox-go/core/metrics"

// Invocation kinds reported to ActorMetrics.
const (
	KindCallback = "callback"
	KindDefault  = "default"
)

// ActorMetrics defines the metrics interface for actor receive loops.
// All methods are thread-safe.
type ActorMetrics interface {
	// Message handling
	MessageDuration(kind string) metrics.Timer
	MessageProcessed(kind string, success bool)
	MessagePanic(kind string)

	// Lifecycle
	ActorsRunning(delta int)
}

// nopActorMetrics is a no-op implementation of ActorMetrics.
type nopActorMetrics struct{}

func (nopActorMetrics) MessageDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopActorMetrics) MessageProcessed(string, bool)        {}
func (nopActorMetrics) MessagePanic(string)                  {}

func (nopActorMetrics) ActorsRunning(int) {}

// NopActorMetrics returns a no-op ActorMetrics implementation.
func NopActorMetrics() ActorMetrics { return nopActorMetrics{} }
