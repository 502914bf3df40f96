package mailbox

import "github.com/codewandler/postbox-go/core/metrics"

// Metrics defines the metrics interface for mailboxes.
// All methods are thread-safe. Depth is called with the mailbox lock held and
// must not call back into the mailbox.
type Metrics interface {
	MessagePosted(mailbox string)
	MessageDropped(mailbox string, reason string)
	Depth(mailbox string, depth int)
	PendDuration(mailbox string) metrics.Timer
}

type nopMetrics struct{}

func (nopMetrics) MessagePosted(string)              {}
func (nopMetrics) MessageDropped(string, string)     {}
func (nopMetrics) Depth(string, int)                 {}
func (nopMetrics) PendDuration(string) metrics.Timer { return metrics.NopTimer() }

// NopMetrics returns a no-op Metrics implementation.
func NopMetrics() Metrics { return nopMetrics{} }
