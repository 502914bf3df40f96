// Package prometheus provides Prometheus implementations of the mailbox,
// router and actor metrics interfaces.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/postbox-go/core/metrics"
	"github.com/codewandler/postbox-go/core/system"
)

func newTimer(h prometheus.Observer) metrics.Timer {
	return metrics.NewTimer(func(d time.Duration) { h.Observe(d.Seconds()) })
}

// Default histogram buckets for latency metrics (in seconds). Handler and
// pend latencies of an in-process queue start well below a millisecond.
var defaultBuckets = []float64{
	.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5,
}

// AllMetrics holds Prometheus implementations for every metrics interface.
type AllMetrics struct {
	Mailbox *mailboxMetrics
	Router  *routerMetrics
	Actor   *actorMetrics
}

// NewAllMetrics creates and registers all metric families on reg.
func NewAllMetrics(reg prometheus.Registerer) *AllMetrics {
	return &AllMetrics{
		Mailbox: NewMailboxMetrics(reg).(*mailboxMetrics),
		Router:  NewRouterMetrics(reg).(*routerMetrics),
		Actor:   NewActorMetrics(reg).(*actorMetrics),
	}
}

// System returns the metrics in the shape system.Config expects.
func (m *AllMetrics) System() *system.Metrics {
	return &system.Metrics{
		Mailbox: m.Mailbox,
		Router:  m.Router,
		Actor:   m.Actor,
	}
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func tagLabel(tag uint16) string { return strconv.FormatUint(uint64(tag), 10) }
