package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/postbox-go/core/mailbox"
	"github.com/codewandler/postbox-go/core/metrics"
)

// mailboxMetrics implements mailbox.Metrics using Prometheus.
type mailboxMetrics struct {
	postedTotal  *prometheus.CounterVec
	droppedTotal *prometheus.CounterVec
	depth        *prometheus.GaugeVec
	pendDuration *prometheus.HistogramVec
}

// NewMailboxMetrics creates a new Prometheus implementation of mailbox.Metrics.
func NewMailboxMetrics(reg prometheus.Registerer) mailbox.Metrics {
	m := &mailboxMetrics{
		postedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postbox_mailbox_posted_total",
			Help: "Total number of messages accepted by a mailbox",
		}, []string{"mailbox"}),

		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postbox_mailbox_dropped_total",
			Help: "Total number of messages a mailbox refused or discarded",
		}, []string{"mailbox", "reason"}),

		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "postbox_mailbox_depth",
			Help: "Current number of queued messages",
		}, []string{"mailbox"}),

		pendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postbox_mailbox_pend_duration_seconds",
			Help:    "Time spent waiting in Pend or Receive",
			Buckets: defaultBuckets,
		}, []string{"mailbox"}),
	}

	reg.MustRegister(
		m.postedTotal,
		m.droppedTotal,
		m.depth,
		m.pendDuration,
	)

	return m
}

func (m *mailboxMetrics) MessagePosted(name string) {
	m.postedTotal.WithLabelValues(name).Inc()
}

func (m *mailboxMetrics) MessageDropped(name, reason string) {
	m.droppedTotal.WithLabelValues(name, reason).Inc()
}

func (m *mailboxMetrics) Depth(name string, depth int) {
	m.depth.WithLabelValues(name).Set(float64(depth))
}

func (m *mailboxMetrics) PendDuration(name string) metrics.Timer {
	return newTimer(m.pendDuration.WithLabelValues(name))
}

var _ mailbox.Metrics = (*mailboxMetrics)(nil)
