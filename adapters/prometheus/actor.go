package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/postbox-go/core/actor"
	"github.com/codewandler/postbox-go/core/metrics"
)

// actorMetrics implements actor.ActorMetrics using Prometheus.
type actorMetrics struct {
	messageDuration *prometheus.HistogramVec
	messagesTotal   *prometheus.CounterVec
	panicTotal      *prometheus.CounterVec
	actorsRunning   prometheus.Gauge
}

// NewActorMetrics creates a new Prometheus implementation of ActorMetrics.
func NewActorMetrics(reg prometheus.Registerer) actor.ActorMetrics {
	m := &actorMetrics{
		messageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postbox_actor_message_duration_seconds",
			Help:    "Message handling time in seconds",
			Buckets: defaultBuckets,
		}, []string{"kind"}),

		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postbox_actor_messages_total",
			Help: "Total number of handler invocations",
		}, []string{"kind", "success"}),

		panicTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postbox_actor_panics_total",
			Help: "Total number of handler panics",
		}, []string{"kind"}),

		actorsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "postbox_actor_running",
			Help: "Number of running actor loops",
		}),
	}

	reg.MustRegister(
		m.messageDuration,
		m.messagesTotal,
		m.panicTotal,
		m.actorsRunning,
	)

	return m
}

func (m *actorMetrics) MessageDuration(kind string) metrics.Timer {
	return newTimer(m.messageDuration.WithLabelValues(kind))
}

func (m *actorMetrics) MessageProcessed(kind string, success bool) {
	m.messagesTotal.WithLabelValues(kind, boolToStr(success)).Inc()
}

func (m *actorMetrics) MessagePanic(kind string) {
	m.panicTotal.WithLabelValues(kind).Inc()
}

func (m *actorMetrics) ActorsRunning(delta int) {
	m.actorsRunning.Add(float64(delta))
}

var _ actor.ActorMetrics = (*actorMetrics)(nil)
