package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/postbox-go/core/router"
)

// routerMetrics implements router.Metrics using Prometheus.
type routerMetrics struct {
	publishedTotal *prometheus.CounterVec
	deliveredTotal *prometheus.CounterVec
	droppedTotal   *prometheus.CounterVec
	subscriptions  prometheus.Gauge
}

// NewRouterMetrics creates a new Prometheus implementation of router.Metrics.
func NewRouterMetrics(reg prometheus.Registerer) router.Metrics {
	m := &routerMetrics{
		publishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postbox_router_published_total",
			Help: "Total number of published messages",
		}, []string{"tag"}),

		deliveredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postbox_router_delivered_total",
			Help: "Total number of per-mailbox deliveries",
		}, []string{"tag"}),

		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postbox_router_dropped_total",
			Help: "Total number of deliveries a mailbox refused",
		}, []string{"tag"}),

		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "postbox_router_subscriptions",
			Help: "Current number of (tag, mailbox) entries",
		}),
	}

	reg.MustRegister(
		m.publishedTotal,
		m.deliveredTotal,
		m.droppedTotal,
		m.subscriptions,
	)

	return m
}

func (m *routerMetrics) Published(tag uint16) { m.publishedTotal.WithLabelValues(tagLabel(tag)).Inc() }
func (m *routerMetrics) Delivered(tag uint16) { m.deliveredTotal.WithLabelValues(tagLabel(tag)).Inc() }
func (m *routerMetrics) Dropped(tag uint16)   { m.droppedTotal.WithLabelValues(tagLabel(tag)).Inc() }

func (m *routerMetrics) Subscriptions(count int) { m.subscriptions.Set(float64(count)) }

var _ router.Metrics = (*routerMetrics)(nil)
