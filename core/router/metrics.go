package router

// Metrics defines the metrics interface for the routing table.
// All methods are thread-safe.
type Metrics interface {
	Published(tag uint16)
	Delivered(tag uint16)
	Dropped(tag uint16)
	Subscriptions(count int)
}

type nopMetrics struct{}

func (nopMetrics) Published(uint16)  {}
func (nopMetrics) Delivered(uint16)  {}
func (nopMetrics) Dropped(uint16)    {}
func (nopMetrics) Subscriptions(int) {}

// NopMetrics returns a no-op Metrics implementation.
func NopMetrics() Metrics { return nopMetrics{} }
