package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
)

const namespace = "storefront_cart"

// CartMetrics records cart mutations and snapshot persistence.
type CartMetrics struct {
	mutations   *prometheus.CounterVec
	failures    *prometheus.CounterVec
	saveLatency prometheus.Histogram
	activeCarts prometheus.Gauge
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Cart mutations that changed state.",
	}, []string{"op"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_failures_total",
		Help:      "Snapshot load, decode, encode and save failures.",
	}, []string{"phase"})
	saveLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "snapshot_save_seconds",
		Help:      "Duration of snapshot saves in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	activeCarts := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_carts",
		Help:      "Carts currently held in memory.",
	})
	reg.MustRegister(mutations, failures, saveLatency, activeCarts)
	return &CartMetrics{
		mutations:   mutations,
		failures:    failures,
		saveLatency: saveLatency,
		activeCarts: activeCarts,
	}
}

// IncMutation counts one effective mutation of the given kind.
func (c *CartMetrics) IncMutation(op enums.CartOperation) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op.String())).Inc()
}

// IncPersistFailure counts a failed persistence step.
func (c *CartMetrics) IncPersistFailure(phase string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(phase)).Inc()
}

// ObserveSave records how long a snapshot save took.
func (c *CartMetrics) ObserveSave(d time.Duration) {
	if c == nil || c.saveLatency == nil {
		return
	}
	c.saveLatency.Observe(d.Seconds())
}

// SetActiveCarts reports the number of open cart stores.
func (c *CartMetrics) SetActiveCarts(n int) {
	if c == nil || c.activeCarts == nil {
		return
	}
	c.activeCarts.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
