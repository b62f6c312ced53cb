package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	labelUnknown  = "unknown"
)

// CheckoutMetrics records the outcome of order finalization attempts.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	lines    prometheus.Histogram
	revenue  prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "heladeria",
		Name:      "checkout_finalize_duration_seconds",
		Help:      "Duration of order finalization transactions in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"result"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "heladeria",
		Name:      "checkout_finalize_total",
		Help:      "Order finalization attempts by result code.",
	}, []string{"result"})
	lines := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "heladeria",
		Name:      "checkout_sale_lines",
		Help:      "Number of lines per committed sale.",
		Buckets:   []float64{1, 2, 3, 5, 8, 13},
	})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "heladeria",
		Name:      "checkout_revenue_total",
		Help:      "Sum of committed sale totals.",
	})
	reg.MustRegister(duration, outcomes, lines, revenue)
	return &CheckoutMetrics{
		duration: duration,
		outcomes: outcomes,
		lines:    lines,
		revenue:  revenue,
	}
}

// ObserveFinalize records one finalize attempt. result is ResultSuccess or an error code.
func (c *CheckoutMetrics) ObserveFinalize(result string, took time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	label := normalizeLabel(result)
	c.duration.WithLabelValues(label).Observe(took.Seconds())
	c.outcomes.WithLabelValues(label).Inc()
}

// ObserveSale records the shape of a committed sale.
func (c *CheckoutMetrics) ObserveSale(lineCount int, total float64) {
	if c == nil || c.lines == nil {
		return
	}
	c.lines.Observe(float64(lineCount))
	if total > 0 {
		c.revenue.Add(total)
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return labelUnknown
	}
	return value
}
