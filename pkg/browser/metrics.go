package browser

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects session instrumentation. A nil *Metrics records nothing.
type Metrics struct {
	pagesOpen          prometheus.Gauge
	operations         *prometheus.CounterVec
	navigationFailures *prometheus.CounterVec
	duration           *prometheus.HistogramVec
}

// NewMetrics creates the session metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		pagesOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentbrowser",
			Subsystem: "session",
			Name:      "pages_open",
			Help:      "Number of pages currently held by the registry",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentbrowser",
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Total number of page operations by outcome",
		}, []string{"op", "outcome"}),
		navigationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentbrowser",
			Subsystem: "navigation",
			Name:      "failures_total",
			Help:      "Total number of soft navigation failures by reason",
		}, []string{"reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentbrowser",
			Subsystem: "session",
			Name:      "operation_duration_seconds",
			Help:      "Duration of page operations",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{m.pagesOpen, m.operations, m.navigationFailures, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) navigationFailed(reason FailureReason) {
	if m == nil {
		return
	}
	m.navigationFailures.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) setPages(n int) {
	if m == nil {
		return
	}
	m.pagesOpen.Set(float64(n))
}
