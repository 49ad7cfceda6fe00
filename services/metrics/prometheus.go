package metricsvc

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/regroup/core/roster"
)

// PrometheusCollector records distribution metrics in Prometheus.
// Collectors are registered on first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	violations *prometheus.CounterVec
}

var _ roster.Metrics = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed collector.
// reg defaults to prometheus.DefaultRegisterer and namespace to "regroup".
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "regroup"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "runs_total",
			Help:      "Total distribution runs by outcome (saved,rejected,failed).",
		}, []string{"outcome"})

		p.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "duration_seconds",
			Help:      "Duration of distribution runs in seconds, lock wait and persistence included.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~2.5s
		}, []string{"outcome"})

		p.violations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "distribution",
			Name:      "violations_total",
			Help:      "Unresolved constraints of saved distributions by kind.",
		}, []string{"kind"})

		p.reg.MustRegister(p.runs)
		p.reg.MustRegister(p.duration)
		p.reg.MustRegister(p.violations)
	})
}

func (p *PrometheusCollector) ObserveDistribution(outcome string, duration time.Duration) {
	p.ensureRegistered()
	p.runs.WithLabelValues(outcome).Inc()
	p.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (p *PrometheusCollector) AddViolations(kind string, n int) {
	p.ensureRegistered()
	p.violations.WithLabelValues(kind).Add(float64(n))
}
