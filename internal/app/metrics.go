package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

const metricsNamespace = "seedfinder"

var (
	descPoolWorkers = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "pool", "workers"),
		"Workers currently owned by the pool.",
		nil, nil,
	)
	descPoolBusy = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "pool", "busy_workers"),
		"Workers loading or serving a request.",
		nil, nil,
	)
	descPoolWaiting = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "pool", "waiting_submissions"),
		"Submissions waiting for an idle worker.",
		nil, nil,
	)
)

// queueMetrics counts what the queue does. The pool gauges are read live by
// poolCollector at scrape time.
type queueMetrics struct {
	dispatched *prometheus.CounterVec
	cache      *prometheus.CounterVec
	races      *prometheus.CounterVec
	abandoned  prometheus.Counter
}

func newQueueMetrics() *queueMetrics {
	return &queueMetrics{
		dispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_dispatched_total",
				Help:      "Requests posted to workers, by request kind.",
			},
			[]string{"kind"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "area_cache_lookups_total",
				Help:      "Area render submissions by cache outcome (hit, miss, forced).",
			},
			[]string{"result"},
		),
		races: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "searches_resolved_total",
				Help:      "Racing seed searches by outcome (found, not_found).",
			},
			[]string{"outcome"},
		),
		abandoned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_abandoned_total",
				Help:      "Requests dropped without a callback when workers were terminated.",
			},
		),
	}
}

func (m *queueMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.dispatched, m.cache, m.races, m.abandoned}
}

type poolCollector struct {
	q *Queue
}

var _ prometheus.Collector = &poolCollector{}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descPoolWorkers
	ch <- descPoolBusy
	ch <- descPoolWaiting
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.q.PoolStatus()
	ch <- prometheus.MustNewConstMetric(descPoolWorkers, prometheus.GaugeValue, float64(st.Total))
	ch <- prometheus.MustNewConstMetric(descPoolBusy, prometheus.GaugeValue, float64(st.Busy))
	ch <- prometheus.MustNewConstMetric(descPoolWaiting, prometheus.GaugeValue, float64(st.Waiting))
}

// RegisterMetrics exports the queue counters and pool gauges to reg.
func (q *Queue) RegisterMetrics(reg prometheus.Registerer) error {
	var err error
	for _, c := range append(q.metrics.collectors(), &poolCollector{q: q}) {
		err = multierr.Append(err, reg.Register(c))
	}
	return err
}
