// Package metrics records background worker activity with Prometheus
// collectors. A nil registerer yields a recorder whose methods do nothing.
package metrics

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "fieldmate"

// WorkerMetrics tracks runs of the periodic workers and the sync backlog.
type WorkerMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	pending  *prometheus.GaugeVec
	online   prometheus.Gauge
}

func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		return &WorkerMetrics{}
	}
	m := &WorkerMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_duration_seconds",
			Help:      "Duration of background worker runs in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"worker"}),
		success: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_success_total",
			Help:      "Successful background worker runs.",
		}, []string{"worker"}),
		failure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_failure_total",
			Help:      "Failed background worker runs.",
		}, []string{"worker"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_skipped_total",
			Help:      "Worker runs skipped while offline or signed out.",
		}, []string{"worker"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_items",
			Help:      "Local rows waiting for upload.",
		}, []string{"kind"}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_online",
			Help:      "1 when the last backend probe succeeded.",
		}),
	}
	reg.MustRegister(m.duration, m.success, m.failure, m.skipped, m.pending, m.online)
	return m
}

func (m *WorkerMetrics) ObserveDuration(worker string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(worker)).Observe(d.Seconds())
}

func (m *WorkerMetrics) IncSuccess(worker string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(worker)).Inc()
}

func (m *WorkerMetrics) IncFailure(worker string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(worker)).Inc()
}

func (m *WorkerMetrics) IncSkipped(worker string) {
	if m == nil || m.skipped == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(worker)).Inc()
}

// SetPending records the backlog size for kind ("locations", "documents").
func (m *WorkerMetrics) SetPending(kind string, n int) {
	if m == nil || m.pending == nil {
		return
	}
	m.pending.WithLabelValues(normalizeLabel(kind)).Set(float64(n))
}

func (m *WorkerMetrics) SetOnline(online bool) {
	if m == nil || m.online == nil {
		return
	}
	if online {
		m.online.Set(1)
	} else {
		m.online.Set(0)
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// WorkerStat is one worker's totals as read back from a registry.
type WorkerStat struct {
	Worker   string
	Success  float64
	Failure  float64
	Skipped  float64
	Duration float64
}

// Summary reads the worker counters from g, sorted by worker name.
func Summary(g prometheus.Gatherer) ([]WorkerStat, error) {
	mfs, err := g.Gather()
	if err != nil {
		return nil, err
	}
	stats := map[string]*WorkerStat{}
	get := func(m *dto.Metric) *WorkerStat {
		name := label(m, "worker")
		if stats[name] == nil {
			stats[name] = &WorkerStat{Worker: name}
		}
		return stats[name]
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case namespace + "_worker_success_total":
				get(m).Success = m.GetCounter().GetValue()
			case namespace + "_worker_failure_total":
				get(m).Failure = m.GetCounter().GetValue()
			case namespace + "_worker_skipped_total":
				get(m).Skipped = m.GetCounter().GetValue()
			case namespace + "_worker_duration_seconds":
				get(m).Duration = m.GetHistogram().GetSampleSum()
			}
		}
	}

	out := make([]WorkerStat, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Worker < out[j].Worker })
	return out, nil
}

func label(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}
