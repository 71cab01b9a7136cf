// Package metrics defines the Prometheus collectors shared by the
// orchestration core. Each Service owns its own registry.
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "aptiq"

// Metrics holds every collector used by the core.
type Metrics struct {
	registry *prometheus.Registry

	// Orchestrations counts completed orchestrations by operation and source.
	Orchestrations *prometheus.CounterVec

	// OrchestrationDegraded counts degraded results by operation and reason.
	OrchestrationDegraded *prometheus.CounterVec

	// CacheLookups counts response cache lookups by result (hit, miss, error).
	CacheLookups *prometheus.CounterVec
	CacheEvictions prometheus.Counter
	CacheEntries   prometheus.Gauge

	RateLimitDecisions  *prometheus.CounterVec
	RateLimitIdentities prometheus.Gauge

	// ProviderCalls counts provider attempts by outcome (ok, error, timeout).
	ProviderCalls   *prometheus.CounterVec
	ProviderLatency prometheus.Histogram
	// ProviderRetries counts retried provider attempts by reason.
	ProviderRetries *prometheus.CounterVec
	// ProviderTokens counts tokens by operation and direction (input, output).
	ProviderTokens *prometheus.CounterVec
	// ProviderCost accumulates estimated spend in USD by operation.
	ProviderCost *prometheus.CounterVec

	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec

	BatchItems    *prometheus.CounterVec
	BatchDuration prometheus.Histogram
}

// New registers all collectors on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	auto := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Orchestrations: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestrations_total",
			Help:      "Completed orchestrations by operation and result source",
		}, []string{"operation", "source"}),

		OrchestrationDegraded: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orchestrations_degraded_total",
			Help:      "Degraded orchestration results by operation and reason",
		}, []string{"operation", "reason"}),

		CacheLookups: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by result",
		}, []string{"result"}),

		CacheEvictions: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Expired response cache entries removed",
		}),

		CacheEntries: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of response cache entries",
		}),

		RateLimitDecisions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Admission decisions by outcome",
		}, []string{"decision"}),

		RateLimitIdentities: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "identities",
			Help:      "Identities with a tracked rate window",
		}),

		ProviderCalls: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Generative provider calls by outcome",
		}, []string{"outcome"}),

		ProviderLatency: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "latency_seconds",
			Help:      "Generative provider call latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 12, 20},
		}),

		ProviderRetries: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "retries_total",
			Help:      "Provider attempts retried by reason",
		}, []string{"reason"}),

		ProviderTokens: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "tokens_total",
			Help:      "Tokens consumed by operation and direction",
		}, []string{"operation", "direction"}),

		ProviderCost: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "cost_usd_total",
			Help:      "Estimated provider spend in USD by operation",
		}, []string{"operation"}),

		BreakerState: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),

		BreakerTransitions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		}, []string{"name", "from", "to"}),

		BatchItems: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "items_total",
			Help:      "Batch items by status (success, failure)",
		}, []string{"status"}),

		BatchDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Wall time of a batch run",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Sample is one flattened counter or gauge value.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Snapshot gathers counters and gauges with a non-zero value, sorted by
// name then labels. Histograms report their sample count.
func (m *Metrics) Snapshot() ([]Sample, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			v := sampleValue(mf.GetType(), metric)
			if v == 0 {
				continue
			}
			out = append(out, Sample{
				Name:   mf.GetName(),
				Labels: formatLabels(metric.GetLabel()),
				Value:  v,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}

func sampleValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	}
	return 0
}

func formatLabels(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	return strings.Join(parts, ",")
}
