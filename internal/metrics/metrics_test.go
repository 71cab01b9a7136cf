package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := New(prometheus.NewRegistry())
	b := New(nil)

	a.CacheLookups.WithLabelValues("hit").Inc()
	b.CacheLookups.WithLabelValues("hit").Add(3)

	sa, err := a.Snapshot()
	require.NoError(t, err)
	sb, err := b.Snapshot()
	require.NoError(t, err)

	require.Len(t, sa, 1)
	require.Len(t, sb, 1)
	assert.Equal(t, 1.0, sa[0].Value)
	assert.Equal(t, 3.0, sb[0].Value)
}

func TestSnapshot_SortedAndLabelled(t *testing.T) {
	m := New(nil)
	m.Orchestrations.WithLabelValues("translate", "fallback").Inc()
	m.Orchestrations.WithLabelValues("guidance", "provider").Add(2)
	m.CacheEntries.Set(4)
	m.ProviderLatency.Observe(0.3)

	samples, err := m.Snapshot()
	require.NoError(t, err)

	names := make([]string, 0, len(samples))
	for _, s := range samples {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"aptiq_cache_entries",
		"aptiq_orchestrations_total",
		"aptiq_orchestrations_total",
		"aptiq_provider_latency_seconds",
	}, names)
	assert.Equal(t, "operation=guidance,source=provider", samples[1].Labels)
	assert.Equal(t, 2.0, samples[1].Value)
	assert.Equal(t, 1.0, samples[3].Value)
}
