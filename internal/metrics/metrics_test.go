package metrics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricHistogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg), WithNamespace("test"))

	m.ObserveInstall("installed", 2*time.Second)
	m.ObserveInstall("skipped", 0)
	m.ObserveInstall("failed", time.Second)
	m.ObserveCheck("absent")
	m.ObserveCheck("absent")
	m.ObserveImport("loaded")
	m.ObserveImport("cached")

	assert.Equal(t, 1.0, metricCounterValue(t, m.installsTotal.WithLabelValues("installed")))
	assert.Equal(t, 1.0, metricCounterValue(t, m.installsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 2.0, metricCounterValue(t, m.checksTotal.WithLabelValues("absent")))
	assert.Equal(t, 1.0, metricCounterValue(t, m.importsTotal.WithLabelValues("cached")))
	assert.Equal(t, uint64(2), metricHistogramCount(t, m.installDuration))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_installs_total")
	assert.Contains(t, names, "test_imports_total")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveInstall("installed", time.Second)
		m.ObserveCheck("absent")
		m.ObserveImport("loaded")
	})
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))
	m.ObserveImport("loaded")

	path := filepath.Join(t.TempDir(), "addondeps.prom")
	require.NoError(t, prometheus.WriteToTextfile(path, reg))
	assert.FileExists(t, path)
}
