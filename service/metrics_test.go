package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValues(t *testing.T, g prometheus.Gatherer, name string) map[string]float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			label := ""
			for _, l := range m.GetLabel() {
				if l.GetName() == "app" {
					label = l.GetValue()
				}
			}
			out[label] = m.GetGauge().GetValue()
		}
	}
	return out
}

func TestRegistryMetrics_ObserveCounts(t *testing.T) {
	m := NewRegistryMetrics()

	m.ObserveCounts(map[string]int{"svc-a": 2, "svc-b": 1})
	assert.Equal(t, map[string]float64{"svc-a": 2, "svc-b": 1}, gaugeValues(t, m.Gatherer(), "myregistry_instances"))
	assert.Equal(t, map[string]float64{"": 2}, gaugeValues(t, m.Gatherer(), "myregistry_applications"))

	m.ObserveCounts(map[string]int{"svc-a": 1})
	assert.Equal(t, map[string]float64{"svc-a": 1}, gaugeValues(t, m.Gatherer(), "myregistry_instances"))
}

func TestRegistryMetrics_Handler(t *testing.T) {
	m := NewRegistryMetrics()
	m.ObserveCounts(map[string]int{"svc-a": 3})
	m.IncRebuilds()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `myregistry_instances{app="svc-a"} 3`)
	assert.Contains(t, string(body), `myregistry_cache_rebuilds_total 1`)
}
