package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"myregistry/helpers"
	"myregistry/interfaces"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// GathererCollector records the current values of Prometheus metrics whose names start with one of
// the configured prefixes. The value is a map from series name to sample value.
type GathererCollector struct {
	name     string
	gatherer prometheus.Gatherer
	prefixes []string
}

var _ interfaces.Collector = (*GathererCollector)(nil)

// NewGathererCollector creates a collector named name. With no prefixes every gauge, counter and
// untyped metric is recorded.
func NewGathererCollector(name string, gatherer prometheus.Gatherer, prefixes ...string) *GathererCollector {
	return &GathererCollector{
		name:     helpers.StrPanic(name, "service.gatherer_collector.go: name is required"),
		gatherer: helpers.NilPanic(gatherer, "service.gatherer_collector.go: gatherer is required"),
		prefixes: prefixes,
	}
}

func (c *GathererCollector) Name() string {
	return c.name
}

// Collect gathers once. Histograms and summaries are skipped.
func (c *GathererCollector) Collect(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	families, err := c.gatherer.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics for %s, err: %w", c.name, err)
	}

	out := map[string]float64{}
	for _, mf := range families {
		if !c.matches(mf.GetName()) {
			continue
		}
		for _, m := range mf.GetMetric() {
			v, ok := sampleValue(mf.GetType(), m)
			if !ok {
				continue
			}
			out[seriesName(mf.GetName(), m.GetLabel())] = v
		}
	}
	return out, nil
}

func (c *GathererCollector) matches(name string) bool {
	if len(c.prefixes) == 0 {
		return true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func sampleValue(t dto.MetricType, m *dto.Metric) (float64, bool) {
	switch t {
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue(), true
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue(), true
	case dto.MetricType_UNTYPED:
		return m.GetUntyped().GetValue(), true
	default:
		return 0, false
	}
}

// seriesName renders name{k="v",...} with labels sorted by name.
func seriesName(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	pairs := make([]string, 0, len(labels))
	for _, l := range labels {
		pairs = append(pairs, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}
