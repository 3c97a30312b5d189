// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/prometheus/client_model/go"
)

func TestNoopMetrics(t *testing.T) {
	m := defaultNoopMetrics()
	assert.Nil(t, m.GetOrCreateHandler())
	m.GetOrCreateCountMeter("c").Add(1)
	m.GetOrCreateGaugeMeter("g").Set(1)
	m.GetOrCreateHistogramMeter("h", nil).Observe(1)
	m.GetOrCreateCountVecMeter("cv", []string{"l"}).AddWithLabel(1, map[string]string{"l": "x"})
}

func gather(t *testing.T) map[string]*dto.MetricFamily {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestPromMetrics(t *testing.T) {
	InitializePrometheusMetrics()
	require.NotNil(t, HTTPHandler())

	counter := LazyLoadCounter("test_counter")
	counter().Add(2)
	Counter("test_counter").Add(3)

	gauge := Gauge("test_gauge")
	gauge.Set(10)
	gauge.Add(-4)

	CounterVec("test_counter_vec", []string{"kind"}).AddWithLabel(1, map[string]string{"kind": "foreign"})
	CounterVec("test_counter_vec", []string{"kind"}).AddWithLabel(2, map[string]string{"kind": "foreign"})

	hist := LazyLoadHistogram("test_hist", BucketUpdateMillis)
	hist().Observe(3)
	hist().Observe(7)

	families := gather(t)

	assert.Equal(t, float64(5), families["stakepool_test_counter"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, float64(6), families["stakepool_test_gauge"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, float64(3), families["stakepool_test_counter_vec"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, uint64(2), families["stakepool_test_hist"].GetMetric()[0].GetHistogram().GetSampleCount())
}
