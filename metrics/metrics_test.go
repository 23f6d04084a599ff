// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	dto "github.com/prometheus/client_model/go"
)

func TestNoopMetrics_handlerNotFoundUntilInitialized(t *testing.T) {
	metrics = defaultNoopMetrics()

	server := httptest.NewServer(HTTPHandler())
	t.Cleanup(server.Close)

	Counter("allocs").Add(1)
	GaugeVec("bytes_used", []string{"store"}).AddWithLabel(10, map[string]string{"store": "slab"})

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLazyLoading_resolvesAgainstBackendAtFirstUse(t *testing.T) {
	metrics = defaultNoopMetrics()

	for _, m := range []any{
		Counter("noopCounter"),
		CounterVec("noopCounterVec", nil),
		Gauge("noopGauge"),
		GaugeVec("noopGaugeVec", nil),
	} {
		require.IsType(t, &noopMeters{}, m)
	}

	lazyCounter := LazyLoadCounter("lazyCounter")
	lazyCounterVec := LazyLoadCounterVec("lazyCounterVec", nil)
	lazyGauge := LazyLoadGauge("lazyGauge")
	lazyGaugeVec := LazyLoadGaugeVec("lazyGaugeVec", nil)

	InitializePrometheusMetrics()

	require.IsType(t, &promCountMeter{}, lazyCounter())
	require.IsType(t, &promCountVecMeter{}, lazyCounterVec())
	require.IsType(t, &promGaugeMeter{}, lazyGauge())
	require.IsType(t, &promGaugeVecMeter{}, lazyGaugeVec())
}

func TestPromMetrics_valuesGatherable(t *testing.T) {
	InitializePrometheusMetrics()

	allocCount := Counter("node_allocations")
	bytesUsed := GaugeVec("slab_bytes_used", []string{"store"})

	allocCount.Add(3)
	allocCount.Add(4)
	bytesUsed.AddWithLabel(100, map[string]string{"store": "headers"})

	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	families, err := gatherers.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		byName[f.GetName()] = f
	}

	require.Equal(t, float64(7), byName["bcindex_node_allocations"].Metric[0].GetCounter().GetValue())
	require.Equal(t, float64(100), byName["bcindex_slab_bytes_used"].Metric[0].GetGauge().GetValue())
}
