// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

// noopMeters discards every observation. It's the default backend so
// that ptrie/slab/recordstore/indexstore can call Counter/Gauge freely
// without a host process ever needing to wire up Prometheus.
type noopMeters struct{}

func (*noopMeters) Add(int64)                             {}
func (*noopMeters) AddWithLabel(int64, map[string]string) {}

type noopMeterSet struct {
	singleton *noopMeters
}

func defaultNoopMetrics() meterSet {
	return &noopMeterSet{singleton: &noopMeters{}}
}

func (n *noopMeterSet) Counter(string) counter                 { return n.singleton }
func (n *noopMeterSet) CounterVec(string, []string) counterVec { return n.singleton }
func (n *noopMeterSet) Gauge(string) gauge                     { return n.singleton }
func (n *noopMeterSet) GaugeVec(string, []string) gaugeVec     { return n.singleton }

// HTTPHandler returns the handler a host mounts at /metrics. Before
// InitializePrometheusMetrics is called it answers 404, the same as
// the noop backend in the teacher's metrics package.
func HTTPHandler() http.Handler {
	mu.Lock()
	h, ok := metrics.(interface{ httpHandler() http.Handler })
	mu.Unlock()
	if !ok {
		return http.NotFoundHandler()
	}
	return h.httpHandler()
}
