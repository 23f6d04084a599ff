// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bcindex"

type promCountMeter struct{ c prometheus.Counter }

func (m *promCountMeter) Add(v int64) { m.c.Add(float64(v)) }

type promCountVecMeter struct {
	v      *prometheus.CounterVec
	labels []string
}

func (m *promCountVecMeter) AddWithLabel(v int64, label map[string]string) {
	m.v.With(toLabels(m.labels, label)).Add(float64(v))
}

type promGaugeMeter struct{ g prometheus.Gauge }

func (m *promGaugeMeter) Add(v int64) { m.g.Add(float64(v)) }

type promGaugeVecMeter struct {
	v      *prometheus.GaugeVec
	labels []string
}

func (m *promGaugeVecMeter) AddWithLabel(v int64, label map[string]string) {
	m.v.With(toLabels(m.labels, label)).Add(float64(v))
}

func toLabels(names []string, given map[string]string) prometheus.Labels {
	out := make(prometheus.Labels, len(names))
	for _, n := range names {
		out[n] = given[n]
	}
	return out
}

// promMetrics registers every counter/gauge against the default
// Prometheus registry on first use and reuses the collector on
// repeat lookups by the same name.
type promMetrics struct {
	mu          sync.Mutex
	counters    map[string]*promCountMeter
	counterVecs map[string]*promCountVecMeter
	gauges      map[string]*promGaugeMeter
	gaugeVecs   map[string]*promGaugeVecMeter
}

// InitializePrometheusMetrics switches the package over to the
// Prometheus backend. Metrics obtained via LazyLoad* before this call
// resolve against Prometheus the first time they're invoked after it.
func InitializePrometheusMetrics() {
	mu.Lock()
	defer mu.Unlock()
	metrics = &promMetrics{
		counters:    make(map[string]*promCountMeter),
		counterVecs: make(map[string]*promCountVecMeter),
		gauges:      make(map[string]*promGaugeMeter),
		gaugeVecs:   make(map[string]*promGaugeVecMeter),
	}
}

func (p *promMetrics) Counter(name string) counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	c := &promCountMeter{c: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: name,
	})}
	prometheus.MustRegister(c.c)
	p.counters[name] = c
	return c
}

func (p *promMetrics) CounterVec(name string, labels []string) counterVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counterVecs[name]; ok {
		return c
	}
	c := &promCountVecMeter{
		v: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: name,
		}, labels),
		labels: labels,
	}
	prometheus.MustRegister(c.v)
	p.counterVecs[name] = c
	return c
}

func (p *promMetrics) Gauge(name string) gauge {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gauges[name]; ok {
		return g
	}
	g := &promGaugeMeter{g: prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: name,
	})}
	prometheus.MustRegister(g.g)
	p.gauges[name] = g
	return g
}

func (p *promMetrics) GaugeVec(name string, labels []string) gaugeVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gaugeVecs[name]; ok {
		return g
	}
	g := &promGaugeVecMeter{
		v: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: name,
		}, labels),
		labels: labels,
	}
	prometheus.MustRegister(g.v)
	p.gaugeVecs[name] = g
	return g
}

func (p *promMetrics) httpHandler() http.Handler {
	return promhttp.Handler()
}
