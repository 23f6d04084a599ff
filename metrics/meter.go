// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package metrics lazily registers counters and gauges behind a
// pluggable meter, the way chain/metrics.go registers
// repo_cache_hit_miss_count against a LazyLoadGaugeVec: callers ask
// for a named metric at package-init time, before anyone has decided
// whether Prometheus is even wired up, and the metric starts serving
// real values the moment InitializePrometheusMetrics is called.
//
// ptrie counts value inserts and removals, slab counts bytes
// used and grow events, recordstore and indexstore count store
// operations — all through this package rather than a bespoke
// counter per component.
package metrics

import (
	"sync"
)

type counter interface {
	Add(value int64)
}

type counterVec interface {
	AddWithLabel(value int64, label map[string]string)
}

type gauge interface {
	Add(value int64)
}

type gaugeVec interface {
	AddWithLabel(value int64, label map[string]string)
}

// meterSet is the backend a running process has chosen: noop until
// InitializePrometheusMetrics is called, Prometheus afterward.
type meterSet interface {
	Counter(name string) counter
	CounterVec(name string, labels []string) counterVec
	Gauge(name string) gauge
	GaugeVec(name string, labels []string) gaugeVec
}

var mu sync.Mutex

// metrics is the active backend. Tests reassign it directly to reset
// lazy-loaded handles back to the noop backend.
var metrics = defaultNoopMetrics()

func backend() meterSet {
	mu.Lock()
	defer mu.Unlock()
	return metrics
}

// Counter returns the named counter, creating it against the current
// backend on first use.
func Counter(name string) counter { return backend().Counter(name) }

// CounterVec returns the named labeled counter.
func CounterVec(name string, labels []string) counterVec { return backend().CounterVec(name, labels) }

// Gauge returns the named gauge.
func Gauge(name string) gauge { return backend().Gauge(name) }

// GaugeVec returns the named labeled gauge.
func GaugeVec(name string, labels []string) gaugeVec { return backend().GaugeVec(name, labels) }

// LazyLoadCounter defers the Counter(name) lookup until the returned
// closure is first called, so a var declared at package scope resolves
// against whatever backend is active when it's actually used.
func LazyLoadCounter(name string) func() counter {
	var once sync.Once
	var c counter
	return func() counter {
		once.Do(func() { c = Counter(name) })
		return c
	}
}

// LazyLoadCounterVec is the labeled counterpart of LazyLoadCounter.
func LazyLoadCounterVec(name string, labels []string) func() counterVec {
	var once sync.Once
	var c counterVec
	return func() counterVec {
		once.Do(func() { c = CounterVec(name, labels) })
		return c
	}
}

// LazyLoadGauge defers the Gauge(name) lookup.
func LazyLoadGauge(name string) func() gauge {
	var once sync.Once
	var g gauge
	return func() gauge {
		once.Do(func() { g = Gauge(name) })
		return g
	}
}

// LazyLoadGaugeVec is the labeled counterpart of LazyLoadGauge.
func LazyLoadGaugeVec(name string, labels []string) func() gaugeVec {
	var once sync.Once
	var g gaugeVec
	return func() gaugeVec {
		once.Do(func() { g = GaugeVec(name, labels) })
		return g
	}
}
