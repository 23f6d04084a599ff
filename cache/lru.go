// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cache front-ends indexstore's point lookups with an LRU,
// sparing a ptrie descent on repeat reads of the same (primary,
// secondary) pair.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/blockcore/bcindex/metrics"
)

var (
	metricHits   = metrics.LazyLoadCounter("cache_hits")
	metricMisses = metrics.LazyLoadCounter("cache_misses")
)

// LRU extends golang-lru.Cache with a GetOrLoad convenience. Hit/miss
// counts are tracked directly on the cache rather than through a
// separate bookkeeping type, and pushed to the metrics package on
// every lookup so a running process's cache effectiveness shows up
// next to ptrie's and slab's own counters.
type LRU struct {
	*lru.Cache
	hit, miss atomic.Int64
}

// NewLRU creates an LRU cache holding at most maxSize entries. Sizes
// below 16 are raised to 16: a point index cache that thrashes below
// that floor isn't earning its keep.
func NewLRU(maxSize int) *LRU {
	if maxSize < 16 {
		maxSize = 16
	}
	c, _ := lru.New(maxSize)
	return &LRU{Cache: c}
}

// Loader computes the value for a key that missed the cache.
type Loader func(key interface{}) (interface{}, error)

// GetOrLoad returns the cached value for key, or calls loader and
// caches the result. A loader error is not cached.
func (l *LRU) GetOrLoad(key interface{}, loader Loader) (interface{}, error) {
	if v, ok := l.Get(key); ok {
		l.recordHit()
		return v, nil
	}
	l.recordMiss()
	v, err := loader(key)
	if err != nil {
		return nil, err
	}
	l.Add(key, v)
	return v, nil
}

func (l *LRU) recordHit() {
	l.hit.Add(1)
	metricHits().Add(1)
}

func (l *LRU) recordMiss() {
	l.miss.Add(1)
	metricMisses().Add(1)
}

// Stats returns the cache's lifetime hit and miss counts.
func (l *LRU) Stats() (hits, misses int64) {
	return l.hit.Load(), l.miss.Load()
}
