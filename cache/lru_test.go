// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blockcore/bcindex/cache"
)

func TestLRU_getOrLoad(t *testing.T) {
	l := cache.NewLRU(16)
	v, err := l.GetOrLoad("foo", func(interface{}) (interface{}, error) {
		return "bar", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "bar", v)

	v, ok := l.Get("foo")
	assert.True(t, ok)
	assert.Equal(t, "bar", v)
}

func TestLRU_statsTrackHitsAndMisses(t *testing.T) {
	l := cache.NewLRU(16)
	l.GetOrLoad("k", func(interface{}) (interface{}, error) { return 1, nil })
	l.GetOrLoad("k", func(interface{}) (interface{}, error) { return 1, nil })

	hits, misses := l.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, misses)
}

func TestLRU_loaderErrorNotCached(t *testing.T) {
	l := cache.NewLRU(16)
	_, err := l.GetOrLoad("k", func(interface{}) (interface{}, error) {
		return nil, assert.AnError
	})
	assert.Error(t, err)
	_, ok := l.Get("k")
	assert.False(t, ok)
}
