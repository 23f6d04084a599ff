// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package indexstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockcore/bcindex/bitstr"
	"github.com/blockcore/bcindex/ptrie"
)

func TestTxIndex_putGetRemove(t *testing.T) {
	idx := NewTxIndex(16)
	var hash [32]byte
	hash[0] = 0xAA

	require.NoError(t, idx.Put(hash, 100, TxPayload{RecordOffset: 42}))

	got, ok := idx.Get(hash, 100)
	require.True(t, ok)
	assert.EqualValues(t, 42, got.RecordOffset)

	_, ok = idx.Get(hash, 101)
	assert.False(t, ok)

	assert.True(t, idx.Remove(hash, 100))
	_, ok = idx.Get(hash, 100)
	assert.False(t, ok)
}

func TestTxIndex_cacheServesRepeatReads(t *testing.T) {
	idx := NewTxIndex(16)
	var hash [32]byte
	hash[0] = 1
	require.NoError(t, idx.Put(hash, 10, TxPayload{RecordOffset: 7}))

	first, ok := idx.Get(hash, 10)
	require.True(t, ok)
	second, ok := idx.Get(hash, 10)
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestTxIndex_removeHeightSweepsAllHashes(t *testing.T) {
	idx := NewTxIndex(16)
	var h1, h2 [32]byte
	h1[0], h2[0] = 1, 2
	require.NoError(t, idx.Put(h1, 50, TxPayload{RecordOffset: 1}))
	require.NoError(t, idx.Put(h2, 50, TxPayload{RecordOffset: 2}))
	require.NoError(t, idx.Put(h1, 51, TxPayload{RecordOffset: 3}))

	removed := idx.RemoveHeight(50)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, idx.Len())

	_, ok := idx.Get(h1, 51)
	assert.True(t, ok)
}

func TestStealthIndex_scanByPrefix(t *testing.T) {
	idx := NewStealthIndex()
	require.NoError(t, idx.Put([4]byte{0xAA, 0xBB, 0xCC, 0xDD}, 10, 100))
	require.NoError(t, idx.Put([4]byte{0xAA, 0xBB, 0xCC, 0xEE}, 11, 200))

	rng := idx.Scan(bitstr.New(24, []byte{0xAA, 0xBB, 0xCC}), 0)
	var got []int64
	for c := rng.Begin(); c.Valid(); c = c.Next() {
		got = append(got, c.Value())
	}
	assert.ElementsMatch(t, []int64{100, 200}, got)
}

func TestPaymentAddressIndex_history(t *testing.T) {
	idx := NewPaymentAddressIndex()
	var addr [20]byte
	addr[0] = 0x01
	require.NoError(t, idx.Put(addr, 5, 10))
	require.NoError(t, idx.Put(addr, 6, 20))

	h := idx.History(addr)
	assert.Equal(t, []int64{10}, collectOffsets(h.GetExact(5)))
	assert.Equal(t, []int64{20}, collectOffsets(h.GetExact(6)))

	assert.True(t, idx.Remove(addr, 5))
	assert.True(t, h.GetExact(5).Empty())
}

func collectOffsets(r ptrie.Range[uint32, int64]) []int64 {
	var out []int64
	for c := r.Begin(); c.Valid(); c = c.Next() {
		out = append(out, c.Value())
	}
	return out
}
