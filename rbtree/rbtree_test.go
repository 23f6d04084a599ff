// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rbtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intCmp(a, b int) int { return a - b }

func TestAddRetrieve(t *testing.T) {
	tr := New[int, string](intCmp)
	_, inserted := tr.Add(5, "five", false)
	assert.True(t, inserted)

	it, ok := tr.Retrieve(5)
	require.True(t, ok)
	assert.Equal(t, "five", it.Value())

	_, ok = tr.Retrieve(6)
	assert.False(t, ok)
}

func TestAddReplaceSemantics(t *testing.T) {
	tr := New[int, string](intCmp)
	tr.Add(1, "a", false)

	it, inserted := tr.Add(1, "b", false)
	assert.False(t, inserted)
	assert.Equal(t, "a", it.Value(), "replace=false must not overwrite")

	it, inserted = tr.Add(1, "c", true)
	assert.False(t, inserted)
	assert.Equal(t, "c", it.Value(), "replace=true must overwrite and report not-inserted")
}

func TestRetrieveGreaterEqual(t *testing.T) {
	tr := New[int, string](intCmp)
	for _, k := range []int{1, 4, 9, 16} {
		tr.Add(k, "", false)
	}
	it, ok := tr.RetrieveGreaterEqual(5)
	require.True(t, ok)
	assert.Equal(t, 9, it.Key())

	it, ok = tr.RetrieveGreaterEqual(16)
	require.True(t, ok)
	assert.Equal(t, 16, it.Key())

	_, ok = tr.RetrieveGreaterEqual(17)
	assert.False(t, ok)
}

func TestIterationOrder(t *testing.T) {
	tr := New[int, int](intCmp)
	keys := []int{5, 3, 8, 1, 4, 7, 9, 2, 6}
	for _, k := range keys {
		tr.Add(k, k, false)
	}

	var got []int
	for it := tr.Begin(); it.Valid(); it = it.Next() {
		got = append(got, it.Key())
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, got)

	got = got[:0]
	for it := tr.RBegin(); it.Valid(); it = it.Prev() {
		got = append(got, it.Key())
	}
	assert.Equal(t, []int{9, 8, 7, 6, 5, 4, 3, 2, 1}, got)
}

// S5 — textbook delete: build {1,2,4,5,7,8,11,14,15}, delete 4, check invariants.
func TestRemove_S5_textbookDelete(t *testing.T) {
	tr := New[int, int](intCmp)
	for _, k := range []int{1, 2, 4, 5, 7, 8, 11, 14, 15} {
		tr.Add(k, k, false)
	}
	require.True(t, tr.CheckInvariants())

	ok := tr.Remove(4)
	assert.True(t, ok)
	assert.True(t, tr.CheckInvariants())

	var got []int
	for it := tr.Begin(); it.Valid(); it = it.Next() {
		got = append(got, it.Key())
	}
	assert.Equal(t, []int{1, 2, 5, 7, 8, 11, 14, 15}, got)

	ok = tr.Remove(4)
	assert.False(t, ok, "second removal of the same key must report false")
}

func TestRemove_randomizedInvariants(t *testing.T) {
	tr := New[int, int](intCmp)
	present := map[int]bool{}
	for i := 0; i < 500; i++ {
		k := (i * 2654435761) % 997
		tr.Add(k, k, false)
		present[k] = true
		require.True(t, tr.CheckInvariants())
	}
	for k := range present {
		tr.Remove(k)
		require.True(t, tr.CheckInvariants())
	}
	assert.Equal(t, 0, tr.Len())
}
