// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package recordstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockcore/bcindex/slab"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	a, err := slab.Create(filepath.Join(t.TempDir(), "records.slab"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return Open(a)
}

func TestHeaderRoundTrip(t *testing.T) {
	s := newTestStore(t)
	h := &Header{Height: 42, Timestamp: 1234}
	h.Hash[0] = 0xAB

	off, err := s.PutHeader(h)
	require.NoError(t, err)

	got, err := s.GetHeader(off)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestTransactionRoundTrip_withLocation(t *testing.T) {
	s := newTestStore(t)
	tx := &Transaction{Payload: []byte("payload"), Location: LocationBlock}
	tx.Hash[0] = 1

	off, err := s.PutTransaction(tx)
	require.NoError(t, err)

	got, err := s.GetTransaction(off)
	require.NoError(t, err)
	assert.Equal(t, tx, got)
}

func TestGet_wrongTypeRejected(t *testing.T) {
	s := newTestStore(t)
	off, err := s.PutHeader(&Header{Height: 1})
	require.NoError(t, err)

	_, err = s.GetTransaction(off)
	assert.Error(t, err)
}

func TestScan_visitsEveryRecordInOrder(t *testing.T) {
	s := newTestStore(t)
	offHeader, err := s.PutHeader(&Header{Height: 1})
	require.NoError(t, err)
	offTx, err := s.PutTransaction(&Transaction{Payload: []byte("x")})
	require.NoError(t, err)
	offMerkle, err := s.PutMerkle(&Merkle{Index: 7})
	require.NoError(t, err)

	var offsets []int64
	var types []RecordType
	err = s.Scan(func(offset int64, rt RecordType, marked bool, body []byte) bool {
		offsets = append(offsets, offset)
		types = append(types, rt)
		assert.False(t, marked)
		return true
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{offHeader, offTx, offMerkle}, offsets)
	assert.Equal(t, []RecordType{TypeHeader, TypeTransaction, TypeMerkle}, types)
}

func TestScan_stopsEarly(t *testing.T) {
	s := newTestStore(t)
	s.PutHeader(&Header{Height: 1})
	s.PutHeader(&Header{Height: 2})
	s.PutHeader(&Header{Height: 3})

	visited := 0
	err := s.Scan(func(offset int64, rt RecordType, marked bool, body []byte) bool {
		visited++
		return visited < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, visited)
}

func TestMark_flipsFlagInPlace(t *testing.T) {
	s := newTestStore(t)
	off, err := s.PutHeader(&Header{Height: 5})
	require.NoError(t, err)

	marked, err := s.Marked(off)
	require.NoError(t, err)
	assert.False(t, marked)

	require.NoError(t, s.Mark(off))

	marked, err = s.Marked(off)
	require.NoError(t, err)
	assert.True(t, marked)
}

func TestGet_markedRecordReturnsErrMarked(t *testing.T) {
	s := newTestStore(t)
	off, err := s.PutHeader(&Header{Height: 9})
	require.NoError(t, err)
	require.NoError(t, s.Mark(off))

	_, err = s.GetHeader(off)
	assert.ErrorIs(t, err, ErrMarked)
}

func TestScan_reportsMarkedRecords(t *testing.T) {
	s := newTestStore(t)
	offLive, err := s.PutHeader(&Header{Height: 1})
	require.NoError(t, err)
	offDead, err := s.PutHeader(&Header{Height: 2})
	require.NoError(t, err)
	require.NoError(t, s.Mark(offDead))

	marks := map[int64]bool{}
	err = s.Scan(func(offset int64, rt RecordType, marked bool, body []byte) bool {
		marks[offset] = marked
		return true
	})
	require.NoError(t, err)

	assert.False(t, marks[offLive])
	assert.True(t, marks[offDead])
}
