// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slab

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S6 — create, allocate 80 bytes, write, sync, reopen, get, flip the
// mark byte, sync again, reopen once more and confirm the flip stuck.
func TestAllocateSyncReopen_markByteFlipPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.slab")

	a, err := Create(path)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x42}, 80)
	off, err := a.Allocate(payload)
	require.NoError(t, err)
	require.NoError(t, a.Sync())
	require.NoError(t, a.Close())

	a2, err := Start(path)
	require.NoError(t, err)

	got, err := a2.Get(off)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	got[0] = 0xFF // flip the mark byte in place through the mapping
	require.NoError(t, a2.Sync())
	require.NoError(t, a2.Close())

	a3, err := Start(path)
	require.NoError(t, err)
	defer a3.Close()

	got3, err := a3.Get(off)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), got3[0])
	assert.Equal(t, payload[1:], got3[1:])
}

func TestAllocate_multipleRecordsAndToEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.slab")
	a, err := Create(path)
	require.NoError(t, err)
	defer a.Close()

	assert.EqualValues(t, fileHeaderSize, a.ToEOF())
	assert.EqualValues(t, fileHeaderSize, a.Begin())

	off1, err := a.Allocate([]byte("hello"))
	require.NoError(t, err)
	off2, err := a.Allocate([]byte("world!"))
	require.NoError(t, err)
	assert.NotEqual(t, off1, off2)

	v1, err := a.Get(off1)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(v1))

	v2, err := a.Get(off2)
	require.NoError(t, err)
	assert.Equal(t, "world!", string(v2))

	assert.EqualValues(t, fileHeaderSize+headerSize*2+len("hello")+len("world!"), a.ToEOF())
}

func TestReserve_growsWithoutAllocating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.slab")
	a, err := Create(path)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Reserve(1<<20))
	assert.GreaterOrEqual(t, len(a.region), 1<<20)
	assert.EqualValues(t, fileHeaderSize, a.ToEOF())
}

func TestGet_afterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.slab")
	a, err := Create(path)
	require.NoError(t, err)
	_, err = a.Allocate([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = a.Get(0)
	assert.ErrorIs(t, err, ErrClosed)

	// The backing file must still exist and be non-empty.
	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(0))
}

// S6 — Start recovers the allocation cursor from the persisted size
// field, not from the OS file length, which Reserve may have grown
// past the last sync point.
func TestStart_recoversSizeFromHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.slab")

	a, err := Create(path)
	require.NoError(t, err)
	off, err := a.Allocate([]byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, a.Sync())
	require.NoError(t, a.Reserve(1<<16)) // grows the file beyond `used`; Close does not trim it
	wantEOF := a.ToEOF()
	require.NoError(t, a.Close())

	a2, err := Start(path)
	require.NoError(t, err)
	defer a2.Close()

	assert.Equal(t, wantEOF, a2.ToEOF())

	got, err := a2.Get(off)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))
}

func TestStart_rejectsTruncatedHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.slab")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0644))

	_, err := Start(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}
