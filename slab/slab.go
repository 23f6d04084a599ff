// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package slab implements a memory-mapped, append-only byte allocator.
// The file itself opens with an 8-byte little-endian size field
// recording the logical end of the arena (header included); every
// record allocated afterward is additionally self-framed by its own
// 8-byte little-endian length so Get can bound a read without
// consulting any index. Growth is done by truncating the backing file
// and remapping, since edsrzf/mmap-go fixes a mapping's length at map
// time.
package slab

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/blockcore/bcindex/metrics"
)

var (
	metricBytesUsed = metrics.LazyLoadGauge("slab_bytes_used")
	metricGrows     = metrics.LazyLoadCounter("slab_grows")
)

// HeaderSize is the number of bytes every record is prefixed with:
// an 8-byte little-endian payload length.
const HeaderSize = 8

const headerSize = HeaderSize

// fileHeaderSize is the width of the arena-wide size field at file
// offset 0, distinct from each record's own headerSize-byte length
// prefix. It records size = bytes in use including this field itself,
// so Start can recover the allocation cursor by reading 8 bytes
// instead of trusting the OS file length, which Reserve may have
// grown past the logical end.
const fileHeaderSize = 8

// ErrCorrupt is returned when the arena's size field does not agree
// with the backing file.
var ErrCorrupt = errors.New("slab: corrupt size header")

// ErrClosed is returned by operations on an Allocator that has already
// been closed.
var ErrClosed = errors.New("slab: allocator closed")

// ErrOverflow is returned when a requested payload is longer than
// 1<<32 bytes.
var ErrOverflow = errors.New("slab: payload too large")

// Allocator is an append-only, memory-mapped record arena. One
// goroutine may Allocate while others Get concurrently; Allocate and
// Sync themselves are serialised with a mutex, matching the
// single-writer model this store is designed for.
type Allocator struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	region mmap.MMap
	used   int64 // logical end of allocated records; <= len(region)
	closed bool
}

// Create makes a new, empty slab file at path and returns an Allocator
// over it. It fails if path already exists. The size field is
// initialized to fileHeaderSize and written immediately, so a crash
// before the first Allocate still leaves a well-formed file.
func Create(path string) (*Allocator, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "slab: create")
	}
	a := &Allocator{path: path, file: f}
	if err := a.remap(fileHeaderSize); err != nil {
		f.Close()
		return nil, err
	}
	a.used = fileHeaderSize
	binary.LittleEndian.PutUint64(a.region[0:fileHeaderSize], uint64(a.used))
	return a, nil
}

// Start opens an existing slab file at path, mapping its full current
// length and recovering the allocation cursor from the persisted size
// field at offset 0 rather than from the OS file length, which may
// run ahead of it (Reserve grows the file without advancing size).
func Start(path string) (*Allocator, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "slab: start")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "slab: stat")
	}
	if info.Size() < fileHeaderSize {
		f.Close()
		return nil, ErrCorrupt
	}
	region, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "slab: map")
	}
	used := int64(binary.LittleEndian.Uint64(region[0:fileHeaderSize]))
	if used < fileHeaderSize || used > info.Size() {
		region.Unmap()
		f.Close()
		return nil, ErrCorrupt
	}
	a := &Allocator{path: path, file: f, region: region, used: used}
	log.Debug("slab started", "path", path, "size", used)
	return a, nil
}

// remap grows the backing file to at least n bytes and remaps it.
// Must be called with a.mu held.
func (a *Allocator) remap(n int64) error {
	if a.region != nil {
		if err := a.region.Unmap(); err != nil {
			return errors.Wrap(err, "slab: unmap")
		}
		a.region = nil
	}
	if err := a.file.Truncate(n); err != nil {
		return errors.Wrap(err, "slab: truncate")
	}
	if n == 0 {
		return nil
	}
	region, err := mmap.Map(a.file, mmap.RDWR, 0)
	if err != nil {
		return errors.Wrap(err, "slab: map")
	}
	a.region = region
	return nil
}

// grow ensures the mapping covers at least n bytes, doubling capacity
// (starting from 4KiB) rather than growing exactly to n each call.
func (a *Allocator) grow(n int64) error {
	cap := int64(len(a.region))
	if n <= cap {
		return nil
	}
	if cap <= fileHeaderSize {
		cap = 4096
	}
	for cap < n {
		cap *= 2
	}
	metricGrows().Add(1)
	return a.remap(cap)
}

// Reserve grows the mapping's capacity ahead of writes by n bytes
// beyond the current allocation cursor, without allocating a record.
// Callers that know they are about to perform several Allocate calls
// can use this to amortise remapping.
func (a *Allocator) Reserve(n int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return a.grow(a.used + int64(n))
}

// Allocate reserves headerSize+len(payload) bytes at the end of the
// arena, writes the size header and payload, and returns the offset of
// the record (pointing at the header; Get expects this offset).
func (a *Allocator) Allocate(payload []byte) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, ErrClosed
	}
	if len(payload) > 1<<32 {
		return 0, ErrOverflow
	}

	offset := a.used
	total := int64(headerSize + len(payload))
	if err := a.grow(offset + total); err != nil {
		return 0, err
	}

	binary.LittleEndian.PutUint64(a.region[offset:offset+headerSize], uint64(len(payload)))
	copy(a.region[offset+headerSize:offset+total], payload)
	a.used = offset + total
	metricBytesUsed().Add(total)
	return offset, nil
}

// Get returns the payload of the record at offset (as written by
// Allocate). The returned slice aliases the mapping; callers that need
// to retain it across a Sync/remap must copy it.
func (a *Allocator) Get(offset int64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}
	if offset < 0 || offset+headerSize > int64(len(a.region)) {
		return nil, errors.New("slab: offset out of range")
	}
	size := binary.LittleEndian.Uint64(a.region[offset : offset+headerSize])
	end := offset + headerSize + int64(size)
	if end > int64(len(a.region)) {
		return nil, errors.New("slab: corrupt record length")
	}
	return a.region[offset+headerSize : end], nil
}

// ToEOF returns the current logical end of allocated records — the
// offset the next Allocate call will use.
func (a *Allocator) ToEOF() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// Begin returns the offset of the first record a Scan should visit,
// past the arena's own size field.
func (a *Allocator) Begin() int64 {
	return fileHeaderSize
}

// Sync writes the size field, flushes the mapping to disk, and trims
// the backing file to exactly the bytes in use, discarding any
// reserved-but-unused tail.
func (a *Allocator) Sync() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if a.region != nil {
		binary.LittleEndian.PutUint64(a.region[0:fileHeaderSize], uint64(a.used))
		if err := a.region.Flush(); err != nil {
			return errors.Wrap(err, "slab: flush")
		}
	}
	if int64(len(a.region)) != a.used {
		if err := a.remap(a.used); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and releases the mapping and backing file.
func (a *Allocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	var err error
	if a.region != nil {
		if ferr := a.region.Flush(); ferr != nil {
			err = ferr
		}
		if uerr := a.region.Unmap(); uerr != nil && err == nil {
			err = uerr
		}
	}
	if cerr := a.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
