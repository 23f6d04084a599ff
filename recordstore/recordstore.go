// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package recordstore frames header, merkle-proof, and transaction
// records on top of a slab.Allocator arena. Every record is a live/
// marked flag byte, a type byte (identifying which codec produced
// it), a big-endian length, and an RLP-encoded payload — the same
// save/load-by-key shape chain/persist.go uses against a key/value
// store, adapted to an offset-addressed append-only arena. The flag
// byte is the store's only in-place write: Mark flips a record dead
// without compacting the arena or disturbing its neighbors, the same
// logical-delete-by-flag-flip database/revised's header_result.hpp
// uses for its own marked()/mark() pair.
package recordstore

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/blockcore/bcindex/metrics"
	"github.com/blockcore/bcindex/slab"
)

var (
	metricPuts  = metrics.LazyLoadCounterVec("recordstore_puts", []string{"type"})
	metricMarks = metrics.LazyLoadCounter("recordstore_marks")
)

// RecordType is the type byte at the front of every framed record,
// identifying which of the three codecs produced it. A full-file scan
// can dispatch on this byte alone, without consulting any index.
type RecordType byte

const (
	TypeHeader RecordType = iota + 1
	TypeMerkle
	TypeTransaction
)

// Location describes where a transaction's containing structure was
// found when the transaction was recorded — a block on the
// main chain, a merkle-proof-only structure, or neither yet.
type Location byte

const (
	LocationNone Location = iota
	LocationBlock
	LocationMerkle
)

// mark is the live/marked flag byte at the very front of every frame,
// ahead of and distinct from the RecordType byte. Flipping it in
// place is the store's sole logical-deletion mechanism.
type mark byte

const (
	markLive   mark = 0x00
	markMarked mark = 0xFF
)

const frameHeaderSize = 1 + 1 + 8 // flag byte + type byte + big-endian length

// ErrTruncatedFrame is returned when a record's stored length exceeds
// the bytes actually available.
var ErrTruncatedFrame = errors.New("recordstore: truncated frame")

// ErrMarked is returned by the Get* accessors for a record whose flag
// byte has been flipped to markMarked — logically deleted, though its
// bytes are still sitting in the arena.
var ErrMarked = errors.New("recordstore: record marked")

// Header is the codec's record of a block header.
type Header struct {
	Height     uint32
	ParentHash [32]byte
	MerkleRoot [32]byte
	Timestamp  uint64
	Hash       [32]byte
}

// Merkle is the codec's record of a merkle inclusion proof.
type Merkle struct {
	Root  [32]byte
	Leaf  [32]byte
	Path  [][32]byte
	Index uint64
}

// Transaction is the codec's record of a single transaction.
type Transaction struct {
	Hash      [32]byte
	Payload   []byte
	BlockHash [32]byte
	Location  Location
}

// Store frames records on top of an Allocator arena.
type Store struct {
	alloc *slab.Allocator
}

// Open wraps an already-created/started Allocator.
func Open(alloc *slab.Allocator) *Store {
	return &Store{alloc: alloc}
}

func (s *Store) put(rt RecordType, v interface{}) (int64, error) {
	body, err := rlp.EncodeToBytes(v)
	if err != nil {
		return 0, errors.Wrap(err, "recordstore: encode")
	}
	frame := make([]byte, frameHeaderSize+len(body))
	frame[0] = byte(markLive)
	frame[1] = byte(rt)
	binary.BigEndian.PutUint64(frame[2:frameHeaderSize], uint64(len(body)))
	copy(frame[frameHeaderSize:], body)
	offset, err := s.alloc.Allocate(frame)
	if err != nil {
		return 0, errors.Wrap(err, "recordstore: allocate")
	}
	metricPuts().AddWithLabel(1, map[string]string{"type": recordTypeName(rt)})
	return offset, nil
}

func recordTypeName(rt RecordType) string {
	switch rt {
	case TypeHeader:
		return "header"
	case TypeMerkle:
		return "merkle"
	case TypeTransaction:
		return "transaction"
	default:
		return "unknown"
	}
}

func (s *Store) get(offset int64, wantType RecordType, v interface{}) error {
	raw, err := s.alloc.Get(offset)
	if err != nil {
		return errors.Wrap(err, "recordstore: get")
	}
	m, rt, body, err := splitFrame(raw)
	if err != nil {
		return err
	}
	if m == markMarked {
		return ErrMarked
	}
	if rt != wantType {
		return errors.Errorf("recordstore: type mismatch: want %d got %d", wantType, rt)
	}
	if err := rlp.DecodeBytes(body, v); err != nil {
		return errors.Wrap(err, "recordstore: decode")
	}
	return nil
}

func splitFrame(raw []byte) (mark, RecordType, []byte, error) {
	if len(raw) < frameHeaderSize {
		return 0, 0, nil, ErrTruncatedFrame
	}
	m := mark(raw[0])
	rt := RecordType(raw[1])
	n := binary.BigEndian.Uint64(raw[2:frameHeaderSize])
	if uint64(len(raw)-frameHeaderSize) < n {
		return 0, 0, nil, ErrTruncatedFrame
	}
	return m, rt, raw[frameHeaderSize : uint64(frameHeaderSize)+n], nil
}

// Mark flips the flag byte of the record at offset to logically
// delete it, in place, without compacting the arena or touching any
// other record. The write lands directly in the mapped region (the
// same aliasing Get documents); callers that need the flip durable
// still need to call the underlying allocator's Sync.
func (s *Store) Mark(offset int64) error {
	raw, err := s.alloc.Get(offset)
	if err != nil {
		return errors.Wrap(err, "recordstore: mark")
	}
	if len(raw) < 1 {
		return ErrTruncatedFrame
	}
	raw[0] = byte(markMarked)
	metricMarks().Add(1)
	return nil
}

// Marked reports whether the record at offset has been marked deleted.
func (s *Store) Marked(offset int64) (bool, error) {
	raw, err := s.alloc.Get(offset)
	if err != nil {
		return false, errors.Wrap(err, "recordstore: marked")
	}
	if len(raw) < 1 {
		return false, ErrTruncatedFrame
	}
	return mark(raw[0]) == markMarked, nil
}

// PutHeader appends a header record and returns its offset.
func (s *Store) PutHeader(h *Header) (int64, error) { return s.put(TypeHeader, h) }

// GetHeader decodes the header record at offset.
func (s *Store) GetHeader(offset int64) (*Header, error) {
	var h Header
	if err := s.get(offset, TypeHeader, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// PutMerkle appends a merkle-proof record and returns its offset.
func (s *Store) PutMerkle(m *Merkle) (int64, error) { return s.put(TypeMerkle, m) }

// GetMerkle decodes the merkle-proof record at offset.
func (s *Store) GetMerkle(offset int64) (*Merkle, error) {
	var m Merkle
	if err := s.get(offset, TypeMerkle, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// PutTransaction appends a transaction record and returns its offset.
func (s *Store) PutTransaction(tx *Transaction) (int64, error) { return s.put(TypeTransaction, tx) }

// GetTransaction decodes the transaction record at offset.
func (s *Store) GetTransaction(offset int64) (*Transaction, error) {
	var tx Transaction
	if err := s.get(offset, TypeTransaction, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Scan walks every record in the arena from the start, in the order
// they were allocated, invoking fn with each record's offset, type,
// marked flag and still-framed-but-undecoded body — marked records are
// reported, not skipped, so a rebuild can tell a logically-deleted
// record from one it never saw. Scanning stops early if fn returns
// false. This is the rebuild path: indexes are not themselves
// persisted, and are reconstructed by scanning the record files on
// restart.
func (s *Store) Scan(fn func(offset int64, rt RecordType, marked bool, body []byte) bool) error {
	offset := s.alloc.Begin()
	eof := s.alloc.ToEOF()
	for offset < eof {
		raw, err := s.alloc.Get(offset)
		if err != nil {
			return errors.Wrap(err, "recordstore: scan")
		}
		m, rt, body, err := splitFrame(raw)
		if err != nil {
			return err
		}
		if !fn(offset, rt, m == markMarked, body) {
			return nil
		}
		offset += int64(slab.HeaderSize + frameHeaderSize + len(body))
	}
	log.Debug("recordstore scan complete", "records_end", offset)
	return nil
}
