// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package indexstore builds the three fixed-width indexes over record
// offsets: a 256-bit transaction-hash index, a 32-bit stealth-address
// scan index, and a 160-bit payment-address (hash160) index. Each is a
// ptrie.Trie partitioned by block height, so a lookup can be scoped to
// "at this height" or "at-or-after this height" without touching
// entries at other heights. A small cache.LRU front-ends the hottest
// lookups, the same GetOrLoad wrapper chain/repository.go builds over
// hashicorp/golang-lru for block summaries.
package indexstore

import (
	"github.com/pkg/errors"

	"github.com/blockcore/bcindex/bitstr"
	"github.com/blockcore/bcindex/cache"
	"github.com/blockcore/bcindex/metrics"
	"github.com/blockcore/bcindex/ptrie"
)

var metricOps = metrics.LazyLoadCounterVec("indexstore_ops", []string{"index", "op"})

const (
	// TxIndexWidth is the bit-width of a transaction-hash primary key.
	TxIndexWidth = 256
	// StealthIndexWidth is the bit-width of a stealth-scan prefix key.
	StealthIndexWidth = 32
	// PaymentAddressIndexWidth is the bit-width of a hash160 address key.
	PaymentAddressIndexWidth = 160
)

func heightLess(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// OutputSpender records that one output of an indexed transaction has
// been spent, and by which later transaction.
type OutputSpender struct {
	OutputIndex uint32
	SpentBy     [32]byte
}

// TxPayload is the value stored for a transaction-hash index entry:
// the offset of its recordstore.Transaction record, plus whichever of
// its outputs have since been observed spent.
type TxPayload struct {
	RecordOffset   int64
	OutputSpenders []OutputSpender
}

func txPayloadGreater(a, b TxPayload) bool { return a.RecordOffset > b.RecordOffset }

// TxIndex maps 256-bit transaction hashes, partitioned by block
// height, to TxPayload.
type TxIndex struct {
	trie  *ptrie.Trie[uint32, TxPayload]
	cache *cache.LRU
}

// NewTxIndex builds an empty index with an LRU front-end of cacheSize
// entries.
func NewTxIndex(cacheSize int) *TxIndex {
	return &TxIndex{
		trie:  ptrie.New[uint32, TxPayload](TxIndexWidth, heightLess, txPayloadGreater),
		cache: cache.NewLRU(cacheSize),
	}
}

// Put indexes hash at height with payload, allowing more than one
// entry at the same (hash, height) — reorgs can briefly produce
// duplicate candidates before one is pruned.
func (x *TxIndex) Put(hash [32]byte, height uint32, payload TxPayload) error {
	_, err := x.trie.InsertEqual(bitstr.FromBytes(hash[:]), height, payload)
	if err != nil {
		return errors.Wrap(err, "indexstore: tx put")
	}
	x.cache.Remove(txCacheKey{hash, height})
	metricOps().AddWithLabel(1, map[string]string{"index": "tx", "op": "put"})
	return nil
}

type txCacheKey struct {
	hash   [32]byte
	height uint32
}

// Get returns the payload for (hash, height), going through the LRU
// cache first.
func (x *TxIndex) Get(hash [32]byte, height uint32) (TxPayload, bool) {
	k := txCacheKey{hash, height}
	v, err := x.cache.GetOrLoad(k, func(interface{}) (interface{}, error) {
		rng := x.trie.Find(bitstr.FromBytes(hash[:])).GetExact(height)
		if rng.Empty() {
			return nil, errNotFound
		}
		return rng.Begin().Value(), nil
	})
	if err != nil {
		return TxPayload{}, false
	}
	return v.(TxPayload), true
}

// AtOrAfterHeight returns the range of entries for hash at the lowest
// indexed height not less than height.
func (x *TxIndex) AtOrAfterHeight(hash [32]byte, height uint32) ptrie.Range[uint32, TxPayload] {
	return x.trie.Find(bitstr.FromBytes(hash[:])).GetExactGreaterEqual(height)
}

// Remove deletes every entry for (hash, height). Reports whether
// anything was removed.
func (x *TxIndex) Remove(hash [32]byte, height uint32) bool {
	removed := x.trie.RemoveEqual(bitstr.FromBytes(hash[:]), height)
	if removed {
		x.cache.Remove(txCacheKey{hash, height})
	}
	return removed
}

// RemoveHeight deletes every entry at height across the whole index,
// e.g. when a block is evicted by a reorg. The cache is not
// selectively invalidated; callers that rely on it for this height
// should clear it (or tolerate a stale negative/positive hit evicted
// by the cache's own LRU pressure).
func (x *TxIndex) RemoveHeight(height uint32) int {
	return x.trie.RemoveSecondaryKey(height)
}

// Len returns the number of stored entries.
func (x *TxIndex) Len() int { return x.trie.Len() }

var errNotFound = errors.New("indexstore: not found")

// StealthIndex maps 32-bit stealth-scan prefixes, partitioned by block
// height, to the offset of the owning transaction record.
type StealthIndex struct {
	trie *ptrie.Trie[uint32, int64]
}

func offsetGreater(a, b int64) bool { return a > b }

// NewStealthIndex builds an empty stealth-scan index.
func NewStealthIndex() *StealthIndex {
	return &StealthIndex{trie: ptrie.New[uint32, int64](StealthIndexWidth, heightLess, offsetGreater)}
}

// Put indexes the 4-byte scan prefix at height.
func (x *StealthIndex) Put(prefix [4]byte, height uint32, recordOffset int64) error {
	_, err := x.trie.InsertEqual(bitstr.FromBytes(prefix[:]), height, recordOffset)
	if err != nil {
		return errors.Wrap(err, "indexstore: stealth put")
	}
	metricOps().AddWithLabel(1, map[string]string{"index": "stealth", "op": "put"})
	return nil
}

// Scan returns the offsets of every entry whose key starts with prefix
// (at most StealthIndexWidth bits) at the least indexed height not less
// than height, taken from the whole subtree under prefix. The range
// covers that single height only; entries at other heights are not
// included.
func (x *StealthIndex) Scan(prefix bitstr.Bits, height uint32) ptrie.Range[uint32, int64] {
	return x.trie.Find(prefix).GetPrefixedGreaterEqual(height)
}

// Remove deletes every entry for (prefix, height).
func (x *StealthIndex) Remove(prefix [4]byte, height uint32) bool {
	return x.trie.RemoveEqual(bitstr.FromBytes(prefix[:]), height)
}

// Len returns the number of stored entries.
func (x *StealthIndex) Len() int { return x.trie.Len() }

// PaymentAddressIndex maps 160-bit hash160 payment addresses,
// partitioned by block height, to the offset of the paying
// transaction record.
type PaymentAddressIndex struct {
	trie *ptrie.Trie[uint32, int64]
}

// NewPaymentAddressIndex builds an empty payment-address index.
func NewPaymentAddressIndex() *PaymentAddressIndex {
	return &PaymentAddressIndex{trie: ptrie.New[uint32, int64](PaymentAddressIndexWidth, heightLess, offsetGreater)}
}

// Put indexes the 20-byte address at height.
func (x *PaymentAddressIndex) Put(addr [20]byte, height uint32, recordOffset int64) error {
	_, err := x.trie.InsertEqual(bitstr.FromBytes(addr[:]), height, recordOffset)
	if err != nil {
		return errors.Wrap(err, "indexstore: payment address put")
	}
	metricOps().AddWithLabel(1, map[string]string{"index": "payment_address", "op": "put"})
	return nil
}

// History returns a query handle over addr's node, from which the
// caller can pull GetExact/GetExactGreaterEqual ranges per height.
func (x *PaymentAddressIndex) History(addr [20]byte) ptrie.QueryResult[uint32, int64] {
	return x.trie.Find(bitstr.FromBytes(addr[:]))
}

// Remove deletes every entry for (addr, height).
func (x *PaymentAddressIndex) Remove(addr [20]byte, height uint32) bool {
	return x.trie.RemoveEqual(bitstr.FromBytes(addr[:]), height)
}

// Len returns the number of stored entries.
func (x *PaymentAddressIndex) Len() int { return x.trie.Len() }
