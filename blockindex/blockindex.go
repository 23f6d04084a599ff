// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package blockindex maintains the block multi-index: a hash-unique
// lookup, a (height, chain ID)-ordered non-unique lookup (more than
// one candidate block can occupy a height on a chain before a fork
// resolves), and a per-chain cached maximum height. The cache is
// repaired by scanning on removal rather than kept as a second
// incrementally-maintained structure — chain/repository.go's
// ScanHeads/GetMaxBlockNum play the analogous "derive the head from
// what's stored" role against a key/value store.
package blockindex

import (
	"github.com/pkg/errors"

	"github.com/blockcore/bcindex/rbtree"
)

// BlockRef identifies one indexed block.
type BlockRef struct {
	Hash    [32]byte
	Height  uint32
	ChainID uint32
}

type heightChainKey struct {
	height  uint32
	chainID uint32
}

func heightChainLess(a, b heightChainKey) int {
	if a.height != b.height {
		if a.height < b.height {
			return -1
		}
		return 1
	}
	if a.chainID != b.chainID {
		if a.chainID < b.chainID {
			return -1
		}
		return 1
	}
	return 0
}

// ErrDuplicateHash is returned when Put is given a hash already
// present in the index.
var ErrDuplicateHash = errors.New("blockindex: duplicate hash")

// Store is the block multi-index.
type Store struct {
	byHash        map[[32]byte]BlockRef
	byHeightChain *rbtree.Tree[heightChainKey, BlockRef]
	maxHeight     map[uint32]uint32
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		byHash:        make(map[[32]byte]BlockRef),
		byHeightChain: rbtree.New[heightChainKey, BlockRef](heightChainLess),
		maxHeight:     make(map[uint32]uint32),
	}
}

// Put indexes a new block. Fails with ErrDuplicateHash if the hash is
// already indexed — callers must Remove the stale entry first, e.g.
// when re-indexing after a reorg.
func (s *Store) Put(ref BlockRef) error {
	if _, exists := s.byHash[ref.Hash]; exists {
		return ErrDuplicateHash
	}
	s.byHash[ref.Hash] = ref
	s.byHeightChain.Add(heightChainKey{ref.Height, ref.ChainID}, ref, false)
	if cur, ok := s.maxHeight[ref.ChainID]; !ok || ref.Height > cur {
		s.maxHeight[ref.ChainID] = ref.Height
	}
	return nil
}

// ByHash returns the block indexed under hash.
func (s *Store) ByHash(hash [32]byte) (BlockRef, bool) {
	ref, ok := s.byHash[hash]
	return ref, ok
}

// AtHeightChain returns the block at (height, chainID), if any.
func (s *Store) AtHeightChain(height, chainID uint32) (BlockRef, bool) {
	it, ok := s.byHeightChain.Retrieve(heightChainKey{height, chainID})
	if !ok {
		return BlockRef{}, false
	}
	return it.Value(), true
}

// Head returns the highest-height block indexed for chainID.
func (s *Store) Head(chainID uint32) (BlockRef, bool) {
	h, ok := s.maxHeight[chainID]
	if !ok {
		return BlockRef{}, false
	}
	return s.AtHeightChain(h, chainID)
}

// MaxHeight returns the cached maximum height for chainID.
func (s *Store) MaxHeight(chainID uint32) (uint32, bool) {
	h, ok := s.maxHeight[chainID]
	return h, ok
}

// Remove deletes the block indexed under hash, repairing the
// chainID's cached max height if the removed block was sitting at it.
// Reports whether anything was removed.
func (s *Store) Remove(hash [32]byte) bool {
	ref, ok := s.byHash[hash]
	if !ok {
		return false
	}
	delete(s.byHash, hash)
	s.byHeightChain.Remove(heightChainKey{ref.Height, ref.ChainID})

	if cur, ok := s.maxHeight[ref.ChainID]; ok && cur == ref.Height {
		s.repeal(ref.ChainID)
	}
	return true
}

// repeal recomputes chainID's cached max height by scanning backward
// from the top of the (height, chainID)-ordered index for the nearest
// remaining entry belonging to chainID, deleting the cache entry
// entirely if none remains.
func (s *Store) repeal(chainID uint32) {
	for it := s.byHeightChain.RBegin(); it.Valid(); it = it.Prev() {
		if it.Key().chainID == chainID {
			s.maxHeight[chainID] = it.Key().height
			return
		}
	}
	delete(s.maxHeight, chainID)
}

// Len returns the number of indexed blocks.
func (s *Store) Len() int { return len(s.byHash) }
