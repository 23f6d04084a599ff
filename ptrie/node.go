// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ptrie implements the modified (primary+secondary) Patricia
// trie: a fixed-width binary trie (see bintrie for the unparameterised
// ancestor) whose per-node payload is an ordered map from secondary key
// to a sorted value bucket, with per-secondary-key left/right subtree
// summaries cached up every branch so a prefix scan can be restricted
// to one secondary key in O(depth) setup plus O(matches) enumeration.
package ptrie

import (
	"github.com/pkg/errors"

	"github.com/blockcore/bcindex/bitstr"
	"github.com/blockcore/bcindex/rbtree"
)

// ErrWrongWidth is returned when a primary key's length does not match
// the trie's static bit-width.
var ErrWrongWidth = errors.New("ptrie: primary key width mismatch")

// node is a structure node of the trie. label is the edge from parent
// to this node (empty for the root); the first bit of label selects
// which of the parent's two child slots this node occupies.
type node[S any, V any] struct {
	label  bitstr.Bits
	parent *node[S, V]
	child  [2]*node[S, V]

	// own holds, per secondary key, the value bucket anchored exactly
	// at this node. Created lazily.
	own *rbtree.Tree[S, *bucket[S, V]]

	// store caches, per secondary key, the {headLeftmost,tailRightmost}
	// boundary of the value range reachable at-or-below this node.
	// Created lazily.
	store *rbtree.Tree[S, *summary[S, V]]
}

// bucket is the sorted (by the trie's value comparator, descending)
// doubly-linked list of values anchored at one node for one secondary
// key.
type bucket[S any, V any] struct {
	head, tail *valueNode[S, V]
}

// summary is the cached subtree boundary for one secondary key.
type summary[S any, V any] struct {
	headLeftmost, tailRightmost *valueNode[S, V]
}

// valueNode is one stored value. prev/next link it within its
// (anchor, secondary) bucket only — not across nodes.
type valueNode[S any, V any] struct {
	anchor     *node[S, V]
	secondary  S
	prev, next *valueNode[S, V]
	value      V
}

func childIdx(bit bool) int {
	if bit {
		return 1
	}
	return 0
}

func (n *node[S, V]) ownBucket(less rbtree.Comparator[S], k S) (*bucket[S, V], bool) {
	if n.own == nil {
		return nil, false
	}
	it, ok := n.own.Retrieve(k)
	if !ok {
		return nil, false
	}
	return it.Value(), true
}

func (n *node[S, V]) ensureOwnBucket(less rbtree.Comparator[S], k S) *bucket[S, V] {
	if n.own == nil {
		n.own = rbtree.New[S, *bucket[S, V]](less)
	}
	if it, ok := n.own.Retrieve(k); ok {
		return it.Value()
	}
	b := &bucket[S, V]{}
	n.own.Add(k, b, false)
	return b
}

func (n *node[S, V]) deleteOwnBucket(k S) {
	if n.own == nil {
		return
	}
	n.own.Remove(k)
}

func (n *node[S, V]) storeEntry(k S) (*summary[S, V], bool) {
	if n.store == nil {
		return nil, false
	}
	it, ok := n.store.Retrieve(k)
	if !ok {
		return nil, false
	}
	return it.Value(), true
}

func (n *node[S, V]) storeEntryGE(k S) (*summary[S, V], bool) {
	if n.store == nil {
		return nil, false
	}
	it, ok := n.store.RetrieveGreaterEqual(k)
	if !ok {
		return nil, false
	}
	return it.Value(), true
}

func (n *node[S, V]) setStoreEntry(less rbtree.Comparator[S], k S, s *summary[S, V]) {
	if n.store == nil {
		n.store = rbtree.New[S, *summary[S, V]](less)
	}
	n.store.Add(k, s, true)
}

func (n *node[S, V]) removeStoreEntry(k S) {
	if n.store == nil {
		return
	}
	n.store.Remove(k)
}

// hasAnyOwn reports whether the node has at least one own bucket for
// any secondary key (used by branch compression, which must never
// collapse a node that still anchors values).
func (n *node[S, V]) hasAnyOwn() bool {
	return n.own != nil && n.own.Len() > 0
}

func (n *node[S, V]) childSlot(c *node[S, V]) int {
	if n.child[0] == c {
		return 0
	}
	return 1
}
