// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ptrie

import "github.com/blockcore/bcindex/rbtree"

// Range is a span of values sharing one secondary key, ordered by
// ascending primary key: [from, to] inclusive, or empty when from is
// nil.
type Range[S any, V any] struct {
	key  S
	less rbtree.Comparator[S]
	from *valueNode[S, V]
	to   *valueNode[S, V]
}

// Empty reports whether the range holds no values.
func (r Range[S, V]) Empty() bool {
	return r.from == nil
}

// Begin returns a cursor at the first value in the range.
func (r Range[S, V]) Begin() *Cursor[S, V] {
	if r.Empty() {
		return &Cursor[S, V]{}
	}
	return &Cursor[S, V]{cur: r.from, to: r.to, key: r.key, less: r.less}
}

// Cursor walks a Range — or, with to == nil, every value under one
// secondary key across the whole trie — in ascending primary-key
// order. It has three logical components, per the design this package
// follows: a structure position (cur.anchor), a secondary key fixed at
// construction, and a pointer into that node's bucket for the key.
type Cursor[S any, V any] struct {
	cur  *valueNode[S, V]
	to   *valueNode[S, V]
	key  S
	less rbtree.Comparator[S]
}

// Valid reports whether the cursor references a value.
func (c *Cursor[S, V]) Valid() bool {
	return c != nil && c.cur != nil
}

// Value returns the referenced value. Panics if !Valid().
func (c *Cursor[S, V]) Value() V {
	return c.cur.value
}

// Next advances the cursor within its bucket, then across nodes via
// the per-secondary-key subtree summaries (no node without a bucket
// for this key is ever visited). Stepping past the range's upper
// bound yields an invalid cursor.
func (c *Cursor[S, V]) Next() *Cursor[S, V] {
	if c.cur == nil {
		return &Cursor[S, V]{}
	}
	if c.to != nil && c.cur == c.to {
		return &Cursor[S, V]{}
	}
	if c.cur.next != nil {
		return &Cursor[S, V]{cur: c.cur.next, to: c.to, key: c.key, less: c.less}
	}
	nextNode := nextNodeForKey(c.cur.anchor, c.key, c.less)
	if nextNode == nil {
		return &Cursor[S, V]{}
	}
	b, ok := nextNode.ownBucket(c.less, c.key)
	if !ok || b.head == nil {
		return &Cursor[S, V]{}
	}
	return &Cursor[S, V]{cur: b.head, to: c.to, key: c.key, less: c.less}
}

// Prev moves the cursor backward, symmetric to Next.
func (c *Cursor[S, V]) Prev() *Cursor[S, V] {
	if c.cur == nil {
		return &Cursor[S, V]{}
	}
	if c.cur.prev != nil {
		return &Cursor[S, V]{cur: c.cur.prev, to: c.to, key: c.key, less: c.less}
	}
	prevNode := prevNodeForKey(c.cur.anchor, c.key, c.less)
	if prevNode == nil {
		return &Cursor[S, V]{}
	}
	b, ok := prevNode.ownBucket(c.less, c.key)
	if !ok || b.tail == nil {
		return &Cursor[S, V]{}
	}
	return &Cursor[S, V]{cur: b.tail, to: c.to, key: c.key, less: c.less}
}

// nextNodeForKey finds the node anchoring the next bucket for
// secondary, following n in primary-key order. It uses the cached
// per-secondary summaries rather than a structural in-order walk: a
// subtree that does not contribute to secondary is skipped in O(1) via
// its absent store entry.
func nextNodeForKey[S any, V any](n *node[S, V], secondary S, less rbtree.Comparator[S]) *node[S, V] {
	if n.child[1] != nil {
		if s, ok := n.child[1].storeEntry(secondary); ok {
			return s.headLeftmost.anchor
		}
	}
	cur := n
	p := n.parent
	for p != nil {
		if cur == p.child[0] {
			if b, ok := p.ownBucket(less, secondary); ok && b.head != nil {
				return p
			}
			if p.child[1] != nil {
				if s, ok := p.child[1].storeEntry(secondary); ok {
					return s.headLeftmost.anchor
				}
			}
		}
		cur = p
		p = p.parent
	}
	return nil
}

// prevNodeForKey is the symmetric predecessor search.
func prevNodeForKey[S any, V any](n *node[S, V], secondary S, less rbtree.Comparator[S]) *node[S, V] {
	if n.child[0] != nil {
		if s, ok := n.child[0].storeEntry(secondary); ok {
			return s.tailRightmost.anchor
		}
	}
	cur := n
	p := n.parent
	for p != nil {
		if cur == p.child[1] {
			if b, ok := p.ownBucket(less, secondary); ok && b.tail != nil {
				return p
			}
			if p.child[0] != nil {
				if s, ok := p.child[0].storeEntry(secondary); ok {
					return s.tailRightmost.anchor
				}
			}
		}
		cur = p
		p = p.parent
	}
	return nil
}
