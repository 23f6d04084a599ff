// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bintrie

// Range is a half-open-by-convention, closed-by-implementation span of
// values: [from, to] inclusive, or empty when from is nil. Cached
// leftmost/rightmost summaries (rather than a dedicated linked list of
// value-bearing nodes) back iteration, per the "both options
// acceptable" note in the design docs this package follows.
type Range[V any] struct {
	from *valueNode[V]
	to   *valueNode[V]
}

// Empty reports whether the range has no values.
func (r Range[V]) Empty() bool {
	return r.from == nil
}

// Begin returns a cursor positioned at the first value in the range.
func (r Range[V]) Begin() *Cursor[V] {
	if r.Empty() {
		return &Cursor[V]{}
	}
	return &Cursor[V]{cur: r.from, to: r.to}
}

// Cursor walks a Range (or, with to == nil, the whole trie) in
// ascending primary-key order.
type Cursor[V any] struct {
	cur *valueNode[V]
	to  *valueNode[V]
}

// Valid reports whether the cursor references a value.
func (c *Cursor[V]) Valid() bool {
	return c != nil && c.cur != nil
}

// Value returns the referenced value. Panics if !Valid().
func (c *Cursor[V]) Value() V {
	return c.cur.value
}

// Next advances the cursor. Stepping past the range's upper bound
// yields an invalid cursor.
func (c *Cursor[V]) Next() *Cursor[V] {
	if c.cur == nil {
		return &Cursor[V]{}
	}
	if c.to != nil && c.cur == c.to {
		return &Cursor[V]{}
	}
	if c.cur.next != nil {
		return &Cursor[V]{cur: c.cur.next, to: c.to}
	}
	nxt := nextValueBearingHead(c.cur.anchor)
	if nxt == nil {
		return &Cursor[V]{}
	}
	return &Cursor[V]{cur: nxt, to: c.to}
}

// Prev moves the cursor backward.
func (c *Cursor[V]) Prev() *Cursor[V] {
	if c.cur == nil {
		return &Cursor[V]{}
	}
	if c.cur.prev != nil {
		return &Cursor[V]{cur: c.cur.prev, to: c.to}
	}
	prv := prevValueBearingTail(c.cur.anchor)
	if prv == nil {
		return &Cursor[V]{}
	}
	return &Cursor[V]{cur: prv, to: c.to}
}

// Begin returns a cursor over every value in ascending order.
func (t *Trie[V]) Begin() *Cursor[V] {
	if t.root == nil || t.root.leftmost == nil {
		return &Cursor[V]{}
	}
	return &Cursor[V]{cur: t.root.leftmost}
}

// nextValueBearingHead finds the head of the next value-bearing node
// following n in ascending primary-key order: a node's own values come
// before its child[0] subtree, which comes before its child[1] subtree
// (the same order leftmost/rightmost summarise).
func nextValueBearingHead[V any](n *node[V]) *valueNode[V] {
	for _, c := range n.child {
		if c != nil && c.leftmost != nil {
			return c.leftmost
		}
	}
	cur := n
	p := n.parent
	for p != nil {
		if cur == p.child[0] && p.child[1] != nil && p.child[1].leftmost != nil {
			return p.child[1].leftmost
		}
		cur = p
		p = p.parent
	}
	return nil
}

// prevValueBearingTail is the symmetric predecessor search.
func prevValueBearingTail[V any](n *node[V]) *valueNode[V] {
	cur := n
	p := n.parent
	for p != nil {
		if cur == p.child[1] && p.child[0] != nil && p.child[0].rightmost != nil {
			return p.child[0].rightmost
		}
		if p.tail != nil {
			return p.tail
		}
		cur = p
		p = p.parent
	}
	return nil
}
