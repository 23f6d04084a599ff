// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rbtree implements a generic ordered map backed by a red-black
// tree (Cormen-Leiserson-Rivest-Stein algorithms), comparator-driven so
// it can serve both as the per-node secondary-key store inside ptrie
// and as a general-purpose ordered map elsewhere.
package rbtree

// Comparator returns <0 if a orders before b, 0 if equal, >0 otherwise.
type Comparator[K any] func(a, b K) int

// Tree is a red-black tree keyed by K with values V, ordered by Less.
// Not safe for concurrent use.
type Tree[K any, V any] struct {
	less Comparator[K]
	nil_ *node[K, V]
	root *node[K, V]
	size int
}

type color bool

const (
	red   color = true
	black color = false
)

type node[K any, V any] struct {
	key    K
	value  V
	color  color
	parent *node[K, V]
	left   *node[K, V]
	right  *node[K, V]
}

// New creates an empty tree ordered by less.
func New[K any, V any](less Comparator[K]) *Tree[K, V] {
	sentinel := &node[K, V]{color: black}
	sentinel.left, sentinel.right, sentinel.parent = sentinel, sentinel, sentinel
	return &Tree[K, V]{
		less: less,
		nil_: sentinel,
		root: sentinel,
	}
}

// Len returns the number of entries.
func (t *Tree[K, V]) Len() int {
	return t.size
}

// Iterator locates a single entry within the tree, supporting ordered
// bidirectional traversal.
type Iterator[K any, V any] struct {
	t *Tree[K, V]
	n *node[K, V]
}

// Valid reports whether the iterator references an actual entry (as
// opposed to end()).
func (it Iterator[K, V]) Valid() bool {
	return it.t != nil && it.n != it.t.nil_
}

// Key returns the entry's key. Panics if !Valid().
func (it Iterator[K, V]) Key() K {
	return it.n.key
}

// Value returns the entry's value. Panics if !Valid().
func (it Iterator[K, V]) Value() V {
	return it.n.value
}

// SetValue replaces the entry's value in place (does not affect order).
func (it Iterator[K, V]) SetValue(v V) {
	it.n.value = v
}

// Next advances to the next entry in ascending (comparator) order.
// Advancing past the last entry yields an invalid iterator.
func (it Iterator[K, V]) Next() Iterator[K, V] {
	return Iterator[K, V]{t: it.t, n: it.t.successor(it.n)}
}

// Prev moves to the previous entry in ascending order.
func (it Iterator[K, V]) Prev() Iterator[K, V] {
	return Iterator[K, V]{t: it.t, n: it.t.predecessor(it.n)}
}

func (t *Tree[K, V]) end() Iterator[K, V] {
	return Iterator[K, V]{t: t, n: t.nil_}
}

// Begin returns an iterator to the least entry, or an invalid iterator
// if the tree is empty.
func (t *Tree[K, V]) Begin() Iterator[K, V] {
	if t.root == t.nil_ {
		return t.end()
	}
	return Iterator[K, V]{t: t, n: t.minimum(t.root)}
}

// End returns the past-the-end iterator.
func (t *Tree[K, V]) End() Iterator[K, V] {
	return t.end()
}

// RBegin returns an iterator to the greatest entry.
func (t *Tree[K, V]) RBegin() Iterator[K, V] {
	if t.root == t.nil_ {
		return t.end()
	}
	return Iterator[K, V]{t: t, n: t.maximum(t.root)}
}

func (t *Tree[K, V]) minimum(n *node[K, V]) *node[K, V] {
	for n.left != t.nil_ {
		n = n.left
	}
	return n
}

func (t *Tree[K, V]) maximum(n *node[K, V]) *node[K, V] {
	for n.right != t.nil_ {
		n = n.right
	}
	return n
}

func (t *Tree[K, V]) successor(n *node[K, V]) *node[K, V] {
	if n.right != t.nil_ {
		return t.minimum(n.right)
	}
	p := n.parent
	for p != t.nil_ && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *Tree[K, V]) predecessor(n *node[K, V]) *node[K, V] {
	if n.left != t.nil_ {
		return t.maximum(n.left)
	}
	p := n.parent
	for p != t.nil_ && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

// Retrieve performs an exact lookup.
func (t *Tree[K, V]) Retrieve(key K) (Iterator[K, V], bool) {
	n := t.root
	for n != t.nil_ {
		c := t.less(key, n.key)
		switch {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return Iterator[K, V]{t: t, n: n}, true
		}
	}
	return t.end(), false
}

// RetrieveGreaterEqual returns the least entry whose key is not less
// than the argument under the tree's comparator (lower bound).
func (t *Tree[K, V]) RetrieveGreaterEqual(key K) (Iterator[K, V], bool) {
	n := t.root
	var candidate *node[K, V]
	for n != t.nil_ {
		c := t.less(key, n.key)
		switch {
		case c == 0:
			return Iterator[K, V]{t: t, n: n}, true
		case c < 0:
			candidate = n
			n = n.left
		default:
			n = n.right
		}
	}
	if candidate == nil {
		return t.end(), false
	}
	return Iterator[K, V]{t: t, n: candidate}, true
}

// Add inserts key/value. If the key already exists: when replace is
// true the existing value is overwritten and (iterToExisting, false)
// is returned; when replace is false (iterToExisting, false) is
// returned without modification. Otherwise the pair is inserted and
// (iterToNew, true) is returned.
func (t *Tree[K, V]) Add(key K, value V, replace bool) (Iterator[K, V], bool) {
	parent := t.nil_
	cur := t.root
	var dir int
	for cur != t.nil_ {
		c := t.less(key, cur.key)
		switch {
		case c == 0:
			if replace {
				cur.value = value
			}
			return Iterator[K, V]{t: t, n: cur}, false
		case c < 0:
			parent, cur, dir = cur, cur.left, -1
		default:
			parent, cur, dir = cur, cur.right, 1
		}
	}

	n := &node[K, V]{key: key, value: value, color: red, left: t.nil_, right: t.nil_, parent: parent}
	if parent == t.nil_ {
		t.root = n
	} else if dir < 0 {
		parent.left = n
	} else {
		parent.right = n
	}
	t.size++
	t.insertFixup(n)
	return Iterator[K, V]{t: t, n: n}, true
}

func (t *Tree[K, V]) rotateLeft(x *node[K, V]) {
	y := x.right
	x.right = y.left
	if y.left != t.nil_ {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil_ {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *Tree[K, V]) rotateRight(x *node[K, V]) {
	y := x.left
	x.left = y.right
	if y.right != t.nil_ {
		y.right.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil_ {
		t.root = y
	} else if x == x.parent.right {
		x.parent.right = y
	} else {
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

func (t *Tree[K, V]) insertFixup(z *node[K, V]) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.rotateLeft(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateRight(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rotateRight(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateLeft(z.parent.parent)
			}
		}
		if z == t.root {
			break
		}
	}
	t.root.color = black
}

// Remove deletes the entry for key, if present, and reports whether a
// removal occurred.
func (t *Tree[K, V]) Remove(key K) bool {
	n := t.root
	for n != t.nil_ {
		c := t.less(key, n.key)
		switch {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			t.removeNode(n)
			t.size--
			return true
		}
	}
	return false
}

func (t *Tree[K, V]) transplant(u, v *node[K, V]) {
	if u.parent == t.nil_ {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *Tree[K, V]) removeNode(z *node[K, V]) {
	y := z
	yOriginalColor := y.color
	var x *node[K, V]

	if z.left == t.nil_ {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.nil_ {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.minimum(z.right)
		yOriginalColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}
	if yOriginalColor == black {
		t.removeFixup(x)
	}
}

func (t *Tree[K, V]) removeFixup(x *node[K, V]) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rotateRight(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.rotateLeft(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.rotateLeft(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rotateRight(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}

// blackHeight and CheckInvariants walk the tree to verify the red-black
// invariants; blackHeight is unexported, CheckInvariants is exported.

func (t *Tree[K, V]) blackHeight(n *node[K, V]) (int, bool) {
	if n == t.nil_ {
		return 1, true
	}
	if n.color == red {
		if n.left.color == red || n.right.color == red {
			return 0, false
		}
	}
	lh, ok := t.blackHeight(n.left)
	if !ok {
		return 0, false
	}
	rh, ok := t.blackHeight(n.right)
	if !ok || lh != rh {
		return 0, false
	}
	if n.color == black {
		lh++
	}
	return lh, true
}

// CheckInvariants verifies the red-black invariants (root black, no
// red-red, equal black-height on every root-to-nil path). Exposed for
// property tests; not needed by normal callers.
func (t *Tree[K, V]) CheckInvariants() bool {
	if t.root.color != black {
		return false
	}
	_, ok := t.blackHeight(t.root)
	return ok
}
