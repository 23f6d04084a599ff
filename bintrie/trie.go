// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package bintrie implements a path-compressed binary Patricia trie
// mapping bitstr.Bits keys to value lists, with ordered iteration over
// all stored values. It is the single-secondary-key ancestor of the
// fixed-width trie in ptrie; see that package's doc comment for the
// primary+secondary generalisation.
package bintrie

import "github.com/blockcore/bcindex/bitstr"

type node[V any] struct {
	label  bitstr.Bits
	parent *node[V]
	child  [2]*node[V]

	head, tail          *valueNode[V] // this node's own value list
	leftmost, rightmost *valueNode[V] // cached subtree boundary, including this node's own list
}

type valueNode[V any] struct {
	anchor     *node[V]
	prev, next *valueNode[V]
	value      V
}

// Trie is a path-compressed binary trie. The zero value is ready to use.
type Trie[V any] struct {
	root *node[V]
	size int
}

func childIdx(bit bool) int {
	if bit {
		return 1
	}
	return 0
}

// Len returns the number of stored values.
func (t *Trie[V]) Len() int {
	return t.size
}

func (t *Trie[V]) ensureRoot() *node[V] {
	if t.root == nil {
		t.root = &node[V]{}
	}
	return t.root
}

// InsertEqual appends value to the bucket of key, allowing duplicates.
func (t *Trie[V]) InsertEqual(key bitstr.Bits, value V) *Cursor[V] {
	n := t.descendOrSplit(key)
	vn := t.appendValue(n, value)
	t.refreshSummary(n)
	t.size++
	return &Cursor[V]{cur: vn}
}

// InsertUnique behaves like InsertEqual but fails if the node already
// holds a value.
func (t *Trie[V]) InsertUnique(key bitstr.Bits, value V) (*Cursor[V], bool) {
	n := t.descendOrSplit(key)
	if n.head != nil {
		return &Cursor[V]{cur: n.head}, false
	}
	vn := t.appendValue(n, value)
	t.refreshSummary(n)
	t.size++
	return &Cursor[V]{cur: vn}, true
}

// descendOrSplit runs the §4.3 insertion walk and returns the node
// whose concatenated label equals key, splitting edges as needed.
func (t *Trie[V]) descendOrSplit(key bitstr.Bits) *node[V] {
	cur := t.ensureRoot()
	offset := 0
	for {
		if offset == key.Size() {
			return cur
		}
		bit := key.Index(offset)
		idx := childIdx(bit)
		child := cur.child[idx]
		if child == nil {
			newNode := &node[V]{label: key.Substring(offset), parent: cur}
			cur.child[idx] = newNode
			return newNode
		}

		rest := key.Substring(offset)
		common := child.label.CommonPrefixLen(rest)
		if common == child.label.Size() {
			if offset+common == key.Size() {
				return child
			}
			offset += common
			cur = child
			continue
		}

		// split the edge to child at `common` bits.
		intermediary := &node[V]{label: child.label.SubstringN(0, common), parent: cur}
		cur.child[idx] = intermediary

		child.label = child.label.Substring(common)
		child.parent = intermediary
		intermediary.child[childIdx(child.label.Index(0))] = child

		if offset+common == key.Size() {
			return intermediary
		}
		siblingLabel := rest.Substring(common)
		sibling := &node[V]{label: siblingLabel, parent: intermediary}
		intermediary.child[childIdx(siblingLabel.Index(0))] = sibling
		return sibling
	}
}

func (t *Trie[V]) appendValue(n *node[V], value V) *valueNode[V] {
	vn := &valueNode[V]{anchor: n, value: value}
	if n.tail == nil {
		n.head, n.tail = vn, vn
	} else {
		vn.prev = n.tail
		n.tail.next = vn
		n.tail = vn
	}
	return vn
}

// refreshSummary recomputes leftmost/rightmost from n up to the root.
func (t *Trie[V]) refreshSummary(n *node[V]) {
	for n != nil {
		switch {
		case n.head != nil:
			n.leftmost = n.head
		case n.child[0] != nil && n.child[0].leftmost != nil:
			n.leftmost = n.child[0].leftmost
		case n.child[1] != nil && n.child[1].leftmost != nil:
			n.leftmost = n.child[1].leftmost
		default:
			n.leftmost = nil
		}
		switch {
		case n.child[1] != nil && n.child[1].rightmost != nil:
			n.rightmost = n.child[1].rightmost
		case n.child[0] != nil && n.child[0].rightmost != nil:
			n.rightmost = n.child[0].rightmost
		case n.tail != nil:
			n.rightmost = n.tail
		default:
			n.rightmost = nil
		}
		n = n.parent
	}
}

func (t *Trie[V]) locate(key bitstr.Bits) *node[V] {
	cur := t.root
	offset := 0
	for cur != nil {
		if offset == key.Size() {
			return cur
		}
		idx := childIdx(key.Index(offset))
		child := cur.child[idx]
		if child == nil {
			return nil
		}
		rest := key.Substring(offset)
		common := child.label.CommonPrefixLen(rest)
		if common != child.label.Size() {
			return nil
		}
		offset += common
		cur = child
	}
	return nil
}

// FindEqual returns the range of values anchored exactly at key.
func (t *Trie[V]) FindEqual(key bitstr.Bits) Range[V] {
	n := t.locate(key)
	if n == nil || n.head == nil {
		return Range[V]{}
	}
	return Range[V]{from: n.head, to: n.tail}
}

// locatePrefix walks key as far as it is a prefix of some stored
// path, stopping either at an exact node boundary or partway through
// an unsplit edge label — in the latter case the query never split
// that edge, but every value in child's subtree still begins with
// key, so child is exactly the subtree FindPrefix/RemovePrefix need.
// Returns nil only on true divergence.
func (t *Trie[V]) locatePrefix(key bitstr.Bits) *node[V] {
	cur := t.root
	offset := 0
	for cur != nil {
		if offset == key.Size() {
			return cur
		}
		idx := childIdx(key.Index(offset))
		child := cur.child[idx]
		if child == nil {
			return nil
		}
		rest := key.Substring(offset)
		common := child.label.CommonPrefixLen(rest)
		if common == rest.Size() {
			return child
		}
		if common != child.label.Size() {
			return nil
		}
		offset += common
		cur = child
	}
	return nil
}

// FindPrefix returns the range of all values in the subtree reached by
// consuming key, whether key lands exactly on a node or ends partway
// through an unsplit edge label.
func (t *Trie[V]) FindPrefix(key bitstr.Bits) Range[V] {
	n := t.locatePrefix(key)
	if n == nil || n.leftmost == nil {
		return Range[V]{}
	}
	return Range[V]{from: n.leftmost, to: n.rightmost}
}

// RemoveEqual removes all values anchored exactly at key. Reports
// whether anything was removed.
func (t *Trie[V]) RemoveEqual(key bitstr.Bits) bool {
	n := t.locate(key)
	if n == nil || n.head == nil {
		return false
	}
	count := 0
	for vn := n.head; vn != nil; vn = vn.next {
		count++
	}
	n.head, n.tail = nil, nil
	t.size -= count
	t.compressBranch(n)
	return true
}

// RemovePrefix removes every value in the subtree reached by consuming
// key as a prefix — not just the node's own bucket but every
// descendant's too — splicing that whole subtree out of its parent and
// compressing, mirroring RemoveEqual/compressBranch. Returns the number
// of values removed.
func (t *Trie[V]) RemovePrefix(key bitstr.Bits) int {
	n := t.locatePrefix(key)
	if n == nil || n.leftmost == nil {
		return 0
	}
	count := 0
	for c := (&Cursor[V]{cur: n.leftmost, to: n.rightmost}); c.Valid(); c = c.Next() {
		count++
	}
	t.size -= count

	parent := n.parent
	if parent == nil {
		t.root = nil
		return count
	}
	t.detach(parent, n)
	t.compressBranch(parent)
	return count
}

// RemoveValue removes a single value, returning a cursor to the value
// that followed it in its node's own value list (or an invalid cursor
// if it was the last value at that node).
func (t *Trie[V]) RemoveValue(c *Cursor[V]) *Cursor[V] {
	vn := c.cur
	n := vn.anchor
	next := vn.next

	if vn.prev != nil {
		vn.prev.next = vn.next
	} else {
		n.head = vn.next
	}
	if vn.next != nil {
		vn.next.prev = vn.prev
	} else {
		n.tail = vn.prev
	}
	t.size--

	if n.head == nil {
		t.compressBranch(n)
	} else {
		t.refreshSummary(n)
	}

	if next != nil {
		return &Cursor[V]{cur: next}
	}
	return &Cursor[V]{}
}

// compressBranch walks upward from an emptied node, collapsing
// single-child chains per §4.3.
func (t *Trie[V]) compressBranch(n *node[V]) {
	for n != nil && n.head == nil {
		var only *node[V]
		children := 0
		for _, c := range n.child {
			if c != nil {
				children++
				only = c
			}
		}
		parent := n.parent
		switch children {
		case 0:
			if parent == nil {
				t.root = nil
				return
			}
			t.detach(parent, n)
			n = parent
			continue
		case 1:
			if parent == nil {
				// the root keeps its empty label even with one child
				t.refreshSummary(n)
				return
			}
			only.label = only.label.Prepend(n.label)
			only.parent = parent
			parent.child[t.childSlot(parent, n)] = only
			t.refreshSummary(parent)
			return
		default:
			t.refreshSummary(n)
			return
		}
	}
	if n != nil {
		t.refreshSummary(n)
	}
}

func (t *Trie[V]) childSlot(parent, child *node[V]) int {
	if parent.child[0] == child {
		return 0
	}
	return 1
}

func (t *Trie[V]) detach(parent, child *node[V]) {
	parent.child[t.childSlot(parent, child)] = nil
	t.refreshSummary(parent)
}
