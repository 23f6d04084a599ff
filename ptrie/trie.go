// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ptrie

import (
	"github.com/blockcore/bcindex/bitstr"
	"github.com/blockcore/bcindex/metrics"
	"github.com/blockcore/bcindex/rbtree"
)

var (
	metricValueInserts = metrics.LazyLoadCounter("ptrie_value_inserts")
	metricValueRemoves = metrics.LazyLoadCounter("ptrie_value_removes")
)

// Trie is a fixed-width binary Patricia trie over primary keys of type
// bitstr.Bits, each value additionally keyed by a secondary key of type
// S. Every insertion/removal lands at a primary-key prefix node and
// mutates exactly that node's bucket for the given secondary key,
// after which per-key subtree summaries are refreshed up to the root.
//
// Width, per the note on passing a type-level constant as a runtime
// field, is supplied once at construction and checked on every insert.
type Trie[S any, V any] struct {
	width         int
	secondaryLess rbtree.Comparator[S]
	valueGreater  func(a, b V) bool

	root *node[S, V]
	size int
}

// New builds an empty trie accepting primary keys of exactly width
// bits. secondaryLess orders the per-node secondary-key map; valueGreater
// orders values within one (node, secondary) bucket, with true meaning
// a sorts before b.
func New[S any, V any](width int, secondaryLess rbtree.Comparator[S], valueGreater func(a, b V) bool) *Trie[S, V] {
	return &Trie[S, V]{width: width, secondaryLess: secondaryLess, valueGreater: valueGreater}
}

// Len returns the number of stored values.
func (t *Trie[S, V]) Len() int { return t.size }

// Width returns the fixed primary-key bit-width.
func (t *Trie[S, V]) Width() int { return t.width }

func (t *Trie[S, V]) ensureRoot() *node[S, V] {
	if t.root == nil {
		t.root = &node[S, V]{}
	}
	return t.root
}

// InsertEqual inserts value under (primary, secondary), allowing
// duplicates at the same (primary, secondary) pair. Returns
// ErrWrongWidth if primary.Size() does not equal the trie's width.
func (t *Trie[S, V]) InsertEqual(primary bitstr.Bits, secondary S, value V) (*Cursor[S, V], error) {
	if primary.Size() != t.width {
		return nil, ErrWrongWidth
	}
	n := t.descendOrSplit(primary)
	vn := t.insertValue(n, secondary, value)
	t.updateSummary(n, secondary)
	t.size++
	metricValueInserts().Add(1)
	return &Cursor[S, V]{cur: vn, key: secondary, less: t.secondaryLess}, nil
}

// InsertUnique behaves like InsertEqual but fails (returning ok=false)
// if the landing node already holds a value for secondary.
func (t *Trie[S, V]) InsertUnique(primary bitstr.Bits, secondary S, value V) (*Cursor[S, V], bool, error) {
	if primary.Size() != t.width {
		return nil, false, ErrWrongWidth
	}
	n := t.descendOrSplit(primary)
	if b, ok := n.ownBucket(t.secondaryLess, secondary); ok && b.head != nil {
		return &Cursor[S, V]{cur: b.head, key: secondary, less: t.secondaryLess}, false, nil
	}
	vn := t.insertValue(n, secondary, value)
	t.updateSummary(n, secondary)
	t.size++
	metricValueInserts().Add(1)
	return &Cursor[S, V]{cur: vn, key: secondary, less: t.secondaryLess}, true, nil
}

// descendOrSplit is bintrie's §4.3 walk, generalised to node[S, V].
func (t *Trie[S, V]) descendOrSplit(key bitstr.Bits) *node[S, V] {
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
			newNode := &node[S, V]{label: key.Substring(offset), parent: cur}
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

		intermediary := &node[S, V]{label: child.label.SubstringN(0, common), parent: cur}
		cur.child[idx] = intermediary

		child.label = child.label.Substring(common)
		child.parent = intermediary
		intermediary.child[childIdx(child.label.Index(0))] = child
		// Until the new value lands, the intermediary's subtree is exactly
		// child's, so it starts with a copy of child's summaries.
		if child.store != nil {
			for it := child.store.Begin(); it.Valid(); it = it.Next() {
				s := *it.Value()
				intermediary.setStoreEntry(t.secondaryLess, it.Key(), &s)
			}
		}

		if offset+common == key.Size() {
			return intermediary
		}
		siblingLabel := rest.Substring(common)
		sibling := &node[S, V]{label: siblingLabel, parent: intermediary}
		intermediary.child[childIdx(siblingLabel.Index(0))] = sibling
		return sibling
	}
}

// insertValue creates a valueNode anchored at n for secondary and
// splices it into the bucket in descending valueGreater order, walking
// backward from the bucket's current tail.
func (t *Trie[S, V]) insertValue(n *node[S, V], secondary S, value V) *valueNode[S, V] {
	b := n.ensureOwnBucket(t.secondaryLess, secondary)
	vn := &valueNode[S, V]{anchor: n, secondary: secondary, value: value}

	cur := b.tail
	for cur != nil && t.valueGreater(vn.value, cur.value) {
		cur = cur.prev
	}
	if cur == nil {
		vn.next = b.head
		if b.head != nil {
			b.head.prev = vn
		}
		b.head = vn
		if b.tail == nil {
			b.tail = vn
		}
	} else {
		vn.next = cur.next
		vn.prev = cur
		if cur.next != nil {
			cur.next.prev = vn
		} else {
			b.tail = vn
		}
		cur.next = vn
	}
	return vn
}

// updateSummary recomputes the (node, secondary) subtree summary from
// n up to the root. A node with neither an own bucket nor a
// contributing child for secondary has its store entry removed
// outright, so a dangling summary can never be observed.
func (t *Trie[S, V]) updateSummary(n *node[S, V], secondary S) {
	for n != nil {
		own, hasOwn := n.ownBucket(t.secondaryLess, secondary)
		var child0, child1 *summary[S, V]
		hasChild0, hasChild1 := false, false
		if n.child[0] != nil {
			child0, hasChild0 = n.child[0].storeEntry(secondary)
		}
		if n.child[1] != nil {
			child1, hasChild1 = n.child[1].storeEntry(secondary)
		}

		if !hasOwn && !hasChild0 && !hasChild1 {
			n.removeStoreEntry(secondary)
			n = n.parent
			continue
		}

		var head, tail *valueNode[S, V]
		switch {
		case hasOwn:
			head = own.head
		case hasChild0:
			head = child0.headLeftmost
		default:
			head = child1.headLeftmost
		}
		switch {
		case hasChild1:
			tail = child1.tailRightmost
		case hasChild0:
			tail = child0.tailRightmost
		default:
			tail = own.tail
		}
		n.setStoreEntry(t.secondaryLess, secondary, &summary[S, V]{headLeftmost: head, tailRightmost: tail})
		n = n.parent
	}
}

// locate walks key to its exact terminal node without mutating the
// trie, returning nil if no node's concatenated label equals key.
func (t *Trie[S, V]) locate(key bitstr.Bits) *node[S, V] {
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

// locatePrefix walks key as far as it is a prefix of some stored
// path, stopping either at an exact node boundary or partway through
// an unsplit edge label — in the latter case the query never split
// that edge, but every value in child's subtree still begins with
// key, so child is exactly the subtree get_prefixed needs. Returns nil
// only on true divergence (key's next bit has no edge, or it disagrees
// with an edge before either is exhausted).
func (t *Trie[S, V]) locatePrefix(key bitstr.Bits) *node[S, V] {
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

// Find locates the node for primary and returns a query handle over
// it (possibly nil-backed if no node matches). See query.go for
// GetExact / GetExactGreaterEqual / GetPrefixed / GetPrefixedGreaterEqual.
func (t *Trie[S, V]) Find(primary bitstr.Bits) QueryResult[S, V] {
	return QueryResult[S, V]{t: t, node: t.locate(primary), prefixNode: t.locatePrefix(primary)}
}

// FindSecondaryKeyBounds returns the whole-trie range for one
// secondary key, consulting the root node's store.
func (t *Trie[S, V]) FindSecondaryKeyBounds(secondary S) Range[S, V] {
	if t.root == nil {
		return Range[S, V]{}
	}
	s, ok := t.root.storeEntry(secondary)
	if !ok {
		return Range[S, V]{}
	}
	return Range[S, V]{key: secondary, less: t.secondaryLess, from: s.headLeftmost, to: s.tailRightmost}
}

// RemoveEqual removes every value anchored at (primary, secondary).
// Reports whether anything was removed.
func (t *Trie[S, V]) RemoveEqual(primary bitstr.Bits, secondary S) bool {
	n := t.locate(primary)
	if n == nil {
		return false
	}
	b, ok := n.ownBucket(t.secondaryLess, secondary)
	if !ok || b.head == nil {
		return false
	}
	count := 0
	for vn := b.head; vn != nil; vn = vn.next {
		count++
	}
	n.deleteOwnBucket(secondary)
	t.size -= count
	metricValueRemoves().Add(int64(count))
	t.updateSummary(n, secondary)
	t.compressBranch(n)
	return true
}

// RemoveSecondaryKey removes every value stored under secondary,
// across the whole trie, by sweeping the root-level range for that
// key. Each matching node is visited exactly once; the structure
// cursor advances to the next node before its bucket is detached, so
// the node that is about to be emptied (and possibly compressed away)
// is never referenced again afterward.
func (t *Trie[S, V]) RemoveSecondaryKey(secondary S) int {
	removed := 0
	rng := t.FindSecondaryKeyBounds(secondary)
	if rng.Empty() {
		return 0
	}

	anchor := rng.from.anchor
	for anchor != nil {
		next := nextNodeForKey(anchor, secondary, t.secondaryLess)
		if b, ok := anchor.ownBucket(t.secondaryLess, secondary); ok {
			count := 0
			for vn := b.head; vn != nil; vn = vn.next {
				count++
			}
			anchor.deleteOwnBucket(secondary)
			t.size -= count
			metricValueRemoves().Add(int64(count))
			removed += count
			t.updateSummary(anchor, secondary)
			t.compressBranch(anchor)
		}
		anchor = next
	}
	return removed
}

// RemoveValue removes a single value, returning a cursor positioned at
// the value that followed it within its (node, secondary) bucket (or
// an invalid cursor if none).
func (t *Trie[S, V]) RemoveValue(c *Cursor[S, V]) *Cursor[S, V] {
	vn := c.cur
	n := vn.anchor
	secondary := vn.secondary
	next := vn.next

	b, _ := n.ownBucket(t.secondaryLess, secondary)
	if vn.prev != nil {
		vn.prev.next = vn.next
	} else if b != nil {
		b.head = vn.next
	}
	if vn.next != nil {
		vn.next.prev = vn.prev
	} else if b != nil {
		b.tail = vn.prev
	}
	t.size--
	metricValueRemoves().Add(1)

	if b != nil && b.head == nil {
		n.deleteOwnBucket(secondary)
	}
	t.updateSummary(n, secondary)
	t.compressBranch(n)

	if next != nil {
		return &Cursor[S, V]{cur: next, key: secondary, less: t.secondaryLess}
	}
	return &Cursor[S, V]{}
}

// compressBranch walks upward from a node that may have just lost its
// last own bucket, collapsing single-child chains per §4.3. A node
// that still anchors any value, for any secondary key, is never
// collapsed.
func (t *Trie[S, V]) compressBranch(n *node[S, V]) {
	for n != nil && !n.hasAnyOwn() {
		var only *node[S, V]
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
			parent.child[parent.childSlot(n)] = nil
			n = parent
			continue
		case 1:
			if parent == nil {
				// the root keeps its empty label even with one child
				return
			}
			only.label = only.label.Prepend(n.label)
			only.parent = parent
			parent.child[parent.childSlot(n)] = only
			return
		default:
			return
		}
	}
}
