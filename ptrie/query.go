// Copyright (c) 2018-present the bcindex contributors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ptrie

// QueryResult is a handle on the trie nodes reached by a primary-key
// walk (see Trie.Find). node is set only on an exact node-boundary
// match, for GetExact; prefixNode is set whenever primary is a valid
// prefix of some stored path, even if it ends partway through an
// unsplit edge label, for GetExactGreaterEqual/GetPrefixed/
// GetPrefixedGreaterEqual. Both are nil-backed (every Get* call yields
// an empty range) when no node matched.
type QueryResult[S any, V any] struct {
	t          *Trie[S, V]
	node       *node[S, V]
	prefixNode *node[S, V]
}

// Found reports whether the primary-key walk landed on a node at all
// (independent of whether that node holds any value for a given
// secondary key).
func (q QueryResult[S, V]) Found() bool {
	return q.node != nil
}

// Depth returns the number of bits consumed to reach this node, i.e.
// the length of its primary-key prefix. Returns 0 for a not-found
// handle.
func (q QueryResult[S, V]) Depth() int {
	n := q.node
	depth := 0
	for n != nil {
		depth += n.label.Size()
		n = n.parent
	}
	return depth
}

// GetExact returns the range of values anchored exactly at this node
// under secondary. It deliberately filters out ranges whose head is
// anchored elsewhere: if this node holds nothing for secondary itself
// (even though some descendant does), the result is empty.
func (q QueryResult[S, V]) GetExact(secondary S) Range[S, V] {
	if q.node == nil {
		return Range[S, V]{}
	}
	b, ok := q.node.ownBucket(q.t.secondaryLess, secondary)
	if !ok || b.head == nil {
		return Range[S, V]{}
	}
	return Range[S, V]{key: secondary, less: q.t.secondaryLess, from: b.head, to: b.tail}
}

// GetExactGreaterEqual is GetExact's lower-bound counterpart: it
// consults the store (the subtree-wide cache) of the node reached by
// primary — including a node reached partway through an unsplit edge,
// since primary is still a valid prefix of that subtree — for the
// least secondary key not less than the argument. Unlike GetExact, it
// does not filter by anchor — the returned range may belong to a
// descendant node. This asymmetry is intentional: a lower-bound
// lookup has no single "this node's own value" to prefer.
func (q QueryResult[S, V]) GetExactGreaterEqual(secondary S) Range[S, V] {
	return q.storeGE(secondary)
}

// GetPrefixed returns the full subtree range for secondary — the
// {head_leftmost, tail_rightmost} pair cached at the node reached by
// consuming primary as a prefix, regardless of which node in the
// subtree actually anchors the head and tail, and regardless of
// whether primary ended exactly at a node boundary or partway through
// an unsplit edge label.
func (q QueryResult[S, V]) GetPrefixed(secondary S) Range[S, V] {
	if q.prefixNode == nil {
		return Range[S, V]{}
	}
	s, ok := q.prefixNode.storeEntry(secondary)
	if !ok {
		return Range[S, V]{}
	}
	return Range[S, V]{key: secondary, less: q.t.secondaryLess, from: s.headLeftmost, to: s.tailRightmost}
}

// GetPrefixedGreaterEqual is GetPrefixed's lower-bound counterpart.
func (q QueryResult[S, V]) GetPrefixedGreaterEqual(secondary S) Range[S, V] {
	return q.storeGE(secondary)
}

func (q QueryResult[S, V]) storeGE(secondary S) Range[S, V] {
	if q.prefixNode == nil {
		return Range[S, V]{}
	}
	s, ok := q.prefixNode.storeEntryGE(secondary)
	if !ok {
		return Range[S, V]{}
	}
	return Range[S, V]{key: secondary, less: q.t.secondaryLess, from: s.headLeftmost, to: s.tailRightmost}
}
