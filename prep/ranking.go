// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package prep

import (
	"math/big"

	"github.com/vechain/scoreloop/icx"
)

const nilIndex int32 = -1

// Entry is a ranked candidate.
type Entry struct {
	Address     icx.Address
	Delegated   *big.Int
	BlockHeight uint64
	TxIndex     uint32
}

// before reports whether a ranks ahead of b: delegated desc, then block height asc, then tx index asc.
func (a *Entry) before(b *Entry) bool {
	if c := a.Delegated.Cmp(b.Delegated); c != 0 {
		return c > 0
	}
	if a.BlockHeight != b.BlockHeight {
		return a.BlockHeight < b.BlockHeight
	}
	return a.TxIndex < b.TxIndex
}

type node struct {
	Entry
	prev, next int32
}

// Ranking is the ordered candidate list. Nodes live in one slice and link each other by index,
// freed slots are reused by later inserts.
type Ranking struct {
	nodes []node
	free  []int32
	index map[icx.Address]int32
	head  int32
	tail  int32
}

// NewRanking creates an empty ranking.
func NewRanking() *Ranking {
	return &Ranking{
		index: make(map[icx.Address]int32),
		head:  nilIndex,
		tail:  nilIndex,
	}
}

// Len returns the number of candidates.
func (r *Ranking) Len() int {
	return len(r.index)
}

func (r *Ranking) alloc(e Entry) int32 {
	n := node{Entry: e, prev: nilIndex, next: nilIndex}
	if l := len(r.free); l > 0 {
		i := r.free[l-1]
		r.free = r.free[:l-1]
		r.nodes[i] = n
		return i
	}
	r.nodes = append(r.nodes, n)
	return int32(len(r.nodes) - 1)
}

func (r *Ranking) unlink(i int32) {
	n := &r.nodes[i]
	if n.prev != nilIndex {
		r.nodes[n.prev].next = n.next
	} else {
		r.head = n.next
	}
	if n.next != nilIndex {
		r.nodes[n.next].prev = n.prev
	} else {
		r.tail = n.prev
	}
	n.prev, n.next = nilIndex, nilIndex
}

// linkBefore links i in front of at, or at the tail if at is nilIndex.
func (r *Ranking) linkBefore(i, at int32) {
	n := &r.nodes[i]
	if at == nilIndex {
		n.prev, n.next = r.tail, nilIndex
		if r.tail != nilIndex {
			r.nodes[r.tail].next = i
		} else {
			r.head = i
		}
		r.tail = i
		return
	}
	n.prev, n.next = r.nodes[at].prev, at
	if n.prev != nilIndex {
		r.nodes[n.prev].next = i
	} else {
		r.head = i
	}
	r.nodes[at].prev = i
}

// Insert adds a candidate at its position.
func (r *Ranking) Insert(e Entry) error {
	if _, ok := r.index[e.Address]; ok {
		return icx.Errorf(icx.InvalidParams, "P-Rep already exists: %s", e.Address)
	}
	e.Delegated = new(big.Int).Set(e.Delegated)
	i := r.alloc(e)
	r.index[e.Address] = i

	at := r.head
	for at != nilIndex && !e.before(&r.nodes[at].Entry) {
		at = r.nodes[at].next
	}
	r.linkBefore(i, at)
	return nil
}

// UpdateDelegation changes the delegated amount of addr and moves it to its new position.
func (r *Ranking) UpdateDelegation(addr icx.Address, delegated *big.Int) error {
	i, ok := r.index[addr]
	if !ok {
		return icx.Errorf(icx.InvalidParams, "P-Rep not found: %s", addr)
	}
	r.unlink(i)
	n := &r.nodes[i]
	n.Delegated = new(big.Int).Set(delegated)

	// walk backward from the tail to the last node ranking ahead
	at := r.tail
	for at != nilIndex && n.before(&r.nodes[at].Entry) {
		at = r.nodes[at].prev
	}
	if at == nilIndex {
		r.linkBefore(i, r.head)
	} else {
		r.linkBefore(i, r.nodes[at].next)
	}
	return nil
}

// Remove drops addr.
func (r *Ranking) Remove(addr icx.Address) error {
	i, ok := r.index[addr]
	if !ok {
		return icx.Errorf(icx.InvalidParams, "P-Rep not found: %s", addr)
	}
	r.unlink(i)
	delete(r.index, addr)
	r.nodes[i] = node{prev: nilIndex, next: nilIndex}
	r.free = append(r.free, i)
	return nil
}

// Get returns the entry of addr.
func (r *Ranking) Get(addr icx.Address) (Entry, bool) {
	i, ok := r.index[addr]
	if !ok {
		return Entry{}, false
	}
	return r.entry(i), true
}

func (r *Ranking) entry(i int32) Entry {
	e := r.nodes[i].Entry
	e.Delegated = new(big.Int).Set(e.Delegated)
	return e
}

// Rank returns the 1-based rank of addr.
func (r *Ranking) Rank(addr icx.Address) (int, error) {
	target, ok := r.index[addr]
	if !ok {
		return 0, icx.Errorf(icx.InvalidParams, "P-Rep not found: %s", addr)
	}
	rank := 1
	for i := r.head; i != target; i = r.nodes[i].next {
		rank++
	}
	return rank, nil
}

// Iter calls fn with entries in rank order, starting at rank 1, until fn returns false.
func (r *Ranking) Iter(fn func(rank int, e Entry) bool) {
	rank := 1
	for i := r.head; i != nilIndex; i = r.nodes[i].next {
		if !fn(rank, r.entry(i)) {
			return
		}
		rank++
	}
}

// TopN returns the first n entries.
func (r *Ranking) TopN(n int) []Entry {
	entries := make([]Entry, 0, min(n, r.Len()))
	r.Iter(func(_ int, e Entry) bool {
		if len(entries) >= n {
			return false
		}
		entries = append(entries, e)
		return true
	})
	return entries
}

// Copy returns a deep copy.
func (r *Ranking) Copy() *Ranking {
	cpy := &Ranking{
		nodes: append([]node(nil), r.nodes...),
		free:  append([]int32(nil), r.free...),
		index: make(map[icx.Address]int32, len(r.index)),
		head:  r.head,
		tail:  r.tail,
	}
	for addr, i := range r.index {
		cpy.index[addr] = i
	}
	// delegated values are never mutated in place
	return cpy
}
