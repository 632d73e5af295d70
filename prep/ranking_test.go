// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package prep

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/scoreloop/icx"
)

func addr(b byte) icx.Address {
	return icx.NewEOAAddress([]byte{b})
}

func order(r *Ranking) []icx.Address {
	var addrs []icx.Address
	r.Iter(func(_ int, e Entry) bool {
		addrs = append(addrs, e.Address)
		return true
	})
	return addrs
}

// checkLinks verifies forward and backward links agree.
func checkLinks(t *testing.T, r *Ranking) {
	var prev int32 = nilIndex
	n := 0
	for i := r.head; i != nilIndex; i = r.nodes[i].next {
		assert.Equal(t, prev, r.nodes[i].prev)
		if prev != nilIndex {
			assert.False(t, r.nodes[i].before(&r.nodes[prev].Entry), "out of order at %d", n)
		}
		prev = i
		n++
	}
	assert.Equal(t, prev, r.tail)
	assert.Equal(t, r.Len(), n)
}

func TestRankingOrder(t *testing.T) {
	r := NewRanking()
	a, b, c := addr(1), addr(2), addr(3)

	require.NoError(t, r.Insert(Entry{a, big.NewInt(10), 5, 1}))
	require.NoError(t, r.Insert(Entry{b, big.NewInt(10), 3, 0}))
	require.NoError(t, r.Insert(Entry{c, big.NewInt(8), 1, 0}))
	checkLinks(t, r)

	assert.Equal(t, []icx.Address{b, a, c}, order(r))
	for i, want := range []icx.Address{b, a, c} {
		rank, err := r.Rank(want)
		require.NoError(t, err)
		assert.Equal(t, i+1, rank)
	}

	err := r.Insert(Entry{a, big.NewInt(1), 0, 0})
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))
	_, err = r.Rank(addr(9))
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))
}

func TestRankingUpdate(t *testing.T) {
	r := NewRanking()
	for i := byte(1); i <= 5; i++ {
		require.NoError(t, r.Insert(Entry{addr(i), big.NewInt(int64(i) * 10), uint64(i), 0}))
	}
	assert.Equal(t, []icx.Address{addr(5), addr(4), addr(3), addr(2), addr(1)}, order(r))

	// to the top
	require.NoError(t, r.UpdateDelegation(addr(1), big.NewInt(100)))
	checkLinks(t, r)
	assert.Equal(t, []icx.Address{addr(1), addr(5), addr(4), addr(3), addr(2)}, order(r))

	// to the bottom
	require.NoError(t, r.UpdateDelegation(addr(5), big.NewInt(0)))
	checkLinks(t, r)
	assert.Equal(t, []icx.Address{addr(1), addr(4), addr(3), addr(2), addr(5)}, order(r))

	// tie broken by block height
	require.NoError(t, r.UpdateDelegation(addr(2), big.NewInt(30)))
	checkLinks(t, r)
	assert.Equal(t, []icx.Address{addr(1), addr(4), addr(2), addr(3), addr(5)}, order(r))

	e, ok := r.Get(addr(2))
	require.True(t, ok)
	assert.Equal(t, big.NewInt(30), e.Delegated)

	err := r.UpdateDelegation(addr(9), big.NewInt(1))
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))
}

func TestRankingRemoveReuse(t *testing.T) {
	r := NewRanking()
	for i := byte(1); i <= 3; i++ {
		require.NoError(t, r.Insert(Entry{addr(i), big.NewInt(int64(i)), 0, uint32(i)}))
	}
	require.NoError(t, r.Remove(addr(2)))
	checkLinks(t, r)
	assert.Equal(t, []icx.Address{addr(3), addr(1)}, order(r))
	assert.Equal(t, icx.InvalidParams, icx.KindOf(r.Remove(addr(2))))

	require.NoError(t, r.Insert(Entry{addr(4), big.NewInt(2), 0, 4}))
	assert.Len(t, r.nodes, 3)
	assert.Empty(t, r.free)
	checkLinks(t, r)

	require.NoError(t, r.Remove(addr(3)))
	require.NoError(t, r.Remove(addr(1)))
	require.NoError(t, r.Remove(addr(4)))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, nilIndex, r.head)
	assert.Equal(t, nilIndex, r.tail)
	assert.Empty(t, r.TopN(3))
}

func TestRankingTopNCopy(t *testing.T) {
	r := NewRanking()
	for i := byte(1); i <= 4; i++ {
		require.NoError(t, r.Insert(Entry{addr(i), big.NewInt(int64(i)), 0, 0}))
	}
	top := r.TopN(2)
	require.Len(t, top, 2)
	assert.Equal(t, addr(4), top[0].Address)
	assert.Equal(t, addr(3), top[1].Address)
	assert.Len(t, r.TopN(10), 4)

	cpy := r.Copy()
	require.NoError(t, cpy.UpdateDelegation(addr(1), big.NewInt(100)))
	require.NoError(t, cpy.Remove(addr(4)))

	assert.Equal(t, []icx.Address{addr(4), addr(3), addr(2), addr(1)}, order(r))
	assert.Equal(t, []icx.Address{addr(1), addr(3), addr(2)}, order(cpy))
	checkLinks(t, r)
	checkLinks(t, cpy)
}
