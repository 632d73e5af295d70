// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fee

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/scoreloop/icx"
)

func TestChargeFeeWithoutDeposit(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.SetBalance(alice, big.NewInt(1_000)))

	c, err := l.ChargeFee(alice, &score, big.NewInt(10), big.NewInt(3), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.PayerSteps.Int64())
	assert.Equal(t, int64(30), c.Fee.Int64())
	assert.Equal(t, int64(970), mustBalance(t, l, alice).Int64())
	assert.Equal(t, int64(30), mustBalance(t, l, icx.TreasuryAddress).Int64())

	_, err = l.ChargeFee(alice, nil, big.NewInt(1_000), big.NewInt(1), 1)
	assert.Equal(t, icx.OutOfBalance, icx.KindOf(err))
}

func TestChargeFeeVirtualSteps(t *testing.T) {
	l := newLedger(t)
	fund(t, l, alice, 20_000)
	require.NoError(t, l.SetBalance(bob, big.NewInt(1_000_000)))

	price := big.NewInt(1_000_000_000_000)
	d1, err := l.AddDeposit(depositID(1), score, alice, icxOf(5_000), 10, MinDepositTerm, price)
	require.NoError(t, err)
	_, err = l.AddDeposit(depositID(2), score, alice, icxOf(5_000), 10, MinDepositTerm, price)
	require.NoError(t, err)

	issued := d1.VirtualStepIssued.ToBig()
	// consume all of the first deposit and one step of the second
	used := new(big.Int).Add(issued, big.NewInt(1))

	c, err := l.ChargeFee(bob, &score, used, price, 11)
	require.NoError(t, err)
	assert.Equal(t, 0, c.VirtualSteps.Cmp(used))
	assert.Equal(t, int64(0), c.PayerSteps.Int64())
	assert.Equal(t, int64(0), c.Fee.Int64())
	assert.Equal(t, int64(1_000_000), mustBalance(t, l, bob).Int64())

	m, err := l.meta(score)
	require.NoError(t, err)
	assert.Equal(t, depositID(2), m.AvailableHead)

	list, err := l.Deposits(score)
	require.NoError(t, err)
	assert.True(t, list[0].RemainingVirtualSteps().IsZero())
	assert.Equal(t, uint64(1), list[1].VirtualStepUsed.Uint64())

	// an early withdrawal is charged for the virtual steps spent
	w, err := l.WithdrawDeposit(depositID(1), alice, 12, price)
	require.NoError(t, err)
	wantPenalty := new(big.Int).Mul(issued, price)
	assert.Equal(t, 0, w.Penalty.Cmp(wantPenalty))
	assert.Equal(t, 0, new(big.Int).Add(w.Refund, w.Penalty).Cmp(icxOf(5_000)))
}

func TestChargeFeeProportionAndPrincipal(t *testing.T) {
	l := newLedger(t)
	fund(t, l, alice, 20_000)
	require.NoError(t, l.SetBalance(bob, big.NewInt(1_000_000)))

	price := big.NewInt(1)
	d, err := l.AddDeposit(depositID(1), score, alice, icxOf(5_000), 10, MinDepositTerm, icx.ICX)
	require.NoError(t, err)
	// one virtual step per icx price, 400 steps in total
	require.Equal(t, uint64(400), d.VirtualStepIssued.Uint64())

	require.NoError(t, l.SetProportion(score, 50))
	err = l.SetProportion(score, 101)
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))

	// half of 1000 steps is sponsored, 400 virtual and 100 from principal
	c, err := l.ChargeFee(bob, &score, big.NewInt(1_000), price, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(400), c.VirtualSteps.Int64())
	assert.Equal(t, int64(100), c.DepositSteps.Int64())
	assert.Equal(t, int64(500), c.PayerSteps.Int64())
	assert.Equal(t, int64(600), c.Fee.Int64())
	assert.Equal(t, int64(1_000_000-500), mustBalance(t, l, bob).Int64())

	info, err := l.DepositInfo(score, 11)
	require.NoError(t, err)
	assert.Equal(t, uint8(50), info.Proportion)
	assert.Equal(t, int64(0), info.AvailableVirtualStep.Int64())
	assert.Equal(t, 0, info.AvailableDeposit.Cmp(new(big.Int).Sub(icxOf(5_000), big.NewInt(100))))

	// expired deposits sponsor nothing
	c, err = l.ChargeFee(bob, &score, big.NewInt(10), price, 10+MinDepositTerm)
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.PayerSteps.Int64())
	assert.Equal(t, int64(0), c.DepositSteps.Int64())
}
