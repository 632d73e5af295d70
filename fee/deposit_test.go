// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fee

import (
	"math/big"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/scoreloop/icx"
)

var stepPrice = big.NewInt(12_500_000_000)

func depositID(b byte) icx.Bytes32 {
	return icx.BytesToBytes32([]byte{b})
}

func TestDepositCodec(t *testing.T) {
	assert.Equal(t, 298, DepositRecordLength)

	f := fuzz.New().NilChance(0)
	for i := 0; i < 50; i++ {
		var (
			body1, body2 [20]byte
			fields       [6][4]uint64
			prev, next   icx.Bytes32
		)
		f.Fuzz(&body1)
		f.Fuzz(&body2)
		f.Fuzz(&fields)
		f.Fuzz(&prev)
		f.Fuzz(&next)

		d := &Deposit{
			ID:     depositID(1),
			Score:  icx.NewContractAddress(body1[:]),
			Sender: icx.NewEOAAddress(body2[:]),
			PrevID: prev,
			NextID: next,
		}
		for i, p := range []*uint256.Int{&d.Amount, &d.Used, &d.Created, &d.Expires, &d.VirtualStepIssued, &d.VirtualStepUsed} {
			*p = uint256.Int(fields[i])
		}

		enc := d.Encode()
		require.Len(t, enc, DepositRecordLength)
		assert.Equal(t, byte(0x01), enc[0])
		assert.Equal(t, byte(0x00), enc[21])

		dec, err := DecodeDeposit(d.ID, enc)
		require.NoError(t, err)
		assert.Equal(t, d, dec)
	}
}

func TestDepositCodecLayout(t *testing.T) {
	d := &Deposit{Score: score, Sender: alice}
	d.Amount.SetUint64(0x0102)
	d.Expires.SetUint64(7)
	d.NextID = depositID(0xee)

	enc := d.Encode()
	// amount is the first field after the two addresses, big-endian
	assert.Equal(t, []byte{0x01, 0x02}, enc[42+30:42+32])
	// expires is the fourth field
	assert.Equal(t, byte(7), enc[42+4*32-1])
	assert.Equal(t, byte(0xee), enc[len(enc)-1])
}

func TestDepositCodecErrors(t *testing.T) {
	_, err := DecodeDeposit(depositID(1), make([]byte, 297))
	assert.Equal(t, icx.InvalidFormat, icx.KindOf(err))

	// score must be a contract
	enc := (&Deposit{Score: score, Sender: alice}).Encode()
	enc[0] = 0x00
	_, err = DecodeDeposit(depositID(1), enc)
	assert.Equal(t, icx.InvalidFormat, icx.KindOf(err))

	// prefix byte out of range
	enc = (&Deposit{Score: score, Sender: alice}).Encode()
	enc[21] = 0x07
	_, err = DecodeDeposit(depositID(1), enc)
	assert.Equal(t, icx.InvalidFormat, icx.KindOf(err))
}

func fund(t *testing.T, l *Ledger, addr icx.Address, icxAmount int64) {
	require.NoError(t, l.SetBalance(addr, new(big.Int).Mul(big.NewInt(icxAmount), icx.ICX)))
}

func icxOf(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), icx.ICX)
}

func ids(list []*Deposit) (out []icx.Bytes32) {
	for _, d := range list {
		out = append(out, d.ID)
	}
	return
}

func TestDepositList(t *testing.T) {
	l := newLedger(t)
	fund(t, l, alice, 100_000)

	for i := byte(1); i <= 3; i++ {
		_, err := l.AddDeposit(depositID(i), score, alice, icxOf(5_000), 100, MinDepositTerm, stepPrice)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, mustBalance(t, l, alice).Cmp(icxOf(85_000)))

	list, err := l.Deposits(score)
	require.NoError(t, err)
	assert.Equal(t, []icx.Bytes32{depositID(1), depositID(2), depositID(3)}, ids(list))
	assert.True(t, list[0].PrevID.IsZero())
	assert.Equal(t, depositID(2), list[0].NextID)
	assert.Equal(t, depositID(1), list[1].PrevID)
	assert.True(t, list[2].NextID.IsZero())

	// unlink the middle
	w, err := l.WithdrawDeposit(depositID(2), alice, 100+MinDepositTerm, stepPrice)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Refund.Cmp(icxOf(5_000)))
	assert.Equal(t, int64(0), w.Penalty.Int64())

	list, err = l.Deposits(score)
	require.NoError(t, err)
	assert.Equal(t, []icx.Bytes32{depositID(1), depositID(3)}, ids(list))
	assert.Equal(t, depositID(3), list[0].NextID)
	assert.Equal(t, depositID(1), list[1].PrevID)

	// head and tail
	_, err = l.WithdrawDeposit(depositID(1), alice, 100+MinDepositTerm, stepPrice)
	require.NoError(t, err)
	_, err = l.WithdrawDeposit(depositID(3), alice, 100+MinDepositTerm, stepPrice)
	require.NoError(t, err)
	list, err = l.Deposits(score)
	require.NoError(t, err)
	assert.Empty(t, list)

	info, err := l.DepositInfo(score, 0)
	require.NoError(t, err)
	assert.Nil(t, info)
	assert.Equal(t, 0, mustBalance(t, l, alice).Cmp(icxOf(100_000)))
}

func TestAddDepositErrors(t *testing.T) {
	l := newLedger(t)
	fund(t, l, alice, 4_000)

	_, err := l.AddDeposit(depositID(1), score, alice, icxOf(5_000), 1, MinDepositTerm-1, stepPrice)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
	_, err = l.AddDeposit(depositID(1), score, alice, icxOf(4_999), 1, MinDepositTerm, stepPrice)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
	_, err = l.AddDeposit(depositID(1), score, alice, icxOf(100_001), 1, MinDepositTerm, stepPrice)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
	_, err = l.AddDeposit(depositID(1), alice, alice, icxOf(5_000), 1, MinDepositTerm, stepPrice)
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))
	_, err = l.AddDeposit(depositID(1), score, alice, icxOf(5_000), 1, MinDepositTerm, stepPrice)
	assert.Equal(t, icx.OutOfBalance, icx.KindOf(err))

	fund(t, l, alice, 20_000)
	_, err = l.AddDeposit(depositID(1), score, alice, icxOf(5_000), 1, MinDepositTerm, stepPrice)
	require.NoError(t, err)
	_, err = l.AddDeposit(depositID(1), score, alice, icxOf(5_000), 1, MinDepositTerm, stepPrice)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))

	_, err = l.WithdrawDeposit(depositID(1), bob, 2, stepPrice)
	assert.Equal(t, icx.AccessDenied, icx.KindOf(err))
	_, err = l.WithdrawDeposit(depositID(9), alice, 2, stepPrice)
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))
}

func TestVirtualSteps(t *testing.T) {
	// 5000 icx for one month at 8% is 400 icx worth of steps
	v := VirtualSteps(icxOf(5_000), MinDepositTerm, stepPrice)
	want := new(big.Int).Quo(icxOf(400), stepPrice)
	assert.Equal(t, 0, want.Cmp(v))

	assert.Equal(t, int64(0), VirtualSteps(icxOf(1), MinDepositTerm, big.NewInt(0)).Int64())
}
