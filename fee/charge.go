// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fee

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/vechain/scoreloop/icx"
)

// Charge is the settlement of one transaction fee.
type Charge struct {
	Payer        icx.Address
	PayerSteps   *big.Int // steps paid by the payer balance
	VirtualSteps *big.Int // virtual steps consumed from deposits
	DepositSteps *big.Int // steps paid from deposit principal
	Fee          *big.Int // loop paid, payer and deposit principal together
}

// ChargeFee settles stepUsed steps of a transaction from payer calling score.
// The share the contract sponsors is taken from its virtual steps first, then from the
// principal of its deposits. Whatever the contract cannot cover falls back to the payer.
// Fees are credited to the treasury.
func (l *Ledger) ChargeFee(payer icx.Address, score *icx.Address, stepUsed, stepPrice *big.Int, height uint64) (*Charge, error) {
	c := &Charge{
		Payer:        payer,
		PayerSteps:   new(big.Int).Set(stepUsed),
		VirtualSteps: new(big.Int),
		DepositSteps: new(big.Int),
		Fee:          new(big.Int),
	}

	if score != nil && score.IsContract() && stepUsed.Sign() > 0 {
		if err := l.chargeScore(c, *score, stepPrice, height); err != nil {
			return nil, err
		}
	}

	payerFee := new(big.Int).Mul(c.PayerSteps, stepPrice)
	if err := l.SubBalance(payer, payerFee); err != nil {
		return nil, err
	}
	c.Fee.Add(c.Fee, payerFee)
	if err := l.AddBalance(icx.TreasuryAddress, c.Fee); err != nil {
		return nil, err
	}
	return c, nil
}

func (l *Ledger) chargeScore(c *Charge, score icx.Address, stepPrice *big.Int, height uint64) error {
	m, err := l.meta(score)
	if err != nil {
		return err
	}
	if m.Head.IsZero() || m.Proportion == 0 {
		return nil
	}

	share := new(big.Int).Mul(c.PayerSteps, big.NewInt(int64(m.Proportion)))
	share.Quo(share, big.NewInt(100))
	remaining, overflow := uint256.FromBig(share)
	if overflow {
		return icx.Errorf(icx.InvalidParams, "Invalid step used: %v", c.PayerSteps)
	}
	sponsored := remaining.Clone()

	// virtual steps, starting from the first deposit that may have some left
	var (
		visited bool
		found   bool
		head    icx.Bytes32
	)
	err = l.walk(m.AvailableHead, func(d *Deposit) (bool, error) {
		visited = true
		if d.IsExpired(height) || d.RemainingVirtualSteps().IsZero() {
			if !found {
				head = d.NextID
			}
			return true, nil
		}
		take := d.RemainingVirtualSteps()
		if remaining.Lt(take) {
			take = remaining.Clone()
		}
		d.VirtualStepUsed.Add(&d.VirtualStepUsed, take)
		remaining.Sub(remaining, take)
		c.VirtualSteps.Add(c.VirtualSteps, take.ToBig())
		if !found {
			if d.RemainingVirtualSteps().IsZero() {
				head = d.NextID
			} else {
				head, found = d.ID, true
			}
		}
		if err := l.putDeposit(d); err != nil {
			return false, err
		}
		return !remaining.IsZero(), nil
	})
	if err != nil {
		return err
	}
	if visited {
		m.AvailableHead = head
	}

	// principal
	if !remaining.IsZero() && stepPrice.Sign() > 0 {
		price, _ := uint256.FromBig(stepPrice)
		err = l.walk(m.Head, func(d *Deposit) (bool, error) {
			if d.IsExpired(height) {
				return true, nil
			}
			affordable := new(uint256.Int).Div(d.Remaining(), price)
			if affordable.IsZero() {
				return true, nil
			}
			take := affordable
			if remaining.Lt(affordable) {
				take = remaining.Clone()
			}
			cost := new(uint256.Int).Mul(take, price)
			d.Used.Add(&d.Used, cost)
			remaining.Sub(remaining, take)
			c.DepositSteps.Add(c.DepositSteps, take.ToBig())
			c.Fee.Add(c.Fee, cost.ToBig())
			if err := l.putDeposit(d); err != nil {
				return false, err
			}
			return !remaining.IsZero(), nil
		})
		if err != nil {
			return err
		}
	}

	sponsored.Sub(sponsored, remaining)
	c.PayerSteps.Sub(c.PayerSteps, sponsored.ToBig())
	return l.setMeta(score, m)
}
