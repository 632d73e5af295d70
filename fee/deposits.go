// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fee

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/scoreloop/icx"
)

// Deposit terms, in blocks.
const (
	BlocksInOneMonth = 1_296_000
	MinDepositTerm   = BlocksInOneMonth
	MaxDepositTerm   = BlocksInOneMonth * 24
	// VirtualStepRate is the monthly rate, in percent of the amount, issued as virtual steps.
	VirtualStepRate = 8
)

// Deposit amount bounds, in loop.
var (
	MinDepositAmount = new(big.Int).Mul(big.NewInt(5_000), icx.ICX)
	MaxDepositAmount = new(big.Int).Mul(big.NewInt(100_000), icx.ICX)
)

// DepositMeta is the per contract head of the deposit list.
type DepositMeta struct {
	Head          icx.Bytes32
	Tail          icx.Bytes32
	AvailableHead icx.Bytes32 // first deposit which may have virtual steps left
	Proportion    uint8       // percent of the fee the contract sponsors
}

func (l *Ledger) meta(score icx.Address) (*DepositMeta, error) {
	var m DepositMeta
	data, err := l.metas.Get(score.Bytes())
	if err != nil {
		if l.metas.IsNotFound(err) {
			return &m, nil
		}
		return nil, err
	}
	if err := rlp.DecodeBytes(data, &m); err != nil {
		return nil, icx.Errorf(icx.Fatal, "decode deposit meta of %s: %v", score, err)
	}
	return &m, nil
}

func (l *Ledger) setMeta(score icx.Address, m *DepositMeta) error {
	if m.Head.IsZero() {
		return l.metas.Delete(score.Bytes())
	}
	data, err := rlp.EncodeToBytes(m)
	if err != nil {
		return err
	}
	return l.metas.Put(score.Bytes(), data)
}

// Deposit returns the deposit with the given id.
func (l *Ledger) Deposit(id icx.Bytes32) (*Deposit, error) {
	data, err := l.deposits.Get(id[:])
	if err != nil {
		if l.deposits.IsNotFound(err) {
			return nil, icx.Errorf(icx.InvalidParams, "Deposit not found: id=%s", id)
		}
		return nil, err
	}
	return DecodeDeposit(id, data)
}

func (l *Ledger) putDeposit(d *Deposit) error {
	return l.deposits.Put(d.ID[:], d.Encode())
}

// Deposits returns the deposits of score in list order.
func (l *Ledger) Deposits(score icx.Address) ([]*Deposit, error) {
	m, err := l.meta(score)
	if err != nil {
		return nil, err
	}
	var list []*Deposit
	err = l.walk(m.Head, func(d *Deposit) (bool, error) {
		list = append(list, d)
		return true, nil
	})
	return list, err
}

// walk visits deposits from id following NextID, until fn returns false.
func (l *Ledger) walk(id icx.Bytes32, fn func(d *Deposit) (bool, error)) error {
	for !id.IsZero() {
		d, err := l.Deposit(id)
		if err != nil {
			return err
		}
		if cont, err := fn(d); err != nil || !cont {
			return err
		}
		id = d.NextID
	}
	return nil
}

// VirtualSteps returns the virtual steps issued for amount deposited for term blocks.
func VirtualSteps(amount *big.Int, term uint64, stepPrice *big.Int) *big.Int {
	if stepPrice.Sign() <= 0 {
		return new(big.Int)
	}
	v := new(big.Int).Mul(amount, new(big.Int).SetUint64(term))
	v.Mul(v, big.NewInt(VirtualStepRate))
	v.Quo(v, big.NewInt(100*BlocksInOneMonth))
	return v.Quo(v, stepPrice)
}

// AddDeposit debits amount from sender and appends a deposit to the list of score.
func (l *Ledger) AddDeposit(id icx.Bytes32, score, sender icx.Address, amount *big.Int, height, term uint64, stepPrice *big.Int) (*Deposit, error) {
	if !score.IsContract() {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid score address: %s", score)
	}
	if term < MinDepositTerm || term > MaxDepositTerm {
		return nil, icx.Errorf(icx.InvalidRequest, "Invalid deposit term: %d", term)
	}
	if amount.Cmp(MinDepositAmount) < 0 || amount.Cmp(MaxDepositAmount) > 0 {
		return nil, icx.Errorf(icx.InvalidRequest, "Invalid deposit amount: %v", amount)
	}
	if has, err := l.deposits.Has(id[:]); err != nil {
		return nil, err
	} else if has {
		return nil, icx.Errorf(icx.InvalidRequest, "Deposit already exists: id=%s", id)
	}
	if err := l.SubBalance(sender, amount); err != nil {
		return nil, err
	}

	d := &Deposit{ID: id, Score: score, Sender: sender}
	d.Amount.SetFromBig(amount)
	d.Created.SetUint64(height)
	d.Expires.SetUint64(height + term)
	if overflow := d.VirtualStepIssued.SetFromBig(VirtualSteps(amount, term, stepPrice)); overflow {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid deposit: virtual steps overflow")
	}

	m, err := l.meta(score)
	if err != nil {
		return nil, err
	}
	if m.Tail.IsZero() {
		m.Head, m.Tail, m.AvailableHead = id, id, id
		m.Proportion = 100
	} else {
		tail, err := l.Deposit(m.Tail)
		if err != nil {
			return nil, err
		}
		tail.NextID = id
		d.PrevID = m.Tail
		if err := l.putDeposit(tail); err != nil {
			return nil, err
		}
		m.Tail = id
		if m.AvailableHead.IsZero() {
			m.AvailableHead = id
		}
	}
	if err := l.putDeposit(d); err != nil {
		return nil, err
	}
	if err := l.setMeta(score, m); err != nil {
		return nil, err
	}
	return d, nil
}

// Withdrawal is the outcome of a withdrawal.
type Withdrawal struct {
	Deposit *Deposit
	Refund  *big.Int
	Penalty *big.Int
}

// WithdrawDeposit unlinks the deposit and refunds its unused principal to the depositor.
// Before expiry, the virtual steps already spent are charged as penalty.
func (l *Ledger) WithdrawDeposit(id icx.Bytes32, sender icx.Address, height uint64, stepPrice *big.Int) (*Withdrawal, error) {
	d, err := l.Deposit(id)
	if err != nil {
		return nil, err
	}
	if d.Sender != sender {
		return nil, icx.Errorf(icx.AccessDenied, "Invalid sender: %s is not the depositor of %s", sender, id)
	}

	refund := d.Remaining().ToBig()
	penalty := new(big.Int)
	if !d.IsExpired(height) {
		penalty.Mul(d.VirtualStepUsed.ToBig(), stepPrice)
		if penalty.Cmp(refund) > 0 {
			penalty.Set(refund)
		}
		refund.Sub(refund, penalty)
	}

	if err := l.unlink(d); err != nil {
		return nil, err
	}
	if err := l.AddBalance(sender, refund); err != nil {
		return nil, err
	}
	if penalty.Sign() > 0 {
		if err := l.AddBalance(icx.TreasuryAddress, penalty); err != nil {
			return nil, err
		}
	}
	return &Withdrawal{Deposit: d, Refund: refund, Penalty: penalty}, nil
}

func (l *Ledger) unlink(d *Deposit) error {
	m, err := l.meta(d.Score)
	if err != nil {
		return err
	}
	if d.PrevID.IsZero() {
		m.Head = d.NextID
	} else {
		prev, err := l.Deposit(d.PrevID)
		if err != nil {
			return err
		}
		prev.NextID = d.NextID
		if err := l.putDeposit(prev); err != nil {
			return err
		}
	}
	if d.NextID.IsZero() {
		m.Tail = d.PrevID
	} else {
		next, err := l.Deposit(d.NextID)
		if err != nil {
			return err
		}
		next.PrevID = d.PrevID
		if err := l.putDeposit(next); err != nil {
			return err
		}
	}
	if m.AvailableHead == d.ID {
		m.AvailableHead = d.NextID
	}
	if err := l.deposits.Delete(d.ID[:]); err != nil {
		return err
	}
	return l.setMeta(d.Score, m)
}

// SetProportion sets the percentage of fees score sponsors from its deposits.
func (l *Ledger) SetProportion(score icx.Address, proportion int) error {
	if proportion < 0 || proportion > 100 {
		return icx.Errorf(icx.InvalidParams, "Invalid proportion: %d", proportion)
	}
	m, err := l.meta(score)
	if err != nil {
		return err
	}
	if m.Head.IsZero() {
		return icx.Errorf(icx.InvalidRequest, "No deposit: score=%s", score)
	}
	m.Proportion = uint8(proportion)
	return l.setMeta(score, m)
}

// DepositInfo summarizes the deposits of a contract.
type DepositInfo struct {
	Score                icx.Address `json:"scoreAddress"`
	Deposits             []*Deposit  `json:"deposits"`
	Proportion           uint8       `json:"proportion"`
	AvailableVirtualStep *big.Int    `json:"availableVirtualStep"`
	AvailableDeposit     *big.Int    `json:"availableDeposit"`
}

// DepositInfo returns the deposits of score and what is spendable at height, nil if none.
func (l *Ledger) DepositInfo(score icx.Address, height uint64) (*DepositInfo, error) {
	m, err := l.meta(score)
	if err != nil {
		return nil, err
	}
	if m.Head.IsZero() {
		return nil, nil
	}
	info := &DepositInfo{
		Score:                score,
		Proportion:           m.Proportion,
		AvailableVirtualStep: new(big.Int),
		AvailableDeposit:     new(big.Int),
	}
	err = l.walk(m.Head, func(d *Deposit) (bool, error) {
		info.Deposits = append(info.Deposits, d)
		if !d.IsExpired(height) {
			info.AvailableVirtualStep.Add(info.AvailableVirtualStep, d.RemainingVirtualSteps().ToBig())
			info.AvailableDeposit.Add(info.AvailableDeposit, d.Remaining().ToBig())
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
