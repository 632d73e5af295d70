// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fee keeps account balances, settles transaction fees and manages the
// virtual step deposits contracts use to sponsor their callers.
package fee

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/kv"
	"github.com/vechain/scoreloop/log"
)

var logger = log.WithContext("pkg", "fee")

// Storage prefixes of the fee subsystem.
var (
	balanceBucket = kv.Bucket([]byte{0x01})
	depositBucket = kv.Bucket([]byte{0x02})
	metaBucket    = kv.Bucket([]byte{0x03})
	lockedBucket  = kv.Bucket([]byte{0x04})
)

// Ledger is the balance ledger over a state.
type Ledger struct {
	balances kv.GetPutter
	deposits kv.GetPutter
	metas    kv.GetPutter
	locked   *LockedList
}

// New creates a ledger. A nil locked list means no address is locked.
func New(st kv.GetPutter, locked *LockedList) *Ledger {
	if locked == nil {
		locked = NewLockedList(nil)
	}
	return &Ledger{
		balances: balanceBucket.NewGetPutter(st),
		deposits: depositBucket.NewGetPutter(st),
		metas:    metaBucket.NewGetPutter(st),
		locked:   locked,
	}
}

// Locked returns the locked address list.
func (l *Ledger) Locked() *LockedList {
	return l.locked
}

func (l *Ledger) balance(addr icx.Address) (*uint256.Int, error) {
	data, err := l.balances.Get(addr.Bytes())
	if err != nil {
		if l.balances.IsNotFound(err) {
			return new(uint256.Int), nil
		}
		return nil, err
	}
	return new(uint256.Int).SetBytes(data), nil
}

func (l *Ledger) setBalance(addr icx.Address, v *uint256.Int) error {
	if v.IsZero() {
		return l.balances.Delete(addr.Bytes())
	}
	return l.balances.Put(addr.Bytes(), v.Bytes())
}

// Balance returns the balance of addr.
func (l *Ledger) Balance(addr icx.Address) (*big.Int, error) {
	b, err := l.balance(addr)
	if err != nil {
		return nil, err
	}
	return b.ToBig(), nil
}

// SetBalance sets the balance of addr.
func (l *Ledger) SetBalance(addr icx.Address, value *big.Int) error {
	v, err := toU256("balance", value)
	if err != nil {
		return err
	}
	return l.setBalance(addr, v)
}

// AddBalance credits addr with value.
func (l *Ledger) AddBalance(addr icx.Address, value *big.Int) error {
	v, err := toU256("value", value)
	if err != nil {
		return err
	}
	return l.add(addr, v)
}

func (l *Ledger) add(addr icx.Address, v *uint256.Int) error {
	b, err := l.balance(addr)
	if err != nil {
		return err
	}
	if _, overflow := b.AddOverflow(b, v); overflow {
		return icx.Errorf(icx.InvalidParams, "Balance overflow: address=%s value=%s", addr, v.Dec())
	}
	return l.setBalance(addr, b)
}

// SubBalance debits addr with value.
func (l *Ledger) SubBalance(addr icx.Address, value *big.Int) error {
	v, err := toU256("value", value)
	if err != nil {
		return err
	}
	return l.sub(addr, v)
}

func (l *Ledger) sub(addr icx.Address, v *uint256.Int) error {
	b, err := l.balance(addr)
	if err != nil {
		return err
	}
	if b.Lt(v) {
		return icx.Errorf(icx.OutOfBalance, "Out of balance: address=%s balance=%s value=%s", addr, b.Dec(), v.Dec())
	}
	return l.setBalance(addr, b.Sub(b, v))
}

// Transfer moves value from one account to another. It fails with InvalidRequest if the
// sender is locked at revision.
func (l *Ledger) Transfer(revision int, from, to icx.Address, value *big.Int) error {
	if err := l.locked.Check(revision, from); err != nil {
		return err
	}
	if value.Sign() < 0 {
		return icx.Errorf(icx.InvalidParams, "Invalid value: %v", value)
	}
	if value.Sign() == 0 || from == to {
		return nil
	}
	v, err := toU256("value", value)
	if err != nil {
		return err
	}
	if err := l.sub(from, v); err != nil {
		return err
	}
	return l.add(to, v)
}

// CheckBalance fails with OutOfBalance when balance < value + fee.
func CheckBalance(from icx.Address, balance, value, fee *big.Int) error {
	if balance.Sign() == 0 {
		logger.Warn("zero balance",
			"from", from,
			"balance", balance,
			"value", value,
			"fee", fee,
		)
	}
	total := new(big.Int).Add(value, fee)
	if balance.Cmp(total) < 0 {
		return icx.Errorf(icx.OutOfBalance, "Out of balance: from=%s balance=%v value=%v fee=%v", from, balance, value, fee)
	}
	return nil
}

func toU256(name string, v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid %s: %v", name, v)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid %s: out of range %v", name, v)
	}
	return u, nil
}
