// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fee

import (
	"github.com/holiman/uint256"
	"github.com/vechain/scoreloop/icx"
)

const (
	addressLength = 21
	fieldLength   = 32

	// DepositRecordLength is the width of an encoded deposit.
	DepositRecordLength = 2*addressLength + 8*fieldLength
)

// Deposit is a virtual step deposit, keyed by the hash of the transaction that made it.
// Deposits of one contract form a doubly linked list through PrevID and NextID,
// a zero id terminates the list.
type Deposit struct {
	ID                icx.Bytes32 `json:"id"`
	Score             icx.Address `json:"scoreAddress"`
	Sender            icx.Address `json:"sender"`
	Amount            uint256.Int `json:"depositAmount"`
	Used              uint256.Int `json:"depositUsed"`
	Created           uint256.Int `json:"created"`
	Expires           uint256.Int `json:"expires"`
	VirtualStepIssued uint256.Int `json:"virtualStepIssued"`
	VirtualStepUsed   uint256.Int `json:"virtualStepUsed"`
	PrevID            icx.Bytes32 `json:"prevId"`
	NextID            icx.Bytes32 `json:"nextId"`
}

// Encode returns the fixed width big-endian record. The id is not part of the record.
func (d *Deposit) Encode() []byte {
	b := make([]byte, 0, DepositRecordLength)
	b = append(b, d.Score.Bytes()...)
	b = append(b, d.Sender.Bytes()...)
	for _, f := range []*uint256.Int{&d.Amount, &d.Used, &d.Created, &d.Expires, &d.VirtualStepIssued, &d.VirtualStepUsed} {
		w := f.Bytes32()
		b = append(b, w[:]...)
	}
	b = append(b, d.PrevID[:]...)
	b = append(b, d.NextID[:]...)
	return b
}

// DecodeDeposit decodes the record of the deposit with the given id.
func DecodeDeposit(id icx.Bytes32, b []byte) (*Deposit, error) {
	if len(b) != DepositRecordLength {
		return nil, icx.Errorf(icx.InvalidFormat, "Invalid deposit record: length=%d", len(b))
	}
	d := &Deposit{ID: id}

	score := icx.AddressFromBytes(b[:addressLength])
	if score == nil || !score.IsContract() {
		return nil, icx.Errorf(icx.InvalidFormat, "Invalid deposit record: score=%x", b[:addressLength])
	}
	sender := icx.AddressFromBytes(b[addressLength : 2*addressLength])
	if sender == nil || sender.IsContract() {
		return nil, icx.Errorf(icx.InvalidFormat, "Invalid deposit record: sender=%x", b[addressLength:2*addressLength])
	}
	d.Score, d.Sender = *score, *sender

	off := 2 * addressLength
	for _, f := range []*uint256.Int{&d.Amount, &d.Used, &d.Created, &d.Expires, &d.VirtualStepIssued, &d.VirtualStepUsed} {
		f.SetBytes32(b[off : off+fieldLength])
		off += fieldLength
	}
	copy(d.PrevID[:], b[off:off+fieldLength])
	copy(d.NextID[:], b[off+fieldLength:])
	return d, nil
}

// RemainingVirtualSteps returns the virtual steps left to spend.
func (d *Deposit) RemainingVirtualSteps() *uint256.Int {
	if d.VirtualStepUsed.Cmp(&d.VirtualStepIssued) >= 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(&d.VirtualStepIssued, &d.VirtualStepUsed)
}

// Remaining returns the unspent principal.
func (d *Deposit) Remaining() *uint256.Int {
	if d.Used.Cmp(&d.Amount) >= 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(&d.Amount, &d.Used)
}

// IsExpired reports whether the deposit is expired at height.
func (d *Deposit) IsExpired(height uint64) bool {
	return d.Expires.CmpUint64(height) <= 0
}
