// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/tx"
)

// Block is a block to invoke. Transactions are given as their request params.
type Block struct {
	Height    uint64
	Hash      icx.Bytes32
	PrevHash  icx.Bytes32
	Timestamp uint64
	Txs       []tx.Params
}

// Receipt status.
const (
	StatusFailure = 0
	StatusSuccess = 1
)

// Failure tells why a transaction failed.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newFailure(err error) *Failure {
	return &Failure{Code: int(icx.KindOf(err)), Message: err.Error()}
}

// Receipt is the result of one transaction.
type Receipt struct {
	TxHash             icx.Bytes32    `json:"txHash"`
	TxIndex            uint32         `json:"txIndex"`
	Status             int            `json:"status"`
	To                 icx.Address    `json:"to"`
	ScoreAddress       *icx.Address   `json:"scoreAddress,omitempty"`
	StepUsed           *hexutil.Big   `json:"stepUsed"`
	StepPrice          *hexutil.Big   `json:"stepPrice"`
	CumulativeStepUsed *hexutil.Big   `json:"cumulativeStepUsed"`
	Failure            *Failure       `json:"failure,omitempty"`
	EventLogs          []icx.EventLog `json:"eventLogs"`
}

// Succeeded reports whether the transaction succeeded.
func (r *Receipt) Succeeded() bool {
	return r.Status == StatusSuccess
}

// BlockResult is the outcome of an invoked block.
type BlockResult struct {
	Height   uint64
	Hash     icx.Bytes32
	Receipts []*Receipt
}

// meta is the persisted head of the committed chain.
type meta struct {
	Height uint64
	Hash   icx.Bytes32
}

func bigOf(v *big.Int) *hexutil.Big {
	return (*hexutil.Big)(new(big.Int).Set(v))
}
