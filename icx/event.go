// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package icx

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EventLog is a log emitted by a contract. The first indexed entry is the event signature.
type EventLog struct {
	Score   Address  `json:"scoreAddress"`
	Indexed []string `json:"indexed"`
	Data    []string `json:"data"`
}

// NewEventLog builds an event log from the signature and argument values.
// The first indexed arguments go into Indexed, the rest into Data.
func NewEventLog(score Address, signature string, indexed int, args ...any) EventLog {
	ev := EventLog{Score: score, Indexed: []string{signature}, Data: []string{}}
	for i, arg := range args {
		s := formatEventArg(arg)
		if i < indexed {
			ev.Indexed = append(ev.Indexed, s)
		} else {
			ev.Data = append(ev.Data, s)
		}
	}
	return ev
}

func formatEventArg(arg any) string {
	switch v := arg.(type) {
	case string:
		return v
	case *big.Int:
		return hexutil.EncodeBig(v)
	case int:
		return hexutil.EncodeBig(big.NewInt(int64(v)))
	case int64:
		return hexutil.EncodeBig(big.NewInt(v))
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(arg)
}
