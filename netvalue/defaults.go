// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package netvalue

import (
	"math/big"

	"github.com/vechain/scoreloop/icx"
)

// DefaultStepPrice is 12.5 gloop.
var DefaultStepPrice = big.NewInt(0x2e90edd00)

// DefaultStepCosts returns the step costs in effect before migration.
func DefaultStepCosts() StepCosts {
	v, _ := NewStepCosts(map[icx.StepType]int64{
		icx.StepTypeDefault:          0x186a0,
		icx.StepTypeContractCall:     0x61a8,
		icx.StepTypeContractCreate:   0x3b9aca00,
		icx.StepTypeContractUpdate:   0x5f5e1000,
		icx.StepTypeContractDestruct: -0x11170,
		icx.StepTypeContractSet:      0x7530,
		icx.StepTypeGet:              0x0,
		icx.StepTypeSet:              0x140,
		icx.StepTypeReplace:          0x50,
		icx.StepTypeDelete:           -0xf0,
		icx.StepTypeInput:            0xc8,
		icx.StepTypeEventLog:         0x64,
		icx.StepTypeAPICall:          0x2710,
	})
	return v
}

// DefaultMaxStepLimits returns the step limit ceilings in effect before migration.
func DefaultMaxStepLimits() MaxStepLimits {
	return MaxStepLimits{
		icx.ContextTypeInvoke: big.NewInt(0x9502f900),
		icx.ContextTypeQuery:  big.NewInt(0x2faf080),
	}
}

// Defaults returns a full set of values, suitable for migration.
func Defaults() []Value {
	return []Value{
		RevisionCode(icx.LatestRevision),
		RevisionName("1.0.0"),
		StepPrice{new(big.Int).Set(DefaultStepPrice)},
		DefaultStepCosts(),
		DefaultMaxStepLimits(),
		NewScoreBlackList(),
		ImportWhiteList{"os": {"path"}, "base.exception": {"ExceptionCode", "SCOREBaseException"}},
		ServiceFee | ServiceAudit,
	}
}
