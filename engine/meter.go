// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"math/big"

	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/netvalue"
)

// stepMeter accounts the steps of one transaction against its limit.
type stepMeter struct {
	costs netvalue.StepCosts
	limit *big.Int
	used  *big.Int
}

func newStepMeter(costs netvalue.StepCosts, limit *big.Int) *stepMeter {
	return &stepMeter{costs: costs, limit: new(big.Int).Set(limit), used: new(big.Int)}
}

// consume charges n units of step type t. Refunds of negative costs never take the
// used steps below zero. Going over the limit uses up the whole limit.
func (m *stepMeter) consume(t icx.StepType, n int64) error {
	cost := new(big.Int).Mul(big.NewInt(m.costs.Get(t)), big.NewInt(n))
	m.used.Add(m.used, cost)
	if m.used.Sign() < 0 {
		m.used.SetInt64(0)
	}
	if m.used.Cmp(m.limit) > 0 {
		m.used.Set(m.limit)
		return icx.Errorf(icx.OutOfStep, "Out of step: %s", t)
	}
	return nil
}

func (m *stepMeter) Used() *big.Int {
	return new(big.Int).Set(m.used)
}
