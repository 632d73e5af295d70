// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vechain/scoreloop/governance"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/prep"
	"github.com/vechain/scoreloop/tx"
)

// QueryRequest is a read only request served against the last committed block.
type QueryRequest struct {
	Method string    `json:"method"`
	Params tx.Params `json:"params,omitempty"`
}

// queryMethod enumerates the read only methods served by Query.
type queryMethod int

const (
	qGetBalance queryMethod = iota
	qGetScoreStatus
	qGetStepPrice
	qGetStepCosts
	qGetMaxStepLimit
	qGetRevision
	qGetDepositInfo
	qGetPRep
	qGetPReps
	qGetDelegation
	qCall
)

var queryMethods = map[string]queryMethod{
	"getBalance":      qGetBalance,
	"getScoreStatus":  qGetScoreStatus,
	"getStepPrice":    qGetStepPrice,
	"getStepCosts":    qGetStepCosts,
	"getMaxStepLimit": qGetMaxStepLimit,
	"getRevision":     qGetRevision,
	"getDepositInfo":  qGetDepositInfo,
	"getPRep":         qGetPRep,
	"getPReps":        qGetPReps,
	"getDelegation":   qGetDelegation,
	"call":            qCall,
}

func (e *Engine) query(v *view, m queryMethod, name string, params tx.Params) (any, error) {
	switch m {
	case qGetBalance:
		addr, err := requireAddress(params, "address")
		if err != nil {
			return nil, err
		}
		b, err := v.ledger.Balance(addr)
		if err != nil {
			return nil, err
		}
		return (*hexutil.Big)(b), nil
	case qGetScoreStatus:
		addr, err := requireAddress(params, "address")
		if err != nil {
			return nil, err
		}
		return v.deploys.ScoreStatus(addr)
	case qGetStepPrice:
		return (*hexutil.Big)(v.values.StepPrice()), nil
	case qGetStepCosts:
		costs := make(map[string]*hexutil.Big)
		for t, c := range v.values.StepCosts().Map() {
			costs[string(t)] = (*hexutil.Big)(big.NewInt(c))
		}
		return costs, nil
	case qGetMaxStepLimit:
		ctxName, err := requireString(params, "contextType")
		if err != nil {
			return nil, err
		}
		ctx := icx.ContextType(ctxName)
		if !ctx.IsValid() {
			return nil, icx.Errorf(icx.InvalidParams, "Invalid contextType: %s", ctxName)
		}
		return (*hexutil.Big)(v.values.MaxStepLimit(ctx)), nil
	case qGetRevision:
		return map[string]any{
			"code": hexutil.Uint64(v.values.Revision()),
			"name": v.values.RevisionName(),
		}, nil
	case qGetDepositInfo:
		addr, err := requireAddress(params, "address")
		if err != nil {
			return nil, err
		}
		if !addr.IsContract() {
			return nil, icx.Errorf(icx.InvalidParams, "Invalid address: %s is not a contract", addr)
		}
		return v.ledger.DepositInfo(addr, v.head.Height)
	case qGetPRep, qGetPReps, qGetDelegation:
		tc := e.queryContext(v, icx.Address{})
		manager := prep.NewManager(v.st, v.ranking, v.ledger)
		return invokeSystem(&sysEnv{tc: tc, manager: manager}, name, params)
	case qCall:
		return e.readOnlyCall(v, params)
	}
	return nil, icx.Errorf(icx.Fatal, "unhandled query method %d", m)
}

// queryContext is a read only transaction context metered with the query step limit.
func (e *Engine) queryContext(v *view, origin icx.Address) *txContext {
	return &txContext{
		st:       v.st,
		ledger:   v.ledger,
		deploys:  v.deploys,
		gov:      governance.New(v.st),
		values:   v.values,
		meter:    newStepMeter(v.values.StepCosts(), v.values.MaxStepLimit(icx.ContextTypeQuery)),
		executor: e.executor,
		revision: v.values.Revision(),
		height:   v.head.Height,
		origin:   origin,
		readOnly: true,
	}
}

// readOnlyCall calls a method of a contract, governance or the system without changing anything.
func (e *Engine) readOnlyCall(v *view, params tx.Params) (any, error) {
	to, err := requireAddress(params, "to")
	if err != nil {
		return nil, err
	}
	from, _, err := params.Address("from")
	if err != nil {
		return nil, err
	}
	data, err := tx.ParseCallData(params["data"])
	if err != nil {
		return nil, err
	}
	tc := e.queryContext(v, from)
	switch to {
	case icx.GovernanceAddress:
		env := &governance.Env{Sender: from, ReadOnly: true, Values: v.values, Deploys: v.deploys}
		return tc.gov.Invoke(env, data.Method, data.Params)
	case icx.SystemAddress:
		manager := prep.NewManager(v.st, v.ranking, v.ledger)
		return invokeSystem(&sysEnv{tc: tc, manager: manager, from: from}, data.Method, tx.Params(data.Params))
	}
	return tc.call(from, to, nil, data.Method, data.Params)
}

// Query serves req against a snapshot of the last committed block. At most QueryWorkers
// queries run at once, and neither their failures nor their panics reach OnFatal.
func (e *Engine) Query(ctx context.Context, req *QueryRequest) (result any, err error) {
	if err := e.querySem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.querySem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("query panicked", "method", req.Method, "panic", r)
			result, err = nil, icx.Errorf(icx.Fatal, "query panicked: %v", r)
		}
		status := "success"
		if err != nil {
			status = icx.KindOf(err).String()
		}
		metricQueryCounter().AddWithLabel(1, map[string]string{"method": req.Method, "status": status})
	}()

	m, ok := queryMethods[req.Method]
	if !ok {
		return nil, icx.Errorf(icx.InvalidRequest, "Method not found: %s", req.Method)
	}
	v, release, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	defer release()

	params := req.Params
	if params == nil {
		params = tx.Params{}
	}
	return e.query(v, m, req.Method, params)
}
