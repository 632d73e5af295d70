// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"errors"
	"math/big"

	"github.com/vechain/scoreloop/deploy"
	"github.com/vechain/scoreloop/fee"
	"github.com/vechain/scoreloop/governance"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/kv"
	"github.com/vechain/scoreloop/netvalue"
	"github.com/vechain/scoreloop/state"
)

// Executor runs contract code. The engine meters, reverts and settles around it.
type Executor interface {
	// Execute runs method of contract cc.Score(), whose live code is code.
	// Errors not classified by icx are reported as ScoreError.
	Execute(cc *CallContext, code []byte, method string, params map[string]any) (any, error)
}

// ExecutorFunc adapts an ordinary function to Executor.
type ExecutorFunc func(cc *CallContext, code []byte, method string, params map[string]any) (any, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(cc *CallContext, code []byte, method string, params map[string]any) (any, error) {
	return f(cc, code, method, params)
}

// txContext is shared by all frames of one transaction or query.
type txContext struct {
	st       *state.State
	ledger   *fee.Ledger
	deploys  *deploy.Storage
	gov      *governance.Governance
	values   *netvalue.Container
	meter    *stepMeter
	executor Executor

	revision int
	height   uint64
	txHash   icx.Bytes32
	origin   icx.Address
	readOnly bool

	events []icx.EventLog
	depth  int
	count  int
	// first storage failure seen by a frame, it outranks whatever the executor returns
	fatal error
}

func (tc *txContext) fail(err error) error {
	if icx.IsFatal(err) && tc.fatal == nil {
		tc.fatal = err
	}
	return err
}

// call runs method of contract to as a new frame.
func (tc *txContext) call(from, to icx.Address, value *big.Int, method string, params map[string]any) (any, error) {
	cc := &CallContext{tc: tc, from: from, score: to, value: value}
	if err := cc.Enter(); err != nil {
		return nil, err
	}
	defer cc.Leave()

	if err := tc.meter.consume(icx.StepTypeContractCall, 1); err != nil {
		return nil, err
	}
	if to == icx.GovernanceAddress {
		// contracts only get the read only surface of governance
		env := &governance.Env{Sender: from, Value: value, ReadOnly: true, Values: tc.values, Deploys: tc.deploys}
		return tc.gov.Invoke(env, method, params)
	}
	if to == icx.SystemAddress {
		return nil, icx.Errorf(icx.AccessDenied, "System calls can not be made by contracts")
	}
	active, err := tc.deploys.IsActive(to, tc.values)
	if err != nil {
		return nil, tc.fail(err)
	}
	if !active {
		return nil, icx.Errorf(icx.ScoreNotFound, "Inactive score: %s", to)
	}
	if value != nil && value.Sign() > 0 {
		if tc.readOnly {
			return nil, icx.Errorf(icx.AccessDenied, "Value transfer in a read only context")
		}
		if err := tc.ledger.Transfer(tc.revision, from, to, value); err != nil {
			return nil, tc.fail(err)
		}
	}
	code, err := tc.deploys.Code(to)
	if err != nil {
		return nil, tc.fail(err)
	}
	if tc.executor == nil {
		return nil, icx.Errorf(icx.ScoreError, "No executor for %s", to)
	}
	return tc.execute(cc, code, method, params)
}

func (tc *txContext) execute(cc *CallContext, code []byte, method string, params map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("score panicked", "score", cc.score, "method", method, "panic", r)
			result, err = nil, icx.Errorf(icx.ScoreError, "Score panicked: %v", r)
		}
	}()
	result, err = tc.executor.Execute(cc, code, method, params)
	if tc.fatal != nil {
		return nil, tc.fatal
	}
	var ie *icx.Error
	if err != nil && !errors.As(err, &ie) {
		err = icx.Errorf(icx.ScoreError, "%v", err)
	}
	return result, err
}

// CallContext is the view of one call frame given to an Executor.
type CallContext struct {
	tc    *txContext
	from  icx.Address
	score icx.Address
	value *big.Int
}

// Enter opens a frame, failing once the call stack depth or the number of calls
// made by the transaction exceeds its limit.
func (cc *CallContext) Enter() error {
	tc := cc.tc
	if tc.depth >= icx.MaxCallStackDepth {
		return icx.Errorf(icx.StackOverflow, "Max call stack depth exceeded: %d", icx.MaxCallStackDepth)
	}
	if tc.count >= icx.MaxCallCount {
		return icx.Errorf(icx.StackOverflow, "Max call count exceeded: %d", icx.MaxCallCount)
	}
	tc.depth++
	tc.count++
	return nil
}

// Leave closes the frame opened by Enter.
func (cc *CallContext) Leave() {
	cc.tc.depth--
}

func (cc *CallContext) Score() icx.Address  { return cc.score }
func (cc *CallContext) From() icx.Address   { return cc.from }
func (cc *CallContext) Origin() icx.Address { return cc.tc.origin }
func (cc *CallContext) TxHash() icx.Bytes32 { return cc.tc.txHash }
func (cc *CallContext) BlockHeight() uint64 { return cc.tc.height }
func (cc *CallContext) ReadOnly() bool      { return cc.tc.readOnly }
func (cc *CallContext) Depth() int          { return cc.tc.depth }

// Value returns the loop sent with the call.
func (cc *CallContext) Value() *big.Int {
	if cc.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(cc.value)
}

func (cc *CallContext) storage() kv.GetPutter {
	return kv.Bucket("cs" + string(cc.score.Bytes())).NewGetPutter(cc.tc.st)
}

func (cc *CallContext) writable() error {
	if cc.tc.readOnly {
		return icx.Errorf(icx.AccessDenied, "Not allowed in a read only context")
	}
	return nil
}

// Get reads key from the contract storage, nil if absent.
func (cc *CallContext) Get(key []byte) ([]byte, error) {
	s := cc.storage()
	val, err := s.Get(key)
	if err != nil {
		if !s.IsNotFound(err) {
			return nil, cc.tc.fail(err)
		}
		val = nil
	}
	if err := cc.tc.meter.consume(icx.StepTypeGet, max(int64(len(val)), 1)); err != nil {
		return nil, err
	}
	return val, nil
}

// Set writes key to the contract storage.
func (cc *CallContext) Set(key, val []byte) error {
	if len(val) == 0 {
		return cc.Delete(key)
	}
	if err := cc.writable(); err != nil {
		return err
	}
	s := cc.storage()
	has, err := s.Has(key)
	if err != nil {
		return cc.tc.fail(err)
	}
	t := icx.StepTypeSet
	if has {
		t = icx.StepTypeReplace
	}
	if err := cc.tc.meter.consume(t, int64(len(val))); err != nil {
		return err
	}
	return cc.tc.fail(s.Put(key, val))
}

// Delete removes key from the contract storage. The delete cost is a refund.
func (cc *CallContext) Delete(key []byte) error {
	if err := cc.writable(); err != nil {
		return err
	}
	s := cc.storage()
	old, err := s.Get(key)
	if err != nil {
		if s.IsNotFound(err) {
			return nil
		}
		return cc.tc.fail(err)
	}
	if err := cc.tc.meter.consume(icx.StepTypeDelete, int64(len(old))); err != nil {
		return err
	}
	return cc.tc.fail(s.Delete(key))
}

// Emit appends an event log of the contract.
func (cc *CallContext) Emit(signature string, indexed int, args ...any) error {
	if err := cc.writable(); err != nil {
		return err
	}
	ev := icx.NewEventLog(cc.score, signature, indexed, args...)
	size := 0
	for _, s := range ev.Indexed {
		size += len(s)
	}
	for _, s := range ev.Data {
		size += len(s)
	}
	if err := cc.tc.meter.consume(icx.StepTypeEventLog, int64(size)); err != nil {
		return err
	}
	cc.tc.events = append(cc.tc.events, ev)
	return nil
}

// Balance returns the balance of addr.
func (cc *CallContext) Balance(addr icx.Address) (*big.Int, error) {
	b, err := cc.tc.ledger.Balance(addr)
	return b, cc.tc.fail(err)
}

// Transfer sends value from the contract to addr.
func (cc *CallContext) Transfer(to icx.Address, value *big.Int) error {
	if err := cc.writable(); err != nil {
		return err
	}
	return cc.tc.fail(cc.tc.ledger.Transfer(cc.tc.revision, cc.score, to, value))
}

// Call calls method of another contract. A failed call is reverted on its own,
// the caller decides whether to fail as well.
func (cc *CallContext) Call(to icx.Address, value *big.Int, method string, params map[string]any) (any, error) {
	tc := cc.tc
	cp := tc.st.Checkpoint()
	n := len(tc.events)
	result, err := tc.call(cc.score, to, value, method, params)
	if err != nil && !icx.IsFatal(err) {
		tc.st.RevertTo(cp)
		tc.events = tc.events[:n]
	}
	return result, err
}

// SetFeeSharingProportion sets the percent of the fee the contract sponsors for its callers.
func (cc *CallContext) SetFeeSharingProportion(proportion int) error {
	if err := cc.writable(); err != nil {
		return err
	}
	return cc.tc.fail(cc.tc.ledger.SetProportion(cc.score, proportion))
}
