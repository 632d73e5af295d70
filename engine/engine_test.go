// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/scoreloop/deploy"
	"github.com/vechain/scoreloop/fee"
	"github.com/vechain/scoreloop/genesis"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/kv"
	"github.com/vechain/scoreloop/lvldb"
	"github.com/vechain/scoreloop/netvalue"
	"github.com/vechain/scoreloop/prep"
	"github.com/vechain/scoreloop/tx"
)

var stepLimit = big.NewInt(0x9502f900)

// testExecutor is a tiny contract runtime, methods are dispatched by name.
var testExecutor = ExecutorFunc(func(cc *CallContext, code []byte, method string, params map[string]any) (any, error) {
	switch method {
	case "set":
		v, _ := params["value"].(string)
		return nil, cc.Set([]byte("key"), []byte(v))
	case "get":
		v, err := cc.Get([]byte("key"))
		return string(v), err
	case "setAndFail":
		if err := cc.Set([]byte("key"), []byte("lost")); err != nil {
			return nil, err
		}
		return nil, errors.New("failed on purpose")
	case "recurse":
		return cc.Call(cc.Score(), nil, "recurse", nil)
	case "fanout":
		for {
			if _, err := cc.Call(cc.Score(), nil, "leaf", nil); err != nil {
				return nil, err
			}
		}
	case "leaf":
		return nil, nil
	case "depth":
		return cc.Depth(), nil
	case "panic":
		panic("boom")
	}
	return nil, icx.Errorf(icx.ScoreNotFound, "Method not found: %s", method)
})

// faultyStore fails reads and bulk writes while failing is set.
type faultyStore struct {
	kv.Store
	failing atomic.Bool
}

var errDiskFailure = errors.New("disk failure")

func (s *faultyStore) Get(key []byte) ([]byte, error) {
	if s.failing.Load() {
		return nil, errDiskFailure
	}
	return s.Store.Get(key)
}

func (s *faultyStore) Has(key []byte) (bool, error) {
	if s.failing.Load() {
		return false, errDiskFailure
	}
	return s.Store.Has(key)
}

func (s *faultyStore) Snapshot() kv.Snapshot {
	return &faultySnapshot{s.Store.Snapshot(), s}
}

func (s *faultyStore) Bulk() kv.Bulk {
	return &faultyBulk{s.Store.Bulk(), s}
}

type faultySnapshot struct {
	kv.Snapshot
	store *faultyStore
}

func (s *faultySnapshot) Get(key []byte) ([]byte, error) {
	if s.store.failing.Load() {
		return nil, errDiskFailure
	}
	return s.Snapshot.Get(key)
}

func (s *faultySnapshot) Has(key []byte) (bool, error) {
	if s.store.failing.Load() {
		return false, errDiskFailure
	}
	return s.Snapshot.Has(key)
}

type faultyBulk struct {
	kv.Bulk
	store *faultyStore
}

func (b *faultyBulk) Write() error {
	if b.store.failing.Load() {
		return errDiskFailure
	}
	return b.Bulk.Write()
}

type fixture struct {
	t      *testing.T
	db     *faultyStore
	engine *Engine
	accs   []genesis.DevAccount
	seq    uint64
}

func newFixture(t *testing.T) *fixture {
	return newFixtureOf(t, genesis.NewDevnet(), Config{})
}

func newFixtureOf(t *testing.T, g *genesis.Genesis, config Config) *fixture {
	ldb, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })
	db := &faultyStore{Store: ldb}

	if config.Executor == nil {
		config.Executor = testExecutor
	}
	e, err := New(db, config)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	require.NoError(t, e.Genesis(g))

	return &fixture{t: t, db: db, engine: e, accs: genesis.DevAccounts()}
}

func (f *fixture) tx(from, to icx.Address, value *big.Int, dataType tx.DataType, data any) tx.Params {
	f.seq++
	p := tx.Params{
		"version":   "0x3",
		"from":      from.String(),
		"to":        to.String(),
		"stepLimit": hexutil.EncodeBig(stepLimit),
		"timestamp": hexutil.EncodeUint64(1_700_000_000_000_000 + f.seq),
		"nid":       "0x1",
		"signature": "c2lnbmF0dXJl",
	}
	if value != nil {
		p["value"] = hexutil.EncodeBig(value)
	}
	if dataType != tx.DataTypeNone {
		p["dataType"] = string(dataType)
		p["data"] = data
	}
	return p
}

func (f *fixture) callTx(from, to icx.Address, value *big.Int, method string, params map[string]any) tx.Params {
	data := map[string]any{"method": method}
	if params != nil {
		data["params"] = params
	}
	return f.tx(from, to, value, tx.DataTypeCall, data)
}

func (f *fixture) block(txs ...tx.Params) *Block {
	f.seq++
	height := f.engine.Height() + 1
	return &Block{
		Height:    height,
		Hash:      icx.SHA3256([]byte(fmt.Sprintf("block-%d-%d", height, f.seq))),
		PrevHash:  f.engine.LastHash(),
		Timestamp: f.seq,
		Txs:       txs,
	}
}

func (f *fixture) invoke(txs ...tx.Params) (*Block, *BlockResult) {
	blk := f.block(txs...)
	result, err := f.engine.Invoke(context.Background(), blk)
	require.NoError(f.t, err)
	require.Len(f.t, result.Receipts, len(txs))
	return blk, result
}

// apply invokes and commits a block.
func (f *fixture) apply(txs ...tx.Params) []*Receipt {
	blk, result := f.invoke(txs...)
	require.NoError(f.t, f.engine.Commit(blk.Hash))
	return result.Receipts
}

func (f *fixture) query(method string, params tx.Params) (any, error) {
	return f.engine.Query(context.Background(), &QueryRequest{Method: method, Params: params})
}

func (f *fixture) balance(addr icx.Address) *big.Int {
	v, err := f.query("getBalance", tx.Params{"address": addr.String()})
	require.NoError(f.t, err)
	return v.(*hexutil.Big).ToInt()
}

// deployScore installs a contract and returns its address. Audit is off on the dev network.
func (f *fixture) deployScore(owner icx.Address) icx.Address {
	r := f.apply(f.tx(owner, icx.SystemAddress, nil, tx.DataTypeDeploy, map[string]any{
		"contentType": tx.ContentTypeZip,
		"content":     "0x504b0304",
	}))
	require.True(f.t, r[0].Succeeded(), "%+v", r[0].Failure)
	require.NotNil(f.t, r[0].ScoreAddress)
	return *r[0].ScoreAddress
}

func assertBig(t *testing.T, want, got *big.Int) {
	t.Helper()
	assert.Equal(t, want.String(), got.String())
}

func icxOf(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), icx.ICX)
}

func TestGenesis(t *testing.T) {
	f := newFixture(t)
	g := genesis.NewDevnet()

	assert.Equal(t, uint64(0), f.engine.Height())
	assert.Equal(t, g.ID(), f.engine.LastHash())
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(f.engine.Genesis(g)))

	// the dev P-Reps paid the registration fee
	assertBig(t, new(big.Int).Sub(icxOf(1_000_000), prep.RegistrationFee), f.balance(f.accs[0].Address))
	assertBig(t, icxOf(1_000_000), f.balance(f.accs[9].Address))

	preps, err := f.query("getPReps", nil)
	require.NoError(t, err)
	assert.Len(t, preps.(*prep.PRepList).PReps, 4)

	status, err := f.query("getScoreStatus", tx.Params{"address": icx.GovernanceAddress.String()})
	require.NoError(t, err)
	assert.Equal(t, deploy.StatusActive, status.(*deploy.ScoreStatus).Current.Status)

	price, err := f.query("getStepPrice", nil)
	require.NoError(t, err)
	assertBig(t, netvalue.DefaultStepPrice, price.(*hexutil.Big).ToInt())

	rev, err := f.query("getRevision", nil)
	require.NoError(t, err)
	assert.Equal(t, hexutil.Uint64(icx.RevisionImprovedPreValidator), rev.(map[string]any)["code"])
}

func TestReopen(t *testing.T) {
	f := newFixture(t)
	to := icx.NewEOAAddress([]byte("reopen"))
	r := f.apply(f.tx(f.accs[1].Address, to, icxOf(3), tx.DataTypeNone, nil))
	require.True(t, r[0].Succeeded())

	e, err := New(f.db, Config{})
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, f.engine.Height(), e.Height())
	assert.Equal(t, f.engine.LastHash(), e.LastHash())

	v, err := e.Query(context.Background(), &QueryRequest{Method: "getBalance", Params: tx.Params{"address": to.String()}})
	require.NoError(t, err)
	assertBig(t, icxOf(3), v.(*hexutil.Big).ToInt())
}

func TestInvokeCommitRollback(t *testing.T) {
	f := newFixture(t)
	from, to := f.accs[5].Address, icx.NewEOAAddress([]byte("receiver"))

	blk, result := f.invoke(f.tx(from, to, icxOf(10), tx.DataTypeNone, nil))
	r := result.Receipts[0]
	require.True(t, r.Succeeded(), "%+v", r.Failure)
	assert.Equal(t, netvalue.DefaultStepCosts().Get(icx.StepTypeDefault), r.StepUsed.ToInt().Int64())

	// pending blocks are invisible to queries
	assert.Equal(t, 0, f.balance(to).Sign())

	require.NoError(t, f.engine.Rollback(blk.Hash))
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(f.engine.Commit(blk.Hash)))
	assert.Equal(t, uint64(0), f.engine.Height())

	blk, _ = f.invoke(f.tx(from, to, icxOf(10), tx.DataTypeNone, nil))
	require.NoError(t, f.engine.Commit(blk.Hash))
	assert.Equal(t, uint64(1), f.engine.Height())
	assert.Equal(t, blk.Hash, f.engine.LastHash())
	assertBig(t, icxOf(10), f.balance(to))

	paid := new(big.Int).Mul(r.StepUsed.ToInt(), r.StepPrice.ToInt())
	want := new(big.Int).Sub(icxOf(1_000_000), icxOf(10))
	assertBig(t, want.Sub(want, paid), f.balance(from))
}

func TestInvokeOrdering(t *testing.T) {
	f := newFixture(t)
	blk := f.block()
	blk.Height = 5
	_, err := f.engine.Invoke(context.Background(), blk)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))

	blk = f.block()
	blk.PrevHash = icx.Bytes32{1}
	_, err = f.engine.Invoke(context.Background(), blk)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))

	// competing blocks of one height, committing one drops the other
	a, _ := f.invoke()
	b, _ := f.invoke()
	_, err = f.engine.Invoke(context.Background(), a)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
	require.NoError(t, f.engine.Commit(b.Hash))
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(f.engine.Commit(a.Hash)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.engine.Invoke(ctx, f.block(f.tx(f.accs[1].Address, f.accs[2].Address, nil, tx.DataTypeNone, nil)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidTxReceipt(t *testing.T) {
	f := newFixture(t)
	poor := icx.NewEOAAddress([]byte("poor"))
	r := f.apply(f.tx(poor, f.accs[1].Address, icxOf(1), tx.DataTypeNone, nil))
	assert.False(t, r[0].Succeeded())
	assert.Equal(t, int(icx.OutOfBalance), r[0].Failure.Code)
	assert.Equal(t, 0, r[0].StepUsed.ToInt().Sign())
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	trx, err := f.engine.Validate(ctx, f.tx(f.accs[1].Address, f.accs[2].Address, icxOf(1), tx.DataTypeNone, nil))
	require.NoError(t, err)
	assert.Equal(t, f.accs[1].Address, trx.From)

	_, err = f.engine.Validate(ctx, f.tx(icx.NewEOAAddress([]byte("poor")), f.accs[2].Address, icxOf(1), tx.DataTypeNone, nil))
	assert.Equal(t, icx.OutOfBalance, icx.KindOf(err))

	_, err = f.engine.Validate(ctx, f.callTx(f.accs[1].Address, icx.NewContractAddress([]byte("nobody")), nil, "get", nil))
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))
}

func TestDeployAndCall(t *testing.T) {
	f := newFixture(t)
	owner := f.accs[4].Address
	score := f.deployScore(owner)

	status, err := f.query("getScoreStatus", tx.Params{"address": score.String()})
	require.NoError(t, err)
	assert.Equal(t, deploy.StatusActive, status.(*deploy.ScoreStatus).Current.Status)
	assert.Nil(t, status.(*deploy.ScoreStatus).Next)

	r := f.apply(f.callTx(f.accs[5].Address, score, nil, "set", map[string]any{"value": "hello"}))
	require.True(t, r[0].Succeeded(), "%+v", r[0].Failure)

	got, err := f.query("call", tx.Params{
		"to":   score.String(),
		"data": map[string]any{"method": "get"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	// writes are refused on the query path
	_, err = f.query("call", tx.Params{
		"to":   score.String(),
		"data": map[string]any{"method": "set", "params": map[string]any{"value": "x"}},
	})
	assert.Equal(t, icx.AccessDenied, icx.KindOf(err))

	_, err = f.query("call", tx.Params{"to": score.String(), "data": map[string]any{"method": "panic"}})
	assert.Equal(t, icx.ScoreError, icx.KindOf(err))

	depth, err := f.query("call", tx.Params{"to": score.String(), "data": map[string]any{"method": "depth"}})
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}

func TestFailedCallChargesFee(t *testing.T) {
	f := newFixture(t)
	score := f.deployScore(f.accs[4].Address)
	caller := f.accs[6].Address
	before := f.balance(caller)

	r := f.apply(f.callTx(caller, score, nil, "setAndFail", nil))
	assert.False(t, r[0].Succeeded())
	assert.Equal(t, int(icx.ScoreError), r[0].Failure.Code)
	assert.Empty(t, r[0].EventLogs)
	require.Positive(t, r[0].StepUsed.ToInt().Sign())

	paid := new(big.Int).Mul(r[0].StepUsed.ToInt(), r[0].StepPrice.ToInt())
	assertBig(t, new(big.Int).Sub(before, paid), f.balance(caller))

	got, err := f.query("call", tx.Params{"to": score.String(), "data": map[string]any{"method": "get"}})
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestCallLimits(t *testing.T) {
	f := newFixture(t)
	score := f.deployScore(f.accs[4].Address)

	r := f.apply(
		f.callTx(f.accs[5].Address, score, nil, "recurse", nil),
		f.callTx(f.accs[5].Address, score, nil, "fanout", nil),
	)
	for _, rr := range r {
		assert.False(t, rr.Succeeded())
		assert.Equal(t, int(icx.StackOverflow), rr.Failure.Code, rr.Failure.Message)
	}
	assert.Contains(t, r[0].Failure.Message, "depth")
	assert.Contains(t, r[1].Failure.Message, "count")

	costs := netvalue.DefaultStepCosts()
	calls := r[1].StepUsed.ToInt().Int64() - costs.Get(icx.StepTypeDefault)
	assert.GreaterOrEqual(t, calls, int64(icx.MaxCallCount)*costs.Get(icx.StepTypeContractCall))
	assertBig(t, new(big.Int).Add(r[0].StepUsed.ToInt(), r[1].StepUsed.ToInt()), r[1].CumulativeStepUsed.ToInt())
}

func TestGovernanceCall(t *testing.T) {
	f := newFixture(t)
	owner := f.accs[0].Address
	price := big.NewInt(0x1234)

	blk, result := f.invoke(f.callTx(owner, icx.GovernanceAddress, nil, "setStepPrice", map[string]any{"value": hexutil.EncodeBig(price)}))
	r := result.Receipts[0]
	require.True(t, r.Succeeded(), "%+v", r.Failure)
	require.Len(t, r.EventLogs, 1)

	got, err := f.query("getStepPrice", nil)
	require.NoError(t, err)
	assertBig(t, netvalue.DefaultStepPrice, got.(*hexutil.Big).ToInt())

	require.NoError(t, f.engine.Commit(blk.Hash))
	got, err = f.query("getStepPrice", nil)
	require.NoError(t, err)
	assertBig(t, price, got.(*hexutil.Big).ToInt())

	// the next block is charged at the new price
	rs := f.apply(f.tx(f.accs[1].Address, f.accs[2].Address, nil, tx.DataTypeNone, nil))
	assertBig(t, price, rs[0].StepPrice.ToInt())

	// only the owner may change values
	rs = f.apply(f.callTx(f.accs[1].Address, icx.GovernanceAddress, nil, "setStepPrice", map[string]any{"value": "0x1"}))
	assert.False(t, rs[0].Succeeded())
	assert.Equal(t, int(icx.AccessDenied), rs[0].Failure.Code)
}

func TestRegisterPRep(t *testing.T) {
	f := newFixture(t)
	acc := f.accs[7]
	before := f.balance(acc.Address)

	r := f.apply(f.callTx(acc.Address, icx.SystemAddress, prep.RegistrationFee, "registerPRep", map[string]any{
		"name":        "seven",
		"email":       "seven@dev.scoreloop.org",
		"website":     "https://seven.dev.scoreloop.org",
		"details":     "https://seven.dev.scoreloop.org/details.json",
		"p2pEndpoint": "127.0.0.1:7107",
		"publicKey":   hexutil.Encode(acc.PublicKey()),
	}))
	require.True(t, r[0].Succeeded(), "%+v", r[0].Failure)
	require.Len(t, r[0].EventLogs, 1)
	assert.Equal(t, icx.SystemAddress, r[0].EventLogs[0].Score)

	paid := new(big.Int).Mul(r[0].StepUsed.ToInt(), r[0].StepPrice.ToInt())
	want := new(big.Int).Sub(before, prep.RegistrationFee)
	assertBig(t, want.Sub(want, paid), f.balance(acc.Address))

	got, err := f.query("getPRep", tx.Params{"address": acc.Address.String()})
	require.NoError(t, err)
	assert.Equal(t, "seven", got.(*prep.PRep).Name)

	preps, err := f.query("getPReps", nil)
	require.NoError(t, err)
	assert.Len(t, preps.(*prep.PRepList).PReps, 5)

	// a second registration fails and leaves the ranking untouched
	r = f.apply(f.callTx(acc.Address, icx.SystemAddress, prep.RegistrationFee, "registerPRep", map[string]any{
		"name":        "again",
		"email":       "seven@dev.scoreloop.org",
		"website":     "https://seven.dev.scoreloop.org",
		"details":     "https://seven.dev.scoreloop.org/details.json",
		"p2pEndpoint": "127.0.0.1:7107",
		"publicKey":   hexutil.Encode(acc.PublicKey()),
	}))
	assert.False(t, r[0].Succeeded())
	preps, err = f.query("getPReps", nil)
	require.NoError(t, err)
	assert.Len(t, preps.(*prep.PRepList).PReps, 5)

	_, err = f.query("call", tx.Params{
		"to":   icx.SystemAddress.String(),
		"data": map[string]any{"method": "setDelegation"},
	})
	assert.Equal(t, icx.AccessDenied, icx.KindOf(err))
}

func TestDeposit(t *testing.T) {
	f := newFixture(t)
	owner := f.accs[4].Address
	score := f.deployScore(owner)
	amount := icxOf(5_000)

	r := f.apply(f.tx(owner, score, amount, tx.DataTypeDeposit, map[string]any{"action": "add"}))
	require.True(t, r[0].Succeeded(), "%+v", r[0].Failure)
	require.Len(t, r[0].EventLogs, 1)

	info, err := f.query("getDepositInfo", tx.Params{"address": score.String()})
	require.NoError(t, err)
	di := info.(*fee.DepositInfo)
	require.Len(t, di.Deposits, 1)
	assert.Equal(t, r[0].TxHash, di.Deposits[0].ID)
	assert.Positive(t, di.AvailableVirtualStep.Sign())

	// only the owner may deposit
	r = f.apply(f.tx(f.accs[5].Address, score, amount, tx.DataTypeDeposit, map[string]any{"action": "add"}))
	assert.False(t, r[0].Succeeded())
	assert.Equal(t, int(icx.AccessDenied), r[0].Failure.Code)
}

func TestQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.query("getUnknown", nil)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))

	_, err = f.query("getBalance", tx.Params{"address": "hx01"})
	assert.Error(t, err)

	limit, err := f.query("getMaxStepLimit", tx.Params{"contextType": "query"})
	require.NoError(t, err)
	assertBig(t, netvalue.DefaultMaxStepLimits()[icx.ContextTypeQuery], limit.(*hexutil.Big).ToInt())

	_, err = f.query("getMaxStepLimit", tx.Params{"contextType": "estimate"})
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))

	costs, err := f.query("getStepCosts", nil)
	require.NoError(t, err)
	assertBig(t, big.NewInt(netvalue.DefaultStepCosts().Get(icx.StepTypeDelete)), costs.(map[string]*hexutil.Big)[string(icx.StepTypeDelete)].ToInt())

	got, err := f.query("call", tx.Params{
		"to":   icx.GovernanceAddress.String(),
		"data": map[string]any{"method": "getScoreStatus", "params": map[string]any{"address": icx.GovernanceAddress.String()}},
	})
	require.NoError(t, err)
	assert.NotNil(t, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, err := New(f.db, Config{QueryWorkers: 1})
	require.NoError(t, err)
	require.NoError(t, e.querySem.Acquire(context.Background(), 1))
	_, err = e.Query(ctx, &QueryRequest{Method: "getStepPrice"})
	assert.ErrorIs(t, err, context.Canceled)
	e.querySem.Release(1)
}

func TestNotInitialized(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	e, err := New(db, Config{})
	require.NoError(t, err)
	_, err = e.Query(context.Background(), &QueryRequest{Method: "getStepPrice"})
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
	_, err = e.Invoke(context.Background(), &Block{Height: 1})
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
}

func TestLockedAddressesFromGenesis(t *testing.T) {
	accs := genesis.DevAccounts()
	locked := accs[8].Address
	g := genesis.NewDevnet()
	g.LockedAddresses = []icx.Address{locked}
	f := newFixtureOf(t, g, Config{})
	score := f.deployScore(f.accs[4].Address)

	r := f.apply(f.tx(locked, icx.NewEOAAddress([]byte("receiver")), icxOf(1), tx.DataTypeNone, nil))
	assert.False(t, r[0].Succeeded())
	assert.Equal(t, int(icx.InvalidRequest), r[0].Failure.Code)
	assert.Contains(t, r[0].Failure.Message, locked.String())

	r = f.apply(f.callTx(locked, score, nil, "get", nil))
	assert.False(t, r[0].Succeeded())
	assert.Equal(t, int(icx.InvalidRequest), r[0].Failure.Code)

	// other accounts are not affected
	r = f.apply(f.callTx(accs[7].Address, score, nil, "get", nil))
	assert.True(t, r[0].Succeeded(), "%+v", r[0].Failure)

	// the list is part of the committed state
	e, err := New(f.db, Config{})
	require.NoError(t, err)
	defer e.Close()
	_, err = e.Validate(context.Background(), f.callTx(locked, score, nil, "get", nil))
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
	assert.Contains(t, err.Error(), locked.String())

	// nothing is locked unless the genesis says so
	plain := newFixture(t)
	r = plain.apply(plain.tx(locked, icx.NewEOAAddress([]byte("receiver")), icxOf(1), tx.DataTypeNone, nil))
	assert.True(t, r[0].Succeeded(), "%+v", r[0].Failure)
}

func TestFatalError(t *testing.T) {
	var calls atomic.Int32
	fatalCh := make(chan error, 4)
	f := newFixtureOf(t, genesis.NewDevnet(), Config{
		OnFatal: func(err error) {
			calls.Add(1)
			fatalCh <- err
		},
	})
	waitFatal := func() error {
		select {
		case err := <-fatalCh:
			return err
		case <-time.After(5 * time.Second):
			require.FailNow(t, "OnFatal not called")
			return nil
		}
	}
	to := icx.NewEOAAddress([]byte("unseen"))

	// the receiver balance is not cached, so reading it hits the store
	f.db.failing.Store(true)
	blk := f.block(f.tx(f.accs[1].Address, to, icxOf(1), tx.DataTypeNone, nil))
	_, err := f.engine.Invoke(context.Background(), blk)
	assert.Equal(t, icx.Fatal, icx.KindOf(err))
	assert.ErrorContains(t, waitFatal(), errDiskFailure.Error())

	// queries fail on their own, without reaching OnFatal
	_, err = f.query("getBalance", tx.Params{"address": to.String()})
	assert.Error(t, err)
	f.db.failing.Store(false)

	assert.Equal(t, uint64(0), f.engine.Height())
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(f.engine.Commit(blk.Hash)))
	assert.Equal(t, 0, f.balance(to).Sign())

	blk, _ = f.invoke(f.tx(f.accs[1].Address, to, icxOf(1), tx.DataTypeNone, nil))
	f.db.failing.Store(true)
	err = f.engine.Commit(blk.Hash)
	f.db.failing.Store(false)
	assert.Equal(t, icx.Fatal, icx.KindOf(err))
	assert.ErrorContains(t, waitFatal(), errDiskFailure.Error())
	assert.Equal(t, uint64(0), f.engine.Height())
	assert.Equal(t, 0, f.balance(to).Sign())

	f.engine.Close()
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueryMethodsDispatched(t *testing.T) {
	f := newFixture(t)
	for name := range queryMethods {
		_, err := f.query(name, nil)
		assert.NotEqual(t, icx.Fatal, icx.KindOf(err), name)
	}
}
