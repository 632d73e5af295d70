// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package engine invokes blocks of transactions over the committed state, keeps the
// results pending until the block is committed or rolled back, and serves read only queries.
package engine

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/scoreloop/co"
	"github.com/vechain/scoreloop/deploy"
	"github.com/vechain/scoreloop/fee"
	"github.com/vechain/scoreloop/genesis"
	"github.com/vechain/scoreloop/governance"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/kv"
	"github.com/vechain/scoreloop/log"
	"github.com/vechain/scoreloop/netvalue"
	"github.com/vechain/scoreloop/prep"
	"github.com/vechain/scoreloop/prevalidator"
	"github.com/vechain/scoreloop/state"
	"github.com/vechain/scoreloop/tx"
	"golang.org/x/sync/semaphore"
)

var logger = log.WithContext("pkg", "engine")

// Config configures the engine.
type Config struct {
	// CacheSize is the number of committed entries kept in memory.
	CacheSize int
	// QueryWorkers bounds the number of queries served at once.
	QueryWorkers int
	// Executor runs contract code, nil if the node carries none.
	Executor Executor
	// OnFatal is called after a fatal error has been returned by Invoke or Commit.
	OnFatal func(error)
}

type pendingBlock struct {
	blk     *Block
	st      *state.State
	values  *netvalue.Container
	ranking *prep.Ranking
	result  *BlockResult
}

// Engine is the state transition engine.
type Engine struct {
	stater   *state.Stater
	executor Executor
	onFatal  func(error)
	querySem *semaphore.Weighted
	goes     co.Goes

	// wmu serializes genesis, invoke, commit and rollback
	wmu     sync.Mutex
	pending map[icx.Bytes32]*pendingBlock

	// mu guards the committed view below, which is replaced on commit but never mutated.
	// It is written with wmu held too, so writers may read it without mu.
	mu          sync.RWMutex
	initialized bool
	head        meta
	values      *netvalue.Container
	ranking     *prep.Ranking
	locked      *fee.LockedList
}

// New creates an engine over the committed store.
func New(store kv.Store, config Config) (*Engine, error) {
	workers := config.QueryWorkers
	if workers <= 0 {
		workers = 4
	}
	e := &Engine{
		stater:   state.NewStater(store, config.CacheSize),
		executor: config.Executor,
		onFatal:  config.OnFatal,
		querySem: semaphore.NewWeighted(int64(workers)),
		pending:  make(map[icx.Bytes32]*pendingBlock),
	}

	data, err := store.Get(metaKey)
	if err != nil {
		if store.IsNotFound(err) {
			e.values = netvalue.NewContainer()
			e.ranking = prep.NewRanking()
			e.locked = fee.NewLockedList(nil)
			return e, nil
		}
		return nil, errors.Wrap(err, "load engine meta")
	}
	if err := rlp.DecodeBytes(data, &e.head); err != nil {
		return nil, errors.Wrap(err, "decode engine meta")
	}
	if e.values, err = netvalue.Load(store); err != nil {
		return nil, errors.Wrap(err, "load network values")
	}
	if e.ranking, err = prep.Load(store); err != nil {
		return nil, errors.Wrap(err, "load P-Rep ranking")
	}
	if e.locked, err = fee.LoadLockedList(store); err != nil {
		return nil, errors.Wrap(err, "load locked addresses")
	}
	e.initialized = true
	metricPRepCount().Set(int64(e.ranking.Len()))
	logger.Info("engine loaded", "height", e.head.Height, "hash", e.head.Hash, "revision", e.values.Revision())
	return e, nil
}

// committed returns the committed view.
func (e *Engine) committed() (meta, *netvalue.Container, *prep.Ranking, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.head, e.values, e.ranking, e.initialized
}

// Initialized reports whether a genesis has been applied.
func (e *Engine) Initialized() bool {
	_, _, _, ok := e.committed()
	return ok
}

// Height returns the height of the last committed block.
func (e *Engine) Height() uint64 {
	head, _, _, _ := e.committed()
	return head.Height
}

// LastHash returns the hash of the last committed block.
func (e *Engine) LastHash() icx.Bytes32 {
	head, _, _, _ := e.committed()
	return head.Hash
}

func (e *Engine) fatal(err error) {
	logger.Error("fatal error", "err", err)
	if e.onFatal != nil {
		e.goes.Go(func() { e.onFatal(err) })
	}
}

// Genesis initializes an empty engine with g, committed as the block at height 0.
func (e *Engine) Genesis(g *genesis.Genesis) error {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	if _, _, _, ok := e.committed(); ok {
		return icx.Errorf(icx.InvalidRequest, "Genesis already applied")
	}
	if err := g.Validate(); err != nil {
		return err
	}
	netValues, err := g.NetworkValues()
	if err != nil {
		return err
	}

	st := e.stater.NewState()
	values := netvalue.NewContainer()
	ranking := prep.NewRanking()
	locked := fee.NewLockedList(g.LockedAddresses)
	ledger := fee.New(st, locked)
	deploys := deploy.NewStorage(st)
	gov := governance.New(st)

	if err := values.Migrate(st, netValues); err != nil {
		return err
	}
	if err := fee.SaveLockedList(st, locked); err != nil {
		return err
	}
	for _, acc := range g.Accounts {
		if err := ledger.AddBalance(acc.Address, acc.Balance.ToInt()); err != nil {
			return err
		}
	}

	id := g.ID()
	if err := gov.SetOwner(g.Governance.Owner); err != nil {
		return err
	}
	if err := gov.SetVersion(g.GovernanceVersion()); err != nil {
		return err
	}
	for _, a := range g.Governance.Auditors {
		if err := gov.AddAuditor(a); err != nil {
			return err
		}
	}
	// governance is deployed by its owner at genesis
	if _, err := deploys.RecordDeploy(g.Governance.Owner, id, &deploy.DeployTxParams{
		Score:       icx.GovernanceAddress,
		From:        g.Governance.Owner,
		Timestamp:   new(big.Int),
		Nonce:       new(big.Int),
		ContentType: tx.ContentTypeZip,
	}, nil); err != nil {
		return err
	}
	if _, err := deploys.Accept(g.GovernanceVersion(), id, id); err != nil {
		return err
	}

	manager := prep.NewManager(st, ranking, ledger)
	for i, p := range g.PReps {
		reg := &prep.Registration{
			Name:        p.Name,
			Email:       p.Email,
			Website:     p.Website,
			Details:     p.Details,
			PublicKey:   p.PublicKey,
			P2PEndpoint: p.P2PEndpoint,
		}
		if err := manager.Register(p.Address(), reg, prep.RegistrationFee, 0, uint32(i)); err != nil {
			return errors.Wrapf(err, "register P-Rep %q", p.Name)
		}
	}

	head := meta{Height: 0, Hash: id}
	if err := putMeta(st, &head); err != nil {
		return err
	}
	if err := e.stater.Commit(st.Stage()); err != nil {
		return err
	}

	e.mu.Lock()
	e.head, e.values, e.ranking, e.locked, e.initialized = head, values, ranking, locked, true
	e.mu.Unlock()

	metricPRepCount().Set(int64(ranking.Len()))
	logger.Info("genesis applied", "name", g.Name, "id", id, "accounts", len(g.Accounts), "preps", len(g.PReps), "locked", len(g.LockedAddresses))
	return nil
}

// Invoke executes blk on top of the last committed block. The result stays pending
// until Commit or Rollback is called with the block hash.
func (e *Engine) Invoke(ctx context.Context, blk *Block) (*BlockResult, error) {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	head, values, ranking, ok := e.committed()
	if !ok {
		return nil, icx.Errorf(icx.InvalidRequest, "Genesis not applied")
	}
	if blk.Height != head.Height+1 || blk.PrevHash != head.Hash {
		return nil, icx.Errorf(icx.InvalidRequest, "Invalid block: height=%d prev=%s, last committed height=%d hash=%s",
			blk.Height, blk.PrevHash, head.Height, head.Hash)
	}
	if _, ok := e.pending[blk.Hash]; ok {
		return nil, icx.Errorf(icx.InvalidRequest, "Block already invoked: %s", blk.Hash)
	}

	start := time.Now()
	pb := &pendingBlock{
		blk:     blk,
		st:      e.stater.NewState(),
		values:  values.Copy(),
		ranking: ranking.Copy(),
	}
	result, err := newProcessor(blk, pb.st, pb.values, pb.ranking, e.locked, e.executor).process(ctx)
	if err != nil {
		if ctx.Err() == nil && icx.IsFatal(err) {
			e.fatal(err)
		}
		return nil, err
	}
	pb.result = result
	e.pending[blk.Hash] = pb

	metricInvokeDuration().Observe(time.Since(start).Milliseconds())
	metricPendingBlockGauge().Set(int64(len(e.pending)))
	logger.Debug("block invoked", "height", blk.Height, "hash", blk.Hash, "txs", len(blk.Txs), "elapsed", time.Since(start))
	return result, nil
}

// Commit writes the pending block into the store and makes it the last committed block.
// Other pending blocks of the same height become stale and are dropped.
func (e *Engine) Commit(hash icx.Bytes32) error {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	pb, ok := e.pending[hash]
	if !ok {
		return icx.Errorf(icx.InvalidRequest, "Unknown block: %s", hash)
	}

	e.mu.Lock()
	if err := e.stater.Commit(pb.st.Stage()); err != nil {
		e.mu.Unlock()
		err = icx.Errorf(icx.Fatal, "commit block %s: %v", hash, err)
		e.fatal(err)
		return err
	}
	e.head = meta{Height: pb.blk.Height, Hash: pb.blk.Hash}
	e.values, e.ranking = pb.values, pb.ranking
	e.mu.Unlock()

	clear(e.pending)
	metricPendingBlockGauge().Set(0)
	metricPRepCount().Set(int64(pb.ranking.Len()))
	logger.Debug("block committed", "height", pb.blk.Height, "hash", hash)
	return nil
}

// Rollback drops the pending block.
func (e *Engine) Rollback(hash icx.Bytes32) error {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	if _, ok := e.pending[hash]; !ok {
		return icx.Errorf(icx.InvalidRequest, "Unknown block: %s", hash)
	}
	delete(e.pending, hash)
	metricPendingBlockGauge().Set(int64(len(e.pending)))
	logger.Debug("block rolled back", "hash", hash)
	return nil
}

// Validate checks a transaction request against the committed state, the way a
// transaction pool admits transactions.
func (e *Engine) Validate(ctx context.Context, params tx.Params) (*tx.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, release, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	defer release()
	return prevalidator.New(v.backend(), v.values, v.locked).Validate(params)
}

// Close waits for the background routines to finish.
func (e *Engine) Close() {
	e.goes.Wait()
}

// view is a consistent read only view of the committed state.
type view struct {
	st      *state.State
	values  *netvalue.Container
	ranking *prep.Ranking
	head    meta
	locked  *fee.LockedList
	ledger  *fee.Ledger
	deploys *deploy.Storage
}

func (v *view) backend() *backend {
	return &backend{v.ledger, v.deploys, v.values}
}

func (e *Engine) snapshot() (*view, func(), error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.initialized {
		return nil, nil, icx.Errorf(icx.InvalidRequest, "Genesis not applied")
	}
	st, release := e.stater.NewSnapshotState()
	return &view{
		st:      st,
		values:  e.values,
		ranking: e.ranking,
		head:    e.head,
		locked:  e.locked,
		ledger:  fee.New(st, e.locked),
		deploys: deploy.NewStorage(st),
	}, release, nil
}
