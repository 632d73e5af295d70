// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/scoreloop/deploy"
	"github.com/vechain/scoreloop/fee"
	"github.com/vechain/scoreloop/governance"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/netvalue"
	"github.com/vechain/scoreloop/prep"
	"github.com/vechain/scoreloop/prevalidator"
	"github.com/vechain/scoreloop/state"
	"github.com/vechain/scoreloop/tx"
)

var (
	// v2 transactions pay the fixed fee, accounted as these steps at this price
	v2StepUsed  = big.NewInt(1_000_000)
	v2StepPrice = big.NewInt(10_000_000_000)
)

// backend implements prevalidator.Backend over a state.
type backend struct {
	ledger  *fee.Ledger
	deploys *deploy.Storage
	values  *netvalue.Container
}

func (b *backend) Balance(addr icx.Address) (*big.Int, error)  { return b.ledger.Balance(addr) }
func (b *backend) HasDeployInfo(addr icx.Address) (bool, error) { return b.deploys.HasDeployInfo(addr) }
func (b *backend) IsActive(addr icx.Address) (bool, error) {
	return b.deploys.IsActive(addr, b.values)
}

// processor executes the transactions of one block over the block's own copies
// of the state, the network values and the ranking.
type processor struct {
	blk       *Block
	st        *state.State
	values    *netvalue.Container
	ranking   *prep.Ranking
	ledger    *fee.Ledger
	deploys   *deploy.Storage
	gov       *governance.Governance
	validator *prevalidator.PreValidator
	executor  Executor

	cumulative *big.Int
}

func newProcessor(blk *Block, st *state.State, values *netvalue.Container, ranking *prep.Ranking, locked *fee.LockedList, executor Executor) *processor {
	ledger := fee.New(st, locked)
	deploys := deploy.NewStorage(st)
	return &processor{
		blk:        blk,
		st:         st,
		values:     values,
		ranking:    ranking,
		ledger:     ledger,
		deploys:    deploys,
		gov:        governance.New(st),
		validator:  prevalidator.New(&backend{ledger, deploys, values}, values, locked),
		executor:   executor,
		cumulative: new(big.Int),
	}
}

func (p *processor) process(ctx context.Context) (*BlockResult, error) {
	result := &BlockResult{Height: p.blk.Height, Hash: p.blk.Hash, Receipts: make([]*Receipt, 0, len(p.blk.Txs))}
	for i, params := range p.blk.Txs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := p.executeTx(uint32(i), params)
		if err != nil {
			return nil, err
		}
		metricTxCounter().AddWithLabel(1, map[string]string{"result": resultLabel(r)})
		result.Receipts = append(result.Receipts, r)
	}
	if err := putMeta(p.st, &meta{p.blk.Height, p.blk.Hash}); err != nil {
		return nil, err
	}
	return result, nil
}

func resultLabel(r *Receipt) string {
	if r.Succeeded() {
		return "success"
	}
	return icx.Kind(r.Failure.Code).String()
}

// receiptHash is the hash a receipt of an undecodable request is filed under.
func receiptHash(params tx.Params) icx.Bytes32 {
	for _, key := range []string{"txHash", "tx_hash"} {
		if s, ok := params[key].(string); ok {
			if h, err := icx.ParseBytes32(s); err == nil {
				return h
			}
		}
	}
	return tx.Hash(params)
}

// executeTx runs one transaction. Only fatal errors are returned, any other failure ends up in the receipt.
func (p *processor) executeTx(index uint32, params tx.Params) (*Receipt, error) {
	t, err := p.validator.Validate(params)
	if err != nil {
		if icx.IsFatal(err) {
			return nil, err
		}
		r := &Receipt{
			TxHash:    receiptHash(params),
			TxIndex:   index,
			Status:    StatusFailure,
			StepUsed:  bigOf(new(big.Int)),
			StepPrice: bigOf(new(big.Int)),
			Failure:   newFailure(err),
			EventLogs: []icx.EventLog{},
		}
		r.To, _, _ = params.Address("to")
		r.CumulativeStepUsed = bigOf(p.cumulative)
		return r, nil
	}
	if t.Version < tx.Version3 {
		return p.executeV2(index, t)
	}

	revision := p.values.Revision()
	stepPrice := p.values.StepPrice()
	if !p.values.ServiceConfig().Has(netvalue.ServiceFee) {
		stepPrice = new(big.Int)
	}
	limit := t.StepLimit
	if ceiling := p.values.MaxStepLimit(icx.ContextTypeInvoke); ceiling.Sign() > 0 && limit.Cmp(ceiling) > 0 {
		limit = ceiling
	}
	tc := &txContext{
		st:       p.st,
		ledger:   p.ledger,
		deploys:  p.deploys,
		gov:      p.gov,
		values:   p.values,
		meter:    newStepMeter(p.values.StepCosts(), limit),
		executor: p.executor,
		revision: revision,
		height:   p.blk.Height,
		txHash:   t.Hash,
		origin:   t.From,
	}
	r := &Receipt{TxHash: t.Hash, TxIndex: index, To: t.To, StepPrice: bigOf(stepPrice)}

	cp := p.st.Checkpoint()
	batch := p.values.NewBatch()
	var ranking *prep.Ranking
	if t.To == icx.SystemAddress && t.DataType == tx.DataTypeCall {
		ranking = p.ranking.Copy()
	}

	score, err := p.run(tc, batch, t, index)
	if err == nil {
		err = p.settle(tc, t, stepPrice)
	}
	if err == nil {
		if err = p.values.CommitBatch(p.st, batch); err != nil {
			return nil, icx.Errorf(icx.Fatal, "commit network values of %s: %v", t.Hash, err)
		}
		r.Status = StatusSuccess
		r.ScoreAddress = score
		r.EventLogs = tc.events
	} else {
		if icx.IsFatal(err) {
			return nil, err
		}
		p.st.RevertTo(cp)
		p.values.DiscardBatch(batch)
		if ranking != nil {
			*p.ranking = *ranking
		}
		if serr := p.settle(tc, t, stepPrice); serr != nil {
			return nil, icx.Errorf(icx.Fatal, "charge fee of failed tx %s: %v", t.Hash, serr)
		}
		logger.Debug("tx failed", "txHash", t.Hash, "from", t.From, "to", t.To, "err", err)
		r.Status = StatusFailure
		r.Failure = newFailure(err)
		r.EventLogs = []icx.EventLog{}
	}
	if r.EventLogs == nil {
		r.EventLogs = []icx.EventLog{}
	}
	r.StepUsed = bigOf(tc.meter.Used())
	p.cumulative.Add(p.cumulative, tc.meter.Used())
	r.CumulativeStepUsed = bigOf(p.cumulative)
	return r, nil
}

// settle charges the fee of the steps used so far.
func (p *processor) settle(tc *txContext, t *tx.Transaction, stepPrice *big.Int) error {
	var score *icx.Address
	if t.To.IsContract() {
		score = &t.To
	}
	_, err := p.ledger.ChargeFee(t.From, score, tc.meter.Used(), stepPrice, p.blk.Height)
	return err
}

func (p *processor) executeV2(index uint32, t *tx.Transaction) (*Receipt, error) {
	r := &Receipt{
		TxHash:    t.Hash,
		TxIndex:   index,
		To:        t.To,
		StepUsed:  bigOf(v2StepUsed),
		StepPrice: bigOf(v2StepPrice),
		EventLogs: []icx.EventLog{},
	}
	cp := p.st.Checkpoint()
	err := p.ledger.Transfer(p.values.Revision(), t.From, t.To, t.Value)
	if err == nil {
		_, err = p.ledger.ChargeFee(t.From, nil, v2StepUsed, v2StepPrice, p.blk.Height)
	}
	switch {
	case err == nil:
		r.Status = StatusSuccess
	case icx.IsFatal(err):
		return nil, err
	default:
		p.st.RevertTo(cp)
		if _, err := p.ledger.ChargeFee(t.From, nil, v2StepUsed, v2StepPrice, p.blk.Height); err != nil {
			return nil, icx.Errorf(icx.Fatal, "charge fee of failed tx %s: %v", t.Hash, err)
		}
		r.Status = StatusFailure
		r.Failure = newFailure(err)
	}
	p.cumulative.Add(p.cumulative, v2StepUsed)
	r.CumulativeStepUsed = bigOf(p.cumulative)
	return r, nil
}

// run applies the transaction body. It returns the address of an installed contract, if any.
func (p *processor) run(tc *txContext, batch *netvalue.Batch, t *tx.Transaction, index uint32) (*icx.Address, error) {
	if err := tc.meter.consume(icx.StepTypeDefault, 1); err != nil {
		return nil, err
	}
	size, err := prevalidator.DataSize(t.Data)
	if err != nil {
		return nil, err
	}
	if err := tc.meter.consume(icx.StepTypeInput, int64(size)); err != nil {
		return nil, err
	}

	switch t.DataType {
	case tx.DataTypeDeploy:
		return p.deploy(tc, t)
	case tx.DataTypeDeposit:
		return nil, p.deposit(tc, t)
	case tx.DataTypeCall:
		data, err := tx.ParseCallData(t.Data)
		if err != nil {
			return nil, err
		}
		return nil, p.call(tc, batch, t, index, data.Method, data.Params)
	}
	if t.To.IsContract() && t.To != icx.SystemAddress {
		return nil, p.call(tc, batch, t, index, "", nil)
	}
	return nil, p.ledger.Transfer(tc.revision, t.From, t.To, t.Value)
}

func (p *processor) call(tc *txContext, batch *netvalue.Batch, t *tx.Transaction, index uint32, method string, params map[string]any) error {
	switch t.To {
	case icx.GovernanceAddress:
		if err := tc.meter.consume(icx.StepTypeAPICall, 1); err != nil {
			return err
		}
		if err := p.ledger.Transfer(tc.revision, t.From, t.To, t.Value); err != nil {
			return err
		}
		env := &governance.Env{
			Sender:  t.From,
			Value:   t.Value,
			TxHash:  t.Hash,
			Values:  p.values,
			Batch:   batch,
			Deploys: p.deploys,
		}
		_, err := p.gov.Invoke(env, method, params)
		tc.events = append(tc.events, env.Events...)
		return err
	case icx.SystemAddress:
		manager := prep.NewManager(p.st, p.ranking, p.ledger)
		_, err := invokeSystem(&sysEnv{tc: tc, manager: manager, from: t.From, value: t.Value, txIndex: index}, method, tx.Params(params))
		return err
	}
	_, err := tc.call(t.From, t.To, t.Value, method, params)
	return err
}

func (p *processor) deploy(tc *txContext, t *tx.Transaction) (*icx.Address, error) {
	data, err := tx.ParseDeployData(t.Data)
	if err != nil {
		return nil, err
	}
	if t.Value.Sign() != 0 {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid value: deploy can not carry value")
	}
	code, err := hexutil.Decode(data.Content)
	if err != nil {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid content: %v", err)
	}

	score, stepType := t.To, icx.StepTypeContractUpdate
	if t.To == icx.SystemAddress {
		score, stepType = icx.CreateContractAddress(t.From, t.Timestamp, t.Nonce), icx.StepTypeContractCreate
	}
	if err := tc.meter.consume(stepType, 1); err != nil {
		return nil, err
	}
	if err := tc.meter.consume(icx.StepTypeContractSet, int64(len(code))); err != nil {
		return nil, err
	}

	params := &deploy.DeployTxParams{
		Score:       score,
		From:        t.From,
		Timestamp:   t.Timestamp,
		Nonce:       t.Nonce,
		ContentType: data.ContentType,
	}
	if params.Nonce == nil {
		params.Nonce = new(big.Int)
	}
	if data.Params != nil {
		if params.Params, err = json.Marshal(data.Params); err != nil {
			return nil, icx.Errorf(icx.InvalidParams, "Invalid params: %v", err)
		}
	}
	if data.Imports != nil {
		if params.Imports, err = json.Marshal(data.Imports); err != nil {
			return nil, icx.Errorf(icx.InvalidParams, "Invalid imports: %v", err)
		}
	}
	if _, err := p.deploys.RecordDeploy(t.From, t.Hash, params, code); err != nil {
		return nil, err
	}

	if !p.values.ServiceConfig().Has(netvalue.ServiceAudit) {
		version, err := p.gov.Version()
		if err != nil {
			return nil, err
		}
		if p.values.ServiceConfig().Has(netvalue.ServiceScorePackageValidator) {
			if err := p.deploys.CheckImports(t.Hash, deploy.NewImportValidator(p.values.ImportWhiteList())); err != nil {
				return nil, err
			}
		}
		if _, err := p.deploys.Accept(version, t.Hash, icx.Bytes32{}); err != nil {
			return nil, err
		}
	}
	return &score, nil
}

func (p *processor) deposit(tc *txContext, t *tx.Transaction) error {
	data, err := tx.ParseDepositData(t.Data)
	if err != nil {
		return err
	}
	info, err := p.deploys.DeployInfo(t.To)
	if err != nil {
		return err
	}
	if info == nil || info.Owner != t.From {
		return icx.Errorf(icx.AccessDenied, "Invalid sender: %s is not the owner of %s", t.From, t.To)
	}
	stepPrice := p.values.StepPrice()

	switch data.Action {
	case tx.DepositActionAdd:
		term := data.Term
		if term == 0 {
			term = fee.MinDepositTerm
		}
		d, err := p.ledger.AddDeposit(t.Hash, t.To, t.From, t.Value, tc.height, term, stepPrice)
		if err != nil {
			return err
		}
		tc.events = append(tc.events, icx.NewEventLog(t.To, "DepositAdded(bytes,Address,int,int)", 2,
			d.ID, t.From, d.Amount.ToBig(), new(big.Int).SetUint64(term)))
		return nil
	case tx.DepositActionWithdraw:
		if t.Value.Sign() != 0 {
			return icx.Errorf(icx.InvalidParams, "Invalid value: withdraw can not carry value")
		}
		d, err := p.ledger.Deposit(data.ID)
		if err != nil {
			return err
		}
		if d.Score != t.To {
			return icx.Errorf(icx.InvalidParams, "Invalid deposit id: %s", data.ID)
		}
		w, err := p.ledger.WithdrawDeposit(data.ID, t.From, tc.height, stepPrice)
		if err != nil {
			return err
		}
		tc.events = append(tc.events, icx.NewEventLog(t.To, "DepositWithdrawn(bytes,Address,int,int)", 2,
			data.ID, t.From, w.Refund, w.Penalty))
		return nil
	}
	return icx.Errorf(icx.InvalidParams, "Invalid deposit action: %s", data.Action)
}

var metaKey = []byte("engine|meta")

func putMeta(st *state.State, m *meta) error {
	return st.EncodeStorage(metaKey, func() ([]byte, error) { return rlp.EncodeToBytes(m) })
}
