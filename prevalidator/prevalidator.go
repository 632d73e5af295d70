// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package prevalidator screens transactions before they reach execution.
package prevalidator

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/vechain/scoreloop/fee"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/log"
	"github.com/vechain/scoreloop/netvalue"
	"github.com/vechain/scoreloop/tx"
)

var logger = log.WithContext("pkg", "prevalidator")

// Backend is the state a transaction is checked against.
type Backend interface {
	Balance(addr icx.Address) (*big.Int, error)
	HasDeployInfo(addr icx.Address) (bool, error)
	// IsActive reports whether the contract is accepted and not black listed.
	IsActive(addr icx.Address) (bool, error)
}

// PreValidator checks transactions against a backend and the network values of the same state.
type PreValidator struct {
	backend Backend
	values  *netvalue.Container
	locked  *fee.LockedList
}

// New creates a pre-validator.
func New(backend Backend, values *netvalue.Container, locked *fee.LockedList) *PreValidator {
	return &PreValidator{backend, values, locked}
}

// Validate decodes and checks a transaction request.
func (v *PreValidator) Validate(params tx.Params) (*tx.Transaction, error) {
	revision := v.values.Revision()
	if _, ok := params["version"]; ok {
		if err := ValidateOriginFields(revision, params); err != nil {
			return nil, err
		}
	}
	t, err := tx.FromParams(params)
	if err != nil {
		return nil, err
	}
	minimumStep, err := MinimumStep(v.values.StepCosts(), t)
	if err != nil {
		return nil, err
	}
	if err := v.Execute(revision, t, v.values.StepPrice(), minimumStep); err != nil {
		logger.Debug("transaction rejected", "txHash", t.Hash, "from", t.From, "err", err)
		return nil, err
	}
	return t, nil
}

// DataSize returns the size of the serialized data field.
func DataSize(data any) (int, error) {
	if data == nil {
		return 0, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return 0, icx.Errorf(icx.InvalidParams, "Invalid data: %v", err)
	}
	return len(b), nil
}

// MinimumStep is the lowest step limit t may carry: the default cost plus the input cost of its data.
func MinimumStep(costs netvalue.StepCosts, t *tx.Transaction) (*big.Int, error) {
	size, err := DataSize(t.Data)
	if err != nil {
		return nil, err
	}
	step := big.NewInt(costs.Get(icx.StepTypeInput))
	step.Mul(step, big.NewInt(int64(size)))
	return step.Add(step, big.NewInt(costs.Get(icx.StepTypeDefault))), nil
}

// Execute checks the economic feasibility and the payload of t.
func (v *PreValidator) Execute(revision int, t *tx.Transaction, stepPrice, minimumStep *big.Int) error {
	if t.Value.Sign() < 0 || t.Value.Cmp(math.MaxBig256) > 0 {
		return icx.Errorf(icx.InvalidParams, "Invalid value: %v", t.Value)
	}
	if t.Version < tx.Version3 {
		return v.executeV2(t)
	}

	if t.StepLimit.Cmp(minimumStep) < 0 {
		return icx.Errorf(icx.InvalidRequest, "Step limit too low: stepLimit=%v minimumStep=%v", t.StepLimit, minimumStep)
	}
	txFee := new(big.Int).Mul(t.StepLimit, stepPrice)
	if txFee.Cmp(math.MaxBig256) > 0 {
		return icx.Errorf(icx.InvalidParams, "Invalid stepLimit: %v", t.StepLimit)
	}
	if err := v.checkBalance(t.From, t.Value, txFee); err != nil {
		return err
	}
	if t.To.IsContract() {
		if err := v.locked.Check(revision, t.From); err != nil {
			return err
		}
	}

	if revision >= icx.RevisionImprovedPreValidator {
		size, err := DataSize(t.Data)
		if err != nil {
			return err
		}
		if size > icx.MaxDataSize {
			return icx.Errorf(icx.InvalidRequest, "Invalid data: size %d exceeds %d", size, icx.MaxDataSize)
		}
	}
	if err := ValidateDataType(revision, t.To, t.DataType); err != nil {
		return err
	}

	switch t.DataType {
	case tx.DataTypeDeploy:
		return v.ValidateDeployTransaction(t)
	case tx.DataTypeCall:
		return v.ValidateCallTransaction(t)
	case tx.DataTypeDeposit:
		return v.ValidateDepositTransaction(t)
	}
	if t.To.IsContract() {
		return v.checkActive(t.To)
	}
	return nil
}

func (v *PreValidator) executeV2(t *tx.Transaction) error {
	if t.Fee.Cmp(icx.FixedFee) != 0 {
		return icx.Errorf(icx.InvalidParams, "Invalid fee: %v", t.Fee)
	}
	if t.To.IsContract() {
		return icx.Errorf(icx.InvalidRequest, "Not allowed to transfer coin to a contract: %s", t.To)
	}
	return v.checkBalance(t.From, t.Value, t.Fee)
}

func (v *PreValidator) checkBalance(from icx.Address, value, txFee *big.Int) error {
	balance, err := v.backend.Balance(from)
	if err != nil {
		return err
	}
	return fee.CheckBalance(from, balance, value, txFee)
}

func (v *PreValidator) checkActive(addr icx.Address) error {
	if addr == icx.SystemAddress {
		return nil
	}
	active, err := v.backend.IsActive(addr)
	if err != nil {
		return err
	}
	if !active {
		return icx.Errorf(icx.InvalidParams, "Inactive score: %s", addr)
	}
	return nil
}

// ValidateDataType checks the data type is known and fits the target. It applies from RevisionImprovedPreValidator on.
func ValidateDataType(revision int, to icx.Address, dataType tx.DataType) error {
	if revision < icx.RevisionImprovedPreValidator {
		return nil
	}
	if !dataType.IsValid() {
		return icx.Errorf(icx.InvalidParams, "Invalid dataType: %s", dataType)
	}
	if !to.IsContract() && dataType != tx.DataTypeNone && dataType != tx.DataTypeMessage {
		return icx.Errorf(icx.InvalidParams, "Invalid dataType: %s is not allowed to an EOA %s", dataType, to)
	}
	return nil
}

// ValidateDeployTransaction checks the deploy payload and the deploy target.
func (v *PreValidator) ValidateDeployTransaction(t *tx.Transaction) error {
	data, err := tx.ParseDeployData(t.Data)
	if err != nil {
		return err
	}
	if data.ContentType == "" {
		return icx.Errorf(icx.InvalidRequest, "Invalid data: contentType not found")
	}
	if data.Content == "" {
		return icx.Errorf(icx.InvalidRequest, "Invalid data: content not found")
	}
	if data.ContentType != tx.ContentTypeZip {
		return icx.Errorf(icx.InvalidParams, "Invalid contentType: %s", data.ContentType)
	}
	if !t.To.IsContract() {
		return icx.Errorf(icx.InvalidParams, "Invalid deploy target: %s", t.To)
	}
	if err := v.checkActive(t.To); err != nil {
		return err
	}
	return v.ValidateNewScoreAddressOnDeploy(t, data.ContentType)
}

// ValidateNewScoreAddressOnDeploy rejects an install whose derived contract address is already taken.
func (v *PreValidator) ValidateNewScoreAddressOnDeploy(t *tx.Transaction, contentType string) error {
	if t.To != icx.SystemAddress || contentType != tx.ContentTypeZip {
		return nil
	}
	addr := icx.CreateContractAddress(t.From, t.Timestamp, t.Nonce)
	taken, err := v.backend.HasDeployInfo(addr)
	if err != nil {
		return err
	}
	if taken {
		return icx.Errorf(icx.InvalidRequest, "Score address already in use: %s", addr)
	}
	return nil
}

// ValidateCallTransaction checks the call payload and that the target is active.
func (v *PreValidator) ValidateCallTransaction(t *tx.Transaction) error {
	data, err := tx.ParseCallData(t.Data)
	if err != nil {
		return err
	}
	if data.Method == "" {
		return icx.Errorf(icx.InvalidRequest, "Invalid data: method not found")
	}
	return v.checkActive(t.To)
}

// ValidateDepositTransaction checks the deposit payload and that the target is active.
func (v *PreValidator) ValidateDepositTransaction(t *tx.Transaction) error {
	data, err := tx.ParseDepositData(t.Data)
	if err != nil {
		return err
	}
	switch data.Action {
	case "":
		return icx.Errorf(icx.InvalidRequest, "Invalid data: action not found")
	case tx.DepositActionAdd:
	case tx.DepositActionWithdraw:
		if data.ID.IsZero() {
			return icx.Errorf(icx.InvalidRequest, "Invalid data: id not found")
		}
	default:
		return icx.Errorf(icx.InvalidParams, "Invalid deposit action: %s", data.Action)
	}
	if t.To == icx.SystemAddress {
		return icx.Errorf(icx.InvalidParams, "Invalid deposit target: %s", t.To)
	}
	return v.checkActive(t.To)
}
