// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package prevalidator

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/scoreloop/fee"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/netvalue"
	"github.com/vechain/scoreloop/tx"
)

type backend struct {
	balances map[icx.Address]*big.Int
	deployed map[icx.Address]bool
	active   map[icx.Address]bool
}

func newBackend() *backend {
	return &backend{
		balances: make(map[icx.Address]*big.Int),
		deployed: make(map[icx.Address]bool),
		active:   make(map[icx.Address]bool),
	}
}

func (b *backend) Balance(addr icx.Address) (*big.Int, error) {
	if v, ok := b.balances[addr]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (b *backend) HasDeployInfo(addr icx.Address) (bool, error) { return b.deployed[addr], nil }
func (b *backend) IsActive(addr icx.Address) (bool, error)      { return b.active[addr], nil }

var (
	alice  = icx.NewEOAAddress([]byte("alice"))
	bob    = icx.NewEOAAddress([]byte("bob"))
	score  = icx.NewContractAddress([]byte("score"))
	locked = icx.NewEOAAddress([]byte("locked"))

	stepPrice   = netvalue.DefaultStepPrice
	minimumStep = big.NewInt(0x186a0)
	minimumFee  = new(big.Int).Mul(minimumStep, stepPrice)
)

func newValidator() (*PreValidator, *backend) {
	b := newBackend()
	b.balances[alice] = new(big.Int).Set(icx.ICX)
	b.balances[locked] = new(big.Int).Set(icx.ICX)
	b.active[score] = true
	b.deployed[score] = true
	return New(b, netvalue.NewContainer(), fee.NewLockedList([]icx.Address{locked})), b
}

func v3Params(from, to icx.Address) tx.Params {
	return tx.Params{
		"version":   "0x3",
		"from":      from.String(),
		"to":        to.String(),
		"value":     "0x0",
		"stepLimit": hexutil.EncodeBig(minimumStep),
		"timestamp": "0x5c9a5b0c5a4e0",
		"nid":       "0x1",
		"signature": "c2lnbmF0dXJl",
	}
}

func execute(t *testing.T, v *PreValidator, revision int, params tx.Params) error {
	trx, err := tx.FromParams(params)
	require.NoError(t, err)
	return v.Execute(revision, trx, stepPrice, minimumStep)
}

func TestValidateOriginFields(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p tx.Params)
		kind   icx.Kind
	}{
		{"decimal version", func(p tx.Params) { p["version"] = "3" }, icx.InvalidRequest},
		{"unknown field", func(p tx.Params) { p["fee"] = "0x1" }, icx.InvalidRequest},
		{"missing nid", func(p tx.Params) { delete(p, "nid") }, icx.InvalidRequest},
		{"missing signature", func(p tx.Params) { delete(p, "signature") }, icx.InvalidRequest},
		{"leading zero", func(p tx.Params) { p["timestamp"] = "0x05" }, icx.InvalidParams},
		{"upper case hex", func(p tx.Params) { p["stepLimit"] = "0x186A0" }, icx.InvalidParams},
		{"decimal int", func(p tx.Params) { p["nid"] = "1" }, icx.InvalidParams},
		{"negative zero", func(p tx.Params) { p["value"] = "-0x0" }, icx.InvalidParams},
		{"int not string", func(p tx.Params) { p["nonce"] = 1.0 }, icx.InvalidParams},
		{"upper case address", func(p tx.Params) { p["to"] = strings.ToUpper(bob.String()) }, icx.InvalidFormat},
		{"short address", func(p tx.Params) { p["from"] = "hx1234" }, icx.InvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := v3Params(alice, bob)
			tt.modify(p)
			err := ValidateOriginFields(icx.RevisionImprovedPreValidator, p)
			assert.Equal(t, tt.kind, icx.KindOf(err), "%v", err)
			assert.NoError(t, ValidateOriginFields(icx.RevisionImprovedPreValidator-1, p))
		})
	}

	p := v3Params(alice, bob)
	p["value"] = "-0x1"
	p["dataType"] = "message"
	p["data"] = "0x68656c6c6f"
	assert.NoError(t, ValidateOriginFields(icx.RevisionImprovedPreValidator, p))
}

func TestCheckBalanceBoundary(t *testing.T) {
	v, b := newValidator()
	value := big.NewInt(0x10)

	b.balances[bob] = new(big.Int).Add(value, minimumFee)
	p := v3Params(bob, alice)
	p["value"] = hexutil.EncodeBig(value)
	assert.NoError(t, execute(t, v, icx.LatestRevision, p))

	b.balances[bob].Sub(b.balances[bob], big.NewInt(1))
	err := execute(t, v, icx.LatestRevision, p)
	assert.Equal(t, icx.OutOfBalance, icx.KindOf(err))
	assert.Contains(t, err.Error(), "Out of balance: from="+bob.String())

	delete(b.balances, bob)
	assert.Equal(t, icx.OutOfBalance, icx.KindOf(execute(t, v, icx.LatestRevision, p)))
}

func TestValueAndStepLimit(t *testing.T) {
	v, _ := newValidator()

	p := v3Params(alice, bob)
	p["value"] = "-0x1"
	assert.Equal(t, icx.InvalidParams, icx.KindOf(execute(t, v, icx.LatestRevision, p)))

	p["value"] = hexutil.EncodeBig(new(big.Int).Lsh(big.NewInt(1), 256))
	assert.Equal(t, icx.InvalidParams, icx.KindOf(execute(t, v, icx.LatestRevision, p)))

	p = v3Params(alice, bob)
	p["stepLimit"] = hexutil.EncodeBig(new(big.Int).Sub(minimumStep, big.NewInt(1)))
	err := execute(t, v, icx.LatestRevision, p)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
}

func TestLockedAddress(t *testing.T) {
	v, _ := newValidator()
	p := v3Params(locked, score)

	assert.NoError(t, execute(t, v, icx.RevisionLockAddress-1, p))

	err := execute(t, v, icx.RevisionLockAddress, p)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
	assert.Contains(t, err.Error(), locked.String())

	// transfers between accounts are left to execution
	assert.NoError(t, execute(t, v, icx.RevisionLockAddress, v3Params(locked, bob)))
}

func deployParams(timestamp string) tx.Params {
	p := v3Params(alice, icx.SystemAddress)
	p["timestamp"] = timestamp
	p["dataType"] = "deploy"
	p["data"] = map[string]any{"contentType": tx.ContentTypeZip, "content": "0x504b0304"}
	return p
}

func TestDeployCollision(t *testing.T) {
	v, b := newValidator()
	p := deployParams("0x1")

	trx, err := tx.FromParams(p)
	require.NoError(t, err)
	taken := icx.CreateContractAddress(alice, trx.Timestamp, trx.Nonce)
	b.deployed[taken] = true

	step, err := MinimumStep(netvalue.DefaultStepCosts(), trx)
	require.NoError(t, err)
	p["stepLimit"] = hexutil.EncodeBig(step)

	trx, err = tx.FromParams(p)
	require.NoError(t, err)
	err = v.Execute(icx.LatestRevision, trx, stepPrice, step)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
	assert.Contains(t, err.Error(), taken.String())

	p["timestamp"] = "0x2"
	trx, err = tx.FromParams(p)
	require.NoError(t, err)
	assert.NoError(t, v.Execute(icx.LatestRevision, trx, stepPrice, step))
}

func TestDeployPayload(t *testing.T) {
	v, _ := newValidator()

	p := deployParams("0x1")
	p["data"] = map[string]any{"content": "0x00"}
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(execute(t, v, icx.LatestRevision, p)))

	p["data"] = map[string]any{"contentType": tx.ContentTypeZip}
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(execute(t, v, icx.LatestRevision, p)))

	p["data"] = map[string]any{"contentType": "text/plain", "content": "0x00"}
	assert.Equal(t, icx.InvalidParams, icx.KindOf(execute(t, v, icx.LatestRevision, p)))

	// update of a contract waiting for audit
	p = deployParams("0x1")
	p["to"] = icx.NewContractAddress([]byte("pending")).String()
	assert.Equal(t, icx.InvalidParams, icx.KindOf(execute(t, v, icx.LatestRevision, p)))

	p["to"] = score.String()
	assert.NoError(t, execute(t, v, icx.LatestRevision, p))
}

func TestCallAndDeposit(t *testing.T) {
	v, b := newValidator()

	p := v3Params(alice, score)
	p["dataType"] = "call"
	p["data"] = map[string]any{"method": "transfer", "params": map[string]any{"to": bob.String()}}
	assert.NoError(t, execute(t, v, icx.LatestRevision, p))

	p["data"] = map[string]any{"params": map[string]any{}}
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(execute(t, v, icx.LatestRevision, p)))

	p["data"] = map[string]any{"method": "transfer"}
	b.active[score] = false
	err := execute(t, v, icx.LatestRevision, p)
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))
	assert.Contains(t, err.Error(), score.String())

	// plain transfers to an inactive contract are rejected too
	assert.Equal(t, icx.InvalidParams, icx.KindOf(execute(t, v, icx.LatestRevision, v3Params(alice, score))))
	b.active[score] = true

	p = v3Params(alice, score)
	p["dataType"] = "deposit"
	p["data"] = map[string]any{"action": "add"}
	assert.NoError(t, execute(t, v, icx.LatestRevision, p))
	p["data"] = map[string]any{"action": "withdraw"}
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(execute(t, v, icx.LatestRevision, p)))
	p["data"] = map[string]any{"action": "withdraw", "id": icx.Bytes32{1}.String()}
	assert.NoError(t, execute(t, v, icx.LatestRevision, p))
	p["data"] = map[string]any{"action": "borrow"}
	assert.Equal(t, icx.InvalidParams, icx.KindOf(execute(t, v, icx.LatestRevision, p)))
}

func TestValidateDataType(t *testing.T) {
	rev := icx.RevisionImprovedPreValidator
	assert.NoError(t, ValidateDataType(rev, bob, tx.DataTypeNone))
	assert.NoError(t, ValidateDataType(rev, bob, tx.DataTypeMessage))
	assert.NoError(t, ValidateDataType(rev, score, tx.DataTypeCall))
	for _, dt := range []tx.DataType{tx.DataTypeCall, tx.DataTypeDeploy, tx.DataTypeDeposit} {
		assert.Equal(t, icx.InvalidParams, icx.KindOf(ValidateDataType(rev, bob, dt)), dt)
		assert.NoError(t, ValidateDataType(rev-1, bob, dt))
	}
	assert.Equal(t, icx.InvalidParams, icx.KindOf(ValidateDataType(rev, score, "transfer")))
}

func TestDataSizeLimit(t *testing.T) {
	v, _ := newValidator()
	p := v3Params(alice, bob)
	p["dataType"] = "message"
	p["data"] = "0x" + strings.Repeat("00", icx.MaxDataSize/2)

	trx, err := tx.FromParams(p)
	require.NoError(t, err)
	huge := new(big.Int).Lsh(big.NewInt(1), 40)
	trx.StepLimit = huge
	v.backend.(*backend).balances[alice] = new(big.Int).Mul(huge, stepPrice)

	err = v.Execute(icx.LatestRevision, trx, stepPrice, minimumStep)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
	assert.NoError(t, v.Execute(icx.RevisionImprovedPreValidator-1, trx, stepPrice, minimumStep))
}

func TestV2(t *testing.T) {
	v, _ := newValidator()
	p := tx.Params{
		"from":      alice.String(),
		"to":        bob.String(),
		"value":     "0x1",
		"fee":       hexutil.EncodeBig(icx.FixedFee),
		"timestamp": "0x1",
	}
	assert.NoError(t, execute(t, v, icx.LatestRevision, p))

	p["fee"] = "0x1"
	assert.Equal(t, icx.InvalidParams, icx.KindOf(execute(t, v, icx.LatestRevision, p)))

	p["fee"] = hexutil.EncodeBig(icx.FixedFee)
	p["to"] = score.String()
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(execute(t, v, icx.LatestRevision, p)))
}

func TestValidate(t *testing.T) {
	v, _ := newValidator()

	trx, err := v.Validate(v3Params(alice, bob))
	require.NoError(t, err)
	assert.Equal(t, tx.Version3, trx.Version)
	assert.Equal(t, tx.Hash(v3Params(alice, bob)), trx.Hash)

	p := v3Params(alice, bob)
	delete(p, "from")
	_, err = v.Validate(p)
	assert.Equal(t, icx.InvalidRequest, icx.KindOf(err))
}
