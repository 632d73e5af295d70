// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"math/big"

	"github.com/vechain/scoreloop/icx"
)

// Protocol versions.
const (
	Version2 = 2
	Version3 = 3
)

// Transaction is the typed view of a transaction request.
type Transaction struct {
	Version   int
	From      icx.Address
	To        icx.Address
	Value     *big.Int
	StepLimit *big.Int // v3
	Fee       *big.Int // v2
	Timestamp *big.Int
	Nonce     *big.Int // optional
	NID       *big.Int
	DataType  DataType
	Data      any
	Hash      icx.Bytes32

	params Params
}

// FromParams decodes a transaction request. A v3 request carries a version field,
// a request without one is a legacy v2 transfer.
func FromParams(params Params) (*Transaction, error) {
	t := &Transaction{params: params, Value: new(big.Int)}

	version, ok, err := params.Int("version")
	if err != nil {
		return nil, err
	}
	switch {
	case !ok:
		t.Version = Version2
	case version.IsInt64() && version.Int64() >= Version3:
		t.Version = int(version.Int64())
	default:
		return nil, icx.Errorf(icx.InvalidParams, "Invalid version: %v", params["version"])
	}

	address := params.Address
	if t.Version == Version2 {
		address = params.LegacyAddress
	}
	if t.From, err = requireAddress(address, "from"); err != nil {
		return nil, err
	}
	if t.From.IsContract() {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid from: %s", t.From)
	}
	if t.To, err = requireAddress(address, "to"); err != nil {
		return nil, err
	}
	if v, ok, err := params.Int("value"); err != nil {
		return nil, err
	} else if ok {
		t.Value = v
	}
	if t.Timestamp, err = requireInt(params, "timestamp"); err != nil {
		return nil, err
	}
	if t.Nonce, _, err = params.Int("nonce"); err != nil {
		return nil, err
	}

	if t.Version == Version2 {
		if t.Fee, err = requireInt(params, "fee"); err != nil {
			return nil, err
		}
		if t.Hash, err = hashOf(params, "tx_hash"); err != nil {
			return nil, err
		}
		return t, nil
	}

	if t.StepLimit, err = requireInt(params, "stepLimit"); err != nil {
		return nil, err
	}
	if t.NID, _, err = params.Int("nid"); err != nil {
		return nil, err
	}
	dataType, _, err := params.String("dataType")
	if err != nil {
		return nil, err
	}
	t.DataType = DataType(dataType)
	t.Data = params["data"]
	if t.Hash, err = hashOf(params, "txHash"); err != nil {
		return nil, err
	}
	return t, nil
}

// Params returns the request params the transaction was decoded from.
func (t *Transaction) Params() Params {
	return t.params
}

// IsDeploy reports whether t installs or updates a contract.
func (t *Transaction) IsDeploy() bool {
	return t.DataType == DataTypeDeploy
}

func requireAddress(lookup func(key string) (icx.Address, bool, error), key string) (icx.Address, error) {
	addr, ok, err := lookup(key)
	if err != nil {
		return icx.Address{}, err
	}
	if !ok {
		return icx.Address{}, icx.Errorf(icx.InvalidRequest, "%s not found", key)
	}
	return addr, nil
}

func requireInt(params Params, key string) (*big.Int, error) {
	n, ok, err := params.Int(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, icx.Errorf(icx.InvalidRequest, "%s not found", key)
	}
	return n, nil
}

func hashOf(params Params, key string) (icx.Bytes32, error) {
	s, ok, err := params.String(key)
	if err != nil {
		return icx.Bytes32{}, err
	}
	if !ok {
		return Hash(params), nil
	}
	h, err := icx.ParseBytes32(s)
	if err != nil {
		return icx.Bytes32{}, icx.Errorf(icx.InvalidParams, "Invalid %s: %s", key, s)
	}
	return h, nil
}
