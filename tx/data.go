// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/vechain/scoreloop/icx"
)

// DataType is the kind of payload a transaction carries.
type DataType string

// Data types. DataTypeNone is a plain transfer.
const (
	DataTypeNone    DataType = ""
	DataTypeCall    DataType = "call"
	DataTypeDeploy  DataType = "deploy"
	DataTypeMessage DataType = "message"
	DataTypeDeposit DataType = "deposit"
)

// IsValid reports whether t is one of the known data types.
func (t DataType) IsValid() bool {
	switch t {
	case DataTypeNone, DataTypeCall, DataTypeDeploy, DataTypeMessage, DataTypeDeposit:
		return true
	}
	return false
}

// Deposit actions.
const (
	DepositActionAdd      = "add"
	DepositActionWithdraw = "withdraw"
)

// ContentTypeZip is the content type of a packaged contract.
const ContentTypeZip = "application/zip"

// CallData is the payload of a call transaction.
type CallData struct {
	Method string
	Params map[string]any
}

// DeployData is the payload of a deploy transaction.
type DeployData struct {
	ContentType string
	Content     string
	Params      map[string]any
	// Imports is the declared dependency manifest, nested objects of module path segments
	// whose leaves are lists of imported names.
	Imports map[string]any
}

// DepositData is the payload of a deposit transaction.
type DepositData struct {
	Action string
	// ID of the deposit to withdraw.
	ID icx.Bytes32
	// Term of a new deposit in blocks, zero if not given.
	Term uint64
}

func dataObject(data any) (map[string]any, error) {
	switch d := data.(type) {
	case map[string]any:
		return d, nil
	case Params:
		return d, nil
	}
	return nil, icx.Errorf(icx.InvalidParams, "Invalid data: not an object")
}

func optionalObject(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	obj, err := dataObject(v)
	if err != nil {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid %s: not an object", key)
	}
	return obj, nil
}

// ParseCallData decodes a call payload. An empty method name is left to the validator.
func ParseCallData(data any) (*CallData, error) {
	m, err := dataObject(data)
	if err != nil {
		return nil, err
	}
	method, _, err := Params(m).String("method")
	if err != nil {
		return nil, err
	}
	params, err := optionalObject(m, "params")
	if err != nil {
		return nil, err
	}
	return &CallData{Method: method, Params: params}, nil
}

// ParseDeployData decodes a deploy payload.
func ParseDeployData(data any) (*DeployData, error) {
	m, err := dataObject(data)
	if err != nil {
		return nil, err
	}
	var d DeployData
	if d.ContentType, _, err = Params(m).String("contentType"); err != nil {
		return nil, err
	}
	if d.Content, _, err = Params(m).String("content"); err != nil {
		return nil, err
	}
	if d.Params, err = optionalObject(m, "params"); err != nil {
		return nil, err
	}
	if d.Imports, err = optionalObject(m, "imports"); err != nil {
		return nil, err
	}
	return &d, nil
}

// ParseDepositData decodes a deposit payload.
func ParseDepositData(data any) (*DepositData, error) {
	m, err := dataObject(data)
	if err != nil {
		return nil, err
	}
	var d DepositData
	if d.Action, _, err = Params(m).String("action"); err != nil {
		return nil, err
	}
	id, ok, err := Params(m).String("id")
	if err != nil {
		return nil, err
	}
	if ok {
		if d.ID, err = icx.ParseBytes32(id); err != nil {
			return nil, icx.Errorf(icx.InvalidParams, "Invalid id: %s", id)
		}
	}
	term, ok, err := Params(m).Int("term")
	if err != nil {
		return nil, err
	}
	if ok {
		if !term.IsUint64() {
			return nil, icx.Errorf(icx.InvalidParams, "Invalid term: %v", term)
		}
		d.Term = term.Uint64()
	}
	return &d, nil
}
