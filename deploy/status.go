// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package deploy

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/vechain/scoreloop/icx"
)

// Status of a deployment.
type Status byte

// Deployment statuses.
const (
	StatusPending Status = iota
	StatusActive
	StatusInactive
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	case StatusRejected:
		return "rejected"
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

// MarshalJSON implements json.Marshaler.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// StatusInfo is one slot of a deployment.
type StatusInfo struct {
	Status       Status      `json:"status"`
	DeployTxHash icx.Bytes32 `json:"deployTxHash"`
	AuditTxHash  icx.Bytes32 `json:"auditTxHash,omitzero"`
}

// DeployInfo is the deployment record of a contract. Current is the deployment in service,
// Next the one waiting for audit.
type DeployInfo struct {
	Score   icx.Address
	Owner   icx.Address
	Current *StatusInfo `rlp:"nil"`
	Next    *StatusInfo `rlp:"nil"`
}

// ScoreStatus is the status view returned by getScoreStatus.
type ScoreStatus struct {
	Current *StatusInfo `json:"current,omitempty"`
	Next    *StatusInfo `json:"next,omitempty"`
}

// DeployTxParams are the params of a deploy transaction, kept until the deployment is audited.
type DeployTxParams struct {
	Score       icx.Address
	From        icx.Address
	Timestamp   *big.Int
	Nonce       *big.Int
	ContentType string
	Params      []byte // json
	Imports     []byte // json
}

// DecodeParams returns the deploy params as an object.
func (p *DeployTxParams) DecodeParams() (map[string]any, error) {
	return decodeObject(p.Params)
}

// DecodeImports returns the declared import manifest.
func (p *DeployTxParams) DecodeImports() (map[string]any, error) {
	return decodeObject(p.Imports)
}

func decodeObject(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, icx.Errorf(icx.InvalidFormat, "decode deploy params: %v", err)
	}
	return m, nil
}
