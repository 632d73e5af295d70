// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package deploy tracks the deployment lifecycle of contracts: a deploy is recorded as
// pending and then accepted or rejected by an auditor through governance.
package deploy

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/kv"
	"github.com/vechain/scoreloop/log"
)

var logger = log.WithContext("pkg", "deploy")

// Storage prefixes.
var (
	infoBucket       = kv.Bucket("di")
	txParamsBucket   = kv.Bucket("dt")
	stagedCodeBucket = kv.Bucket("cn")
	liveCodeBucket   = kv.Bucket("cc")
)

// Governance versions, selecting how accept and reject match the given deploy tx hash.
const (
	// GovernanceV1 only checks that the next deployment is pending. Accepting a superseded
	// tx hash still moves current, while next keeps the newer deployment.
	GovernanceV1 = 1
	// GovernanceV2 requires the tx hash to be the one of the next deployment.
	GovernanceV2 = 2
)

// BlackList tells black listed contracts.
type BlackList interface {
	IsBlacklisted(addr icx.Address) bool
}

// Storage is the deployment storage over a state.
type Storage struct {
	infos      kv.GetPutter
	txParams   kv.GetPutter
	stagedCode kv.GetPutter
	liveCode   kv.GetPutter
}

// NewStorage creates the deployment storage.
func NewStorage(st kv.GetPutter) *Storage {
	return &Storage{
		infos:      infoBucket.NewGetPutter(st),
		txParams:   txParamsBucket.NewGetPutter(st),
		stagedCode: stagedCodeBucket.NewGetPutter(st),
		liveCode:   liveCodeBucket.NewGetPutter(st),
	}
}

func getRLP(g kv.Getter, key []byte, val any) (bool, error) {
	data, err := g.Get(key)
	if err != nil {
		if g.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := rlp.DecodeBytes(data, val); err != nil {
		return false, errors.Wrapf(err, "decode %x", key)
	}
	return true, nil
}

func putRLP(p kv.Putter, key []byte, val any) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return p.Put(key, data)
}

// DeployInfo returns the deployment record of addr, nil if never deployed.
func (s *Storage) DeployInfo(addr icx.Address) (*DeployInfo, error) {
	var info DeployInfo
	ok, err := getRLP(s.infos, addr.Bytes(), &info)
	if err != nil || !ok {
		return nil, err
	}
	return &info, nil
}

// HasDeployInfo reports whether addr has a deployment record.
func (s *Storage) HasDeployInfo(addr icx.Address) (bool, error) {
	return s.infos.Has(addr.Bytes())
}

// DeployTxParams returns the params of the deploy transaction, nil if unknown.
func (s *Storage) DeployTxParams(txHash icx.Bytes32) (*DeployTxParams, error) {
	var p DeployTxParams
	ok, err := getRLP(s.txParams, txHash[:], &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// ScoreStatus returns the status of addr.
func (s *Storage) ScoreStatus(addr icx.Address) (*ScoreStatus, error) {
	info, err := s.DeployInfo(addr)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, icx.Errorf(icx.ScoreNotFound, "Score not found: %s", addr)
	}
	return &ScoreStatus{Current: info.Current, Next: info.Next}, nil
}

// IsActive reports whether addr can be called. The system address is always active.
func (s *Storage) IsActive(addr icx.Address, blackList BlackList) (bool, error) {
	if addr == icx.SystemAddress {
		return true, nil
	}
	if blackList != nil && blackList.IsBlacklisted(addr) {
		return false, nil
	}
	info, err := s.DeployInfo(addr)
	if err != nil || info == nil {
		return false, err
	}
	return info.Current != nil && info.Current.Status == StatusActive, nil
}

// Code returns the code in service at addr.
func (s *Storage) Code(addr icx.Address) ([]byte, error) {
	code, err := s.liveCode.Get(addr.Bytes())
	if err != nil && s.liveCode.IsNotFound(err) {
		return nil, nil
	}
	return code, err
}

// RecordDeploy records an install or update of params.Score by owner, which becomes the pending
// next deployment. A pending deployment recorded before is overwritten.
func (s *Storage) RecordDeploy(owner icx.Address, txHash icx.Bytes32, params *DeployTxParams, code []byte) (*DeployInfo, error) {
	info, err := s.DeployInfo(params.Score)
	if err != nil {
		return nil, err
	}
	if info == nil {
		info = &DeployInfo{Score: params.Score, Owner: owner}
	} else if info.Owner != owner {
		return nil, icx.Errorf(icx.AccessDenied, "Invalid owner: %s is not the owner of %s", owner, params.Score)
	}
	if info.Next != nil && info.Next.Status == StatusPending {
		logger.Debug("pending deployment overwritten", "score", params.Score, "old", info.Next.DeployTxHash, "new", txHash)
	}
	info.Next = &StatusInfo{Status: StatusPending, DeployTxHash: txHash}

	if err := putRLP(s.txParams, txHash[:], params); err != nil {
		return nil, err
	}
	if err := s.stagedCode.Put(params.Score.Bytes(), code); err != nil {
		return nil, err
	}
	if err := putRLP(s.infos, params.Score.Bytes(), info); err != nil {
		return nil, err
	}
	return info, nil
}

// pendingOf resolves the deployment txHash refers to and checks it can be audited.
func (s *Storage) pendingOf(version int, txHash icx.Bytes32) (*DeployInfo, error) {
	params, err := s.DeployTxParams(txHash)
	if err != nil {
		return nil, err
	}
	if params == nil {
		return nil, icx.Errorf(icx.ScoreNotFound, "Invalid txHash: %s", txHash)
	}
	info, err := s.DeployInfo(params.Score)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, icx.Errorf(icx.ScoreNotFound, "Score not found: %s", params.Score)
	}
	if info.Next == nil || info.Next.Status != StatusPending {
		return nil, icx.Errorf(icx.ScoreError, "Invalid status: no pending deployment of %s", params.Score)
	}
	if version >= GovernanceV2 && info.Next.DeployTxHash != txHash {
		return nil, icx.Errorf(icx.ScoreError, "Invalid txHash: %s is not the pending deployment %s of %s",
			txHash, info.Next.DeployTxHash, params.Score)
	}
	return info, nil
}

// Accept makes the deployment of txHash current and active, and puts its code in service.
func (s *Storage) Accept(version int, txHash, auditTxHash icx.Bytes32) (*DeployInfo, error) {
	info, err := s.pendingOf(version, txHash)
	if err != nil {
		return nil, err
	}
	info.Current = &StatusInfo{Status: StatusActive, DeployTxHash: txHash, AuditTxHash: auditTxHash}

	if info.Next.DeployTxHash == txHash {
		info.Next = nil
	} else {
		logger.Warn("stale deployment accepted", "score", info.Score, "accepted", txHash, "next", info.Next.DeployTxHash)
	}

	code, err := s.stagedCode.Get(info.Score.Bytes())
	if err != nil && !s.stagedCode.IsNotFound(err) {
		return nil, err
	}
	if err := s.liveCode.Put(info.Score.Bytes(), code); err != nil {
		return nil, err
	}
	if info.Next == nil {
		if err := s.stagedCode.Delete(info.Score.Bytes()); err != nil {
			return nil, err
		}
	}
	if err := putRLP(s.infos, info.Score.Bytes(), info); err != nil {
		return nil, err
	}
	return info, nil
}

// Reject marks the pending deployment of txHash rejected. The record is kept.
func (s *Storage) Reject(version int, txHash, auditTxHash icx.Bytes32) (*DeployInfo, error) {
	info, err := s.pendingOf(version, txHash)
	if err != nil {
		return nil, err
	}
	info.Next.Status = StatusRejected
	info.Next.AuditTxHash = auditTxHash
	if err := putRLP(s.infos, info.Score.Bytes(), info); err != nil {
		return nil, err
	}
	return info, nil
}

// CheckImports validates the import manifest declared by the deploy transaction txHash.
func (s *Storage) CheckImports(txHash icx.Bytes32, validator *ImportValidator) error {
	params, err := s.DeployTxParams(txHash)
	if err != nil {
		return err
	}
	if params == nil {
		return icx.Errorf(icx.ScoreNotFound, "Invalid txHash: %s", txHash)
	}
	imports, err := params.DecodeImports()
	if err != nil {
		return err
	}
	return validator.Validate(imports)
}
