// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package governance implements the privileged governance contract: contract audit,
// auditor management and tuning of network values.
package governance

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/scoreloop/deploy"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/kv"
	"github.com/vechain/scoreloop/log"
)

var logger = log.WithContext("pkg", "governance")

var (
	bucket      = kv.Bucket("gv")
	ownerKey    = []byte("owner")
	auditorsKey = []byte("auditors")
	versionKey  = []byte("version")
)

// Governance binder of the governance contract storage.
type Governance struct {
	store kv.GetPutter
}

// New creates the binder over st.
func New(st kv.GetPutter) *Governance {
	return &Governance{bucket.NewGetPutter(st)}
}

func (g *Governance) get(key []byte, val any) (bool, error) {
	data, err := g.store.Get(key)
	if err != nil {
		if g.store.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, rlp.DecodeBytes(data, val)
}

func (g *Governance) put(key []byte, val any) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return g.store.Put(key, data)
}

// Owner returns the owner, zero address if not set.
func (g *Governance) Owner() (owner icx.Address, err error) {
	_, err = g.get(ownerKey, &owner)
	return
}

// SetOwner sets the owner.
func (g *Governance) SetOwner(owner icx.Address) error {
	return g.put(ownerKey, owner)
}

// Version returns the governance version, deploy.GovernanceV1 if never set.
func (g *Governance) Version() (int, error) {
	var v uint64
	ok, err := g.get(versionKey, &v)
	if err != nil {
		return 0, err
	}
	if !ok {
		return deploy.GovernanceV1, nil
	}
	return int(v), nil
}

// SetVersion sets the governance version.
func (g *Governance) SetVersion(version int) error {
	if version < deploy.GovernanceV1 || version > deploy.GovernanceV2 {
		return icx.Errorf(icx.InvalidParams, "Invalid governance version: %d", version)
	}
	return g.put(versionKey, uint64(version))
}

// Auditors returns the auditor list.
func (g *Governance) Auditors() (auditors []icx.Address, err error) {
	_, err = g.get(auditorsKey, &auditors)
	return
}

// IsAuditor reports whether addr is an auditor.
func (g *Governance) IsAuditor(addr icx.Address) (bool, error) {
	auditors, err := g.Auditors()
	if err != nil {
		return false, err
	}
	for _, a := range auditors {
		if a == addr {
			return true, nil
		}
	}
	return false, nil
}

// AddAuditor appends addr to the auditor list.
func (g *Governance) AddAuditor(addr icx.Address) error {
	if addr.IsContract() {
		return icx.Errorf(icx.InvalidParams, "Invalid auditor: %s is a contract", addr)
	}
	auditors, err := g.Auditors()
	if err != nil {
		return err
	}
	for _, a := range auditors {
		if a == addr {
			return icx.Errorf(icx.InvalidParams, "Invalid auditor: %s already registered", addr)
		}
	}
	return g.put(auditorsKey, append(auditors, addr))
}

// RemoveAuditor removes addr by moving the last auditor into its slot.
func (g *Governance) RemoveAuditor(addr icx.Address) error {
	auditors, err := g.Auditors()
	if err != nil {
		return err
	}
	for i, a := range auditors {
		if a == addr {
			last := len(auditors) - 1
			auditors[i] = auditors[last]
			return g.put(auditorsKey, auditors[:last])
		}
	}
	return icx.Errorf(icx.InvalidParams, "Invalid auditor: %s not registered", addr)
}
