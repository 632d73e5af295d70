// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/prep"
	"github.com/vechain/scoreloop/tx"
)

// systemCall enumerates the IISS methods of the system address.
type systemCall int

const (
	sysRegisterPRep systemCall = iota
	sysUnregisterPRep
	sysSetPRep
	sysSetGovernanceVariables
	sysSetDelegation
	sysGetPRep
	sysGetPReps
	sysGetDelegation
)

type systemMethod struct {
	call     systemCall
	readOnly bool
	payable  bool
}

var systemMethods = map[string]systemMethod{
	"registerPRep":           {sysRegisterPRep, false, true},
	"unregisterPRep":         {sysUnregisterPRep, false, false},
	"setPRep":                {sysSetPRep, false, false},
	"setGovernanceVariables": {sysSetGovernanceVariables, false, false},
	"setDelegation":          {sysSetDelegation, false, false},
	"getPRep":                {sysGetPRep, true, false},
	"getPReps":               {sysGetPReps, true, false},
	"getDelegation":          {sysGetDelegation, true, false},
}

// sysEnv is the environment of one system call.
type sysEnv struct {
	tc      *txContext
	manager *prep.Manager
	from    icx.Address
	value   *big.Int
	txIndex uint32
}

func (e *sysEnv) emit(signature string, args ...any) {
	e.tc.events = append(e.tc.events, icx.NewEventLog(icx.SystemAddress, signature, 0, args...))
}

func invokeSystem(e *sysEnv, name string, params tx.Params) (any, error) {
	if e.tc.revision < icx.RevisionIISS {
		return nil, icx.Errorf(icx.ScoreNotFound, "Method not found: %s (revision %d)", name, e.tc.revision)
	}
	m, ok := systemMethods[name]
	if !ok {
		return nil, icx.Errorf(icx.ScoreNotFound, "Method not found: %s", name)
	}
	if e.tc.readOnly && !m.readOnly {
		return nil, icx.Errorf(icx.AccessDenied, "Not a read only method: %s", name)
	}
	if e.value != nil && e.value.Sign() > 0 && !m.payable {
		return nil, icx.Errorf(icx.InvalidRequest, "Method not payable: %s", name)
	}
	if err := e.tc.meter.consume(icx.StepTypeAPICall, 1); err != nil {
		return nil, err
	}

	switch m.call {
	case sysRegisterPRep:
		reg, err := registration(params)
		if err != nil {
			return nil, err
		}
		if err := e.manager.Register(e.from, reg, e.value, e.tc.height, e.txIndex); err != nil {
			return nil, err
		}
		e.emit("PRepRegistered(Address)", e.from)
		return nil, nil
	case sysUnregisterPRep:
		if err := e.manager.Unregister(e.from); err != nil {
			return nil, err
		}
		e.emit("PRepUnregistered(Address)", e.from)
		return nil, nil
	case sysSetPRep:
		u, err := update(params)
		if err != nil {
			return nil, err
		}
		if err := e.manager.SetPRep(e.from, u); err != nil {
			return nil, err
		}
		e.emit("PRepSet(Address)", e.from)
		return nil, nil
	case sysSetGovernanceVariables:
		irep, ok, err := params.Int("irep")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, icx.Errorf(icx.InvalidParams, "irep not found")
		}
		return nil, e.manager.SetGovernanceVariables(e.from, irep)
	case sysSetDelegation:
		ds, err := delegations(params)
		if err != nil {
			return nil, err
		}
		return nil, e.manager.SetDelegation(e.tc.revision, e.from, ds)
	case sysGetPRep:
		addr, err := requireAddress(params, "address")
		if err != nil {
			return nil, err
		}
		return e.manager.GetPRep(addr)
	case sysGetPReps:
		start, err := optionalRank(params, "startRanking")
		if err != nil {
			return nil, err
		}
		end, err := optionalRank(params, "endRanking")
		if err != nil {
			return nil, err
		}
		return e.manager.GetPReps(start, end)
	case sysGetDelegation:
		addr, err := requireAddress(params, "address")
		if err != nil {
			return nil, err
		}
		ds, total, err := e.manager.Delegation(addr)
		if err != nil {
			return nil, err
		}
		return map[string]any{"delegations": ds, "totalDelegated": (*hexutil.Big)(total)}, nil
	}
	return nil, icx.Errorf(icx.Fatal, "unhandled system call %d", m.call)
}

func registration(params tx.Params) (*prep.Registration, error) {
	var (
		reg prep.Registration
		err error
	)
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"name", &reg.Name},
		{"email", &reg.Email},
		{"website", &reg.Website},
		{"details", &reg.Details},
		{"p2pEndpoint", &reg.P2PEndpoint},
	} {
		if *f.dst, err = requireString(params, f.key); err != nil {
			return nil, err
		}
	}
	pub, err := requireString(params, "publicKey")
	if err != nil {
		return nil, err
	}
	if reg.PublicKey, err = hexutil.Decode(pub); err != nil {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid publicKey: %s", pub)
	}
	return &reg, nil
}

func update(params tx.Params) (*prep.Update, error) {
	var u prep.Update
	for _, f := range []struct {
		key string
		dst **string
	}{
		{"name", &u.Name},
		{"email", &u.Email},
		{"website", &u.Website},
		{"details", &u.Details},
		{"p2pEndpoint", &u.P2PEndpoint},
	} {
		s, ok, err := params.String(f.key)
		if err != nil {
			return nil, err
		}
		if ok {
			*f.dst = &s
		}
	}
	return &u, nil
}

func delegations(params tx.Params) ([]prep.Delegation, error) {
	raw, ok := params["delegations"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid delegations: not a list")
	}
	ds := make([]prep.Delegation, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, icx.Errorf(icx.InvalidParams, "Invalid delegation: not an object")
		}
		addr, err := requireAddress(tx.Params(obj), "address")
		if err != nil {
			return nil, err
		}
		v, ok, err := tx.Params(obj).Int("value")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, icx.Errorf(icx.InvalidParams, "value not found")
		}
		ds = append(ds, prep.Delegation{Address: addr, Value: (*hexutil.Big)(v)})
	}
	return ds, nil
}

func optionalRank(params tx.Params, key string) (int, error) {
	n, ok, err := params.Int(key)
	if err != nil || !ok {
		return 0, err
	}
	if !n.IsInt64() || n.Int64() < 1 || n.Int64() > int64(^uint32(0)) {
		return 0, icx.Errorf(icx.InvalidParams, "Invalid %s: %v", key, n)
	}
	return int(n.Int64()), nil
}

func requireString(params tx.Params, key string) (string, error) {
	s, ok, err := params.String(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", icx.Errorf(icx.InvalidParams, "%s not found", key)
	}
	return s, nil
}

func requireAddress(params tx.Params, key string) (icx.Address, error) {
	addr, ok, err := params.Address(key)
	if err != nil {
		return icx.Address{}, err
	}
	if !ok {
		return icx.Address{}, icx.Errorf(icx.InvalidParams, "%s not found", key)
	}
	return addr, nil
}
