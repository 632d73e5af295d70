// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package netvalue

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/scoreloop/icx"
)

// RevisionCode is the current protocol revision.
type RevisionCode int

func (RevisionCode) Type() Type { return TypeRevisionCode }
func (RevisionCode) Version() uint { return 0 }
func (v RevisionCode) validate() error {
	if v < 0 {
		return icx.Errorf(icx.InvalidParams, "Invalid revision: %d", int(v))
	}
	return nil
}
func (v RevisionCode) encodePayload() ([]byte, error) { return rlp.EncodeToBytes(uint64(v)) }

func decodeRevisionCode(b []byte) (Value, error) {
	var n uint64
	err := rlp.DecodeBytes(b, &n)
	return RevisionCode(n), err
}

// RevisionName is the human readable name of the revision.
type RevisionName string

func (RevisionName) Type() Type { return TypeRevisionName }
func (RevisionName) Version() uint { return 0 }
func (RevisionName) validate() error { return nil }
func (v RevisionName) encodePayload() ([]byte, error) { return rlp.EncodeToBytes(string(v)) }

func decodeRevisionName(b []byte) (Value, error) {
	var s string
	err := rlp.DecodeBytes(b, &s)
	return RevisionName(s), err
}

// StepPrice is the price of one step in loop.
type StepPrice struct {
	Price *big.Int
}

func (StepPrice) Type() Type { return TypeStepPrice }
func (StepPrice) Version() uint { return 0 }
func (v StepPrice) validate() error {
	if v.Price == nil || v.Price.Sign() < 0 {
		return icx.Errorf(icx.InvalidParams, "Invalid step price: %v", v.Price)
	}
	return nil
}
func (v StepPrice) encodePayload() ([]byte, error) { return rlp.EncodeToBytes(v.Price) }

func decodeStepPrice(b []byte) (Value, error) {
	p := new(big.Int)
	err := rlp.DecodeBytes(b, p)
	return StepPrice{p}, err
}

// StepCosts maps step types to their cost. Only refund types may be negative.
type StepCosts struct {
	costs map[icx.StepType]int64
}

// NewStepCosts validates and copies costs.
func NewStepCosts(costs map[icx.StepType]int64) (StepCosts, error) {
	v := StepCosts{make(map[icx.StepType]int64, len(costs))}
	for t, c := range costs {
		v.costs[t] = c
	}
	if err := v.validate(); err != nil {
		return StepCosts{}, err
	}
	return v, nil
}

func (StepCosts) Type() Type { return TypeStepCosts }
func (StepCosts) Version() uint { return 0 }

func (v StepCosts) validate() error {
	if v.costs == nil {
		return icx.Errorf(icx.InvalidParams, "Invalid step costs: nil")
	}
	for t, c := range v.costs {
		if !t.IsValid() {
			return icx.Errorf(icx.InvalidParams, "Invalid step type: %s", t)
		}
		if c < 0 && !t.AllowsNegative() {
			return icx.Errorf(icx.InvalidParams, "Invalid step cost: %s=%d", t, c)
		}
	}
	return nil
}

// Get returns the cost of t, 0 if not set.
func (v StepCosts) Get(t icx.StepType) int64 {
	return v.costs[t]
}

// Map returns a copy of the costs.
func (v StepCosts) Map() map[icx.StepType]int64 {
	m := make(map[icx.StepType]int64, len(v.costs))
	for t, c := range v.costs {
		m[t] = c
	}
	return m
}

// With returns a copy with the cost of t replaced.
func (v StepCosts) With(t icx.StepType, cost int64) (StepCosts, error) {
	m := v.Map()
	m[t] = cost
	return NewStepCosts(m)
}

type stepCostEntry struct {
	Type     string
	Negative bool
	Abs      uint64
}

func (v StepCosts) encodePayload() ([]byte, error) {
	entries := make([]stepCostEntry, 0, len(v.costs))
	for t, c := range v.costs {
		e := stepCostEntry{Type: string(t), Abs: uint64(c)}
		if c < 0 {
			e.Negative, e.Abs = true, uint64(-c)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Type < entries[j].Type })
	return rlp.EncodeToBytes(entries)
}

func decodeStepCosts(b []byte) (Value, error) {
	var entries []stepCostEntry
	if err := rlp.DecodeBytes(b, &entries); err != nil {
		return nil, err
	}
	m := make(map[icx.StepType]int64, len(entries))
	for _, e := range entries {
		c := int64(e.Abs)
		if e.Negative {
			c = -c
		}
		m[icx.StepType(e.Type)] = c
	}
	return NewStepCosts(m)
}

// MaxStepLimits maps context types to the step limit ceiling.
type MaxStepLimits map[icx.ContextType]*big.Int

func (MaxStepLimits) Type() Type { return TypeMaxStepLimits }
func (MaxStepLimits) Version() uint { return 0 }

func (v MaxStepLimits) validate() error {
	if v == nil {
		return icx.Errorf(icx.InvalidParams, "Invalid max step limits: nil")
	}
	for t, l := range v {
		if !t.IsValid() {
			return icx.Errorf(icx.InvalidParams, "Invalid context type: %s", t)
		}
		if l == nil || l.Sign() < 0 {
			return icx.Errorf(icx.InvalidParams, "Invalid max step limit: %s=%v", t, l)
		}
	}
	return nil
}

type stepLimitEntry struct {
	Type  string
	Limit *big.Int
}

func (v MaxStepLimits) encodePayload() ([]byte, error) {
	entries := make([]stepLimitEntry, 0, len(v))
	for t, l := range v {
		entries = append(entries, stepLimitEntry{string(t), l})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Type < entries[j].Type })
	return rlp.EncodeToBytes(entries)
}

func decodeMaxStepLimits(b []byte) (Value, error) {
	var entries []stepLimitEntry
	if err := rlp.DecodeBytes(b, &entries); err != nil {
		return nil, err
	}
	v := make(MaxStepLimits, len(entries))
	for _, e := range entries {
		v[icx.ContextType(e.Type)] = e.Limit
	}
	return v, nil
}

// ScoreBlackList is the set of contracts that can not be called.
type ScoreBlackList struct {
	set map[icx.Address]struct{}
}

// NewScoreBlackList creates a black list.
func NewScoreBlackList(addrs ...icx.Address) ScoreBlackList {
	v := ScoreBlackList{make(map[icx.Address]struct{}, len(addrs))}
	for _, a := range addrs {
		v.set[a] = struct{}{}
	}
	return v
}

func (ScoreBlackList) Type() Type { return TypeScoreBlackList }
func (ScoreBlackList) Version() uint { return 0 }

func (v ScoreBlackList) validate() error {
	for a := range v.set {
		if !a.IsContract() {
			return icx.Errorf(icx.InvalidParams, "Invalid score address: %s", a)
		}
	}
	return nil
}

// Contains reports whether addr is black listed.
func (v ScoreBlackList) Contains(addr icx.Address) bool {
	_, ok := v.set[addr]
	return ok
}

// Addresses returns the black listed addresses in ascending order.
func (v ScoreBlackList) Addresses() []icx.Address {
	addrs := make([]icx.Address, 0, len(v.set))
	for a := range v.set {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return string(addrs[i][:]) < string(addrs[j][:]) })
	return addrs
}

// With returns a copy with addr added.
func (v ScoreBlackList) With(addr icx.Address) ScoreBlackList {
	return NewScoreBlackList(append(v.Addresses(), addr)...)
}

// Without returns a copy with addr removed.
func (v ScoreBlackList) Without(addr icx.Address) ScoreBlackList {
	n := NewScoreBlackList(v.Addresses()...)
	delete(n.set, addr)
	return n
}

func (v ScoreBlackList) encodePayload() ([]byte, error) {
	addrs := v.Addresses()
	raw := make([][]byte, len(addrs))
	for i, a := range addrs {
		raw[i] = a.Bytes()
	}
	return rlp.EncodeToBytes(raw)
}

func decodeScoreBlackList(b []byte) (Value, error) {
	var raw [][]byte
	if err := rlp.DecodeBytes(b, &raw); err != nil {
		return nil, err
	}
	addrs := make([]icx.Address, 0, len(raw))
	for _, r := range raw {
		a := icx.AddressFromBytes(r)
		if a == nil {
			return nil, icx.Errorf(icx.InvalidFormat, "invalid address %x", r)
		}
		addrs = append(addrs, *a)
	}
	return NewScoreBlackList(addrs...), nil
}

// ImportWhiteList maps module paths to the names contracts may import from them.
// A name "*" allows the whole module.
type ImportWhiteList map[string][]string

func (ImportWhiteList) Type() Type { return TypeImportWhiteList }
func (ImportWhiteList) Version() uint { return 0 }

func (v ImportWhiteList) validate() error {
	if v == nil {
		return icx.Errorf(icx.InvalidParams, "Invalid import white list: nil")
	}
	for module := range v {
		if module == "" {
			return icx.Errorf(icx.InvalidParams, "Invalid import white list: empty module")
		}
	}
	return nil
}

// Allows reports whether name may be imported from module.
func (v ImportWhiteList) Allows(module, name string) bool {
	for _, n := range v[module] {
		if n == "*" || n == name {
			return true
		}
	}
	return false
}

// Copy returns a deep copy.
func (v ImportWhiteList) Copy() ImportWhiteList {
	c := make(ImportWhiteList, len(v))
	for m, names := range v {
		c[m] = append([]string(nil), names...)
	}
	return c
}

type importEntry struct {
	Module string
	Names  []string
}

func (v ImportWhiteList) encodePayload() ([]byte, error) {
	entries := make([]importEntry, 0, len(v))
	for m, names := range v {
		sorted := append([]string(nil), names...)
		sort.Strings(sorted)
		entries = append(entries, importEntry{m, sorted})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Module < entries[j].Module })
	return rlp.EncodeToBytes(entries)
}

func decodeImportWhiteList(b []byte) (Value, error) {
	var entries []importEntry
	if err := rlp.DecodeBytes(b, &entries); err != nil {
		return nil, err
	}
	v := make(ImportWhiteList, len(entries))
	for _, e := range entries {
		v[e.Module] = e.Names
	}
	return v, nil
}

// ServiceConfig is a set of service flags.
type ServiceConfig uint32

// Service flags.
const (
	ServiceFee                   ServiceConfig = 1 << iota
	ServiceAudit                               // deploys wait for acceptance by an auditor
	ServiceDeployerWhiteList
	ServiceScorePackageValidator // imports are checked against the import white list
)

func (ServiceConfig) Type() Type { return TypeServiceConfig }
func (ServiceConfig) Version() uint { return 0 }
func (v ServiceConfig) validate() error {
	if v >= ServiceScorePackageValidator<<1 {
		return icx.Errorf(icx.InvalidParams, "Invalid service config: %#x", uint32(v))
	}
	return nil
}
func (v ServiceConfig) encodePayload() ([]byte, error) { return rlp.EncodeToBytes(uint32(v)) }

// Has reports whether all flags in f are set.
func (v ServiceConfig) Has(f ServiceConfig) bool {
	return v&f == f
}

func decodeServiceConfig(b []byte) (Value, error) {
	var n uint32
	err := rlp.DecodeBytes(b, &n)
	return ServiceConfig(n), err
}
