// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package prep manages P-Rep candidates, the delegations they receive and their ranking.
package prep

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/scoreloop/fee"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/kv"
	"github.com/vechain/scoreloop/log"
)

var logger = log.WithContext("pkg", "prep")

// Storage prefixes. Addresses start with 0x00 or 0x01, so records never collide with the '|' prefixes.
var (
	recordBucket     = kv.Bucket("prep")
	delegationBucket = kv.Bucket("prep|dg")
	delegatedBucket  = kv.Bucket("prep|dd")
)

// Delegation limits.
const (
	MaxDelegations    = 10
	MaxDelegations100 = 100
)

// RegistrationFee is burnt on register.
var RegistrationFee = new(big.Int).Mul(big.NewInt(2000), icx.ICX)

// Manager maintains candidates and delegations over a state, keeping the ranking in sync.
type Manager struct {
	records     kv.GetPutter
	delegations kv.GetPutter
	delegated   kv.GetPutter
	ranking     *Ranking
	ledger      *fee.Ledger
}

// NewManager creates the manager. ranking must reflect the candidates stored in st.
func NewManager(st kv.GetPutter, ranking *Ranking, ledger *fee.Ledger) *Manager {
	return &Manager{
		records:     recordBucket.NewGetPutter(st),
		delegations: delegationBucket.NewGetPutter(st),
		delegated:   delegatedBucket.NewGetPutter(st),
		ranking:     ranking,
		ledger:      ledger,
	}
}

// Ranking returns the ranking maintained by the manager.
func (m *Manager) Ranking() *Ranking {
	return m.ranking
}

func get(g kv.Getter, key []byte, val any) (bool, error) {
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

func put(p kv.Putter, key []byte, val any) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	return p.Put(key, data)
}

func (m *Manager) record(addr icx.Address) (*PRep, error) {
	var p PRep
	ok, err := get(m.records, addr.Bytes(), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (m *Manager) activeRecord(addr icx.Address) (*PRep, error) {
	p, err := m.record(addr)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Status != StatusActive {
		return nil, icx.Errorf(icx.InvalidParams, "P-Rep not found: %s", addr)
	}
	return p, nil
}

// Delegated returns the total delegated to addr.
func (m *Manager) Delegated(addr icx.Address) (*big.Int, error) {
	v := new(big.Int)
	if _, err := get(m.delegated, addr.Bytes(), v); err != nil {
		return nil, err
	}
	return v, nil
}

// Register registers sender as a candidate, burning value which must equal RegistrationFee.
func (m *Manager) Register(sender icx.Address, reg *Registration, value *big.Int, height uint64, txIndex uint32) error {
	if value == nil || value.Cmp(RegistrationFee) != 0 {
		return icx.Errorf(icx.InvalidParams, "Invalid registration fee: %v != %v", value, RegistrationFee)
	}
	if err := reg.validate(sender); err != nil {
		return err
	}
	old, err := m.record(sender)
	if err != nil {
		return err
	}
	if old != nil {
		return icx.Errorf(icx.InvalidParams, "P-Rep already exists: %s", sender)
	}
	delegated, err := m.Delegated(sender)
	if err != nil {
		return err
	}
	if err := m.ledger.SubBalance(sender, value); err != nil {
		return err
	}

	p := &PRep{
		Address:     sender,
		Name:        reg.Name,
		Email:       reg.Email,
		Website:     reg.Website,
		Details:     reg.Details,
		PublicKey:   reg.PublicKey,
		P2PEndpoint: reg.P2PEndpoint,
		IRep:        new(big.Int),
		BlockHeight: height,
		TxIndex:     txIndex,
	}
	if err := put(m.records, sender.Bytes(), p); err != nil {
		return err
	}
	logger.Debug("P-Rep registered", "address", sender, "name", reg.Name, "delegated", delegated)
	return m.ranking.Insert(p.entry(delegated))
}

// Unregister withdraws sender from candidacy. The record is kept, so the address can not register again.
func (m *Manager) Unregister(sender icx.Address) error {
	p, err := m.activeRecord(sender)
	if err != nil {
		return err
	}
	p.Status = StatusUnregistered
	if err := put(m.records, sender.Bytes(), p); err != nil {
		return err
	}
	return m.ranking.Remove(sender)
}

// Update holds the candidate fields to change, nil ones are kept.
type Update struct {
	Name        *string
	Email       *string
	Website     *string
	Details     *string
	P2PEndpoint *string
}

// SetPRep updates the metadata of sender.
func (m *Manager) SetPRep(sender icx.Address, u *Update) error {
	p, err := m.activeRecord(sender)
	if err != nil {
		return err
	}
	reg := Registration{p.Name, p.Email, p.Website, p.Details, p.PublicKey, p.P2PEndpoint}
	for _, f := range []struct {
		src *string
		dst *string
	}{
		{u.Name, &reg.Name},
		{u.Email, &reg.Email},
		{u.Website, &reg.Website},
		{u.Details, &reg.Details},
		{u.P2PEndpoint, &reg.P2PEndpoint},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if err := reg.validate(sender); err != nil {
		return err
	}
	p.Name, p.Email, p.Website, p.Details, p.P2PEndpoint = reg.Name, reg.Email, reg.Website, reg.Details, reg.P2PEndpoint
	return put(m.records, sender.Bytes(), p)
}

// SetGovernanceVariables sets the incentive rep proposed by sender.
func (m *Manager) SetGovernanceVariables(sender icx.Address, irep *big.Int) error {
	p, err := m.activeRecord(sender)
	if err != nil {
		return err
	}
	if irep == nil || irep.Sign() <= 0 {
		return icx.Errorf(icx.InvalidParams, "Invalid irep: %v", irep)
	}
	p.IRep = new(big.Int).Set(irep)
	return put(m.records, sender.Bytes(), p)
}

// Delegation returns the delegations of delegator and their total.
func (m *Manager) Delegation(delegator icx.Address) ([]Delegation, *big.Int, error) {
	var list []delegationEntry
	if _, err := get(m.delegations, delegator.Bytes(), &list); err != nil {
		return nil, nil, err
	}
	ds := make([]Delegation, 0, len(list))
	total := new(big.Int)
	for _, e := range list {
		ds = append(ds, Delegation{e.Address, (*hexutil.Big)(e.Value)})
		total.Add(total, e.Value)
	}
	return ds, total, nil
}

type delegationEntry struct {
	Address icx.Address
	Value   *big.Int
}

// SetDelegation replaces all delegations of delegator.
func (m *Manager) SetDelegation(revision int, delegator icx.Address, ds []Delegation) error {
	limit := MaxDelegations
	if revision >= icx.RevisionMaxDelegations100 {
		limit = MaxDelegations100
	}
	if len(ds) > limit {
		return icx.Errorf(icx.InvalidParams, "Too many delegations: %d > %d", len(ds), limit)
	}

	entries := make([]delegationEntry, 0, len(ds))
	seen := make(map[icx.Address]bool, len(ds))
	total := new(big.Int)
	for _, d := range ds {
		if d.Value == nil || d.Value.ToInt().Sign() < 0 {
			return icx.Errorf(icx.InvalidParams, "Invalid delegation amount: %v", d.Value)
		}
		if seen[d.Address] {
			return icx.Errorf(icx.InvalidParams, "Duplicated delegation: %s", d.Address)
		}
		seen[d.Address] = true
		total.Add(total, d.Value.ToInt())
		if d.Value.ToInt().Sign() > 0 {
			entries = append(entries, delegationEntry{d.Address, new(big.Int).Set(d.Value.ToInt())})
		}
	}
	balance, err := m.ledger.Balance(delegator)
	if err != nil {
		return err
	}
	if total.Cmp(balance) > 0 {
		return icx.Errorf(icx.InvalidParams, "Not enough voting power: delegation=%v balance=%v", total, balance)
	}

	old, _, err := m.Delegation(delegator)
	if err != nil {
		return err
	}
	deltas := make(map[icx.Address]*big.Int)
	delta := func(addr icx.Address) *big.Int {
		if deltas[addr] == nil {
			deltas[addr] = new(big.Int)
		}
		return deltas[addr]
	}
	for _, d := range old {
		v := delta(d.Address)
		v.Sub(v, d.Value.ToInt())
	}
	for _, e := range entries {
		v := delta(e.Address)
		v.Add(v, e.Value)
	}

	targets := make([]icx.Address, 0, len(deltas))
	for addr := range deltas {
		targets = append(targets, addr)
	}
	sort.Slice(targets, func(i, j int) bool { return bytes.Compare(targets[i][:], targets[j][:]) < 0 })

	for _, addr := range targets {
		if deltas[addr].Sign() == 0 {
			continue
		}
		cur, err := m.Delegated(addr)
		if err != nil {
			return err
		}
		cur.Add(cur, deltas[addr])
		if cur.Sign() < 0 {
			return icx.Errorf(icx.Fatal, "negative delegated amount of %s: %v", addr, cur)
		}
		if err := put(m.delegated, addr.Bytes(), cur); err != nil {
			return err
		}
		if _, ok := m.ranking.Get(addr); ok {
			if err := m.ranking.UpdateDelegation(addr, cur); err != nil {
				return err
			}
		}
	}

	if len(entries) == 0 {
		return m.delegations.Delete(delegator.Bytes())
	}
	return put(m.delegations, delegator.Bytes(), entries)
}

// GetPRep returns the candidate at addr with its delegated amount.
func (m *Manager) GetPRep(addr icx.Address) (*PRep, error) {
	p, err := m.record(addr)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, icx.Errorf(icx.InvalidParams, "P-Rep not found: %s", addr)
	}
	delegated, err := m.Delegated(addr)
	if err != nil {
		return nil, err
	}
	p.Delegated = (*hexutil.Big)(delegated)
	return p, nil
}

// PRepList is a range of ranked candidates.
type PRepList struct {
	StartRanking   int          `json:"startRanking"`
	TotalDelegated *hexutil.Big `json:"totalDelegated"`
	PReps          []*PRep      `json:"preps"`
}

// GetPReps returns the candidates ranked start to end, both 1-based and inclusive.
// Zero start or end selects the beginning or the end of the ranking.
func (m *Manager) GetPReps(start, end int) (*PRepList, error) {
	n := m.ranking.Len()
	if start == 0 {
		start = 1
	}
	if end == 0 {
		end = n
	}
	if n > 0 && (start < 1 || start > end || end > n) {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid ranking range: %d-%d of %d", start, end, n)
	}

	list := &PRepList{StartRanking: start, PReps: []*PRep{}}
	total := new(big.Int)
	var err error
	m.ranking.Iter(func(rank int, e Entry) bool {
		total.Add(total, e.Delegated)
		if rank < start || rank > end {
			return true
		}
		var p *PRep
		if p, err = m.record(e.Address); err != nil {
			return false
		}
		if p == nil {
			err = icx.Errorf(icx.Fatal, "ranked P-Rep without record: %s", e.Address)
			return false
		}
		p.Delegated = (*hexutil.Big)(e.Delegated)
		list.PReps = append(list.PReps, p)
		return true
	})
	if err != nil {
		return nil, err
	}
	list.TotalDelegated = (*hexutil.Big)(total)
	return list, nil
}

// Load rebuilds the ranking from the candidates committed in store.
func Load(store kv.Store) (*Ranking, error) {
	records := recordBucket.NewStore(store)
	delegated := delegatedBucket.NewGetter(store)

	var entries []Entry
	iter := records.Iterate(kv.Range{Start: []byte{icx.PrefixEOA}, Limit: []byte{icx.PrefixContract + 1}})
	defer iter.Release()
	for iter.Next() {
		var p PRep
		if err := rlp.DecodeBytes(iter.Value(), &p); err != nil {
			return nil, errors.Wrapf(err, "decode P-Rep %x", iter.Key())
		}
		if p.Status != StatusActive {
			continue
		}
		v := new(big.Int)
		if _, err := get(delegated, p.Address.Bytes(), v); err != nil {
			return nil, err
		}
		entries = append(entries, p.entry(v))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].before(&entries[j]) })
	r := NewRanking()
	for _, e := range entries {
		i := r.alloc(e)
		r.index[e.Address] = i
		r.linkBefore(i, nilIndex)
	}
	return r, nil
}
