// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package netvalue holds the protocol wide parameters tuned by governance.
package netvalue

import (
	"math/big"
	"sort"

	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/kv"
)

var (
	bucket      = kv.Bucket("inv")
	migratedKey = []byte("migrated")
)

func valueKey(t Type) []byte {
	return []byte{byte(t)}
}

// Container is the live set of network values. Values are immutable, so a copy
// shares them and stays isolated from later changes of the origin.
type Container struct {
	values   [typeCount]Value
	migrated bool
}

// NewContainer creates an empty, not migrated container.
func NewContainer() *Container {
	return &Container{}
}

// Load reads the container from storage.
func Load(src kv.Getter) (*Container, error) {
	src = bucket.NewGetter(src)
	c := NewContainer()

	migrated, err := src.Has(migratedKey)
	if err != nil {
		return nil, err
	}
	c.migrated = migrated

	for t := Type(0); t < typeCount; t++ {
		data, err := src.Get(valueKey(t))
		if err != nil {
			if src.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		v, err := Decode(t, data)
		if err != nil {
			return nil, err
		}
		c.values[t] = v
	}
	return c, nil
}

// Copy returns a copy of the container.
func (c *Container) Copy() *Container {
	cpy := *c
	return &cpy
}

// IsMigrated reports whether the values were migrated.
func (c *Container) IsMigrated() bool {
	return c.migrated
}

// Get returns the value of type t, nil if absent.
func (c *Container) Get(t Type) Value {
	if !t.IsValid() {
		return nil
	}
	return c.values[t]
}

func persist(dst kv.Putter, v Value) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return bucket.NewPutter(dst).Put(valueKey(v.Type()), data)
}

func check(v Value) error {
	if v == nil {
		return icx.Errorf(icx.InvalidParams, "Invalid network value: nil")
	}
	if !v.Type().IsValid() {
		return icx.Errorf(icx.InvalidParams, "Invalid network value type: %v", v.Type())
	}
	return v.validate()
}

// Batch collects the values staged by one transaction.
type Batch struct {
	values map[Type]Value
}

// NewBatch creates an empty batch.
func (c *Container) NewBatch() *Batch {
	return &Batch{make(map[Type]Value)}
}

// Len returns the number of staged values.
func (b *Batch) Len() int {
	return len(b.values)
}

// Get returns the staged value of type t, nil if not staged.
func (b *Batch) Get(t Type) Value {
	return b.values[t]
}

// Stage validates v and stages it into b. A value of the same type staged before is replaced.
// Once migrated, only the governance contract may stage values, anything else is a bug of the caller.
func (c *Container) Stage(b *Batch, caller icx.Address, v Value) error {
	if c.migrated && caller != icx.GovernanceAddress {
		panic("netvalue: staged by " + caller.String() + " after migration")
	}
	if err := check(v); err != nil {
		return err
	}
	b.values[v.Type()] = v
	return nil
}

// CommitBatch persists the staged values into dst and folds them into the live set.
func (c *Container) CommitBatch(dst kv.Putter, b *Batch) error {
	types := make([]Type, 0, len(b.values))
	for t := range b.values {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		if err := persist(dst, b.values[t]); err != nil {
			return err
		}
	}
	for _, t := range types {
		c.values[t] = b.values[t]
	}
	c.DiscardBatch(b)
	return nil
}

// DiscardBatch drops all staged values.
func (c *Container) DiscardBatch(b *Batch) {
	clear(b.values)
}

// Migrate installs the initial values and flips the migration flag. Every required type must be present.
func (c *Container) Migrate(dst kv.Putter, values []Value) error {
	if c.migrated {
		return icx.Errorf(icx.InvalidRequest, "Network values already migrated")
	}
	var staged [typeCount]Value
	for _, v := range values {
		if err := check(v); err != nil {
			return err
		}
		staged[v.Type()] = v
	}
	for _, t := range RequiredTypes {
		if staged[t] == nil {
			return icx.Errorf(icx.InvalidParams, "Missing network value: %v", t)
		}
	}

	for _, t := range RequiredTypes {
		if err := persist(dst, staged[t]); err != nil {
			return err
		}
	}
	if err := bucket.NewPutter(dst).Put(migratedKey, []byte{1}); err != nil {
		return err
	}
	c.values = staged
	c.migrated = true
	return nil
}

// Set writes v directly. Once migrated it is denied unless open, which marks a bootstrap write.
func (c *Container) Set(dst kv.Putter, v Value, open bool) error {
	if c.migrated && !open {
		return icx.Errorf(icx.AccessDenied, "Network value %v can only be changed by governance", v.Type())
	}
	if err := check(v); err != nil {
		return err
	}
	if err := persist(dst, v); err != nil {
		return err
	}
	c.values[v.Type()] = v
	return nil
}

// Revision returns the current revision.
func (c *Container) Revision() int {
	if v, ok := c.values[TypeRevisionCode].(RevisionCode); ok {
		return int(v)
	}
	return icx.RevisionGenesis
}

// RevisionName returns the name of the current revision.
func (c *Container) RevisionName() string {
	if v, ok := c.values[TypeRevisionName].(RevisionName); ok {
		return string(v)
	}
	return ""
}

// StepPrice returns the step price.
func (c *Container) StepPrice() *big.Int {
	if v, ok := c.values[TypeStepPrice].(StepPrice); ok {
		return new(big.Int).Set(v.Price)
	}
	return new(big.Int).Set(DefaultStepPrice)
}

// StepCosts returns the step costs.
func (c *Container) StepCosts() StepCosts {
	if v, ok := c.values[TypeStepCosts].(StepCosts); ok {
		return v
	}
	return DefaultStepCosts()
}

// MaxStepLimit returns the step limit ceiling of the context type.
func (c *Container) MaxStepLimit(ctx icx.ContextType) *big.Int {
	limits, ok := c.values[TypeMaxStepLimits].(MaxStepLimits)
	if !ok {
		limits = DefaultMaxStepLimits()
	}
	if l, ok := limits[ctx]; ok {
		return new(big.Int).Set(l)
	}
	return new(big.Int)
}

// MaxStepLimits returns all step limit ceilings.
func (c *Container) MaxStepLimits() MaxStepLimits {
	if v, ok := c.values[TypeMaxStepLimits].(MaxStepLimits); ok {
		return v
	}
	return DefaultMaxStepLimits()
}

// ScoreBlackList returns the contract black list.
func (c *Container) ScoreBlackList() ScoreBlackList {
	if v, ok := c.values[TypeScoreBlackList].(ScoreBlackList); ok {
		return v
	}
	return NewScoreBlackList()
}

// IsBlacklisted reports whether calls to addr are blocked.
func (c *Container) IsBlacklisted(addr icx.Address) bool {
	return c.ScoreBlackList().Contains(addr)
}

// ImportWhiteList returns the import white list.
func (c *Container) ImportWhiteList() ImportWhiteList {
	if v, ok := c.values[TypeImportWhiteList].(ImportWhiteList); ok {
		return v
	}
	return ImportWhiteList{}
}

// ServiceConfig returns the service flags.
func (c *Container) ServiceConfig() ServiceConfig {
	if v, ok := c.values[TypeServiceConfig].(ServiceConfig); ok {
		return v
	}
	return 0
}
