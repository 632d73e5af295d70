// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis describes the initial state of a network.
package genesis

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/netvalue"
	"gopkg.in/yaml.v3"
)

// Genesis is the initial state of a network.
type Genesis struct {
	Name            string        `yaml:"name"`
	Accounts        []Account     `yaml:"accounts"`
	Governance      Governance    `yaml:"governance"`
	Values          Values        `yaml:"values,omitempty"`
	PReps           []PRep        `yaml:"preps,omitempty"`
	LockedAddresses []icx.Address `yaml:"lockedAddresses,omitempty"`
}

// Account is a funded account.
type Account struct {
	Address icx.Address  `yaml:"address"`
	Balance *hexutil.Big `yaml:"balance"`
}

// Governance is the initial governance setup.
type Governance struct {
	Owner    icx.Address   `yaml:"owner"`
	Auditors []icx.Address `yaml:"auditors,omitempty"`
	// Version of the governance contract, 1 if not set.
	Version int `yaml:"version,omitempty"`
}

// Values overrides the default network values. Unset fields keep their defaults.
type Values struct {
	Revision        *int                    `yaml:"revision,omitempty"`
	RevisionName    string                  `yaml:"revisionName,omitempty"`
	StepPrice       *hexutil.Big            `yaml:"stepPrice,omitempty"`
	StepCosts       map[string]int64        `yaml:"stepCosts,omitempty"`
	MaxStepLimits   map[string]*hexutil.Big `yaml:"maxStepLimits,omitempty"`
	ScoreBlackList  []icx.Address           `yaml:"scoreBlackList,omitempty"`
	ImportWhiteList map[string][]string     `yaml:"importWhiteList,omitempty"`
	Services        *Services               `yaml:"services,omitempty"`
}

// Services are the service flags.
type Services struct {
	Fee                   bool `yaml:"fee"`
	Audit                 bool `yaml:"audit"`
	DeployerWhiteList     bool `yaml:"deployerWhiteList"`
	ScorePackageValidator bool `yaml:"scorePackageValidator"`
}

func (s *Services) config() netvalue.ServiceConfig {
	var c netvalue.ServiceConfig
	for _, f := range []struct {
		on   bool
		flag netvalue.ServiceConfig
	}{
		{s.Fee, netvalue.ServiceFee},
		{s.Audit, netvalue.ServiceAudit},
		{s.DeployerWhiteList, netvalue.ServiceDeployerWhiteList},
		{s.ScorePackageValidator, netvalue.ServiceScorePackageValidator},
	} {
		if f.on {
			c |= f.flag
		}
	}
	return c
}

// PRep is an initial P-Rep candidate. Its address is derived from the public key and
// must be funded with the registration fee.
type PRep struct {
	Name        string        `yaml:"name"`
	Email       string        `yaml:"email"`
	Website     string        `yaml:"website"`
	Details     string        `yaml:"details"`
	P2PEndpoint string        `yaml:"p2pEndpoint"`
	PublicKey   hexutil.Bytes `yaml:"publicKey"`
}

// Address returns the address owning the public key.
func (p *PRep) Address() icx.Address {
	if len(p.PublicKey) == 0 {
		return icx.Address{}
	}
	h := icx.SHA3256(p.PublicKey[1:])
	return icx.NewEOAAddress(h[12:])
}

// ID identifies the genesis by the hash of its canonical encoding.
func (g *Genesis) ID() icx.Bytes32 {
	data, err := yaml.Marshal(g)
	if err != nil {
		panic(errors.Wrap(err, "encode genesis"))
	}
	return icx.SHA3256(data)
}

// GovernanceVersion returns the initial governance version.
func (g *Genesis) GovernanceVersion() int {
	if g.Governance.Version == 0 {
		return 1
	}
	return g.Governance.Version
}

// NetworkValues returns the values to migrate, the defaults overridden by the genesis.
func (g *Genesis) NetworkValues() ([]netvalue.Value, error) {
	values := netvalue.Defaults()
	set := func(v netvalue.Value) {
		for i := range values {
			if values[i].Type() == v.Type() {
				values[i] = v
				return
			}
		}
		values = append(values, v)
	}

	v := g.Values
	if v.Revision != nil {
		set(netvalue.RevisionCode(*v.Revision))
	}
	if v.RevisionName != "" {
		set(netvalue.RevisionName(v.RevisionName))
	}
	if v.StepPrice != nil {
		set(netvalue.StepPrice{Price: new(big.Int).Set(v.StepPrice.ToInt())})
	}
	if len(v.StepCosts) > 0 {
		costs := netvalue.DefaultStepCosts().Map()
		for name, cost := range v.StepCosts {
			t := icx.StepType(name)
			if !t.IsValid() {
				return nil, errors.Errorf("unknown step type %q", name)
			}
			costs[t] = cost
		}
		sc, err := netvalue.NewStepCosts(costs)
		if err != nil {
			return nil, err
		}
		set(sc)
	}
	if len(v.MaxStepLimits) > 0 {
		limits := netvalue.DefaultMaxStepLimits()
		for name, limit := range v.MaxStepLimits {
			ctx := icx.ContextType(name)
			if !ctx.IsValid() || limit == nil {
				return nil, errors.Errorf("invalid max step limit %q", name)
			}
			limits[ctx] = new(big.Int).Set(limit.ToInt())
		}
		set(limits)
	}
	if len(v.ScoreBlackList) > 0 {
		set(netvalue.NewScoreBlackList(v.ScoreBlackList...))
	}
	if v.ImportWhiteList != nil {
		set(netvalue.ImportWhiteList(v.ImportWhiteList).Copy())
	}
	if v.Services != nil {
		set(v.Services.config())
	}
	return values, nil
}

// Validate checks the genesis is consistent.
func (g *Genesis) Validate() error {
	if g.Governance.Owner.IsZero() || g.Governance.Owner.IsContract() {
		return errors.Errorf("invalid governance owner %v", g.Governance.Owner)
	}
	if v := g.GovernanceVersion(); v < 1 || v > 2 {
		return errors.Errorf("invalid governance version %d", v)
	}
	seen := make(map[icx.Address]bool)
	for _, acc := range g.Accounts {
		if seen[acc.Address] {
			return errors.Errorf("duplicated account %v", acc.Address)
		}
		seen[acc.Address] = true
		if acc.Balance == nil || acc.Balance.ToInt().Sign() < 0 {
			return errors.Errorf("invalid balance of %v", acc.Address)
		}
	}
	for _, p := range g.PReps {
		if len(p.PublicKey) != 65 {
			return errors.Errorf("invalid public key of P-Rep %q", p.Name)
		}
	}
	_, err := g.NetworkValues()
	return err
}
