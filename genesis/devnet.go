// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vechain/scoreloop/icx"
)

// DevAccount account for development.
type DevAccount struct {
	Address    icx.Address
	PrivateKey *ecdsa.PrivateKey
}

// PublicKey returns the uncompressed public key.
func (a DevAccount) PublicKey() []byte {
	return crypto.FromECDSAPub(&a.PrivateKey.PublicKey)
}

var devAccounts atomic.Value

// DevAccounts returns pre-alloced accounts for the dev network.
func DevAccounts() []DevAccount {
	if accs := devAccounts.Load(); accs != nil {
		return accs.([]DevAccount)
	}

	var accs []DevAccount
	privKeys := []string{
		"dce1443bd2ef0c2631adc1c67e5c93f13dc23a41c18b536effbbdcbcdb96fb65",
		"321d6443bc6177273b5abf54210fe806d451d6b7973bccc2384ef78bbcd0bf51",
		"2d7c882bad2a01105e36dda3646693bc1aaaa45b0ed63fb0ce23c060294f3af2",
		"593537225b037191d322c3b1df585fb1e5100811b71a6f7fc7e29cca1333483e",
		"ca7b25fc980c759df5f3ce17a3d881d6e19a38e651fc4315fc08917edab41058",
		"88d2d80b12b92feaa0da6d62309463d20408157723f2d7e799b6a74ead9a673b",
		"fbb9e7ba5fe9969a71c6599052237b91adeb1e5fc0c96727b66e56ff5d02f9d0",
		"547fb081e73dc2e22b4aae5c60e2970b008ac4fc3073aebc27d41ace9c4f53e9",
		"c8c53657e41a8d669349fc287f57457bd746cb1fcfc38cf94d235deb2cfca81b",
		"87e0eba9c86c494d98353800571089f316740b0cb84c9a7cdf2fe5c9997c7966",
	}
	for _, str := range privKeys {
		pk, err := crypto.HexToECDSA(str)
		if err != nil {
			panic(err)
		}
		pub := crypto.FromECDSAPub(&pk.PublicKey)
		h := icx.SHA3256(pub[1:])
		accs = append(accs, DevAccount{icx.NewEOAAddress(h[12:]), pk})
	}
	devAccounts.Store(accs)
	return accs
}

// devPReps is the number of dev accounts registered as P-Rep candidates.
const devPReps = 4

// NewDevnet create genesis for the dev network. The first dev account owns governance
// and the second audits, audit is off so deploys take effect at once.
func NewDevnet() *Genesis {
	accs := DevAccounts()
	balance := new(big.Int).Mul(big.NewInt(1_000_000), icx.ICX)

	g := &Genesis{
		Name: "devnet",
		Governance: Governance{
			Owner:    accs[0].Address,
			Auditors: []icx.Address{accs[1].Address},
			Version:  2,
		},
		Values: Values{
			Services: &Services{Fee: true},
		},
	}
	for _, a := range accs {
		g.Accounts = append(g.Accounts, Account{a.Address, (*hexutil.Big)(new(big.Int).Set(balance))})
	}
	for i, a := range accs[:devPReps] {
		g.PReps = append(g.PReps, PRep{
			Name:        fmt.Sprintf("dev-prep-%d", i),
			Email:       fmt.Sprintf("prep%d@dev.scoreloop.org", i),
			Website:     "https://dev.scoreloop.org",
			Details:     fmt.Sprintf("https://dev.scoreloop.org/preps/%d.json", i),
			P2PEndpoint: fmt.Sprintf("127.0.0.1:%d", 7100+i),
			PublicKey:   a.PublicKey(),
		})
	}
	return g
}
