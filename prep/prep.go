// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package prep

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vechain/scoreloop/icx"
)

// Status of a P-Rep.
type Status uint8

// P-Rep statuses.
const (
	StatusActive Status = iota
	StatusUnregistered
)

func (s Status) String() string {
	if s == StatusActive {
		return "active"
	}
	return "unregistered"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// PRep is a registered P-Rep candidate.
type PRep struct {
	Address     icx.Address  `json:"address"`
	Status      Status       `json:"status"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Website     string       `json:"website"`
	Details     string       `json:"details"`
	PublicKey   []byte       `json:"-"`
	P2PEndpoint string       `json:"p2pEndpoint"`
	IRep        *big.Int     `json:"-"`
	BlockHeight uint64       `json:"blockHeight"`
	TxIndex     uint32       `json:"txIndex"`
	Delegated   *hexutil.Big `json:"delegated" rlp:"-"`
}

// MarshalJSON renders integers in hex.
func (p *PRep) MarshalJSON() ([]byte, error) {
	type plain PRep
	return json.Marshal(&struct {
		*plain
		IRep *hexutil.Big `json:"irep"`
	}{(*plain)(p), (*hexutil.Big)(p.IRep)})
}

func (p *PRep) entry(delegated *big.Int) Entry {
	return Entry{Address: p.Address, Delegated: delegated, BlockHeight: p.BlockHeight, TxIndex: p.TxIndex}
}

// Delegation is a stake delegated to a target address.
type Delegation struct {
	Address icx.Address  `json:"address"`
	Value   *hexutil.Big `json:"value"`
}

// Registration is the candidate metadata given on register.
type Registration struct {
	Name        string
	Email       string
	Website     string
	Details     string
	PublicKey   []byte
	P2PEndpoint string
}

func (r *Registration) validate(sender icx.Address) error {
	if strings.TrimSpace(r.Name) == "" {
		return icx.Errorf(icx.InvalidParams, "Invalid name: empty")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := validateURL("website", r.Website); err != nil {
		return err
	}
	if err := validateURL("details", r.Details); err != nil {
		return err
	}
	if err := validateEndpoint(r.P2PEndpoint); err != nil {
		return err
	}
	return validatePublicKey(sender, r.PublicKey)
}

func validateEmail(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || !strings.Contains(s[strings.LastIndexByte(s, '@')+1:], ".") {
		return icx.Errorf(icx.InvalidParams, "Invalid email: %s", s)
	}
	return nil
}

func validateURL(field, s string) error {
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return icx.Errorf(icx.InvalidParams, "Invalid %s: %s", field, s)
	}
	return nil
}

func validateEndpoint(s string) error {
	host, port, err := net.SplitHostPort(s)
	if err != nil || host == "" {
		return icx.Errorf(icx.InvalidParams, "Invalid p2pEndpoint: %s", s)
	}
	if n, err := strconv.ParseUint(port, 10, 16); err != nil || n == 0 {
		return icx.Errorf(icx.InvalidParams, "Invalid p2pEndpoint: %s", s)
	}
	return nil
}

// validatePublicKey checks the uncompressed public key derives the sender address.
func validatePublicKey(sender icx.Address, pub []byte) error {
	if len(pub) != 65 || pub[0] != 0x04 {
		return icx.Errorf(icx.InvalidParams, "Invalid publicKey: %x", pub)
	}
	if h := icx.SHA3256(pub[1:]); !bytes.Equal(h[12:], sender.Body()) || sender.IsContract() {
		return icx.Errorf(icx.InvalidParams, "Invalid publicKey: not matching %s", sender)
	}
	return nil
}
