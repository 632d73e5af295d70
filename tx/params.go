// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"math/big"
	"strings"

	"github.com/vechain/scoreloop/icx"
)

// Params is a transaction request as decoded from json.
// Values are strings, nested objects (map[string]any), arrays ([]any) or nil.
type Params map[string]any

// Copy returns a shallow copy of params.
func (p Params) Copy() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// String returns the string field named key.
func (p Params) String(key string) (string, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, icx.Errorf(icx.InvalidParams, "Invalid %s: not a string", key)
	}
	return s, true, nil
}

// Int returns the integer field named key. Both 0x prefixed hex and decimal text are accepted.
func (p Params) Int(key string) (*big.Int, bool, error) {
	s, ok, err := p.String(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	n, err := ParseInt(s)
	if err != nil {
		return nil, true, icx.Errorf(icx.InvalidParams, "Invalid %s: %s", key, s)
	}
	return n, true, nil
}

// Address returns the address field named key.
func (p Params) Address(key string) (icx.Address, bool, error) {
	s, ok, err := p.String(key)
	if err != nil || !ok {
		return icx.Address{}, ok, err
	}
	addr, err := icx.ParseAddress(s)
	if err != nil {
		return icx.Address{}, true, err
	}
	return addr, true, nil
}

// LegacyAddress returns the address field named key, read the lenient way v2 requests were.
// Upper case bodies are accepted. A body of the wrong length is a malformed address,
// which no account can be resolved from.
func (p Params) LegacyAddress(key string) (icx.Address, bool, error) {
	s, ok, err := p.String(key)
	if err != nil || !ok {
		return icx.Address{}, ok, err
	}
	addr, malformed, wellFormed, err := icx.ParseLegacyAddress(s)
	if err != nil {
		return icx.Address{}, true, err
	}
	if wellFormed {
		return addr, true, nil
	}
	if addr, ok := malformed.Normalize(); ok {
		return addr, true, nil
	}
	return icx.Address{}, true, icx.Errorf(icx.InvalidParams, "Invalid %s: malformed address %s", key, malformed)
}

// ParseInt parses an optionally signed integer in 0x hex or decimal form.
func ParseInt(s string) (*big.Int, error) {
	text, neg := s, false
	if strings.HasPrefix(text, "-") {
		text, neg = text[1:], true
	}
	base := 10
	if strings.HasPrefix(text, "0x") {
		text, base = text[2:], 16
	}
	if text == "" || strings.HasPrefix(text, "+") || strings.HasPrefix(text, "-") {
		return nil, icx.Errorf(icx.InvalidParams, "invalid integer %q", s)
	}
	n, ok := new(big.Int).SetString(text, base)
	if !ok {
		return nil, icx.Errorf(icx.InvalidParams, "invalid integer %q", s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}
