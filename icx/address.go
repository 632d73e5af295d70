// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package icx

import (
	"encoding/hex"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
)

const (
	// AddressBodyLength length of address body in bytes.
	AddressBodyLength = 20
	// AddressLength length of prefix-inclusive address in bytes.
	AddressLength = AddressBodyLength + 1

	addressTextLength = 2 + AddressBodyLength*2
)

// Address prefixes.
const (
	PrefixEOA      byte = 0x00
	PrefixContract byte = 0x01
)

var (
	_ json.Marshaler   = (*Address)(nil)
	_ json.Unmarshaler = (*Address)(nil)
)

// Address is the canonical account identifier: one prefix byte followed by a 20-byte body.
type Address [AddressLength]byte

// Well-known addresses.
var (
	// SystemAddress is the zero contract, target of deploy transactions and IISS system calls.
	SystemAddress = NewContractAddress(nil)
	// GovernanceAddress hosts the privileged governance contract.
	GovernanceAddress = NewContractAddress([]byte{1})
	// TreasuryAddress receives the fees paid by transactions.
	TreasuryAddress = MustParseAddress("hx1000000000000000000000000000000000000000")
)

// NewEOAAddress creates an EOA address with the given body.
// The body is cropped or left-padded to 20 bytes.
func NewEOAAddress(body []byte) Address {
	return newAddress(PrefixEOA, body)
}

// NewContractAddress creates a contract address with the given body.
// The body is cropped or left-padded to 20 bytes.
func NewContractAddress(body []byte) Address {
	return newAddress(PrefixContract, body)
}

func newAddress(prefix byte, body []byte) (a Address) {
	if len(body) > AddressBodyLength {
		body = body[len(body)-AddressBodyLength:]
	}
	a[0] = prefix
	copy(a[AddressLength-len(body):], body)
	return
}

// IsContract returns whether the address is a contract address.
func (a Address) IsContract() bool {
	return a[0] == PrefixContract
}

// IsZero returns whether the body is all zero.
func (a Address) IsZero() bool {
	for _, b := range a[1:] {
		if b != 0 {
			return false
		}
	}
	return true
}

// Prefix returns the prefix byte.
func (a Address) Prefix() byte {
	return a[0]
}

// Body returns the 20-byte body.
func (a Address) Body() []byte {
	return a[1:]
}

// Bytes returns the prefix-inclusive 21-byte form.
func (a Address) Bytes() []byte {
	return a[:]
}

// String implements the stringer interface.
func (a Address) String() string {
	if a.IsContract() {
		return "cx" + hex.EncodeToString(a[1:])
	}
	return "hx" + hex.EncodeToString(a[1:])
}

// MarshalJSON implements json.Marshaler.
func (a *Address) MarshalJSON() ([]byte, error) {
	if a == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler, so that addresses can be used as yaml keys.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress converts the text form into Address.
func ParseAddress(s string) (Address, error) {
	if len(s) != addressTextLength {
		return Address{}, Errorf(InvalidFormat, "invalid address length: %q", s)
	}
	var prefix byte
	switch s[:2] {
	case "hx":
		prefix = PrefixEOA
	case "cx":
		prefix = PrefixContract
	default:
		return Address{}, Errorf(InvalidFormat, "invalid address prefix: %q", s)
	}
	if !isLowerHex(s[2:]) {
		return Address{}, Errorf(InvalidFormat, "invalid address body: %q", s)
	}
	var a Address
	a[0] = prefix
	if _, err := hex.Decode(a[1:], []byte(s[2:])); err != nil {
		return Address{}, Errorf(InvalidFormat, "invalid address body: %q", s)
	}
	return a, nil
}

// MustParseAddress converts the text form into Address, panic on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes decodes a 20-byte (EOA implied) or 21-byte (explicit prefix) address.
// It returns nil for any other input, so that it can be used to probe legacy encodings.
func AddressFromBytes(b []byte) *Address {
	switch len(b) {
	case AddressBodyLength:
		a := NewEOAAddress(b)
		return &a
	case AddressLength:
		if b[0] != PrefixEOA && b[0] != PrefixContract {
			return nil
		}
		var a Address
		copy(a[:], b)
		return &a
	}
	return nil
}

// CreateContractAddress derives the address of a contract deployed by from at timestamp.
// The nonce is appended only when present.
//
//	body = sha3_256(from.body || BE32(timestamp) || [BE32(nonce)])[12:]
func CreateContractAddress(from Address, timestamp *big.Int, nonce *big.Int) Address {
	data := make([]byte, 0, AddressBodyLength+64)
	data = append(data, from.Body()...)
	data = append(data, math.U256Bytes(new(big.Int).Set(timestamp))...)
	if nonce != nil {
		data = append(data, math.U256Bytes(new(big.Int).Set(nonce))...)
	}
	h := SHA3256(data)
	return NewContractAddress(h[32-AddressBodyLength:])
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
