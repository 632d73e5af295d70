// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package icx

import (
	"encoding/hex"
	"strings"
)

// MalformedAddress is an EOA address whose body is not 20 bytes long.
// Such addresses were accepted by early nodes and may still be sent in v2 requests,
// so they can be decoded, but no account is ever resolved from one.
type MalformedAddress struct {
	body string
}

// MalformedAddressFromBytes wraps a legacy EOA body of arbitrary length.
func MalformedAddressFromBytes(body []byte) MalformedAddress {
	return MalformedAddress{string(body)}
}

// ParseLegacyAddress parses the text form of an address found in historical data.
// Well-formed text yields a normal Address and ok=true. Otherwise the hx prefixed, possibly
// short or long, hex body is kept as a MalformedAddress.
func ParseLegacyAddress(s string) (addr Address, malformed MalformedAddress, ok bool, err error) {
	if a, perr := ParseAddress(s); perr == nil {
		return a, MalformedAddress{}, true, nil
	}
	if !strings.HasPrefix(s, "hx") {
		return Address{}, MalformedAddress{}, false, Errorf(InvalidFormat, "invalid legacy address: %q", s)
	}
	body := strings.ToLower(s[2:])
	if len(body)%2 == 1 {
		body = "0" + body
	}
	raw, herr := hex.DecodeString(body)
	if herr != nil {
		return Address{}, MalformedAddress{}, false, Errorf(InvalidFormat, "invalid legacy address: %q", s)
	}
	return Address{}, MalformedAddressFromBytes(raw), false, nil
}

// Body returns the raw body.
func (m MalformedAddress) Body() []byte {
	return []byte(m.body)
}

// Bytes returns the prefix-less encoding, which is how legacy records stored it.
func (m MalformedAddress) Bytes() []byte {
	return []byte(m.body)
}

// IsContract always returns false, only EOA addresses were ever malformed.
func (m MalformedAddress) IsContract() bool {
	return false
}

// String implements the stringer interface.
func (m MalformedAddress) String() string {
	return "hx" + hex.EncodeToString([]byte(m.body))
}

// Normalize returns the equivalent well-formed address when the body happens to be 20 bytes.
func (m MalformedAddress) Normalize() (Address, bool) {
	if len(m.body) != AddressBodyLength {
		return Address{}, false
	}
	return NewEOAAddress([]byte(m.body)), true
}
