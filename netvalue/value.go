// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package netvalue

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/vechain/scoreloop/icx"
)

// Type is the stable tag of a network value.
type Type byte

// Network value types. The numeric tag is part of the storage key and must never change.
const (
	TypeRevisionCode Type = iota
	TypeRevisionName
	TypeStepPrice
	TypeStepCosts
	TypeMaxStepLimits
	TypeScoreBlackList
	TypeImportWhiteList
	TypeServiceConfig

	typeCount
)

// RequiredTypes must all be present to migrate.
var RequiredTypes = []Type{
	TypeRevisionCode,
	TypeRevisionName,
	TypeStepPrice,
	TypeStepCosts,
	TypeMaxStepLimits,
	TypeScoreBlackList,
	TypeImportWhiteList,
	TypeServiceConfig,
}

func (t Type) String() string {
	switch t {
	case TypeRevisionCode:
		return "revisionCode"
	case TypeRevisionName:
		return "revisionName"
	case TypeStepPrice:
		return "stepPrice"
	case TypeStepCosts:
		return "stepCosts"
	case TypeMaxStepLimits:
		return "maxStepLimits"
	case TypeScoreBlackList:
		return "scoreBlackList"
	case TypeImportWhiteList:
		return "importWhiteList"
	case TypeServiceConfig:
		return "serviceConfig"
	}
	return fmt.Sprintf("type(%d)", byte(t))
}

// IsValid reports whether t is a known tag.
func (t Type) IsValid() bool {
	return t < typeCount
}

// Value is a typed network value.
type Value interface {
	Type() Type
	// Version is the encoding version of the payload.
	Version() uint
	validate() error
	encodePayload() ([]byte, error)
}

// envelope is the stored form of a value.
type envelope struct {
	Version uint
	Payload rlp.RawValue
}

// Encode returns the [version, payload] encoding of v.
func Encode(v Value) ([]byte, error) {
	payload, err := v.encodePayload()
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(&envelope{v.Version(), payload})
}

// Decode decodes the stored value of type t.
func Decode(t Type, data []byte) (Value, error) {
	var env envelope
	if err := rlp.DecodeBytes(data, &env); err != nil {
		return nil, icx.Errorf(icx.InvalidFormat, "decode %v: %v", t, err)
	}
	if env.Version != 0 {
		return nil, icx.Errorf(icx.InvalidFormat, "decode %v: unsupported version %d", t, env.Version)
	}
	var (
		v   Value
		err error
	)
	switch t {
	case TypeRevisionCode:
		v, err = decodeRevisionCode(env.Payload)
	case TypeRevisionName:
		v, err = decodeRevisionName(env.Payload)
	case TypeStepPrice:
		v, err = decodeStepPrice(env.Payload)
	case TypeStepCosts:
		v, err = decodeStepCosts(env.Payload)
	case TypeMaxStepLimits:
		v, err = decodeMaxStepLimits(env.Payload)
	case TypeScoreBlackList:
		v, err = decodeScoreBlackList(env.Payload)
	case TypeImportWhiteList:
		v, err = decodeImportWhiteList(env.Payload)
	case TypeServiceConfig:
		v, err = decodeServiceConfig(env.Payload)
	default:
		return nil, icx.Errorf(icx.InvalidParams, "Invalid network value type: %v", t)
	}
	if err != nil {
		return nil, icx.Errorf(icx.InvalidFormat, "decode %v: %v", t, err)
	}
	return v, nil
}
