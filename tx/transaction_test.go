// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vechain/scoreloop/icx"
)

func v3Params() Params {
	return Params{
		"version":   "0x3",
		"from":      "hxbe258ceb872e08851f1f59694dac2558708ece11",
		"to":        "hx5bfdb090f43a808005ffc27c25b213145e80b7cd",
		"value":     "0xde0b6b3a7640000",
		"stepLimit": "0x12345",
		"timestamp": "0x563a6cf330136",
		"nid":       "0x1",
		"nonce":     "0x1",
		"signature": "abc",
	}
}

func TestHash(t *testing.T) {
	p := v3Params()
	assert.Equal(t,
		"from.hxbe258ceb872e08851f1f59694dac2558708ece11.nid.0x1.nonce.0x1.stepLimit.0x12345."+
			"timestamp.0x563a6cf330136.to.hx5bfdb090f43a808005ffc27c25b213145e80b7cd.value.0xde0b6b3a7640000.version.0x3",
		Serialize(p))
	assert.Equal(t, "0xf0c68a4f588233d722fff7b5a738ffa6b56ad4cb62ad6bc9fb3e5facb0c25059", Hash(p).String())

	// signature never contributes
	p["signature"] = "other"
	assert.Equal(t, "0xf0c68a4f588233d722fff7b5a738ffa6b56ad4cb62ad6bc9fb3e5facb0c25059", Hash(p).String())
}

func TestHashNested(t *testing.T) {
	var p Params
	require.NoError(t, json.Unmarshal([]byte(`{
		"version": "0x3",
		"from": "hxbe258ceb872e08851f1f59694dac2558708ece11",
		"to": "cx0000000000000000000000000000000000000001",
		"stepLimit": "0x12345",
		"timestamp": "0x563a6cf330136",
		"nid": "0x1",
		"dataType": "call",
		"data": {"method": "acceptScore", "params": {"txHash": "0xab.cd", "list": ["a", "b[1]", null]}}
	}`), &p))

	assert.Equal(t,
		`data.{method.acceptScore.params.{list.[a.b\[1\].\0].txHash.0xab\.cd}}.dataType.call.`+
			"from.hxbe258ceb872e08851f1f59694dac2558708ece11.nid.0x1.stepLimit.0x12345.timestamp.0x563a6cf330136."+
			"to.cx0000000000000000000000000000000000000001.version.0x3",
		Serialize(p))
	assert.Equal(t, "0xac5216bea2c81ecf3819d8b503e7f72467d51aa91afcf318c829bbfd40a3d2b1", Hash(p).String())
}

func TestFromParamsV3(t *testing.T) {
	trx, err := FromParams(v3Params())
	require.NoError(t, err)

	assert.Equal(t, Version3, trx.Version)
	assert.Equal(t, "hxbe258ceb872e08851f1f59694dac2558708ece11", trx.From.String())
	assert.Equal(t, big.NewInt(0x12345), trx.StepLimit)
	assert.Equal(t, 0, trx.Value.Cmp(icx.ICX))
	assert.Equal(t, big.NewInt(1), trx.Nonce)
	assert.Equal(t, DataTypeNone, trx.DataType)
	assert.Equal(t, Hash(v3Params()), trx.Hash)

	p := v3Params()
	p["txHash"] = "0x11" + strings.Repeat("0", 62)
	trx, err = FromParams(p)
	require.NoError(t, err)
	assert.Equal(t, byte(0x11), trx.Hash[0])
}

func TestFromParamsV2(t *testing.T) {
	trx, err := FromParams(Params{
		"from":      "hxbe258ceb872e08851f1f59694dac2558708ece11",
		"to":        "hx5bfdb090f43a808005ffc27c25b213145e80b7cd",
		"value":     "0x1",
		"fee":       "0x2386f26fc10000",
		"timestamp": "1519709385120909",
	})
	require.NoError(t, err)
	assert.Equal(t, Version2, trx.Version)
	assert.Equal(t, 0, trx.Fee.Cmp(icx.FixedFee))
	assert.Equal(t, big.NewInt(1519709385120909), trx.Timestamp)
	assert.Nil(t, trx.StepLimit)
}

func TestFromParamsV2LegacyAddress(t *testing.T) {
	params := func(to string) Params {
		return Params{
			"from":      "hxbe258ceb872e08851f1f59694dac2558708ece11",
			"to":        to,
			"value":     "0x1",
			"fee":       "0x2386f26fc10000",
			"timestamp": "1519709385120909",
		}
	}

	trx, err := FromParams(params("hx5BFDB090F43A808005FFC27C25B213145E80B7CD"))
	require.NoError(t, err)
	assert.Equal(t, icx.MustParseAddress("hx5bfdb090f43a808005ffc27c25b213145e80b7cd"), trx.To)

	_, err = FromParams(params("hx5bfdb090f43a808005ffc27c25b213145e80b7"))
	require.Error(t, err)
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))
	assert.Contains(t, err.Error(), "malformed address hx5bfdb090f43a808005ffc27c25b213145e80b7")

	_, err = FromParams(params("hxzz"))
	assert.Equal(t, icx.InvalidFormat, icx.KindOf(err))

	// v3 requests stay strict
	p := v3Params()
	p["to"] = "hx5BFDB090F43A808005FFC27C25B213145E80B7CD"
	_, err = FromParams(p)
	assert.Equal(t, icx.InvalidFormat, icx.KindOf(err))
}

func TestFromParamsErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(Params)
		kind   icx.Kind
	}{
		{"missing from", func(p Params) { delete(p, "from") }, icx.InvalidRequest},
		{"missing stepLimit", func(p Params) { delete(p, "stepLimit") }, icx.InvalidRequest},
		{"contract from", func(p Params) { p["from"] = "cx5bfdb090f43a808005ffc27c25b213145e80b7cd" }, icx.InvalidParams},
		{"bad to", func(p Params) { p["to"] = "hx5bfdb090f43a808005ffc27c25b213145e80b7c" }, icx.InvalidFormat},
		{"bad value", func(p Params) { p["value"] = "0xzz" }, icx.InvalidParams},
		{"bad version", func(p Params) { p["version"] = "0x2" }, icx.InvalidParams},
		{"non string", func(p Params) { p["nid"] = 1.0 }, icx.InvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := v3Params()
			tt.modify(p)
			_, err := FromParams(p)
			require.Error(t, err)
			assert.Equal(t, tt.kind, icx.KindOf(err))
		})
	}
}

func TestParseInt(t *testing.T) {
	for s, want := range map[string]int64{"0x10": 16, "-0x10": -16, "10": 10, "-5": -5, "0x0": 0} {
		n, err := ParseInt(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, n.Int64(), s)
	}
	for _, s := range []string{"", "0x", "-", "--1", "0x-1", "+1", "1.5"} {
		_, err := ParseInt(s)
		assert.Error(t, err, s)
	}
}

func TestParseData(t *testing.T) {
	call, err := ParseCallData(map[string]any{"method": "transfer", "params": map[string]any{"_to": "hx1"}})
	require.NoError(t, err)
	assert.Equal(t, "transfer", call.Method)
	assert.Equal(t, "hx1", call.Params["_to"])

	_, err = ParseCallData("0x1234")
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))

	deploy, err := ParseDeployData(map[string]any{
		"contentType": ContentTypeZip,
		"content":     "0x504b",
		"imports":     map[string]any{"os": []any{"path"}},
	})
	require.NoError(t, err)
	assert.Equal(t, ContentTypeZip, deploy.ContentType)
	assert.Contains(t, deploy.Imports, "os")

	dep, err := ParseDepositData(map[string]any{
		"action": DepositActionWithdraw,
		"id":     "0xab" + strings.Repeat("0", 60) + "ff",
	})
	require.NoError(t, err)
	assert.Equal(t, byte(0xab), dep.ID[0])

	_, err = ParseDepositData(map[string]any{"action": "add", "id": "0x12"})
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))
}
