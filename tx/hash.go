// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vechain/scoreloop/icx"
)

const hashSalt = "icx_sendTransaction"

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
)

// Hash computes the hash of a transaction from its request params.
// The signature and the hash fields themselves are excluded.
func Hash(params Params) icx.Bytes32 {
	return icx.SHA3256([]byte(hashSalt + "." + Serialize(params)))
}

// Serialize renders params as the canonical string the transaction hash is computed over.
// Keys are sorted, objects render as {k.v} and arrays as [a.b], nil renders as \0.
func Serialize(params Params) string {
	var b strings.Builder
	writeObject(&b, params, true)
	return b.String()
}

func writeObject(b *strings.Builder, m map[string]any, top bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if top && (k == "signature" || k == "txHash" || k == "tx_hash") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(k)
		b.WriteByte('.')
		writeValue(b, m[k])
	}
}

func writeValue(b *strings.Builder, v any) {
	switch v := v.(type) {
	case nil:
		b.WriteString(`\0`)
	case string:
		b.WriteString(escaper.Replace(v))
	case map[string]any:
		b.WriteByte('{')
		writeObject(b, v, false)
		b.WriteByte('}')
	case Params:
		writeValue(b, map[string]any(v))
	case []any:
		b.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				b.WriteByte('.')
			}
			writeValue(b, e)
		}
		b.WriteByte(']')
	case []string:
		b.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(escaper.Replace(e))
		}
		b.WriteByte(']')
	default:
		b.WriteString(escaper.Replace(fmt.Sprint(v)))
	}
}
