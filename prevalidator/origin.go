// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package prevalidator

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/tx"
)

type fieldKind int

const (
	fieldAny fieldKind = iota
	fieldInt
	fieldAddress
)

// originFields are the fields a v3 request may carry as signed by the sender.
var originFields = map[string]fieldKind{
	"version":   fieldInt,
	"from":      fieldAddress,
	"to":        fieldAddress,
	"value":     fieldInt,
	"stepLimit": fieldInt,
	"timestamp": fieldInt,
	"nonce":     fieldInt,
	"nid":       fieldInt,
	"dataType":  fieldAny,
	"data":      fieldAny,
	"signature": fieldAny,
	"txHash":    fieldAny,
}

var requiredOriginFields = []string{"version", "from", "to", "stepLimit", "timestamp", "nid", "signature"}

// ValidateOriginFields checks the raw v3 request strictly. It applies from RevisionImprovedPreValidator on.
func ValidateOriginFields(revision int, params tx.Params) error {
	if revision < icx.RevisionImprovedPreValidator {
		return nil
	}
	if v, _ := params["version"].(string); v != "0x3" {
		return icx.Errorf(icx.InvalidRequest, "Invalid version: %v", params["version"])
	}

	var extra []string
	for k := range params {
		if _, ok := originFields[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return icx.Errorf(icx.InvalidRequest, "Invalid request: unexpected fields %s", strings.Join(extra, ", "))
	}
	for _, k := range requiredOriginFields {
		if _, ok := params[k]; !ok {
			return icx.Errorf(icx.InvalidRequest, "Invalid request: %s not found", k)
		}
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch originFields[k] {
		case fieldInt:
			if err := checkCanonicalInt(k, params[k]); err != nil {
				return err
			}
		case fieldAddress:
			s, ok := params[k].(string)
			if !ok {
				return icx.Errorf(icx.InvalidParams, "Invalid %s: not a string", k)
			}
			if _, err := icx.ParseAddress(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkCanonicalInt requires lowercase 0x prefixed hex without leading zeros, so that
// decoding and re-encoding yields the same text.
func checkCanonicalInt(key string, v any) error {
	s, ok := v.(string)
	if !ok {
		return icx.Errorf(icx.InvalidParams, "Invalid %s: not a string", key)
	}
	text := strings.TrimPrefix(s, "-")
	if !strings.HasPrefix(text, "0x") {
		return icx.Errorf(icx.InvalidParams, "Invalid %s: %s", key, s)
	}
	n, err := tx.ParseInt(s)
	if err != nil || hexutil.EncodeBig(n) != s {
		return icx.Errorf(icx.InvalidParams, "Invalid %s: %s", key, s)
	}
	return nil
}
