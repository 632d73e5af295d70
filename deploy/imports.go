// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package deploy

import (
	"sort"
	"strings"

	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/netvalue"
)

// ImportValidator checks a declared import manifest against the import white list.
// The manifest nests module path segments as objects, leaves are lists of imported names:
//
//	{"iconservice": {"base": {"exception": ["ExceptionCode"]}}, "os": ["path"]}
//
// The validator carries the walk state, one validator serves one manifest.
type ImportValidator struct {
	whiteList netvalue.ImportWhiteList
	path      []string
	denied    []string
}

// NewImportValidator creates a validator for the given white list.
func NewImportValidator(whiteList netvalue.ImportWhiteList) *ImportValidator {
	return &ImportValidator{whiteList: whiteList}
}

// Validate walks the manifest. It fails with InvalidParams listing every import not white listed.
func (v *ImportValidator) Validate(manifest map[string]any) error {
	v.path, v.denied = v.path[:0], v.denied[:0]
	if err := v.walk(manifest); err != nil {
		return err
	}
	if len(v.denied) > 0 {
		return icx.Errorf(icx.InvalidParams, "Import not allowed: %s", strings.Join(v.denied, ", "))
	}
	return nil
}

func (v *ImportValidator) walk(node map[string]any) error {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k == "" || strings.Contains(k, ".") {
			return icx.Errorf(icx.InvalidParams, "Invalid import manifest: module segment %q", k)
		}
		v.path = append(v.path, k)
		if err := v.visit(node[k]); err != nil {
			return err
		}
		v.path = v.path[:len(v.path)-1]
	}
	return nil
}

func (v *ImportValidator) visit(val any) error {
	switch val := val.(type) {
	case map[string]any:
		return v.walk(val)
	case []any:
		module := strings.Join(v.path, ".")
		for _, n := range val {
			name, ok := n.(string)
			if !ok || name == "" {
				return icx.Errorf(icx.InvalidParams, "Invalid import manifest: name %v in %s", n, module)
			}
			if !v.whiteList.Allows(module, name) {
				v.denied = append(v.denied, module+":"+name)
			}
		}
		return nil
	}
	return icx.Errorf(icx.InvalidParams, "Invalid import manifest: %s", strings.Join(v.path, "."))
}
