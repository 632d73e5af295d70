// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package deploy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/netvalue"
)

func TestImportValidator(t *testing.T) {
	v := NewImportValidator(netvalue.ImportWhiteList{
		"os":                         {"path"},
		"iconservice.base.exception": {"*"},
	})

	assert.NoError(t, v.Validate(nil))
	assert.NoError(t, v.Validate(map[string]any{
		"os": []any{"path"},
		"iconservice": map[string]any{
			"base": map[string]any{"exception": []any{"ExceptionCode", "RevertException"}},
		},
	}))

	err := v.Validate(map[string]any{
		"os":          []any{"path", "system"},
		"subprocess":  []any{"run"},
		"iconservice": map[string]any{"base": []any{"exception"}},
	})
	assert.Equal(t, icx.InvalidParams, icx.KindOf(err))
	assert.EqualError(t, err, "Import not allowed: iconservice.base:exception, os:system, subprocess:run")

	// the validator is reusable
	assert.NoError(t, v.Validate(map[string]any{"os": []any{"path"}}))

	for _, bad := range []map[string]any{
		{"os": "path"},
		{"os": []any{1.0}},
		{"os.path": []any{"join"}},
		{"": []any{"x"}},
	} {
		err := v.Validate(bad)
		assert.Equal(t, icx.InvalidParams, icx.KindOf(err), "%v", bad)
	}
}

func TestCheckImports(t *testing.T) {
	s := newStorage(t)
	_, err := s.RecordDeploy(owner, t1, &DeployTxParams{Score: score, Imports: []byte(`{"subprocess":["run"]}`)}, nil)
	if !assert.NoError(t, err) {
		return
	}
	v := NewImportValidator(netvalue.ImportWhiteList{"os": {"path"}})
	assert.Equal(t, icx.InvalidParams, icx.KindOf(s.CheckImports(t1, v)))
	assert.NoError(t, s.CheckImports(t1, NewImportValidator(netvalue.ImportWhiteList{"subprocess": {"*"}})))
	assert.Equal(t, icx.ScoreNotFound, icx.KindOf(s.CheckImports(t2, v)))
}
