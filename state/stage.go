// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/pkg/errors"
	"github.com/vechain/scoreloop/kv"
)

// Stage abstracts the changes made on a state, in the order keys were first written.
type Stage struct {
	keys    []string
	changes map[string]value
}

// Len returns the number of changed keys.
func (s *Stage) Len() int {
	return len(s.keys)
}

// Each calls fn for every changed key, val is nil for deleted keys.
func (s *Stage) Each(fn func(key, val []byte) error) error {
	for _, k := range s.keys {
		if err := fn([]byte(k), s.changes[k]); err != nil {
			return err
		}
	}
	return nil
}

// Commit writes all changes into the bulk. The caller writes the bulk.
func (s *Stage) Commit(bulk kv.Putter) error {
	return s.Each(func(key, val []byte) error {
		if val == nil {
			return errors.Wrap(bulk.Delete(key), "commit stage")
		}
		return errors.Wrap(bulk.Put(key, val), "commit stage")
	})
}
