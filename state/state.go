// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/vechain/scoreloop/kv"
	"github.com/vechain/scoreloop/stackedmap"
)

var (
	_ kv.GetPutter = (*State)(nil)

	errNotFound = errors.New("not found")
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Cause returns the underlying error.
func (e *Error) Cause() error {
	return e.cause
}

// value is a journaled value, nil stands for deleted.
type value []byte

// State is a revertable overlay over a kv source.
type State struct {
	src kv.Getter
	sm  *stackedmap.StackedMap[string, value]
}

// New create a state object over the given source.
func New(src kv.Getter) *State {
	s := &State{src: src}
	s.sm = stackedmap.New(s.srcGetter)
	s.sm.Push()
	return s
}

// Fork creates a child state reading through the current state.
// Changes of the child never affect the parent.
func (s *State) Fork() *State {
	return New(s)
}

func (s *State) srcGetter(key string) (value, bool, error) {
	v, err := s.src.Get([]byte(key))
	if err != nil {
		if s.src.IsNotFound(err) {
			return nil, true, nil
		}
		return nil, false, &Error{err}
	}
	return v, true, nil
}

// Get implements kv.Getter. Absent keys yield an error that can be checked via IsNotFound.
func (s *State) Get(key []byte) ([]byte, error) {
	v, err := s.GetRaw(key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errNotFound
	}
	return v, nil
}

// Has implements kv.Getter.
func (s *State) Has(key []byte) (bool, error) {
	v, err := s.GetRaw(key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// IsNotFound implements kv.Getter.
func (s *State) IsNotFound(err error) bool {
	return err == errNotFound
}

// Put implements kv.Putter. An empty value deletes the key.
func (s *State) Put(key, val []byte) error {
	s.SetRaw(key, val)
	return nil
}

// Delete implements kv.Putter.
func (s *State) Delete(key []byte) error {
	s.SetRaw(key, nil)
	return nil
}

// GetRaw returns the raw value of key, nil if absent.
func (s *State) GetRaw(key []byte) ([]byte, error) {
	v, _, err := s.sm.Get(string(key))
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SetRaw sets the raw value of key. An empty value deletes the key.
func (s *State) SetRaw(key, val []byte) {
	if len(val) == 0 {
		s.sm.Put(string(key), nil)
		return
	}
	s.sm.Put(string(key), append([]byte(nil), val...))
}

// EncodeStorage set storage value encoded by given enc method.
// The key is deleted if the encoded value is empty.
func (s *State) EncodeStorage(key []byte, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRaw(key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// The decoder is called with an empty slice if the key is absent.
func (s *State) DecodeStorage(key []byte, dec func([]byte) error) error {
	raw, err := s.GetRaw(key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// Checkpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) Checkpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	if revision < 1 {
		panic("invalid revision")
	}
	s.sm.PopTo(revision)
}

// Changes returns the net changes since the state was created, nil values for deleted keys.
func (s *State) Changes() map[string][]byte {
	changes := make(map[string][]byte)
	for _, e := range s.sm.Journal() {
		changes[e.Key] = e.Value
	}
	return changes
}

// Stage makes a stage object to commit changes.
func (s *State) Stage() *Stage {
	changes := make(map[string]value)
	var keys []string
	for _, e := range s.sm.Journal() {
		if _, ok := changes[e.Key]; !ok {
			keys = append(keys, e.Key)
		}
		changes[e.Key] = e.Value
	}
	return &Stage{keys: keys, changes: changes}
}
