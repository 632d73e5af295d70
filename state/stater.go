// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/vechain/scoreloop/kv"
)

// Stater is the state creator. It owns the committed store and a cache of committed values.
type Stater struct {
	store kv.Store
	cache *lru.Cache
}

// NewStater create a new stater. The cache is sized in entries.
func NewStater(store kv.Store, cacheSize int) *Stater {
	if cacheSize < 256 {
		cacheSize = 256
	}
	cache, _ := lru.New(cacheSize)
	return &Stater{store, cache}
}

// Store returns the committed store.
func (s *Stater) Store() kv.Store {
	return s.store
}

// NewState create a new state object over the committed store.
func (s *Stater) NewState() *State {
	return New(&cachedGetter{s.store, s.cache})
}

// NewSnapshotState creates a state over a consistent snapshot of the committed store.
// It bypasses the cache, so that later commits can never leak into it.
// The returned release func must be called when the state is no longer used.
func (s *Stater) NewSnapshotState() (*State, func()) {
	snap := s.store.Snapshot()
	return New(snap), snap.Release
}

// Commit writes the stage into the store atomically, and refreshes the cache.
func (s *Stater) Commit(stage *Stage) error {
	bulk := s.store.Bulk()
	if err := stage.Commit(bulk); err != nil {
		return err
	}
	if err := bulk.Write(); err != nil {
		s.cache.Purge()
		return errors.Wrap(err, "write bulk")
	}
	return stage.Each(func(key, val []byte) error {
		if val == nil {
			s.cache.Remove(string(key))
		} else {
			s.cache.Add(string(key), val)
		}
		return nil
	})
}

type cachedGetter struct {
	src   kv.Getter
	cache *lru.Cache
}

type absent struct{}

func (g *cachedGetter) Get(key []byte) ([]byte, error) {
	if v, ok := g.cache.Get(string(key)); ok {
		metricCacheCounter().AddWithLabel(1, map[string]string{"event": "hit"})
		if _, ok := v.(absent); ok {
			return nil, errNotFound
		}
		return v.([]byte), nil
	}
	metricCacheCounter().AddWithLabel(1, map[string]string{"event": "miss"})
	v, err := g.src.Get(key)
	if err != nil {
		if g.src.IsNotFound(err) {
			g.cache.Add(string(key), absent{})
			return nil, errNotFound
		}
		return nil, err
	}
	g.cache.Add(string(key), v)
	return v, nil
}

func (g *cachedGetter) Has(key []byte) (bool, error) {
	_, err := g.Get(key)
	if err != nil {
		if g.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *cachedGetter) IsNotFound(err error) bool {
	return err == errNotFound
}
