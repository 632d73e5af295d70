// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package icx

import (
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"
)

type sha3State struct {
	hash.Hash
	b32 Bytes32
}

var sha3StatePool = sync.Pool{
	New: func() any {
		return &sha3State{Hash: sha3.New256()}
	},
}

// SHA3256 computes the FIPS-202 sha3-256 digest of the concatenated data.
func SHA3256(data ...[]byte) (h Bytes32) {
	w := sha3StatePool.Get().(*sha3State)
	for _, b := range data {
		w.Write(b)
	}
	w.Sum(w.b32[:0])
	h = w.b32
	w.Reset()
	sha3StatePool.Put(w)
	return
}
