// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fee

import (
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/kv"
)

// lockedKey holds the locked address list the network was created with.
var lockedKey = []byte("list")

// LockedList is the set of frozen accounts.
type LockedList struct {
	set map[icx.Address]struct{}
}

// NewLockedList creates a locked list of the given addresses.
func NewLockedList(addrs []icx.Address) *LockedList {
	set := make(map[icx.Address]struct{}, len(addrs))
	for _, a := range addrs {
		set[a] = struct{}{}
	}
	return &LockedList{set}
}

// IsLocked reports whether addr is frozen at revision.
func (l *LockedList) IsLocked(revision int, addr icx.Address) bool {
	if revision < icx.RevisionLockAddress {
		return false
	}
	_, ok := l.set[addr]
	return ok
}

// Check fails with InvalidRequest naming the address if it is frozen at revision.
func (l *LockedList) Check(revision int, addr icx.Address) error {
	if l.IsLocked(revision, addr) {
		return icx.Errorf(icx.InvalidRequest, "Locked address: %s", addr)
	}
	return nil
}

// Addresses returns the locked addresses in ascending order.
func (l *LockedList) Addresses() []icx.Address {
	addrs := make([]icx.Address, 0, len(l.set))
	for a := range l.set {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return string(addrs[i][:]) < string(addrs[j][:])
	})
	return addrs
}

// SaveLockedList stores the locked addresses, they are fixed at genesis.
func SaveLockedList(dst kv.Putter, l *LockedList) error {
	data, err := rlp.EncodeToBytes(l.Addresses())
	if err != nil {
		return err
	}
	return lockedBucket.NewPutter(dst).Put(lockedKey, data)
}

// LoadLockedList reads the stored locked addresses. Nothing is locked if none were stored.
func LoadLockedList(src kv.Getter) (*LockedList, error) {
	getter := lockedBucket.NewGetter(src)
	data, err := getter.Get(lockedKey)
	if err != nil {
		if getter.IsNotFound(err) {
			return NewLockedList(nil), nil
		}
		return nil, err
	}
	var addrs []icx.Address
	if err := rlp.DecodeBytes(data, &addrs); err != nil {
		return nil, errors.Wrap(err, "decode locked addresses")
	}
	return NewLockedList(addrs), nil
}
