// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package icx

import "math/big"

// Revisions gating protocol behaviors. A block is always processed with the rules of the
// revision in effect when it was produced.
const (
	RevisionGenesis              = 0
	RevisionIISS                 = 5
	RevisionDecentralization     = 6
	RevisionMaxDelegations100    = 9
	RevisionLockAddress          = 10
	RevisionImprovedPreValidator = 12

	LatestRevision = RevisionImprovedPreValidator
)

// Protocol constants.
const (
	// MaxCallStackDepth bounds nested inter-contract calls in one transaction.
	MaxCallStackDepth = 64
	// MaxCallCount bounds the number of inter-contract calls in one transaction.
	MaxCallCount = 1024
	// MaxDataSize bounds the serialized size of the data field.
	MaxDataSize = 512 * 1024
)

var (
	// Loop is the smallest unit of the native coin, 1 ICX = 10^18 loop.
	Loop = big.NewInt(1)
	// ICX is 10^18 loop.
	ICX = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	// FixedFee is the fee of every protocol v2 transaction.
	FixedFee = new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
)
