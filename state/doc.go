// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages the key-value world state of one block in flight.
// It follows the flow as bellow:
//
//	         o
//	         |
//	[ revertable state ]
//	         |
//	  [ stacked map ] -> [ journal ] -> [ stage ] -> [ kv bulk ]
//	         |
//	   [ lru cache ]
//	         |
//	 [ committed kv store ]
//
// Every subsystem keeps its records under its own key prefix (see kv.Bucket).
// A state is a copy-on-write overlay: nothing reaches the store until its stage is committed,
// and dropping the state discards all changes.
package state
