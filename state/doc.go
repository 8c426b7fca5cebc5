// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages contract code and storage.
// It follows the flow as below:
//
//	          o
//	          |
//	 [ revertible state ]
//	          |
//	   [ stacked map ] -> [ journal ] -> [ stage ] -> [ kv batch ]
//	          |
//	   [ kv snapshot ]
//
// Every call frame opens a checkpoint and reverts to it on failure, so a
// failed call leaves no partial writes behind.
package state
