// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package gen embeds the ABI definitions of the native contracts.
package gen

import (
	"embed"
	"fmt"
)

//go:embed compiled
var compiled embed.FS

// MustABI returns the ABI JSON of the named contract, panic if absent.
func MustABI(name string) []byte {
	data, err := compiled.ReadFile("compiled/" + name + ".abi")
	if err != nil {
		panic(fmt.Errorf("load ABI for '%s': %w", name, err))
	}
	return data
}
