// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/emylabs/emy/builtin/whitelist"
	"github.com/emylabs/emy/emy"
)

type accountProof struct {
	Address emy.Address   `json:"address"`
	Proof   []emy.Bytes32 `json:"proof"`
}

type merkleResult struct {
	Root     emy.Bytes32     `json:"root"`
	Accounts []*accountProof `json:"accounts"`
}

func merkleAction(ctx *cli.Context) error {
	refs := ctx.StringSlice(addressFlag.Name)
	if path := ctx.String(fileFlag.Name); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "open address file")
		}
		defer f.Close()
		lines, err := readAddressLines(f)
		if err != nil {
			return err
		}
		refs = append(refs, lines...)
	}

	result, err := buildMerkle(refs)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// readAddressLines returns the non-empty lines of r. Text after '#' is ignored.
func readAddressLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read address file")
	}
	return lines, nil
}

func buildMerkle(refs []string) (*merkleResult, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("no address given, use -%s or -%s", addressFlag.Name, fileFlag.Name)
	}
	accounts := make([]emy.Address, 0, len(refs))
	seen := make(map[emy.Address]bool, len(refs))
	for _, ref := range refs {
		addr, err := emy.ParseAddress(ref)
		if err != nil {
			return nil, errors.WithMessagef(err, "address %q", ref)
		}
		if seen[addr] {
			return nil, fmt.Errorf("duplicated address %v", addr)
		}
		seen[addr] = true
		accounts = append(accounts, addr)
	}

	tree := whitelist.NewAddressTree(accounts)
	result := &merkleResult{
		Root:     tree.Root(),
		Accounts: make([]*accountProof, 0, len(accounts)),
	}
	for _, addr := range accounts {
		proof, err := tree.AddressProof(addr)
		if err != nil {
			return nil, err
		}
		if proof == nil {
			proof = []emy.Bytes32{}
		}
		result.Accounts = append(result.Accounts, &accountProof{addr, proof})
	}
	return result, nil
}
