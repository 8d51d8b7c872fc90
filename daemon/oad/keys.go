// Copyright (C) 2019-2024 Algorand, Inc.
// This file is part of go-onlineaccounts
//
// go-onlineaccounts is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-onlineaccounts is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-onlineaccounts.  If not, see <https://www.gnu.org/licenses/>.

package oad

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/onlineaccounts"
)

// KeysFilename holds the hex encoded signing seeds of the local reward-share
// accounts, one per line.
const KeysFilename = "keys.txt"

// LoadParticipants reads the signing keys stored in rootPath. A missing file
// means the node holds no keys.
func LoadParticipants(rootPath string) (onlineaccounts.StaticParticipants, error) {
	f, err := os.Open(filepath.Join(rootPath, KeysFilename))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out onlineaccounts.StaticParticipants
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		seed, err := crypto.SeedFromHex(text)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", KeysFilename, line, err)
		}
		out = append(out, crypto.GenerateSignatureSecrets(seed))
	}
	return out, scanner.Err()
}

// SaveParticipants appends seeds to the keys file in rootPath.
func SaveParticipants(rootPath string, seeds ...crypto.Seed) error {
	f, err := os.OpenFile(filepath.Join(rootPath, KeysFilename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, seed := range seeds {
		if _, err := fmt.Fprintf(f, "%x\n", seed[:]); err != nil {
			return err
		}
	}
	return nil
}
