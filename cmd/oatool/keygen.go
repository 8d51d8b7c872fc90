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

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/daemon/oad"
)

var keygenCount int

func init() {
	keygenCmd.Flags().IntVarP(&keygenCount, "count", "n", 1, "Number of keys to generate")
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate reward-share signing keys; with -d they are appended to keys.txt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		seeds := make([]crypto.Seed, max(keygenCount, 1))
		for i := range seeds {
			crypto.RandBytes(seeds[i][:])
			key := crypto.GenerateSignatureSecrets(seeds[i])
			if dataDir == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "seed %x public %v\n", seeds[i][:], key.PublicKey)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "public %v\n", key.PublicKey)
			}
		}
		if dataDir == "" {
			return nil
		}
		return oad.SaveParticipants(dataDir, seeds...)
	},
}
