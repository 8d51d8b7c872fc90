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
	"os"

	"github.com/spf13/cobra"

	"github.com/algorand/go-onlineaccounts/config"
)

var dataDir string

var rootCmd = &cobra.Command{
	Use:   "oatool",
	Short: "CLI for inspecting and running the online accounts subsystem",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		// If no arguments passed, we should fallback to help
		cmd.HelpFunc()(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "datadir", "d", "", "Data directory holding config.json, consensus.json and keys.txt")
	rootCmd.AddCommand(bucketsCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConsensus reads consensus.json from the data directory, or falls back
// to mainnet parameters when no directory was given.
func loadConsensus() (config.ConsensusParams, error) {
	if dataDir == "" {
		return config.MakeConsensusParams(config.MainnetModulusV2Timestamp), nil
	}
	return config.LoadConsensusParams(dataDir)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
