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
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/algorand/go-onlineaccounts/config"
	"github.com/algorand/go-onlineaccounts/daemon/oad"
	"github.com/algorand/go-onlineaccounts/logging"
)

var serveLogLevel string

func init() {
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override BaseLoggerDebugLevel (debug, info, warn, error)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the online accounts node and its HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if dataDir == "" {
			return errors.New("serve needs a data directory (-d)")
		}
		cfg, err := config.LoadConfigFromDisk(dataDir)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		if serveLogLevel != "" {
			lvl, err := logging.ParseLevel(serveLogLevel)
			if err != nil {
				return err
			}
			cfg.BaseLoggerDebugLevel = uint32(lvl)
		}
		params, err := config.LoadConsensusParams(dataDir)
		if err != nil {
			return err
		}

		s := &oad.Server{RootPath: dataDir}
		if err := s.Initialize(cfg, params); err != nil {
			return err
		}
		return s.Run()
	},
}
