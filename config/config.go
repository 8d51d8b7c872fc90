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

package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ConfigFilename is the name of the node config file in a data directory.
const ConfigFilename = "config.json"

// Local holds the per-node settings. None of these affect consensus.
type Local struct {
	// Version tracks the current version of the defaults so we can migrate old -> new
	Version uint32

	// BaseLoggerDebugLevel is the logging level, from 0 (panic) to 5 (debug).
	BaseLoggerDebugLevel uint32

	// SelfSignIntervalSeconds is how often local reward-share keys re-check the live buckets.
	SelfSignIntervalSeconds int

	// RequestIntervalSeconds is how often a request listing the known keys is broadcast.
	RequestIntervalSeconds int

	// IncomingMessageWorkers is the number of goroutines verifying inbound declarations.
	IncomingMessageWorkers int

	// IncomingMessageBacklogSize is the number of decoded messages waiting for a worker.
	IncomingMessageBacklogSize int

	// MaxAccountsPerMessage caps outbound messages; larger sets are split.
	MaxAccountsPerMessage int

	// EndpointAddress is where the inspection API and metrics listen.
	EndpointAddress string

	// DeadlockDetection: > 0 enables, < 0 disables, 0 keeps the library default.
	DeadlockDetection int

	// DeadlockDetectionThreshold is the lock wait, in seconds, reported as a deadlock.
	DeadlockDetectionThreshold int
}

var defaultLocal = Local{
	Version:                    1,
	BaseLoggerDebugLevel:       4,
	SelfSignIntervalSeconds:    30,
	RequestIntervalSeconds:     60,
	IncomingMessageWorkers:     4,
	IncomingMessageBacklogSize: 256,
	MaxAccountsPerMessage:      5000,
	EndpointAddress:            "127.0.0.1:8099",
	DeadlockDetection:          0,
	DeadlockDetectionThreshold: 30,
}

// GetDefaultLocal returns a copy of the current defaultLocal config
func GetDefaultLocal() Local {
	return defaultLocal
}

// SelfSignInterval returns SelfSignIntervalSeconds as a duration.
func (cfg Local) SelfSignInterval() time.Duration {
	return time.Duration(cfg.SelfSignIntervalSeconds) * time.Second
}

// RequestInterval returns RequestIntervalSeconds as a duration.
func (cfg Local) RequestInterval() time.Duration {
	return time.Duration(cfg.RequestIntervalSeconds) * time.Second
}

// LoadConfigFromDisk returns a Local config structure based on merging the defaults
// with settings loaded from the config file from the custom dir.  If the custom file
// cannot be loaded, the default config is returned (with the error from loading the
// custom file).
func LoadConfigFromDisk(custom string) (c Local, err error) {
	return mergeConfigFromFile(filepath.Join(custom, ConfigFilename), defaultLocal)
}

func mergeConfigFromFile(configpath string, source Local) (Local, error) {
	f, err := os.Open(configpath)
	if err != nil {
		return source, err
	}
	defer f.Close()

	err = loadConfig(f, &source)
	return source, err
}

func loadConfig(reader io.Reader, config *Local) error {
	dec := json.NewDecoder(reader)
	return dec.Decode(config)
}

// SaveToDisk writes the Local settings into a root/ConfigFilename file
func (cfg Local) SaveToDisk(root string) error {
	return cfg.SaveToFile(filepath.Join(root, ConfigFilename))
}

// SaveToFile saves the config to a specific filename
func (cfg Local) SaveToFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	return enc.Encode(cfg)
}
