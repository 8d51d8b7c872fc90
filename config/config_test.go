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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-onlineaccounts/test/partitiontest"
)

func TestSaveThenLoad(t *testing.T) {
	partitiontest.PartitionTest(t)

	dir := t.TempDir()
	c1 := GetDefaultLocal()
	c1.IncomingMessageWorkers = 9
	c1.EndpointAddress = ":0"
	require.NoError(t, c1.SaveToDisk(dir))

	c2, err := LoadConfigFromDisk(dir)
	require.NoError(t, err)
	require.Equal(t, c1, c2)
}

func TestLoadMissing(t *testing.T) {
	partitiontest.PartitionTest(t)

	c, err := LoadConfigFromDisk(filepath.Join(t.TempDir(), "nothere"))
	require.True(t, os.IsNotExist(err))
	require.Equal(t, GetDefaultLocal(), c)
}

func TestMergeConfig(t *testing.T) {
	partitiontest.PartitionTest(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(`{"SelfSignIntervalSeconds": 5}`), 0600))

	c, err := LoadConfigFromDisk(dir)
	require.NoError(t, err)
	require.Equal(t, 5, c.SelfSignIntervalSeconds)
	require.Equal(t, defaultLocal.RequestIntervalSeconds, c.RequestIntervalSeconds)
	require.Equal(t, defaultLocal.MaxAccountsPerMessage, c.MaxAccountsPerMessage)
}

func TestConsensusParamsDefaults(t *testing.T) {
	partitiontest.PartitionTest(t)

	p := MakeConsensusParams(MainnetModulusV2Timestamp)
	require.NoError(t, p.Validate())
	require.Equal(t, MainnetModulusV2Timestamp, p.Activation())
	require.Equal(t, int64(300000), p.OnlineAccountsModulusV1)
	require.Equal(t, int64(1800000), p.OnlineAccountsModulusV2)
}

func TestConsensusParamsMissingActivation(t *testing.T) {
	partitiontest.PartitionTest(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConsensusFilename), []byte(`{"onlineAccountsModulusV1": 300000}`), 0600))

	_, err := LoadConsensusParams(dir)
	require.ErrorIs(t, err, ErrMissingActivation)

	require.ErrorIs(t, defaultConsensus.Validate(), ErrMissingActivation)
	require.Panics(t, func() { defaultConsensus.Activation() })
}

func TestConsensusParamsLoad(t *testing.T) {
	partitiontest.PartitionTest(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConsensusFilename), []byte(`{"onlineAccountsModulusV2Timestamp": 0, "onlineAccountsRetentionBuckets": 4}`), 0600))

	p, err := LoadConsensusParams(dir)
	require.NoError(t, err)
	require.Equal(t, int64(0), p.Activation())
	require.Equal(t, 4, p.OnlineAccountsRetentionBuckets)
	require.Equal(t, defaultConsensus.OnlineAccountsModulusV2, p.OnlineAccountsModulusV2)
}

func TestConsensusParamsValidate(t *testing.T) {
	partitiontest.PartitionTest(t)

	p := MakeConsensusParams(0)
	p.OnlineAccountsModulusV1 = 0
	require.Error(t, p.Validate())

	p = MakeConsensusParams(0)
	p.OnlineAccountsSkewTolerance = p.OnlineAccountsModulusV2
	require.Error(t, p.Validate())

	p = MakeConsensusParams(0)
	p.OnlineAccountsRetentionBuckets = 0
	require.Error(t, p.Validate())

	p = MakeConsensusParams(0)
	p.OnlineAccountsModulusV1 = (7 * time.Minute).Milliseconds()
	require.ErrorContains(t, p.Validate(), "multiple")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConsensusFilename), []byte(`{"onlineAccountsModulusV2Timestamp": 0, "bogus": 1}`), 0600))
	_, err := LoadConsensusParams(dir)
	require.Error(t, err)
}
