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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ConsensusFilename is the name of the chain parameters file in a data directory.
const ConsensusFilename = "consensus.json"

// ErrMissingActivation is returned when the chain parameters do not name the
// activation timestamp of the coarse online accounts modulus.
var ErrMissingActivation = errors.New("onlineAccountsModulusV2Timestamp is not set")

// ConsensusParams holds the chain-wide parameters that control online accounts
// bucketing. Every node on a network must agree on all of them. All times are
// Unix milliseconds; all durations are milliseconds.
type ConsensusParams struct {
	// OnlineAccountsModulusV1 is the bucket width before activation.
	OnlineAccountsModulusV1 int64 `json:"onlineAccountsModulusV1"`

	// OnlineAccountsModulusV2 is the bucket width from activation onwards.
	OnlineAccountsModulusV2 int64 `json:"onlineAccountsModulusV2"`

	// OnlineAccountsModulusV2Timestamp is the activation time of V2. It has no
	// default; a missing value is a fatal configuration error.
	OnlineAccountsModulusV2Timestamp *int64 `json:"onlineAccountsModulusV2Timestamp"`

	// OnlineAccountsSkewTolerance is how close to a V2 bucket boundary the
	// neighbouring bucket stays acceptable.
	OnlineAccountsSkewTolerance int64 `json:"onlineAccountsSkewTolerance"`

	// OnlineAccountsRetentionBuckets is how many buckets behind the current one
	// are retained.
	OnlineAccountsRetentionBuckets int `json:"onlineAccountsRetentionBuckets"`
}

// defaultConsensus carries every parameter except the activation timestamp.
var defaultConsensus = ConsensusParams{
	OnlineAccountsModulusV1:        (5 * time.Minute).Milliseconds(),
	OnlineAccountsModulusV2:        (30 * time.Minute).Milliseconds(),
	OnlineAccountsSkewTolerance:    (2 * time.Minute).Milliseconds(),
	OnlineAccountsRetentionBuckets: 3,
}

// MainnetModulusV2Timestamp is the mainnet activation time of the coarse modulus.
const MainnetModulusV2Timestamp int64 = 1659801600000

// MakeConsensusParams returns the default parameters activated at activation.
func MakeConsensusParams(activation int64) ConsensusParams {
	p := defaultConsensus
	p.OnlineAccountsModulusV2Timestamp = &activation
	return p
}

// Activation returns the V2 activation timestamp. It must only be called on
// validated parameters.
func (p ConsensusParams) Activation() int64 {
	if p.OnlineAccountsModulusV2Timestamp == nil {
		panic(ErrMissingActivation)
	}
	return *p.OnlineAccountsModulusV2Timestamp
}

// Validate checks that the parameters are usable.
func (p ConsensusParams) Validate() error {
	if p.OnlineAccountsModulusV2Timestamp == nil {
		return ErrMissingActivation
	}
	if p.OnlineAccountsModulusV1 <= 0 || p.OnlineAccountsModulusV2 <= 0 {
		return fmt.Errorf("online accounts modulus must be positive (v1 %d, v2 %d)", p.OnlineAccountsModulusV1, p.OnlineAccountsModulusV2)
	}
	if p.OnlineAccountsModulusV2%p.OnlineAccountsModulusV1 != 0 {
		return fmt.Errorf("online accounts modulus v2 %d must be a multiple of v1 %d", p.OnlineAccountsModulusV2, p.OnlineAccountsModulusV1)
	}
	if p.OnlineAccountsSkewTolerance < 0 || 2*p.OnlineAccountsSkewTolerance >= p.OnlineAccountsModulusV2 {
		return fmt.Errorf("online accounts skew tolerance %d must be in [0, %d)", p.OnlineAccountsSkewTolerance, p.OnlineAccountsModulusV2/2)
	}
	if p.OnlineAccountsRetentionBuckets < 1 {
		return fmt.Errorf("online accounts retention must cover at least one bucket, have %d", p.OnlineAccountsRetentionBuckets)
	}
	return nil
}

// LoadConsensusParams reads consensus.json from dataDirectory on top of the
// defaults and validates the result.
func LoadConsensusParams(dataDirectory string) (ConsensusParams, error) {
	return LoadConsensusParamsFromFile(filepath.Join(dataDirectory, ConsensusFilename))
}

// LoadConsensusParamsFromFile is LoadConsensusParams for an explicit file.
func LoadConsensusParamsFromFile(filename string) (ConsensusParams, error) {
	p := defaultConsensus
	f, err := os.Open(filename)
	if err != nil {
		return ConsensusParams{}, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return ConsensusParams{}, fmt.Errorf("unable to parse %s: %w", filename, err)
	}
	if err := p.Validate(); err != nil {
		return ConsensusParams{}, fmt.Errorf("%s: %w", filename, err)
	}
	return p, nil
}
