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

package onlineaccounts

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/logging"
	"github.com/algorand/go-onlineaccounts/util/timers"
)

// testNow sits ten minutes into a 30 minute bucket, away from both skew edges.
const (
	testBucket = int64(944445) * modV2
	testNow    = testBucket + 10*minute
)

func testKeys(n int) []*crypto.SignatureSecrets {
	keys := make([]*crypto.SignatureSecrets, n)
	for i := range keys {
		keys[i] = crypto.GenerateSignatureSecrets(crypto.Seed{byte(i), byte(i >> 8), 0x5a})
	}
	return keys
}

func publicKeys(keys []*crypto.SignatureSecrets) []crypto.PublicKey {
	out := make([]crypto.PublicKey, len(keys))
	for i, k := range keys {
		out[i] = k.PublicKey
	}
	return out
}

func signEntry(key *crypto.SignatureSecrets, timestamp int64) Entry {
	return MakeSignedEntry(timestamp, key.PublicKey, key.SignBytes(SigningMessage(timestamp)))
}

type fixture struct {
	clock    *timers.Frozen
	registry *Registry
	shares   *RewardShareSet
	verifier *Verifier
}

func makeFixture(t testing.TB, activation int64, keys []*crypto.SignatureSecrets) fixture {
	clock := timers.MakeFrozenClock(testNow)
	log := logging.TestingLog(t)
	registry := MakeRegistry(makeSelector(t, activation), clock, log)
	shares := MakeRewardShareSet(publicKeys(keys)...)
	return fixture{
		clock:    clock,
		registry: registry,
		shares:   shares,
		verifier: MakeVerifier(registry, shares, log),
	}
}

func counterValue(t testing.TB, c prometheus.Counter) float64 {
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t testing.TB, g prometheus.Gauge) float64 {
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}
