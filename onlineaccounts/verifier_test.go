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

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/test/partitiontest"
)

func TestVerifyAndMerge(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := require.New(t)

	keys := testKeys(2)
	f := makeFixture(t, 0, keys[:1])
	v := f.verifier

	good := signEntry(keys[0], testBucket)
	a.NoError(v.VerifyAndMerge(good))
	a.NoError(v.VerifyAndMerge(good)) // duplicate is accepted
	a.True(f.registry.HasSigned(testBucket, keys[0].PublicKey))

	a.ErrorIs(v.VerifyAndMerge(signEntry(keys[1], testBucket)), ErrUnknownAccount)

	forged := signEntry(keys[0], testBucket-modV2)
	forged.Timestamp = testBucket - 2*modV2
	a.ErrorIs(v.VerifyAndMerge(forged), ErrInvalidSignature)
	a.ErrorIs(v.VerifyAndMerge(MakeRequestEntry(testBucket, keys[0].PublicKey)), ErrMissingSignature)

	a.ErrorIs(v.VerifyAndMerge(signEntry(keys[0], testBucket+modV2)), ErrStaleBucket)
	a.ErrorIs(v.VerifyAndMerge(signEntry(keys[0], testBucket-5*modV2)), ErrStaleBucket)

	a.Equal(1, f.registry.Len())
}

func TestVerifyAndMergeOutcomeMetrics(t *testing.T) {
	partitiontest.PartitionTest(t)

	keys := testKeys(1)
	f := makeFixture(t, 0, keys)
	inserted := entriesTotal.WithLabelValues(Outcome.Inserted)
	stale := entriesTotal.WithLabelValues(Outcome.Stale)
	insertedBefore, staleBefore := counterValue(t, inserted), counterValue(t, stale)

	require.NoError(t, f.verifier.VerifyAndMerge(signEntry(keys[0], testBucket)))
	require.Error(t, f.verifier.VerifyAndMerge(signEntry(keys[0], testBucket+modV2)))

	require.Equal(t, 1.0, counterValue(t, inserted)-insertedBefore)
	require.Equal(t, 1.0, counterValue(t, stale)-staleBefore)
}

func TestVerifyAndMergeAll(t *testing.T) {
	partitiontest.PartitionTest(t)

	keys := testKeys(600)
	f := makeFixture(t, 0, keys[:550])

	var entries []Entry
	for _, k := range keys {
		entries = append(entries, signEntry(k, testBucket))
	}
	// one forged signature in each of the first two batches
	entries[3].Signature[0] ^= 1
	entries[300].Signature[5] ^= 1
	entries = append(entries, entries[10], MakeRequestEntry(testBucket, keys[1].PublicKey))

	report := f.verifier.VerifyAndMergeAll(entries)
	require.Len(t, report.Results, len(entries))
	for i, res := range report.Results {
		switch {
		case i == 3 || i == 300:
			require.ErrorIs(t, res.Err, ErrInvalidSignature, "entry %d", i)
		case i >= 550 && i < 600:
			require.ErrorIs(t, res.Err, ErrUnknownAccount, "entry %d", i)
		case i == 600:
			require.NoError(t, res.Err)
			require.Equal(t, Duplicate, res.Result)
		case i == 601:
			require.ErrorIs(t, res.Err, ErrMissingSignature)
		default:
			require.NoError(t, res.Err, "entry %d", i)
			require.Equal(t, Inserted, res.Result)
		}
	}
	require.Equal(t, 549, report.Accepted())
	require.Equal(t, 53, report.Rejected())
	require.Len(t, report.Fresh(), 548)
	require.Equal(t, 548, f.registry.Len())
}

func TestVerifyAndMergeAllEmpty(t *testing.T) {
	partitiontest.PartitionTest(t)

	f := makeFixture(t, 0, nil)
	report := f.verifier.VerifyAndMergeAll(nil)
	require.Empty(t, report.Results)
	require.Empty(t, report.Fresh())
}

func TestRewardShareSet(t *testing.T) {
	partitiontest.PartitionTest(t)

	keys := publicKeys(testKeys(3))
	s := MakeRewardShareSet(keys[2], keys[0])
	require.True(t, s.IsRewardShare(keys[0]))
	require.False(t, s.IsRewardShare(keys[1]))
	s.Add(keys[1])
	s.Remove(keys[0])
	require.False(t, s.IsRewardShare(keys[0]))

	want := []crypto.PublicKey{keys[1], keys[2]}
	sortKeys(want)
	require.Equal(t, want, s.Keys())
}
