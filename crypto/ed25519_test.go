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

package crypto

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-onlineaccounts/test/partitiontest"
)

func timestampMessage(ts int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ts))
	return b[:]
}

func TestSignVerify(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := require.New(t)

	var seed Seed
	RandBytes(seed[:])
	s := GenerateSignatureSecrets(seed)
	a.True(s.PublicKey.IsValid())

	msg := timestampMessage(1_800_000)
	sig := s.SignBytes(msg)
	a.True(s.PublicKey.VerifyBytes(msg, sig))
	a.False(s.PublicKey.VerifyBytes(timestampMessage(1_800_001), sig))

	sig[5]++
	a.False(s.PublicKey.VerifyBytes(msg, sig))

	// same seed, same key
	a.Equal(s.PublicKey, GenerateSignatureSecrets(seed).PublicKey)
}

// ensure internal ed25519 types match the expected []byte lengths used by ed25519consensus package
func TestKeyTypeSizes(t *testing.T) {
	partitiontest.PartitionTest(t)

	require.Len(t, PublicKey{}, ed25519.PublicKeySize)
	require.Len(t, Signature{}, ed25519.SignatureSize)
	require.Len(t, PrivateKey{}, ed25519.PrivateKeySize)
	require.Len(t, Seed{}, ed25519.SeedSize)
}

func TestSmallOrderKeysRejected(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := require.New(t)

	for _, p := range smallOrderPoints {
		a.False(PublicKey(p).IsValid())
	}
	a.False(PublicKey{}.IsValid())
	a.True(PublicKey{}.IsZero())

	s := GenerateRandomSignatureSecrets()
	msg := timestampMessage(42)
	sig := s.SignBytes(msg)
	a.False(PublicKey(smallOrderPoints[2]).VerifyBytes(msg, sig))
}

func TestBatchVerifier(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := require.New(t)

	const n = 40
	bv := MakeBatchVerifierWithHint(n)
	a.NoError(bv.Verify())
	for i := 0; i < n; i++ {
		s := GenerateRandomSignatureSecrets()
		msg := timestampMessage(int64(i) * 300000)
		bv.EnqueueSignature(s.PublicKey, msg, s.SignBytes(msg))
	}
	a.Equal(n, bv.GetNumberOfEnqueuedSignatures())
	a.NoError(bv.Verify())
	failed, err := bv.VerifyWithFeedback()
	a.NoError(err)
	a.Nil(failed)
}

func TestBatchVerifierFeedback(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := require.New(t)

	bv := MakeBatchVerifier()
	var bad []int
	for i := 0; i < 20; i++ {
		s := GenerateRandomSignatureSecrets()
		msg := timestampMessage(int64(i))
		sig := s.SignBytes(msg)
		if i%7 == 3 {
			sig[40] ^= 0xff
			bad = append(bad, i)
		}
		bv.EnqueueSignature(s.PublicKey, msg, sig)
	}
	// a small order key fails the pre-checks
	s := GenerateRandomSignatureSecrets()
	bv.EnqueueSignature(PublicKey(smallOrderPoints[0]), timestampMessage(1), s.SignBytes(timestampMessage(1)))
	bad = append(bad, 20)

	a.ErrorIs(bv.Verify(), ErrBatchHasFailedSigs)
	failed, err := bv.VerifyWithFeedback()
	a.ErrorIs(err, ErrBatchHasFailedSigs)
	a.Len(failed, 21)
	for i, f := range failed {
		a.Equal(contains(bad, i), f, "entry %d", i)
	}
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func TestPublicKeyHex(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := require.New(t)

	s := GenerateRandomSignatureSecrets()
	pk, err := PublicKeyFromHex(s.PublicKey.String())
	a.NoError(err)
	a.Equal(s.PublicKey, pk)

	_, err = PublicKeyFromHex("abcd")
	a.ErrorIs(err, ErrInvalidKeyLength)

	_, err = PublicKeyFromHex("zz")
	a.Error(err)

	seed, err := SeedFromHex("0000000000000000000000000000000000000000000000000000000000000001")
	a.NoError(err)
	a.Equal(byte(1), seed[31])

	a.True(PublicKey{0, 1}.Less(PublicKey{0, 2}))
	a.False(PublicKey{1}.Less(PublicKey{1}))
}
