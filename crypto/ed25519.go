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

// Package crypto provides the ed25519 signing capability used for liveness
// declarations. Verification follows the strict rules of ed25519consensus and
// additionally rejects non-canonical encodings and small-order public keys.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// Seed holds the entropy needed to generate cryptographic keys.
type Seed [32]byte

// PublicKey is an ed25519 public key.
type PublicKey [32]byte

// PrivateKey is an ed25519 private key (seed followed by public key).
type PrivateKey [64]byte

// Signature is an ed25519 signature.
type Signature [64]byte

// SignatureSecrets are used by an entity to produce unforgeable signatures over
// a message.
type SignatureSecrets struct {
	PublicKey
	SK PrivateKey
}

// ErrInvalidKeyLength is returned when a serialized key has the wrong size.
var ErrInvalidKeyLength = errors.New("invalid key length")

// RandBytes fills the provided structure with a set of random bytes
func RandBytes(buf []byte) {
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
}

// GenerateSignatureSecrets creates SignatureSecrets from a source of entropy.
func GenerateSignatureSecrets(seed Seed) *SignatureSecrets {
	sk := ed25519.NewKeyFromSeed(seed[:])
	s := &SignatureSecrets{}
	copy(s.SK[:], sk)
	copy(s.PublicKey[:], sk[ed25519.SeedSize:])
	return s
}

// GenerateRandomSignatureSecrets creates SignatureSecrets from a freshly drawn seed.
func GenerateRandomSignatureSecrets() *SignatureSecrets {
	var seed Seed
	RandBytes(seed[:])
	return GenerateSignatureSecrets(seed)
}

// SignBytes signs a message directly, without first hashing.
// Caller is responsible for domain separation.
func (s *SignatureSecrets) SignBytes(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(ed25519.PrivateKey(s.SK[:]), message))
	return sig
}

// VerifyBytes verifies a signature, where the message is not hashed first.
func (v PublicKey) VerifyBytes(message []byte, sig Signature) bool {
	return ed25519ConsensusVerifySingle(v, message, sig)
}

// IsValid reports whether the key is a canonical encoding of a point that is
// not of small order.
func (v PublicKey) IsValid() bool {
	return isCanonicalPoint(v) && !hasSmallOrder(v)
}

// IsZero reports whether v is the all-zero key.
func (v PublicKey) IsZero() bool {
	return v == PublicKey{}
}

func (v PublicKey) String() string {
	return hex.EncodeToString(v[:])
}

// Less orders public keys bytewise.
func (v PublicKey) Less(other PublicKey) bool {
	for i := range v {
		if v[i] != other[i] {
			return v[i] < other[i]
		}
	}
	return false
}

// PublicKeyFromHex parses a hex encoded public key.
func PublicKeyFromHex(s string) (pk PublicKey, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return pk, err
	}
	if len(b) != len(pk) {
		return pk, fmt.Errorf("public key %q: %w", s, ErrInvalidKeyLength)
	}
	copy(pk[:], b)
	return pk, nil
}

// SeedFromHex parses a hex encoded seed.
func SeedFromHex(s string) (seed Seed, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return seed, err
	}
	if len(b) != len(seed) {
		return seed, fmt.Errorf("seed: %w", ErrInvalidKeyLength)
	}
	copy(seed[:], b)
	return seed, nil
}

func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}
