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
	"errors"
	"fmt"

	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/protocol"
)

// ErrBlockSignatures is returned for a block online accounts set that does not verify.
var ErrBlockSignatures = errors.New("invalid block online accounts signatures")

// BlockOnlineAccounts is the online accounts set carried by a minted block:
// the bucket the block timestamp falls in, the participating keys in
// ascending order, and their signatures concatenated in the same order.
type BlockOnlineAccounts struct {
	Timestamp  int64
	PublicKeys []crypto.PublicKey
	Signatures []byte
}

// Len returns the number of participating accounts.
func (b BlockOnlineAccounts) Len() int {
	return len(b.PublicKeys)
}

// Signature returns the i-th signature.
func (b BlockOnlineAccounts) Signature(i int) crypto.Signature {
	var sig crypto.Signature
	copy(sig[:], b.Signatures[i*protocol.SignatureLength:])
	return sig
}

// BlockSignatures builds the online accounts set for a block minted at
// blockTimestamp from the signed entries of its bucket.
func BlockSignatures(registry *Registry, blockTimestamp int64) BlockOnlineAccounts {
	bucket := registry.Selector().BucketFor(blockTimestamp)
	entries := registry.SignedEntriesFor(bucket)
	out := BlockOnlineAccounts{
		Timestamp:  bucket,
		PublicKeys: make([]crypto.PublicKey, 0, len(entries)),
		Signatures: make([]byte, 0, len(entries)*protocol.SignatureLength),
	}
	for _, e := range entries {
		out.PublicKeys = append(out.PublicKeys, e.PublicKey)
		out.Signatures = append(out.Signatures, e.Signature[:]...)
	}
	return out
}

// VerifyBlockSignatures checks a block online accounts set against the block
// timestamp: the bucket must be the block's, keys must be ascending reward
// shares, and every signature must verify.
func VerifyBlockSignatures(selector WindowSelector, blockTimestamp int64, b BlockOnlineAccounts, shares RewardShares) error {
	if want := selector.BucketFor(blockTimestamp); b.Timestamp != want {
		return fmt.Errorf("%w: bucket %d, block at %d belongs to %d", ErrBlockSignatures, b.Timestamp, blockTimestamp, want)
	}
	if len(b.Signatures) != len(b.PublicKeys)*protocol.SignatureLength {
		return fmt.Errorf("%w: %d signature bytes for %d accounts", ErrBlockSignatures, len(b.Signatures), len(b.PublicKeys))
	}

	message := SigningMessage(b.Timestamp)
	bv := crypto.MakeBatchVerifierWithHint(len(b.PublicKeys))
	for i, pk := range b.PublicKeys {
		if i > 0 && !b.PublicKeys[i-1].Less(pk) {
			return fmt.Errorf("%w: account %v out of order", ErrBlockSignatures, pk)
		}
		if !shares.IsRewardShare(pk) {
			return fmt.Errorf("%w: account %v: %w", ErrBlockSignatures, pk, ErrUnknownAccount)
		}
		bv.EnqueueSignature(pk, message, b.Signature(i))
	}
	failed, err := bv.VerifyWithFeedback()
	if err != nil {
		for i, bad := range failed {
			if bad {
				return fmt.Errorf("%w: account %v: %w", ErrBlockSignatures, b.PublicKeys[i], ErrInvalidSignature)
			}
		}
		return fmt.Errorf("%w: %w", ErrBlockSignatures, err)
	}
	return nil
}
