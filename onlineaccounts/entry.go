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

// Package onlineaccounts tracks liveness declarations of reward-share
// accounts. Declarations are grouped into time buckets chosen by a
// WindowSelector, exchanged with peers through the request/data codec,
// verified and merged into a Registry, and read back by the minting path to
// build the online accounts signature set of a block.
package onlineaccounts

import (
	"encoding/binary"
	"sort"

	"github.com/algorand/go-onlineaccounts/crypto"
)

// Entry is a single liveness declaration, or a request for one when
// Signature is nil.
type Entry struct {
	Timestamp int64
	PublicKey crypto.PublicKey
	Signature *crypto.Signature
}

// MakeRequestEntry returns a signature-less entry.
func MakeRequestEntry(timestamp int64, pk crypto.PublicKey) Entry {
	return Entry{Timestamp: timestamp, PublicKey: pk}
}

// MakeSignedEntry returns an entry asserting liveness at timestamp.
func MakeSignedEntry(timestamp int64, pk crypto.PublicKey, sig crypto.Signature) Entry {
	return Entry{Timestamp: timestamp, PublicKey: pk, Signature: &sig}
}

// Signed reports whether the entry carries a signature.
func (e Entry) Signed() bool {
	return e.Signature != nil
}

// Equal compares entries by value, including the signature bytes.
func (e Entry) Equal(other Entry) bool {
	if e.Timestamp != other.Timestamp || e.PublicKey != other.PublicKey {
		return false
	}
	if e.Signature == nil || other.Signature == nil {
		return e.Signature == nil && other.Signature == nil
	}
	return *e.Signature == *other.Signature
}

// withoutSignature returns the request form of e.
func (e Entry) withoutSignature() Entry {
	return Entry{Timestamp: e.Timestamp, PublicKey: e.PublicKey}
}

// copyEntry detaches the signature from any shared storage.
func copyEntry(e Entry) Entry {
	if e.Signature != nil {
		sig := *e.Signature
		e.Signature = &sig
	}
	return e
}

// entryLess is the canonical order: ascending timestamp, then ascending public key.
func entryLess(a, b Entry) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.PublicKey.Less(b.PublicKey)
}

// SortEntries puts entries in canonical order in place.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entryLess(entries[i], entries[j])
	})
}

// SigningMessage is the byte string signed by a liveness declaration: the
// bucket timestamp as a big-endian 64-bit integer.
func SigningMessage(timestamp int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(timestamp))
	return b[:]
}

func sortKeys(keys []crypto.PublicKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})
}
