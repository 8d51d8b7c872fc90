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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/protocol"
)

// Wire layout, big-endian, both shapes:
//
//	repeated until the buffer is exhausted:
//	  int32 count
//	  int64 timestamp
//	  count × record
//
// A request record is the 32 byte public key. A data record is the 64 byte
// signature followed by the 32 byte public key. An empty message is a single
// zero count. Groups are written in ascending timestamp order and records in
// ascending public key order; decoders must not depend on it.

// Shape selects the record layout.
type Shape int

const (
	// RequestShape records carry public keys only.
	RequestShape Shape = iota
	// DataShape records carry a signature and a public key.
	DataShape
)

const groupHeaderSize = protocol.IntLength + protocol.TimestampLength

func (s Shape) String() string {
	if s == DataShape {
		return "data"
	}
	return "request"
}

// recordSize returns the encoded size of one record.
func (s Shape) recordSize() int {
	if s == DataShape {
		return protocol.SignatureLength + protocol.PublicKeyLength
	}
	return protocol.PublicKeyLength
}

type group struct {
	timestamp int64
	entries   []Entry
}

// groupEntries sorts a copy of entries canonically and splits it by timestamp.
func groupEntries(entries []Entry) []group {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	SortEntries(sorted)

	// How many of each timestamp
	countByTimestamp := make(map[int64]int)
	for _, e := range sorted {
		countByTimestamp[e.Timestamp]++
	}

	groups := make([]group, 0, len(countByTimestamp))
	for i := 0; i < len(sorted); {
		n := countByTimestamp[sorted[i].Timestamp]
		groups = append(groups, group{timestamp: sorted[i].Timestamp, entries: sorted[i : i+n]})
		i += n
	}
	return groups
}

// EncodedSize returns the exact number of bytes the encoding of entries takes.
func EncodedSize(shape Shape, entries []Entry) int {
	if len(entries) == 0 {
		return protocol.IntLength
	}
	timestamps := make(map[int64]struct{})
	for _, e := range entries {
		timestamps[e.Timestamp] = struct{}{}
	}
	return len(timestamps)*groupHeaderSize + len(entries)*shape.recordSize()
}

// EncodeTo writes the encoding of entries to w. Errors from w are returned
// unchanged; a data entry without a signature is ErrMissingSignature.
func EncodeTo(w io.Writer, shape Shape, entries []Entry) error {
	if shape == DataShape {
		for _, e := range entries {
			if !e.Signed() {
				return fmt.Errorf("account %v at %d: %w", e.PublicKey, e.Timestamp, ErrMissingSignature)
			}
		}
	}

	// Shortcut in case we have no online accounts
	if len(entries) == 0 {
		return writeFull(w, make([]byte, protocol.IntLength))
	}

	record := make([]byte, shape.recordSize())
	var header [groupHeaderSize]byte
	for _, g := range groupEntries(entries) {
		binary.BigEndian.PutUint32(header[:protocol.IntLength], uint32(len(g.entries)))
		binary.BigEndian.PutUint64(header[protocol.IntLength:], uint64(g.timestamp))
		if err := writeFull(w, header[:]); err != nil {
			return err
		}
		for _, e := range g.entries {
			if shape == DataShape {
				copy(record, e.Signature[:])
				copy(record[protocol.SignatureLength:], e.PublicKey[:])
			} else {
				copy(record, e.PublicKey[:])
			}
			if err := writeFull(w, record); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFull(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return ErrShortWrite
	}
	return nil
}

// Encode returns the encoding of entries in a buffer of exactly EncodedSize bytes.
func Encode(shape Shape, entries []Entry) ([]byte, error) {
	size := EncodedSize(shape, entries)
	buf := bytes.NewBuffer(make([]byte, 0, size))
	if err := EncodeTo(buf, shape, entries); err != nil {
		return nil, err
	}
	if buf.Len() != size {
		return nil, fmt.Errorf("encoded %d bytes, expected %d", buf.Len(), size)
	}
	return buf.Bytes(), nil
}

// Decode parses a message body of the given shape. Request entries come back
// without signatures; data entries always carry one.
func Decode(shape Shape, data []byte) ([]Entry, error) {
	return DecodeLimited(shape, data, protocol.MaxOnlineAccountsPerMessage)
}

// DecodeLimited is Decode with a caller supplied bound on the total number of
// accounts; a non-positive limit falls back to the protocol maximum.
func DecodeLimited(shape Shape, data []byte, limit int) ([]Entry, error) {
	if limit <= 0 || limit > protocol.MaxOnlineAccountsPerMessage {
		limit = protocol.MaxOnlineAccountsPerMessage
	}
	if len(data) < protocol.IntLength {
		return nil, fmt.Errorf("%s message of %d bytes: %w", shape, len(data), ErrTruncated)
	}
	recordSize := shape.recordSize()
	off := 0
	readCount := func() int64 {
		c := int64(int32(binary.BigEndian.Uint32(data[off:])))
		off += protocol.IntLength
		return c
	}

	accountCount := readCount()
	entries := make([]Entry, 0, min(max(accountCount, 0), int64(limit)))
	total := int64(0)
	for accountCount != 0 {
		total += accountCount
		if accountCount < 0 || total > int64(limit) {
			return nil, fmt.Errorf("%s group count %d at offset %d: %w", shape, accountCount, off-protocol.IntLength, ErrImpossibleCount)
		}
		if len(data)-off < protocol.TimestampLength {
			return nil, fmt.Errorf("%s group timestamp at offset %d: %w", shape, off, ErrTruncated)
		}
		timestamp := int64(binary.BigEndian.Uint64(data[off:]))
		off += protocol.TimestampLength

		if int64(len(data)-off) < accountCount*int64(recordSize) {
			return nil, fmt.Errorf("%s group of %d accounts with %d bytes left: %w", shape, accountCount, len(data)-off, ErrTruncated)
		}
		for i := int64(0); i < accountCount; i++ {
			e := Entry{Timestamp: timestamp}
			if shape == DataShape {
				var sig crypto.Signature
				copy(sig[:], data[off:off+protocol.SignatureLength])
				e.Signature = &sig
				off += protocol.SignatureLength
			}
			copy(e.PublicKey[:], data[off:off+protocol.PublicKeyLength])
			off += protocol.PublicKeyLength
			entries = append(entries, e)
		}

		if off == len(data) {
			// we've finished
			return entries, nil
		}
		if len(data)-off < protocol.IntLength {
			return nil, fmt.Errorf("%s group count at offset %d: %w", shape, off, ErrTruncated)
		}
		accountCount = readCount()
	}

	// A zero count ends the message. Anything after it is rejected rather
	// than ignored, so that every accepted buffer has exactly one decoding.
	if off != len(data) {
		return nil, fmt.Errorf("%s message has %d bytes after offset %d: %w", shape, len(data)-off, off, ErrTrailingBytes)
	}
	return entries, nil
}

// EncodeRequest encodes entries as a request; signatures are not transmitted.
func EncodeRequest(entries []Entry) ([]byte, error) {
	return Encode(RequestShape, entries)
}

// EncodeData encodes signed entries.
func EncodeData(entries []Entry) ([]byte, error) {
	return Encode(DataShape, entries)
}

// DecodeRequest decodes a request body.
func DecodeRequest(data []byte) ([]Entry, error) {
	return Decode(RequestShape, data)
}

// DecodeData decodes a data body.
func DecodeData(data []byte) ([]Entry, error) {
	return Decode(DataShape, data)
}

// Message is an encoded online accounts message. It is built once and its
// bytes are shared, unmodified, by every send.
type Message struct {
	shape   Shape
	entries []Entry
	data    []byte
}

// MakeRequestMessage builds a request listing the given accounts.
func MakeRequestMessage(entries []Entry) (Message, error) {
	return makeMessage(RequestShape, entries)
}

// MakeDataMessage builds a data message carrying the given signed entries.
func MakeDataMessage(entries []Entry) (Message, error) {
	return makeMessage(DataShape, entries)
}

func makeMessage(shape Shape, entries []Entry) (Message, error) {
	own := make([]Entry, len(entries))
	for i, e := range entries {
		if shape == RequestShape {
			e = e.withoutSignature()
		}
		own[i] = copyEntry(e)
	}
	data, err := Encode(shape, own)
	if err != nil {
		return Message{}, err
	}
	SortEntries(own)
	return Message{shape: shape, entries: own, data: data}, nil
}

// Shape returns the message shape.
func (m Message) Shape() Shape {
	return m.shape
}

// Tag returns the network tag the message is sent under.
func (m Message) Tag() protocol.Tag {
	if m.shape == DataShape {
		return protocol.OnlineAccountsTag
	}
	return protocol.GetOnlineAccountsTag
}

// Bytes returns the encoded message. Callers must not modify it.
func (m Message) Bytes() []byte {
	return m.data
}

// Len returns the number of entries in the message.
func (m Message) Len() int {
	return len(m.entries)
}

// Entries returns a copy of the entries in canonical order.
func (m Message) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = copyEntry(e)
	}
	return out
}

// SplitEntries chunks entries, in canonical order, into slices of at most
// maxPerMessage entries. A non-positive limit means no splitting.
func SplitEntries(entries []Entry, maxPerMessage int) [][]Entry {
	if len(entries) == 0 {
		return nil
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	SortEntries(sorted)
	if maxPerMessage <= 0 || len(sorted) <= maxPerMessage {
		return [][]Entry{sorted}
	}
	chunks := make([][]Entry, 0, (len(sorted)+maxPerMessage-1)/maxPerMessage)
	for len(sorted) > 0 {
		n := min(maxPerMessage, len(sorted))
		chunks = append(chunks, sorted[:n:n])
		sorted = sorted[n:]
	}
	return chunks
}
