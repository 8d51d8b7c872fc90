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
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/logging"
	"github.com/algorand/go-onlineaccounts/util/timers"
)

// InsertResult describes what an accepted Insert did.
type InsertResult int

const (
	// Inserted means the key was new to the bucket.
	Inserted InsertResult = iota
	// Replaced means a signature-less placeholder was upgraded to a signed entry.
	Replaced
	// Duplicate means the bucket already held an equivalent or better entry.
	Duplicate
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return Outcome.Inserted
	case Replaced:
		return Outcome.Replaced
	case Duplicate:
		return Outcome.Duplicate
	}
	return fmt.Sprintf("InsertResult(%d)", int(r))
}

type bucket struct {
	mu        deadlock.RWMutex
	timestamp int64
	entries   map[crypto.PublicKey]Entry
	// evicted is set once the bucket has been removed from the registry map.
	evicted bool
}

// Registry holds the rolling window of online account entries, keyed by
// bucket timestamp and then by public key.
type Registry struct {
	selector WindowSelector
	clock    timers.WallClock
	log      logging.Logger

	mu      deadlock.RWMutex
	buckets map[int64]*bucket

	// pruneFloor is the oldest bucket that may still exist. Within one
	// modulus regime it never decreases; pruneV2 records the regime it was
	// computed in. Both are only written with mu held.
	pruneFloor atomic.Int64
	pruneV2    atomic.Bool
}

// MakeRegistry creates an empty registry. All window decisions are made
// against clock.
func MakeRegistry(selector WindowSelector, clock timers.WallClock, log logging.Logger) *Registry {
	if log == nil {
		log = logging.Base()
	}
	r := &Registry{
		selector: selector,
		clock:    clock,
		log:      log,
		buckets:  make(map[int64]*bucket),
	}
	r.pruneFloor.Store(math.MinInt64)
	return r
}

// Selector returns the window selector the registry checks entries against.
func (r *Registry) Selector() WindowSelector {
	return r.selector
}

// Now returns the registry clock reading.
func (r *Registry) Now() int64 {
	return r.clock.NowMillis()
}

// Insert adds e to its bucket. Entries for buckets outside the acceptable
// window, or below the prune floor, are rejected with an error wrapping
// ErrStaleBucket; keys that are not valid curve points are rejected with
// ErrMalformedPublicKey.
func (r *Registry) Insert(e Entry) (InsertResult, error) {
	if !e.PublicKey.IsValid() {
		return Duplicate, fmt.Errorf("account %v: %w", e.PublicKey, ErrMalformedPublicKey)
	}
	now := r.clock.NowMillis()
	r.Prune(now)

	if err := r.selector.Check(e.Timestamp, now); err != nil {
		return Duplicate, err
	}

	for {
		b, err := r.getOrCreate(e.Timestamp)
		if err != nil {
			return Duplicate, err
		}
		b.mu.Lock()
		if b.evicted {
			// pruned between lookup and lock; the next lookup sees the new floor
			b.mu.Unlock()
			continue
		}
		res := b.put(e)
		b.mu.Unlock()
		return res, nil
	}
}

// put must be called with b.mu held.
func (b *bucket) put(e Entry) InsertResult {
	existing, ok := b.entries[e.PublicKey]
	switch {
	case !ok:
		b.entries[e.PublicKey] = copyEntry(e)
		return Inserted
	case !existing.Signed() && e.Signed():
		b.entries[e.PublicKey] = copyEntry(e)
		return Replaced
	}
	return Duplicate
}

func (r *Registry) getOrCreate(timestamp int64) (*bucket, error) {
	r.mu.RLock()
	b, ok := r.buckets[timestamp]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if floor := r.pruneFloor.Load(); timestamp < floor {
		return nil, fmt.Errorf("bucket %d below prune floor %d: %w", timestamp, floor, ErrExpiredBucket)
	}
	if b, ok = r.buckets[timestamp]; ok {
		return b, nil
	}
	b = &bucket{timestamp: timestamp, entries: make(map[crypto.PublicKey]Entry)}
	r.buckets[timestamp] = b
	bucketsGauge.Set(float64(len(r.buckets)))
	return b, nil
}

func (r *Registry) lookup(timestamp int64) *bucket {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buckets[timestamp]
}

// Designate creates an empty bucket for a timestamp the selector has marked
// live, so that it can be listed and filled before the first entry arrives.
func (r *Registry) Designate(timestamp int64) error {
	now := r.clock.NowMillis()
	r.Prune(now)
	if err := r.selector.Check(timestamp, now); err != nil {
		return err
	}
	_, err := r.getOrCreate(timestamp)
	return err
}

// Prune evicts every bucket older than the retention floor at now and
// returns how many were evicted. Crossing the modulus activation resets the
// floor to the one computed under the new modulus, which may be lower.
func (r *Registry) Prune(now int64) int {
	floor := r.selector.RetentionFloor(now)
	v2 := r.selector.V2(now)
	if v2 == r.pruneV2.Load() && floor <= r.pruneFloor.Load() {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v2 != r.pruneV2.Load() || floor > r.pruneFloor.Load() {
		r.pruneFloor.Store(floor)
		r.pruneV2.Store(v2)
	}
	current := r.pruneFloor.Load()
	evicted := 0
	for ts, b := range r.buckets {
		if ts >= current {
			continue
		}
		delete(r.buckets, ts)
		b.mu.Lock()
		b.evicted = true
		b.mu.Unlock()
		evicted++
	}
	if evicted > 0 {
		prunedBuckets.Add(float64(evicted))
		bucketsGauge.Set(float64(len(r.buckets)))
		r.log.Debugf("pruned %d online accounts buckets below %d", evicted, current)
	}
	return evicted
}

// snapshot copies the entries of b accepted by keep.
func (b *bucket) snapshot(keep func(Entry) bool) []Entry {
	b.mu.RLock()
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		if keep == nil || keep(e) {
			out = append(out, copyEntry(e))
		}
	}
	b.mu.RUnlock()
	SortEntries(out)
	return out
}

// EntriesFor returns a consistent copy of the entries of a bucket, in
// canonical order. An unknown bucket yields an empty slice.
func (r *Registry) EntriesFor(timestamp int64) []Entry {
	b := r.lookup(timestamp)
	if b == nil {
		return []Entry{}
	}
	return b.snapshot(nil)
}

// SignedEntriesFor is EntriesFor restricted to signed entries.
func (r *Registry) SignedEntriesFor(timestamp int64) []Entry {
	b := r.lookup(timestamp)
	if b == nil {
		return []Entry{}
	}
	return b.snapshot(Entry.Signed)
}

// HasSigned reports whether the registry holds a signed entry for pk in the bucket.
func (r *Registry) HasSigned(timestamp int64, pk crypto.PublicKey) bool {
	b := r.lookup(timestamp)
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[pk]
	return ok && e.Signed()
}

// MissingSignatures returns, in ascending order, the keys held in the bucket
// as signature-less placeholders or listed in known, for which no signed
// entry is held.
func (r *Registry) MissingSignatures(timestamp int64, known []crypto.PublicKey) []crypto.PublicKey {
	missing := make(map[crypto.PublicKey]struct{})
	for _, pk := range known {
		missing[pk] = struct{}{}
	}
	if b := r.lookup(timestamp); b != nil {
		b.mu.RLock()
		for pk, e := range b.entries {
			if e.Signed() {
				delete(missing, pk)
			} else {
				missing[pk] = struct{}{}
			}
		}
		b.mu.RUnlock()
	}
	out := make([]crypto.PublicKey, 0, len(missing))
	for pk := range missing {
		out = append(out, pk)
	}
	sortKeys(out)
	return out
}

// Buckets returns the held bucket timestamps in ascending order.
func (r *Registry) Buckets() []int64 {
	r.mu.RLock()
	out := make([]int64, 0, len(r.buckets))
	for ts := range r.buckets {
		out = append(out, ts)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) bucketList() []*bucket {
	r.mu.RLock()
	out := make([]*bucket, 0, len(r.buckets))
	for _, b := range r.buckets {
		out = append(out, b)
	}
	r.mu.RUnlock()
	return out
}

// Snapshot copies every held bucket.
func (r *Registry) Snapshot() map[int64][]Entry {
	out := make(map[int64][]Entry)
	for _, b := range r.bucketList() {
		out[b.timestamp] = b.snapshot(nil)
	}
	return out
}

// Len returns the number of entries held across all buckets.
func (r *Registry) Len() int {
	n := 0
	for _, b := range r.bucketList() {
		b.mu.RLock()
		n += len(b.entries)
		b.mu.RUnlock()
	}
	return n
}

// Inventory lists, as request entries in canonical order, every account for
// which a signed entry is held.
func (r *Registry) Inventory() []Entry {
	var out []Entry
	for _, b := range r.bucketList() {
		b.mu.RLock()
		for _, e := range b.entries {
			if e.Signed() {
				out = append(out, e.withoutSignature())
			}
		}
		b.mu.RUnlock()
	}
	SortEntries(out)
	return out
}

// SignedEntriesExcept returns every held signed entry that is not listed in
// have, in canonical order.
func (r *Registry) SignedEntriesExcept(have []Entry) []Entry {
	type key struct {
		timestamp int64
		pk        crypto.PublicKey
	}
	skip := make(map[key]struct{}, len(have))
	for _, e := range have {
		skip[key{e.Timestamp, e.PublicKey}] = struct{}{}
	}
	var out []Entry
	for _, b := range r.bucketList() {
		out = append(out, b.snapshot(func(e Entry) bool {
			if !e.Signed() {
				return false
			}
			_, ok := skip[key{e.Timestamp, e.PublicKey}]
			return !ok
		})...)
	}
	SortEntries(out)
	return out
}
