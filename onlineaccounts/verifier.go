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
	"runtime"

	"github.com/algorand/go-deadlock"
	"golang.org/x/sync/errgroup"

	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/logging"
)

// RewardShares answers whether a public key belongs to a registered
// reward-share account. It is provided by the account layer.
type RewardShares interface {
	IsRewardShare(pk crypto.PublicKey) bool
}

// RewardShareSet is an in-memory RewardShares.
type RewardShareSet struct {
	mu   deadlock.RWMutex
	keys map[crypto.PublicKey]struct{}
}

// MakeRewardShareSet returns a set holding keys.
func MakeRewardShareSet(keys ...crypto.PublicKey) *RewardShareSet {
	s := &RewardShareSet{keys: make(map[crypto.PublicKey]struct{}, len(keys))}
	for _, pk := range keys {
		s.keys[pk] = struct{}{}
	}
	return s
}

// Add registers pk.
func (s *RewardShareSet) Add(pk crypto.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[pk] = struct{}{}
}

// Remove unregisters pk.
func (s *RewardShareSet) Remove(pk crypto.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, pk)
}

// IsRewardShare implements RewardShares.
func (s *RewardShareSet) IsRewardShare(pk crypto.PublicKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[pk]
	return ok
}

// Keys returns the registered keys in ascending order.
func (s *RewardShareSet) Keys() []crypto.PublicKey {
	s.mu.RLock()
	out := make([]crypto.PublicKey, 0, len(s.keys))
	for pk := range s.keys {
		out = append(out, pk)
	}
	s.mu.RUnlock()
	sortKeys(out)
	return out
}

const verifyBatchSize = 256

// Verifier checks inbound entries and merges the valid ones into a Registry.
type Verifier struct {
	registry *Registry
	shares   RewardShares
	log      logging.Logger
}

// MakeVerifier creates a Verifier merging into registry.
func MakeVerifier(registry *Registry, shares RewardShares, log logging.Logger) *Verifier {
	if log == nil {
		log = logging.Base()
	}
	return &Verifier{registry: registry, shares: shares, log: log}
}

// precheck runs every check that does not need the signature.
func (v *Verifier) precheck(e Entry, now int64) error {
	if !e.Signed() {
		return fmt.Errorf("account %v at %d: %w: %w", e.PublicKey, e.Timestamp, ErrInvalidSignature, ErrMissingSignature)
	}
	if err := v.registry.Selector().Check(e.Timestamp, now); err != nil {
		return err
	}
	if !e.PublicKey.IsValid() {
		return fmt.Errorf("account %v: %w", e.PublicKey, ErrMalformedPublicKey)
	}
	if !v.shares.IsRewardShare(e.PublicKey) {
		return fmt.Errorf("account %v: %w", e.PublicKey, ErrUnknownAccount)
	}
	return nil
}

// VerifyAndMerge verifies a single signed entry and merges it. It returns
// nil when the entry was accepted, including when it was already known.
func (v *Verifier) VerifyAndMerge(e Entry) error {
	_, err := v.verifyAndMerge(e)
	return err
}

func (v *Verifier) verifyAndMerge(e Entry) (InsertResult, error) {
	err := v.precheck(e, v.registry.Now())
	if err == nil && !e.PublicKey.VerifyBytes(SigningMessage(e.Timestamp), *e.Signature) {
		err = fmt.Errorf("account %v at %d: %w", e.PublicKey, e.Timestamp, ErrInvalidSignature)
	}
	if err != nil {
		v.reject(e, err)
		return Duplicate, err
	}
	return v.merge(e)
}

func (v *Verifier) merge(e Entry) (InsertResult, error) {
	res, err := v.registry.Insert(e)
	if err != nil {
		v.reject(e, err)
		return res, err
	}
	entriesTotal.WithLabelValues(res.String()).Inc()
	return res, nil
}

func (v *Verifier) reject(e Entry, err error) {
	outcome := rejectionOutcome(err)
	entriesTotal.WithLabelValues(outcome).Inc()
	v.log.With("bucket", e.Timestamp).With("account", e.PublicKey.String()).Debugf("rejected online account entry: %v", err)
}

func rejectionOutcome(err error) string {
	switch {
	case errors.Is(err, ErrStaleBucket):
		return Outcome.Stale
	case errors.Is(err, ErrUnknownAccount):
		return Outcome.Unknown
	case errors.Is(err, ErrMalformedPublicKey):
		return Outcome.BadKey
	}
	return Outcome.BadSig
}

// MergeResult is the outcome for one entry of a VerifyAndMergeAll call.
type MergeResult struct {
	Entry  Entry
	Result InsertResult
	Err    error
}

// MergeReport lists outcomes in input order.
type MergeReport struct {
	Results []MergeResult
}

// Accepted counts entries that were merged or already known.
func (m MergeReport) Accepted() int {
	n := 0
	for _, r := range m.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Rejected counts entries that failed any check.
func (m MergeReport) Rejected() int {
	return len(m.Results) - m.Accepted()
}

// Fresh returns the entries that changed the registry, each worth relaying.
func (m MergeReport) Fresh() []Entry {
	var out []Entry
	for _, r := range m.Results {
		if r.Err == nil && r.Result != Duplicate {
			out = append(out, r.Entry)
		}
	}
	return out
}

// VerifyAndMergeAll verifies entries in parallel batches and merges every
// entry that passes. Each entry succeeds or fails on its own; a bad
// signature only rejects the entry that carries it.
func (v *Verifier) VerifyAndMergeAll(entries []Entry) MergeReport {
	report := MergeReport{Results: make([]MergeResult, len(entries))}
	now := v.registry.Now()

	candidates := make([]int, 0, len(entries))
	for i, e := range entries {
		report.Results[i].Entry = e
		if err := v.precheck(e, now); err != nil {
			report.Results[i].Err = err
			v.reject(e, err)
			continue
		}
		candidates = append(candidates, i)
	}

	failed := make([]bool, len(entries))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for start := 0; start < len(candidates); start += verifyBatchSize {
		chunk := candidates[start:min(start+verifyBatchSize, len(candidates))]
		g.Go(func() error {
			bv := crypto.MakeBatchVerifierWithHint(len(chunk))
			for _, i := range chunk {
				e := entries[i]
				bv.EnqueueSignature(e.PublicKey, SigningMessage(e.Timestamp), *e.Signature)
			}
			bad, err := bv.VerifyWithFeedback()
			if errors.Is(err, crypto.ErrBatchHasFailedSigs) {
				for j, i := range chunk {
					failed[i] = bad[j]
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, i := range candidates {
		e := entries[i]
		if failed[i] {
			err := fmt.Errorf("account %v at %d: %w", e.PublicKey, e.Timestamp, ErrInvalidSignature)
			report.Results[i].Err = err
			v.reject(e, err)
			continue
		}
		report.Results[i].Result, report.Results[i].Err = v.merge(e)
	}
	return report
}
