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

	"github.com/algorand/go-onlineaccounts/config"
)

// WindowSelector maps network-adjusted time to bucket timestamps. It is a
// pure function of its parameters: every node configured with the same
// ConsensusParams computes the same buckets for the same time.
type WindowSelector struct {
	modulusV1      int64
	modulusV2      int64
	activation     int64
	skew           int64
	retainedBucket int64
}

// MakeWindowSelector validates params and builds a selector from them.
func MakeWindowSelector(params config.ConsensusParams) (WindowSelector, error) {
	if err := params.Validate(); err != nil {
		return WindowSelector{}, fmt.Errorf("window selector: %w", err)
	}
	return WindowSelector{
		modulusV1:      params.OnlineAccountsModulusV1,
		modulusV2:      params.OnlineAccountsModulusV2,
		activation:     params.Activation(),
		skew:           params.OnlineAccountsSkewTolerance,
		retainedBucket: int64(params.OnlineAccountsRetentionBuckets),
	}, nil
}

// ActiveBuckets returns the buckets live at now for the given activation
// timestamp, using the default moduli.
func ActiveBuckets(now, activation int64) []int64 {
	w, err := MakeWindowSelector(config.MakeConsensusParams(activation))
	if err != nil {
		panic(err)
	}
	return w.ActiveBuckets(now)
}

// Activation returns the V2 activation timestamp.
func (w WindowSelector) Activation() int64 {
	return w.activation
}

// V2 reports whether the coarse modulus is in force at ts. The boundary
// belongs to V2.
func (w WindowSelector) V2(ts int64) bool {
	return ts >= w.activation
}

// Modulus returns the bucket width in force at ts.
func (w WindowSelector) Modulus(ts int64) int64 {
	if w.V2(ts) {
		return w.modulusV2
	}
	return w.modulusV1
}

// BucketFor returns the canonical bucket containing ts, without skew
// neighbours. Block timestamps map to buckets through this.
func (w WindowSelector) BucketFor(ts int64) int64 {
	return floorTo(ts, w.Modulus(ts))
}

// ActiveBuckets returns the ascending, non-empty set of buckets that are live
// at now. Before activation this is the single legacy bucket. From activation
// onwards a neighbouring bucket is also live while now is within the skew
// tolerance of the shared boundary.
func (w WindowSelector) ActiveBuckets(now int64) []int64 {
	current := w.BucketFor(now)
	if !w.V2(now) {
		return []int64{current}
	}
	buckets := make([]int64, 0, 2)
	if now-current < w.skew {
		buckets = append(buckets, current-w.modulusV2)
	}
	buckets = append(buckets, current)
	if current+w.modulusV2-now <= w.skew {
		buckets = append(buckets, current+w.modulusV2)
	}
	return buckets
}

// Aligned reports whether bucket is a multiple of the modulus in force at it.
func (w WindowSelector) Aligned(bucket int64) bool {
	return floorTo(bucket, w.Modulus(bucket)) == bucket
}

// RetentionFloor returns the oldest bucket still retained at now.
func (w WindowSelector) RetentionFloor(now int64) int64 {
	return w.BucketFor(now) - w.retainedBucket*w.Modulus(now)
}

// NewestAcceptable returns the newest bucket accepted at now; a peer whose
// clock runs ahead by up to the skew tolerance may already sign it.
func (w WindowSelector) NewestAcceptable(now int64) int64 {
	// the coarse modulus can floor below the current legacy bucket just before activation
	return max(w.BucketFor(now), w.BucketFor(now+w.skew))
}

// Check classifies bucket against the acceptable window at now.
func (w WindowSelector) Check(bucket, now int64) error {
	switch {
	case !w.Aligned(bucket):
		return fmt.Errorf("bucket %d: %w", bucket, ErrMisalignedBucket)
	case bucket < w.RetentionFloor(now):
		return fmt.Errorf("bucket %d older than %d: %w", bucket, w.RetentionFloor(now), ErrExpiredBucket)
	case bucket > w.NewestAcceptable(now):
		return fmt.Errorf("bucket %d newer than %d: %w", bucket, w.NewestAcceptable(now), ErrFutureBucket)
	}
	return nil
}

// floorTo rounds ts down to a multiple of modulus, also for negative ts.
func floorTo(ts, modulus int64) int64 {
	q := ts / modulus
	if ts%modulus != 0 && ts < 0 {
		q--
	}
	return q * modulus
}
