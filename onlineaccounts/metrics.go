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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "onlineaccounts"

var metricsRegistry = prometheus.NewRegistry()

// MetricsRegistry returns the registry holding the online accounts metrics.
func MetricsRegistry() *prometheus.Registry {
	return metricsRegistry
}

// Outcome labels.
var Outcome = struct {
	Inserted   string
	Replaced   string
	Duplicate  string
	Stale      string
	Unknown    string
	BadSig     string
	BadKey     string
	Malformed  string
	Dropped    string
	Skipped    string
	Completed  string
	Responded  string
	Broadcast  string
	SendFailed string
}{
	Inserted:   "inserted",
	Replaced:   "replaced",
	Duplicate:  "duplicate",
	Stale:      "stale",
	Unknown:    "unknown_account",
	BadSig:     "invalid_signature",
	BadKey:     "malformed_key",
	Malformed:  "malformed",
	Dropped:    "dropped",
	Skipped:    "skipped",
	Completed:  "completed",
	Responded:  "responded",
	Broadcast:  "broadcast",
	SendFailed: "send_failed",
}

var (
	entriesTotal = promauto.With(metricsRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Online account entries processed, by outcome",
		},
		[]string{"outcome"},
	)

	messagesTotal = promauto.With(metricsRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Online account messages handled, by tag and outcome",
		},
		[]string{"tag", "outcome"},
	)

	selfSignCycles = promauto.With(metricsRegistry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "self_sign_cycles_total",
			Help:      "Self-signing cycles, by outcome",
		},
		[]string{"outcome"},
	)

	prunedBuckets = promauto.With(metricsRegistry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pruned_buckets_total",
			Help:      "Buckets evicted from the registry",
		},
	)

	bucketsGauge = promauto.With(metricsRegistry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buckets",
			Help:      "Buckets currently held by the registry",
		},
	)

	awaitedSignatures = promauto.With(metricsRegistry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "awaited_signatures",
			Help:      "Keys of the newest live bucket still lacking a signature",
		},
	)
)
