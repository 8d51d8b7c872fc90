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

package oad

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/logging"
	"github.com/algorand/go-onlineaccounts/onlineaccounts"
)

const apiV1Tag = "v1"

var supportedAPIVersions = []string{apiV1Tag}

var errBadTimestamp = errors.New("timestamp must be an integer number of milliseconds")

// APINode is what the HTTP API reads from.
type APINode interface {
	Registry() *onlineaccounts.Registry
	LocalKeys() []crypto.PublicKey
}

// VersionsResponse lists the supported API versions.
type VersionsResponse struct {
	Versions []string `json:"versions"`
}

// EntryResponse is one online account entry.
type EntryResponse struct {
	Timestamp int64  `json:"timestamp"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature,omitempty"`
}

// BucketResponse describes a single bucket.
type BucketResponse struct {
	Timestamp int64           `json:"timestamp"`
	Entries   []EntryResponse `json:"entries"`
	// Missing lists local keys and placeholders with no signed entry yet.
	Missing []string `json:"missing"`
}

// BucketsResponse describes every held bucket.
type BucketsResponse struct {
	Buckets []BucketResponse `json:"buckets"`
}

// ActiveResponse describes the window at the current time.
type ActiveResponse struct {
	Now        int64   `json:"now"`
	Activation int64   `json:"activation"`
	V2         bool    `json:"v2"`
	Modulus    int64   `json:"modulus"`
	Buckets    []int64 `json:"buckets"`
}

// BlockResponse is the online accounts set a block minted at BlockTimestamp would carry.
type BlockResponse struct {
	BlockTimestamp int64    `json:"blockTimestamp"`
	Timestamp      int64    `json:"timestamp"`
	PublicKeys     []string `json:"publicKeys"`
	Signatures     string   `json:"signatures"`
}

// ErrorResponse carries an error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

func successResponse(w http.ResponseWriter, response interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response) //nolint:errcheck // client went away
}

func errorResponse(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()}) //nolint:errcheck // client went away
}

func versionsHandler(w http.ResponseWriter, r *http.Request) {
	successResponse(w, VersionsResponse{Versions: supportedAPIVersions})
}

func toEntryResponses(entries []onlineaccounts.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		er := EntryResponse{Timestamp: e.Timestamp, PublicKey: e.PublicKey.String()}
		if e.Signed() {
			er.Signature = e.Signature.String()
		}
		out = append(out, er)
	}
	return out
}

func keyStrings(keys []crypto.PublicKey) []string {
	out := make([]string, 0, len(keys))
	for _, pk := range keys {
		out = append(out, pk.String())
	}
	return out
}

type handlers struct {
	node APINode
	log  logging.Logger
}

func (h handlers) bucket(ts int64) BucketResponse {
	reg := h.node.Registry()
	return BucketResponse{
		Timestamp: ts,
		Entries:   toEntryResponses(reg.EntriesFor(ts)),
		Missing:   keyStrings(reg.MissingSignatures(ts, h.node.LocalKeys())),
	}
}

func timestampVar(r *http.Request) (int64, error) {
	ts, err := strconv.ParseInt(mux.Vars(r)["timestamp"], 10, 64)
	if err != nil {
		return 0, errBadTimestamp
	}
	return ts, nil
}

// GET /v1/online-accounts
func (h handlers) listBuckets(w http.ResponseWriter, r *http.Request) {
	resp := BucketsResponse{Buckets: []BucketResponse{}}
	for _, ts := range h.node.Registry().Buckets() {
		resp.Buckets = append(resp.Buckets, h.bucket(ts))
	}
	successResponse(w, resp)
}

// GET /v1/online-accounts/active
func (h handlers) active(w http.ResponseWriter, r *http.Request) {
	reg := h.node.Registry()
	selector := reg.Selector()
	now := reg.Now()
	successResponse(w, ActiveResponse{
		Now:        now,
		Activation: selector.Activation(),
		V2:         selector.V2(now),
		Modulus:    selector.Modulus(now),
		Buckets:    selector.ActiveBuckets(now),
	})
}

// GET /v1/online-accounts/{timestamp}
func (h handlers) getBucket(w http.ResponseWriter, r *http.Request) {
	ts, err := timestampVar(r)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err)
		return
	}
	successResponse(w, h.bucket(ts))
}

// GET /v1/online-accounts/block/{timestamp}
func (h handlers) blockSignatures(w http.ResponseWriter, r *http.Request) {
	ts, err := timestampVar(r)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err)
		return
	}
	block := onlineaccounts.BlockSignatures(h.node.Registry(), ts)
	successResponse(w, BlockResponse{
		BlockTimestamp: ts,
		Timestamp:      block.Timestamp,
		PublicKeys:     keyStrings(block.PublicKeys),
		Signatures:     hex.EncodeToString(block.Signatures),
	})
}

// Handler returns the root mux router for the online accounts API.
func Handler(node APINode, log logging.Logger) *mux.Router {
	h := handlers{node: node, log: log}
	rootRouter := mux.NewRouter()

	rootRouter.HandleFunc("/versions", versionsHandler).Methods(http.MethodGet)
	rootRouter.Handle("/metrics", promhttp.HandlerFor(onlineaccounts.MetricsRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1Router := rootRouter.PathPrefix("/" + apiV1Tag).Subrouter()
	v1Router.HandleFunc("/online-accounts", h.listBuckets).Methods(http.MethodGet)
	v1Router.HandleFunc("/online-accounts/active", h.active).Methods(http.MethodGet)
	v1Router.HandleFunc("/online-accounts/block/{timestamp:-?[0-9]+}", h.blockSignatures).Methods(http.MethodGet)
	v1Router.HandleFunc("/online-accounts/{timestamp}", h.getBucket).Methods(http.MethodGet)

	return rootRouter
}
