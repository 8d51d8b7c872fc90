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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-onlineaccounts/config"
	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/logging"
	"github.com/algorand/go-onlineaccounts/onlineaccounts"
	"github.com/algorand/go-onlineaccounts/test/partitiontest"
	"github.com/algorand/go-onlineaccounts/util/timers"
)

const (
	testBucket = int64(944445) * 30 * 60 * 1000
	testNow    = testBucket + 10*60*1000
)

type testNode struct {
	registry *onlineaccounts.Registry
	keys     []*crypto.SignatureSecrets
}

func (n testNode) Registry() *onlineaccounts.Registry {
	return n.registry
}

func (n testNode) LocalKeys() []crypto.PublicKey {
	out := make([]crypto.PublicKey, len(n.keys))
	for i, k := range n.keys {
		out[i] = k.PublicKey
	}
	return out
}

func makeTestNode(t *testing.T) testNode {
	selector, err := onlineaccounts.MakeWindowSelector(config.MakeConsensusParams(0))
	require.NoError(t, err)
	n := testNode{
		registry: onlineaccounts.MakeRegistry(selector, timers.MakeFrozenClock(testNow), logging.TestingLog(t)),
		keys: []*crypto.SignatureSecrets{
			crypto.GenerateSignatureSecrets(crypto.Seed{1}),
			crypto.GenerateSignatureSecrets(crypto.Seed{2}),
		},
	}
	k := n.keys[0]
	_, err = n.registry.Insert(onlineaccounts.MakeSignedEntry(testBucket, k.PublicKey, k.SignBytes(onlineaccounts.SigningMessage(testBucket))))
	require.NoError(t, err)
	return n
}

func get(t *testing.T, h http.Handler, path string, out interface{}) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out), path)
	}
	return rec.Code
}

func TestVersions(t *testing.T) {
	partitiontest.PartitionTest(t)

	h := Handler(makeTestNode(t), logging.TestingLog(t))
	var resp VersionsResponse
	require.Equal(t, http.StatusOK, get(t, h, "/versions", &resp))
	require.Equal(t, []string{"v1"}, resp.Versions)
}

func TestBucketEndpoints(t *testing.T) {
	partitiontest.PartitionTest(t)

	n := makeTestNode(t)
	h := Handler(n, logging.TestingLog(t))

	var all BucketsResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/online-accounts", &all))
	require.Len(t, all.Buckets, 1)
	require.Equal(t, testBucket, all.Buckets[0].Timestamp)
	require.Len(t, all.Buckets[0].Entries, 1)
	require.Equal(t, n.keys[0].PublicKey.String(), all.Buckets[0].Entries[0].PublicKey)
	require.NotEmpty(t, all.Buckets[0].Entries[0].Signature)
	require.Equal(t, []string{n.keys[1].PublicKey.String()}, all.Buckets[0].Missing)

	var one BucketResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/online-accounts/"+itoa(testBucket), &one))
	require.Equal(t, all.Buckets[0], one)

	var empty BucketResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/online-accounts/0", &empty))
	require.Empty(t, empty.Entries)

	var bad ErrorResponse
	require.Equal(t, http.StatusBadRequest, get(t, h, "/v1/online-accounts/soon", &bad))
	require.Equal(t, errBadTimestamp.Error(), bad.Error)
}

func TestActiveEndpoint(t *testing.T) {
	partitiontest.PartitionTest(t)

	h := Handler(makeTestNode(t), logging.TestingLog(t))
	var resp ActiveResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/online-accounts/active", &resp))
	require.Equal(t, testNow, resp.Now)
	require.True(t, resp.V2)
	require.Equal(t, int64(30*60*1000), resp.Modulus)
	require.Equal(t, []int64{testBucket}, resp.Buckets)
}

func TestBlockEndpoint(t *testing.T) {
	partitiontest.PartitionTest(t)

	n := makeTestNode(t)
	h := Handler(n, logging.TestingLog(t))
	var resp BlockResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/online-accounts/block/"+itoa(testNow), &resp))
	require.Equal(t, testBucket, resp.Timestamp)
	require.Equal(t, []string{n.keys[0].PublicKey.String()}, resp.PublicKeys)

	sigs, err := hex.DecodeString(resp.Signatures)
	require.NoError(t, err)
	block := onlineaccounts.BlockOnlineAccounts{Timestamp: resp.Timestamp, PublicKeys: n.LocalKeys()[:1], Signatures: sigs}
	require.NoError(t, onlineaccounts.VerifyBlockSignatures(n.registry.Selector(), testNow, block, onlineaccounts.MakeRewardShareSet(n.LocalKeys()...)))
}

func TestMetricsEndpoint(t *testing.T) {
	partitiontest.PartitionTest(t)

	h := Handler(makeTestNode(t), logging.TestingLog(t))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "onlineaccounts_buckets"), string(body))
}
