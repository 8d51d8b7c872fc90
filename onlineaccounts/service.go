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
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/algorand/go-onlineaccounts/config"
	"github.com/algorand/go-onlineaccounts/crypto"
	"github.com/algorand/go-onlineaccounts/logging"
	"github.com/algorand/go-onlineaccounts/network"
)

// participants captures the aspects of the account manager used by this
// package: the signing keys of the locally held reward-share accounts.
type participants interface {
	Keys() []*crypto.SignatureSecrets
}

// StaticParticipants is a fixed list of local signing keys.
type StaticParticipants []*crypto.SignatureSecrets

// Keys implements participants.
func (p StaticParticipants) Keys() []*crypto.SignatureSecrets {
	return p
}

// Service periodically signs the live buckets for every local reward-share
// account, relays new declarations, and asks peers for the ones it lacks.
type Service struct {
	accts    participants
	shares   RewardShares
	registry *Registry
	net      network.GossipNode
	cfg      config.Local
	log      logging.Logger

	// running is set while a self-signing cycle is in progress.
	running atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a Service. net may be nil, in which case nothing is sent.
func NewService(accts participants, shares RewardShares, registry *Registry, net network.GossipNode, cfg config.Local, log logging.Logger) *Service {
	if log == nil {
		log = logging.Base()
	}
	return &Service{
		accts:    accts,
		shares:   shares,
		registry: registry,
		net:      net,
		cfg:      cfg,
		log:      log.With("Context", "onlineaccounts"),
	}
}

// Start runs the service loop in the background.
func (s *Service) Start() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(1)
	go s.loop()
}

// Stop halts the loop and waits for any cycle in flight. It is a no-op on a
// service that was never started.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}

func interval(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	return d
}

func (s *Service) loop() {
	defer s.wg.Done()
	signTicker := time.NewTicker(interval(s.cfg.SelfSignInterval()))
	defer signTicker.Stop()
	requestTicker := time.NewTicker(interval(s.cfg.RequestInterval()))
	defer requestTicker.Stop()

	s.SelfSignCycle(s.ctx)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-signTicker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.SelfSignCycle(s.ctx)
			}()
		case <-requestTicker.C:
			s.RequestCycle(s.ctx)
		}
	}
}

// SelfSignCycle signs every live bucket with every local reward-share key
// that has not signed it yet, merges the declarations and broadcasts them.
// It returns the number of new declarations, and false if another cycle was
// already running, in which case nothing is done.
func (s *Service) SelfSignCycle(ctx context.Context) (int, bool) {
	if !s.running.CompareAndSwap(false, true) {
		selfSignCycles.WithLabelValues(Outcome.Skipped).Inc()
		s.log.Debug("self-signing cycle still in progress, skipping")
		return 0, false
	}
	defer s.running.Store(false)

	now := s.registry.Now()
	buckets := s.registry.Selector().ActiveBuckets(now)
	keys := s.accts.Keys()

	var fresh []Entry
	for _, ts := range buckets {
		if err := s.registry.Designate(ts); err != nil {
			s.log.Warnf("cannot designate bucket %d: %v", ts, err)
			continue
		}
		message := SigningMessage(ts)
		for _, key := range keys {
			if !s.shares.IsRewardShare(key.PublicKey) || s.registry.HasSigned(ts, key.PublicKey) {
				continue
			}
			e := MakeSignedEntry(ts, key.PublicKey, key.SignBytes(message))
			res, err := s.registry.Insert(e)
			if err != nil {
				s.log.Warnf("cannot merge own declaration for bucket %d: %v", ts, err)
				continue
			}
			if res != Duplicate {
				fresh = append(fresh, e)
			}
		}
	}

	own := make([]crypto.PublicKey, 0, len(keys))
	for _, key := range keys {
		own = append(own, key.PublicKey)
	}
	awaitedSignatures.Set(float64(len(s.registry.MissingSignatures(buckets[len(buckets)-1], own))))

	if len(fresh) > 0 {
		s.log.Infof("signed %d online account declarations for buckets %v", len(fresh), buckets)
		s.Relay(ctx, fresh, nil)
	}
	selfSignCycles.WithLabelValues(Outcome.Completed).Inc()
	return len(fresh), true
}

// RequestCycle prunes the registry and asks peers for the declarations it
// lacks by announcing the ones it holds.
func (s *Service) RequestCycle(ctx context.Context) {
	s.registry.Prune(s.registry.Now())
	have := s.registry.Inventory()
	if limit := s.cfg.MaxAccountsPerMessage; limit > 0 && len(have) > limit {
		// keep the newest buckets
		have = have[len(have)-limit:]
	}
	msg, err := MakeRequestMessage(have)
	if err != nil {
		s.log.Warnf("cannot build online accounts request: %v", err)
		return
	}
	s.send(ctx, msg)
}

// Relay broadcasts entries that some other path merged, such as a peer's
// fresh declarations, to every peer except the sender.
func (s *Service) Relay(ctx context.Context, entries []Entry, except network.Peer) {
	for _, chunk := range SplitEntries(entries, s.cfg.MaxAccountsPerMessage) {
		msg, err := MakeDataMessage(chunk)
		if err != nil {
			s.log.Warnf("cannot build online accounts message: %v", err)
			return
		}
		s.sendExcept(ctx, msg, except)
	}
}

func (s *Service) send(ctx context.Context, msg Message) {
	s.sendExcept(ctx, msg, nil)
}

func (s *Service) sendExcept(ctx context.Context, msg Message, except network.Peer) {
	if s.net == nil {
		return
	}
	if err := s.net.Broadcast(ctx, msg.Tag(), msg.Bytes(), false, except); err != nil {
		messagesTotal.WithLabelValues(string(msg.Tag()), Outcome.SendFailed).Inc()
		s.log.Infof("cannot broadcast %s message of %d accounts: %v", msg.Shape(), msg.Len(), err)
		return
	}
	messagesTotal.WithLabelValues(string(msg.Tag()), Outcome.Broadcast).Inc()
}
