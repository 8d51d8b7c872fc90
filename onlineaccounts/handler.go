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

	"github.com/algorand/go-onlineaccounts/config"
	"github.com/algorand/go-onlineaccounts/logging"
	"github.com/algorand/go-onlineaccounts/network"
	"github.com/algorand/go-onlineaccounts/protocol"
)

// relayer forwards freshly merged entries to the rest of the network.
type relayer interface {
	Relay(ctx context.Context, entries []Entry, except network.Peer)
}

type backlogItem struct {
	entries []Entry
	sender  network.Peer
}

// Handler receives online accounts messages from peers. Data messages are
// verified and merged by a pool of workers fed from a bounded backlog;
// requests are answered directly with the declarations the peer lacks.
type Handler struct {
	registry *Registry
	verifier *Verifier
	cfg      config.Local
	log      logging.Logger
	relay    relayer

	backlog chan backlogItem
	// started is set while the workers drain backlog.
	started atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// MakeHandler creates a Handler. Until Start is called, or when the
// configuration asks for no workers, data messages are processed on the
// delivering goroutine.
func MakeHandler(registry *Registry, verifier *Verifier, cfg config.Local, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Base()
	}
	h := &Handler{
		registry: registry,
		verifier: verifier,
		cfg:      cfg,
		log:      log.With("Context", "onlineaccounts"),
	}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	if cfg.IncomingMessageWorkers > 0 {
		h.backlog = make(chan backlogItem, max(cfg.IncomingMessageBacklogSize, 1))
	}
	return h
}

// SetRelay makes the handler forward fresh declarations through r.
func (h *Handler) SetRelay(r relayer) {
	h.relay = r
}

// Handlers returns the tagged handlers to register with a GossipNode.
func (h *Handler) Handlers() []network.TaggedMessageHandler {
	return []network.TaggedMessageHandler{
		{Tag: protocol.OnlineAccountsTag, MessageHandler: network.HandlerFunc(h.HandleData)},
		{Tag: protocol.GetOnlineAccountsTag, MessageHandler: network.HandlerFunc(h.HandleRequest)},
	}
}

// Start launches the worker pool. Calling it again has no effect.
func (h *Handler) Start() {
	if h.backlog == nil || h.ctx.Err() != nil || !h.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < h.cfg.IncomingMessageWorkers; i++ {
		h.wg.Add(1)
		go h.worker()
	}
}

// Stop halts the workers. Queued messages that were not picked up are
// discarded, and later messages are processed inline.
func (h *Handler) Stop() {
	h.started.Store(false)
	h.cancel()
	h.wg.Wait()
}

func (h *Handler) worker() {
	defer h.wg.Done()
	for {
		select {
		case <-h.ctx.Done():
			return
		case item := <-h.backlog:
			h.process(item)
		}
	}
}

func (h *Handler) process(item backlogItem) {
	report := h.verifier.VerifyAndMergeAll(item.entries)
	if rejected := report.Rejected(); rejected > 0 {
		h.log.Debugf("rejected %d of %d online account entries", rejected, len(item.entries))
	}
	if fresh := report.Fresh(); len(fresh) > 0 && h.relay != nil {
		h.relay.Relay(h.ctx, fresh, item.sender)
	}
}

// HandleData decodes a data message and queues its entries for
// verification. A message that does not decode gets the sender disconnected.
func (h *Handler) HandleData(msg network.IncomingMessage) network.OutgoingMessage {
	entries, err := DecodeLimited(DataShape, msg.Data, h.cfg.MaxAccountsPerMessage)
	if err != nil {
		messagesTotal.WithLabelValues(string(msg.Tag), Outcome.Malformed).Inc()
		h.log.Infof("malformed online accounts message: %v", err)
		return network.OutgoingMessage{Action: network.Disconnect}
	}
	if len(entries) == 0 {
		return network.OutgoingMessage{Action: network.Ignore}
	}

	item := backlogItem{entries: entries, sender: msg.Sender}
	if !h.started.Load() {
		h.process(item)
		return network.OutgoingMessage{Action: network.Ignore}
	}
	select {
	case h.backlog <- item:
	default:
		messagesTotal.WithLabelValues(string(msg.Tag), Outcome.Dropped).Inc()
		entriesTotal.WithLabelValues(Outcome.Dropped).Add(float64(len(entries)))
		h.log.Debugf("online accounts backlog full, dropped %d entries", len(entries))
	}
	return network.OutgoingMessage{Action: network.Ignore}
}

// HandleRequest answers a request with every held signed declaration the
// requester did not list.
func (h *Handler) HandleRequest(msg network.IncomingMessage) network.OutgoingMessage {
	have, err := DecodeLimited(RequestShape, msg.Data, h.cfg.MaxAccountsPerMessage)
	if err != nil {
		messagesTotal.WithLabelValues(string(msg.Tag), Outcome.Malformed).Inc()
		h.log.Infof("malformed online accounts request: %v", err)
		return network.OutgoingMessage{Action: network.Disconnect}
	}

	missing := h.registry.SignedEntriesExcept(have)
	if len(missing) == 0 {
		return network.OutgoingMessage{Action: network.Ignore}
	}
	if limit := h.cfg.MaxAccountsPerMessage; limit > 0 && len(missing) > limit {
		missing = missing[len(missing)-limit:]
	}
	reply, err := MakeDataMessage(missing)
	if err != nil {
		h.log.Warnf("cannot build online accounts reply: %v", err)
		return network.OutgoingMessage{Action: network.Ignore}
	}
	messagesTotal.WithLabelValues(string(msg.Tag), Outcome.Responded).Inc()
	return network.OutgoingMessage{Action: network.Respond, Tag: reply.Tag(), Payload: reply.Bytes()}
}
