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

package network

import (
	"context"
	"errors"
	"time"

	"github.com/algorand/go-deadlock"

	"github.com/algorand/go-onlineaccounts/protocol"
)

// ErrPeerDisconnected is returned when sending to a peer that was disconnected.
var ErrPeerDisconnected = errors.New("peer disconnected")

// LoopbackHub connects LoopbackNodes in memory. Messages are delivered
// synchronously on the sender's goroutine, which keeps multi-node tests
// deterministic.
type LoopbackHub struct {
	mu    deadlock.Mutex
	nodes []*LoopbackNode
}

// LoopbackNode is a GossipNode attached to a LoopbackHub.
type LoopbackNode struct {
	Name string

	hub *LoopbackHub
	mux *Multiplexer

	mu           deadlock.Mutex
	disconnected map[*LoopbackNode]bool
}

// MakeLoopbackHub creates an empty hub.
func MakeLoopbackHub() *LoopbackHub {
	return &LoopbackHub{}
}

// Join attaches a new node to the hub.
func (h *LoopbackHub) Join(name string) *LoopbackNode {
	n := &LoopbackNode{
		Name:         name,
		hub:          h,
		mux:          MakeMultiplexer(),
		disconnected: make(map[*LoopbackNode]bool),
	}
	h.mu.Lock()
	h.nodes = append(h.nodes, n)
	h.mu.Unlock()
	return n
}

func (h *LoopbackHub) members() []*LoopbackNode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*LoopbackNode(nil), h.nodes...)
}

// GetNetwork implements DisconnectablePeer.
func (n *LoopbackNode) GetNetwork() GossipNode {
	return n
}

// Broadcast implements GossipNode. The wait flag is accepted for interface
// compatibility; delivery is always synchronous.
func (n *LoopbackNode) Broadcast(ctx context.Context, tag protocol.Tag, data []byte, wait bool, except Peer) error {
	for _, peer := range n.hub.members() {
		if peer == n || Peer(peer) == except {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if n.isDisconnected(peer) || peer.isDisconnected(n) {
			continue
		}
		n.deliver(peer, tag, data)
	}
	return nil
}

// Send delivers a message to a single peer.
func (n *LoopbackNode) Send(peer *LoopbackNode, tag protocol.Tag, data []byte) error {
	if n.isDisconnected(peer) || peer.isDisconnected(n) {
		return ErrPeerDisconnected
	}
	n.deliver(peer, tag, data)
	return nil
}

func (n *LoopbackNode) deliver(peer *LoopbackNode, tag protocol.Tag, data []byte) {
	out := peer.mux.Handle(IncomingMessage{
		Sender:   n,
		Tag:      tag,
		Data:     data,
		Net:      peer,
		Received: time.Now().UnixNano(),
	})
	switch out.Action {
	case Respond:
		if !peer.isDisconnected(n) {
			peer.deliver(n, out.Tag, out.Payload)
		}
	case Broadcast:
		peer.Broadcast(context.Background(), out.Tag, out.Payload, false, n)
	case Disconnect:
		peer.Disconnect(n)
	}
}

// Disconnect implements GossipNode.
func (n *LoopbackNode) Disconnect(badnode DisconnectablePeer) {
	peer, ok := badnode.(*LoopbackNode)
	if !ok {
		return
	}
	n.mu.Lock()
	n.disconnected[peer] = true
	n.mu.Unlock()
}

func (n *LoopbackNode) isDisconnected(peer *LoopbackNode) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.disconnected[peer]
}

// IsDisconnected reports whether n dropped peer.
func (n *LoopbackNode) IsDisconnected(peer *LoopbackNode) bool {
	return n.isDisconnected(peer)
}

// RegisterHandlers implements GossipNode.
func (n *LoopbackNode) RegisterHandlers(dispatch []TaggedMessageHandler) {
	n.mux.RegisterHandlers(dispatch)
}

// ClearHandlers implements GossipNode.
func (n *LoopbackNode) ClearHandlers() {
	n.mux.ClearHandlers()
}
