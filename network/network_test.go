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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/algorand/go-onlineaccounts/protocol"
	"github.com/algorand/go-onlineaccounts/test/partitiontest"
)

func TestMultiplexerDispatch(t *testing.T) {
	partitiontest.PartitionTest(t)

	m := MakeMultiplexer()
	var got []Tag
	m.RegisterHandlers([]TaggedMessageHandler{
		{Tag: protocol.OnlineAccountsTag, MessageHandler: HandlerFunc(func(msg IncomingMessage) OutgoingMessage {
			got = append(got, msg.Tag)
			return OutgoingMessage{Action: Ignore}
		})},
	})

	require.Equal(t, Ignore, m.Handle(IncomingMessage{Tag: protocol.OnlineAccountsTag}).Action)
	require.Equal(t, OutgoingMessage{}, m.Handle(IncomingMessage{Tag: protocol.GetOnlineAccountsTag}))
	require.Equal(t, []Tag{protocol.OnlineAccountsTag}, got)

	require.Panics(t, func() {
		m.RegisterHandlers([]TaggedMessageHandler{{Tag: protocol.OnlineAccountsTag, MessageHandler: HandlerFunc(Propagate)}})
	})

	m.ClearHandlers()
	require.Equal(t, OutgoingMessage{}, m.Handle(IncomingMessage{Tag: protocol.OnlineAccountsTag}))
}

func TestLoopbackRespondAndDisconnect(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := require.New(t)

	hub := MakeLoopbackHub()
	alice := hub.Join("alice")
	bob := hub.Join("bob")

	var aliceGot [][]byte
	alice.RegisterHandlers([]TaggedMessageHandler{
		{Tag: protocol.OnlineAccountsTag, MessageHandler: HandlerFunc(func(msg IncomingMessage) OutgoingMessage {
			aliceGot = append(aliceGot, msg.Data)
			return OutgoingMessage{}
		})},
	})
	bob.RegisterHandlers([]TaggedMessageHandler{
		{Tag: protocol.GetOnlineAccountsTag, MessageHandler: HandlerFunc(func(msg IncomingMessage) OutgoingMessage {
			if len(msg.Data) == 0 {
				return OutgoingMessage{Action: Disconnect}
			}
			return OutgoingMessage{Action: Respond, Tag: protocol.OnlineAccountsTag, Payload: []byte("pong")}
		})},
	})

	a.NoError(alice.Broadcast(context.Background(), protocol.GetOnlineAccountsTag, []byte("ping"), true, nil))
	a.Equal([][]byte{[]byte("pong")}, aliceGot)

	a.NoError(alice.Send(bob, protocol.GetOnlineAccountsTag, nil))
	a.True(bob.IsDisconnected(alice))
	a.ErrorIs(alice.Send(bob, protocol.GetOnlineAccountsTag, []byte("ping")), ErrPeerDisconnected)
	a.Len(aliceGot, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Join("carol")
	a.ErrorIs(bob.Broadcast(ctx, protocol.GetOnlineAccountsTag, []byte("x"), false, nil), context.Canceled)
	a.Equal("disconnect", Disconnect.String())
}
