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

package protocol

// Tag represents a message type identifier.  Messages have a Tag field. Handlers can register to a given Tag.
// e.g., the online accounts handler registers to handle declarations with the OnlineAccountsTag.
type Tag string

// Tags, in lexicographic sort order of tag values to avoid duplicates.
const (
	UnknownMsgTag        Tag = "??"
	OnlineAccountsTag    Tag = "OA"
	GetOnlineAccountsTag Tag = "OQ"
)

// TagList is a list of all currently used protocol tags.
var TagList = []Tag{
	UnknownMsgTag,
	OnlineAccountsTag,
	GetOnlineAccountsTag,
}

// MaxOnlineAccountsPerMessage bounds the number of entries a single online
// accounts message (request or data) may carry.
const MaxOnlineAccountsPerMessage = 10000

// Wire field widths shared by the online accounts messages.
const (
	IntLength       = 4
	TimestampLength = 8
	PublicKeyLength = 32
	SignatureLength = 64
)

// GetOnlineAccountsTagMaxSize is the worst case: every entry in its own group.
const GetOnlineAccountsTagMaxSize = IntLength + MaxOnlineAccountsPerMessage*(IntLength+TimestampLength+PublicKeyLength)

// OnlineAccountsTagMaxSize is the worst case: every entry in its own group.
const OnlineAccountsTagMaxSize = IntLength + MaxOnlineAccountsPerMessage*(IntLength+TimestampLength+SignatureLength+PublicKeyLength)

// MaxMessageSize returns the maximum size of a message for a given tag
func (tag Tag) MaxMessageSize() uint64 {
	switch tag {
	case OnlineAccountsTag:
		return OnlineAccountsTagMaxSize
	case GetOnlineAccountsTag:
		return GetOnlineAccountsTagMaxSize
	case UnknownMsgTag:
		return IntLength
	default:
		return 0
	}
}

// Complement is a convenience function for returning a corresponding response/request tag
func (t Tag) Complement() Tag {
	switch t {
	case OnlineAccountsTag:
		return GetOnlineAccountsTag
	case GetOnlineAccountsTag:
		return OnlineAccountsTag
	default:
		return UnknownMsgTag
	}
}
