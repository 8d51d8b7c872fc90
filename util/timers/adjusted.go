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

package timers

import (
	"sync/atomic"
	"time"
)

// AdjustedClock is the system clock shifted by an offset. The offset is
// maintained by whatever performs time synchronisation; AdjustedClock only
// applies it.
type AdjustedClock struct {
	offset atomic.Int64 // milliseconds
	now    func() time.Time
}

// MakeAdjustedClock creates an AdjustedClock with the given initial offset.
func MakeAdjustedClock(offset time.Duration) *AdjustedClock {
	c := &AdjustedClock{now: time.Now}
	c.SetOffset(offset)
	return c
}

// SetOffset replaces the offset applied to the system time.
func (c *AdjustedClock) SetOffset(offset time.Duration) {
	c.offset.Store(offset.Milliseconds())
}

// Offset returns the offset currently applied.
func (c *AdjustedClock) Offset() time.Duration {
	return time.Duration(c.offset.Load()) * time.Millisecond
}

// NowMillis implements WallClock.
func (c *AdjustedClock) NowMillis() int64 {
	return c.now().UnixMilli() + c.offset.Load()
}
