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

// Frozen is a WallClock which only moves when told to.
type Frozen struct {
	millis atomic.Int64
}

// MakeFrozenClock creates a new frozen clock reading nowMillis.
func MakeFrozenClock(nowMillis int64) *Frozen {
	f := &Frozen{}
	f.millis.Store(nowMillis)
	return f
}

// NowMillis implements WallClock.
func (f *Frozen) NowMillis() int64 {
	return f.millis.Load()
}

// Set moves the clock to nowMillis.
func (f *Frozen) Set(nowMillis int64) {
	f.millis.Store(nowMillis)
}

// Advance moves the clock forward by d and returns the new reading.
func (f *Frozen) Advance(d time.Duration) int64 {
	return f.millis.Add(d.Milliseconds())
}
