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

package logging

import (
	"strings"
	"testing"
)

// TestLogWriter is an io.Writer that wraps a testing.TB so log output shows
// up next to the test that produced it.
type TestLogWriter struct {
	testing.TB
}

// Write implements io.Writer; each call is forwarded to TB.Logf.
func (tb TestLogWriter) Write(p []byte) (n int, err error) {
	tb.Helper()
	tb.Logf("%s", strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// TestingLog is a test-only helper to create a Logger that writes via t.Logf.
func TestingLog(tb testing.TB) Logger {
	l := NewLogger()
	l.SetLevel(Debug)
	l.SetOutput(TestLogWriter{tb})
	return l
}
