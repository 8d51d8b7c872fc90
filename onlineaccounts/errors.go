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
	"errors"
	"fmt"
)

// Window rejections. Every one of them satisfies errors.Is(err, ErrStaleBucket).
var (
	ErrStaleBucket      = errors.New("bucket outside the acceptable window")
	ErrExpiredBucket    = fmt.Errorf("%w: expired", ErrStaleBucket)
	ErrFutureBucket     = fmt.Errorf("%w: in the future", ErrStaleBucket)
	ErrMisalignedBucket = fmt.Errorf("%w: not aligned to the modulus", ErrStaleBucket)
)

// Entry rejections.
var (
	ErrMalformedPublicKey = errors.New("malformed public key")
	ErrUnknownAccount     = errors.New("not a registered reward-share account")
	ErrInvalidSignature   = errors.New("invalid liveness signature")
)

// Codec failures. Decoding failures satisfy errors.Is(err, ErrMalformedMessage).
var (
	ErrMalformedMessage = errors.New("malformed online accounts message")
	ErrTruncated        = fmt.Errorf("%w: truncated", ErrMalformedMessage)
	ErrImpossibleCount  = fmt.Errorf("%w: impossible account count", ErrMalformedMessage)
	ErrTrailingBytes    = fmt.Errorf("%w: trailing bytes after terminator", ErrMalformedMessage)
	ErrMissingSignature = errors.New("data entry without signature")
	ErrShortWrite       = errors.New("short write while encoding")
)
