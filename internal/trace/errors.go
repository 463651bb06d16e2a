// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trace

import (
	"errors"
)

var (
	// Returned if no event sink is given.
	ErrNoSink = errors.New("no event sink")
	// Returned for address filters that are not IPv4.
	ErrNotIPv4 = errors.New("not an IPv4 address")
	// Returned for binary records of unexpected size.
	ErrBadRecordSize = errors.New("bad record size")
	// Returned for argument slots outside 1 through 5.
	ErrBadSlot = errors.New("bad argument slot")
)
