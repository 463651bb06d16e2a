// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package skbuff

import (
	"errors"
)

var (
	// Returned for reads of unmapped or partially mapped address ranges.
	ErrBadAddress = errors.New("bad address")
	// Returned if no memory source is given.
	ErrNoMemory = errors.New("no memory source")
	// Returned if the given [Strategy] is not defined.
	ErrUnknownStrategy = errors.New("unknown read strategy")
)
