// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package probe

import (
	"errors"
)

var (
	// Returned if no object path is given.
	ErrNoObject = errors.New("no object path")
	// Returned if no targets are given.
	ErrNoTargets = errors.New("no targets")
	// Returned for target argument slots outside 1 through 5.
	ErrBadSlot = errors.New("bad argument slot")
	// Returned if the collection lacks an expected map or program.
	ErrMissingSymbol = errors.New("missing symbol in collection")
)
