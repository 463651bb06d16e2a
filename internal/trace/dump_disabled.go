// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !skbdump

package trace

import (
	"github.com/aibor/skbtrace/internal/skbuff"
)

// setSkbDump is compiled out unless the skbdump build tag is set. The event
// keeps its default dump id.
func (t *Tracer) setSkbDump(_ skbuff.Descriptor, _ *uint64) {}
