// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build skbdump

package trace

import (
	"fmt"

	"github.com/aibor/skbtrace/internal/skbuff"
)

// setSkbDump serializes a readable dump of the descriptor structure into the
// next ring slot and records the slot id in the event. Any failure leaves the
// id at its default and never blocks emission.
func (t *Tracer) setSkbDump(d skbuff.Descriptor, eventID *uint64) {
	id := t.dumps.Claim()

	text := make([]byte, 0, DumpSlotSize)
	text = fmt.Appendf(text, "(struct sk_buff){\n")

	if mark, err := t.src.Mark(d); err == nil {
		text = fmt.Appendf(text, " .mark = %#x,\n", mark)
	}

	if length, err := t.src.Len(d); err == nil {
		text = fmt.Appendf(text, " .len = %d,\n", length)
	}

	if proto, err := t.src.Protocol(d); err == nil {
		text = fmt.Appendf(text, " .protocol = %#x,\n", proto)
	}

	if hdr, err := t.src.Headers(d); err == nil {
		text = fmt.Appendf(text, " .head = %#x,\n", hdr.Head)
		text = fmt.Appendf(text, " .network_header = %d,\n", hdr.Network)
		text = fmt.Appendf(text, " .transport_header = %d,\n", hdr.Transport)
	}

	if dev, err := t.src.Device(d); err == nil {
		text = fmt.Appendf(text, " .dev = (struct net_device){\n")
		text = fmt.Appendf(text, "  .ifindex = %d,\n", dev.Ifindex)
		text = fmt.Appendf(text, "  .mtu = %d,\n", dev.MTU)
		text = fmt.Appendf(text, " },\n")
	}

	text = fmt.Appendf(text, "}")

	t.dumps.Put(id, text)
	*eventID = id
}
