// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trace

import (
	"github.com/aibor/skbtrace/internal/skbuff"
)

// setOutput populates the optional event blocks the configuration asks for.
// The filter decision is already made, nothing here can reject the event.
func (t *Tracer) setOutput(d skbuff.Descriptor, event *Event, cfg *Config) {
	if cfg.Output.Meta {
		t.setMeta(d, &event.Meta)
	}

	if cfg.Output.Tuple {
		t.setTuple(d, &event.Tuple)
	}

	if cfg.Output.Skb {
		t.setSkbDump(d, &event.PrintSkbID)
	}

	if cfg.Output.Stack {
		event.PrintStackID = t.stacks.Capture(2)
	}
}

// setMeta snapshots mark, length, link protocol and device info. An
// unresolvable device reference leaves ifindex and MTU zeroed.
func (t *Tracer) setMeta(d skbuff.Descriptor, meta *Meta) {
	meta.Mark, _ = t.src.Mark(d)
	meta.Len, _ = t.src.Len(d)
	meta.Protocol, _ = t.src.Protocol(d)

	if dev, err := t.src.Device(d); err == nil {
		meta.Ifindex = dev.Ifindex
		meta.MTU = dev.MTU
	}
}

// setTuple re-parses the headers independently of the filter, so output
// population does not depend on the filter's early exits. The protocol byte
// is filled for any IP version, addresses only for IPv4, ports only for TCP
// and UDP.
func (t *Tracer) setTuple(d skbuff.Descriptor, tuple *Tuple) {
	hdr, _ := t.src.Headers(d)

	tuple.Proto = skbuff.ReadL4Proto(t.mem, hdr)

	if ip, ok := skbuff.ReadIPv4(t.mem, hdr); ok {
		tuple.SAddr = ip.SAddr
		tuple.DAddr = ip.DAddr
	}

	if ports, ok := skbuff.ReadPorts(t.mem, hdr, tuple.Proto); ok {
		tuple.SPort = ports.Source
		tuple.DPort = ports.Dest
	}
}
