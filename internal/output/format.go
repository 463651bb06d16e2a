// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package output renders event records for the consumer.
package output

import (
	"fmt"
	"strings"

	"github.com/aibor/skbtrace/internal/skbuff"
	"github.com/aibor/skbtrace/internal/trace"
)

// Formatter renders one line per event. The optional columns follow the
// output toggles of the filter configuration the events were captured with.
type Formatter struct {
	syms   *Kallsyms
	output trace.Outputs
}

// NewFormatter returns a [Formatter]. syms may be nil, in which case probe
// addresses stay unresolved.
func NewFormatter(syms *Kallsyms, output trace.Outputs) *Formatter {
	return &Formatter{syms: syms, output: output}
}

// Header returns the column header line matching [Formatter.Line].
func (f *Formatter) Header() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%-18s %3s %8s %-32s", "SKB", "CPU", "PID", "FUNC")

	if f.output.Timestamp {
		fmt.Fprintf(&sb, " %-16s", "TIMESTAMP")
	}

	return sb.String()
}

// Line renders one event.
func (f *Formatter) Line(cpu int, event *trace.Event) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%#-18x %3d %8d %-32s",
		event.SkbAddr, cpu, event.PID, f.sym(event.Addr))

	if f.output.Timestamp {
		fmt.Fprintf(&sb, " %-16d", event.Timestamp)
	}

	if f.output.Tuple {
		fmt.Fprintf(&sb, " %s", tupleString(&event.Tuple))
	}

	if f.output.Meta {
		fmt.Fprintf(&sb, " %s", metaString(&event.Meta))
	}

	if f.output.Stack && event.PrintStackID >= 0 {
		fmt.Fprintf(&sb, " stack=%d", event.PrintStackID)
	}

	return sb.String()
}

func (f *Formatter) sym(addr uint64) string {
	if f.syms == nil || addr == 0 {
		return fmt.Sprintf("%#x", addr)
	}

	return f.syms.Sym(addr)
}

func tupleString(tuple *trace.Tuple) string {
	proto := protoString(tuple.Proto)

	if tuple.Proto == skbuff.ProtoTCP || tuple.Proto == skbuff.ProtoUDP {
		return fmt.Sprintf("%s:%d > %s:%d %s",
			tuple.Src(), tuple.SrcPort(),
			tuple.Dst(), tuple.DstPort(),
			proto)
	}

	return fmt.Sprintf("%s > %s %s", tuple.Src(), tuple.Dst(), proto)
}

func metaString(meta *trace.Meta) string {
	return fmt.Sprintf("mark=%#x iface=%d len=%d mtu=%d proto=%#04x",
		meta.Mark, meta.Ifindex, meta.Len, meta.MTU, meta.Protocol)
}

func protoString(proto uint8) string {
	switch proto {
	case skbuff.ProtoTCP:
		return "tcp"
	case skbuff.ProtoUDP:
		return "udp"
	case 1:
		return "icmp"
	default:
		return fmt.Sprintf("proto=%d", proto)
	}
}
