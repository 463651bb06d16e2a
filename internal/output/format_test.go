// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package output_test

import (
	"encoding/binary"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/skbtrace/internal/output"
	"github.com/aibor/skbtrace/internal/trace"
)

func wireAddr(tb testing.TB, addr string) uint32 {
	tb.Helper()

	v4 := netip.MustParseAddr(addr).As4()

	return binary.NativeEndian.Uint32(v4[:])
}

func wirePort(port uint16) uint16 {
	var b [2]byte

	binary.BigEndian.PutUint16(b[:], port)

	return binary.NativeEndian.Uint16(b[:])
}

func testEvent(tb testing.TB) *trace.Event {
	tb.Helper()

	return &trace.Event{
		PID:       4711,
		SkbAddr:   0xffff888000010000,
		Addr:      0xffffffff81234570,
		Timestamp: 123456789,
		Meta: trace.Meta{
			Mark:    0xcafe,
			Ifindex: 3,
			Len:     60,
			MTU:     1500,
		},
		Tuple: trace.Tuple{
			SAddr: wireAddr(tb, "10.0.0.1"),
			DAddr: wireAddr(tb, "10.0.0.2"),
			SPort: wirePort(12345),
			DPort: wirePort(443),
			Proto: 6,
		},
		PrintStackID: 42,
	}
}

func TestFormatterLine(t *testing.T) {
	syms, err := output.ParseKallsyms(strings.NewReader(
		"ffffffff81234560 T ip_rcv\n"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		syms     *output.Kallsyms
		output   trace.Outputs
		contains []string
		excludes []string
	}{
		{
			name:     "base columns",
			contains: []string{"0xffff888000010000", "4711", "0xffffffff81234570"},
			excludes: []string{"stack=", "mark=", ">"},
		},
		{
			name:     "resolved symbol",
			syms:     syms,
			contains: []string{"ip_rcv+0x10"},
		},
		{
			name:     "timestamp",
			output:   trace.Outputs{Timestamp: true},
			contains: []string{"123456789"},
		},
		{
			name:     "tuple",
			output:   trace.Outputs{Tuple: true},
			contains: []string{"10.0.0.1:12345 > 10.0.0.2:443 tcp"},
		},
		{
			name:     "meta",
			output:   trace.Outputs{Meta: true},
			contains: []string{"mark=0xcafe", "iface=3", "len=60", "mtu=1500"},
		},
		{
			name:     "stack",
			output:   trace.Outputs{Stack: true},
			contains: []string{"stack=42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := output.NewFormatter(tt.syms, tt.output)
			line := formatter.Line(2, testEvent(t))

			for _, want := range tt.contains {
				assert.Contains(t, line, want)
			}

			for _, unwanted := range tt.excludes {
				assert.NotContains(t, line, unwanted)
			}
		})
	}
}

func TestFormatterLineNoStackCaptured(t *testing.T) {
	formatter := output.NewFormatter(nil, trace.Outputs{Stack: true})

	event := testEvent(t)
	event.PrintStackID = -1

	assert.NotContains(t, formatter.Line(0, event), "stack=")
}

func TestFormatterLineProtoWithoutPorts(t *testing.T) {
	formatter := output.NewFormatter(nil, trace.Outputs{Tuple: true})

	event := testEvent(t)
	event.Tuple.Proto = 1

	assert.Contains(t, formatter.Line(0, event), "10.0.0.1 > 10.0.0.2 icmp")
}

func TestFormatterHeader(t *testing.T) {
	formatter := output.NewFormatter(nil, trace.Outputs{Timestamp: true})

	header := formatter.Header()
	assert.Contains(t, header, "SKB")
	assert.Contains(t, header, "FUNC")
	assert.Contains(t, header, "TIMESTAMP")
}
