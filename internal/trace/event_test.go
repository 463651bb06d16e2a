// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trace_test

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/skbtrace/internal/trace"
)

func wireAddr(addr string) uint32 {
	v4 := netip.MustParseAddr(addr).As4()

	return binary.NativeEndian.Uint32(v4[:])
}

func wirePort(port uint16) uint16 {
	var b [2]byte

	binary.BigEndian.PutUint16(b[:], port)

	return binary.NativeEndian.Uint16(b[:])
}

func TestEventMarshalRoundTrip(t *testing.T) {
	event := trace.Event{
		PID:       4711,
		Type:      1,
		Addr:      0xffffffff81000000,
		SkbAddr:   0xffff888000001000,
		Timestamp: 123456789,
		Meta: trace.Meta{
			Mark:     0xcafe,
			Ifindex:  2,
			Len:      60,
			MTU:      1500,
			Protocol: 0x0008,
		},
		Tuple: trace.Tuple{
			SAddr: wireAddr("10.0.0.1"),
			DAddr: wireAddr("10.0.0.2"),
			SPort: wirePort(12345),
			DPort: wirePort(80),
			Proto: 6,
		},
		PrintStackID: -1,
	}

	b, err := event.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, b, trace.EventSize, "record size")

	var decoded trace.Event
	require.NoError(t, decoded.UnmarshalBinary(b))
	assert.Equal(t, event, decoded)
}

func TestEventUnmarshalBadSize(t *testing.T) {
	var event trace.Event

	err := event.UnmarshalBinary(make([]byte, trace.EventSize-1))
	assert.ErrorIs(t, err, trace.ErrBadRecordSize)
}

func TestTupleAccessors(t *testing.T) {
	tuple := trace.Tuple{
		SAddr: wireAddr("192.168.1.10"),
		DAddr: wireAddr("1.2.3.4"),
		SPort: wirePort(12345),
		DPort: wirePort(443),
		Proto: 6,
	}

	assert.Equal(t, netip.MustParseAddr("192.168.1.10"), tuple.Src())
	assert.Equal(t, netip.MustParseAddr("1.2.3.4"), tuple.Dst())
	assert.Equal(t, uint16(12345), tuple.SrcPort())
	assert.Equal(t, uint16(443), tuple.DstPort())
}
