// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trace

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"
)

// EventSize is the size of the packed binary event record.
const EventSize = 88

// Meta is the device and queue related metadata snapshot of an event.
// Populated only when requested, zero otherwise.
type Meta struct {
	Mark     uint32
	Ifindex  uint32
	Len      uint32
	MTU      uint32
	Protocol uint16
	Pad      uint16
}

// Tuple is the flow tuple snapshot of an event. Addresses and ports keep
// their wire byte order, use the accessors for display values. Only IPv4 is
// parsed, other packets carry at most the protocol byte.
type Tuple struct {
	SAddr uint32
	DAddr uint32
	SPort uint16
	DPort uint16
	Proto uint8
	Pad   [7]uint8
}

// Src returns the source address.
func (t *Tuple) Src() netip.Addr {
	return addrFromWire32(t.SAddr)
}

// Dst returns the destination address.
func (t *Tuple) Dst() netip.Addr {
	return addrFromWire32(t.DAddr)
}

// SrcPort returns the source port in host order.
func (t *Tuple) SrcPort() uint16 {
	return wireToHost16(t.SPort)
}

// DstPort returns the destination port in host order.
func (t *Tuple) DstPort() uint16 {
	return wireToHost16(t.DPort)
}

func addrFromWire32(v uint32) netip.Addr {
	var b [4]byte

	binary.NativeEndian.PutUint32(b[:], v)

	return netip.AddrFrom4(b)
}

// Event is the unit of output. One record is assembled per accepted
// invocation, serialized and handed off immediately.
//
// PrintSkbID is zero when no dump was taken. The zero value is ambiguous with
// dump slot zero, a quirk kept for record layout compatibility.
type Event struct {
	PID          uint32
	Type         uint32
	Addr         uint64
	SkbAddr      uint64
	Timestamp    uint64
	PrintSkbID   uint64
	Meta         Meta
	Tuple        Tuple
	PrintStackID int64
}

// MarshalBinary encodes the packed event record.
func (e *Event) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, EventSize))
	if err := binary.Write(buf, binary.NativeEndian, e); err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a packed event record, as read back from the event
// channel or a kernel perf buffer.
func (e *Event) UnmarshalBinary(b []byte) error {
	if len(b) < EventSize {
		return fmt.Errorf("%w: %d bytes", ErrBadRecordSize, len(b))
	}

	if err := binary.Read(bytes.NewReader(b), binary.NativeEndian, e); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	return nil
}
