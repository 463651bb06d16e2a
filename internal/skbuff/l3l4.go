// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package skbuff

import (
	"encoding/binary"
)

// L4 protocol numbers of interest. Only TCP and UDP carry ports the reader
// understands.
const (
	ProtoTCP uint8 = 6
	ProtoUDP uint8 = 17
)

const (
	ipv4HeaderLen  = 20
	ipv4ProtoOff   = 9
	ipv4SrcAddrOff = 12
	ipv4DstAddrOff = 16
)

// IPv4 holds the IPv4 header fields used for filtering and tuple output.
// Addresses keep their on-the-wire byte order.
type IPv4 struct {
	Proto uint8
	SAddr uint32
	DAddr uint32
}

// ReadIPv4 extracts the IPv4 header a packet's network header offset points
// at. It reports false if the header is unreadable or not IP version 4.
// Headers may be partially initialized on some call paths, so a false result
// is common and not an error.
func ReadIPv4(mem Memory, hdr HeaderOffsets) (IPv4, bool) {
	var first [1]byte
	if err := mem.ReadAt(first[:], hdr.L3Addr()); err != nil {
		return IPv4{}, false
	}

	if first[0]>>4 != 4 {
		return IPv4{}, false
	}

	var b [ipv4HeaderLen]byte
	if err := mem.ReadAt(b[:], hdr.L3Addr()); err != nil {
		return IPv4{}, false
	}

	return IPv4{
		Proto: b[ipv4ProtoOff],
		SAddr: binary.NativeEndian.Uint32(b[ipv4SrcAddrOff:]),
		DAddr: binary.NativeEndian.Uint32(b[ipv4DstAddrOff:]),
	}, true
}

// ReadL4Proto reads the L4 protocol byte regardless of IP version. Tuple
// population wants the protocol even for packets the IPv4 reader rejects.
func ReadL4Proto(mem Memory, hdr HeaderOffsets) uint8 {
	var b [1]byte
	if err := mem.ReadAt(b[:], hdr.L3Addr()+ipv4ProtoOff); err != nil {
		return 0
	}

	return b[0]
}

// Ports are the first two 16 bit fields of a TCP or UDP header, in wire
// byte order. Both protocols share this prefix layout.
type Ports struct {
	Source uint16
	Dest   uint16
}

// ReadPorts extracts source and destination port from the transport header.
// It reports false for protocols other than TCP and UDP and for unreadable
// headers.
func ReadPorts(mem Memory, hdr HeaderOffsets, proto uint8) (Ports, bool) {
	if proto != ProtoTCP && proto != ProtoUDP {
		return Ports{}, false
	}

	var b [4]byte
	if err := mem.ReadAt(b[:], hdr.L4Addr()); err != nil {
		return Ports{}, false
	}

	return Ports{
		Source: binary.NativeEndian.Uint16(b[0:]),
		Dest:   binary.NativeEndian.Uint16(b[2:]),
	}, true
}
