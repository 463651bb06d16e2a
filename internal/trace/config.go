// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trace

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"sync/atomic"
)

// ConfigSize is the size of the packed binary configuration record.
const ConfigSize = 48

// AddrUnion is the 16 byte address slot of the configuration record. It holds
// either an IPv4 address in the first four bytes or a full IPv6 address, both
// in wire byte order. The all-zero value is the wildcard.
type AddrUnion [16]byte

// AddrUnionFrom4 stores an IPv4 address in the union.
func AddrUnionFrom4(addr netip.Addr) AddrUnion {
	var u AddrUnion

	v4 := addr.As4()
	copy(u[:4], v4[:])

	return u
}

// V4 returns the IPv4 half of the union as the raw value descriptor reads
// compare against.
func (u AddrUnion) V4() uint32 {
	return binary.NativeEndian.Uint32(u[:4])
}

// IsZero reports whether the union is the wildcard.
func (u AddrUnion) IsZero() bool {
	return u == AddrUnion{}
}

// Outputs are the per-event output toggles. Each one independently enables an
// optional block of the emitted event.
type Outputs struct {
	Timestamp bool
	Meta      bool
	Tuple     bool
	Skb       bool
	Stack     bool
}

// Config is the filter configuration record. It is written once by the
// controller before tracing starts and read on every invocation. Zero fields
// are wildcards, the zero Config matches everything.
//
// Ports are kept in wire byte order so the filter can compare them against
// raw header reads, use [Config.SetSPort] and [Config.SetDPort].
type Config struct {
	Mark  uint32
	IPv6  bool
	SAddr AddrUnion
	DAddr AddrUnion
	Proto uint8
	SPort uint16
	DPort uint16

	Output Outputs
}

// SetSAddr sets the source address filter. Only IPv4 addresses are supported.
func (c *Config) SetSAddr(addr netip.Addr) error {
	if !addr.Is4() {
		return fmt.Errorf("%w: %s", ErrNotIPv4, addr)
	}

	c.SAddr = AddrUnionFrom4(addr)

	return nil
}

// SetDAddr sets the destination address filter. Only IPv4 addresses are
// supported.
func (c *Config) SetDAddr(addr netip.Addr) error {
	if !addr.Is4() {
		return fmt.Errorf("%w: %s", ErrNotIPv4, addr)
	}

	c.DAddr = AddrUnionFrom4(addr)

	return nil
}

// SetSPort sets the source port filter from a host order port number.
func (c *Config) SetSPort(port uint16) {
	c.SPort = hostToWire16(port)
}

// SetDPort sets the destination port filter from a host order port number.
func (c *Config) SetDPort(port uint16) {
	c.DPort = hostToWire16(port)
}

// tupleWildcard reports whether all tuple related fields are unset, in which
// case the filter passes without parsing any headers.
func (c *Config) tupleWildcard() bool {
	return c.Proto == 0 &&
		c.SAddr.IsZero() && c.DAddr.IsZero() &&
		c.SPort == 0 && c.DPort == 0
}

// MarshalBinary encodes the packed configuration record, the layout the
// kernel side consumes as the sole entry of its single-slot config map.
func (c *Config) MarshalBinary() ([]byte, error) {
	b := make([]byte, ConfigSize)

	binary.NativeEndian.PutUint32(b[0:], c.Mark)
	b[4] = b2u8(c.IPv6)
	copy(b[5:21], c.SAddr[:])
	copy(b[21:37], c.DAddr[:])
	b[37] = c.Proto
	binary.NativeEndian.PutUint16(b[38:], c.SPort)
	binary.NativeEndian.PutUint16(b[40:], c.DPort)
	b[42] = b2u8(c.Output.Timestamp)
	b[43] = b2u8(c.Output.Meta)
	b[44] = b2u8(c.Output.Tuple)
	b[45] = b2u8(c.Output.Skb)
	b[46] = b2u8(c.Output.Stack)

	return b, nil
}

// UnmarshalBinary decodes a packed configuration record.
func (c *Config) UnmarshalBinary(b []byte) error {
	if len(b) != ConfigSize {
		return fmt.Errorf("%w: %d bytes", ErrBadRecordSize, len(b))
	}

	c.Mark = binary.NativeEndian.Uint32(b[0:])
	c.IPv6 = b[4] != 0
	copy(c.SAddr[:], b[5:21])
	copy(c.DAddr[:], b[21:37])
	c.Proto = b[37]
	c.SPort = binary.NativeEndian.Uint16(b[38:])
	c.DPort = binary.NativeEndian.Uint16(b[40:])
	c.Output = Outputs{
		Timestamp: b[42] != 0,
		Meta:      b[43] != 0,
		Tuple:     b[44] != 0,
		Skb:       b[45] != 0,
		Stack:     b[46] != 0,
	}

	return nil
}

func b2u8(v bool) uint8 {
	if v {
		return 1
	}

	return 0
}

// hostToWire16 converts a host order value into the representation a native
// decode of the wire bytes yields.
func hostToWire16(v uint16) uint16 {
	var b [2]byte

	binary.BigEndian.PutUint16(b[:], v)

	return binary.NativeEndian.Uint16(b[:])
}

// wireToHost16 is the inverse of hostToWire16.
func wireToHost16(v uint16) uint16 {
	var b [2]byte

	binary.NativeEndian.PutUint16(b[:], v)

	return binary.BigEndian.Uint16(b[:])
}

// ConfigStore is the single-slot configuration table. The controller installs
// a complete record, invocations on any CPU observe either the previous or
// the new record, never a partial write.
type ConfigStore struct {
	ptr atomic.Pointer[Config]
}

// Install makes a copy of cfg the new live configuration.
func (s *ConfigStore) Install(cfg *Config) {
	if cfg == nil {
		s.ptr.Store(nil)
		return
	}

	clone := *cfg
	s.ptr.Store(&clone)
}

// Clear removes the live configuration. Invocations fall back to unfiltered
// call-occurrence tracing.
func (s *ConfigStore) Clear() {
	s.ptr.Store(nil)
}

// Load returns the live configuration, or nil if none is installed. The
// returned record must not be modified.
func (s *ConfigStore) Load() *Config {
	return s.ptr.Load()
}
