// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package skbuff

import (
	"encoding/binary"
)

// Descriptor is an opaque handle to a live packet descriptor. It is never
// dereferenced directly, all access goes through a [FieldSource].
type Descriptor struct {
	Addr uint64
}

// FieldSource reads sk_buff fields from packet descriptors. Every method
// degrades gracefully: a failed read returns the zero value together with the
// error, and callers are expected to keep going with the zero value.
type FieldSource interface {
	Mark(d Descriptor) (uint32, error)
	Len(d Descriptor) (uint32, error)
	Protocol(d Descriptor) (uint16, error)
	Headers(d Descriptor) (HeaderOffsets, error)
	Device(d Descriptor) (DeviceInfo, error)
}

// Strategy selects how sk_buff fields are read.
type Strategy int

const (
	// StrategyTyped fetches the descriptor as one typed block and decodes
	// fields from it. Available on kernels that expose a stable view of the
	// structure.
	StrategyTyped Strategy = iota
	// StrategyRaw issues one bounded raw read per field. Fallback for older
	// kernels, with per-field failure isolation.
	StrategyRaw
)

// NewFieldSource returns the [FieldSource] for the given strategy, reading
// from mem with the given layout.
func NewFieldSource( //nolint:ireturn
	mem Memory,
	layout Layout,
	strategy Strategy,
) (FieldSource, error) {
	if mem == nil {
		return nil, ErrNoMemory
	}

	switch strategy {
	case StrategyTyped:
		return &typedSource{mem: mem, layout: layout}, nil
	case StrategyRaw:
		return &rawSource{mem: mem, layout: layout}, nil
	default:
		return nil, ErrUnknownStrategy
	}
}

// typedSource reads the whole descriptor span in one go and decodes fields
// from the block. A single unmapped byte in the span fails all fields of that
// read, matching the all-or-nothing semantics of a typed structure fetch.
type typedSource struct {
	mem    Memory
	layout Layout
}

func (s *typedSource) block(d Descriptor) ([]byte, error) {
	b := make([]byte, s.layout.Span)
	if err := s.mem.ReadAt(b, d.Addr); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *typedSource) Mark(d Descriptor) (uint32, error) {
	b, err := s.block(d)
	if err != nil {
		return 0, err
	}

	return binary.NativeEndian.Uint32(b[s.layout.Mark:]), nil
}

func (s *typedSource) Len(d Descriptor) (uint32, error) {
	b, err := s.block(d)
	if err != nil {
		return 0, err
	}

	return binary.NativeEndian.Uint32(b[s.layout.Len:]), nil
}

func (s *typedSource) Protocol(d Descriptor) (uint16, error) {
	b, err := s.block(d)
	if err != nil {
		return 0, err
	}

	return binary.NativeEndian.Uint16(b[s.layout.Protocol:]), nil
}

func (s *typedSource) Headers(d Descriptor) (HeaderOffsets, error) {
	b, err := s.block(d)
	if err != nil {
		return HeaderOffsets{}, err
	}

	return HeaderOffsets{
		Head:      binary.NativeEndian.Uint64(b[s.layout.Head:]),
		Network:   binary.NativeEndian.Uint16(b[s.layout.NetworkHeader:]),
		Transport: binary.NativeEndian.Uint16(b[s.layout.TransportHeader:]),
	}, nil
}

func (s *typedSource) Device(d Descriptor) (DeviceInfo, error) {
	b, err := s.block(d)
	if err != nil {
		return DeviceInfo{}, err
	}

	devAddr := binary.NativeEndian.Uint64(b[s.layout.Dev:])
	if devAddr == 0 {
		return DeviceInfo{}, ErrBadAddress
	}

	dev := make([]byte, s.layout.DevSpan)
	if err := s.mem.ReadAt(dev, devAddr); err != nil {
		return DeviceInfo{}, err
	}

	return DeviceInfo{
		Ifindex: binary.NativeEndian.Uint32(dev[s.layout.DevIfindex:]),
		MTU:     binary.NativeEndian.Uint32(dev[s.layout.DevMTU:]),
	}, nil
}

// rawSource reads each field with its own bounded read. Fields fail
// independently of each other.
type rawSource struct {
	mem    Memory
	layout Layout
}

func (s *rawSource) read32(addr uint64) (uint32, error) {
	var b [4]byte
	if err := s.mem.ReadAt(b[:], addr); err != nil {
		return 0, err
	}

	return binary.NativeEndian.Uint32(b[:]), nil
}

func (s *rawSource) read16(addr uint64) (uint16, error) {
	var b [2]byte
	if err := s.mem.ReadAt(b[:], addr); err != nil {
		return 0, err
	}

	return binary.NativeEndian.Uint16(b[:]), nil
}

func (s *rawSource) read64(addr uint64) (uint64, error) {
	var b [8]byte
	if err := s.mem.ReadAt(b[:], addr); err != nil {
		return 0, err
	}

	return binary.NativeEndian.Uint64(b[:]), nil
}

func (s *rawSource) Mark(d Descriptor) (uint32, error) {
	return s.read32(d.Addr + uint64(s.layout.Mark))
}

func (s *rawSource) Len(d Descriptor) (uint32, error) {
	return s.read32(d.Addr + uint64(s.layout.Len))
}

func (s *rawSource) Protocol(d Descriptor) (uint16, error) {
	return s.read16(d.Addr + uint64(s.layout.Protocol))
}

func (s *rawSource) Headers(d Descriptor) (HeaderOffsets, error) {
	var hdr HeaderOffsets

	head, err := s.read64(d.Addr + uint64(s.layout.Head))
	if err != nil {
		return hdr, err
	}

	l3, err := s.read16(d.Addr + uint64(s.layout.NetworkHeader))
	if err != nil {
		return hdr, err
	}

	l4, err := s.read16(d.Addr + uint64(s.layout.TransportHeader))
	if err != nil {
		return hdr, err
	}

	hdr.Head = head
	hdr.Network = l3
	hdr.Transport = l4

	return hdr, nil
}

func (s *rawSource) Device(d Descriptor) (DeviceInfo, error) {
	devAddr, err := s.read64(d.Addr + uint64(s.layout.Dev))
	if err != nil || devAddr == 0 {
		return DeviceInfo{}, ErrBadAddress
	}

	var info DeviceInfo

	// Device fields fail independently, a torn net_device mapping still
	// yields the readable half.
	if v, err := s.read32(devAddr + uint64(s.layout.DevIfindex)); err == nil {
		info.Ifindex = v
	}

	if v, err := s.read32(devAddr + uint64(s.layout.DevMTU)); err == nil {
		info.MTU = v
	}

	return info, nil
}
