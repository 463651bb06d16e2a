// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package skbuff

// Layout describes where the fields of interest live inside a sk_buff image
// and its associated net_device. Offsets differ across kernel releases, so
// the layout is injected at initialization instead of being baked into the
// readers.
type Layout struct {
	// sk_buff field offsets.
	Dev             uint32
	Len             uint32
	Mark            uint32
	Protocol        uint32
	NetworkHeader   uint32
	TransportHeader uint32
	Head            uint32

	// net_device field offsets.
	DevIfindex uint32
	DevMTU     uint32

	// Span is the number of bytes covering all sk_buff fields above. Bulk
	// reads fetch this many bytes starting at the descriptor address.
	Span uint32

	// DevSpan is the same for the net_device fields.
	DevSpan uint32
}

// DefaultLayout returns the canonical descriptor layout. Replay mode builds
// its images with it; live tracing may substitute a layout detected for the
// running kernel.
func DefaultLayout() Layout {
	return Layout{
		Dev:             16,
		Len:             112,
		Mark:            168,
		Protocol:        176,
		NetworkHeader:   178,
		TransportHeader: 180,
		Head:            200,
		DevIfindex:      224,
		DevMTU:          264,
		Span:            208,
		DevSpan:         268,
	}
}

// HeaderOffsets locates the protocol headers of a packet: the buffer head
// pointer plus the relative offsets of the L3 and L4 headers.
type HeaderOffsets struct {
	Head      uint64
	Network   uint16
	Transport uint16
}

// L3Addr returns the absolute address of the network header.
func (h HeaderOffsets) L3Addr() uint64 {
	return h.Head + uint64(h.Network)
}

// L4Addr returns the absolute address of the transport header.
func (h HeaderOffsets) L4Addr() uint64 {
	return h.Head + uint64(h.Transport)
}

// DeviceInfo is the subset of net_device fields reported in events.
type DeviceInfo struct {
	Ifindex uint32
	MTU     uint32
}
