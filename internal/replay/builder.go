// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package replay

import (
	"encoding/binary"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"github.com/aibor/skbtrace/internal/skbuff"
)

// Synthetic address space. Descriptor images and packet buffers are placed
// at spaced addresses so reads beyond an image fail instead of bleeding into
// a neighbor.
const (
	baseAddr   = 0xffff_8800_0000_0000
	devAddr    = 0xffff_8800_0000_1000
	packetBase = 0xffff_8800_0001_0000
	addrStride = 0x1_0000
)

// builder synthesizes sk_buff images from raw packets into an [skbuff.Arena].
type builder struct {
	arena  *skbuff.Arena
	layout skbuff.Layout
	mark   uint32
	devSet bool
	count  uint64
}

func newBuilder(layout skbuff.Layout, mark, ifindex, mtu uint32) *builder {
	b := &builder{
		arena:  &skbuff.Arena{},
		layout: layout,
		mark:   mark,
	}

	// A zero device pointer stands for an unresolvable device reference,
	// leaving the meta device fields zeroed.
	if ifindex != 0 || mtu != 0 {
		dev := make([]byte, layout.DevSpan)
		binary.NativeEndian.PutUint32(dev[layout.DevIfindex:], ifindex)
		binary.NativeEndian.PutUint32(dev[layout.DevMTU:], mtu)
		b.arena.Map(devAddr, dev)
		b.devSet = true
	}

	return b
}

// add maps one packet and its descriptor image and returns the descriptor.
func (b *builder) add(data []byte, linkType layers.LinkType) skbuff.Descriptor {
	idx := b.count
	b.count++

	skbAddr := baseAddr + idx*addrStride
	dataAddr := packetBase + idx*addrStride

	l3, l4 := headerOffsets(data, linkType)

	image := make([]byte, b.layout.Span)
	binary.NativeEndian.PutUint32(image[b.layout.Len:], uint32(len(data)))
	binary.NativeEndian.PutUint32(image[b.layout.Mark:], b.mark)
	copy(image[b.layout.Protocol:], etherType(data, linkType))
	binary.NativeEndian.PutUint16(image[b.layout.NetworkHeader:], l3)
	binary.NativeEndian.PutUint16(image[b.layout.TransportHeader:], l4)
	binary.NativeEndian.PutUint64(image[b.layout.Head:], dataAddr)

	if b.devSet {
		binary.NativeEndian.PutUint64(image[b.layout.Dev:], devAddr)
	}

	b.arena.Map(skbAddr, image)
	b.arena.Map(dataAddr, data)

	return skbuff.Descriptor{Addr: skbAddr}
}

// headerOffsets locates the network and transport headers within data. A
// missing transport layer leaves the transport offset at the network offset,
// mirroring partially initialized descriptors.
func headerOffsets(data []byte, linkType layers.LinkType) (uint16, uint16) {
	pkt := gopacket.NewPacket(data, linkType, gopacket.Lazy)

	var (
		off    int
		l3, l4 = -1, -1
	)

	for _, layer := range pkt.Layers() {
		switch layer.LayerType() {
		case layers.LayerTypeIPv4, layers.LayerTypeIPv6:
			l3 = off
		case layers.LayerTypeTCP, layers.LayerTypeUDP:
			l4 = off
		}

		off += len(layer.LayerContents())
	}

	if l3 < 0 {
		l3 = 0
	}

	if l4 < 0 {
		l4 = l3
	}

	return uint16(l3), uint16(l4)
}

// etherType returns the two wire order link protocol bytes of the packet.
func etherType(data []byte, linkType layers.LinkType) []byte {
	pkt := gopacket.NewPacket(data, linkType, gopacket.Lazy)

	net := pkt.NetworkLayer()
	if net == nil {
		return []byte{0, 0}
	}

	switch net.LayerType() {
	case layers.LayerTypeIPv4:
		return []byte{0x08, 0x00}
	case layers.LayerTypeIPv6:
		return []byte{0x86, 0xdd}
	default:
		return []byte{0, 0}
	}
}
