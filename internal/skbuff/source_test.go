// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package skbuff_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/skbtrace/internal/skbuff"
)

const (
	testSkbAddr  = 0x1000
	testDevAddr  = 0x4000
	testHeadAddr = 0x5000
)

// testImage builds a descriptor image with known field values.
func testImage(layout skbuff.Layout, devAddr uint64) []byte {
	image := make([]byte, layout.Span)

	binary.NativeEndian.PutUint32(image[layout.Len:], 1500)
	binary.NativeEndian.PutUint32(image[layout.Mark:], 0xdead)
	copy(image[layout.Protocol:], []byte{0x08, 0x00})
	binary.NativeEndian.PutUint16(image[layout.NetworkHeader:], 14)
	binary.NativeEndian.PutUint16(image[layout.TransportHeader:], 34)
	binary.NativeEndian.PutUint64(image[layout.Head:], testHeadAddr)
	binary.NativeEndian.PutUint64(image[layout.Dev:], devAddr)

	return image
}

func testDevImage(layout skbuff.Layout) []byte {
	dev := make([]byte, layout.DevSpan)

	binary.NativeEndian.PutUint32(dev[layout.DevIfindex:], 7)
	binary.NativeEndian.PutUint32(dev[layout.DevMTU:], 1500)

	return dev
}

func strategies() map[string]skbuff.Strategy {
	return map[string]skbuff.Strategy{
		"typed": skbuff.StrategyTyped,
		"raw":   skbuff.StrategyRaw,
	}
}

func TestNewFieldSource(t *testing.T) {
	layout := skbuff.DefaultLayout()

	_, err := skbuff.NewFieldSource(nil, layout, skbuff.StrategyTyped)
	assert.ErrorIs(t, err, skbuff.ErrNoMemory, "nil memory")

	_, err = skbuff.NewFieldSource(&skbuff.Arena{}, layout, 4711)
	assert.ErrorIs(t, err, skbuff.ErrUnknownStrategy, "unknown strategy")
}

func TestFieldSourceReads(t *testing.T) {
	layout := skbuff.DefaultLayout()

	arena := &skbuff.Arena{}
	arena.Map(testSkbAddr, testImage(layout, testDevAddr))
	arena.Map(testDevAddr, testDevImage(layout))

	d := skbuff.Descriptor{Addr: testSkbAddr}

	for name, strategy := range strategies() {
		t.Run(name, func(t *testing.T) {
			src, err := skbuff.NewFieldSource(arena, layout, strategy)
			require.NoError(t, err)

			mark, err := src.Mark(d)
			require.NoError(t, err)
			assert.Equal(t, uint32(0xdead), mark, "mark")

			length, err := src.Len(d)
			require.NoError(t, err)
			assert.Equal(t, uint32(1500), length, "len")

			proto, err := src.Protocol(d)
			require.NoError(t, err)
			expected := binary.NativeEndian.Uint16([]byte{0x08, 0x00})
			assert.Equal(t, expected, proto, "protocol")

			hdr, err := src.Headers(d)
			require.NoError(t, err)
			assert.Equal(t, uint64(testHeadAddr), hdr.Head, "head")
			assert.Equal(t, uint16(14), hdr.Network, "network header")
			assert.Equal(t, uint16(34), hdr.Transport, "transport header")

			dev, err := src.Device(d)
			require.NoError(t, err)
			assert.Equal(t, uint32(7), dev.Ifindex, "ifindex")
			assert.Equal(t, uint32(1500), dev.MTU, "mtu")
		})
	}
}

func TestFieldSourceUnmappedDescriptor(t *testing.T) {
	layout := skbuff.DefaultLayout()
	d := skbuff.Descriptor{Addr: testSkbAddr}

	for name, strategy := range strategies() {
		t.Run(name, func(t *testing.T) {
			src, err := skbuff.NewFieldSource(&skbuff.Arena{}, layout, strategy)
			require.NoError(t, err)

			mark, err := src.Mark(d)
			assert.Error(t, err)
			assert.Zero(t, mark, "failed read yields zero value")

			_, err = src.Headers(d)
			assert.Error(t, err)
		})
	}
}

func TestFieldSourceNullDevice(t *testing.T) {
	layout := skbuff.DefaultLayout()

	arena := &skbuff.Arena{}
	arena.Map(testSkbAddr, testImage(layout, 0))

	d := skbuff.Descriptor{Addr: testSkbAddr}

	for name, strategy := range strategies() {
		t.Run(name, func(t *testing.T) {
			src, err := skbuff.NewFieldSource(arena, layout, strategy)
			require.NoError(t, err)

			dev, err := src.Device(d)
			assert.Error(t, err)
			assert.Zero(t, dev, "device fields stay zero")
		})
	}
}

// The typed source fails all fields of a torn descriptor mapping, the raw
// source keeps the fields that are still readable.
func TestFieldSourceFailureIsolation(t *testing.T) {
	layout := skbuff.DefaultLayout()

	arena := &skbuff.Arena{}
	arena.Map(testSkbAddr, testImage(layout, 0)[:layout.Mark])

	d := skbuff.Descriptor{Addr: testSkbAddr}

	typed, err := skbuff.NewFieldSource(arena, layout, skbuff.StrategyTyped)
	require.NoError(t, err)

	_, err = typed.Len(d)
	assert.Error(t, err, "typed len fails on torn mapping")

	raw, err := skbuff.NewFieldSource(arena, layout, skbuff.StrategyRaw)
	require.NoError(t, err)

	length, err := raw.Len(d)
	require.NoError(t, err, "raw len still readable")
	assert.Equal(t, uint32(1500), length)

	_, err = raw.Mark(d)
	assert.Error(t, err, "raw mark is beyond the mapping")
}

// Unreadable net_device halves degrade per field for the raw source.
func TestFieldSourceTornDevice(t *testing.T) {
	layout := skbuff.DefaultLayout()

	arena := &skbuff.Arena{}
	arena.Map(testSkbAddr, testImage(layout, testDevAddr))
	arena.Map(testDevAddr, testDevImage(layout)[:layout.DevMTU])

	d := skbuff.Descriptor{Addr: testSkbAddr}

	typed, err := skbuff.NewFieldSource(arena, layout, skbuff.StrategyTyped)
	require.NoError(t, err)

	_, err = typed.Device(d)
	assert.Error(t, err, "typed device fails on torn mapping")

	raw, err := skbuff.NewFieldSource(arena, layout, skbuff.StrategyRaw)
	require.NoError(t, err)

	dev, err := raw.Device(d)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), dev.Ifindex, "readable half kept")
	assert.Zero(t, dev.MTU, "unreadable half zero")
}
