// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trace

import (
	"bytes"
	"sync/atomic"
)

// DumpSlotSize is the size of one pre-sized dump text buffer.
const DumpSlotSize = 2048

// DefaultDumpCapacity is the dump ring capacity used when none is given.
const DefaultDumpCapacity = 256

// DumpRing is a fixed pool of reusable text buffers for full descriptor
// dumps. Writers claim the next slot by atomic increment modulo the capacity,
// overwriting the oldest dump on wrap. A slot can be overwritten while the
// consumer still reads it, that race is accepted best-effort semantics.
type DumpRing struct {
	next  atomic.Uint64
	slots [][]byte
}

// NewDumpRing returns a ring with the given number of slots.
func NewDumpRing(capacity int) *DumpRing {
	if capacity <= 0 {
		capacity = DefaultDumpCapacity
	}

	slots := make([][]byte, capacity)
	for idx := range slots {
		slots[idx] = make([]byte, DumpSlotSize)
	}

	return &DumpRing{slots: slots}
}

// Claim reserves the next slot and returns its id. No two concurrent callers
// observe the same id within one wrap of the ring.
func (r *DumpRing) Claim() uint64 {
	return (r.next.Add(1) - 1) % uint64(len(r.slots))
}

// Put writes text into the slot with the given id, truncated to the slot
// size. The remainder of the slot is zeroed.
func (r *DumpRing) Put(id uint64, text []byte) {
	slot := r.slots[id%uint64(len(r.slots))]

	n := copy(slot, text)
	for idx := n; idx < len(slot); idx++ {
		slot[idx] = 0
	}
}

// Read returns a copy of the text stored in the slot with the given id, or
// nil for ids outside the ring.
func (r *DumpRing) Read(id uint64) []byte {
	if id >= uint64(len(r.slots)) {
		return nil
	}

	slot := r.slots[id]

	end := bytes.IndexByte(slot, 0)
	if end < 0 {
		end = len(slot)
	}

	return bytes.Clone(slot[:end])
}
