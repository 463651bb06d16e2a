// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trace

import (
	"hash/maphash"
	"runtime"
	"sync/atomic"
	"unsafe"
)

// MaxStackDepth is the number of return addresses a captured call stack can
// hold at most.
const MaxStackDepth = 50

// DefaultStackCapacity is the stack table capacity used when none is given.
const DefaultStackCapacity = 256

// StackTable maps small ids to captured call stacks. Ids are derived from a
// hash of the return addresses, the fast comparison mode: two different
// stacks can collide on an id, in which case the newer capture wins. Eviction
// is implicit in the indexing, an id slot is overwritten whenever a capture
// hashes onto it.
type StackTable struct {
	seed    maphash.Seed
	entries []atomic.Pointer[[]uint64]
}

// NewStackTable returns a table with the given capacity.
func NewStackTable(capacity int) *StackTable {
	if capacity <= 0 {
		capacity = DefaultStackCapacity
	}

	return &StackTable{
		seed:    maphash.MakeSeed(),
		entries: make([]atomic.Pointer[[]uint64], capacity),
	}
}

// Capture records the current call stack, skipping the given number of
// innermost frames, and returns its id. It returns -1 if no stack could be
// captured.
func (t *StackTable) Capture(skip int) int64 {
	var pcs [MaxStackDepth]uintptr

	n := runtime.Callers(skip+2, pcs[:])
	if n == 0 {
		return -1
	}

	stack := make([]uint64, n)
	for idx, pc := range pcs[:n] {
		stack[idx] = uint64(pc)
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(&stack[0])), n*8)
	id := int64(maphash.Bytes(t.seed, raw) % uint64(len(t.entries)))

	t.entries[id].Store(&stack)

	return id
}

// Lookup returns the return addresses stored under id, or nil if the slot
// was never written. The returned slice must not be modified.
func (t *StackTable) Lookup(id int64) []uint64 {
	if id < 0 || id >= int64(len(t.entries)) {
		return nil
	}

	stack := t.entries[id].Load()
	if stack == nil {
		return nil
	}

	return *stack
}
