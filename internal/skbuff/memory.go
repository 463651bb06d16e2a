// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package skbuff

import (
	"sort"
)

// Memory is a fault-tolerant view of the address space the traced packet
// descriptors live in.
//
// ReadAt copies len(b) bytes starting at addr into b. It must never fault:
// reads of unmapped or partially mapped ranges return an error and the
// contents of b are unspecified. Callers keep their destination at its zero
// value when an error is returned.
type Memory interface {
	ReadAt(b []byte, addr uint64) error
}

type segment struct {
	addr uint64
	data []byte
}

// Arena is a [Memory] built from explicitly mapped segments. It backs replay
// mode and tests, where packet descriptor images are synthesized in process.
//
// Map all segments before handing the Arena to readers. Reads are safe from
// multiple goroutines, mapping concurrently with reads is not.
type Arena struct {
	segs []segment
}

// Map places data at addr. Segments must not overlap.
func (a *Arena) Map(addr uint64, data []byte) {
	a.segs = append(a.segs, segment{addr: addr, data: data})
	sort.Slice(a.segs, func(i, j int) bool {
		return a.segs[i].addr < a.segs[j].addr
	})
}

// ReadAt implements [Memory]. A read that is not fully covered by a single
// mapped segment fails with [ErrBadAddress].
func (a *Arena) ReadAt(b []byte, addr uint64) error {
	idx := sort.Search(len(a.segs), func(i int) bool {
		return a.segs[i].addr > addr
	})
	if idx == 0 {
		return ErrBadAddress
	}

	seg := a.segs[idx-1]
	off := addr - seg.addr

	if off+uint64(len(b)) > uint64(len(seg.data)) {
		return ErrBadAddress
	}

	copy(b, seg.data[off:])

	return nil
}
