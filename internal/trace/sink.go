// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trace

import (
	"runtime"
	"sync/atomic"
)

// Sink is the outbound event channel. Emit hands off one serialized event
// record for the given processor and reports whether it was accepted.
// Delivery is best effort: a full sink drops the record and the hot path
// never blocks or retries.
type Sink interface {
	Emit(cpu int, rec []byte) bool
}

// PerCPUSink delivers records through one bounded queue per processor, the
// userspace rendering of a per-CPU perf buffer. Emit takes ownership of rec.
type PerCPUSink struct {
	queues []chan []byte
	lost   atomic.Uint64
}

// NewPerCPUSink returns a sink with one queue of the given depth per cpus.
// Zero values select runtime.NumCPU and a default depth.
func NewPerCPUSink(cpus, depth int) *PerCPUSink {
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}

	if depth <= 0 {
		depth = 256
	}

	queues := make([]chan []byte, cpus)
	for idx := range queues {
		queues[idx] = make(chan []byte, depth)
	}

	return &PerCPUSink{queues: queues}
}

// CPUs returns the number of per-processor queues.
func (s *PerCPUSink) CPUs() int {
	return len(s.queues)
}

// Emit implements [Sink].
func (s *PerCPUSink) Emit(cpu int, rec []byte) bool {
	if cpu < 0 {
		cpu = 0
	}

	select {
	case s.queues[cpu%len(s.queues)] <- rec:
		return true
	default:
		s.lost.Add(1)
		return false
	}
}

// Poll returns the next record of the given processor's queue without
// blocking. It reports false if the queue is empty.
func (s *PerCPUSink) Poll(cpu int) ([]byte, bool) {
	select {
	case rec := <-s.queues[cpu%len(s.queues)]:
		return rec, true
	default:
		return nil, false
	}
}

// Lost returns the number of records dropped due to full queues.
func (s *PerCPUSink) Lost() uint64 {
	return s.lost.Load()
}
