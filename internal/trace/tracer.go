// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package trace implements the capture pipeline of skbtrace: configuration
// driven filtering, protocol aware field extraction, event assembly and
// multiplexed entry points for the supported argument slots.
//
// Invocations run concurrently on all processors. The pipeline never blocks,
// never allocates beyond the event record it assembles, and never surfaces an
// error to the probed call path: every failure degrades to reporting less.
package trace

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aibor/skbtrace/internal/skbuff"
)

// NumSlots is the number of supported packet descriptor argument positions.
const NumSlots = 5

// CallContext is the raw invocation context a probe site passes in: the
// identity of the interrupted task, the executing processor, the probed
// instruction address and the traced function's first five argument values.
type CallContext struct {
	PID  uint32
	CPU  int
	IP   uint64
	Args [NumSlots]uint64
}

// Options configure a [Tracer].
type Options struct {
	// Memory is the address space packet descriptors are read from.
	// Required.
	Memory skbuff.Memory
	// Sink receives the serialized event records. Required.
	Sink Sink
	// Layout overrides the descriptor field layout. The zero value selects
	// [skbuff.DefaultLayout].
	Layout skbuff.Layout
	// Strategy selects the descriptor read strategy, see
	// [skbuff.DetectStrategy].
	Strategy skbuff.Strategy
	// EventType is the type discriminator stamped into every event.
	EventType uint32
	// StackCapacity and DumpCapacity size the side tables. Zero selects the
	// defaults.
	StackCapacity int
	DumpCapacity  int
	// Now overrides the event timestamp source, for tests.
	Now func() uint64
}

// Tracer is the shared pipeline behind all entry points. All state is fixed
// at construction except the configuration record, which is swapped whole.
type Tracer struct {
	mem    skbuff.Memory
	src    skbuff.FieldSource
	sink   Sink
	stacks *StackTable
	dumps  *DumpRing
	typ    uint32
	now    func() uint64

	cfg      ConfigStore
	counters [counterKeyCount]atomic.Uint64
}

// New returns a [Tracer] reading descriptors through the given memory and
// emitting into the given sink.
func New(opts Options) (*Tracer, error) {
	if opts.Sink == nil {
		return nil, ErrNoSink
	}

	layout := opts.Layout
	if layout.Span == 0 {
		layout = skbuff.DefaultLayout()
	}

	src, err := skbuff.NewFieldSource(opts.Memory, layout, opts.Strategy)
	if err != nil {
		return nil, fmt.Errorf("field source: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = func() uint64 { return uint64(time.Now().UnixNano()) }
	}

	return &Tracer{
		mem:    opts.Memory,
		src:    src,
		sink:   opts.Sink,
		stacks: NewStackTable(opts.StackCapacity),
		dumps:  NewDumpRing(opts.DumpCapacity),
		typ:    opts.EventType,
		now:    now,
	}, nil
}

// InstallConfig makes a copy of cfg the live filter configuration.
func (t *Tracer) InstallConfig(cfg *Config) {
	t.cfg.Install(cfg)
}

// ClearConfig removes the live configuration. Invocations emit unfiltered,
// metadata-free events until a new one is installed.
func (t *Tracer) ClearConfig() {
	t.cfg.Clear()
}

// Stacks returns the stack trace side table referenced by event stack ids.
func (t *Tracer) Stacks() *StackTable {
	return t.stacks
}

// Dumps returns the dump ring referenced by event dump slot ids.
func (t *Tracer) Dumps() *DumpRing {
	return t.dumps
}

// HandleSkb1 is the entry point for traced functions that carry the packet
// descriptor in their first argument.
func (t *Tracer) HandleSkb1(ctx *CallContext) {
	t.handleEverything(ctx, ctx.Args[0])
}

// HandleSkb2 is the entry point for the second argument slot.
func (t *Tracer) HandleSkb2(ctx *CallContext) {
	t.handleEverything(ctx, ctx.Args[1])
}

// HandleSkb3 is the entry point for the third argument slot.
func (t *Tracer) HandleSkb3(ctx *CallContext) {
	t.handleEverything(ctx, ctx.Args[2])
}

// HandleSkb4 is the entry point for the fourth argument slot.
func (t *Tracer) HandleSkb4(ctx *CallContext) {
	t.handleEverything(ctx, ctx.Args[3])
}

// HandleSkb5 is the entry point for the fifth argument slot.
func (t *Tracer) HandleSkb5(ctx *CallContext) {
	t.handleEverything(ctx, ctx.Args[4])
}

// Handler returns the entry point for the given argument slot, 1 through 5.
func (t *Tracer) Handler(slot int) (func(*CallContext), error) {
	switch slot {
	case 1:
		return t.HandleSkb1, nil
	case 2:
		return t.HandleSkb2, nil
	case 3:
		return t.HandleSkb3, nil
	case 4:
		return t.HandleSkb4, nil
	case 5:
		return t.HandleSkb5, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrBadSlot, slot)
	}
}

// handleEverything runs the shared pipeline for one invocation. Without an
// installed configuration the event is emitted unfiltered with only the
// always-present fields set, which keeps the probe usable for pure
// call-occurrence tracing.
func (t *Tracer) handleEverything(ctx *CallContext, skbAddr uint64) {
	t.count(CounterKeyInvoked)

	var event Event

	d := skbuff.Descriptor{Addr: skbAddr}

	if cfg := t.cfg.Load(); cfg != nil {
		if !t.filter(d, cfg) {
			t.count(CounterKeyFiltered)
			return
		}

		t.setOutput(d, &event, cfg)
	}

	event.PID = ctx.PID
	event.Type = t.typ
	event.Addr = ctx.IP
	event.SkbAddr = skbAddr
	event.Timestamp = t.now()

	rec, err := event.MarshalBinary()
	if err != nil {
		return
	}

	if !t.sink.Emit(ctx.CPU, rec) {
		t.count(CounterKeyLost)
		return
	}

	t.count(CounterKeyEmitted)
}
