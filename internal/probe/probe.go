// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package probe attaches the compiled capture programs to live kernel
// functions and drains their event output. Which functions to hook and at
// which argument slot is entirely up to the caller, the probe itself only
// binds the chosen entry point variant.
package probe

import (
	"fmt"
	"os"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/perf"
	"github.com/cilium/ebpf/rlimit"
	"go.uber.org/zap"

	"github.com/aibor/skbtrace/internal/trace"
)

// Object symbol names. Must match the actual symbols of the compiled
// collection.
const (
	configMapName = "cfg_map"
	eventsMapName = "events"
	stacksMapName = "print_stack_map"
	dumpsMapName  = "print_skb_map"

	progNamePrefix = "kprobe_skb_"
)

// Target names one kernel function to hook and the argument slot its packet
// descriptor is passed in.
type Target struct {
	FuncName string
	Slot     int
}

// Options configure [Attach].
type Options struct {
	// ObjectPath is the compiled eBPF collection to load. Required.
	ObjectPath string
	// Targets are the kernel functions to hook. At least one is required.
	Targets []Target
	// Config is installed into the collection's single-slot config map
	// before any program attaches. Without it the probes emit unfiltered
	// events.
	Config *trace.Config
	// PerCPUBuffer is the per processor event buffer size in bytes. Zero
	// selects 64 pages.
	PerCPUBuffer int
	// Logger for delivery diagnostics. Defaults to a nop logger.
	Logger *zap.Logger
}

// Record is one decoded event together with the processor it was emitted on.
type Record struct {
	CPU   int
	Event trace.Event
}

// Probe is a set of attached capture programs.
type Probe struct {
	coll   *ebpf.Collection
	links  []link.Link
	reader *perf.Reader
	logger *zap.Logger
}

// Attach loads the collection, installs the configuration and hooks all
// targets.
func Attach(opts Options) (*Probe, error) {
	switch {
	case opts.ObjectPath == "":
		return nil, ErrNoObject
	case len(opts.Targets) == 0:
		return nil, ErrNoTargets
	}

	for _, target := range opts.Targets {
		if target.Slot < 1 || target.Slot > trace.NumSlots {
			return nil, fmt.Errorf("%w: %s:%d",
				ErrBadSlot, target.FuncName, target.Slot)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := rlimit.RemoveMemlock(); err != nil {
		return nil, fmt.Errorf("remove memlock: %w", err)
	}

	spec, err := ebpf.LoadCollectionSpec(opts.ObjectPath)
	if err != nil {
		return nil, fmt.Errorf("load collection spec: %w", err)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}

	probe := &Probe{coll: coll, logger: logger}

	defer func() {
		if err != nil {
			probe.Close()
		}
	}()

	if opts.Config != nil {
		if err = installConfig(coll, opts.Config); err != nil {
			return nil, err
		}
	}

	for _, target := range opts.Targets {
		var lnk link.Link

		lnk, err = attachTarget(coll, target)
		if err != nil {
			return nil, err
		}

		probe.links = append(probe.links, lnk)
	}

	bufferSize := opts.PerCPUBuffer
	if bufferSize <= 0 {
		bufferSize = 64 * os.Getpagesize()
	}

	probe.reader, err = perf.NewReader(coll.Maps[eventsMapName], bufferSize)
	if err != nil {
		return nil, fmt.Errorf("event reader: %w", err)
	}

	return probe, nil
}

func installConfig(coll *ebpf.Collection, cfg *trace.Config) error {
	cfgMap, ok := coll.Maps[configMapName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingSymbol, configMapName)
	}

	value, err := cfg.MarshalBinary()
	if err != nil {
		return err
	}

	if err := cfgMap.Put(uint32(0), value); err != nil {
		return fmt.Errorf("install config: %w", err)
	}

	return nil
}

func attachTarget(coll *ebpf.Collection, target Target) (link.Link, error) { //nolint:ireturn
	progName := fmt.Sprintf("%s%d", progNamePrefix, target.Slot)

	prog, ok := coll.Programs[progName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSymbol, progName)
	}

	lnk, err := link.Kprobe(target.FuncName, prog, nil)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", target.FuncName, err)
	}

	return lnk, nil
}

// Next blocks until the next event record arrives. It returns
// [perf.ErrClosed] wrapped after [Probe.Close]. Lost sample batches and
// undecodable records are logged and skipped.
func (p *Probe) Next() (Record, error) {
	for {
		rec, err := p.reader.Read()
		if err != nil {
			return Record{}, fmt.Errorf("read event: %w", err)
		}

		if rec.LostSamples > 0 {
			p.logger.Warn("lost event samples",
				zap.Uint64("count", rec.LostSamples),
				zap.Int("cpu", rec.CPU),
			)

			continue
		}

		var event trace.Event
		if err := event.UnmarshalBinary(rec.RawSample); err != nil {
			p.logger.Error("decode event", zap.Error(err))
			continue
		}

		return Record{CPU: rec.CPU, Event: event}, nil
	}
}

// Stack reads the captured call stack with the given id from the stack side
// table. Trailing zero addresses are trimmed.
func (p *Probe) Stack(id int64) ([]uint64, error) {
	stacksMap, ok := p.coll.Maps[stacksMapName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSymbol, stacksMapName)
	}

	var value [trace.MaxStackDepth]uint64
	if err := stacksMap.Lookup(uint32(id), &value); err != nil {
		return nil, fmt.Errorf("lookup stack %d: %w", id, err)
	}

	stack := make([]uint64, 0, len(value))

	for _, addr := range value {
		if addr == 0 {
			break
		}

		stack = append(stack, addr)
	}

	return stack, nil
}

// Dump reads the descriptor dump with the given slot id. It fails if the
// collection was built without the dump feature.
func (p *Probe) Dump(id uint64) ([]byte, error) {
	dumpsMap, ok := p.coll.Maps[dumpsMapName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingSymbol, dumpsMapName)
	}

	value := make([]byte, trace.DumpSlotSize)
	if err := dumpsMap.Lookup(uint32(id), &value); err != nil {
		return nil, fmt.Errorf("lookup dump %d: %w", id, err)
	}

	return value, nil
}

// Close detaches all targets and releases the collection.
func (p *Probe) Close() {
	if p.reader != nil {
		_ = p.reader.Close()
	}

	for _, lnk := range p.links {
		_ = lnk.Close()
	}

	if p.coll != nil {
		p.coll.Close()
	}
}
