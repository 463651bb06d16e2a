// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package replay drives the capture pipeline with packets from a pcap file.
// Each packet is synthesized into a descriptor image and pushed through the
// same filter and extraction code that runs against live descriptors.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"

	"github.com/aibor/skbtrace/internal/skbuff"
	"github.com/aibor/skbtrace/internal/trace"
)

// Options configure a [Replayer].
type Options struct {
	// Sink receives the emitted event records. Required.
	Sink trace.Sink
	// Config is installed before replaying. Without it every packet emits an
	// unfiltered event.
	Config *trace.Config
	// Slot selects the argument slot entry point to exercise, 1 through 5.
	// Zero selects slot 1.
	Slot int
	// Mark, Ifindex and MTU are stamped into the synthesized descriptors.
	Mark    uint32
	Ifindex uint32
	MTU     uint32
	// EventType is the type discriminator of the emitted events.
	EventType uint32
}

// Replayer owns a tracer wired to a synthetic address space.
type Replayer struct {
	builder *builder
	tracer  *trace.Tracer
	handle  func(*trace.CallContext)
	slot    int
	pid     uint32
}

// New returns a ready [Replayer].
func New(opts Options) (*Replayer, error) {
	slot := opts.Slot
	if slot == 0 {
		slot = 1
	}

	b := newBuilder(skbuff.DefaultLayout(), opts.Mark, opts.Ifindex, opts.MTU)

	tracer, err := trace.New(trace.Options{
		Memory:    b.arena,
		Sink:      opts.Sink,
		EventType: opts.EventType,
	})
	if err != nil {
		return nil, err
	}

	if opts.Config != nil {
		tracer.InstallConfig(opts.Config)
	}

	handle, err := tracer.Handler(slot)
	if err != nil {
		return nil, err
	}

	return &Replayer{
		builder: b,
		tracer:  tracer,
		handle:  handle,
		slot:    slot,
		pid:     uint32(os.Getpid()),
	}, nil
}

// Tracer returns the tracer behind the replayer, for stats and side tables.
func (r *Replayer) Tracer() *trace.Tracer {
	return r.tracer
}

// ReplayPacket pushes a single raw packet through the pipeline.
func (r *Replayer) ReplayPacket(data []byte, linkType layers.LinkType) {
	desc := r.builder.add(data, linkType)

	ctx := trace.CallContext{PID: r.pid}
	ctx.Args[r.slot-1] = desc.Addr

	r.handle(&ctx)
}

// ReplayPcap reads packets from a pcap stream and replays each one. It
// returns the number of packets replayed.
func (r *Replayer) ReplayPcap(rd io.Reader) (int, error) {
	pcapReader, err := pcapgo.NewReader(rd)
	if err != nil {
		return 0, fmt.Errorf("read pcap header: %w", err)
	}

	linkType := pcapReader.LinkType()

	var count int

	for {
		data, _, err := pcapReader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return count, nil
		}

		if err != nil {
			return count, fmt.Errorf("read packet %d: %w", count, err)
		}

		r.ReplayPacket(data, linkType)
		count++
	}
}
