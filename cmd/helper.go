// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aibor/skbtrace/internal/probe"
	"github.com/aibor/skbtrace/internal/skbuff"
	"github.com/aibor/skbtrace/internal/trace"
)

// filterFlags are the filter and output flags shared by the trace and replay
// commands.
type filterFlags struct {
	mark  uint32
	saddr string
	daddr string
	proto string
	sport uint16
	dport uint16

	timestamp   bool
	outputMeta  bool
	outputTuple bool
	outputSkb   bool
	outputStack bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.Uint32Var(&f.mark, "filter-mark", 0, "filter packet mark")
	flags.StringVar(&f.saddr, "filter-saddr", "", "filter source IPv4 address")
	flags.StringVar(&f.daddr, "filter-daddr", "", "filter destination IPv4 address")
	flags.StringVar(&f.proto, "filter-proto", "", "filter L4 protocol (tcp, udp, icmp or number)")
	flags.Uint16Var(&f.sport, "filter-sport", 0, "filter source port")
	flags.Uint16Var(&f.dport, "filter-dport", 0, "filter destination port")

	flags.BoolVar(&f.timestamp, "output-timestamp", false, "print event timestamps")
	flags.BoolVar(&f.outputMeta, "output-meta", false, "print packet metadata")
	flags.BoolVar(&f.outputTuple, "output-tuple", false, "print packet tuple")
	flags.BoolVar(&f.outputSkb, "output-skb", false, "dump the full sk_buff")
	flags.BoolVar(&f.outputStack, "output-stack", false, "capture call stacks")
}

// config builds the filter configuration. It returns nil if no flag was set,
// which leaves the pipeline in unfiltered call-occurrence mode.
func (f *filterFlags) config() (*trace.Config, error) {
	if *f == (filterFlags{}) {
		return nil, nil
	}

	cfg := &trace.Config{
		Mark: f.mark,
		Output: trace.Outputs{
			Timestamp: f.timestamp,
			Meta:      f.outputMeta,
			Tuple:     f.outputTuple,
			Skb:       f.outputSkb,
			Stack:     f.outputStack,
		},
	}

	if f.saddr != "" {
		addr, err := netip.ParseAddr(f.saddr)
		if err != nil {
			return nil, fmt.Errorf("parse source address: %w", err)
		}

		if err := cfg.SetSAddr(addr); err != nil {
			return nil, err
		}
	}

	if f.daddr != "" {
		addr, err := netip.ParseAddr(f.daddr)
		if err != nil {
			return nil, fmt.Errorf("parse destination address: %w", err)
		}

		if err := cfg.SetDAddr(addr); err != nil {
			return nil, err
		}
	}

	if f.proto != "" {
		proto, err := parseProto(f.proto)
		if err != nil {
			return nil, err
		}

		cfg.Proto = proto
	}

	cfg.SetSPort(f.sport)
	cfg.SetDPort(f.dport)

	return cfg, nil
}

func (f *filterFlags) outputs() trace.Outputs {
	return trace.Outputs{
		Timestamp: f.timestamp,
		Meta:      f.outputMeta,
		Tuple:     f.outputTuple,
		Skb:       f.outputSkb,
		Stack:     f.outputStack,
	}
}

// parseProto translates an L4 protocol name or number.
func parseProto(input string) (uint8, error) {
	switch strings.ToLower(input) {
	case "tcp":
		return skbuff.ProtoTCP, nil
	case "udp":
		return skbuff.ProtoUDP, nil
	case "icmp":
		return 1, nil
	}

	proto, err := strconv.ParseUint(input, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("parse protocol: %s", input)
	}

	return uint8(proto), nil
}

// parseTargets translates "function" or "function:slot" arguments into probe
// targets. The slot defaults to the first argument.
func parseTargets(args []string) ([]probe.Target, error) {
	targets := make([]probe.Target, len(args))

	for idx, arg := range args {
		name, slotStr, found := strings.Cut(arg, ":")
		if name == "" {
			return nil, fmt.Errorf("parse target: %s", arg)
		}

		slot := 1

		if found {
			parsed, err := strconv.Atoi(slotStr)
			if err != nil || parsed < 1 || parsed > trace.NumSlots {
				return nil, fmt.Errorf("parse target slot: %s", arg)
			}

			slot = parsed
		}

		targets[idx] = probe.Target{FuncName: name, Slot: slot}
	}

	return targets, nil
}
