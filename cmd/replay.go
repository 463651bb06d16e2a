// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aibor/skbtrace/internal/output"
	"github.com/aibor/skbtrace/internal/replay"
	"github.com/aibor/skbtrace/internal/trace"
)

func replayCmd() *cobra.Command {
	var (
		filter  filterFlags
		slot    int
		skbMark uint32
		ifindex uint32
		mtu     uint32
	)

	cmd := &cobra.Command{
		Use:   "replay PCAP_FILE",
		Short: "Replay a pcap file through the capture pipeline",
		Long: `Run the packets of a pcap file through the same filter and
extraction pipeline that live tracing uses, without touching the kernel.
Useful for checking what a filter would match.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := filter.config()
			if err != nil {
				return err
			}

			sink := trace.NewPerCPUSink(1, 0)

			replayer, err := replay.New(replay.Options{
				Sink:    sink,
				Config:  cfg,
				Slot:    slot,
				Mark:    skbMark,
				Ifindex: ifindex,
				MTU:     mtu,
			})
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open pcap: %w", err)
			}
			defer f.Close() //nolint:errcheck

			count, err := replayer.ReplayPcap(f)
			if err != nil {
				return err
			}

			formatter := output.NewFormatter(nil, filter.outputs())
			cmd.Println(formatter.Header())

			for {
				rec, ok := sink.Poll(0)
				if !ok {
					break
				}

				var event trace.Event
				if err := event.UnmarshalBinary(rec); err != nil {
					return err
				}

				cmd.Println(formatter.Line(0, &event))
			}

			cmd.PrintErrf("replayed %d packets\n", count)

			for _, stat := range replayer.Tracer().ReadStats() {
				cmd.PrintErrf("%-10s %d\n", stat.Name, stat.Count)
			}

			return nil
		},
	}

	filter.register(cmd)
	cmd.Flags().IntVar(&slot, "slot", 1, "argument slot entry point to exercise")
	cmd.Flags().Uint32Var(&skbMark, "skb-mark", 0, "mark stamped into replayed descriptors")
	cmd.Flags().Uint32Var(&ifindex, "ifindex", 0, "device index stamped into replayed descriptors")
	cmd.Flags().Uint32Var(&mtu, "mtu", 0, "device MTU stamped into replayed descriptors")

	return cmd
}
