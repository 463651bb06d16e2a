// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/cilium/ebpf/perf"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aibor/skbtrace/internal/output"
	"github.com/aibor/skbtrace/internal/probe"
)

func traceCmd() *cobra.Command {
	var (
		filter  filterFlags
		objPath string
		kfuncs  []string
		bufSize int
	)

	cmd := &cobra.Command{
		Use:   "trace --obj OBJECT --kfunc FUNCTION[:SLOT] ...",
		Short: "Trace packets through live kernel functions",
		Long: `Attach the capture programs to the given kernel functions and
print one line per matching packet. The slot suffix selects which argument
of the function carries the sk_buff, it defaults to the first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("logger: %v", err)
			}
			defer logger.Sync() //nolint:errcheck

			cfg, err := filter.config()
			if err != nil {
				return err
			}

			targets, err := parseTargets(kfuncs)
			if err != nil {
				return err
			}

			prb, err := probe.Attach(probe.Options{
				ObjectPath:   objPath,
				Targets:      targets,
				Config:       cfg,
				PerCPUBuffer: bufSize,
				Logger:       logger,
			})
			if err != nil {
				return fmt.Errorf("attach: %w", err)
			}
			defer prb.Close()

			syms, err := output.LoadKallsyms()
			if err != nil {
				logger.Warn("kallsyms unavailable, printing raw addresses",
					zap.Error(err))
			}

			formatter := output.NewFormatter(syms, filter.outputs())

			ctx, stop := signal.NotifyContext(
				context.Background(), syscall.SIGINT, syscall.SIGTERM,
			)
			defer stop()

			go func() {
				<-ctx.Done()
				prb.Close()
			}()

			cmd.Println(formatter.Header())

			for {
				rec, err := prb.Next()
				if errors.Is(err, perf.ErrClosed) {
					return nil
				}

				if err != nil {
					return err
				}

				cmd.Println(formatter.Line(rec.CPU, &rec.Event))
			}
		},
	}

	filter.register(cmd)
	cmd.Flags().StringVar(&objPath, "obj", "", "compiled capture object to load")
	cmd.Flags().StringArrayVar(&kfuncs, "kfunc", nil, "kernel function to hook, FUNCTION[:SLOT]")
	cmd.Flags().IntVar(&bufSize, "per-cpu-buffer", 0, "per CPU event buffer size in bytes")

	_ = cmd.MarkFlagRequired("obj")
	_ = cmd.MarkFlagRequired("kfunc")

	return cmd
}
