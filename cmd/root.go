// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skbtrace",
		Short: "Kernel packet path tracer",
		Long: `Trace packets on their way through kernel functions. Attach to
functions that take a sk_buff argument and report which packets pass
through them, optionally filtered by mark and flow tuple.`,
	}

	cmd.AddCommand(traceCmd())
	cmd.AddCommand(replayCmd())

	return cmd
}
