// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/skbtrace/internal/probe"
	"github.com/aibor/skbtrace/internal/trace"
)

func TestParseProto(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output uint8
		expErr bool
	}{
		{
			name:   "tcp",
			input:  "tcp",
			output: 6,
		},
		{
			name:   "udp upper case",
			input:  "UDP",
			output: 17,
		},
		{
			name:   "icmp",
			input:  "icmp",
			output: 1,
		},
		{
			name:   "number",
			input:  "132",
			output: 132,
		},
		{
			name:   "unknown name",
			input:  "sctp",
			expErr: true,
		},
		{
			name:   "number too large",
			input:  "256",
			expErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proto, err := parseProto(tt.input)
			if tt.expErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.output, proto)
		})
	}
}

func TestParseTargets(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		output []probe.Target
		expErr bool
	}{
		{
			name: "bare function",
			args: []string{"ip_rcv"},
			output: []probe.Target{
				{FuncName: "ip_rcv", Slot: 1},
			},
		},
		{
			name: "explicit slot",
			args: []string{"nf_hook_slow:2"},
			output: []probe.Target{
				{FuncName: "nf_hook_slow", Slot: 2},
			},
		},
		{
			name: "mixed",
			args: []string{"ip_rcv", "dev_queue_xmit:1", "nf_hook_slow:5"},
			output: []probe.Target{
				{FuncName: "ip_rcv", Slot: 1},
				{FuncName: "dev_queue_xmit", Slot: 1},
				{FuncName: "nf_hook_slow", Slot: 5},
			},
		},
		{
			name:   "empty name",
			args:   []string{":2"},
			expErr: true,
		},
		{
			name:   "slot not a number",
			args:   []string{"ip_rcv:x"},
			expErr: true,
		},
		{
			name:   "slot out of range",
			args:   []string{"ip_rcv:6"},
			expErr: true,
		},
		{
			name:   "slot zero",
			args:   []string{"ip_rcv:0"},
			expErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, err := parseTargets(tt.args)
			if tt.expErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.output, targets)
		})
	}
}

func TestFilterFlagsConfig(t *testing.T) {
	t.Run("no flags", func(t *testing.T) {
		var flags filterFlags

		cfg, err := flags.config()
		require.NoError(t, err)
		assert.Nil(t, cfg, "unfiltered mode")
	})

	t.Run("full set", func(t *testing.T) {
		flags := filterFlags{
			mark:        0xcafe,
			saddr:       "10.0.0.1",
			daddr:       "10.0.0.2",
			proto:       "tcp",
			sport:       12345,
			dport:       443,
			outputTuple: true,
		}

		cfg, err := flags.config()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, uint32(0xcafe), cfg.Mark)
		assert.Equal(t, uint8(6), cfg.Proto)
		assert.True(t, cfg.Output.Tuple)
		assert.False(t, cfg.Output.Meta)
	})

	t.Run("bad address", func(t *testing.T) {
		flags := filterFlags{saddr: "not-an-address"}

		_, err := flags.config()
		require.Error(t, err)
	})

	t.Run("v6 address", func(t *testing.T) {
		flags := filterFlags{daddr: "fd01::1"}

		_, err := flags.config()
		require.ErrorIs(t, err, trace.ErrNotIPv4)
	})

	t.Run("bad proto", func(t *testing.T) {
		flags := filterFlags{proto: "bogus"}

		_, err := flags.config()
		require.Error(t, err)
	})
}
