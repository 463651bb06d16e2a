// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trace

import (
	"github.com/aibor/skbtrace/internal/skbuff"
)

// filter is the keep/drop decision for one invocation. It is a pure
// predicate over the descriptor and the installed configuration.
func (t *Tracer) filter(d skbuff.Descriptor, cfg *Config) bool {
	return t.filterMark(d, cfg) && t.filterL3AndL4(d, cfg)
}

// filterMark requires exact mark equality when a mark is configured. The
// mark is read from the descriptor on every call, a failed read compares as
// zero.
func (t *Tracer) filterMark(d skbuff.Descriptor, cfg *Config) bool {
	if cfg.Mark == 0 {
		return true
	}

	mark, _ := t.src.Mark(d)

	return mark == cfg.Mark
}

// filterL3AndL4 matches the packet tuple. It passes without touching any
// header when all tuple fields are wildcards. Non-IPv4 packets never match a
// configured tuple.
func (t *Tracer) filterL3AndL4(d skbuff.Descriptor, cfg *Config) bool {
	if cfg.tupleWildcard() {
		return true
	}

	hdr, _ := t.src.Headers(d)

	ip, ok := skbuff.ReadIPv4(t.mem, hdr)
	if !ok {
		return false
	}

	if saddr := cfg.SAddr.V4(); saddr != 0 && ip.SAddr != saddr {
		return false
	}

	if daddr := cfg.DAddr.V4(); daddr != 0 && ip.DAddr != daddr {
		return false
	}

	if cfg.Proto != 0 && ip.Proto != cfg.Proto {
		return false
	}

	if cfg.SPort != 0 || cfg.DPort != 0 {
		ports, ok := skbuff.ReadPorts(t.mem, hdr, ip.Proto)
		if !ok {
			return false
		}

		if cfg.SPort != 0 && ports.Source != cfg.SPort {
			return false
		}

		if cfg.DPort != 0 && ports.Dest != cfg.DPort {
			return false
		}
	}

	return true
}
