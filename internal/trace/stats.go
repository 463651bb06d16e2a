// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trace

//go:generate go tool stringer -type CounterKey -trimprefix CounterKey -output counterkey_string.go

// CounterKey identifies one pipeline counter.
type CounterKey uint32

const (
	// CounterKeyInvoked counts pipeline invocations.
	CounterKeyInvoked CounterKey = iota
	// CounterKeyFiltered counts invocations rejected by the filter.
	CounterKeyFiltered
	// CounterKeyEmitted counts events accepted by the sink.
	CounterKeyEmitted
	// CounterKeyLost counts events dropped by a full sink.
	CounterKeyLost

	counterKeyCount
)

// Stat represents a single counter value.
type Stat struct {
	Name  string
	Count int
}

// Stats is a list of [Stat]s.
type Stats []Stat

// ReadStats returns the current pipeline counters.
func (t *Tracer) ReadStats() Stats {
	output := make(Stats, counterKeyCount)

	for key := CounterKey(0); key < counterKeyCount; key++ {
		output[key] = Stat{
			Name:  key.String(),
			Count: int(t.counters[key].Load()),
		}
	}

	return output
}

func (t *Tracer) count(key CounterKey) {
	t.counters[key].Add(1)
}
