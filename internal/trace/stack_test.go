// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package trace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/skbtrace/internal/trace"
)

func TestStackTableCaptureLookup(t *testing.T) {
	table := trace.NewStackTable(16)

	id := table.Capture(0)
	require.GreaterOrEqual(t, id, int64(0))
	require.Less(t, id, int64(16))

	stack := table.Lookup(id)
	require.NotEmpty(t, stack)
	assert.LessOrEqual(t, len(stack), trace.MaxStackDepth)

	for _, pc := range stack {
		assert.NotZero(t, pc, "return address")
	}
}

// The id is a hash of the return addresses, so capturing from the same
// call site twice yields the same id.
func TestStackTableStableID(t *testing.T) {
	table := trace.NewStackTable(16)

	var ids [2]int64
	for idx := range ids {
		ids[idx] = table.Capture(0)
	}

	require.GreaterOrEqual(t, ids[0], int64(0))
	assert.Equal(t, ids[0], ids[1])
}

func TestStackTableLookupMisses(t *testing.T) {
	table := trace.NewStackTable(16)

	assert.Nil(t, table.Lookup(-1), "capture failure sentinel")
	assert.Nil(t, table.Lookup(16), "out of range")
	assert.Nil(t, table.Lookup(3), "never written")
}

func TestStackTableDefaultCapacity(t *testing.T) {
	table := trace.NewStackTable(0)

	id := table.Capture(0)
	require.GreaterOrEqual(t, id, int64(0))
	assert.Less(t, id, int64(trace.DefaultStackCapacity))
}
