// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package skbuff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategyForRelease(t *testing.T) {
	tests := []struct {
		release string
		output  Strategy
	}{
		{"6.1.0-13-amd64", StrategyTyped},
		{"5.15.0-91-generic", StrategyTyped},
		{"5.5.0", StrategyTyped},
		{"5.4.0-169-generic", StrategyRaw},
		{"4.19.0-25-amd64", StrategyRaw},
		{"10.0.0", StrategyTyped},
		{"5.10-rc1", StrategyTyped},
		{"garbage", StrategyRaw},
		{"", StrategyRaw},
		{"5", StrategyRaw},
	}

	for _, tt := range tests {
		t.Run(tt.release, func(t *testing.T) {
			assert.Equal(t, tt.output, strategyForRelease(tt.release))
		})
	}
}

func TestParseRelease(t *testing.T) {
	major, minor, ok := parseRelease("5.15.149-1")
	assert.True(t, ok)
	assert.Equal(t, 5, major)
	assert.Equal(t, 15, minor)

	_, _, ok = parseRelease("x.y.z")
	assert.False(t, ok)
}
