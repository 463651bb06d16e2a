// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package skbuff

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Typed block reads of the descriptor require the stable structure view
// kernels expose since 5.5.
const (
	typedMinMajor = 5
	typedMinMinor = 5
)

// DetectStrategy selects the read [Strategy] for the running kernel. If the
// release string cannot be determined or parsed, the raw per-field strategy
// is chosen, which works everywhere.
func DetectStrategy() Strategy {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return StrategyRaw
	}

	release := string(bytes.TrimRight(uname.Release[:], "\x00"))

	return strategyForRelease(release)
}

func strategyForRelease(release string) Strategy {
	major, minor, ok := parseRelease(release)
	if !ok {
		return StrategyRaw
	}

	if major > typedMinMajor || (major == typedMinMajor && minor >= typedMinMinor) {
		return StrategyTyped
	}

	return StrategyRaw
}

// parseRelease extracts major and minor from a kernel release string like
// "6.1.0-13-amd64".
func parseRelease(release string) (int, int, bool) {
	parts := strings.SplitN(release, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}

	minorStr, _, _ := strings.Cut(parts[1], "-")

	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return 0, 0, false
	}

	return major, minor, true
}
