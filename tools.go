// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build tools

package tools

import (
	_ "golang.org/x/tools/cmd/stringer"
)
