// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Symbol is one kernel symbol.
type Symbol struct {
	Addr uint64
	Name string
}

// Kallsyms resolves kernel addresses to the nearest preceding symbol, for
// rendering probe addresses and stack traces.
type Kallsyms struct {
	syms []Symbol
}

// LoadKallsyms parses the running kernel's symbol table.
func LoadKallsyms() (*Kallsyms, error) {
	f, err := os.Open("/proc/kallsyms")
	if err != nil {
		return nil, fmt.Errorf("open kallsyms: %w", err)
	}
	defer f.Close() //nolint:errcheck

	return ParseKallsyms(f)
}

// ParseKallsyms parses symbols in /proc/kallsyms format: address, type, name.
// Unparsable lines are skipped.
func ParseKallsyms(r io.Reader) (*Kallsyms, error) {
	syms := make([]Symbol, 0, 1024)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}

		addr, err := strconv.ParseUint(fields[0], 16, 64)
		if err != nil {
			continue
		}

		syms = append(syms, Symbol{Addr: addr, Name: fields[2]})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan kallsyms: %w", err)
	}

	sort.Slice(syms, func(i, j int) bool {
		return syms[i].Addr < syms[j].Addr
	})

	return &Kallsyms{syms: syms}, nil
}

// Nearest returns the symbol covering addr, the one with the greatest
// address not above it.
func (k *Kallsyms) Nearest(addr uint64) (Symbol, bool) {
	idx := sort.Search(len(k.syms), func(i int) bool {
		return k.syms[i].Addr > addr
	})
	if idx == 0 {
		return Symbol{}, false
	}

	return k.syms[idx-1], true
}

// Sym renders addr as "name+0xoff", or the plain hex address if it cannot be
// resolved.
func (k *Kallsyms) Sym(addr uint64) string {
	sym, ok := k.Nearest(addr)
	if !ok {
		return fmt.Sprintf("%#x", addr)
	}

	if off := addr - sym.Addr; off != 0 {
		return fmt.Sprintf("%s+%#x", sym.Name, off)
	}

	return sym.Name
}
