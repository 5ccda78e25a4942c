// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package debugger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
)

// New attaches a debugger with an empty breakpoint set. The logger may be nil.
func New(mc *machine.Machine, logger *log.Logger) *Debugger {
	return &Debugger{
		Machine:     mc,
		breakpoints: set.New[uint16](),
		logger:      logger,
	}
}

func (dbg *Debugger) AddBreakpoint(addr uint16) {
	dbg.breakpoints.Add(addr)
}

func (dbg *Debugger) RemoveBreakpoint(addr uint16) {
	dbg.breakpoints.Remove(addr)
}

func (dbg *Debugger) ClearBreakpoints() {
	dbg.breakpoints.Clear()
}

func (dbg *Debugger) HasBreakpoint(addr uint16) bool {
	return dbg.breakpoints.Contains(addr)
}

// Breakpoints returns the breakpoint addresses in ascending order.
func (dbg *Debugger) Breakpoints() []uint16 {
	return set.Sorted(dbg.breakpoints)
}

func (dbg *Debugger) IsAtBreakpoint() bool {
	return dbg.HasBreakpoint(dbg.Machine.PC())
}

// InspectRegisters returns a snapshot of the register file.
func (dbg *Debugger) InspectRegisters() machine.Registers {
	return dbg.Machine.Registers()
}

// Step runs one instruction followed by a timer tick and a render. An
// instruction sitting on a breakpoint is never executed; the breakpoint has
// to be removed or PC moved before execution can go on.
func (dbg *Debugger) Step(ctx context.Context) (StepResult, error) {
	mc := dbg.Machine

	if !mc.PollInput() {
		if dbg.logger != nil {
			dbg.logger.Info("Input closed", log.Hex("pc", mc.PC()))
		}
		return STEP_CLOSED, nil
	}

	if dbg.IsAtBreakpoint() {
		if dbg.logger != nil {
			dbg.logger.Info("Breakpoint hit", log.Hex("pc", mc.PC()))
		}
		return STEP_BREAKPOINT, nil
	}

	if err := mc.Cycle(ctx); err != nil {
		return STEP_INTERRUPTED, err
	}

	mc.TickTimers()
	mc.Render()

	if dbg.StepDelay > 0 {
		time.Sleep(dbg.StepDelay)
	}

	return STEP_EXECUTED, nil
}

// Continue steps until input closes, a breakpoint is reached or ctx is done.
func (dbg *Debugger) Continue(ctx context.Context) (StepResult, error) {
	for {
		if err := ctx.Err(); err != nil {
			return STEP_INTERRUPTED, err
		}

		result, err := dbg.Step(ctx)
		if err != nil || result != STEP_EXECUTED {
			return result, err
		}
	}
}

// MemoryDump writes the inclusive range [start, end] as rows of 16 bytes, hex
// and printable ASCII side by side. Addresses past the end of memory read as
// zero. Nothing is written for an inverted range.
func (dbg *Debugger) MemoryDump(w io.Writer, start, end uint16) error {
	if end < start {
		return fmt.Errorf("%#04x-%#04x: %w", start, end, ErrInvalidRange)
	}

	const perLine = 16

	buf := bufio.NewWriter(w)
	fmt.Fprintf(buf, "Memory dump from 0x%x to 0x%x:\n", start, end)

	for addr := int(start); addr <= int(end); addr += perLine {
		fmt.Fprintf(buf, "0x%04x: ", addr)

		for i := 0; i < perLine; i++ {
			if addr+i <= int(end) {
				fmt.Fprintf(buf, "%02x ", dbg.peek(addr+i))
			} else {
				buf.WriteString("   ")
			}
		}

		buf.WriteByte(' ')

		for i := 0; i < perLine; i++ {
			if addr+i > int(end) {
				buf.WriteByte(' ')
				continue
			}

			if value := dbg.peek(addr + i); value >= 32 && value <= 126 {
				buf.WriteByte(value)
			} else {
				buf.WriteByte('.')
			}
		}

		buf.WriteByte('\n')
	}

	return buf.Flush()
}

func (dbg *Debugger) peek(addr int) byte {
	value, _ := dbg.Machine.ReadMemory(uint16(addr))
	return value
}

// PrintSource writes count lines of assembly source starting at the line
// that produced addr. Lines that produced an instruction are prefixed with
// its address.
func (dbg *Debugger) PrintSource(w io.Writer, addr uint16, count uint16) error {
	if dbg.Source == nil {
		fmt.Fprintln(w, "No source file loaded")
		return nil
	}

	if dbg.SymTable == nil {
		fmt.Fprintln(w, "No symbol table loaded")
		return nil
	}

	offset, exists := dbg.SymTable.Symbols[addr]
	if !exists {
		fmt.Fprintf(w, "No instruction found at %#04x\n", addr)
		return nil
	}

	lines := make(map[int64]uint16, len(dbg.SymTable.Symbols))
	for lineaddr, linebyte := range dbg.SymTable.Symbols {
		if prev, ok := lines[linebyte]; !ok || lineaddr < prev {
			lines[linebyte] = lineaddr
		}
	}

	if _, err := dbg.Source.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking source: %w", err)
	}

	scanner := bufio.NewScanner(dbg.Source)
	scanner.Split(bufio.ScanLines)

	for i := uint16(0); i < count; i++ {
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		if lineaddr, ok := lines[offset]; ok {
			fmt.Fprintf(w, "\033[1m[%#04x]\033[0m ", lineaddr)
		} else {
			fmt.Fprint(w, "\033[1;30m~~~~~~~~\033[0m ")
		}

		fmt.Fprintln(w, line)

		offset += int64(len(line) + 1)
	}

	return scanner.Err()
}
