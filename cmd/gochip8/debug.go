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

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/devices"
	"github.com/lassandro/gochip8/pkg/encoding"
)

const (
	DEFAULT_LIST_COUNT   = 8
	DEFAULT_SOURCE_COUNT = 3

	KEY_WAIT_POLL = 10 * time.Millisecond
)

// repl reads debugger commands line by line. An empty line repeats the last
// command. Lines that arrive while a step or continue is running are queued,
// except key commands, which are applied at once.
type repl struct {
	dbg     *debugger.Debugger
	screen  *devices.Framebuffer
	keypad  *devices.Keypad
	program []byte

	in  io.Reader
	out io.Writer

	lines   <-chan string
	pending []string
	eof     bool
	lastcmd []string
}

func (r *repl) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// run ends on quit, end of input or ctx cancellation. Only a failed
// instruction is reported as an error.
func (r *repl) run(ctx context.Context) error {
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	r.lines = lines

	r.printf("CHIP-8 Debugger\n")
	r.printf("Type 'help' for available commands\n")

	for {
		r.printf("\033[1;30m(chip8dbg)\033[0m ")

		if ctx.Err() != nil {
			r.printf("\nInterrupted, exiting\n")
			return nil
		}

		var line string

		if len(r.pending) > 0 {
			line, r.pending = r.pending[0], r.pending[1:]
		} else if r.eof {
			r.printf("\nEnd of input, exiting\n")
			return nil
		} else {
			var ok bool

			select {
			case <-ctx.Done():
				r.printf("\nInterrupted, exiting\n")
				return nil
			case line, ok = <-r.lines:
				if !ok {
					r.printf("\nEnd of input, exiting\n")
					return nil
				}
			}
		}

		args := strings.Fields(line)

		if len(args) == 0 {
			if len(r.lastcmd) == 0 {
				continue
			}
			args = r.lastcmd
		} else {
			r.lastcmd = slices.Clone(args)
		}

		quit, err := r.exec(ctx, args[0], args[1:])
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func (r *repl) exec(ctx context.Context, cmd string, args []string) (bool, error) {
	switch cmd {
	case "s", "step":
		return r.step(ctx, args)

	case "c", "continue":
		return r.cont(ctx)

	case "b", "break":
		r.addBreak(args)

	case "d", "delete":
		r.deleteBreak(args)

	case "clear":
		r.dbg.ClearBreakpoints()
		r.printf("All breakpoints cleared\n")

	case "r", "registers":
		r.registers()

	case "reg":
		r.setRegister(args)

	case "m", "memory":
		r.memory(args)

	case "l", "list":
		r.list(args)

	case "src", "source":
		r.source(args)

	case "labels":
		r.labels()

	case "j", "jump":
		r.jump(args)

	case "set":
		r.set(args)

	case "key":
		r.key(args)

	case "screen":
		r.screen.WriteTo(r.out)

	case "reset":
		r.reset()

	case "q", "quit":
		r.printf("Exiting debugger\n")
		return true, nil

	case "h", "help":
		r.help()

	default:
		r.printf("Unknown command: %s\n", cmd)
		r.printf("Type 'help' for available commands\n")
	}

	return false, nil
}

// stopped reports how a step or continue ended. It returns true when the
// session cannot go on.
func (r *repl) stopped(result debugger.StepResult, err error) (bool, error) {
	switch result {
	case debugger.STEP_BREAKPOINT:
		r.printf("Breakpoint hit at 0x%x\n", r.dbg.Machine.PC())
	case debugger.STEP_CLOSED:
		r.printf("Input closed, exiting\n")
		return true, nil
	case debugger.STEP_INTERRUPTED:
		if errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			if r.eof {
				r.printf("\nEnd of input, exiting\n")
			} else {
				r.printf("\nInterrupted, exiting\n")
			}
			return true, nil
		}
		return true, err
	}

	return false, nil
}

// await runs call in the background while reading input, so that a key
// command can release a pending LD Vx, K. Other lines are queued for after
// the call. Once input has ended, the call is cancelled as soon as it blocks
// on a key, or at once if nothing is queued behind it.
func (r *repl) await(
	ctx context.Context,
	call func(context.Context) (debugger.StepResult, error),
) (debugger.StepResult, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result debugger.StepResult
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		result, err := call(callCtx)
		done <- outcome{result, err}
	}()

	ticker := time.NewTicker(KEY_WAIT_POLL)
	defer ticker.Stop()

	for {
		select {
		case res := <-done:
			return res.result, res.err

		case <-ticker.C:
			if r.eof && r.keypad.Waiting() {
				cancel()
			}

		case line, ok := <-r.lines:
			if !ok {
				r.lines = nil
				r.eof = true

				if len(r.pending) == 0 {
					cancel()
				}
				continue
			}

			args := strings.Fields(line)

			if len(args) > 0 && args[0] == "key" {
				r.key(args[1:])
				continue
			}

			r.pending = append(r.pending, line)
		}
	}
}

func (r *repl) step(ctx context.Context, args []string) (bool, error) {
	const usage = "Usage: step [n]"

	steps := 1

	if len(args) > 1 {
		r.printf("%s\n", usage)
		return false, nil
	}

	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			r.printf("Invalid step count: %s\n", args[0])
			return false, nil
		}
		steps = n
	}

	for i := 0; i < steps; i++ {
		result, err := r.await(ctx, r.dbg.Step)

		if result != debugger.STEP_EXECUTED {
			return r.stopped(result, err)
		}

		r.printf("Step %d: PC=0x%x\n", i+1, r.dbg.Machine.PC())

		if r.dbg.IsAtBreakpoint() {
			break
		}
	}

	return false, nil
}

func (r *repl) cont(ctx context.Context) (bool, error) {
	r.printf("Continuing execution...\n")

	quit, err := r.stopped(r.await(ctx, r.dbg.Continue))
	if quit || err != nil {
		return quit, err
	}

	r.printf("Stopped at PC=0x%x\n", r.dbg.Machine.PC())
	return false, nil
}

// address resolves a label name, falling back to a hex address.
func (r *repl) address(arg string) (uint16, error) {
	if r.dbg.SymTable != nil {
		for addr, label := range r.dbg.SymTable.Labels {
			if strings.EqualFold(label, arg) {
				return addr, nil
			}
		}
	}

	return encoding.DecodeHex(arg)
}

func (r *repl) addBreak(args []string) {
	if len(args) == 0 {
		breakpoints := r.dbg.Breakpoints()

		if len(breakpoints) == 0 {
			r.printf("No breakpoints set\n")
		}

		for i, addr := range breakpoints {
			r.printf("#%d: \033[1m[%#04x]\033[0m\n", i, addr)
		}
		return
	}

	addr, err := r.address(args[0])
	if err != nil {
		r.printf("Invalid address: %s\n", args[0])
		return
	}

	r.dbg.AddBreakpoint(addr)
	r.printf("Breakpoint set at 0x%x\n", addr)
}

func (r *repl) deleteBreak(args []string) {
	if len(args) != 1 {
		r.printf("Usage: delete <address>\n")
		return
	}

	addr, err := r.address(args[0])
	if err != nil {
		r.printf("Invalid address: %s\n", args[0])
		return
	}

	r.dbg.RemoveBreakpoint(addr)
	r.printf("Breakpoint removed at 0x%x\n", addr)
}

func (r *repl) registers() {
	reg := r.dbg.InspectRegisters()

	r.printf("Registers:\n")
	r.printf("PC: 0x%04x\n", reg.PC)
	r.printf("I:  0x%04x\n", reg.Index)
	r.printf("SP: 0x%02x\n", reg.SP)
	r.printf("DT: 0x%02x\n", reg.Delay)
	r.printf("ST: 0x%02x\n", reg.Sound)

	r.printf("V registers:\n")
	for i, v := range reg.V {
		r.printf("V%x: 0x%02x ", i, v)
		if (i+1)%4 == 0 {
			r.printf("\n")
		}
	}
}

func (r *repl) setRegister(args []string) {
	const usage = "Usage: reg <V#|I|PC|DT|ST> <value>"

	if len(args) != 2 {
		r.printf("%s\n", usage)
		return
	}

	value, err := encoding.DecodeHex(args[1])
	if err != nil {
		r.printf("Invalid value: %s\n", args[1])
		return
	}

	mc := r.dbg.Machine
	name := strings.ToUpper(args[0])

	switch name {
	case "I":
		mc.SetIndex(value)
	case "PC":
		mc.SetPC(value)
	case "DT", "ST":
		if value > 0xFF {
			r.printf("Invalid value: %s\n", args[1])
			return
		}
		if name == "DT" {
			mc.SetDelayTimer(uint8(value))
		} else {
			mc.SetSoundTimer(uint8(value))
		}
	default:
		x, err := encoding.DecodeHex(strings.TrimPrefix(name, "V"))
		if !strings.HasPrefix(name, "V") || len(name) != 2 || err != nil {
			r.printf("Invalid register: %s\n", args[0])
			return
		}
		if value > 0xFF {
			r.printf("Invalid value: %s\n", args[1])
			return
		}
		mc.SetV(uint8(x), uint8(value))
	}

	r.printf("\033[1m%s:\033[0m %#04x\n", name, value)
}

func (r *repl) memory(args []string) {
	if len(args) != 2 {
		r.printf("Usage: memory <start_addr> <end_addr>\n")
		return
	}

	start, err := r.address(args[0])
	if err != nil {
		r.printf("Invalid address range\n")
		return
	}

	end, err := r.address(args[1])
	if err != nil {
		r.printf("Invalid address range\n")
		return
	}

	if err := r.dbg.MemoryDump(r.out, start, end); err != nil {
		r.printf("Invalid address range\n")
	}
}

// span parses the optional [addr] [count] arguments shared by list and source.
func (r *repl) span(args []string, count uint16) (uint16, uint16, bool) {
	addr := r.dbg.Machine.PC()

	if len(args) > 2 {
		return 0, 0, false
	}

	if len(args) > 0 {
		var err error
		if addr, err = r.address(args[0]); err != nil {
			r.printf("Invalid address: %s\n", args[0])
			return 0, 0, false
		}
	}

	if len(args) > 1 {
		value, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			r.printf("Invalid count: %s\n", args[1])
			return 0, 0, false
		}
		count = uint16(value)
	}

	return addr, count, true
}

func (r *repl) list(args []string) {
	addr, count, ok := r.span(args, DEFAULT_LIST_COUNT)
	if !ok {
		r.printf("Usage: list [address|label] [n]\n")
		return
	}

	if err := r.dbg.List(r.out, addr, count); err != nil {
		r.printf("error: %s\n", err)
	}
}

func (r *repl) source(args []string) {
	if r.dbg.SymTable == nil || r.dbg.Source == nil {
		r.printf("No symbol table loaded\n")
		return
	}

	addr, count, ok := r.span(args, DEFAULT_SOURCE_COUNT)
	if !ok {
		r.printf("Usage: source [address|label] [n]\n")
		return
	}

	if err := r.dbg.PrintSource(r.out, addr, count); err != nil {
		r.printf("error: %s\n", err)
	}
}

func (r *repl) labels() {
	if r.dbg.SymTable == nil {
		r.printf("No symbol table loaded\n")
		return
	}

	addrs := make([]uint16, 0, len(r.dbg.SymTable.Labels))
	for addr := range r.dbg.SymTable.Labels {
		addrs = append(addrs, addr)
	}

	slices.Sort(addrs)

	for _, addr := range addrs {
		r.printf("\033[1m[%#04x]\033[0m %s\n", addr, r.dbg.SymTable.Labels[addr])
	}
}

func (r *repl) jump(args []string) {
	if len(args) != 1 {
		r.printf("Usage: jump <address|label>\n")
		return
	}

	addr, err := r.address(args[0])
	if err != nil {
		r.printf("Unable to find '%s'\n", args[0])
		return
	}

	r.dbg.Machine.SetPC(addr)
	r.printf("\033[1mPC:\033[0m %#04x\n", addr)
}

func (r *repl) set(args []string) {
	if len(args) != 2 {
		r.printf("Usage: set <address> <byte>\n")
		return
	}

	addr, err := r.address(args[0])
	if err != nil {
		r.printf("Invalid address: %s\n", args[0])
		return
	}

	value, err := encoding.DecodeHex(args[1])
	if err != nil || value > 0xFF {
		r.printf("Invalid value: %s\n", args[1])
		return
	}

	if !r.dbg.Machine.WriteMemory(addr, uint8(value)) {
		r.printf("Invalid address: %s\n", args[0])
		return
	}

	r.dbg.MemoryDump(r.out, addr, addr)
}

func (r *repl) key(args []string) {
	if len(args) != 2 || (args[1] != "0" && args[1] != "1") {
		r.printf("Usage: key <0-F> <0|1>\n")
		return
	}

	key, err := encoding.DecodeHex(args[0])
	if err != nil || key >= devices.KEY_COUNT {
		r.printf("Invalid key: %s\n", args[0])
		return
	}

	pressed := args[1] == "1"
	r.keypad.SetKey(uint8(key), pressed)

	if pressed {
		r.printf("Key %X pressed\n", key)
	} else {
		r.printf("Key %X released\n", key)
	}
}

func (r *repl) reset() {
	mc := r.dbg.Machine

	mc.Reset()
	r.screen.Clear()

	if err := mc.LoadBytes(r.program); err != nil {
		r.printf("error: %s\n", err)
		return
	}

	r.printf("Program reset\n")
}

func (r *repl) help() {
	r.printf("Available commands:\n")
	r.printf("  s, step [n]          - Execute n instructions (default: 1)\n")
	r.printf("  c, continue          - Continue execution until breakpoint\n")
	r.printf("  b, break [addr]      - Set breakpoint at address, or list them\n")
	r.printf("  d, delete <addr>     - Remove breakpoint at address\n")
	r.printf("  clear                - Clear all breakpoints\n")
	r.printf("  r, registers         - Show all registers\n")
	r.printf("  reg <name> <value>   - Set a register\n")
	r.printf("  m, memory <s> <e>    - Dump memory from start to end address\n")
	r.printf("  l, list [addr] [n]   - Disassemble n instructions\n")
	r.printf("  src, source [addr] [n] - Show assembly source\n")
	r.printf("  labels               - Show labels\n")
	r.printf("  j, jump <addr>       - Set PC\n")
	r.printf("  set <addr> <byte>    - Write a byte to memory\n")
	r.printf("  key <k> <0|1>        - Release or press a keypad key\n")
	r.printf("  screen               - Show the display\n")
	r.printf("  reset                - Reload the program\n")
	r.printf("  q, quit              - Exit debugger\n")
	r.printf("  h, help              - Show this help\n")
}
