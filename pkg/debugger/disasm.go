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
	"fmt"
	"io"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

func lookup(opcode uint16) *chip8.Instruction {
	for _, op := range chip8.Opcodes[int(encoding.Family(opcode))] {
		if op.Info.Mask&opcode == op.Info.Value {
			return op.Instruction
		}
	}

	return nil
}

// Disassemble renders an opcode in assembler syntax, "ld V0, $42". Words that
// do not decode to an instruction are rendered as a .word directive.
func Disassemble(opcode uint16) string {
	ins := lookup(opcode)
	params, ok := operands(opcode)

	if ins == nil || !ok {
		return fmt.Sprintf(".word $%04X", opcode)
	}

	if params == "" {
		return ins.Name
	}

	return ins.Name + " " + params
}

func operands(opcode uint16) (string, bool) {
	x := encoding.X(opcode)
	y := encoding.Y(opcode)

	switch encoding.Family(opcode) {
	case machine.OP_SYS:
		return "", opcode == 0x00E0 || opcode == 0x00EE

	case machine.OP_JP, machine.OP_CALL:
		return fmt.Sprintf("$%03X", encoding.NNN(opcode)), true

	case machine.OP_SEB, machine.OP_SNEB, machine.OP_LDB, machine.OP_ADDB,
		machine.OP_RND:
		return fmt.Sprintf("V%X, $%02X", x, encoding.NN(opcode)), true

	case machine.OP_SER, machine.OP_SNER:
		return fmt.Sprintf("V%X, V%X", x, y), encoding.N(opcode) == 0

	case machine.OP_ALU:
		switch encoding.N(opcode) {
		case 0x6, 0xE:
			return fmt.Sprintf("V%X", x), true
		case 0x0, 0x1, 0x2, 0x3, 0x4, 0x5, 0x7:
			return fmt.Sprintf("V%X, V%X", x, y), true
		}

	case machine.OP_LDI:
		return fmt.Sprintf("I, $%03X", encoding.NNN(opcode)), true

	case machine.OP_JPV0:
		return fmt.Sprintf("V0, $%03X", encoding.NNN(opcode)), true

	case machine.OP_DRW:
		return fmt.Sprintf("V%X, V%X, $%X", x, y, encoding.N(opcode)), true

	case machine.OP_KEY:
		nn := encoding.NN(opcode)
		return fmt.Sprintf("V%X", x), nn == 0x9E || nn == 0xA1

	case machine.OP_MISC:
		switch encoding.NN(opcode) {
		case 0x07:
			return fmt.Sprintf("V%X, DT", x), true
		case 0x0A:
			return fmt.Sprintf("V%X, K", x), true
		case 0x15:
			return fmt.Sprintf("DT, V%X", x), true
		case 0x18:
			return fmt.Sprintf("ST, V%X", x), true
		case 0x1E:
			return fmt.Sprintf("I, V%X", x), true
		case 0x29:
			return fmt.Sprintf("F, V%X", x), true
		case 0x33:
			return fmt.Sprintf("B, V%X", x), true
		case 0x55:
			return fmt.Sprintf("[I], V%X", x), true
		case 0x65:
			return fmt.Sprintf("V%X, [I]", x), true
		}
	}

	return "", false
}

// List writes count disassembled instructions starting at addr. The current
// PC is marked with '>' and breakpoints with '*'; labels from the symbol
// table, if any, are printed above the instruction they name.
func (dbg *Debugger) List(w io.Writer, addr uint16, count uint16) error {
	buf := bufio.NewWriter(w)
	pc := dbg.Machine.PC()

	for i := uint16(0); i < count; i++ {
		at := int(addr) + int(i)*machine.OPCODE_SIZE
		if at >= machine.MEMORY_SIZE {
			break
		}

		if dbg.SymTable != nil {
			if label, ok := dbg.SymTable.Labels[uint16(at)]; ok {
				fmt.Fprintf(buf, "%s:\n", label)
			}
		}

		marker := ' '
		if uint16(at) == pc {
			marker = '>'
		}

		bp := ' '
		if dbg.HasBreakpoint(uint16(at)) {
			bp = '*'
		}

		opcode := dbg.Machine.ReadOpcode(uint16(at))
		high, low := encoding.SplitWord(opcode)

		fmt.Fprintf(buf, "%c%c 0x%04x  %02x %02x  %s\n",
			marker, bp, at, high, low, Disassemble(opcode))
	}

	return buf.Flush()
}
