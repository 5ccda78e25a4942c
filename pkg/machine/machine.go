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

package machine

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/retroenv/retrogolib/log"
)

// New creates a machine with zeroed state and the glyph table loaded. The
// logger may be nil.
func New(devices DeviceHandler, logger *log.Logger) *Machine {
	mc := &Machine{
		Devices: devices,
		mem:     NewMemory(),
		logger:  logger,
	}

	mc.stack = NewStack(&mc.reg.SP)
	mc.reg.Reset()

	seed := uint64(time.Now().UnixNano())
	mc.rng = rand.New(rand.NewPCG(seed, seed>>1|1))

	return mc
}

// Reset restores power-on state. The loaded program is discarded.
func (mc *Machine) Reset() {
	mc.mem.Reset()
	mc.reg.Reset()
	mc.stack.Reset()
}

// Reseed replaces the random source, for reproducible RND results.
func (mc *Machine) Reseed(seed uint64) {
	mc.rng = rand.New(rand.NewPCG(seed, seed))
}

// LoadBytes places a raw program image at MEMSPACE_PROGRAM.
func (mc *Machine) LoadBytes(program []byte) error {
	if !mc.mem.LoadProgram(program) {
		return fmt.Errorf("loading %d bytes: %w", len(program), ErrProgramTooLarge)
	}

	return nil
}

// LoadProgram reads a raw program image from reader and loads it.
func (mc *Machine) LoadProgram(reader io.Reader) error {
	program, err := io.ReadAll(io.LimitReader(reader, MAX_PROGRAM_SIZE+1))

	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}

	return mc.LoadBytes(program)
}

// sprite returns rows bytes starting at I. Rows past the end of memory read
// as zero.
func (mc *Machine) sprite(rows int) []byte {
	start := int(mc.reg.Index)
	raw := mc.mem.Raw()

	if start+rows <= len(raw) {
		return raw[start : start+rows]
	}

	sprite := make([]byte, rows)
	if start < len(raw) {
		copy(sprite, raw[start:])
	}
	return sprite
}

// Cycle fetches, decodes and executes a single instruction. The only error it
// returns is ctx's, when cancelled while waiting for a key; state is left
// untouched in that case so the instruction runs again on resume.
func (mc *Machine) Cycle(ctx context.Context) error {
	instruction := mc.ReadOpcode(mc.reg.PC)

	if mc.logger != nil {
		mc.logger.Debug("Executing instruction",
			log.Hex("pc", mc.reg.PC),
			log.Hex("opcode", instruction))
	}

	x := encoding.X(instruction)
	y := encoding.Y(instruction)
	nn := encoding.NN(instruction)
	nnn := encoding.NNN(instruction)

	V := &mc.reg.V
	advance := uint16(OPCODE_SIZE)

	skipIf := func(cond bool) {
		if cond {
			advance += OPCODE_SIZE
		}
	}

	switch encoding.Family(instruction) {
	// 00E0 CLS             | Clear display
	// 00EE RET             | Return from subroutine
	case OP_SYS:
		switch nn {
		case 0xE0:
			if mc.Devices.Display != nil {
				mc.Devices.Display.Clear()
			}
		case 0xEE:
			addr, _ := mc.stack.Pop()
			mc.reg.PC = addr
		default:
			mc.unknown(instruction)
		}

	// 1NNN JP addr         | Jump
	case OP_JP:
		mc.reg.PC = nnn
		return nil

	// 2NNN CALL addr       | Call subroutine
	case OP_CALL:
		if !mc.stack.Push(mc.reg.PC) && mc.logger != nil {
			mc.logger.Warn("Stack overflow, return address dropped",
				log.Hex("pc", mc.reg.PC))
		}
		mc.reg.PC = nnn
		return nil

	// 3XNN SE Vx, byte     | Skip if equal
	case OP_SEB:
		skipIf(V[x] == nn)

	// 4XNN SNE Vx, byte    | Skip if not equal
	case OP_SNEB:
		skipIf(V[x] != nn)

	// 5XY0 SE Vx, Vy       | Skip if registers equal
	case OP_SER:
		skipIf(V[x] == V[y])

	// 6XNN LD Vx, byte
	case OP_LDB:
		V[x] = nn

	// 7XNN ADD Vx, byte    | No carry flag
	case OP_ADDB:
		V[x] += nn

	// 8XYN                 | Register arithmetic, VF set from pre-op values
	case OP_ALU:
		mc.alu(encoding.N(instruction), x, y)

	// 9XY0 SNE Vx, Vy      | Skip if registers differ
	case OP_SNER:
		skipIf(V[x] != V[y])

	// ANNN LD I, addr
	case OP_LDI:
		mc.reg.Index = nnn

	// BNNN JP V0, addr
	case OP_JPV0:
		mc.reg.PC = nnn + uint16(V[0])
		return nil

	// CXNN RND Vx, byte
	case OP_RND:
		V[x] = uint8(mc.rng.UintN(256)) & nn

	// DXYN DRW Vx, Vy, n   | VF = collision
	case OP_DRW:
		if mc.Devices.Display != nil {
			rows := int(encoding.N(instruction))
			collision := mc.Devices.Display.DrawSprite(
				V[x], V[y], mc.sprite(rows), rows,
			)

			if collision {
				V[REGISTER_FLAG] = 1
			} else {
				V[REGISTER_FLAG] = 0
			}
		}

	// EX9E SKP Vx          | Skip if key pressed
	// EXA1 SKNP Vx         | Skip if key not pressed
	case OP_KEY:
		switch nn {
		case 0x9E:
			skipIf(mc.Devices.Input != nil && mc.Devices.Input.IsKeyPressed(V[x]))
		case 0xA1:
			skipIf(mc.Devices.Input == nil || !mc.Devices.Input.IsKeyPressed(V[x]))
		default:
			mc.unknown(instruction)
		}

	case OP_MISC:
		if err := mc.misc(ctx, nn, x); err != nil {
			return err
		}

	default:
		mc.unknown(instruction)
	}

	mc.reg.PC += advance
	return nil
}

// alu runs the 8XYN family. Flags are written after the result, so with x
// equal to F the flag is what remains in VF.
func (mc *Machine) alu(op uint8, x, y uint8) {
	V := &mc.reg.V

	switch op {
	// 8XY0 LD Vx, Vy
	case 0x0:
		V[x] = V[y]

	// 8XY1 OR Vx, Vy
	case 0x1:
		V[x] |= V[y]

	// 8XY2 AND Vx, Vy
	case 0x2:
		V[x] &= V[y]

	// 8XY3 XOR Vx, Vy
	case 0x3:
		V[x] ^= V[y]

	// 8XY4 ADD Vx, Vy      | VF = carry
	case 0x4:
		sum := uint16(V[x]) + uint16(V[y])
		V[x] = uint8(sum)
		V[REGISTER_FLAG] = flag(sum > 0xFF)

	// 8XY5 SUB Vx, Vy      | VF = Vx > Vy
	case 0x5:
		borrow := flag(V[x] > V[y])
		V[x] -= V[y]
		V[REGISTER_FLAG] = borrow

	// 8XY6 SHR Vx          | VF = shifted out bit
	case 0x6:
		out := V[x] & 0x1
		V[x] >>= 1
		V[REGISTER_FLAG] = out

	// 8XY7 SUBN Vx, Vy     | VF = Vy > Vx
	case 0x7:
		borrow := flag(V[y] > V[x])
		V[x] = V[y] - V[x]
		V[REGISTER_FLAG] = borrow

	// 8XYE SHL Vx          | VF = shifted out bit
	case 0xE:
		out := V[x] >> 7
		V[x] <<= 1
		V[REGISTER_FLAG] = out

	default:
		mc.unknown(uint16(OP_ALU)<<12 | uint16(x)<<8 | uint16(y)<<4 | uint16(op))
	}
}

func (mc *Machine) misc(ctx context.Context, op uint8, x uint8) error {
	V := &mc.reg.V

	switch op {
	// FX07 LD Vx, DT
	case 0x07:
		V[x] = mc.reg.Delay

	// FX0A LD Vx, K        | Blocks until a key press
	case 0x0A:
		if mc.Devices.Input == nil {
			V[x] = 0
			break
		}

		key, err := mc.Devices.Input.WaitForKey(ctx)
		if err != nil {
			return err
		}
		V[x] = key

	// FX15 LD DT, Vx
	case 0x15:
		mc.reg.Delay = V[x]

	// FX18 LD ST, Vx
	case 0x18:
		mc.reg.Sound = V[x]

	// FX1E ADD I, Vx       | No overflow flag
	case 0x1E:
		mc.reg.Index += uint16(V[x])

	// FX29 LD F, Vx
	case 0x29:
		mc.reg.Index = MEMSPACE_GLYPHS + uint16(V[x])*GLYPH_SIZE

	// FX33 LD B, Vx
	case 0x33:
		for i, digit := range encoding.BCD(V[x]) {
			mc.mem.WriteByte(mc.reg.Index+uint16(i), digit)
		}

	// FX55 LD [I], Vx      | I is left unchanged
	case 0x55:
		for i := uint16(0); i <= uint16(x); i++ {
			mc.mem.WriteByte(mc.reg.Index+i, V[i])
		}

	// FX65 LD Vx, [I]      | I is left unchanged
	case 0x65:
		for i := uint16(0); i <= uint16(x); i++ {
			V[i], _ = mc.mem.ReadByte(mc.reg.Index + i)
		}

	default:
		mc.unknown(uint16(OP_MISC)<<12 | uint16(x)<<8 | uint16(op))
	}

	return nil
}

func (mc *Machine) unknown(instruction uint16) {
	if mc.logger != nil {
		mc.logger.Debug("Ignoring unknown instruction",
			log.Hex("pc", mc.reg.PC),
			log.Hex("opcode", instruction))
	}
}

func flag(set bool) uint8 {
	if set {
		return 1
	}
	return 0
}

// TickTimers decrements the delay and sound timers, stopping at zero.
func (mc *Machine) TickTimers() {
	if mc.reg.Delay > 0 {
		mc.reg.Delay--
	}

	if mc.reg.Sound > 0 {
		mc.reg.Sound--
	}
}

func (mc *Machine) Render() {
	if mc.Devices.Display != nil {
		mc.Devices.Display.Render()
	}
}

// PollInput reports whether execution should go on. Without an Input device
// the machine is never asked to stop; callers rely on their context instead.
func (mc *Machine) PollInput() bool {
	if mc.Devices.Input == nil {
		return true
	}

	return mc.Devices.Input.PollAndContinue()
}
