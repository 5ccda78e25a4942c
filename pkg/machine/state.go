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

import "github.com/lassandro/gochip8/pkg/encoding"

// Read-only views and narrow setters. Tools and tests go through these rather
// than reaching into the machine.

// Registers returns a copy of the register file.
func (mc *Machine) Registers() Registers {
	return mc.reg
}

// StackEntries returns a copy of the pushed return addresses, oldest first.
func (mc *Machine) StackEntries() []uint16 {
	return mc.stack.Entries()
}

func (mc *Machine) ReadMemory(addr uint16) (byte, bool) {
	return mc.mem.ReadByte(addr)
}

func (mc *Machine) WriteMemory(addr uint16, value byte) bool {
	return mc.mem.WriteByte(addr, value)
}

// ReadOpcode returns the instruction word at addr, zero filling any byte
// outside memory.
func (mc *Machine) ReadOpcode(addr uint16) uint16 {
	high, _ := mc.mem.ReadByte(addr)

	var low byte
	if addr < 0xFFFF {
		low, _ = mc.mem.ReadByte(addr + 1)
	}

	return encoding.Word(high, low)
}

func (mc *Machine) PC() uint16 {
	return mc.reg.PC
}

func (mc *Machine) SetPC(addr uint16) {
	mc.reg.PC = addr
}

func (mc *Machine) SetIndex(value uint16) {
	mc.reg.Index = value
}

// SetV writes a general purpose register; out of range indices are ignored.
func (mc *Machine) SetV(x uint8, value uint8) {
	if int(x) < REGISTER_COUNT {
		mc.reg.V[x] = value
	}
}

func (mc *Machine) SetDelayTimer(value uint8) {
	mc.reg.Delay = value
}

func (mc *Machine) SetSoundTimer(value uint8) {
	mc.reg.Sound = value
}
