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

// Memory is the flat 4K byte store. Every access is bounds checked; reads
// outside the store report ok=false and writes outside it are dropped.
type Memory struct {
	data [MEMORY_SIZE]byte
}

func NewMemory() *Memory {
	mem := &Memory{}
	mem.Reset()
	return mem
}

// Reset zeroes the store and reloads the glyph table.
func (mem *Memory) Reset() {
	for i := range mem.data {
		mem.data[i] = 0
	}

	mem.LoadGlyphs(GLYPHS[:])
}

func legalAddr(addr int) bool {
	return addr >= 0 && addr < MEMORY_SIZE
}

func (mem *Memory) ReadByte(addr uint16) (byte, bool) {
	if !legalAddr(int(addr)) {
		return 0, false
	}

	return mem.data[addr], true
}

func (mem *Memory) WriteByte(addr uint16, value byte) bool {
	if !legalAddr(int(addr)) {
		return false
	}

	mem.data[addr] = value
	return true
}

// ReadWord reads two consecutive bytes as a big-endian value.
func (mem *Memory) ReadWord(addr uint16) (uint16, bool) {
	if !legalAddr(int(addr)) || !legalAddr(int(addr)+1) {
		return 0, false
	}

	return uint16(mem.data[addr])<<8 | uint16(mem.data[int(addr)+1]), true
}

func (mem *Memory) WriteWord(addr uint16, value uint16) bool {
	if !legalAddr(int(addr)) || !legalAddr(int(addr)+1) {
		return false
	}

	mem.data[addr] = byte(value >> 8)
	mem.data[int(addr)+1] = byte(value)
	return true
}

// LoadGlyphs copies the glyph table to the start of memory.
func (mem *Memory) LoadGlyphs(glyphs []byte) {
	copy(mem.data[MEMSPACE_GLYPHS:MEMSPACE_PROGRAM], glyphs)
}

// LoadProgram copies a program image to MEMSPACE_PROGRAM. Images larger than
// MAX_PROGRAM_SIZE are rejected without touching memory.
func (mem *Memory) LoadProgram(program []byte) bool {
	if len(program) > MAX_PROGRAM_SIZE {
		return false
	}

	copy(mem.data[MEMSPACE_PROGRAM:], program)
	return true
}

// Raw exposes the backing store for bulk access such as sprite fetches.
func (mem *Memory) Raw() []byte {
	return mem.data[:]
}
