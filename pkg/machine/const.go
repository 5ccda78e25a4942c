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

import "time"

const (
	MEMORY_SIZE      = 4096
	MEMSPACE_GLYPHS  = 0x000
	MEMSPACE_PROGRAM = 0x200
	MAX_PROGRAM_SIZE = MEMORY_SIZE - MEMSPACE_PROGRAM
)

const (
	REGISTER_COUNT = 16
	REGISTER_FLAG  = 0xF
	STACK_DEPTH    = 16
	KEY_COUNT      = 16
	GLYPH_SIZE     = 5
	OPCODE_SIZE    = 2
)

const (
	DEFAULT_CYCLE_RATE = 500
	DEFAULT_TIMER_RATE = 60
	DEFAULT_YIELD      = 500 * time.Microsecond
)

const (
	OP_SYS  uint16 = 0x0
	OP_JP   uint16 = 0x1
	OP_CALL uint16 = 0x2
	OP_SEB  uint16 = 0x3
	OP_SNEB uint16 = 0x4
	OP_SER  uint16 = 0x5
	OP_LDB  uint16 = 0x6
	OP_ADDB uint16 = 0x7
	OP_ALU  uint16 = 0x8
	OP_SNER uint16 = 0x9
	OP_LDI  uint16 = 0xA
	OP_JPV0 uint16 = 0xB
	OP_RND  uint16 = 0xC
	OP_DRW  uint16 = 0xD
	OP_KEY  uint16 = 0xE
	OP_MISC uint16 = 0xF
)

// Hexadecimal digit glyphs, 5 rows each, resident at MEMSPACE_GLYPHS.
var GLYPHS = [16 * GLYPH_SIZE]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}
