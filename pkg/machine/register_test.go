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

package machine_test

import (
	"testing"

	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/assert"
)

func TestStack(t *testing.T) {
	var sp uint8
	stack := machine.NewStack(&sp)

	for i := 0; i < machine.STACK_DEPTH; i++ {
		assert.True(t, stack.Push(uint16(0x200+i*2)))
	}

	assert.False(t, stack.Push(0x400))
	assert.Equal(t, uint8(machine.STACK_DEPTH), sp)
	assert.Equal(t, machine.STACK_DEPTH, stack.Depth())

	entries := stack.Entries()
	assert.Equal(t, uint16(0x200), entries[0])
	entries[0] = 0xFFFF
	assert.Equal(t, uint16(0x200), stack.Entries()[0])

	addr, ok := stack.Pop()
	assert.True(t, ok)
	assert.Equal(t, uint16(0x21E), addr)
	assert.Equal(t, uint8(machine.STACK_DEPTH-1), sp)

	stack.Reset()
	assert.Equal(t, uint8(0), sp)

	addr, ok = stack.Pop()
	assert.False(t, ok)
	assert.Equal(t, uint16(0), addr)
}

func TestRegistersReset(t *testing.T) {
	reg := machine.Registers{
		Index: 0x300,
		PC:    0x400,
		SP:    3,
		Delay: 4,
		Sound: 5,
	}
	reg.V[0xF] = 1

	reg.Reset()

	assert.Equal(t, machine.Registers{PC: machine.MEMSPACE_PROGRAM}, reg)
}
