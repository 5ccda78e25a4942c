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

// Registers is the CPU register file. VF doubles as the carry, borrow and
// collision flag.
type Registers struct {
	V     [REGISTER_COUNT]uint8
	Index uint16
	PC    uint16
	SP    uint8
	Delay uint8
	Sound uint8
}

func (reg *Registers) Reset() {
	*reg = Registers{PC: MEMSPACE_PROGRAM}
}

// Stack holds return addresses. The depth counter is a borrowed cell, normally
// the SP field of a Registers value.
type Stack struct {
	entries [STACK_DEPTH]uint16
	sp      *uint8
}

func NewStack(sp *uint8) *Stack {
	return &Stack{sp: sp}
}

func (st *Stack) Reset() {
	*st.sp = 0

	for i := range st.entries {
		st.entries[i] = 0
	}
}

func (st *Stack) Push(addr uint16) bool {
	if *st.sp >= STACK_DEPTH {
		return false
	}

	st.entries[*st.sp] = addr
	*st.sp++
	return true
}

func (st *Stack) Pop() (uint16, bool) {
	if *st.sp == 0 {
		return 0, false
	}

	*st.sp--
	return st.entries[*st.sp], true
}

func (st *Stack) Depth() int {
	return int(*st.sp)
}

// Entries returns a copy of the live part of the stack, oldest first.
func (st *Stack) Entries() []uint16 {
	depth := int(*st.sp)
	if depth > STACK_DEPTH {
		depth = STACK_DEPTH
	}

	entries := make([]uint16, depth)
	copy(entries, st.entries[:depth])
	return entries
}
