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
	"errors"
	"io"
	"time"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
)

type StepResult uint

const (
	STEP_EXECUTED StepResult = iota
	STEP_BREAKPOINT
	STEP_CLOSED
	STEP_INTERRUPTED
)

func (res StepResult) String() string {
	switch res {
	case STEP_EXECUTED:
		return "executed"
	case STEP_BREAKPOINT:
		return "breakpoint"
	case STEP_CLOSED:
		return "closed"
	case STEP_INTERRUPTED:
		return "interrupted"
	}

	return "<invalid>"
}

var ErrInvalidRange = errors.New("invalid address range")

// Debugger drives a machine it does not own. It must not run alongside a
// Scheduler over the same machine.
type Debugger struct {
	Machine *machine.Machine

	// Pause after every executed instruction, zero for none.
	StepDelay time.Duration

	Source   io.ReadSeeker
	SymTable *assembler.SymTable

	breakpoints set.Set[uint16]
	logger      *log.Logger
}
