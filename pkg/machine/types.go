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
	"errors"
	"math/rand/v2"

	"github.com/retroenv/retrogolib/log"
)

var ErrProgramTooLarge = errors.New("program exceeds available memory")

// Display is a 1-bit framebuffer that sprites are XOR-drawn onto.
type Display interface {
	Clear()
	// DrawSprite draws rows of 8 pixel wide sprite data at x,y with
	// wraparound and reports whether any lit pixel was turned off.
	DrawSprite(x, y uint8, sprite []byte, rows int) bool
	Render()
	Pixel(x, y int) bool
}

// Input is the 16 key hex keypad plus the host's request to stop.
type Input interface {
	// PollAndContinue processes pending host events and returns false once
	// the host asked to stop.
	PollAndContinue() bool
	IsKeyPressed(key uint8) bool
	// WaitForKey blocks until a key is pressed or ctx is done.
	WaitForKey(ctx context.Context) (uint8, error)
	SetKey(key uint8, pressed bool)
}

// DeviceHandler holds the optional collaborators. Either field may be nil, in
// which case dependent instructions fall back to fixed results.
type DeviceHandler struct {
	Display Display
	Input   Input
}

type Machine struct {
	Devices DeviceHandler

	mem    *Memory
	reg    Registers
	stack  *Stack
	rng    *rand.Rand
	logger *log.Logger
}
