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

package devices

import (
	"bufio"
	"io"
)

const (
	DISPLAY_WIDTH  = 64
	DISPLAY_HEIGHT = 32
)

// Framebuffer is a 64x32 monochrome display. When Output is set, Render
// redraws the frame there using half block characters, two pixel rows per
// text line, whenever the frame changed since the last render.
type Framebuffer struct {
	Output io.Writer

	pixels [DISPLAY_WIDTH * DISPLAY_HEIGHT]bool
	dirty  bool
}

func NewFramebuffer(output io.Writer) *Framebuffer {
	return &Framebuffer{Output: output, dirty: true}
}

func (fb *Framebuffer) Clear() {
	for i := range fb.pixels {
		fb.pixels[i] = false
	}

	fb.dirty = true
}

func (fb *Framebuffer) DrawSprite(x, y uint8, sprite []byte, rows int) bool {
	if rows > len(sprite) {
		rows = len(sprite)
	}

	collision := false

	for row := 0; row < rows; row++ {
		line := sprite[row]

		for col := 0; col < 8; col++ {
			if line&(0x80>>col) == 0 {
				continue
			}

			px := (int(x) + col) % DISPLAY_WIDTH
			py := (int(y) + row) % DISPLAY_HEIGHT
			i := py*DISPLAY_WIDTH + px

			if fb.pixels[i] {
				collision = true
			}

			fb.pixels[i] = !fb.pixels[i]
		}
	}

	if rows > 0 {
		fb.dirty = true
	}

	return collision
}

func (fb *Framebuffer) Pixel(x, y int) bool {
	if x < 0 || x >= DISPLAY_WIDTH || y < 0 || y >= DISPLAY_HEIGHT {
		return false
	}

	return fb.pixels[y*DISPLAY_WIDTH+x]
}

func (fb *Framebuffer) Render() {
	if fb.Output == nil || !fb.dirty {
		return
	}

	// Cursor home, then overwrite the previous frame in place.
	if _, err := io.WriteString(fb.Output, "\033[H"); err != nil {
		return
	}

	if _, err := fb.WriteTo(fb.Output); err == nil {
		fb.dirty = false
	}
}

// WriteTo writes the current frame as text.
func (fb *Framebuffer) WriteTo(w io.Writer) (int64, error) {
	buf := bufio.NewWriter(w)
	var written int64

	for y := 0; y < DISPLAY_HEIGHT; y += 2 {
		for x := 0; x < DISPLAY_WIDTH; x++ {
			top := fb.Pixel(x, y)
			bottom := fb.Pixel(x, y+1)

			var cell string
			switch {
			case top && bottom:
				cell = "█"
			case top:
				cell = "▀"
			case bottom:
				cell = "▄"
			default:
				cell = " "
			}

			n, _ := buf.WriteString(cell)
			written += int64(n)
		}

		// Raw terminals do not translate LF, so return the carriage too.
		n, _ := buf.WriteString("\r\n")
		written += int64(n)
	}

	return written, buf.Flush()
}
