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
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

const (
	KEY_RELEASE_DELAY = 150 * time.Millisecond
	POLL_TIMEOUT_MS   = 50
)

var ErrNotTerminal = errors.New("input is not a terminal")

// Host keys in keypad order, 0x0 through 0xF.
var KEYMAP = [KEY_COUNT]byte{
	'1', '2', '3', '4',
	'q', 'w', 'e', 'r',
	'a', 's', 'd', 'f',
	'z', 'x', 'c', 'v',
}

// KeyFor maps a host key byte to a keypad key, ignoring case.
func KeyFor(b byte) (uint8, bool) {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}

	for key, host := range KEYMAP {
		if host == b {
			return uint8(key), true
		}
	}

	return 0, false
}

// Terminal puts a tty into raw mode and feeds key presses into a Keypad.
// Terminals report no key releases, so a key is released ReleaseAfter the
// last time it was seen. ESC and Ctrl-C close the keypad.
type Terminal struct {
	Keypad       *Keypad
	ReleaseAfter time.Duration

	fd      int
	restore *term.State
	stop    chan struct{}
	done    chan struct{}
	seen    [KEY_COUNT]time.Time
}

func NewTerminal(kp *Keypad, in *os.File) *Terminal {
	return &Terminal{
		Keypad:       kp,
		ReleaseAfter: KEY_RELEASE_DELAY,
		fd:           int(in.Fd()),
	}
}

// FitsDisplay reports whether the terminal can show a whole frame.
func (t *Terminal) FitsDisplay() bool {
	width, height, err := term.GetSize(t.fd)
	if err != nil {
		return false
	}

	return width >= DISPLAY_WIDTH && height >= DISPLAY_HEIGHT/2
}

func (t *Terminal) Start() error {
	if !term.IsTerminal(t.fd) {
		return ErrNotTerminal
	}

	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return err
	}

	t.restore = state
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go t.read()
	return nil
}

func (t *Terminal) Stop() error {
	if t.restore == nil {
		return nil
	}

	close(t.stop)
	<-t.done

	err := term.Restore(t.fd, t.restore)
	t.restore = nil
	return err
}

func (t *Terminal) read() {
	defer close(t.done)

	fds := []unix.PollFd{{Fd: int32(t.fd), Events: unix.POLLIN}}
	buf := make([]byte, 16)

	for {
		select {
		case <-t.stop:
			return
		default:
		}

		t.releaseStale(time.Now())

		n, err := unix.Poll(fds, POLL_TIMEOUT_MS)
		if err == unix.EINTR || n == 0 {
			continue
		}
		if err != nil {
			t.Keypad.Close()
			return
		}

		count, err := unix.Read(t.fd, buf)
		if err != nil || count == 0 {
			t.Keypad.Close()
			return
		}

		t.handle(buf[:count], time.Now())
	}
}

func (t *Terminal) handle(input []byte, now time.Time) {
	for _, b := range input {
		switch b {
		case 0x03, 0x1B: // Ctrl-C, ESC
			t.Keypad.Close()
			return
		}

		if key, ok := KeyFor(b); ok {
			t.seen[key] = now
			t.Keypad.SetKey(key, true)
		}
	}
}

func (t *Terminal) releaseStale(now time.Time) {
	for key, at := range t.seen {
		if !at.IsZero() && now.Sub(at) >= t.ReleaseAfter {
			t.seen[key] = time.Time{}
			t.Keypad.SetKey(uint8(key), false)
		}
	}
}
