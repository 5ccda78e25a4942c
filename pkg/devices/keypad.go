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
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

const KEY_COUNT = 16

var ErrClosed = errors.New("input closed")

// Keypad tracks the state of the 16 hex keys. Key changes may come from
// another goroutine, such as a Terminal reader.
type Keypad struct {
	mu      sync.Mutex
	keys    [KEY_COUNT]bool
	closed  bool
	done    chan struct{}
	presses chan uint8
	waiting atomic.Int32
}

func NewKeypad() *Keypad {
	return &Keypad{
		done:    make(chan struct{}),
		presses: make(chan uint8, KEY_COUNT),
	}
}

func (kp *Keypad) PollAndContinue() bool {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	return !kp.closed
}

func (kp *Keypad) IsKeyPressed(key uint8) bool {
	if key >= KEY_COUNT {
		return false
	}

	kp.mu.Lock()
	defer kp.mu.Unlock()

	return kp.keys[key]
}

// SetKey updates a key. A released-to-pressed transition is queued for
// WaitForKey; the queue drops presses once full.
func (kp *Keypad) SetKey(key uint8, pressed bool) {
	if key >= KEY_COUNT {
		return
	}

	kp.mu.Lock()
	was := kp.keys[key]
	kp.keys[key] = pressed
	kp.mu.Unlock()

	if pressed && !was {
		select {
		case kp.presses <- key:
		default:
		}
	}
}

// WaitForKey returns the oldest queued press whose key is still held, or
// blocks for the next press. Presses already released are discarded.
func (kp *Keypad) WaitForKey(ctx context.Context) (uint8, error) {
	kp.waiting.Add(1)
	defer kp.waiting.Add(-1)

	for {
		select {
		case key := <-kp.presses:
			if kp.IsKeyPressed(key) {
				return key, nil
			}
		case <-kp.done:
			return 0, ErrClosed
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Waiting reports whether a WaitForKey call is blocked with no queued press
// to release it.
func (kp *Keypad) Waiting() bool {
	return kp.waiting.Load() > 0 && len(kp.presses) == 0
}

// Close marks the input as closed; PollAndContinue reports false from now on.
func (kp *Keypad) Close() {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	if !kp.closed {
		kp.closed = true
		close(kp.done)
	}
}
