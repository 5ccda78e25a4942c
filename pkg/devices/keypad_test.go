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

package devices_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lassandro/gochip8/pkg/devices"
	"github.com/retroenv/retrogolib/assert"
)

func TestKeypadSetKey(t *testing.T) {
	kp := devices.NewKeypad()

	assert.False(t, kp.IsKeyPressed(0x5))
	kp.SetKey(0x5, true)
	assert.True(t, kp.IsKeyPressed(0x5))
	kp.SetKey(0x5, false)
	assert.False(t, kp.IsKeyPressed(0x5))

	// Keys past 0xF do not exist.
	kp.SetKey(0x10, true)
	assert.False(t, kp.IsKeyPressed(0x10))
}

func TestKeypadWaitForHeldKey(t *testing.T) {
	kp := devices.NewKeypad()
	kp.SetKey(0xA, true)

	key, err := kp.WaitForKey(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint8(0xA), key)
}

func TestKeypadWaitSkipsReleasedPresses(t *testing.T) {
	kp := devices.NewKeypad()
	kp.SetKey(0x1, true)
	kp.SetKey(0x1, false)
	kp.SetKey(0x2, true)

	key, err := kp.WaitForKey(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint8(0x2), key)
}

func TestKeypadWaitBlocksUntilPress(t *testing.T) {
	kp := devices.NewKeypad()
	assert.False(t, kp.Waiting())

	go func() {
		for !kp.Waiting() {
			time.Sleep(time.Millisecond)
		}
		kp.SetKey(0x7, true)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key, err := kp.WaitForKey(ctx)
	assert.NoError(t, err)
	assert.Equal(t, uint8(0x7), key)
	assert.False(t, kp.Waiting())
}

func TestKeypadWaitCancelled(t *testing.T) {
	kp := devices.NewKeypad()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := kp.WaitForKey(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestKeypadClose(t *testing.T) {
	kp := devices.NewKeypad()
	assert.True(t, kp.PollAndContinue())

	kp.Close()
	kp.Close()
	assert.False(t, kp.PollAndContinue())

	_, err := kp.WaitForKey(context.Background())
	assert.True(t, errors.Is(err, devices.ErrClosed))
}
