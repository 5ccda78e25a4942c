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
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
)

type countingDisplay struct {
	renders  int
	onRender func(int)
}

func (d *countingDisplay) Clear() {}

func (d *countingDisplay) DrawSprite(uint8, uint8, []byte, int) bool {
	return false
}

func (d *countingDisplay) Pixel(int, int) bool { return false }

func (d *countingDisplay) Render() {
	d.renders++
	if d.onRender != nil {
		d.onRender(d.renders)
	}
}

type switchInput struct {
	open bool
}

func (in *switchInput) PollAndContinue() bool   { return in.open }
func (in *switchInput) IsKeyPressed(uint8) bool { return false }
func (in *switchInput) SetKey(uint8, bool)      {}

func (in *switchInput) WaitForKey(ctx context.Context) (uint8, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

// fakeClock advances only when the scheduler sleeps.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps++
	c.now = c.now.Add(d)
}

func newTestScheduler(mc *Machine, cfg SchedulerConfig) (*Scheduler, *fakeClock) {
	clock := &fakeClock{now: time.Unix(0, 0)}

	sc := NewScheduler(mc, cfg)
	sc.now = clock.Now
	sc.sleep = clock.Sleep

	return sc, clock
}

func TestSchedulerRates(t *testing.T) {
	input := &switchInput{open: true}
	display := &countingDisplay{}
	display.onRender = func(n int) {
		if n == 100 {
			input.open = false
		}
	}

	mc := New(DeviceHandler{Display: display, Input: input}, nil)

	// ADD V0, 1 over the whole program space.
	rom := make([]byte, 0, 400)
	for i := 0; i < 200; i++ {
		rom = append(rom, 0x70, 0x01)
	}
	assert.NoError(t, mc.LoadBytes(rom))
	mc.SetDelayTimer(50)

	sc, clock := newTestScheduler(mc, SchedulerConfig{
		CycleRate: 1000,
		TimerRate: 100,
		Yield:     time.Millisecond,
	})

	assert.NoError(t, sc.Run(context.Background()))

	assert.Equal(t, 100, display.renders)
	assert.Equal(t, 100, clock.sleeps)
	assert.Equal(t, uint8(99), mc.Registers().V[0])
	assert.Equal(t, uint8(41), mc.Registers().Delay)
}

func TestSchedulerCancelled(t *testing.T) {
	mc := New(DeviceHandler{}, nil)
	sc, clock := newTestScheduler(mc, DefaultSchedulerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sc.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, clock.sleeps)
	assert.Equal(t, uint16(MEMSPACE_PROGRAM), mc.PC())
}

func TestSchedulerStopsWhileWaitingForKey(t *testing.T) {
	input := &switchInput{open: true}
	mc := New(DeviceHandler{Input: input}, nil)
	assert.NoError(t, mc.LoadBytes([]byte{0xF0, 0x0A}))

	sc, _ := newTestScheduler(mc, SchedulerConfig{Yield: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := sc.Run(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, uint16(MEMSPACE_PROGRAM), mc.PC())
}

func TestSchedulerDefaults(t *testing.T) {
	sc := NewScheduler(New(DeviceHandler{}, nil), SchedulerConfig{Yield: -1})

	assert.Equal(t, 2*time.Millisecond, sc.cycleEvery)
	assert.Equal(t, time.Second/60, sc.timerEvery)
	assert.Equal(t, time.Duration(0), sc.yield)
}
