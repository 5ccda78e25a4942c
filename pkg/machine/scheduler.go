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
	"time"
)

type SchedulerConfig struct {
	CycleRate int           // instructions per second
	TimerRate int           // timer decrements per second
	Yield     time.Duration // sleep between loop iterations
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		CycleRate: DEFAULT_CYCLE_RATE,
		TimerRate: DEFAULT_TIMER_RATE,
		Yield:     DEFAULT_YIELD,
	}
}

// Scheduler multiplexes instruction execution, timer ticks and rendering on
// the calling goroutine against wall clock time.
type Scheduler struct {
	Machine *Machine

	cycleEvery time.Duration
	timerEvery time.Duration
	yield      time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

func NewScheduler(mc *Machine, cfg SchedulerConfig) *Scheduler {
	defaults := DefaultSchedulerConfig()

	if cfg.CycleRate <= 0 {
		cfg.CycleRate = defaults.CycleRate
	}
	if cfg.TimerRate <= 0 {
		cfg.TimerRate = defaults.TimerRate
	}
	if cfg.Yield < 0 {
		cfg.Yield = 0
	}

	return &Scheduler{
		Machine:    mc,
		cycleEvery: time.Second / time.Duration(cfg.CycleRate),
		timerEvery: time.Second / time.Duration(cfg.TimerRate),
		yield:      cfg.Yield,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Run loops until the input device reports closure or ctx is done. Within an
// iteration the instruction runs first, the timer tick second and the render
// last.
func (sc *Scheduler) Run(ctx context.Context) error {
	lastCycle := sc.now()
	lastTimer := lastCycle

	for sc.Machine.PollInput() {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := sc.now()

		if now.Sub(lastCycle) >= sc.cycleEvery {
			if err := sc.Machine.Cycle(ctx); err != nil {
				return err
			}
			lastCycle = now
		}

		if now.Sub(lastTimer) >= sc.timerEvery {
			sc.Machine.TickTimers()
			lastTimer = now
		}

		sc.Machine.Render()

		if sc.yield > 0 {
			sc.sleep(sc.yield)
		}
	}

	return nil
}
