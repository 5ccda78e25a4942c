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

// Package config builds the runtime configuration shared by the binaries.
package config

import (
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger creates a logger at debug level when debug is set, or at
// error level when quiet is set.
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// Scheduler returns the default clock rates with any positive override
// applied.
func Scheduler(cycleRate, timerRate int) machine.SchedulerConfig {
	cfg := machine.DefaultSchedulerConfig()

	if cycleRate > 0 {
		cfg.CycleRate = cycleRate
	}
	if timerRate > 0 {
		cfg.TimerRate = timerRate
	}

	return cfg
}
