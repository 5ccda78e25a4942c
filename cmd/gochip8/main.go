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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/config"
	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/devices"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
)

var helpvar bool
var debugvar bool
var verbosevar bool
var quietvar bool
var cyclevar int
var timervar int
var seedvar uint64
var symbolsvar string

const usage = "gochip8 [-debug] [-cpu hz] [-timer hz] [-seed n] filename"

const DEBUG_STEP_DELAY = 10 * time.Millisecond

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Starts the program paused in the interactive debugger",
	)
	flag.BoolVar(&verbosevar, "verbose", false, "Logs every instruction")
	flag.BoolVar(&quietvar, "quiet", false, "Logs errors only")
	flag.IntVar(
		&cyclevar, "cpu", machine.DEFAULT_CYCLE_RATE,
		"Instructions executed per second",
	)
	flag.IntVar(
		&timervar, "timer", machine.DEFAULT_TIMER_RATE,
		"Delay and sound timer decrements per second",
	)
	flag.Uint64Var(
		&seedvar, "seed", 0,
		"Seeds the random number generator, 0 picks a random seed",
	)
	flag.StringVar(
		&symbolsvar, "symbols", "",
		"Symbol table for the debugger, defaults to the program filename "+
			"with extension '"+assembler.SYMTABLE_EXT+"'",
	)
}

func gochip8() int {
	flag.Parse()

	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	logger := config.CreateLogger(verbosevar, quietvar)

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	program, err := os.ReadFile(args[0])
	if err != nil {
		logger.Error("Reading program failed", log.Err(err))
		return 1
	}

	keypad := devices.NewKeypad()

	var screen *devices.Framebuffer
	if debugvar {
		screen = devices.NewFramebuffer(nil)
	} else {
		screen = devices.NewFramebuffer(os.Stdout)
	}

	mc := machine.New(
		machine.DeviceHandler{Display: screen, Input: keypad}, logger,
	)

	if seedvar != 0 {
		mc.Reseed(seedvar)
	}

	if err := mc.LoadBytes(program); err != nil {
		logger.Error("Loading program failed",
			log.String("file", args[0]), log.Err(err))
		return 1
	}

	ctx := app.Context()

	if debugvar {
		return debug(ctx, logger, mc, screen, keypad, program, args[0])
	}

	return run(ctx, logger, mc, keypad)
}

func run(
	ctx context.Context,
	logger *log.Logger,
	mc *machine.Machine,
	keypad *devices.Keypad,
) int {
	terminal := devices.NewTerminal(keypad, os.Stdin)

	if !terminal.FitsDisplay() {
		logger.Warn("Terminal is smaller than the display",
			log.Int("columns", devices.DISPLAY_WIDTH),
			log.Int("rows", devices.DISPLAY_HEIGHT/2))
	}

	if err := terminal.Start(); err != nil {
		logger.Error("Opening terminal failed", log.Err(err))
		return 1
	}

	// Clear and hide the cursor for the duration of the run.
	fmt.Print("\033[2J\033[?25l")

	scheduler := machine.NewScheduler(mc, config.Scheduler(cyclevar, timervar))
	err := scheduler.Run(ctx)

	terminal.Stop()
	fmt.Print("\033[?25h\r\n")

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, devices.ErrClosed):
	default:
		logger.Error("Execution failed", log.Err(err))
		return 1
	}

	return 0
}

func debug(
	ctx context.Context,
	logger *log.Logger,
	mc *machine.Machine,
	screen *devices.Framebuffer,
	keypad *devices.Keypad,
	program []byte,
	filename string,
) int {
	dbg := debugger.New(mc, logger)
	dbg.StepDelay = DEBUG_STEP_DELAY

	path := symbolsvar
	if path == "" {
		path = strings.TrimSuffix(filename, filepath.Ext(filename)) +
			assembler.SYMTABLE_EXT
	}

	if file, err := os.Open(path); err == nil {
		symtable, err := assembler.DecodeSymTable(file)
		file.Close()

		if err != nil {
			logger.Warn("Loading symbol table failed",
				log.String("file", path), log.Err(err))
		} else {
			dbg.SymTable = symtable
		}
	} else if symbolsvar != "" {
		logger.Warn("Opening symbol table failed",
			log.String("file", path), log.Err(err))
	}

	if dbg.SymTable != nil && dbg.SymTable.Source != "" {
		if source, err := os.Open(dbg.SymTable.Source); err == nil {
			defer source.Close()
			dbg.Source = source
		} else {
			logger.Warn("Opening source failed",
				log.String("file", dbg.SymTable.Source), log.Err(err))
		}
	}

	session := &repl{
		dbg:     dbg,
		screen:  screen,
		keypad:  keypad,
		program: program,
		in:      os.Stdin,
		out:     os.Stdout,
	}

	if err := session.run(ctx); err != nil {
		logger.Error("Debugger failed", log.Err(err))
		return 1
	}

	return 0
}

func main() {
	os.Exit(gochip8())
}
