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
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/config"
	"github.com/retroenv/retrogolib/log"
)

var helpvar bool
var debugvar bool
var verbosevar bool
var outvar string

const usage = "gochip8-asm [-debug] [-out outfile] filename"

const OUTPUT_EXT = ".ch8"

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'"+assembler.SYMTABLE_EXT+"'",
	)
	flag.BoolVar(&verbosevar, "verbose", false, "Enables debug logging")
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
}

// report prints err, underlining the offending token when its source line
// can be read back.
func report(w io.Writer, prefix string, input io.ReadSeeker, err error) {
	var tokenErr assembler.TokenError

	if input == nil || !errors.As(err, &tokenErr) {
		fmt.Fprintf(w, "%s %s\n", prefix, err)
		return
	}

	cursor := tokenErr.GetPosition()

	if _, seekErr := input.Seek(cursor.LineByte, io.SeekStart); seekErr != nil {
		fmt.Fprintf(w, "%s %s\n", prefix, err)
		return
	}

	line, _ := bufio.NewReader(input).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")

	size := max(int(cursor.Size), 1)
	underline := strings.Repeat(" ", int(cursor.Byte-cursor.LineByte)) +
		"^" + strings.Repeat("~", size-1)

	fmt.Fprintf(w, "%s %s\n%s\n\033[31m%s\033[0m\n", prefix, err, line, underline)
}

func gochip8_asm() int {
	flag.Parse()

	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	logger := config.CreateLogger(verbosevar, false)
	args := flag.Args()

	var infile string
	var input io.ReadSeeker
	var prefix string

	if stat, _ := os.Stdin.Stat(); stat.Mode()&os.ModeCharDevice == 0 {
		input = os.Stdin
		prefix = "\033[1m<stdin>:\033[0m"

		if outvar == "" {
			outvar = "out" + OUTPUT_EXT
		}
	} else {
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, usage)
			return 1
		}

		file, err := os.Open(args[0])
		if err != nil {
			logger.Error("Opening source failed", log.Err(err))
			return 1
		}

		defer file.Close()

		filename := filepath.Base(file.Name())

		if stat, err := file.Stat(); err != nil {
			logger.Error("Reading source failed", log.Err(err))
			return 1
		} else if stat.IsDir() {
			logger.Error("Not a valid CHIP-8 assembly file",
				log.String("file", filename))
			return 1
		}

		input = file
		infile = file.Name()
		prefix = fmt.Sprintf("\033[1m%s:\033[0m", filename)

		if outvar == "" {
			outvar = strings.TrimSuffix(filename, filepath.Ext(filename)) +
				OUTPUT_EXT
		}
	}

	var symtable *assembler.SymTable

	if debugvar {
		var source string

		if input != os.Stdin {
			var err error
			if source, err = filepath.Abs(infile); err != nil {
				logger.Warn("Resolving source path failed", log.Err(err))
				source = ""
			}
		}

		symtable = assembler.NewSymTable(source)
	}

	result, errs := assembler.AssembleSource(input, symtable)

	if len(errs) > 0 {
		// Standard input cannot be rewound for the source line.
		var rewind io.ReadSeeker
		if input != os.Stdin {
			rewind = input
		}

		for _, err := range errs {
			report(os.Stderr, prefix, rewind, err)
		}

		return 1
	}

	if err := os.WriteFile(outvar, result, 0666); err != nil {
		logger.Error("Writing output file failed",
			log.String("file", outvar), log.Err(err))
		return 1
	}

	logger.Debug("Program assembled",
		log.String("file", outvar), log.Int("size", len(result)))

	if symtable != nil {
		filename := filepath.Join(
			filepath.Dir(outvar),
			strings.TrimSuffix(filepath.Base(outvar), filepath.Ext(outvar))+
				assembler.SYMTABLE_EXT,
		)

		file, err := os.Create(filename)
		if err != nil {
			logger.Error("Creating symbol table failed", log.Err(err))
			return 1
		}

		defer file.Close()

		if err := symtable.Encode(file); err != nil {
			logger.Error("Writing symbol table failed", log.Err(err))
			return 1
		}
	}

	return 0
}

func main() {
	os.Exit(gochip8_asm())
}
