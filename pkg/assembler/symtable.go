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

package assembler

import (
	"encoding/gob"
	"fmt"
	"io"
)

const SYMTABLE_EXT = ".c8db"

func (symtable *SymTable) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(symtable); err != nil {
		return fmt.Errorf("encoding symbol table: %w", err)
	}

	return nil
}

func DecodeSymTable(r io.Reader) (*SymTable, error) {
	var symtable SymTable

	if err := gob.NewDecoder(r).Decode(&symtable); err != nil {
		return nil, fmt.Errorf("decoding symbol table: %w", err)
	}

	if symtable.Symbols == nil {
		symtable.Symbols = make(map[uint16]int64)
	}
	if symtable.Labels == nil {
		symtable.Labels = make(map[uint16]string)
	}

	return &symtable, nil
}
