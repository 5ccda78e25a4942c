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

package assembler_test

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/retroenv/retrogolib/assert"
)

type testCase struct {
	Name     string
	Input    string
	Output   []byte
	SymTable *assembler.SymTable
}

type failCase struct {
	Name  string
	Input string
	Error error
}

func testAssemblerSuccess(t *testing.T, test *testCase) {
	var symtarget *assembler.SymTable

	if test.SymTable != nil {
		symtarget = assembler.NewSymTable("")
	}

	result, errs := assembler.AssembleSource(
		strings.NewReader(test.Input), symtarget,
	)

	if len(errs) > 0 {
		t.Fatal(errs[0])
	}

	if !bytes.Equal(result, test.Output) {
		t.Fatalf(
			"Program image mismatch\nwant:% x (test.Output)\nhave:% x",
			test.Output,
			result,
		)
	}

	if test.SymTable != nil {
		assert.Equal(t, test.SymTable.Symbols, symtarget.Symbols)
		assert.Equal(t, test.SymTable.Labels, symtarget.Labels)
	}
}

func testAssemblerFail(t *testing.T, test *failCase) {
	_, errs := assembler.AssembleSource(strings.NewReader(test.Input), nil)

	if test.Error == nil {
		panic("Fail case missing error value")
	}

	if len(errs) == 0 {
		t.Fatalf(
			"%s produced error of incorrect type"+
				"\nwant:%T (test.Error)\nhave:<nil>",
			t.Name(),
			test.Error,
		)
	}

	if len(errs) > 1 {
		errTypes := make([]reflect.Type, 0, len(errs))
		for _, err := range errs {
			errTypes = append(errTypes, reflect.TypeOf(err))
		}

		t.Fatalf(
			"%s produced multiple errors:\n\twant:%T (test.Error)\n\thave:%v",
			t.Name(),
			test.Error,
			errTypes,
		)
	}

	if reflect.TypeOf(errs[0]) != reflect.TypeOf(test.Error) {
		t.Fatalf(
			"%s produced error of incorrect type"+
				"\nwant:%T (test.Error)\nhave:%T",
			t.Name(),
			test.Error,
			errs[0],
		)
	}
}

func testSuccess(t *testing.T, tests []testCase) {
	t.Run("Success", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testAssemblerSuccess(t, &test)
			})
		}
	})
}

func testFail(t *testing.T, tests []failCase) {
	t.Run("Fail", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testAssemblerFail(t, &test)
			})
		}
	})
}

// CLS  |00E0|
// RET  |00EE|
// JP   |1nnn|Bnnn|
// CALL |2nnn|
func TestFlow(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "CLS",
			Input:  `CLS`,
			Output: []byte{0x00, 0xE0},
		},
		{
			Name:   "RET lowercase",
			Input:  `ret`,
			Output: []byte{0x00, 0xEE},
		},
		{
			Name:   "JP hex",
			Input:  `JP 0x234`,
			Output: []byte{0x12, 0x34},
		},
		{
			Name:   "JP dollar hex",
			Input:  `JP $234`,
			Output: []byte{0x12, 0x34},
		},
		{
			Name:   "JP V0",
			Input:  `JP V0, 0x300`,
			Output: []byte{0xB3, 0x00},
		},
		{
			Name:   "CALL decimal",
			Input:  `CALL #768`,
			Output: []byte{0x23, 0x00},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "CLS with operand",
			Input: `CLS V0`,
			Error: &assembler.InvalidNumArgumentsError{},
		},
		{
			Name:  "JP oversized address",
			Input: `JP 0x1000`,
			Error: &assembler.OversizedLiteralError{},
		},
		{
			Name:  "JP V1",
			Input: `JP V1, 0x300`,
			Error: &assembler.InvalidRegisterError{},
		},
		{
			Name:  "CALL register",
			Input: `CALL V0`,
			Error: &assembler.UnsupportedOperandsError{},
		},
	})
}

// SE   |3xnn|5xy0|
// SNE  |4xnn|9xy0|
// SKP  |Ex9E|
// SKNP |ExA1|
func TestSkip(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "SE byte",
			Input:  `SE V3, 0x42`,
			Output: []byte{0x33, 0x42},
		},
		{
			Name:   "SE register",
			Input:  `SE V3, VA`,
			Output: []byte{0x53, 0xA0},
		},
		{
			Name:   "SNE byte",
			Input:  `SNE v3, 66`,
			Output: []byte{0x43, 0x42},
		},
		{
			Name:   "SNE register",
			Input:  `SNE V3, V4`,
			Output: []byte{0x93, 0x40},
		},
		{
			Name:   "SKP",
			Input:  `SKP VE`,
			Output: []byte{0xEE, 0x9E},
		},
		{
			Name:   "SKNP",
			Input:  `SKNP V1`,
			Output: []byte{0xE1, 0xA1},
		},
	})

	testFail(t, []failCase{
		{
			Name:  "SE oversized byte",
			Input: `SE V0, 256`,
			Error: &assembler.OversizedLiteralError{},
		},
		{
			Name:  "SE missing operand",
			Input: `SE V0`,
			Error: &assembler.InvalidNumArgumentsError{},
		},
		{
			Name:  "SKP literal",
			Input: `SKP 1`,
			Error: &assembler.UnsupportedOperandsError{},
		},
	})
}

// LD   |6xnn|8xy0|Annn|Fx07|Fx0A|Fx15|Fx18|Fx29|Fx33|Fx55|Fx65|
func TestLoad(t *testing.T) {
	testSuccess(t, []testCase{
		{Name: "LD Vx, byte", Input: `LD V0, 0x42`, Output: []byte{0x60, 0x42}},
		{Name: "LD Vx, Vy", Input: `LD V1, V2`, Output: []byte{0x81, 0x20}},
		{Name: "LD I, addr", Input: `LD I, 0x123`, Output: []byte{0xA1, 0x23}},
		{Name: "LD Vx, DT", Input: `LD V5, DT`, Output: []byte{0xF5, 0x07}},
		{Name: "LD Vx, K", Input: `LD V5, K`, Output: []byte{0xF5, 0x0A}},
		{Name: "LD DT, Vx", Input: `LD DT, V5`, Output: []byte{0xF5, 0x15}},
		{Name: "LD ST, Vx", Input: `LD ST, V5`, Output: []byte{0xF5, 0x18}},
		{Name: "LD F, Vx", Input: `LD F, V5`, Output: []byte{0xF5, 0x29}},
		{Name: "LD B, Vx", Input: `LD B, V5`, Output: []byte{0xF5, 0x33}},
		{Name: "LD [I], Vx", Input: `LD [I], V5`, Output: []byte{0xF5, 0x55}},
		{Name: "LD Vx, [I]", Input: `LD V5, [i]`, Output: []byte{0xF5, 0x65}},
	})

	testFail(t, []failCase{
		{
			Name:  "LD byte, Vx",
			Input: `LD 5, V0`,
			Error: &assembler.UnsupportedOperandsError{},
		},
		{
			Name:  "LD DT, byte",
			Input: `LD DT, 5`,
			Error: &assembler.UnsupportedOperandsError{},
		},
		{
			Name:  "LD invalid literal",
			Input: `LD V0, 0xZZ`,
			Error: &assembler.InvalidLiteralError{},
		},
		{
			Name:  "LD trailing comma",
			Input: `LD V0,`,
			Error: &assembler.UnexpectedCharacterError{},
		},
	})
}

// ADD  |7xnn|8xy4|Fx1E|
// OR   |8xy1| AND |8xy2| XOR |8xy3| SUB |8xy5| SUBN |8xy7|
// SHR  |8xy6| SHL |8xyE|
// RND  |Cxnn|
// DRW  |Dxyn|
func TestArithmetic(t *testing.T) {
	testSuccess(t, []testCase{
		{Name: "ADD Vx, byte", Input: `ADD V1, 1`, Output: []byte{0x71, 0x01}},
		{Name: "ADD Vx, Vy", Input: `ADD V1, V2`, Output: []byte{0x81, 0x24}},
		{Name: "ADD I, Vx", Input: `ADD I, V2`, Output: []byte{0xF2, 0x1E}},
		{Name: "OR", Input: `OR V1, V2`, Output: []byte{0x81, 0x21}},
		{Name: "AND", Input: `AND V1, V2`, Output: []byte{0x81, 0x22}},
		{Name: "XOR", Input: `XOR V1, V2`, Output: []byte{0x81, 0x23}},
		{Name: "SUB", Input: `SUB V1, V2`, Output: []byte{0x81, 0x25}},
		{Name: "SUBN", Input: `SUBN V1, V2`, Output: []byte{0x81, 0x27}},
		{Name: "SHR", Input: `SHR V1`, Output: []byte{0x81, 0x06}},
		{Name: "SHL Vx, Vy", Input: `SHL V1, V2`, Output: []byte{0x81, 0x2E}},
		{Name: "RND", Input: `RND V1, 0x0F`, Output: []byte{0xC1, 0x0F}},
		{Name: "DRW", Input: `DRW V1, V2, 5`, Output: []byte{0xD1, 0x25}},
	})

	testFail(t, []failCase{
		{
			Name:  "OR with byte",
			Input: `OR V1, 5`,
			Error: &assembler.UnsupportedOperandsError{},
		},
		{
			Name:  "DRW oversized rows",
			Input: `DRW V1, V2, 16`,
			Error: &assembler.OversizedLiteralError{},
		},
		{
			Name:  "Unknown mnemonic",
			Input: `MUL V1, V2`,
			Error: &assembler.UnknownIdentifierError{},
		},
		{
			Name:  "Unexpected character",
			Input: `ADD V1, V2 @`,
			Error: &assembler.UnexpectedCharacterError{},
		},
		{
			Name:  "Non ASCII identifier",
			Input: `ADD V1, Vé`,
			Error: &assembler.OversizedCharacterError{},
		},
	})
}

func TestDirectives(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   ".BYTE",
			Input:  `.BYTE 0xF0, 0x90, 144`,
			Output: []byte{0xF0, 0x90, 0x90},
		},
		{
			Name:   ".WORD",
			Input:  `.word 0x1234, $ABCD`,
			Output: []byte{0x12, 0x34, 0xAB, 0xCD},
		},
		{
			Name: ".WORD label",
			Input: `
				JP end
			end:
				.WORD end`,
			Output: []byte{0x12, 0x02, 0x02, 0x02},
		},
	})

	testFail(t, []failCase{
		{
			Name:  ".BYTE without values",
			Input: `.BYTE`,
			Error: &assembler.InvalidNumArgumentsError{},
		},
		{
			Name:  ".BYTE oversized",
			Input: `.BYTE 0x100`,
			Error: &assembler.OversizedLiteralError{},
		},
		{
			Name:  ".BYTE register",
			Input: `.BYTE V0`,
			Error: &assembler.InvalidOperandError{},
		},
		{
			Name:  "Unknown directive",
			Input: `.ORG 0x300`,
			Error: &assembler.UnknownIdentifierError{},
		},
	})
}

func TestComment(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name:   "Comment only",
			Input:  `; nothing to see`,
			Output: []byte{},
		},
		{
			Name:   "Trailing comment",
			Input:  `CLS;clear`,
			Output: []byte{0x00, 0xE0},
		},
		{
			Name: "Blank lines",
			Input: `

				CLS ; clear

				RET`,
			Output: []byte{0x00, 0xE0, 0x00, 0xEE},
		},
	})
}

func TestLabel(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "Backward reference",
			Input: `
			loop:
				ADD V0, 1
				JP loop`,
			Output: []byte{0x70, 0x01, 0x12, 0x00},
		},
		{
			Name: "Forward reference",
			Input: `
				CALL draw
				JP end
			draw: RET
			end:
				LD I, sprite
			sprite:
				.BYTE 0x80`,
			Output: []byte{
				0x22, 0x04,
				0x12, 0x06,
				0x00, 0xEE,
				0xA2, 0x08,
				0x80,
			},
		},
		{
			Name: "Case insensitive",
			Input: `
			Start:
				JP START`,
			Output: []byte{0x12, 0x00},
		},
	})

	testFail(t, []failCase{
		{
			Name: "Redeclared label",
			Input: `
			loop:
			loop:
				JP loop`,
			Error: &assembler.RedeclaredLabelError{},
		},
		{
			Name:  "Unknown label",
			Input: `JP nowhere`,
			Error: &assembler.UnknownLabelError{},
		},
		{
			Name: "Label too large for byte",
			Input: `
			here:
				LD V0, here`,
			Error: &assembler.OversizedLabelError{},
		},
		{
			Name:  "Label as operand",
			Input: `JP loop:`,
			Error: &assembler.InvalidOperandError{},
		},
		{
			Name:  "Colon after literal",
			Input: `5:`,
			Error: &assembler.UnexpectedCharacterError{},
		},
	})
}

func TestProgramSize(t *testing.T) {
	fits := strings.Repeat("CLS\n", 1792)

	result, errs := assembler.AssembleSource(strings.NewReader(fits), nil)
	assert.Empty(t, errs)
	assert.Len(t, result, 3584)

	testFail(t, []failCase{
		{
			Name:  "Oversized binary",
			Input: fits + "CLS\n",
			Error: &assembler.OversizedBinaryError{},
		},
	})
}

func TestSymtable(t *testing.T) {
	testSuccess(t, []testCase{
		{
			Name: "Symbols and labels",
			Input: "start:\n" +
				"  LD V0, 1 ; first\n" +
				"\n" +
				"loop: ADD V0, 1\n" +
				"  JP loop\n" +
				"data: .BYTE 1, 2\n",
			Output: []byte{0x60, 0x01, 0x70, 0x01, 0x12, 0x02, 0x01, 0x02},
			SymTable: &assembler.SymTable{
				Symbols: map[uint16]int64{
					0x200: 7,
					0x202: 27,
					0x204: 43,
					0x206: 53,
				},
				Labels: map[uint16]string{
					0x200: "start",
					0x202: "loop",
					0x206: "data",
				},
			},
		},
	})
}

func TestSymtableEncoding(t *testing.T) {
	symtable := assembler.NewSymTable("/tmp/game.asm")
	symtable.Symbols[0x200] = 0
	symtable.Labels[0x200] = "start"

	var buf bytes.Buffer
	assert.NoError(t, symtable.Encode(&buf))

	decoded, err := assembler.DecodeSymTable(&buf)
	assert.NoError(t, err)
	assert.Equal(t, *symtable, *decoded)

	_, err = assembler.DecodeSymTable(strings.NewReader("garbage"))
	assert.Error(t, err)
}

func TestErrorPosition(t *testing.T) {
	_, errs := assembler.AssembleSource(
		strings.NewReader("CLS\n  LD V0, 0x1FF\n"), nil,
	)

	assert.Len(t, errs, 1)

	tokenErr, ok := errs[0].(assembler.TokenError)
	assert.True(t, ok)

	position := tokenErr.GetPosition()
	assert.Equal(t, 2, position.Line)
	assert.Equal(t, 10, position.Column)
	assert.Equal(t, int64(4), position.LineByte)
	assert.Equal(t, int64(13), position.Byte)
	assert.Equal(t, int64(5), position.Size)
}
