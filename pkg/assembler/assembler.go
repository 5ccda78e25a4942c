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
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

func parseDirective(ident string) DirectiveType {
	if strings.EqualFold(ident, ".BYTE") {
		return DIRECTIVE_BYTE
	} else if strings.EqualFold(ident, ".WORD") {
		return DIRECTIVE_WORD
	}

	return DIRECTIVE_INVALID
}

func parseInstruction(ident string) InstructionType {
	if instruction, ok := instructionNames[strings.ToUpper(ident)]; ok {
		return instruction
	}

	return INSTRUCTION_INVALID
}

func parseLiteral(token *Token, bits LiteralType) (uint16, error) {
	result, err := encoding.DecodeLiteral(token.Value)

	if err != nil {
		return 0, &InvalidLiteralError{token.Position}
	}

	if bits < LITERAL_WORD {
		limit := uint16(1)<<bits - 1

		if result > limit {
			return 0, &OversizedLiteralError{token.Position, limit, result}
		}
	}

	return result, nil
}

// Register identifiers are V0 through VF.
func parseRegister(token *Token) (uint8, bool) {
	ident := token.Value

	if len(ident) != 2 || (ident[0] != 'V' && ident[0] != 'v') {
		return 0, false
	}

	reg, err := encoding.DecodeHex(ident[1:])
	if err != nil {
		return 0, false
	}

	return uint8(reg), true
}

type operand struct {
	Type  OperandType
	Reg   uint8
	Token *Token
}

func parseOperand(token *Token) operand {
	result := operand{Type: OPERAND_INVALID, Token: token}

	switch token.Type {
	case TOKEN_LITERAL:
		result.Type = OPERAND_VALUE

	case TOKEN_IDENT:
		if reg, ok := parseRegister(token); ok {
			result.Type = OPERAND_REGISTER
			result.Reg = reg
		} else if named, ok := operandNames[strings.ToUpper(token.Value)]; ok {
			result.Type = named
		} else {
			// Anything else names a label
			result.Type = OPERAND_VALUE
		}
	}

	return result
}

// tokenize splits a single line into tokens, dropping comments.
func tokenize(line string, cursor Cursor) (tokens []Token, errs []error) {
	var builder strings.Builder
	var tokenStart int
	var tokenType TokenType = TOKEN_NONE
	var comma *Cursor

	flush := func() {
		if builder.Len() > 0 {
			tokens = append(tokens, Token{
				Type: tokenType,
				Position: Cursor{
					Line:     cursor.Line,
					Column:   tokenStart,
					Byte:     cursor.Byte + int64(tokenStart-1),
					Size:     int64(builder.Len()),
					LineByte: cursor.Byte,
				},
				Value: builder.String(),
			})
			builder.Reset()
		}

		tokenType = TOKEN_NONE
	}

scan:
	for column, char := range line {
		cursor.Column = column + 1

		if tokenType == TOKEN_NONE {
			tokenStart = cursor.Column
		}

		switch {
		// Whitespace
		case unicode.IsSpace(char):
			flush()
			continue

		// Comments
		case char == ';':
			break scan

		// Operand Separator
		case char == ',':
			flush()
			position := cursor
			comma = &position
			continue

		// Label Definition (i.e. loop:)
		case char == ':':
			if tokenType != TOKEN_IDENT {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
				continue
			}

			tokenType = TOKEN_LABEL
			flush()
			continue

		// Assembler Directives
		case char == '.':
			if tokenType != TOKEN_NONE {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
				continue
			}

			tokenType = TOKEN_DIRECTIVE

		// Hex or Base 10 Literal (i.e. $2A, #42)
		case char == '$' || char == '#':
			if tokenType != TOKEN_NONE {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
				continue
			}

			tokenType = TOKEN_LITERAL

		// Numeric Literal (i.e. 42, 0x2A)
		case unicode.IsDigit(char):
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_LITERAL
			}

		// Identifier punctuation (i.e. _loop, [I])
		case char == '_' || char == '[' || char == ']':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_IDENT
			} else if tokenType == TOKEN_LITERAL {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
				continue
			}

		// Identifier
		case unicode.IsLetter(char):
			if char > unicode.MaxASCII {
				errs = append(errs, &OversizedCharacterError{cursor})
				continue
			}

			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_IDENT
			}

		default:
			if char > unicode.MaxASCII {
				errs = append(errs, &OversizedCharacterError{cursor})
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

			continue
		}

		comma = nil
		builder.WriteRune(char)
	}

	flush()

	if comma != nil {
		errs = append(errs, &UnexpectedCharacterError{*comma, ','})
	}

	return tokens, errs
}

// AssembleSource assembles CHIP-8 source into a raw program image meant to be
// loaded at MEMSPACE_PROGRAM. When symtable is not nil it receives the source
// offsets and labels of the program.
func AssembleSource(input io.Reader, symtable *SymTable) (result []byte, errs []error) {
	type LabelRef struct {
		Label    string
		Offset   int
		Width    int
		Size     LiteralType
		Position Cursor
	}

	var labels = make(map[string]uint16)
	var names = make(map[string]string)
	var labelRefs []LabelRef

	var program int = 0

	var scanner = bufio.NewScanner(input)
	var cursor = Cursor{Line: 1, Column: 0, Size: 0, Byte: 0}

	result = make([]byte, machine.MAX_PROGRAM_SIZE)
	errs = make([]error, 0)

	var size int = 0

	emit := func(width int, value uint16) bool {
		if program+width > machine.MAX_PROGRAM_SIZE {
			errs = append(
				errs, &OversizedBinaryError{machine.MAX_PROGRAM_SIZE},
			)
			return false
		}

		if width == 2 {
			result[program], result[program+1] = encoding.SplitWord(value)
		} else {
			result[program] = byte(value)
		}

		program += width
		size = max(size, program)
		return true
	}

	// value resolves a literal or label operand. Unknown labels are
	// recorded and patched in once every label is known.
	value := func(op *operand, bits LiteralType, width int) uint16 {
		token := op.Token

		if token.Type == TOKEN_LITERAL {
			literal, err := parseLiteral(token, bits)

			if err != nil {
				errs = append(errs, err)
			}

			return literal
		}

		labelRefs = append(labelRefs, LabelRef{
			Label:    strings.ToUpper(token.Value),
			Offset:   program,
			Width:    width,
			Size:     bits,
			Position: token.Position,
		})

		return 0
	}

	nextLine := func(line string) {
		cursor.Line++
		cursor.Byte += int64(len(line) + 1)
		cursor.LineByte += int64(len(line) + 1)
	}

	for scanner.Scan() {
		line := scanner.Text()
		cursor.Size = int64(len(line))

		tokens, lineErrs := tokenize(line, cursor)

		// Pass any potential assembler errors if we already had parser errors
		if len(lineErrs) > 0 {
			errs = append(errs, lineErrs...)
			nextLine(line)
			continue
		}

		if len(tokens) > 0 && tokens[0].Type == TOKEN_LABEL {
			label := &tokens[0]
			key := strings.ToUpper(label.Value)

			if _, exists := labels[key]; !exists {
				labels[key] = uint16(machine.MEMSPACE_PROGRAM + program)
				names[key] = label.Value
			} else {
				errs = append(
					errs, &RedeclaredLabelError{label.Position, label.Value},
				)
			}

			tokens = tokens[1:]
		}

		if len(tokens) == 0 {
			nextLine(line)
			continue
		}

		keyword := &tokens[0]
		operands := make([]operand, 0, len(tokens)-1)
		lineErrCount := len(errs)

		for i := 1; i < len(tokens); i++ {
			op := parseOperand(&tokens[i])

			if op.Type == OPERAND_INVALID {
				errs = append(
					errs,
					&InvalidOperandError{
						tokens[i].Position,
						[]TokenType{TOKEN_IDENT, TOKEN_LITERAL},
						tokens[i].Type,
					},
				)
			}

			operands = append(operands, op)
		}

		if len(errs) > lineErrCount {
			nextLine(line)
			continue
		}

		var directive DirectiveType
		var instruction InstructionType

		switch keyword.Type {
		case TOKEN_DIRECTIVE:
			directive = parseDirective(keyword.Value)
		case TOKEN_IDENT:
			instruction = parseInstruction(keyword.Value)
		}

		if directive == DIRECTIVE_INVALID && instruction == INSTRUCTION_INVALID {
			errs = append(
				errs,
				&UnknownIdentifierError{keyword.Position, keyword.Value},
			)

			nextLine(line)
			continue
		}

		start := program

		switch directive {
		// .BYTE #[, #...]
		// .WORD #[, #...]
		case DIRECTIVE_BYTE, DIRECTIVE_WORD:
			if len(operands) == 0 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
				)

				break
			}

			width, bits := 1, LITERAL_BYTE
			if directive == DIRECTIVE_WORD {
				width, bits = 2, LITERAL_WORD
			}

			for i := range operands {
				if operands[i].Type != OPERAND_VALUE {
					errs = append(
						errs,
						&InvalidOperandError{
							operands[i].Token.Position,
							[]TokenType{TOKEN_LITERAL, TOKEN_IDENT},
							operands[i].Token.Type,
						},
					)

					continue
				}

				if !emit(width, value(&operands[i], bits, width)) {
					return result[:size], errs
				}
			}
		}

		if instruction != INSTRUCTION_INVALID {
			opcode, ok := assembleInstruction(
				instruction, keyword, operands, &errs, value,
			)

			if ok && !emit(machine.OPCODE_SIZE, opcode) {
				return result[:size], errs
			}
		}

		if symtable != nil && program > start {
			addr := uint16(machine.MEMSPACE_PROGRAM + start)
			symtable.Symbols[addr] = cursor.LineByte
		}

		nextLine(line)
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}

	// Label
	// - Validate and resolve label references
	// - Add labels to symbol table
	for _, ref := range labelRefs {
		addr, exists := labels[ref.Label]

		if !exists {
			errs = append(errs, &UnknownLabelError{ref.Position, ref.Label})
			continue
		}

		limit := uint16(1<<ref.Size - 1)

		if addr > limit {
			errs = append(
				errs, &OversizedLabelError{ref.Position, limit, addr},
			)

			continue
		}

		if ref.Width == 2 {
			scratch := encoding.Word(result[ref.Offset], result[ref.Offset+1])
			scratch |= addr & limit
			result[ref.Offset], result[ref.Offset+1] = encoding.SplitWord(scratch)
		} else {
			result[ref.Offset] |= byte(addr)
		}
	}

	if symtable != nil {
		for key, addr := range labels {
			symtable.Labels[addr] = names[key]
		}
	}

	return result[:size], errs
}

// assembleInstruction encodes a single instruction. Operand values go through
// value so label references can be patched later.
func assembleInstruction(
	instruction InstructionType,
	keyword *Token,
	operands []operand,
	errs *[]error,
	value func(*operand, LiteralType, int) uint16,
) (uint16, bool) {
	argc := func(counts ...int) bool {
		for _, count := range counts {
			if len(operands) == count {
				return true
			}
		}

		*errs = append(
			*errs,
			&InvalidNumArgumentsError{keyword.Position, counts[0], len(operands)},
		)
		return false
	}

	unsupported := func() (uint16, bool) {
		*errs = append(
			*errs, &UnsupportedOperandsError{keyword.Position, keyword.Value},
		)
		return 0, false
	}

	// Operand type signature, i.e. match(OPERAND_REGISTER, OPERAND_VALUE)
	match := func(types ...OperandType) bool {
		if len(types) != len(operands) {
			return false
		}

		for i, opType := range types {
			if operands[i].Type != opType {
				return false
			}
		}

		return true
	}

	x := func() uint16 { return uint16(operands[0].Reg) << 8 }
	y := func() uint16 { return uint16(operands[1].Reg) << 4 }

	switch instruction {
	// CLS  |00E0|                | Clear display
	// RET  |00EE|                | Return from subroutine
	case INSTRUCTION_CLS, INSTRUCTION_RET:
		if !argc(0) {
			return 0, false
		}

		if instruction == INSTRUCTION_CLS {
			return 0x00E0, true
		}
		return 0x00EE, true

	// JP   |1nnn|                | Jump
	// JP   |Bnnn|V0, addr        | Jump with offset
	case INSTRUCTION_JP:
		if !argc(1, 2) {
			return 0, false
		}

		if match(OPERAND_VALUE) {
			return 0x1000 | value(&operands[0], LITERAL_ADDR, 2), true
		}

		if match(OPERAND_REGISTER, OPERAND_VALUE) {
			if operands[0].Reg != 0 {
				*errs = append(
					*errs, &InvalidRegisterError{operands[0].Token.Position},
				)
				return 0, false
			}

			return 0xB000 | value(&operands[1], LITERAL_ADDR, 2), true
		}

		return unsupported()

	// CALL |2nnn|                | Call subroutine
	case INSTRUCTION_CALL:
		if !argc(1) {
			return 0, false
		}

		if !match(OPERAND_VALUE) {
			return unsupported()
		}

		return 0x2000 | value(&operands[0], LITERAL_ADDR, 2), true

	// SE   |3xnn|5xy0|           | Skip if equal
	// SNE  |4xnn|9xy0|           | Skip if not equal
	case INSTRUCTION_SE, INSTRUCTION_SNE:
		if !argc(2) {
			return 0, false
		}

		byteOp, regOp := uint16(0x3000), uint16(0x5000)
		if instruction == INSTRUCTION_SNE {
			byteOp, regOp = 0x4000, 0x9000
		}

		switch {
		case match(OPERAND_REGISTER, OPERAND_REGISTER):
			return regOp | x() | y(), true
		case match(OPERAND_REGISTER, OPERAND_VALUE):
			return byteOp | x() | value(&operands[1], LITERAL_BYTE, 2), true
		}

		return unsupported()

	// LD   |6xnn|8xy0|Annn|Fx07|Fx0A|Fx15|Fx18|Fx29|Fx33|Fx55|Fx65|
	case INSTRUCTION_LD:
		if !argc(2) {
			return 0, false
		}

		switch {
		case match(OPERAND_REGISTER, OPERAND_REGISTER):
			return 0x8000 | x() | y(), true
		case match(OPERAND_REGISTER, OPERAND_VALUE):
			return 0x6000 | x() | value(&operands[1], LITERAL_BYTE, 2), true
		case match(OPERAND_REGISTER, OPERAND_DT):
			return 0xF007 | x(), true
		case match(OPERAND_REGISTER, OPERAND_K):
			return 0xF00A | x(), true
		case match(OPERAND_REGISTER, OPERAND_INDIRECT):
			return 0xF065 | x(), true
		case match(OPERAND_I, OPERAND_VALUE):
			return 0xA000 | value(&operands[1], LITERAL_ADDR, 2), true
		}

		// The remaining forms take the register second
		if len(operands) == 2 && operands[1].Type == OPERAND_REGISTER {
			reg := uint16(operands[1].Reg) << 8

			switch operands[0].Type {
			case OPERAND_DT:
				return 0xF015 | reg, true
			case OPERAND_ST:
				return 0xF018 | reg, true
			case OPERAND_F:
				return 0xF029 | reg, true
			case OPERAND_B:
				return 0xF033 | reg, true
			case OPERAND_INDIRECT:
				return 0xF055 | reg, true
			}
		}

		return unsupported()

	// ADD  |7xnn|8xy4|Fx1E|      | Add
	case INSTRUCTION_ADD:
		if !argc(2) {
			return 0, false
		}

		switch {
		case match(OPERAND_REGISTER, OPERAND_REGISTER):
			return 0x8004 | x() | y(), true
		case match(OPERAND_REGISTER, OPERAND_VALUE):
			return 0x7000 | x() | value(&operands[1], LITERAL_BYTE, 2), true
		case match(OPERAND_I, OPERAND_REGISTER):
			return 0xF01E | uint16(operands[1].Reg)<<8, true
		}

		return unsupported()

	// OR   |8xy1|                | Bitwise or
	// AND  |8xy2|                | Bitwise and
	// XOR  |8xy3|                | Bitwise xor
	// SUB  |8xy5|                | Subtract
	// SUBN |8xy7|                | Subtract from
	case INSTRUCTION_OR, INSTRUCTION_AND, INSTRUCTION_XOR, INSTRUCTION_SUB,
		INSTRUCTION_SUBN:
		if !argc(2) {
			return 0, false
		}

		if !match(OPERAND_REGISTER, OPERAND_REGISTER) {
			return unsupported()
		}

		var op uint16
		switch instruction {
		case INSTRUCTION_OR:
			op = 0x8001
		case INSTRUCTION_AND:
			op = 0x8002
		case INSTRUCTION_XOR:
			op = 0x8003
		case INSTRUCTION_SUB:
			op = 0x8005
		case INSTRUCTION_SUBN:
			op = 0x8007
		}

		return op | x() | y(), true

	// SHR  |8xy6|                | Shift right, Vy optional
	// SHL  |8xyE|                | Shift left, Vy optional
	case INSTRUCTION_SHR, INSTRUCTION_SHL:
		if !argc(1, 2) {
			return 0, false
		}

		op := uint16(0x8006)
		if instruction == INSTRUCTION_SHL {
			op = 0x800E
		}

		switch {
		case match(OPERAND_REGISTER):
			return op | x(), true
		case match(OPERAND_REGISTER, OPERAND_REGISTER):
			return op | x() | y(), true
		}

		return unsupported()

	// RND  |Cxnn|                | Random byte masked with nn
	case INSTRUCTION_RND:
		if !argc(2) {
			return 0, false
		}

		if !match(OPERAND_REGISTER, OPERAND_VALUE) {
			return unsupported()
		}

		return 0xC000 | x() | value(&operands[1], LITERAL_BYTE, 2), true

	// DRW  |Dxyn|                | Draw n byte sprite
	case INSTRUCTION_DRW:
		if !argc(3) {
			return 0, false
		}

		if !match(OPERAND_REGISTER, OPERAND_REGISTER, OPERAND_VALUE) {
			return unsupported()
		}

		return 0xD000 | x() | y() | value(&operands[2], LITERAL_NIBBLE, 2), true

	// SKP  |Ex9E|                | Skip if key pressed
	// SKNP |ExA1|                | Skip if key not pressed
	case INSTRUCTION_SKP, INSTRUCTION_SKNP:
		if !argc(1) {
			return 0, false
		}

		if !match(OPERAND_REGISTER) {
			return unsupported()
		}

		if instruction == INSTRUCTION_SKP {
			return 0xE09E | x(), true
		}
		return 0xE0A1 | x(), true
	}

	return 0, false
}
