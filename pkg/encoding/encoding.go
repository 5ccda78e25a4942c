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

package encoding

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrInvalidHex = errors.New("invalid hex string")
	ErrInvalidInt = errors.New("invalid integer string")
)

// Decodes a hexadecimal string in the formats: 0x2A0, x2A0, $2A0, 2A0
func DecodeHex(s string) (uint16, error) {
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
	case strings.HasPrefix(s, "x"), strings.HasPrefix(s, "X"),
		strings.HasPrefix(s, "$"):
		s = s[1:]
	}

	if len(s) == 0 {
		return 0, ErrInvalidHex
	}

	result, err := strconv.ParseUint(s, 16, 16)

	if err != nil {
		return 0, ErrInvalidHex
	}

	return uint16(result), nil
}

// Decodes a base-10 string in the formats: #123, 123
func DecodeInt(s string) (uint16, error) {
	s = strings.TrimPrefix(s, "#")

	result, err := strconv.ParseUint(s, 10, 16)

	if err != nil {
		return 0, ErrInvalidInt
	}

	return uint16(result), nil
}

// Decodes a numeric literal. Values carrying a hex prefix (0x, x, $) are
// read as hexadecimal, everything else as base-10.
func DecodeLiteral(s string) (uint16, error) {
	lower := strings.ToLower(s)

	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "x") ||
		strings.HasPrefix(lower, "$") {
		return DecodeHex(s)
	}

	return DecodeInt(s)
}

func Word(high, low byte) uint16 {
	return uint16(high)<<8 | uint16(low)
}

func SplitWord(value uint16) (high, low byte) {
	return byte(value >> 8), byte(value)
}

// Opcode field accessors. An opcode is laid out as |F|X|Y|N| nibbles.

func Family(opcode uint16) uint16 {
	return opcode >> 12
}

func X(opcode uint16) uint8 {
	return uint8((opcode >> 8) & 0xF)
}

func Y(opcode uint16) uint8 {
	return uint8((opcode >> 4) & 0xF)
}

func N(opcode uint16) uint8 {
	return uint8(opcode & 0xF)
}

func NN(opcode uint16) uint8 {
	return uint8(opcode & 0xFF)
}

func NNN(opcode uint16) uint16 {
	return opcode & 0xFFF
}

// Splits a byte into hundreds, tens and ones digits.
func BCD(value uint8) [3]uint8 {
	return [3]uint8{value / 100, (value / 10) % 10, value % 10}
}
