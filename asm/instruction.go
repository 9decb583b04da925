package asm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"robco/internal/asmerr"
	"robco/internal/opcode"
	"robco/internal/region"
	"robco/internal/symtab"
)

// handleInstruction emits one instruction's bytes: the opcode byte,
// then 0, 1, or 2 argument bytes per the table entry's access mode
// (spec.md §4.4's "Instruction emission").
func (a *Assembler) handleInstruction(file string, line int, mnemonic string, operandTokens []string) {
	entry, ok := opcode.Lookup(mnemonic)
	if !ok {
		a.errorf(file, line, asmerr.ErrSyntax, "unknown mnemonic %q", mnemonic)
		return
	}

	r := a.ensureCodeRegion(file, line)
	if r == nil {
		return
	}

	needed := 1 + entry.ArgBytes
	if r.Offset+needed > r.Length {
		a.Regions.Extend(r, needed-(r.Length-r.Offset))
		if r.Offset+needed > r.Length {
			a.errorf(file, line, asmerr.ErrNoFreeAddressRange, "instruction %q at 0x%04x does not fit in region %q", mnemonic, r.Start+r.Offset, r.Name)
			return
		}
	}

	var operand string
	if len(operandTokens) > 0 {
		operand = operandTokens[0]
	}

	switch entry.Access {
	case opcode.None, opcode.StackOnly, opcode.StackToFromRegister:
		if operand != "" {
			a.errorf(file, line, asmerr.ErrInvalidArgument, "%s takes no operand", mnemonic)
			return
		}
		r.Data[r.Offset] = byte(entry.Opcode)
		r.Offset++

	case opcode.Immediate:
		if operand == "" {
			a.errorf(file, line, asmerr.ErrSyntax, "%s requires an operand", mnemonic)
			return
		}
		r.Data[r.Offset] = byte(entry.Opcode)
		r.Offset++
		a.emitImmediateOperand(file, line, r, entry, operand)

	case opcode.RegisterIndexed:
		if operand == "" {
			a.errorf(file, line, asmerr.ErrSyntax, "%s requires a register-indexed operand", mnemonic)
			return
		}
		regCode, postByte, err := parseIndexedOperand(operand)
		if err != nil {
			a.errorf(file, line, asmerr.ErrSyntax, "%s: %v", mnemonic, err)
			return
		}
		r.Data[r.Offset] = byte(entry.Opcode) | regCode
		r.Offset++
		r.Data[r.Offset] = postByte
		r.Offset++

	default:
		a.errorf(file, line, asmerr.ErrInternal, "%s: unhandled access mode", mnemonic)
	}
}

// emitImmediateOperand writes ArgBytes placeholder zero bytes at the
// instruction's operand location, then either fills them with a
// literal value or registers a symbol reference that will be patched
// on resolution (spec.md §4.4, §4.2).
func (a *Assembler) emitImmediateOperand(file string, line int, r *region.Region, entry *opcode.Entry, operand string) {
	loc := r.Start + r.Offset
	for i := 0; i < entry.ArgBytes; i++ {
		r.Data[r.Offset] = 0
		r.Offset++
	}

	if v, ok := parseInt(operand); ok {
		a.emitLiteralOperand(file, line, r, loc, entry, v)
		return
	}

	_, err := a.Symbols.AddReference(operand, file, line, loc, entry.ArgType, entry.Signedness, a.patcher)
	if err != nil {
		kind := asmerr.ErrSymbol
		if errors.Is(err, symtab.ErrBranchOutOfRange) {
			kind = asmerr.ErrValueOutOfBounds
		}
		a.errorf(file, line, kind, "%v", err)
	}
}

func (a *Assembler) emitLiteralOperand(file string, line int, r *region.Region, loc int, entry *opcode.Entry, v int64) {
	off := loc - r.Start
	switch entry.ArgType {
	case symtab.Byte:
		if v < -128 || v > 255 {
			a.errorf(file, line, asmerr.ErrValueOutOfBounds, "operand %d out of byte range", v)
			return
		}
		r.Data[off] = byte(v)
	case symtab.Word, symtab.AddressData:
		if v < -32768 || v > 65535 {
			a.errorf(file, line, asmerr.ErrValueOutOfBounds, "operand %d out of word range", v)
			return
		}
		binary.BigEndian.PutUint16(r.Data[off:off+2], uint16(v))
	case symtab.AddressInst:
		if entry.Signedness == symtab.Signed {
			if v < -128 || v > 127 {
				a.errorf(file, line, asmerr.ErrValueOutOfBounds, "branch displacement %d out of range", v)
				return
			}
			r.Data[off] = byte(int8(v))
		} else {
			if v < 0 || v > 0xFFFF {
				a.errorf(file, line, asmerr.ErrValueOutOfBounds, "address %d out of range", v)
				return
			}
			binary.BigEndian.PutUint16(r.Data[off:off+2], uint16(v))
		}
	default:
		a.errorf(file, line, asmerr.ErrInternal, "literal operand for unsupported argument type")
	}
}

// parseIndexedOperand parses "[ ±± reg ]" (pre-increment) or
// "[ reg ±± ]" (post-increment) per spec.md §4.4: a run of '+' or '-'
// characters whose count is the magnitude (1 or 2), or an explicit
// signed numeric magnitude.
func parseIndexedOperand(tok string) (regCode byte, postByte byte, err error) {
	s := strings.TrimSpace(tok)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return 0, 0, fmt.Errorf("expected a [ ... ] register-indexed operand, got %q", tok)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	lower := strings.ToLower(inner)

	var regName string
	var regPos int
	for name := range opcode.Registers {
		if idx := strings.Index(lower, name); idx >= 0 {
			regName = name
			regPos = idx
			break
		}
	}
	if regName == "" {
		return 0, 0, fmt.Errorf("unknown index register in %q", tok)
	}

	before := strings.TrimSpace(inner[:regPos])
	after := strings.TrimSpace(inner[regPos+len(regName):])

	var magText string
	pre := false
	switch {
	case before != "":
		magText, pre = before, true
	case after != "":
		magText, pre = after, false
	default:
		magText = ""
	}

	mag, neg, ok := parseMagnitude(magText)
	if !ok || mag < 0 || mag > 0x3F {
		return 0, 0, fmt.Errorf("index increment %q out of range", magText)
	}

	postByte = byte(mag)
	if pre {
		postByte |= opcode.IndexIncrementPre
	}
	if neg {
		postByte |= opcode.IndexIncrementNegative
	}
	return opcode.Registers[regName], postByte, nil
}

// parseMagnitude reads a '+'/'-' run ("++" = +2, "-" = -1) or an
// explicit signed decimal/hex magnitude ("+2", "-1").
func parseMagnitude(text string) (mag int64, neg bool, ok bool) {
	if text == "" {
		return 1, false, true
	}
	allPlus := strings.Count(text, "+") == len(text)
	allMinus := strings.Count(text, "-") == len(text)
	if allPlus || allMinus {
		return int64(len(text)), allMinus, true
	}
	neg = strings.HasPrefix(text, "-")
	numPart := strings.TrimPrefix(strings.TrimPrefix(text, "-"), "+")
	v, ok2 := parseInt(numPart)
	if !ok2 {
		return 0, false, false
	}
	return v, neg, true
}
