package emu

import (
	"robco/internal/opcode"
)

// execALU implements the ALU family (spec.md §4.6): pop B then A for
// binary ops, push A ⊕ B; INC/DEC pop one push one; CMP consumes both
// without pushing.
func (vm *VM) execALU(raw opcode.Opcode, entry *opcode.Entry) error {
	width := raw.Width()
	base := raw &^ opcode.SizeBit

	if base == opcode.OpInc || base == opcode.OpDec {
		return vm.aluUnary(base, width)
	}
	if base == opcode.OpCmp {
		return vm.aluCompare(width)
	}
	return vm.aluBinary(base, width)
}

func (vm *VM) readOperand(width int) (int32, error) {
	if width == 1 {
		b, err := vm.popByte()
		return int32(int8(b)), err
	}
	w, err := vm.popWord()
	return int32(int16(w)), err
}

func (vm *VM) writeResult(width int, v int32) error {
	if width == 1 {
		return vm.pushByte(uint8(int8(v)))
	}
	return vm.pushWord(uint16(int16(v)))
}

func signBit(width int) int32 {
	if width == 1 {
		return 0x80
	}
	return 0x8000
}

func maxMagnitude(width int) int32 {
	if width == 1 {
		return 0x7F
	}
	return 0x7FFF
}

func minMagnitude(width int) int32 {
	if width == 1 {
		return -0x80
	}
	return -0x8000
}

func (vm *VM) updateZN(result int32, width int) {
	var masked int32
	if width == 1 {
		masked = result & 0xFF
	} else {
		masked = result & 0xFFFF
	}
	vm.setFlag(opcode.CCZero, masked == 0)
	vm.setFlag(opcode.CCNeg, masked&signBit(width) != 0)
}

func (vm *VM) aluBinary(base opcode.Opcode, width int) error {
	b, err := vm.readOperand(width)
	if err != nil {
		return err
	}
	a, err := vm.readOperand(width)
	if err != nil {
		return err
	}

	var result int32
	overflow := false
	divZero := false

	switch base {
	case opcode.OpAdd:
		result = a + b
		overflow = result > maxMagnitude(width) || result < minMagnitude(width)
	case opcode.OpSub:
		result = a - b
		overflow = result > maxMagnitude(width) || result < minMagnitude(width)
	case opcode.OpMul:
		result = a * b
		overflow = result > maxMagnitude(width) || result < minMagnitude(width)
	case opcode.OpDiv:
		if b == 0 {
			divZero = true
		} else {
			result = a / b
		}
	case opcode.OpOr:
		result = a | b
	case opcode.OpAnd:
		result = a & b
	case opcode.OpShl:
		shift := uint(b & 0xF)
		carry := shift > 0 && (a>>(uint(width*8)-shift))&1 != 0
		result = a << shift
		vm.setFlag(opcode.CCCarry, carry)
	case opcode.OpShr:
		shift := uint(b & 0xF)
		carry := shift > 0 && (a>>(shift-1))&1 != 0
		result = a >> shift
		vm.setFlag(opcode.CCCarry, carry)
	default:
		return ErrIllegalInstruction
	}

	vm.setFlag(opcode.CCDiv0, divZero)
	if divZero {
		// no result pushed
		return nil
	}
	vm.setFlag(opcode.CCOverflow, overflow)
	vm.updateZN(result, width)
	return vm.writeResult(width, result)
}

func (vm *VM) aluUnary(base opcode.Opcode, width int) error {
	a, err := vm.readOperand(width)
	if err != nil {
		return err
	}
	var result int32
	if base == opcode.OpInc {
		result = a + 1
	} else {
		result = a - 1
	}
	overflow := result > maxMagnitude(width) || result < minMagnitude(width)
	vm.setFlag(opcode.CCOverflow, overflow)
	vm.updateZN(result, width)
	return vm.writeResult(width, result)
}

func (vm *VM) aluCompare(width int) error {
	b, err := vm.readOperand(width)
	if err != nil {
		return err
	}
	a, err := vm.readOperand(width)
	if err != nil {
		return err
	}
	result := a - b
	overflow := result > maxMagnitude(width) || result < minMagnitude(width)
	vm.setFlag(opcode.CCOverflow, overflow)
	vm.updateZN(result, width)
	return nil
}
