package emu

import "robco/internal/opcode"

// execBranch implements the short branch family (spec.md §4.6): one
// signed displacement byte, conditional on the opcode's low-nibble
// compare code against the CC flags.
func (vm *VM) execBranch(raw opcode.Opcode) error {
	disp := int8(vm.fetchByte())
	taken := vm.branchTaken(raw)
	if taken {
		vm.PC = uint16(int32(vm.PC) + int32(disp))
	}
	return nil
}

func (vm *VM) branchTaken(raw opcode.Opcode) bool {
	compare := raw & opcode.BranchDivideByZero // low nibble mask (0xF)
	z := vm.flag(opcode.CCZero)
	n := vm.flag(opcode.CCNeg)
	ov := vm.flag(opcode.CCOverflow)
	cr := vm.flag(opcode.CCCarry)
	div0 := vm.flag(opcode.CCDiv0)
	lt := n != ov // signed less-than: N xor OV

	switch compare {
	case opcode.BranchUnconditional:
		return true
	case opcode.BranchEqual:
		return z
	case opcode.BranchLessThan:
		return lt
	case opcode.BranchLessEqual:
		return z || lt
	case opcode.BranchGreater:
		return !z && !lt
	case opcode.BranchGreaterEqual:
		return !lt
	case opcode.BranchCarry:
		return cr
	case opcode.BranchOverflow:
		return ov
	case opcode.BranchDivideByZero:
		return div0
	default:
		return false
	}
}
