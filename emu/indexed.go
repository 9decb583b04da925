package emu

import "robco/internal/opcode"

// execIndexed implements register-indexed PUSH/PULL (spec.md §4.1,
// §4.6): the opcode's low two bits select DP (zero-page, one byte
// zero-extended to an address) or X (a full 16-bit address register)
// as the addressing register. A post-byte follows the opcode: bit
// 0x80 selects pre-increment (the register is adjusted before the
// access) versus post-increment (adjusted after); bit 0x40 makes the
// adjustment negative; the low six bits hold the magnitude.
func (vm *VM) execIndexed(raw opcode.Opcode, entry *opcode.Entry) error {
	width := raw.Width()
	reg := raw & 0x3
	post := vm.fetchByte()

	pre := post&opcode.IndexIncrementPre != 0
	neg := post&opcode.IndexIncrementNegative != 0
	magnitude := int(post & 0x3F)
	if neg {
		magnitude = -magnitude
	}

	addr, err := vm.indexedAddress(reg)
	if err != nil {
		return err
	}

	if pre {
		addr = addr + int32(magnitude)
		if err := vm.setIndexedAddress(reg, addr); err != nil {
			return err
		}
	}

	isPush := entry.Name == "push" || entry.Name == "pushw"

	var accessErr error
	switch {
	case isPush && width == 1:
		var v uint8
		v, accessErr = vm.popByte()
		if accessErr == nil {
			accessErr = vm.storeByte(addr, v)
		}
	case isPush:
		var v uint16
		v, accessErr = vm.popWord()
		if accessErr == nil {
			accessErr = vm.storeWord(addr, v)
		}
	case width == 1:
		var v uint8
		v, accessErr = vm.loadByte(addr)
		if accessErr == nil {
			accessErr = vm.pushByte(v)
		}
	default:
		var v uint16
		v, accessErr = vm.loadWord(addr)
		if accessErr == nil {
			accessErr = vm.pushWord(v)
		}
	}
	if accessErr != nil {
		return accessErr
	}

	if !pre {
		addr = addr + int32(magnitude)
		if err := vm.setIndexedAddress(reg, addr); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) indexedAddress(reg opcode.Opcode) (int32, error) {
	switch reg {
	case opcode.RegDP:
		return int32(vm.DP), nil
	case opcode.RegX:
		return int32(vm.X), nil
	default:
		return 0, ErrIllegalInstruction
	}
}

func (vm *VM) setIndexedAddress(reg opcode.Opcode, addr int32) error {
	switch reg {
	case opcode.RegDP:
		vm.DP = uint8(addr)
		return nil
	case opcode.RegX:
		vm.X = uint16(addr)
		return nil
	default:
		return ErrIllegalInstruction
	}
}

func (vm *VM) loadByte(addr int32) (uint8, error) {
	if addr < 0 || int(addr) >= DataMemSize {
		return 0, ErrIllegalInstruction
	}
	return vm.Mem[addr], nil
}

func (vm *VM) storeByte(addr int32, v uint8) error {
	if addr < 0 || int(addr) >= DataMemSize {
		return ErrIllegalInstruction
	}
	vm.Mem[addr] = v
	return nil
}

func (vm *VM) loadWord(addr int32) (uint16, error) {
	if addr < 0 || int(addr)+2 > DataMemSize {
		return 0, ErrIllegalInstruction
	}
	return beU16(vm.Mem[addr : addr+2]), nil
}

func (vm *VM) storeWord(addr int32, v uint16) error {
	if addr < 0 || int(addr)+2 > DataMemSize {
		return ErrIllegalInstruction
	}
	vm.Mem[addr] = uint8(v >> 8)
	vm.Mem[addr+1] = uint8(v)
	return nil
}
