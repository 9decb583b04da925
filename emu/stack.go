package emu

import "robco/internal/opcode"

// execStack implements the non-indexed stack family (spec.md §4.6):
// PUSHI/PUSHIW fetch operand bytes from instruction memory; POP drops;
// DUP peeks and pushes; SWAP exchanges the top two elements; ROLL pops
// a depth byte and rotates the top element to that position; DEPTH
// reports the stack's byte usage; MOVER/MOVES/COPYR/COPYS move or copy
// a word between the data stack and the return-address stack;
// PUSHDP/PUSHX/PULLDP/PULLX move a value directly between the data
// stack and the DP/X registers (no addressing, unlike the indexed
// forms).
func (vm *VM) execStack(raw opcode.Opcode, entry *opcode.Entry) error {
	width := raw.Width()

	switch entry.Name {
	case "pushi", "pushiw":
		return vm.execPushImmediate(width)
	case "pop", "popw":
		_, err := vm.popN(width)
		return err
	case "dup", "dupw":
		return vm.execDup(width)
	case "swap", "swapw":
		return vm.execSwap(width)
	case "roll", "rollw":
		return vm.execRoll(width)
	case "depth":
		return vm.pushWord(uint16(DataMemSize - vm.SP))
	case "mover":
		v, err := vm.popWord()
		if err != nil {
			return err
		}
		return vm.pushReturn(v)
	case "moves":
		v, err := vm.popReturn()
		if err != nil {
			return err
		}
		return vm.pushWord(v)
	case "copyr":
		v, err := vm.peekWord()
		if err != nil {
			return err
		}
		return vm.pushReturn(v)
	case "copys":
		if vm.ISP+2 > ReturnStackSize {
			return ErrIllegalInstruction
		}
		v := beU16(vm.RetStack[vm.ISP : vm.ISP+2])
		return vm.pushWord(v)
	case "pushdp":
		return vm.pushByte(vm.DP)
	case "pushx":
		return vm.pushWord(vm.X)
	case "pulldp":
		v, err := vm.popByte()
		if err != nil {
			return err
		}
		vm.DP = v
		return nil
	case "pullx":
		v, err := vm.popWord()
		if err != nil {
			return err
		}
		vm.X = v
		return nil
	default:
		return ErrIllegalInstruction
	}
}

func beU16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func (vm *VM) execPushImmediate(width int) error {
	if width == 1 {
		return vm.pushByte(vm.fetchByte())
	}
	return vm.pushWord(vm.fetchWord())
}

func (vm *VM) popN(width int) (uint16, error) {
	if width == 1 {
		v, err := vm.popByte()
		return uint16(v), err
	}
	return vm.popWord()
}

func (vm *VM) pushN(width int, v uint16) error {
	if width == 1 {
		return vm.pushByte(uint8(v))
	}
	return vm.pushWord(v)
}

func (vm *VM) execDup(width int) error {
	if width == 1 {
		v, err := vm.peekByte()
		if err != nil {
			return err
		}
		return vm.pushByte(v)
	}
	v, err := vm.peekWord()
	if err != nil {
		return err
	}
	return vm.pushWord(v)
}

func (vm *VM) execSwap(width int) error {
	a, err := vm.popN(width)
	if err != nil {
		return err
	}
	b, err := vm.popN(width)
	if err != nil {
		return err
	}
	if err := vm.pushN(width, a); err != nil {
		return err
	}
	return vm.pushN(width, b)
}

// execRoll pops a depth byte d from the data stack, then moves the
// current top element to position d (0-based from the new top),
// preserving the order of the elements it passes.
func (vm *VM) execRoll(width int) error {
	d, err := vm.popByte()
	if err != nil {
		return err
	}
	span := (int(d) + 1) * width
	if vm.SP+span > DataMemSize {
		return ErrIllegalInstruction
	}
	buf := vm.Mem[vm.SP : vm.SP+span]
	top := make([]byte, width)
	copy(top, buf[:width])
	copy(buf, buf[width:])
	copy(buf[span-width:], top)
	return nil
}
