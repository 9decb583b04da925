package asm

import (
	"encoding/binary"
	"fmt"

	"robco/internal/region"
	"robco/internal/symtab"
)

// memPatcher implements symtab.Patcher by writing directly into the
// backing buffer of whichever region contains the patch location,
// grounded on spec.md §9's own design note preferring this sum-typed
// approach over the original's opaque callback pointer.
type memPatcher struct {
	alloc *region.Allocator
}

func (p *memPatcher) locate(loc int) (*region.Region, int, error) {
	r := p.alloc.Find(loc)
	if r == nil || r.Reserved {
		return nil, 0, fmt.Errorf("patch location 0x%04x is not inside a writable region", loc)
	}
	return r, loc - r.Start, nil
}

func (p *memPatcher) PatchByte(loc int, v uint8) error {
	r, off, err := p.locate(loc)
	if err != nil {
		return err
	}
	r.Data[off] = v
	return nil
}

func (p *memPatcher) PatchWordBig(loc int, v uint16) error {
	r, off, err := p.locate(loc)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(r.Data[off:off+2], v)
	return nil
}

// PatchBranch implements spec.md §4.2's displacement rule: disp =
// target - (loc - 1), i.e. measured from the branch opcode's own
// address (loc - 1), so a branch to itself encodes as zero and a branch
// to the following instruction encodes as 2.
func (p *memPatcher) PatchBranch(loc int, target uint16) error {
	disp := int(target) - (loc - 1)
	if disp < -128 || disp > 127 {
		return fmt.Errorf("%w: target=0x%04x loc=0x%04x disp=%d", symtab.ErrBranchOutOfRange, target, loc, disp)
	}
	return p.PatchByte(loc, uint8(int8(disp)))
}
