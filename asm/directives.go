package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"robco/internal/asmerr"
	"robco/internal/region"
	"robco/internal/symtab"
)

func parseInt(tok string) (int64, bool) {
	if len(tok) == 3 && tok[0] == '\'' && tok[2] == '\'' {
		return int64(tok[1]), true
	}
	v, err := strconv.ParseInt(tok, 0, 32)
	if err != nil {
		return 0, false
	}
	return v, true
}

func symbolErrorKind(res symtab.DefineResult) error {
	switch res {
	case symtab.Duplicate:
		return asmerr.ErrSymbol
	case symtab.AllocFail:
		return asmerr.ErrAllocFailed
	default:
		return asmerr.ErrInternal
	}
}

func (a *Assembler) define(file string, line int, name string, typ symtab.Type, signedness symtab.Signedness, word uint16, b uint8) {
	res, err := a.Symbols.Define(name, typ, signedness, word, b)
	if err == nil {
		return
	}
	// A PatchFailure names the referencing instruction that failed to
	// patch (e.g. a branch now out of range), not this definition --
	// report it there instead of at the defining line.
	if pf, ok := err.(*symtab.PatchFailure); ok {
		kind := asmerr.ErrInternal
		if errors.Is(err, symtab.ErrBranchOutOfRange) {
			kind = asmerr.ErrValueOutOfBounds
		}
		a.errorf(pf.File, pf.Line, kind, "%v", err)
		return
	}
	a.errorf(file, line, symbolErrorKind(res), "%v", err)
}

func (a *Assembler) handleDirective(file string, line int, name string, args []string) {
	switch strings.ToLower(name) {
	case ".include":
		a.handleInclude(file, line, args)
	case ".defbyte":
		a.handleDefByte(file, line, args)
	case ".defword":
		a.handleDefWord(file, line, args)
	case ".data":
		a.handleData(file, line, args)
	case ".reserve":
		a.handleReserve(file, line, args)
	case ".org":
		a.handleOrg(file, line, args)
	case ".struct":
		a.handleStruct(file, line, args)
	case ".end":
		a.dataRegion = nil
	default:
		a.errorf(file, line, asmerr.ErrSyntax, "unknown directive %q", name)
	}
}

func (a *Assembler) handleInclude(file string, line int, args []string) {
	if len(args) != 1 {
		a.errorf(file, line, asmerr.ErrSyntax, ".include requires exactly one path argument")
		return
	}
	path := strings.Trim(args[0], "\"")
	resolved, err := a.resolveInclude(path)
	if err != nil {
		a.errorf(file, line, asmerr.ErrIoError, "%v", err)
		return
	}
	a.pendingIncls = append(a.pendingIncls, resolved)
}

func (a *Assembler) handleDefByte(file string, line int, args []string) {
	if len(args) != 2 {
		a.errorf(file, line, asmerr.ErrSyntax, ".defbyte requires NAME VALUE")
		return
	}
	v, ok := parseInt(args[1])
	if !ok || v < -128 || v > 255 {
		a.errorf(file, line, asmerr.ErrValueOutOfBounds, ".defbyte %s: value %q out of byte range", args[0], args[1])
		return
	}
	a.define(file, line, args[0], symtab.Byte, symtab.Any, 0, uint8(v))
}

func (a *Assembler) handleDefWord(file string, line int, args []string) {
	if len(args) != 2 {
		a.errorf(file, line, asmerr.ErrSyntax, ".defword requires NAME VALUE")
		return
	}
	v, ok := parseInt(args[1])
	if !ok || v < -32768 || v > 65535 {
		a.errorf(file, line, asmerr.ErrValueOutOfBounds, ".defword %s: value %q out of word range", args[0], args[1])
		return
	}
	a.define(file, line, args[0], symtab.Word, symtab.Any, uint16(v), 0)
}

func looksLikeByteToken(tok string) bool {
	if strings.HasPrefix(tok, "\"") {
		return true
	}
	_, ok := parseInt(tok)
	return ok
}

func (a *Assembler) decodeByteTokens(file string, line int, tokens []string) []byte {
	var out []byte
	for _, tok := range tokens {
		if strings.HasPrefix(tok, "\"") {
			s := strings.Trim(tok, "\"")
			out = append(out, []byte(s)...)
			out = append(out, 0)
			continue
		}
		v, ok := parseInt(tok)
		if !ok || v < -128 || v > 255 {
			a.errorf(file, line, asmerr.ErrValueOutOfBounds, ".data: %q is not a valid byte literal", tok)
			continue
		}
		out = append(out, byte(v))
	}
	return out
}

func (a *Assembler) handleData(file string, line int, args []string) {
	if len(args) == 0 {
		a.errorf(file, line, asmerr.ErrSyntax, ".data requires at least a byte list")
		return
	}
	name := ""
	rest := args
	if !looksLikeByteToken(args[0]) {
		name = args[0]
		rest = args[1:]
	}
	bytes := a.decodeByteTokens(file, line, rest)

	regionName := name
	if regionName == "" {
		a.anonDataSeq++
		regionName = fmt.Sprintf(".data#%d", a.anonDataSeq)
	}

	r, err := a.Regions.Insert(regionName, len(bytes), false, false)
	if err != nil {
		a.errorf(file, line, asmerr.ErrNoFreeAddressRange, "%v", err)
		return
	}
	copy(r.Data, bytes)
	r.Offset = len(bytes)
	if name != "" {
		a.define(file, line, name, symtab.AddressData, symtab.Any, uint16(r.Start), 0)
	}
	a.dataRegion = r
}

func (a *Assembler) appendDataTokens(file string, line int, tokens []string) {
	if a.dataRegion == nil {
		return
	}
	bytes := a.decodeByteTokens(file, line, tokens)
	ext := a.Regions.Extend(a.dataRegion, len(bytes))
	copy(a.dataRegion.Data[a.dataRegion.Offset:], bytes[:ext.ExtendedBy])
	a.dataRegion.Offset += ext.ExtendedBy
	if ext.Truncated {
		a.errorf(file, line, asmerr.ErrNoFreeAddressRange, ".data continuation truncated: only %d of %d bytes fit", ext.ExtendedBy, len(bytes))
	}
}

func (a *Assembler) handleReserve(file string, line int, args []string) {
	if len(args) != 2 {
		a.errorf(file, line, asmerr.ErrSyntax, ".reserve requires NAME SIZE")
		return
	}
	size, ok := parseInt(args[1])
	if !ok || size <= 0 {
		a.errorf(file, line, asmerr.ErrValueOutOfBounds, ".reserve %s: invalid size %q", args[0], args[1])
		return
	}
	r, err := a.Regions.Insert(args[0], int(size), true, false)
	if err != nil {
		a.errorf(file, line, asmerr.ErrNoFreeAddressRange, "%v", err)
		return
	}
	a.define(file, line, args[0], symtab.AddressData, symtab.Any, uint16(r.Start), 0)
}

func (a *Assembler) handleOrg(file string, line int, args []string) {
	if len(args) != 1 {
		a.errorf(file, line, asmerr.ErrSyntax, ".org requires an address argument")
		return
	}
	addr, ok := parseInt(args[0])
	if !ok || addr < 0 || addr > 0xFFFF {
		a.errorf(file, line, asmerr.ErrValueOutOfBounds, ".org: invalid address %q", args[0])
		return
	}
	a.setOrg(file, line, uint16(addr))
}

// setOrg implements spec.md §4.4's .org rule: retarget into an
// existing executable region if addr falls inside one, otherwise
// allocate a fresh one there. The first .org (or the first emitted
// instruction, via ensureCodeRegion) fixes execution_start_address.
func (a *Assembler) setOrg(file string, line int, addr uint16) {
	if r := a.Regions.Find(int(addr)); r != nil {
		if !r.Executable {
			a.errorf(file, line, asmerr.ErrNoFreeAddressRange, ".org 0x%04x falls inside non-executable region %q", addr, r.Name)
			return
		}
		r.Offset = int(addr) - r.Start
		a.codeRegion = r
	} else {
		nr, err := a.Regions.InsertAt(fmt.Sprintf("code@0x%04x", addr), int(addr), region.MinInstructionSize, false, true)
		if err != nil {
			a.errorf(file, line, asmerr.ErrNoFreeAddressRange, "%v", err)
			return
		}
		a.codeRegion = nr
	}
	if !a.executionStartSet {
		a.executionStart = addr
		a.executionStartSet = true
	}
}

func (a *Assembler) handleStruct(file string, line int, args []string) {
	if len(args) < 1 {
		a.errorf(file, line, asmerr.ErrSyntax, ".struct requires a name")
		return
	}
	name := args[0]
	var members []string
	for _, t := range args[1:] {
		if t == "{" || t == "}" {
			continue
		}
		members = append(members, t)
	}
	if len(members)%2 != 0 {
		a.errorf(file, line, asmerr.ErrSyntax, ".struct %s: malformed member list", name)
		return
	}

	def := &structDef{members: map[string]int{}}
	offset := 0
	for i := 0; i < len(members); i += 2 {
		memberName := members[i]
		size, ok := parseInt(members[i+1])
		if !ok || size <= 0 {
			a.errorf(file, line, asmerr.ErrValueOutOfBounds, ".struct %s.%s: invalid size", name, memberName)
			return
		}
		def.members[memberName] = offset
		def.order = append(def.order, memberName)
		a.define(file, line, name+"."+memberName, symtab.Word, symtab.Any, uint16(offset), 0)
		offset += int(size)
	}
	def.size = offset
	a.structs[name] = def
	a.define(file, line, "sizeof("+name+")", symtab.Word, symtab.Any, uint16(offset), 0)
}

func (a *Assembler) handleLabel(file string, line int, name string) {
	r := a.ensureCodeRegion(file, line)
	if r == nil {
		return
	}
	addr := uint16(r.Start + r.Offset)
	a.define(file, line, name, symtab.AddressInst, symtab.Any, addr, 0)
}

// ensureCodeRegion returns the current code region, allocating a fresh
// one (and fixing execution_start_address, if unset) on first use.
func (a *Assembler) ensureCodeRegion(file string, line int) *region.Region {
	if a.codeRegion != nil {
		return a.codeRegion
	}
	r, err := a.Regions.Insert("code", region.MinInstructionSize, false, true)
	if err != nil {
		a.errorf(file, line, asmerr.ErrNoFreeAddressRange, "%v", err)
		return nil
	}
	a.codeRegion = r
	if !a.executionStartSet {
		a.executionStart = uint16(r.Start)
		a.executionStartSet = true
	}
	return r
}
