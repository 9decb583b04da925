// Package symtab implements the assembler's symbol table: named values
// with forward-reference patching, grounded on original_source's
// symbols.c but reworked per the reimplementation's own design note
// (spec.md §9) into a sum-typed reference record instead of an opaque
// callback pointer.
package symtab

import (
	"fmt"
	"strings"
)

// Type is the symbol's declared kind.
type Type int

const (
	NoType Type = iota
	Byte
	Word
	AddressInst
	AddressData
)

// Signedness constrains how a reference's operand bytes are patched.
type Signedness int

const (
	Any Signedness = iota
	Signed
	Unsigned
)

// DefineResult is the outcome of a Define call.
type DefineResult int

const (
	OK DefineResult = iota
	Duplicate
	AllocFail
	Internal
)

// RefResult is the outcome of an AddReference call.
type RefResult int

const (
	Success RefResult = iota
	Resolvable
	WrongType
	WrongSignedness
)

type entry struct {
	name       string
	typ        Type
	signedness Signedness
	word       uint16
	byteVal    uint8
}

// Patcher is implemented by the assembler to apply a resolved symbol's
// value to the bytes reserved for one reference. loc is the byte offset
// into the target's backing store (ref_location in spec terms).
type Patcher interface {
	// PatchByte writes a single byte at loc.
	PatchByte(loc int, v uint8) error
	// PatchWordBig writes a big-endian word at loc.
	PatchWordBig(loc int, v uint16) error
	// PatchBranch writes a signed one-byte displacement computed as
	// target-(loc-1), returning BranchOutOfRange if it doesn't fit.
	PatchBranch(loc int, target uint16) error
}

// ErrBranchOutOfRange is returned by a Patcher when a branch displacement
// does not fit in a signed byte.
var ErrBranchOutOfRange = fmt.Errorf("branch displacement out of range")

type reference struct {
	name       string
	file       string
	line       int
	loc        int
	typ        Type
	signedness Signedness
	resolved   bool
	patcher    Patcher
}

// PatchFailure is returned by Define when patching an already-queued
// reference fails (e.g. a branch displacement out of range). It
// carries the referencing instruction's own (File, Line), recorded
// when AddReference first queued the reference, rather than the
// location of the symbol definition that triggered the patch attempt
// -- matching spec.md §4.2's requirement that an error be pinned to
// the referencing line.
type PatchFailure struct {
	Name string
	File string
	Line int
	Err  error
}

func (e *PatchFailure) Error() string {
	return fmt.Sprintf("%s:%d: patching reference to %q: %v", e.File, e.Line, e.Name, e.Err)
}

func (e *PatchFailure) Unwrap() error {
	return e.Err
}

// Table is the symbol table for one assemble operation.
type Table struct {
	entries    []*entry
	references []*reference
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{}
}

func (t *Table) find(name string) *entry {
	for _, e := range t.entries {
		if strings.EqualFold(e.name, name) {
			return e
		}
	}
	return nil
}

// Define registers a new symbol, immediately patching every reference
// (resolved or not) whose name matches by walking the full reference
// list, matching original_source/symbols.c's add_symbol behavior.
func (t *Table) Define(name string, typ Type, signedness Signedness, wordValue uint16, byteValue uint8) (DefineResult, error) {
	if typ == NoType {
		return Internal, fmt.Errorf("symbol %q defined with no type", name)
	}
	if t.find(name) != nil {
		return Duplicate, fmt.Errorf("symbol %q already defined", name)
	}
	t.entries = append(t.entries, &entry{name: name, typ: typ, signedness: signedness, word: wordValue, byteVal: byteValue})

	for _, ref := range t.references {
		if !strings.EqualFold(ref.name, name) {
			continue
		}
		ref.resolved = true
		if err := patch(ref, typ, signedness, wordValue, byteValue); err != nil {
			return OK, &PatchFailure{Name: ref.name, File: ref.file, Line: ref.line, Err: err}
		}
	}
	return OK, nil
}

// patchClass groups types that patch identically (spec.md §4.2 pairs
// WORD and ADDRESS_DATA explicitly: both write a two-byte big-endian
// value), so a reference declared against one is satisfied by a
// symbol defined as the other.
func patchClass(t Type) Type {
	if t == AddressData {
		return Word
	}
	return t
}

func patch(ref *reference, typ Type, signedness Signedness, wordValue uint16, byteValue uint8) error {
	switch typ {
	case Byte:
		return ref.patcher.PatchByte(ref.loc, byteValue)
	case Word, AddressData:
		return ref.patcher.PatchWordBig(ref.loc, wordValue)
	case AddressInst:
		if ref.signedness == Signed {
			return ref.patcher.PatchBranch(ref.loc, wordValue)
		}
		return ref.patcher.PatchWordBig(ref.loc, wordValue)
	default:
		return fmt.Errorf("internal: symbol with unhandled type %v", typ)
	}
}

// AddReference records a (possibly forward) use of name, at the
// referencing instruction's own (file, line) -- recorded here so a
// patch failure discovered later (when the symbol is finally defined,
// from Define) or an unresolved reference discovered at Finalize time
// can still be reported at this call site, not at the unrelated
// location that happened to trigger the failure. If the symbol is
// already defined, the reference is patched immediately and Resolvable
// is returned; otherwise it is queued and Success is returned.
func (t *Table) AddReference(name string, file string, line int, loc int, expectedType Type, expectedSignedness Signedness, p Patcher) (RefResult, error) {
	e := t.find(name)
	if e != nil {
		if e.signedness != Any && expectedSignedness != Any && e.signedness != expectedSignedness {
			return WrongSignedness, fmt.Errorf("symbol %q: signedness mismatch", name)
		}
		if patchClass(e.typ) != patchClass(expectedType) {
			return WrongType, fmt.Errorf("symbol %q: type mismatch", name)
		}
	}

	ref := &reference{name: name, file: file, line: line, loc: loc, typ: expectedType, signedness: expectedSignedness, patcher: p}
	t.references = append(t.references, ref)

	if e != nil {
		ref.resolved = true
		if err := patch(ref, e.typ, e.signedness, e.word, e.byteVal); err != nil {
			return Resolvable, &PatchFailure{Name: name, File: file, Line: line, Err: err}
		}
		return Resolvable, nil
	}
	return Success, nil
}

// Resolved describes a symbol's current value for Resolve's return.
type Resolved struct {
	Type       Type
	Signedness Signedness
	Word       uint16
	Byte       uint8
}

// Resolve looks up a symbol's current value.
func (t *Table) Resolve(name string) (Resolved, bool) {
	e := t.find(name)
	if e == nil {
		return Resolved{}, false
	}
	return Resolved{Type: e.typ, Signedness: e.signedness, Word: e.word, Byte: e.byteVal}, true
}

// Names returns the names of every defined symbol, for diagnostic
// dumps (the assembler's "summary" output mode).
func (t *Table) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.name
	}
	return names
}

// ReferenceNames returns the names of every recorded reference
// (resolved or not), for diagnostic dumps.
func (t *Table) ReferenceNames() []string {
	names := make([]string, len(t.references))
	for i, r := range t.references {
		names[i] = r.name
	}
	return names
}

// Unresolved describes one reference that never resolved by Finalize
// time, carrying the (file, line) it was added at -- recorded by
// AddReference -- so the caller can report the error at the
// referencing instruction rather than a synthetic location.
type Unresolved struct {
	Name string
	File string
	Line int
}

// Finalize returns every reference still unresolved.
func (t *Table) Finalize() []Unresolved {
	var out []Unresolved
	for _, ref := range t.references {
		if !ref.resolved {
			out = append(out, Unresolved{Name: ref.name, File: ref.file, Line: ref.line})
		}
	}
	return out
}
