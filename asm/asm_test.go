package asm

import (
	"os"
	"path/filepath"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func assembleSource(t *testing.T, source string) *Assembler {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.asm")
	assert(t, os.WriteFile(path, []byte(source), 0o644) == nil, "write source")
	a := New()
	a.AssembleFile(path)
	return a
}

// scenario B: forward branch displacement. The displacement is
// target-(ref_location-1), i.e. measured from the branch opcode: the
// 2-byte branch plus six 2-byte pushi instructions put target 14 bytes
// past it.
func TestForwardBranchDisplacement(t *testing.T) {
	src := "b target\n" +
		"pushi 0\npushi 0\npushi 0\npushi 0\npushi 0\npushi 0\n" +
		"target:\nsync\n"
	a := assembleSource(t, src)
	assert(t, len(a.Errors()) == 0, "unexpected errors: %v", a.Errors())

	f, err := a.Finalize()
	assert(t, err == nil, "finalize: %v", err)
	assert(t, len(f.Segments) == 1, "expected one code segment, got %d", len(f.Segments))
	payload := f.Segments[0].Payload
	assert(t, payload[1] == 0x0E, "expected displacement 0x0e, got %#x", payload[1])
}

// scenario C: branch overflow. The error must be pinned to the
// referencing branch instruction's own line (1), not the label's line
// (202) -- spec.md §4.2's "pinned to the referencing line" requirement.
func TestBranchOverflowProducesError(t *testing.T) {
	src := "b target\n"
	for i := 0; i < 200; i++ {
		src += "pushi 0\n"
	}
	src += "target:\nsync\n"
	a := assembleSource(t, src)
	_, err := a.Finalize()
	assert(t, err != nil, "expected a finalize error for out-of-range branch")
	errs := a.Errors()
	assert(t, len(errs) > 0, "expected accumulated errors")

	var found bool
	for _, e := range errs {
		if e.Line == 1 {
			found = true
		}
	}
	assert(t, found, "expected an error pinned to line 1 (the branch instruction), got %v", errs)
}

// scenario D: .org placement.
func TestOrgPlacementProducesExpectedSegment(t *testing.T) {
	a := assembleSource(t, ".org 0x200\nrts\n")
	assert(t, len(a.Errors()) == 0, "unexpected errors: %v", a.Errors())
	f, err := a.Finalize()
	assert(t, err == nil, "finalize: %v", err)
	assert(t, len(f.Segments) == 1, "expected one segment")
	s := f.Segments[0]
	assert(t, s.LoadAddress == 0x200, "expected load address 0x200, got %#x", s.LoadAddress)
	assert(t, s.RecordLength() == 6, "expected record length 6, got %d", s.RecordLength())
	assert(t, s.IsCode, "expected code segment")
	assert(t, len(s.Payload) == 1 && s.Payload[0] == 0x71, "expected payload [0x71], got %v", s.Payload)
}

// scenario E: data + label round-trip.
func TestDataLabelRoundTrip(t *testing.T) {
	src := ".data HELLO \"Hi\"\n" +
		"pushiw HELLO\n" +
		"syscall 0x0102\n"
	a := assembleSource(t, src)
	assert(t, len(a.Errors()) == 0, "unexpected errors: %v", a.Errors())

	resolved, ok := a.Symbols.Resolve("HELLO")
	assert(t, ok, "expected HELLO to resolve")
	addr := resolved.Word

	f, err := a.Finalize()
	assert(t, err == nil, "finalize: %v", err)

	var foundData, foundCode bool
	var dataPayload, codePayload []byte
	for _, s := range f.Segments {
		if s.IsCode {
			foundCode = true
			codePayload = s.Payload
		} else {
			foundData = true
			dataPayload = s.Payload
		}
	}
	assert(t, foundData && foundCode, "expected both a data and a code segment")
	assert(t, string(dataPayload) == "Hi\x00", "expected data payload \"Hi\\x00\", got %q", dataPayload)

	// pushiw opcode, then the two big-endian operand bytes.
	assert(t, len(codePayload) >= 3, "expected at least 3 code bytes")
	gotAddr := uint16(codePayload[1])<<8 | uint16(codePayload[2])
	assert(t, gotAddr == addr, "expected operand bytes to equal HELLO's address 0x%04x, got 0x%04x", addr, gotAddr)
}

// invariant 1: regions never overlap.
func TestRegionsNeverOverlap(t *testing.T) {
	src := ".reserve BUF1 16\n.reserve BUF2 32\n.data D1 1 2 3\n"
	a := assembleSource(t, src)
	assert(t, len(a.Errors()) == 0, "unexpected errors: %v", a.Errors())
	regions := a.Regions.Regions()
	for i := range regions {
		for j := range regions {
			if i == j {
				continue
			}
			r1, r2 := regions[i], regions[j]
			overlap := r1.Start < r2.End() && r2.Start < r1.End()
			assert(t, !overlap, "regions %q and %q overlap", r1.Name, r2.Name)
		}
	}
}

// invariant 2: symbol uniqueness.
func TestDuplicateSymbolDefinitionErrors(t *testing.T) {
	a := assembleSource(t, ".defbyte FOO 1\n.defbyte foo 2\n")
	assert(t, len(a.Errors()) == 1, "expected exactly one error, got %d: %v", len(a.Errors()), a.Errors())
}

func TestUnknownMnemonicIsReported(t *testing.T) {
	a := assembleSource(t, "bogusinstr\n")
	assert(t, len(a.Errors()) == 1, "expected exactly one error, got %v", a.Errors())
}
