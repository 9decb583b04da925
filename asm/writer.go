package asm

import (
	"fmt"
	"io"
	"sort"

	"robco/exec"
	"robco/internal/asmerr"
	"robco/internal/region"
)

// Finalize closes out the assemble operation (spec.md §4.4's
// end-of-file finalization): it reports every still-unresolved
// reference and, if execution_start_address was never set, an
// UninitializedValue error. It returns the assembled executable file
// only if no errors were accumulated at any point during the assemble.
func (a *Assembler) Finalize() (*exec.File, error) {
	a.dataRegion = nil

	for _, u := range a.Symbols.Finalize() {
		a.errorf(u.File, u.Line, asmerr.ErrSymbol, "unresolved reference to %q", u.Name)
	}
	if !a.executionStartSet {
		a.errorf("", 0, asmerr.ErrUninitializedValue, "no execution_start_address was ever set (.org or first instruction)")
	}
	if len(a.errs) > 0 {
		return nil, fmt.Errorf("%d assemble error(s)", len(a.errs))
	}

	f := &exec.File{ExecutionStartAddress: a.executionStart}
	for _, r := range a.Regions.Regions() {
		if r.Reserved || r.Offset == 0 {
			continue
		}
		f.Segments = append(f.Segments, exec.Segment{
			LoadAddress: uint16(r.Start),
			IsCode:      r.Executable,
			Payload:     append([]byte(nil), r.Data[:r.Offset]...),
		})
	}
	return f, nil
}

// WriteSummary writes the human-readable dump named by spec.md §6's
// "summary" output type: execution start, then each committed
// region's bytes grouped 4-per-line with addresses, then the symbol
// and reference lists.
func (a *Assembler) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "execution_start_address: 0x%04x\n", a.executionStart)

	regions := append([]*region.Region(nil), a.Regions.Regions()...)
	sort.Slice(regions, func(i, j int) bool { return regions[i].Start < regions[j].Start })

	for _, r := range regions {
		if r.Reserved || r.Offset == 0 {
			continue
		}
		kind := "data"
		if r.Executable {
			kind = "code"
		}
		fmt.Fprintf(w, "\n%s region %q @ 0x%04x (%d bytes):\n", kind, r.Name, r.Start, r.Offset)
		dumpBytes(w, r.Start, r.Data[:r.Offset])
	}

	fmt.Fprintln(w, "\nsymbols:")
	for _, name := range a.Symbols.Names() {
		res, _ := a.Symbols.Resolve(name)
		fmt.Fprintf(w, "  %-30s type=%v word=0x%04x byte=0x%02x\n", name, res.Type, res.Word, res.Byte)
	}

	fmt.Fprintln(w, "\nreferences:")
	for _, name := range a.Symbols.ReferenceNames() {
		fmt.Fprintf(w, "  %s\n", name)
	}
}

func dumpBytes(w io.Writer, base int, data []byte) {
	for i := 0; i < len(data); i += 4 {
		end := i + 4
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(w, "  0x%04x:", base+i)
		for _, b := range data[i:end] {
			fmt.Fprintf(w, " %02x", b)
		}
		fmt.Fprintln(w)
	}
}
