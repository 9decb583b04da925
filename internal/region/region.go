// Package region implements the assembler's multi-region memory allocator:
// a list of non-overlapping byte spans within the 64 KiB data address space,
// each either a data region (owned byte buffer) or a reserved region (no
// backing buffer), and possibly marked executable (instruction bytes).
//
// Regions are kept in insertion order; a new allocation scans that order
// for the first gap above the minimum address that fits the requested
// size, matching the scan strategy the assembler driver needs for .org
// and plain code/data emission.
package region

import "fmt"

// MinAddress is the lowest address the allocator will place a new region
// at via the gap-scanning search. An explicit base address bypasses this
// floor only insofar as the caller is responsible for choosing it; InsertAt
// still rejects placements that overlap an existing region.
const MinAddress = 0x100

// MinInstructionSize is the minimum size of a freshly allocated
// instruction region.
const MinInstructionSize = 0x100

// Region is a contiguous, non-overlapping span of the 64 KiB data space.
type Region struct {
	Name       string
	Start      int
	Length     int // declared length
	Data       []byte // nil if Reserved
	Reserved   bool
	Executable bool
	// Offset is the write cursor: for executable regions this is the
	// count of instruction bytes committed so far (current_instruction_offset
	// in spec terms); for data regions it is the count of data bytes
	// committed.
	Offset int
}

// End returns the exclusive end address of r.
func (r *Region) End() int {
	return r.Start + r.Length
}

// Allocator owns the list of regions for one assemble operation.
type Allocator struct {
	regions []*Region
}

// New returns an empty allocator.
func New() *Allocator {
	return &Allocator{}
}

// Regions returns the regions in insertion order. Callers must not
// mutate the returned slice's backing array structure (append a new
// region via Insert/Extend instead), but may read/write Region fields.
func (a *Allocator) Regions() []*Region {
	return a.regions
}

func overlaps(start, length int, r *Region) bool {
	end := start + length
	return start < r.End() && end > r.Start
}

// Find returns the region whose span contains addr, or nil.
func (a *Allocator) Find(addr int) *Region {
	for _, r := range a.regions {
		if addr >= r.Start && addr < r.End() {
			return r
		}
	}
	return nil
}

// FindByName returns the region with the given name, or nil.
func (a *Allocator) FindByName(name string) *Region {
	for _, r := range a.regions {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// intersectsAny reports whether [start, start+length) intersects any
// existing region, optionally excluding one region from the check.
func (a *Allocator) intersectsAny(start, length int, exclude *Region) (*Region, bool) {
	for _, r := range a.regions {
		if r == exclude {
			continue
		}
		if overlaps(start, length, r) {
			return r, true
		}
	}
	return nil, false
}

// InsertAt allocates a region at an explicit base address. It fails if
// the requested span intersects any existing region.
func (a *Allocator) InsertAt(name string, base, length int, reserved, executable bool) (*Region, error) {
	if _, hit := a.intersectsAny(base, length, nil); hit {
		return nil, fmt.Errorf("region %q at 0x%04x..0x%04x overlaps an existing region", name, base, base+length)
	}
	r := &Region{Name: name, Start: base, Length: length, Reserved: reserved, Executable: executable}
	if !reserved {
		r.Data = make([]byte, length)
	}
	a.regions = append(a.regions, r)
	return r, nil
}

// Insert allocates a region of the given size at the first gap above
// MinAddress that accommodates it, scanning existing regions in
// insertion order.
func (a *Allocator) Insert(name string, length int, reserved, executable bool) (*Region, error) {
	candidate := MinAddress
	for {
		if candidate+length > 0x10000 {
			return nil, fmt.Errorf("no free address range for region %q of size %d", name, length)
		}
		blocker, hit := a.intersectsAny(candidate, length, nil)
		if !hit {
			return a.InsertAt(name, candidate, length, reserved, executable)
		}
		candidate = blocker.End()
	}
}

// ExtendResult reports the outcome of extending a region in place.
type ExtendResult struct {
	// ExtendedBy is the number of bytes actually granted, which may be
	// less than requested if another region bounds the extension.
	ExtendedBy int
	// Truncated is true when ExtendedBy is less than requested because
	// another region was encountered.
	Truncated bool
}

// Extend grows r by up to requested bytes, stopping short if another
// region occupies part of the requested span. Callers must check
// Truncated and ExtendedBy before assuming the full amount was granted.
func (a *Allocator) Extend(r *Region, requested int) ExtendResult {
	if requested <= 0 {
		return ExtendResult{}
	}
	newEnd := r.End() + requested
	grant := requested
	truncated := false
	for _, other := range a.regions {
		if other == r {
			continue
		}
		if other.Start >= r.End() && other.Start < newEnd {
			candidate := other.Start - r.End()
			if candidate < grant {
				grant = candidate
				truncated = true
			}
		}
	}
	if grant < 0 {
		grant = 0
		truncated = true
	}
	r.Length += grant
	if !r.Reserved {
		r.Data = append(r.Data, make([]byte, grant)...)
	}
	return ExtendResult{ExtendedBy: grant, Truncated: truncated}
}
