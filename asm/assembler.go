// Package asm implements the assembler driver (spec.md §4.4): a
// line-at-a-time parser over directives and instructions, backed by
// the region allocator and symbol table, with an include-file FIFO
// drained at physical line boundaries (spec.md §5).
package asm

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"robco/internal/asmerr"
	"robco/internal/opcode"
	"robco/internal/region"
	"robco/internal/symtab"
)

type structDef struct {
	members map[string]int
	order   []string
	size    int
}

// Assembler holds the state of one assemble operation: its region
// allocator, symbol table, accumulated diagnostics, and the
// directive-driven cursor state (current code region, open data
// block, pending includes).
type Assembler struct {
	Regions *region.Allocator
	Symbols *symtab.Table

	IncludeDirs []string

	patcher *memPatcher
	errs    []*asmerr.Located

	codeRegion *region.Region
	dataRegion *region.Region

	executionStart    uint16
	executionStartSet bool

	structs      map[string]*structDef
	anonDataSeq  int
	pendingIncls []string
}

// New returns an empty Assembler ready to process files.
func New() *Assembler {
	a := &Assembler{
		Regions: region.New(),
		Symbols: symtab.New(),
		structs: map[string]*structDef{},
	}
	a.patcher = &memPatcher{alloc: a.Regions}
	return a
}

// Errors returns every diagnostic accumulated so far.
func (a *Assembler) Errors() []*asmerr.Located { return a.errs }

func (a *Assembler) errorf(file string, line int, kind error, format string, args ...any) {
	a.errs = append(a.errs, asmerr.New(file, line, kind, format, args...))
}

// AssembleFile processes path and, depth-first, every file it
// .includes, per spec.md §5's line-boundary FIFO drain: each line is
// fully processed, then any includes it queued are drained (each
// recursively draining its own) before the next line of the
// enclosing file is read.
func (a *Assembler) AssembleFile(path string) {
	a.processFile(path)
}

func (a *Assembler) resolveInclude(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
		return "", fmt.Errorf("include %q not found", name)
	}
	for _, dir := range append([]string{"."}, a.IncludeDirs...) {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("include %q not found in any search path", name)
}

func (a *Assembler) processFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		a.errorf(path, 0, asmerr.ErrIoError, "opening file: %v", err)
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		a.processLine(path, lineNo, scanner.Text())
		for len(a.pendingIncls) > 0 {
			next := a.pendingIncls[0]
			a.pendingIncls = a.pendingIncls[1:]
			a.processFile(next)
		}
	}
	if err := scanner.Err(); err != nil {
		a.errorf(path, lineNo, asmerr.ErrIoError, "reading: %v", err)
	}
}

func (a *Assembler) processLine(file string, lineNo int, raw string) {
	line := stripComment(raw)
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	if a.dataRegion != nil && a.continuesDataBlock(trimmed) {
		if trimmed == ".end" {
			a.dataRegion = nil
			return
		}
		a.appendDataTokens(file, lineNo, tokenize(trimmed))
		return
	}
	a.dataRegion = nil

	tokens := tokenize(trimmed)
	if len(tokens) == 0 {
		return
	}
	head := tokens[0]

	switch {
	case strings.HasPrefix(head, "."):
		a.handleDirective(file, lineNo, head, tokens[1:])
	case strings.HasSuffix(head, ":"):
		a.handleLabel(file, lineNo, strings.TrimSuffix(head, ":"))
		if len(tokens) > 1 {
			a.handleInstruction(file, lineNo, tokens[1], tokens[2:])
		}
	default:
		a.handleInstruction(file, lineNo, head, tokens[1:])
	}
}

// continuesDataBlock reports whether trimmed belongs to the currently
// open .data block per spec.md §4.4: ".end" (which closes it), or any
// line whose first token is not a directive, label, or recognized
// mnemonic, which is decoded as more byte literals.
func (a *Assembler) continuesDataBlock(trimmed string) bool {
	if trimmed == ".end" {
		return true
	}
	first := strings.Fields(trimmed)[0]
	if strings.HasPrefix(first, ".") || strings.HasSuffix(first, ":") {
		return false
	}
	if _, ok := opcode.Lookup(first); ok {
		return false
	}
	return true
}
