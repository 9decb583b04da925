// Package console is the host-side stand-in for the SDL rendering and
// keyboard bridge named out of scope in spec.md §1: a plain text
// console over os.Stdout/os.Stdin, reached only through syscalls
// (GETCH, SETCH, PRINT, ...).
package console

import (
	"bufio"
	"io"
)

// Device is a text console: PRINT writes, GETCH/GETKEYS read.
type Device struct {
	out io.Writer
	in  *bufio.Reader

	cursorX, cursorY int
	attr             uint16
	attrAtCursor     uint16
}

// New builds a Device over the given writer/reader.
func New(out io.Writer, in io.Reader) *Device {
	return &Device{out: out, in: bufio.NewReader(in)}
}

// Print writes s to the console.
func (d *Device) Print(s string) error {
	_, err := io.WriteString(d.out, s)
	return err
}

// GetCh implements GETCH's blocking-mode protocol: if a byte can be
// read from the input (already buffered, or fetched from the
// underlying reader, which waits for data on an interactive input), it
// is consumed and returned with waiting=false. If the input has
// nothing to give (empty or exhausted) and blocking is true, waiting
// is reported true and nothing is consumed -- the caller must leave
// the machine parked and retry later rather than push a result. If
// the input has nothing to give and blocking is false,
// waiting=false and value=0, matching
// original_source/source/main/syscall_handlers.cpp's
// handle_syscall_getch: an empty, non-blocking GETCH pushes word 0
// immediately instead of waiting.
func (d *Device) GetCh(blocking bool) (value uint16, waiting bool, err error) {
	if d.in.Buffered() == 0 {
		if _, err := d.in.Peek(1); err != nil {
			if blocking {
				return 0, true, nil
			}
			return 0, false, nil
		}
	}
	b, err := d.in.ReadByte()
	if err != nil {
		return 0, false, err
	}
	return uint16(b), false, nil
}

// SetCh writes a single byte to the console.
func (d *Device) SetCh(c byte) error {
	_, err := d.out.Write([]byte{c})
	return err
}

// SetCursor records the console's logical cursor position, reporting
// success/failure the way original_source's Console::SetCursor does
// (bounds-checked against a real screen grid there; this stand-in has
// no grid to violate, so it always succeeds).
func (d *Device) SetCursor(x, y int) bool {
	d.cursorX, d.cursorY = x, y
	return true
}

// GetCursor returns the last position set by SetCursor.
func (d *Device) GetCursor() (x, y int) {
	return d.cursorX, d.cursorY
}

// SetAttr records the text attribute applied to characters printed
// from now on (SETATTR).
func (d *Device) SetAttr(a uint16) {
	d.attr = a
}

// Attr returns the last attribute set by SetAttr.
func (d *Device) Attr() uint16 {
	return d.attr
}

// SetAttrAtCursor applies an attribute to the character currently under
// the cursor (SETATTRC), distinct from SetAttr's "attribute for
// characters printed from now on" -- matching
// original_source/source/main/syscall_handlers.cpp's separate
// SetAttributeAtCursor/SetCurrentAttribute console methods.
func (d *Device) SetAttrAtCursor(a uint16) {
	d.attrAtCursor = a
}

// AttrAtCursor returns the last attribute set by SetAttrAtCursor.
func (d *Device) AttrAtCursor() uint16 {
	return d.attrAtCursor
}

// Clear is a no-op on a plain stream console; it exists so the CLEAR
// syscall has somewhere to dispatch to.
func (d *Device) Clear() error {
	return nil
}
