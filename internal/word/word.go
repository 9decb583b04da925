// Package word defines the machine's 16-bit big-endian word type and its
// byte and signed conversions. The assembler, emulator, executable codec
// and holotape do their own big-endian conversions and do not import it.
package word

import "encoding/binary"

// Word is the machine's native 16-bit value. It is always big-endian on
// the wire and in memory.
type Word uint16

// PutBig writes w into buf[0:2] big-endian.
func PutBig(buf []byte, w Word) {
	binary.BigEndian.PutUint16(buf, uint16(w))
}

// FromBig reads a big-endian Word from buf[0:2].
func FromBig(buf []byte) Word {
	return Word(binary.BigEndian.Uint16(buf))
}

// Bytes returns the two big-endian bytes of w.
func (w Word) Bytes() [2]byte {
	var b [2]byte
	PutBig(b[:], w)
	return b
}

// Signed reinterprets w as a two's-complement int16.
func (w Word) Signed() int16 {
	return int16(w)
}

// FromSigned builds a Word from a signed 16-bit value.
func FromSigned(v int16) Word {
	return Word(uint16(v))
}

// FitsInt8 reports whether v fits in a signed 8-bit displacement.
func FitsInt8(v int) bool {
	return v >= -128 && v <= 127
}
