// Package exec implements the executable file codec (spec.md §4.5, §6)
// shared by the assembler's writer and the emulator's loader, plus the
// loader itself (§4.8).
//
// Layout, all fields big-endian:
//
//	file_header:  u16 total_length
//	              u16 segment_count
//	              u16 execution_start_address
//	segment_rec:  u16 load_address
//	              u16 record_length   // includes these 5 header bytes
//	              u8  is_code
//	              u8[record_length-5] payload
package exec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SegmentHeaderSize is the 5-byte fixed portion of a segment record.
const SegmentHeaderSize = 5

// FileHeaderSize is the 6-byte fixed file header.
const FileHeaderSize = 6

// Segment is one loadable span of the executable.
type Segment struct {
	LoadAddress uint16
	IsCode      bool
	Payload     []byte
}

// RecordLength is the segment's on-disk length, header included.
func (s Segment) RecordLength() uint16 {
	return uint16(SegmentHeaderSize + len(s.Payload))
}

// File is a decoded executable: a header plus its segments.
type File struct {
	ExecutionStartAddress uint16
	Segments              []Segment
}

// TotalLength is the byte count of the entire encoded file.
func (f *File) TotalLength() uint16 {
	total := FileHeaderSize
	for _, s := range f.Segments {
		total += int(s.RecordLength())
	}
	return uint16(total)
}

// Encode writes f in the wire format described above.
func (f *File) Encode() ([]byte, error) {
	buf := &bytes.Buffer{}
	var hdr [FileHeaderSize]byte
	binary.BigEndian.PutUint16(hdr[0:2], f.TotalLength())
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(f.Segments)))
	binary.BigEndian.PutUint16(hdr[4:6], f.ExecutionStartAddress)
	buf.Write(hdr[:])

	for _, s := range f.Segments {
		var rec [SegmentHeaderSize]byte
		binary.BigEndian.PutUint16(rec[0:2], s.LoadAddress)
		binary.BigEndian.PutUint16(rec[2:4], s.RecordLength())
		if s.IsCode {
			rec[4] = 1
		}
		buf.Write(rec[:])
		buf.Write(s.Payload)
	}
	return buf.Bytes(), nil
}

// ErrTruncated is returned when the byte stream ends before a declared
// field or payload is fully present.
var ErrTruncated = fmt.Errorf("truncated executable file")

// Decode parses an executable file from raw bytes.
func Decode(data []byte) (*File, error) {
	if len(data) < FileHeaderSize {
		return nil, ErrTruncated
	}
	totalLength := binary.BigEndian.Uint16(data[0:2])
	segmentCount := binary.BigEndian.Uint16(data[2:4])
	startAddr := binary.BigEndian.Uint16(data[4:6])
	if int(totalLength) > len(data) {
		return nil, ErrTruncated
	}

	f := &File{ExecutionStartAddress: startAddr}
	offset := FileHeaderSize
	for i := uint16(0); i < segmentCount; i++ {
		if offset+SegmentHeaderSize > len(data) {
			return nil, ErrTruncated
		}
		loadAddr := binary.BigEndian.Uint16(data[offset : offset+2])
		recLen := binary.BigEndian.Uint16(data[offset+2 : offset+4])
		isCode := data[offset+4] != 0
		if int(recLen) < SegmentHeaderSize || offset+int(recLen) > len(data) {
			return nil, ErrTruncated
		}
		payload := make([]byte, int(recLen)-SegmentHeaderSize)
		copy(payload, data[offset+SegmentHeaderSize:offset+int(recLen)])
		f.Segments = append(f.Segments, Segment{LoadAddress: loadAddr, IsCode: isCode, Payload: payload})
		offset += int(recLen)
	}
	return f, nil
}
