package exec

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := &File{
		ExecutionStartAddress: 0x0200,
		Segments: []Segment{
			{LoadAddress: 0x0200, IsCode: true, Payload: []byte{0x71}},
			{LoadAddress: 0x0300, IsCode: false, Payload: []byte("Hi\x00")},
		},
	}
	data, err := f.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ExecutionStartAddress != f.ExecutionStartAddress {
		t.Fatalf("start address mismatch: %v vs %v", got.ExecutionStartAddress, f.ExecutionStartAddress)
	}
	if len(got.Segments) != len(f.Segments) {
		t.Fatalf("segment count mismatch: %d vs %d", len(got.Segments), len(f.Segments))
	}
	for i := range f.Segments {
		if got.Segments[i].LoadAddress != f.Segments[i].LoadAddress {
			t.Fatalf("segment %d load address mismatch", i)
		}
		if got.Segments[i].IsCode != f.Segments[i].IsCode {
			t.Fatalf("segment %d is_code mismatch", i)
		}
		if string(got.Segments[i].Payload) != string(f.Segments[i].Payload) {
			t.Fatalf("segment %d payload mismatch", i)
		}
	}
}

func TestOrgPlacementSegment(t *testing.T) {
	// Scenario D: .org 0x200 then a single rts.
	f := &File{
		ExecutionStartAddress: 0x0200,
		Segments:              []Segment{{LoadAddress: 0x0200, IsCode: true, Payload: []byte{0x71}}},
	}
	if got := f.Segments[0].RecordLength(); got != 6 {
		t.Fatalf("expected record length 6, got %d", got)
	}
}

func TestLoadRejectsOutOfBounds(t *testing.T) {
	f := &File{Segments: []Segment{{LoadAddress: 0xFFF0, Payload: make([]byte, 0x20)}}}
	if _, _, err := Load(f); err == nil {
		t.Fatal("expected out-of-bounds error")
	}
}

func TestLoadCopiesSegments(t *testing.T) {
	f := &File{ExecutionStartAddress: 0x10, Segments: []Segment{{LoadAddress: 0x10, Payload: []byte{1, 2, 3}}}}
	image, start, err := Load(f)
	if err != nil {
		t.Fatal(err)
	}
	if start != 0x10 {
		t.Fatalf("expected start 0x10, got 0x%x", start)
	}
	if image[0x10] != 1 || image[0x11] != 2 || image[0x12] != 3 {
		t.Fatalf("segment not copied correctly: %v", image[0x10:0x13])
	}
}
