package exec

import "fmt"

// DataImageSize is the emulator's 64 KiB data address space.
const DataImageSize = 0x10000

// ErrSegmentOutOfBounds is returned when a segment would write past the
// 64 KiB data image.
var ErrSegmentOutOfBounds = fmt.Errorf("segment exceeds data image bounds")

// Load materializes f into a freshly zeroed 64 KiB data image and
// returns it along with the execution start address, matching spec.md
// §4.8's loader behavior (allocate, walk segments, memcpy each into
// place, reject out-of-bounds segments).
func Load(f *File) (image []byte, start uint16, err error) {
	image = make([]byte, DataImageSize)
	for _, s := range f.Segments {
		end := int(s.LoadAddress) + len(s.Payload)
		if end > DataImageSize {
			return nil, 0, fmt.Errorf("%w: load=0x%04x length=%d", ErrSegmentOutOfBounds, s.LoadAddress, len(s.Payload))
		}
		copy(image[s.LoadAddress:end], s.Payload)
	}
	return image, f.ExecutionStartAddress, nil
}
