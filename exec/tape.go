package exec

import (
	"fmt"

	"robco/holotape"
)

// LoadFromReader drains an executable file's bytes from the deck's
// current position one block at a time (spec.md §4.8's EXECUTE
// syscall), decodes it, and loads it into a fresh data image.
//
// Grounded on original_source/source/main/syscall_holotape_handlers.cpp's
// use of block_bytes - HOLOTAPE_HEADER_SIZE to size each block's file
// content before handing the assembled buffer to the executable
// decoder.
func LoadFromReader(deck *holotape.Deck) (image []byte, start uint16, err error) {
	if err := deck.Read(); err != nil {
		return nil, 0, err
	}
	first := deck.Buffer()
	payloadLen := int(first.BlockBytes) - holotape.HeaderSize
	if payloadLen < 0 || payloadLen > holotape.PayloadSize {
		return nil, 0, fmt.Errorf("%w: block_bytes=%d", holotape.ErrExecFormat, first.BlockBytes)
	}

	buf := make([]byte, 0, payloadLen)
	buf = append(buf, first.Payload[:payloadLen]...)
	remaining := first.RemainingBlocksFile

	for remaining > 0 {
		if err := deck.Read(); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", holotape.ErrExecTruncated, err)
		}
		b := deck.Buffer()
		blockPayloadLen := int(b.BlockBytes) - holotape.HeaderSize
		if blockPayloadLen < 0 || blockPayloadLen > holotape.PayloadSize {
			return nil, 0, fmt.Errorf("%w: block_bytes=%d", holotape.ErrExecFormat, b.BlockBytes)
		}
		buf = append(buf, b.Payload[:blockPayloadLen]...)
		remaining--
	}

	f, err := Decode(buf)
	if err != nil {
		return nil, 0, err
	}
	return Load(f)
}
