package holotape

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Append writes the contents of localPath onto the first empty block
// (filename[0]==0) found by a forward scan from the start of the tape,
// splitting the input into a chain of PayloadSize-byte blocks linked by
// RemainingBlocksFile/NextBlock, matching
// original_source/source/tapemanager/holotape_wrapper.cpp's
// append_file.
func (d *Deck) Append(localPath string) error {
	if d.file == nil {
		return ErrEmpty
	}

	name := filepath.Base(localPath)
	var truncated string
	if len(name) > FileNameMax {
		truncated = name[:FileNameMax]
	} else {
		truncated = name
	}
	var nameBytes [FileNameMax]byte
	copy(nameBytes[:], truncated)

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}

	if err := d.Rewind(); err != nil {
		return err
	}
	foundBlock := false
	for {
		err := d.Read()
		if err == ErrEndOfTape {
			break
		}
		if err != nil {
			return err
		}
		if d.buffer.Filename[0] == 0 {
			foundBlock = true
			break
		}
	}
	if !foundBlock {
		return fmt.Errorf("%w: no space left on tape", ErrEndOfTape)
	}
	if err := d.RewindBlock(); err != nil {
		return err
	}

	remaining := info.Size()
	blockCount := 1
	if remaining > PayloadSize {
		blockCount = int(remaining / PayloadSize)
		if int64(blockCount)*PayloadSize < remaining {
			blockCount++
		}
	}
	blocksRemaining := blockCount - 1

	for remaining > 0 {
		readSize := int64(PayloadSize)
		if remaining < readSize {
			readSize = remaining
		}
		current := d.currentBlockIndex()

		var payload [PayloadSize]byte
		n, err := io.ReadFull(src, payload[:readSize])
		if err != nil || int64(n) != readSize {
			return fmt.Errorf("%w: short read appending %s", ErrIOError, name)
		}

		var b Block
		b.BlockBytes = uint16(readSize) + HeaderSize
		b.RemainingBlocksFile = uint16(blocksRemaining)
		b.Filename = nameBytes
		if blocksRemaining > 0 {
			b.NextBlock = uint8(current + 1)
		} else {
			b.NextBlock = 0
		}
		b.Payload = payload
		d.buffer = b
		if err := d.Write(); err != nil {
			return fmt.Errorf("failed writing appended block: %w", err)
		}

		blocksRemaining--
		remaining -= readSize
	}
	return nil
}

// Erase blanks the entire tape with MaxBlocks zeroed blocks.
func (d *Deck) Erase() error {
	if d.file == nil {
		return ErrEmpty
	}
	if err := d.Rewind(); err != nil {
		return err
	}
	d.buffer = Block{}
	for i := 0; i < MaxBlocks; i++ {
		if err := d.Write(); err != nil {
			return fmt.Errorf("erase failed on block %d: %w", i, err)
		}
	}
	return nil
}

// List returns the filenames of every file chain on the tape, found by
// scanning for terminal blocks (RemainingBlocksFile == 0 and a non-zero
// filename byte), matching holotape_wrapper.cpp's list().
func (d *Deck) List() ([]string, error) {
	if d.file == nil {
		return nil, ErrEmpty
	}
	if err := d.Rewind(); err != nil {
		return nil, err
	}
	var names []string
	for i := 0; i < MaxBlocks; i++ {
		if err := d.Read(); err != nil {
			return nil, err
		}
		if d.buffer.RemainingBlocksFile == 0 && d.buffer.Filename[0] != 0 {
			names = append(names, cstr(d.buffer.Filename[:]))
		}
	}
	return names, nil
}
