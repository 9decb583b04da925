package emu

import (
	"os"
	"time"

	"robco/audio"
	"robco/console"
	"robco/exec"
	"robco/graphics"
	"robco/holotape"
)

// Mainframe is a minimal stand-in for the mainframe I/O syscall family
// (spec.md §6's 0x03xx block): a single communication-mode byte and a
// one-deep inbound character slot, since no mainframe peer protocol is
// named anywhere in spec.md beyond the syscall numbers themselves.
type Mainframe struct {
	comm    byte
	pending byte
	hasCh   bool
}

// Send records an outbound character. There being no real peer to
// deliver it to, this stand-in only makes the byte available to the
// next RECEIVECH, echoing it back.
func (m *Mainframe) Send(c byte) {
	m.pending = c
	m.hasCh = true
}

// Receive returns the last sent character, or 0 if none is pending.
func (m *Mainframe) Receive() byte {
	if !m.hasCh {
		return 0
	}
	m.hasCh = false
	return m.pending
}

// Syscall numbers (spec.md §6, pinned from original_source/source/include/syscall.h).
const (
	sysNone      = 0x0000
	sysExit      = 0x0001
	sysGetError  = 0x0011
	sysGetTime   = 0x0012
	sysGetCh     = 0x0100
	sysSetCh     = 0x0101
	sysPrint     = 0x0102
	sysSetCursor = 0x0103
	sysSetAttr   = 0x0104
	sysSetAttrC  = 0x0105
	sysClear     = 0x0106
	sysGetCursor = 0x0107
	sysGetKeys   = 0x0108

	sysHolotapeCheck = 0x0200
	sysHolotapeEject = 0x0201
	sysRewind        = 0x0202
	sysFind          = 0x0203
	sysExecute       = 0x0204
	sysSeek          = 0x0205
	sysRead          = 0x0206
	sysWrite         = 0x0207

	sysSendCh    = 0x0300
	sysReceiveCh = 0x0301
	sysSetComm   = 0x0302
	sysGetComm   = 0x0303

	sysGraphicStart = 0x0400
	sysGraphicEnd   = 0x0401

	sysSoundAck  = 0x0500
	sysSoundNack = 0x0501
	sysSoundCmd  = 0x0502
)

// DispatchSyscall services the syscall frozen by the most recent
// ErrSyscall-returning Step, then resumes the VM to StateRunning. Its
// inputs and outputs follow spec.md §6's stack-calling convention:
// arguments are popped in reverse of source push order (last pushed,
// first popped) and results are pushed so the first declared result
// ends up on top.
func (vm *VM) DispatchSyscall() error {
	var err error
	switch vm.Syscall {
	case sysNone:
		// no-op

	case sysExit:
		code, e := vm.popWord()
		err = e
		vm.Exited = true
		vm.ExitCode = code
		vm.State = StateFinished
		return err

	case sysGetError:
		err = vm.pushWord(vm.errno)

	case sysGetTime:
		err = vm.pushWord(uint16(time.Now().Unix()))

	case sysGetCh:
		var blocking uint8
		if blocking, err = vm.popByte(); err == nil {
			var value uint16
			var waiting bool
			value, waiting, err = vm.console().GetCh(blocking != 0)
			if err == nil {
				if waiting {
					// Nothing queued and the caller asked to block:
					// leave the machine parked in StateWaiting with
					// vm.Syscall still set, so a later re-dispatch (not
					// a Step) retries this same GETCH once a character
					// arrives, rather than resuming with no result.
					return nil
				}
				err = vm.pushWord(value)
			}
		}

	case sysSetCh:
		var c uint8
		if c, err = vm.popByte(); err == nil {
			err = vm.console().SetCh(c)
		}

	case sysPrint:
		var addr uint16
		if addr, err = vm.popWord(); err == nil {
			err = vm.console().Print(vm.readCString(addr))
		}

	case sysSetCursor:
		// Stack-calling convention: last pushed, first popped. The
		// caller pushes X then Y, so Y is popped first.
		var y, x uint16
		if y, err = vm.popWord(); err == nil {
			if x, err = vm.popWord(); err == nil {
				result := uint8(255)
				if vm.console().SetCursor(int(x), int(y)) {
					result = 0
				}
				err = vm.pushByte(result)
			}
		}

	case sysSetAttr:
		var a uint16
		if a, err = vm.popWord(); err == nil {
			vm.console().SetAttr(a)
		}

	case sysSetAttrC:
		var a uint16
		if a, err = vm.popWord(); err == nil {
			vm.console().SetAttrAtCursor(a)
		}

	case sysClear:
		err = vm.console().Clear()

	case sysGetCursor:
		x, y := vm.console().GetCursor()
		if err = vm.pushWord(uint16(x)); err == nil {
			err = vm.pushWord(uint16(y))
		}

	case sysGetKeys:
		err = vm.pushWord(0)

	case sysHolotapeCheck:
		result := uint16(0)
		if e := vm.tape().Check(); e != nil {
			result = 1
		}
		err = vm.pushWord(result)

	case sysHolotapeEject:
		err = vm.tape().Eject()

	case sysRewind:
		err = vm.tape().Rewind()

	case sysFind:
		var addr uint16
		if addr, err = vm.popWord(); err == nil {
			name := vm.readCString(addr)
			result := uint16(0)
			if e := vm.tape().Find(name); e != nil {
				result = 1
			}
			err = vm.pushWord(result)
		}

	case sysExecute:
		var image []byte
		var start uint16
		if image, start, err = exec.LoadFromReader(vm.tape()); err == nil {
			vm.Load(image, start)
			return nil // Load already set StateRunning; skip the Resume below
		}

	case sysSeek:
		var n uint16
		if n, err = vm.popWord(); err == nil {
			err = vm.tape().Seek(n)
		}

	case sysRead:
		var addr uint16
		if addr, err = vm.popWord(); err == nil {
			if err = vm.tape().Read(); err == nil {
				err = vm.copyToMem(addr, vm.tape().Buffer().Payload[:])
			}
		}

	case sysWrite:
		var addr uint16
		if addr, err = vm.popWord(); err == nil {
			buf := vm.tape().Buffer()
			if err = vm.copyFromMem(buf.Payload[:], addr); err == nil {
				err = vm.tape().Write()
			}
		}

	case sysSendCh:
		var c uint8
		if c, err = vm.popByte(); err == nil {
			vm.mainframe().Send(c)
		}

	case sysReceiveCh:
		err = vm.pushByte(vm.mainframe().Receive())

	case sysSetComm:
		var c uint8
		if c, err = vm.popByte(); err == nil {
			vm.mainframe().comm = c
		}

	case sysGetComm:
		err = vm.pushByte(vm.mainframe().comm)

	case sysGraphicStart:
		vm.graphics().Start()

	case sysGraphicEnd:
		vm.graphics().End()

	case sysSoundAck, sysSoundNack:
		// acknowledged/not-acknowledged are reported by SOUNDCMD's own
		// return value; these numbers exist for ABI completeness only.

	case sysSoundCmd:
		var addr, length uint16
		if length, err = vm.popWord(); err == nil {
			if addr, err = vm.popWord(); err == nil {
				data := make([]byte, length)
				if err = vm.copyFromMem(data, addr); err == nil {
					ok := vm.audio().TrySend(audio.Command{Data: data})
					result := uint16(0)
					if ok {
						result = 1
					}
					err = vm.pushWord(result)
				}
			}
		}

	default:
		vm.errno = uint16(vm.Syscall)
		err = nil
	}

	if err != nil {
		vm.fail(err)
		return err
	}
	vm.Resume()
	return nil
}

func (vm *VM) readCString(addr uint16) string {
	end := int(addr)
	for end < DataMemSize && vm.Mem[end] != 0 {
		end++
	}
	return string(vm.Mem[addr:end])
}

func (vm *VM) copyToMem(addr uint16, data []byte) error {
	if int(addr)+len(data) > DataMemSize {
		return ErrIllegalInstruction
	}
	copy(vm.Mem[addr:], data)
	return nil
}

func (vm *VM) copyFromMem(dst []byte, addr uint16) error {
	if int(addr)+len(dst) > DataMemSize {
		return ErrIllegalInstruction
	}
	copy(dst, vm.Mem[addr:])
	return nil
}

// console, tape, graphics, and audio lazily construct a default host
// collaborator the first time a syscall needs one that the embedder
// never wired up, so a VM built with emu.New() still services every
// syscall instead of panicking on a nil field.

func (vm *VM) console() *console.Device {
	if vm.Console == nil {
		vm.Console = console.New(os.Stdout, os.Stdin)
	}
	return vm.Console
}

func (vm *VM) tape() *holotape.Deck {
	if vm.Tape == nil {
		vm.Tape = holotape.NewDeck()
	}
	return vm.Tape
}

func (vm *VM) graphics() *graphics.Sink {
	if vm.Graphics == nil {
		vm.Graphics = graphics.NewSink()
	}
	return vm.Graphics
}

func (vm *VM) audio() *audio.Sink {
	if vm.Audio == nil {
		vm.Audio = audio.NewSink(16, nil)
	}
	return vm.Audio
}

func (vm *VM) mainframe() *Mainframe {
	if vm.Mainframe == nil {
		vm.Mainframe = &Mainframe{}
	}
	return vm.Mainframe
}
