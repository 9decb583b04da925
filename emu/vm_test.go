package emu

import (
	"strings"
	"testing"

	"robco/console"
	"robco/internal/opcode"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func newRunning(t *testing.T, code []byte) *VM {
	t.Helper()
	vm := New()
	image := make([]byte, DataMemSize)
	copy(image, code)
	vm.Load(image, 0)
	return vm
}

func mustOp(t *testing.T, name string) opcode.Opcode {
	t.Helper()
	e, ok := opcode.Lookup(name)
	assert(t, ok, "no opcode entry for %q", name)
	return e.Opcode
}

// invariant 6: identical memory/register/flag state before Step always
// produces identical state after Step.
func TestStepIsDeterministic(t *testing.T) {
	code := []byte{byte(mustOp(t, "pushiw")), 0x00, 0x05, byte(mustOp(t, "pushiw")), 0x00, 0x03, byte(mustOp(t, "addw"))}
	vm1 := newRunning(t, code)
	vm2 := newRunning(t, code)
	for i := 0; i < 3; i++ {
		assert(t, vm1.Step() == nil, "vm1 step %d failed", i)
		assert(t, vm2.Step() == nil, "vm2 step %d failed", i)
	}
	assert(t, vm1.PC == vm2.PC, "PC diverged")
	assert(t, vm1.SP == vm2.SP, "SP diverged")
	assert(t, vm1.CC == vm2.CC, "CC diverged")
	assert(t, vm1.Mem == vm2.Mem, "memory diverged")
}

func TestAddWordPushesSumAndSetsFlags(t *testing.T) {
	code := []byte{byte(mustOp(t, "pushiw")), 0x00, 0x05, byte(mustOp(t, "pushiw")), 0x00, 0x03, byte(mustOp(t, "addw"))}
	vm := newRunning(t, code)
	for i := 0; i < 3; i++ {
		assert(t, vm.Step() == nil, "step %d", i)
	}
	v, err := vm.peekWord()
	assert(t, err == nil, "peek: %v", err)
	assert(t, v == 8, "expected 8, got %d", v)
	assert(t, !vm.flag(opcode.CCZero), "zero flag should be clear")
}

func TestDivideByZeroSetsFlagAndLeavesStackEmpty(t *testing.T) {
	code := []byte{byte(mustOp(t, "pushiw")), 0x00, 0x05, byte(mustOp(t, "pushiw")), 0x00, 0x00, byte(mustOp(t, "divw"))}
	vm := newRunning(t, code)
	for i := 0; i < 3; i++ {
		assert(t, vm.Step() == nil, "step %d", i)
	}
	assert(t, vm.flag(opcode.CCDiv0), "expected DIV0 flag set")
	assert(t, vm.SP == DataMemSize, "expected empty data stack, SP=%d", vm.SP)
}

func TestUnconditionalBranch(t *testing.T) {
	code := []byte{byte(mustOp(t, "b")), 0x02, 0x00, 0x00, byte(mustOp(t, "sync"))}
	vm := newRunning(t, code)
	assert(t, vm.Step() == nil, "branch step")
	assert(t, vm.PC == 4, "expected PC=4 after branch, got %d", vm.PC)
}

func TestJSRPushesReturnAddressAndRTSPopsIt(t *testing.T) {
	code := []byte{
		byte(mustOp(t, "jsr")), 0x00, 0x06, // jsr 6
		byte(mustOp(t, "sync")),
		0x00, 0x00,
		byte(mustOp(t, "rts")), // at address 6
	}
	vm := newRunning(t, code)
	assert(t, vm.Step() == nil, "jsr step")
	assert(t, vm.PC == 6, "expected PC=6 after jsr, got %d", vm.PC)
	assert(t, vm.ISP == ReturnStackSize-2, "expected one word on return stack")
	assert(t, vm.Step() == nil, "rts step")
	assert(t, vm.PC == 3, "expected PC=3 after rts, got %d", vm.PC)
}

func TestSyscallFreezesPCAndEntersWaiting(t *testing.T) {
	code := []byte{byte(mustOp(t, "syscall")), 0x01, 0x02}
	vm := newRunning(t, code)
	err := vm.Step()
	assert(t, err == ErrSyscall, "expected ErrSyscall, got %v", err)
	assert(t, vm.State == StateWaiting, "expected StateWaiting, got %s", vm.State)
	assert(t, vm.PC == 3, "expected PC frozen at 3, got %d", vm.PC)
	assert(t, vm.Syscall == 0x0102, "expected syscall 0x0102, got %#x", vm.Syscall)
}

// invariant 7: stack pointer delta after a syscall equals size(inputs) - size(outputs).
func TestSyscallCallingConventionStackDelta(t *testing.T) {
	code := []byte{
		byte(mustOp(t, "pushi")), 'H',
		byte(mustOp(t, "syscall")), 0x01, 0x01, // SETCH: 1 byte in, 0 out
	}
	vm := newRunning(t, code)
	assert(t, vm.Step() == nil, "push step")
	spBefore := vm.SP
	assert(t, vm.Step() == ErrSyscall, "syscall step")
	assert(t, vm.DispatchSyscall() == nil, "dispatch syscall")
	assert(t, vm.SP-spBefore == 1, "expected SP to grow by 1 (1 byte consumed), got delta %d", vm.SP-spBefore)
}

func TestIndexedPushStoresAtRegisterAddressAndPostIncrements(t *testing.T) {
	pushxOp := mustOp(t, "pushiw")
	code := []byte{
		byte(pushxOp), 0x01, 0x00, // pushiw 0x0100
		byte(mustOp(t, "pullx")), // x = 0x0100
		byte(mustOp(t, "pushi")), 0x2A,
		byte(mustOp(t, "push")) | opcode.RegX, 0x01, // push (post-increment by 1)
	}
	vm := newRunning(t, code)
	for i := 0; i < 4; i++ {
		assert(t, vm.Step() == nil, "step %d", i)
	}
	assert(t, vm.Mem[0x0100] == 0x2A, "expected 0x2A stored at 0x0100, got %#x", vm.Mem[0x0100])
	assert(t, vm.X == 0x0101, "expected X post-incremented to 0x0101, got %#x", vm.X)
}

// GETCH, non-blocking, byte already queued: pops the isBlocking byte,
// pushes the queued byte widened to a word -- syscall_handlers.cpp's
// handle_syscall_getch immediate-dequeue branch.
func TestGetChNonBlockingQueuedBytePushesWord(t *testing.T) {
	code := []byte{
		byte(mustOp(t, "pushi")), 0x00, // isBlocking = false
		byte(mustOp(t, "syscall")), 0x01, 0x00, // GETCH
	}
	vm := newRunning(t, code)
	vm.Console = console.New(&strings.Builder{}, strings.NewReader("A"))
	assert(t, vm.Step() == nil, "push step")
	spBefore := vm.SP
	assert(t, vm.Step() == ErrSyscall, "syscall step")
	assert(t, vm.DispatchSyscall() == nil, "dispatch syscall")
	assert(t, vm.State == StateRunning, "expected StateRunning, got %s", vm.State)
	assert(t, spBefore-vm.SP == 1, "expected SP to shrink by 1 (byte arg popped, word result pushed), got delta %d", spBefore-vm.SP)
	v, err := vm.peekWord()
	assert(t, err == nil, "peek: %v", err)
	assert(t, v == uint16('A'), "expected word 'A' (0x%02x), got 0x%04x", 'A', v)
}

// GETCH, non-blocking, nothing queued: pushes word 0 immediately rather
// than waiting.
func TestGetChNonBlockingEmptyPushesZero(t *testing.T) {
	code := []byte{
		byte(mustOp(t, "pushi")), 0x00, // isBlocking = false
		byte(mustOp(t, "syscall")), 0x01, 0x00, // GETCH
	}
	vm := newRunning(t, code)
	vm.Console = console.New(&strings.Builder{}, strings.NewReader(""))
	assert(t, vm.Step() == nil, "push step")
	assert(t, vm.Step() == ErrSyscall, "syscall step")
	assert(t, vm.DispatchSyscall() == nil, "dispatch syscall")
	assert(t, vm.State == StateRunning, "expected StateRunning, got %s", vm.State)
	v, err := vm.peekWord()
	assert(t, err == nil, "peek: %v", err)
	assert(t, v == 0, "expected word 0, got 0x%04x", v)
}

// GETCH, blocking, nothing queued: the VM stays parked in StateWaiting
// with no result pushed, so a later re-dispatch retries GETCH once a
// character arrives.
func TestGetChBlockingEmptyEntersWaiting(t *testing.T) {
	code := []byte{
		byte(mustOp(t, "pushi")), 0x01, // isBlocking = true
		byte(mustOp(t, "syscall")), 0x01, 0x00, // GETCH
	}
	vm := newRunning(t, code)
	vm.Console = console.New(&strings.Builder{}, strings.NewReader(""))
	assert(t, vm.Step() == nil, "push step")
	assert(t, vm.Step() == ErrSyscall, "syscall step")
	spBefore := vm.SP
	assert(t, vm.DispatchSyscall() == nil, "dispatch syscall")
	assert(t, vm.State == StateWaiting, "expected machine to stay parked in StateWaiting, got %s", vm.State)
	assert(t, vm.SP-spBefore == 1, "expected only the isBlocking byte popped (SP+1), got delta %d", vm.SP-spBefore)
}

// SETATTR pops a single word argument (syscall_handlers.cpp's
// handle_syscall_setattr pulls a word, not a byte).
func TestSetAttrPopsWordAndSetsCurrentAttribute(t *testing.T) {
	code := []byte{
		byte(mustOp(t, "pushiw")), 0x12, 0x34,
		byte(mustOp(t, "syscall")), 0x01, 0x04, // SETATTR
	}
	vm := newRunning(t, code)
	assert(t, vm.Step() == nil, "push step")
	spBefore := vm.SP
	assert(t, vm.Step() == ErrSyscall, "syscall step")
	assert(t, vm.DispatchSyscall() == nil, "dispatch syscall")
	assert(t, vm.SP-spBefore == 2, "expected SP to grow by 2 (word arg popped), got delta %d", vm.SP-spBefore)
	assert(t, vm.console().Attr() == 0x1234, "expected attribute 0x1234, got 0x%04x", vm.console().Attr())
}

// SETATTRC pops a single word argument and applies it to the character
// under the cursor, distinct from SETATTR's current-attribute slot.
func TestSetAttrCPopsWordAndSetsAttributeAtCursorOnly(t *testing.T) {
	code := []byte{
		byte(mustOp(t, "pushiw")), 0x56, 0x78,
		byte(mustOp(t, "syscall")), 0x01, 0x05, // SETATTRC
	}
	vm := newRunning(t, code)
	assert(t, vm.Step() == nil, "push step")
	spBefore := vm.SP
	assert(t, vm.Step() == ErrSyscall, "syscall step")
	assert(t, vm.DispatchSyscall() == nil, "dispatch syscall")
	assert(t, vm.SP-spBefore == 2, "expected SP to grow by 2 (word arg popped), got delta %d", vm.SP-spBefore)
	assert(t, vm.console().AttrAtCursor() == 0x5678, "expected attribute-at-cursor 0x5678, got 0x%04x", vm.console().AttrAtCursor())
	assert(t, vm.console().Attr() == 0, "SETATTRC must not touch the current-attribute slot, got 0x%04x", vm.console().Attr())
}

// SETCURSOR pops two words (X then Y pushed, so Y is popped first) and
// pushes a one-byte success/failure result -- syscall_handlers.cpp's
// handle_syscall_setcursor always reports a result byte.
func TestSetCursorPopsTwoWordsAndPushesResultByte(t *testing.T) {
	code := []byte{
		byte(mustOp(t, "pushiw")), 0x00, 0x0A, // X = 10
		byte(mustOp(t, "pushiw")), 0x00, 0x14, // Y = 20
		byte(mustOp(t, "syscall")), 0x01, 0x03, // SETCURSOR
	}
	vm := newRunning(t, code)
	assert(t, vm.Step() == nil, "push X step")
	assert(t, vm.Step() == nil, "push Y step")
	spBefore := vm.SP
	assert(t, vm.Step() == ErrSyscall, "syscall step")
	assert(t, vm.DispatchSyscall() == nil, "dispatch syscall")
	assert(t, vm.SP-spBefore == 3, "expected SP to grow by 3 (2 words popped, 1 byte pushed), got delta %d", vm.SP-spBefore)
	b, err := vm.peekByte()
	assert(t, err == nil, "peek: %v", err)
	assert(t, b == 0, "expected success result byte 0, got %d", b)
	x, y := vm.console().GetCursor()
	assert(t, x == 10 && y == 20, "expected cursor (10,20), got (%d,%d)", x, y)
}

func TestIllegalInstructionEntersErrorState(t *testing.T) {
	code := []byte{0xFE}
	vm := newRunning(t, code)
	err := vm.Step()
	assert(t, err == ErrIllegalInstruction, "expected ErrIllegalInstruction, got %v", err)
	assert(t, vm.State == StateError, "expected StateError, got %s", vm.State)
}
