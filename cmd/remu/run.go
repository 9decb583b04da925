package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"robco/audio"
	"robco/console"
	"robco/emu"
	"robco/exec"
	"robco/graphics"
	"robco/holotape"
)

var (
	flagTape  string
	flagTrace bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run EXECUTABLE",
		Short: "load and run an executable file to completion",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	cmd.Flags().StringVar(&flagTape, "tape", "", "holotape image to insert before running")
	return cmd
}

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace EXECUTABLE",
		Short: "run an executable, printing PC/SP/CC before every step",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			flagTrace = true
			return runRun(c, args)
		},
	}
	cmd.Flags().StringVar(&flagTape, "tape", "", "holotape image to insert before running")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	f, err := exec.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}
	image, start, err := exec.Load(f)
	if err != nil {
		return fmt.Errorf("load %s: %w", args[0], err)
	}

	vm := emu.New()
	vm.Load(image, start)
	vm.Console = console.New(os.Stdout, os.Stdin)
	vm.Graphics = graphics.NewSink()
	vm.Audio = audio.NewSink(16, nil)
	vm.Tape = holotape.NewDeck()
	if flagTape != "" {
		if err := vm.Tape.Insert(flagTape); err != nil {
			return fmt.Errorf("insert tape %s: %w", flagTape, err)
		}
	}

	for {
		if flagTrace {
			fmt.Fprintf(os.Stderr, "pc=0x%04x sp=0x%04x cc=0x%02x state=%s\n", vm.PC, vm.SP, vm.CC, vm.State)
		}

		// A blocking GETCH with nothing queued leaves the VM parked in
		// StateWaiting without resuming it (emu.DispatchSyscall returns
		// nil but skips Resume); retry the same dispatch instead of
		// calling Step on a non-running VM.
		if vm.State == emu.StateWaiting {
			if derr := vm.DispatchSyscall(); derr != nil {
				return fmt.Errorf("syscall 0x%04x: %w", vm.Syscall, derr)
			}
			if vm.State == emu.StateWaiting {
				time.Sleep(time.Millisecond)
				continue
			}
		}

		err := vm.Step()
		switch {
		case err == emu.ErrSyscall:
			if derr := vm.DispatchSyscall(); derr != nil {
				return fmt.Errorf("syscall 0x%04x: %w", vm.Syscall, derr)
			}
		case err != nil:
			return fmt.Errorf("step at pc=0x%04x: %w", vm.PC, err)
		}

		if vm.Exited {
			os.Exit(int(vm.ExitCode))
		}
		if vm.State == emu.StateFinished || vm.State == emu.StateError {
			break
		}
	}

	if vm.State == emu.StateError {
		return fmt.Errorf("halted in error state: %v", vm.LastError)
	}
	return nil
}
