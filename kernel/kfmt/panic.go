package kfmt

import (
	"kernel32/kernel"
	"kernel32/kernel/cpu"
)

var (
	// haltFn is mocked by tests.
	haltFn = haltForever

	errRuntimePanic = &kernel.Error{Module: "rt", Kind: kernel.HardwareError, Message: "unknown cause"}
)

// Panic outputs the supplied error (if not nil) to the console and halts the
// CPU. Calls to Panic never return.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	haltFn()
}

// haltForever masks interrupts and parks the CPU. An NMI can wake the CPU
// from HLT so the halt is retried in a loop.
func haltForever() {
	cpu.DisableInterrupts()
	for {
		cpu.Halt()
	}
}
