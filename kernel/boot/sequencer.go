// Package boot brings the machine from the loader hand-off to an idle
// kernel by running the initialization stages in a fixed order.
package boot

import (
	"io"

	"kernel32/kernel"
	"kernel32/kernel/bootinfo"
	"kernel32/kernel/cpu"
	"kernel32/kernel/kfmt"
	"kernel32/kernel/mm"
	"kernel32/kernel/mm/pmm"
	"kernel32/kernel/mm/vmm"
)

const (
	// LowReservedEnd is the end of the physical memory that the loader
	// and the kernel image occupy. Frames below it are never handed out.
	LowReservedEnd = uintptr(5 * mm.Mb)

	// KernelStackTop is the initial stack pointer set up by rt0. The stack
	// spans the vmm.BootStackSize bytes below it.
	KernelStackTop = vmm.KernelVirtualBase + vmm.BootWindowSize

	// bootStackPhys is the physical address of the lowest boot stack byte.
	bootStackPhys = vmm.BootWindowSize - vmm.BootStackSize

	// ShellPrompt is the prompt passed to the shell collaborator.
	ShellPrompt = " $ "

	// diagColumn and diagRow position the boot summary on screen.
	diagColumn = 10
	diagRow    = 10
)

var (
	// the following functions are mocked by tests as they touch
	// hardware or physical memory.
	loadDataSegmentsFn = cpu.LoadDataSegments
	stackPointerFn     = cpu.StackPointer
	initFramesFn       = (*pmm.BitmapAllocator).Init
	markAvailableFn    = (*pmm.BitmapAllocator).MarkRegionAvailable
	initPagingFn       = (*vmm.VMM).Init
	printMemoryMapFn   = (*pmm.BitmapAllocator).PrintMemoryMap

	errSequencerDone     = &kernel.Error{Module: "boot", Kind: kernel.InvalidArgument, Message: "boot sequence has already completed"}
	errStackOutOfWindow  = &kernel.Error{Module: "boot", Kind: kernel.ConfigurationError, Message: "stack pointer lies outside the kernel stack window"}
	errNoAllocatableMem  = &kernel.Error{Module: "boot", Kind: kernel.ConfigurationError, Message: "memory does not extend past the reserved low region"}
	errNoAvailableFrames = &kernel.Error{Module: "boot", Kind: kernel.ResourceExhausted, Message: "no frames could be opened for allocation"}
	errBitmapHitsStack   = &kernel.Error{Module: "boot", Kind: kernel.ConfigurationError, Message: "kernel image and frame bitmap overlap the boot stack"}
)

// Display is the output device used for the boot summary.
type Display interface {
	io.Writer

	// SetCursor moves the output position to column x of row y.
	SetCursor(x, y uint16)
}

// Collaborators provides the device initialization steps that the boot
// sequence delegates to drivers.
type Collaborators interface {
	// ClockInit programs the system timer.
	ClockInit() *kernel.Error

	// ScreenInit prepares the display and prints the boot banner.
	ScreenInit() *kernel.Error

	// CPUInit configures the interrupt controllers.
	CPUInit() *kernel.Error

	// CMOSInit reads the real time clock.
	CMOSInit() *kernel.Error

	// ShellInit starts the shell with the given prompt.
	ShellInit(prompt string) *kernel.Error

	// Display returns the device that receives the boot summary.
	Display() Display
}

// InitError describes a failed boot stage.
type InitError struct {
	Stage Stage
	Cause *kernel.Error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return e.Stage.String() + " init error: " + e.Cause.Message
}

// HaltFn is invoked with the failing stage. On hardware it never returns.
type HaltFn func(err *InitError)

// Kernel holds the memory managers brought up by the boot sequence. It is
// handed to later subsystems explicitly.
type Kernel struct {
	Info bootinfo.Info

	// Frames is the physical frame allocator.
	Frames pmm.BitmapAllocator

	// Memory owns the kernel page directory.
	Memory vmm.VMM

	// tableEnd is the first physical address past the frame bitmap.
	tableEnd uintptr
}

// Sequencer runs the boot stages in order and halts on the first failure.
type Sequencer struct {
	kernel *Kernel
	collab Collaborators
	haltFn HaltFn

	state State
	stage Stage

	// failure is kept inside the sequencer so that reporting a stage
	// error does not need the heap.
	failure InitError
}

// NewSequencer returns a sequencer that initializes k using the supplied
// collaborators and reports failures to haltFn.
func NewSequencer(k *Kernel, collab Collaborators, haltFn HaltFn) Sequencer {
	return Sequencer{kernel: k, collab: collab, haltFn: haltFn}
}

// State returns the current sequencer state.
func (seq *Sequencer) State() State {
	return seq.state
}

// Stage returns the stage that is running or, once the sequencer reaches a
// terminal state, the last stage that ran.
func (seq *Sequencer) Stage() Stage {
	return seq.stage
}

// Run executes every boot stage for the machine described by info. If a stage
// fails, Run invokes the halt function and returns the stage error. Calling
// Run on a sequencer that already reached a terminal state returns
// errSequencerDone without side effects.
func (seq *Sequencer) Run(info bootinfo.Info) *kernel.Error {
	if seq.state != StateRunning {
		return errSequencerDone
	}

	seq.kernel.Info = info

	for seq.stage = StageBootstrap; seq.stage < stageCount; seq.stage++ {
		if err := seq.runStage(seq.stage); err != nil {
			seq.state = StateHalted
			seq.failure = InitError{Stage: seq.stage, Cause: err}
			seq.haltFn(&seq.failure)
			return err
		}
	}

	seq.stage = StageShellInit
	seq.state = StateReady
	seq.printSummary()
	return nil
}

func (seq *Sequencer) runStage(stage Stage) *kernel.Error {
	k := seq.kernel

	switch stage {
	case StageBootstrap:
		loadDataSegmentsFn(cpu.KernelDataSelector)
		if sp := stackPointerFn(); sp <= KernelStackTop-vmm.BootStackSize || sp > KernelStackTop {
			return errStackOutOfWindow
		}
		return seq.collab.ClockInit()
	case StageScreen:
		return seq.collab.ScreenInit()
	case StageCPUInit:
		return seq.collab.CPUInit()
	case StageMemoryInit:
		return seq.initMemory()
	case StagePagingInit:
		k.Memory = vmm.New(&k.Frames)
		return initPagingFn(&k.Memory, k.Info.MemorySizeKB, k.tableEnd)
	case StageClockDriver:
		return seq.collab.CMOSInit()
	default:
		return seq.collab.ShellInit(ShellPrompt)
	}
}

// initMemory sets up the frame allocator with its bitmap right after the
// kernel image and opens all memory above LowReservedEnd.
func (seq *Sequencer) initMemory() *kernel.Error {
	k := seq.kernel

	if err := k.Info.Validate(); err != nil {
		return err
	}

	if uint64(k.Info.KernelEnd())+pmm.BitmapSize(k.Info.MemorySizeKB) > uint64(bootStackPhys) {
		return errBitmapHitsStack
	}

	tableEnd, err := initFramesFn(&k.Frames, k.Info.MemorySizeKB, k.Info.KernelEnd())
	if err != nil {
		return err
	}
	k.tableEnd = tableEnd

	memEnd := k.Info.MemoryEnd()
	if memEnd <= uint64(LowReservedEnd) {
		return errNoAllocatableMem
	}

	opened, err := markAvailableFn(&k.Frames, LowReservedEnd, uintptr(memEnd-uint64(LowReservedEnd)))
	switch {
	case err != nil:
		return err
	case opened == 0:
		return errNoAvailableFrames
	}

	kfmt.Printf("[boot] %d of %d frames available\n", opened, k.Frames.TotalFrames())
	printMemoryMapFn(&k.Frames, kfmt.GetOutputSink())
	return nil
}

// printSummary writes the memory and kernel image details at a fixed screen
// position.
func (seq *Sequencer) printSummary() {
	info := seq.kernel.Info
	display := seq.collab.Display()

	display.SetCursor(diagColumn, diagRow)
	kfmt.Fprintf(display, "Memory size: %dKb\n", info.MemorySizeKB)
	display.SetCursor(diagColumn, diagRow+1)
	kfmt.Fprintf(display, "Kernel size: %dKb\n", info.KernelSizeKB)
	display.SetCursor(diagColumn, diagRow+2)
	kfmt.Fprintf(display, "Kernel loc: 0x%x\n", info.KernelPhysBase)
}
