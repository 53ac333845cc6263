package kmain

import (
	"kernel32/device"
	"kernel32/device/cmos"
	"kernel32/device/pic"
	"kernel32/device/pit"
	"kernel32/device/tty"
	"kernel32/device/video/console"
	"kernel32/kernel"
	"kernel32/kernel/boot"
	"kernel32/kernel/bootinfo"
	"kernel32/kernel/cpu"
	"kernel32/kernel/kfmt"
	"kernel32/kernel/shell"
)

// TimerFrequency is the rate, in Hz, that the system timer is programmed
// with.
const TimerFrequency = 100

const logo = `
    ___              ____   ____
   /   |_  _  __    / __ \/ ___/
  / /| |\\//||--\\ / / / /\__ \
 / /_| | \\ |||_||/ /_/ /___/ /
/_/  |_|//\\||__//\____/\____/
`

var (
	// bootInfoRaw is populated by rt0 with the record that the loader
	// pushed on the stack.
	bootInfoRaw [bootinfo.Size]byte

	// Everything set up during boot lives in static storage as there is
	// no heap.
	kern    boot.Kernel
	mach    machine
	seq     boot.Sequencer
	drvName prefixBuf

	// collab provides the boot stage collaborators.
	collab boot.Collaborators = &mach

	// The following functions are mocked by tests.
	panicFn            = kfmt.Panic
	idleFn             = idle
	runSequencerFn     = (*boot.Sequencer).Run
	enableInterruptsFn = cpu.EnableInterrupts
	cpuHaltFn          = cpu.Halt
)

// Kmain is invoked by rt0 once the segment registers and the stack have been
// set up. It runs the boot sequence and then idles waiting for interrupts.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain() {
	info, err := bootinfo.Decode(bootInfoRaw[:])
	if err != nil {
		panicFn(err)
		return
	}

	seq = boot.NewSequencer(&kern, collab, halt)
	if err = runSequencerFn(&seq, info); err != nil {
		return
	}

	idleFn()
}

// halt reports a failed boot stage and stops the machine.
func halt(err *boot.InitError) {
	kfmt.Printf("[boot] %s init error: %s\n", err.Stage.String(), err.Cause.Message)
	panicFn(err.Cause)
}

// idle waits for interrupts forever. Interrupts stay enabled while the CPU
// is halted so that devices can wake it up.
func idle() {
	for {
		enableInterruptsFn()
		cpuHaltFn()
	}
}

// machine binds the boot collaborators to the PC devices.
type machine struct {
	vga   console.Vga
	vt    tty.Vt
	pic   pic.Controller
	timer pit.Timer
	rtc   cmos.Clock
	shell shell.Shell
}

func (m *machine) ClockInit() *kernel.Error {
	m.timer.Hz = TimerFrequency
	return initDriver(&m.timer)
}

func (m *machine) ScreenInit() *kernel.Error {
	m.vga.Init(console.DefaultFramebufferAddr)
	m.vga.EnableCursor()
	m.vt.Init(&m.vga)

	m.vt.SetColor(console.LightBlue, console.White)
	m.vt.Clear()
	m.vt.SetCursor(0, 0)
	kfmt.Fprintf(&m.vt, "%s", logo)

	// Flush anything logged so far and send all further output to the
	// terminal.
	kfmt.SetOutputSink(&m.vt)
	return nil
}

func (m *machine) CPUInit() *kernel.Error {
	return initDriver(&m.pic)
}

func (m *machine) CMOSInit() *kernel.Error {
	return initDriver(&m.rtc)
}

func (m *machine) ShellInit(prompt string) *kernel.Error {
	return m.shell.Init(&m.vt, prompt)
}

func (m *machine) Display() boot.Display {
	return &m.vt
}

// initDriver runs the driver init hook with its output tagged by the driver
// name and version.
func initDriver(drv device.Driver) *kernel.Error {
	major, minor, patch := drv.DriverVersion()

	drvName.reset()
	kfmt.Fprintf(&drvName, "[%s(%d.%d.%d)] ", drv.DriverName(), major, minor, patch)

	w := kfmt.PrefixWriter{Sink: kfmt.GetOutputSink(), Prefix: drvName.bytes()}
	return drv.DriverInit(&w)
}

// prefixBuf is a fixed-size io.Writer; writes past its capacity are
// truncated.
type prefixBuf struct {
	buf [48]byte
	len int
}

func (b *prefixBuf) Write(p []byte) (int, error) {
	n := copy(b.buf[b.len:], p)
	b.len += n
	return len(p), nil
}

func (b *prefixBuf) reset() { b.len = 0 }

func (b *prefixBuf) bytes() []byte { return b.buf[:b.len] }
