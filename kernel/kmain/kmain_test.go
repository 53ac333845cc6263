package kmain

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"

	"kernel32/kernel"
	"kernel32/kernel/boot"
	"kernel32/kernel/bootinfo"
	"kernel32/kernel/kfmt"
	"kernel32/kernel/mm/vmm"
)

type fakeDriver struct {
	initErr *kernel.Error
}

func (d *fakeDriver) DriverName() string { return "fake" }

func (d *fakeDriver) DriverVersion() (uint16, uint16, uint16) { return 1, 2, 3 }

func (d *fakeDriver) DriverInit(w io.Writer) *kernel.Error {
	kfmt.Fprintf(w, "line one\nline two\n")
	return d.initErr
}

func TestInitDriver(t *testing.T) {
	defer kfmt.SetOutputSink(nil)

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)

	expErr := &kernel.Error{Module: "test", Kind: kernel.HardwareError, Message: "no device"}
	drv := &fakeDriver{initErr: expErr}

	if err := initDriver(drv); err != expErr {
		t.Fatalf("expected error %v; got %v", expErr, err)
	}

	exp := "[fake(1.2.3)] line one\n[fake(1.2.3)] line two\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected output %q; got %q", exp, got)
	}
}

func TestPrefixBuf(t *testing.T) {
	var b prefixBuf

	long := bytes.Repeat([]byte{'x'}, len(b.buf)+10)
	if n, err := b.Write(long); n != len(long) || err != nil {
		t.Fatalf("expected Write to report %d bytes and no error; got %d, %v", len(long), n, err)
	}

	if got := len(b.bytes()); got != len(b.buf) {
		t.Fatalf("expected contents to be truncated to %d bytes; got %d", len(b.buf), got)
	}

	b.reset()
	_, _ = b.Write([]byte("abc"))
	if got := string(b.bytes()); got != "abc" {
		t.Fatalf("expected contents %q after reset; got %q", "abc", got)
	}
}

func TestHalt(t *testing.T) {
	defer func(origPanic func(interface{})) {
		panicFn = origPanic
		kfmt.SetOutputSink(nil)
	}(panicFn)

	var (
		buf      bytes.Buffer
		panicArg interface{}
	)
	kfmt.SetOutputSink(&buf)
	panicFn = func(e interface{}) { panicArg = e }

	cause := &kernel.Error{Module: "vmm", Kind: kernel.ResourceExhausted, Message: "out of memory"}
	halt(&boot.InitError{Stage: boot.StagePagingInit, Cause: cause})

	if panicArg != cause {
		t.Fatalf("expected panic to be invoked with the stage cause; got %v", panicArg)
	}

	if exp, got := "[boot] paging init error: out of memory\n", buf.String(); got != exp {
		t.Fatalf("expected output %q; got %q", exp, got)
	}
}

func TestKmain(t *testing.T) {
	defer func(origRun func(*boot.Sequencer, bootinfo.Info) *kernel.Error, origIdle func(), origPanic func(interface{}), origRaw [bootinfo.Size]byte) {
		runSequencerFn = origRun
		idleFn = origIdle
		panicFn = origPanic
		bootInfoRaw = origRaw
	}(runSequencerFn, idleFn, panicFn, bootInfoRaw)

	binary.LittleEndian.PutUint32(bootInfoRaw[0:], 16384)
	binary.LittleEndian.PutUint32(bootInfoRaw[4:], 512)
	binary.LittleEndian.PutUint32(bootInfoRaw[8:], 0x100000)

	expInfo := bootinfo.Info{MemorySizeKB: 16384, KernelSizeKB: 512, KernelPhysBase: 0x100000}
	errStage := &kernel.Error{Module: "test", Kind: kernel.HardwareError, Message: "stage failed"}

	specs := []struct {
		runErr  *kernel.Error
		expIdle int
	}{
		{nil, 1},
		{errStage, 0},
	}

	for specIndex, spec := range specs {
		var (
			runs, idles, panics int
			gotInfo             bootinfo.Info
			gotState            boot.State
		)

		runSequencerFn = func(s *boot.Sequencer, info bootinfo.Info) *kernel.Error {
			runs++
			gotInfo, gotState = info, s.State()
			return spec.runErr
		}
		idleFn = func() { idles++ }
		panicFn = func(_ interface{}) { panics++ }

		Kmain()

		if runs != 1 {
			t.Errorf("[spec %d] expected the boot sequence to run once; ran %d times", specIndex, runs)
		}

		if gotInfo != expInfo {
			t.Errorf("[spec %d] expected the sequencer to receive %+v; got %+v", specIndex, expInfo, gotInfo)
		}

		if gotState != boot.StateRunning {
			t.Errorf("[spec %d] expected a fresh sequencer; got state %s", specIndex, gotState)
		}

		if idles != spec.expIdle {
			t.Errorf("[spec %d] expected idle to be entered %d times; got %d", specIndex, spec.expIdle, idles)
		}

		if panics != 0 {
			t.Errorf("[spec %d] expected Kmain not to panic; got %d panics", specIndex, panics)
		}
	}
}

// errIdleStop unwinds the otherwise endless idle loop.
type errIdleStop struct{}

func TestIdle(t *testing.T) {
	defer func(origEnable, origHalt func()) {
		enableInterruptsFn = origEnable
		cpuHaltFn = origHalt
	}(enableInterruptsFn, cpuHaltFn)

	var events []string
	enableInterruptsFn = func() { events = append(events, "sti") }
	cpuHaltFn = func() {
		events = append(events, "hlt")
		if len(events) == 6 {
			panic(errIdleStop{})
		}
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(errIdleStop); !ok {
					panic(r)
				}
			}
		}()
		idle()
	}()

	exp := []string{"sti", "hlt", "sti", "hlt", "sti", "hlt"}
	if len(events) != len(exp) {
		t.Fatalf("expected events %v; got %v", exp, events)
	}
	for i := range exp {
		if events[i] != exp[i] {
			t.Fatalf("expected interrupts to be enabled before every halt; got %v", events)
		}
	}
}

func TestRt0StackBounds(t *testing.T) {
	src, err := os.ReadFile("rt0_386.s")
	if err != nil {
		t.Fatal(err)
	}

	defines := make(map[string]uintptr)
	for _, line := range strings.Split(string(src), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[0] != "#define" {
			continue
		}
		if v, err := strconv.ParseUint(fields[2], 0, 32); err == nil {
			defines[fields[1]] = uintptr(v)
		}
	}

	specs := []struct {
		name string
		exp  uintptr
	}{
		{"BOOT_STACK_TOP", boot.KernelStackTop},
		{"BOOT_STACK_LO", boot.KernelStackTop - vmm.BootStackSize},
	}

	for _, spec := range specs {
		got, ok := defines[spec.name]
		if !ok {
			t.Errorf("expected rt0 to define %s", spec.name)
			continue
		}
		if got != spec.exp {
			t.Errorf("expected rt0 %s to be 0x%x; got 0x%x", spec.name, spec.exp, got)
		}
	}

	if guard := defines["BOOT_STACK_GUARD"]; guard <= defines["BOOT_STACK_LO"] || guard >= defines["BOOT_STACK_TOP"] {
		t.Errorf("expected the stack guard 0x%x to lie inside the boot stack", guard)
	}
}
