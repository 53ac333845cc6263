// Package pit drives channel 0 of the 8253/8254 programmable interval timer.
package pit

import (
	"io"

	"kernel32/kernel"
	"kernel32/kernel/cpu"
	"kernel32/kernel/kfmt"
)

const (
	// BaseFrequency is the input clock of the timer in Hz.
	BaseFrequency = 1193182

	// MinFrequency and MaxFrequency bound the rates that channel 0 can be
	// programmed with using a 16-bit divisor.
	MinFrequency = BaseFrequency/0xffff + 1
	MaxFrequency = BaseFrequency

	channel0DataPort = 0x40
	commandPort      = 0x43

	// cmdChannel0RateGen selects channel 0, lobyte/hibyte access and
	// mode 3 (square wave generator).
	cmdChannel0RateGen = 0x36
)

var (
	// portWriteByteFn is mocked by tests and is automatically inlined by
	// the compiler.
	portWriteByteFn = cpu.PortWriteByte

	errInvalidFrequency = &kernel.Error{Module: "pit", Kind: kernel.ConfigurationError, Message: "requested timer frequency is out of range"}
)

// Timer is the system timer.
type Timer struct {
	// Hz is the requested interrupt rate.
	Hz uint32

	divisor uint16
}

// DriverName implements device.Driver.
func (t *Timer) DriverName() string {
	return "pit8254"
}

// DriverVersion implements device.Driver.
func (t *Timer) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit programs channel 0 to fire at the rate in Hz.
func (t *Timer) DriverInit(w io.Writer) *kernel.Error {
	if t.Hz < MinFrequency || t.Hz > MaxFrequency {
		return errInvalidFrequency
	}

	t.divisor = uint16(BaseFrequency / t.Hz)

	portWriteByteFn(commandPort, cmdChannel0RateGen)
	portWriteByteFn(channel0DataPort, uint8(t.divisor))
	portWriteByteFn(channel0DataPort, uint8(t.divisor>>8))

	kfmt.Fprintf(w, "channel 0 at %dHz (divisor %d)\n", t.Frequency(), t.divisor)
	return nil
}

// Frequency returns the effective interrupt rate after rounding the divisor,
// or 0 if the timer has not been programmed.
func (t *Timer) Frequency() uint32 {
	if t.divisor == 0 {
		return 0
	}
	return BaseFrequency / uint32(t.divisor)
}
