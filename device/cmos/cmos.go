// Package cmos reads the battery-backed real time clock.
package cmos

import (
	"io"

	"kernel32/kernel"
	"kernel32/kernel/cpu"
	"kernel32/kernel/kfmt"
)

const (
	selectPort = 0x70
	dataPort   = 0x71

	// Setting bit 7 of the register selector keeps NMIs masked while
	// the RTC is being accessed.
	nmiDisable = 1 << 7

	regSeconds = 0x00
	regMinutes = 0x02
	regHours   = 0x04
	regDay     = 0x07
	regMonth   = 0x08
	regYear    = 0x09
	regStatusA = 0x0a
	regStatusB = 0x0b
	regCentury = 0x32

	statusAUpdating = 1 << 7
	statusB24Hour   = 1 << 1
	statusBBinary   = 1 << 2
	hourPMFlag      = 1 << 7

	// maxUpdateWaitSpins bounds the busy-wait for an RTC update to finish.
	// An update cycle takes at most ~2ms so this is very generous.
	maxUpdateWaitSpins = 1 << 20

	// maxReadAttempts bounds the number of back-to-back reads performed
	// while trying to obtain two identical snapshots.
	maxReadAttempts = 8
)

var (
	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte

	errUpdateTimeout = &kernel.Error{Module: "cmos", Kind: kernel.HardwareError, Message: "timed out waiting for RTC update to complete"}
	errUnstableClock = &kernel.Error{Module: "cmos", Kind: kernel.HardwareError, Message: "RTC did not return a stable reading"}
	errInvalidTime   = &kernel.Error{Module: "cmos", Kind: kernel.HardwareError, Message: "RTC returned an invalid date/time"}
)

// Time is a calendar time as reported by the RTC.
type Time struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// valid reports whether every field of t lies within its calendar range.
func (t Time) valid() bool {
	return t.Month >= 1 && t.Month <= 12 &&
		t.Day >= 1 && t.Day <= daysIn(t.Month, t.Year) &&
		t.Hour < 24 && t.Minute < 60 && t.Second < 60
}

func daysIn(month uint8, year uint16) uint8 {
	switch month {
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// Clock is the CMOS real time clock driver.
type Clock struct {
	bootTime Time
}

// DriverName implements device.Driver.
func (c *Clock) DriverName() string {
	return "cmos_rtc"
}

// DriverVersion implements device.Driver.
func (c *Clock) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit reads the current time from the RTC and records it as the boot
// time.
func (c *Clock) DriverInit(w io.Writer) *kernel.Error {
	t, err := Read()
	if err != nil {
		return err
	}

	c.bootTime = t
	kfmt.Fprintf(w, "boot time: %4d-%2d-%2d %2d:%2d:%2d\n", t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
	return nil
}

// BootTime returns the time captured by DriverInit.
func (c *Clock) BootTime() Time {
	return c.bootTime
}

// Read returns the current RTC time. As the RTC may tick while its registers
// are being read, the registers are sampled until two consecutive readings
// agree.
func Read() (Time, *kernel.Error) {
	var (
		prev, cur Time
		err       *kernel.Error
	)

	if prev, err = readOnce(); err != nil {
		return Time{}, err
	}

	for attempt := 0; attempt < maxReadAttempts; attempt++ {
		if cur, err = readOnce(); err != nil {
			return Time{}, err
		}

		if cur == prev {
			if !cur.valid() {
				return Time{}, errInvalidTime
			}
			return cur, nil
		}
		prev = cur
	}

	return Time{}, errUnstableClock
}

func readOnce() (Time, *kernel.Error) {
	if err := waitForUpdate(); err != nil {
		return Time{}, err
	}

	var (
		sec, minute, hour = readReg(regSeconds), readReg(regMinutes), readReg(regHours)
		day, month, year  = readReg(regDay), readReg(regMonth), readReg(regYear)
		century, statusB  = readReg(regCentury), readReg(regStatusB)
		pm                bool
	)

	if statusB&statusB24Hour == 0 {
		pm = hour&hourPMFlag != 0
		hour &^= hourPMFlag
	}

	if statusB&statusBBinary == 0 {
		sec, minute, hour = fromBCD(sec), fromBCD(minute), fromBCD(hour)
		day, month, year, century = fromBCD(day), fromBCD(month), fromBCD(year), fromBCD(century)
	}

	// 12-hour mode reports midnight and noon as 12.
	if statusB&statusB24Hour == 0 {
		if hour == 12 {
			hour = 0
		}
		if pm {
			hour += 12
		}
	}

	return Time{
		Year:   uint16(century)*100 + uint16(year),
		Month:  month,
		Day:    day,
		Hour:   hour,
		Minute: minute,
		Second: sec,
	}, nil
}

func waitForUpdate() *kernel.Error {
	for spin := 0; spin < maxUpdateWaitSpins; spin++ {
		if readReg(regStatusA)&statusAUpdating == 0 {
			return nil
		}
	}
	return errUpdateTimeout
}

func readReg(reg uint8) uint8 {
	portWriteByteFn(selectPort, nmiDisable|reg)
	return portReadByteFn(dataPort)
}

// fromBCD converts a packed BCD byte to its binary value.
func fromBCD(v uint8) uint8 {
	return (v & 0x0f) + (v>>4)*10
}
