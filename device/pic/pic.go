// Package pic drives the pair of cascaded 8259 programmable interrupt
// controllers.
package pic

import (
	"io"

	"kernel32/kernel"
	"kernel32/kernel/cpu"
	"kernel32/kernel/kfmt"
)

const (
	masterCmdPort  = 0x20
	masterDataPort = 0x21
	slaveCmdPort   = 0xa0
	slaveDataPort  = 0xa1

	// icw1Init starts the initialization sequence and announces that
	// ICW4 follows.
	icw1Init = 0x11

	// icw4Mode8086 selects 8086/88 mode.
	icw4Mode8086 = 0x01

	// slaveCascadeLine is the master input line the slave is wired to.
	slaveCascadeLine = 2

	// MasterVectorOffset and SlaveVectorOffset are the interrupt vectors
	// that IRQ 0 and IRQ 8 are remapped to so they do not overlap with the
	// CPU exception vectors.
	MasterVectorOffset = 0x20
	SlaveVectorOffset  = 0x28
)

var (
	// portWriteByteFn is mocked by tests and is automatically inlined by
	// the compiler.
	portWriteByteFn = cpu.PortWriteByte

	errInvalidIRQ = &kernel.Error{Module: "pic", Kind: kernel.InvalidArgument, Message: "irq line out of range"}
)

// Controller represents the master and slave 8259 pair.
type Controller struct {
	masterMask uint8
	slaveMask  uint8
}

// DriverName implements device.Driver.
func (c *Controller) DriverName() string {
	return "pic8259"
}

// DriverVersion implements device.Driver.
func (c *Controller) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit remaps the controllers to MasterVectorOffset and
// SlaveVectorOffset and masks every interrupt line.
func (c *Controller) DriverInit(w io.Writer) *kernel.Error {
	portWriteByteFn(masterCmdPort, icw1Init)
	portWriteByteFn(slaveCmdPort, icw1Init)

	portWriteByteFn(masterDataPort, MasterVectorOffset)
	portWriteByteFn(slaveDataPort, SlaveVectorOffset)

	portWriteByteFn(masterDataPort, 1<<slaveCascadeLine)
	portWriteByteFn(slaveDataPort, slaveCascadeLine)

	portWriteByteFn(masterDataPort, icw4Mode8086)
	portWriteByteFn(slaveDataPort, icw4Mode8086)

	c.masterMask, c.slaveMask = 0xff, 0xff
	c.writeMasks()

	kfmt.Fprintf(w, "remapped irqs to vectors 0x%x and 0x%x\n", uint8(MasterVectorOffset), uint8(SlaveVectorOffset))
	return nil
}

// Mask disables delivery of the specified IRQ line.
func (c *Controller) Mask(irq uint8) *kernel.Error {
	return c.setMask(irq, true)
}

// Unmask enables delivery of the specified IRQ line. Unmasking a slave line
// also unmasks the cascade line on the master.
func (c *Controller) Unmask(irq uint8) *kernel.Error {
	if err := c.setMask(irq, false); err != nil {
		return err
	}

	if irq >= 8 {
		return c.setMask(slaveCascadeLine, false)
	}
	return nil
}

func (c *Controller) setMask(irq uint8, masked bool) *kernel.Error {
	if irq >= 16 {
		return errInvalidIRQ
	}

	mask, bit := &c.masterMask, irq
	if irq >= 8 {
		mask, bit = &c.slaveMask, irq-8
	}

	if masked {
		*mask |= 1 << bit
	} else {
		*mask &^= 1 << bit
	}

	c.writeMasks()
	return nil
}

func (c *Controller) writeMasks() {
	portWriteByteFn(masterDataPort, c.masterMask)
	portWriteByteFn(slaveDataPort, c.slaveMask)
}
