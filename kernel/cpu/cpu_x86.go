//go:build 386 || amd64

// Package cpu is the only place where the kernel touches processor control
// registers, segment registers and I/O ports. All functions without a body
// are implemented in assembly.
package cpu

// KernelDataSelector is the GDT selector for the ring 0 data segment
// installed by the bootloader.
const KernelDataSelector = uint16(0x10)

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt. The interrupt
// flag is left untouched.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT sets the root page table directory to point to the specified
// physical address and flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address of the currently active page table.
func ActivePDT() uintptr

// EnablePaging sets the PG and PE bits in CR0. The page directory must be
// loaded with SwitchPDT first.
func EnablePaging()

// LoadDataSegments loads selector into the DS, ES and SS segment registers.
// FS and GS are left alone as they are set up by rt0 for thread-local storage.
func LoadDataSegments(selector uint16)

// StackPointer returns the current value of the stack pointer register.
func StackPointer() uintptr

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8
