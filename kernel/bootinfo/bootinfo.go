// Package bootinfo decodes the boot record that the loader leaves for the
// kernel entry point.
package bootinfo

import (
	"encoding/binary"

	"kernel32/kernel"
)

// Size is the length in bytes of the boot record as laid out by the loader.
const Size = 12

var (
	errShortRecord      = &kernel.Error{Module: "bootinfo", Kind: kernel.ConfigurationError, Message: "boot record is truncated"}
	errNoMemory         = &kernel.Error{Module: "bootinfo", Kind: kernel.ConfigurationError, Message: "boot record reports zero memory"}
	errKernelOverflow   = &kernel.Error{Module: "bootinfo", Kind: kernel.ConfigurationError, Message: "kernel image extent overflows the address space"}
	errKernelPastMemEnd = &kernel.Error{Module: "bootinfo", Kind: kernel.ConfigurationError, Message: "kernel image extends past the end of memory"}
)

// Info describes the machine and the loaded kernel image. The loader stores
// the fields as consecutive little-endian 32-bit words in declaration order.
type Info struct {
	// Total physical memory in KiB.
	MemorySizeKB uint32

	// Size of the loaded kernel image in KiB.
	KernelSizeKB uint32

	// Physical address where the kernel image starts.
	KernelPhysBase uint32
}

// Decode parses a boot record.
func Decode(record []byte) (Info, *kernel.Error) {
	if len(record) < Size {
		return Info{}, errShortRecord
	}

	return Info{
		MemorySizeKB:   binary.LittleEndian.Uint32(record[0:4]),
		KernelSizeKB:   binary.LittleEndian.Uint32(record[4:8]),
		KernelPhysBase: binary.LittleEndian.Uint32(record[8:12]),
	}, nil
}

// Validate checks that the record describes a usable machine: non-zero
// memory and a kernel image that fits inside it.
func (info Info) Validate() *kernel.Error {
	if info.MemorySizeKB == 0 {
		return errNoMemory
	}

	kernelEnd := uint64(info.KernelPhysBase) + uint64(info.KernelSizeKB)*1024
	if kernelEnd > 1<<32 {
		return errKernelOverflow
	}

	if kernelEnd > uint64(info.MemorySizeKB)*1024 {
		return errKernelPastMemEnd
	}

	return nil
}

// KernelEnd returns the first physical address past the kernel image.
func (info Info) KernelEnd() uintptr {
	return uintptr(info.KernelPhysBase) + uintptr(info.KernelSizeKB)*1024
}

// MemoryEnd returns the size of physical memory in bytes.
func (info Info) MemoryEnd() uint64 {
	return uint64(info.MemorySizeKB) * 1024
}
