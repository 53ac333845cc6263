// Package mm defines the types shared by the physical and virtual memory
// managers.
package mm

import (
	"kernel32/kernel"

	"golang.org/x/exp/constraints"
)

const (
	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a page number (shift right by PageShift)
	// and vice-versa.
	PageShift = uintptr(12)

	// PageSize defines the system's page size in bytes.
	PageSize = uintptr(1 << PageShift)
)

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// Frame describes a physical memory page index.
type Frame uintptr

// InvalidFrame is returned by page allocators when they fail to reserve the
// requested frame.
const InvalidFrame = ^Frame(0)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical memory address pointed to by this Frame.
func (f Frame) Address() uintptr {
	return uintptr(f) << PageShift
}

// FrameFromAddress returns the Frame that contains the given physical
// address. Addresses that are not page-aligned are rounded down.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame(physAddr >> PageShift)
}

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual memory address pointed to by this Page.
func (p Page) Address() uintptr {
	return uintptr(p) << PageShift
}

// PageFromAddress returns the Page that contains the given virtual address.
// Addresses that are not page-aligned are rounded down.
func PageFromAddress(virtAddr uintptr) Page {
	return Page(virtAddr >> PageShift)
}

// FrameAllocator is implemented by physical frame allocators. The VMM uses it
// to obtain frames for page tables and later subsystems use it to obtain and
// release memory.
type FrameAllocator interface {
	// AllocFrame reserves a free frame.
	AllocFrame() (Frame, *kernel.Error)

	// FreeFrame releases a frame previously returned by AllocFrame.
	FreeFrame(Frame) *kernel.Error
}

// AlignUp rounds v up to the next multiple of align, which must be a power
// of 2.
func AlignUp[I constraints.Integer](v, align I) I {
	return (v + align - 1) &^ (align - 1)
}

// AlignDown rounds v down to the previous multiple of align, which must be a
// power of 2.
func AlignDown[I constraints.Integer](v, align I) I {
	return v &^ (align - 1)
}
