package pmm

import (
	"kernel32/kernel"
	"kernel32/kernel/mm"
)

var (
	errBootMemOutOfMemory = &kernel.Error{Module: "boot_mem_alloc", Kind: kernel.ResourceExhausted, Message: "out of memory"}
	errBootMemNoFree      = &kernel.Error{Module: "boot_mem_alloc", Kind: kernel.InvalidArgument, Message: "boot memory allocator does not support freeing frames"}
)

// BootMemAllocator implements a rudimentary frame allocator used while the
// kernel builds its initial page tables. It hands out consecutive frames from
// a window of memory that is already reachable through the boot mappings.
//
// Frames handed out by BootMemAllocator cannot be freed; once paging is
// enabled the frames it handed out stay reserved for the lifetime of the
// kernel.
type BootMemAllocator struct {
	// allocCount tracks the total number of allocated frames.
	allocCount uint32

	// nextFrame is the frame returned by the next AllocFrame call.
	nextFrame mm.Frame

	// endFrame is the first frame past the allocation window.
	endFrame mm.Frame
}

// Init sets up the allocator to return frames from [start, limit). The start
// address is rounded up and the limit rounded down to a frame boundary.
func (alloc *BootMemAllocator) Init(start, limit uintptr) {
	alloc.allocCount = 0
	alloc.nextFrame = mm.FrameFromAddress(mm.AlignUp(start, mm.PageSize))
	alloc.endFrame = mm.FrameFromAddress(mm.AlignDown(limit, mm.PageSize))
}

// AllocFrame reserves the next frame in the allocation window.
func (alloc *BootMemAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	if alloc.nextFrame >= alloc.endFrame {
		return mm.InvalidFrame, errBootMemOutOfMemory
	}

	frame := alloc.nextFrame
	alloc.nextFrame++
	alloc.allocCount++
	return frame, nil
}

// FreeFrame always fails.
func (alloc *BootMemAllocator) FreeFrame(_ mm.Frame) *kernel.Error {
	return errBootMemNoFree
}

// AllocCount returns the number of frames handed out so far.
func (alloc *BootMemAllocator) AllocCount() uint32 {
	return alloc.allocCount
}

// End returns the first physical address past the last allocated frame.
func (alloc *BootMemAllocator) End() uintptr {
	return alloc.nextFrame.Address()
}
