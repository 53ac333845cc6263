// Package pmm implements the physical memory manager: a bitmap frame
// allocator covering all of physical memory plus a bump allocator used while
// the paging structures are bootstrapped.
package pmm

import (
	"math/bits"
	"unsafe"

	"kernel32/kernel"
	"kernel32/kernel/kfmt"
	"kernel32/kernel/mm"
)

// maxPhysMemory is the size of the physical address space reachable without
// PAE.
const maxPhysMemory = uint64(4 * mm.Gb)

var (
	// bitmapPtrFn returns a pointer to the physical address where the
	// bitmap lives. It is used by tests to redirect the bitmap to a Go
	// buffer and is automatically inlined by the compiler.
	bitmapPtrFn = func(physAddr uintptr) unsafe.Pointer {
		return unsafe.Pointer(physAddr)
	}

	// ErrOutOfMemory is returned by AllocFrame when no frame is free.
	ErrOutOfMemory = &kernel.Error{Module: "pmm", Kind: kernel.ResourceExhausted, Message: "out of memory"}

	// ErrDoubleFree is returned by FreeFrame when the frame is already free.
	ErrDoubleFree = &kernel.Error{Module: "pmm", Kind: kernel.DoubleFree, Message: "frame is already free"}

	errZeroMemory         = &kernel.Error{Module: "pmm", Kind: kernel.ConfigurationError, Message: "reported memory size is zero"}
	errMemoryTooSmall     = &kernel.Error{Module: "pmm", Kind: kernel.ConfigurationError, Message: "reported memory size is smaller than a frame"}
	errMemoryTooLarge     = &kernel.Error{Module: "pmm", Kind: kernel.ConfigurationError, Message: "reported memory size exceeds the 32-bit physical address space"}
	errBitmapOutOfRange   = &kernel.Error{Module: "pmm", Kind: kernel.ConfigurationError, Message: "frame bitmap extends past the end of physical memory"}
	errAlreadyInitialized = &kernel.Error{Module: "pmm", Kind: kernel.ConfigurationError, Message: "allocator is already initialized"}
	errFrameNotManaged    = &kernel.Error{Module: "pmm", Kind: kernel.InvalidArgument, Message: "frame is not part of an available region"}
	errTooManyRegions     = &kernel.Error{Module: "pmm", Kind: kernel.ResourceExhausted, Message: "available region table is full"}
)

// BitmapAllocator tracks the state of every physical frame with a single
// bit: 1 means used, 0 means free. The bitmap itself lives in physical
// memory right after the kernel image and is never handed out.
//
// A freshly initialized allocator has no free frames; memory becomes
// allocatable only after the caller opens it with MarkRegionAvailable.
type BitmapAllocator struct {
	bitmap []uint8

	// memoryEnd is the reported memory size in bytes. It is kept as a
	// uint64 as a 4G machine overflows a 32-bit uintptr.
	memoryEnd uint64

	totalFrames uint32
	freeCount   uint32

	// doubleFrees counts rejected FreeFrame calls for already free frames.
	doubleFrees uint32

	// searchHint is a bitmap index such that all bitmap bytes before it
	// are fully used.
	searchHint int

	// bitmapStart and bitmapEnd describe the frames occupied by the
	// bitmap (end is exclusive).
	bitmapStart, bitmapEnd mm.Frame

	available spanSet
}

// Init sizes the frame bitmap for memorySizeKB of physical memory and places
// it at tableLocation. All frames start out as used. Init returns the first
// physical address past the bitmap; callers must treat it as the next free
// address for any structures they place after the bitmap.
func (alloc *BitmapAllocator) Init(memorySizeKB uint32, tableLocation uintptr) (uintptr, *kernel.Error) {
	if alloc.bitmap != nil {
		return 0, errAlreadyInitialized
	}

	if memorySizeKB == 0 {
		return 0, errZeroMemory
	}

	memoryEnd := uint64(memorySizeKB) * uint64(mm.Kb)
	if memoryEnd > maxPhysMemory {
		return 0, errMemoryTooLarge
	}

	totalFrames := memoryEnd >> mm.PageShift
	if totalFrames == 0 {
		return 0, errMemoryTooSmall
	}

	// The returned table end must be representable as a 32-bit address.
	bitmapSize := BitmapSize(memorySizeKB)
	if tableEnd := uint64(tableLocation) + bitmapSize; tableEnd > memoryEnd || tableEnd >= maxPhysMemory {
		return 0, errBitmapOutOfRange
	}

	alloc.memoryEnd = memoryEnd
	alloc.totalFrames = uint32(totalFrames)
	alloc.freeCount = 0
	alloc.doubleFrees = 0
	alloc.searchHint = 0
	alloc.available = spanSet{}

	tableEnd := tableLocation + uintptr(bitmapSize)
	alloc.bitmapStart = mm.FrameFromAddress(tableLocation)
	alloc.bitmapEnd = mm.FrameFromAddress(mm.AlignUp(tableEnd, mm.PageSize))

	bitmapAddr := bitmapPtrFn(tableLocation)
	alloc.bitmap = unsafe.Slice((*uint8)(bitmapAddr), bitmapSize)
	kernel.Memset(uintptr(bitmapAddr), 0xff, uintptr(bitmapSize))

	return tableEnd, nil
}

// BitmapSize returns the number of bytes that Init reserves for the frame
// bitmap of a machine with memorySizeKB of physical memory.
func BitmapSize(memorySizeKB uint32) uint64 {
	totalFrames := (uint64(memorySizeKB) * uint64(mm.Kb)) >> mm.PageShift
	return (totalFrames + 7) >> 3
}

// MarkRegionAvailable flags every frame that lies entirely inside
// [base, base+length) as free and returns the number of frames that changed
// state. Frames only partially covered by the range, frames past the end of
// physical memory and frames holding the bitmap remain used.
func (alloc *BitmapAllocator) MarkRegionAvailable(base, length uintptr) (uint32, *kernel.Error) {
	start := mm.AlignUp(uint64(base), uint64(mm.PageSize))
	end := mm.AlignDown(uint64(base)+uint64(length), uint64(mm.PageSize))
	if limit := uint64(alloc.totalFrames) << mm.PageShift; end > limit {
		end = limit
	}

	if start >= end {
		return 0, nil
	}

	startFrame, endFrame := mm.Frame(start>>mm.PageShift), mm.Frame(end>>mm.PageShift)
	if !alloc.available.add(startFrame, endFrame) {
		return 0, errTooManyRegions
	}

	var opened uint32
	for frame := startFrame; frame < endFrame; frame++ {
		if alloc.inBitmap(frame) || !alloc.isUsed(frame) {
			continue
		}

		alloc.clear(frame)
		opened++
	}

	return opened, nil
}

// AllocFrame reserves the lowest numbered free frame. If no frame is free it
// returns ErrOutOfMemory and leaves the bitmap untouched.
func (alloc *BitmapAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	if alloc.freeCount == 0 {
		return mm.InvalidFrame, ErrOutOfMemory
	}

	for index := alloc.searchHint; index < len(alloc.bitmap); index++ {
		if alloc.bitmap[index] == 0xff {
			continue
		}

		bit := bits.TrailingZeros8(^alloc.bitmap[index])
		alloc.bitmap[index] |= 1 << bit
		alloc.freeCount--
		alloc.searchHint = index

		return mm.Frame(index<<3 + bit), nil
	}

	return mm.InvalidFrame, ErrOutOfMemory
}

// FreeFrame returns a frame to the pool of free frames. Freeing a frame that
// is already free is reported as ErrDoubleFree and does not change the free
// frame count.
func (alloc *BitmapAllocator) FreeFrame(frame mm.Frame) *kernel.Error {
	if !alloc.managed(frame) {
		return errFrameNotManaged
	}

	if !alloc.isUsed(frame) {
		alloc.doubleFrees++
		kfmt.Printf("[pmm] double free of frame at 0x%x\n", frame.Address())
		return ErrDoubleFree
	}

	alloc.clear(frame)
	return nil
}

// IsFree returns true if frame is managed by the allocator and currently
// free.
func (alloc *BitmapAllocator) IsFree(frame mm.Frame) bool {
	return frame < mm.Frame(alloc.totalFrames) && !alloc.isUsed(frame)
}

// TotalFrames returns the number of frames that fit in physical memory.
func (alloc *BitmapAllocator) TotalFrames() uint32 {
	return alloc.totalFrames
}

// FreeFrameCount returns the number of frames that can be allocated.
func (alloc *BitmapAllocator) FreeFrameCount() uint32 {
	return alloc.freeCount
}

// DoubleFrees returns the number of FreeFrame calls rejected with
// ErrDoubleFree.
func (alloc *BitmapAllocator) DoubleFrees() uint32 {
	return alloc.doubleFrees
}

// BitmapRange returns the physical address range [start, end) occupied by
// the bitmap frames.
func (alloc *BitmapAllocator) BitmapRange() (uintptr, uintptr) {
	return alloc.bitmapStart.Address(), alloc.bitmapEnd.Address()
}

// managed returns true if frame may be released through FreeFrame.
func (alloc *BitmapAllocator) managed(frame mm.Frame) bool {
	return frame < mm.Frame(alloc.totalFrames) &&
		!alloc.inBitmap(frame) &&
		alloc.available.contains(frame)
}

func (alloc *BitmapAllocator) inBitmap(frame mm.Frame) bool {
	return frame >= alloc.bitmapStart && frame < alloc.bitmapEnd
}

func (alloc *BitmapAllocator) isUsed(frame mm.Frame) bool {
	return alloc.bitmap[frame>>3]&(1<<(frame&7)) != 0
}

// clear flags a used frame as free and keeps the counters in sync.
func (alloc *BitmapAllocator) clear(frame mm.Frame) {
	index := int(frame >> 3)
	alloc.bitmap[index] &^= 1 << (frame & 7)
	alloc.freeCount++

	if index < alloc.searchHint {
		alloc.searchHint = index
	}
}
