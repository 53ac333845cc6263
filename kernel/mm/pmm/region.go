package pmm

import (
	"io"

	"kernel32/kernel/kfmt"
	"kernel32/kernel/mm"
)

// maxAvailableSpans bounds the number of disjoint available regions the
// allocator can track. The table has a fixed size as it is populated before
// the Go allocator is usable.
const maxAvailableSpans = 32

// RegionKind describes whether a memory region can be allocated from.
type RegionKind uint8

const (
	// RegionReserved marks memory that is never handed out: the interrupt
	// vector table, BIOS areas, the kernel image, the frame bitmap and any
	// range that was not explicitly opened.
	RegionReserved RegionKind = iota

	// RegionAvailable marks memory opened with MarkRegionAvailable.
	RegionAvailable
)

// String implements fmt.Stringer.
func (k RegionKind) String() string {
	if k == RegionAvailable {
		return "available"
	}
	return "reserved"
}

// MemoryRegion describes a contiguous range of physical memory.
type MemoryRegion struct {
	Base   uintptr
	Length mm.Size
	Kind   RegionKind
}

// RegionVisitor is invoked for each region by VisitRegions. Returning false
// stops the visit.
type RegionVisitor func(region MemoryRegion) bool

// VisitRegions invokes visitor for each memory region in ascending address
// order. The visited regions never overlap and together cover the reported
// physical memory exactly once.
func (alloc *BitmapAllocator) VisitRegions(visitor RegionVisitor) {
	var cursor uint64

	emit := func(end uint64, kind RegionKind) bool {
		if end <= cursor {
			return true
		}
		region := MemoryRegion{Base: uintptr(cursor), Length: mm.Size(end - cursor), Kind: kind}
		cursor = end
		return visitor(region)
	}

	for i := 0; i < alloc.available.count; i++ {
		cur := alloc.available.spans[i]

		// Split the span around the bitmap frames
		pieces := [2]span{cur, {}}
		if cur.start < alloc.bitmapEnd && alloc.bitmapStart < cur.end {
			pieces[0] = spanOf(cur.start, alloc.bitmapStart)
			pieces[1] = spanOf(alloc.bitmapEnd, cur.end)
		}

		for _, piece := range pieces {
			if piece.start >= piece.end {
				continue
			}

			if !emit(uint64(piece.start.Address()), RegionReserved) ||
				!emit(uint64(piece.end.Address()), RegionAvailable) {
				return
			}
		}
	}

	emit(alloc.memoryEnd, RegionReserved)
}

// PrintMemoryMap writes the memory region layout and frame counters to w.
func (alloc *BitmapAllocator) PrintMemoryMap(w io.Writer) {
	kfmt.Fprintf(w, "system memory map:\n")
	alloc.VisitRegions(func(region MemoryRegion) bool {
		kfmt.Fprintf(w, "  [0x%8x - 0x%8x], size: %10d, type: %s\n",
			region.Base,
			uint64(region.Base)+uint64(region.Length),
			uint64(region.Length),
			region.Kind.String(),
		)
		return true
	})

	bitmapStart, bitmapEnd := alloc.BitmapRange()
	kfmt.Fprintf(w, "frame bitmap at 0x%x - 0x%x\n", bitmapStart, bitmapEnd)
	kfmt.Fprintf(w, "total frames: %d, free frames: %d\n", alloc.totalFrames, alloc.freeCount)
}

// span is a half-open frame range [start, end).
type span struct {
	start, end mm.Frame
}

func spanOf(start, end mm.Frame) span {
	return span{start: start, end: end}
}

// spanSet is a sorted set of disjoint, non-adjacent frame spans.
type spanSet struct {
	spans [maxAvailableSpans]span
	count int
}

// add merges [start, end) into the set. It returns false if the set has no
// room for a new disjoint span.
func (set *spanSet) add(start, end mm.Frame) bool {
	// Locate the first span that ends at or after start; any span from
	// there on that begins at or before end overlaps or touches the new one.
	first := 0
	for first < set.count && set.spans[first].end < start {
		first++
	}

	last := first
	for last < set.count && set.spans[last].start <= end {
		if set.spans[last].start < start {
			start = set.spans[last].start
		}
		if set.spans[last].end > end {
			end = set.spans[last].end
		}
		last++
	}

	merged := last - first
	if merged == 0 && set.count == maxAvailableSpans {
		return false
	}

	// Replace spans[first:last] with the merged span
	switch {
	case merged == 0:
		copy(set.spans[first+1:set.count+1], set.spans[first:set.count])
		set.count++
	case merged > 1:
		copy(set.spans[first+1:], set.spans[last:set.count])
		set.count -= merged - 1
	}

	set.spans[first] = span{start: start, end: end}
	return true
}

func (set *spanSet) contains(frame mm.Frame) bool {
	for i := 0; i < set.count; i++ {
		if frame < set.spans[i].start {
			return false
		}
		if frame < set.spans[i].end {
			return true
		}
	}
	return false
}
