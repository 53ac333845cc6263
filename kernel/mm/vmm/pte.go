package vmm

import "kernel32/kernel/mm"

// PageTableEntryFlag describes a flag that can be applied to a page table or
// page directory entry.
type PageTableEntryFlag uint32

// pageTableEntry encodes a physical frame address in its top 20 bits and a
// set of flags in the remaining bits. Page directory entries share the same
// layout.
type pageTableEntry uint32

// pageTable is a page directory or page table as laid out in memory.
type pageTable [entriesPerTable]pageTableEntry

// HasFlags returns true if this entry has all the input flags set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uint32(pte) & uint32(flags)) == uint32(flags)
}

// HasAnyFlag returns true if this entry has at least one of the input flags set.
func (pte pageTableEntry) HasAnyFlag(flags PageTableEntryFlag) bool {
	return (uint32(pte) & uint32(flags)) != 0
}

// Flags returns the flag bits of this entry.
func (pte pageTableEntry) Flags() PageTableEntryFlag {
	return PageTableEntryFlag(uint32(pte) &^ ptePhysPageMask)
}

// SetFlags sets the input list of flags to the page table entry.
func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uint32(*pte) | uint32(flags))
}

// ClearFlags unsets the input list of flags from the page table entry.
func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uint32(*pte) &^ uint32(flags))
}

// Frame returns the physical frame that this entry points to.
func (pte pageTableEntry) Frame() mm.Frame {
	return mm.Frame((uint32(pte) & ptePhysPageMask) >> mm.PageShift)
}

// SetFrame updates the entry to point to the given physical frame.
func (pte *pageTableEntry) SetFrame(frame mm.Frame) {
	*pte = (pageTableEntry)((uint32(*pte) &^ ptePhysPageMask) | uint32(frame.Address()))
}
