package vmm

import "kernel32/kernel/mm"

const (
	// entriesPerTable is the number of 32-bit entries in a page directory
	// or page table.
	entriesPerTable = 1024

	// entryShift is equal to log2(size of a table entry).
	entryShift = 2

	// pdeShift is the shift required to extract the page directory index
	// from a virtual address.
	pdeShift = 22

	// ptePhysPageMask extracts the physical frame address from an entry.
	ptePhysPageMask = uint32(0xfffff000)

	// recursiveEntryIndex is the page directory slot that points back to
	// the page directory itself.
	recursiveEntryIndex = entriesPerTable - 1

	// tablesVirtualBase is the virtual address where the recursive entry
	// exposes every page table once paging is enabled. The table for
	// directory slot i lives at tablesVirtualBase + i*PageSize.
	tablesVirtualBase = uintptr(recursiveEntryIndex) << pdeShift

	// pdtVirtualAddr is the address at which the recursive entry exposes
	// the page directory itself.
	pdtVirtualAddr = tablesVirtualBase + uintptr(recursiveEntryIndex)<<mm.PageShift

	// KernelVirtualBase is the virtual address where the kernel is linked.
	KernelVirtualBase = uintptr(0xc0000000)

	// BootWindowSize is the size of the low physical memory window that is
	// both identity mapped and mapped at KernelVirtualBase while booting.
	BootWindowSize = uintptr(4 * mm.Mb)

	// BootStackSize is the size of the kernel stack that rt0 places at the
	// top of the boot window. Init never carves page tables out of it.
	BootStackSize = uintptr(16 * mm.Kb)

	// bootStackBase is the physical address of the lowest boot stack byte.
	bootStackBase = BootWindowSize - BootStackSize

	// kernelDirectoryStart is the first page directory slot that belongs
	// to the kernel half of the address space.
	kernelDirectoryStart = KernelVirtualBase >> pdeShift

	// KernelDirectoryEntryCount is the number of page directory entries
	// spanning the kernel half of the address space, excluding the
	// recursive slot.
	KernelDirectoryEntryCount = recursiveEntryIndex - kernelDirectoryStart
)

const (
	// FlagPresent is set when the page is available in memory.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW is set if the page can be written to.
	FlagRW

	// FlagUserAccessible is set if user-mode code can access this page. If
	// not set only kernel code can access this page.
	FlagUserAccessible

	// FlagWriteThroughCaching implies write-through caching when set and
	// write-back caching if cleared.
	FlagWriteThroughCaching

	// FlagDoNotCache prevents this page from being cached if set.
	FlagDoNotCache

	// FlagAccessed is set by the CPU when this page is accessed.
	FlagAccessed

	// FlagDirty is set by the CPU when this page is modified.
	FlagDirty

	// FlagHugePage is set on directory entries that map a 4Mb page
	// instead of pointing to a page table.
	FlagHugePage

	// FlagGlobal prevents the TLB from flushing the cached translation for
	// this page when CR3 is reloaded.
	FlagGlobal
)
