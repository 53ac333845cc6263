package vmm

import (
	"unsafe"

	"kernel32/kernel"
	"kernel32/kernel/cpu"
	"kernel32/kernel/mm"
)

var (
	// ptePtrFn returns a pointer to the supplied table or entry address.
	// It is used by tests to redirect table accesses to Go buffers. When
	// compiling the kernel this function will be automatically inlined.
	ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
		return unsafe.Pointer(entryAddr)
	}

	// the following functions are mocked by tests as they fault if
	// called in user-mode.
	activePDTFn     = cpu.ActivePDT
	switchPDTFn     = cpu.SwitchPDT
	enablePagingFn  = cpu.EnablePaging
	flushTLBEntryFn = cpu.FlushTLBEntry
)

// PageDirectoryTable describes the top-most table of the two-level paging
// scheme.
type PageDirectoryTable struct {
	pdtFrame mm.Frame

	// active is set once the directory has been loaded into CR3. From
	// that point on the tables are reached through the recursive mapping
	// instead of by physical address.
	active bool
}

// init clears the directory frame and installs the recursive entry. It must
// be called while the frame is reachable by its physical address.
func (pdt *PageDirectoryTable) init(pdtFrame mm.Frame) {
	pdt.pdtFrame = pdtFrame
	pdt.active = false

	table := (*pageTable)(ptePtrFn(pdtFrame.Address()))
	*table = pageTable{}
	table[recursiveEntryIndex].SetFrame(pdtFrame)
	table[recursiveEntryIndex].SetFlags(FlagPresent | FlagRW)
}

// Frame returns the physical frame that holds the directory.
func (pdt PageDirectoryTable) Frame() mm.Frame {
	return pdt.pdtFrame
}

// Activate loads this directory into CR3 which also flushes the TLB.
func (pdt *PageDirectoryTable) Activate() {
	switchPDTFn(pdt.pdtFrame.Address())
	pdt.active = true
}

// directoryAddr returns the address through which the directory entries
// are currently reachable.
func (pdt *PageDirectoryTable) directoryAddr() uintptr {
	if pdt.active {
		return pdtVirtualAddr
	}
	return pdt.pdtFrame.Address()
}

// tableAddr returns the address through which the page table referenced by
// the directory entry at pdeIndex is currently reachable.
func (pdt *PageDirectoryTable) tableAddr(pdeIndex uintptr, pde pageTableEntry) uintptr {
	if pdt.active {
		return tablesVirtualBase + pdeIndex<<mm.PageShift
	}
	return pde.Frame().Address()
}

// entry returns a pointer to the entry at index in the table at tableAddr.
func entry(tableAddr, index uintptr) *pageTableEntry {
	return (*pageTableEntry)(ptePtrFn(tableAddr + index<<entryShift))
}

// pageTableWalker is a function that can be passed to walk. It receives the
// current paging level (0 for the directory, 1 for the page table) and the
// entry for that level. If the function returns false the walk is aborted.
type pageTableWalker func(level uint8, pte *pageTableEntry) bool

// walk performs a page table walk for the given virtual address, calling
// walkFn with the directory entry and then the page table entry. walkFn
// may populate the directory entry before returning; the page table is
// located after walkFn returns.
func (pdt *PageDirectoryTable) walk(virtAddr uintptr, walkFn pageTableWalker) {
	pdeIndex := virtAddr >> pdeShift
	pde := entry(pdt.directoryAddr(), pdeIndex)
	if !walkFn(0, pde) {
		return
	}

	pteIndex := (virtAddr >> mm.PageShift) & (entriesPerTable - 1)
	walkFn(1, entry(pdt.tableAddr(pdeIndex, *pde), pteIndex))
}

// pteForAddress returns the page table entry that maps a virtual address.
func (pdt *PageDirectoryTable) pteForAddress(virtAddr uintptr) (*pageTableEntry, *kernel.Error) {
	var (
		err   *kernel.Error
		found *pageTableEntry
	)

	pdt.walk(virtAddr, func(level uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			err = ErrInvalidMapping
			return false
		}

		if level == 0 && pte.HasFlags(FlagHugePage) {
			err = errNoHugePageSupport
			return false
		}

		found = pte
		return true
	})

	if err != nil {
		return nil, err
	}
	return found, nil
}

// PageOffset returns the offset within the page specified by a virtual
// address.
func PageOffset(virtAddr uintptr) uintptr {
	return virtAddr & (mm.PageSize - 1)
}
