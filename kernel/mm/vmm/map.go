package vmm

import (
	"kernel32/kernel"
	"kernel32/kernel/mm"
)

var (
	// ErrInvalidMapping is returned when trying to lookup or unmap a
	// virtual address that is not mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Kind: kernel.InvalidArgument, Message: "virtual address does not point to a mapped physical page"}

	// ErrMappingConflict is returned when mapping a page that is already
	// mapped to a different frame.
	ErrMappingConflict = &kernel.Error{Module: "vmm", Kind: kernel.MappingConflict, Message: "page is already mapped to a different frame"}

	errNoHugePageSupport = &kernel.Error{Module: "vmm", Kind: kernel.InvalidArgument, Message: "huge pages are not supported"}
	errRecursiveWindow   = &kernel.Error{Module: "vmm", Kind: kernel.InvalidArgument, Message: "page lies inside the recursive page table window"}
	errPagingDisabled    = &kernel.Error{Module: "vmm", Kind: kernel.ConfigurationError, Message: "paging is not enabled"}
)

// ignoredFlags are set by the CPU and do not take part in mapping
// comparisons.
const ignoredFlags = FlagAccessed | FlagDirty

// Map establishes a mapping between a virtual page and a physical frame in
// the active page directory. Missing page tables are allocated from the
// allocator passed to New.
//
// Mapping a page to the frame it already maps only updates its flags;
// mapping it to a different frame fails with ErrMappingConflict and leaves
// the existing entry untouched.
func (vm *VMM) Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error {
	if !vm.pdt.active {
		return errPagingDisabled
	}
	return vm.mapPage(vm.frames, page, frame, flags)
}

// mapPage installs a mapping using tableAlloc for any missing page table.
func (vm *VMM) mapPage(tableAlloc mm.FrameAllocator, page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error {
	if page.Address() >= tablesVirtualBase {
		return errRecursiveWindow
	}

	var err *kernel.Error
	flags |= FlagPresent

	vm.pdt.walk(page.Address(), func(level uint8, pte *pageTableEntry) bool {
		if level == 1 {
			if pte.HasFlags(FlagPresent) {
				if pte.Frame() != frame {
					err = ErrMappingConflict
					return false
				}

				if pte.Flags()&^ignoredFlags == flags&^ignoredFlags {
					return true
				}
			}

			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(flags)
			if vm.pdt.active {
				flushTLBEntryFn(page.Address())
			}
			return true
		}

		if pte.HasFlags(FlagPresent | FlagHugePage) {
			err = errNoHugePageSupport
			return false
		}

		if pte.HasFlags(FlagPresent) {
			// User pages need the user bit at both levels
			if flags&FlagUserAccessible != 0 {
				pte.SetFlags(FlagUserAccessible)
			}
			return true
		}

		// The page table does not exist yet; allocate a frame for it,
		// hook it into the directory and clear its contents.
		var tableFrame mm.Frame
		if tableFrame, err = tableAlloc.AllocFrame(); err != nil {
			return false
		}

		*pte = 0
		pte.SetFrame(tableFrame)
		pte.SetFlags(FlagPresent | FlagRW | (flags & FlagUserAccessible))

		pdeIndex := page.Address() >> pdeShift
		tableAddr := vm.pdt.tableAddr(pdeIndex, *pte)
		if vm.pdt.active {
			flushTLBEntryFn(tableAddr)
		}

		*(*pageTable)(ptePtrFn(tableAddr)) = pageTable{}
		return true
	})

	return err
}

// MapRegion maps the physical region that starts at frame and spans size
// bytes to consecutive pages starting at page. The size argument is rounded
// up to the nearest page boundary.
func (vm *VMM) MapRegion(page mm.Page, frame mm.Frame, size uintptr, flags PageTableEntryFlag) *kernel.Error {
	pageCount := mm.AlignUp(size, mm.PageSize) >> mm.PageShift
	for ; pageCount > 0; pageCount, page, frame = pageCount-1, page+1, frame+1 {
		if err := vm.Map(page, frame, flags); err != nil {
			return err
		}
	}

	return nil
}

// IdentityMapRegion establishes an identity mapping for the physical region
// which starts at startFrame and spans size bytes. The size argument is
// rounded up to the nearest page boundary. IdentityMapRegion returns the
// Page that corresponds to the region start.
func (vm *VMM) IdentityMapRegion(startFrame mm.Frame, size uintptr, flags PageTableEntryFlag) (mm.Page, *kernel.Error) {
	startPage := mm.Page(startFrame)
	if err := vm.MapRegion(startPage, startFrame, size, flags); err != nil {
		return 0, err
	}

	return startPage, nil
}

// Unmap removes the mapping for page and returns the frame it pointed to.
// The frame itself is not released.
func (vm *VMM) Unmap(page mm.Page) (mm.Frame, *kernel.Error) {
	pte, err := vm.mappedEntry(page)
	if err != nil {
		return mm.InvalidFrame, err
	}

	frame := pte.Frame()
	*pte = 0
	flushTLBEntryFn(page.Address())

	return frame, nil
}

// UnmapAndFree removes the mapping for page and then returns its frame to
// the allocator passed to New. If the allocator rejects the frame, the
// mapping is restored and the allocator error is returned.
func (vm *VMM) UnmapAndFree(page mm.Page) *kernel.Error {
	pte, err := vm.mappedEntry(page)
	if err != nil {
		return err
	}

	saved := *pte
	*pte = 0
	flushTLBEntryFn(page.Address())

	if err = vm.frames.FreeFrame(saved.Frame()); err != nil {
		*pte = saved
		return err
	}

	return nil
}

// mappedEntry returns the page table entry that maps page.
func (vm *VMM) mappedEntry(page mm.Page) (*pageTableEntry, *kernel.Error) {
	if !vm.pdt.active {
		return nil, errPagingDisabled
	}

	if page.Address() >= tablesVirtualBase {
		return nil, errRecursiveWindow
	}

	return vm.pdt.pteForAddress(page.Address())
}

// Translate returns the physical address that corresponds to the supplied
// virtual address or ErrInvalidMapping if the address is not mapped.
func (vm *VMM) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	if !vm.pdt.active {
		return 0, errPagingDisabled
	}

	pte, err := vm.pdt.pteForAddress(virtAddr)
	if err != nil {
		return 0, err
	}

	return pte.Frame().Address() + PageOffset(virtAddr), nil
}
