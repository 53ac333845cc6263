// Package vmm manages the two-level x86 paging structures: it builds the
// kernel page directory during boot, enables paging and maintains page
// mappings afterwards.
package vmm

import (
	"kernel32/kernel"
	"kernel32/kernel/kfmt"
	"kernel32/kernel/mm"
	"kernel32/kernel/mm/pmm"
)

var (
	errZeroMemory          = &kernel.Error{Module: "vmm", Kind: kernel.ConfigurationError, Message: "reported memory size is zero"}
	errFirstFreeOutOfRange = &kernel.Error{Module: "vmm", Kind: kernel.ConfigurationError, Message: "first free address lies outside the boot window"}
	errNoRoomForBootTables = &kernel.Error{Module: "vmm", Kind: kernel.ConfigurationError, Message: "not enough memory below the boot stack for the boot page tables"}
	errAlreadyInitialized  = &kernel.Error{Module: "vmm", Kind: kernel.ConfigurationError, Message: "paging is already enabled"}
	errPDTNotActive        = &kernel.Error{Module: "vmm", Kind: kernel.HardwareError, Message: "page directory was not loaded into CR3"}
)

// VMM owns the kernel page directory.
type VMM struct {
	// frames supplies page tables created after paging is enabled and
	// receives the frames released by UnmapAndFree.
	frames mm.FrameAllocator

	pdt PageDirectoryTable

	// bootAlloc hands out the frames for the page directory and the
	// page tables built by Init.
	bootAlloc pmm.BootMemAllocator
}

// New returns a VMM that allocates runtime page tables from frames.
func New(frames mm.FrameAllocator) VMM {
	return VMM{frames: frames}
}

// Init builds the kernel page directory and enables paging.
//
// The directory and the bootstrap page tables are carved out of the physical
// memory between firstFreePhys and the boot stack at the top of the boot
// window.
// The low BootWindowSize bytes of physical memory (clipped to the memory
// size) are identity mapped and also mapped at KernelVirtualBase.
//
// Init expects the boot window to be reachable by its physical address, as
// set up by the loader. If any step fails, CR3 is left untouched.
func (vm *VMM) Init(memorySizeKB uint32, firstFreePhys uintptr) *kernel.Error {
	if vm.pdt.active {
		return errAlreadyInitialized
	}

	if memorySizeKB == 0 {
		return errZeroMemory
	}

	windowEnd := BootWindowSize
	if memEnd := uint64(memorySizeKB) * uint64(mm.Kb); memEnd < uint64(windowEnd) {
		windowEnd = mm.AlignDown(uintptr(memEnd), mm.PageSize)
	}

	tablesEnd := bootStackBase
	if windowEnd < tablesEnd {
		tablesEnd = windowEnd
	}

	tablesStart := mm.AlignUp(uint64(firstFreePhys), uint64(mm.PageSize))
	if tablesStart >= uint64(tablesEnd) {
		return errFirstFreeOutOfRange
	}

	if tablesStart+uint64(bootTableFrames(windowEnd))<<mm.PageShift > uint64(tablesEnd) {
		return errNoRoomForBootTables
	}

	vm.bootAlloc.Init(firstFreePhys, tablesEnd)

	pdtFrame, err := vm.bootAlloc.AllocFrame()
	if err != nil {
		return err
	}

	vm.pdt.init(pdtFrame)

	windowPages := windowEnd >> mm.PageShift
	kernelPage := mm.PageFromAddress(KernelVirtualBase)
	for index := uintptr(0); index < windowPages; index++ {
		frame := mm.Frame(index)

		if err = vm.mapPage(&vm.bootAlloc, mm.Page(index), frame, FlagPresent|FlagRW); err != nil {
			return err
		}

		if err = vm.mapPage(&vm.bootAlloc, kernelPage+mm.Page(index), frame, FlagPresent|FlagRW); err != nil {
			return err
		}
	}

	vm.pdt.Activate()
	enablePagingFn()

	if activePDTFn() != pdtFrame.Address() {
		vm.pdt.active = false
		return errPDTNotActive
	}

	kfmt.Printf("[vmm] page directory at 0x%x, boot tables: %d frames\n", pdtFrame.Address(), vm.bootAlloc.AllocCount())
	return nil
}

// bootTableFrames returns the number of frames Init needs to map a window of
// windowSize bytes twice: the directory plus one set of tables per mapping.
func bootTableFrames(windowSize uintptr) uintptr {
	tablesPerMapping := (windowSize>>mm.PageShift + entriesPerTable - 1) / entriesPerTable
	return 1 + 2*tablesPerMapping
}

// PagingEnabled returns true once Init has loaded the kernel page directory.
func (vm *VMM) PagingEnabled() bool {
	return vm.pdt.active
}

// DirectoryFrame returns the physical frame holding the page directory.
func (vm *VMM) DirectoryFrame() mm.Frame {
	return vm.pdt.Frame()
}

// BootTablesRange returns the physical range [start, end) holding the page
// directory and the page tables created by Init.
func (vm *VMM) BootTablesRange() (uintptr, uintptr) {
	if vm.bootAlloc.AllocCount() == 0 {
		return 0, 0
	}
	return vm.pdt.Frame().Address(), vm.bootAlloc.End()
}

// KernelDirectoryEntries returns the directory entries that map the kernel
// half of the address space so they can be replicated into other page
// directories. The recursive entry is not included.
func (vm *VMM) KernelDirectoryEntries() [KernelDirectoryEntryCount]uint32 {
	var entries [KernelDirectoryEntryCount]uint32
	if !vm.pdt.active {
		return entries
	}

	dirAddr := vm.pdt.directoryAddr()
	for i := range entries {
		entries[i] = uint32(*entry(dirAddr, kernelDirectoryStart+uintptr(i)))
	}

	return entries
}
