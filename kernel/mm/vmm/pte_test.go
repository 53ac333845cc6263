package vmm

import (
	"testing"

	"kernel32/kernel/mm"
)

func TestPageTableEntryFlags(t *testing.T) {
	var (
		pte   pageTableEntry
		flag1 = PageTableEntryFlag(1 << 10)
		flag2 = PageTableEntryFlag(1 << 11)
	)

	if pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return false")
	}

	pte.SetFlags(flag1 | flag2)

	if !pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return true")
	}

	if !pte.HasFlags(flag1 | flag2) {
		t.Fatalf("expected HasFlags to return true")
	}

	pte.ClearFlags(flag1)

	if !pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return true")
	}

	if pte.HasFlags(flag1 | flag2) {
		t.Fatalf("expected HasFlags to return false")
	}

	if exp, got := flag2, pte.Flags(); got != exp {
		t.Fatalf("expected Flags() to return 0x%x; got 0x%x", exp, got)
	}

	pte.ClearFlags(flag1 | flag2)

	if pte.HasAnyFlag(flag1 | flag2) {
		t.Fatalf("expected HasAnyFlags to return false")
	}
}

func TestPageTableEntryFrameEncoding(t *testing.T) {
	var (
		pte       pageTableEntry
		physFrame = mm.Frame(0xfffff)
	)

	pte.SetFlags(FlagPresent | FlagRW | FlagDirty)
	pte.SetFrame(physFrame)

	if got := pte.Frame(); got != physFrame {
		t.Fatalf("expected pte.Frame() to return %v; got %v", physFrame, got)
	}

	if exp := pageTableEntry(0xfffff043); pte != exp {
		t.Fatalf("expected encoded entry to be 0x%x; got 0x%x", exp, pte)
	}

	pte.SetFrame(mm.Frame(0x123))
	if exp := pageTableEntry(0x00123043); pte != exp {
		t.Fatalf("expected SetFrame to preserve flags; got 0x%x", pte)
	}
}

func TestRecursiveAddresses(t *testing.T) {
	specs := []struct {
		got, exp uintptr
	}{
		{tablesVirtualBase, 0xffc00000},
		{pdtVirtualAddr, 0xfffff000},
		{kernelDirectoryStart, 768},
		{KernelDirectoryEntryCount, 255},
		{PageOffset(0xc0001abc), 0xabc},
	}

	for specIndex, spec := range specs {
		if spec.got != spec.exp {
			t.Errorf("[spec %d] expected 0x%x; got 0x%x", specIndex, spec.exp, spec.got)
		}
	}
}
