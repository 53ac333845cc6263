package pmm

import (
	"testing"

	"kernel32/kernel/mm"
)

func TestBootMemAllocator(t *testing.T) {
	specs := []struct {
		start, limit uintptr
		expFrames    []mm.Frame
	}{
		{0x180200, 0x184000, []mm.Frame{0x181, 0x182, 0x183}},
		{0x181000, 0x183800, []mm.Frame{0x181, 0x182}},
		{0x180001, 0x181000, nil},
		{0x200000, 0x100000, nil},
	}

	for specIndex, spec := range specs {
		var alloc BootMemAllocator
		alloc.Init(spec.start, spec.limit)

		var got []mm.Frame
		for {
			frame, err := alloc.AllocFrame()
			if err != nil {
				if err != errBootMemOutOfMemory {
					t.Fatalf("[spec %d] unexpected error: %v", specIndex, err)
				}
				if frame != mm.InvalidFrame {
					t.Errorf("[spec %d] expected InvalidFrame on exhaustion; got 0x%x", specIndex, frame)
				}
				break
			}
			got = append(got, frame)
		}

		if len(got) != len(spec.expFrames) {
			t.Errorf("[spec %d] expected %d frames; got %v", specIndex, len(spec.expFrames), got)
			continue
		}

		for i := range got {
			if got[i] != spec.expFrames[i] {
				t.Errorf("[spec %d] expected frame %d to be 0x%x; got 0x%x", specIndex, i, spec.expFrames[i], got[i])
			}
		}

		if alloc.AllocCount() != uint32(len(got)) {
			t.Errorf("[spec %d] expected alloc count %d; got %d", specIndex, len(got), alloc.AllocCount())
		}
	}
}

func TestBootMemAllocatorEnd(t *testing.T) {
	var alloc BootMemAllocator
	alloc.Init(0x180200, 0x400000)

	if exp := uintptr(0x181000); alloc.End() != exp {
		t.Fatalf("expected end to be 0x%x; got 0x%x", exp, alloc.End())
	}

	for i := 0; i < 2; i++ {
		if _, err := alloc.AllocFrame(); err != nil {
			t.Fatal(err)
		}
	}

	if exp := uintptr(0x183000); alloc.End() != exp {
		t.Fatalf("expected end to be 0x%x; got 0x%x", exp, alloc.End())
	}

	if err := alloc.FreeFrame(0x181); err != errBootMemNoFree {
		t.Fatalf("expected errBootMemNoFree; got %v", err)
	}

	var _ mm.FrameAllocator = &alloc
}
