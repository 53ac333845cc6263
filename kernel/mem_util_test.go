package kernel

import (
	"testing"
	"unsafe"
)

func TestMemset(t *testing.T) {
	// A zero size must not touch the target address.
	Memset(0, 0xff, 0)

	specs := []struct {
		size  int
		value byte
	}{
		{1, 0xff},
		{3, 0x00},
		{4096, 0xff},
		{4096 + 7, 0xaa},
		{128 * 1024, 0x00},
	}

	for specIndex, spec := range specs {
		// Pad the buffer so that writes past size can be detected.
		buf := make([]byte, spec.size+8)
		for i := range buf {
			buf[i] = ^spec.value
		}

		Memset(uintptr(unsafe.Pointer(&buf[0])), spec.value, uintptr(spec.size))

		for i, got := range buf {
			exp := spec.value
			if i >= spec.size {
				exp = ^spec.value
			}
			if got != exp {
				t.Errorf("[spec %d] expected byte %d to be 0x%x; got 0x%x", specIndex, i, exp, got)
				break
			}
		}
	}
}
