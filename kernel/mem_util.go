package kernel

import "unsafe"

// Memset fills size bytes starting at addr with value. After the first byte
// is written, the filled prefix is doubled on every step so a region of n
// bytes needs only log2(n) copy calls.
func Memset(addr uintptr, value byte, size uintptr) {
	if size == 0 {
		return
	}

	region := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	region[0] = value
	for filled := uintptr(1); filled < size; filled <<= 1 {
		copy(region[filled:], region[:filled])
	}
}
