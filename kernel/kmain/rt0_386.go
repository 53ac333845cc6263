//go:build 386

package kmain

// Rt0 is the kernel entry point the loader jumps to with the boot record
// pushed on the stack. It never returns.
func Rt0()
