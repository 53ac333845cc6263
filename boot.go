package main

import "kernel32/kernel/kmain"

// main is never invoked on hardware; rt0 calls kmain.Kmain directly. It only
// exists so that the Go compiler keeps the kernel code reachable when
// building the kernel object file.
func main() {
	kmain.Kmain()
}
