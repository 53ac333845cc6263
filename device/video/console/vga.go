package console

import (
	"unsafe"

	"kernel32/kernel/cpu"
)

const (
	// DefaultFramebufferAddr is the VGA text buffer at physical 0xb8000
	// as seen through the kernel's higher-half mapping.
	DefaultFramebufferAddr = uintptr(0xc00b8000)

	vgaWidth  = 80
	vgaHeight = 25

	clearChar = byte(' ')

	// CRT controller ports used to move the hardware cursor.
	crtcIndexPort     = 0x3d4
	crtcDataPort      = 0x3d5
	crtcCursorLocHigh = 0x0e
	crtcCursorLocLow  = 0x0f
)

var (
	// portWriteByteFn is mocked by tests and is automatically inlined by
	// the compiler.
	portWriteByteFn = cpu.PortWriteByte
)

// Vga implements an 80x25 EGA-compatible text console. Each screen cell is a
// 16-bit value holding the character in the low byte and its color
// attribute in the high byte.
type Vga struct {
	width  uint16
	height uint16

	fb []uint16

	// cursorEnabled is set once the CRT controller may be programmed.
	cursorEnabled bool
}

// Init sets up the console to render into the text buffer at fbAddr.
func (cons *Vga) Init(fbAddr uintptr) {
	cons.width = vgaWidth
	cons.height = vgaHeight

	if cons.fb != nil {
		return
	}

	cons.fb = unsafe.Slice((*uint16)(unsafe.Pointer(fbAddr)), int(cons.width)*int(cons.height))
}

// Dimensions returns the console width and height in characters.
func (cons *Vga) Dimensions() (uint16, uint16) {
	return cons.width, cons.height
}

// Clear fills the specified rectangular region with blanks using attr.
func (cons *Vga) Clear(x, y, width, height uint16, attr Attr) {
	var (
		clr                  = uint16(attr)<<8 | uint16(clearChar)
		rowOffset, colOffset uint16
	)

	// clip rectangle
	if x >= cons.width {
		x = cons.width
	}
	if y >= cons.height {
		y = cons.height
	}

	if x+width > cons.width {
		width = cons.width - x
	}
	if y+height > cons.height {
		height = cons.height - y
	}

	rowOffset = (y * cons.width) + x
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			cons.fb[colOffset] = clr
		}
	}
}

// Scroll a particular number of lines to the specified direction. The
// caller is responsible for clearing the lines that were scrolled in.
func (cons *Vga) Scroll(dir ScrollDir, lines uint16) {
	if lines == 0 || lines > cons.height {
		return
	}

	offset := lines * cons.width

	switch dir {
	case Up:
		copy(cons.fb, cons.fb[offset:])
	case Down:
		copy(cons.fb[offset:], cons.fb[:len(cons.fb)-int(offset)])
	}
}

// Write a char to the specified location. Off-screen coordinates are
// ignored.
func (cons *Vga) Write(ch byte, attr Attr, x, y uint16) {
	if x >= cons.width || y >= cons.height {
		return
	}

	cons.fb[(y*cons.width)+x] = (uint16(attr) << 8) | uint16(ch)
}

// EnableCursor lets SetCursor program the hardware cursor.
func (cons *Vga) EnableCursor() {
	cons.cursorEnabled = true
}

// SetCursor moves the blinking hardware cursor to the specified location. It
// has no effect until EnableCursor is called.
func (cons *Vga) SetCursor(x, y uint16) {
	if !cons.cursorEnabled || x >= cons.width || y >= cons.height {
		return
	}

	pos := y*cons.width + x
	portWriteByteFn(crtcIndexPort, crtcCursorLocLow)
	portWriteByteFn(crtcDataPort, uint8(pos))
	portWriteByteFn(crtcIndexPort, crtcCursorLocHigh)
	portWriteByteFn(crtcDataPort, uint8(pos>>8))
}
