package tty

import (
	"testing"
	"unsafe"

	"kernel32/device/video/console"
)

func newTestVt() (*Vt, []uint16) {
	fb := make([]uint16, 80*25)

	var cons console.Vga
	cons.Init(uintptr(unsafe.Pointer(&fb[0])))

	var vt Vt
	vt.Init(&cons)

	return &vt, fb
}

func TestVtSetCursor(t *testing.T) {
	specs := []struct {
		inX, inY   uint16
		expX, expY uint16
	}{
		{20, 20, 20, 20},
		{100, 20, 79, 20},
		{10, 200, 10, 24},
		{100, 100, 79, 24},
	}

	vt, _ := newTestVt()

	if w, h := vt.Dimensions(); w != 80 || h != 25 {
		t.Fatalf("expected dimensions to be 80x25; got %dx%d", w, h)
	}

	for specIndex, spec := range specs {
		vt.SetCursor(spec.inX, spec.inY)
		if x, y := vt.Position(); x != spec.expX || y != spec.expY {
			t.Errorf("[spec %d] expected setting position to (%d, %d) to update the position to (%d, %d); got (%d, %d)", specIndex, spec.inX, spec.inY, spec.expX, spec.expY, x, y)
		}
	}
}

func TestVtWrite(t *testing.T) {
	vt, fb := newTestVt()

	vt.Clear()
	vt.SetCursor(0, 1)
	vt.Write([]byte("12\n\t3\n4\r567\b8"))

	// Tab spanning rows
	vt.SetCursor(78, 4)
	vt.Write([]byte("\t9"))

	// Trigger a scroll
	vt.SetCursor(79, 24)
	vt.Write([]byte{'!'})

	// Everything was scrolled up by one row
	specs := []struct {
		x, y    uint16
		expChar byte
	}{
		{0, 0, '1'},
		{1, 0, '2'},
		// tabs
		{0, 1, ' '},
		{3, 1, ' '},
		{4, 1, '3'},
		// tab reaching the end of the row
		{78, 3, ' '},
		{79, 3, ' '},
		{0, 4, '9'},
		//
		{0, 2, '5'},
		{1, 2, '6'},
		{2, 2, '8'}, // overwritten after BS
		{79, 23, '!'},
	}

	for specIndex, spec := range specs {
		ch := byte(fb[(spec.y*80)+spec.x] & 0xFF)
		if ch != spec.expChar {
			t.Errorf("[spec %d] expected char at (%d, %d) to be %c; got %c", specIndex, spec.x, spec.y, spec.expChar, ch)
		}
	}

	if x, y := vt.Position(); x != 0 || y != 24 {
		t.Errorf("expected cursor at (0, 24) after wrapping on the last line; got (%d, %d)", x, y)
	}

	// The line scrolled in is blank
	for x := uint16(0); x < 80; x++ {
		if ch := byte(fb[24*80+x] & 0xff); ch != ' ' {
			t.Fatalf("expected last row to be cleared after scrolling; got %c at column %d", ch, x)
		}
	}
}

func TestVtColors(t *testing.T) {
	vt, fb := newTestVt()

	vt.SetColor(console.LightBlue, console.White)
	vt.Clear()

	exp := uint16(console.MakeAttr(console.White, console.LightBlue))<<8 | ' '
	for i, cell := range fb {
		if cell != exp {
			t.Fatalf("expected cell %d to be 0x%x after clear; got 0x%x", i, exp, cell)
		}
	}

	vt.Write([]byte("A"))
	if exp := uint16(0x9f)<<8 | 'A'; fb[0] != exp {
		t.Fatalf("expected first cell to be 0x%x; got 0x%x", exp, fb[0])
	}

	if n, err := vt.Write([]byte("hello")); n != 5 || err != nil {
		t.Fatalf("expected Write to report 5 bytes and no error; got %d, %v", n, err)
	}
}
