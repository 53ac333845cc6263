// Package tty implements a text terminal on top of a VGA console.
package tty

import "kernel32/device/video/console"

const (
	defaultFg = console.LightGrey
	defaultBg = console.Black

	tabWidth = 4
)

// Vt implements a simple terminal that processes LF, CR, tab and backspace
// characters. The terminal uses a VGA console for its output and keeps the
// hardware cursor in sync with its own cursor.
type Vt struct {
	// A concrete console type is used as interfaces would require heap
	// allocations this early during boot.
	cons *console.Vga

	width  uint16
	height uint16

	curX    uint16
	curY    uint16
	curAttr console.Attr
}

// Init attaches the terminal to cons and resets its cursor and colors.
func (t *Vt) Init(cons *console.Vga) {
	t.cons = cons
	t.width, t.height = cons.Dimensions()
	t.curX, t.curY = 0, 0
	t.curAttr = console.MakeAttr(defaultFg, defaultBg)
}

// Dimensions returns the terminal width and height in characters.
func (t *Vt) Dimensions() (uint16, uint16) {
	return t.width, t.height
}

// SetColor sets the colors used by subsequent writes and clears.
func (t *Vt) SetColor(bg, fg console.Attr) {
	t.curAttr = console.MakeAttr(fg, bg)
}

// Clear blanks the terminal using the current colors and moves the cursor
// to the top-left corner.
func (t *Vt) Clear() {
	t.cons.Clear(0, 0, t.width, t.height, t.curAttr)
	t.SetCursor(0, 0)
}

// Position returns the current cursor position (x, y).
func (t *Vt) Position() (uint16, uint16) {
	return t.curX, t.curY
}

// SetCursor moves the cursor to (x, y). Out of range coordinates are clipped
// to the terminal dimensions.
func (t *Vt) SetCursor(x, y uint16) {
	if x >= t.width {
		x = t.width - 1
	}

	if y >= t.height {
		y = t.height - 1
	}

	t.curX, t.curY = x, y
	t.cons.SetCursor(x, y)
}

// Write implements io.Writer.
func (t *Vt) Write(data []byte) (int, error) {
	for _, b := range data {
		t.writeByte(b)
	}

	t.cons.SetCursor(t.curX, t.curY)
	return len(data), nil
}

func (t *Vt) writeByte(b byte) {
	switch b {
	case '\r':
		t.cr()
	case '\n':
		t.cr()
		t.lf()
	case '\b':
		if t.curX > 0 {
			t.curX--
		}
	case '\t':
		for next := (t.curX/tabWidth + 1) * tabWidth; t.curX < next && t.curX < t.width; {
			t.put(' ')
			if t.curX == 0 {
				break
			}
		}
	default:
		t.put(b)
	}
}

// put writes a printable character at the cursor and advances the cursor,
// wrapping to the next line at the right edge.
func (t *Vt) put(b byte) {
	t.cons.Write(b, t.curAttr, t.curX, t.curY)
	t.curX++
	if t.curX == t.width {
		t.cr()
		t.lf()
	}
}

// cr resets the x coordinate of the terminal cursor to 0.
func (t *Vt) cr() {
	t.curX = 0
}

// lf advances the y coordinate of the terminal cursor by one line scrolling
// the terminal contents if the end of the last terminal line is reached.
func (t *Vt) lf() {
	if t.curY+1 < t.height {
		t.curY++
		return
	}

	t.cons.Scroll(console.Up, 1)
	t.cons.Clear(0, t.height-1, t.width, 1, t.curAttr)
}
