// Package console drives the VGA text mode framebuffer.
package console

// Attr defines a color attribute.
type Attr uint16

// The set of colors that can be combined into an attribute.
const (
	Black Attr = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGrey
	Grey
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	LightBrown
	White
)

// MakeAttr combines a foreground and a background color into an attribute.
func MakeAttr(fg, bg Attr) Attr {
	return (bg&0xf)<<4 | (fg & 0xf)
}

// ScrollDir defines a scroll direction.
type ScrollDir uint8

// The supported list of scroll directions for the console Scroll() calls.
const (
	Up ScrollDir = iota
	Down
)
