package model

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Bit offsets of each channel inside a packed GRB word. The LED reads green
// first, so green sits in the most significant byte.
const (
	GREEN_OFFSET uint8 = 0x10
	RED_OFFSET   uint8 = 0x08
	BLUE_OFFSET  uint8 = 0x0
)

// Color is a single 8-bit-per-channel pixel value.
type Color struct {
	R uint8
	G uint8
	B uint8
}

func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

func setcolor(c uint32, n uint8, off uint8) uint32 {
	var val uint32 = uint32(n) << off
	var mask uint32 = 0xFF << off
	return (c & (^mask)) | val
}

func getcolor(c uint32, off uint8) uint8 {
	var mask uint32 = 0xFF << off
	return uint8((c & mask) >> off)
}

// GRB packs the color into the 24-bit word sent on the wire.
//
//	G        R        B
//	23    16 15     8 7      0
func (c Color) GRB() uint32 {
	var v uint32
	v = setcolor(v, c.G, GREEN_OFFSET)
	v = setcolor(v, c.R, RED_OFFSET)
	v = setcolor(v, c.B, BLUE_OFFSET)
	return v
}

// FromGRB unpacks a word produced by GRB. Bits above 23 are ignored.
func FromGRB(v uint32) Color {
	return Color{
		R: getcolor(v, RED_OFFSET),
		G: getcolor(v, GREEN_OFFSET),
		B: getcolor(v, BLUE_OFFSET),
	}
}

// Bytes returns the color in request order (R, G, B).
func (c Color) Bytes() []byte {
	return []byte{c.R, c.G, c.B}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex accepts "#rrggbb" or "#rgb".
func ParseHex(s string) (Color, error) {
	cf, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := cf.RGB255()
	return Color{R: r, G: g, B: b}, nil
}
