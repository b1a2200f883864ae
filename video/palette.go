package video

// rgb565 packs 5/6/5-bit channels into one uint16, the format FrameBuffer
// stores pixels in.
func rgb565(r, g, b uint8) uint16 {
	return uint16(r&0x1F)<<11 | uint16(g&0x3F)<<5 | uint16(b&0x1F)
}

// GBColor is one of the 4 DMG shades, indexed 0 (lightest) to 3 (darkest)
// matching a BGP/OBP0/OBP1 palette entry's bit pairing.
type GBColor uint8

const (
	ShadeWhite GBColor = iota
	ShadeLightGrey
	ShadeDarkGrey
	ShadeBlack
)

// dmgColorToRGB565 renders a DMG 2-bit shade as a 565 gray ramp.
func dmgColorToRGB565(shade uint8) uint16 {
	switch shade & 0x03 {
	case 0:
		return rgb565(0x1F, 0x3F, 0x1F) // white
	case 1:
		return rgb565(0x15, 0x2A, 0x15) // light grey
	case 2:
		return rgb565(0x0A, 0x15, 0x0A) // dark grey
	default:
		return rgb565(0, 0, 0) // black
	}
}

// cgbColorToRGB565 expands a packed RGB555 CRAM entry (5 bits per channel,
// bit 15 unused) into the framebuffer's RGB565 storage, widening the green
// channel the way most RGB555->RGB565 converters for this hardware do: by
// copying its top bit into the new low bit rather than leaving it
// zero-extended.
func cgbColorToRGB565(rgb555 uint16) uint16 {
	r := uint8(rgb555 & 0x1F)
	g := uint8((rgb555 >> 5) & 0x1F)
	b := uint8((rgb555 >> 10) & 0x1F)
	g6 := g<<1 | (g >> 4)
	return rgb565(r, g6, b)
}
