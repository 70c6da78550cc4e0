package emu

import "image"

const (
	VRAMWidth  = 1024
	VRAMHeight = 512

	vramXMask = VRAMWidth - 1
	vramYMask = VRAMHeight - 1
)

// VRAM is the GPU's 1 MiB frame memory, addressed as a 1024x512 grid of
// 16-bit pixels. Pixel layout (bit 0 = LSB):
//
//	0-4    red
//	5-9    green
//	10-14  blue
//	15     mask
//
// Coordinates wrap in both axes.
type VRAM struct {
	pixels [VRAMWidth * VRAMHeight]uint16
}

// NewVRAM returns a zeroed VRAM.
func NewVRAM() *VRAM {
	return &VRAM{}
}

// Load returns the pixel at (x, y).
func (v *VRAM) Load(x, y int) uint16 {
	return v.pixels[(y&vramYMask)*VRAMWidth+(x&vramXMask)]
}

// Store writes the pixel at (x, y). Callers are responsible for mask
// and clip checks; Store is unconditional.
func (v *VRAM) Store(x, y int, p uint16) {
	v.pixels[(y&vramYMask)*VRAMWidth+(x&vramXMask)] = p
}

// Clear zeroes every pixel.
func (v *VRAM) Clear() {
	v.pixels = [VRAMWidth * VRAMHeight]uint16{}
}

// byteAt returns byte n of row y, counting from the halfword at column
// x0. Used by the 24-bit display path, which packs RGB888 triplets
// across halfword boundaries.
func (v *VRAM) byteAt(x0, y, n int) uint8 {
	p := v.Load(x0+n/2, y)
	if n&1 != 0 {
		return uint8(p >> 8)
	}
	return uint8(p)
}

// expand5 widens a 5-bit channel to 8 bits.
func expand5(c uint16) uint8 {
	c &= 0x1F
	return uint8(c<<3 | c>>2)
}

// RenderRGBA converts a w x h region of VRAM starting at (x0, y0) into
// dst at its origin. In 24-bit mode each output pixel consumes three
// bytes of VRAM. Pixels of dst outside the region are cleared.
func (v *VRAM) RenderRGBA(dst *image.RGBA, x0, y0, w, h int, depth24 bool) {
	bounds := dst.Bounds()
	dw, dh := bounds.Dx(), bounds.Dy()
	for y := 0; y < dh; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+dw*4]
		for x := 0; x < dw; x++ {
			o := x * 4
			if x >= w || y >= h {
				row[o], row[o+1], row[o+2], row[o+3] = 0, 0, 0, 0xFF
				continue
			}
			if depth24 {
				row[o] = v.byteAt(x0, y0+y, x*3)
				row[o+1] = v.byteAt(x0, y0+y, x*3+1)
				row[o+2] = v.byteAt(x0, y0+y, x*3+2)
			} else {
				p := v.Load(x0+x, y0+y)
				row[o] = expand5(p)
				row[o+1] = expand5(p >> 5)
				row[o+2] = expand5(p >> 10)
			}
			row[o+3] = 0xFF
		}
	}
}
