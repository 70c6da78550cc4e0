package emu

// BlendMode selects the semi-transparency equation (GP0 E1h bits 5-6).
type BlendMode uint8

const (
	BlendAverage  BlendMode = iota // B/2 + F/2
	BlendAdd                       // B + F
	BlendSubtract                  // B - F
	BlendQuarter                   // B + F/4
)

const pixelMaskBit = 0x8000

// ditherTable is indexed [x mod 4][(511 - y) mod 4].
var ditherTable = [4][4]int{
	{-4, 2, -3, 3},
	{0, -2, 1, -1},
	{-3, 3, -4, 2},
	{1, -1, 0, -2},
}

// ClipRect is the inclusive drawing area set by GP0 E3h/E4h.
type ClipRect struct {
	Left, Top, Right, Bottom int
}

// Contains reports whether (x, y) lies inside the rectangle. The
// vertical bounds are accepted in either order.
func (r ClipRect) Contains(x, y int) bool {
	if x < r.Left || x > r.Right {
		return false
	}
	lo, hi := r.Top, r.Bottom
	if lo > hi {
		lo, hi = hi, lo
	}
	return y >= lo && y <= hi
}

// fullClip covers the whole of VRAM.
var fullClip = ClipRect{Left: 0, Top: 0, Right: VRAMWidth - 1, Bottom: VRAMHeight - 1}

// PixelState is the subset of GPU control state consulted for a
// single pixel write.
type PixelState struct {
	Clip      ClipRect
	Dither    bool
	Blend     bool
	Mode      BlendMode
	ForceMask bool
	CheckMask bool
}

// Fragment is a source pixel entering the pipeline. R, G and B are
// 8-bit intensities; Mask is the mask bit carried by the source (a
// texel's bit 15).
type Fragment struct {
	X, Y    int
	R, G, B int
	Mask    bool
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ditherOffset returns the signed dither term for (x, y).
func ditherOffset(x, y int) int {
	return ditherTable[x&3][(511-y)&3]
}

// quantize reduces an 8-bit intensity to 5 bits.
func quantize(c int) int {
	c >>= 3
	return clampInt(c, 0, 31)
}

// blendChannel applies one of the semi-transparency equations to a pair
// of 5-bit channels.
func blendChannel(back, front int, mode BlendMode) int {
	var out int
	switch mode {
	case BlendAverage:
		out = back/2 + front/2
	case BlendAdd:
		out = back + front
	case BlendSubtract:
		out = back - front
	case BlendQuarter:
		out = back + front/4
	}
	return clampInt(out, 0, 31)
}

func unpack555(p uint16) (r, g, b int) {
	return int(p & 0x1F), int(p>>5) & 0x1F, int(p>>10) & 0x1F
}

func pack555(r, g, b int, mask bool) uint16 {
	p := uint16(r) | uint16(g)<<5 | uint16(b)<<10
	if mask {
		p |= pixelMaskBit
	}
	return p
}

// Shade runs a fragment through the pixel pipeline against the current
// destination value dst. It returns the value to store and whether the
// write happens. Shade has no side effects.
func (s *PixelState) Shade(f Fragment, dst uint16) (uint16, bool) {
	r, g, b := f.R, f.G, f.B

	if s.Dither {
		d := ditherOffset(f.X, f.Y)
		r = clampInt(r+d, 0, 255)
		g = clampInt(g+d, 0, 255)
		b = clampInt(b+d, 0, 255)
	}

	r, g, b = quantize(r), quantize(g), quantize(b)

	if s.Blend {
		br, bg, bb := unpack555(dst)
		r = blendChannel(br, r, s.Mode)
		g = blendChannel(bg, g, s.Mode)
		b = blendChannel(bb, b, s.Mode)
	}

	out := pack555(r, g, b, f.Mask || s.ForceMask)

	if !s.Clip.Contains(f.X, f.Y) {
		return dst, false
	}
	if s.CheckMask && dst&pixelMaskBit != 0 {
		return dst, false
	}
	return out, true
}

// transferPixel applies only the mask discipline to a raw 16-bit pixel
// moved by a VRAM transfer command.
func (s *PixelState) transferPixel(p, dst uint16) (uint16, bool) {
	if s.CheckMask && dst&pixelMaskBit != 0 {
		return dst, false
	}
	if s.ForceMask {
		p |= pixelMaskBit
	}
	return p, true
}
