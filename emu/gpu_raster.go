package emu

// Primitives larger than this are dropped by the GPU.
const (
	maxPrimWidth  = 1023
	maxPrimHeight = 511
)

// vertex is a screen-space vertex with 8-bit color and texture
// coordinates.
type vertex struct {
	x, y    int
	r, g, b int
	u, v    int
}

// texture locates the texture page and CLUT used by a primitive.
type texture struct {
	pageX, pageY int
	clutX, clutY int
	depth        uint8
}

// primitive carries the per-command attributes of a draw.
type primitive struct {
	shaded   bool
	textured bool
	raw      bool
	semi     bool
	dither   bool
	mode     BlendMode
	tex      texture
}

// pixelState builds the pipeline state for p from the current control
// registers.
func (g *GPU) pixelState(p *primitive) PixelState {
	return PixelState{
		Clip:      g.drawArea,
		Dither:    p.dither && g.dither && !g.ditherDisabled,
		Blend:     p.semi,
		Mode:      p.mode,
		ForceMask: g.forceMask,
		CheckMask: g.checkMask,
	}
}

// shadePixel runs one fragment through the pipeline and stores the
// result.
func (g *GPU) shadePixel(s *PixelState, f Fragment) {
	dst := g.vram.Load(f.X, f.Y)
	if out, ok := s.Shade(f, dst); ok {
		g.vram.Store(f.X, f.Y, out)
	}
}

// texel fetches the texel at (u, v) after applying the texture window.
func (g *GPU) texel(t *texture, u, v int) uint16 {
	u &= 0xFF
	v &= 0xFF
	mx, my := int(g.texWindowMaskX), int(g.texWindowMaskY)
	u = u&^(mx*8) | (int(g.texWindowOffX)&mx)*8
	v = v&^(my*8) | (int(g.texWindowOffY)&my)*8

	switch t.depth {
	case 0:
		w := g.vram.Load(t.pageX+u/4, t.pageY+v)
		idx := int(w>>(uint(u&3)*4)) & 0xF
		return g.vram.Load(t.clutX+idx, t.clutY)
	case 1:
		w := g.vram.Load(t.pageX+u/2, t.pageY+v)
		idx := int(w>>(uint(u&1)*8)) & 0xFF
		return g.vram.Load(t.clutX+idx, t.clutY)
	default:
		return g.vram.Load(t.pageX+u, t.pageY+v)
	}
}

// texturedFragment combines a texel with the vertex color. It returns
// false for the fully transparent texel 0x0000. Semi-transparency only
// applies to texels with bit 15 set.
func texturedFragment(p *primitive, texel uint16, f *Fragment, s *PixelState) bool {
	if texel == 0 {
		return false
	}
	tr, tg, tb := unpack555(texel)
	if p.raw {
		f.R, f.G, f.B = tr<<3, tg<<3, tb<<3
	} else {
		f.R = clampInt((tr<<3)*f.R/128, 0, 255)
		f.G = clampInt((tg<<3)*f.G/128, 0, 255)
		f.B = clampInt((tb<<3)*f.B/128, 0, 255)
	}
	f.Mask = texel&pixelMaskBit != 0
	s.Blend = p.semi && f.Mask
	return true
}

// edge is the signed area of (a, b, (px, py)), positive when the point
// is to the right of a->b in screen space.
func edge(a, b vertex, px, py int) int {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// topLeft reports whether a->b is a top or left edge of a positively
// wound triangle. Pixels exactly on other edges are not drawn.
func topLeft(a, b vertex) bool {
	dy := b.y - a.y
	return dy < 0 || (dy == 0 && b.x > a.x)
}

func covered(w int, tl bool) bool {
	return w > 0 || (w == 0 && tl)
}

// drawTriangle rasterizes one triangle with edge functions over its
// bounding box clipped to the drawing area.
func (g *GPU) drawTriangle(v0, v1, v2 vertex, p *primitive) {
	area := edge(v0, v1, v2.x, v2.y)
	if area == 0 {
		return
	}
	if area < 0 {
		v1, v2 = v2, v1
		area = -area
	}

	minX, maxX := min(v0.x, v1.x, v2.x), max(v0.x, v1.x, v2.x)
	minY, maxY := min(v0.y, v1.y, v2.y), max(v0.y, v1.y, v2.y)
	if maxX-minX > maxPrimWidth || maxY-minY > maxPrimHeight {
		return
	}

	clip := g.drawArea
	top, bottom := min(clip.Top, clip.Bottom), max(clip.Top, clip.Bottom)
	minX, maxX = max(minX, clip.Left), min(maxX, clip.Right)
	minY, maxY = max(minY, top), min(maxY, bottom)

	tl0, tl1, tl2 := topLeft(v1, v2), topLeft(v2, v0), topLeft(v0, v1)
	s := g.pixelState(p)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			w0 := edge(v1, v2, x, y)
			w1 := edge(v2, v0, x, y)
			w2 := edge(v0, v1, x, y)
			if !covered(w0, tl0) || !covered(w1, tl1) || !covered(w2, tl2) {
				continue
			}

			f := Fragment{X: x, Y: y, R: v0.r, G: v0.g, B: v0.b}
			if p.shaded {
				f.R = (w0*v0.r + w1*v1.r + w2*v2.r) / area
				f.G = (w0*v0.g + w1*v1.g + w2*v2.g) / area
				f.B = (w0*v0.b + w1*v1.b + w2*v2.b) / area
			}

			ps := s
			if p.textured {
				u := (w0*v0.u + w1*v1.u + w2*v2.u) / area
				v := (w0*v0.v + w1*v1.v + w2*v2.v) / area
				if !texturedFragment(p, g.texel(&p.tex, u, v), &f, &ps) {
					continue
				}
			}
			g.shadePixel(&ps, f)
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// drawLine rasterizes a line with Bresenham's algorithm. Both endpoints
// are drawn; shaded lines interpolate color along the major axis.
func (g *GPU) drawLine(v0, v1 vertex, p *primitive) {
	dx, dy := absInt(v1.x-v0.x), absInt(v1.y-v0.y)
	if dx > maxPrimWidth || dy > maxPrimHeight {
		return
	}

	sx, sy := 1, 1
	if v1.x < v0.x {
		sx = -1
	}
	if v1.y < v0.y {
		sy = -1
	}
	steps := max(dx, dy)
	s := g.pixelState(p)

	x, y := v0.x, v0.y
	e := dx - dy
	for i := 0; ; i++ {
		f := Fragment{X: x, Y: y, R: v0.r, G: v0.g, B: v0.b}
		if p.shaded && steps > 0 {
			f.R = v0.r + (v1.r-v0.r)*i/steps
			f.G = v0.g + (v1.g-v0.g)*i/steps
			f.B = v0.b + (v1.b-v0.b)*i/steps
		}
		g.shadePixel(&s, f)

		if x == v1.x && y == v1.y {
			break
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x += sx
		}
		if e2 < dx {
			e += dx
			y += sy
		}
	}
}

// drawRect fills an axis-aligned rectangle with its top-left corner at
// v. Texture coordinates step one texel per pixel, mirrored by the
// GP0(E1h) flip bits. Rectangles are never dithered.
func (g *GPU) drawRect(v vertex, w, h int, p *primitive) {
	if w <= 0 || h <= 0 {
		return
	}
	s := g.pixelState(p)
	s.Dither = false

	du, dv := 1, 1
	if g.rectFlipX {
		du = -1
	}
	if g.rectFlipY {
		dv = -1
	}

	for y := 0; y < h; y++ {
		py := v.y + y
		for x := 0; x < w; x++ {
			px := v.x + x
			if !g.drawArea.Contains(px, py) {
				continue
			}
			f := Fragment{X: px, Y: py, R: v.r, G: v.g, B: v.b}
			ps := s
			if p.textured {
				t := g.texel(&p.tex, v.u+x*du, v.v+y*dv)
				if !texturedFragment(p, t, &f, &ps) {
					continue
				}
			}
			g.shadePixel(&ps, f)
		}
	}
}
