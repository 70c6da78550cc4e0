package emu

// Polygon and line opcode flags.
const (
	gp0RawTexture = 0x01
	gp0SemiTrans  = 0x02
	gp0Textured   = 0x04
	gp0Quad       = 0x08 // polygons
	gp0Polyline   = 0x08 // lines
	gp0Shaded     = 0x10

	polylineEndMask = 0xF000F000
	polylineEnd     = 0x50005000
)

// polyline carries state between the vertices of a GP0(48h)/GP0(58h)
// polyline after its first segment has been drawn.
type polyline struct {
	shaded    bool
	semi      bool
	last      vertex
	color     uint32 // pending color word of a shaded vertex
	haveColor bool
}

// gp0CommandLength returns the number of words in a GP0 command,
// including the opcode word. For polylines it is the length of the
// first segment; for CPU-to-VRAM it is the header before pixel data.
func gp0CommandLength(op uint8) int {
	switch {
	case op == 0x02:
		return 3
	case op >= 0x20 && op <= 0x3F:
		verts := 3
		if op&gp0Quad != 0 {
			verts = 4
		}
		n := 1 + verts
		if op&gp0Textured != 0 {
			n += verts
		}
		if op&gp0Shaded != 0 {
			n += verts - 1
		}
		return n
	case op >= 0x40 && op <= 0x5F:
		if op&gp0Shaded != 0 {
			return 4
		}
		return 3
	case op >= 0x60 && op <= 0x7F:
		n := 2
		if op&gp0Textured != 0 {
			n++
		}
		if (op>>3)&3 == 0 {
			n++
		}
		return n
	case op >= 0x80 && op <= 0x9F:
		return 4
	case op >= 0xA0 && op <= 0xDF:
		return 3
	default:
		return 1
	}
}

// WriteGP0 feeds one word into the GP0 command processor.
func (g *GPU) WriteGP0(word uint32) {
	switch g.state {
	case gp0ImageLoad:
		g.loadWord(word)
		return
	case gp0PolylineState:
		g.polylineWord(word)
		return
	case gp0Fixed:
		g.cmd = append(g.cmd, word)
		g.remaining--
		if g.remaining == 0 {
			g.execute()
		}
		return
	}

	g.cmd = append(g.cmd[:0], word)
	n := gp0CommandLength(uint8(word >> 24))
	if n == 1 {
		g.execute()
		return
	}
	g.remaining = n - 1
	g.state = gp0Fixed
}

// execute dispatches a complete command in g.cmd. Handlers may move
// the intake into a variable-length state.
func (g *GPU) execute() {
	cmd := g.cmd
	op := uint8(cmd[0] >> 24)
	g.state = gp0Idle
	g.remaining = 0

	switch {
	case op == 0x02:
		g.fillRect(cmd)
	case op == 0x1F:
		if !g.irq {
			g.irqAsserted = true
		}
		g.irq = true
	case op >= 0x20 && op <= 0x3F:
		g.drawPolygon(op, cmd)
	case op >= 0x40 && op <= 0x5F:
		g.drawLineCommand(op, cmd)
	case op >= 0x60 && op <= 0x7F:
		g.drawRectangle(op, cmd)
	case op >= 0x80 && op <= 0x9F:
		g.copyRect(cmd)
	case op >= 0xA0 && op <= 0xBF:
		g.beginImageLoad(cmd)
	case op >= 0xC0 && op <= 0xDF:
		g.beginImageStore(cmd)
	case op == 0xE1:
		g.setDrawMode(cmd[0])
	case op == 0xE2:
		g.setTextureWindow(cmd[0])
	case op == 0xE3:
		g.drawArea.Left = int(cmd[0] & 0x3FF)
		g.drawArea.Top = int((cmd[0] >> 10) & 0x1FF)
		g.infoRegs[1] = cmd[0] & 0xFFFFF
	case op == 0xE4:
		g.drawArea.Right = int(cmd[0] & 0x3FF)
		g.drawArea.Bottom = int((cmd[0] >> 10) & 0x1FF)
		g.infoRegs[2] = cmd[0] & 0xFFFFF
	case op == 0xE5:
		g.drawOffsetX = signExtend11(cmd[0])
		g.drawOffsetY = signExtend11(cmd[0] >> 11)
		g.infoRegs[3] = cmd[0] & 0x3FFFFF
	case op == 0xE6:
		g.forceMask = cmd[0]&1 != 0
		g.checkMask = cmd[0]&2 != 0
	}
	// 0x00, 0x01 and unassigned opcodes are no-ops.

	g.cmd = g.cmd[:0]
}

// setDrawMode applies GP0(E1h), which textured polygons also update
// through their texpage attribute.
func (g *GPU) setDrawMode(v uint32) {
	g.texPageX = int(v&0xF) * 64
	g.texPageY = int((v>>4)&1) * 256
	g.semiMode = BlendMode((v >> 5) & 3)
	g.texDepth = uint8((v >> 7) & 3)
	g.dither = v&(1<<9) != 0
	g.drawToDisplay = v&(1<<10) != 0
	g.textureDisable = g.allowTextureDisable && v&(1<<11) != 0
	g.rectFlipX = v&(1<<12) != 0
	g.rectFlipY = v&(1<<13) != 0
}

func (g *GPU) setTextureWindow(v uint32) {
	g.texWindowMaskX = uint8(v & 0x1F)
	g.texWindowMaskY = uint8((v >> 5) & 0x1F)
	g.texWindowOffX = uint8((v >> 10) & 0x1F)
	g.texWindowOffY = uint8((v >> 15) & 0x1F)
	g.infoRegs[0] = v & 0xFFFFF
}

// signExtend11 sign-extends the low 11 bits of v.
func signExtend11(v uint32) int {
	return int(int32(v<<21) >> 21)
}

// decodeVertex unpacks a GP0 vertex word and applies the drawing offset.
func (g *GPU) decodeVertex(w uint32) vertex {
	return vertex{
		x: signExtend11(w) + g.drawOffsetX,
		y: signExtend11(w>>16) + g.drawOffsetY,
	}
}

func setColor(v *vertex, w uint32) {
	v.r = int(w & 0xFF)
	v.g = int((w >> 8) & 0xFF)
	v.b = int((w >> 16) & 0xFF)
}

func setTexcoord(v *vertex, w uint32) {
	v.u = int(w & 0xFF)
	v.v = int((w >> 8) & 0xFF)
}

// drawPolygon decodes GP0(20h)-GP0(3Fh). Word layout per vertex:
// [color] vertex [texcoord], with the first color in the opcode word.
func (g *GPU) drawPolygon(op uint8, cmd []uint32) {
	count := 3
	if op&gp0Quad != 0 {
		count = 4
	}
	shaded := op&gp0Shaded != 0
	textured := op&gp0Textured != 0

	p := primitive{
		shaded:   shaded,
		textured: textured && !g.textureDisable,
		raw:      op&gp0RawTexture != 0,
		semi:     op&gp0SemiTrans != 0,
		mode:     g.semiMode,
	}

	var verts [4]vertex
	i := 0
	color := cmd[i]
	for n := 0; n < count; n++ {
		if shaded && n > 0 {
			i++
			color = cmd[i]
		}
		i++
		verts[n] = g.decodeVertex(cmd[i])
		setColor(&verts[n], color)
		if textured {
			i++
			setTexcoord(&verts[n], cmd[i])
			switch n {
			case 0:
				clut := cmd[i] >> 16
				p.tex.clutX = int(clut&0x3F) * 16
				p.tex.clutY = int((clut >> 6) & 0x1FF)
			case 1:
				page := cmd[i] >> 16
				g.setDrawMode(g.drawModeBits()&^0x9FF | page&0x9FF)
				p.mode = g.semiMode
			}
		}
	}
	p.textured = textured && !g.textureDisable
	p.tex.pageX, p.tex.pageY, p.tex.depth = g.texPageX, g.texPageY, g.texDepth
	p.dither = shaded || (p.textured && !p.raw)

	g.drawTriangle(verts[0], verts[1], verts[2], &p)
	if count == 4 {
		g.drawTriangle(verts[1], verts[2], verts[3], &p)
	}
}

// drawModeBits repacks the current GP0(E1h) state.
func (g *GPU) drawModeBits() uint32 {
	v := uint32(g.texPageX/64) & 0xF
	v |= uint32(g.texPageY/256) << 4
	v |= uint32(g.semiMode) << 5
	v |= uint32(g.texDepth) << 7
	v |= boolBit(g.dither) << 9
	v |= boolBit(g.drawToDisplay) << 10
	v |= boolBit(g.textureDisable) << 11
	v |= boolBit(g.rectFlipX) << 12
	v |= boolBit(g.rectFlipY) << 13
	return v
}

// drawLineCommand decodes GP0(40h)-GP0(5Fh). A polyline keeps the
// intake in polyline state after its first segment.
func (g *GPU) drawLineCommand(op uint8, cmd []uint32) {
	shaded := op&gp0Shaded != 0
	p := primitive{
		shaded: shaded,
		semi:   op&gp0SemiTrans != 0,
		mode:   g.semiMode,
		dither: shaded,
	}

	v0 := g.decodeVertex(cmd[1])
	setColor(&v0, cmd[0])
	var v1 vertex
	if shaded {
		v1 = g.decodeVertex(cmd[3])
		setColor(&v1, cmd[2])
	} else {
		v1 = g.decodeVertex(cmd[2])
		setColor(&v1, cmd[0])
	}
	g.drawLine(v0, v1, &p)

	if op&gp0Polyline != 0 {
		g.poly = polyline{shaded: shaded, semi: p.semi, last: v1}
		g.state = gp0PolylineState
	}
}

// polylineWord consumes one word of a polyline after its first
// segment. A word matching the terminator pattern at the start of a
// vertex ends the command.
func (g *GPU) polylineWord(word uint32) {
	if !g.poly.haveColor && word&polylineEndMask == polylineEnd {
		g.state = gp0Idle
		return
	}
	if g.poly.shaded && !g.poly.haveColor {
		g.poly.color = word
		g.poly.haveColor = true
		return
	}

	next := g.decodeVertex(word)
	if g.poly.shaded {
		setColor(&next, g.poly.color)
	} else {
		next.r, next.g, next.b = g.poly.last.r, g.poly.last.g, g.poly.last.b
	}
	g.poly.haveColor = false

	p := primitive{
		shaded: g.poly.shaded,
		semi:   g.poly.semi,
		mode:   g.semiMode,
		dither: g.poly.shaded,
	}
	g.drawLine(g.poly.last, next, &p)
	g.poly.last = next
}

// drawRectangle decodes GP0(60h)-GP0(7Fh): color, vertex, [texcoord],
// [size].
func (g *GPU) drawRectangle(op uint8, cmd []uint32) {
	textured := op&gp0Textured != 0
	p := primitive{
		textured: textured && !g.textureDisable,
		raw:      op&gp0RawTexture != 0,
		semi:     op&gp0SemiTrans != 0,
		mode:     g.semiMode,
	}

	v := g.decodeVertex(cmd[1])
	setColor(&v, cmd[0])
	i := 2
	if textured {
		setTexcoord(&v, cmd[i])
		clut := cmd[i] >> 16
		p.tex = texture{
			pageX: g.texPageX,
			pageY: g.texPageY,
			depth: g.texDepth,
			clutX: int(clut&0x3F) * 16,
			clutY: int((clut >> 6) & 0x1FF),
		}
		i++
	}

	var w, h int
	switch (op >> 3) & 3 {
	case 0:
		w = int(cmd[i] & 0x3FF)
		h = int((cmd[i] >> 16) & 0x1FF)
	case 1:
		w, h = 1, 1
	case 2:
		w, h = 8, 8
	case 3:
		w, h = 16, 16
	}
	g.drawRect(v, w, h, &p)
}

// fillRect implements GP0(02h). The fill ignores the drawing area, the
// drawing offset and the mask settings.
func (g *GPU) fillRect(cmd []uint32) {
	x0 := int(cmd[1] & 0x3F0)
	y0 := int((cmd[1] >> 16) & 0x1FF)
	w := int(((cmd[2] & 0x3FF) + 0xF) &^ 0xF)
	h := int((cmd[2] >> 16) & 0x1FF)

	c := cmd[0]
	p := pack555(quantize(int(c&0xFF)), quantize(int((c>>8)&0xFF)), quantize(int((c>>16)&0xFF)), false)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.vram.Store(x0+x, y0+y, p)
		}
	}
}

// transferSize decodes a width/height word of a VRAM transfer.
func transferSize(w uint32) (int, int) {
	width := int(((w&0xFFFF)-1)&0x3FF) + 1
	height := int(((w>>16)-1)&0x1FF) + 1
	return width, height
}

func transferOrigin(w uint32) (int, int) {
	return int(w & 0x3FF), int((w >> 16) & 0x1FF)
}

// transferState returns the pipeline state used by VRAM transfers:
// full clip, no blending, no dithering, current mask policy.
func (g *GPU) transferState() PixelState {
	return PixelState{
		Clip:      fullClip,
		ForceMask: g.forceMask,
		CheckMask: g.checkMask,
	}
}

// copyRect implements GP0(80h), VRAM to VRAM.
func (g *GPU) copyRect(cmd []uint32) {
	sx, sy := transferOrigin(cmd[1])
	dx, dy := transferOrigin(cmd[2])
	w, h := transferSize(cmd[3])
	s := g.transferState()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := g.vram.Load(sx+x, sy+y)
			dst := g.vram.Load(dx+x, dy+y)
			if p, ok := s.transferPixel(src, dst); ok {
				g.vram.Store(dx+x, dy+y, p)
			}
		}
	}
}

// beginImageLoad starts GP0(A0h), CPU to VRAM. Pixel words follow.
func (g *GPU) beginImageLoad(cmd []uint32) {
	x, y := transferOrigin(cmd[1])
	w, h := transferSize(cmd[2])
	g.load = imageTransfer{x: x, y: y, w: w, h: h, active: true}
	g.state = gp0ImageLoad
}

// loadWord stores the two pixels of a CPU-to-VRAM data word. The upper
// half of the final word of an odd-sized transfer is discarded.
func (g *GPU) loadWord(word uint32) {
	s := g.transferState()
	for i := 0; i < 2 && g.load.active; i++ {
		x, y := g.load.pos()
		src := uint16(word >> (16 * uint(i)))
		if p, ok := s.transferPixel(src, g.vram.Load(x, y)); ok {
			g.vram.Store(x, y, p)
		}
		g.load.index++
		if g.load.index >= g.load.total() {
			g.load.active = false
		}
	}
	if !g.load.active {
		g.state = gp0Idle
	}
}

// beginImageStore starts GP0(C0h), VRAM to CPU. Data is read through
// GPUREAD.
func (g *GPU) beginImageStore(cmd []uint32) {
	x, y := transferOrigin(cmd[1])
	w, h := transferSize(cmd[2])
	g.store = imageTransfer{x: x, y: y, w: w, h: h, active: true}
}
