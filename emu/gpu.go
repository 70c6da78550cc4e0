package emu

import "image"

const (
	gpuBase = 0x1F801810
	gpuEnd  = 0x1F801817

	gpustatReset = 0x14802000
	gpuVersion   = 2
)

// gp0State is the GP0 intake state.
type gp0State uint8

const (
	gp0Idle          gp0State = iota
	gp0Fixed                  // collecting a fixed-length command
	gp0PolylineState          // collecting polyline vertices until the terminator
	gp0ImageLoad              // receiving CPU-to-VRAM pixel words
)

// imageTransfer tracks a rectangular VRAM transfer in progress.
type imageTransfer struct {
	x, y   int
	w, h   int
	index  int // pixels moved so far
	active bool
}

func (t *imageTransfer) total() int {
	return t.w * t.h
}

// pos returns the VRAM coordinate of the next pixel.
func (t *imageTransfer) pos() (int, int) {
	return t.x + t.index%t.w, t.y + t.index/t.w
}

// GPU holds the command processor and all drawing and display state.
// Port map:
//
//	0x1F801810  write GP0 (render/VRAM commands), read GPUREAD
//	0x1F801814  write GP1 (display control), read GPUSTAT
type GPU struct {
	vram *VRAM

	// GP0(E1h) draw mode
	texPageX       int // VRAM x of the texture page (multiple of 64)
	texPageY       int // VRAM y of the texture page (0 or 256)
	semiMode       BlendMode
	texDepth       uint8 // 0 = 4-bit CLUT, 1 = 8-bit CLUT, 2 = 15-bit direct
	dither         bool
	drawToDisplay  bool
	textureDisable bool
	rectFlipX      bool
	rectFlipY      bool

	// GP0(E2h) texture window, in 8-pixel units
	texWindowMaskX uint8
	texWindowMaskY uint8
	texWindowOffX  uint8
	texWindowOffY  uint8

	// GP0(E3h)-GP0(E5h)
	drawArea    ClipRect
	drawOffsetX int
	drawOffsetY int

	// GP0(E6h)
	forceMask bool
	checkMask bool

	// Raw E2h-E5h parameters returned by GP1(10h)
	infoRegs [4]uint32

	// GP1 display state
	displayDisabled     bool
	dmaDirection        uint8
	displayX            int
	displayY            int
	hRangeStart         int
	hRangeEnd           int
	vRangeStart         int
	vRangeEnd           int
	hres1               uint8
	hres2               bool
	vres                bool
	pal                 bool
	depth24             bool
	interlace           bool
	reverse             bool
	allowTextureDisable bool
	field               bool

	irq         bool
	irqAsserted bool

	// GP0 intake
	state     gp0State
	cmd       []uint32
	remaining int
	poly      polyline
	load      imageTransfer
	store     imageTransfer
	gpuread   uint32

	// Byte-write latches for GP0 and GP1, and the GPUREAD byte latch.
	writeLatch [2]uint32
	readLatch  uint32

	ditherDisabled bool
}

// NewGPU creates a GPU in its power-on state drawing into vram.
func NewGPU(vram *VRAM) *GPU {
	g := &GPU{
		vram: vram,
		cmd:  make([]uint32, 0, 16),
	}
	g.Reset()
	return g
}

// VRAM returns the frame memory.
func (g *GPU) VRAM() *VRAM {
	return g.vram
}

// Reset performs GP1(00h). VRAM contents are preserved.
func (g *GPU) Reset() {
	g.resetCommandBuffer()
	g.irq = false
	g.irqAsserted = false

	g.setDrawMode(0)
	g.rectFlipX, g.rectFlipY = false, false
	g.texWindowMaskX, g.texWindowMaskY = 0, 0
	g.texWindowOffX, g.texWindowOffY = 0, 0
	g.drawArea = ClipRect{}
	g.drawOffsetX, g.drawOffsetY = 0, 0
	g.forceMask, g.checkMask = false, false
	g.infoRegs = [4]uint32{}

	g.displayDisabled = true
	g.dmaDirection = 0
	g.displayX, g.displayY = 0, 0
	g.hRangeStart, g.hRangeEnd = 0x200, 0x200+2560
	g.vRangeStart, g.vRangeEnd = 0x10, 0x10+240
	g.setDisplayMode(0)
	g.allowTextureDisable = false
	g.field = false
	g.writeLatch = [2]uint32{}
	g.readLatch = 0
}

// resetCommandBuffer performs GP1(01h): pending command words and
// transfers are dropped.
func (g *GPU) resetCommandBuffer() {
	g.state = gp0Idle
	g.cmd = g.cmd[:0]
	g.remaining = 0
	g.load = imageTransfer{}
	g.store = imageTransfer{}
}

// Status returns GPUSTAT.
func (g *GPU) Status() uint32 {
	var s uint32

	s |= uint32(g.texPageX/64) & 0xF                // Bits 0-3: texture page X base
	s |= uint32(g.texPageY/256) << 4                // Bit 4: texture page Y base
	s |= uint32(g.semiMode) << 5                    // Bits 5-6: semi-transparency
	s |= uint32(g.texDepth) << 7                    // Bits 7-8: texture depth
	s |= boolBit(g.dither) << 9                     // Bit 9: dither
	s |= boolBit(g.drawToDisplay) << 10             // Bit 10: drawing to display area allowed
	s |= boolBit(g.forceMask) << 11                 // Bit 11: set mask bit
	s |= boolBit(g.checkMask) << 12                 // Bit 12: check mask before draw
	s |= boolBit(g.field || !g.interlace) << 13     // Bit 13: interlace field
	s |= boolBit(g.reverse) << 14                   // Bit 14: reverse flag
	s |= boolBit(g.textureDisable) << 15            // Bit 15: texture disable
	s |= boolBit(g.hres2) << 16                     // Bit 16: horizontal resolution 2
	s |= uint32(g.hres1) << 17                      // Bits 17-18: horizontal resolution 1
	s |= boolBit(g.vres) << 19                      // Bit 19: vertical resolution
	s |= boolBit(g.pal) << 20                       // Bit 20: video mode
	s |= boolBit(g.depth24) << 21                   // Bit 21: display color depth
	s |= boolBit(g.interlace) << 22                 // Bit 22: vertical interlace
	s |= boolBit(g.displayDisabled) << 23           // Bit 23: display disable
	s |= boolBit(g.irq) << 24                       // Bit 24: interrupt request
	s |= boolBit(g.dmaRequest()) << 25              // Bit 25: DMA data request
	s |= 1 << 26                                    // Bit 26: ready to receive command word
	s |= boolBit(g.store.active) << 27              // Bit 27: ready to send VRAM to CPU
	s |= 1 << 28                                    // Bit 28: ready to receive DMA block
	s |= uint32(g.dmaDirection) << 29               // Bits 29-30: DMA direction
	s |= boolBit(g.interlace && g.field) << 31      // Bit 31: odd line in interlace mode

	return s
}

// dmaRequest is GPUSTAT bit 25, whose meaning follows the DMA direction.
func (g *GPU) dmaRequest() bool {
	switch g.dmaDirection {
	case 1, 2:
		return true
	case 3:
		return g.store.active
	}
	return false
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// ReadGPUREAD returns the next word of a VRAM-to-CPU transfer, or the
// last latched response when no transfer is pending.
func (g *GPU) ReadGPUREAD() uint32 {
	if !g.store.active {
		return g.gpuread
	}
	var word uint32
	for i := 0; i < 2 && g.store.active; i++ {
		x, y := g.store.pos()
		word |= uint32(g.vram.Load(x, y)) << (16 * uint(i))
		g.store.index++
		if g.store.index >= g.store.total() {
			g.store.active = false
		}
	}
	g.gpuread = word
	return word
}

// Read32 reads GPUREAD or GPUSTAT.
func (g *GPU) Read32(addr uint32) uint32 {
	if addr&4 == 0 {
		return g.ReadGPUREAD()
	}
	return g.Status()
}

// Read8 reads one byte of a GPU register. Reading byte 0 of GPUREAD
// fetches a new word; bytes 1-3 come from the latched word.
func (g *GPU) Read8(addr uint32) uint8 {
	shift := (addr & 3) * 8
	if addr&4 != 0 {
		return uint8(g.Status() >> shift)
	}
	if addr&3 == 0 {
		g.readLatch = g.ReadGPUREAD()
	}
	return uint8(g.readLatch >> shift)
}

// Write32 writes GP0 or GP1.
func (g *GPU) Write32(addr uint32, val uint32) {
	if addr&4 == 0 {
		g.WriteGP0(val)
	} else {
		g.WriteGP1(val)
	}
}

// Write8 merges one byte into the port's write latch. The word is
// submitted when byte 3 is written.
func (g *GPU) Write8(addr uint32, val uint8) {
	port := (addr >> 2) & 1
	shift := (addr & 3) * 8
	g.writeLatch[port] = g.writeLatch[port]&^(0xFF<<shift) | uint32(val)<<shift
	if addr&3 != 3 {
		return
	}
	word := g.writeLatch[port]
	g.writeLatch[port] = 0
	g.Write32(addr&^3, word)
}

// DMAWrite implements DMAPort: words from RAM feed GP0.
func (g *GPU) DMAWrite(word uint32) {
	g.WriteGP0(word)
}

// DMARead implements DMAPort: words to RAM come from GPUREAD.
func (g *GPU) DMARead(addr uint32, last bool) uint32 {
	return g.ReadGPUREAD()
}

// WriteGP1 executes a display control command.
func (g *GPU) WriteGP1(val uint32) {
	op := val >> 24
	param := val & 0xFFFFFF

	switch {
	case op == 0x00:
		g.Reset()
	case op == 0x01:
		g.resetCommandBuffer()
	case op == 0x02:
		g.irq = false
	case op == 0x03:
		g.displayDisabled = param&1 != 0
	case op == 0x04:
		g.dmaDirection = uint8(param & 3)
	case op == 0x05:
		g.displayX = int(param & 0x3FE)
		g.displayY = int((param >> 10) & 0x1FF)
	case op == 0x06:
		g.hRangeStart = int(param & 0xFFF)
		g.hRangeEnd = int((param >> 12) & 0xFFF)
	case op == 0x07:
		g.vRangeStart = int(param & 0x3FF)
		g.vRangeEnd = int((param >> 10) & 0x3FF)
	case op == 0x08:
		g.setDisplayMode(param)
	case op == 0x09:
		g.allowTextureDisable = param&1 != 0
	case op >= 0x10 && op <= 0x1F:
		g.queryInfo(param)
	}
	// Other GP1 opcodes are ignored.
}

func (g *GPU) setDisplayMode(param uint32) {
	g.hres1 = uint8(param & 3)
	g.vres = param&0x04 != 0
	g.pal = param&0x08 != 0
	g.depth24 = param&0x10 != 0
	g.interlace = param&0x20 != 0
	g.hres2 = param&0x40 != 0
	g.reverse = param&0x80 != 0
}

// queryInfo latches GP1(10h) responses into GPUREAD.
func (g *GPU) queryInfo(param uint32) {
	switch param & 7 {
	case 2, 3, 4, 5:
		g.gpuread = g.infoRegs[(param&7)-2]
	case 7:
		g.gpuread = gpuVersion
	}
}

// TakeInterrupt reports and clears a pending GP0(1Fh) interrupt edge.
func (g *GPU) TakeInterrupt() bool {
	if g.irqAsserted {
		g.irqAsserted = false
		return true
	}
	return false
}

// VBlank advances the interlace field.
func (g *GPU) VBlank() {
	if g.interlace {
		g.field = !g.field
	} else {
		g.field = false
	}
}

// SetDitherDisabled overrides the dither flag of GP0(E1h).
func (g *GPU) SetDitherDisabled(disabled bool) {
	g.ditherDisabled = disabled
}

// DisplayWidth returns the horizontal resolution selected by GP1(08h).
func (g *GPU) DisplayWidth() int {
	if g.hres2 {
		return 368
	}
	return [4]int{256, 320, 512, 640}[g.hres1]
}

// DisplayHeight returns the vertical resolution selected by GP1(08h).
func (g *GPU) DisplayHeight() int {
	h := 240
	if g.pal {
		h = 256
	}
	if g.vres && g.interlace {
		h *= 2
	}
	return h
}

// RenderDisplay converts the visible display area into dst. A disabled
// display renders black.
func (g *GPU) RenderDisplay(dst *image.RGBA) {
	w, h := g.DisplayWidth(), g.DisplayHeight()
	if g.displayDisabled {
		w, h = 0, 0
	}
	g.vram.RenderRGBA(dst, g.displayX, g.displayY, w, h, g.depth24)
}

// RenderVRAM converts the whole of VRAM as 15-bit pixels into dst.
func (g *GPU) RenderVRAM(dst *image.RGBA) {
	g.vram.RenderRGBA(dst, 0, 0, VRAMWidth, VRAMHeight, false)
}
