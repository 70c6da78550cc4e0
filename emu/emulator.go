package emu

import (
	"image"

	emucore "github.com/user-none/eblitui/api"
)

const (
	Name    = "empsx"
	Version = "0.1.0"

	ScreenWidth     = VRAMWidth
	MaxScreenHeight = VRAMHeight
)

// Compile-time interface checks.
var _ emucore.Emulator = (*Emulator)(nil)
var _ emucore.MemoryInspector = (*Emulator)(nil)
var _ emucore.MemoryMapper = (*Emulator)(nil)

// Flat address boundaries for ReadMemory.
const (
	mainRAMStart    = 0x000000
	mainRAMEnd      = mainRAMSize - 1
	scratchpadStart = 0x200000
	scratchpadEnd   = scratchpadStart + scratchpadSize - 1
)

// Emulator wires the bus, DMA controller, GPU and interrupt controller
// together and drives them from a recorded bus trace.
type Emulator struct {
	bus  *SystemBus
	dma  *DMA
	gpu  *GPU
	irq  *IRQController
	vram *VRAM

	trace *Trace
	frame int // next trace frame to replay
	loop  bool

	// Region timing
	region         Region
	timing         RegionTiming
	cyclesPerFrame int

	framebuffer  *image.RGBA
	showVRAM     bool
	activeWidth  int
	activeHeight int
}

// NewEmulator creates an emulator that replays the given trace.
func NewEmulator(trace []byte, region Region) (Emulator, error) {
	t, err := ParseTrace(trace)
	if err != nil {
		return Emulator{}, err
	}

	vram := NewVRAM()
	gpu := NewGPU(vram)
	irq := NewIRQController()
	dma := NewDMA(nil, nil, gpu)
	bus := NewSystemBus(nil, irq, dma, gpu)
	dma.SetMemory(bus)

	timing := GetTimingForRegion(region)

	return Emulator{
		bus:            bus,
		dma:            dma,
		gpu:            gpu,
		irq:            irq,
		vram:           vram,
		trace:          t,
		region:         region,
		timing:         timing,
		cyclesPerFrame: timing.CyclesPerFrame(),
		framebuffer:    image.NewRGBA(image.Rect(0, 0, ScreenWidth, MaxScreenHeight)),
	}, nil
}

// RunFrame replays one frame of the trace, then enters vertical blank
// and renders the display.
func (e *Emulator) RunFrame() {
	if e.frame >= len(e.trace.Frames) && e.loop && len(e.trace.Frames) > 0 {
		e.Reset()
	}
	if e.frame < len(e.trace.Frames) {
		for _, rec := range e.trace.Frames[e.frame] {
			e.apply(rec)
		}
		e.frame++
	}

	e.gpu.VBlank()
	e.irq.Raise(IRQVBlank)
	e.render()
}

// apply replays one trace record through the bus.
func (e *Emulator) apply(rec TraceRecord) {
	switch rec.Op {
	case TraceWrite32:
		e.bus.Write32(rec.Addr, rec.Value)
	case TraceWrite16:
		e.bus.Write16(rec.Addr, uint16(rec.Value))
	case TraceWrite8:
		e.bus.Write8(rec.Addr, uint8(rec.Value))
	case TraceRead32:
		e.bus.Read32(rec.Addr)
	case TraceLoad:
		for i, b := range rec.Data {
			e.bus.Write8(rec.Addr+uint32(i), b)
		}
	case TraceRun:
		e.runDMA(int(rec.Value))
	}
	e.pollInterrupts()
}

// runDMA grants up to cycles bus cycles to the DMA controller, stopping
// early once it is idle. Zero grants up to one frame.
func (e *Emulator) runDMA(cycles int) {
	if cycles <= 0 {
		cycles = e.cyclesPerFrame
	}
	for i := 0; i < cycles; i++ {
		busy := e.dma.Step()
		e.pollInterrupts()
		if !busy {
			return
		}
	}
}

// pollInterrupts forwards device interrupt edges to the controller.
func (e *Emulator) pollInterrupts() {
	if e.dma.TakeInterrupt() {
		e.irq.Raise(IRQDMA)
	}
	if e.gpu.TakeInterrupt() {
		e.irq.Raise(IRQGPU)
	}
}

func (e *Emulator) render() {
	if e.showVRAM {
		e.gpu.RenderVRAM(e.framebuffer)
		e.activeWidth, e.activeHeight = VRAMWidth, VRAMHeight
		return
	}
	e.gpu.RenderDisplay(e.framebuffer)
	e.activeWidth, e.activeHeight = e.gpu.DisplayWidth(), e.gpu.DisplayHeight()
}

// Reset returns every device to its power-on state and rewinds the
// trace. VRAM is cleared.
func (e *Emulator) Reset() {
	e.bus.Reset()
	e.dma.Reset()
	e.irq.Reset()
	e.vram.Clear()
	e.gpu.Reset()
	e.frame = 0
}

// TraceDone reports whether every trace frame has been replayed.
func (e *Emulator) TraceDone() bool {
	return e.frame >= len(e.trace.Frames)
}

// InterruptPending reports whether the CPU interrupt line is asserted.
func (e *Emulator) InterruptPending() bool {
	return e.irq.Pending()
}

// SetInput is a no-op; controller ports are outside this core.
func (e *Emulator) SetInput(player int, buttons uint32) {}

// GetFramebuffer returns raw RGBA pixel data for current frame.
func (e *Emulator) GetFramebuffer() []byte {
	return e.framebuffer.Pix
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (e *Emulator) GetFramebufferStride() int {
	return e.framebuffer.Stride
}

// GetActiveWidth returns the width of the rendered area.
func (e *Emulator) GetActiveWidth() int {
	return e.activeWidth
}

// GetActiveHeight returns the height of the rendered area.
func (e *Emulator) GetActiveHeight() int {
	return e.activeHeight
}

// GetAudioSamples returns nil; audio is not emulated.
func (e *Emulator) GetAudioSamples() []int16 {
	return nil
}

// GetRegion returns the emulator's region setting.
func (e *Emulator) GetRegion() Region {
	return e.region
}

// GetTiming returns FPS and scanline count for the current region.
func (e *Emulator) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       e.timing.FPS,
		Scanlines: e.timing.Scanlines,
	}
}

// SetRegion updates the emulator's region configuration.
func (e *Emulator) SetRegion(region Region) {
	e.region = region
	e.timing = GetTimingForRegion(region)
	e.cyclesPerFrame = e.timing.CyclesPerFrame()
}

// Close releases any resources held by the emulator.
func (e *Emulator) Close() {}

// SetOption applies a core option change identified by key.
func (e *Emulator) SetOption(key string, value string) {
	switch key {
	case "show_vram":
		e.showVRAM = value == "true"
	case "disable_dither":
		e.gpu.SetDitherDisabled(value == "true")
	case "loop_trace":
		e.loop = value == "true"
	}
}

// ReadMainRAM reads a single byte from main RAM.
func (e *Emulator) ReadMainRAM(addr uint32) byte {
	return e.bus.ram[addr&(mainRAMSize-1)]
}

// GetMainRAM returns a copy of main RAM.
func (e *Emulator) GetMainRAM() []byte {
	out := make([]byte, mainRAMSize)
	copy(out, e.bus.ram[:])
	return out
}

// SetMainRAM writes data into main RAM.
func (e *Emulator) SetMainRAM(data []byte) {
	copy(e.bus.ram[:], data)
}

// ReadMemory reads from a flat address into buf and returns the number
// of bytes read.
func (e *Emulator) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		var b byte
		switch {
		case cur <= mainRAMEnd:
			b = e.ReadMainRAM(cur - mainRAMStart)
		case cur >= scratchpadStart && cur <= scratchpadEnd:
			b = e.bus.scratchpad[cur-scratchpadStart]
		default:
			return count
		}
		buf[i] = b
		count++
	}
	return count
}

// MemoryMap returns a list of available memory regions with sizes.
func (e *Emulator) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: mainRAMSize},
	}
}

// ReadRegion returns a copy of the specified memory region.
func (e *Emulator) ReadRegion(regionType int) []byte {
	switch regionType {
	case emucore.MemorySystemRAM:
		return e.GetMainRAM()
	default:
		return nil
	}
}

// WriteRegion writes data to the specified memory region.
func (e *Emulator) WriteRegion(regionType int, data []byte) {
	switch regionType {
	case emucore.MemorySystemRAM:
		e.SetMainRAM(data)
	}
}
