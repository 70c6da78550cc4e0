package emu

// mockMemory provides word-level RAM from a map for DMA testing.
type mockMemory struct {
	words map[uint32]uint32
}

func newMockMemory() *mockMemory {
	return &mockMemory{words: make(map[uint32]uint32)}
}

func (m *mockMemory) Read32(addr uint32) uint32 {
	return m.words[addr]
}

func (m *mockMemory) Write32(addr uint32, val uint32) {
	m.words[addr] = val
}

// mockPort records words written by DMA and answers reads with a
// value derived from the address.
type mockPort struct {
	written  []uint32
	reads    []uint32
	lastSeen int
}

func (p *mockPort) DMAWrite(word uint32) {
	p.written = append(p.written, word)
}

func (p *mockPort) DMARead(addr uint32, last bool) uint32 {
	p.reads = append(p.reads, addr)
	if last {
		p.lastSeen++
	}
	return addr ^ 0xA5A5A5A5
}

// makeTestDMA creates a DMA controller over mem with the given ports.
func makeTestDMA(mem Memory, ports ...DMAPort) *DMA {
	d := NewDMA(ports...)
	d.SetMemory(mem)
	return d
}

// chanReg returns the absolute address of register reg of channel n.
func chanReg(n int, reg uint32) uint32 {
	return dmaBase + uint32(n)*0x10 + reg
}

// makeTestGPU creates a GPU with a drawing area covering all of VRAM.
func makeTestGPU() *GPU {
	g := NewGPU(NewVRAM())
	g.WriteGP0(0xE3000000)
	g.WriteGP0(0xE4000000 | 511<<10 | 1023)
	return g
}

// makeTestSystem creates a full bus with DMA, GPU and interrupt
// controller wired together.
func makeTestSystem() (*SystemBus, *DMA, *GPU, *IRQController) {
	gpu := NewGPU(NewVRAM())
	irq := NewIRQController()
	dma := NewDMA(nil, nil, gpu)
	bus := NewSystemBus(nil, irq, dma, gpu)
	dma.SetMemory(bus)
	return bus, dma, gpu, irq
}

// vtx packs a GP0 vertex word.
func vtx(x, y int) uint32 {
	return uint32(uint16(int16(y)))<<16 | uint32(uint16(int16(x)))&0x7FF
}

// rgb packs a GP0 color word.
func rgb(r, g, b uint8) uint32 {
	return uint32(b)<<16 | uint32(g)<<8 | uint32(r)
}

// countPixels returns how many VRAM pixels equal p.
func countPixels(v *VRAM, p uint16) int {
	n := 0
	for _, px := range v.pixels {
		if px == p {
			n++
		}
	}
	return n
}
