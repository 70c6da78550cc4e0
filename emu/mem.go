package emu

import "encoding/binary"

const (
	mainRAMSize    = 0x200000 // 2 MiB main RAM
	scratchpadSize = 0x400    // 1 KiB data cache used as scratchpad
	biosSize       = 0x80000  // 512 KiB BIOS ROM

	ramMirrorEnd   = 0x00800000
	scratchpadBase = 0x1F800000
	biosBase       = 0x1FC00000
)

// Size is the width of a bus access in bytes.
type Size uint8

const (
	Byte Size = 1
	Half Size = 2
	Word Size = 4
)

// Bus is the CPU-facing port contract. Addresses are physical or
// KSEG0/KSEG1 virtual; accesses are little endian and aligned down to
// their size.
type Bus interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16
	Read32(addr uint32) uint32
	Write8(addr uint32, val uint8)
	Write16(addr uint32, val uint16)
	Write32(addr uint32, val uint32)
}

// byteDevice is a register block with its own byte-lane semantics.
type byteDevice interface {
	Read8(addr uint32) uint8
	Read32(addr uint32) uint32
	Write8(addr uint32, val uint8)
	Write32(addr uint32, val uint32)
}

// regionMask strips the segment bits of a CPU address, selected by the
// top three address bits. KSEG2 is passed through.
var regionMask = [8]uint32{
	0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, // KUSEG
	0x7FFFFFFF, // KSEG0
	0x1FFFFFFF, // KSEG1
	0xFFFFFFFF, 0xFFFFFFFF, // KSEG2
}

func maskRegion(addr uint32) uint32 {
	return addr & regionMask[addr>>29]
}

// SystemBus routes the port contract to memory and device registers.
//
// Address map (physical):
//
//	0x00000000-0x007FFFFF  main RAM (2 MiB, mirrored four times)
//	0x1F800000-0x1F8003FF  scratchpad (1 KiB)
//	0x1F801070-0x1F801077  interrupt controller (I_STAT, I_MASK)
//	0x1F801080-0x1F8010FF  DMA controller
//	0x1F801810-0x1F801817  GPU (GP0/GPUREAD, GP1/GPUSTAT)
//	0x1FC00000-0x1FC7FFFF  BIOS ROM (512 KiB, read-only)
//
// Unmapped reads return 0 and unmapped writes are dropped.
type SystemBus struct {
	ram        [mainRAMSize]byte
	scratchpad [scratchpadSize]byte
	bios       []byte

	irq *IRQController
	dma *DMA
	gpu *GPU
}

// NewSystemBus creates a bus over the given devices. bios may be nil.
func NewSystemBus(bios []byte, irq *IRQController, dma *DMA, gpu *GPU) *SystemBus {
	if len(bios) > biosSize {
		bios = bios[:biosSize]
	}
	return &SystemBus{
		bios: bios,
		irq:  irq,
		dma:  dma,
		gpu:  gpu,
	}
}

// Read8 implements Bus.
func (b *SystemBus) Read8(addr uint32) uint8 {
	return uint8(b.read(Byte, addr))
}

// Read16 implements Bus.
func (b *SystemBus) Read16(addr uint32) uint16 {
	return uint16(b.read(Half, addr))
}

// Read32 implements Bus and Memory.
func (b *SystemBus) Read32(addr uint32) uint32 {
	return b.read(Word, addr)
}

// Write8 implements Bus.
func (b *SystemBus) Write8(addr uint32, val uint8) {
	b.write(Byte, addr, uint32(val))
}

// Write16 implements Bus.
func (b *SystemBus) Write16(addr uint32, val uint16) {
	b.write(Half, addr, uint32(val))
}

// Write32 implements Bus and Memory.
func (b *SystemBus) Write32(addr uint32, val uint32) {
	b.write(Word, addr, val)
}

func (b *SystemBus) read(s Size, addr uint32) uint32 {
	addr = maskRegion(addr) &^ uint32(s-1)

	switch {
	case addr < ramMirrorEnd:
		return readSized(b.ram[:], s, addr&(mainRAMSize-1))
	case addr >= scratchpadBase && addr < scratchpadBase+scratchpadSize:
		return readSized(b.scratchpad[:], s, addr-scratchpadBase)
	case addr >= irqBase && addr <= irqEnd:
		return readLane(b.irq.Read32(addr&^3), s, addr)
	case addr >= dmaBase && addr <= dmaEnd:
		return readDevice(b.dma, s, addr)
	case addr >= gpuBase && addr <= gpuEnd:
		return readDevice(b.gpu, s, addr)
	case addr >= biosBase && addr < biosBase+biosSize:
		off := addr - biosBase
		if off+uint32(s) <= uint32(len(b.bios)) {
			return readSized(b.bios, s, off)
		}
		return 0
	default:
		return 0
	}
}

func (b *SystemBus) write(s Size, addr uint32, val uint32) {
	addr = maskRegion(addr) &^ uint32(s-1)

	switch {
	case addr < ramMirrorEnd:
		writeSized(b.ram[:], s, addr&(mainRAMSize-1), val)
	case addr >= scratchpadBase && addr < scratchpadBase+scratchpadSize:
		writeSized(b.scratchpad[:], s, addr-scratchpadBase, val)
	case addr >= irqBase && addr <= irqEnd:
		// Lanes outside the access write as ones so I_STAT acks only
		// the bits actually written as zero.
		word := addr &^ 3
		cur := b.irq.Read32(word)
		if word == irqBase {
			cur = 0xFFFFFFFF
		}
		b.irq.Write32(word, writeLane(cur, s, addr, val))
	case addr >= dmaBase && addr <= dmaEnd:
		writeDevice(b.dma, s, addr, val)
	case addr >= gpuBase && addr <= gpuEnd:
		writeDevice(b.gpu, s, addr, val)
	}
	// BIOS and unmapped regions are read-only or open.
}

// LoadBIOS replaces the BIOS image.
func (b *SystemBus) LoadBIOS(bios []byte) {
	if len(bios) > biosSize {
		bios = bios[:biosSize]
	}
	b.bios = bios
}

// Reset clears RAM and scratchpad.
func (b *SystemBus) Reset() {
	b.ram = [mainRAMSize]byte{}
	b.scratchpad = [scratchpadSize]byte{}
}

// RAM returns the main RAM backing array.
func (b *SystemBus) RAM() []byte {
	return b.ram[:]
}

func readSized(mem []byte, s Size, off uint32) uint32 {
	switch s {
	case Byte:
		return uint32(mem[off])
	case Half:
		return uint32(binary.LittleEndian.Uint16(mem[off:]))
	default:
		return binary.LittleEndian.Uint32(mem[off:])
	}
}

func writeSized(mem []byte, s Size, off uint32, val uint32) {
	switch s {
	case Byte:
		mem[off] = uint8(val)
	case Half:
		binary.LittleEndian.PutUint16(mem[off:], uint16(val))
	default:
		binary.LittleEndian.PutUint32(mem[off:], val)
	}
}

// readLane extracts an s-sized access at addr from the containing word.
func readLane(word uint32, s Size, addr uint32) uint32 {
	v := word >> ((addr & 3) * 8)
	switch s {
	case Byte:
		return v & 0xFF
	case Half:
		return v & 0xFFFF
	default:
		return v
	}
}

// writeLane merges an s-sized value at addr into word.
func writeLane(word uint32, s Size, addr uint32, val uint32) uint32 {
	shift := (addr & 3) * 8
	var mask uint32
	switch s {
	case Byte:
		mask = 0xFF
	case Half:
		mask = 0xFFFF
	default:
		return val
	}
	return word&^(mask<<shift) | (val&mask)<<shift
}

// readDevice splits sub-word reads into byte reads so devices see
// their own byte-lane semantics.
func readDevice(d byteDevice, s Size, addr uint32) uint32 {
	switch s {
	case Byte:
		return uint32(d.Read8(addr))
	case Half:
		return uint32(d.Read8(addr)) | uint32(d.Read8(addr+1))<<8
	default:
		return d.Read32(addr)
	}
}

// writeDevice splits sub-word writes into byte writes.
func writeDevice(d byteDevice, s Size, addr uint32, val uint32) {
	switch s {
	case Byte:
		d.Write8(addr, uint8(val))
	case Half:
		d.Write8(addr, uint8(val))
		d.Write8(addr+1, uint8(val>>8))
	default:
		d.Write32(addr, val)
	}
}
