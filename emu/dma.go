package emu

const (
	dmaBase    = 0x1F801080
	dmaEnd     = 0x1F8010FF
	dmaRegDPCR = 0x70
	dmaRegDICR = 0x74

	dpcrReset = 0x07654321

	dicrForce     = 1 << 15
	dicrMasterEn  = 1 << 23
	dicrMasterBit = 1 << 31
	dicrFlagShift = 24
	dicrEnShift   = 16
)

// Memory is the RAM side of a DMA transfer.
type Memory interface {
	Read32(addr uint32) uint32
	Write32(addr uint32, val uint32)
}

// DMA is the seven-channel DMA controller. It owns the channel register
// file and the two global registers:
//
//	0x1F801080+n*0x10  MADR  base address
//	0x1F801084+n*0x10  BCR   block size (0-15), block count (16-31)
//	0x1F801088+n*0x10  CHCR  channel control
//	0x1F8010F0         DPCR  priority (bits 4n..4n+2), enable (bit 4n+3)
//	0x1F8010F4         DICR  interrupt control
//
// Transfers advance only when Step is called; every Step is one bus
// cycle granted to the controller.
type DMA struct {
	channels [dmaChannelCount]Channel
	mem      Memory

	control uint32 // DPCR

	irqDummy     uint8 // DICR bits 0-5
	forceIRQ     bool  // DICR bit 15
	irqEnable    uint8 // DICR bits 16-22
	masterEnable bool  // DICR bit 23
	irqFlags     uint8 // DICR bits 24-30
	irqLine      bool  // DICR bit 31

	// Set on a rising edge of the master flag, cleared by TakeInterrupt.
	irqAsserted bool
}

// NewDMA creates a DMA controller with peripheral ports bound to its
// channels. ports is indexed by channel; missing or nil entries are
// attached to a port that reads all ones and drops writes. Channel 6
// always drives the ordering-table generator.
func NewDMA(ports ...DMAPort) *DMA {
	d := &DMA{control: dpcrReset}
	for i := range d.channels {
		var p DMAPort = nullPort{}
		if i < len(ports) && ports[i] != nil {
			p = ports[i]
		}
		d.channels[i].port = p
	}
	d.channels[DMAOTC].port = otcPort{}
	d.channels[DMAOTC].control = otcFixedBits
	return d
}

// SetMemory sets the RAM used for transfers.
// Called after bus creation due to circular construction dependency.
func (d *DMA) SetMemory(mem Memory) {
	d.mem = mem
}

// Channel returns channel n for inspection.
func (d *DMA) Channel(n int) *Channel {
	return &d.channels[n]
}

// Reset restores power-on register values and cancels every transfer.
func (d *DMA) Reset() {
	for i := range d.channels {
		ch := &d.channels[i]
		port := ch.port
		*ch = Channel{port: port}
	}
	d.channels[DMAOTC].control = otcFixedBits
	d.control = dpcrReset
	d.irqDummy, d.irqEnable, d.irqFlags = 0, 0, 0
	d.forceIRQ, d.masterEnable, d.irqLine, d.irqAsserted = false, false, false, false
}

// priority returns the DPCR priority field of channel n.
func (d *DMA) priority(n int) uint32 {
	return (d.control >> (uint(n) * 4)) & 7
}

// channelEnabled returns the DPCR master enable bit of channel n.
func (d *DMA) channelEnabled(n int) bool {
	return d.control&(1<<(uint(n)*4+3)) != 0
}

// Read32 reads a controller register. addr may be absolute or an
// offset into the controller window; only the low 7 bits decode.
func (d *DMA) Read32(addr uint32) uint32 {
	off := addr & 0x7C
	n := int(off >> 4)
	if n < dmaChannelCount {
		ch := &d.channels[n]
		switch off & 0xF {
		case 0x0:
			return ch.base
		case 0x4:
			return ch.blockControl()
		case 0x8:
			return ch.control
		}
		return 0
	}

	switch off {
	case dmaRegDPCR:
		return d.control
	case dmaRegDICR:
		return d.interruptRegister()
	}
	return 0
}

// Read8 reads one byte of a controller register.
func (d *DMA) Read8(addr uint32) uint8 {
	shift := (addr & 3) * 8
	return uint8(d.Read32(addr) >> shift)
}

// Write8 merges one byte into a controller register. On DICR the
// acknowledge bits belonging to the other bytes are written as zero.
func (d *DMA) Write8(addr uint32, val uint8) {
	shift := (addr & 3) * 8
	mask := uint32(0xFF) << shift
	cur := d.Read32(addr)
	if addr&0x7C == dmaRegDICR {
		cur &^= 0x7F << dicrFlagShift
	}
	d.Write32(addr, cur&^mask|uint32(val)<<shift)
}

// Write32 writes a controller register.
func (d *DMA) Write32(addr uint32, val uint32) {
	off := addr & 0x7C
	n := int(off >> 4)
	if n < dmaChannelCount {
		ch := &d.channels[n]
		switch off & 0xF {
		case 0x0:
			ch.base = val & madrMask
		case 0x4:
			ch.setBlockControl(val)
		case 0x8:
			d.writeChannelControl(n, val)
		}
		return
	}

	switch off {
	case dmaRegDPCR:
		d.control = val
	case dmaRegDICR:
		d.writeInterruptRegister(val)
	}
}

// writeChannelControl handles a CHCR write. A write that keeps the
// enable bit set on an active channel leaves the transfer untouched.
// Clearing the enable bit cancels the transfer without an interrupt.
func (d *DMA) writeChannelControl(n int, val uint32) {
	ch := &d.channels[n]

	if ch.active && val&chcrEnable != 0 {
		return
	}

	if n == DMAOTC {
		ch.control = val&otcWriteMask | otcFixedBits
	} else {
		ch.control = val & chcrWriteMask
	}

	if !ch.Enabled() {
		ch.active = false
		ch.stall = 0
		return
	}
	if ch.Sync() == SyncImmediate && !ch.Triggered() {
		return
	}
	ch.arm()
}

func (d *DMA) interruptRegister() uint32 {
	v := uint32(d.irqDummy)
	if d.forceIRQ {
		v |= dicrForce
	}
	v |= uint32(d.irqEnable) << dicrEnShift
	if d.masterEnable {
		v |= dicrMasterEn
	}
	v |= uint32(d.irqFlags) << dicrFlagShift
	if d.irqLine {
		v |= dicrMasterBit
	}
	return v
}

func (d *DMA) writeInterruptRegister(val uint32) {
	d.irqDummy = uint8(val & 0x3F)
	d.forceIRQ = val&dicrForce != 0
	d.irqEnable = uint8(val>>dicrEnShift) & 0x7F
	d.masterEnable = val&dicrMasterEn != 0

	// Writing 1 to a flag acknowledges it.
	d.irqFlags &^= uint8(val>>dicrFlagShift) & 0x7F
	d.updateIRQ()
}

// updateIRQ recomputes the DICR master flag and latches a rising edge.
func (d *DMA) updateIRQ() {
	line := d.forceIRQ || (d.masterEnable && d.irqFlags&d.irqEnable != 0)
	if line && !d.irqLine {
		d.irqAsserted = true
	}
	d.irqLine = line
}

// TakeInterrupt reports and clears a pending rising edge of the DMA
// interrupt line.
func (d *DMA) TakeInterrupt() bool {
	if d.irqAsserted {
		d.irqAsserted = false
		return true
	}
	return false
}

// IRQLine returns the current DICR master flag.
func (d *DMA) IRQLine() bool {
	return d.irqLine
}

// Busy reports whether any channel still has work that Step can
// service.
func (d *DMA) Busy() bool {
	for n := range d.channels {
		if d.channels[n].active && d.channelEnabled(n) {
			return true
		}
	}
	return false
}

// selectChannel returns the runnable channel with the lowest priority
// field, ties going to the lower channel index, or -1.
func (d *DMA) selectChannel() int {
	best := -1
	var bestPrio uint32
	for n := range d.channels {
		ch := &d.channels[n]
		if !ch.active || ch.stall > 0 || !d.channelEnabled(n) {
			continue
		}
		if p := d.priority(n); best < 0 || p < bestPrio {
			best, bestPrio = n, p
		}
	}
	return best
}

// Step grants one bus cycle to the controller. The highest priority
// runnable channel moves one burst: the rest of an immediate transfer,
// one block, or one linked-list node payload, cut to the chop DMA
// window when chopping is enabled. It returns whether any channel still
// has work.
func (d *DMA) Step() bool {
	for n := range d.channels {
		if d.channels[n].stall > 0 {
			d.channels[n].stall--
		}
	}

	if n := d.selectChannel(); n >= 0 && d.mem != nil {
		switch d.channels[n].Sync() {
		case SyncLinkedList:
			d.stepLinkedList(n)
		case SyncImmediate, SyncBlock:
			d.stepBlock(n)
		default:
			// Reserved sync mode never completes on hardware; drop it.
			d.channels[n].finish()
		}
	}
	return d.Busy()
}

// stepBlock services modes 0 and 1.
func (d *DMA) stepBlock(n int) {
	ch := &d.channels[n]

	burst := ch.remaining
	if ch.Chopping() && burst > ch.chopWords() {
		burst = ch.chopWords()
	}
	d.transfer(ch, burst)

	if ch.remaining > 0 {
		if ch.Chopping() {
			ch.stall = ch.chopCycles()
		}
		return
	}

	if ch.Sync() == SyncBlock {
		ch.blocksLeft--
		ch.blockCount = uint16(ch.blocksLeft)
		ch.base = ch.cursor
		if ch.blocksLeft > 0 {
			ch.remaining = ch.wordsPerBlock()
			if ch.Chopping() {
				ch.stall = ch.chopCycles()
			}
			return
		}
	}
	d.complete(n)
}

// transfer moves up to words words between RAM and the channel port,
// decrementing remaining as it goes.
func (d *DMA) transfer(ch *Channel, words uint32) {
	for i := uint32(0); i < words && ch.remaining > 0; i++ {
		addr := ch.cursor
		if ch.FromRAM() {
			ch.port.DMAWrite(d.mem.Read32(addr))
		} else {
			last := ch.remaining == 1 && (ch.Sync() != SyncBlock || ch.blocksLeft == 1)
			d.mem.Write32(addr, ch.port.DMARead(addr, last))
		}
		ch.remaining--
		ch.advance()
	}
}

// stepLinkedList services mode 2. The header word holds the next node
// address in bits 0-23 and the payload length in bits 24-31. A node
// whose pointer carries the end marker finishes the walk without moving
// its payload. Payload words always step forward and are cut to the
// chop DMA window like the other modes.
func (d *DMA) stepLinkedList(n int) {
	ch := &d.channels[n]
	if ch.remaining == 0 {
		header := d.mem.Read32(ch.cursor)
		next := header & madrMask
		if next&dmaLinkEndFlag != 0 {
			ch.base = next
			d.complete(n)
			return
		}
		ch.remaining = header >> 24
		ch.next = next & dmaCursorMask
		ch.cursor = (ch.cursor + 4) & dmaCursorMask
	}

	burst := ch.remaining
	if ch.Chopping() && burst > ch.chopWords() {
		burst = ch.chopWords()
	}
	for i := uint32(0); i < burst; i++ {
		if ch.FromRAM() {
			ch.port.DMAWrite(d.mem.Read32(ch.cursor))
		} else {
			d.mem.Write32(ch.cursor, ch.port.DMARead(ch.cursor, false))
		}
		ch.cursor = (ch.cursor + 4) & dmaCursorMask
		ch.remaining--
	}

	if ch.remaining == 0 {
		ch.cursor = ch.next
		ch.base = ch.cursor
	}
	if ch.Chopping() {
		ch.stall = ch.chopCycles()
	}
}

// complete finishes channel n and raises its interrupt flag when the
// channel's DICR enable bit is set.
func (d *DMA) complete(n int) {
	d.channels[n].finish()
	if d.irqEnable&(1<<uint(n)) != 0 {
		d.irqFlags |= 1 << uint(n)
	}
	d.updateIRQ()
}
