package emu

// DMA channel indices.
const (
	DMAMDECIn = iota
	DMAMDECOut
	DMAGPU
	DMACDROM
	DMASPU
	DMAPIO
	DMAOTC
	dmaChannelCount
)

// CHCR bit fields.
const (
	chcrFromRAM    = 1 << 0
	chcrBackward   = 1 << 1
	chcrChop       = 1 << 8
	chcrSyncShift  = 9
	chcrChopDMASh  = 16
	chcrChopCPUSh  = 20
	chcrEnable     = 1 << 24
	chcrTrigger    = 1 << 28
	chcrWriteMask  = 0x71770703
	otcWriteMask   = 0x51000000
	otcFixedBits   = chcrBackward
	madrMask       = 0x00FFFFFF
	dmaCursorMask  = 0x00FFFFFC
	dmaLinkEndFlag = 0x00800000
)

// SyncMode is the CHCR transfer synchronization mode.
type SyncMode uint8

const (
	SyncImmediate SyncMode = iota // whole transfer at once
	SyncBlock                     // block-by-block on request
	SyncLinkedList                // ordering-table walk
	syncReserved
)

// DMAPort is the peripheral side of a DMA channel. DMARead supplies a
// word for a transfer into RAM; last is true for the final word of the
// transfer. DMAWrite consumes a word read from RAM.
type DMAPort interface {
	DMARead(addr uint32, last bool) uint32
	DMAWrite(word uint32)
}

// nullPort backs channels whose peripheral is not attached. Reads
// return an all-ones bus value and writes are dropped.
type nullPort struct{}

func (nullPort) DMARead(uint32, bool) uint32 { return 0xFFFFFFFF }
func (nullPort) DMAWrite(uint32)             {}

// otcPort generates an empty reverse-linked ordering table: every word
// points at the entry below it and the last one is the terminator.
type otcPort struct{}

func (otcPort) DMARead(addr uint32, last bool) uint32 {
	if last {
		return 0x00FFFFFF
	}
	return (addr - 4) & 0x001FFFFF
}

func (otcPort) DMAWrite(uint32) {}

// Channel holds the register file and transfer progress of one DMA
// channel.
type Channel struct {
	base       uint32 // MADR
	blockSize  uint16 // BCR bits 0-15
	blockCount uint16 // BCR bits 16-31
	control    uint32 // CHCR

	port DMAPort

	active     bool
	cursor     uint32 // current transfer address
	remaining  uint32 // words left in the current block or node payload
	blocksLeft uint32 // blocks left including the current one (mode 1)
	next       uint32 // node after the current payload (mode 2)
	stall      int    // steps left in a chop CPU window
}

// FromRAM reports whether the channel moves data from RAM to its port.
func (ch *Channel) FromRAM() bool {
	return ch.control&chcrFromRAM != 0
}

// Backward reports whether the cursor steps by -4.
func (ch *Channel) Backward() bool {
	return ch.control&chcrBackward != 0
}

// Sync returns the synchronization mode.
func (ch *Channel) Sync() SyncMode {
	return SyncMode((ch.control >> chcrSyncShift) & 3)
}

// Chopping reports whether bursts are cut into DMA windows.
func (ch *Channel) Chopping() bool {
	return ch.control&chcrChop != 0
}

// chopWords is the DMA window length in words.
func (ch *Channel) chopWords() uint32 {
	return 1 << ((ch.control >> chcrChopDMASh) & 7)
}

// chopCycles is the CPU window length in bus cycles.
func (ch *Channel) chopCycles() int {
	return 1 << ((ch.control >> chcrChopCPUSh) & 7)
}

// Enabled reports the CHCR start/busy bit.
func (ch *Channel) Enabled() bool {
	return ch.control&chcrEnable != 0
}

// Triggered reports the CHCR manual trigger bit.
func (ch *Channel) Triggered() bool {
	return ch.control&chcrTrigger != 0
}

// Active reports whether a transfer is armed and not yet complete.
func (ch *Channel) Active() bool {
	return ch.active
}

// Cursor returns the address the next word will be moved from or to.
func (ch *Channel) Cursor() uint32 {
	return ch.cursor
}

func (ch *Channel) blockControl() uint32 {
	return uint32(ch.blockCount)<<16 | uint32(ch.blockSize)
}

func (ch *Channel) setBlockControl(v uint32) {
	ch.blockSize = uint16(v)
	ch.blockCount = uint16(v >> 16)
}

// wordsPerBlock decodes BCR block size; zero means 0x10000 words.
func (ch *Channel) wordsPerBlock() uint32 {
	if ch.blockSize == 0 {
		return 0x10000
	}
	return uint32(ch.blockSize)
}

// arm latches the transfer parameters from the register file.
func (ch *Channel) arm() {
	ch.active = true
	ch.stall = 0
	ch.cursor = ch.base & dmaCursorMask
	ch.control &^= chcrTrigger

	switch ch.Sync() {
	case SyncImmediate:
		count := uint32(ch.blockCount)
		if count == 0 {
			count = 1
		}
		ch.remaining = ch.wordsPerBlock() * count
	case SyncBlock:
		ch.blocksLeft = uint32(ch.blockCount)
		if ch.blocksLeft == 0 {
			ch.blocksLeft = 0x10000
		}
		ch.remaining = ch.wordsPerBlock()
	default:
		ch.remaining = 0
	}
}

// advance moves the cursor one word in the configured direction.
func (ch *Channel) advance() {
	if ch.Backward() {
		ch.cursor -= 4
	} else {
		ch.cursor += 4
	}
	ch.cursor &= dmaCursorMask
}

// finish drops the channel back to idle with the busy and trigger bits
// cleared.
func (ch *Channel) finish() {
	ch.active = false
	ch.stall = 0
	ch.control &^= chcrEnable | chcrTrigger
}
