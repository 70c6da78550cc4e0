package emu

const (
	irqBase = 0x1F801070
	irqEnd  = 0x1F801077
)

// Interrupt sources, as bit positions in I_STAT and I_MASK.
const (
	IRQVBlank = 0
	IRQGPU    = 1
	IRQCDROM  = 2
	IRQDMA    = 3
	IRQTimer0 = 4
	IRQTimer1 = 5
	IRQTimer2 = 6
	IRQPad    = 7
	IRQSIO    = 8
	IRQSPU    = 9
	IRQLight  = 10

	irqSourceMask = 0x7FF
)

// IRQController holds the interrupt status and mask registers:
//
//	0x1F801070  I_STAT  pending sources; writing 0 to a bit acknowledges it
//	0x1F801074  I_MASK  enabled sources
//
// The CPU interrupt line is Pending(). Sources latch into I_STAT on
// Raise regardless of the mask.
type IRQController struct {
	status uint32
	mask   uint32
}

// NewIRQController returns a controller with every source masked.
func NewIRQController() *IRQController {
	return &IRQController{}
}

// Raise latches source into I_STAT.
func (c *IRQController) Raise(source int) {
	c.status |= 1 << uint(source)
	c.status &= irqSourceMask
}

// Pending reports whether any unmasked source is latched.
func (c *IRQController) Pending() bool {
	return c.status&c.mask != 0
}

// Status returns I_STAT.
func (c *IRQController) Status() uint32 {
	return c.status
}

// Mask returns I_MASK.
func (c *IRQController) Mask() uint32 {
	return c.mask
}

// Read32 reads I_STAT or I_MASK.
func (c *IRQController) Read32(addr uint32) uint32 {
	switch addr & 0xC {
	case 0x0:
		return c.status
	case 0x4:
		return c.mask
	}
	return 0
}

// Write32 acknowledges I_STAT bits written as 0 or sets I_MASK.
func (c *IRQController) Write32(addr uint32, val uint32) {
	switch addr & 0xC {
	case 0x0:
		c.status &= val
	case 0x4:
		c.mask = val & irqSourceMask
	}
}

// Reset clears both registers.
func (c *IRQController) Reset() {
	c.status = 0
	c.mask = 0
}
