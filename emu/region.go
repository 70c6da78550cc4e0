package emu

import emucore "github.com/user-none/eblitui/api"

// Region is an alias for emucore.Region so internal code compiles unchanged.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// RegionTiming holds timing constants for a specific region.
// The system bus runs at the CPU clock in both regions; only the video
// timing differs.
type RegionTiming struct {
	BusClockHz int // R3000A / system bus clock frequency
	Scanlines  int // Total scanlines per frame
	FPS        int // Frames per second
}

// NTSC timing: 33.8688 MHz, 263 scanlines, 60 Hz
var NTSCTiming = RegionTiming{
	BusClockHz: 33868800,
	Scanlines:  263,
	FPS:        60,
}

// PAL timing: 33.8688 MHz, 314 scanlines, 50 Hz
var PALTiming = RegionTiming{
	BusClockHz: 33868800,
	Scanlines:  314,
	FPS:        50,
}

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// CyclesPerFrame returns the bus cycles in one video frame.
func (t RegionTiming) CyclesPerFrame() int {
	return t.BusClockHz / t.FPS
}

// DefaultRegion returns the default region (NTSC).
func DefaultRegion() Region {
	return RegionNTSC
}
