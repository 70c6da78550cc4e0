package adapter

import (
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/empsx/emu"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Factory implements emucore.CoreFactory for the PlayStation GPU/DMA core.
// Content is a recorded bus trace rather than a disc image.
type Factory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "empsx",
		ConsoleName:     "Sony PlayStation",
		Extensions:      []string{".psxtrace"},
		ScreenWidth:     emu.ScreenWidth,
		MaxScreenHeight: emu.MaxScreenHeight,
		AspectRatio:     4.0 / 3.0,
		SampleRate:      44100,
		Players:         1,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         "show_vram",
				Label:       "Show Full VRAM",
				Description: "Display the whole 1024x512 VRAM instead of the display area",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryVideo,
			},
			{
				Key:         "disable_dither",
				Label:       "Disable Dithering",
				Description: "Ignore the GPU dither flag when drawing shaded primitives",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryVideo,
			},
			{
				Key:         "loop_trace",
				Label:       "Loop Trace",
				Description: "Restart the trace from the first frame when it ends",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryVideo,
			},
		},
		RDBName:       "Sony - PlayStation",
		ThumbnailRepo: "Sony_-_PlayStation",
		DataDirName:   "empsx",
		ConsoleID:     12,
		CoreName:      emu.Name,
		CoreVersion:   emu.Version,
	}
}

// CreateEmulator creates a new emulator instance replaying the given trace.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	e, err := emu.NewEmulator(rom, region)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DetectRegion reads the region flag from the trace header.
// The bool return is false since no database lookup is involved.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emu.DetectRegion(rom), false
}
