package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/user-none/empsx/adapter"
	"github.com/user-none/empsx/cli"
	"github.com/user-none/empsx/emu"
)

func main() {
	tracePath := flag.String("trace", "", "path to bus trace file (required)")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	frames := flag.Int("frames", 0, "frames to run (0 = until the trace ends)")
	every := flag.Int("every", 0, "write a snapshot every N frames (0 = last frame only)")
	outDir := flag.String("out", ".", "directory for PNG snapshots")
	scale := flag.Int("scale", 1, "snapshot upscale factor")
	showVRAM := flag.Bool("vram", false, "snapshot the whole VRAM instead of the display area")
	noDither := flag.Bool("nodither", false, "disable dithering")
	flag.Parse()

	if *tracePath == "" {
		log.Fatal("Trace path is required. Usage: empsx -trace <path>")
	}

	traceData, err := os.ReadFile(*tracePath)
	if err != nil {
		log.Fatalf("Failed to load trace: %v", err)
	}

	factory := &adapter.Factory{}

	// Determine region
	var region emu.Region
	switch strings.ToLower(*regionFlag) {
	case "auto":
		region, _ = factory.DetectRegion(traceData)
	case "ntsc":
		region = emu.RegionNTSC
	case "pal":
		region = emu.RegionPAL
	default:
		log.Fatalf("Invalid region: %s (use auto, ntsc, or pal)", *regionFlag)
	}

	e, err := factory.CreateEmulator(traceData, region)
	if err != nil {
		log.Fatalf("Failed to initialize emulator: %v", err)
	}
	defer e.Close()

	if *showVRAM {
		e.SetOption("show_vram", "true")
	}
	if *noDither {
		e.SetOption("disable_dither", "true")
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	runner := cli.NewRunner(e, cli.Options{
		OutDir: *outDir,
		Every:  *every,
		Scale:  *scale,
	})
	if err := runner.Run(*frames); err != nil {
		log.Fatal(err)
	}
	for _, path := range runner.Written() {
		log.Printf("Wrote %s", path)
	}
}
