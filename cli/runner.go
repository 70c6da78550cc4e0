// Package cli provides a headless command-line runner for the emulator.
// It replays frames and writes PNG snapshots of the display.
package cli

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	emucore "github.com/user-none/eblitui/api"
	"golang.org/x/image/draw"
)

// Safety cap on frames when running until the trace ends.
const maxUntilDoneFrames = 1 << 20

// Options controls snapshot output.
type Options struct {
	OutDir string // directory for PNG files
	Every  int    // write every Nth frame; 0 writes only the last frame
	Scale  int    // integer upscale factor, minimum 1
}

// snapshot is a captured frame waiting to be encoded.
type snapshot struct {
	frame int
	img   *image.RGBA
}

// Runner wraps an emulator for command-line mode.
// Frames are emulated on the calling goroutine; PNG encoding happens on
// a dedicated writer goroutine fed through a channel.
type Runner struct {
	emulator emucore.Emulator
	opts     Options

	snapshots chan snapshot
	writeDone chan struct{}
	writeErr  error
	written   []string
}

// NewRunner creates a Runner wrapping the given emulator and starts its
// writer goroutine.
func NewRunner(e emucore.Emulator, opts Options) *Runner {
	if opts.Scale < 1 {
		opts.Scale = 1
	}
	r := &Runner{
		emulator:  e,
		opts:      opts,
		snapshots: make(chan snapshot, 4),
		writeDone: make(chan struct{}),
	}
	go r.writeLoop()
	return r
}

// Run emulates frames frames, or until the trace ends when frames is
// zero, then waits for pending snapshots. Frames past the end of a
// trace hold the last display state. It returns the first write
// error. Run must be called once.
func (r *Runner) Run(frames int) error {
	done, canFinish := r.emulator.(interface{ TraceDone() bool })
	untilDone := frames <= 0
	if untilDone {
		if !canFinish {
			close(r.snapshots)
			<-r.writeDone
			return errors.New("frame count required for this core")
		}
		frames = maxUntilDoneFrames
	}

	n := 0
	for n < frames {
		r.emulator.RunFrame()
		n++
		last := n == frames || (untilDone && done.TraceDone())
		if last || (r.opts.Every > 0 && n%r.opts.Every == 0) {
			r.snapshots <- snapshot{frame: n, img: r.capture()}
		}
		if last {
			break
		}
	}

	close(r.snapshots)
	<-r.writeDone
	return r.writeErr
}

// Written returns the paths of the snapshots written so far. It is only
// safe to call after Run returns.
func (r *Runner) Written() []string {
	return r.written
}

// capture copies the active area of the framebuffer into a new image
// scaled by the configured factor.
func (r *Runner) capture() *image.RGBA {
	stride := r.emulator.GetFramebufferStride()
	width := stride / 4
	if aw, ok := r.emulator.(interface{ GetActiveWidth() int }); ok && aw.GetActiveWidth() > 0 {
		width = aw.GetActiveWidth()
	}
	height := r.emulator.GetActiveHeight()
	if height <= 0 {
		height = 1
	}

	src := &image.RGBA{
		Pix:    r.emulator.GetFramebuffer(),
		Stride: stride,
		Rect:   image.Rect(0, 0, width, height),
	}
	dst := image.NewRGBA(image.Rect(0, 0, width*r.opts.Scale, height*r.opts.Scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// writeLoop encodes snapshots until the channel closes.
func (r *Runner) writeLoop() {
	defer close(r.writeDone)

	for s := range r.snapshots {
		path := filepath.Join(r.opts.OutDir, fmt.Sprintf("frame_%05d.png", s.frame))
		if err := writePNG(path, s.img); err != nil {
			log.Printf("Warning: snapshot failed: %v", err)
			if r.writeErr == nil {
				r.writeErr = err
			}
			continue
		}
		r.written = append(r.written, path)
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
