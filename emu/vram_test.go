package emu

import (
	"image"
	"testing"
)

func TestVRAM_Wraps(t *testing.T) {
	v := NewVRAM()
	v.Store(1024+5, 512+7, 0x1234)
	if got := v.Load(5, 7); got != 0x1234 {
		t.Errorf("expected 0x1234, got 0x%04X", got)
	}
	if got := v.Load(-1019, -505); got != 0x1234 {
		t.Errorf("expected negative coordinates to wrap, got 0x%04X", got)
	}
}

func TestVRAM_Clear(t *testing.T) {
	v := NewVRAM()
	v.Store(100, 100, 0xFFFF)
	v.Clear()
	if got := v.Load(100, 100); got != 0 {
		t.Errorf("expected 0 after clear, got 0x%04X", got)
	}
}

func TestVRAM_RenderRGBA15(t *testing.T) {
	v := NewVRAM()
	v.Store(10, 20, pack555(31, 0, 16, false))
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	v.RenderRGBA(dst, 10, 20, 2, 2, false)

	c := dst.RGBAAt(0, 0)
	if c.R != 0xFF || c.G != 0 || c.B != 0x84 || c.A != 0xFF {
		t.Errorf("expected (FF,00,84,FF), got %v", c)
	}
	// Outside the rendered area is opaque black.
	if c := dst.RGBAAt(3, 3); c.R != 0 || c.G != 0 || c.B != 0 || c.A != 0xFF {
		t.Errorf("expected opaque black outside area, got %v", c)
	}
}

func TestVRAM_RenderRGBA24(t *testing.T) {
	v := NewVRAM()
	// Two 24-bit pixels: (11,22,33) and (44,55,66) packed over three halfwords.
	v.Store(0, 0, 0x2211)
	v.Store(1, 0, 0x4433)
	v.Store(2, 0, 0x6655)
	dst := image.NewRGBA(image.Rect(0, 0, 2, 1))
	v.RenderRGBA(dst, 0, 0, 2, 1, true)

	if c := dst.RGBAAt(0, 0); c.R != 0x11 || c.G != 0x22 || c.B != 0x33 {
		t.Errorf("pixel 0: expected (11,22,33), got %v", c)
	}
	if c := dst.RGBAAt(1, 0); c.R != 0x44 || c.G != 0x55 || c.B != 0x66 {
		t.Errorf("pixel 1: expected (44,55,66), got %v", c)
	}
}
