package emu

import "testing"

func gray(x, y, c int) Fragment {
	return Fragment{X: x, Y: y, R: c, G: c, B: c}
}

func TestShade_DitherOrigin(t *testing.T) {
	s := PixelState{Clip: fullClip, Dither: true}
	got, ok := s.Shade(gray(0, 0, 130), 0)
	if !ok {
		t.Fatal("expected write")
	}
	if got != 0x4210 {
		t.Errorf("expected 0x4210, got 0x%04X", got)
	}
}

func TestShade_NoDitherTruncates(t *testing.T) {
	s := PixelState{Clip: fullClip}
	got, _ := s.Shade(gray(0, 0, 135), 0)
	want := pack555(16, 16, 16, false)
	if got != want {
		t.Errorf("expected 0x%04X, got 0x%04X", want, got)
	}
}

func TestShade_DitherClampsAtEdges(t *testing.T) {
	s := PixelState{Clip: fullClip, Dither: true}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			lo, _ := s.Shade(gray(x, y, 0), 0)
			if lo != 0 {
				t.Errorf("(%d,%d): expected black to stay 0, got 0x%04X", x, y, lo)
			}
			hi, _ := s.Shade(gray(x, y, 255), 0)
			if hi&0x7FFF != 0x7FFF {
				t.Errorf("(%d,%d): expected white to stay 0x7FFF, got 0x%04X", x, y, hi)
			}
		}
	}
}

func TestQuantize_Idempotent(t *testing.T) {
	for c := 0; c < 256; c++ {
		q := quantize(c)
		if q < 0 || q > 31 {
			t.Fatalf("quantize(%d) = %d out of range", c, q)
		}
		if again := quantize(q << 3); again != q {
			t.Errorf("quantize(quantize(%d)<<3) = %d, expected %d", c, again, q)
		}
	}
}

func TestQuantize_Monotonic(t *testing.T) {
	for c := 0; c < 255; c++ {
		if quantize(c) > quantize(c+1) {
			t.Errorf("quantize(%d) = %d > quantize(%d) = %d", c, quantize(c), c+1, quantize(c+1))
		}
	}
}

func TestBlendChannel(t *testing.T) {
	tests := []struct {
		name        string
		back, front int
		mode        BlendMode
		want        int
	}{
		{"average", 20, 10, BlendAverage, 15},
		{"add", 20, 10, BlendAdd, 30},
		{"add clamps", 20, 20, BlendAdd, 31},
		{"subtract", 20, 5, BlendSubtract, 15},
		{"subtract clamps", 5, 20, BlendSubtract, 0},
		{"quarter", 10, 16, BlendQuarter, 14},
		{"quarter clamps", 31, 31, BlendQuarter, 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := blendChannel(tt.back, tt.front, tt.mode); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestShade_Blend(t *testing.T) {
	s := PixelState{Clip: fullClip, Blend: true, Mode: BlendAdd}
	dst := pack555(10, 20, 30, false)
	got, ok := s.Shade(Fragment{R: 8 << 3, G: 8 << 3, B: 8 << 3}, dst)
	if !ok {
		t.Fatal("expected write")
	}
	if want := pack555(18, 28, 31, false); got != want {
		t.Errorf("expected 0x%04X, got 0x%04X", want, got)
	}
}

func TestShade_ClipRejects(t *testing.T) {
	s := PixelState{Clip: ClipRect{Left: 10, Top: 10, Right: 20, Bottom: 20}}
	if _, ok := s.Shade(gray(9, 15, 255), 0x1234); ok {
		t.Error("expected write left of clip rejected")
	}
	if _, ok := s.Shade(gray(15, 21, 255), 0x1234); ok {
		t.Error("expected write below clip rejected")
	}
	if _, ok := s.Shade(gray(20, 20, 255), 0); !ok {
		t.Error("expected write on inclusive corner accepted")
	}
}

func TestClipRect_ReversedVertical(t *testing.T) {
	r := ClipRect{Left: 0, Top: 100, Right: 200, Bottom: 50}
	if !r.Contains(10, 75) {
		t.Error("expected y=75 inside reversed bounds")
	}
	if r.Contains(10, 101) || r.Contains(10, 49) {
		t.Error("expected points outside reversed bounds rejected")
	}

	s := PixelState{Clip: ClipRect{Left: 10, Top: 100, Right: 20, Bottom: 50}}
	if _, ok := s.Shade(gray(5, 75, 200), 0); ok {
		t.Error("expected (5,75) dropped")
	}
	if _, ok := s.Shade(gray(15, 75, 200), 0); !ok {
		t.Error("expected (15,75) written")
	}
}

func TestShade_CheckMask(t *testing.T) {
	s := PixelState{Clip: fullClip, CheckMask: true}
	if _, ok := s.Shade(gray(0, 0, 255), 0x8000); ok {
		t.Error("expected masked destination to be protected")
	}
	if _, ok := s.Shade(gray(0, 0, 255), 0x7FFF); !ok {
		t.Error("expected unmasked destination to be written")
	}
}

func TestShade_NoCheckMaskOverwrites(t *testing.T) {
	s := PixelState{Clip: fullClip}
	got, ok := s.Shade(gray(0, 0, 255), 0x8000)
	if !ok {
		t.Fatal("expected masked destination overwritten without mask check")
	}
	if got != 0x7FFF {
		t.Errorf("expected 0x7FFF, got 0x%04X", got)
	}
}

func TestShade_ForceMask(t *testing.T) {
	s := PixelState{Clip: fullClip, ForceMask: true}
	got, _ := s.Shade(gray(0, 0, 0), 0)
	if got != 0x8000 {
		t.Errorf("expected 0x8000, got 0x%04X", got)
	}

	s.ForceMask = false
	got, _ = s.Shade(Fragment{Mask: true}, 0)
	if got != 0x8000 {
		t.Errorf("expected source mask carried, got 0x%04X", got)
	}
}

func TestTransferPixel(t *testing.T) {
	s := PixelState{CheckMask: true, ForceMask: true}
	if _, ok := s.transferPixel(0x1234, 0x8000); ok {
		t.Error("expected masked destination skipped")
	}
	got, ok := s.transferPixel(0x1234, 0)
	if !ok || got != 0x9234 {
		t.Errorf("expected 0x9234, got 0x%04X (ok=%v)", got, ok)
	}
}
