package emu

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseTrace_Frames(t *testing.T) {
	data := NewTraceBuilder(false).
		Write32(0x1F801814, 0x03000000).
		Write16(0x1F801074, 0x0008).
		EndFrame().
		Write8(0x1F801070, 0xF7).
		Read32(0x1F801814).
		Run(100).
		EndFrame().
		LoadWords(0x1000, 0x11223344).
		Bytes()

	tr, err := ParseTrace(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.PAL {
		t.Error("expected NTSC trace")
	}
	if len(tr.Frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(tr.Frames))
	}

	f0 := tr.Frames[0]
	if len(f0) != 2 {
		t.Fatalf("frame 0: expected 2 records, got %d", len(f0))
	}
	if f0[0].Op != TraceWrite32 || f0[0].Addr != 0x1F801814 || f0[0].Value != 0x03000000 {
		t.Errorf("frame 0 record 0: got %+v", f0[0])
	}
	if f0[1].Op != TraceWrite16 || f0[1].Value != 0x0008 {
		t.Errorf("frame 0 record 1: got %+v", f0[1])
	}

	f1 := tr.Frames[1]
	if len(f1) != 3 || f1[0].Value != 0xF7 || f1[1].Op != TraceRead32 || f1[2].Value != 100 {
		t.Errorf("frame 1: got %+v", f1)
	}

	f2 := tr.Frames[2]
	if len(f2) != 1 || f2[0].Op != TraceLoad {
		t.Fatalf("frame 2: got %+v", f2)
	}
	if !bytes.Equal(f2[0].Data, []byte{0x44, 0x33, 0x22, 0x11}) {
		t.Errorf("expected little-endian payload, got % X", f2[0].Data)
	}
}

func TestParseTrace_EmptyFrame(t *testing.T) {
	tr, err := ParseTrace(NewTraceBuilder(true).EndFrame().EndFrame().Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tr.PAL {
		t.Error("expected PAL trace")
	}
	if len(tr.Frames) != 2 {
		t.Errorf("expected 2 empty frames, got %d", len(tr.Frames))
	}
}

func TestParseTrace_BadMagic(t *testing.T) {
	_, err := ParseTrace([]byte("NOTATRACE123"))
	if !errors.Is(err, ErrTraceMagic) {
		t.Errorf("expected ErrTraceMagic, got %v", err)
	}
}

func TestParseTrace_BadVersion(t *testing.T) {
	data := NewTraceBuilder(false).Bytes()
	data[len(traceMagic)] = 9
	_, err := ParseTrace(data)
	if !errors.Is(err, ErrTraceVersion) {
		t.Errorf("expected ErrTraceVersion, got %v", err)
	}
}

func TestParseTrace_Truncated(t *testing.T) {
	data := NewTraceBuilder(false).Write32(0x1000, 1).Bytes()
	_, err := ParseTrace(data[:len(data)-2])
	if !errors.Is(err, ErrTraceTruncated) {
		t.Errorf("expected ErrTraceTruncated, got %v", err)
	}

	data = NewTraceBuilder(false).Load(0x1000, []byte{1, 2, 3, 4}).Bytes()
	_, err = ParseTrace(data[:len(data)-1])
	if !errors.Is(err, ErrTraceTruncated) {
		t.Errorf("expected ErrTraceTruncated for short load, got %v", err)
	}
}

func TestParseTrace_UnknownOpcode(t *testing.T) {
	data := append(NewTraceBuilder(false).Bytes(), 0xEE)
	if _, err := ParseTrace(data); err == nil {
		t.Error("expected error for unknown opcode")
	}
}

func TestDetectRegion(t *testing.T) {
	if got := DetectRegion(NewTraceBuilder(true).Bytes()); got != RegionPAL {
		t.Errorf("expected PAL, got %v", got)
	}
	if got := DetectRegion(NewTraceBuilder(false).Bytes()); got != RegionNTSC {
		t.Errorf("expected NTSC, got %v", got)
	}
	if got := DetectRegion([]byte("garbage")); got != RegionNTSC {
		t.Errorf("expected NTSC for non-trace data, got %v", got)
	}
}

func TestIsTrace(t *testing.T) {
	if !IsTrace(NewTraceBuilder(false).Bytes()) {
		t.Error("expected builder output to be a trace")
	}
	if IsTrace([]byte("PSXTRACE")) {
		t.Error("expected header-only magic to be rejected")
	}
}
