package emu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	traceMagic   = "PSXTRACE"
	traceVersion = 1

	traceFlagPAL = 1 << 0

	traceHeaderSize = len(traceMagic) + 4
)

// Trace record opcodes.
const (
	TraceWrite32 uint8 = 0x01
	TraceWrite16 uint8 = 0x02
	TraceWrite8  uint8 = 0x03
	TraceRead32  uint8 = 0x04
	TraceLoad    uint8 = 0x05
	TraceRun     uint8 = 0x06
	TraceFrame   uint8 = 0x07
)

var (
	ErrTraceMagic     = errors.New("not a PSX bus trace")
	ErrTraceVersion   = errors.New("unsupported trace version")
	ErrTraceTruncated = errors.New("trace record truncated")
)

// TraceRecord is one recorded bus event.
type TraceRecord struct {
	Op    uint8
	Addr  uint32
	Value uint32 // write value or run length in cycles
	Data  []byte // TraceLoad payload
}

// Trace is a parsed bus trace split into frames. A trace stands in for
// the CPU: it replays the register writes and memory loads a program
// made, with Run records granting bus cycles to DMA.
//
// File layout (little endian):
//
//	"PSXTRACE" uint16 version uint16 flags
//	01 addr:u32 val:u32         32-bit write
//	02 addr:u32 val:u16         16-bit write
//	03 addr:u32 val:u8          8-bit write
//	04 addr:u32                 32-bit read, result discarded
//	05 addr:u32 len:u32 bytes   block load through the bus
//	06 cycles:u32               run DMA (0 = until idle)
//	07                          end of frame
type Trace struct {
	PAL    bool
	Frames [][]TraceRecord
}

// IsTrace reports whether data starts with a trace header.
func IsTrace(data []byte) bool {
	return len(data) >= traceHeaderSize && string(data[:len(traceMagic)]) == traceMagic
}

// ParseTrace decodes a trace file. Records after the last end-of-frame
// marker form a final frame.
func ParseTrace(data []byte) (*Trace, error) {
	if !IsTrace(data) {
		return nil, ErrTraceMagic
	}
	r := bytes.NewReader(data[len(traceMagic):])

	var hdr struct {
		Version uint16
		Flags   uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("trace header: %w", err)
	}
	if hdr.Version != traceVersion {
		return nil, fmt.Errorf("%w: %d", ErrTraceVersion, hdr.Version)
	}

	t := &Trace{PAL: hdr.Flags&traceFlagPAL != 0}
	var frame []TraceRecord
	for {
		op, err := r.ReadByte()
		if err != nil {
			break
		}
		offset := int(r.Size()) - r.Len() - 1 + len(traceMagic)

		rec, err := readTraceRecord(r, op)
		if err != nil {
			return nil, fmt.Errorf("record at offset %d: %w", offset, err)
		}
		if op == TraceFrame {
			t.Frames = append(t.Frames, frame)
			frame = nil
			continue
		}
		frame = append(frame, rec)
	}
	if len(frame) > 0 {
		t.Frames = append(t.Frames, frame)
	}
	return t, nil
}

func readTraceRecord(r *bytes.Reader, op uint8) (TraceRecord, error) {
	rec := TraceRecord{Op: op}
	u32 := func() (uint32, error) {
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, ErrTraceTruncated
		}
		return v, nil
	}

	var err error
	switch op {
	case TraceWrite32, TraceWrite16, TraceWrite8:
		if rec.Addr, err = u32(); err != nil {
			return rec, err
		}
		switch op {
		case TraceWrite32:
			rec.Value, err = u32()
		case TraceWrite16:
			var v uint16
			if binary.Read(r, binary.LittleEndian, &v) != nil {
				err = ErrTraceTruncated
			}
			rec.Value = uint32(v)
		case TraceWrite8:
			var v uint8
			if v, err = r.ReadByte(); err != nil {
				err = ErrTraceTruncated
			}
			rec.Value = uint32(v)
		}
	case TraceRead32:
		rec.Addr, err = u32()
	case TraceLoad:
		if rec.Addr, err = u32(); err != nil {
			return rec, err
		}
		var n uint32
		if n, err = u32(); err != nil {
			return rec, err
		}
		if int64(n) > int64(r.Len()) {
			return rec, ErrTraceTruncated
		}
		rec.Data = make([]byte, n)
		_, err = io.ReadFull(r, rec.Data)
	case TraceRun:
		rec.Value, err = u32()
	case TraceFrame:
	default:
		err = fmt.Errorf("unknown opcode 0x%02X", op)
	}
	return rec, err
}

// DetectRegion returns the timing region recorded in a trace header.
// Data that is not a trace reports NTSC.
func DetectRegion(data []byte) Region {
	if !IsTrace(data) {
		return RegionNTSC
	}
	flags := binary.LittleEndian.Uint16(data[len(traceMagic)+2:])
	if flags&traceFlagPAL != 0 {
		return RegionPAL
	}
	return RegionNTSC
}

// TraceBuilder assembles a trace in memory.
type TraceBuilder struct {
	buf bytes.Buffer
}

// NewTraceBuilder starts a trace with the given region flag.
func NewTraceBuilder(pal bool) *TraceBuilder {
	b := &TraceBuilder{}
	b.buf.WriteString(traceMagic)
	var flags uint16
	if pal {
		flags |= traceFlagPAL
	}
	b.put(uint16(traceVersion), flags)
	return b
}

func (b *TraceBuilder) put(vals ...any) {
	for _, v := range vals {
		// Writes to a bytes.Buffer cannot fail.
		_ = binary.Write(&b.buf, binary.LittleEndian, v)
	}
}

// Write32 records a 32-bit store.
func (b *TraceBuilder) Write32(addr, val uint32) *TraceBuilder {
	b.put(TraceWrite32, addr, val)
	return b
}

// Write16 records a 16-bit store.
func (b *TraceBuilder) Write16(addr uint32, val uint16) *TraceBuilder {
	b.put(TraceWrite16, addr, val)
	return b
}

// Write8 records an 8-bit store.
func (b *TraceBuilder) Write8(addr uint32, val uint8) *TraceBuilder {
	b.put(TraceWrite8, addr, val)
	return b
}

// Read32 records a 32-bit load made for its side effects.
func (b *TraceBuilder) Read32(addr uint32) *TraceBuilder {
	b.put(TraceRead32, addr)
	return b
}

// Load records a block copy into memory.
func (b *TraceBuilder) Load(addr uint32, data []byte) *TraceBuilder {
	b.put(TraceLoad, addr, uint32(len(data)))
	b.buf.Write(data)
	return b
}

// LoadWords records a block copy of little-endian words.
func (b *TraceBuilder) LoadWords(addr uint32, words ...uint32) *TraceBuilder {
	data := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	return b.Load(addr, data)
}

// Run records a grant of cycles bus cycles to DMA.
func (b *TraceBuilder) Run(cycles uint32) *TraceBuilder {
	b.put(TraceRun, cycles)
	return b
}

// EndFrame records an end-of-frame marker.
func (b *TraceBuilder) EndFrame() *TraceBuilder {
	b.put(TraceFrame)
	return b
}

// Bytes returns the encoded trace.
func (b *TraceBuilder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}
