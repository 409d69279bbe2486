// Package dcx decodes the DCX compression envelope: a fixed header naming
// one of three payload codecs (DFLT, KRAK, EDGE) followed by the
// compressed content itself.
package dcx

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/Nordgaren/dantelion-formats/errcode"
	"github.com/Nordgaren/dantelion-formats/internal/codec"
	"github.com/Nordgaren/dantelion-formats/internal/cursor"
	"github.com/Nordgaren/dantelion-formats/internal/oodle"
)

const magic = "DCX\x00"

// Block describes one chunk of an EDGE payload's block table.
type Block struct {
	Unk00      uint32
	DataOffset uint32
	DataLength uint32
	Unk0C      uint32
}

// Header is the fixed DCX envelope header. The Egdt* fields and Blocks are
// only populated when Format is "EDGE".
type Header struct {
	Magic             string
	Unk04             uint32
	DCSOffset         uint32
	DCPOffset         uint32
	Unk10             uint32
	Unk14             uint32
	DCS               string
	UncompressedSize  uint32
	CompressedSize    uint32
	DCP               string
	Format            string
	Unk2C             uint32
	Unk30, Unk31      uint8
	Unk32, Unk33      uint8
	Unk34             uint32
	Unk38             uint32
	Unk3C             uint32
	Unk40             uint32
	DCA               string
	DCASize           uint32

	// EDGE-only fields.
	Egdt                      string
	Unk50, Unk54, Unk58, Unk5C uint32
	LastBlockUncompressedSize uint32
	EgdtSize                  uint32
	BlockCount                uint32
	Unk6C                     uint32
	Blocks                    []Block
}

// DCX is a parsed envelope: its header and the still-compressed content.
type DCX struct {
	Header  Header
	Content []byte
}

// Is reports whether data begins with the DCX magic.
func Is(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == magic
}

// Parse reads a DCX envelope. The header is always big-endian; the
// compressed content that follows is returned uninterpreted.
func Parse(data []byte) (*DCX, error) {
	const op = "dcx.Parse"
	c := cursor.New(data, binary.BigEndian)

	h, err := readHeader(c)
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	if err := validateHeader(h); err != nil {
		return nil, err
	}

	content, err := c.ReadBytes(int(h.CompressedSize))
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, fmt.Errorf("reading content: %w", err))
	}

	return &DCX{Header: *h, Content: content}, nil
}

func readHeader(c *cursor.Cursor) (*Header, error) {
	var h Header
	var err error

	read := func(fn func() error) {
		if err == nil {
			err = fn()
		}
	}

	read(func() (e error) { h.Magic, e = c.ReadFixedCstr(4); return })
	read(func() (e error) { h.Unk04, e = c.ReadU32(); return })
	read(func() (e error) { h.DCSOffset, e = c.ReadU32(); return })
	read(func() (e error) { h.DCPOffset, e = c.ReadU32(); return })
	read(func() (e error) { h.Unk10, e = c.ReadU32(); return })
	read(func() (e error) { h.Unk14, e = c.ReadU32(); return })
	read(func() (e error) { h.DCS, e = c.ReadFixedCstr(4); return })
	read(func() (e error) { h.UncompressedSize, e = c.ReadU32(); return })
	read(func() (e error) { h.CompressedSize, e = c.ReadU32(); return })
	read(func() (e error) { h.DCP, e = c.ReadFixedCstr(4); return })
	read(func() (e error) { h.Format, e = c.ReadFixedCstr(4); return })
	read(func() (e error) { h.Unk2C, e = c.ReadU32(); return })
	read(func() (e error) { h.Unk30, e = c.ReadU8(); return })
	read(func() (e error) { h.Unk31, e = c.ReadU8(); return })
	read(func() (e error) { h.Unk32, e = c.ReadU8(); return })
	read(func() (e error) { h.Unk33, e = c.ReadU8(); return })
	read(func() (e error) { h.Unk34, e = c.ReadU32(); return })
	read(func() (e error) { h.Unk38, e = c.ReadU32(); return })
	read(func() (e error) { h.Unk3C, e = c.ReadU32(); return })
	read(func() (e error) { h.Unk40, e = c.ReadU32(); return })
	read(func() (e error) { h.DCA, e = c.ReadFixedCstr(4); return })
	read(func() (e error) { h.DCASize, e = c.ReadU32(); return })
	if err != nil {
		return nil, err
	}

	if h.Format == "EDGE" {
		read(func() (e error) { h.Egdt, e = c.ReadFixedCstr(4); return })
		read(func() (e error) { h.Unk50, e = c.ReadU32(); return })
		read(func() (e error) { h.Unk54, e = c.ReadU32(); return })
		read(func() (e error) { h.Unk58, e = c.ReadU32(); return })
		read(func() (e error) { h.Unk5C, e = c.ReadU32(); return })
		read(func() (e error) { h.LastBlockUncompressedSize, e = c.ReadU32(); return })
		read(func() (e error) { h.EgdtSize, e = c.ReadU32(); return })
		read(func() (e error) { h.BlockCount, e = c.ReadU32(); return })
		read(func() (e error) { h.Unk6C, e = c.ReadU32(); return })
		if err != nil {
			return nil, err
		}

		blocks := make([]Block, 0, h.BlockCount)
		for i := uint32(0); i < h.BlockCount; i++ {
			var b Block
			read(func() (e error) { b.Unk00, e = c.ReadU32(); return })
			read(func() (e error) { b.DataOffset, e = c.ReadU32(); return })
			read(func() (e error) { b.DataLength, e = c.ReadU32(); return })
			read(func() (e error) { b.Unk0C, e = c.ReadU32(); return })
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, b)
		}
		h.Blocks = blocks
	}

	return &h, nil
}

func validateHeader(h *Header) error {
	const op = "dcx.validateHeader"
	switch {
	case h.Magic != magic:
		return errcode.Invariant(op, "magic", h.Magic, magic)
	case h.Unk04 != 0x10000 && h.Unk04 != 0x11000:
		return errcode.Invariant(op, "unk04", h.Unk04, "0x10000 or 0x11000")
	case h.DCSOffset != 0x18:
		return errcode.Invariant(op, "dcs_offset", h.DCSOffset, uint32(0x18))
	case h.DCPOffset != 0x24:
		return errcode.Invariant(op, "dcp_offset", h.DCPOffset, uint32(0x24))
	case h.Unk10 != 0x24 && h.Unk10 != 0x44:
		return errcode.Invariant(op, "unk10", h.Unk10, "0x24 or 0x44")
	case h.DCS != "DCS\x00":
		return errcode.Invariant(op, "dcs", h.DCS, "DCS\\0")
	case h.DCP != "DCP\x00":
		return errcode.Invariant(op, "dcp", h.DCP, "DCP\\0")
	case h.Format != "DFLT" && h.Format != "EDGE" && h.Format != "KRAK":
		return errcode.Invariant(op, "format", h.Format, "DFLT, EDGE, or KRAK")
	case h.Unk2C != 0x20:
		return errcode.Invariant(op, "unk2C", h.Unk2C, uint32(0x20))
	case h.Unk30 != 6 && h.Unk30 != 8 && h.Unk30 != 9:
		return errcode.Invariant(op, "unk30", h.Unk30, "6, 8, or 9")
	case h.Unk31 != 0:
		return errcode.Invariant(op, "unk31", h.Unk31, uint8(0))
	case h.Unk32 != 0:
		return errcode.Invariant(op, "unk32", h.Unk32, uint8(0))
	case h.Unk33 != 0:
		return errcode.Invariant(op, "unk33", h.Unk33, uint8(0))
	case h.Unk34 != 0 && h.Unk34 != 0x10000:
		return errcode.Invariant(op, "unk34", h.Unk34, "0 or 0x10000")
	case h.Unk38 != 0 && h.Unk38 != 0xF000000:
		return errcode.Invariant(op, "unk38", h.Unk38, "0 or 0xF000000")
	case h.Unk3C != 0:
		return errcode.Invariant(op, "unk3C", h.Unk3C, uint32(0))
	case h.DCA != "DCA\x00":
		return errcode.Invariant(op, "dca", h.DCA, "DCA\\0")
	}

	if h.Format == "EDGE" {
		switch {
		case h.Egdt != "EgdT":
			return errcode.Invariant(op, "egdt", h.Egdt, "EgdT")
		case h.Unk50 != 0x10100:
			return errcode.Invariant(op, "unk50", h.Unk50, uint32(0x10100))
		case h.Unk54 != 0x24:
			return errcode.Invariant(op, "unk54", h.Unk54, uint32(0x24))
		case h.Unk58 != 0x10:
			return errcode.Invariant(op, "unk58", h.Unk58, uint32(0x10))
		case h.Unk5C != 0x10000:
			return errcode.Invariant(op, "unk5C", h.Unk5C, uint32(0x10000))
		case h.Unk6C != 0x100000:
			return errcode.Invariant(op, "unk6C", h.Unk6C, uint32(0x100000))
		}
		for i, b := range h.Blocks {
			if b.Unk00 != 0 {
				return errcode.Invariant(op, fmt.Sprintf("blocks[%d].unk00", i), b.Unk00, uint32(0))
			}
			if b.Unk0C != 1 {
				return errcode.Invariant(op, fmt.Sprintf("blocks[%d].unk0C", i), b.Unk0C, uint32(1))
			}
		}
	}

	return nil
}

// Decompress expands the DCX payload using the codec named by the header's
// Format field. KRAK dispatches to the system Oodle library and honors
// ctx and opts; DFLT and EDGE are pure-Go zlib inflation and ignore both.
func Decompress(ctx context.Context, d *DCX, opts oodle.Options) ([]byte, error) {
	const op = "dcx.Decompress"

	switch d.Header.Format {
	case "KRAK":
		out, err := codec.InflateKraken(ctx, d.Content, int(d.Header.UncompressedSize), opts)
		if err != nil {
			return nil, errcode.New(errcode.Decompression, op, err)
		}
		return out, nil
	case "EDGE":
		blocks := make([]codec.EdgeBlock, len(d.Header.Blocks))
		for i, b := range d.Header.Blocks {
			blocks[i] = codec.EdgeBlock{DataOffset: b.DataOffset, DataLength: b.DataLength}
		}
		blockSize := d.Header.UncompressedSize
		if len(blocks) > 1 {
			blockSize = d.Header.UncompressedSize / uint32(len(blocks))
		}
		out, err := codec.InflateEdge(d.Content, blocks, blockSize, d.Header.LastBlockUncompressedSize)
		if err != nil {
			return nil, errcode.New(errcode.Decompression, op, err)
		}
		return out, nil
	default: // "DFLT"
		out, err := codec.Inflate(d.Content)
		if err != nil {
			return nil, errcode.New(errcode.Decompression, op, err)
		}
		return out, nil
	}
}

// DecompressBytes is a convenience wrapper that parses and decompresses a
// DCX envelope in one call, using default Oodle options.
func DecompressBytes(ctx context.Context, data []byte) ([]byte, error) {
	d, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Decompress(ctx, d, oodle.DefaultOptions())
}
