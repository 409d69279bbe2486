// Package bnd4 decodes the BND4 file container: a header naming how many
// files it holds and which optional per-file fields are present, followed
// by one fixed-format entry per file and, optionally, a name/data lookup
// bucket table.
package bnd4

import (
	"encoding/binary"
	"fmt"

	"github.com/Nordgaren/dantelion-formats/errcode"
	"github.com/Nordgaren/dantelion-formats/internal/cursor"
)

const magic = "BND4"

// Header is the fixed BND4 container header.
type Header struct {
	Magic           string
	Unk04           uint8
	Unk05           uint8
	Unk06           uint8
	Unk07           uint8
	Unk08           uint8
	BigEndian       bool
	Unk0A           uint8
	Unk0B           uint8
	FileCount       uint32
	HeaderSize      uint64
	Version         string
	FileHeaderSize  uint64
	FileHeadersEnd  uint64
	Unicode         bool
	RawFormat       uint8
	Extended        uint8
	Unk33           uint8
	Unk34           uint32
	BucketsOffset   uint64
}

// File is one entry's header and (if it parsed a name) its resolved name.
// It holds no payload bytes; Slice resolves them out of the original buffer
// using DataOffset and CompressedSize, since BND4 files are never
// individually compressed.
type File struct {
	RawFlags         uint8
	Unk01            uint8
	Unk02            uint8
	Unk03            uint8
	Unk04            int32
	CompressedSize   uint64
	UncompressedSize *uint64
	DataOffset       uint32
	ID               *int32
	NameOffset       *uint32
	Zero             *uint32
	Name             string
}

// BucketHeader indexes files by hashed name for fast lookup; it is present
// only when Header.BucketsOffset is non-zero.
type BucketHeader struct {
	HashesOffset      uint64
	BucketCount       uint32
	BucketsHeaderSize uint8
	BucketSize        uint8
	HashSize          uint8
	Unk0F             uint8
	Buckets           []Bucket
	Hashes            []Hash
}

// Bucket is one entry of the bucket table: a run of Hashes starting at
// Index, Count long.
type Bucket struct {
	Count uint32
	Index uint32
}

// Hash is one hashed-name-to-file-index entry.
type Hash struct {
	HashValue uint32
	Index     uint32
}

// BND4 is a fully parsed container.
type BND4 struct {
	Header  Header
	Files   []File
	Buckets *BucketHeader
}

// Is reports whether data begins with the BND4 magic.
func Is(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == magic
}

// Parse reads a BND4 container from uncompressed bytes. Unlike the
// original format dump this does not auto-unwrap a DCX envelope; callers
// holding a compressed blob should dcx.DecompressBytes it first (see
// dantelion.ParseFile, which does this for the whole-file entry point).
func Parse(data []byte) (*BND4, error) {
	const op = "bnd4.Parse"

	probe := cursor.New(data, binary.BigEndian)
	m, err := probe.ReadFixedCstr(4)
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	if m != magic {
		return nil, errcode.Invariant(op, "magic", m, magic)
	}
	unk04, err := probe.ReadU8()
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	unk05, err := probe.ReadU8()
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	unk06, err := probe.ReadU8()
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	unk07, err := probe.ReadU8()
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	unk08, err := probe.ReadU8()
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	bigEndian, err := probe.ReadBool()
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}

	order := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		order = binary.BigEndian
	}
	c := cursor.New(data, order)
	c.Seek(probe.Position())

	h := &Header{
		Magic:     m,
		Unk04:     unk04,
		Unk05:     unk05,
		Unk06:     unk06,
		Unk07:     unk07,
		Unk08:     unk08,
		BigEndian: bigEndian,
	}

	var readErr error
	read := func(fn func() error) {
		if readErr == nil {
			readErr = fn()
		}
	}
	read(func() (e error) { h.Unk0A, e = c.ReadU8(); return })
	read(func() (e error) { h.Unk0B, e = c.ReadU8(); return })
	read(func() (e error) { h.FileCount, e = c.ReadU32(); return })
	read(func() (e error) { h.HeaderSize, e = c.ReadU64(); return })
	read(func() (e error) { h.Version, e = c.ReadFixedCstr(8); return })
	read(func() (e error) { h.FileHeaderSize, e = c.ReadU64(); return })
	read(func() (e error) { h.FileHeadersEnd, e = c.ReadU64(); return })
	read(func() (e error) { h.Unicode, e = c.ReadBool(); return })
	read(func() (e error) { h.RawFormat, e = c.ReadU8(); return })
	read(func() (e error) { h.Extended, e = c.ReadU8(); return })
	read(func() (e error) { h.Unk33, e = c.ReadU8(); return })
	read(func() (e error) { h.Unk34, e = c.ReadU32(); return })
	read(func() (e error) { h.BucketsOffset, e = c.ReadU64(); return })
	if readErr != nil {
		return nil, errcode.New(errcode.Encoding, op, readErr)
	}

	if err := validateHeader(h); err != nil {
		return nil, err
	}

	files, err := readFiles(c, h)
	if err != nil {
		return nil, err
	}

	var buckets *BucketHeader
	if h.BucketsOffset != 0 {
		buckets, err = readBucketHeader(c, h)
		if err != nil {
			return nil, err
		}
	}

	return &BND4{Header: *h, Files: files, Buckets: buckets}, nil
}

func validateHeader(h *Header) error {
	const op = "bnd4.validateHeader"
	switch {
	case h.Magic != magic:
		return errcode.Invariant(op, "magic", h.Magic, magic)
	case h.Unk04 != 0 && h.Unk04 != 1:
		return errcode.Invariant(op, "unk04", h.Unk04, "0 or 1")
	case h.Unk05 != 0 && h.Unk05 != 1:
		return errcode.Invariant(op, "unk05", h.Unk05, "0 or 1")
	case h.Unk06 != 0:
		return errcode.Invariant(op, "unk06", h.Unk06, uint8(0))
	case h.Unk07 != 0:
		return errcode.Invariant(op, "unk07", h.Unk07, uint8(0))
	case h.Unk08 != 0:
		return errcode.Invariant(op, "unk08", h.Unk08, uint8(0))
	case h.Unk0A != 0 && h.Unk0A != 1:
		return errcode.Invariant(op, "unk0A", h.Unk0A, "0 or 1")
	case h.Unk0B != 0:
		return errcode.Invariant(op, "unk0B", h.Unk0B, uint8(0))
	case h.HeaderSize != 0x40:
		return errcode.Invariant(op, "header_size", h.HeaderSize, uint64(0x40))
	case h.Extended != 0 && h.Extended != 4:
		return errcode.Invariant(op, "extended", h.Extended, "0 or 4")
	case h.Unk33 != 0:
		return errcode.Invariant(op, "unk33", h.Unk33, uint8(0))
	case h.Unk34 != 0:
		return errcode.Invariant(op, "unk34", h.Unk34, uint32(0))
	}
	return nil
}

func validateFile(f *File) error {
	const op = "bnd4.validateFile"
	switch {
	case f.Unk01 != 0:
		return errcode.Invariant(op, "unk01", f.Unk01, uint8(0))
	case f.Unk02 != 0:
		return errcode.Invariant(op, "unk02", f.Unk02, uint8(0))
	case f.Unk03 != 0:
		return errcode.Invariant(op, "unk03", f.Unk03, uint8(0))
	case f.Unk04 != -1:
		return errcode.Invariant(op, "unk04", f.Unk04, int32(-1))
	}
	return nil
}

// reverseBits reverses the bit order of a single byte. The on-disk format
// byte is always written most-significant-bit first; when the container is
// little-endian the byte arrives bit-reversed and must be un-reversed
// before its flag bits mean anything.
func reverseBits(b uint8) uint8 {
	var rev uint8
	for i := 0; i < 8; i++ {
		if b&(1<<i) != 0 {
			rev |= 1 << (7 - i)
		}
	}
	return rev
}

func readFiles(c *cursor.Cursor, h *Header) ([]File, error) {
	const op = "bnd4.readFiles"

	format := h.RawFormat
	if !h.BigEndian {
		format = reverseBits(h.RawFormat)
	}

	hasUncompressedSize := format&0b00100000 != 0
	hasID := format&0b00000010 != 0
	hasNameOffset := format&0b00000100 != 0 || format&0b00001000 != 0
	shortFormatIDQuirk := format == 0b00000100

	files := make([]File, 0, h.FileCount)
	for i := uint32(0); i < h.FileCount; i++ {
		var f File
		var readErr error
		read := func(fn func() error) {
			if readErr == nil {
				readErr = fn()
			}
		}

		read(func() (e error) { f.RawFlags, e = c.ReadU8(); return })
		read(func() (e error) { f.Unk01, e = c.ReadU8(); return })
		read(func() (e error) { f.Unk02, e = c.ReadU8(); return })
		read(func() (e error) { f.Unk03, e = c.ReadU8(); return })
		read(func() (e error) { f.Unk04, e = c.ReadI32(); return })
		read(func() (e error) { f.CompressedSize, e = c.ReadU64(); return })
		if readErr != nil {
			return nil, errcode.New(errcode.Encoding, op, readErr)
		}

		if hasUncompressedSize {
			v, err := c.ReadU64()
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
			f.UncompressedSize = &v
		}

		dataOffset, err := c.ReadU32()
		if err != nil {
			return nil, errcode.New(errcode.Encoding, op, err)
		}
		f.DataOffset = dataOffset

		if hasID {
			v, err := c.ReadI32()
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
			f.ID = &v
		}

		var nameOffset *uint32
		if hasNameOffset {
			v, err := c.ReadU32()
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
			nameOffset = &v
		}
		f.NameOffset = nameOffset

		if shortFormatIDQuirk {
			v, err := c.ReadI32()
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
			f.ID = &v
			z, err := c.ReadU32()
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
			f.Zero = &z
		}

		if nameOffset != nil {
			name, err := readFileName(c, *nameOffset, h.Unicode)
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
			f.Name = name
		}

		if err := validateFile(&f); err != nil {
			return nil, err
		}

		files = append(files, f)
	}

	return files, nil
}

func readFileName(c *cursor.Cursor, offset uint32, unicode bool) (string, error) {
	start := c.Position()
	defer c.Seek(start)

	c.Seek(int(offset))
	if unicode {
		return c.ReadWcstr()
	}
	return c.ReadCstr()
}

func readBucketHeader(c *cursor.Cursor, h *Header) (*BucketHeader, error) {
	const op = "bnd4.readBucketHeader"
	start := c.Position()
	defer c.Seek(start)

	c.Seek(int(h.BucketsOffset))

	var bh BucketHeader
	var readErr error
	read := func(fn func() error) {
		if readErr == nil {
			readErr = fn()
		}
	}
	read(func() (e error) { bh.HashesOffset, e = c.ReadU64(); return })
	read(func() (e error) { bh.BucketCount, e = c.ReadU32(); return })
	read(func() (e error) { bh.BucketsHeaderSize, e = c.ReadU8(); return })
	read(func() (e error) { bh.BucketSize, e = c.ReadU8(); return })
	read(func() (e error) { bh.HashSize, e = c.ReadU8(); return })
	read(func() (e error) { bh.Unk0F, e = c.ReadU8(); return })
	if readErr != nil {
		return nil, errcode.New(errcode.Encoding, op, readErr)
	}

	buckets := make([]Bucket, 0, bh.BucketCount)
	for i := uint32(0); i < bh.BucketCount; i++ {
		var b Bucket
		read(func() (e error) { b.Count, e = c.ReadU32(); return })
		read(func() (e error) { b.Index, e = c.ReadU32(); return })
		if readErr != nil {
			return nil, errcode.New(errcode.Encoding, op, readErr)
		}
		buckets = append(buckets, b)
	}
	bh.Buckets = buckets

	c.Seek(int(bh.HashesOffset))
	hashes := make([]Hash, 0, h.FileCount)
	for i := uint32(0); i < h.FileCount; i++ {
		var hh Hash
		read(func() (e error) { hh.HashValue, e = c.ReadU32(); return })
		read(func() (e error) { hh.Index, e = c.ReadU32(); return })
		if readErr != nil {
			return nil, errcode.New(errcode.Encoding, op, readErr)
		}
		hashes = append(hashes, hh)
	}
	bh.Hashes = hashes

	return &bh, nil
}

// FindByName returns the first file whose resolved Name matches name.
func (b *BND4) FindByName(name string) (*File, bool) {
	for i := range b.Files {
		if b.Files[i].Name == name {
			return &b.Files[i], true
		}
	}
	return nil, false
}

// Slice returns the raw, uncompressed bytes of f within the container's
// backing buffer.
func (f *File) Slice(data []byte) ([]byte, error) {
	const op = "bnd4.File.Slice"
	end := int64(f.DataOffset) + int64(f.CompressedSize)
	if f.DataOffset > uint32(len(data)) || end > int64(len(data)) {
		return nil, errcode.New(errcode.Encoding, op, fmt.Errorf("file spans [%d, %d), container is %d bytes", f.DataOffset, end, len(data)))
	}
	return data[f.DataOffset:end], nil
}
