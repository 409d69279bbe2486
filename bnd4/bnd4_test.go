package bnd4

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildSimpleBND4 builds a little-endian BND4 with one file: no
// uncompressed_size field, no id, UTF-8 name. raw_format on disk is the
// bit-reversed form of 0b00001100 (uncompressed_size off, name present).
func buildSimpleBND4(t *testing.T, name string, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	wr := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	buf.WriteString(magic)
	wr(uint8(0)) // unk04
	wr(uint8(0)) // unk05
	wr(uint8(0)) // unk06
	wr(uint8(0)) // unk07
	wr(uint8(0)) // unk08
	wr(uint8(0)) // big_endian = false
	wr(uint8(0)) // unk0A
	wr(uint8(0)) // unk0B
	wr(uint32(1))  // file_count
	wr(uint64(0x40)) // header_size
	buf.WriteString("VERS1234") // version, 8 bytes
	wr(uint64(0x10))    // file_header_size
	wr(uint64(0))        // file_headers_end (unused by parser)
	wr(uint8(0))         // unicode = false
	wr(reverseBits(0b00001100)) // raw_format, bit-reversed because little-endian
	wr(uint8(0))         // extended
	wr(uint8(0))         // unk33
	wr(uint32(0))        // unk34
	wr(uint64(0))        // buckets_offset = 0 (no bucket table)

	wr(uint8(0x40)) // raw_flags
	wr(uint8(0))    // unk01
	wr(uint8(0))    // unk02
	wr(uint8(0))    // unk03
	wr(int32(-1))   // unk04
	wr(uint64(len(payload))) // compressed_size
	dataOffsetPos := buf.Len()
	wr(uint32(0)) // data_offset placeholder
	nameOffsetFieldPos := buf.Len()
	wr(uint32(0)) // name_offset placeholder

	nameOffset := buf.Len()
	buf.WriteString(name)
	buf.WriteByte(0)

	dataOffset := buf.Len()
	buf.Write(payload)

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[dataOffsetPos:], uint32(dataOffset))
	binary.LittleEndian.PutUint32(out[nameOffsetFieldPos:], uint32(nameOffset))
	return out
}

func TestParseSimpleContainer(t *testing.T) {
	payload := []byte("regulation")
	data := buildSimpleBND4(t, "regulation.bin", payload)

	b, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, uint32(1), b.Header.FileCount)
	require.Len(t, b.Files, 1)
	require.Equal(t, "regulation.bin", b.Files[0].Name)

	f, ok := b.FindByName("regulation.bin")
	require.True(t, ok)
	slice, err := f.Slice(data)
	require.NoError(t, err)
	require.Equal(t, payload, slice)
}

func TestReverseBits(t *testing.T) {
	require.Equal(t, uint8(0b00110000), reverseBits(0b00001100))
	require.Equal(t, uint8(0), reverseBits(0))
	require.Equal(t, uint8(0xFF), reverseBits(0xFF))
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte("NOPE"))
	require.Error(t, err)
}
