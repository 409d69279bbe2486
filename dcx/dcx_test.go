package dcx

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildDFLTHeader(t *testing.T, payload []byte) []byte {
	t.Helper()
	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	content := compressed.Bytes()

	var buf bytes.Buffer
	wr := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.BigEndian, v))
	}

	buf.WriteString("DCX\x00")
	wr(uint32(0x10000))      // unk04
	wr(uint32(0x18))         // dcs_offset
	wr(uint32(0x24))         // dcp_offset
	wr(uint32(0x24))         // unk10
	wr(uint32(0))            // unk14
	buf.WriteString("DCS\x00")
	wr(uint32(len(payload))) // uncompressed_size
	wr(uint32(len(content))) // compressed_size
	buf.WriteString("DCP\x00")
	buf.WriteString("DFLT")
	wr(uint32(0x20)) // unk2C
	wr(uint8(9))      // unk30
	wr(uint8(0))      // unk31
	wr(uint8(0))      // unk32
	wr(uint8(0))      // unk33
	wr(uint32(0))     // unk34
	wr(uint32(0))     // unk38
	wr(uint32(0))     // unk3C
	wr(uint32(0))     // unk40
	buf.WriteString("DCA\x00")
	wr(uint32(8)) // dca_size

	buf.Write(content)
	return buf.Bytes()
}

func TestIs(t *testing.T) {
	require.True(t, Is([]byte("DCX\x00rest")))
	require.False(t, Is([]byte("BND4")))
}

func TestParseAndDecompressDFLT(t *testing.T) {
	payload := []byte("margit the fell omen")
	data := buildDFLTHeader(t, payload)

	d, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, "DFLT", d.Header.Format)
	require.Equal(t, uint32(len(payload)), d.Header.UncompressedSize)

	out, err := DecompressBytes(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte("NOPE0000000000000000000000000000000000000000000000"))
	require.Error(t, err)
}
