package dantelion

import (
	"bytes"
	"compress/zlib"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Nordgaren/dantelion-formats/internal/xcrypto"
)

func buildDFLTEnvelope(t *testing.T, payload []byte) []byte {
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
	wr(uint32(0x10000))
	wr(uint32(0x18))
	wr(uint32(0x24))
	wr(uint32(0x24))
	wr(uint32(0))
	buf.WriteString("DCS\x00")
	wr(uint32(len(payload)))
	wr(uint32(len(content)))
	buf.WriteString("DCP\x00")
	buf.WriteString("DFLT")
	wr(uint32(0x20))
	wr(uint8(9))
	wr(uint8(0))
	wr(uint8(0))
	wr(uint8(0))
	wr(uint32(0))
	wr(uint32(0))
	wr(uint32(0))
	wr(uint32(0))
	buf.WriteString("DCA\x00")
	wr(uint32(8))
	buf.Write(content)
	return buf.Bytes()
}

func TestParseRecognizesDCX(t *testing.T) {
	data := buildDFLTEnvelope(t, []byte("rennala"))
	p, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, KindDCX, p.Kind)
	require.NotNil(t, p.DCX)
}

func TestParseFileUnwrapsDCXEnvelope(t *testing.T) {
	dir := t.TempDir()
	data := buildDFLTEnvelope(t, []byte("BND4"))
	path := filepath.Join(dir, "test.dcx")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	// The decompressed content here is just the literal bytes "BND4",
	// too short to be a real container; ParseFile still unwraps the DCX
	// layer before the BND4 parser rejects it for being too short.
	_, err := ParseFile(context.Background(), path)
	require.Error(t, err)
}

func TestParseRegulationRoundTrip(t *testing.T) {
	envelope := buildDFLTEnvelope(t, []byte("<PARAMDEF/>"))

	key := xcrypto.RegulationKey[:]
	iv := bytes.Repeat([]byte{0x11}, aes.BlockSize)
	padded := make([]byte, len(envelope))
	copy(padded, envelope)
	for len(padded)%aes.BlockSize != 0 {
		padded = append(padded, 0)
	}

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	blob := append(append([]byte{}, iv...), ciphertext...)

	// The decrypted, decompressed payload is "<PARAMDEF/>", which carries
	// no known magic, so this exercises the AES + DCX unwrap path down to
	// (and including) the facade's magic-byte dispatch rejecting it.
	_, err = ParseRegulation(context.Background(), blob, nil)
	require.Error(t, err)
}

func TestParseUnknownFormat(t *testing.T) {
	_, err := Parse([]byte("NOPE"))
	require.Error(t, err)
}
