package bhd5

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildDS2Header(t *testing.T, salt string, pathHash uint32, fileOffset uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	wr := func(v any) {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	buf.WriteString(magic)
	wr(uint8(0xFF)) // unk04
	wr(uint8(0))    // unk05
	wr(uint8(0))    // unk06
	wr(uint8(0))    // unk07
	wr(uint32(1))   // unk08
	wr(uint32(0))   // file_size
	wr(uint32(1))   // bucket_count
	bucketsOffsetPos := buf.Len()
	wr(uint32(0)) // buckets_offset placeholder
	wr(uint32(len(salt)))
	buf.WriteString(salt)

	bucketsOffset := buf.Len()
	wr(uint32(1)) // file_header_count
	fileHeadersOffsetPos := buf.Len()
	wr(uint32(0)) // file_headers_offset placeholder

	fileHeadersOffset := buf.Len()
	wr(pathHash)
	wr(uint32(0)) // padded_file_size
	wr(fileOffset)
	wr(uint64(0)) // salted_hash_offset
	wr(uint64(0)) // aes_key_offset

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[bucketsOffsetPos:], uint32(bucketsOffset))
	binary.LittleEndian.PutUint32(out[fileHeadersOffsetPos:], uint32(fileHeadersOffset))
	return out
}

func TestParseDS2Dialect(t *testing.T) {
	data := buildDS2Header(t, "somesalt", 0xDEADBEEF, 0x1000)

	b, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, DarkSoulsII, b.Dialect)
	require.Len(t, b.Buckets, 1)
	require.Len(t, b.Buckets[0].FileHeaders, 1)

	fh := b.Buckets[0].FileHeaders[0]
	require.Equal(t, uint64(0xDEADBEEF), fh.FilePathHash)
	require.Equal(t, uint64(0x1000), fh.FileOffset)
	require.Nil(t, fh.SaltedHash)
	require.Nil(t, fh.AESKey)
}

func TestDialectFromSaltPrefixes(t *testing.T) {
	require.Equal(t, EldenRing, dialectFromSalt([]byte("GR_abc")))
	require.Equal(t, DarkSoulsIII, dialectFromSalt([]byte("FDP_abc")))
	require.Equal(t, DarkSoulsIII, dialectFromSalt([]byte("NTC_abc")))
	require.Equal(t, DarkSoulsII, dialectFromSalt([]byte("anything")))
}

func TestFindByComputedHash(t *testing.T) {
	path := `action\chr\c0000.anibnd.dcx`
	hash := PathHash32(path)
	data := buildDS2Header(t, "ds2salt", hash, 0x2000)

	b, err := Parse(data)
	require.NoError(t, err)

	fh, ok := b.Find(path)
	require.True(t, ok)
	require.Equal(t, uint64(0x2000), fh.FileOffset)

	_, ok = b.Find("not/in/the/index")
	require.False(t, ok)
}

func TestStem(t *testing.T) {
	require.Equal(t, "Data0", Stem(filepath.Join("Games", "ELDEN RING", "Game", "Data0.bhd")))
	require.Equal(t, "Data3", Stem("Data3.bhd"))
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte("NOPE00000000000000000000000"))
	require.Error(t, err)
}
