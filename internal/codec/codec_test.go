package codec

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/require"
)

func zlibCompress(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestInflateRoundTrip(t *testing.T) {
	payload := []byte("the lands between")
	compressed := zlibCompress(t, payload)

	out, err := Inflate(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestInflateRejectsBadMagic(t *testing.T) {
	_, err := Inflate([]byte{0x1F, 0x8B, 0, 0})
	require.Error(t, err)
}

func TestInflateEdgeConcatenatesBlocks(t *testing.T) {
	blockA := []byte("erdtree")
	blockB := []byte("root")
	compA := zlibCompress(t, blockA)
	compB := zlibCompress(t, blockB)

	content := append(append([]byte{}, compA...), compB...)
	blocks := []EdgeBlock{
		{DataOffset: 0, DataLength: uint32(len(compA))},
		{DataOffset: uint32(len(compA)), DataLength: uint32(len(compB))},
	}

	out, err := InflateEdge(content, blocks, uint32(len(blockA)), uint32(len(blockB)))
	require.NoError(t, err)
	require.Equal(t, append(append([]byte{}, blockA...), blockB...), out)
}

func TestInflateEdgeRejectsOutOfRangeBlock(t *testing.T) {
	_, err := InflateEdge([]byte{1, 2, 3}, []EdgeBlock{{DataOffset: 0, DataLength: 10}}, 4, 4)
	require.Error(t, err)
}
