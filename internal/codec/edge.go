package codec

import (
	"fmt"

	"github.com/Nordgaren/dantelion-formats/errcode"
)

// EdgeBlock describes one independently deflate-compressed chunk of an
// EDGE-format DCX payload.
type EdgeBlock struct {
	DataOffset uint32
	DataLength uint32
}

// InflateEdge expands an EDGE-format DCX payload. Unlike DFLT and KRAK,
// EDGE splits the compressed content into a sequence of independently
// zlib-framed blocks (content is laid out starting at the offset the DCX
// header positions the cursor at when it finishes reading the block
// table). The decoded blocks are concatenated in order. blockSize (the
// per-block size the caller derives) and lastBlockUncompressedSize only
// size the output buffer up front; the decoded length of each block is not
// checked against them.
func InflateEdge(content []byte, blocks []EdgeBlock, blockSize, lastBlockUncompressedSize uint32) ([]byte, error) {
	const op = "codec.InflateEdge"
	if len(blocks) == 0 {
		return nil, errcode.New(errcode.Decompression, op, fmt.Errorf("no blocks"))
	}

	out := make([]byte, 0, int(blockSize)*(len(blocks)-1)+int(lastBlockUncompressedSize))
	for i, block := range blocks {
		end := int64(block.DataOffset) + int64(block.DataLength)
		if block.DataOffset > uint32(len(content)) || end > int64(len(content)) {
			return nil, errcode.New(errcode.Decompression, op, fmt.Errorf("block %d spans [%d, %d), content is %d bytes", i, block.DataOffset, end, len(content)))
		}

		decoded, err := Inflate(content[block.DataOffset:end])
		if err != nil {
			return nil, errcode.New(errcode.Decompression, op, fmt.Errorf("block %d: %w", i, err))
		}
		out = append(out, decoded...)
	}

	return out, nil
}
