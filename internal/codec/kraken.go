package codec

import (
	"context"

	"github.com/Nordgaren/dantelion-formats/internal/oodle"
)

// InflateKraken expands an Oodle Kraken-compressed DCX payload (format
// "KRAK") using the system's oo2core_6_win64.dll.
func InflateKraken(ctx context.Context, data []byte, uncompressedSize int, opts oodle.Options) ([]byte, error) {
	return oodle.Decompress(ctx, data, uncompressedSize, opts)
}
