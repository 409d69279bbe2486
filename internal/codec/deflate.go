// Package codec implements the DCX payload decoders: raw zlib-framed
// deflate (DFLT and each EDGE block), Oodle Kraken (KRAK, via
// internal/oodle), and the EDGE multi-block container.
package codec

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"

	"github.com/Nordgaren/dantelion-formats/errcode"
)

// zlibSecondByteValues are the FLEVEL/FCHECK second bytes observed across
// known DCX payloads. 0x5E (FLEVEL=1) is less common than 0x9C but is a
// valid zlib header byte after 0x78, shows up in real archives, and must be
// accepted.
var zlibSecondByteValues = map[byte]bool{
	0x01: true,
	0x5E: true,
	0x9C: true,
	0xDA: true,
}

// Inflate decompresses a single zlib-framed deflate payload, as used by the
// DFLT format and by every individual block of an EDGE payload. Only the
// two-byte zlib header is validated; the trailing Adler-32 checksum is not
// verified, matching the original decoder, which strips the header and runs
// raw deflate over the remainder rather than a full zlib stream reader.
func Inflate(data []byte) ([]byte, error) {
	const op = "codec.Inflate"
	if len(data) < 2 {
		return nil, errcode.New(errcode.Decompression, op, fmt.Errorf("payload shorter than a zlib header (%d bytes)", len(data)))
	}
	if data[0] != 0x78 {
		return nil, errcode.Invariant(op, "content[0]", data[0], byte(0x78))
	}
	if !zlibSecondByteValues[data[1]] {
		return nil, errcode.Invariant(op, "content[1]", data[1], "one of {0x01, 0x5E, 0x9C, 0xDA}")
	}

	r := flate.NewReader(bytes.NewReader(data[2:]))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errcode.New(errcode.Decompression, op, err)
	}
	return out, nil
}
