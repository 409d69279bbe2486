// Package dantelion recognizes and decodes the binary formats used by
// FromSoftware's "Dantelion" engine family (Dark Souls II through Elden
// Ring): the DCX compression envelope, the BND4 file container, and the
// BHD5 encrypted header index, plus the AES-encrypted regulation blob that
// wraps a DCX+BND4 pair.
package dantelion

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Nordgaren/dantelion-formats/bhd5"
	"github.com/Nordgaren/dantelion-formats/bnd4"
	"github.com/Nordgaren/dantelion-formats/dcx"
	"github.com/Nordgaren/dantelion-formats/errcode"
	"github.com/Nordgaren/dantelion-formats/internal/oodle"
	"github.com/Nordgaren/dantelion-formats/internal/xcrypto"
)

// Kind names which format Parse recognized.
type Kind int

const (
	KindUnknown Kind = iota
	KindDCX
	KindBND4
	KindBHD5
)

func (k Kind) String() string {
	switch k {
	case KindDCX:
		return "DCX"
	case KindBND4:
		return "BND4"
	case KindBHD5:
		return "BHD5"
	default:
		return "unknown"
	}
}

// Parsed holds whichever concrete format Parse recognized; exactly one of
// DCX, BND4, or BHD5 is non-nil, matching Kind.
type Parsed struct {
	Kind Kind
	DCX  *dcx.DCX
	BND4 *bnd4.BND4
	BHD5 *bhd5.BHD5
}

// Parse recognizes data by its magic bytes and dispatches to the matching
// parser. BHD5 data is never auto-decrypted here, since doing so requires
// the archive's file name to look up its RSA key; use ParseBHD5File for
// that.
func Parse(data []byte) (*Parsed, error) {
	const op = "dantelion.Parse"

	switch {
	case dcx.Is(data):
		d, err := dcx.Parse(data)
		if err != nil {
			return nil, err
		}
		logrus.WithField("format", d.Header.Format).Debug("dantelion: recognized DCX envelope")
		return &Parsed{Kind: KindDCX, DCX: d}, nil
	case bnd4.Is(data):
		b, err := bnd4.Parse(data)
		if err != nil {
			return nil, err
		}
		logrus.WithField("file_count", b.Header.FileCount).Debug("dantelion: recognized BND4 container")
		return &Parsed{Kind: KindBND4, BND4: b}, nil
	case bhd5.Is(data):
		h, err := bhd5.Parse(data)
		if err != nil {
			return nil, err
		}
		logrus.WithField("dialect", h.Dialect).Debug("dantelion: recognized decrypted BHD5 index")
		return &Parsed{Kind: KindBHD5, BHD5: h}, nil
	default:
		return nil, errcode.New(errcode.UnsupportedFormat, op, fmt.Errorf("no known magic at start of %d byte input", len(data)))
	}
}

// ParseFile reads path and recognizes its format. A DCX envelope is
// transparently decompressed and the result re-parsed, so a compressed
// BND4 (the common case for game data) resolves straight to a BND4
// Parsed value. BHD5 files are recognized only when already decrypted; an
// encrypted .bhd file looks like opaque data to the magic-byte probe and
// must go through ParseBHD5File instead.
func ParseFile(ctx context.Context, path string) (*Parsed, error) {
	const op = "dantelion.ParseFile"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errcode.New(errcode.Io, op, err)
	}
	return parseBytes(ctx, path, data)
}

func parseBytes(ctx context.Context, path string, data []byte) (*Parsed, error) {
	if dcx.Is(data) {
		d, err := dcx.Parse(data)
		if err != nil {
			return nil, err
		}
		content, err := dcx.Decompress(ctx, d, oodle.DefaultOptions())
		if err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{"path": path, "format": d.Header.Format}).Debug("dantelion: decompressed DCX envelope")
		return parseBytes(ctx, path, content)
	}
	return Parse(data)
}

// ParseBHD5File reads an RSA-encrypted BHD5 index from path, decrypts it
// using the key registered for its base name, and parses the result.
func ParseBHD5File(path string) (*bhd5.BHD5, error) {
	const op = "dantelion.ParseBHD5File"
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errcode.New(errcode.Io, op, err)
	}
	return bhd5.ParseFile(path, data)
}

// ParseRegulation decrypts and parses a regulation blob: AES-256-CBC with
// no padding wraps a DCX envelope that, once decompressed, is a BND4
// container of the game's parameter files. key defaults to
// xcrypto.RegulationKey when nil.
func ParseRegulation(ctx context.Context, data []byte, key []byte) (*bnd4.BND4, error) {
	const op = "dantelion.ParseRegulation"
	if key == nil {
		key = xcrypto.RegulationKey[:]
	}

	plaintext, err := xcrypto.DecryptRegulation(data, key)
	if err != nil {
		return nil, err
	}

	parsed, err := parseBytes(ctx, "regulation.bin", plaintext)
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	if parsed.Kind != KindBND4 {
		return nil, errcode.New(errcode.UnsupportedFormat, op, fmt.Errorf("decrypted regulation resolved to %s, not BND4", parsed.Kind))
	}
	return parsed.BND4, nil
}
