// Package bhd5 decodes the BHD5 header index: an RSA-encrypted table
// mapping hashed file paths to their offset, size, and (for Elden Ring's
// encrypted files) AES key and per-range integrity hashes within a
// matching data archive.
package bhd5

import (
	"encoding/binary"
	"path/filepath"
	"strings"

	"github.com/Nordgaren/dantelion-formats/errcode"
	"github.com/Nordgaren/dantelion-formats/internal/cursor"
	"github.com/Nordgaren/dantelion-formats/internal/xcrypto"
)

const magic = "BHD5"

// Dialect selects the per-game file header layout. The dialect is
// determined from the header's salt string, not a version field.
type Dialect int

const (
	DarkSoulsII Dialect = iota
	DarkSoulsIII
	EldenRing
)

func (d Dialect) String() string {
	switch d {
	case DarkSoulsII:
		return "DarkSoulsII"
	case DarkSoulsIII:
		return "DarkSoulsIII"
	case EldenRing:
		return "EldenRing"
	default:
		return "unknown"
	}
}

// dialectFromSalt dispatches on the salt's prefix, matching the games'
// own KDF salt conventions.
func dialectFromSalt(salt []byte) Dialect {
	switch {
	case hasPrefix(salt, "GR_"):
		return EldenRing
	case hasPrefix(salt, "FDP_"), hasPrefix(salt, "NTC_"):
		return DarkSoulsIII
	default:
		return DarkSoulsII
	}
}

func hasPrefix(salt []byte, prefix string) bool {
	return len(salt) >= len(prefix) && string(salt[:len(prefix)]) == prefix
}

// Header is the fixed BHD5 index header.
type Header struct {
	Magic        string
	Unk04        uint8
	Unk05        uint8
	Unk06        uint8
	Unk07        uint8
	Unk08        uint32
	FileSize     uint32
	BucketCount  uint32
	BucketsOffset uint32
	SaltLen      uint32
	Salt         []byte
}

// Bucket groups file headers whose hashed path falls in the same slot.
type Bucket struct {
	FileHeaderCount  uint32
	FileHeadersOffset uint32
	FileHeaders      []FileHeader
}

// Range is a half-open byte range within the file's plaintext, covered by
// one entry of a SaltedHash or AESKey table.
type Range struct {
	Begin uint64
	End   uint64
}

// SaltedHash is the per-range SHA hash table used to validate a decrypted
// file's integrity.
type SaltedHash struct {
	Hash       []byte // 32 bytes
	RangeCount uint32
	Ranges     []Range
}

// AESKey is the per-file AES key and the byte ranges it applies to
// (Elden Ring encrypts some files in fixed-size ranges, not wholesale).
type AESKey struct {
	Key        []byte // 16 bytes
	RangeCount uint32
	Ranges     []Range
}

// FileHeader locates and (optionally) authenticates one archived file.
// SaltedHash and AESKey are nil when their offset field is zero.
type FileHeader struct {
	FilePathHash     uint64
	PaddedFileSize   uint32
	FileSize         uint64
	FileOffset       uint64
	SaltedHashOffset uint64
	AESKeyOffset     uint64
	SaltedHash       *SaltedHash
	AESKey           *AESKey
}

// BHD5 is a fully parsed header index.
type BHD5 struct {
	Dialect Dialect
	Header  Header
	Buckets []Bucket
}

const (
	saltedHashSize = 32
	aesKeySize     = 16
)

// Is reports whether data begins with the BHD5 magic.
func Is(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == magic
}

// Parse reads an already-decrypted BHD5 index. Integer fields are
// little-endian throughout, independent of platform.
func Parse(data []byte) (*BHD5, error) {
	const op = "bhd5.Parse"
	c := cursor.New(data, binary.LittleEndian)

	h, err := readHeader(c)
	if err != nil {
		return nil, err
	}
	dialect := dialectFromSalt(h.Salt)

	buckets := make([]Bucket, 0, h.BucketCount)
	for i := uint32(0); i < h.BucketCount; i++ {
		count, err := c.ReadU32()
		if err != nil {
			return nil, errcode.New(errcode.Encoding, op, err)
		}
		offset, err := c.ReadU32()
		if err != nil {
			return nil, errcode.New(errcode.Encoding, op, err)
		}

		headers, err := readFileHeaders(c, count, offset, dialect)
		if err != nil {
			return nil, err
		}

		buckets = append(buckets, Bucket{
			FileHeaderCount:   count,
			FileHeadersOffset: offset,
			FileHeaders:       headers,
		})
	}

	return &BHD5{Dialect: dialect, Header: *h, Buckets: buckets}, nil
}

// ParseFile reads an encrypted BHD5 file from disk-shaped bytes: it looks
// up the RSA key registered for name (its file stem, e.g. "Data0" for
// "Data0.bhd"), decrypts, and parses the result.
func ParseFile(name string, encrypted []byte) (*BHD5, error) {
	const op = "bhd5.ParseFile"
	key, err := xcrypto.LookupKey(name)
	if err != nil {
		return nil, err
	}

	decrypted, err := xcrypto.DecryptBHD5(encrypted, key)
	if err != nil {
		return nil, err
	}

	bhd, err := Parse(decrypted)
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	return bhd, nil
}

func readHeader(c *cursor.Cursor) (*Header, error) {
	const op = "bhd5.readHeader"
	var h Header
	var err error
	read := func(fn func() error) {
		if err == nil {
			err = fn()
		}
	}

	read(func() (e error) { h.Magic, e = c.ReadFixedCstr(4); return })
	read(func() (e error) { h.Unk04, e = c.ReadU8(); return })
	read(func() (e error) { h.Unk05, e = c.ReadU8(); return })
	read(func() (e error) { h.Unk06, e = c.ReadU8(); return })
	read(func() (e error) { h.Unk07, e = c.ReadU8(); return })
	read(func() (e error) { h.Unk08, e = c.ReadU32(); return })
	read(func() (e error) { h.FileSize, e = c.ReadU32(); return })
	read(func() (e error) { h.BucketCount, e = c.ReadU32(); return })
	read(func() (e error) { h.BucketsOffset, e = c.ReadU32(); return })
	read(func() (e error) { h.SaltLen, e = c.ReadU32(); return })
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}

	salt, err := c.ReadBytes(int(h.SaltLen))
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	h.Salt = salt

	if err := validateHeader(&h); err != nil {
		return nil, err
	}
	return &h, nil
}

func validateHeader(h *Header) error {
	const op = "bhd5.validateHeader"
	switch {
	case h.Magic != magic:
		return errcode.Invariant(op, "magic", h.Magic, magic)
	case h.Unk04 != 0xFF:
		return errcode.Invariant(op, "unk04", h.Unk04, uint8(0xFF))
	case h.Unk05 != 0 && h.Unk05 != 1:
		return errcode.Invariant(op, "unk05", h.Unk05, "0 or 1")
	case h.Unk06 != 0:
		return errcode.Invariant(op, "unk06", h.Unk06, uint8(0))
	case h.Unk07 != 0:
		return errcode.Invariant(op, "unk07", h.Unk07, uint8(0))
	case h.Unk08 != 1:
		return errcode.Invariant(op, "unk08", h.Unk08, uint32(1))
	}
	return nil
}

func readFileHeaders(c *cursor.Cursor, count, offset uint32, dialect Dialect) ([]FileHeader, error) {
	const op = "bhd5.readFileHeaders"
	start := c.Position()
	defer c.Seek(start)
	c.Seek(int(offset))

	headers := make([]FileHeader, 0, count)
	for i := uint32(0); i < count; i++ {
		var fh FileHeader
		var err error

		if dialect == EldenRing {
			fh.FilePathHash, err = c.ReadU64()
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
			fh.PaddedFileSize, err = c.ReadU32()
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
			size32, err := c.ReadU32()
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
			fh.FileSize = uint64(size32)
		} else {
			hash32, err := c.ReadU32()
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
			fh.FilePathHash = uint64(hash32)
			fh.PaddedFileSize, err = c.ReadU32()
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
		}

		fh.FileOffset, err = c.ReadU64()
		if err != nil {
			return nil, errcode.New(errcode.Encoding, op, err)
		}
		fh.SaltedHashOffset, err = c.ReadU64()
		if err != nil {
			return nil, errcode.New(errcode.Encoding, op, err)
		}
		fh.AESKeyOffset, err = c.ReadU64()
		if err != nil {
			return nil, errcode.New(errcode.Encoding, op, err)
		}

		if fh.SaltedHashOffset != 0 {
			sh, err := readSaltedHash(c, fh.SaltedHashOffset)
			if err != nil {
				return nil, err
			}
			fh.SaltedHash = sh
		}
		if fh.AESKeyOffset != 0 {
			ak, err := readAESKey(c, fh.AESKeyOffset)
			if err != nil {
				return nil, err
			}
			fh.AESKey = ak
		}

		if dialect == DarkSoulsIII {
			fh.FileSize, err = c.ReadU64()
			if err != nil {
				return nil, errcode.New(errcode.Encoding, op, err)
			}
		}

		headers = append(headers, fh)
	}

	return headers, nil
}

func readSaltedHash(c *cursor.Cursor, offset uint64) (*SaltedHash, error) {
	const op = "bhd5.readSaltedHash"
	start := c.Position()
	defer c.Seek(start)
	c.Seek(int(offset))

	hash, err := c.ReadBytes(saltedHashSize)
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	ranges, err := readRanges(c, count)
	if err != nil {
		return nil, err
	}
	return &SaltedHash{Hash: hash, RangeCount: count, Ranges: ranges}, nil
}

func readAESKey(c *cursor.Cursor, offset uint64) (*AESKey, error) {
	const op = "bhd5.readAESKey"
	start := c.Position()
	defer c.Seek(start)
	c.Seek(int(offset))

	key, err := c.ReadBytes(aesKeySize)
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	count, err := c.ReadU32()
	if err != nil {
		return nil, errcode.New(errcode.Encoding, op, err)
	}
	ranges, err := readRanges(c, count)
	if err != nil {
		return nil, err
	}
	return &AESKey{Key: key, RangeCount: count, Ranges: ranges}, nil
}

func readRanges(c *cursor.Cursor, count uint32) ([]Range, error) {
	const op = "bhd5.readRanges"
	ranges := make([]Range, 0, count)
	for i := uint32(0); i < count; i++ {
		begin, err := c.ReadU64()
		if err != nil {
			return nil, errcode.New(errcode.Encoding, op, err)
		}
		end, err := c.ReadU64()
		if err != nil {
			return nil, errcode.New(errcode.Encoding, op, err)
		}
		ranges = append(ranges, Range{Begin: begin, End: end})
	}
	return ranges, nil
}

// normalizePath lowercases a path and normalizes its separators to
// backslashes, the form the DS2/DS3 path hash is computed over.
func normalizePath(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "/", `\`))
}

// normalizePathElden lowercases a path and normalizes its separators to
// forward slashes, the form the EldenRing path hash is computed over — the
// opposite direction from normalizePath.
func normalizePathElden(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
}

// PathHash32 computes the 32-bit path hash used by DS2 and DS3 dialects:
// each byte of the normalized path folds into a running sum multiplied by
// 37, wrapping at 32 bits on every step.
func PathHash32(path string) uint32 {
	norm := normalizePath(path)
	var hash uint32
	for i := 0; i < len(norm); i++ {
		hash = hash*37 + uint32(norm[i])
	}
	return hash
}

// PathHash64 computes the 64-bit path hash used by the EldenRing dialect.
// It normalizes separators the opposite way from PathHash32
// (backslash-to-forward-slash, not forward-to-backslash) and multiplies by
// 0x85 instead of 37 on each step, matching the documented EldenRing
// variant of the algorithm; it is not PathHash32 widened to 64 bits.
func PathHash64(path string) uint64 {
	norm := normalizePathElden(path)
	var hash uint64
	for i := 0; i < len(norm); i++ {
		hash = hash*0x85 + uint64(norm[i])
	}
	return hash
}

// Find looks up the file header for path across every bucket, hashing path
// with the width its dialect stores (32 bits for DS2/DS3, 64 for ER).
func (b *BHD5) Find(path string) (*FileHeader, bool) {
	var target uint64
	if b.Dialect == EldenRing {
		target = PathHash64(path)
	} else {
		target = uint64(PathHash32(path))
	}

	for _, bucket := range b.Buckets {
		for i := range bucket.FileHeaders {
			if bucket.FileHeaders[i].FilePathHash == target {
				return &bucket.FileHeaders[i], true
			}
		}
	}
	return nil, false
}

// Stem returns a BHD5 archive's RSA key registry name: its base file name
// with the extension stripped, e.g. "Data0" for ".../Data0.bhd".
func Stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
