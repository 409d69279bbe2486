// Package cursor implements a random-access positioned reader over a byte
// slice, with endian-tagged integer reads and the fixed/zero-terminated/
// UTF-16 string reads the Dantelion formats need. It is the only place
// integer endianness is centralized; each parser selects it explicitly for
// its own segment of the stream.
package cursor

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/Nordgaren/dantelion-formats/errcode"
)

// Cursor is a non-owning view into a byte slice. Every typed read advances
// Pos by exactly the size of that read; reads past the end of Buf fail with
// an errcode.Io error instead of panicking.
type Cursor struct {
	Buf   []byte
	Pos   int
	Order binary.ByteOrder
}

// New creates a Cursor over buf with the given byte order.
func New(buf []byte, order binary.ByteOrder) *Cursor {
	return &Cursor{Buf: buf, Order: order}
}

// SetOrder switches the endianness used by subsequent integer reads.
func (c *Cursor) SetOrder(order binary.ByteOrder) { c.Order = order }

// Position returns the current read offset.
func (c *Cursor) Position() int { return c.Pos }

// Seek moves the cursor to an absolute offset. It does not validate the
// offset against len(Buf); an out-of-range seek only fails on the next read.
func (c *Cursor) Seek(pos int) { c.Pos = pos }

// Len returns the length of the underlying buffer.
func (c *Cursor) Len() int { return len(c.Buf) }

func (c *Cursor) need(n int) error {
	if c.Pos < 0 || n < 0 || c.Pos+n > len(c.Buf) {
		return errcode.New(errcode.Io, "cursor.read", fmt.Errorf("unexpected EOF: need %d bytes at %d, have %d", n, c.Pos, len(c.Buf)))
	}
	return nil
}

// ReadBytes reads and returns a copy of the next n bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, c.Buf[c.Pos:c.Pos+n])
	c.Pos += n
	return out, nil
}

// PeekU8 reads a single byte at an absolute offset without moving Pos.
func (c *Cursor) PeekU8(at int) (byte, error) {
	if at < 0 || at >= len(c.Buf) {
		return 0, errcode.New(errcode.Io, "cursor.peek", fmt.Errorf("unexpected EOF: offset %d, have %d", at, len(c.Buf)))
	}
	return c.Buf[at], nil
}

// ReadU8 reads one byte and advances the cursor.
func (c *Cursor) ReadU8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.Buf[c.Pos]
	c.Pos++
	return v, nil
}

// ReadBool reads one byte as a boolean (non-zero is true).
func (c *Cursor) ReadBool() (bool, error) {
	v, err := c.ReadU8()
	return v != 0, err
}

// ReadU16 reads a 16-bit unsigned integer in the cursor's current byte order.
func (c *Cursor) ReadU16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := c.Order.Uint16(c.Buf[c.Pos:])
	c.Pos += 2
	return v, nil
}

// ReadU32 reads a 32-bit unsigned integer in the cursor's current byte order.
func (c *Cursor) ReadU32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := c.Order.Uint32(c.Buf[c.Pos:])
	c.Pos += 4
	return v, nil
}

// ReadU64 reads a 64-bit unsigned integer in the cursor's current byte order.
func (c *Cursor) ReadU64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := c.Order.Uint64(c.Buf[c.Pos:])
	c.Pos += 8
	return v, nil
}

// ReadI32 reads a 32-bit signed integer in the cursor's current byte order.
func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

// ReadI64 reads a 64-bit signed integer in the cursor's current byte order.
func (c *Cursor) ReadI64() (int64, error) {
	v, err := c.ReadU64()
	return int64(v), err
}

// ReadFixedCstr reads n bytes and decodes them as ASCII/Latin-1, preserving
// any embedded NUL bytes. This is the read used for magic tokens, which are
// compared byte-for-byte including trailing NULs (e.g. "DCX\x00").
func (c *Cursor) ReadFixedCstr(n int) (string, error) {
	b, err := c.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadCstr reads a zero-terminated UTF-8 string.
func (c *Cursor) ReadCstr() (string, error) {
	start := c.Pos
	for {
		b, err := c.ReadU8()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(c.Buf[start : c.Pos-1]), nil
		}
	}
}

// ReadWcstr reads u16 code units until a zero unit, decoding as UTF-16LE
// unless the cursor's current order is big-endian.
func (c *Cursor) ReadWcstr() (string, error) {
	var units []uint16
	for {
		u, err := c.ReadU16()
		if err != nil {
			return "", err
		}
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units)), nil
}
