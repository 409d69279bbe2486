package cursor

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadIntegersLittleEndian(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	c := New(buf, binary.LittleEndian)

	u16, err := c.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0201), u16)

	u32, err := c.ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x06050403), u32)

	require.Equal(t, 6, c.Position())
}

func TestReadU64BigEndian(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 0, 0, 0, 1}
	c := New(buf, binary.BigEndian)
	v, err := c.ReadU64()
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}

func TestReadPastEndFails(t *testing.T) {
	c := New([]byte{1, 2}, binary.LittleEndian)
	_, err := c.ReadU32()
	require.Error(t, err)
}

func TestFixedCstrPreservesEmbeddedNul(t *testing.T) {
	c := New([]byte("DCX\x00"), binary.BigEndian)
	s, err := c.ReadFixedCstr(4)
	require.NoError(t, err)
	require.Equal(t, "DCX\x00", s)
}

func TestReadCstr(t *testing.T) {
	c := New([]byte("hello\x00world"), binary.LittleEndian)
	s, err := c.ReadCstr()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
	require.Equal(t, 6, c.Position())
}

func TestReadWcstrLittleEndian(t *testing.T) {
	// "hi" in UTF-16LE followed by a terminator.
	buf := []byte{'h', 0, 'i', 0, 0, 0}
	c := New(buf, binary.LittleEndian)
	s, err := c.ReadWcstr()
	require.NoError(t, err)
	require.Equal(t, "hi", s)
}

func TestPeekU8DoesNotAdvance(t *testing.T) {
	c := New([]byte{0xAA, 0xBB}, binary.LittleEndian)
	b, err := c.PeekU8(1)
	require.NoError(t, err)
	require.Equal(t, byte(0xBB), b)
	require.Equal(t, 0, c.Position())
}

func TestSeekAndRestore(t *testing.T) {
	c := New([]byte{1, 2, 3, 4}, binary.LittleEndian)
	start := c.Position()
	c.Seek(3)
	_, err := c.ReadU8()
	require.NoError(t, err)
	c.Seek(start)
	require.Equal(t, 0, c.Position())
}
