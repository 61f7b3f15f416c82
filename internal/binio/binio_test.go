package binio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_FixedWidthReads(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	c := NewCursor(buf, LittleEndian)

	b, err := c.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), b)

	u16, err := c.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0302), u16)

	u32, err := c.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x08070605), u32)
}

func TestCursor_U64BigEndian(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 0, 0, 0, 1}
	c := NewCursor(buf, BigEndian)

	v, err := c.U64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
}

func TestCursor_TruncatedReadsFail(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02}, LittleEndian)

	_, err := c.U32()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCursor_SeekAndRemaining(t *testing.T) {
	c := NewCursor(make([]byte, 10), LittleEndian)
	assert.Equal(t, 10, c.Remaining())

	c.Seek(4)
	assert.Equal(t, 4, c.Pos())
	assert.Equal(t, 6, c.Remaining())
	assert.False(t, c.AtEnd())

	c.Seek(10)
	assert.True(t, c.AtEnd())
}

func TestCursor_UOffset(t *testing.T) {
	buf := make([]byte, 12)
	enc := NewEncoder(LittleEndian)
	enc.PutUint32(buf[0:4], 0xdeadbeef)
	enc.PutUint64(buf[4:12], 0x1122334455667788)

	c := NewCursor(buf, LittleEndian)
	v32, err := c.UOffset(false)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdeadbeef), v32)

	v64, err := c.UOffset(true)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1122334455667788), v64)
}

func TestCursor_CString(t *testing.T) {
	buf := []byte("hello\x00world\x00")
	c := NewCursor(buf, LittleEndian)

	s, err := c.CString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = c.CString()
	require.NoError(t, err)
	assert.Equal(t, "world", s)
}

func TestCursor_CStringUnterminatedFails(t *testing.T) {
	c := NewCursor([]byte("no terminator"), LittleEndian)

	_, err := c.CString()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestULEB128_RoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 255, 300, 1 << 32, 1<<64 - 1}
	for _, v := range cases {
		buf := PutULEB128(nil, v)
		c := NewCursor(buf, LittleEndian)
		got, err := c.ULEB128()
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, len(buf), SizeofULEB128(v))
	}
}

func TestSLEB128_RoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 63, -64, 64, -65, 1 << 30, -(1 << 30)}
	for _, v := range cases {
		buf := PutSLEB128(nil, v)
		c := NewCursor(buf, LittleEndian)
		got, err := c.SLEB128()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestULEB128_KnownEncoding(t *testing.T) {
	// 624485 encodes to 0xE5 0x8E 0x26 per the DWARF spec's own example.
	buf := PutULEB128(nil, 624485)
	assert.Equal(t, []byte{0xE5, 0x8E, 0x26}, buf)
}
