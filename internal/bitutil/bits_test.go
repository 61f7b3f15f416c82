package bitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllOnes(t *testing.T) {
	assert.Equal(t, uint32(0), AllOnes[uint32](0))
	assert.Equal(t, uint32(0x1), AllOnes[uint32](1))
	assert.Equal(t, uint32(0xff), AllOnes[uint32](8))
	assert.Equal(t, uint64(0xffffffffffffffff), AllOnes[uint64](64))
}

func TestView_ReadWrite(t *testing.T) {
	var word uint32
	v := Of(&word)

	v.Set(0x3, 4, 2)
	assert.Equal(t, uint32(0x3)<<4, v.Value())
	assert.Equal(t, uint32(0x3), v.Read(4, 2))

	v.Clear(4, 2)
	assert.Equal(t, uint32(0), v.Value())
}

func TestView_SetDoesNotClearExistingBits(t *testing.T) {
	var word uint32 = 0xff
	v := Of(&word)

	v.Set(0x1, 8, 1)
	assert.Equal(t, uint32(0x1ff), v.Value())
}

func TestHasFlag(t *testing.T) {
	assert.True(t, HasFlag(uint32(0b1110), uint32(0b0110)))
	assert.False(t, HasFlag(uint32(0b1010), uint32(0b0110)))
}

func TestAlignUp(t *testing.T) {
	cases := []struct {
		addr, align, want uint64
	}{
		{0, 0, 0},
		{5, 1, 5},
		{5, 4, 8},
		{8, 4, 8},
		{1, 16, 16},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AlignUp(tc.addr, tc.align))
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	assert.False(t, IsPowerOfTwo(uint32(0)))
	assert.True(t, IsPowerOfTwo(uint32(1)))
	assert.True(t, IsPowerOfTwo(uint32(2)))
	assert.False(t, IsPowerOfTwo(uint32(3)))
	assert.True(t, IsPowerOfTwo(uint32(1024)))
}
