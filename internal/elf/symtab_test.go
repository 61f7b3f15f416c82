package elf

import (
	"testing"

	"github.com/embtoolkit/elftoolchain-go/internal/binio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStrtab(names ...string) (strtab []byte, offsets []uint32) {
	strtab = []byte{0}
	for _, n := range names {
		offsets = append(offsets, uint32(len(strtab)))
		strtab = append(strtab, n...)
		strtab = append(strtab, 0)
	}
	return strtab, offsets
}

func TestSymbolTable_EncodeDecodeRoundTrip64(t *testing.T) {
	strtab, offsets := buildStrtab("_reserved_", "main")

	var buf []byte
	buf = EncodeSymbol(buf, binio.LittleEndian, true, Symbol{}) // reserved index 0
	buf = EncodeSymbol(buf, binio.LittleEndian, true, Symbol{
		NameIndex: offsets[1],
		Binding:   STB_GLOBAL,
		Type:      STT_FUNC,
		Section:   1,
		Value:     0x1000,
		Size:      64,
	})

	syms, err := DecodeSymbolTable(buf, strtab, binio.LittleEndian, true)
	require.NoError(t, err)
	require.Len(t, syms, 2)

	assert.Equal(t, "", syms[0].Name)
	assert.Equal(t, "main", syms[1].Name)
	assert.Equal(t, STB_GLOBAL, syms[1].Binding)
	assert.Equal(t, STT_FUNC, syms[1].Type)
	assert.Equal(t, uint64(0x1000), syms[1].Value)
	assert.Equal(t, uint64(64), syms[1].Size)
}

func TestSymbolTable_EncodeDecodeRoundTrip32(t *testing.T) {
	strtab, offsets := buildStrtab("_reserved_", "data_sym")

	var buf []byte
	buf = EncodeSymbol(buf, binio.BigEndian, false, Symbol{})
	buf = EncodeSymbol(buf, binio.BigEndian, false, Symbol{
		NameIndex: offsets[1],
		Binding:   STB_LOCAL,
		Type:      STT_OBJECT,
		Section:   2,
		Value:     0x200,
		Size:      4,
	})

	syms, err := DecodeSymbolTable(buf, strtab, binio.BigEndian, false)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "data_sym", syms[1].Name)
	assert.Equal(t, STB_LOCAL, syms[1].Binding)
	assert.Equal(t, STT_OBJECT, syms[1].Type)
}

func TestDecodeSymbolTable_RejectsMisalignedPayload(t *testing.T) {
	_, err := DecodeSymbolTable(make([]byte, 17), nil, binio.LittleEndian, true)
	require.ErrorIs(t, err, ErrTruncatedSection)
}

func TestRelocationTable_EncodeDecodeRoundTripWithAddend(t *testing.T) {
	var buf []byte
	buf = EncodeRelocation(buf, binio.LittleEndian, true, Relocation{
		Offset:    0x10,
		Symbol:    3,
		Type:      1,
		Addend:    -8,
		HasAddend: true,
	})

	relocs, err := DecodeRelocationTable(buf, binio.LittleEndian, true, true)
	require.NoError(t, err)
	require.Len(t, relocs, 1)
	assert.Equal(t, uint64(0x10), relocs[0].Offset)
	assert.Equal(t, uint32(3), relocs[0].Symbol)
	assert.Equal(t, uint32(1), relocs[0].Type)
	assert.Equal(t, int64(-8), relocs[0].Addend)
}

func TestRelocationTable_EncodeDecodeRoundTrip32WithoutAddend(t *testing.T) {
	var buf []byte
	buf = EncodeRelocation(buf, binio.BigEndian, false, Relocation{
		Offset: 0x40,
		Symbol: 7,
		Type:   2,
	})

	relocs, err := DecodeRelocationTable(buf, binio.BigEndian, false, false)
	require.NoError(t, err)
	require.Len(t, relocs, 1)
	assert.Equal(t, uint64(0x40), relocs[0].Offset)
	assert.Equal(t, uint32(7), relocs[0].Symbol)
	assert.Equal(t, uint32(2), relocs[0].Type)
	assert.False(t, relocs[0].HasAddend)
}

func TestDecodeRelocationTable_RejectsMisalignedPayload(t *testing.T) {
	_, err := DecodeRelocationTable(make([]byte, 5), binio.LittleEndian, true, true)
	require.ErrorIs(t, err, ErrTruncatedSection)
}
