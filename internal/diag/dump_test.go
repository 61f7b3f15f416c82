package diag

import (
	"bytes"
	"testing"

	"github.com/embtoolkit/elftoolchain-go/internal/elf"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestDumpSections_IncludesNameAndType(t *testing.T) {
	var buf bytes.Buffer
	DumpSections(&buf, []*elf.Section{
		{Name: ".text", Type: elf.SHT_PROGBITS, Addr: 0x1000, Size: 64},
	})

	out := buf.String()
	assert.Contains(t, out, ".text")
	assert.Contains(t, out, "PROGBITS")
}

func TestDumpSections_UnknownTypeFallsBackToHex(t *testing.T) {
	assert.Equal(t, "0x63", sectionTypeName(elf.SectionType(0x63)))
}

func TestDumpSymbols_IncludesNameBindingAndType(t *testing.T) {
	var buf bytes.Buffer
	DumpSymbols(&buf, []elf.Symbol{
		{Name: "main", Type: elf.STT_FUNC, Binding: elf.STB_GLOBAL, Value: 0x2000},
	})

	out := buf.String()
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "FUNC")
	assert.Contains(t, out, "GLOBAL")
}

func TestSymbolBindingName_UnknownFallsBackToHex(t *testing.T) {
	assert.Equal(t, "0x7", symbolBindingName(elf.SymbolBinding(7)))
}
