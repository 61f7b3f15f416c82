package rewrite

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/embtoolkit/elftoolchain-go/internal/binio"
	"github.com/embtoolkit/elftoolchain-go/internal/elf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_NoopProgramReturnsInputUnchanged(t *testing.T) {
	obj := fixtureObject(".text")
	result, err := Run(obj, &Program{}, nil)
	require.NoError(t, err)
	assert.Same(t, obj, result.Object)
}

func TestRun_SymbolWorkRequestedWithoutSymtabErrors(t *testing.T) {
	obj := fixtureObject(".text")
	prog := &Program{Symbols: SymbolProgram{StripAll: true}}

	_, err := Run(obj, prog, nil)
	require.Error(t, err)
}

func TestRun_SectionOnlyRewriteWithoutSymtabSucceeds(t *testing.T) {
	obj := fixtureObject(".text", ".data")
	prog := &Program{Sections: SectionProgram{
		Rules: []SectionRule{{Kind: SectionRemove, Name: ".data"}},
	}}

	result, err := Run(obj, prog, nil)
	require.NoError(t, err)
	assert.Nil(t, result.Object.SectionByName(".data"))
	assert.NotNil(t, result.Object.SectionByName(".text"))
}

// TestRun_RelocationToGlobalSurvivesSectionSymbolSynthesis guards against a
// regression where SymNdx, computed once by PlanSymbols before
// SynthesizeSectionSymbols grows the locals bucket, went stale: every
// global/weak symbol's true final index is len(Locals)+idx only after
// synthesis has run, since encodeSymbolTable always emits locals before
// globals. The input object here carries no STT_SECTION symbols at all, so
// synthesis is forced, and its one relocation targets a global symbol —
// exactly the combination the old code corrupted.
func TestRun_RelocationToGlobalSurvivesSectionSymbolSynthesis(t *testing.T) {
	order := binio.LittleEndian

	strtab := []byte{0}
	strtab = append(strtab, []byte("gfunc\x00")...)
	gfuncNameIdx := uint32(1)

	var symtab []byte
	symtab = elf.EncodeSymbol(symtab, order, true, elf.Symbol{})
	symtab = elf.EncodeSymbol(symtab, order, true, elf.Symbol{
		NameIndex: gfuncNameIdx,
		Binding:   elf.STB_GLOBAL,
		Type:      elf.STT_FUNC,
		Section:   1,
	})

	var relocs []byte
	relocs = elf.EncodeRelocation(relocs, order, true, elf.Relocation{Offset: 0, Symbol: 1, Type: 0, HasAddend: true})

	obj := &elf.Object{
		Header: elf.Header{Class: elf.ELFCLASS64, Data: elf.ELFDATA2LSB, Type: elf.ET_REL},
		SectionList: []*elf.Section{
			{Name: ""},
			{Name: ".text", Type: elf.SHT_PROGBITS},
			{Name: ".rela.text", Type: elf.SHT_RELA, Link: 3, Data: relocs},
			{Name: ".symtab", Type: elf.SHT_SYMTAB, Data: symtab},
			{Name: ".strtab", Type: elf.SHT_STRTAB, Data: strtab},
		},
	}

	// StripDebug makes the program non-empty, so Run does not take the
	// copy-identity shortcut; there is nothing for it to strip here.
	prog := &Program{Symbols: SymbolProgram{Relocatable: true, StripDebug: true}}

	result, err := Run(obj, prog, nil)
	require.NoError(t, err)

	out := result.Object
	symtabSec := out.SectionByName(".symtab")
	strtabSec := out.SectionByName(".strtab")
	require.NotNil(t, symtabSec)
	require.NotNil(t, strtabSec)

	outSymbols, err := elf.DecodeSymbolTable(symtabSec.Data, strtabSec.Data, order, true)
	require.NoError(t, err)

	gfuncIdx := -1
	for i, s := range outSymbols {
		if s.Name == "gfunc" {
			gfuncIdx = i
		}
	}
	require.NotEqual(t, -1, gfuncIdx, "gfunc must survive the rewrite")
	require.Greater(t, gfuncIdx, 1, "section-symbol synthesis must have grown the locals bucket ahead of gfunc")

	relocSec := out.SectionByName(".rela.text")
	require.NotNil(t, relocSec)
	outRelocs, err := elf.DecodeRelocationTable(relocSec.Data, order, true, true)
	require.NoError(t, err)
	require.Len(t, outRelocs, 1)

	assert.Equal(t, uint32(gfuncIdx), outRelocs[0].Symbol, "relocation must point at gfunc's true final index, not a stale pre-synthesis one")
}

func TestRun_LogsOnePerPhase(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	obj := fixtureObject(".text", ".data")
	prog := &Program{Sections: SectionProgram{
		Rules: []SectionRule{{Kind: SectionRemove, Name: ".data"}},
	}}

	_, err := Run(obj, prog, logger)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "phase=plan-sections")
	assert.Contains(t, output, "phase=layout")
	assert.NotContains(t, output, "phase=plan-symbols", "no .symtab in this fixture, so plan-symbols never runs")
}

func TestIsNoop_DetectsEmptyProgram(t *testing.T) {
	assert.True(t, (&Program{}).isNoop())
	assert.False(t, (&Program{Symbols: SymbolProgram{StripAll: true}}).isNoop())
	assert.False(t, (&Program{OutputClass: elf.ELFCLASS64}).isNoop())
}
