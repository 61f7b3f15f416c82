package rewrite

import (
	"testing"

	"github.com/embtoolkit/elftoolchain-go/internal/elf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservedSymbol() elf.Symbol {
	return elf.Symbol{Section: elf.SHN_UNDEF, Binding: elf.STB_LOCAL, Type: elf.STT_NOTYPE}
}

func identityPlan(n int) *SectionPlan {
	plan := &SectionPlan{SecNdx: make(map[int]int, n)}
	for i := 0; i < n; i++ {
		plan.SecNdx[i] = i
	}
	return plan
}

func TestPlanSymbols_RejectsMissingReservedSymbol(t *testing.T) {
	_, err := PlanSymbols([]elf.Symbol{{Name: "not_reserved"}}, nil, identityPlan(1), &SymbolProgram{})
	require.ErrorIs(t, err, ErrMissingReservedSymbol)
}

func TestPlanSymbols_StripAllKeepsOnlyReachableAndExplicitKeep(t *testing.T) {
	symbols := []elf.Symbol{
		reservedSymbol(),
		{Name: "foo", Section: 1, Binding: elf.STB_GLOBAL, Type: elf.STT_FUNC},
		{Name: "bar", Section: 1, Binding: elf.STB_GLOBAL, Type: elf.STT_FUNC},
		{Name: "keepme", Section: 1, Binding: elf.STB_GLOBAL, Type: elf.STT_FUNC},
	}
	relocs := []RelocSection{{
		Section:     &elf.Section{Name: ".rela.text"},
		Relocations: []elf.Relocation{{Symbol: 1}}, // foo is reachable
	}}
	prog := &SymbolProgram{
		StripAll: true,
		Rules:    []SymbolRule{{Kind: SymbolKeep, Name: "keepme"}},
	}

	plan, err := PlanSymbols(symbols, relocs, identityPlan(2), prog)
	require.NoError(t, err)

	var names []string
	for _, ps := range append(plan.Locals, plan.Globals...) {
		names = append(names, ps.Symbol.Name)
	}
	assert.Contains(t, names, "foo")
	assert.Contains(t, names, "keepme")
	assert.NotContains(t, names, "bar")
}

func TestPlanSymbols_SectionRemovedDropsSymbol(t *testing.T) {
	symbols := []elf.Symbol{
		reservedSymbol(),
		{Name: "removed_sec_sym", Section: 1, Binding: elf.STB_GLOBAL},
	}
	plan := &SectionPlan{SecNdx: map[int]int{0: 0, 1: 0}} // section 1 removed

	result, err := PlanSymbols(symbols, nil, plan, &SymbolProgram{})
	require.NoError(t, err)

	var names []string
	for _, ps := range append(result.Locals, result.Globals...) {
		names = append(names, ps.Symbol.Name)
	}
	assert.NotContains(t, names, "removed_sec_sym")
}

func TestPlanSymbols_StripDebugRemovesSectionAndFileTypes(t *testing.T) {
	symbols := []elf.Symbol{
		reservedSymbol(),
		{Name: ".text", Section: 1, Binding: elf.STB_LOCAL, Type: elf.STT_SECTION},
		{Name: "file.c", Section: elf.SHN_ABS, Binding: elf.STB_LOCAL, Type: elf.STT_FILE},
		{Name: "keep_func", Section: 1, Binding: elf.STB_GLOBAL, Type: elf.STT_FUNC},
	}
	prog := &SymbolProgram{StripDebug: true}

	result, err := PlanSymbols(symbols, nil, identityPlan(2), prog)
	require.NoError(t, err)

	var names []string
	for _, ps := range append(result.Locals, result.Globals...) {
		names = append(names, ps.Symbol.Name)
	}
	assert.NotContains(t, names, ".text")
	assert.NotContains(t, names, "file.c")
	assert.Contains(t, names, "keep_func")
}

func TestPlanSymbols_DiscardLocalKeepsGlobals(t *testing.T) {
	symbols := []elf.Symbol{
		reservedSymbol(),
		{Name: "local_sym", Section: 1, Binding: elf.STB_LOCAL, Type: elf.STT_OBJECT},
		{Name: "global_sym", Section: 1, Binding: elf.STB_GLOBAL, Type: elf.STT_OBJECT},
	}
	prog := &SymbolProgram{DiscardLocal: true}

	result, err := PlanSymbols(symbols, nil, identityPlan(2), prog)
	require.NoError(t, err)

	var names []string
	for _, ps := range append(result.Locals, result.Globals...) {
		names = append(names, ps.Symbol.Name)
	}
	assert.NotContains(t, names, "local_sym")
	assert.Contains(t, names, "global_sym")
}

func TestPlanSymbols_RelocatableKeepsGlobalsEvenUnderStripAll(t *testing.T) {
	symbols := []elf.Symbol{
		reservedSymbol(),
		{Name: "unreferenced_global", Section: 1, Binding: elf.STB_GLOBAL, Type: elf.STT_FUNC},
	}
	prog := &SymbolProgram{StripAll: true, Relocatable: true}

	result, err := PlanSymbols(symbols, nil, identityPlan(2), prog)
	require.NoError(t, err)

	var names []string
	for _, ps := range append(result.Locals, result.Globals...) {
		names = append(names, ps.Symbol.Name)
	}
	assert.Contains(t, names, "unreferenced_global")
}

func TestPlanSymbols_LocalsSortBeforeGlobalsInSymNdx(t *testing.T) {
	symbols := []elf.Symbol{
		reservedSymbol(),
		{Name: "g1", Section: 1, Binding: elf.STB_GLOBAL},
		{Name: "l1", Section: 1, Binding: elf.STB_LOCAL},
	}
	result, err := PlanSymbols(symbols, nil, identityPlan(2), &SymbolProgram{})
	require.NoError(t, err)

	require.Len(t, result.Locals, 2) // reserved + l1
	require.Len(t, result.Globals, 1)
	assert.Equal(t, 2, result.SymNdx[1]) // g1 placed after all locals
	assert.Equal(t, 1, result.SymNdx[2]) // l1 placed in the local bucket
}

func TestApplyBindingRewrites_LocalizeAppliesToWeak(t *testing.T) {
	sym := elf.Symbol{Name: "w", Binding: elf.STB_WEAK, Section: 1}
	prog := &SymbolProgram{Rules: []SymbolRule{{Kind: SymbolLocalize, Name: "w"}}}

	applyBindingRewrites(&sym, prog)
	assert.Equal(t, elf.STB_LOCAL, sym.Binding)
}

func TestApplyBindingRewrites_GlobalizeOnlyAppliesToLocal(t *testing.T) {
	sym := elf.Symbol{Name: "g", Binding: elf.STB_GLOBAL, Section: 1}
	prog := &SymbolProgram{Rules: []SymbolRule{{Kind: SymbolGlobalize, Name: "g"}}}

	applyBindingRewrites(&sym, prog)
	assert.Equal(t, elf.STB_GLOBAL, sym.Binding) // unchanged, already global
}

func TestApplyBindingRewrites_WeakenAllSparesLocals(t *testing.T) {
	sym := elf.Symbol{Name: "l", Binding: elf.STB_LOCAL, Section: 1}
	prog := &SymbolProgram{WeakenAll: true}

	applyBindingRewrites(&sym, prog)
	assert.Equal(t, elf.STB_LOCAL, sym.Binding)
}

func TestSynthesizeSectionSymbols_SkipsReservedAndRelocSectionsWhenRelocatable(t *testing.T) {
	sectionPlan := &SectionPlan{Planned: []PlannedSection{
		{Section: &elf.Section{Name: ""}},
		{Section: &elf.Section{Name: ".text", Type: elf.SHT_PROGBITS}},
		{Section: &elf.Section{Name: ".rela.text", Type: elf.SHT_RELA}},
		{Section: &elf.Section{Name: ".symtab", Type: elf.SHT_SYMTAB}},
	}}
	plan := &SymbolPlan{}

	SynthesizeSectionSymbols(plan, sectionPlan, true)

	require.Len(t, plan.Locals, 1)
	assert.Equal(t, elf.STT_SECTION, plan.Locals[0].Symbol.Type)
	assert.Equal(t, uint16(1), plan.Locals[0].Symbol.Section)
}

func TestSynthesizeSectionSymbols_SkipsSectionsThatAlreadyHaveOne(t *testing.T) {
	sectionPlan := &SectionPlan{Planned: []PlannedSection{
		{Section: &elf.Section{Name: ""}},
		{Section: &elf.Section{Name: ".text", Type: elf.SHT_PROGBITS}},
	}}
	plan := &SymbolPlan{Locals: []PlannedSymbol{
		{Symbol: elf.Symbol{Type: elf.STT_SECTION, Section: 1}},
	}}

	SynthesizeSectionSymbols(plan, sectionPlan, false)
	assert.Len(t, plan.Locals, 1)
}
