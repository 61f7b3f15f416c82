package rewrite

import (
	"fmt"

	"github.com/embtoolkit/elftoolchain-go/internal/elf"
)

// PlannedSymbol is one retained symbol awaiting bucket placement (locals
// first, then globals/weaks) and string-table insertion.
type PlannedSymbol struct {
	Symbol   elf.Symbol
	InputIdx int
}

// SymbolPlan is the result of Phase B.
type SymbolPlan struct {
	Locals  []PlannedSymbol
	Globals []PlannedSymbol

	// SymNdx maps an input symbol index to its final output index, so
	// that surviving relocations can be rewritten. Symbols that were
	// dropped are absent from the map.
	SymNdx map[int]int

	Warnings []string
}

// ErrMissingReservedSymbol is returned when the input symbol table lacks
// the all-zero reserved index-0 symbol — spec §9 specifies this must be a
// caller-visible error, never synthesized silently.
var ErrMissingReservedSymbol = fmt.Errorf("rewrite: input symbol table is missing the reserved index-0 symbol")

// RelocSection pairs a surviving relocation section with the
// relocations it carries, used both for reachability analysis and for
// rewriting symbol indices afterward.
type RelocSection struct {
	Section     *elf.Section
	InputIdx    int
	Relocations []elf.Relocation
}

// PlanSymbols runs Phase B: apply the symbol-action program's priority
// ladder to every input symbol, then bucket retained symbols into locals
// and globals/weaks, preserving relative order within each bucket.
func PlanSymbols(
	inputSymbols []elf.Symbol,
	relocSections []RelocSection,
	plan *SectionPlan,
	prog *SymbolProgram,
) (*SymbolPlan, error) {
	if len(inputSymbols) == 0 || !isReservedSymbol(inputSymbols[0]) {
		return nil, ErrMissingReservedSymbol
	}

	reachable, warnings := markReachableSymbols(inputSymbols, relocSections)

	result := &SymbolPlan{Warnings: warnings}

	for i, sym := range inputSymbols {
		if i == 0 {
			result.Locals = append(result.Locals, PlannedSymbol{Symbol: sym, InputIdx: 0})
			continue
		}

		keep, newName := classifySymbol(sym, i, reachable[i], plan, prog)
		if !keep {
			continue
		}

		out := sym
		if newName != "" {
			out.Name = newName
		}
		out.Section = remapSectionIndex(sym.Section, plan)
		applyBindingRewrites(&out, prog)

		planned := PlannedSymbol{Symbol: out, InputIdx: i}
		if out.Binding.Local() {
			result.Locals = append(result.Locals, planned)
		} else {
			result.Globals = append(result.Globals, planned)
		}
	}

	rebuildSymNdx(result)

	return result, nil
}

// rebuildSymNdx recomputes the input-index -> output-index map from the
// current bucket contents. PlanSymbols calls this once; SynthesizeSectionSymbols
// calls it again after appending synthesized local symbols, since that
// growth shifts every global/weak symbol's final index by the number of
// symbols synthesized (locals are encoded before globals, spec §4.2).
// Synthesized symbols carry InputIdx -1 and are not addressable by any
// surviving relocation, so they are skipped rather than recorded.
func rebuildSymNdx(plan *SymbolPlan) {
	plan.SymNdx = make(map[int]int, len(plan.Locals)+len(plan.Globals))
	nls := len(plan.Locals)
	for idx, ps := range plan.Locals {
		if ps.InputIdx >= 0 {
			plan.SymNdx[ps.InputIdx] = idx
		}
	}
	for idx, ps := range plan.Globals {
		if ps.InputIdx >= 0 {
			plan.SymNdx[ps.InputIdx] = nls + idx
		}
	}
}

func isReservedSymbol(s elf.Symbol) bool {
	return s.Name == "" && s.Value == 0 && s.Size == 0 && s.Section == elf.SHN_UNDEF && s.Binding == elf.STB_LOCAL && s.Type == elf.STT_NOTYPE
}

// classifySymbol applies the ten-step priority ladder from spec §4.2.
// The first matching rule wins.
func classifySymbol(sym elf.Symbol, idx int, needed bool, plan *SectionPlan, prog *SymbolProgram) (keep bool, newName string) {
	rules := prog.rulesFor(sym.Name)

	// 1. KEEP beats everything.
	for _, r := range rules {
		if r.Kind == SymbolKeep {
			return true, redefName(rules)
		}
	}
	// 2. STRIP.
	for _, r := range rules {
		if r.Kind == SymbolStrip {
			return false, ""
		}
	}
	// 3. reserved index-0 handled by the caller before classifySymbol runs.
	// 4. section removed.
	if sym.Section != elf.SHN_UNDEF && sym.Section < elf.SHN_LORESERVE {
		if plan.SecNdx[int(sym.Section)] == 0 {
			return false, ""
		}
	}
	// 5 (checked ahead of the STRIP_ALL bulk default, so a relocation
	// that still needs this symbol survives even under --strip-all —
	// otherwise the rewritten relocatable object would reference a
	// removed symbol index; see the strip-all scenario in spec §8).
	// reachable from a surviving relocation, or (relocatable output) global/weak.
	if needed || (prog.Relocatable && !sym.Binding.Local()) {
		return true, redefName(rules)
	}
	// 6. STRIP_ALL.
	if prog.StripAll {
		return false, ""
	}
	// 7. STRIP_UNNEEDED.
	if prog.StripUnneeded {
		return false, ""
	}
	// 8. DISCARD_LOCAL.
	if prog.DiscardLocal && sym.Binding.Local() {
		return false, ""
	}
	// 9. STRIP_DEBUG drops debug-helper symbols (SECTION or FILE type).
	if prog.StripDebug && (sym.Type == elf.STT_SECTION || sym.Type == elf.STT_FILE) {
		return false, ""
	}
	// 10. otherwise retain.
	return true, redefName(rules)
}

func redefName(rules []SymbolRule) string {
	for _, r := range rules {
		if r.Kind == SymbolRedef {
			return r.NewName
		}
	}
	return ""
}

// applyBindingRewrites applies binding-rewrite rules in the order spec
// §4.2 specifies: WEAKEN_ALL/WEAKEN promotes non-local -> weak; LOCALIZE
// demotes non-local -> local (applies uniformly to global and weak, per
// the resolved open question in spec §9); KEEP_GLOBAL demotes non-local to
// local unless listed in KEEPG; GLOBALIZE promotes local -> global. The
// LOCALIZE/KEEP_GLOBAL demotions only apply when section != UNDEF.
func applyBindingRewrites(sym *elf.Symbol, prog *SymbolProgram) {
	rules := prog.rulesFor(sym.Name)
	hasRule := func(kind SymbolRuleKind) bool {
		for _, r := range rules {
			if r.Kind == kind {
				return true
			}
		}
		return false
	}

	if (prog.WeakenAll || hasRule(SymbolWeaken)) && !sym.Binding.Local() {
		sym.Binding = elf.STB_WEAK
	}
	if hasRule(SymbolLocalize) && sym.Section != elf.SHN_UNDEF {
		sym.Binding = elf.STB_LOCAL
	}
	if prog.KeepGlobal && sym.Section != elf.SHN_UNDEF && !sym.Binding.Local() && !hasRule(SymbolKeepGlobal) {
		sym.Binding = elf.STB_LOCAL
	}
	if hasRule(SymbolGlobalize) && sym.Binding.Local() {
		sym.Binding = elf.STB_GLOBAL
	}
}

func remapSectionIndex(section uint16, plan *SectionPlan) uint16 {
	if section == elf.SHN_UNDEF || section >= elf.SHN_LORESERVE {
		return section
	}
	return uint16(plan.SecNdx[int(section)])
}

// markReachableSymbols scans every surviving relocation section for
// symbol references, building the reachability bit vector spec §4.2
// describes. Invalid symbol indices produce a warning, not an error.
func markReachableSymbols(symbols []elf.Symbol, relocSections []RelocSection) ([]bool, []string) {
	reachable := make([]bool, len(symbols))
	var warnings []string
	for _, rs := range relocSections {
		for _, r := range rs.Relocations {
			if int(r.Symbol) >= len(symbols) {
				warnings = append(warnings, fmt.Sprintf("relocation in section %q references out-of-range symbol index %d", rs.Section.Name, r.Symbol))
				continue
			}
			reachable[r.Symbol] = true
		}
	}
	return reachable, warnings
}

// SynthesizeSectionSymbols appends one local STT_SECTION symbol for every
// planned output section lacking one already, excluding .symtab, .strtab,
// .shstrtab, and — for relocatable output — REL/RELA sections (spec
// §4.2). Synthesized symbols are appended to the Locals bucket, after the
// retained local symbols, preserving the "locals before globals"
// invariant.
func SynthesizeSectionSymbols(plan *SymbolPlan, sectionPlan *SectionPlan, relocatable bool) {
	hasSectionSymbol := make(map[int]bool)
	for _, ps := range plan.Locals {
		if ps.Symbol.Type == elf.STT_SECTION {
			hasSectionSymbol[int(ps.Symbol.Section)] = true
		}
	}

	for outIdx, ps := range sectionPlan.Planned {
		if outIdx == 0 {
			continue // NULL section never gets one
		}
		name := ps.Section.Name
		if reservedSectionNames[name] {
			continue
		}
		if relocatable && (ps.Section.Type == elf.SHT_REL || ps.Section.Type == elf.SHT_RELA) {
			continue
		}
		if hasSectionSymbol[outIdx] {
			continue
		}
		sym := elf.Symbol{
			Value:   ps.Section.Addr,
			Binding: elf.STB_LOCAL,
			Type:    elf.STT_SECTION,
			Section: uint16(outIdx),
		}
		plan.Locals = append(plan.Locals, PlannedSymbol{Symbol: sym, InputIdx: -1})
	}

	rebuildSymNdx(plan)
}
