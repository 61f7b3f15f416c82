package rewrite

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/embtoolkit/elftoolchain-go/internal/binio"
	"github.com/embtoolkit/elftoolchain-go/internal/elf"
)

// Result is everything a rewrite run produces: the output object and the
// soft warnings collected along the way (spec §7).
type Result struct {
	Object   *elf.Object
	Warnings []string
}

func (p *Program) isNoop() bool {
	s := p.Sections
	sym := p.Symbols
	return len(s.Rules) == 0 && len(s.OnlyKeep) == 0 && len(s.Additions) == 0 &&
		len(sym.Rules) == 0 && !sym.StripAll && !sym.StripDebug && !sym.StripUnneeded &&
		!sym.StripNondebug && !sym.DiscardLocal && !sym.WeakenAll && !sym.KeepGlobal &&
		p.OutputClass == elf.ELFCLASSNONE && p.OutputData == elf.ELFDATANONE
}

// discardLogger is used whenever a caller passes a nil logger, so Run never
// has to nil-check before every log call.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Run drives the full three-phase pipeline (spec §4.2): plan sections, plan
// symbols, layout. It emits one log record per phase on logger (plan-
// sections, plan-symbols, layout); pass nil to run silently.
func Run(input *elf.Object, prog *Program, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = discardLogger
	}

	if prog.isNoop() {
		// Copy identity (spec §8): nothing to rewrite, hand the parsed
		// object straight back so its symbol table and section
		// payloads are untouched.
		return &Result{Object: input}, nil
	}

	secPlan, err := PlanSections(input, &prog.Sections)
	if err != nil {
		return nil, err
	}
	logger.Info("rewrite phase done", "phase", "plan-sections", "sections", len(secPlan.Planned))

	symtabSection := input.SectionByName(".symtab")
	strtabSection := input.SectionByName(".strtab")

	var symPlan *SymbolPlan
	var warnings []string

	switch {
	case symtabSection == nil || strtabSection == nil:
		if prog.Symbols.requested() {
			return nil, fmt.Errorf("rewrite: missing .strtab/.symtab but symbol work requested")
		}
		// Section-only rewrite of an object with no symbol table: nothing
		// to plan, Layout emits no .symtab/.strtab of its own.
	default:
		order := elfByteOrder(input.Header.Data)
		is64 := input.Header.Class == elf.ELFCLASS64

		inputSymbols, err := elf.DecodeSymbolTable(symtabSection.Data, strtabSection.Data, order, is64)
		if err != nil {
			return nil, fmt.Errorf("rewrite: decoding .symtab: %w", err)
		}

		relocSections, relocWarnings, err := decodeRelocations(input, secPlan, order, is64)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, relocWarnings...)

		symPlan, err = PlanSymbols(inputSymbols, relocSections, secPlan, &prog.Symbols)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, symPlan.Warnings...)

		if !prog.Symbols.StripAll {
			SynthesizeSectionSymbols(symPlan, secPlan, prog.Symbols.Relocatable)
		}
		logger.Info("rewrite phase done", "phase", "plan-symbols", "locals", len(symPlan.Locals), "globals", len(symPlan.Globals))

		for i := range relocSections {
			newRelocs, w := RewriteRelocationSymbols(relocSections[i].Relocations, symPlan.SymNdx)
			warnings = append(warnings, w...)
			rewriteRelocationSectionData(secPlan, relocSections[i], newRelocs, order, is64)
		}
	}

	layoutResult, err := Layout(input, secPlan, symPlan, prog)
	if err != nil {
		return nil, err
	}
	logger.Info("rewrite phase done", "phase", "layout", "emitted_symtab", layoutResult.EmittedSymtab)

	return &Result{Object: layoutResult.Object, Warnings: warnings}, nil
}

func elfByteOrder(d elf.Data) binio.Order {
	if d == elf.ELFDATA2MSB {
		return binio.BigEndian
	}
	return binio.LittleEndian
}

// decodeRelocations decodes every surviving SHT_REL/SHT_RELA section whose
// sh_link points at the input .symtab (spec §4.2's relocation
// reachability scan).
func decodeRelocations(input *elf.Object, secPlan *SectionPlan, order binio.Order, is64 bool) ([]RelocSection, []string, error) {
	symtabIdx := -1
	for i, s := range input.SectionList {
		if s.Name == ".symtab" {
			symtabIdx = i
			break
		}
	}

	var out []RelocSection
	var warnings []string
	for i, s := range input.SectionList {
		if s.Type != elf.SHT_REL && s.Type != elf.SHT_RELA {
			continue
		}
		if int(s.Link) != symtabIdx {
			continue
		}
		if secPlan.SecNdx[i] == 0 && i != 0 {
			continue // this relocation section itself was removed
		}
		relocs, err := elf.DecodeRelocationTable(s.Data, order, is64, s.Type == elf.SHT_RELA)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("section %q: %v", s.Name, err))
			continue
		}
		out = append(out, RelocSection{Section: s, InputIdx: i, Relocations: relocs})
	}
	return out, warnings, nil
}

// rewriteRelocationSectionData re-encodes a relocation section's payload
// in place on the planned output section, after its symbol indices have
// been remapped.
func rewriteRelocationSectionData(secPlan *SectionPlan, rs RelocSection, relocs []elf.Relocation, order binio.Order, is64 bool) {
	outIdx, ok := secPlan.SecNdx[rs.InputIdx]
	if !ok || (outIdx == 0 && rs.InputIdx != 0) {
		return
	}
	target := secPlan.Planned[outIdx].Section
	var buf []byte
	for _, r := range relocs {
		buf = elf.EncodeRelocation(buf, order, is64, r)
	}
	target.Data = buf
	target.Size = uint64(len(buf))
}
