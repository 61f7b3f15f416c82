package rewrite

import (
	"fmt"

	"github.com/embtoolkit/elftoolchain-go/internal/elf"
)

// reservedSectionNames are materialized separately by the layout engine,
// never touched by the general per-name rule loop.
var reservedSectionNames = map[string]bool{
	".symtab":   true,
	".strtab":   true,
	".shstrtab": true,
}

// PlannedSection is one entry of the Phase A output, carrying a back
// pointer to its input section (nil for sections introduced by an ADD
// rule).
type PlannedSection struct {
	Section  *elf.Section
	Input    *elf.Section
	InputIdx int // -1 for added sections
}

// SectionPlan is the result of Phase A: the output section list (excluding
// the reserved .symtab/.strtab/.shstrtab, appended later by the layout
// engine) plus the input->output index map spec §4.2 calls secndx.
type SectionPlan struct {
	Planned []PlannedSection
	SecNdx  map[int]int // input index -> output index; 0 means removed
}

// PlanSections runs Phase A: produce the output section list by iterating
// the input section list in order and applying the section-action program.
func PlanSections(input *elf.Object, prog *SectionProgram) (*SectionPlan, error) {
	if err := validateSectionProgram(prog); err != nil {
		return nil, err
	}

	onlyKeep := prog.onlyKeepSet()
	plan := &SectionPlan{SecNdx: make(map[int]int, len(input.SectionList))}

	for i, s := range input.SectionList {
		if i == 0 {
			// Section zero, the reserved NULL section, is always kept
			// and always occupies output index 0.
			plan.Planned = append(plan.Planned, PlannedSection{Section: cloneSection(s), Input: s, InputIdx: 0})
			plan.SecNdx[0] = 0
			continue
		}
		if reservedSectionNames[s.Name] {
			// Handled specially by the layout engine; not carried
			// through the general rule loop, and never directly
			// addressable by a removed/renamed secndx entry since
			// they are always rebuilt from scratch.
			continue
		}

		rule, hasRule := prog.ruleFor(s.Name)
		removed := hasRule && rule.Kind == SectionRemove
		if !removed && onlyKeep != nil && !onlyKeep[s.Name] {
			removed = true
		}
		if removed {
			plan.SecNdx[i] = 0
			continue
		}

		out := cloneSection(s)
		if hasRule {
			switch rule.Kind {
			case SectionRename:
				out.Name = rule.NewName
				if rule.HasFlags {
					out.Flags = elf.ApplyFlags(out.Flags, rule.Flags)
				}
			case SectionSetFlags:
				if rule.HasFlags {
					out.Flags = elf.ApplyFlags(out.Flags, rule.Flags)
				}
			}
		}

		outIdx := len(plan.Planned)
		plan.SecNdx[i] = outIdx
		plan.Planned = append(plan.Planned, PlannedSection{Section: out, Input: s, InputIdx: i})
	}

	for _, add := range prog.Additions {
		out := &elf.Section{
			Name:      add.Name,
			Type:      elf.SHT_PROGBITS,
			Data:      add.Data,
			Size:      uint64(len(add.Data)),
			AddrAlign: 1,
		}
		plan.Planned = append(plan.Planned, PlannedSection{Section: out, Input: nil, InputIdx: -1})
	}

	return plan, nil
}

func cloneSection(s *elf.Section) *elf.Section {
	clone := *s
	// Data is shared (read-only view into the input buffer) until a
	// rule mutates it; no rule in this package mutates payload bytes in
	// place, so sharing is safe.
	return &clone
}

// validateSectionProgram enforces that remove and copy-only are mutually
// exclusive for any given name (spec §3).
func validateSectionProgram(prog *SectionProgram) error {
	onlyKeep := prog.onlyKeepSet()
	if onlyKeep == nil {
		return nil
	}
	for _, r := range prog.Rules {
		if r.Kind == SectionRemove && onlyKeep[r.Name] {
			return fmt.Errorf("rewrite: section %q named by both --only-section and a remove rule", r.Name)
		}
	}
	return nil
}
