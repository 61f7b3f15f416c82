// Package rewrite implements the object rewriter: the three-phase pipeline
// (plan sections, plan symbols, layout) behind the elfcopy/strip/mcs
// personas (spec §4.2).
package rewrite

import "github.com/embtoolkit/elftoolchain-go/internal/elf"

// SectionRuleKind distinguishes the section-action program's rule shapes
// (spec §3, "Section-action program").
type SectionRuleKind int

const (
	SectionRemove SectionRuleKind = iota
	SectionRename
	SectionSetFlags
)

// SectionRule is one named rule of a section-action program.
type SectionRule struct {
	Kind     SectionRuleKind
	Name     string
	NewName  string // SectionRename only
	Flags    elf.SectionFlag
	HasFlags bool // whether Flags should be applied (SectionRename/SectionSetFlags)
}

// AddedSection is a section synthesized from a named file, materialized
// after the last non-added, non-reserved section and before .shstrtab
// (spec §3).
type AddedSection struct {
	Name string
	Data []byte
}

// SectionProgram is the full section-action program for one rewrite run.
type SectionProgram struct {
	Rules []SectionRule

	// OnlyKeep implements "copy-only by name": when non-empty, every
	// section whose name is not listed is removed. Remove and copy are
	// mutually exclusive for a given name (spec §3); a name appearing in
	// both OnlyKeep and a SectionRemove rule is rejected by
	// validateSectionProgram when PlanSections runs.
	OnlyKeep []string

	Additions []AddedSection
}

func (p *SectionProgram) ruleFor(name string) (SectionRule, bool) {
	for _, r := range p.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return SectionRule{}, false
}

func (p *SectionProgram) onlyKeepSet() map[string]bool {
	if len(p.OnlyKeep) == 0 {
		return nil
	}
	set := make(map[string]bool, len(p.OnlyKeep))
	for _, n := range p.OnlyKeep {
		set[n] = true
	}
	return set
}

// SymbolRuleKind distinguishes the symbol-action program's per-name rules
// (spec §3, "Symbol-action program").
type SymbolRuleKind int

const (
	SymbolKeep SymbolRuleKind = iota
	SymbolStrip
	SymbolLocalize
	SymbolGlobalize
	SymbolWeaken
	SymbolKeepGlobal
	SymbolRedef
)

// SymbolRule is one named rule of a symbol-action program.
type SymbolRule struct {
	Kind    SymbolRuleKind
	Name    string
	NewName string // SymbolRedef only
}

// SymbolProgram is the full symbol-action program plus the bulk-default
// flags spec §3 lists on the containing operation.
type SymbolProgram struct {
	Rules []SymbolRule

	StripAll      bool
	StripDebug    bool
	StripUnneeded bool
	StripNondebug bool
	DiscardLocal  bool
	WeakenAll     bool
	KeepGlobal    bool

	// Relocatable marks that the output is a relocatable object, which
	// changes rule 6 of the priority ladder (spec §4.2): global/weak
	// symbols are always "needed" in that case.
	Relocatable bool
}

func (p *SymbolProgram) rulesFor(name string) []SymbolRule {
	var out []SymbolRule
	for _, r := range p.Rules {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

func (p *SymbolProgram) hasRule(name string, kind SymbolRuleKind) bool {
	for _, r := range p.Rules {
		if r.Name == name && r.Kind == kind {
			return true
		}
	}
	return false
}

// requested reports whether this program asks for any symbol-table work at
// all, as opposed to being the zero value carried along on a section-only
// rewrite of an object that happens to lack a symbol table.
func (p *SymbolProgram) requested() bool {
	return len(p.Rules) > 0 || p.StripAll || p.StripDebug || p.StripUnneeded ||
		p.StripNondebug || p.DiscardLocal || p.WeakenAll || p.KeepGlobal
}

// Program bundles both halves of a rewrite run plus the output-target
// overrides spec §6 allows ("-O/--output-target").
type Program struct {
	Sections SectionProgram
	Symbols  SymbolProgram

	// OutputClass/OutputData override the input object's class/endianness
	// when non-zero; zero means "default to the input's".
	OutputClass elf.Class
	OutputData  elf.Data
}
