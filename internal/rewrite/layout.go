package rewrite

import (
	"fmt"

	"github.com/embtoolkit/elftoolchain-go/internal/bitutil"
	"github.com/embtoolkit/elftoolchain-go/internal/elf"
)

// LayoutResult is the finished object plus the few facts the caller needs
// to report (e.g. whether a symbol table was emitted at all).
type LayoutResult struct {
	Object     *elf.Object
	EmittedSymtab bool
}

// Layout runs Phase C: assign output file offsets following the canonical
// layout order (spec §4.2) and produce a fully self-consistent Object.
//
// Header-table index order is exactly the order PlanSections built
// (preserved sections in input order, then additions, then the reserved
// sections appended here) — that order is the same one Phase B used to
// compute secndx, so indices never shift between phases. Only the file
// *offsets* follow the canonical physical layout, which for relocatable
// output places relocation-section payloads last.
func Layout(input *elf.Object, secPlan *SectionPlan, symPlan *SymbolPlan, prog *Program) (*LayoutResult, error) {
	class := input.Header.Class
	if prog.OutputClass != elf.ELFCLASSNONE {
		class = prog.OutputClass
	}
	data := input.Header.Data
	if prog.OutputData != elf.ELFDATANONE {
		data = prog.OutputData
	}
	if class != input.Header.Class {
		return nil, fmt.Errorf("rewrite: layout: changing ELF class is unsupported")
	}

	out := &elf.Object{
		Header:         input.Header,
		ProgramHeaders: append([]elf.ProgramHeader(nil), input.ProgramHeaders...),
	}
	out.Header.Class = class
	out.Header.Data = data

	sections := make([]*elf.Section, 0, len(secPlan.Planned)+3)
	for _, p := range secPlan.Planned {
		sections = append(sections, p.Section)
	}

	emittedSymtab := symPlan != nil && (len(symPlan.Locals)+len(symPlan.Globals) > 1)

	var shstrtabIdx, symtabIdx, strtabIdx int
	if emittedSymtab {
		symtab := &elf.Section{
			Name:      ".symtab",
			Type:      elf.SHT_SYMTAB,
			AddrAlign: 8,
			Info:      uint32(len(symPlan.Locals)),
		}
		symtabIdx = len(sections)
		sections = append(sections, symtab)

		strtab := &elf.Section{Name: ".strtab", Type: elf.SHT_STRTAB, AddrAlign: 1}
		strtabIdx = len(sections)
		sections = append(sections, strtab)

		symtab.Link = uint32(strtabIdx)
	}

	shstrtabIdx = len(sections)
	shstrtab := &elf.Section{Name: ".shstrtab", Type: elf.SHT_STRTAB, AddrAlign: 1}
	sections = append(sections, shstrtab)

	shstrtab.Data = buildShstrtab(sections)
	shstrtab.Size = uint64(len(shstrtab.Data))
	for _, s := range sections {
		off, err := findName(shstrtab.Data, s.Name)
		if err != nil {
			return nil, err
		}
		s.NameIndex = off
	}

	if emittedSymtab {
		strtabBytes := BuildStringTable(symPlan)
		sections[strtabIdx].Data = strtabBytes
		sections[strtabIdx].Size = uint64(len(strtabBytes))

		symBuf := encodeSymbolTable(symPlan, class == elf.ELFCLASS64, byteOrderOf(data))
		sections[symtabIdx].Data = symBuf
		sections[symtabIdx].Size = uint64(len(symBuf))
		sections[symtabIdx].EntSize = symEntSize(class == elf.ELFCLASS64)
	}

	assignOffsets(out, sections, class == elf.ELFCLASS64)
	recomputeProgramHeaders(out, secPlan)

	out.SectionList = sections
	out.Header.SectionNameStringTableIndex = shstrtabIdx

	return &LayoutResult{Object: out, EmittedSymtab: emittedSymtab}, nil
}

func byteOrderOf(d elf.Data) bool { return d == elf.ELFDATA2MSB }

func buildShstrtab(sections []*elf.Section) []byte {
	buf := []byte{0}
	seen := map[string]int{"": 0}
	for _, s := range sections {
		if _, ok := seen[s.Name]; ok {
			continue
		}
		seen[s.Name] = len(buf)
		buf = append(buf, []byte(s.Name)...)
		buf = append(buf, 0)
	}
	return buf
}

func findName(shstrtab []byte, name string) (uint32, error) {
	if name == "" {
		return 0, nil
	}
	target := append([]byte(name), 0)
	for i := 0; i+len(target) <= len(shstrtab); i++ {
		if string(shstrtab[i:i+len(target)]) == string(target) {
			if i == 0 || shstrtab[i-1] == 0 {
				return uint32(i), nil
			}
		}
	}
	return 0, fmt.Errorf("rewrite: %q missing from constructed .shstrtab", name)
}

// assignOffsets places every non-NULL, non-NOBITS section's payload in the
// canonical order: ALLOC sections first (input order), then the rest
// (input order, additions included), with — for relocatable objects —
// SHT_REL/SHT_RELA payloads placed after everything else, even though
// their header-table index was fixed earlier.
func assignOffsets(out *elf.Object, sections []*elf.Section, is64 bool) {
	ehdrSize := uint64(64)
	if !is64 {
		ehdrSize = 52
	}
	cur := ehdrSize
	if len(out.ProgramHeaders) > 0 {
		phentsize := uint64(56)
		if !is64 {
			phentsize = 32
		}
		cur += phentsize * uint64(len(out.ProgramHeaders))
	}

	relocatable := out.Header.Type == elf.ET_REL

	place := func(s *elf.Section) {
		if s.Type == elf.SHT_NULL || s.Type == elf.SHT_NOBITS {
			s.Offset = cur
			return
		}
		cur = bitutil.AlignUp(cur, max1(s.AddrAlign))
		s.Offset = cur
		cur += s.Size
	}

	var allocSections, otherSections, relocSections []*elf.Section
	for _, s := range sections {
		switch {
		case s.Type == elf.SHT_NULL:
			continue
		case relocatable && (s.Type == elf.SHT_REL || s.Type == elf.SHT_RELA):
			relocSections = append(relocSections, s)
		case bitutil.HasFlag(s.Flags, elf.SHF_ALLOC):
			allocSections = append(allocSections, s)
		default:
			otherSections = append(otherSections, s)
		}
	}

	for _, s := range allocSections {
		place(s)
	}
	for _, s := range otherSections {
		place(s)
	}
	for _, s := range relocSections {
		place(s)
	}
}

func max1(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	return v
}

// recomputeProgramHeaders adjusts PT_LOAD segment file offsets/sizes to
// cover the new addresses of the sections they previously covered, keyed
// by address range overlap (spec §4.2).
func recomputeProgramHeaders(out *elf.Object, secPlan *SectionPlan) {
	for i := range out.ProgramHeaders {
		ph := &out.ProgramHeaders[i]
		if ph.Type != elf.PT_LOAD {
			continue
		}
		var minOff, maxEnd uint64
		first := true
		for _, p := range secPlan.Planned {
			s := p.Section
			if !bitutil.HasFlag(s.Flags, elf.SHF_ALLOC) {
				continue
			}
			if s.Addr < ph.VAddr || s.Addr >= ph.VAddr+ph.MemSz {
				continue
			}
			if first {
				minOff, maxEnd = s.Offset, s.Offset+s.Size
				first = false
			}
			if s.Offset < minOff {
				minOff = s.Offset
			}
			if end := s.Offset + s.Size; end > maxEnd {
				maxEnd = end
			}
		}
		if !first {
			ph.Offset = minOff
			ph.FileSz = maxEnd - minOff
		}
	}
}
