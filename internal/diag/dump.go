package diag

import (
	"fmt"
	"io"

	"github.com/embtoolkit/elftoolchain-go/internal/elf"
)

var sectionTypeNames = map[elf.SectionType]string{
	elf.SHT_NULL:     "NULL",
	elf.SHT_PROGBITS: "PROGBITS",
	elf.SHT_SYMTAB:   "SYMTAB",
	elf.SHT_STRTAB:   "STRTAB",
	elf.SHT_RELA:     "RELA",
	elf.SHT_HASH:     "HASH",
	elf.SHT_DYNAMIC:  "DYNAMIC",
	elf.SHT_NOTE:     "NOTE",
	elf.SHT_NOBITS:   "NOBITS",
	elf.SHT_REL:      "REL",
	elf.SHT_SHLIB:    "SHLIB",
	elf.SHT_DYNSYM:   "DYNSYM",
}

func sectionTypeName(t elf.SectionType) string {
	if n, ok := sectionTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("%#x", uint32(t))
}

var symbolTypeNames = map[elf.SymbolType]string{
	elf.STT_NOTYPE:  "NOTYPE",
	elf.STT_OBJECT:  "OBJECT",
	elf.STT_FUNC:    "FUNC",
	elf.STT_SECTION: "SECTION",
	elf.STT_FILE:    "FILE",
	elf.STT_COMMON:  "COMMON",
}

func symbolTypeName(t elf.SymbolType) string {
	if n, ok := symbolTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("%#x", uint8(t))
}

var symbolBindingNames = map[elf.SymbolBinding]string{
	elf.STB_LOCAL:  "LOCAL",
	elf.STB_GLOBAL: "GLOBAL",
	elf.STB_WEAK:   "WEAK",
}

func symbolBindingName(b elf.SymbolBinding) string {
	if n, ok := symbolBindingNames[b]; ok {
		return n
	}
	return fmt.Sprintf("%#x", uint8(b))
}

// DumpSections writes a colored section-header table, as printed by the
// "inspect" command.
func DumpSections(w io.Writer, sections []*elf.Section) {
	Header.Fprintln(w, "Sections:")
	for i, s := range sections {
		fmt.Fprintf(w, "  [%s] %-20s %-10s addr=%s size=%s\n",
			Value.Sprintf("%2d", i),
			Name.Sprint(s.Name),
			Kind.Sprint(sectionTypeName(s.Type)),
			Addr.Sprintf("%#016x", s.Addr),
			Hex.Sprintf("%#x", s.Size))
	}
}

// DumpSymbols writes a colored symbol-table table.
func DumpSymbols(w io.Writer, symbols []elf.Symbol) {
	Header.Fprintln(w, "Symbols:")
	for i, sym := range symbols {
		fmt.Fprintf(w, "  [%s] %-30s %-10s %-8s value=%s\n",
			Value.Sprintf("%4d", i),
			Name.Sprint(sym.Name),
			Kind.Sprint(symbolTypeName(sym.Type)),
			Dim.Sprint(symbolBindingName(sym.Binding)),
			Addr.Sprintf("%#016x", sym.Value))
	}
}
