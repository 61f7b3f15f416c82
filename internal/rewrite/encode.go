package rewrite

import (
	"github.com/embtoolkit/elftoolchain-go/internal/binio"
	"github.com/embtoolkit/elftoolchain-go/internal/elf"
)

// encodeSymbolTable serializes the full locals-then-globals symbol table,
// per the final invariants in spec §4.2: index 0 reserved, locals before
// non-locals, sh_info == nls (computed by the caller from len(Locals)).
func encodeSymbolTable(plan *SymbolPlan, is64 bool, bigEndian bool) []byte {
	order := binio.LittleEndian
	if bigEndian {
		order = binio.BigEndian
	}
	var buf []byte
	for _, ps := range plan.Locals {
		buf = elf.EncodeSymbol(buf, order, is64, ps.Symbol)
	}
	for _, ps := range plan.Globals {
		buf = elf.EncodeSymbol(buf, order, is64, ps.Symbol)
	}
	return buf
}

func symEntSize(is64 bool) uint64 {
	if is64 {
		return 24
	}
	return 16
}

// RewriteRelocationSymbols remaps every surviving relocation's symbol
// index through SymNdx, dropping relocations whose symbol no longer
// exists (e.g. it pointed at a removed/unresolvable index) — a warning,
// per spec §4.2's invalid-index handling, not a fatal error.
func RewriteRelocationSymbols(relocs []elf.Relocation, symNdx map[int]int) (out []elf.Relocation, warnings []string) {
	out = make([]elf.Relocation, 0, len(relocs))
	for _, r := range relocs {
		newIdx, ok := symNdx[int(r.Symbol)]
		if !ok {
			warnings = append(warnings, "relocation references a symbol removed by the rewrite; dropping")
			continue
		}
		r.Symbol = uint32(newIdx)
		out = append(out, r)
	}
	return out, warnings
}
