package dwarf

import (
	"github.com/embtoolkit/elftoolchain-go/internal/binio"
	"github.com/embtoolkit/elftoolchain-go/internal/elf"
)

// DebugContext is the explicit, caller-owned handle for one object's
// debug information (spec §9: never global/ambient state). It holds the
// parsed compilation units plus the lazily-populated location-list and
// macro-info caches, each keyed by section offset.
type DebugContext struct {
	CUs []*CU

	debugStr      []byte
	debugLoc      []byte
	debugMacinfo  []byte
	addrSize      int

	loclists *LoclistCache
	macinfo  map[uint64][]MacSet
}

// NewDebugContext relocates (spec §4.10) and parses every .debug_info
// compilation unit in obj, returning a context ready for attribute,
// location, and macro queries. A missing .debug_info yields an empty,
// non-nil context rather than an error.
func NewDebugContext(obj *elf.Object) (*DebugContext, error) {
	order := elfOrder(obj)
	is64 := obj.Class() == elf.ELFCLASS64

	debugInfo, err := RelocatedDebugSection(obj, ".debug_info", order, is64)
	if err != nil {
		return nil, err
	}
	debugAbbrev, err := RelocatedDebugSection(obj, ".debug_abbrev", order, is64)
	if err != nil {
		return nil, err
	}
	debugStr, err := RelocatedDebugSection(obj, ".debug_str", order, is64)
	if err != nil {
		return nil, err
	}
	debugLoc, err := RelocatedDebugSection(obj, ".debug_loc", order, is64)
	if err != nil {
		return nil, err
	}
	debugMacinfo, err := RelocatedDebugSection(obj, ".debug_macinfo", order, is64)
	if err != nil {
		return nil, err
	}

	ctx := &DebugContext{
		debugStr:     debugStr,
		debugLoc:     debugLoc,
		debugMacinfo: debugMacinfo,
		macinfo:      make(map[uint64][]MacSet),
	}

	if debugInfo == nil {
		return ctx, nil
	}

	fc := formContext{debugStr: debugStr}
	abbrevTables := make(map[uint64]*AbbrevTable)

	for off := 0; off < len(debugInfo); {
		// The abbrev table for this CU is shared with any other CU at the
		// same abbrev_offset; cache by that offset to avoid reparsing.
		abbrevOffset, err := PeekAbbrevOffset(debugInfo, off)
		if err != nil {
			return nil, err
		}
		table, ok := abbrevTables[abbrevOffset]
		if !ok {
			table, _, err = ParseAbbrevTable(debugAbbrev, int(abbrevOffset))
			if err != nil {
				return nil, err
			}
			abbrevTables[abbrevOffset] = table
		}

		cu, next, err := ParseCU(debugInfo, off, table, fc)
		if err != nil {
			return nil, err
		}
		ctx.CUs = append(ctx.CUs, cu)
		if cu.AddrSize > 0 {
			ctx.addrSize = int(cu.AddrSize)
		}
		off = next
	}

	ctx.loclists = newLoclistCache(debugLoc, ctx.addrSize)

	return ctx, nil
}

func elfOrder(obj *elf.Object) binio.Order {
	if obj.Endianness() == elf.ELFDATA2MSB {
		return binio.BigEndian
	}
	return binio.LittleEndian
}

// Location resolves attr on die to its location-list or inline expression,
// per spec §4.6/§4.8: a block-valued attribute is an inline exprloc
// (wrapped into a bare, "valid everywhere" Locdesc); an unsigned-valued
// attribute is a loclistptr into .debug_loc.
func (ctx *DebugContext) Location(die *DIE, attr Attr) ([]Locdesc, Status, error) {
	val, ok := die.Val(attr)
	if !ok {
		return nil, StatusNoEntry, nil
	}

	addrSize := ctx.addrSize
	if die.CU != nil && die.CU.AddrSize > 0 {
		addrSize = int(die.CU.AddrSize)
	}

	switch val.Kind {
	case ValBlock:
		expr, err := ParseExpression(val.Block, addrSize)
		if err != nil {
			return nil, StatusError, err
		}
		return []Locdesc{bareLocdesc(expr, addrSize)}, StatusOK, nil

	case ValUnsigned:
		if ctx.loclists == nil {
			return nil, StatusNoEntry, nil
		}
		list, status, err := ctx.loclists.add(val.U)
		if err != nil {
			return nil, StatusError, err
		}
		return list.Entries, status, nil

	default:
		return nil, StatusError, newError(CodeInvalidExpr, "attribute %#x has non-location value kind", attr)
	}
}

// Macinfo resolves the macro-info stream at offset off, decoding and
// caching it on first use.
func (ctx *DebugContext) Macinfo(off uint64) ([]MacSet, Status, error) {
	if sets, ok := ctx.macinfo[off]; ok {
		return sets, StatusOK, nil
	}
	sets, err := ParseMacinfo(ctx.debugMacinfo, int(off))
	if err != nil {
		return nil, StatusError, err
	}
	ctx.macinfo[off] = sets
	return sets, StatusOK, nil
}
