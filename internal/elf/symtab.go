package elf

import (
	"fmt"

	"github.com/embtoolkit/elftoolchain-go/internal/binio"
)

// DecodeSymbolTable decodes a .symtab/.dynsym section's payload into Symbol
// values, resolving names against the paired string table.
func DecodeSymbolTable(payload []byte, strtab []byte, order binio.Order, is64 bool) ([]Symbol, error) {
	entsize := symSize32
	if is64 {
		entsize = symSize64
	}
	if len(payload)%entsize != 0 {
		return nil, fmt.Errorf("%w: symbol table size %d not a multiple of entry size %d", ErrTruncatedSection, len(payload), entsize)
	}
	n := len(payload) / entsize
	out := make([]Symbol, n)
	for i := 0; i < n; i++ {
		cur := binio.NewCursorAt(payload, order, i*entsize)
		var sym Symbol
		var nameIdx uint32
		if is64 {
			idx, _ := cur.U32()
			info, _ := cur.U8()
			other, _ := cur.U8()
			shndx, _ := cur.U16()
			value, _ := cur.U64()
			size, _ := cur.U64()
			nameIdx = idx
			sym.Binding = SymbolBinding(info >> 4)
			sym.Type = SymbolType(info & 0xf)
			sym.Visibility = SymbolVisibility(other & 0x3)
			sym.Section = shndx
			sym.Value = value
			sym.Size = size
		} else {
			idx, _ := cur.U32()
			value, _ := cur.U32()
			size, _ := cur.U32()
			info, _ := cur.U8()
			other, _ := cur.U8()
			shndx, _ := cur.U16()
			nameIdx = idx
			sym.Binding = SymbolBinding(info >> 4)
			sym.Type = SymbolType(info & 0xf)
			sym.Visibility = SymbolVisibility(other & 0x3)
			sym.Section = shndx
			sym.Value = uint64(value)
			sym.Size = uint64(size)
		}
		sym.NameIndex = nameIdx
		if i == 0 {
			// Reserved index-0 symbol: name is always empty, never
			// looked up (it need not point at a valid string).
			out[i] = sym
			continue
		}
		name, err := lookupString(strtab, nameIdx)
		if err != nil {
			return nil, fmt.Errorf("elf: symbol %d: %w", i, err)
		}
		sym.Name = name
		out[i] = sym
	}
	return out, nil
}

// EncodeSymbol appends one symbol table entry to buf using the symbol's
// already-assigned NameIndex (a string-table offset, not looked up here).
func EncodeSymbol(buf []byte, order binio.Order, is64 bool, sym Symbol) []byte {
	enc := binio.NewEncoder(order)
	info := byte(sym.Binding)<<4 | byte(sym.Type)&0xf
	other := byte(sym.Visibility) & 0x3
	if is64 {
		entry := make([]byte, symSize64)
		enc.PutUint32(entry[0:], sym.NameIndex)
		entry[4] = info
		entry[5] = other
		enc.PutUint16(entry[6:], sym.Section)
		enc.PutUint64(entry[8:], sym.Value)
		enc.PutUint64(entry[16:], sym.Size)
		return append(buf, entry...)
	}
	entry := make([]byte, symSize32)
	enc.PutUint32(entry[0:], sym.NameIndex)
	enc.PutUint32(entry[4:], uint32(sym.Value))
	enc.PutUint32(entry[8:], uint32(sym.Size))
	entry[12] = info
	entry[13] = other
	enc.PutUint16(entry[14:], sym.Section)
	return append(buf, entry...)
}

// DecodeRelocationTable decodes a .rel/.rela section's payload.
func DecodeRelocationTable(payload []byte, order binio.Order, is64 bool, hasAddend bool) ([]Relocation, error) {
	var entsize int
	switch {
	case is64 && hasAddend:
		entsize = relaSize64
	case is64:
		entsize = relSize64
	case hasAddend:
		entsize = relaSize32
	default:
		entsize = relSize32
	}
	if len(payload)%entsize != 0 {
		return nil, fmt.Errorf("%w: relocation table size %d not a multiple of entry size %d", ErrTruncatedSection, len(payload), entsize)
	}
	n := len(payload) / entsize
	out := make([]Relocation, n)
	for i := 0; i < n; i++ {
		cur := binio.NewCursorAt(payload, order, i*entsize)
		var r Relocation
		r.HasAddend = hasAddend
		if is64 {
			off, _ := cur.U64()
			info, _ := cur.U64()
			r.Offset = off
			r.Symbol = uint32(info >> 32)
			r.Type = uint32(info)
		} else {
			off, _ := cur.U32()
			info, _ := cur.U32()
			r.Offset = uint64(off)
			r.Symbol = info >> 8
			r.Type = info & 0xff
		}
		if hasAddend {
			if is64 {
				a, _ := cur.U64()
				r.Addend = int64(a)
			} else {
				a, _ := cur.U32()
				r.Addend = int64(int32(a))
			}
		}
		out[i] = r
	}
	return out, nil
}

// EncodeRelocation appends one relocation entry to buf.
func EncodeRelocation(buf []byte, order binio.Order, is64 bool, r Relocation) []byte {
	enc := binio.NewEncoder(order)
	if is64 {
		entry := make([]byte, relSize64, relaSize64)
		enc.PutUint64(entry[0:], r.Offset)
		info := uint64(r.Symbol)<<32 | uint64(r.Type)
		enc.PutUint64(entry[8:], info)
		if r.HasAddend {
			a := make([]byte, 8)
			enc.PutUint64(a, uint64(r.Addend))
			entry = append(entry, a...)
		}
		return append(buf, entry...)
	}
	entry := make([]byte, relSize32, relaSize32)
	enc.PutUint32(entry[0:], uint32(r.Offset))
	info := r.Symbol<<8 | (r.Type & 0xff)
	enc.PutUint32(entry[4:], info)
	if r.HasAddend {
		a := make([]byte, 4)
		enc.PutUint32(a, uint32(r.Addend))
		entry = append(entry, a...)
	}
	return append(buf, entry...)
}
