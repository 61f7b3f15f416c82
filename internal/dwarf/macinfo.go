package dwarf

import "github.com/embtoolkit/elftoolchain-go/internal/binio"

// MacEntry is one decoded macro-info stream entry (spec §4.9).
type MacEntry struct {
	Type   MacType
	Line   uint64 // define, undef, vendor_ext, start_file
	Text   string // define, undef, vendor_ext: the macro string
	FileIdx uint64 // start_file
}

// MacSet is one macro set: the entries between a stream start and its
// terminating zero type byte.
type MacSet struct {
	Entries []MacEntry
}

// ParseMacinfo decodes every macro set in a .debug_macinfo payload
// starting at offset off, returning one MacSet per ended stream (spec
// §4.9: "the consumer builds a list of macro sets").
func ParseMacinfo(data []byte, off int) ([]MacSet, error) {
	c := binio.NewCursor(data, binio.LittleEndian)
	c.Seek(off)

	var sets []MacSet
	var current MacSet
	inSet := false

	for !c.AtEnd() {
		typeByte, err := c.U8()
		if err != nil {
			return nil, wrapError(CodeInvalidMacinfo, err, "reading macinfo type byte")
		}
		t := MacType(typeByte)

		if t == MacEnd {
			if inSet {
				sets = append(sets, current)
				current = MacSet{}
				inSet = false
			}
			continue
		}
		inSet = true

		switch t {
		case MacDefine, MacUndef, MacVendorExt:
			line, err := c.ULEB128()
			if err != nil {
				return nil, wrapError(CodeInvalidMacinfo, err, "reading macinfo line number")
			}
			text, err := c.CString()
			if err != nil {
				return nil, wrapError(CodeInvalidMacinfo, err, "reading macinfo string")
			}
			current.Entries = append(current.Entries, MacEntry{Type: t, Line: line, Text: text})

		case MacStartFile:
			line, err := c.ULEB128()
			if err != nil {
				return nil, wrapError(CodeInvalidMacinfo, err, "reading start_file line number")
			}
			fileIdx, err := c.ULEB128()
			if err != nil {
				return nil, wrapError(CodeInvalidMacinfo, err, "reading start_file file index")
			}
			current.Entries = append(current.Entries, MacEntry{Type: t, Line: line, FileIdx: fileIdx})

		case MacEndFile:
			current.Entries = append(current.Entries, MacEntry{Type: t})

		default:
			return nil, newError(CodeInvalidMacinfo, "macinfo type %#x out of range", typeByte)
		}
	}

	if inSet {
		sets = append(sets, current)
	}

	return sets, nil
}

// EncodeMacinfo serializes a list of macro sets back to their equivalent
// bytes, one terminating zero type byte per set (spec §4.9: "the producer
// accepts a list and writes the equivalent bytes").
func EncodeMacinfo(sets []MacSet) []byte {
	var buf []byte
	for _, set := range sets {
		for _, e := range set.Entries {
			buf = append(buf, byte(e.Type))
			switch e.Type {
			case MacDefine, MacUndef, MacVendorExt:
				buf = binio.PutULEB128(buf, e.Line)
				buf = append(buf, []byte(e.Text)...)
				buf = append(buf, 0)
			case MacStartFile:
				buf = binio.PutULEB128(buf, e.Line)
				buf = binio.PutULEB128(buf, e.FileIdx)
			case MacEndFile:
			}
		}
		buf = append(buf, byte(MacEnd))
	}
	return buf
}
