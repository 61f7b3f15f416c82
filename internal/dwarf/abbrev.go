package dwarf

import (
	"github.com/embtoolkit/elftoolchain-go/internal/binio"
)

// AbbrevAttr is one (attribute, form) pair of an abbreviation declaration.
type AbbrevAttr struct {
	Attr Attr
	Form Form
}

// Abbrev is one decoded entry of an abbreviation table: a tag, whether the
// DIE using it has children, and its ordered attribute/form list.
type Abbrev struct {
	Code     uint64
	Tag      Tag
	Children bool
	Attrs    []AbbrevAttr
}

// AbbrevTable indexes the abbrevs belonging to one compilation unit by
// their code, per spec §4.4.
type AbbrevTable struct {
	byCode map[uint64]*Abbrev
}

func (t *AbbrevTable) lookup(code uint64) (*Abbrev, bool) {
	a, ok := t.byCode[code]
	return a, ok
}

// ParseAbbrevTable decodes one abbreviation table starting at offset off in
// the .debug_abbrev payload, stopping at the terminating zero code.
func ParseAbbrevTable(data []byte, off int) (*AbbrevTable, int, error) {
	if off < 0 || off > len(data) {
		return nil, 0, newError(CodeInvalidAbbrev, "offset %d out of range", off)
	}
	c := binio.NewCursor(data[off:], binio.LittleEndian)
	table := &AbbrevTable{byCode: make(map[uint64]*Abbrev)}

	for {
		code, err := c.ULEB128()
		if err != nil {
			return nil, 0, wrapError(CodeInvalidAbbrev, err, "reading abbrev code")
		}
		if code == 0 {
			break
		}

		tag, err := c.ULEB128()
		if err != nil {
			return nil, 0, wrapError(CodeInvalidAbbrev, err, "reading tag for code %d", code)
		}

		hasChildren, err := c.U8()
		if err != nil {
			return nil, 0, wrapError(CodeInvalidAbbrev, err, "reading children flag for code %d", code)
		}
		if hasChildren != 0 && hasChildren != 1 {
			return nil, 0, newError(CodeInvalidAbbrev, "children flag %d out of range for code %d", hasChildren, code)
		}

		abbrev := &Abbrev{Code: code, Tag: Tag(tag), Children: hasChildren == 1}
		for {
			attr, err := c.ULEB128()
			if err != nil {
				return nil, 0, wrapError(CodeInvalidAbbrev, err, "reading attribute for code %d", code)
			}
			form, err := c.ULEB128()
			if err != nil {
				return nil, 0, wrapError(CodeInvalidAbbrev, err, "reading form for code %d", code)
			}
			if attr == 0 && form == 0 {
				break
			}
			abbrev.Attrs = append(abbrev.Attrs, AbbrevAttr{Attr: Attr(attr), Form: Form(form)})
		}

		table.byCode[code] = abbrev
	}

	return table, off + c.Pos(), nil
}

// EncodeAbbrevTable serializes an abbreviation table in slice order: each
// entry's attribute list ends with a (0,0) pair, and the table ends with a
// single 0 code.
func EncodeAbbrevTable(abbrevs []*Abbrev) []byte {
	var buf []byte
	for _, a := range abbrevs {
		buf = binio.PutULEB128(buf, a.Code)
		buf = binio.PutULEB128(buf, uint64(a.Tag))
		if a.Children {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		for _, pair := range a.Attrs {
			buf = binio.PutULEB128(buf, uint64(pair.Attr))
			buf = binio.PutULEB128(buf, uint64(pair.Form))
		}
		buf = binio.PutULEB128(buf, 0)
		buf = binio.PutULEB128(buf, 0)
	}
	buf = binio.PutULEB128(buf, 0)
	return buf
}
