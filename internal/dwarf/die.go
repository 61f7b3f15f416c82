package dwarf

import (
	"github.com/embtoolkit/elftoolchain-go/internal/binio"
)

// DIE is one debugging information entry: a tag, its decoded attributes in
// on-disk order, and its children in preorder (spec §4.5).
type DIE struct {
	Offset   uint64
	Tag      Tag
	Children []*DIE
	Parent   *DIE
	Attrs    []Attribute

	// CU is the owning compilation unit, nil for DIEs built by a Producer
	// that haven't been attached to a parsed CU.
	CU *CU
}

// Val returns the first attribute value for attr, if present.
func (d *DIE) Val(attr Attr) (Value, bool) {
	for _, a := range d.Attrs {
		if a.Attr == attr {
			return a.Value, true
		}
	}
	return Value{}, false
}

// CU is one compilation unit: its header fields plus the parsed DIE tree
// and an offset-keyed index for constant-time DW_FORM_ref_* resolution
// (spec §4.5).
type CU struct {
	Offset       uint64
	UnitLength   uint64
	Version      uint16
	AbbrevOffset uint64
	AddrSize     uint8
	Is64         bool // 64-bit DWARF format (distinct from ELF class)

	Root    *DIE
	byOffset map[uint64]*DIE
}

// DIEByOffset resolves a DW_FORM_ref_* target within this CU in constant
// expected time.
func (cu *CU) DIEByOffset(off uint64) (*DIE, bool) {
	d, ok := cu.byOffset[off]
	return d, ok
}

// parseCUHeader decodes the fixed portion of a CU header and leaves c
// positioned at the start of its DIE stream, returning the CU (with no
// tree yet) and its end offset.
func parseCUHeader(c *binio.Cursor, off int) (*CU, int, error) {
	c.Seek(off)

	unitLength, err := c.U32()
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading CU unit_length at %#x", off)
	}
	is64 := false
	length := uint64(unitLength)
	if unitLength == 0xffffffff {
		is64 = true
		length, err = c.U64()
		if err != nil {
			return nil, 0, wrapError(CodeELF, err, "reading 64-bit CU unit_length at %#x", off)
		}
	}
	cuEnd := c.Pos() + int(length)

	version, err := c.U16()
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading CU version")
	}

	abbrevOffset, err := c.UOffset(is64)
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading CU abbrev_offset")
	}

	addrSize, err := c.U8()
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading CU address_size")
	}

	cu := &CU{
		Offset:       uint64(off),
		UnitLength:   length,
		Version:      version,
		AbbrevOffset: abbrevOffset,
		AddrSize:     addrSize,
		Is64:         is64,
		byOffset:     make(map[uint64]*DIE),
	}

	return cu, cuEnd, nil
}

// PeekAbbrevOffset reads just the abbrev_offset field of the CU header at
// off, without decoding its DIE tree, so the correct abbrev table can be
// selected before the real parse.
func PeekAbbrevOffset(debugInfo []byte, off int) (uint64, error) {
	c := binio.NewCursor(debugInfo, binio.LittleEndian)
	cu, _, err := parseCUHeader(c, off)
	if err != nil {
		return 0, err
	}
	return cu.AbbrevOffset, nil
}

// ParseCU decodes one compilation unit starting at offset off within the
// .debug_info payload, using abbrevTable for DIE structure.
func ParseCU(debugInfo []byte, off int, abbrevTable *AbbrevTable, fc formContext) (*CU, int, error) {
	c := binio.NewCursor(debugInfo, binio.LittleEndian)
	cu, cuEnd, err := parseCUHeader(c, off)
	if err != nil {
		return nil, 0, err
	}

	fc.addrSize = int(cu.AddrSize)
	fc.is64 = cu.Is64

	root, err := parseDIETree(c, cuEnd, abbrevTable, cu, fc)
	if err != nil {
		return nil, 0, err
	}
	cu.Root = root

	return cu, cuEnd, nil
}

// parseDIETree walks a flat abbrev-code stream into the nested DIE tree
// spec §4.5 describes: a level counter starting at zero, incremented on
// every abbrev with children, decremented on a zero code.
func parseDIETree(c *binio.Cursor, end int, abbrevTable *AbbrevTable, cu *CU, fc formContext) (*DIE, error) {
	var root *DIE
	var stack []*DIE

	for c.Pos() < end {
		dieOffset := uint64(c.Pos())
		code, err := c.ULEB128()
		if err != nil {
			return nil, wrapError(CodeELF, err, "reading abbrev code at %#x", dieOffset)
		}
		if code == 0 {
			if len(stack) == 0 {
				break
			}
			stack = stack[:len(stack)-1]
			continue
		}

		abbrev, ok := abbrevTable.lookup(code)
		if !ok {
			return nil, newError(CodeInvalidAbbrev, "unknown abbrev code %d at %#x", code, dieOffset)
		}

		die := &DIE{Offset: dieOffset, Tag: abbrev.Tag, CU: cu}
		if len(stack) > 0 {
			die.Parent = stack[len(stack)-1]
		}

		for _, pair := range abbrev.Attrs {
			val, err := decodeFormValue(c, pair.Form, fc)
			if err != nil {
				return nil, wrapError(CodeELF, err, "decoding attribute %#x form %#x at %#x", pair.Attr, pair.Form, dieOffset)
			}
			die.Attrs = append(die.Attrs, Attribute{Attr: pair.Attr, Form: pair.Form, Value: val})
		}

		cu.byOffset[dieOffset] = die

		if die.Parent != nil {
			die.Parent.Children = append(die.Parent.Children, die)
		} else if root == nil {
			root = die
		}

		if abbrev.Children {
			stack = append(stack, die)
		}
	}

	return root, nil
}

// Preorder returns the DIE tree's nodes in on-disk order (spec §4.5).
func Preorder(root *DIE) []*DIE {
	var out []*DIE
	var walk func(*DIE)
	walk = func(d *DIE) {
		out = append(out, d)
		for _, c := range d.Children {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}
