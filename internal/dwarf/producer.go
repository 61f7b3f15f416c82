package dwarf

import (
	"fmt"

	"github.com/embtoolkit/elftoolchain-go/internal/binio"
)

// Producer accumulates DIEs, abbreviations, macro sets, and location
// lists, and serializes the lot back to section bytes. It is the write
// side of this package; the rewrite pipeline in internal/rewrite does not
// call it.
type Producer struct {
	addrSize int

	abbrevs     []*Abbrev
	abbrevIndex map[string]uint64
	nextCode    uint64
}

// NewProducer creates a Producer targeting the given CU pointer size.
func NewProducer(addrSize int) *Producer {
	return &Producer{addrSize: addrSize, abbrevIndex: make(map[string]uint64), nextCode: 1}
}

// NewDIE allocates a detached DIE; the caller links it into a tree by
// appending to a parent's Children and setting Parent.
func (p *Producer) NewDIE(tag Tag, attrs []Attribute) *DIE {
	return &DIE{Tag: tag, Attrs: attrs}
}

// abbrevSignature identifies the structural shape an abbrev captures: tag,
// children, and the ordered (attribute, form) list. DIEs sharing a
// signature share one abbrev code, matching how compilers emit tables.
func abbrevSignature(tag Tag, children bool, attrs []Attribute) string {
	sig := fmt.Sprintf("%d:%v:", tag, children)
	for _, a := range attrs {
		sig += fmt.Sprintf("%d,%d;", a.Attr, a.Form)
	}
	return sig
}

func (p *Producer) codeFor(tag Tag, children bool, attrs []Attribute) uint64 {
	sig := abbrevSignature(tag, children, attrs)
	if code, ok := p.abbrevIndex[sig]; ok {
		return code
	}

	code := p.nextCode
	p.nextCode++
	pairs := make([]AbbrevAttr, len(attrs))
	for i, a := range attrs {
		pairs[i] = AbbrevAttr{Attr: a.Attr, Form: a.Form}
	}
	p.abbrevs = append(p.abbrevs, &Abbrev{Code: code, Tag: tag, Children: children, Attrs: pairs})
	p.abbrevIndex[sig] = code
	return code
}

// EmitAbbrevTable serializes every abbrev this Producer has registered so
// far, in the order DIEs first used them.
func (p *Producer) EmitAbbrevTable() []byte {
	return EncodeAbbrevTable(p.abbrevs)
}

// EmitCU serializes one compilation unit's header and DIE tree. abbrevOffset
// is the offset of this Producer's abbrev table within the final
// .debug_abbrev section, supplied by the caller once section layout is
// known.
func (p *Producer) EmitCU(version uint16, abbrevOffset uint64, root *DIE) []byte {
	var body []byte
	body = p.encodeDIE(body, root)

	var header []byte
	header = appendU16(header, version)
	// 32-bit DWARF: abbrev_offset is 4 bytes whatever the address size.
	header = append(header, appendU32(nil, uint32(abbrevOffset))...)
	header = append(header, byte(p.addrSize))

	unitLength := uint32(len(header) + len(body))
	out := appendU32(nil, unitLength)
	out = append(out, header...)
	out = append(out, body...)
	return out
}

func (p *Producer) encodeDIE(buf []byte, die *DIE) []byte {
	hasChildren := len(die.Children) > 0
	code := p.codeFor(die.Tag, hasChildren, die.Attrs)
	buf = binio.PutULEB128(buf, code)

	for _, a := range die.Attrs {
		buf = encodeFormValue(buf, a.Form, a.Value, p.addrSize)
	}

	for _, child := range die.Children {
		buf = p.encodeDIE(buf, child)
	}
	if hasChildren {
		buf = binio.PutULEB128(buf, 0)
	}

	return buf
}

func encodeFormValue(buf []byte, form Form, v Value, addrSize int) []byte {
	switch form {
	case FormAddr:
		if addrSize == 8 {
			return appendU64(buf, v.U)
		}
		return appendU32(buf, uint32(v.U))

	case FormData1, FormFlag:
		return append(buf, byte(v.U))
	case FormData2:
		return appendU16(buf, uint16(v.U))
	case FormData4:
		return appendU32(buf, uint32(v.U))
	case FormData8:
		return appendU64(buf, v.U)
	case FormUdata:
		return binio.PutULEB128(buf, v.U)
	case FormSdata:
		return binio.PutSLEB128(buf, v.S)

	case FormString:
		buf = append(buf, []byte(v.Str)...)
		return append(buf, 0)

	case FormBlock1:
		buf = append(buf, byte(len(v.Block)))
		return append(buf, v.Block...)
	case FormBlock2:
		buf = appendU16(buf, uint16(len(v.Block)))
		return append(buf, v.Block...)
	case FormBlock4:
		buf = appendU32(buf, uint32(len(v.Block)))
		return append(buf, v.Block...)
	case FormBlock:
		buf = binio.PutULEB128(buf, uint64(len(v.Block)))
		return append(buf, v.Block...)

	case FormRef1:
		return append(buf, byte(v.U))
	case FormRef2:
		return appendU16(buf, uint16(v.U))
	case FormRef4:
		return appendU32(buf, uint32(v.U))
	case FormRef8:
		return appendU64(buf, v.U)
	case FormRefUdata:
		return binio.PutULEB128(buf, v.U)
	case FormRefAddr:
		if addrSize == 8 {
			return appendU64(buf, v.U)
		}
		return appendU32(buf, uint32(v.U))

	default:
		return buf
	}
}

// EmitLoclist serializes a sequence of Locdesc entries back to
// .debug_loc's on-disk shape (spec §4.8).
func (p *Producer) EmitLoclist(entries []Locdesc) []byte {
	var buf []byte
	marker := allOnes(p.addrSize)

	for _, e := range entries {
		switch {
		case e.End:
			buf = p.appendAddr(buf, 0)
			buf = p.appendAddr(buf, 0)
		case e.BaseSelect:
			buf = p.appendAddr(buf, marker)
			buf = p.appendAddr(buf, e.Hipc)
		default:
			buf = p.appendAddr(buf, e.Lopc)
			buf = p.appendAddr(buf, e.Hipc)
			exprBytes := EncodeExpression(e.Expr, p.addrSize)
			buf = appendU16(buf, uint16(len(exprBytes)))
			buf = append(buf, exprBytes...)
		}
	}

	return buf
}

func (p *Producer) appendAddr(buf []byte, v uint64) []byte {
	if p.addrSize == 8 {
		return appendU64(buf, v)
	}
	return appendU32(buf, uint32(v))
}
