package dwarf

import "github.com/embtoolkit/elftoolchain-go/internal/binio"

// ValueKind distinguishes the handful of shapes an attribute value can take
// once decoded, per the form table in spec §4.6.
type ValueKind int

const (
	ValUnsigned ValueKind = iota
	ValSigned
	ValString
	ValBlock
	ValRef
)

// Value is one decoded attribute value. Only the field matching Kind is
// meaningful.
type Value struct {
	Kind  ValueKind
	U     uint64
	S     int64
	Str   string
	Block []byte
}

// Attribute pairs a decoded value with the (attribute, form) that produced
// it, preserving the form for re-encoding and for attribute-specific
// post-processing (location expressions, loclist pointers).
type Attribute struct {
	Attr  Attr
	Form  Form
	Value Value
}

// formContext carries the few CU-scoped facts form decoding needs: pointer
// size, DWARF offset size (32- vs 64-bit format), and the .debug_str
// payload for strp lookups.
type formContext struct {
	addrSize  int
	is64      bool
	debugStr  []byte
}

// decodeFormValue reads one attribute value per the table in spec §4.6,
// recursing once for DW_FORM_indirect.
func decodeFormValue(c *binio.Cursor, form Form, fc formContext) (Value, error) {
	switch form {
	case FormAddr:
		v, err := readSized(c, fc.addrSize)
		return Value{Kind: ValUnsigned, U: v}, err

	case FormData1:
		v, err := c.U8()
		return Value{Kind: ValUnsigned, U: uint64(v)}, err
	case FormData2:
		v, err := c.U16()
		return Value{Kind: ValUnsigned, U: uint64(v)}, err
	case FormData4:
		v, err := c.U32()
		return Value{Kind: ValUnsigned, U: uint64(v)}, err
	case FormData8:
		v, err := c.U64()
		return Value{Kind: ValUnsigned, U: v}, err
	case FormUdata:
		v, err := c.ULEB128()
		return Value{Kind: ValUnsigned, U: v}, err
	case FormFlag:
		v, err := c.U8()
		return Value{Kind: ValUnsigned, U: uint64(v)}, err

	case FormSdata:
		v, err := c.SLEB128()
		return Value{Kind: ValSigned, S: v}, err

	case FormString:
		s, err := c.CString()
		return Value{Kind: ValString, Str: s}, err

	case FormStrp:
		off, err := c.UOffset(fc.is64)
		if err != nil {
			return Value{}, err
		}
		s, err := cstringAt(fc.debugStr, int(off))
		return Value{Kind: ValString, Str: s}, err

	case FormBlock1:
		n, err := c.U8()
		if err != nil {
			return Value{}, err
		}
		b, err := c.Bytes(int(n))
		return Value{Kind: ValBlock, Block: b}, err
	case FormBlock2:
		n, err := c.U16()
		if err != nil {
			return Value{}, err
		}
		b, err := c.Bytes(int(n))
		return Value{Kind: ValBlock, Block: b}, err
	case FormBlock4:
		n, err := c.U32()
		if err != nil {
			return Value{}, err
		}
		b, err := c.Bytes(int(n))
		return Value{Kind: ValBlock, Block: b}, err
	case FormBlock:
		n, err := c.ULEB128()
		if err != nil {
			return Value{}, err
		}
		b, err := c.Bytes(int(n))
		return Value{Kind: ValBlock, Block: b}, err

	case FormRef1:
		v, err := c.U8()
		return Value{Kind: ValRef, U: uint64(v)}, err
	case FormRef2:
		v, err := c.U16()
		return Value{Kind: ValRef, U: uint64(v)}, err
	case FormRef4:
		v, err := c.U32()
		return Value{Kind: ValRef, U: uint64(v)}, err
	case FormRef8:
		v, err := c.U64()
		return Value{Kind: ValRef, U: v}, err
	case FormRefUdata:
		v, err := c.ULEB128()
		return Value{Kind: ValRef, U: v}, err
	case FormRefAddr:
		v, err := c.UOffset(fc.is64)
		return Value{Kind: ValRef, U: v}, err

	case FormIndirect:
		code, err := c.ULEB128()
		if err != nil {
			return Value{}, err
		}
		return decodeFormValue(c, Form(code), fc)

	default:
		return Value{}, newError(CodeArgument, "unsupported form %#x", form)
	}
}

func readSized(c *binio.Cursor, size int) (uint64, error) {
	switch size {
	case 4:
		v, err := c.U32()
		return uint64(v), err
	case 8:
		return c.U64()
	default:
		return c.UOffset(size == 8)
	}
}

func cstringAt(buf []byte, off int) (string, error) {
	if off < 0 || off > len(buf) {
		return "", binio.ErrTruncated
	}
	end := off
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	if end >= len(buf) {
		return "", binio.ErrTruncated
	}
	return string(buf[off:end]), nil
}

// isLocationAttr reports whether attr is one of the attributes spec §4.6
// singles out as describing a location (exprloc-or-loclistptr valued).
func isLocationAttr(attr Attr) bool {
	switch attr {
	case AttrLocation, AttrFrameBase:
		return true
	default:
		return false
	}
}
