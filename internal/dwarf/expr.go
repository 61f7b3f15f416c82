package dwarf

import "github.com/embtoolkit/elftoolchain-go/internal/binio"

// Operator is one decoded location-expression operator record (spec §4.7).
// Signed operands (DW_OP_consts, DW_OP_fbreg, DW_OP_breg0..31) are held in
// Operand2 with Operand1 zero; DW_OP_bregx uses both. Other shapes leave
// Operand2 zero.
type Operator struct {
	Opcode   Op
	Operand1 uint64
	Operand2 int64
}

// Expression is a fully decoded location expression: an ordered operator
// stream.
type Expression struct {
	Ops []Operator
}

// operandShape classifies how many bytes/what kind of operand an opcode
// consumes, per the table in spec §4.7.
type operandShape int

const (
	shapeNone operandShape = iota
	shapeFixed1
	shapeFixed2
	shapeFixed4
	shapeFixed8
	shapeULEB
	shapeSLEB
	shapeULEBThenSLEB
	shapeAddr
	shapeInvalid
)

func shapeOf(op Op) operandShape {
	switch {
	case op >= OpLit0 && op < OpLit0+32:
		return shapeNone
	case op >= OpReg0 && op < OpReg0+32:
		return shapeNone
	case op >= OpBreg0 && op < OpBreg0+32:
		return shapeSLEB
	}

	switch op {
	case OpDeref, OpDup, OpDrop, OpOver, OpSwap, OpRot, OpXderef,
		OpAbs, OpAnd, OpDiv, OpMinus, OpMod, OpMul, OpNeg, OpNot, OpOr, OpPlus,
		OpShl, OpShr, OpShra, OpXor,
		OpEq, OpGe, OpGt, OpLe, OpLt, OpNe, OpNop:
		return shapeNone

	case OpConst1u, OpConst1s, OpPick, OpDerefSize, OpXderefSize:
		return shapeFixed1
	case OpConst2u, OpConst2s, OpBra, OpSkip:
		return shapeFixed2
	case OpConst4u, OpConst4s:
		return shapeFixed4
	case OpConst8u, OpConst8s:
		return shapeFixed8

	case OpConstu, OpPlusUconst, OpRegx, OpPiece:
		return shapeULEB

	case OpConsts, OpFbreg:
		return shapeSLEB

	case OpBregx:
		return shapeULEBThenSLEB

	case OpAddr:
		return shapeAddr

	default:
		return shapeInvalid
	}
}

// ParseExpression decodes a location expression's byte stream per spec
// §4.7: a two-pass scan (count, then fill) over single-byte opcodes with
// one of a fixed set of operand shapes.
func ParseExpression(data []byte, addrSize int) (*Expression, error) {
	// First pass: validate and count so Ops can be pre-sized; this mirrors
	// the count-then-fill shape spec §4.7 asks for, and catches malformed
	// opcodes before any allocation happens.
	n, err := countOperators(data, addrSize)
	if err != nil {
		return nil, err
	}

	expr := &Expression{Ops: make([]Operator, 0, n)}
	c := binio.NewCursor(data, binio.LittleEndian)
	for !c.AtEnd() {
		opByte, err := c.U8()
		if err != nil {
			return nil, wrapError(CodeInvalidExpr, err, "reading opcode")
		}
		op := Op(opByte)
		rec, err := readOperand(c, op, addrSize)
		if err != nil {
			return nil, err
		}
		expr.Ops = append(expr.Ops, rec)
	}
	return expr, nil
}

func countOperators(data []byte, addrSize int) (int, error) {
	c := binio.NewCursor(data, binio.LittleEndian)
	n := 0
	for !c.AtEnd() {
		opByte, err := c.U8()
		if err != nil {
			return 0, wrapError(CodeInvalidExpr, err, "reading opcode")
		}
		if _, err := readOperand(c, Op(opByte), addrSize); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

func readOperand(c *binio.Cursor, op Op, addrSize int) (Operator, error) {
	switch shapeOf(op) {
	case shapeNone:
		return Operator{Opcode: op}, nil

	case shapeFixed1:
		v, err := c.U8()
		if err != nil {
			return Operator{}, wrapError(CodeInvalidExpr, err, "reading 1-byte operand for %#x", op)
		}
		return Operator{Opcode: op, Operand1: uint64(v)}, nil

	case shapeFixed2:
		v, err := c.U16()
		if err != nil {
			return Operator{}, wrapError(CodeInvalidExpr, err, "reading 2-byte operand for %#x", op)
		}
		return Operator{Opcode: op, Operand1: uint64(v)}, nil

	case shapeFixed4:
		v, err := c.U32()
		if err != nil {
			return Operator{}, wrapError(CodeInvalidExpr, err, "reading 4-byte operand for %#x", op)
		}
		return Operator{Opcode: op, Operand1: uint64(v)}, nil

	case shapeFixed8:
		v, err := c.U64()
		if err != nil {
			return Operator{}, wrapError(CodeInvalidExpr, err, "reading 8-byte operand for %#x", op)
		}
		return Operator{Opcode: op, Operand1: v}, nil

	case shapeULEB:
		v, err := c.ULEB128()
		if err != nil {
			return Operator{}, wrapError(CodeInvalidExpr, err, "reading ULEB128 operand for %#x", op)
		}
		return Operator{Opcode: op, Operand1: v}, nil

	case shapeSLEB:
		v, err := c.SLEB128()
		if err != nil {
			return Operator{}, wrapError(CodeInvalidExpr, err, "reading SLEB128 operand for %#x", op)
		}
		return Operator{Opcode: op, Operand2: v}, nil

	case shapeULEBThenSLEB:
		u, err := c.ULEB128()
		if err != nil {
			return Operator{}, wrapError(CodeInvalidExpr, err, "reading ULEB128 half of %#x", op)
		}
		s, err := c.SLEB128()
		if err != nil {
			return Operator{}, wrapError(CodeInvalidExpr, err, "reading SLEB128 half of %#x", op)
		}
		return Operator{Opcode: op, Operand1: u, Operand2: s}, nil

	case shapeAddr:
		v, err := readSized(c, addrSize)
		if err != nil {
			return Operator{}, wrapError(CodeInvalidExpr, err, "reading address operand for %#x", op)
		}
		return Operator{Opcode: op, Operand1: v}, nil

	default:
		return Operator{}, newError(CodeInvalidExpr, "opcode %#x has no known operand shape", op)
	}
}

func appendU16(buf []byte, v uint16) []byte {
	b := make([]byte, 2)
	binio.LittleEndian.PutUint16(b, v)
	return append(buf, b...)
}

func appendU32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	binio.LittleEndian.PutUint32(b, v)
	return append(buf, b...)
}

func appendU64(buf []byte, v uint64) []byte {
	b := make([]byte, 8)
	binio.LittleEndian.PutUint64(b, v)
	return append(buf, b...)
}

// EncodeExpression serializes an Expression back to its byte-stream form.
func EncodeExpression(expr *Expression, addrSize int) []byte {
	var buf []byte
	for _, rec := range expr.Ops {
		buf = append(buf, byte(rec.Opcode))
		switch shapeOf(rec.Opcode) {
		case shapeNone:
		case shapeFixed1:
			buf = append(buf, byte(rec.Operand1))
		case shapeFixed2:
			buf = appendU16(buf, uint16(rec.Operand1))
		case shapeFixed4:
			buf = appendU32(buf, uint32(rec.Operand1))
		case shapeFixed8:
			buf = appendU64(buf, rec.Operand1)
		case shapeULEB:
			buf = binio.PutULEB128(buf, rec.Operand1)
		case shapeSLEB:
			buf = binio.PutSLEB128(buf, rec.Operand2)
		case shapeULEBThenSLEB:
			buf = binio.PutULEB128(buf, rec.Operand1)
			buf = binio.PutSLEB128(buf, rec.Operand2)
		case shapeAddr:
			if addrSize == 8 {
				buf = appendU64(buf, rec.Operand1)
			} else {
				buf = appendU32(buf, uint32(rec.Operand1))
			}
		}
	}
	return buf
}
