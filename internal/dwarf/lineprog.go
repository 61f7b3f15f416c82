package dwarf

import "github.com/embtoolkit/elftoolchain-go/internal/binio"

// Standard line-number program opcodes (DW_LNS_*).
const (
	lnsCopy             = 1
	lnsAdvancePC        = 2
	lnsAdvanceLine      = 3
	lnsSetFile          = 4
	lnsSetColumn        = 5
	lnsNegateStmt       = 6
	lnsSetBasicBlock    = 7
	lnsConstAddPC       = 8
	lnsFixedAdvancePC   = 9
	lnsSetPrologueEnd   = 10
	lnsSetEpilogueBegin = 11
	lnsSetISA           = 12
)

// Extended line-number program opcodes (DW_LNE_*).
const (
	lneEndSequence = 1
	lneSetAddress  = 2
	lneDefineFile  = 3
)

// FileEntry is one entry of a line program's file-name table.
type FileEntry struct {
	Name    string
	DirIdx  uint64
	Mtime   uint64
	Length  uint64
}

// LineProgramHeader is the fixed portion of a .debug_line program, the
// prologue that precedes its opcode stream.
type LineProgramHeader struct {
	UnitLength            uint64
	Is64                  bool
	Version               uint16
	HeaderLength          uint64
	MinInstructionLength  uint8
	MaxOpsPerInstruction  uint8
	DefaultIsStmt         bool
	LineBase              int8
	LineRange             uint8
	OpcodeBase            uint8
	StandardOpcodeLengths []uint8
	IncludeDirectories    []string
	FileNames             []FileEntry
}

// LineRow is one emitted row of the matrix a line program produces: one
// (address, file, line, column) mapping.
type LineRow struct {
	Address      uint64
	File         uint64
	Line         int64
	Column       uint64
	IsStmt       bool
	BasicBlock   bool
	EndSequence  bool
	PrologueEnd  bool
	EpilogueBegin bool
	ISA          uint64
}

// LineProgram is one CU's decoded .debug_line unit: its header plus the
// row sequence table produced by running its state machine (spec §4.9).
type LineProgram struct {
	Header LineProgramHeader
	Rows   []LineRow
}

// ParseLineProgram decodes one line-number program starting at offset off
// in the .debug_line payload.
func ParseLineProgram(data []byte, off int, addrSize int) (*LineProgram, int, error) {
	c := binio.NewCursor(data, binio.LittleEndian)
	c.Seek(off)

	unitLength, err := c.U32()
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading line program unit_length")
	}
	is64 := false
	length := uint64(unitLength)
	if unitLength == 0xffffffff {
		is64 = true
		length, err = c.U64()
		if err != nil {
			return nil, 0, wrapError(CodeELF, err, "reading 64-bit line program unit_length")
		}
	}
	programEnd := c.Pos() + int(length)

	hdr := LineProgramHeader{UnitLength: length, Is64: is64}
	hdr.Version, err = c.U16()
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading line program version")
	}

	hdr.HeaderLength, err = c.UOffset(is64)
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading line program header_length")
	}
	programStart := c.Pos() + int(hdr.HeaderLength)

	hdr.MinInstructionLength, err = c.U8()
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading minimum_instruction_length")
	}
	if hdr.Version >= 4 {
		hdr.MaxOpsPerInstruction, err = c.U8()
		if err != nil {
			return nil, 0, wrapError(CodeELF, err, "reading maximum_operations_per_instruction")
		}
	} else {
		hdr.MaxOpsPerInstruction = 1
	}

	defaultIsStmt, err := c.U8()
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading default_is_stmt")
	}
	hdr.DefaultIsStmt = defaultIsStmt != 0

	lineBase, err := c.U8()
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading line_base")
	}
	hdr.LineBase = int8(lineBase)

	hdr.LineRange, err = c.U8()
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading line_range")
	}

	hdr.OpcodeBase, err = c.U8()
	if err != nil {
		return nil, 0, wrapError(CodeELF, err, "reading opcode_base")
	}

	hdr.StandardOpcodeLengths = make([]uint8, hdr.OpcodeBase-1)
	for i := range hdr.StandardOpcodeLengths {
		hdr.StandardOpcodeLengths[i], err = c.U8()
		if err != nil {
			return nil, 0, wrapError(CodeELF, err, "reading standard_opcode_lengths[%d]", i)
		}
	}

	for {
		s, err := c.CString()
		if err != nil {
			return nil, 0, wrapError(CodeELF, err, "reading include_directories")
		}
		if s == "" {
			break
		}
		hdr.IncludeDirectories = append(hdr.IncludeDirectories, s)
	}

	for {
		name, err := c.CString()
		if err != nil {
			return nil, 0, wrapError(CodeELF, err, "reading file_names")
		}
		if name == "" {
			break
		}
		dirIdx, err := c.ULEB128()
		if err != nil {
			return nil, 0, wrapError(CodeELF, err, "reading file dir index")
		}
		mtime, err := c.ULEB128()
		if err != nil {
			return nil, 0, wrapError(CodeELF, err, "reading file mtime")
		}
		flen, err := c.ULEB128()
		if err != nil {
			return nil, 0, wrapError(CodeELF, err, "reading file length")
		}
		hdr.FileNames = append(hdr.FileNames, FileEntry{Name: name, DirIdx: dirIdx, Mtime: mtime, Length: flen})
	}

	c.Seek(programStart)

	prog := &LineProgram{Header: hdr}
	state := newLineState(hdr.DefaultIsStmt)

	for c.Pos() < programEnd {
		opcode, err := c.U8()
		if err != nil {
			return nil, 0, wrapError(CodeELF, err, "reading opcode at %#x", c.Pos())
		}

		switch {
		case opcode == 0:
			rows, err := runExtendedOpcode(c, &state, addrSize)
			if err != nil {
				return nil, 0, err
			}
			prog.Rows = append(prog.Rows, rows...)

		case int(opcode) < int(hdr.OpcodeBase):
			row, err := runStandardOpcode(c, &state, int(opcode), hdr)
			if err != nil {
				return nil, 0, err
			}
			if row != nil {
				prog.Rows = append(prog.Rows, *row)
			}

		default:
			prog.Rows = append(prog.Rows, runSpecialOpcode(&state, int(opcode), hdr))
		}
	}

	return prog, programEnd, nil
}

type lineState struct {
	address     uint64
	file        uint64
	line        int64
	column      uint64
	isStmt      bool
	basicBlock  bool
	prologueEnd bool
	epilogueBegin bool
	isa         uint64
}

func newLineState(defaultIsStmt bool) lineState {
	return lineState{file: 1, line: 1, isStmt: defaultIsStmt}
}

func (s *lineState) row(endSequence bool) LineRow {
	return LineRow{
		Address: s.address, File: s.file, Line: s.line, Column: s.column,
		IsStmt: s.isStmt, BasicBlock: s.basicBlock, EndSequence: endSequence,
		PrologueEnd: s.prologueEnd, EpilogueBegin: s.epilogueBegin, ISA: s.isa,
	}
}

func runSpecialOpcode(state *lineState, opcode int, hdr LineProgramHeader) LineRow {
	adjusted := opcode - int(hdr.OpcodeBase)
	addrAdvance := (adjusted / int(hdr.LineRange)) * int(hdr.MinInstructionLength)
	lineAdvance := int(hdr.LineBase) + (adjusted % int(hdr.LineRange))

	state.address += uint64(addrAdvance)
	state.line += int64(lineAdvance)
	row := state.row(false)
	state.basicBlock = false
	state.prologueEnd = false
	state.epilogueBegin = false
	return row
}

func runStandardOpcode(c *binio.Cursor, state *lineState, opcode int, hdr LineProgramHeader) (*LineRow, error) {
	switch opcode {
	case lnsCopy:
		row := state.row(false)
		state.basicBlock = false
		state.prologueEnd = false
		state.epilogueBegin = false
		return &row, nil

	case lnsAdvancePC:
		v, err := c.ULEB128()
		if err != nil {
			return nil, wrapError(CodeELF, err, "DW_LNS_advance_pc operand")
		}
		state.address += v * uint64(hdr.MinInstructionLength)
		return nil, nil

	case lnsAdvanceLine:
		v, err := c.SLEB128()
		if err != nil {
			return nil, wrapError(CodeELF, err, "DW_LNS_advance_line operand")
		}
		state.line += v
		return nil, nil

	case lnsSetFile:
		v, err := c.ULEB128()
		if err != nil {
			return nil, wrapError(CodeELF, err, "DW_LNS_set_file operand")
		}
		state.file = v
		return nil, nil

	case lnsSetColumn:
		v, err := c.ULEB128()
		if err != nil {
			return nil, wrapError(CodeELF, err, "DW_LNS_set_column operand")
		}
		state.column = v
		return nil, nil

	case lnsNegateStmt:
		state.isStmt = !state.isStmt
		return nil, nil

	case lnsSetBasicBlock:
		state.basicBlock = true
		return nil, nil

	case lnsConstAddPC:
		adjusted := 255 - int(hdr.OpcodeBase)
		state.address += uint64((adjusted / int(hdr.LineRange)) * int(hdr.MinInstructionLength))
		return nil, nil

	case lnsFixedAdvancePC:
		v, err := c.U16()
		if err != nil {
			return nil, wrapError(CodeELF, err, "DW_LNS_fixed_advance_pc operand")
		}
		state.address += uint64(v)
		return nil, nil

	case lnsSetPrologueEnd:
		state.prologueEnd = true
		return nil, nil

	case lnsSetEpilogueBegin:
		state.epilogueBegin = true
		return nil, nil

	case lnsSetISA:
		v, err := c.ULEB128()
		if err != nil {
			return nil, wrapError(CodeELF, err, "DW_LNS_set_isa operand")
		}
		state.isa = v
		return nil, nil

	default:
		// Unknown standard opcode within opcode_base: consume its
		// declared argument count and ignore it (forward compatibility
		// with vendor/future standard opcodes).
		if opcode >= 1 && opcode <= len(hdr.StandardOpcodeLengths) {
			for i := 0; i < int(hdr.StandardOpcodeLengths[opcode-1]); i++ {
				if _, err := c.ULEB128(); err != nil {
					return nil, wrapError(CodeELF, err, "operand of unknown standard opcode")
				}
			}
		}
		return nil, nil
	}
}

func runExtendedOpcode(c *binio.Cursor, state *lineState, addrSize int) ([]LineRow, error) {
	length, err := c.ULEB128()
	if err != nil {
		return nil, wrapError(CodeELF, err, "reading extended opcode length")
	}
	opEnd := c.Pos() + int(length)

	sub, err := c.U8()
	if err != nil {
		return nil, wrapError(CodeELF, err, "reading extended opcode")
	}

	var rows []LineRow
	switch sub {
	case lneEndSequence:
		rows = append(rows, state.row(true))
		*state = newLineState(state.isStmt)

	case lneSetAddress:
		v, err := readSized(c, addrSize)
		if err != nil {
			return nil, wrapError(CodeELF, err, "DW_LNE_set_address operand")
		}
		state.address = v

	case lneDefineFile:
		if _, err := c.CString(); err != nil {
			return nil, wrapError(CodeELF, err, "DW_LNE_define_file name")
		}
		if _, err := c.ULEB128(); err != nil {
			return nil, err
		}
		if _, err := c.ULEB128(); err != nil {
			return nil, err
		}
		if _, err := c.ULEB128(); err != nil {
			return nil, err
		}

	default:
		// Vendor extension: skip to the declared end, its payload is
		// opaque to this consumer.
	}

	c.Seek(opEnd)
	return rows, nil
}
