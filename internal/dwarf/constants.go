package dwarf

// Tag is DW_TAG_*, the kind of a DIE.
type Tag uint64

const (
	TagArrayType       Tag = 0x01
	TagClassType       Tag = 0x02
	TagEnumerationType Tag = 0x04
	TagFormalParameter Tag = 0x05
	TagLexicalBlock    Tag = 0x0b
	TagMember          Tag = 0x0d
	TagPointerType     Tag = 0x0f
	TagCompileUnit     Tag = 0x11
	TagStructureType   Tag = 0x13
	TagSubroutineType  Tag = 0x15
	TagTypedef         Tag = 0x16
	TagUnionType       Tag = 0x17
	TagBaseType        Tag = 0x24
	TagConstType       Tag = 0x26
	TagSubprogram      Tag = 0x2e
	TagVariable        Tag = 0x34
	TagVolatileType    Tag = 0x35
)

// Attr is DW_AT_*, the key of an attribute value.
type Attr uint64

const (
	AttrSibling      Attr = 0x01
	AttrLocation     Attr = 0x02
	AttrName         Attr = 0x03
	AttrByteSize     Attr = 0x0b
	AttrStmtList     Attr = 0x10
	AttrLowpc        Attr = 0x11
	AttrHighpc       Attr = 0x12
	AttrLanguage     Attr = 0x13
	AttrCompDir      Attr = 0x1b
	AttrConstValue   Attr = 0x1c
	AttrUpperBound   Attr = 0x2f
	AttrProducer     Attr = 0x25
	AttrPrototyped   Attr = 0x27
	AttrDeclFile     Attr = 0x3a
	AttrDeclLine     Attr = 0x3b
	AttrDeclaration  Attr = 0x3c
	AttrEncoding     Attr = 0x3e
	AttrExternal     Attr = 0x3f
	AttrFrameBase    Attr = 0x40
	AttrType         Attr = 0x49
	AttrRanges       Attr = 0x55
)

// Form is DW_FORM_*, the on-disk shape of an attribute's value.
type Form uint64

const (
	FormAddr        Form = 0x01
	FormBlock2      Form = 0x03
	FormBlock4      Form = 0x04
	FormData2       Form = 0x05
	FormData4       Form = 0x06
	FormData8       Form = 0x07
	FormString      Form = 0x08
	FormBlock       Form = 0x09
	FormBlock1      Form = 0x0a
	FormData1       Form = 0x0b
	FormFlag        Form = 0x0c
	FormSdata       Form = 0x0d
	FormStrp        Form = 0x0e
	FormUdata       Form = 0x0f
	FormRefAddr     Form = 0x10
	FormRef1        Form = 0x11
	FormRef2        Form = 0x12
	FormRef4        Form = 0x13
	FormRef8        Form = 0x14
	FormRefUdata    Form = 0x15
	FormIndirect    Form = 0x16
)

// Op is DW_OP_*, a location expression operator.
type Op uint8

const (
	OpAddr     Op = 0x03
	OpDeref    Op = 0x06
	OpConst1u  Op = 0x08
	OpConst1s  Op = 0x09
	OpConst2u  Op = 0x0a
	OpConst2s  Op = 0x0b
	OpConst4u  Op = 0x0c
	OpConst4s  Op = 0x0d
	OpConst8u  Op = 0x0e
	OpConst8s  Op = 0x0f
	OpConstu   Op = 0x10
	OpConsts   Op = 0x11
	OpDup      Op = 0x12
	OpDrop     Op = 0x13
	OpOver     Op = 0x14
	OpPick     Op = 0x15
	OpSwap     Op = 0x16
	OpRot      Op = 0x17
	OpXderef   Op = 0x18
	OpAbs      Op = 0x19
	OpAnd      Op = 0x1a
	OpDiv      Op = 0x1b
	OpMinus    Op = 0x1c
	OpMod      Op = 0x1d
	OpMul      Op = 0x1e
	OpNeg      Op = 0x1f
	OpNot      Op = 0x20
	OpOr       Op = 0x21
	OpPlus     Op = 0x22
	OpPlusUconst Op = 0x23
	OpShl      Op = 0x24
	OpShr      Op = 0x25
	OpShra     Op = 0x26
	OpXor      Op = 0x27
	OpBra      Op = 0x28
	OpEq       Op = 0x29
	OpGe       Op = 0x2a
	OpGt       Op = 0x2b
	OpLe       Op = 0x2c
	OpLt       Op = 0x2d
	OpNe       Op = 0x2e
	OpSkip     Op = 0x2f
	OpLit0     Op = 0x30 // lit0..lit31 = Lit0+n
	OpReg0     Op = 0x50 // reg0..reg31 = Reg0+n
	OpBreg0    Op = 0x70 // breg0..breg31 = Breg0+n
	OpRegx     Op = 0x90
	OpFbreg    Op = 0x91
	OpBregx    Op = 0x92
	OpPiece    Op = 0x93
	OpDerefSize  Op = 0x94
	OpXderefSize Op = 0x95
	OpNop      Op = 0x96
)

// MacType is the type byte of a macro-info stream entry.
type MacType uint8

const (
	MacEnd       MacType = 0
	MacDefine    MacType = 1
	MacUndef     MacType = 2
	MacStartFile MacType = 3
	MacEndFile   MacType = 4
	MacVendorExt MacType = 0xff
)
