package elf

import (
	"fmt"
	"io"

	"github.com/embtoolkit/elftoolchain-go/internal/binio"
)

// Object is a fully-parsed ELF file: header, program headers, and an
// ordered section list including section zero (the reserved NULL section).
// It exclusively owns its section payloads.
type Object struct {
	Header         Header
	ProgramHeaders []ProgramHeader
	SectionList    []*Section

	order binio.Order
}

func (o *Object) Class() Class     { return o.Header.Class }
func (o *Object) Endianness() Data { return o.Header.Data }
func (o *Object) Ehdr() Header     { return o.Header }

func (o *Object) Sections() []*Section { return o.SectionList }

func (o *Object) SectionByIndex(i int) (*Section, error) {
	if i < 0 || i >= len(o.SectionList) {
		return nil, fmt.Errorf("elf: section index %d out of bounds (have %d sections)", i, len(o.SectionList))
	}
	return o.SectionList[i], nil
}

func (o *Object) SectionByName(name string) *Section {
	for _, s := range o.SectionList {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (o *Object) ProgramHeadersList() []ProgramHeader { return o.ProgramHeaders }

// NextSectionIndexFor returns the output index a new Section
// pointer would occupy if appended right now — used by callers building a
// fresh section list incrementally (the section table builder in
// internal/rewrite).
func (o *Object) NextSectionIndexFor(_ *Section) int {
	return len(o.SectionList)
}

func byteOrder(d Data) binio.Order {
	if d == ELFDATA2MSB {
		return binio.BigEndian
	}
	return binio.LittleEndian
}

const (
	ehdrSize32 = 52
	ehdrSize64 = 64
	shdrSize32 = 40
	shdrSize64 = 64
	symSize32  = 16
	symSize64  = 24
	phdrSize32 = 32
	phdrSize64 = 56
	relSize32  = 8
	relaSize32 = 12
	relSize64  = 16
	relaSize64 = 24
)

// ErrNotELF, ErrUnsupportedClass and ErrTruncatedSection are the format
// errors spec §4.1 names.
var (
	ErrNotELF            = fmt.Errorf("elf: not an ELF object")
	ErrUnsupportedClass  = fmt.Errorf("elf: unsupported class")
	ErrTruncatedSection  = fmt.Errorf("elf: truncated section")
	ErrStringTableBounds = fmt.Errorf("elf: string-table lookup out of bounds")
)

// Open parses a complete ELF object from r. Reads use the file's declared
// endianness; unknown section types are preserved byte-for-byte.
func Open(r io.ReaderAt) (*Object, error) {
	var ident [16]byte
	if _, err := r.ReadAt(ident[:], 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotELF, err)
	}
	if ident[0] != 0x7f || ident[1] != 'E' || ident[2] != 'L' || ident[3] != 'F' {
		return nil, ErrNotELF
	}

	var class Class
	switch ident[4] {
	case 1:
		class = ELFCLASS32
	case 2:
		class = ELFCLASS64
	default:
		return nil, fmt.Errorf("%w: ei_class %d", ErrUnsupportedClass, ident[4])
	}

	var data Data
	switch ident[5] {
	case 1:
		data = ELFDATA2LSB
	case 2:
		data = ELFDATA2MSB
	default:
		return nil, fmt.Errorf("%w: ei_data %d", ErrUnsupportedClass, ident[5])
	}

	order := byteOrder(data)
	is64 := class == ELFCLASS64
	ehdrSize := ehdrSize32
	if is64 {
		ehdrSize = ehdrSize64
	}

	whole, err := io.ReadAll(io.NewSectionReader(r, 0, 1<<62))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedSection, err)
	}
	if len(whole) < ehdrSize {
		return nil, fmt.Errorf("%w: header", ErrTruncatedSection)
	}

	cur := binio.NewCursor(whole, order)
	cur.Seek(16) // past e_ident

	etype, _ := cur.U16()
	emachine, _ := cur.U16()
	eversion, _ := cur.U32()
	entry, err := cur.UOffset(is64)
	if err != nil {
		return nil, fmt.Errorf("%w: e_entry: %v", ErrTruncatedSection, err)
	}
	phoff, err := cur.UOffset(is64)
	if err != nil {
		return nil, err
	}
	shoff, err := cur.UOffset(is64)
	if err != nil {
		return nil, err
	}
	eflags, _ := cur.U32()
	_, _ = cur.U16() // e_ehsize
	phentsize, _ := cur.U16()
	phnum, _ := cur.U16()
	_, _ = cur.U16() // e_shentsize (recomputed on write)
	shnum, _ := cur.U16()
	shstrndx, _ := cur.U16()

	obj := &Object{
		Header: Header{
			Class:                       class,
			Data:                        data,
			OSABI:                       ident[7],
			ABIVer:                      ident[8],
			Type:                        Type(etype),
			Machine:                     Machine(emachine),
			Version:                     eversion,
			Entry:                       entry,
			Flags:                       eflags,
			SectionNameStringTableIndex: int(shstrndx),
		},
		order: order,
	}

	if phnum > 0 {
		obj.ProgramHeaders, err = readProgramHeaders(whole, order, is64, int(phoff), int(phnum), int(phentsize))
		if err != nil {
			return nil, err
		}
	}

	if shnum > 0 {
		obj.SectionList, err = readSections(whole, order, is64, int(shoff), int(shnum))
		if err != nil {
			return nil, err
		}
		if err := resolveSectionNames(obj); err != nil {
			return nil, err
		}
	}

	return obj, nil
}

func readProgramHeaders(buf []byte, order binio.Order, is64 bool, off, num, entsize int) ([]ProgramHeader, error) {
	phdrs := make([]ProgramHeader, 0, num)
	for i := 0; i < num; i++ {
		cur := binio.NewCursorAt(buf, order, off+i*entsize)
		var ph ProgramHeader
		var err error
		if is64 {
			t, e1 := cur.U32()
			flags, e2 := cur.U32()
			offset, e3 := cur.U64()
			vaddr, e4 := cur.U64()
			paddr, e5 := cur.U64()
			filesz, e6 := cur.U64()
			memsz, e7 := cur.U64()
			align, e8 := cur.U64()
			if err = firstErr(e1, e2, e3, e4, e5, e6, e7, e8); err != nil {
				return nil, fmt.Errorf("%w: program header %d: %v", ErrTruncatedSection, i, err)
			}
			ph = ProgramHeader{SegmentType(t), SegmentFlag(flags), offset, vaddr, paddr, filesz, memsz, align}
		} else {
			t, e1 := cur.U32()
			offset, e2 := cur.U32()
			vaddr, e3 := cur.U32()
			paddr, e4 := cur.U32()
			filesz, e5 := cur.U32()
			memsz, e6 := cur.U32()
			flags, e7 := cur.U32()
			align, e8 := cur.U32()
			if err = firstErr(e1, e2, e3, e4, e5, e6, e7, e8); err != nil {
				return nil, fmt.Errorf("%w: program header %d: %v", ErrTruncatedSection, i, err)
			}
			ph = ProgramHeader{SegmentType(t), SegmentFlag(flags), uint64(offset), uint64(vaddr), uint64(paddr), uint64(filesz), uint64(memsz), uint64(align)}
		}
		phdrs = append(phdrs, ph)
	}
	return phdrs, nil
}

func readSections(buf []byte, order binio.Order, is64 bool, off, num int) ([]*Section, error) {
	entsize := shdrSize32
	if is64 {
		entsize = shdrSize64
	}
	sections := make([]*Section, 0, num)
	for i := 0; i < num; i++ {
		cur := binio.NewCursorAt(buf, order, off+i*entsize)
		s := &Section{}
		var err error
		if is64 {
			nameIdx, e1 := cur.U32()
			typ, e2 := cur.U32()
			flags, e3 := cur.U64()
			addr, e4 := cur.U64()
			offset, e5 := cur.U64()
			size, e6 := cur.U64()
			link, e7 := cur.U32()
			info, e8 := cur.U32()
			align, e9 := cur.U64()
			entSize, e10 := cur.U64()
			if err = firstErr(e1, e2, e3, e4, e5, e6, e7, e8, e9, e10); err != nil {
				return nil, fmt.Errorf("%w: section header %d: %v", ErrTruncatedSection, i, err)
			}
			s.NameIndex, s.Type, s.Flags, s.Addr, s.Offset, s.Size, s.Link, s.Info, s.AddrAlign, s.EntSize =
				nameIdx, SectionType(typ), SectionFlag(flags), addr, offset, size, link, info, align, entSize
		} else {
			nameIdx, e1 := cur.U32()
			typ, e2 := cur.U32()
			flags, e3 := cur.U32()
			addr, e4 := cur.U32()
			offset, e5 := cur.U32()
			size, e6 := cur.U32()
			link, e7 := cur.U32()
			info, e8 := cur.U32()
			align, e9 := cur.U32()
			entSize, e10 := cur.U32()
			if err = firstErr(e1, e2, e3, e4, e5, e6, e7, e8, e9, e10); err != nil {
				return nil, fmt.Errorf("%w: section header %d: %v", ErrTruncatedSection, i, err)
			}
			s.NameIndex, s.Type, s.Flags, s.Addr, s.Offset, s.Size, s.Link, s.Info, s.AddrAlign, s.EntSize =
				nameIdx, SectionType(typ), SectionFlag(flags), uint64(addr), uint64(offset), uint64(size), link, info, uint64(align), uint64(entSize)
		}

		if s.Type != SHT_NOBITS && i != 0 {
			if s.Offset+s.Size > uint64(len(buf)) {
				return nil, fmt.Errorf("%w: section %d payload", ErrTruncatedSection, i)
			}
			s.Data = buf[s.Offset : s.Offset+s.Size]
		}
		sections = append(sections, s)
	}
	return sections, nil
}

// resolveSectionNames looks every section's name up in .shstrtab.
func resolveSectionNames(o *Object) error {
	if o.Header.SectionNameStringTableIndex >= len(o.SectionList) {
		return fmt.Errorf("%w: e_shstrndx %d", ErrStringTableBounds, o.Header.SectionNameStringTableIndex)
	}
	strtab := o.SectionList[o.Header.SectionNameStringTableIndex]
	for _, s := range o.SectionList {
		name, err := lookupString(strtab.Data, s.NameIndex)
		if err != nil {
			return err
		}
		s.Name = name
	}
	return nil
}

// lookupString reads a NUL-terminated string at offset within a string
// table's payload.
func lookupString(strtab []byte, offset uint32) (string, error) {
	if int(offset) > len(strtab) {
		return "", ErrStringTableBounds
	}
	end := int(offset)
	for end < len(strtab) && strtab[end] != 0 {
		end++
	}
	if end >= len(strtab) {
		return "", ErrStringTableBounds
	}
	return string(strtab[offset:end]), nil
}

// LookupString is the exported form, used by the symbol filter when
// resolving symbol names against an arbitrary string-table section.
func LookupString(strtab []byte, offset uint32) (string, error) {
	return lookupString(strtab, offset)
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
