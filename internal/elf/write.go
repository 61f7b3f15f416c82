package elf

import (
	"fmt"
	"io"

	"github.com/embtoolkit/elftoolchain-go/internal/binio"
)

// Commit serializes the object to sink. It trusts that every Section's
// Offset, Size and Data are already mutually consistent — the layout
// engine (internal/rewrite) is responsible for that — and simply writes
// the header, program headers, section payloads and section header table
// at the offsets already assigned.
func (o *Object) Commit(sink io.WriterAt) error {
	is64 := o.Header.Class == ELFCLASS64
	order := byteOrder(o.Header.Data)
	enc := binio.NewEncoder(order)

	ehdrSize := ehdrSize32
	shdrSize := shdrSize32
	phdrSize := phdrSize32
	if is64 {
		ehdrSize = ehdrSize64
		shdrSize = shdrSize64
		phdrSize = phdrSize64
	}

	if len(o.SectionList) == 0 {
		return fmt.Errorf("elf: commit: object has no sections")
	}
	shoff := highestSectionEnd(o.SectionList)
	shoff = align8(shoff)

	ehdr := make([]byte, ehdrSize)
	copy(ehdr[0:4], []byte{0x7f, 'E', 'L', 'F'})
	if is64 {
		ehdr[4] = 2
	} else {
		ehdr[4] = 1
	}
	if o.Header.Data == ELFDATA2MSB {
		ehdr[5] = 2
	} else {
		ehdr[5] = 1
	}
	ehdr[6] = 1 // EV_CURRENT
	ehdr[7] = o.Header.OSABI
	ehdr[8] = o.Header.ABIVer

	enc.PutUint16(ehdr[16:], uint16(o.Header.Type))
	enc.PutUint16(ehdr[18:], uint16(o.Header.Machine))
	enc.PutUint32(ehdr[20:], 1)

	var cur int
	if is64 {
		enc.PutUint64(ehdr[24:], o.Header.Entry)
		phoff := uint64(0)
		if len(o.ProgramHeaders) > 0 {
			phoff = uint64(ehdrSize)
		}
		enc.PutUint64(ehdr[32:], phoff)
		enc.PutUint64(ehdr[40:], shoff)
		enc.PutUint32(ehdr[48:], o.Header.Flags)
		enc.PutUint16(ehdr[52:], uint16(ehdrSize))
		enc.PutUint16(ehdr[54:], uint16(phdrSize))
		enc.PutUint16(ehdr[56:], uint16(len(o.ProgramHeaders)))
		enc.PutUint16(ehdr[58:], uint16(shdrSize))
		enc.PutUint16(ehdr[60:], uint16(len(o.SectionList)))
		enc.PutUint16(ehdr[62:], uint16(o.Header.SectionNameStringTableIndex))
		cur = ehdrSize
	} else {
		enc.PutUint32(ehdr[24:], uint32(o.Header.Entry))
		phoff := uint32(0)
		if len(o.ProgramHeaders) > 0 {
			phoff = uint32(ehdrSize)
		}
		enc.PutUint32(ehdr[28:], phoff)
		enc.PutUint32(ehdr[32:], uint32(shoff))
		enc.PutUint32(ehdr[36:], o.Header.Flags)
		enc.PutUint16(ehdr[40:], uint16(ehdrSize))
		enc.PutUint16(ehdr[42:], uint16(phdrSize))
		enc.PutUint16(ehdr[44:], uint16(len(o.ProgramHeaders)))
		enc.PutUint16(ehdr[46:], uint16(shdrSize))
		enc.PutUint16(ehdr[48:], uint16(len(o.SectionList)))
		enc.PutUint16(ehdr[50:], uint16(o.Header.SectionNameStringTableIndex))
		cur = ehdrSize
	}

	if _, err := sink.WriteAt(ehdr, 0); err != nil {
		return err
	}

	if len(o.ProgramHeaders) > 0 {
		phbuf := make([]byte, 0, phdrSize*len(o.ProgramHeaders))
		for _, ph := range o.ProgramHeaders {
			phbuf = appendProgramHeader(phbuf, enc, is64, ph)
		}
		if _, err := sink.WriteAt(phbuf, int64(cur)); err != nil {
			return err
		}
	}

	for _, s := range o.SectionList {
		if s.Type == SHT_NULL || s.Type == SHT_NOBITS || len(s.Data) == 0 {
			continue
		}
		if _, err := sink.WriteAt(s.Data, int64(s.Offset)); err != nil {
			return fmt.Errorf("elf: writing section %q: %w", s.Name, err)
		}
	}

	shbuf := make([]byte, 0, shdrSize*len(o.SectionList))
	for _, s := range o.SectionList {
		shbuf = appendSectionHeader(shbuf, enc, is64, s)
	}
	if _, err := sink.WriteAt(shbuf, int64(shoff)); err != nil {
		return err
	}

	return nil
}

func highestSectionEnd(sections []*Section) uint64 {
	var max uint64
	for _, s := range sections {
		if s.Type == SHT_NOBITS {
			continue
		}
		end := s.Offset + s.Size
		if end > max {
			max = end
		}
	}
	return max
}

func align8(v uint64) uint64 {
	if v%8 == 0 {
		return v
	}
	return v + (8 - v%8)
}

func appendProgramHeader(buf []byte, enc binio.Encoder, is64 bool, ph ProgramHeader) []byte {
	if is64 {
		entry := make([]byte, phdrSize64)
		enc.PutUint32(entry[0:], uint32(ph.Type))
		enc.PutUint32(entry[4:], uint32(ph.Flags))
		enc.PutUint64(entry[8:], ph.Offset)
		enc.PutUint64(entry[16:], ph.VAddr)
		enc.PutUint64(entry[24:], ph.PAddr)
		enc.PutUint64(entry[32:], ph.FileSz)
		enc.PutUint64(entry[40:], ph.MemSz)
		enc.PutUint64(entry[48:], ph.Align)
		return append(buf, entry...)
	}
	entry := make([]byte, phdrSize32)
	enc.PutUint32(entry[0:], uint32(ph.Type))
	enc.PutUint32(entry[4:], uint32(ph.Offset))
	enc.PutUint32(entry[8:], uint32(ph.VAddr))
	enc.PutUint32(entry[12:], uint32(ph.PAddr))
	enc.PutUint32(entry[16:], uint32(ph.FileSz))
	enc.PutUint32(entry[20:], uint32(ph.MemSz))
	enc.PutUint32(entry[24:], uint32(ph.Flags))
	enc.PutUint32(entry[28:], uint32(ph.Align))
	return append(buf, entry...)
}

func appendSectionHeader(buf []byte, enc binio.Encoder, is64 bool, s *Section) []byte {
	onDisk := s.Flags.OnDisk()
	if is64 {
		entry := make([]byte, shdrSize64)
		enc.PutUint32(entry[0:], s.NameIndex)
		enc.PutUint32(entry[4:], uint32(s.Type))
		enc.PutUint64(entry[8:], uint64(onDisk))
		enc.PutUint64(entry[16:], s.Addr)
		enc.PutUint64(entry[24:], s.Offset)
		enc.PutUint64(entry[32:], s.Size)
		enc.PutUint32(entry[40:], s.Link)
		enc.PutUint32(entry[44:], s.Info)
		enc.PutUint64(entry[48:], s.AddrAlign)
		enc.PutUint64(entry[56:], s.EntSize)
		return append(buf, entry...)
	}
	entry := make([]byte, shdrSize32)
	enc.PutUint32(entry[0:], s.NameIndex)
	enc.PutUint32(entry[4:], uint32(s.Type))
	enc.PutUint32(entry[8:], uint32(onDisk))
	enc.PutUint32(entry[12:], uint32(s.Addr))
	enc.PutUint32(entry[16:], uint32(s.Offset))
	enc.PutUint32(entry[20:], uint32(s.Size))
	enc.PutUint32(entry[24:], s.Link)
	enc.PutUint32(entry[28:], s.Info)
	enc.PutUint32(entry[32:], uint32(s.AddrAlign))
	enc.PutUint32(entry[36:], uint32(s.EntSize))
	return append(buf, entry...)
}
