package dwarf

import (
	"github.com/embtoolkit/elftoolchain-go/internal/binio"
	"github.com/embtoolkit/elftoolchain-go/internal/elf"
)

// Relocate produces a relocated in-memory copy of a debug section's bytes,
// per spec §4.10: copy the source, then for each relocation add its
// addend to the existing value at r_offset and write it back. The input
// slice is never modified.
func Relocate(section []byte, relocs []elf.Relocation, order binio.Order, is64 bool) ([]byte, error) {
	out := append([]byte(nil), section...)

	width := 4
	if is64 {
		width = 8
	}

	for _, r := range relocs {
		off := int(r.Offset)
		if off < 0 || off+width > len(out) {
			return nil, newError(CodeELF, "relocation offset %#x out of range for section of length %d", r.Offset, len(out))
		}

		var existing uint64
		if width == 8 {
			existing = order.Uint64(out[off : off+8])
		} else {
			existing = uint64(order.Uint32(out[off : off+4]))
		}

		value := int64(existing) + r.Addend

		if width == 8 {
			order.PutUint64(out[off:off+8], uint64(value))
		} else {
			order.PutUint32(out[off:off+4], uint32(value))
		}
	}

	return out, nil
}

// RelocatedDebugSection returns the effective bytes for a debug section:
// its own payload if no paired .rela.<name> section exists in the object,
// or the relocated copy otherwise.
func RelocatedDebugSection(obj *elf.Object, name string, order binio.Order, is64 bool) ([]byte, error) {
	section := obj.SectionByName(name)
	if section == nil {
		return nil, nil
	}

	relaSection := obj.SectionByName(".rela" + name)
	if relaSection == nil {
		return section.Data, nil
	}

	relocs, err := elf.DecodeRelocationTable(relaSection.Data, order, is64, true)
	if err != nil {
		return nil, wrapError(CodeELF, err, "decoding %s", relaSection.Name)
	}

	return Relocate(section.Data, relocs, order, is64)
}
