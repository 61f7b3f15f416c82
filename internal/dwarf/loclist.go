package dwarf

import (
	"math"

	"github.com/embtoolkit/elftoolchain-go/internal/binio"
)

// Locdesc is one location-list entry: an address range, paired with the
// location expression valid over it. BaseSelect entries carry no
// expression; End entries terminate the list.
type Locdesc struct {
	Lopc       uint64
	Hipc       uint64
	Expr       *Expression
	BaseSelect bool
	End        bool
}

// Loclist is the decoded sequence of entries at one .debug_loc offset.
type Loclist struct {
	Offset  uint64
	Entries []Locdesc
}

// allOnes returns the address-sized all-ones value DWARF uses for the
// base-select marker and for "valid everywhere" bare expressions.
func allOnes(addrSize int) uint64 {
	if addrSize >= 8 {
		return math.MaxUint64
	}
	return uint64(1)<<(uint(addrSize)*8) - 1
}

// ParseLoclist decodes the entry sequence at offset off in the .debug_loc
// payload, per spec §4.8.
func ParseLoclist(debugLoc []byte, off int, addrSize int) (*Loclist, error) {
	if off < 0 || off > len(debugLoc) {
		return nil, newError(CodeInvalidLoclist, "offset %d out of range", off)
	}
	c := binio.NewCursor(debugLoc, binio.LittleEndian)
	c.Seek(off)

	marker := allOnes(addrSize)
	list := &Loclist{Offset: uint64(off)}

	for {
		start, err := readSized(c, addrSize)
		if err != nil {
			return nil, wrapError(CodeInvalidLoclist, err, "reading start address at %#x", c.Pos())
		}
		end, err := readSized(c, addrSize)
		if err != nil {
			return nil, wrapError(CodeInvalidLoclist, err, "reading end address at %#x", c.Pos())
		}

		if start == 0 && end == 0 {
			list.Entries = append(list.Entries, Locdesc{End: true})
			break
		}
		if start == marker {
			list.Entries = append(list.Entries, Locdesc{Lopc: start, Hipc: end, BaseSelect: true})
			continue
		}

		length, err := c.U16()
		if err != nil {
			return nil, wrapError(CodeInvalidLoclist, err, "reading expression length")
		}
		if c.Pos()+int(length) > len(debugLoc) {
			return nil, newError(CodeInvalidLoclist, "expression at %#x length %d exceeds section size", c.Pos(), length)
		}
		exprBytes, err := c.Bytes(int(length))
		if err != nil {
			return nil, wrapError(CodeInvalidLoclist, err, "reading expression bytes")
		}
		expr, err := ParseExpression(exprBytes, addrSize)
		if err != nil {
			return nil, err
		}
		list.Entries = append(list.Entries, Locdesc{Lopc: start, Hipc: end, Expr: expr})
	}

	return list, nil
}

// bareLocdesc wraps a single inline exprloc (DW_FORM_block* on DW_AT_location
// etc.) into the "valid everywhere" Locdesc spec §4.7 describes.
func bareLocdesc(expr *Expression, addrSize int) Locdesc {
	return Locdesc{Lopc: 0, Hipc: allOnes(addrSize), Expr: expr}
}

// LoclistCache is the debug context's offset-indexed cache of decoded
// location lists. add is idempotent: a second call with the same offset
// returns the first decode's result without reparsing.
type LoclistCache struct {
	debugLoc []byte
	addrSize int
	byOffset map[uint64]*Loclist
}

func newLoclistCache(debugLoc []byte, addrSize int) *LoclistCache {
	return &LoclistCache{debugLoc: debugLoc, addrSize: addrSize, byOffset: make(map[uint64]*Loclist)}
}

// add decodes and caches the location list at offset, or returns the
// already-cached result (spec §4.8: "a second add(offset) call is
// idempotent").
func (c *LoclistCache) add(offset uint64) (*Loclist, Status, error) {
	if list, ok := c.byOffset[offset]; ok {
		return list, StatusOK, nil
	}
	list, err := ParseLoclist(c.debugLoc, int(offset), c.addrSize)
	if err != nil {
		return nil, StatusError, err
	}
	c.byOffset[offset] = list
	return list, StatusOK, nil
}

// find returns the cached location list at offset, if one has been added.
func (c *LoclistCache) find(offset uint64) (*Loclist, Status) {
	list, ok := c.byOffset[offset]
	if !ok {
		return nil, StatusNoEntry
	}
	return list, StatusOK
}
