// Package binio implements the binary I/O primitives shared by the ELF and
// DWARF layers: endian-aware fixed-width decode/encode, LEB128 codecs, and a
// bounded-buffer cursor that never reads or writes past the end of its
// backing slice.
//
// Endianness and word width are selected once per object (see Decoder and
// Encoder below) rather than branched on at every call site, matching the
// "pair of small capability objects" design in the consuming components.
package binio

import (
	"encoding/binary"
	"fmt"
)

// Order is the subset of byte order behavior this package depends on.
type Order = binary.ByteOrder

var (
	LittleEndian Order = binary.LittleEndian
	BigEndian    Order = binary.BigEndian
)

// Decoder reads fixed-width integers of a chosen byte order from a byte
// slice. It carries no state beyond the order, so one Decoder is shared by
// every Cursor built over objects of the same endianness.
type Decoder struct{ order Order }

func NewDecoder(order Order) Decoder { return Decoder{order: order} }

func (d Decoder) Uint16(b []byte) uint16 { return d.order.Uint16(b) }
func (d Decoder) Uint32(b []byte) uint32 { return d.order.Uint32(b) }
func (d Decoder) Uint64(b []byte) uint64 { return d.order.Uint64(b) }

// Encoder mirrors Decoder for the write path.
type Encoder struct{ order Order }

func NewEncoder(order Order) Encoder { return Encoder{order: order} }

func (e Encoder) PutUint16(b []byte, v uint16) { e.order.PutUint16(b, v) }
func (e Encoder) PutUint32(b []byte, v uint32) { e.order.PutUint32(b, v) }
func (e Encoder) PutUint64(b []byte, v uint64) { e.order.PutUint64(b, v) }

// ErrTruncated is returned whenever a read would run past the end of a
// Cursor's backing buffer.
var ErrTruncated = fmt.Errorf("binio: truncated buffer")

// Cursor is a bounded, position-tracking reader/writer over a byte slice.
// It is the single point where section payloads, DWARF sections, and
// string tables are walked, so every bounds check lives here instead of
// being repeated at each call site.
type Cursor struct {
	buf []byte
	pos int
	dec Decoder
}

// NewCursor creates a Cursor over buf starting at offset 0, decoding
// multi-byte integers with order.
func NewCursor(buf []byte, order Order) *Cursor {
	return &Cursor{buf: buf, dec: NewDecoder(order)}
}

// NewCursorAt creates a Cursor starting at the given offset.
func NewCursorAt(buf []byte, order Order, offset int) *Cursor {
	return &Cursor{buf: buf, pos: offset, dec: NewDecoder(order)}
}

func (c *Cursor) Pos() int        { return c.pos }
func (c *Cursor) Len() int        { return len(c.buf) }
func (c *Cursor) Remaining() int  { return len(c.buf) - c.pos }
func (c *Cursor) AtEnd() bool     { return c.pos >= len(c.buf) }
func (c *Cursor) Seek(offset int) { c.pos = offset }

func (c *Cursor) need(n int) error {
	if c.pos < 0 || n < 0 || c.pos+n > len(c.buf) {
		return ErrTruncated
	}
	return nil
}

func (c *Cursor) Bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *Cursor) U8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *Cursor) U16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return c.dec.Uint16(b), nil
}

func (c *Cursor) U32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return c.dec.Uint32(b), nil
}

func (c *Cursor) U64() (uint64, error) {
	b, err := c.Bytes(8)
	if err != nil {
		return 0, err
	}
	return c.dec.Uint64(b), nil
}

// UOffset reads a 4-byte offset for is64 == false or 8-byte for true, the
// shape DWARF uses for "DWARF format" (32- vs 64-bit) offsets and ELF class
// (32- vs 64-bit) addresses/offsets alike.
func (c *Cursor) UOffset(is64 bool) (uint64, error) {
	if is64 {
		return c.U64()
	}
	v, err := c.U32()
	return uint64(v), err
}

// CString reads a NUL-terminated string starting at the current position
// and advances past the terminator.
func (c *Cursor) CString() (string, error) {
	start := c.pos
	for {
		if c.pos >= len(c.buf) {
			return "", ErrTruncated
		}
		if c.buf[c.pos] == 0 {
			s := string(c.buf[start:c.pos])
			c.pos++
			return s, nil
		}
		c.pos++
	}
}

// ULEB128 reads an unsigned LEB128 value, per DWARF §7.6.
func (c *Cursor) ULEB128() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := c.U8()
		if err != nil {
			return 0, err
		}
		if shift < 64 {
			result |= uint64(b&0x7f) << shift
		}
		shift += 7
		if b&0x80 == 0 {
			return result, nil
		}
		if shift > 70 {
			return 0, fmt.Errorf("binio: ULEB128 overflow")
		}
	}
}

// SLEB128 reads a signed LEB128 value, per DWARF §7.6.
func (c *Cursor) SLEB128() (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = c.U8()
		if err != nil {
			return 0, err
		}
		if shift < 64 {
			result |= int64(b&0x7f) << shift
		}
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift > 70 {
			return 0, fmt.Errorf("binio: SLEB128 overflow")
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

// PutULEB128 appends the ULEB128 encoding of v to buf.
func PutULEB128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

// PutSLEB128 appends the SLEB128 encoding of v to buf.
func PutSLEB128(buf []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// SizeofULEB128 returns the number of bytes PutULEB128 would emit, used by
// layout computations that need sizes before the bytes exist.
func SizeofULEB128(v uint64) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}
