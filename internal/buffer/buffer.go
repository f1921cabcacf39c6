// Package buffer provides zero-copy byte-accessor helpers for the
// packed, little-endian wire structs used throughout mt76 and gip.
//
// The wire protocol relies on exact byte layout rather than the host
// compiler's struct packing, so every frame type is encoded/decoded through
// these explicit get/set helpers instead of unsafe struct casts.
package buffer

import "encoding/binary"

// View is a read-only window over a byte slice, used to decode packed
// frames without copying.
type View struct {
	b []byte
}

// NewView wraps b in a View. The underlying slice is not copied.
func NewView(b []byte) View { return View{b: b} }

func (v View) Len() int { return len(v.b) }

func (v View) Bytes() []byte { return v.b }

// Slice returns the sub-view [off:off+n], or a zero-length view if the
// range is out of bounds. Callers must check Len() before trusting content.
func (v View) Slice(off, n int) View {
	if off < 0 || n < 0 || off+n > len(v.b) {
		return View{}
	}
	return View{b: v.b[off : off+n]}
}

func (v View) U8(off int) uint8 {
	if off < 0 || off >= len(v.b) {
		return 0
	}
	return v.b[off]
}

func (v View) U16(off int) uint16 {
	if off < 0 || off+2 > len(v.b) {
		return 0
	}
	return binary.LittleEndian.Uint16(v.b[off : off+2])
}

func (v View) U32(off int) uint32 {
	if off < 0 || off+4 > len(v.b) {
		return 0
	}
	return binary.LittleEndian.Uint32(v.b[off : off+4])
}

func (v View) I16(off int) int16 { return int16(v.U16(off)) }

func (v View) MAC(off int) [6]byte {
	var m [6]byte
	if off < 0 || off+6 > len(v.b) {
		return m
	}
	copy(m[:], v.b[off:off+6])
	return m
}

// Bits extracts a bitfield of width `width` starting at bit offset `bit`
// (LSB-first, little-endian byte order) from the view. width must be <= 32.
func (v View) Bits(bit, width int) uint32 {
	var val uint32
	for i := 0; i < width; i++ {
		byteIdx := (bit + i) / 8
		bitIdx := (bit + i) % 8
		if byteIdx >= len(v.b) {
			continue
		}
		if v.b[byteIdx]&(1<<uint(bitIdx)) != 0 {
			val |= 1 << uint(i)
		}
	}
	return val
}

// Builder accumulates bytes for a packed frame, little-endian throughout.
type Builder struct {
	b []byte
}

func NewBuilder(capacityHint int) *Builder {
	return &Builder{b: make([]byte, 0, capacityHint)}
}

func (b *Builder) Bytes() []byte { return b.b }

func (b *Builder) Len() int { return len(b.b) }

func (b *Builder) U8(v uint8) *Builder {
	b.b = append(b.b, v)
	return b
}

func (b *Builder) U16(v uint16) *Builder {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.b = append(b.b, tmp[:]...)
	return b
}

func (b *Builder) U32(v uint32) *Builder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.b = append(b.b, tmp[:]...)
	return b
}

func (b *Builder) I16(v int16) *Builder { return b.U16(uint16(v)) }

func (b *Builder) MAC(m [6]byte) *Builder {
	b.b = append(b.b, m[:]...)
	return b
}

func (b *Builder) Bytes_(p []byte) *Builder {
	b.b = append(b.b, p...)
	return b
}

func (b *Builder) Zero(n int) *Builder {
	for i := 0; i < n; i++ {
		b.b = append(b.b, 0)
	}
	return b
}

// PadTo32 appends zero bytes until the buffer's length is a multiple of 4.
func (b *Builder) PadTo32() *Builder {
	for len(b.b)%4 != 0 {
		b.b = append(b.b, 0)
	}
	return b
}
