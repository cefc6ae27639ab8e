package injection

import (
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Value is an immutable snapshot of a signal's logic vector. Bit 0 is the least
// significant bit. Operations that change bits return a new Value so a snapshot
// taken before an injection can be compared against one taken after.
type Value struct {
	width uint
	bits  *bitset.BitSet
}

// NewValue returns an all-zero Value of the given width.
func NewValue(width uint) Value { return Value{width: width, bits: bitset.New(width)} }

// ValueFromUint64 builds a Value of the given width from the low bits of v.
// Bits of v above width are discarded.
func ValueFromUint64(width uint, v uint64) Value {
	val := NewValue(width)
	for i := uint(0); i < width && i < 64; i++ {
		if v&(uint64(1)<<i) != 0 {
			val.bits.Set(i)
		}
	}
	return val
}

// ValueFromBytes builds a Value from big-endian bytes, the way simulators encode
// strings written to a vector. Bytes that do not fit in width are truncated from
// the most significant end.
func ValueFromBytes(width uint, b []byte) Value {
	val := NewValue(width)
	bit := uint(0)
	for i := len(b) - 1; i >= 0 && bit < width; i-- {
		for j := uint(0); j < 8 && bit < width; j++ {
			if b[i]&(1<<j) != 0 {
				val.bits.Set(bit)
			}
			bit++
		}
	}
	return val
}

// Width returns the number of bits in the vector.
func (v Value) Width() uint { return v.width }

// Bit reports whether bit i is set. Bits outside the width read as zero.
func (v Value) Bit(i uint) bool {
	if v.bits == nil || i >= v.width {
		return false
	}
	return v.bits.Test(i)
}

// WithBit returns a copy of v with bit i set to the given state.
func (v Value) WithBit(i uint, set bool) Value {
	c := v.clone()
	if i >= c.width {
		return c
	}
	c.bits.SetTo(i, set)
	return c
}

// Flip returns a copy of v with bit i inverted. It is the XOR of v with a
// single-bit mask at i.
func (v Value) Flip(i uint) Value {
	c := v.clone()
	if i >= c.width {
		return c
	}
	c.bits.Flip(i)
	return c
}

// Mask returns a Value of the same width that keeps only bit i of v.
func (v Value) Mask(i uint) Value {
	m := NewValue(v.width)
	if v.Bit(i) {
		m.bits.Set(i)
	}
	return m
}

// Xor returns the bitwise exclusive or of v and o. The result has v's width.
func (v Value) Xor(o Value) Value {
	c := v.clone()
	if o.bits == nil {
		return c
	}
	for i := uint(0); i < c.width; i++ {
		if o.Bit(i) {
			c.bits.Flip(i)
		}
	}
	return c
}

// Equal reports whether both values have the same width and bits.
func (v Value) Equal(o Value) bool {
	if v.width != o.width {
		return false
	}
	return v.clone().bits.SymmetricDifference(o.clone().bits).None()
}

// Uint64 returns the low 64 bits of v as an integer.
func (v Value) Uint64() uint64 {
	var out uint64
	for i := uint(0); i < v.width && i < 64; i++ {
		if v.Bit(i) {
			out |= uint64(1) << i
		}
	}
	return out
}

// String renders v as a binary literal, most significant bit first.
func (v Value) String() string {
	if v.width == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(int(v.width))
	for i := v.width; i > 0; i-- {
		if v.Bit(i - 1) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func (v Value) clone() Value {
	if v.bits == nil {
		return NewValue(v.width)
	}
	return Value{width: v.width, bits: v.bits.Clone()}
}
