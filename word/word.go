// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package word implements the 45-bit M-20 machine word.
//
// A word is either a floating point number or a three-address instruction.
//
// Number layout:
//
//	44    43    42..36     35..0
//	tag   sign  exponent   mantissa
//
// Instruction layout:
//
//	44..42     41..36   35..24  23..12  11..0
//	addr tags  opcode   A1      A2      A3
package word

import (
	"fmt"
	"math"
)

// Word is a single M-20 machine word, held in the low 45 bits.
type Word uint64

const (
	BITS       = 45                     // Word width in bits.
	MASK       = Word(1)<<BITS - 1      // All legal word bits.
	WIDTH_MANT = 36                     // Mantissa width in bits.
	MANTISSA   = Word(1)<<WIDTH_MANT - 1 // Mantissa field.
	EXPONENT   = Word(0177) << 36       // Exponent field.
	SIGN       = Word(1) << 43          // Sign of the number.
	TAG        = Word(1) << 44          // Tag bit.
	EXP_SIGN   = EXPONENT | SIGN | TAG  // Everything above the mantissa.

	MANT_TOP = Word(1) << 35 // Most significant mantissa bit.

	EXP_BIAS = 64  // Exponent bias.
	EXP_MAX  = 127 // Largest biased exponent.

	ADDR_BITS = 12             // Address width in bits.
	ADDR_MASK = 1<<ADDR_BITS - 1 // Address field mask.
	OP_MASK   = 077            // Opcode field mask.
	ATAG_MASK = 07             // Address tags mask.
)

// Address modification tag bits, as returned by AddrTags.
const (
	ATAG_A1 = 4
	ATAG_A2 = 2
	ATAG_A3 = 1
)

// New constructs a number. No range checking is performed.
func New(sign bool, exp int, mantissa Word, tag Word) (w Word) {
	w = Word(exp)<<36 | (mantissa & MANTISSA) | (tag & TAG)
	if sign {
		w |= SIGN
	}
	return
}

// NewInstruction constructs an instruction word.
func NewInstruction(tags int, op int, a1, a2, a3 uint16) Word {
	return Word(tags&ATAG_MASK)<<42 |
		Word(op&OP_MASK)<<36 |
		Word(a1&ADDR_MASK)<<24 |
		Word(a2&ADDR_MASK)<<12 |
		Word(a3&ADDR_MASK)
}

// Sign returns true for a negative number.
func (w Word) Sign() bool {
	return w&SIGN != 0
}

// Exponent returns the biased exponent.
func (w Word) Exponent() int {
	return int(w>>36) & 0177
}

// Mantissa returns the 36 bit mantissa.
func (w Word) Mantissa() Word {
	return w & MANTISSA
}

// Tag returns the tag bit, in place.
func (w Word) Tag() Word {
	return w & TAG
}

// AddrTags returns the address modification tags.
func (w Word) AddrTags() int {
	return int(w>>42) & ATAG_MASK
}

// Opcode returns the operation code.
func (w Word) Opcode() int {
	return int(w>>36) & OP_MASK
}

// A1 returns the first address.
func (w Word) A1() uint16 {
	return uint16(w>>24) & ADDR_MASK
}

// A2 returns the second address.
func (w Word) A2() uint16 {
	return uint16(w>>12) & ADDR_MASK
}

// A3 returns the third address.
func (w Word) A3() uint16 {
	return uint16(w) & ADDR_MASK
}

// IsZero returns true for the canonical machine zero. The tag is ignored.
func (w Word) IsZero() bool {
	return w&(SIGN|EXPONENT|MANTISSA) == 0
}

// IsNegativeZero returns true for a zero mantissa and exponent with the sign set.
func (w Word) IsNegativeZero() bool {
	return w&(SIGN|EXPONENT|MANTISSA) == SIGN
}

// ValueZero returns true if the number has no exponent or mantissa bits.
// Both the sign and the tag are ignored.
func (w Word) ValueZero() bool {
	return w&(EXPONENT|MANTISSA) == 0
}

// Garbage returns true if bits outside the 45 bit word are set.
func (w Word) Garbage() bool {
	return w & ^MASK != 0
}

// Normalize shifts the mantissa left until the top bit is set.
// A zero mantissa, or an exponent underflow, returns machine zero
// keeping the tag.
func (w Word) Normalize() Word {
	exp := w.Exponent()
	m := w.Mantissa()

	if m == 0 {
		return w & TAG
	}

	for m&MANT_TOP == 0 {
		m <<= 1
		exp--
		if exp < 0 {
			return w & TAG
		}
	}

	return (w & (TAG | SIGN)) | Word(exp)<<36 | m
}

// Float converts a number to float64.
func (w Word) Float() float64 {
	d := math.Ldexp(float64(w.Mantissa()), w.Exponent()-EXP_BIAS-WIDTH_MANT)
	if w.Sign() {
		d = -d
	}
	return d
}

// FromFloat converts a float64 to a normalized number, truncating
// the mantissa. Values out of range saturate to zero or the largest
// exponent.
func FromFloat(d float64) (w Word) {
	if d == 0 || math.IsNaN(d) {
		return 0
	}

	sign := d < 0
	frac, exp := math.Frexp(math.Abs(d))
	exp += EXP_BIAS

	if exp < 0 {
		return 0
	}
	if exp > EXP_MAX {
		exp = EXP_MAX
		frac = 1 - math.Ldexp(1, -WIDTH_MANT)
	}

	m := Word(math.Ldexp(frac, WIDTH_MANT))
	if m > MANTISSA {
		m = MANTISSA
	}

	return New(sign, exp, m, 0)
}

// CyclicSum adds two words with end-around carry, separately for
// the mantissa and for the bits above it. This is the checksum used
// by all of the external devices.
func CyclicSum(x, y Word) (sum Word) {
	hi := (x & EXP_SIGN) + (y & EXP_SIGN)
	lo := (x & MANTISSA) + (y & MANTISSA)
	if hi > MASK {
		hi -= MASK + 1
		hi += MANTISSA + 1
	}
	hi &= MASK
	if lo > MANTISSA {
		lo -= MANTISSA + 1
		lo += 1
	}
	sum = (hi | (lo & MANTISSA)) & MASK
	return
}

// String returns the word in the usual 15 digit octal form.
func (w Word) String() string {
	return fmt.Sprintf("%015o", uint64(w))
}

// Instruction returns the word formatted as an instruction.
func (w Word) Instruction() string {
	return fmt.Sprintf("%o %02o %04o %04o %04o", w.AddrTags(), w.Opcode(), w.A1(), w.A2(), w.A3())
}
