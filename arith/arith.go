// Package arith implements the M-20 floating point arithmetic.
//
// Two families of algorithms are provided. Legacy is the fast family, built
// on host integer and float64 operations. Exact follows the digit recurrence
// algorithms of the historical technical description. Both produce the same
// word encoding and the same error set, and are interchangeable behind the
// Engine interface. Mixed selects a family per operation.
package arith

import (
	"github.com/ezrec/m20/word"
)

// Kind selects the flavor of an addition.
type Kind int

const (
	KIND_ADD     = Kind(0) // add
	KIND_SUB     = Kind(1) // sub
	KIND_SUB_ABS = Kind(2) // subabs
)

func (k Kind) String() string {
	switch k {
	case KIND_ADD:
		return "add"
	case KIND_SUB:
		return "sub"
	case KIND_SUB_ABS:
		return "subabs"
	}
	return f("kind(%d)", int(k))
}

// Modifier holds the rounding and normalization suppression bits of an
// arithmetic opcode.
type Modifier struct {
	NoRound bool // Opcode bit 4: no rounding.
	NoNorm  bool // Opcode bit 5: no normalization.
}

// ModifierOf decodes the modifier bits from an opcode.
func ModifierOf(op int) Modifier {
	return Modifier{
		NoRound: (op>>4)&1 != 0,
		NoNorm:  (op>>5)&1 != 0,
	}
}

// Result of an arithmetic operation.
type Result struct {
	Value  word.Word // Primary result.
	Aux    word.Word // Auxiliary (low order product, or remainder) result.
	HasAux bool      // Set if Aux must replace the auxiliary register.
}

// Engine is an arithmetic family.
type Engine interface {
	// Add adds, subtracts, or subtracts absolute values.
	Add(kind Kind, x, y word.Word, mod Modifier) (Result, error)
	// Multiply two numbers. The low order product is in Aux.
	Multiply(x, y word.Word, mod Modifier) (Result, error)
	// Divide x by y.
	Divide(x, y word.Word, mod Modifier) (Result, error)
	// Sqrt extracts the square root of x.
	Sqrt(x word.Word, mod Modifier) (Result, error)
}

// Mixed selects an arithmetic family for each operation.
type Mixed struct {
	Adder      Engine
	Multiplier Engine
	Divider    Engine
	Rooter     Engine
}

var _ Engine = (*Mixed)(nil)

// Config selects the exact family per operation.
type Config struct {
	ExactAdd      bool
	ExactMultiply bool
	ExactDivide   bool
	ExactSqrt     bool
	Verbose       bool
}

// New creates an engine for the configuration.
func New(cfg Config) (eng *Mixed) {
	legacy := &Legacy{Verbose: cfg.Verbose}
	exact := &Exact{Verbose: cfg.Verbose}

	pick := func(use_exact bool) Engine {
		if use_exact {
			return exact
		}
		return legacy
	}

	eng = &Mixed{
		Adder:      pick(cfg.ExactAdd),
		Multiplier: pick(cfg.ExactMultiply),
		Divider:    pick(cfg.ExactDivide),
		Rooter:     pick(cfg.ExactSqrt),
	}

	return
}

func (mx *Mixed) Add(kind Kind, x, y word.Word, mod Modifier) (Result, error) {
	return mx.Adder.Add(kind, x, y, mod)
}

func (mx *Mixed) Multiply(x, y word.Word, mod Modifier) (Result, error) {
	return mx.Multiplier.Multiply(x, y, mod)
}

func (mx *Mixed) Divide(x, y word.Word, mod Modifier) (Result, error) {
	return mx.Divider.Divide(x, y, mod)
}

func (mx *Mixed) Sqrt(x word.Word, mod Modifier) (Result, error) {
	return mx.Rooter.Sqrt(x, mod)
}

// AddExponent adds n to the exponent of x. A zero mantissa or an
// exponent underflow yields the fresh zero, which is the lone tag bit.
func AddExponent(x word.Word, n int) (result word.Word, err error) {
	exp := x.Exponent() + n

	if exp < 0 || x.Mantissa() == 0 {
		result = word.TAG
		return
	}

	if exp > word.EXP_MAX {
		err = ErrExpOverflow
		return
	}

	result = (x & (word.SIGN | word.MANTISSA | word.TAG)) | word.Word(exp)<<36
	return
}

// compose builds a number from its fields, with OR semantics for the
// mantissa so a carry out of the mantissa is kept as the hardware does.
func compose(negative bool, exp int, mantissa uint64, tag word.Word) (w word.Word) {
	w = word.Word(mantissa) | word.Word(exp)<<36 | (tag & word.TAG)
	if negative {
		w |= word.SIGN
	}
	return
}

// tagOf returns the merged tags of the operands.
func tagOf(x, y word.Word) word.Word {
	return (x | y) & word.TAG
}
