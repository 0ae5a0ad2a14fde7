package arith

import (
	"log"
	"math"

	"github.com/ezrec/m20/word"
)

const (
	rnd    = uint64(1) << 34 // Rounding bit below the mantissa.
	carry  = uint64(1) << 36 // Carry out of the mantissa.
	carry2 = uint64(1) << 37 // Carry out of the shifted mantissa.
	mant   = uint64(word.MANTISSA)
	top    = uint64(word.MANT_TOP)
	sign   = uint64(word.SIGN)
)

// Legacy is the fast arithmetic family.
type Legacy struct {
	Verbose bool
}

var _ Engine = (*Legacy)(nil)

func (lg *Legacy) Add(kind Kind, x, y word.Word, mod Modifier) (res Result, err error) {
	no_round := mod.NoRound
	force_round := false

	switch kind {
	case KIND_SUB:
		if y.IsZero() {
			no_round = true
		}
		if y.IsNegativeZero() && !x.Sign() && !x.IsZero() {
			force_round = true
		}
		y ^= word.SIGN
	case KIND_SUB_ABS:
		x &^= word.SIGN
		y |= word.SIGN
		no_round = true
	}

	res.Value, err = lg.add(x, y, no_round, mod.NoNorm, force_round)

	if lg.Verbose {
		log.Printf("arith: legacy %v %v %v => %v (%v)", kind, x, y, res.Value, err)
	}

	return
}

func (lg *Legacy) add(x, y word.Word, no_round, no_norm, force_round bool) (result word.Word, err error) {
	xexp := x.Exponent()
	yexp := y.Exponent()
	xm1 := int64(x.Mantissa()) << 1
	ym1 := int64(y.Mantissa()) << 1

	delta := xexp - yexp

	// The rounding bit lands below the operand that is not shifted.
	if !no_round && (force_round || !((x^y)&word.SIGN != 0)) &&
		xexp != yexp && (force_round || (!x.IsZero() && !y.IsZero())) {
		if delta > 0 {
			xm1 |= 1
		} else {
			ym1 |= 1
		}
	}

	var rexp int
	if delta >= 0 {
		if delta < 37 {
			ym1 >>= delta
		} else {
			ym1 = 0
		}
		rexp = xexp
	} else {
		if -delta < 37 {
			xm1 >>= -delta
		} else {
			xm1 = 0
		}
		rexp = yexp
	}

	if x.Sign() {
		xm1 = -xm1
	}
	if y.Sign() {
		ym1 = -ym1
	}

	sum := xm1 + ym1
	negative := sum < 0
	if negative {
		sum = -sum
	}

	r := uint64(sum) & (mant | carry | carry2)

	if r&carry2 != 0 {
		if !no_round && r&1 != 0 {
			r++
		}
		r >>= 1
		rexp++
		if rexp > word.EXP_MAX {
			err = ErrAddOverflow
			return
		}
	}

	if !no_norm {
		for r != 0 && r&carry == 0 && rexp >= 0 {
			r <<= 1
			rexp--
		}
	}

	r >>= 1

	tag := tagOf(x, y)
	if r == 0 || rexp < 0 {
		result = tag
		return
	}

	result = compose(negative, rexp, r, tag)
	return
}

// mul36x36 returns the 72 bit product of two 36 bit values.
func mul36x36(x, y uint64) (hi, lo uint64) {
	const half = 0777777

	rhi := x * (y >> 18)
	rlo := x * (y & half)
	rhi += rlo >> 18

	hi = rhi >> 18
	lo = (rhi&half)<<18 | rlo&half
	return
}

func (lg *Legacy) Multiply(x, y word.Word, mod Modifier) (res Result, err error) {
	rexp := x.Exponent() + y.Exponent() - word.EXP_BIAS

	hi, lo := mul36x36(uint64(x.Mantissa()), uint64(y.Mantissa()))

	if !mod.NoRound {
		lo += rnd
		if lo&carry != 0 {
			hi++
			lo &= mant
		}
	}

	if !mod.NoNorm && hi&top == 0 {
		rexp--
		hi <<= 1
		lo <<= 1
		if lo&carry != 0 {
			hi |= 1
			lo &= mant
		}
	} else if !mod.NoRound && lo&rnd != 0 {
		lo += top
		if lo&carry != 0 {
			hi++
			lo &= mant
		}
	}

	if rexp > word.EXP_MAX {
		err = ErrMulOverflow
		return
	}

	negative := (x^y)&word.SIGN != 0
	tag := tagOf(x, y)

	if hi == 0 || rexp < 0 {
		res.Value = tag
	} else {
		res.Value = compose(negative, rexp, hi, tag)
	}

	lo &= mant
	if lo == 0 || rexp < 0 {
		res.Aux = tag
	} else {
		res.Aux = compose(negative, rexp, lo, tag)
	}
	res.HasAux = true

	if lg.Verbose {
		log.Printf("arith: legacy mul %v %v => %v %v", x, y, res.Value, res.Aux)
	}

	return
}

func (lg *Legacy) Divide(x, y word.Word, mod Modifier) (res Result, err error) {
	xm := uint64(x.Mantissa())
	ym := uint64(y.Mantissa())

	if ym == 0 {
		err = ErrDivZero
		return
	}

	if xm >= 2*ym {
		err = ErrDivMantissaOverflow
		return
	}

	rexp := x.Exponent() - y.Exponent() + word.EXP_BIAS
	r := uint64(float64(xm) / float64(ym) * (1 << 36))

	if r>>36 != 0 {
		if !mod.NoRound {
			r++
		}
		r >>= 1
		rexp++
	}

	tag := tagOf(x, y)
	if r == 0 || rexp < 0 {
		res.Value = tag
		return
	}

	if rexp > word.EXP_MAX {
		err = ErrDivOverflow
		return
	}

	res.Value = compose((x^y)&word.SIGN != 0, rexp, r, tag)

	if lg.Verbose {
		log.Printf("arith: legacy div %v %v => %v", x, y, res.Value)
	}

	return
}

func (lg *Legacy) Sqrt(x word.Word, mod Modifier) (res Result, err error) {
	if x.Sign() {
		err = ErrNegativeSqrt
		return
	}

	exponent := x.Exponent()
	r := uint64(x.Mantissa())
	exp_shift := 0

	if exponent&1 != 0 {
		r >>= 1
		exp_shift = 1
	}
	exponent = exponent>>1 + 32

	q := math.Sqrt(float64(r)) * (1 << 18)
	r = uint64(q)
	if !mod.NoRound && q-float64(r) >= 0.5 {
		r++
	}

	tag := x & word.TAG
	if r == 0 {
		res.Value = tag
		return
	}

	if r&^mant != 0 {
		err = ErrSqrt
		return
	}

	res.Value = compose(false, exponent+exp_shift, r, tag)

	if lg.Verbose {
		log.Printf("arith: legacy sqrt %v => %v", x, res.Value)
	}

	return
}
