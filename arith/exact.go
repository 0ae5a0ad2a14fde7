package arith

import (
	"log"

	"github.com/ezrec/m20/word"
)

// Exact is the digit recurrence arithmetic family.
//
// Intermediate registers carry one auxiliary bit below the mantissa, and
// the sign of a partial result is bit 43 of the register, as in the
// hardware adder.
type Exact struct {
	Verbose bool
}

var _ Engine = (*Exact)(nil)

func signOf(v uint64) int {
	if v&sign != 0 {
		return -1
	}
	return 1
}

func (ex *Exact) Add(kind Kind, x, y word.Word, mod Modifier) (res Result, err error) {
	var u, u1 int

	switch kind {
	case KIND_SUB_ABS:
		u = -1
		u1 = 1
	case KIND_SUB:
		s1 := signOf(uint64(x))
		s2 := signOf(uint64(y))
		u1 = s1
		u = -(s1 * s2)
	default:
		s1 := signOf(uint64(x))
		s2 := signOf(uint64(y))
		u1 = s1
		u = s1 * s2
	}

	p := x.Exponent()
	q := y.Exponent()
	x1 := uint64(x.Mantissa())
	y1 := uint64(y.Mantissa())

	sigma := u == -1
	sigma1 := u1 == -1
	v := x.IsZero() || y.IsZero()
	delta := p - q

	rr := max(p, q)

	var n0 uint64
	if !mod.NoRound && !v && !sigma && delta != 0 {
		n0 = 1
	}

	var xx1, yy1 uint64
	switch {
	case delta == 0:
		xx1 = x1 << 1
		yy1 = y1 << 1
	case delta < 0:
		if delta >= -36 {
			xx1 = (x1 << 1) >> -delta
		}
		yy1 = y1<<1 | n0
	default:
		xx1 = x1<<1 | n0
		if delta <= 36 {
			yy1 = (y1 << 1) >> delta
		}
	}

	var z int64
	if sigma {
		z = int64(xx1) - int64(yy1)
	} else {
		z = int64(xx1) + int64(yy1)
	}

	negative := z < 0
	if sigma1 {
		negative = !negative
	}
	if z < 0 {
		z = -z
	}

	zz := uint64(z) & (mant | carry | carry2)
	tag := tagOf(x, y)

	res.Aux = tag
	res.HasAux = true

	if zz&carry2 != 0 {
		if !mod.NoRound {
			zz++
		}
		rr++
		if rr > word.EXP_MAX {
			err = ErrAddOverflow
			return
		}
		zz >>= 1
	}

	if (mod.NoNorm || zz&carry != 0) && zz == 0 {
		res.Value = 0
		return
	}

	if !mod.NoNorm && zz&(carry|carry2) == 0 {
		j := 36
		for j > 0 && zz&(uint64(1)<<j) == 0 {
			j--
		}
		shift := 36 - j
		if rr-shift < 0 {
			res.Value = 0
			return
		}
		rr -= shift
		zz <<= shift
		if zz == 0 {
			res.Value = 0
			return
		}
	}

	zz = (zz >> 1) & mant
	res.Value = compose(negative, rr, zz, tag)

	if ex.Verbose {
		log.Printf("arith: exact %v %v %v => %v", kind, x, y, res.Value)
	}

	return
}

func (ex *Exact) Multiply(x, y word.Word, mod Modifier) (res Result, err error) {
	weights := [4]int64{0, 1, 2, -1}

	x1 := uint64(x.Mantissa())
	y1 := int64(y.Mantissa())
	rr := x.Exponent() + y.Exponent() - word.EXP_BIAS

	var rr_lo uint64
	var rr_hi int64
	if !mod.NoRound {
		rr_hi = int64(rnd)
	}

	// Two multiplier digits per pass, with the 11 pair recoded as 100-01.
	for i := 1; i < 20; i++ {
		ind := x1 & 3
		if signOf(uint64(rr_hi)) < 0 {
			ind = (ind + 1) & 3
		}
		rr_hi += weights[ind] * y1

		if i < 19 {
			rr_lo >>= 2
			rr_lo |= (uint64(rr_hi) & 3) << 34
			rr_hi >>= 2
		}
		x1 >>= 2
	}

	if !mod.NoNorm && rr_hi&int64(top) == 0 {
		rr--
		rr_hi <<= 1
		rr_lo <<= 1
		if rr_lo&carry != 0 {
			rr_hi++
			rr_lo &= mant
		}
	} else if rr_lo&rnd != 0 && !mod.NoRound {
		rr_lo += top
		if rr_lo&carry != 0 {
			rr_hi++
			rr_lo &= mant
		}
	}

	if rr > word.EXP_MAX {
		err = ErrMulOverflow
		return
	}

	negative := (x^y)&word.SIGN != 0
	tag := tagOf(x, y)

	if rr_hi == 0 || rr < 0 {
		res.Value = tag
	} else {
		res.Value = compose(negative, rr, uint64(rr_hi)&mant, tag)
	}

	if rr_lo == 0 || rr < 0 {
		res.Aux = tag
	} else {
		res.Aux = compose(negative, rr, rr_lo&mant, tag)
	}
	res.HasAux = true

	if ex.Verbose {
		log.Printf("arith: exact mul %v %v => %v %v", x, y, res.Value, res.Aux)
	}

	return
}

func (ex *Exact) Divide(x, y word.Word, mod Modifier) (res Result, err error) {
	x1 := uint64(x.Mantissa())
	y1 := uint64(y.Mantissa())

	if y1 == 0 {
		err = ErrDivZero
		return
	}

	if x1 >= 2*y1 {
		err = ErrDivMantissaOverflow
		return
	}

	rr := x.Exponent() - y.Exponent() + word.EXP_BIAS

	// Non-restoring division, one quotient digit per pass. The last
	// pass may correct the 38th digit, so it is dropped afterwards.
	var zz uint64
	qk := x1
	for i := 1; i < 40; i++ {
		if signOf(qk) < 0 {
			qk += y1
			zz = zz<<1 - 1
		} else {
			qk -= y1
			zz = zz<<1 + 1
		}
		qk <<= 1
	}
	zz >>= 1

	if zz&carry2 != 0 {
		zz >>= 1
		rr++
	}

	if !mod.NoRound {
		zz++
	}
	zz >>= 1

	negative := (x^y)&word.SIGN != 0
	tag := tagOf(x, y)

	if zz == 0 || rr < 0 {
		res.Value = tag
		return
	}

	if rr > word.EXP_MAX {
		err = ErrDivOverflow
		return
	}

	res.Value = compose(negative, rr, zz&mant, tag)

	if ex.Verbose {
		log.Printf("arith: exact div %v %v => %v", x, y, res.Value)
	}

	return
}

func (ex *Exact) Sqrt(x word.Word, mod Modifier) (res Result, err error) {
	if x.Sign() {
		err = ErrNegativeSqrt
		return
	}

	m := uint64(x.Mantissa())
	p := x.Exponent()
	tag := x & word.TAG

	rr := p>>1 + 32
	odd := p&1 != 0
	if odd {
		rr++
	}

	if m == 0 {
		res.Value = tag
		return
	}

	us := top
	var n uint64
	var qs uint64
	if odd {
		qs = -m
	} else {
		qs = -(m + m)
	}

	for i := 1; i < 37; i++ {
		qqs := qs + us + n<<1
		if qqs&sign != 0 {
			qs = qqs << 1
			n += us
		} else {
			qs = (qqs - n - n - us) << 1
		}
		us >>= 1
	}

	zz := n
	if !mod.NoRound {
		zz++
	}
	zz &= mant

	if zz == 0 {
		res.Value = 0
		return
	}

	res.Value = compose(false, rr, zz, tag)

	if ex.Verbose {
		log.Printf("arith: exact sqrt %v => %v", x, res.Value)
	}

	return
}
