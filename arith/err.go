package arith

import (
	"errors"

	"github.com/ezrec/m20/translate"
)

var f = translate.From

var (
	ErrAddOverflow         = errors.New(f("addition overflow"))
	ErrMulOverflow         = errors.New(f("multiplication overflow"))
	ErrDivOverflow         = errors.New(f("division overflow"))
	ErrDivMantissaOverflow = errors.New(f("division mantissa overflow"))
	ErrDivZero             = errors.New(f("division by zero"))
	ErrNegativeSqrt        = errors.New(f("square root of a negative number"))
	ErrSqrt                = errors.New(f("square root error"))
	ErrExpOverflow         = errors.New(f("exponent overflow"))
)
