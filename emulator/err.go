package emulator

import (
	"errors"

	"github.com/ezrec/m20/translate"
)

var f = translate.From

var (
	ErrRunout     = errors.New(f("program counter ran out of memory"))
	ErrBreakpoint = errors.New(f("breakpoint"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Addr   uint16 // Address of the instruction.
	LineNo int    // Source line, or 0 if unknown.
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("%04o: %v", err.Addr, err.Err)
	}
	return f("line %d %04o: %v", err.LineNo, err.Addr, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
