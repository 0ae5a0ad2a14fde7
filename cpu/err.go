package cpu

import (
	"errors"

	"github.com/ezrec/m20/translate"
	"github.com/ezrec/m20/word"
)

var f = translate.From

var (
	// Execution status
	ErrBadCommand      = errors.New(f("bad command"))
	ErrStop            = errors.New(f("stop"))
	ErrAssert          = errors.New(f("compare mismatch"))
	ErrInvalidArgument = errors.New(f("invalid argument"))
	ErrMemoryGarbage   = errors.New(f("memory garbage"))

	// I/O status
	ErrIoMissingSetup = errors.New(f("i/o executed without setup"))
	ErrPunchBadBits   = errors.New(f("punch setup with conflicting bits"))
	ErrPrintBadBits   = errors.New(f("print setup with conflicting bits"))
	ErrDrumBadBits    = errors.New(f("drum setup with conflicting bits"))
	ErrTapeBadBits    = errors.New(f("tape setup with conflicting bits"))
	ErrFormatBadBits  = errors.New(f("tape format setup with conflicting bits"))
	ErrNotReadyPunch  = errors.New(f("punch not ready"))
	ErrNotReadyPrint  = errors.New(f("printer not ready"))
	ErrReadError      = errors.New(f("read error"))
	ErrTapeReadError  = errors.New(f("tape read error"))
	ErrCardBadSum     = errors.New(f("card checksum mismatch"))
	ErrNoCard         = errors.New(f("no card in reader"))
	ErrDeviceMissing  = errors.New(f("device not attached"))
)

// ErrOpcode wraps the instruction register of a failing instruction.
type ErrOpcode word.Word

func (eo ErrOpcode) Error() string {
	ins := Decode(word.Word(eo), 0)
	return f("instruction %v (%v)", word.Word(eo).Instruction(), ins.Opcode)
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}
