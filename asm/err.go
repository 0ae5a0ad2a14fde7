package asm

import (
	"errors"

	"github.com/ezrec/m20/translate"
)

var f = translate.From

var (
	ErrEquateSyntax     = errors.New(f(".equ syntax"))
	ErrEquateDuplicate  = errors.New(f(".equ duplicated"))
	ErrOrgSyntax        = errors.New(f(".org syntax"))
	ErrWordSyntax       = errors.New(f(".word syntax"))
	ErrFloatSyntax      = errors.New(f(".float syntax"))
	ErrLabelDuplicate   = errors.New(f("label duplicated"))
	ErrMacroSyntax      = errors.New(f(".macro syntax"))
	ErrMacroNesting     = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate   = errors.New(f(".macro duplicated"))
	ErrMacroLonely      = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm  = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs  = errors.New(f("excessive arguments"))
	ErrOpcodeInvalid    = errors.New(f("opcode invalid"))
	ErrTagsInvalid      = errors.New(f("address tags invalid"))
	ErrAddressRange     = errors.New(f("address out of range"))
	ErrMemoryFull       = errors.New(f("program exceeds memory"))
	ErrWordRange        = errors.New(f("word exceeds 45 bits"))
	ErrDirectiveUnknown = errors.New(f("directive unknown"))
)

// ErrLabelMissing is an undefined label.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrSyntax is an error at a line of the source.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
