package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/memory"
	"github.com/ezrec/m20/word"
)

func parse(t *testing.T, program ...string) (prog *Program, err error) {
	asm := &Assembler{}
	asm.Predefine("TEN", "10")
	prog, err = asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Statements))
	assert.Equal("0", asm.Equate["LINENO"])
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		line string
		code word.Word
	}){
		{"add", "add 0100 0101 0102", word.NewInstruction(0, 001, 0100, 0101, 0102)},
		{"tags", "add/5 1 2 3", word.NewInstruction(5, 001, 1, 2, 3)},
		{"octal_op", "074 0100 0 0", word.NewInstruction(0, 074, 0100, 0, 0)},
		{"short", "halt", word.NewInstruction(0, 017, 0, 0, 0)},
		{"hex", "move 0x10 0 0x20", word.NewInstruction(0, 000, 020, 0, 040)},
		{"predefine", "jump 0 TEN 0", word.NewInstruction(0, 056, 0, 10, 0)},
		{"expr", "move $(TEN*2) 0 0", word.NewInstruction(0, 000, 20, 0, 0)},
		{"modifier", "mul.nr.nn 1 2 3", word.NewInstruction(0, 065, 1, 2, 3)},
		{"word", ".word 0101400000000000", word.Word(0101400000000000)},
		{"float", ".float -2", word.Word(0302400000000000)},
	}

	for _, entry := range table {
		prog, err := parse(t, entry.line)
		if !assert.NoError(err, entry.name) {
			continue
		}
		if !assert.Equal(1, len(prog.Statements), entry.name) {
			continue
		}
		assert.Equal(entry.code, prog.Statements[0].Code, entry.name)
	}
}

func TestAssemblerLabels(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(t,
		".org 010",
		"start: jump 0 next 0 ; forward reference",
		"data: .float 1.5",
		"next: move data 0 $(data+1)",
		"halt",
	)
	if !assert.NoError(err) {
		return
	}

	assert.Equal(uint16(010), prog.Entry)
	assert.Equal(4, len(prog.Statements))

	expected := []word.Word{
		word.NewInstruction(0, 056, 0, 012, 0),
		word.Word(0101600000000000),
		word.NewInstruction(0, 000, 011, 0, 012),
		word.NewInstruction(0, 017, 0, 0, 0),
	}
	for n, stmt := range prog.Statements {
		assert.Equal(uint16(010+n), stmt.Addr)
		assert.Equal(expected[n], stmt.Code, "%04o", stmt.Addr)
	}

	assert.Equal(3, prog.LineNo(011))
	assert.Equal(0, prog.LineNo(0))
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(t,
		".macro copy FROM TO",
		"move FROM 0 TO",
		".endm",
		"copy 1 2",
		"copy 3 4",
	)
	if !assert.NoError(err) {
		return
	}

	assert.Equal(2, len(prog.Statements))
	assert.Equal(word.NewInstruction(0, 0, 1, 0, 2), prog.Statements[0].Code)
	assert.Equal(word.NewInstruction(0, 0, 3, 0, 4), prog.Statements[1].Code)
	assert.Equal(uint16(1), prog.Statements[1].Addr)
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		err     error
	}){
		{"opcode", []string{"nope 1 2 3"}, ErrOpcodeInvalid},
		{"tags", []string{"add/9 1 2 3"}, ErrTagsInvalid},
		{"args", []string{"add 1 2 3 4"}, ErrOpcodeExtraArgs},
		{"range", []string{"add 010000 0 0"}, ErrAddressRange},
		{"word", []string{".word 01000000000000000"}, ErrWordRange},
		{"label_dup", []string{"a: halt", "a: halt"}, ErrLabelDuplicate},
		{"equ_dup", []string{".equ A 1", ".equ A 2"}, ErrEquateDuplicate},
		{"org", []string{".org 010000"}, ErrAddressRange},
		{"endm", []string{".endm"}, ErrMacroLonelyEndm},
		{"lonely", []string{".macro x", "halt"}, ErrMacroLonely},
		{"directive", []string{".bss 4"}, ErrDirectiveUnknown},
	}

	for _, entry := range table {
		_, err := parse(t, entry.program...)
		assert.ErrorIs(err, entry.err, entry.name)
	}

	_, err := parse(t, "jump 0 nowhere 0")
	var missing ErrLabelMissing
	assert.True(errors.As(err, &missing))
	assert.Equal(ErrLabelMissing("nowhere"), missing)

	var syntax *ErrSyntax
	assert.True(errors.As(err, &syntax))
	assert.Equal(1, syntax.LineNo)
}

func TestProgramLoad(t *testing.T) {
	assert := assert.New(t)

	prog, err := parse(t,
		".org 1",
		"move 1 0 2",
		".word 0777",
	)
	if !assert.NoError(err) {
		return
	}

	mem := &memory.Memory{Mode: memory.MODE_I}
	assert.NoError(prog.Load(mem))
	assert.Equal(word.NewInstruction(0, int(cpu.MOVE), 1, 0, 2), mem.Peek(1))
	assert.Equal(word.Word(0777), mem.Peek(2))

	// Address zero is read-only.
	prog, err = parse(t, ".word 1")
	assert.NoError(err)
	assert.ErrorIs(prog.Load(mem), memory.ErrReadOnly)
}
