package asm

import (
	"iter"

	"github.com/ezrec/m20/word"
)

// Statement is a single assembled word.
type Statement struct {
	LineNo int       // Source line.
	Addr   uint16    // Memory address.
	Words  []string  // Source words.
	Code   word.Word // Assembled word.
	Link   [3]string // Labels to link into A1, A2 and A3.
}

// Program is an assembled program.
type Program struct {
	Statements []Statement
	Entry      uint16 // Address of the 'start' label, or the first word.
}

// Depositor is a memory that a program can be loaded into.
type Depositor interface {
	Deposit(addr int, w word.Word) error
}

// Debug returns the statement at an address.
func (prog *Program) Debug(addr uint16) (stmt *Statement, ok bool) {
	for n := range prog.Statements {
		if prog.Statements[n].Addr == addr {
			stmt = &prog.Statements[n]
			ok = true
		}
	}

	return
}

// LineNo returns the source line of an address, or 0 if none.
func (prog *Program) LineNo(addr uint16) int {
	stmt, ok := prog.Debug(addr)
	if !ok {
		return 0
	}
	return stmt.LineNo
}

// Words iterates over the address and contents of all assembled words.
func (prog *Program) Words() iter.Seq2[uint16, word.Word] {
	return func(yield func(addr uint16, w word.Word) bool) {
		for _, stmt := range prog.Statements {
			if !yield(stmt.Addr, stmt.Code) {
				return
			}
		}
	}
}

// Load deposits the program into memory.
func (prog *Program) Load(mem Depositor) (err error) {
	for addr, w := range prog.Words() {
		err = mem.Deposit(int(addr), w)
		if err != nil {
			err = &ErrSyntax{LineNo: prog.LineNo(addr), Err: err}
			return
		}
	}

	return
}
