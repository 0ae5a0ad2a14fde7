// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package asm implements a single pass macro assembler and program loader
// for the M-20.
//
// Each line holds one word:
//
//	[label:] mnemonic[/tags] [a1 [a2 [a3]]]
//	[label:] .word VALUE
//	[label:] .float NUMBER
//	.org ADDRESS
//	.equ NAME VALUE
//	.macro NAME [ARG...]
//	.endm
//
// Values are numbers (octal with a leading 0, hex with 0x), equates,
// labels, or $(expr) compile time expressions. Text after ';' is a comment.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/memory"
	"github.com/ezrec/m20/word"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass macro assembler for the M-20.
type Assembler struct {
	Verbose   bool        // If set, verbosely logs the assembler actions.
	Statement []Statement // List of generated words.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	addr int // Address of the next word.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(text string) (value int64, err error) {
	value, err = strconv.ParseInt(text, 0, 64)
	if err != nil {
		err = ErrParseNumber(text)
		return
	}

	return
}

// parenEval does compile-time $(...) evaluations. Equates and the labels
// defined so far are in scope.
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v int64
		v, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(v)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(addr)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// parseLine parses a single line into words.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do $() evaluations
	re := regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%v", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, text := range words {
		// Check for equate next
		equate, ok := asm.Equate[text]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.addr
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", fmt.Sprintf("%v_%v_", name, lineno))
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Statement = asm.Statement[:0]
	asm.addr = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("asm: %v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Statement {
		stmt := &asm.Statement[n]
		for field, label := range stmt.Link {
			if len(label) == 0 {
				continue
			}
			addr, ok := asm.Label[label]
			if !ok {
				lineno = stmt.LineNo
				line = strings.Join(stmt.Words, " ")
				err = ErrLabelMissing(label)
				return
			}
			stmt.Code |= word.Word(addr&word.ADDR_MASK) << (24 - 12*field)
		}
	}

	prog = &Program{
		Statements: slices.Clone(asm.Statement),
	}

	start, ok := asm.Label["start"]
	switch {
	case ok:
		prog.Entry = uint16(start)
	case len(prog.Statements) > 0:
		prog.Entry = prog.Statements[0].Addr
	}

	return
}

// emit appends a word at the current address.
func (asm *Assembler) emit(lineno int, words []string, code word.Word, link [3]string) (err error) {
	if asm.addr >= memory.SIZE {
		err = ErrMemoryFull
		return
	}

	stmt := Statement{
		LineNo: lineno,
		Addr:   uint16(asm.addr),
		Words:  words,
		Code:   code,
		Link:   link,
	}
	asm.Statement = append(asm.Statement, stmt)
	asm.addr++

	if asm.Verbose {
		log.Printf("asm: %04o: %v", stmt.Addr, code)
	}

	return
}

// address parses an instruction address, which may be a label.
func (asm *Assembler) address(text string) (addr uint16, label string, err error) {
	value, err := asm.valueOf(text)
	if err != nil {
		if isLabel(text) {
			// Resolved at link time.
			err = nil
			label = text
		}
		return
	}

	if value < 0 || value > word.ADDR_MASK {
		err = ErrAddressRange
		return
	}

	addr = uint16(value)
	return
}

var _label_re = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

func isLabel(text string) bool {
	return _label_re.MatchString(text)
}

// mnemonic splits 'name/tags' into its opcode and address tags.
func mnemonic(text string) (op cpu.Opcode, tags int, err error) {
	name, tag_text, has_tags := strings.Cut(text, "/")

	op, ok := cpu.OpcodeOf(name)
	if !ok {
		var value uint64
		value, err = strconv.ParseUint(name, 8, 6)
		if err != nil {
			err = ErrOpcodeInvalid
			return
		}
		op = cpu.Opcode(value)
	}

	if has_tags {
		var value uint64
		value, err = strconv.ParseUint(tag_text, 8, 3)
		if err != nil {
			err = ErrTagsInvalid
			return
		}
		tags = int(value)
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	switch words[0] {
	case ".org":
		if len(words) != 2 {
			err = ErrOrgSyntax
			return
		}
		var value int64
		value, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if value < 0 || value >= memory.SIZE {
			err = ErrAddressRange
			return
		}
		asm.addr = int(value)
		return
	case ".word":
		if len(words) != 2 {
			err = ErrWordSyntax
			return
		}
		var value uint64
		value, err = strconv.ParseUint(words[1], 0, 64)
		if err != nil {
			err = ErrParseNumber(words[1])
			return
		}
		if value&^uint64(word.MASK) != 0 {
			err = ErrWordRange
			return
		}
		err = asm.emit(lineno, words, word.Word(value), [3]string{})
		return
	case ".float":
		if len(words) != 2 {
			err = ErrFloatSyntax
			return
		}
		var value float64
		value, err = strconv.ParseFloat(words[1], 64)
		if err != nil {
			err = ErrParseNumber(words[1])
			return
		}
		err = asm.emit(lineno, words, word.FromFloat(value), [3]string{})
		return
	}

	if strings.HasPrefix(words[0], ".") {
		err = ErrDirectiveUnknown
		return
	}

	op, tags, err := mnemonic(words[0])
	if err != nil {
		return
	}

	args := words[1:]
	if len(args) > 3 {
		err = ErrOpcodeExtraArgs
		return
	}

	var addrs [3]uint16
	var link [3]string
	for n, arg := range args {
		addrs[n], link[n], err = asm.address(arg)
		if err != nil {
			return
		}
	}

	code := word.NewInstruction(tags, int(op), addrs[0], addrs[1], addrs[2])
	err = asm.emit(lineno, words, code, link)
	return
}
