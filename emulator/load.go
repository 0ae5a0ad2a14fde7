package emulator

import (
	"io"
	"log"

	"github.com/ezrec/m20/asm"
)

// Assemble parses a program, with the emulator defines in scope, and
// loads it.
func (emu *Emulator) Assemble(input io.Reader) (err error) {
	as := &asm.Assembler{}
	for equ, value := range emu.Defines() {
		as.Predefine(equ, value)
	}

	prog, err := as.Parse(input)
	if err != nil {
		return
	}

	err = emu.Load(prog)
	return
}

// Load deposits a program into memory, and sets the program counter to
// its entry.
func (emu *Emulator) Load(prog *asm.Program) (err error) {
	err = prog.Load(emu.Memory)
	if err != nil {
		return
	}

	emu.Program = prog
	emu.KRA = prog.Entry

	if emu.Verbose {
		log.Printf("emulator: loaded %d words, entry %04o", len(prog.Statements), prog.Entry)
	}

	return
}
