package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/m20/arith"
	"github.com/ezrec/m20/memory"
	"github.com/ezrec/m20/word"
)

var _cpu_defines = map[string]string{
	"EXT_UNIT":        fmt.Sprintf("0%o", EXT_UNIT),
	"EXT_TAPE_FORMAT": fmt.Sprintf("0%o", EXT_TAPE_FORMAT),
	"EXT_TAPE":        fmt.Sprintf("0%o", EXT_TAPE),
	"EXT_DRUM":        fmt.Sprintf("0%o", EXT_DRUM),
	"EXT_WRITE":       fmt.Sprintf("0%o", EXT_WRITE),
	"EXT_TAPE_REV":    fmt.Sprintf("0%o", EXT_TAPE_REV),
	"EXT_DIS_STOP":    fmt.Sprintf("0%o", EXT_DIS_STOP),
	"EXT_DIS_CHECK":   fmt.Sprintf("0%o", EXT_DIS_CHECK),
	"EXT_DIS_RAM":     fmt.Sprintf("0%o", EXT_DIS_RAM),
	"EXT_PRINT":       fmt.Sprintf("0%o", EXT_PRINT),
	"EXT_PUNCH":       fmt.Sprintf("0%o", EXT_PUNCH),
}

// Cpu is the simulation context of the M-20 processor.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Arith   arith.Engine   // Floating point arithmetic.
	Memory  *memory.Memory // Main store.
	Devices Devices        // Attached devices.

	RK  word.Word    // Instruction register.
	KRA uint16       // Program counter. 4096 is a runout.
	RA  uint16       // Index register.
	RR  word.Word    // Result register.
	RMR word.Word    // Low order result register.
	SW  bool         // Condition flag.
	RPU [4]word.Word // Console switch registers.

	P1        word.Word // First operand of the previous instruction.
	OldOpcode Opcode    // Opcode of the previous instruction.

	Transfer    Transfer // Latched I/O descriptor.
	BootRequest bool     // Boot from the card reader on the next 010.

	MemoryCheck  bool // Fail on words wider than 45 bits at A1, A2 and A3.
	BlankingLoop bool // Opcode 040 is a loop instruction.
	PrintText    bool // Allow text line printer output.

	Delay float64 // Accumulated instruction time, in microseconds.
}

// NewCpu creates a new CPU attached to memory, with the given arithmetic.
func NewCpu(mem *memory.Memory, engine arith.Engine) (cpu *Cpu) {
	cpu = &Cpu{
		Arith:  engine,
		Memory: mem,
	}
	mem.Registers = cpu
	cpu.Reset()

	return
}

// Defines for the cpu.
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state. Memory, the program counter, the index register and
// the condition flag persist.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.RK = 0
	cpu.RMR = 0
	cpu.Transfer = Transfer{Op: EXT_NONE}
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"kra", "rk", "ra", "rr", "rmr", "sw",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "kra":
			strval = fmt.Sprintf("%04o", cpu.KRA)
		case "rk":
			strval = cpu.RK.Instruction()
		case "ra":
			strval = fmt.Sprintf("%04o", cpu.RA)
		case "rr":
			strval = cpu.RR.String()
		case "rmr":
			strval = cpu.RMR.String()
		case "sw":
			strval = "0"
			if cpu.SW {
				strval = "1"
			}
		}
		text += fmt.Sprintf("% 4s: %v\n", reg, strval)
	}

	return
}

// Switch returns console switch register n, 1 to 4.
func (cpu *Cpu) Switch(n int) word.Word {
	return cpu.RPU[n-1]
}

// Result returns the result register.
func (cpu *Cpu) Result() word.Word {
	return cpu.RR
}

// Index returns the index register.
func (cpu *Cpu) Index() uint16 {
	return cpu.RA
}

// SetIndex sets the index register.
func (cpu *Cpu) SetIndex(ra uint16) {
	cpu.RA = ra & memory.ADDR_MASK
}

// Irregular loads the instruction register and executes it, without
// advancing the program counter.
func (cpu *Cpu) Irregular(rk word.Word) (err error) {
	if cpu.Verbose {
		log.Printf("cpu: irregular %v", rk.Instruction())
	}

	cpu.RK = rk
	err = cpu.Execute()
	return
}

func (cpu *Cpu) load(addr uint16) word.Word {
	return cpu.Memory.Load(addr)
}

// store writes to memory. Writes to read-only locations are ignored.
func (cpu *Cpu) store(addr uint16, w word.Word) {
	err := cpu.Memory.Store(addr, w)
	if err != nil && cpu.Verbose {
		log.Printf("cpu: store %04o: %v", addr, err)
	}
}

// checkMemory fails if any addressed word is wider than 45 bits.
func (cpu *Cpu) checkMemory(ins Instruction) (err error) {
	if !cpu.MemoryCheck {
		return
	}

	for _, addr := range []uint16{ins.A1, ins.A2, ins.A3} {
		if cpu.load(addr).Garbage() {
			if cpu.Verbose {
				log.Printf("cpu: garbage at %04o: %018o", addr, uint64(cpu.load(addr)))
			}
			err = ErrMemoryGarbage
			return
		}
	}

	return
}

// Execute executes the instruction in the instruction register.
func (cpu *Cpu) Execute() (err error) {
	rk := cpu.RK
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(rk), err)
		}
	}()

	ins := Decode(rk, cpu.RA)
	if cpu.Verbose {
		log.Printf("cpu: %04o: %v", cpu.KRA, ins)
	}

	err = cpu.checkMemory(ins)
	if err != nil {
		return
	}

	err = _dispatch[ins.Opcode](cpu, ins)
	if err != nil {
		return
	}

	err = cpu.checkMemory(ins)
	return
}
