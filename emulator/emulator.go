// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator runs programs on the M-20 processor, with the
// reference devices attached.
package emulator

import (
	"context"
	"iter"
	"log"
	"maps"
	"strconv"

	"github.com/ezrec/m20/arith"
	"github.com/ezrec/m20/asm"
	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/internal"
	"github.com/ezrec/m20/io"
	"github.com/ezrec/m20/memory"
	"github.com/ezrec/m20/word"
)

// Machine epsilon of float64, subtracted from the delay before rounding
// down to ticks.
const epsilon = 0x1p-52

// Emulator state. CPU + memory + devices.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *asm.Program // Currently loaded program, for line numbers.

	Deck      io.Deck          // Card reader.
	Punch     io.CardPunch     // Card punch.
	Printer   io.LinePrinter   // Line printer.
	Drum      io.Drum          // Magnetic drums.
	Tape      io.Tape          // Magnetic tapes.
	Formatter io.TapeFormatter // Tape formatter.

	Profile     *Profile        // Opcode statistics, nil if disabled.
	Tracer      Tracer          // Instruction tracer, may be nil.
	Breakpoints map[uint16]bool // Addresses to stop before.

	// Service is called every ServiceInterval ticks. An error stops the
	// emulator.
	Service         func(emu *Emulator) error
	ServiceInterval int
	Interval        int // Ticks until the next service.

	Ticks int // Ticks since reset.

	resume uint16 // Breakpoint to pass on the next step.
	paused bool
}

// NewEmulator creates a new emulator.
func NewEmulator(cfg Config) (emu *Emulator) {
	mode := cfg.Mode
	if mode == 0 {
		mode = memory.MODE_I
	}

	mem := &memory.Memory{
		Verbose: cfg.Verbose,
		Mode:    mode,
		Itep:    cfg.Itep,
	}

	emu = &Emulator{
		Verbose:         cfg.Verbose,
		Cpu:             cpu.NewCpu(mem, arith.New(cfg.Arith)),
		Program:         &asm.Program{},
		Breakpoints:     map[uint16]bool{},
		ServiceInterval: cfg.ServiceInterval,
		Interval:        cfg.ServiceInterval,
	}

	if cfg.Profile {
		emu.Profile = &Profile{}
	}

	emu.Cpu.Verbose = cfg.Verbose
	emu.Cpu.MemoryCheck = cfg.MemoryCheck
	emu.Cpu.BlankingLoop = cfg.BlankingLoop
	emu.Cpu.PrintText = cfg.PrintText
	emu.Cpu.RPU = cfg.Switches
	emu.Cpu.KRA = cfg.Start & memory.ADDR_MASK
	emu.Cpu.BootRequest = cfg.Boot

	emu.Deck.Verbose = cfg.Verbose
	emu.Punch.Verbose = cfg.Verbose
	emu.Printer.Verbose = cfg.Verbose
	emu.Drum.Verbose = cfg.Verbose
	emu.Tape.Verbose = cfg.Verbose
	emu.Formatter.Tape = &emu.Tape

	emu.Cpu.Devices = cpu.Devices{
		Reader:    &emu.Deck,
		Punch:     &emu.Punch,
		Printer:   &emu.Printer,
		Drum:      &emu.Drum,
		Tape:      &emu.Tape,
		Formatter: &emu.Formatter,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	itep := 0
	if emu.Memory.Itep {
		itep = 1
	}

	return internal.Concat2(maps.All(map[string]string{
		"M20_MODE": strconv.Itoa(int(emu.Memory.Mode)),
		"M20_ITEP": strconv.Itoa(itep),
	}),
		emu.Cpu.Defines(),
		emu.Memory.Defines(),
		emu.Drum.Defines(),
		emu.Tape.Defines(),
	)
}

// Reset the processor, the timing and the statistics. Memory, media and
// the program counter persist.
func (emu *Emulator) Reset() {
	if emu.Verbose {
		log.Printf("emulator: reset")
	}

	emu.Cpu.Reset()
	emu.Cpu.Delay = 0
	emu.Ticks = 0
	emu.Interval = emu.ServiceInterval
	emu.paused = false

	if emu.Profile != nil {
		*emu.Profile = Profile{}
	}
}

// LineNo returns the source line of the next instruction, or 0 if unknown.
func (emu *Emulator) LineNo() int {
	return emu.lineNo(emu.KRA)
}

func (emu *Emulator) lineNo(addr uint16) int {
	if emu.Program == nil {
		return 0
	}
	return emu.Program.LineNo(addr)
}

// Poke deposits a word into memory, for a debugger.
func (emu *Emulator) Poke(addr int, w word.Word) (err error) {
	return emu.Memory.Deposit(addr, w)
}

// Peek examines a word of memory, for a debugger.
func (emu *Emulator) Peek(addr int) (w word.Word, err error) {
	return emu.Memory.Examine(addr)
}

// Step executes a single instruction.
func (emu *Emulator) Step() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	addr := emu.KRA
	defer func() {
		if err != nil {
			err = &ErrRuntime{Addr: addr, LineNo: emu.lineNo(addr), Err: err}
		}
	}()

	if emu.Interval <= 0 {
		emu.Interval = emu.ServiceInterval
		if emu.Service != nil {
			err = emu.Service(emu)
			if err != nil {
				return
			}
		}
	}

	if emu.KRA >= memory.SIZE {
		err = ErrRunout
		return
	}

	if emu.Breakpoints[emu.KRA] && !(emu.paused && emu.resume == emu.KRA) {
		emu.paused = true
		emu.resume = emu.KRA
		err = ErrBreakpoint
		return
	}
	emu.paused = false

	emu.RK = emu.Memory.Peek(emu.KRA)
	op := cpu.Opcode(emu.RK.Opcode())
	ins := cpu.Decode(emu.RK, emu.RA)

	before := emu.snapshot(ins)
	if emu.Tracer != nil {
		emu.Tracer.Before(before)
	}

	delay := emu.Delay
	emu.KRA++
	err = emu.Cpu.Execute()

	emu.OldOpcode = cpu.Opcode(emu.RK.Opcode())
	emu.P1 = emu.Memory.Peek(cpu.Decode(emu.RK, emu.RA).A1)

	emu.rollback(err)

	if emu.Profile != nil {
		time := emu.Delay - delay
		if time > 0 {
			emu.Profile.Add(op, time)
		}
	}

	if emu.Tracer != nil {
		emu.Tracer.After(before, emu.snapshot(ins))
	}

	ticks := 1
	if emu.Delay > 0 {
		ticks += int(emu.Delay - epsilon)
	}
	emu.Delay -= float64(ticks)
	emu.Interval -= ticks
	emu.Ticks += ticks

	return
}

// Run executes instructions until an error, or until the context is done.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for {
		err = ctx.Err()
		if err != nil {
			return
		}

		err = emu.Step()
		if err != nil {
			return
		}
	}
}
