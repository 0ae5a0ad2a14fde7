// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"errors"
	"fmt"
	stdio "io"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/ezrec/m20/arith"
	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/emulator"
	"github.com/ezrec/m20/io"
	"github.com/ezrec/m20/memory"
	"github.com/ezrec/m20/word"
)

func main() {
	var cli struct {
		Run runCmd `cmd:"" default:"1" help:"Assemble and run an M-20 program."`
	}

	ctx := kong.Parse(&cli,
		kong.Name("m20"),
		kong.Description("M-20 processor emulator."),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

type runCmd struct {
	Program string `arg:"" type:"existingfile" help:"Program source to assemble and run."`

	Verbose bool `short:"v" help:"Verbose logging."`

	Mode          int      `default:"1" help:"Memory mode, 1 or 2."`
	Itep          bool     `help:"ITEP sub-mode of memory mode 2."`
	ExactAdd      bool     `help:"Exact addition."`
	ExactMultiply bool     `help:"Exact multiplication."`
	ExactDivide   bool     `help:"Exact division."`
	ExactSqrt     bool     `help:"Exact square root."`
	MemoryCheck   bool     `help:"Stop on words wider than 45 bits."`
	BlankingLoop  bool     `help:"Execute opcode 040 as a loop instruction."`
	PrintText     bool     `help:"Allow text line printer output."`
	Switch        []string `help:"Console switch registers, in octal."`
	Start         string   `help:"Start address in octal, instead of the program entry."`
	Boot          bool     `help:"Boot from the card reader."`

	Deck    string   `type:"existingfile" help:"Card deck for the card reader."`
	Drums   string   `type:"existingdir" help:"Directory of drum media."`
	Tapes   string   `type:"existingdir" help:"Directory of tape media."`
	Save    bool     `help:"Save drum and tape media on exit."`
	Printer string   `default:"-" help:"Line printer output, '-' for stdout."`
	Punch   string   `help:"Card punch output, off line if not set."`
	Break   []string `help:"Breakpoint addresses, in octal."`

	Profile     bool `help:"Print the opcode time profile on exit."`
	Trace       bool `help:"Trace each instruction."`
	TraceRegs   bool `help:"Trace the registers."`
	TraceMemory bool `help:"Trace the operands."`
}

func parseOctal(text string, bits int) (value uint64, err error) {
	value, err = strconv.ParseUint(text, 8, bits)
	if err != nil {
		err = fmt.Errorf("%v: %w", text, err)
	}
	return
}

func (r *runCmd) config() (cfg emulator.Config, err error) {
	cfg = emulator.Config{
		Verbose: r.Verbose,
		Arith: arith.Config{
			ExactAdd:      r.ExactAdd,
			ExactMultiply: r.ExactMultiply,
			ExactDivide:   r.ExactDivide,
			ExactSqrt:     r.ExactSqrt,
			Verbose:       r.Verbose,
		},
		Mode:         memory.Mode(r.Mode),
		Itep:         r.Itep,
		MemoryCheck:  r.MemoryCheck,
		BlankingLoop: r.BlankingLoop,
		PrintText:    r.PrintText,
		Boot:         r.Boot,
		Profile:      r.Profile,
	}

	if cfg.Mode != memory.MODE_I && cfg.Mode != memory.MODE_II {
		err = fmt.Errorf("mode %d: %w", r.Mode, cpu.ErrInvalidArgument)
		return
	}

	if len(r.Switch) > len(cfg.Switches) {
		err = fmt.Errorf("switch: %w", cpu.ErrInvalidArgument)
		return
	}
	for n, text := range r.Switch {
		var value uint64
		value, err = parseOctal(text, word.BITS)
		if err != nil {
			return
		}
		cfg.Switches[n] = word.Word(value)
	}

	return
}

func create(path string) (w stdio.WriteCloser, err error) {
	if path == "-" {
		w = os.Stdout
		return
	}
	return os.Create(path)
}

func (r *runCmd) attach(emu *emulator.Emulator) (closers []stdio.Closer, err error) {
	if len(r.Deck) != 0 {
		var inf *os.File
		inf, err = os.Open(r.Deck)
		if err != nil {
			return
		}
		defer inf.Close()
		err = emu.Deck.Unmarshal(r.Deck, inf)
		if err != nil {
			return
		}
	}

	if len(r.Drums) != 0 {
		err = emu.Drum.Unmarshal(os.DirFS(r.Drums))
		if err != nil {
			return
		}
	}

	if len(r.Tapes) != 0 {
		err = emu.Tape.Unmarshal(os.DirFS(r.Tapes))
		if err != nil {
			return
		}
	}

	emu.Printer.Output, err = create(r.Printer)
	if err != nil {
		return
	}
	closers = append(closers, emu.Printer.Output.(stdio.Closer))

	if len(r.Punch) == 0 {
		emu.Punch.Offline = true
	} else {
		emu.Punch.Output, err = create(r.Punch)
		if err != nil {
			return
		}
		closers = append(closers, emu.Punch.Output.(stdio.Closer))
	}

	return
}

func (r *runCmd) save(emu *emulator.Emulator) (err error) {
	if !r.Save {
		return
	}

	if len(r.Drums) != 0 {
		err = emu.Drum.Marshal(io.DirFS(r.Drums))
		if err != nil {
			return
		}
	}

	if len(r.Tapes) != 0 {
		err = emu.Tape.Marshal(io.DirFS(r.Tapes))
		if err != nil {
			return
		}
	}

	return
}

func (r *runCmd) Run() (err error) {
	cfg, err := r.config()
	if err != nil {
		return
	}

	emu := emulator.NewEmulator(cfg)

	inf, err := os.Open(r.Program)
	if err != nil {
		return
	}
	defer inf.Close()

	err = emu.Assemble(inf)
	if err != nil {
		err = fmt.Errorf("%v: %w", r.Program, err)
		return
	}

	if len(r.Start) != 0 {
		var start uint64
		start, err = parseOctal(r.Start, 12)
		if err != nil {
			return
		}
		emu.KRA = uint16(start)
	}

	for _, text := range r.Break {
		var addr uint64
		addr, err = parseOctal(text, 12)
		if err != nil {
			return
		}
		emu.Breakpoints[uint16(addr)] = true
	}

	if r.Trace || r.TraceRegs || r.TraceMemory {
		emu.Tracer = &emulator.LogTracer{
			Registers: r.TraceRegs,
			Memory:    r.TraceMemory,
		}
	}

	closers, err := r.attach(emu)
	for _, c := range closers {
		if c != stdio.Closer(os.Stdout) {
			defer c.Close()
		}
	}
	if err != nil {
		return
	}

	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	status := emu.Run(sigctx)
	log.Printf("m20: %v", status)
	fmt.Fprint(os.Stderr, emu.Cpu.String())

	if emu.Profile != nil {
		fmt.Fprint(os.Stderr, emu.Profile.String())
	}

	err = r.save(emu)
	if err != nil {
		return
	}

	if !errors.Is(status, cpu.ErrStop) {
		err = status
	}

	return
}
