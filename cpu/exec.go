package cpu

import (
	"errors"
	"log"

	"github.com/ezrec/m20/arith"
	"github.com/ezrec/m20/memory"
	"github.com/ezrec/m20/word"
)

const (
	bit37 = word.Word(1) << 36 // Carry out of the mantissa.
	bit46 = word.Word(1) << 45 // Carry out of the word.
)

type handler func(cpu *Cpu, ins Instruction) error

var _dispatch [OPCODE_COUNT]handler

func init() {
	for op := range _dispatch {
		_dispatch[op] = (*Cpu).opBadCommand
	}

	for _, op := range []Opcode{ADD, ADD_NR, ADD_NN, ADD_NR_NN} {
		_dispatch[op] = (*Cpu).opAdd
	}
	for _, op := range []Opcode{SUB, SUB_NR, SUB_NN, SUB_NR_NN} {
		_dispatch[op] = (*Cpu).opAdd
	}
	for _, op := range []Opcode{SUBABS, SUBABS_NR, SUBABS_NN, SUBABS_NR_NN} {
		_dispatch[op] = (*Cpu).opAdd
	}
	for _, op := range []Opcode{MUL, MUL_NR, MUL_NN, MUL_NR_NN} {
		_dispatch[op] = (*Cpu).opMultiply
	}
	_dispatch[DIV] = (*Cpu).opDivide
	_dispatch[DIV_NR] = (*Cpu).opDivide
	_dispatch[SQRT] = (*Cpu).opSqrt
	_dispatch[SQRT_NR] = (*Cpu).opSqrt
	_dispatch[LOW_PRODUCT] = (*Cpu).opLowProduct

	_dispatch[ADDEXP_ADDR] = (*Cpu).opExponent
	_dispatch[ADDEXP] = (*Cpu).opExponent
	_dispatch[SUBEXP_ADDR] = (*Cpu).opExponent
	_dispatch[SUBEXP] = (*Cpu).opExponent

	_dispatch[MOVE] = (*Cpu).opMove
	_dispatch[SWITCH] = (*Cpu).opSwitch
	_dispatch[CLEAR_040] = (*Cpu).opClear040
	_dispatch[CLEAR] = (*Cpu).opClear

	_dispatch[COMPARE] = (*Cpu).opLogical
	_dispatch[ASSERT] = (*Cpu).opLogical
	_dispatch[AND] = (*Cpu).opLogical
	_dispatch[OR] = (*Cpu).opLogical

	_dispatch[ADD_CMD] = (*Cpu).opAddressArith
	_dispatch[SUB_CMD] = (*Cpu).opAddressArith
	_dispatch[ADD_OPC] = (*Cpu).opOpcodeArith
	_dispatch[SUB_OPC] = (*Cpu).opOpcodeArith

	_dispatch[SHIFTM_ADDR] = (*Cpu).opShiftMantissa
	_dispatch[SHIFTM] = (*Cpu).opShiftMantissa
	_dispatch[SHIFT_ADDR] = (*Cpu).opShift
	_dispatch[SHIFT] = (*Cpu).opShift

	_dispatch[ADD_CYCLIC] = (*Cpu).opAddCyclic
	_dispatch[SUB_CYCLIC] = (*Cpu).opSubCyclic
	_dispatch[SHIFT_CYCLIC] = (*Cpu).opShiftCyclic

	_dispatch[HALT] = (*Cpu).opHalt
	_dispatch[HALT_FA] = (*Cpu).opAddressFormation
	_dispatch[HALT_057] = (*Cpu).opHalt
	_dispatch[HALT_077] = (*Cpu).opHalt

	_dispatch[SET_RA_ADDR] = (*Cpu).opSetIndex
	_dispatch[SET_RA] = (*Cpu).opSetIndex
	_dispatch[CALL] = (*Cpu).opCall
	_dispatch[JUMP_W1] = (*Cpu).opJump
	_dispatch[JUMP] = (*Cpu).opJump
	_dispatch[JUMP_W0] = (*Cpu).opJump

	for _, op := range []Opcode{LOOP_LT, LOOP_GE, LOOP_LT_W1, LOOP_GE_W1, LOOP_LT_W0, LOOP_GE_W0} {
		_dispatch[op] = (*Cpu).opLoop
	}

	_dispatch[CARD_STOP] = (*Cpu).opCardStop
	_dispatch[CARD] = (*Cpu).opCard
	_dispatch[IO_SETUP] = (*Cpu).opIoSetup
	_dispatch[IO_EXEC] = (*Cpu).opIoExec
}

func (cpu *Cpu) opBadCommand(ins Instruction) (err error) {
	cpu.Delay += 24
	err = ErrBadCommand
	return
}

// abs returns the absolute value of n.
func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// setResult sets the result registers from an arithmetic result.
func (cpu *Cpu) setResult(res arith.Result) {
	cpu.RR = res.Value
	if res.HasAux {
		cpu.RMR = res.Aux
	}
}

func (cpu *Cpu) opAdd(ins Instruction) (err error) {
	x := cpu.load(ins.A1)
	y := cpu.load(ins.A2)

	kind := arith.KIND_ADD
	switch ins.Opcode & 017 {
	case SUB:
		kind = arith.KIND_SUB
	case SUBABS:
		kind = arith.KIND_SUB_ABS
	}

	res, err := cpu.Arith.Add(kind, x, y, ins.Opcode.Modifier())
	if err != nil {
		return
	}

	cpu.setResult(res)
	cpu.store(ins.A3, cpu.RR)
	cpu.SW = cpu.RR.Sign()
	cpu.Delay += 28.5
	return
}

func (cpu *Cpu) opMultiply(ins Instruction) (err error) {
	x := cpu.load(ins.A1)
	y := cpu.load(ins.A2)

	res, err := cpu.Arith.Multiply(x, y, ins.Opcode.Modifier())
	if err != nil {
		return
	}

	cpu.setResult(res)
	cpu.store(ins.A3, cpu.RR)
	cpu.SW = cpu.RR.Exponent() > 0100
	cpu.Delay += 69.5
	return
}

func (cpu *Cpu) opDivide(ins Instruction) (err error) {
	x := cpu.load(ins.A1)
	y := cpu.load(ins.A2)

	res, err := cpu.Arith.Divide(x, y, ins.Opcode.Modifier())
	if err != nil {
		return
	}

	cpu.setResult(res)
	cpu.store(ins.A3, cpu.RR)
	cpu.SW = cpu.RR.Exponent() > 0100
	cpu.Delay += 136.5
	return
}

func (cpu *Cpu) opSqrt(ins Instruction) (err error) {
	x := cpu.load(ins.A1)

	res, err := cpu.Arith.Sqrt(x, ins.Opcode.Modifier())
	if err != nil {
		return
	}

	cpu.setResult(res)
	cpu.store(ins.A3, cpu.RR)
	cpu.SW = cpu.RR.Exponent() > 0100
	cpu.Delay += 275
	return
}

// opLowProduct returns the low word of the previous multiplication, or
// otherwise merges the mantissa of the previous first operand.
func (cpu *Cpu) opLowProduct(ins Instruction) (err error) {
	if cpu.OldOpcode.IsMultiply() {
		cpu.RR = cpu.RMR
		cpu.SW = cpu.RR.Exponent() > 0100
	} else {
		cpu.RR = (cpu.RR & word.EXP_SIGN) | (cpu.P1 & word.MANTISSA)
		cpu.SW = cpu.RR.Mantissa() == 0
	}

	cpu.store(ins.A3, cpu.RR)
	cpu.Delay += 24
	return
}

// opExponent adds to or subtracts from the exponent of (A2).
func (cpu *Cpu) opExponent(ins Instruction) (err error) {
	var n int
	var delay float64

	switch ins.Opcode {
	case ADDEXP_ADDR:
		n = int(ins.A1&0177) - word.EXP_BIAS
		delay = 61.5
	case ADDEXP:
		n = cpu.load(ins.A1).Exponent() - word.EXP_BIAS
		delay = 24
	case SUBEXP_ADDR:
		n = word.EXP_BIAS - int(ins.A1&0177)
		delay = 61.5
	case SUBEXP:
		n = word.EXP_BIAS - cpu.load(ins.A1).Exponent()
		delay = 24
	}
	cpu.Delay += delay

	rr, err := arith.AddExponent(cpu.load(ins.A2), n)
	if err != nil {
		return
	}

	cpu.RR = rr
	cpu.store(ins.A3, cpu.RR)
	cpu.SW = cpu.RR.Exponent() > 0100
	return
}

func (cpu *Cpu) opMove(ins Instruction) (err error) {
	cpu.RR = cpu.load(ins.A1)
	cpu.store(ins.A3, cpu.RR)
	cpu.Delay += 24
	return
}

// opSwitch reads a console switch register.
func (cpu *Cpu) opSwitch(ins Instruction) (err error) {
	switch n := int(ins.A1 & 7); n {
	case 0:
		cpu.RR = 0
	case 1, 2, 3, 4:
		cpu.RR = cpu.RPU[n-1]
	case 5:
		// Result register is kept.
	default:
		err = ErrInvalidArgument
		return
	}

	cpu.store(ins.A3, cpu.RR)
	cpu.Delay += 24
	return
}

func (cpu *Cpu) opClear040(ins Instruction) (err error) {
	if !cpu.BlankingLoop {
		err = cpu.opClear(ins)
		return
	}

	cpu.Delay += 24
	n := uint16(cpu.load(ins.A1)>>12) & memory.ADDR_MASK
	if cpu.RA < n {
		cpu.KRA = ins.A2
	}
	cpu.RA = ins.A3
	return
}

func (cpu *Cpu) opClear(ins Instruction) (err error) {
	cpu.RR = 0
	cpu.store(ins.A3, cpu.RR)
	cpu.Delay += 24
	return
}

// opLogical performs compare, and, or.
func (cpu *Cpu) opLogical(ins Instruction) (err error) {
	x := cpu.load(ins.A1)
	y := cpu.load(ins.A2)

	switch ins.Opcode {
	case COMPARE, ASSERT:
		cpu.RR = x ^ y
	case AND:
		cpu.RR = x & y
	case OR:
		cpu.RR = x | y
	}

	cpu.SW = cpu.RR == 0
	cpu.Delay += 24

	if ins.Opcode == ASSERT && !cpu.SW {
		err = ErrAssert
		return
	}

	cpu.store(ins.A3, cpu.RR)
	return
}

// opAddressArith adds or subtracts the address part of two words, keeping
// the upper part of (A1).
func (cpu *Cpu) opAddressArith(ins Instruction) (err error) {
	x := cpu.load(ins.A1)
	y := cpu.load(ins.A2)

	if ins.Opcode == ADD_CMD {
		y = (x & word.MANTISSA) + (y & word.MANTISSA)
	} else {
		y = (x & word.MANTISSA) - (y & word.MANTISSA)
	}

	cpu.RR = (x &^ word.MANTISSA & word.MASK) | (y & word.MANTISSA)
	cpu.store(ins.A3, cpu.RR)
	cpu.SW = y&bit37 != 0
	cpu.Delay += 24
	return
}

// opOpcodeArith adds or subtracts the upper part of two words, keeping
// the address part of (A1).
func (cpu *Cpu) opOpcodeArith(ins Instruction) (err error) {
	x := cpu.load(ins.A1)
	y := cpu.load(ins.A2)

	if ins.Opcode == ADD_OPC {
		y = (x &^ word.MANTISSA) + (y &^ word.MANTISSA)
	} else {
		y = (x &^ word.MANTISSA) - (y &^ word.MANTISSA)
	}

	cpu.RR = (x & word.MANTISSA) | (y &^ word.MANTISSA & word.MASK)
	cpu.store(ins.A3, cpu.RR)
	cpu.SW = y&bit46 != 0
	cpu.Delay += 24
	return
}

// shiftCount returns the shift of 014, 034, 054 and 074.
func (cpu *Cpu) shiftCount(ins Instruction) (n int) {
	switch ins.Opcode {
	case SHIFTM_ADDR, SHIFT_ADDR:
		n = int(ins.A1&0177) - word.EXP_BIAS
		cpu.Delay += 61.5 + 1.5*float64(abs(n))
	default:
		n = cpu.load(ins.A1).Exponent() - word.EXP_BIAS
		cpu.Delay += 24 + 1.5*float64(abs(n))
	}
	return
}

// opShiftMantissa shifts the mantissa of (A2), left for positive counts.
func (cpu *Cpu) opShiftMantissa(ins Instruction) (err error) {
	n := cpu.shiftCount(ins)
	y := cpu.load(ins.A2)

	cpu.RR = y &^ word.MANTISSA
	if abs(n) < word.WIDTH_MANT {
		m := y & word.MANTISSA
		if n >= 0 {
			cpu.RR |= (m << n) & word.MANTISSA
		} else {
			cpu.RR |= (m >> -n) & word.MANTISSA
		}
	}

	cpu.store(ins.A3, cpu.RR)
	cpu.SW = cpu.RR.Mantissa() == 0
	return
}

// opShift shifts the whole of (A2), left for positive counts.
func (cpu *Cpu) opShift(ins Instruction) (err error) {
	n := cpu.shiftCount(ins)

	cpu.RR = 0
	if abs(n) < word.BITS {
		cpu.RR = cpu.load(ins.A2)
		if n >= 0 {
			cpu.RR <<= n
		} else {
			cpu.RR >>= -n
		}
		cpu.RR &= word.MASK
	}

	cpu.store(ins.A3, cpu.RR)
	cpu.SW = cpu.RR == 0
	return
}

// opAddCyclic adds with end-around carries.
func (cpu *Cpu) opAddCyclic(ins Instruction) (err error) {
	x := cpu.load(ins.A1)
	y := cpu.load(ins.A2)

	rr := (x &^ word.MANTISSA) + (y &^ word.MANTISSA)
	t := (x & word.MANTISSA) + (y & word.MANTISSA)
	cpu.SW = t&bit37 != 0
	if rr&bit46 != 0 {
		rr += bit37
	}
	if t&bit37 != 0 {
		t++
	}
	rr &= word.MASK
	cpu.RR = rr | (t & word.MANTISSA)

	cpu.store(ins.A3, cpu.RR)
	cpu.Delay += 24
	return
}

// opSubCyclic subtracts with end-around borrows.
func (cpu *Cpu) opSubCyclic(ins Instruction) (err error) {
	x := cpu.load(ins.A1)
	y := cpu.load(ins.A2)

	t := bit37 + (x & word.MANTISSA) - (y & word.MANTISSA)
	if t&bit37 != 0 {
		t -= bit37
	}
	rr := (x &^ word.MANTISSA) - (y &^ word.MANTISSA)
	if rr&bit46 != 0 {
		rr -= bit37
		t--
	}
	cpu.SW = t&bit37 != 0
	cpu.RR = (rr | (t & word.MANTISSA)) & word.MASK

	cpu.store(ins.A3, cpu.RR)
	cpu.Delay += 24
	return
}

// opShiftCyclic swaps the upper 21 and lower 24 bits of (A1).
func (cpu *Cpu) opShiftCyclic(ins Instruction) (err error) {
	x := cpu.load(ins.A1)

	cpu.RR = (x&07777777)<<24 | (x >> 24 & 07777777)
	cpu.store(ins.A3, cpu.RR)
	cpu.SW = ins.A3 == 0
	cpu.Delay += 24
	return
}

func (cpu *Cpu) opHalt(ins Instruction) (err error) {
	cpu.Delay += 24
	cpu.RR = 0
	cpu.store(ins.A3, cpu.RR)
	err = ErrStop
	return
}

// opAddressFormation synthesizes an instruction from the word at the
// program counter, with the index fields of (A1), (A2) and (A3) added to
// its addresses, and executes it. Outside of ITEP it is a halt.
func (cpu *Cpu) opAddressFormation(ins Instruction) (err error) {
	mem := cpu.Memory
	if !mem.Itep {
		err = cpu.opHalt(ins)
		return
	}

	field := func(addr uint16) word.Word {
		return cpu.load(addr) >> 12 & word.ADDR_MASK
	}
	x := field(ins.A1)
	y := field(ins.A2)
	t := field(ins.A3)

	cmd := cpu.load(cpu.KRA)
	x = (x + word.Word(cmd.A1())) & word.ADDR_MASK
	y = (y + word.Word(cmd.A2())) & word.ADDR_MASK
	t = (t + word.Word(cmd.A3())) & word.ADDR_MASK

	rk := (cmd & word.EXP_SIGN) | x<<24 | y<<12 | t
	cpu.KRA = (cpu.KRA + 1) & memory.ADDR_MASK

	if cpu.Verbose {
		log.Printf("cpu: address formation %v", rk.Instruction())
	}

	err = cpu.Irregular(rk)
	return
}

// opSetIndex sets the index register.
func (cpu *Cpu) opSetIndex(ins Instruction) (err error) {
	cpu.RR = word.Word(SET_RA_ADDR)<<36 | word.Word(ins.A1)<<12
	cpu.store(ins.A3, cpu.RR)
	if ins.Opcode == SET_RA_ADDR {
		cpu.RA = ins.A2
	} else {
		cpu.RA = uint16(cpu.load(ins.A2)>>12) & memory.ADDR_MASK
	}
	cpu.Delay += 28.5
	return
}

// opCall jumps to A2, leaving a return jump in (A3).
func (cpu *Cpu) opCall(ins Instruction) (err error) {
	cpu.RR = word.Word(CALL)<<36 | word.Word(ins.A1)<<12
	cpu.KRA = ins.A2
	cpu.store(ins.A3, cpu.RR)
	cpu.Delay += 24
	return
}

func (cpu *Cpu) opJump(ins Instruction) (err error) {
	cpu.RR = cpu.load(ins.A1)
	switch ins.Opcode {
	case JUMP:
		cpu.KRA = ins.A2
	case JUMP_W1:
		if cpu.SW {
			cpu.KRA = ins.A2
		}
	case JUMP_W0:
		if !cpu.SW {
			cpu.KRA = ins.A2
		}
	}
	cpu.store(ins.A3, cpu.RR)
	cpu.Delay += 24
	return
}

// opLoop jumps on the index register compared to A1, and sets the index
// register to A3.
func (cpu *Cpu) opLoop(ins Instruction) (err error) {
	var jump bool

	switch ins.Opcode {
	case LOOP_LT:
		jump = cpu.RA < ins.A1
	case LOOP_GE:
		jump = cpu.RA >= ins.A1
	case LOOP_LT_W1:
		jump = cpu.RA < ins.A1 && cpu.SW
	case LOOP_GE_W1:
		jump = cpu.RA >= ins.A1 && cpu.SW
	case LOOP_LT_W0:
		jump = cpu.RA < ins.A1 && !cpu.SW
	case LOOP_GE_W0:
		jump = cpu.RA >= ins.A1 && !cpu.SW
	}

	if jump {
		cpu.KRA = ins.A2
	}
	cpu.RA = ins.A3
	cpu.Delay += 24
	return
}

// opCardStop reads a card, and stops on a checksum mismatch.
func (cpu *Cpu) opCardStop(ins Instruction) (err error) {
	if cpu.BootRequest {
		if cpu.Verbose {
			log.Printf("cpu: card boot at %04o", ins.A1)
		}
		cpu.KRA = ins.A1
		cpu.BootRequest = false
	}

	card, err := cpu.readCard(ins.A1, ins.A2, ins.A3)
	if err != nil {
		return
	}

	switch {
	case card.ControlBlocking:
	case card.StopBlocking:
		cpu.KRA = ins.A2
	case card.Sum != card.Recorded:
		cpu.KRA = ins.A2
		err = ErrCardBadSum
		return
	}

	cpu.store(ins.A3, card.Sum)
	return
}

// opCard reads a card, and jumps to A2 on a checksum mismatch.
func (cpu *Cpu) opCard(ins Instruction) (err error) {
	card, err := cpu.readCard(ins.A1, ins.A2, ins.A3)
	if err != nil {
		return
	}

	if !card.ControlBlocking && card.Sum != card.Recorded {
		cpu.KRA = ins.A2
	}

	cpu.store(ins.A3, card.Sum)
	return
}

func (cpu *Cpu) opIoSetup(ins Instruction) (err error) {
	err = cpu.ioSetup(ins.A1, ins.A2, ins.A3)
	if err != nil {
		return
	}

	cpu.Delay += 24
	return
}

// opIoExec executes the latched transfer. The transfer checksum is left
// in the result register, and stored at A3 when A3 is not zero.
func (cpu *Cpu) opIoExec(ins Instruction) (err error) {
	if cpu.Transfer.Op == EXT_NONE {
		err = ErrIoMissingSetup
		return
	}

	cpu.RR, err = cpu.ioExecute(ins.A1)
	if ins.A3 != 0 {
		cpu.store(ins.A3, cpu.RR)
	}

	if err != nil {
		xfer := cpu.Transfer
		if !xfer.Has(EXT_DIS_STOP) || !errors.Is(err, ErrReadError) {
			return
		}
		err = nil
		if !xfer.Has(EXT_PUNCH|EXT_PRINT) && ins.A2 != 0 {
			cpu.KRA = ins.A2
		}
	}

	cpu.Delay += 24
	return
}
