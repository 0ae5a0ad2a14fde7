package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/m20/arith"
	"github.com/ezrec/m20/memory"
	"github.com/ezrec/m20/word"
)

const (
	w_1_5  = word.Word(0101600000000000) // 1.5
	w_2_25 = word.Word(0102440000000000) // 2.25
	w_2    = word.Word(0102400000000000) // 2.0
	w_m1_5 = word.Word(0301600000000000) // -1.5
	w_m2   = word.Word(0302400000000000) // -2.0
	w_big  = word.Word(0177400000000000) // 2**62
)

func newCpu(mode memory.Mode) (cpu *Cpu, mem *memory.Memory) {
	mem = &memory.Memory{Mode: mode}
	cpu = NewCpu(mem, arith.New(arith.Config{}))
	return
}

func execute(cpu *Cpu, tags int, op Opcode, a1, a2, a3 uint16) error {
	cpu.RK = word.NewInstruction(tags, int(op), a1, a2, a3)
	return cpu.Execute()
}

func TestCpuArithmetic(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		op    Opcode
		x, y  word.Word
		value float64
		sw    bool
	}){
		{"add", ADD, w_1_5, w_2_25, 3.75, false},
		{"add_neg", ADD, w_1_5, w_m2, -0.5, true},
		{"sub", SUB, w_1_5, w_2_25, -0.75, true},
		{"subabs", SUBABS, w_m2, w_1_5, 0.5, false},
		{"mul", MUL, w_1_5, w_2, 3, true},
		{"mul_small", MUL, w_1_5, word.FromFloat(0.5), 0.75, false},
		{"div", DIV, w_2_25, w_1_5, 1.5, true},
		{"div_small", DIV, w_1_5, w_2, 0.75, false},
		{"sqrt", SQRT, w_2_25, 0, 1.5, true},
	}

	for _, entry := range table {
		cpu, mem := newCpu(memory.MODE_I)
		mem.Words[010] = entry.x
		mem.Words[011] = entry.y

		err := execute(cpu, 0, entry.op, 010, 011, 012)
		if !assert.NoError(err, entry.name) {
			continue
		}

		assert.Equal(entry.value, cpu.RR.Float(), entry.name)
		assert.Equal(cpu.RR, mem.Words[012], entry.name)
		assert.Equal(entry.sw, cpu.SW, entry.name)
		assert.Less(0.0, cpu.Delay, entry.name)
	}
}

func TestCpuAddBits(t *testing.T) {
	assert := assert.New(t)

	cpu, mem := newCpu(memory.MODE_I)
	mem.Words[010] = w_1_5
	mem.Words[011] = w_2_25

	assert.NoError(execute(cpu, 0, ADD, 010, 011, 012))
	assert.Equal(word.Word(0102740000000000), mem.Words[012])
	assert.False(cpu.SW)
	assert.Equal(28.5, cpu.Delay)

	// Unrounded, unnormalized subtraction of a negative.
	mem.Words[011] = w_m1_5
	assert.NoError(execute(cpu, 0, SUB_NR_NN, 010, 011, 013))
	assert.Equal(word.Word(0102600000000000), mem.Words[013])
	assert.Equal(3.0, mem.Words[013].Float())
}

func TestCpuArithmeticErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		op   Opcode
		x, y word.Word
		err  error
	}){
		{"mul_overflow", MUL, w_big, w_big, arith.ErrMulOverflow},
		{"div_zero", DIV, w_1_5, 0, arith.ErrDivZero},
		{"sqrt_negative", SQRT, w_m2, 0, arith.ErrNegativeSqrt},
	}

	for _, entry := range table {
		cpu, mem := newCpu(memory.MODE_I)
		mem.Words[010] = entry.x
		mem.Words[011] = entry.y
		mem.Words[012] = 0777
		cpu.RR = 0123
		cpu.RMR = 0456

		err := execute(cpu, 0, entry.op, 010, 011, 012)
		assert.ErrorIs(err, entry.err, entry.name)

		// Registers and the destination are unchanged.
		assert.Equal(word.Word(0123), cpu.RR, entry.name)
		assert.Equal(word.Word(0456), cpu.RMR, entry.name)
		assert.Equal(word.Word(0777), mem.Words[012], entry.name)
	}
}

func TestCpuAuxRegister(t *testing.T) {
	assert := assert.New(t)

	const (
		w_tiny = word.Word(0001400000000000)
		w_3    = word.Word(0102600000000000)
	)

	table := [](struct {
		name string
		cfg  arith.Config
		op   Opcode
		x, y word.Word
		rr   word.Word
		rmr  word.Word
	}){
		{"add", arith.Config{}, ADD, w_1_5, w_2_25, 0102740000000000, 0456},
		{"add_exact", arith.Config{ExactAdd: true}, ADD, w_1_5, w_2_25, 0102740000000000, 0},
		{"add_exact_zero", arith.Config{ExactAdd: true}, SUB, w_1_5, w_1_5, 0, 0},
		{"mul", arith.Config{}, MUL, w_1_5, w_2_25, 0102660000000000, 0102400000000000},
		{"mul_exact_underflow", arith.Config{ExactMultiply: true}, MUL, w_tiny, w_tiny, 0, 0},
		{"mul_exact_underflow_tag", arith.Config{ExactMultiply: true}, MUL, w_tiny | word.TAG, w_tiny, word.TAG, word.TAG},
		{"div", arith.Config{}, DIV, w_3, w_2, w_1_5, 0456},
		{"div_exact", arith.Config{ExactDivide: true}, DIV, w_3, w_2, w_1_5, 0456},
		{"div_exact_underflow", arith.Config{ExactDivide: true}, DIV, 0005400000000000, 0175400000000000, 0, 0456},
		{"sqrt", arith.Config{}, SQRT, w_2_25, 0, w_1_5, 0456},
		{"sqrt_exact", arith.Config{ExactSqrt: true}, SQRT, w_2_25, 0, w_1_5, 0456},
	}

	for _, entry := range table {
		mem := &memory.Memory{Mode: memory.MODE_I}
		cpu := NewCpu(mem, arith.New(entry.cfg))
		mem.Words[010] = entry.x
		mem.Words[011] = entry.y
		cpu.RMR = 0456

		err := execute(cpu, 0, entry.op, 010, 011, 012)
		if !assert.NoError(err, entry.name) {
			continue
		}
		assert.Equal(entry.rr, cpu.RR, entry.name)
		assert.Equal(entry.rmr, cpu.RMR, entry.name)
	}
}

func TestCpuIndexTags(t *testing.T) {
	assert := assert.New(t)

	cpu, mem := newCpu(memory.MODE_I)
	mem.Words[010] = 042
	cpu.RA = 07770

	// Tagged addresses wrap around the store.
	assert.NoError(execute(cpu, word.ATAG_A1|word.ATAG_A3, MOVE, 020, 0, 021))
	assert.Equal(word.Word(042), cpu.RR)
	assert.Equal(word.Word(042), mem.Words[011])

	ins := Decode(word.NewInstruction(7, int(ADD), 020, 010, 0), 07770)
	assert.Equal(uint16(010), ins.A1)
	assert.Equal(uint16(0), ins.A2)
	assert.Equal(uint16(07770), ins.A3)
	assert.Equal("add/7 0010 0000 7770", ins.String())
}

func TestCpuLogical(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		op   Opcode
		x, y word.Word
		rr   word.Word
		sw   bool
	}){
		{"and", AND, 06, 03, 02, false},
		{"and_zero", AND, 04, 03, 0, true},
		{"or", OR, 06, 03, 07, false},
		{"cmp", COMPARE, 06, 06, 0, true},
		{"cmp_differ", COMPARE, 06, 03, 05, false},
		{"shifta_left", SHIFT_ADDR, 0, 03, 06, false},
		{"addcmd", ADD_CMD, 0101000000000005, 03, 0101000000000010, false},
		{"addcmd_carry", ADD_CMD, 0101777777777777, 01, 0101000000000000, true},
		{"subcmd", SUB_CMD, 0101000000000005, 03, 0101000000000002, false},
		{"addopc", ADD_OPC, 1<<36 | 05, 2<<36 | 07, 3<<36 | 05, false},
		{"subopc", SUB_OPC, 3<<36 | 05, 2<<36 | 07, 1<<36 | 05, false},
		{"addc", ADD_CYCLIC, word.MANTISSA, 1, 1, true},
		{"subc", SUB_CYCLIC, 2, 1, 1, false},
		{"rotate", SHIFT_CYCLIC, 1<<24 | 5, 0, 5<<24 | 1, false},
	}

	for _, entry := range table {
		cpu, mem := newCpu(memory.MODE_I)
		mem.Words[010] = entry.x
		mem.Words[011] = entry.y

		a1 := uint16(010)
		if entry.op == SHIFT_ADDR {
			a1 = 0101
		}

		err := execute(cpu, 0, entry.op, a1, 011, 012)
		if !assert.NoError(err, entry.name) {
			continue
		}
		assert.Equal(entry.rr, cpu.RR, entry.name)
		assert.Equal(entry.rr, mem.Words[012], entry.name)
		assert.Equal(entry.sw, cpu.SW, entry.name)
	}
}

func TestCpuAssert(t *testing.T) {
	assert := assert.New(t)

	cpu, mem := newCpu(memory.MODE_I)
	mem.Words[010] = 06
	mem.Words[011] = 06
	mem.Words[012] = 0777

	assert.NoError(execute(cpu, 0, ASSERT, 010, 011, 012))
	assert.Equal(word.Word(0), mem.Words[012])
	assert.True(cpu.SW)

	mem.Words[011] = 07
	mem.Words[012] = 0777
	err := execute(cpu, 0, ASSERT, 010, 011, 012)
	assert.ErrorIs(err, ErrAssert)
	assert.Equal(word.Word(0777), mem.Words[012])
	assert.False(cpu.SW)
}

func TestCpuShift(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		op   Opcode
		n    uint16
		y    word.Word
		rr   word.Word
	}){
		{"left", SHIFT_ADDR, 0101, 03, 06},
		{"right", SHIFT_ADDR, 077, 06, 03},
		{"out", SHIFT_ADDR, 0100 + 45, 1, 0},
		{"word_mask", SHIFT_ADDR, 0101, 1 << 44, 0},
		{"mantissa_left", SHIFTM_ADDR, 0104, 0101000000000001, 0101000000000020},
		{"mantissa_right", SHIFTM_ADDR, 0074, 0101000000000020, 0101000000000001},
		{"mantissa_out", SHIFTM_ADDR, 0100 + 36, 0101000000000001, 0101000000000000},
	}

	for _, entry := range table {
		cpu, mem := newCpu(memory.MODE_I)
		mem.Words[011] = entry.y

		err := execute(cpu, 0, entry.op, entry.n, 011, 012)
		if !assert.NoError(err, entry.name) {
			continue
		}
		assert.Equal(entry.rr, cpu.RR, entry.name)
	}

	// Shift counts from memory use the exponent of (A1).
	cpu, mem := newCpu(memory.MODE_I)
	mem.Words[010] = word.New(false, 0102, 0, 0)
	mem.Words[011] = 03
	assert.NoError(execute(cpu, 0, SHIFT, 010, 011, 012))
	assert.Equal(word.Word(014), cpu.RR)
	assert.Equal(24+1.5*2, cpu.Delay)
}

func TestCpuExponent(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		op    Opcode
		a1    uint16
		value float64
	}){
		{"addexpa", ADDEXP_ADDR, 0102, 6},
		{"subexpa", SUBEXP_ADDR, 0101, 0.75},
		{"addexp", ADDEXP, 010, 3},
		{"subexp", SUBEXP, 010, 0.75},
	}

	for _, entry := range table {
		cpu, mem := newCpu(memory.MODE_I)
		mem.Words[010] = w_1_5
		mem.Words[011] = w_1_5

		err := execute(cpu, 0, entry.op, entry.a1, 011, 012)
		if !assert.NoError(err, entry.name) {
			continue
		}
		assert.Equal(entry.value, mem.Words[012].Float(), entry.name)
	}
}

func TestCpuLowProduct(t *testing.T) {
	assert := assert.New(t)

	cpu, mem := newCpu(memory.MODE_I)
	cpu.OldOpcode = MUL_NR
	cpu.RMR = 0100000000000042

	assert.NoError(execute(cpu, 0, LOW_PRODUCT, 0, 0, 010))
	assert.Equal(word.Word(0100000000000042), mem.Words[010])

	// After other instructions, the previous first operand is merged.
	cpu.OldOpcode = MOVE
	cpu.RR = 0101000000000000
	cpu.P1 = 0777000000000123
	assert.NoError(execute(cpu, 0, LOW_PRODUCT, 0, 0, 010))
	assert.Equal(word.Word(0101000000000123), cpu.RR)
	assert.False(cpu.SW)
}

func TestCpuControl(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		op   Opcode
		sw   bool
		ra   uint16
		kra  uint16
		ra2  uint16
	}){
		{"jump", JUMP, false, 0, 0200, 0},
		{"jump1", JUMP_W1, true, 0, 0200, 0},
		{"jump1_no", JUMP_W1, false, 0, 0100, 0},
		{"jump0", JUMP_W0, false, 0, 0200, 0},
		{"jump0_no", JUMP_W0, true, 0, 0100, 0},
		{"looplt", LOOP_LT, false, 2, 0200, 030},
		{"looplt_no", LOOP_LT, false, 5, 0100, 030},
		{"loopge", LOOP_GE, false, 5, 0200, 030},
		{"looplt1", LOOP_LT_W1, true, 2, 0200, 030},
		{"looplt1_no", LOOP_LT_W1, false, 2, 0100, 030},
		{"loopge0", LOOP_GE_W0, false, 7, 0200, 030},
		{"loopge0_no", LOOP_GE_W0, true, 7, 0100, 030},
	}

	for _, entry := range table {
		cpu, _ := newCpu(memory.MODE_I)
		cpu.KRA = 0100
		cpu.SW = entry.sw
		cpu.RA = entry.ra

		err := execute(cpu, 0, entry.op, 5, 0200, entry.ra2)
		if !assert.NoError(err, entry.name) {
			continue
		}
		assert.Equal(entry.kra, cpu.KRA, entry.name)
		if entry.ra2 != 0 {
			assert.Equal(entry.ra2, cpu.RA, entry.name)
		}
	}
}

func TestCpuCall(t *testing.T) {
	assert := assert.New(t)

	cpu, mem := newCpu(memory.MODE_I)
	cpu.KRA = 0101

	assert.NoError(execute(cpu, 0, CALL, 0101, 0200, 0250))
	assert.Equal(uint16(0200), cpu.KRA)
	assert.Equal(word.NewInstruction(0, int(CALL), 0, 0101, 0), mem.Words[0250])

	// A jump with (A1) copies the word.
	mem.Words[0300] = 0123
	assert.NoError(execute(cpu, 0, JUMP, 0300, 0400, 0301))
	assert.Equal(word.Word(0123), mem.Words[0301])
	assert.Equal(uint16(0400), cpu.KRA)
}

func TestCpuSetIndex(t *testing.T) {
	assert := assert.New(t)

	cpu, mem := newCpu(memory.MODE_I)

	assert.NoError(execute(cpu, 0, SET_RA_ADDR, 5, 0200, 020))
	assert.Equal(uint16(0200), cpu.RA)
	assert.Equal(word.NewInstruction(0, int(SET_RA_ADDR), 0, 5, 0), mem.Words[020])

	mem.Words[030] = word.Word(0300) << 12
	assert.NoError(execute(cpu, 0, SET_RA, 5, 030, 0))
	assert.Equal(uint16(0300), cpu.RA)
	assert.Equal(28.5*2, cpu.Delay)
}

func TestCpuSwitch(t *testing.T) {
	assert := assert.New(t)

	cpu, mem := newCpu(memory.MODE_I)
	cpu.RPU = [4]word.Word{1, 2, 3, 4}

	for n := range 4 {
		assert.NoError(execute(cpu, 0, SWITCH, uint16(n+1), 0, 010))
		assert.Equal(word.Word(n+1), mem.Words[010])
	}

	assert.NoError(execute(cpu, 0, SWITCH, 5, 0, 011))
	assert.Equal(word.Word(4), mem.Words[011])

	assert.NoError(execute(cpu, 0, SWITCH, 0, 0, 011))
	assert.Equal(word.Word(0), cpu.RR)

	assert.ErrorIs(execute(cpu, 0, SWITCH, 6, 0, 011), ErrInvalidArgument)
}

func TestCpuClear(t *testing.T) {
	assert := assert.New(t)

	cpu, mem := newCpu(memory.MODE_I)
	mem.Words[010] = 0777
	cpu.RR = 0123

	assert.NoError(execute(cpu, 0, CLEAR, 0, 0, 010))
	assert.Equal(word.Word(0), mem.Words[010])
	assert.Equal(word.Word(0), cpu.RR)

	mem.Words[010] = 0777
	assert.NoError(execute(cpu, 0, CLEAR_040, 0, 0, 010))
	assert.Equal(word.Word(0), mem.Words[010])

	// As a blanking loop, 040 compares the index with (A1).
	cpu.BlankingLoop = true
	cpu.KRA = 0100
	cpu.RA = 2
	mem.Words[020] = word.Word(5) << 12
	assert.NoError(execute(cpu, 0, CLEAR_040, 020, 0200, 7))
	assert.Equal(uint16(0200), cpu.KRA)
	assert.Equal(uint16(7), cpu.RA)
}

func TestCpuHalt(t *testing.T) {
	assert := assert.New(t)

	for _, op := range []Opcode{HALT, HALT_057, HALT_077, HALT_FA} {
		cpu, mem := newCpu(memory.MODE_I)
		cpu.RR = 0123
		mem.Words[010] = 0777

		err := execute(cpu, 0, op, 0, 0, 010)
		assert.ErrorIs(err, ErrStop, op.String())
		assert.Equal(word.Word(0), cpu.RR, op.String())
		assert.Equal(word.Word(0), mem.Words[010], op.String())
	}
}

func TestCpuAddressFormation(t *testing.T) {
	assert := assert.New(t)

	cpu, mem := newCpu(memory.MODE_II)
	mem.Itep = true
	cpu.KRA = 0100

	mem.Words[0100] = word.NewInstruction(0, int(MOVE), 1, 0, 2)
	mem.Words[010] = word.Word(3) << 12
	mem.Words[012] = word.Word(4) << 12
	mem.Words[4] = 077

	assert.NoError(execute(cpu, 0, HALT_FA, 010, 011, 012))
	assert.Equal(uint16(0101), cpu.KRA)
	assert.Equal(word.NewInstruction(0, int(MOVE), 4, 0, 6), cpu.RK)
	assert.Equal(word.Word(077), mem.Words[6])
}

func TestCpuMemoryCheck(t *testing.T) {
	assert := assert.New(t)

	cpu, mem := newCpu(memory.MODE_I)
	mem.Words[010] = 1 << 45

	assert.NoError(execute(cpu, 0, MOVE, 011, 0, 012))

	cpu.MemoryCheck = true
	assert.ErrorIs(execute(cpu, 0, MOVE, 010, 0, 012), ErrMemoryGarbage)

	// Garbage moved into place is found by later instructions.
	cpu.MemoryCheck = false
	assert.NoError(execute(cpu, 0, MOVE, 010, 0, 013))
	cpu.MemoryCheck = true
	assert.ErrorIs(execute(cpu, 0, CLEAR, 0, 0, 013), ErrMemoryGarbage)
}

func TestCpuErrOpcode(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(memory.MODE_I)
	err := execute(cpu, 0, HALT, 1, 2, 3)

	var eo ErrOpcode
	assert.True(errors.As(err, &eo))
	assert.Equal(ErrOpcode(word.NewInstruction(0, int(HALT), 1, 2, 3)), eo)
	assert.ErrorIs(err, ErrOpcode(0))
	assert.ErrorIs(err, ErrStop)
}

func TestCpuOverlay(t *testing.T) {
	assert := assert.New(t)

	cpu, mem := newCpu(memory.MODE_II)
	cpu.RPU[2] = 0555

	assert.NoError(execute(cpu, 0, MOVE, memory.ADDR_RPU3, 0, 010))
	assert.Equal(word.Word(0555), mem.Words[010])

	// The result register reads back through the overlay.
	assert.NoError(execute(cpu, 0, MOVE, 010, 0, 011))
	assert.NoError(execute(cpu, 0, MOVE, memory.ADDR_RR, 0, 012))
	assert.Equal(word.Word(0555), mem.Words[012])

	// Stores to the overlay are ignored.
	assert.NoError(execute(cpu, 0, MOVE, 010, 0, memory.ADDR_RPU1))
	assert.Equal(word.Word(0), cpu.RPU[0])
}

func TestCpuString(t *testing.T) {
	assert := assert.New(t)

	cpu, _ := newCpu(memory.MODE_I)
	cpu.KRA = 0100
	cpu.SW = true

	text := cpu.String()
	assert.Contains(text, " kra: 0100\n")
	assert.Contains(text, "  sw: 1\n")

	defines := map[string]string{}
	for key, value := range cpu.Defines() {
		defines[key] = value
	}
	assert.Equal("04000", defines["EXT_PUNCH"])
}
