package cpu

import (
	"fmt"

	"github.com/ezrec/m20/arith"
	"github.com/ezrec/m20/word"
)

// Opcode is an M-20 operation code.
type Opcode int

// Bit 4 of an arithmetic opcode suppresses rounding, and bit 5
// suppresses normalization.
const (
	MOVE         = Opcode(000) // move
	ADD          = Opcode(001) // add
	SUB          = Opcode(002) // sub
	SUBABS       = Opcode(003) // subabs
	DIV          = Opcode(004) // div
	MUL          = Opcode(005) // mul
	ADDEXP_ADDR  = Opcode(006) // addexpa
	ADD_CYCLIC   = Opcode(007) // addc
	CARD_STOP    = Opcode(010) // cardstop
	LOOP_LT_W1   = Opcode(011) // looplt1
	LOOP_LT      = Opcode(012) // looplt
	ADD_CMD      = Opcode(013) // addcmd
	SHIFTM_ADDR  = Opcode(014) // shiftma
	COMPARE      = Opcode(015) // cmp
	CALL         = Opcode(016) // call
	HALT         = Opcode(017) // halt
	SWITCH       = Opcode(020) // switch
	ADD_NR       = Opcode(021) // add.nr
	SUB_NR       = Opcode(022) // sub.nr
	SUBABS_NR    = Opcode(023) // subabs.nr
	DIV_NR       = Opcode(024) // div.nr
	MUL_NR       = Opcode(025) // mul.nr
	ADDEXP       = Opcode(026) // addexp
	SUB_CYCLIC   = Opcode(027) // subc
	CARD         = Opcode(030) // card
	LOOP_GE_W1   = Opcode(031) // loopge1
	LOOP_GE      = Opcode(032) // loopge
	SUB_CMD      = Opcode(033) // subcmd
	SHIFTM       = Opcode(034) // shiftm
	ASSERT       = Opcode(035) // assert
	JUMP_W1      = Opcode(036) // jump1
	HALT_FA      = Opcode(037) // fa
	CLEAR_040    = Opcode(040) // clear.040
	ADD_NN       = Opcode(041) // add.nn
	SUB_NN       = Opcode(042) // sub.nn
	SUBABS_NN    = Opcode(043) // subabs.nn
	SQRT         = Opcode(044) // sqrt
	MUL_NN       = Opcode(045) // mul.nn
	SUBEXP_ADDR  = Opcode(046) // subexpa
	LOW_PRODUCT  = Opcode(047) // low
	IO_SETUP     = Opcode(050) // setup
	LOOP_LT_W0   = Opcode(051) // looplt0
	SET_RA_ADDR  = Opcode(052) // setraa
	ADD_OPC      = Opcode(053) // addopc
	SHIFT_ADDR   = Opcode(054) // shifta
	AND          = Opcode(055) // and
	JUMP         = Opcode(056) // jump
	HALT_057     = Opcode(057) // halt.057
	CLEAR        = Opcode(060) // clear
	ADD_NR_NN    = Opcode(061) // add.nr.nn
	SUB_NR_NN    = Opcode(062) // sub.nr.nn
	SUBABS_NR_NN = Opcode(063) // subabs.nr.nn
	SQRT_NR      = Opcode(064) // sqrt.nr
	MUL_NR_NN    = Opcode(065) // mul.nr.nn
	SUBEXP       = Opcode(066) // subexp
	SHIFT_CYCLIC = Opcode(067) // rotate
	IO_EXEC      = Opcode(070) // exec
	LOOP_GE_W0   = Opcode(071) // loopge0
	SET_RA       = Opcode(072) // setra
	SUB_OPC      = Opcode(073) // subopc
	SHIFT        = Opcode(074) // shift
	OR           = Opcode(075) // or
	JUMP_W0      = Opcode(076) // jump0
	HALT_077     = Opcode(077) // halt.077

	OPCODE_COUNT = 64
)

var _opcode_names = [OPCODE_COUNT]string{
	"move", "add", "sub", "subabs", "div", "mul", "addexpa", "addc",
	"cardstop", "looplt1", "looplt", "addcmd", "shiftma", "cmp", "call", "halt",
	"switch", "add.nr", "sub.nr", "subabs.nr", "div.nr", "mul.nr", "addexp", "subc",
	"card", "loopge1", "loopge", "subcmd", "shiftm", "assert", "jump1", "fa",
	"clear.040", "add.nn", "sub.nn", "subabs.nn", "sqrt", "mul.nn", "subexpa", "low",
	"setup", "looplt0", "setraa", "addopc", "shifta", "and", "jump", "halt.057",
	"clear", "add.nr.nn", "sub.nr.nn", "subabs.nr.nn", "sqrt.nr", "mul.nr.nn", "subexp", "rotate",
	"exec", "loopge0", "setra", "subopc", "shift", "or", "jump0", "halt.077",
}

func (op Opcode) String() string {
	if op < 0 || op >= OPCODE_COUNT {
		return fmt.Sprintf("Opcode(%d)", int(op))
	}
	return _opcode_names[op]
}

// OpcodeOf returns the opcode of a mnemonic.
func OpcodeOf(name string) (op Opcode, ok bool) {
	for n, mnemonic := range _opcode_names {
		if mnemonic == name {
			op = Opcode(n)
			ok = true
			return
		}
	}
	return
}

// Modifier returns the rounding and normalization modifiers.
func (op Opcode) Modifier() arith.Modifier {
	return arith.ModifierOf(int(op))
}

// IsMultiply returns true for the multiply family.
func (op Opcode) IsMultiply() bool {
	return op&017 == MUL
}

// Instruction is a decoded instruction, with effective addresses.
type Instruction struct {
	Tags   int    // Address modification tags.
	Opcode Opcode // Operation.
	A1     uint16 // Effective first address.
	A2     uint16 // Effective second address.
	A3     uint16 // Effective third address.
}

// Decode an instruction word. Each address with its tag bit set has the
// index register added, modulo the store size.
func Decode(rk word.Word, ra uint16) (ins Instruction) {
	ins = Instruction{
		Tags:   rk.AddrTags(),
		Opcode: Opcode(rk.Opcode()),
		A1:     rk.A1(),
		A2:     rk.A2(),
		A3:     rk.A3(),
	}

	if ins.Tags&word.ATAG_A1 != 0 {
		ins.A1 = (ins.A1 + ra) & word.ADDR_MASK
	}
	if ins.Tags&word.ATAG_A2 != 0 {
		ins.A2 = (ins.A2 + ra) & word.ADDR_MASK
	}
	if ins.Tags&word.ATAG_A3 != 0 {
		ins.A3 = (ins.A3 + ra) & word.ADDR_MASK
	}

	return
}

// Word encodes the instruction, with the tags and addresses as given.
func (ins Instruction) Word() word.Word {
	return word.NewInstruction(ins.Tags, int(ins.Opcode), ins.A1, ins.A2, ins.A3)
}

// String returns the instruction in loader syntax.
func (ins Instruction) String() string {
	tags := ""
	if ins.Tags != 0 {
		tags = fmt.Sprintf("/%o", ins.Tags)
	}
	return fmt.Sprintf("%v%v %04o %04o %04o", ins.Opcode, tags, ins.A1, ins.A2, ins.A3)
}
