package isa

import (
	"fmt"
	"strings"
)

// Pick is what an operand without a register class receives.
type Pick uint8

const (
	PickZero     Pick = iota // zero immediate
	PickSmall                // small immediate
	PickRegister             // default general register
)

// ParsePick maps a table spelling to a Pick.
func ParsePick(s string) (Pick, error) {
	switch s {
	case "", "zero":
		return PickZero, nil
	case "small":
		return PickSmall, nil
	case "register", "reg":
		return PickRegister, nil
	}
	return PickZero, fmt.Errorf("%w: pick %q", ErrBadDescriptor, s)
}

func (p Pick) String() string {
	switch p {
	case PickSmall:
		return "small"
	case PickRegister:
		return "register"
	}
	return "zero"
}

// OpcodeRange is an inclusive opcode interval with the pick used inside it.
type OpcodeRange struct {
	From, To int
	Pick     Pick
}

// Rules are the architecture-specific override tables consulted by
// operand assignment and classification.
type Rules struct {
	// CompositeMemory expands a memory operand into base, scale, index,
	// displacement and segment.
	CompositeMemory bool
	// AlwaysCond is the always-true condition value given to predicate slots.
	AlwaysCond int64
	// GeneralRegister is the default register for unclassed operands.
	GeneralRegister int
	// PointerClass is the class used for pointer-lookup operands.
	PointerClass int
	// UnclassedDefault applies when no range in Unclassed matches.
	UnclassedDefault Pick
	Unclassed        []OpcodeRange
	// Exceptions replace the whole operand list of an opcode.
	Exceptions map[int][]Value
	// KnownBad opcodes encode but must not be emitted.
	KnownBad map[int]bool
	// NonPrintable opcodes encode but have no usable rendering.
	NonPrintable map[int]bool
}

// PickFor returns the unclassed-operand pick for opcode.
func (r *Rules) PickFor(opcode int) Pick {
	for _, rg := range r.Unclassed {
		if opcode >= rg.From && opcode <= rg.To {
			return rg.Pick
		}
	}
	return r.UnclassedDefault
}

// Profile is the complete, immutable metadata of one architecture for one run.
type Profile struct {
	Name   string
	Triple string
	// Prefix names the summary files, e.g. "x86_" for x86_results.txt.
	Prefix string
	// OutDir is the per-architecture artifact directory name.
	OutDir string

	Insts   []InstructionDescriptor
	Regs    []Register // indexed by id; Regs[0] is the null register
	Classes []RegisterClass
	Term    Inst
	Rules   Rules

	Encoder Encoder
	Printer Printer

	regByName map[string]int
	opByName  map[string]int
}

// Index builds the name lookups and checks that ids are dense.
func (p *Profile) Index() error {
	p.regByName = make(map[string]int, len(p.Regs))
	for i, r := range p.Regs {
		if r.ID != i {
			return fmt.Errorf("%w: register %s has id %d at index %d", ErrBadDescriptor, r.Name, r.ID, i)
		}
		p.regByName[strings.ToUpper(r.Name)] = i
	}
	p.opByName = make(map[string]int, len(p.Insts))
	for i, d := range p.Insts {
		if d.Opcode != i {
			return fmt.Errorf("%w: %s has opcode %d at index %d", ErrBadDescriptor, d.Mnemonic, d.Opcode, i)
		}
		if _, dup := p.opByName[d.Mnemonic]; dup {
			return fmt.Errorf("%w: duplicate mnemonic %s", ErrBadDescriptor, d.Mnemonic)
		}
		p.opByName[d.Mnemonic] = i
	}
	for i, c := range p.Classes {
		if c.ID != i {
			return fmt.Errorf("%w: class %s has id %d at index %d", ErrBadDescriptor, c.Name, c.ID, i)
		}
	}
	return nil
}

// NumOpcodes returns the opcode count N; valid opcodes are 0..N-1.
func (p *Profile) NumOpcodes() int { return len(p.Insts) }

// Desc returns the descriptor of op, or nil when out of range.
func (p *Profile) Desc(op int) *InstructionDescriptor {
	if op < 0 || op >= len(p.Insts) {
		return nil
	}
	return &p.Insts[op]
}

// Class returns register class id, or nil.
func (p *Profile) Class(id int) *RegisterClass {
	if id < 0 || id >= len(p.Classes) {
		return nil
	}
	return &p.Classes[id]
}

// ClassByName looks a register class up by name.
func (p *Profile) ClassByName(name string) (int, bool) {
	for i := range p.Classes {
		if p.Classes[i].Name == name {
			return i, true
		}
	}
	return NoClass, false
}

// Register returns register id, or nil.
func (p *Profile) Register(id int) *Register {
	if id < 0 || id >= len(p.Regs) {
		return nil
	}
	return &p.Regs[id]
}

// RegisterByName looks a register up by case-insensitive name.
func (p *Profile) RegisterByName(name string) (int, bool) {
	id, ok := p.regByName[strings.ToUpper(name)]
	return id, ok
}

// OpcodeByName looks an opcode up by exact mnemonic.
func (p *Profile) OpcodeByName(name string) (int, bool) {
	op, ok := p.opByName[name]
	return op, ok
}

// Terminator returns a copy of the terminator instruction template.
func (p *Profile) Terminator() Inst {
	return Inst{Opcode: p.Term.Opcode, Operands: append([]Value(nil), p.Term.Operands...)}
}

// RegEnc returns the hardware encoding of a register operand.
func (p *Profile) RegEnc(v Value) (uint8, error) {
	if v.Kind != ValueReg {
		return 0, fmt.Errorf("expected register operand, got kind %d", v.Kind)
	}
	r := p.Register(v.Reg)
	if r == nil {
		return 0, fmt.Errorf("register id %d out of range", v.Reg)
	}
	return r.Enc, nil
}
