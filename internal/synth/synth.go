// Package synth builds one minimal, concretely valued instance of an
// instruction from its descriptor.
package synth

import (
	"errors"
	"fmt"

	"insncorpus/internal/isa"
)

// AbsSymbol is the symbol of the placeholder absolute-address expression.
const AbsSymbol = "abs"

const (
	absValue   = 0x10
	pcrelValue = 8
	smallImm   = 1
)

// Composite memory references take base, scale, index, displacement, segment.
const memorySlots = 5

// ErrTruncatedMemory is returned when a composite memory operand runs past
// the end of the operand list.
var ErrTruncatedMemory = errors.New("truncated composite memory operand")

// Engine assigns operand values against one profile.
type Engine struct {
	p *isa.Profile
}

// New returns an engine bound to p.
func New(p *isa.Profile) *Engine {
	return &Engine{p: p}
}

// Assign returns the instruction for d with one value per operand
// descriptor, in descriptor order.
func (e *Engine) Assign(d *isa.InstructionDescriptor) (isa.Inst, error) {
	inst := isa.Inst{Opcode: d.Opcode}
	if vals, ok := e.p.Rules.Exceptions[d.Opcode]; ok {
		inst.Operands = append([]isa.Value(nil), vals...)
		return inst, nil
	}

	inst.Operands = make([]isa.Value, 0, len(d.Operands))
	seenPred := false
	for i := 0; i < len(d.Operands); i++ {
		od := d.Operands[i]
		switch {
		case od.Predicate:
			if !seenPred {
				inst.Operands = append(inst.Operands, isa.Imm(e.p.Rules.AlwaysCond))
			} else {
				inst.Operands = append(inst.Operands, isa.NoReg())
			}
			seenPred = !seenPred
		case od.OptionalDef:
			inst.Operands = append(inst.Operands, isa.NoReg())
		case od.Type == isa.OperandImmediate:
			inst.Operands = append(inst.Operands, isa.Imm(0))
		case od.Type == isa.OperandRegister && (od.HasClass() || od.PointerLookup):
			v, err := e.classReg(od)
			if err != nil {
				return isa.Inst{}, fmt.Errorf("%s operand %d: %w", d.Mnemonic, i, err)
			}
			inst.Operands = append(inst.Operands, v)
		case od.Type == isa.OperandMemory:
			if !e.p.Rules.CompositeMemory {
				inst.Operands = append(inst.Operands, absExpr())
				continue
			}
			if i+memorySlots > len(d.Operands) {
				return isa.Inst{}, fmt.Errorf("%s operand %d: %w", d.Mnemonic, i, ErrTruncatedMemory)
			}
			base, err := e.classReg(od)
			if err != nil {
				return isa.Inst{}, fmt.Errorf("%s operand %d: %w", d.Mnemonic, i, err)
			}
			inst.Operands = append(inst.Operands, base, isa.Imm(1), isa.NoReg(), absExpr(), isa.NoReg())
			i += memorySlots - 1
		case od.Type == isa.OperandPCRel:
			inst.Operands = append(inst.Operands, isa.Imm(pcrelValue))
		default:
			inst.Operands = append(inst.Operands, e.unclassed(d.Opcode))
		}
	}
	return inst, nil
}

// classReg returns the first register of the operand's class. Pointer
// lookups resolve through the profile's pointer class.
func (e *Engine) classReg(od isa.OperandDescriptor) (isa.Value, error) {
	id := od.RegClass
	if od.PointerLookup {
		id = e.p.Rules.PointerClass
	}
	c := e.p.Class(id)
	if c == nil {
		return isa.Value{}, fmt.Errorf("%w: register class %d does not exist", isa.ErrBadDescriptor, id)
	}
	if len(c.Regs) == 0 {
		return isa.Value{}, fmt.Errorf("%w: register class %s is empty", isa.ErrBadDescriptor, c.Name)
	}
	return isa.Reg(c.First()), nil
}

func (e *Engine) unclassed(opcode int) isa.Value {
	switch e.p.Rules.PickFor(opcode) {
	case isa.PickRegister:
		return isa.Reg(e.p.Rules.GeneralRegister)
	case isa.PickSmall:
		return isa.Imm(smallImm)
	}
	return isa.Imm(0)
}

func absExpr() isa.Value {
	return isa.ExprValue(isa.Expr{Symbol: AbsSymbol, Value: absValue})
}
