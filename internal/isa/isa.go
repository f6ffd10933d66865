// Package isa defines the instruction-set metadata a target exposes:
// instruction and operand descriptors, registers and register classes,
// concrete instruction values, and the encoder and printer contracts.
package isa

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownArch is returned when no metadata exists for an architecture.
	ErrUnknownArch = errors.New("unknown architecture")
	// ErrBadDescriptor is returned for malformed descriptor tables.
	ErrBadDescriptor = errors.New("bad descriptor")
)

// OperandType is the static kind of one operand slot.
type OperandType uint8

const (
	OperandUnknown OperandType = iota
	OperandImmediate
	OperandRegister
	OperandMemory
	OperandPCRel
)

var operandTypeNames = [...]string{
	OperandUnknown:   "unknown",
	OperandImmediate: "imm",
	OperandRegister:  "reg",
	OperandMemory:    "mem",
	OperandPCRel:     "pcrel",
}

func (t OperandType) String() string {
	if int(t) < len(operandTypeNames) {
		return operandTypeNames[t]
	}
	return fmt.Sprintf("OperandType(%d)", t)
}

// ParseOperandType maps a table spelling to an OperandType.
func ParseOperandType(s string) (OperandType, error) {
	for i, name := range operandTypeNames {
		if strings.EqualFold(s, name) {
			return OperandType(i), nil
		}
	}
	return OperandUnknown, fmt.Errorf("%w: operand type %q", ErrBadDescriptor, s)
}

// NoClass marks an operand without a declared register class.
const NoClass = -1

// NoRegister is the null register id.
const NoRegister = 0

// SlotRole tells an encoder where an operand value lands.
type SlotRole uint8

const (
	RoleNone    SlotRole = iota // not encoded (tied or implicit)
	RoleField                   // fixed-width: value at Lsb, Width bits, after >> Shift
	RoleRegMask                 // fixed-width: sets bit 1<<enc(reg)
	RoleRM                      // x86: ModRM.rm register or memory reference
	RoleReg                     // x86: ModRM.reg
	RoleOpReg                   // x86: register added to the last opcode byte
	RoleOpCond                  // x86: condition added to the last opcode byte
	RoleImm                     // x86: trailing immediate of Size bytes
	RoleRel                     // x86: trailing relative displacement of Size bytes
)

var slotRoleNames = [...]string{
	RoleNone:    "none",
	RoleField:   "field",
	RoleRegMask: "regmask",
	RoleRM:      "rm",
	RoleReg:     "reg",
	RoleOpReg:   "opreg",
	RoleOpCond:  "opcond",
	RoleImm:     "imm",
	RoleRel:     "rel",
}

func (r SlotRole) String() string {
	if int(r) < len(slotRoleNames) {
		return slotRoleNames[r]
	}
	return fmt.Sprintf("SlotRole(%d)", r)
}

// ParseSlotRole maps a table spelling to a SlotRole. The empty string is RoleNone.
func ParseSlotRole(s string) (SlotRole, error) {
	if s == "" {
		return RoleNone, nil
	}
	for i, name := range slotRoleNames {
		if s == name {
			return SlotRole(i), nil
		}
	}
	return RoleNone, fmt.Errorf("%w: slot role %q", ErrBadDescriptor, s)
}

// Slot is the encoder-facing placement of an operand.
type Slot struct {
	Role  SlotRole
	Lsb   uint8
	Width uint8
	Shift uint8
	Size  uint8 // bytes, for RoleImm and RoleRel
}

// OperandDescriptor is the static metadata of one operand slot.
type OperandDescriptor struct {
	Type          OperandType
	RegClass      int
	Predicate     bool
	OptionalDef   bool
	PointerLookup bool
	Slot          Slot
}

// HasClass reports whether the operand declares a register class.
func (o OperandDescriptor) HasClass() bool {
	return o.RegClass != NoClass
}

// Form is the encoding form of an instruction.
type Form string

const (
	FormNone   Form = "none"   // no encoding exists
	FormFixed  Form = "fixed"  // fixed-width word
	FormRaw    Form = "raw"    // x86 opcode without ModRM
	FormModRM  Form = "modrm"  // x86 opcode followed by ModRM
	FormPseudo Form = "pseudo" // expanded before emission
)

// Encoding is the per-instruction template an encoder starts from.
type Encoding struct {
	Bits   uint32 // fixed-width base word
	Prefix []byte // x86 legacy prefixes
	Opcode []byte // x86 opcode bytes
	RexW   bool
	Ext    int8 // x86 ModRM.reg opcode extension, -1 when absent
}

// InstructionDescriptor is the static metadata of one opcode.
type InstructionDescriptor struct {
	Opcode   int
	Mnemonic string
	Operands []OperandDescriptor
	Pseudo   bool
	Form     Form
	Size     int
	Enc      Encoding
}

// Encodable reports whether the descriptor carries a real encoding.
func (d *InstructionDescriptor) Encodable() bool {
	return d.Size > 0 && d.Form != FormNone && d.Form != FormPseudo && d.Form != ""
}

// Register is one architectural register.
type Register struct {
	ID   int
	Name string
	Enc  uint8
}

// RegisterClass is a named set of interchangeable registers.
type RegisterClass struct {
	ID   int
	Name string
	Regs []int
}

// First returns the first register of the class, or NoRegister when empty.
func (c *RegisterClass) First() int {
	if len(c.Regs) == 0 {
		return NoRegister
	}
	return c.Regs[0]
}

// Contains reports whether reg belongs to the class.
func (c *RegisterClass) Contains(reg int) bool {
	for _, r := range c.Regs {
		if r == reg {
			return true
		}
	}
	return false
}

// Encoder turns a concrete instruction into machine code.
type Encoder interface {
	Encode(inst Inst) ([]byte, error)
}

// Printer renders a concrete instruction as assembly text.
type Printer interface {
	Print(inst Inst) (string, error)
}
