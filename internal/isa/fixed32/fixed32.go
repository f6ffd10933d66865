// Package fixed32 encodes instructions of fixed 32-bit little-endian
// architectures from a base word and operand bit fields.
package fixed32

import (
	"encoding/binary"
	"fmt"

	"insncorpus/internal/isa"
)

// Encoder encodes against one profile.
type Encoder struct {
	p *isa.Profile
}

// New returns an encoder bound to p.
func New(p *isa.Profile) *Encoder {
	return &Encoder{p: p}
}

// Encode implements isa.Encoder.
func (e *Encoder) Encode(inst isa.Inst) ([]byte, error) {
	d := e.p.Desc(inst.Opcode)
	if d == nil {
		return nil, fmt.Errorf("%s: opcode %d out of range", e.p.Name, inst.Opcode)
	}
	if len(inst.Operands) != len(d.Operands) {
		return nil, fmt.Errorf("%s: %s takes %d operands, got %d", e.p.Name, d.Mnemonic, len(d.Operands), len(inst.Operands))
	}
	word := d.Enc.Bits
	for i, od := range d.Operands {
		v := inst.Operands[i]
		switch od.Slot.Role {
		case isa.RoleNone:
		case isa.RoleField:
			raw, err := e.raw(v)
			if err != nil {
				return nil, fmt.Errorf("%s operand %d: %w", d.Mnemonic, i, err)
			}
			raw >>= od.Slot.Shift
			word |= (uint32(raw) & mask(od.Slot.Width)) << od.Slot.Lsb
		case isa.RoleRegMask:
			if v.Kind != isa.ValueReg {
				return nil, fmt.Errorf("%s operand %d: register list needs a register", d.Mnemonic, i)
			}
			if v.Reg == isa.NoRegister {
				continue
			}
			enc, err := e.p.RegEnc(v)
			if err != nil {
				return nil, fmt.Errorf("%s operand %d: %w", d.Mnemonic, i, err)
			}
			word |= 1 << (enc & 31) << od.Slot.Lsb
		default:
			return nil, fmt.Errorf("%s operand %d: role %v is not a fixed-width role", d.Mnemonic, i, od.Slot.Role)
		}
	}
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, word)
	return out, nil
}

func (e *Encoder) raw(v isa.Value) (int64, error) {
	if v.Kind == isa.ValueReg {
		enc, err := e.p.RegEnc(v)
		return int64(enc), err
	}
	n, ok := v.Scalar()
	if !ok {
		return 0, fmt.Errorf("unsupported value kind %d", v.Kind)
	}
	return n, nil
}

func mask(width uint8) uint32 {
	if width >= 32 {
		return ^uint32(0)
	}
	return 1<<width - 1
}
