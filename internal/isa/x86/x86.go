// Package x86 encodes x86-64 instructions from descriptor templates:
// legacy prefixes, REX, opcode bytes, ModRM/SIB addressing and trailing
// immediates.
package x86

import (
	"fmt"
	"math"

	"insncorpus/internal/isa"
)

// segmentPrefix is indexed by segment register encoding (ES CS SS DS FS GS).
var segmentPrefix = [...]byte{0x26, 0x2e, 0x36, 0x3e, 0x64, 0x65}

const (
	rexW = 0x08
	rexR = 0x04
	rexX = 0x02
	rexB = 0x01
)

// Encoder encodes against one profile.
type Encoder struct {
	p *isa.Profile
}

// New returns an encoder bound to p.
func New(p *isa.Profile) *Encoder {
	return &Encoder{p: p}
}

type modrm struct {
	present bool
	mod     byte
	reg     byte
	rm      byte
	sib     []byte
	disp    []byte
}

// Encode implements isa.Encoder.
func (e *Encoder) Encode(inst isa.Inst) ([]byte, error) {
	d := e.p.Desc(inst.Opcode)
	if d == nil {
		return nil, fmt.Errorf("x86: opcode %d out of range", inst.Opcode)
	}
	if len(inst.Operands) != len(d.Operands) {
		return nil, fmt.Errorf("x86: %s takes %d operands, got %d", d.Mnemonic, len(d.Operands), len(inst.Operands))
	}

	var (
		rex    byte
		seg    []byte
		tail   []byte
		opcode = append([]byte(nil), d.Enc.Opcode...)
		m      = modrm{present: d.Form == isa.FormModRM}
	)
	if len(opcode) == 0 {
		return nil, fmt.Errorf("x86: %s has no opcode bytes", d.Mnemonic)
	}
	if d.Enc.RexW {
		rex |= rexW
	}
	if d.Enc.Ext >= 0 {
		m.reg = byte(d.Enc.Ext)
	}

	for i := 0; i < len(d.Operands); i++ {
		od, v := d.Operands[i], inst.Operands[i]
		switch od.Slot.Role {
		case isa.RoleNone:
		case isa.RoleReg:
			enc, err := e.reg(v)
			if err != nil {
				return nil, fmt.Errorf("x86: %s operand %d: %w", d.Mnemonic, i, err)
			}
			m.reg = enc & 7
			if enc&8 != 0 {
				rex |= rexR
			}
		case isa.RoleRM:
			if od.Type == isa.OperandMemory {
				if i+5 > len(inst.Operands) {
					return nil, fmt.Errorf("x86: %s operand %d: truncated memory reference", d.Mnemonic, i)
				}
				bits, segPrefix, err := e.memory(&m, inst.Operands[i:i+5])
				if err != nil {
					return nil, fmt.Errorf("x86: %s operand %d: %w", d.Mnemonic, i, err)
				}
				rex |= bits
				seg = segPrefix
				i += 4
				continue
			}
			enc, err := e.reg(v)
			if err != nil {
				return nil, fmt.Errorf("x86: %s operand %d: %w", d.Mnemonic, i, err)
			}
			m.mod, m.rm = 3, enc&7
			if enc&8 != 0 {
				rex |= rexB
			}
		case isa.RoleOpReg:
			enc, err := e.reg(v)
			if err != nil {
				return nil, fmt.Errorf("x86: %s operand %d: %w", d.Mnemonic, i, err)
			}
			opcode[len(opcode)-1] += enc & 7
			if enc&8 != 0 {
				rex |= rexB
			}
		case isa.RoleOpCond:
			n, ok := v.Scalar()
			if !ok {
				return nil, fmt.Errorf("x86: %s operand %d: condition must be an immediate", d.Mnemonic, i)
			}
			opcode[len(opcode)-1] += byte(n) & 0x0f
		case isa.RoleImm, isa.RoleRel:
			n, ok := v.Scalar()
			if !ok {
				return nil, fmt.Errorf("x86: %s operand %d: expected immediate", d.Mnemonic, i)
			}
			b, err := littleEndian(n, int(od.Slot.Size))
			if err != nil {
				return nil, fmt.Errorf("x86: %s operand %d: %w", d.Mnemonic, i, err)
			}
			tail = append(tail, b...)
		default:
			return nil, fmt.Errorf("x86: %s operand %d: role %v is not an x86 role", d.Mnemonic, i, od.Slot.Role)
		}
	}

	out := make([]byte, 0, 15)
	out = append(out, d.Enc.Prefix...)
	out = append(out, seg...)
	if rex != 0 {
		out = append(out, 0x40|rex)
	}
	out = append(out, opcode...)
	if m.present {
		out = append(out, m.mod<<6|m.reg<<3|m.rm)
		out = append(out, m.sib...)
		out = append(out, m.disp...)
	}
	out = append(out, tail...)
	if len(out) > 15 {
		return nil, fmt.Errorf("x86: %s encodes to %d bytes", d.Mnemonic, len(out))
	}
	return out, nil
}

func (e *Encoder) reg(v isa.Value) (byte, error) {
	if v.Kind == isa.ValueReg && v.Reg == isa.NoRegister {
		return 0, fmt.Errorf("register operand is empty")
	}
	return e.p.RegEnc(v)
}

// memory fills in ModRM, SIB and displacement for the five-slot reference
// base, scale, index, displacement, segment and returns the REX bits it needs.
func (e *Encoder) memory(m *modrm, ops []isa.Value) (byte, []byte, error) {
	base, scale, index, disp, seg := ops[0], ops[1], ops[2], ops[3], ops[4]
	var rex byte

	scaleN, ok := scale.Scalar()
	if !ok {
		return 0, nil, fmt.Errorf("scale must be an immediate")
	}
	var ss byte
	switch scaleN {
	case 1:
		ss = 0
	case 2:
		ss = 1
	case 4:
		ss = 2
	case 8:
		ss = 3
	default:
		return 0, nil, fmt.Errorf("invalid scale %d", scaleN)
	}
	dispN, ok := disp.Scalar()
	if !ok {
		return 0, nil, fmt.Errorf("displacement must be an immediate or expression")
	}
	if dispN < math.MinInt32 || dispN > math.MaxInt32 {
		return 0, nil, fmt.Errorf("displacement %#x out of range", dispN)
	}

	var segPrefix []byte
	if seg.Kind == isa.ValueReg && seg.Reg != isa.NoRegister {
		enc, err := e.p.RegEnc(seg)
		if err != nil {
			return 0, nil, err
		}
		if int(enc) >= len(segmentPrefix) {
			return 0, nil, fmt.Errorf("invalid segment encoding %d", enc)
		}
		segPrefix = []byte{segmentPrefix[enc]}
	}

	hasBase := base.Kind == isa.ValueReg && base.Reg != isa.NoRegister
	hasIndex := index.Kind == isa.ValueReg && index.Reg != isa.NoRegister
	var idx byte = 4 // no index
	if hasIndex {
		enc, err := e.p.RegEnc(index)
		if err != nil {
			return 0, nil, err
		}
		if enc == 4 {
			return 0, nil, fmt.Errorf("stack pointer cannot be an index")
		}
		idx = enc
		if idx&8 != 0 {
			rex |= rexX
		}
	}

	m.present = true
	if !hasBase {
		// Absolute or index-only: SIB with no base and a 32-bit displacement.
		m.mod, m.rm = 0, 4
		m.sib = []byte{ss<<6 | (idx&7)<<3 | 5}
		m.disp = le32(dispN)
		return rex, segPrefix, nil
	}

	b, err := e.p.RegEnc(base)
	if err != nil {
		return 0, nil, err
	}
	if b&8 != 0 {
		rex |= rexB
	}
	switch {
	case dispN == 0 && b&7 != 5:
		m.mod = 0
	case dispN >= math.MinInt8 && dispN <= math.MaxInt8:
		m.mod = 1
		m.disp = []byte{byte(int8(dispN))}
	default:
		m.mod = 2
		m.disp = le32(dispN)
	}
	if hasIndex || b&7 == 4 {
		m.rm = 4
		m.sib = []byte{ss<<6 | (idx&7)<<3 | b&7}
	} else {
		m.rm = b & 7
	}
	return rex, segPrefix, nil
}

func le32(n int64) []byte {
	v := uint32(int32(n))
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func littleEndian(n int64, size int) ([]byte, error) {
	switch size {
	case 1:
		if n < math.MinInt8 || n > math.MaxUint8 {
			return nil, fmt.Errorf("value %d does not fit in 1 byte", n)
		}
	case 2:
		if n < math.MinInt16 || n > math.MaxUint16 {
			return nil, fmt.Errorf("value %d does not fit in 2 bytes", n)
		}
	case 4:
		if n < math.MinInt32 || n > math.MaxUint32 {
			return nil, fmt.Errorf("value %d does not fit in 4 bytes", n)
		}
	case 8:
	default:
		return nil, fmt.Errorf("invalid operand size %d", size)
	}
	out := make([]byte, size)
	u := uint64(n)
	for i := range out {
		out[i] = byte(u)
		u >>= 8
	}
	return out, nil
}
