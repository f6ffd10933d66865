package isa

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind tags the concrete value held by one operand.
type ValueKind uint8

const (
	ValueImm ValueKind = iota
	ValueReg
	ValueExpr
)

// Expr is a symbolic expression with a resolved constant value.
type Expr struct {
	Symbol string
	Value  int64
}

func (e Expr) String() string {
	return fmt.Sprintf("%s(%#x)", e.Symbol, e.Value)
}

// Value is one concrete operand.
type Value struct {
	Kind ValueKind
	Imm  int64
	Reg  int
	Expr Expr
}

// Imm returns an immediate operand.
func Imm(v int64) Value { return Value{Kind: ValueImm, Imm: v} }

// Reg returns a register operand.
func Reg(id int) Value { return Value{Kind: ValueReg, Reg: id} }

// NoReg returns the null register operand.
func NoReg() Value { return Value{Kind: ValueReg, Reg: NoRegister} }

// ExprValue returns a symbolic expression operand.
func ExprValue(e Expr) Value { return Value{Kind: ValueExpr, Expr: e} }

// Scalar returns the numeric payload of an immediate or expression.
func (v Value) Scalar() (int64, bool) {
	switch v.Kind {
	case ValueImm:
		return v.Imm, true
	case ValueExpr:
		return v.Expr.Value, true
	}
	return 0, false
}

// Inst is a synthesized instruction: an opcode and its concrete operands.
type Inst struct {
	Opcode   int
	Operands []Value
}

// Format renders the instruction with register names from p, for logs and listings.
func (i Inst) Format(p *Profile) string {
	var b strings.Builder
	if d := p.Desc(i.Opcode); d != nil {
		b.WriteString(d.Mnemonic)
	} else {
		b.WriteString("op" + strconv.Itoa(i.Opcode))
	}
	for k, v := range i.Operands {
		if k == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		switch v.Kind {
		case ValueImm:
			b.WriteString("#" + strconv.FormatInt(v.Imm, 10))
		case ValueReg:
			if r := p.Register(v.Reg); r != nil {
				b.WriteString(r.Name)
			} else {
				b.WriteString("?reg" + strconv.Itoa(v.Reg))
			}
		case ValueExpr:
			b.WriteString(v.Expr.String())
		}
	}
	return b.String()
}

// ParseValue parses the operand spelling used by override tables:
// a register name, "#<int>" for an immediate, "@<symbol>=<int>" for an
// expression, and "_" for the null register.
func ParseValue(p *Profile, s string) (Value, error) {
	switch {
	case s == "_":
		return NoReg(), nil
	case strings.HasPrefix(s, "#"):
		n, err := strconv.ParseInt(s[1:], 0, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: immediate %q", ErrBadDescriptor, s)
		}
		return Imm(n), nil
	case strings.HasPrefix(s, "@"):
		sym, num, ok := strings.Cut(s[1:], "=")
		if !ok || sym == "" {
			return Value{}, fmt.Errorf("%w: expression %q", ErrBadDescriptor, s)
		}
		n, err := strconv.ParseInt(num, 0, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: expression %q", ErrBadDescriptor, s)
		}
		return ExprValue(Expr{Symbol: sym, Value: n}), nil
	}
	id, ok := p.RegisterByName(s)
	if !ok {
		return Value{}, fmt.Errorf("%w: unknown register %q", ErrBadDescriptor, s)
	}
	return Reg(id), nil
}
