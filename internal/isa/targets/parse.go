package targets

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"insncorpus/internal/isa"
)

type tableFile struct {
	Name             string              `yaml:"name"`
	Triple           string              `yaml:"triple"`
	Prefix           string              `yaml:"prefix"`
	OutDir           string              `yaml:"outdir"`
	Width            string              `yaml:"width"` // "fixed32" or "variable"
	Registers        []regSpec           `yaml:"registers"`
	Classes          []classSpec         `yaml:"classes"`
	PointerClass     string              `yaml:"pointerClass"`
	SegmentClass     string              `yaml:"segmentClass"`
	GeneralRegister  string              `yaml:"generalRegister"`
	AlwaysCond       int64               `yaml:"alwaysCond"`
	CompositeMemory  bool                `yaml:"compositeMemory"`
	Terminator       instSpec            `yaml:"terminator"`
	UnclassedDefault string              `yaml:"unclassedDefault"`
	Unclassed        []rangeSpec         `yaml:"unclassed"`
	Exceptions       map[string][]string `yaml:"exceptions"`
	KnownBad         []string            `yaml:"knownBad"`
	NonPrintable     []string            `yaml:"nonPrintable"`
	Instructions     []instrSpec         `yaml:"instructions"`
}

type regSpec struct {
	Name string `yaml:"name"`
	Enc  *int   `yaml:"enc"`
	From *int   `yaml:"from"`
	To   *int   `yaml:"to"`
}

type classSpec struct {
	Name string   `yaml:"name"`
	Regs []string `yaml:"regs"`
}

type rangeSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Pick string `yaml:"pick"`
}

type instSpec struct {
	Opcode   string   `yaml:"opcode"`
	Operands []string `yaml:"operands"`
}

type instrSpec struct {
	Mnemonic string        `yaml:"mnemonic"`
	Pseudo   bool          `yaml:"pseudo"`
	Form     string        `yaml:"form"`
	Size     *int          `yaml:"size"`
	Bits     uint32        `yaml:"bits"`
	Prefix   []int         `yaml:"prefix"`
	Opcode   []int         `yaml:"opcode"`
	RexW     bool          `yaml:"rexw"`
	Ext      *int          `yaml:"ext"`
	Operands []operandSpec `yaml:"operands"`
}

type operandSpec struct {
	Type   string `yaml:"type"`
	Class  string `yaml:"class"`
	Pred   bool   `yaml:"pred"`
	OptDef bool   `yaml:"optdef"`
	Ptr    bool   `yaml:"ptr"`
	Role   string `yaml:"role"`
	Lsb    uint8  `yaml:"lsb"`
	Width  uint8  `yaml:"width"`
	Shift  uint8  `yaml:"shift"`
	Size   uint8  `yaml:"size"`
}

// genericPseudos open every table, as in target-independent opcode space.
var genericPseudos = []string{
	"PHI", "INLINEASM", "CFI_INSTRUCTION", "EH_LABEL",
	"KILL", "IMPLICIT_DEF", "COPY", "BUNDLE",
}

// Parse builds a profile from a descriptor table. The returned profile has
// no encoder or printer bound.
func Parse(data []byte) (*isa.Profile, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("%w: %v", isa.ErrBadDescriptor, err)
	}
	if tf.Name == "" {
		return nil, fmt.Errorf("%w: table has no name", isa.ErrBadDescriptor)
	}
	p := &isa.Profile{
		Name:   tf.Name,
		Triple: tf.Triple,
		Prefix: tf.Prefix,
		OutDir: tf.OutDir,
	}
	if p.Prefix == "" {
		p.Prefix = tf.Name + "_"
	}
	if p.OutDir == "" {
		p.OutDir = tf.Name + "_corpus"
	}

	p.Regs = append(p.Regs, isa.Register{ID: isa.NoRegister, Name: "NoRegister"})
	for _, rs := range tf.Registers {
		for _, r := range rs.expand() {
			r.ID = len(p.Regs)
			p.Regs = append(p.Regs, r)
		}
	}
	// Registers must be indexed before classes can name them.
	if err := p.Index(); err != nil {
		return nil, err
	}
	for _, cs := range tf.Classes {
		c := isa.RegisterClass{ID: len(p.Classes), Name: cs.Name}
		for _, item := range cs.Regs {
			names, err := expandNames(item)
			if err != nil {
				return nil, fmt.Errorf("class %s: %w", cs.Name, err)
			}
			for _, n := range names {
				id, ok := p.RegisterByName(n)
				if !ok {
					return nil, fmt.Errorf("%w: class %s: unknown register %q", isa.ErrBadDescriptor, cs.Name, n)
				}
				c.Regs = append(c.Regs, id)
			}
		}
		p.Classes = append(p.Classes, c)
	}

	segClass := isa.NoClass
	if tf.SegmentClass != "" {
		id, ok := p.ClassByName(tf.SegmentClass)
		if !ok {
			return nil, fmt.Errorf("%w: unknown segment class %q", isa.ErrBadDescriptor, tf.SegmentClass)
		}
		segClass = id
	}

	for _, name := range genericPseudos {
		p.Insts = append(p.Insts, isa.InstructionDescriptor{
			Opcode:   len(p.Insts),
			Mnemonic: name,
			Pseudo:   true,
			Form:     isa.FormPseudo,
			Enc:      isa.Encoding{Ext: -1},
		})
	}
	for _, is := range tf.Instructions {
		d, err := is.build(p, tf.Width, segClass)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", is.Mnemonic, err)
		}
		d.Opcode = len(p.Insts)
		p.Insts = append(p.Insts, d)
	}
	if err := p.Index(); err != nil {
		return nil, err
	}
	if err := tf.rules(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (rs regSpec) expand() []isa.Register {
	if rs.From == nil || rs.To == nil {
		enc := 0
		if rs.Enc != nil {
			enc = *rs.Enc
		}
		return []isa.Register{{Name: rs.Name, Enc: uint8(enc)}}
	}
	base := 0
	if rs.Enc != nil {
		base = *rs.Enc
	}
	var out []isa.Register
	for i := *rs.From; i <= *rs.To; i++ {
		out = append(out, isa.Register{
			Name: rs.Name + strconv.Itoa(i),
			Enc:  uint8(base + i - *rs.From),
		})
	}
	return out
}

// expandNames turns "X0..X28" into X0, X1, ... X28; other names pass through.
func expandNames(item string) ([]string, error) {
	lo, hi, ok := strings.Cut(item, "..")
	if !ok {
		return []string{item}, nil
	}
	prefix, from, err := splitIndex(lo)
	if err != nil {
		return nil, err
	}
	prefix2, to, err := splitIndex(hi)
	if err != nil {
		return nil, err
	}
	if prefix != prefix2 || to < from {
		return nil, fmt.Errorf("%w: bad register range %q", isa.ErrBadDescriptor, item)
	}
	names := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		names = append(names, prefix+strconv.Itoa(i))
	}
	return names, nil
}

func splitIndex(s string) (string, int, error) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return "", 0, fmt.Errorf("%w: register %q has no index", isa.ErrBadDescriptor, s)
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return "", 0, fmt.Errorf("%w: register %q: %v", isa.ErrBadDescriptor, s, err)
	}
	return s[:i], n, nil
}

func (is instrSpec) build(p *isa.Profile, width string, segClass int) (isa.InstructionDescriptor, error) {
	d := isa.InstructionDescriptor{
		Mnemonic: is.Mnemonic,
		Pseudo:   is.Pseudo,
		Form:     isa.Form(is.Form),
		Enc: isa.Encoding{
			Bits: is.Bits,
			RexW: is.RexW,
			Ext:  -1,
		},
	}
	if is.Mnemonic == "" {
		return d, fmt.Errorf("%w: instruction without mnemonic", isa.ErrBadDescriptor)
	}
	if is.Ext != nil {
		d.Enc.Ext = int8(*is.Ext)
	}
	for _, b := range is.Prefix {
		d.Enc.Prefix = append(d.Enc.Prefix, byte(b))
	}
	for _, b := range is.Opcode {
		d.Enc.Opcode = append(d.Enc.Opcode, byte(b))
	}
	if d.Form == "" {
		switch {
		case is.Pseudo:
			d.Form = isa.FormPseudo
		case width == "fixed32":
			d.Form = isa.FormFixed
		default:
			d.Form = isa.FormRaw
		}
	}
	switch {
	case is.Size != nil:
		d.Size = *is.Size
	case d.Form == isa.FormNone || d.Form == isa.FormPseudo:
		d.Size = 0
	case width == "fixed32":
		d.Size = 4
	default:
		d.Size = len(d.Enc.Prefix) + len(d.Enc.Opcode)
	}

	for _, spec := range is.Operands {
		ops, err := spec.build(p, segClass)
		if err != nil {
			return d, err
		}
		d.Operands = append(d.Operands, ops...)
	}
	return d, nil
}

func (spec operandSpec) build(p *isa.Profile, segClass int) ([]isa.OperandDescriptor, error) {
	role, err := isa.ParseSlotRole(spec.Role)
	if err != nil {
		return nil, err
	}
	class := isa.NoClass
	if spec.Class != "" {
		id, ok := p.ClassByName(spec.Class)
		if !ok {
			return nil, fmt.Errorf("%w: unknown register class %q", isa.ErrBadDescriptor, spec.Class)
		}
		class = id
	}
	slot := isa.Slot{Role: role, Lsb: spec.Lsb, Width: spec.Width, Shift: spec.Shift, Size: spec.Size}

	if spec.Type == "addr" {
		// Composite memory reference: base, scale, index, displacement, segment.
		return []isa.OperandDescriptor{
			{Type: isa.OperandMemory, RegClass: class, PointerLookup: class == isa.NoClass, Slot: slot},
			{Type: isa.OperandMemory, RegClass: isa.NoClass},
			{Type: isa.OperandMemory, RegClass: isa.NoClass, PointerLookup: true},
			{Type: isa.OperandMemory, RegClass: isa.NoClass},
			{Type: isa.OperandMemory, RegClass: segClass},
		}, nil
	}
	typ, err := isa.ParseOperandType(spec.Type)
	if err != nil {
		return nil, err
	}
	return []isa.OperandDescriptor{{
		Type:          typ,
		RegClass:      class,
		Predicate:     spec.Pred,
		OptionalDef:   spec.OptDef,
		PointerLookup: spec.Ptr,
		Slot:          slot,
	}}, nil
}

func (tf *tableFile) rules(p *isa.Profile) error {
	r := &p.Rules
	r.CompositeMemory = tf.CompositeMemory
	r.AlwaysCond = tf.AlwaysCond
	r.PointerClass = isa.NoClass
	if tf.PointerClass != "" {
		id, ok := p.ClassByName(tf.PointerClass)
		if !ok {
			return fmt.Errorf("%w: unknown pointer class %q", isa.ErrBadDescriptor, tf.PointerClass)
		}
		r.PointerClass = id
	}
	if tf.GeneralRegister != "" {
		id, ok := p.RegisterByName(tf.GeneralRegister)
		if !ok {
			return fmt.Errorf("%w: unknown general register %q", isa.ErrBadDescriptor, tf.GeneralRegister)
		}
		r.GeneralRegister = id
	}
	pick, err := isa.ParsePick(tf.UnclassedDefault)
	if err != nil {
		return err
	}
	r.UnclassedDefault = pick

	opcode := func(what, name string) (int, error) {
		op, ok := p.OpcodeByName(name)
		if !ok {
			return 0, fmt.Errorf("%w: %s names unknown opcode %q", isa.ErrBadDescriptor, what, name)
		}
		return op, nil
	}

	for _, rs := range tf.Unclassed {
		from, err := opcode("unclassed range", rs.From)
		if err != nil {
			return err
		}
		to := from
		if rs.To != "" {
			if to, err = opcode("unclassed range", rs.To); err != nil {
				return err
			}
		}
		if to < from {
			return fmt.Errorf("%w: unclassed range %s..%s is reversed", isa.ErrBadDescriptor, rs.From, rs.To)
		}
		pick, err := isa.ParsePick(rs.Pick)
		if err != nil {
			return err
		}
		r.Unclassed = append(r.Unclassed, isa.OpcodeRange{From: from, To: to, Pick: pick})
	}

	r.Exceptions = make(map[int][]isa.Value, len(tf.Exceptions))
	for name, spellings := range tf.Exceptions {
		op, err := opcode("exception", name)
		if err != nil {
			return err
		}
		vals, err := parseValues(p, spellings)
		if err != nil {
			return fmt.Errorf("exception %s: %w", name, err)
		}
		if want := len(p.Insts[op].Operands); len(vals) != want {
			return fmt.Errorf("%w: exception %s has %d values for %d operands", isa.ErrBadDescriptor, name, len(vals), want)
		}
		if err := checkClasses(p, p.Desc(op), vals); err != nil {
			return fmt.Errorf("exception %s: %w", name, err)
		}
		r.Exceptions[op] = vals
	}

	r.KnownBad = make(map[int]bool, len(tf.KnownBad))
	for _, name := range tf.KnownBad {
		op, err := opcode("known-bad list", name)
		if err != nil {
			return err
		}
		r.KnownBad[op] = true
	}
	r.NonPrintable = make(map[int]bool, len(tf.NonPrintable))
	for _, name := range tf.NonPrintable {
		op, err := opcode("non-printable list", name)
		if err != nil {
			return err
		}
		r.NonPrintable[op] = true
	}

	if tf.Terminator.Opcode == "" {
		return fmt.Errorf("%w: table has no terminator", isa.ErrBadDescriptor)
	}
	op, err := opcode("terminator", tf.Terminator.Opcode)
	if err != nil {
		return err
	}
	vals, err := parseValues(p, tf.Terminator.Operands)
	if err != nil {
		return fmt.Errorf("terminator: %w", err)
	}
	if want := len(p.Insts[op].Operands); len(vals) != want {
		return fmt.Errorf("%w: terminator has %d values for %d operands", isa.ErrBadDescriptor, len(vals), want)
	}
	if err := checkClasses(p, p.Desc(op), vals); err != nil {
		return fmt.Errorf("terminator: %w", err)
	}
	p.Term = isa.Inst{Opcode: op, Operands: vals}
	return nil
}

func parseValues(p *isa.Profile, spellings []string) ([]isa.Value, error) {
	vals := make([]isa.Value, 0, len(spellings))
	for _, s := range spellings {
		v, err := isa.ParseValue(p, s)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// checkClasses rejects a fixed register that lies outside the class of its
// operand slot. Pointer slots without a class use the pointer class. The
// null register is accepted everywhere.
func checkClasses(p *isa.Profile, d *isa.InstructionDescriptor, vals []isa.Value) error {
	for i, v := range vals {
		if v.Kind != isa.ValueReg || v.Reg == isa.NoRegister {
			continue
		}
		od := d.Operands[i]
		class := od.RegClass
		if class == isa.NoClass && od.PointerLookup {
			class = p.Rules.PointerClass
		}
		if class == isa.NoClass {
			continue
		}
		if c := p.Class(class); c != nil && !c.Contains(v.Reg) {
			return fmt.Errorf("%w: operand %d: register %s is not in class %s",
				isa.ErrBadDescriptor, i, p.Register(v.Reg).Name, c.Name)
		}
	}
	return nil
}
