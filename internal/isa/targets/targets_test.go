package targets

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insncorpus/internal/classify"
	"insncorpus/internal/isa"
	"insncorpus/internal/synth"
)

func TestLookupBuiltins(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, err := Lookup(name)
			require.NoError(t, err)
			assert.Equal(t, name, p.Name)
			assert.NotNil(t, p.Encoder)
			assert.NotNil(t, p.Printer)
			assert.Equal(t, name+"_", p.Prefix)
			assert.Equal(t, name+"_corpus", p.OutDir)

			require.Greater(t, p.NumOpcodes(), len(genericPseudos))
			for i, d := range p.Insts {
				require.Equal(t, i, d.Opcode, "opcode ids must be dense")
			}
			assert.True(t, p.Desc(0).Pseudo, "opcode 0 is always pseudo")
			assert.Nil(t, p.Desc(p.NumOpcodes()))
			assert.Nil(t, p.Desc(-1))
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	for _, name := range []string{"mips", "sparc", ""} {
		_, err := Lookup(name)
		if !errors.Is(err, isa.ErrUnknownArch) {
			t.Errorf("Lookup(%q) error = %v, want ErrUnknownArch", name, err)
		}
		if _, err := Decoder(name); !errors.Is(err, isa.ErrUnknownArch) {
			t.Errorf("Decoder(%q) error = %v, want ErrUnknownArch", name, err)
		}
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	p, err := Lookup("AArch64")
	require.NoError(t, err)
	assert.Equal(t, "aarch64", p.Name)
}

func TestTerminatorBytes(t *testing.T) {
	tests := []struct {
		arch string
		want string
	}{
		{"x86", "c3"},
		{"arm", "1eff2fe1"},
		{"aarch64", "c0035fd6"},
	}
	for _, tt := range tests {
		t.Run(tt.arch, func(t *testing.T) {
			p, err := Lookup(tt.arch)
			require.NoError(t, err)
			b, err := p.Encoder.Encode(p.Terminator())
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(b))
		})
	}
}

// TestSynthesizedEncodings checks the bytes of default assignments,
// including the table exceptions.
func TestSynthesizedEncodings(t *testing.T) {
	tests := []struct {
		arch     string
		mnemonic string
		want     string
	}{
		{"aarch64", "ADDXrs", "0000008b"},
		{"aarch64", "MOVZXi", "000080d2"},
		{"aarch64", "STPXpre", "fd7bbfa9"},
		{"aarch64", "LDPXpost", "fd7bc1a8"},
		{"aarch64", "B", "02000014"},
		{"aarch64", "Bcc", "40000054"},
		{"aarch64", "HINT", "3f2003d5"},
		{"aarch64", "SVC", "010000d4"},
		{"aarch64", "LDRXui", "000040f9"},

		{"arm", "ADDrr", "000080e0"},
		{"arm", "MOVi", "0000a0e3"},
		{"arm", "LDRlit", "10009fe5"},
		{"arm", "LDRi12", "000090e5"},
		{"arm", "STMDB_UPD", "00402de9"},
		{"arm", "LDMIA_UPD", "0080bde8"},
		{"arm", "LDMIA", "010090e8"},
		{"arm", "B", "020000ea"},
		{"arm", "Bcc", "020000ea"},
		{"arm", "SETEND", "000201f1"},
		{"arm", "MUL", "900000e0"},

		{"x86", "ADD64rr", "4801c0"},
		{"x86", "ADD64rm", "48034010"},
		{"x86", "MOV64mi32", "48c7401000000000"},
		{"x86", "LEA64r", "488d442408"},
		{"x86", "LEA64_32r", "8d440808"},
		{"x86", "SUB64ri32", "4881e800000000"},
		{"x86", "SHL64r1", "48d1e0"},
		{"x86", "IMUL64rr", "480fafc0"},
		{"x86", "MOV64ri", "48b80000000000000000"},
		{"x86", "PUSH64r", "50"},
		{"x86", "JCC_1", "7008"},
		{"x86", "JMP_4", "e908000000"},
		{"x86", "RETI64", "c20000"},
		{"x86", "MOVSQ", "48a5"},
		{"x86", "ENDBR64", "f30f1efa"},
		{"x86", "CQO", "4899"},
	}
	profiles := map[string]*isa.Profile{}
	for _, tt := range tests {
		t.Run(tt.arch+"/"+tt.mnemonic, func(t *testing.T) {
			p, ok := profiles[tt.arch]
			if !ok {
				var err error
				p, err = Lookup(tt.arch)
				require.NoError(t, err)
				profiles[tt.arch] = p
			}
			op, ok := p.OpcodeByName(tt.mnemonic)
			require.True(t, ok, "no opcode %s", tt.mnemonic)
			inst, err := synth.New(p).Assign(p.Desc(op))
			require.NoError(t, err)
			b, err := p.Encoder.Encode(inst)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(b))
		})
	}
}

// TestEveryBuiltOpcode runs every BUILT opcode of every table through
// assignment, encoding and, when printable, rendering.
func TestEveryBuiltOpcode(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, err := Lookup(name)
			require.NoError(t, err)
			eng := synth.New(p)
			built := 0
			for op := 0; op < p.NumOpcodes(); op++ {
				d := p.Desc(op)
				rec := classify.Classify(p, d)
				if rec.Outcome != classify.Built {
					continue
				}
				built++
				inst, err := eng.Assign(d)
				require.NoError(t, err, d.Mnemonic)
				b, err := p.Encoder.Encode(inst)
				require.NoError(t, err, d.Mnemonic)
				require.NotEmpty(t, b, d.Mnemonic)
				if !rec.Printable {
					continue
				}
				text, err := p.Printer.Print(inst)
				require.NoError(t, err, d.Mnemonic)
				assert.NotEmpty(t, strings.TrimSpace(text), d.Mnemonic)
			}
			assert.Greater(t, built, 20)
		})
	}
}

// TestNonPrintableRendersNothing checks that opcodes the disassemblers cannot
// render are flagged, so a text run writes the sentinel instead of failing.
func TestNonPrintableRendersNothing(t *testing.T) {
	p, err := Lookup("aarch64")
	require.NoError(t, err)
	op, ok := p.OpcodeByName("HVC")
	require.True(t, ok)
	rec := classify.Classify(p, p.Desc(op))
	assert.Equal(t, classify.Built, rec.Outcome)
	assert.False(t, rec.Printable)

	inst, err := synth.New(p).Assign(p.Desc(op))
	require.NoError(t, err)
	_, err = p.Printer.Print(inst)
	assert.Error(t, err, "HVC rendered; it no longer needs the non-printable override")
}

func TestPrinterText(t *testing.T) {
	tests := []struct {
		arch     string
		mnemonic string
		want     string
	}{
		{"x86", "ADD64rr", "add %rax,%rax"},
		{"aarch64", "RET", "ret x0"},
	}
	for _, tt := range tests {
		t.Run(tt.arch+"/"+tt.mnemonic, func(t *testing.T) {
			p, err := Lookup(tt.arch)
			require.NoError(t, err)
			op, _ := p.OpcodeByName(tt.mnemonic)
			inst, err := synth.New(p).Assign(p.Desc(op))
			require.NoError(t, err)
			text, err := p.Printer.Print(inst)
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}

	p, err := Lookup("aarch64")
	require.NoError(t, err)
	text, err := p.Printer.Print(p.Terminator())
	require.NoError(t, err)
	assert.Equal(t, "ret", text)
}

const minimalTable = `
name: toy
width: fixed32
registers:
  - {name: R, from: 0, to: 3}
classes:
  - {name: GPR, regs: ["R0..R3"]}
terminator: {opcode: RET, operands: []}
instructions:
  - {mnemonic: RET, bits: 0xffffffff}
  - mnemonic: MOV
    bits: 0x10000000
    operands:
      - {type: reg, class: GPR, role: field, lsb: 0, width: 2}
      - {type: reg, class: GPR, role: field, lsb: 2, width: 2}
`

func TestParseMinimal(t *testing.T) {
	p, err := Parse([]byte(minimalTable))
	require.NoError(t, err)
	assert.Equal(t, "toy_", p.Prefix)
	assert.Equal(t, "toy_corpus", p.OutDir)
	// NoRegister plus R0..R3.
	assert.Len(t, p.Regs, 5)
	id, ok := p.RegisterByName("r2")
	require.True(t, ok)
	assert.Equal(t, uint8(2), p.Register(id).Enc)

	op, ok := p.OpcodeByName("MOV")
	require.True(t, ok)
	assert.Equal(t, len(genericPseudos)+1, op)
	d := p.Desc(op)
	assert.Equal(t, isa.FormFixed, d.Form)
	assert.Equal(t, 4, d.Size)
	assert.True(t, d.Encodable())
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		append  string
	}{
		{name: "unknown register in class", replace: [2]string{`"R0..R3"`, `"R0..R3", R9`}},
		{name: "unknown class", replace: [2]string{"class: GPR, role: field, lsb: 0", "class: FPR, role: field, lsb: 0"}},
		{name: "unknown terminator", replace: [2]string{"opcode: RET,", "opcode: HALT,"}},
		{name: "terminator arity", replace: [2]string{"operands: []}", "operands: [R0]}"}},
		{name: "no terminator", replace: [2]string{"terminator: {opcode: RET, operands: []}", ""}},
		{name: "exception arity", append: "exceptions:\n  MOV: [R0]\n"},
		{name: "exception opcode", append: "exceptions:\n  ADD: [R0, R1]\n"},
		{name: "exception register", append: "exceptions:\n  MOV: [R0, R7]\n"},
		{
			name:    "exception register outside class",
			replace: [2]string{`{name: GPR, regs: ["R0..R3"]}`, `{name: GPR, regs: ["R0..R1"]}`},
			append:  "exceptions:\n  MOV: [R0, R3]\n",
		},
		{name: "known bad opcode", append: "knownBad: [NOPE]\n"},
		{name: "non-printable opcode", append: "nonPrintable: [NOPE]\n"},
		{name: "unclassed range", append: "unclassed:\n  - {from: MOV, to: RET, pick: small}\n"},
		{name: "unclassed pick", append: "unclassed:\n  - {from: MOV, pick: huge}\n"},
		{name: "duplicate mnemonic", append: "  - {mnemonic: MOV, bits: 0}\n"},
		{name: "bad operand type", replace: [2]string{"{type: reg, class: GPR, role: field, lsb: 2", "{type: vector, class: GPR, role: field, lsb: 2"}},
		{name: "bad role", replace: [2]string{"role: field, lsb: 2", "role: bogus, lsb: 2"}},
		{name: "not yaml", replace: [2]string{"name: toy", "name: [toy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := minimalTable
			if tt.replace[0] != "" {
				require.Contains(t, src, tt.replace[0])
				src = strings.Replace(src, tt.replace[0], tt.replace[1], 1)
			}
			if tt.append != "" {
				if strings.HasPrefix(tt.append, "  - ") {
					src += tt.append
				} else {
					src = strings.Replace(src, "instructions:\n", tt.append+"instructions:\n", 1)
				}
			}
			_, err := Parse([]byte(src))
			require.Error(t, err)
			assert.ErrorIs(t, err, isa.ErrBadDescriptor)
		})
	}
}
