package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"insncorpus/internal/isa"
)

func profile() *isa.Profile {
	p := &isa.Profile{
		Insts: []isa.InstructionDescriptor{
			{Opcode: 0, Mnemonic: "PHI", Pseudo: true, Form: isa.FormPseudo},
			// Pseudo wins even when an encoding is present.
			{Opcode: 1, Mnemonic: "MOVaddr", Pseudo: true, Form: isa.FormFixed, Size: 4},
			{Opcode: 2, Mnemonic: "SPACE", Form: isa.FormNone, Size: 4},
			{Opcode: 3, Mnemonic: "ZERO", Form: isa.FormFixed, Size: 0},
			{Opcode: 4, Mnemonic: "UDF", Form: isa.FormFixed, Size: 4},
			{Opcode: 5, Mnemonic: "ADD", Form: isa.FormFixed, Size: 4},
			{Opcode: 6, Mnemonic: "ENDBR64", Form: isa.FormRaw, Size: 4},
			// Known bad also applies before the printable check.
			{Opcode: 7, Mnemonic: "BOTH", Form: isa.FormRaw, Size: 1},
		},
		Rules: isa.Rules{
			KnownBad:     map[int]bool{4: true, 7: true},
			NonPrintable: map[int]bool{6: true, 7: true},
		},
	}
	if err := p.Index(); err != nil {
		panic(err)
	}
	return p
}

func TestClassify(t *testing.T) {
	p := profile()
	tests := []struct {
		opcode    int
		outcome   Outcome
		printable bool
	}{
		{0, Pseudo, false},
		{1, Pseudo, false},
		{2, Unsupported, false},
		{3, Unsupported, false},
		{4, SpecialError, false},
		{5, Built, true},
		{6, Built, false},
		{7, SpecialError, false},
	}
	for _, tt := range tests {
		d := p.Desc(tt.opcode)
		t.Run(d.Mnemonic, func(t *testing.T) {
			r := Classify(p, d)
			assert.Equal(t, tt.opcode, r.Opcode)
			assert.Equal(t, d.Mnemonic, r.Mnemonic)
			assert.Equal(t, tt.outcome, r.Outcome)
			assert.Equal(t, tt.printable, r.Printable)
			assert.Empty(t, r.Name)
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	first := All(profile())
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, All(profile()))
	}
}

func TestRecordString(t *testing.T) {
	tests := []struct {
		r    Record
		want string
	}{
		{Record{Opcode: 0, Mnemonic: "PHI", Outcome: Pseudo}, "0\tPHI\tPSEUDO"},
		{Record{Opcode: 5, Mnemonic: "ADD", Outcome: Built, Printable: true, Name: "add"}, "5\tADD\tBUILT\tadd"},
		{Record{Opcode: 6, Mnemonic: "ENDBR64", Outcome: Built, Name: "endbr64"}, "6\tENDBR64\tBUILT\tendbr64\t(not printable)"},
		{Record{Opcode: 4, Mnemonic: "UDF", Outcome: SpecialError}, "4\tUDF\tSPECIAL_ERROR"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.r.String())
	}
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
}
