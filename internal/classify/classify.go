// Package classify decides, per opcode, whether an instruction can be
// built into a corpus artifact.
package classify

import (
	"fmt"

	"insncorpus/internal/isa"
)

// Outcome is the classification of one opcode.
type Outcome uint8

const (
	Built Outcome = iota
	Pseudo
	Unsupported
	SpecialError
)

var outcomeNames = [...]string{
	Built:        "BUILT",
	Pseudo:       "PSEUDO",
	Unsupported:  "UNSUPPORTED",
	SpecialError: "SPECIAL_ERROR",
}

// Outcomes lists every outcome in report order.
var Outcomes = []Outcome{Built, Pseudo, Unsupported, SpecialError}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", o)
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Record is the classification of one opcode. Name is set by the corpus
// driver for built opcodes.
type Record struct {
	Opcode    int     `json:"opcode"`
	Mnemonic  string  `json:"mnemonic"`
	Outcome   Outcome `json:"outcome"`
	Printable bool    `json:"printable"`
	Name      string  `json:"name,omitempty"`
}

// String renders the record as one summary line.
func (r Record) String() string {
	s := fmt.Sprintf("%d\t%s\t%s", r.Opcode, r.Mnemonic, r.Outcome)
	if r.Outcome == Built {
		if r.Name != "" {
			s += "\t" + r.Name
		}
		if !r.Printable {
			s += "\t(not printable)"
		}
	}
	return s
}

// Classify applies, in order: pseudo, not encodable, known bad, built.
func Classify(p *isa.Profile, d *isa.InstructionDescriptor) Record {
	r := Record{Opcode: d.Opcode, Mnemonic: d.Mnemonic}
	switch {
	case d.Pseudo:
		r.Outcome = Pseudo
	case !d.Encodable():
		r.Outcome = Unsupported
	case p.Rules.KnownBad[d.Opcode]:
		r.Outcome = SpecialError
	default:
		r.Outcome = Built
		r.Printable = !p.Rules.NonPrintable[d.Opcode]
	}
	return r
}

// All classifies every opcode of p.
func All(p *isa.Profile) []Record {
	out := make([]Record, p.NumOpcodes())
	for op := range out {
		out[op] = Classify(p, p.Desc(op))
	}
	return out
}
