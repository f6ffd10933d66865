package isa

import (
	"fmt"

	"insncorpus/internal/disasm"
)

// DisasmPrinter renders an instruction by encoding it and decoding the
// bytes back with a disassembler.
type DisasmPrinter struct {
	Enc Encoder
	Dec disasm.Decoder
}

// Print implements Printer.
func (p DisasmPrinter) Print(inst Inst) (string, error) {
	b, err := p.Enc.Encode(inst)
	if err != nil {
		return "", err
	}
	d, err := p.Dec.Decode(b)
	if err != nil {
		return "", fmt.Errorf("render opcode %d (% x): %w", inst.Opcode, b, err)
	}
	if len(d.Raw) != len(b) {
		return "", fmt.Errorf("render opcode %d: decoded %d of %d bytes", inst.Opcode, len(d.Raw), len(b))
	}
	return d.Text, nil
}
