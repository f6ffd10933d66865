// Package disasm defines a common instruction representation used
// across architecture-specific disassemblers.
package disasm

import (
	"errors"
	"fmt"
)

// ErrTruncated is returned when a stream ends inside an instruction.
var ErrTruncated = errors.New("truncated instruction")

// Inst is a simplified decoded instruction.
type Inst struct {
	VA   uint64 // offset of instruction within the decoded buffer
	Text string // formatted disassembly string
	Op   string // mnemonic in lowercase
	Raw  []byte // raw encoding
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// Decoder decodes the instruction at the start of src.
type Decoder interface {
	Decode(src []byte) (Inst, error)
}

// DecodeAll decodes src front to back.
func DecodeAll(d Decoder, src []byte) (Stream, error) {
	var out Stream
	var va uint64
	for len(src) > 0 {
		inst, err := d.Decode(src)
		if err != nil {
			return out, fmt.Errorf("decode at %#x: %w", va, err)
		}
		if len(inst.Raw) == 0 || len(inst.Raw) > len(src) {
			return out, fmt.Errorf("decode at %#x: %w", va, ErrTruncated)
		}
		inst.VA = va
		out = append(out, inst)
		va += uint64(len(inst.Raw))
		src = src[len(inst.Raw):]
	}
	return out, nil
}
