package disasm

import (
	"encoding/binary"
	"strings"

	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// X86 decodes 64-bit x86 code and renders GNU (AT&T) syntax.
type X86 struct{}

func (X86) Decode(src []byte) (Inst, error) {
	inst, err := x86asm.Decode(src, 64)
	if err != nil {
		return Inst{}, err
	}
	if inst.Len > len(src) {
		return Inst{}, ErrTruncated
	}
	return Inst{
		Text: x86asm.GNUSyntax(inst, 0, nil),
		Op:   strings.ToLower(inst.Op.String()),
		Raw:  append([]byte(nil), src[:inst.Len]...),
	}, nil
}

// ARM decodes A32 code.
type ARM struct{}

func (ARM) Decode(src []byte) (Inst, error) {
	inst, err := armasm.Decode(src, armasm.ModeARM)
	if err != nil {
		return Inst{}, err
	}
	return Inst{
		Text: armasm.GNUSyntax(inst),
		Op:   strings.ToLower(inst.Op.String()),
		Raw:  append([]byte(nil), src[:inst.Len]...),
	}, nil
}

// ARM64 decodes A64 code.
type ARM64 struct{}

func (ARM64) Decode(src []byte) (Inst, error) {
	if len(src) < 4 {
		return Inst{}, ErrTruncated
	}
	inst, err := arm64asm.Decode(src[:4])
	if err != nil {
		return Inst{}, err
	}
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, binary.LittleEndian.Uint32(src))
	return Inst{
		Text: arm64asm.GNUSyntax(inst),
		Op:   strings.ToLower(inst.Op.String()),
		Raw:  raw,
	}, nil
}
