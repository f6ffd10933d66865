// Package emit turns synthesized instructions into artifact payloads and
// writes them to disk.
package emit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"insncorpus/internal/isa"
)

// Unprintable is written in text mode for opcodes that encode but have no
// usable rendering.
const Unprintable = "<unprintable>"

// Mode selects the artifact payload.
type Mode uint8

const (
	ModeBinary Mode = iota
	ModeText
)

func (m Mode) String() string {
	if m == ModeText {
		return "asm"
	}
	return "bin"
}

// ParseMode accepts "bin" and "asm".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "bin", "binary":
		return ModeBinary, nil
	case "asm", "text":
		return ModeText, nil
	}
	return ModeBinary, fmt.Errorf("unknown output mode %q", s)
}

// Artifact is one output file.
type Artifact struct {
	Name    string
	Payload []byte
	Dir     string
}

// Path returns the artifact's file path.
func (a Artifact) Path() string {
	return filepath.Join(a.Dir, a.Name)
}

// Writer produces artifacts for one profile in one mode.
type Writer struct {
	p    *isa.Profile
	mode Mode
	term []byte
}

// New returns a writer. In binary mode the terminator is encoded once up front.
func New(p *isa.Profile, mode Mode) (*Writer, error) {
	w := &Writer{p: p, mode: mode}
	if mode == ModeBinary {
		b, err := p.Encoder.Encode(p.Terminator())
		if err != nil {
			return nil, fmt.Errorf("encode terminator: %w", err)
		}
		w.term = b
	}
	return w, nil
}

// Mode returns the writer's mode.
func (w *Writer) Mode() Mode { return w.mode }

// Payload returns the artifact bytes for inst. Encoder and printer errors
// are returned as is.
func (w *Writer) Payload(inst isa.Inst, printable bool) ([]byte, error) {
	if w.mode == ModeText {
		if !printable {
			return []byte(Unprintable), nil
		}
		text, err := w.p.Printer.Print(inst)
		if err != nil {
			return nil, err
		}
		return []byte(text + "\n"), nil
	}
	b, err := w.p.Encoder.Encode(inst)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(b)+len(w.term))
	out = append(out, b...)
	return append(out, w.term...), nil
}

// Write builds the payload for inst and writes it as dir/name.
func (w *Writer) Write(dir, name string, inst isa.Inst, printable bool) (Artifact, error) {
	payload, err := w.Payload(inst, printable)
	if err != nil {
		return Artifact{}, err
	}
	a := Artifact{Name: name, Payload: payload, Dir: dir}
	if err := os.WriteFile(a.Path(), payload, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write artifact: %w", err)
	}
	return a, nil
}

// Relocate moves the artifact into dir.
func (a *Artifact) Relocate(dir string) error {
	dst := filepath.Join(dir, a.Name)
	if err := os.Rename(a.Path(), dst); err != nil {
		return fmt.Errorf("relocate %s: %w", a.Name, err)
	}
	a.Dir = dir
	return nil
}
