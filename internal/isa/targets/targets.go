// Package targets loads the built-in architecture profiles from embedded
// descriptor tables and binds their encoders and printers.
package targets

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"insncorpus/internal/disasm"
	"insncorpus/internal/isa"
	"insncorpus/internal/isa/fixed32"
	"insncorpus/internal/isa/x86"
)

//go:embed data/*.yaml
var tables embed.FS

type binding struct {
	table   string
	encoder func(*isa.Profile) isa.Encoder
	decoder disasm.Decoder
}

var builtin = map[string]binding{
	"x86": {
		table:   "data/x86.yaml",
		encoder: func(p *isa.Profile) isa.Encoder { return x86.New(p) },
		decoder: disasm.X86{},
	},
	"arm": {
		table:   "data/arm.yaml",
		encoder: func(p *isa.Profile) isa.Encoder { return fixed32.New(p) },
		decoder: disasm.ARM{},
	},
	"aarch64": {
		table:   "data/aarch64.yaml",
		encoder: func(p *isa.Profile) isa.Encoder { return fixed32.New(p) },
		decoder: disasm.ARM64{},
	},
}

// Reserved names are accepted by the command line but have no metadata.
var Reserved = []string{"mips"}

// Names returns the implemented architectures in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup loads the profile for name. Unknown and reserved names return
// isa.ErrUnknownArch.
func Lookup(name string) (*isa.Profile, error) {
	b, ok := builtin[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", isa.ErrUnknownArch, name)
	}
	data, err := tables.ReadFile(b.table)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.table, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.table, err)
	}
	p.Encoder = b.encoder(p)
	p.Printer = isa.DisasmPrinter{Enc: p.Encoder, Dec: b.decoder}
	return p, nil
}

// Decoder returns the disassembler of an implemented architecture.
func Decoder(name string) (disasm.Decoder, error) {
	b, ok := builtin[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", isa.ErrUnknownArch, name)
	}
	return b.decoder, nil
}

// Provider serves the built-in profiles.
type Provider struct{}

// Profile implements corpus.Provider.
func (Provider) Profile(name string) (*isa.Profile, error) {
	return Lookup(name)
}
