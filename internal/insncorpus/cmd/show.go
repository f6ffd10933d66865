package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"insncorpus/internal/classify"
	"insncorpus/internal/disasm"
	"insncorpus/internal/emit"
	"insncorpus/internal/isa"
	"insncorpus/internal/isa/targets"
	"insncorpus/internal/synth"
	"insncorpus/internal/ui/colorize"
)

var errNotBuilt = errors.New("opcode is not built")

// detail is everything known about one opcode, as show and browse print it.
type detail struct {
	Record     classify.Record
	Inst       isa.Inst
	Operands   string
	Code       []byte // instruction encoding
	Term       []byte // terminator encoding
	Text       string // printer rendering, or emit.Unprintable
	Listing    disasm.Stream
	ListingErr error // why Listing stops short of the artifact
}

// lookupOpcode resolves an opcode number or mnemonic. Mnemonics match
// exactly first, then case-insensitively.
func lookupOpcode(p *isa.Profile, s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if p.Desc(n) == nil {
			return 0, fmt.Errorf("%s has no opcode %d (0..%d)", p.Name, n, p.NumOpcodes()-1)
		}
		return n, nil
	}
	if op, ok := p.OpcodeByName(s); ok {
		return op, nil
	}
	for op := 0; op < p.NumOpcodes(); op++ {
		if strings.EqualFold(p.Desc(op).Mnemonic, s) {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%s has no opcode named %q", p.Name, s)
}

// describe synthesizes op and renders it the way a corpus run would.
func describe(p *isa.Profile, op int) (*detail, error) {
	d := p.Desc(op)
	if d == nil {
		return nil, fmt.Errorf("opcode %d out of range", op)
	}
	det := &detail{Record: classify.Classify(p, d)}
	if det.Record.Outcome != classify.Built {
		return det, fmt.Errorf("%s: %w (%s)", d.Mnemonic, errNotBuilt, det.Record.Outcome)
	}
	inst, err := synth.New(p).Assign(d)
	if err != nil {
		return det, fmt.Errorf("%s: assign: %w", d.Mnemonic, err)
	}
	det.Inst = inst
	det.Operands = inst.Format(p)
	if det.Code, err = p.Encoder.Encode(inst); err != nil {
		return det, fmt.Errorf("%s: encode: %w", d.Mnemonic, err)
	}
	if det.Term, err = p.Encoder.Encode(p.Terminator()); err != nil {
		return det, fmt.Errorf("encode terminator: %w", err)
	}
	det.Text = emit.Unprintable
	if det.Record.Printable {
		if det.Text, err = p.Printer.Print(inst); err != nil {
			return det, fmt.Errorf("%s: print: %w", d.Mnemonic, err)
		}
		if dec, err := targets.Decoder(p.Name); err == nil {
			artifact := append(append([]byte(nil), det.Code...), det.Term...)
			det.Listing, det.ListingErr = disasm.DecodeAll(dec, artifact)
			if det.ListingErr != nil {
				slog.Debug("Partial listing", "arch", p.Name, "mnemonic", d.Mnemonic, "error", det.ListingErr)
			}
		}
	}
	return det, nil
}

func writeDetail(w io.Writer, arch string, det *detail, color bool) {
	r := det.Record
	fmt.Fprintf(w, "opcode    %d\n", r.Opcode)
	fmt.Fprintf(w, "mnemonic  %s\n", r.Mnemonic)
	fmt.Fprintf(w, "outcome   %s\n", r.Outcome)
	if r.Outcome != classify.Built {
		return
	}
	fmt.Fprintf(w, "operands  %s\n", det.Operands)
	fmt.Fprintf(w, "bytes     % x\n", det.Code)
	fmt.Fprintf(w, "artifact  % x | % x\n", det.Code, det.Term)
	fmt.Fprintf(w, "asm       %s\n", det.Text)
	if det.ListingErr != nil {
		fmt.Fprintf(w, "listing   %v\n", det.ListingErr)
	}
	if len(det.Listing) == 0 {
		return
	}
	fmt.Fprintln(w)
	width := 0
	for _, in := range det.Listing {
		width = max(width, len(in.Raw)*3-1)
	}
	for _, in := range det.Listing {
		line := colorize.Line(arch, in.VA, in.Raw, in.Text, width)
		if !color {
			line = colorize.Strip(line)
		}
		fmt.Fprintln(w, line)
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <arch> <opcode|mnemonic>",
		Short: "Synthesize one opcode and print its operands, bytes and assembly",
		Example: `
insncorpus show x86 ADD64rr
insncorpus show aarch64 12
  `,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider.Profile(args[0])
			if err != nil {
				return err
			}
			op, err := lookupOpcode(p, args[1])
			if err != nil {
				return err
			}
			det, err := describe(p, op)
			if det != nil {
				writeDetail(cmd.OutOrStdout(), p.Name, det, isTerminal(cmd.OutOrStdout()))
			}
			return err
		},
	}
}
