// Package corpus drives one corpus run: it classifies every opcode of an
// architecture, synthesizes the buildable ones and writes one artifact
// per instruction into the architecture's output directory.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"insncorpus/internal/classify"
	"insncorpus/internal/emit"
	"insncorpus/internal/isa"
	"insncorpus/internal/logging"
	"insncorpus/internal/synth"
)

// Provider resolves an architecture name to its profile.
type Provider interface {
	Profile(name string) (*isa.Profile, error)
}

// Config is the configuration of one run.
type Config struct {
	// Arch is the architecture to generate.
	Arch string `json:"arch" jsonschema:"enum=x86,enum=arm,enum=aarch64,enum=mips"`
	// Mode selects binary or assembly text artifacts.
	Mode emit.Mode `json:"mode" jsonschema:"type=string,enum=bin,enum=asm,default=bin"`
	// Summaries selects the summary files.
	Summaries Summaries `json:"summaries" jsonschema:"type=string,enum=none,enum=results,enum=all,default=none"`
	// OutRoot holds the architecture directory and the summary files.
	OutRoot string `json:"out,omitempty" jsonschema:"default=."`

	Provider Provider    `json:"-"`
	Logger   *log.Logger `json:"-"`
}

// Summary is the outcome of a completed run.
type Summary struct {
	Arch     string
	Mode     emit.Mode
	OutDir   string
	Records  []classify.Record
	Counts   map[classify.Outcome]int
	Duration time.Duration
}

// Built returns the records of the artifacts written.
func (s *Summary) Built() []classify.Record {
	var out []classify.Record
	for _, r := range s.Records {
		if r.Outcome == classify.Built {
			out = append(out, r)
		}
	}
	return out
}

// Run executes one corpus run. Profile lookup happens before any
// filesystem change, so an unknown architecture leaves the output root
// untouched.
func Run(cfg Config) (sum *Summary, err error) {
	lg := cfg.Logger
	if lg == nil {
		lg = logging.Discard().Logger
	}
	if cfg.Provider == nil {
		return nil, errors.New("corpus: no descriptor provider")
	}
	root := cfg.OutRoot
	if root == "" {
		root = "."
	}

	// INIT
	start := time.Now()
	p, err := cfg.Provider.Profile(cfg.Arch)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.Arch, err)
	}
	if p.Encoder == nil || (cfg.Mode == emit.ModeText && p.Printer == nil) {
		return nil, fmt.Errorf("%w: %s has no encoder or printer", isa.ErrBadDescriptor, p.Name)
	}
	w, err := emit.New(p, cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name, err)
	}

	outDir := filepath.Join(root, p.OutDir)
	if err := os.RemoveAll(outDir); err != nil {
		return nil, fmt.Errorf("clear output: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	st, err := openStreams(root, p.Prefix, cfg.Summaries)
	if err != nil {
		return nil, err
	}
	// FINALIZE
	defer func() {
		err = errors.Join(err, st.close())
		if err != nil {
			sum = nil
		}
	}()
	staging, err := os.MkdirTemp(root, "."+p.OutDir+"-staging-")
	if err != nil {
		return nil, fmt.Errorf("create staging: %w", err)
	}
	defer os.RemoveAll(staging)

	lg.Info("generating corpus", "arch", p.Name, "triple", p.Triple, "mode", cfg.Mode, "opcodes", p.NumOpcodes())

	// ITERATE
	sum = &Summary{
		Arch:    p.Name,
		Mode:    cfg.Mode,
		OutDir:  outDir,
		Records: make([]classify.Record, 0, p.NumOpcodes()),
		Counts:  make(map[classify.Outcome]int, len(classify.Outcomes)),
	}
	eng := synth.New(p)
	names := NewNamer()
	for op := 0; op < p.NumOpcodes(); op++ {
		d := p.Desc(op)
		rec := classify.Classify(p, d)
		if rec.Outcome == classify.Built {
			inst, err := eng.Assign(d)
			if err != nil {
				return nil, fmt.Errorf("%s: assign: %w", p.Name, err)
			}
			rec.Name = names.Name(op, d.Mnemonic)
			a, err := w.Write(staging, rec.Name, inst, rec.Printable)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", p.Name, d.Mnemonic, err)
			}
			if err := a.Relocate(outDir); err != nil {
				return nil, err
			}
			lg.Debug("built", "opcode", op, "mnemonic", d.Mnemonic, "name", rec.Name, "bytes", len(a.Payload))
		} else {
			lg.Debug("skipped", "opcode", op, "mnemonic", d.Mnemonic, "outcome", rec.Outcome)
		}
		if err := st.record(rec); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
		sum.Records = append(sum.Records, rec)
		sum.Counts[rec.Outcome]++
	}
	if err := st.totals(sum.Counts); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	sum.Duration = time.Since(start)

	lg.Info("corpus written",
		"arch", p.Name,
		"dir", outDir,
		"built", sum.Counts[classify.Built],
		"pseudo", sum.Counts[classify.Pseudo],
		"unsupported", sum.Counts[classify.Unsupported],
		"special", sum.Counts[classify.SpecialError],
	)
	return sum, nil
}
