package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"insncorpus/internal/corpus"
	"insncorpus/internal/emit"
	clog "insncorpus/internal/insncorpus/log"
	"insncorpus/internal/isa/targets"
	"insncorpus/internal/logging"
)

// Exit statuses.
const (
	ExitOK       = 0
	ExitFatal    = 1
	ExitUsage    = 2 // unknown flag or argument
	ExitConflict = 3 // mutually exclusive flags
	ExitNoArch   = 4
	ExitManyArch = 5
)

// UsageError is a command line error. Code is the exit status.
type UsageError struct {
	Code int
	Err  error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func usagef(code int, format string, args ...any) error {
	return &UsageError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ue *UsageError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ExitFatal
}

// archFlags are the architecture selectors, in help order.
var archFlags = []string{"x86", "arm", "aarch64", "mips"}

// app is the state shared by every command of one invocation.
type app struct {
	provider corpus.Provider
	logger   *logging.LoggerCloser
	debug    bool
}

func (a *app) log() *log.Logger {
	if a.logger == nil {
		a.logger = logging.NewLogger()
		if a.debug {
			a.logger.SetLevel(log.DebugLevel)
		}
		clog.Setup(a.logger.Logger)
	}
	return a.logger.Logger
}

func (a *app) close() error {
	if a.logger == nil {
		return nil
	}
	return a.logger.Close()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "insncorpus",
		Short: "Generate one-instruction corpora for instruction set architectures",
		Long: `Insncorpus walks every opcode an architecture defines, synthesizes a
valid operand list for each encodable instruction and writes one artifact per
instruction: its machine code followed by a return, or its assembly text.`,
		Example: `
# Build the x86 corpus in ./x86_corpus
insncorpus --x86

# Assembly text with every summary file, under /tmp/out
insncorpus gen --aarch64 --asm --logs --out /tmp/out

# Every architecture at once
insncorpus all --results
  `,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runGen,
	}
	root.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "Debug logging")
	addArchFlags(root)
	addOutputFlags(root)

	gen := &cobra.Command{
		Use:   "gen",
		Short: "Generate the corpus of one architecture",
		Args:  noArgs,
		RunE:  a.runGen,
	}
	addArchFlags(gen)
	addOutputFlags(gen)

	root.AddCommand(gen, newAllCmd(a), newListCmd(a), newShowCmd(a), newBrowseCmd(a), newSchemaCmd())
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Code: ExitUsage, Err: err}
	})
	return root
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef(ExitUsage, "unexpected argument %q for %s", args[0], cmd.CommandPath())
	}
	return nil
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef(ExitUsage, "%s takes %d argument(s), got %d", cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}

func addArchFlags(c *cobra.Command) {
	for _, name := range archFlags {
		c.Flags().Bool(name, false, "Generate the "+name+" corpus")
	}
}

func addOutputFlags(c *cobra.Command) {
	f := c.Flags()
	f.Bool("asm", false, "Write assembly text artifacts")
	f.Bool("bin", false, "Write machine code artifacts (default)")
	f.Bool("results", false, "Write <arch>_results.txt")
	f.Bool("logs", false, "Write the results, unsupported and supported summaries")
	f.StringP("out", "o", ".", "Output root directory")
}

// outputOptions reads the shared output flags.
func outputOptions(c *cobra.Command) (corpus.Config, error) {
	asm, _ := c.Flags().GetBool("asm")
	bin, _ := c.Flags().GetBool("bin")
	results, _ := c.Flags().GetBool("results")
	logs, _ := c.Flags().GetBool("logs")
	out, _ := c.Flags().GetString("out")

	var cfg corpus.Config
	if asm && bin {
		return cfg, usagef(ExitConflict, "--asm and --bin are mutually exclusive")
	}
	if results && logs {
		return cfg, usagef(ExitConflict, "--results and --logs are mutually exclusive")
	}
	if asm {
		cfg.Mode = emit.ModeText
	}
	switch {
	case logs:
		cfg.Summaries = corpus.SummaryAll
	case results:
		cfg.Summaries = corpus.SummaryResults
	}
	cfg.OutRoot = out
	return cfg, nil
}

// selectedArch returns the one architecture flag that is set.
func selectedArch(c *cobra.Command) (string, error) {
	var picked []string
	for _, name := range archFlags {
		if on, _ := c.Flags().GetBool(name); on {
			picked = append(picked, name)
		}
	}
	switch len(picked) {
	case 0:
		return "", usagef(ExitNoArch, "no architecture selected; pass one of --x86, --arm, --aarch64 or --mips")
	case 1:
		return picked[0], nil
	}
	return "", usagef(ExitManyArch, "select exactly one architecture, got %d", len(picked))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// execute runs one invocation and returns its exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{provider: targets.Provider{}}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	var err error
	if isTerminal(stdout) {
		err = fang.Execute(ctx, root, fang.WithNotifySignal(os.Interrupt))
	} else {
		err = root.ExecuteContext(ctx)
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			if ExitCode(err) != ExitFatal {
				fmt.Fprintln(stderr, "Run 'insncorpus --help' for usage.")
			}
		}
	}
	return ExitCode(err)
}

// Execute runs the command line and exits with its status.
func Execute() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
