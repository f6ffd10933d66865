package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"insncorpus/internal/classify"
	"insncorpus/internal/corpus"
	"insncorpus/internal/insncorpus/styles"
)

// runGen validates every flag before touching the filesystem, then runs
// one architecture.
func (a *app) runGen(cmd *cobra.Command, _ []string) error {
	cfg, err := outputOptions(cmd)
	if err != nil {
		return err
	}
	arch, err := selectedArch(cmd)
	if err != nil {
		return err
	}
	cfg.Arch = arch
	cfg.Provider = a.provider
	cfg.Logger = a.log()

	sum, err := corpus.Run(cfg)
	if err != nil {
		return err
	}
	report(cmd.OutOrStdout(), sum)
	return nil
}

// reportMarkdown summarizes runs as a markdown document.
func reportMarkdown(sums ...*corpus.Summary) string {
	var b strings.Builder
	b.WriteString("# insncorpus\n\n")
	for _, s := range sums {
		fmt.Fprintf(&b, "## %s\n\n", s.Arch)
		b.WriteString("| outcome | opcodes |\n|---|---:|\n")
		for _, o := range classify.Outcomes {
			fmt.Fprintf(&b, "| %s | %d |\n", o, s.Counts[o])
		}
		fmt.Fprintf(&b, "\n%d %s artifacts in `%s`, %s.\n\n",
			s.Counts[classify.Built], s.Mode, s.OutDir, s.Duration.Round(time.Millisecond))
	}
	return b.String()
}

// reportPlain is the one line per run written when output is not a terminal.
func reportPlain(s *corpus.Summary) string {
	parts := make([]string, 0, len(classify.Outcomes))
	for _, o := range classify.Outcomes {
		parts = append(parts, fmt.Sprintf("%s=%d", strings.ToLower(o.String()), s.Counts[o]))
	}
	return fmt.Sprintf("%s: %s %s -> %s", s.Arch, s.Mode, strings.Join(parts, " "), s.OutDir)
}

func report(w io.Writer, sums ...*corpus.Summary) {
	if isTerminal(w) {
		fmt.Fprint(w, styles.RenderMarkdown(reportMarkdown(sums...), 80))
		return
	}
	for _, s := range sums {
		fmt.Fprintln(w, reportPlain(s))
	}
}
