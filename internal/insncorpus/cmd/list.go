package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/spf13/cobra"

	"insncorpus/internal/classify"
	"insncorpus/internal/insncorpus/styles"
	"insncorpus/internal/isa"
	"insncorpus/internal/ui/colorize"
)

func newListCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "list <arch>",
		Short: "Print the classification of every opcode without writing files",
		Example: `
# Every opcode of arm
insncorpus list arm

# Only the opcodes that have no encoding
insncorpus list x86 --outcome unsupported
  `,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, _ := cmd.Flags().GetString("outcome")
			asJSON, _ := cmd.Flags().GetBool("json")

			want, err := parseOutcomeFilter(filter)
			if err != nil {
				return err
			}
			p, err := a.provider.Profile(args[0])
			if err != nil {
				return err
			}
			var recs []classify.Record
			for _, r := range classify.All(p) {
				if want == nil || want[r.Outcome] {
					recs = append(recs, r)
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			writeTable(cmd.OutOrStdout(), p, recs, isTerminal(cmd.OutOrStdout()) && colorize.Enabled())
			return nil
		},
	}
	c.Flags().String("outcome", "", "Only list opcodes with this outcome (built, pseudo, unsupported, special_error)")
	c.Flags().BoolP("json", "j", false, "Output records as JSON")
	return c
}

// parseOutcomeFilter maps a comma separated outcome list to a set. An
// empty list selects everything.
func parseOutcomeFilter(s string) (map[classify.Outcome]bool, error) {
	if s == "" {
		return nil, nil
	}
	set := make(map[classify.Outcome]bool)
	for _, name := range strings.Split(s, ",") {
		found := false
		for _, o := range classify.Outcomes {
			if strings.EqualFold(strings.TrimSpace(name), o.String()) {
				set[o] = true
				found = true
			}
		}
		if !found {
			return nil, usagef(ExitUsage, "unknown outcome %q", name)
		}
	}
	return set, nil
}

func writeTable(w io.Writer, p *isa.Profile, recs []classify.Record, color bool) {
	width := len("MNEMONIC")
	for _, r := range recs {
		width = max(width, len(r.Mnemonic))
	}
	row := func(op, mnem, outcome, note string, o classify.Outcome) string {
		line := fmt.Sprintf("%6s  %-*s  %-13s  %s", op, width, mnem, outcome, note)
		if !color {
			return strings.TrimRight(line, " ")
		}
		return strings.TrimRight(fmt.Sprintf("%s  %s  %s  %s",
			styles.Muted.Render(fmt.Sprintf("%6s", op)),
			styles.Mnemonic.Render(fmt.Sprintf("%-*s", width, mnem)),
			styles.Outcome(o).Render(fmt.Sprintf("%-13s", outcome)),
			note), " ")
	}

	header := row("OPCODE", "MNEMONIC", "OUTCOME", "NOTE", classify.Built)
	if color {
		header = styles.Title.Render(strings.TrimRight(fmt.Sprintf("%6s  %-*s  %-13s  %s", "OPCODE", width, "MNEMONIC", "OUTCOME", "NOTE"), " "))
	}
	fmt.Fprintln(w, header)
	counts := make(map[classify.Outcome]int)
	for _, r := range recs {
		note := ""
		if r.Outcome == classify.Built && !r.Printable {
			note = "not printable"
		}
		fmt.Fprintln(w, row(fmt.Sprint(r.Opcode), r.Mnemonic, r.Outcome.String(), note, r.Outcome))
		counts[r.Outcome]++
	}

	var parts []string
	for _, o := range classify.Outcomes {
		part := fmt.Sprintf("%s %d", strings.ToLower(o.String()), counts[o])
		if color {
			part = styles.Outcome(o).Render(part)
		}
		parts = append(parts, part)
	}
	footer := fmt.Sprintf("%s (%s): %d of %d opcodes; %s", p.Name, p.Triple, len(recs), p.NumOpcodes(), strings.Join(parts, ", "))
	if color {
		footer = lipgloss.NewStyle().MarginTop(1).Render(footer)
	}
	fmt.Fprintln(w, footer)
}
