package cmd

import (
	"github.com/spf13/cobra"

	"insncorpus/internal/corpus"
	"insncorpus/internal/isa/targets"
)

func newAllCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "all",
		Short: "Generate the corpus of every implemented architecture in parallel",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			base, err := outputOptions(cmd)
			if err != nil {
				return err
			}
			var cfgs []corpus.Config
			for _, arch := range targets.Names() {
				cfg := base
				cfg.Arch = arch
				cfg.Provider = a.provider
				cfg.Logger = a.log().With("arch", arch)
				cfgs = append(cfgs, cfg)
			}
			sums, err := corpus.RunAll(cfgs)
			if err != nil {
				return err
			}
			report(cmd.OutOrStdout(), sums...)
			return nil
		},
	}
	addOutputFlags(c)
	return c
}
