package corpus

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// RunAll executes independent runs in parallel. Each run owns its streams
// and directories; two configs may not target the same architecture under
// the same output root. Summaries are returned in cfgs order.
func RunAll(cfgs []Config) ([]*Summary, error) {
	seen := make(map[string]bool, len(cfgs))
	for _, cfg := range cfgs {
		key := filepath.Clean(cfg.OutRoot) + "\x00" + strings.ToLower(cfg.Arch)
		if seen[key] {
			return nil, fmt.Errorf("corpus: %s requested twice under %s", cfg.Arch, cfg.OutRoot)
		}
		seen[key] = true
	}

	sums := make([]*Summary, len(cfgs))
	var g errgroup.Group
	for i, cfg := range cfgs {
		g.Go(func() error {
			s, err := Run(cfg)
			if err != nil {
				return err
			}
			sums[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}
