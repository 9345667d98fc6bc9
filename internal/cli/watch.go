package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/bootstrap"
	"github.com/joseph-ayodele/docintake/internal/ingest"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		noEnrich    bool
		initialScan bool
		debounce    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Process supported files as they appear in directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := a.runtime(ctx, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()

			r := NewRenderer(cmd.OutOrStdout(), a.jsonOut, false)
			if !noEnrich && !rt.EnrichmentEnabled() {
				r.Warning("enrichment disabled: no language model configured")
			}
			ing := ingest.NewIngestor(rt.Processor, pipeline.Options{Enrich: !noEnrich && rt.EnrichmentEnabled()}, true, a.logger)
			return ing.Watch(ctx, ingest.WatchConfig{Roots: args, InitialScan: initialScan, Debounce: debounce},
				func(_ string, outs []pipeline.Outcome) {
					for _, o := range outs {
						r.Outcome(o)
					}
				})
		},
	}
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "skip language-model enrichment")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", false, "process files already present at start")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "coalesce write bursts")
	return cmd
}
