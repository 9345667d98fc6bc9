package cli

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/bootstrap"
	"github.com/joseph-ayodele/docintake/internal/ingest"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
)

type processFlags struct {
	noEnrich    bool
	dryRun      bool
	showContent bool
	skipHidden  bool
}

func newProcessCmd(a *app) *cobra.Command {
	var f processFlags
	cmd := &cobra.Command{
		Use:   "process <path>...",
		Short: "Process files, directories or ZIP archives",
		Long:  `Extracts text from every supported file named (directories are walked recursively, ZIP archives expanded), enriches it when a language model is configured and stores one record per file.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := a.runtime(ctx, bootstrap.Options{SkipStore: f.dryRun})
			if err != nil {
				return err
			}
			defer rt.Close()

			r := NewRenderer(cmd.OutOrStdout(), a.jsonOut, f.showContent)
			enrich := !f.noEnrich && rt.EnrichmentEnabled()
			if !f.noEnrich && !rt.EnrichmentEnabled() {
				r.Warning("enrichment disabled: no language model configured (set OPENAI_API_KEY or LLM_PROVIDER=vertex)")
			}

			ing := ingest.NewIngestor(rt.Processor, pipeline.Options{Enrich: enrich, DryRun: f.dryRun}, f.skipHidden, a.logger)
			stats, err := ing.IngestPaths(ctx, args, func(_ string, outs []pipeline.Outcome) {
				for _, o := range outs {
					r.Outcome(o)
				}
			})
			if err != nil {
				return err
			}
			r.Summary(stats)
			if stats.Failed > 0 {
				return errFilesFailed(stats.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.noEnrich, "no-enrich", false, "skip language-model enrichment")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "extract and enrich but do not store anything")
	cmd.Flags().BoolVar(&f.showContent, "show-content", false, "print the extracted text")
	cmd.Flags().BoolVar(&f.skipHidden, "skip-hidden", true, "skip hidden files and directories when walking")
	return cmd
}
