package cli

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/bootstrap"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stored document counts per type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := a.runtime(ctx, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()

			counts, err := rt.Documents.CountByType(ctx)
			if err != nil {
				return err
			}
			NewRenderer(cmd.OutOrStdout(), a.jsonOut, false).Stats(counts)
			return nil
		},
	}
}
