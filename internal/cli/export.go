package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/bootstrap"
	"github.com/joseph-ayodele/docintake/internal/repository"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		out     string
		docType string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored documents to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			ctx := cmd.Context()
			rt, err := a.runtime(ctx, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()

			b, err := rt.Exporter.ExportDocumentsXLSX(ctx, repository.ListFilter{Limit: limit, DocumentType: docType})
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(b))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output .xlsx path")
	cmd.Flags().StringVar(&docType, "type", "", "only export this document type")
	cmd.Flags().IntVar(&limit, "limit", 10000, "maximum number of rows")
	return cmd
}
