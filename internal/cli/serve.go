package cli

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/bootstrap"
	"github.com/joseph-ayodele/docintake/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var httpAddr, grpcAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if httpAddr != "" {
				a.cfg.Server.HTTPAddr = httpAddr
			}
			if grpcAddr != "" {
				a.cfg.Server.GRPCAddr = grpcAddr
			}
			ctx := cmd.Context()
			rt, err := a.runtime(ctx, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer rt.Close()
			return server.NewDaemonFromRuntime(rt, a.logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (default from config)")
	return cmd
}
