// Package cli implements the docintake command line.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/bootstrap"
	"github.com/joseph-ayodele/docintake/internal/common"
)

// Version is set at build time.
var Version = "dev"

type app struct {
	configPath string
	logLevel   string
	jsonOut    bool

	cfg    *common.Config
	logger *slog.Logger
	logOut io.Writer
}

func (a *app) load() error {
	cfg, err := common.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	// stdout carries results; logs go to stderr
	a.logger = common.NewLogger(a.logOut, cfg.SlogLevel())
	return nil
}

func (a *app) runtime(ctx context.Context, opts bootstrap.Options) (*bootstrap.Runtime, error) {
	return bootstrap.Build(ctx, a.cfg, a.logger, opts)
}

// NewRootCommand builds the command tree. Logs are written to logOut.
func NewRootCommand(logOut io.Writer) *cobra.Command {
	if logOut == nil {
		logOut = os.Stderr
	}
	a := &app{logOut: logOut}

	root := &cobra.Command{
		Use:           "docintake",
		Short:         "Extract, classify and store document text",
		Long:          `docintake extracts text from PDF, image, XML and DOCX files (or ZIP bundles of them), optionally enriches it with a language model and stores the result.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a TOML config file (default $DOCINTAKE_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of styled output")

	root.AddCommand(
		newProcessCmd(a),
		newWatchCmd(a),
		newExportCmd(a),
		newStatsCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCommand(os.Stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		NewRenderer(root.ErrOrStderr(), false, false).Error(err)
		return 1
	}
	return 0
}
