package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/docintake/internal/bootstrap"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		common.NewLogger(os.Stdout, slog.LevelInfo).Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(os.Stdout, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	if err := server.PingDB(ctx, rt.DB, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}

	logger.Info("docintaked starting",
		"http_addr", cfg.Server.HTTPAddr,
		"grpc_addr", cfg.Server.GRPCAddr,
		"ocr_engine", cfg.OCR.Engine,
		"enrichment", rt.EnrichmentEnabled(),
	)
	if err := server.NewDaemonFromRuntime(rt, logger).Run(ctx); err != nil {
		logger.Error("daemon failed", "error", err)
		rt.Close()
		os.Exit(1)
	}
}
