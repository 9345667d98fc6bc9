package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/joseph-ayodele/docintake/internal/bootstrap"
	"github.com/joseph-ayodele/docintake/internal/common"
)

const shutdownTimeout = 30 * time.Second

// Daemon serves the HTTP API and the gRPC service until its context ends.
// An empty address disables that listener.
type Daemon struct {
	httpSrv  *http.Server
	grpcSrv  *grpc.Server
	grpcAddr string
	logger   *slog.Logger
}

func NewDaemon(cfg common.ServerConfig, handler http.Handler, grpcSrv *grpc.Server, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{grpcSrv: grpcSrv, grpcAddr: cfg.GRPCAddr, logger: logger}
	if cfg.HTTPAddr != "" && handler != nil {
		d.httpSrv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	return d
}

// Run blocks until ctx is cancelled or a listener fails, then shuts both down.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if d.grpcSrv != nil && d.grpcAddr != "" {
		lis, err := net.Listen("tcp", d.grpcAddr)
		if err != nil {
			return err
		}
		g.Go(func() error {
			d.logger.Info("grpc serving", "addr", lis.Addr().String())
			return d.grpcSrv.Serve(lis)
		})
		g.Go(func() error {
			<-ctx.Done()
			d.grpcSrv.GracefulStop()
			return nil
		})
	}

	if d.httpSrv != nil {
		g.Go(func() error {
			d.logger.Info("http serving", "addr", d.httpSrv.Addr)
			if err := d.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return d.httpSrv.Shutdown(sctx)
		})
	}

	err := g.Wait()
	d.logger.Info("daemon stopped")
	return err
}

// NewDaemonFromRuntime wires the HTTP router and gRPC server around rt.
func NewDaemonFromRuntime(rt *bootstrap.Runtime, logger *slog.Logger) *Daemon {
	cfg := rt.Config
	enrich := cfg.Pipeline.Enrich && rt.EnrichmentEnabled()
	h := NewDocumentHandler(rt.Processor, rt.Documents, rt.Exporter, HandlerConfig{
		Enrich:         enrich,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, logger)
	grpcSrv := NewGRPCServer(NewDocumentsServer(rt.Processor, rt.Documents, enrich, logger), logger)
	return NewDaemon(cfg.Server, NewRouter(h, logger), grpcSrv, logger)
}
