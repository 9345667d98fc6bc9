package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/repository"
)

// ConnectDB opens the store described by cfg and returns it with its document repository.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repository.DB, repository.DocumentRepository, error) {
	db, err := repository.Open(ctx, repository.ConfigFrom(cfg), logger)
	if err != nil {
		return nil, nil, err
	}
	return db, repository.NewDocumentRepository(db, logger), nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repository.DB, logger *slog.Logger, timeout time.Duration) error {
	if err := db.HealthCheck(ctx, timeout); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	return nil
}
