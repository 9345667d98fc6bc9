package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docintake/internal/common"
)

// Archiver keeps a copy of an uploaded original and returns its object key.
type Archiver interface {
	Archive(ctx context.Context, fileName string, data []byte) (string, error)
	Close() error
}

var reUnsafeKey = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds "originals/YYYY/MM/DD/<id>-<safe name>".
func ObjectKey(fileName string, now time.Time, id uuid.UUID) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	safe := strings.Trim(reUnsafeKey.ReplaceAllString(base, "_"), "_")
	if safe == "" || safe == "." {
		safe = "file"
	}
	return fmt.Sprintf("originals/%s/%s-%s", now.UTC().Format("2006/01/02"), id.String(), safe)
}

// New builds the archiver selected by cfg.Backend; "" returns nil, nil.
func New(ctx context.Context, cfg common.StorageConfig) (Archiver, error) {
	switch strings.ToLower(cfg.Backend) {
	case "":
		return nil, nil
	case "s3":
		a, err := NewS3Archiver(ctx, S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.Bucket,
		})
		if err != nil {
			return nil, err
		}
		return a, nil
	case "gcs":
		a, err := NewGCSArchiver(ctx, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown storage backend %q", cfg.Backend), common.ErrInvalidInput)
	}
}
