package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/extract"
)

// Extractor turns a named blob into text. *extract.Dispatcher satisfies it.
type Extractor interface {
	Extract(ctx context.Context, name string, data []byte) (extract.Result, error)
}

type ExtractStage struct {
	Extractor Extractor
	Logger    *slog.Logger
}

func NewExtractStage(x Extractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Extractor: x, Logger: logger}
}

// Run extracts data and stores the text on doc.
func (s *ExtractStage) Run(ctx context.Context, doc *entity.Document, data []byte) (extract.Result, error) {
	start := time.Now()
	res, err := s.Extractor.Extract(ctx, doc.FileName(), data)
	if err != nil {
		return res, err
	}
	if err := doc.SetContent(res.Text); err != nil {
		return res, err
	}
	for _, w := range res.Warnings {
		s.Logger.Warn("pipeline.extract.warning", "file_name", doc.FileName(), "warning", w)
	}
	s.Logger.Info("pipeline.extract.ok",
		"file_name", doc.FileName(),
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
