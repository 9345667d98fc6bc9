package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/llm"
)

type EnrichStage struct {
	Enricher llm.Enricher
	Logger   *slog.Logger
}

func NewEnrichStage(e llm.Enricher, logger *slog.Logger) *EnrichStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrichStage{Enricher: e, Logger: logger}
}

// Enabled reports whether a collaborator is configured.
func (s *EnrichStage) Enabled() bool {
	return s != nil && s.Enricher != nil
}

// Run classifies doc and merges the model's fields into it. Blank content is
// classified as empty-or-illegible without calling the model.
func (s *EnrichStage) Run(ctx context.Context, doc *entity.Document) error {
	if !s.Enabled() {
		return nil
	}
	if strings.TrimSpace(doc.ExtractedContent()) == "" {
		s.Logger.Info("pipeline.enrich.skipped", "file_name", doc.FileName(), "reason", "empty content")
		return doc.SetDocumentType(string(constants.EmptyOrIllegible))
	}

	start := time.Now()
	fields, err := s.Enricher.ExtractDetails(ctx, doc.ExtractedContent())
	if err != nil {
		s.Logger.Error("pipeline.enrich.failed", "file_name", doc.FileName(), "error", err)
		return err
	}
	docType := popDocumentType(fields)
	if err := doc.SetDocumentType(docType); err != nil {
		return err
	}
	if err := doc.MergeFields(fields); err != nil {
		return fmt.Errorf("merge fields: %w", err)
	}
	s.Logger.Info("pipeline.enrich.ok",
		"file_name", doc.FileName(),
		"document_type", docType,
		"fields", len(fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// popDocumentType removes both classification keys from fields and returns the
// canonical label. document_type wins over tipo_documento.
func popDocumentType(fields map[string]any) string {
	var label string
	for _, key := range []string{llm.FieldTipoDocumento, llm.FieldDocumentType} {
		v, ok := fields[key]
		if !ok {
			continue
		}
		delete(fields, key)
		if s := strings.TrimSpace(fmt.Sprint(v)); v != nil && s != "" {
			label = s
		}
	}
	t, _ := constants.CanonicalDocumentType(label)
	return string(t)
}
