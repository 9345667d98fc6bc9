// Package bootstrap turns a loaded Config into the long-lived handles every
// binary shares: the store, the OCR engine, the enricher, the archiver and the
// pipeline processor.
package bootstrap

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/docintake/internal/async"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/export"
	"github.com/joseph-ayodele/docintake/internal/extract"
	"github.com/joseph-ayodele/docintake/internal/llm"
	"github.com/joseph-ayodele/docintake/internal/llm/openai"
	"github.com/joseph-ayodele/docintake/internal/llm/vertex"
	"github.com/joseph-ayodele/docintake/internal/ocr"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
	"github.com/joseph-ayodele/docintake/internal/repository"
	"github.com/joseph-ayodele/docintake/internal/storage"
)

type Options struct {
	// SkipStore leaves DB, Documents and Exporter nil; used by dry runs.
	SkipStore bool
}

type Runtime struct {
	Config     *common.Config
	DB         *repository.DB
	Documents  repository.DocumentRepository
	Dispatcher *extract.Dispatcher
	Enricher   llm.Enricher
	Archiver   storage.Archiver
	Processor  *pipeline.Processor
	Exporter   *export.Service

	closers []func() error
	logger  *slog.Logger
}

// Build constructs every component once. On error, whatever was already
// opened is closed.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (_ *Runtime, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	engine, err := NewEngine(ctx, cfg.OCR, logger)
	if err != nil {
		return nil, err
	}
	if c, ok := engine.(interface{ Close() error }); ok {
		rt.closers = append(rt.closers, c.Close)
	}
	rt.Dispatcher = NewDispatcher(cfg, engine, logger)

	if cfg.EnrichmentEnabled() {
		if rt.Enricher, err = NewEnricher(ctx, cfg.LLM, logger); err != nil {
			return nil, err
		}
		if c, ok := rt.Enricher.(interface{ Close() error }); ok {
			rt.closers = append(rt.closers, c.Close)
		}
	} else {
		logger.Warn("enrichment disabled", "provider", cfg.LLM.Provider, "enrich", cfg.Pipeline.Enrich)
	}

	deps := pipeline.Deps{
		Dispatcher: rt.Dispatcher,
		Enricher:   pipeline.NewEnrichStage(rt.Enricher, logger),
		Pool: async.NewPool(logger,
			async.WithWorkers(cfg.Pipeline.ArchiveWorkers),
			async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
		),
		Timeout: cfg.Pipeline.ProcessTimeout,
	}

	if !opts.SkipStore {
		db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return nil, err
		}
		rt.DB = db
		rt.closers = append(rt.closers, func() error { db.Close(); return nil })
		rt.Documents = repository.NewDocumentRepository(db, logger)
		rt.Exporter = export.NewService(rt.Documents, logger)
		deps.Store = rt.Documents

		arch, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		if arch != nil {
			rt.Archiver = arch
			rt.closers = append(rt.closers, arch.Close)
			deps.Archiver = arch
		}
	}

	rt.Processor = pipeline.NewProcessor(logger, deps)
	return rt, nil
}

// EnrichmentEnabled reports whether a collaborator was built.
func (r *Runtime) EnrichmentEnabled() bool { return r.Enricher != nil }

// Close releases handles in reverse construction order.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.logger.Warn("close failed", "error", err)
		}
	}
	r.closers = nil
}

// NewEngine builds the configured OCR engine.
func NewEngine(ctx context.Context, cfg common.OCRConfig, logger *slog.Logger) (ocr.Engine, error) {
	switch strings.ToLower(cfg.Engine) {
	case "documentai":
		e, err := ocr.NewDocumentAIEngine(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.DocumentAIProject,
			Location:    cfg.DocumentAILocation,
			ProcessorID: cfg.DocumentAIProcessor,
		}, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return ocr.NewTesseractEngine(ocr.TesseractConfig{
			Binary:      cfg.Tesseract,
			Lang:        cfg.TesseractLang,
			TessdataDir: cfg.TessdataDir,
			PSM:         cfg.PSM,
		}, nil, logger), nil
	}
}

// NewDispatcher wires the four extraction strategies around engine.
func NewDispatcher(cfg *common.Config, engine ocr.Engine, logger *slog.Logger) *extract.Dispatcher {
	images := extract.NewImageStrategy(engine, cfg.OCR.StrictImageDecode, logger)
	rasterizer := ocr.NewPopplerRasterizer(ocr.PopplerConfig{
		Pdftoppm: cfg.PDF.Pdftoppm,
		DPI:      cfg.PDF.DPI,
		MaxPages: cfg.PDF.MaxPages,
	}, nil, logger)
	mode := extract.PDFModeOCR
	if strings.EqualFold(cfg.PDF.Mode, extract.PDFModeAuto) {
		mode = extract.PDFModeAuto
	}
	return extract.NewDispatcher(extract.Strategies{
		Image: images,
		PDF:   extract.NewPDFStrategy(extract.PDFConfig{Workers: cfg.PDF.Workers, Mode: mode}, rasterizer, images, logger),
		XML:   extract.NewXMLStrategy(logger),
		DOCX:  extract.NewDOCXStrategy(logger),
	}, logger)
}

// NewEnricher builds the configured language-model backend.
func NewEnricher(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Enricher, error) {
	switch strings.ToLower(cfg.Provider) {
	case "vertex":
		model := cfg.Model
		if strings.HasPrefix(model, "gpt-") {
			model = ""
		}
		c, err := vertex.NewClient(ctx, vertex.Config{
			ProjectID: cfg.VertexProject,
			Location:  cfg.VertexLocation,
			Model:     model,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			RateLimit:   cfg.RateLimit,
		}, logger), nil
	}
}
