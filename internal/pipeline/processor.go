package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/docintake/internal/async"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/extract"
)

// Store persists finished records.
type Store interface {
	Insert(ctx context.Context, doc *entity.Document) (int64, error)
}

// Archiver uploads original bytes and returns the object key.
type Archiver interface {
	Archive(ctx context.Context, fileName string, data []byte) (string, error)
}

// Options control a single Process call.
type Options struct {
	Enrich bool
	// DryRun skips archival and persistence; the record is sealed but has no id.
	DryRun bool
}

// Processor coordinates extraction, enrichment, archival and persistence.
type Processor struct {
	Logger     *slog.Logger
	Dispatcher *extract.Dispatcher
	Extract    *ExtractStage
	Enrich     *EnrichStage
	Store      Store
	Archiver   Archiver
	Pool       *async.Pool
	Timeout    time.Duration
}

type Deps struct {
	Dispatcher *extract.Dispatcher
	Enricher   *EnrichStage
	Store      Store
	Archiver   Archiver
	Pool       *async.Pool
	Timeout    time.Duration
}

func NewProcessor(logger *slog.Logger, d Deps) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if d.Pool == nil {
		d.Pool = async.NewPool(logger, async.WithProcessTimeout(d.Timeout))
	}
	if d.Timeout <= 0 {
		d.Timeout = 3 * time.Minute
	}
	if d.Enricher == nil {
		d.Enricher = NewEnrichStage(nil, logger)
	}
	return &Processor{
		Logger:     logger,
		Dispatcher: d.Dispatcher,
		Extract:    NewExtractStage(d.Dispatcher, logger),
		Enrich:     d.Enricher,
		Store:      d.Store,
		Archiver:   d.Archiver,
		Pool:       d.Pool,
		Timeout:    d.Timeout,
	}
}

// ProcessFile runs one non-archive file through the pipeline. A record is
// persisted only after extraction and enrichment both succeed.
func (p *Processor) ProcessFile(ctx context.Context, name string, data []byte, opts Options) (*entity.Document, extract.Result, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	ctx = common.WithFileName(ctx, name)
	ctx, cancel := common.WithTimeout(ctx, p.Timeout)
	defer cancel()

	log := p.Logger.With("req_id", reqID, "file_name", name)
	start := time.Now()
	log.Info("processor.file.start", "bytes", len(data), "enrich", opts.Enrich && p.Enrich.Enabled(), "dry_run", opts.DryRun)

	doc, err := entity.NewDocument(name)
	if err != nil {
		return nil, extract.Result{}, err
	}

	res, err := p.Extract.Run(ctx, doc, data)
	if err != nil {
		p.logFailure(log, err)
		return nil, res, err
	}

	if opts.Enrich {
		if err := p.Enrich.Run(ctx, doc); err != nil {
			p.logFailure(log, err)
			return nil, res, err
		}
	}

	if opts.DryRun || p.Store == nil {
		doc.Seal()
		log.Info("processor.file.ok", "persisted", false, "elapsed_ms", time.Since(start).Milliseconds())
		return doc, res, nil
	}

	if p.Archiver != nil {
		key, err := p.Archiver.Archive(ctx, name, data)
		if err != nil {
			p.logFailure(log, err)
			return nil, res, fmt.Errorf("archive original: %w", err)
		}
		if err := doc.SetSourceObject(key); err != nil {
			return nil, res, err
		}
	}
	id, err := p.Store.Insert(ctx, doc)
	if err != nil {
		p.logFailure(log, err)
		return nil, res, err
	}
	log.Info("processor.file.ok", "persisted", true, "id", id, "document_type", doc.DocumentType(), "elapsed_ms", time.Since(start).Milliseconds())
	return doc, res, nil
}

func (p *Processor) logFailure(log *slog.Logger, err error) {
	if common.IsWarning(err) {
		log.Warn("processor.file.skipped", "error", err)
		return
	}
	log.Error("processor.file.failed", "kind", common.KindOf(err), "error", err)
}

// ProcessArchive expands a ZIP and processes every entry independently. Only
// a corrupt archive fails the call; entry failures are reported per outcome.
func (p *Processor) ProcessArchive(ctx context.Context, data []byte, opts Options) ([]Outcome, error) {
	ctx, reqID := common.EnsureRequestID(ctx)
	entries, err := extract.ExpandArchive(data)
	if err != nil {
		p.Logger.Error("processor.archive.failed", "req_id", reqID, "error", err)
		return nil, err
	}
	p.Logger.Info("processor.archive.start", "req_id", reqID, "entries", len(entries), "workers", p.Pool.Workers())

	tasks := make([]async.Task[Outcome], len(entries))
	for i, e := range entries {
		tasks[i] = func(ctx context.Context) (Outcome, error) {
			doc, res, err := p.ProcessFile(ctx, e.Name, e.Data, opts)
			return newOutcome(e.Name, doc, res, err), nil
		}
	}
	results := async.Run(ctx, p.Pool, tasks)

	outcomes := make([]Outcome, len(results))
	for i, r := range results {
		outcomes[i] = r.Value
	}
	return outcomes, nil
}

// ProcessUpload handles a single upload: archives expand into one outcome per
// entry, anything else yields exactly one outcome.
func (p *Processor) ProcessUpload(ctx context.Context, name string, data []byte, opts Options) []Outcome {
	if p.Dispatcher.IsArchive(name) {
		outs, err := p.ProcessArchive(ctx, data, opts)
		if err != nil {
			return []Outcome{newOutcome(name, nil, extract.Result{}, err)}
		}
		return outs
	}
	doc, res, err := p.ProcessFile(ctx, name, data, opts)
	return []Outcome{newOutcome(name, doc, res, err)}
}

// ProcessPath reads a file from disk and processes it under its base name.
func (p *Processor) ProcessPath(ctx context.Context, path string, opts Options) []Outcome {
	name := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", common.ErrNotFound, path)
		} else {
			err = common.WrapError(err, "read "+path)
		}
		return []Outcome{newOutcome(name, nil, extract.Result{}, err)}
	}
	return p.ProcessUpload(ctx, name, data, opts)
}
