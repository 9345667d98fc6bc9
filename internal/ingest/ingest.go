package ingest

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
)

// Processor is the pipeline entry point the ingestor feeds.
type Processor interface {
	ProcessPath(ctx context.Context, path string, opts pipeline.Options) []pipeline.Outcome
}

// Stats summarizes an ingest run.
type Stats struct {
	Files     int
	Outcomes  int
	Succeeded int
	Warnings  int
	Failed    int
}

func (s *Stats) add(outs []pipeline.Outcome) {
	s.Files++
	for _, o := range outs {
		s.Outcomes++
		switch o.Status {
		case constants.OutcomeOK:
			s.Succeeded++
		case constants.OutcomeWarning:
			s.Warnings++
		default:
			s.Failed++
		}
	}
}

// Ingestor feeds files from the local filesystem into the pipeline.
type Ingestor struct {
	proc       Processor
	opts       pipeline.Options
	skipHidden bool
	logger     *slog.Logger
}

func NewIngestor(proc Processor, opts pipeline.Options, skipHidden bool, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{proc: proc, opts: opts, skipHidden: skipHidden, logger: logger}
}

// IngestPaths processes every supported file named by paths, descending into
// directories. emit, when set, receives each file's outcomes as they finish.
func (i *Ingestor) IngestPaths(ctx context.Context, paths []string, emit func(path string, outs []pipeline.Outcome)) (Stats, error) {
	files, err := Collect(paths, i.skipHidden)
	if err != nil {
		return Stats{}, err
	}
	i.logger.Info("ingest.start", "files", len(files))

	var stats Stats
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		outs := i.proc.ProcessPath(ctx, p, i.opts)
		stats.add(outs)
		if emit != nil {
			emit(p, outs)
		}
	}
	i.logger.Info("ingest.done",
		"files", stats.Files,
		"succeeded", stats.Succeeded,
		"warnings", stats.Warnings,
		"failed", stats.Failed,
	)
	return stats, nil
}
