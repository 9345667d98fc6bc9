package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
)

// Dispatcher routes a file to its extraction strategy by extension alone.
type Dispatcher struct {
	image  Strategy
	pdf    Strategy
	xml    Strategy
	docx   Strategy
	logger *slog.Logger
}

type Strategies struct {
	Image Strategy
	PDF   Strategy
	XML   Strategy
	DOCX  Strategy
}

func NewDispatcher(s Strategies, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{image: s.Image, pdf: s.PDF, xml: s.XML, docx: s.DOCX, logger: logger}
}

// Select returns the strategy for name. ".doc" is NotSupported; any other
// unknown extension, ".zip" included, is UnknownFormat.
func (d *Dispatcher) Select(name string) (Strategy, error) {
	ext := constants.ExtOf(name)
	var s Strategy
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		s = d.pdf
	case constants.XML:
		s = d.xml
	case constants.DOCX:
		s = d.docx
	case constants.IMAGE:
		s = d.image
	case constants.DOC:
		return nil, common.NotSupported("legacy .doc files are not supported; convert to .docx or .pdf")
	default:
		return nil, common.UnknownFormat(ext)
	}
	if s == nil {
		return nil, common.NotSupported("no extractor configured for ." + ext)
	}
	return s, nil
}

// IsArchive reports whether name should go through archive expansion instead of Extract.
func (d *Dispatcher) IsArchive(name string) bool {
	return constants.MapExtToFormat(constants.ExtOf(name)) == constants.ZIP
}

func (d *Dispatcher) Extract(ctx context.Context, name string, data []byte) (Result, error) {
	s, err := d.Select(name)
	if err != nil {
		d.logger.Warn("extract.dispatch.rejected", "file_name", name, "error", err)
		return Result{}, err
	}
	d.logger.Debug("extract.dispatch", "file_name", name, "bytes", len(data))
	return s.Extract(ctx, name, data)
}
