package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/ocr"
)

// PDF modes.
const (
	PDFModeOCR  = "ocr"
	PDFModeAuto = "auto"
)

type PDFConfig struct {
	Workers int    // concurrent page OCR, <= 1 is sequential
	Mode    string // ocr | auto
}

// PDFStrategy rasterizes every page and OCRs it with the image strategy.
// In auto mode pages carrying an embedded text layer skip OCR.
type PDFStrategy struct {
	cfg        PDFConfig
	rasterizer ocr.Rasterizer
	images     *ImageStrategy
	logger     *slog.Logger
}

func NewPDFStrategy(cfg PDFConfig, rasterizer ocr.Rasterizer, images *ImageStrategy, logger *slog.Logger) *PDFStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Mode == "" {
		cfg.Mode = PDFModeOCR
	}
	return &PDFStrategy{cfg: cfg, rasterizer: rasterizer, images: images, logger: logger}
}

func (s *PDFStrategy) Extract(ctx context.Context, name string, data []byte) (Result, error) {
	start := time.Now()
	res := Result{Method: MethodPDFOCR}

	expected, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		res.Warnings = append(res.Warnings, "page count check failed: "+err.Error())
		expected = -1
	}

	var layer []string
	if strings.EqualFold(s.cfg.Mode, PDFModeAuto) {
		layer = textLayer(data)
		if len(layer) > 0 && allNonBlank(layer) {
			res.Method = MethodPDFText
			res.Pages = len(layer)
			res.Text = strings.Join(layer, constants.PageMarker)
			res.Warnings = append(res.Warnings, pageCountWarning(expected, res.Pages)...)
			res.Duration = time.Since(start)
			s.logger.Info("extract.pdf.ok", "file_name", name, "method", res.Method, "pages", res.Pages, "elapsed_ms", res.Duration.Milliseconds())
			return res, nil
		}
	}

	rendered, err := s.rasterizer.Rasterize(ctx, data)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := rendered.Close(); cerr != nil {
			s.logger.Warn("extract.pdf.cleanup_failed", "file_name", name, "error", cerr)
		}
	}()

	texts := make([]string, len(rendered.Paths))
	warnings := make([][]string, len(rendered.Paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, path := range rendered.Paths {
		if i < len(layer) && strings.TrimSpace(layer[i]) != "" {
			texts[i] = layer[i]
			continue
		}
		g.Go(func() error {
			text, warns, err := s.ocrPage(gctx, name, i+1, path)
			if err != nil {
				return err
			}
			texts[i] = text
			warnings[i] = warns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for _, w := range warnings {
		res.Warnings = append(res.Warnings, w...)
	}
	res.Pages = len(texts)
	res.Text = strings.Join(texts, constants.PageMarker)
	res.Warnings = append(res.Warnings, pageCountWarning(expected, res.Pages)...)
	res.Duration = time.Since(start)

	s.logger.Info("extract.pdf.ok",
		"file_name", name,
		"method", res.Method,
		"pages", res.Pages,
		"workers", s.cfg.Workers,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (s *PDFStrategy) ocrPage(ctx context.Context, name string, page int, path string) (string, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read rendered page %d: %w", page, err)
	}
	pageName := fmt.Sprintf("%s#page-%d%s", name, page, filepath.Ext(path))
	r, err := s.images.Extract(ctx, pageName, data)
	if err != nil {
		return "", nil, err
	}
	s.logger.Debug("ocr.pdf.page.ok", "file_name", name, "page", page, "chars", len(r.Text))
	return r.Text, r.Warnings, nil
}

func pageCountWarning(expected, got int) []string {
	if expected < 0 || expected == got {
		return nil
	}
	return []string{fmt.Sprintf("page count mismatch: document declares %d pages, extracted %d", expected, got)}
}

// textLayer returns the embedded text of each page, or nil when the PDF
// cannot be read. Pages without text yield "".
func textLayer(data []byte) (pages []string) {
	defer func() {
		// ledongthuc/pdf panics on some malformed inputs
		if recover() != nil {
			pages = nil
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}
	n := r.NumPage()
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = strings.TrimSpace(text)
	}
	return pages
}

func allNonBlank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			return false
		}
	}
	return true
}
