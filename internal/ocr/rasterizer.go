package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docintake/internal/common"
)

const popplerInstallHint = "install poppler (apt install poppler-utils, brew install poppler, or add poppler's bin directory to PATH on Windows)"

// Rasterizer renders every page of a PDF to an image file.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) (*RenderedPages, error)
}

// RenderedPages lists page images in ascending page order. Close removes them.
type RenderedPages struct {
	Paths []string
	dir   string
}

// NewRenderedPages wraps existing page files; dir (optional) is removed on Close.
func NewRenderedPages(paths []string, dir string) *RenderedPages {
	return &RenderedPages{Paths: paths, dir: dir}
}

func (r *RenderedPages) Close() error {
	if r == nil || r.dir == "" {
		return nil
	}
	return os.RemoveAll(r.dir)
}

type PopplerConfig struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // default 200
	MaxPages int    // 0 = no limit
	TempDir  string
}

// PopplerRasterizer renders pages with pdftoppm.
type PopplerRasterizer struct {
	cfg    PopplerConfig
	runner Runner
	logger *slog.Logger
}

func NewPopplerRasterizer(cfg PopplerConfig, runner Runner, logger *slog.Logger) *PopplerRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &PopplerRasterizer{cfg: cfg, runner: runner, logger: logger}
}

func (p *PopplerRasterizer) Rasterize(ctx context.Context, pdf []byte) (*RenderedPages, error) {
	tmpDir, err := os.MkdirTemp(p.cfg.TempDir, "docintake-pp-*")
	if err != nil {
		return nil, common.ExtractionFailed("create temp dir", err)
	}
	pages := &RenderedPages{dir: tmpDir}
	fail := func(err error) (*RenderedPages, error) {
		if cerr := pages.Close(); cerr != nil {
			p.logger.Warn("ocr.pdf.cleanup_failed", "dir", tmpDir, "error", cerr)
		}
		return nil, err
	}

	in := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return fail(common.ExtractionFailed("write temp pdf", err))
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png [-l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(p.cfg.DPI), "-png"}
	if p.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(p.cfg.MaxPages))
	}
	args = append(args, in, prefix)

	_, errb, err := p.runner.Run(ctx, p.cfg.Pdftoppm, args...)
	if err != nil {
		if IsMissingBinary(err) {
			return fail(common.MissingDependency("poppler (pdftoppm)", popplerInstallHint, err))
		}
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		return fail(common.ExtractionFailed(fmt.Sprintf("pdftoppm: %s", strings.TrimSpace(truncate(string(errb), 512))), err))
	}

	// collect generated pngs (page-1.png ... or zero padded page-01.png ...)
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return fail(common.ExtractionFailed("list rendered pages", err))
	}
	if len(matches) == 0 {
		return fail(common.ExtractionFailed("pdftoppm produced no pages", nil))
	}
	sortPagePaths(matches)
	pages.Paths = matches

	p.logger.Debug("ocr.pdf.rasterized", "pages", len(matches), "dpi", p.cfg.DPI)
	return pages, nil
}

// sortPagePaths orders "<prefix>-<n>.png" by n, not lexically.
func sortPagePaths(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return pageNumber(paths[i]) < pageNumber(paths[j])
	})
}

func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0
	}
	return n
}
