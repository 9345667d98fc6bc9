package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docintake/internal/common"
)

const tesseractInstallHint = "install tesseract-ocr with the language data you need (apt install tesseract-ocr tesseract-ocr-por, brew install tesseract tesseract-lang) and make sure the binary is on PATH"

type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "por"
	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	TempDir     string
}

// TesseractEngine shells out to the tesseract CLI in TSV mode. Each call runs
// its own process, so the engine is safe for concurrent use.
type TesseractEngine struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(cfg TesseractConfig, runner Runner, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "por"
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &TesseractEngine{cfg: cfg, runner: runner, logger: logger}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) ([]Line, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, common.ExtractionFailed("prepare image for tesseract", err)
	}

	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "docintake-tess-*")
	if err != nil {
		return nil, common.ExtractionFailed("create temp dir", err)
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("ocr.tesseract.cleanup_failed", "dir", path, "error", err)
		}
	}(tmpDir)

	in := filepath.Join(tmpDir, "input.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, common.ExtractionFailed("write temp image", err)
	}

	// tesseract <file> stdout -l <lang> [--psm N] [--tessdata-dir D] tsv
	args := []string{in, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Binary, args...)
	if err != nil {
		if IsMissingBinary(err) {
			return nil, common.MissingDependency("tesseract", tesseractInstallHint, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.ExtractionFailed(fmt.Sprintf("tesseract: %s", strings.TrimSpace(truncate(string(errb), 512))), err)
	}
	return parseTSV(string(out)), nil
}

type lineKey struct {
	page, block, par, line int
}

// parseTSV groups word rows (level 5) into lines, keeping first-seen order.
// Columns: level page_num block_num par_num line_num word_num left top width height conf text
func parseTSV(tsv string) []Line {
	var order []lineKey
	words := map[lineKey][]string{}
	confSum := map[lineKey]float64{}
	confN := map[lineKey]int{}

	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue // header
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		k := lineKey{atoi(cols[1]), atoi(cols[2]), atoi(cols[3]), atoi(cols[4])}
		if _, seen := words[k]; !seen {
			order = append(order, k)
		}
		words[k] = append(words[k], text)
		if c, err := strconv.ParseFloat(cols[10], 64); err == nil && c >= 0 {
			confSum[k] += c
			confN[k]++
		}
	}

	lines := make([]Line, 0, len(order))
	for _, k := range order {
		l := Line{Text: normalizeLine(strings.Join(words[k], " "))}
		if confN[k] > 0 {
			l.Confidence = float32(confSum[k] / float64(confN[k]) / 100.0)
		}
		lines = append(lines, l)
	}
	return lines
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
