package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/ocr"
)

// ImageStrategy decodes a PNG or JPEG and runs it through an OCR engine.
type ImageStrategy struct {
	engine ocr.Engine
	strict bool
	logger *slog.Logger
}

// NewImageStrategy builds the image strategy. With strict set, undecodable
// images fail with InvalidFormat instead of yielding an error text.
func NewImageStrategy(engine ocr.Engine, strict bool, logger *slog.Logger) *ImageStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageStrategy{engine: engine, strict: strict, logger: logger}
}

func (s *ImageStrategy) Extract(ctx context.Context, name string, data []byte) (Result, error) {
	start := time.Now()
	res := Result{Pages: 1, Method: MethodImageOCR}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if s.strict {
			return res, common.InvalidFormat(fmt.Sprintf("cannot decode image %q", name), err)
		}
		s.logger.Warn("extract.image.decode_failed", "file_name", name, "error", err)
		res.Text = fmt.Sprintf("error processing image: %v", err)
		res.Warnings = append(res.Warnings, "image could not be decoded: "+err.Error())
		res.Duration = time.Since(start)
		return res, nil
	}

	lines, err := s.engine.Recognize(ctx, img)
	if err != nil {
		if common.KindOf(err) == "" && ctx.Err() == nil {
			err = common.ExtractionFailed(fmt.Sprintf("%s ocr on %q", s.engine.Name(), name), err)
		}
		return res, err
	}
	res.Text = ocr.JoinLines(lines)
	res.Duration = time.Since(start)

	s.logger.Debug("extract.image.ok",
		"file_name", name,
		"format", format,
		"engine", s.engine.Name(),
		"lines", len(lines),
		"confidence", ocr.MeanConfidence(lines),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
