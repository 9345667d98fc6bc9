package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// Line is one recognized text line.
type Line struct {
	Text       string
	Confidence float32 // 0..1, 0 when the engine does not report it
}

// Engine detects and recognizes text in a decoded image. Lines are returned
// in the engine's reading order; no detections is an empty slice, not an error.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) ([]Line, error)
}

// JoinLines joins line texts with newlines, skipping blank lines.
func JoinLines(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := strings.TrimSpace(l.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// MeanConfidence averages the reported confidences, ignoring zeros.
func MeanConfidence(lines []Line) float32 {
	var sum float32
	var n int
	for _, l := range lines {
		if l.Confidence > 0 {
			sum += l.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float32(n)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
