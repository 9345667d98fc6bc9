package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintake/internal/ocr"
)

// widthEngine "recognizes" the image width, so page N renders as "page N".
type widthEngine struct {
	mu    sync.Mutex
	calls int
	err   error
	empty bool
}

func (e *widthEngine) Name() string { return "fake" }

func (e *widthEngine) Recognize(_ context.Context, img image.Image) ([]ocr.Line, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	if e.empty {
		return []ocr.Line{}, nil
	}
	return []ocr.Line{{Text: fmt.Sprintf("page %d", img.Bounds().Dx()), Confidence: 0.9}}, nil
}

func (e *widthEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// pageRasterizer writes n PNGs whose widths are their page numbers.
type pageRasterizer struct {
	pages int
	err   error
}

func (r *pageRasterizer) Rasterize(_ context.Context, _ []byte) (*ocr.RenderedPages, error) {
	if r.err != nil {
		return nil, r.err
	}
	dir, err := os.MkdirTemp("", "rast-test-*")
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, r.pages)
	for i := 1; i <= r.pages; i++ {
		p := filepath.Join(dir, fmt.Sprintf("page-%d.png", i))
		if err := os.WriteFile(p, pngOfWidth(i), 0o600); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return ocr.NewRenderedPages(paths, dir), nil
}

func pngOfWidth(w int) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, 2)))
	return buf.Bytes()
}

func makeZip(t *testing.T, files [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func makeDocx(t *testing.T, body string) []byte {
	t.Helper()
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`
	return makeZip(t, [][2]string{
		{"[Content_Types].xml", `<Types/>`},
		{"word/document.xml", doc},
	})
}

func para(runs ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	for _, r := range runs {
		b.WriteString("<w:r><w:t xml:space=\"preserve\">" + r + "</w:t></w:r>")
	}
	b.WriteString("</w:p>")
	return b.String()
}

func makePDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := fpdf.New("P", "mm", "A4", "")
	for i := 0; i < pages; i++ {
		pdf.AddPage()
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}
