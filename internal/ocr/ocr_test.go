package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docintake/internal/common"
)

type fakeRunner struct {
	name   string
	args   []string
	stdout []byte
	stderr []byte
	err    error
	onRun  func(args []string)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	if f.onRun != nil {
		f.onRun(args)
	}
	return f.stdout, f.stderr, f.err
}

func testImage() image.Image {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	return img
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\tNOTA\n" +
	"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t80\tFISCAL\n" +
	"5\t1\t1\t1\t2\t1\t0\t0\t10\t10\t70\tTotal:\n" +
	"5\t1\t1\t1\t2\t2\t0\t0\t10\t10\t-1\t  \n" +
	"5\t1\t1\t1\t2\t3\t0\t0\t10\t10\t50\tR$\t\n"

func TestParseTSV_GroupsWordsIntoLines(t *testing.T) {
	lines := parseTSV(sampleTSV)
	require.Len(t, lines, 2)
	assert.Equal(t, "NOTA FISCAL", lines[0].Text)
	assert.InDelta(t, 0.85, lines[0].Confidence, 0.001)
	assert.Equal(t, "Total: R$", lines[1].Text)
	assert.InDelta(t, 0.60, lines[1].Confidence, 0.001)
}

func TestParseTSV_Empty(t *testing.T) {
	assert.Empty(t, parseTSV(""))
	assert.Empty(t, parseTSV("level\tpage_num\n"))
}

func TestTesseract_Args(t *testing.T) {
	r := &fakeRunner{stdout: []byte(sampleTSV)}
	eng := NewTesseractEngine(TesseractConfig{PSM: 6, TessdataDir: "/data"}, r, nil)

	lines, err := eng.Recognize(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, "tesseract", r.name)
	require.GreaterOrEqual(t, len(r.args), 4)
	assert.Equal(t, "stdout", r.args[1])
	assert.Equal(t, []string{"-l", "por", "--psm", "6", "--tessdata-dir", "/data", "tsv"}, r.args[2:])
	assert.Equal(t, "NOTA FISCAL\nTotal: R$", JoinLines(lines))
}

func TestTesseract_MissingBinary(t *testing.T) {
	r := &fakeRunner{err: &exec.Error{Name: "tesseract", Err: exec.ErrNotFound}}
	eng := NewTesseractEngine(TesseractConfig{}, r, nil)

	_, err := eng.Recognize(context.Background(), testImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingDependency)
	assert.Contains(t, err.Error(), "apt install tesseract-ocr")
}

func TestTesseract_RuntimeFailure(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1"), stderr: []byte("Failed loading language 'xyz'")}
	eng := NewTesseractEngine(TesseractConfig{Lang: "xyz"}, r, nil)

	_, err := eng.Recognize(context.Background(), testImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "Failed loading language")
}

func TestPoppler_RendersPagesInNumericOrder(t *testing.T) {
	r := &fakeRunner{onRun: func(args []string) {
		prefix := args[len(args)-1]
		for _, n := range []int{10, 2, 1} {
			_ = os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, n), []byte("png"), 0o600)
		}
	}}
	rast := NewPopplerRasterizer(PopplerConfig{DPI: 150, MaxPages: 3}, r, nil)

	pages, err := rast.Rasterize(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	defer pages.Close()

	assert.Equal(t, "pdftoppm", r.name)
	assert.Equal(t, []string{"-r", "150", "-png", "-l", "3"}, r.args[:5])
	require.Len(t, pages.Paths, 3)
	assert.Equal(t, "page-1.png", filepath.Base(pages.Paths[0]))
	assert.Equal(t, "page-2.png", filepath.Base(pages.Paths[1]))
	assert.Equal(t, "page-10.png", filepath.Base(pages.Paths[2]))

	dir := filepath.Dir(pages.Paths[0])
	require.NoError(t, pages.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPoppler_MissingBinary(t *testing.T) {
	r := &fakeRunner{err: &exec.Error{Name: "pdftoppm", Err: exec.ErrNotFound}}
	rast := NewPopplerRasterizer(PopplerConfig{}, r, nil)

	_, err := rast.Rasterize(context.Background(), []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingDependency)
	assert.Contains(t, err.Error(), "poppler")
}

func TestPoppler_NoPages(t *testing.T) {
	rast := NewPopplerRasterizer(PopplerConfig{}, &fakeRunner{}, nil)

	_, err := rast.Rasterize(context.Background(), []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
}

func TestDocumentAI_LinesFromLayout(t *testing.T) {
	text := "Olá mundo\nTotal 10\n"
	anchor := func(start, end int64) *documentaipb.Document_Page_Layout {
		return &documentaipb.Document_Page_Layout{
			Confidence: 0.9,
			TextAnchor: &documentaipb.Document_TextAnchor{
				TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: start, EndIndex: end}},
			},
		}
	}
	var got *documentaipb.ProcessRequest
	eng := NewDocumentAIEngineWithProcess(DocumentAIConfig{ProjectID: "p", Location: "eu", ProcessorID: "x"},
		func(_ context.Context, req *documentaipb.ProcessRequest) (*documentaipb.Document, error) {
			got = req
			return &documentaipb.Document{
				Text: text,
				Pages: []*documentaipb.Document_Page{{
					Lines: []*documentaipb.Document_Page_Line{
						{Layout: anchor(0, 10)},
						{Layout: anchor(10, 19)},
					},
				}},
			}, nil
		}, nil)

	lines, err := eng.Recognize(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, "projects/p/locations/eu/processors/x", got.GetName())
	assert.Equal(t, "image/png", got.GetRawDocument().GetMimeType())
	require.Len(t, lines, 2)
	assert.Equal(t, "Olá mundo", lines[0].Text)
	assert.Equal(t, "Total 10", lines[1].Text)
	assert.InDelta(t, 0.9, MeanConfidence(lines), 0.001)
}

func TestDocumentAI_FallsBackToText(t *testing.T) {
	eng := NewDocumentAIEngineWithProcess(DocumentAIConfig{},
		func(context.Context, *documentaipb.ProcessRequest) (*documentaipb.Document, error) {
			return &documentaipb.Document{Text: "a\n\n b "}, nil
		}, nil)

	lines, err := eng.Recognize(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, "a\nb", JoinLines(lines))
}

func TestDocumentAI_Failure(t *testing.T) {
	eng := NewDocumentAIEngineWithProcess(DocumentAIConfig{},
		func(context.Context, *documentaipb.ProcessRequest) (*documentaipb.Document, error) {
			return nil, errors.New("permission denied")
		}, nil)

	_, err := eng.Recognize(context.Background(), testImage())
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
}

func TestNormalizeLine(t *testing.T) {
	assert.Equal(t, "a b c", normalizeLine("  a\t\tb \r\n  c "))
	assert.Equal(t, "", normalizeLine(""))
}
