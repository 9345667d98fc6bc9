package ocr

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/docintake/internal/common"
)

type DocumentAIConfig struct {
	ProjectID   string
	Location    string // e.g. "us" or "eu"
	ProcessorID string
}

// ProcessFunc sends one request to Document AI. Tests replace it.
type ProcessFunc func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.Document, error)

// DocumentAIEngine recognizes text with a Google Document AI OCR processor.
type DocumentAIEngine struct {
	cfg     DocumentAIConfig
	process ProcessFunc
	closeFn func() error
	logger  *slog.Logger
}

// NewDocumentAIEngine dials the regional Document AI endpoint. Credentials come
// from the standard Google application default chain.
func NewDocumentAIEngine(ctx context.Context, cfg DocumentAIConfig, logger *slog.Logger) (*DocumentAIEngine, error) {
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, common.NewAppError(common.CodeConfig, "document ai project and processor are required", common.ErrInvalidInput)
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, common.MissingDependency("document ai", "set GOOGLE_APPLICATION_CREDENTIALS or run gcloud auth application-default login", err)
	}
	process := func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.Document, error) {
		resp, err := client.ProcessDocument(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.GetDocument(), nil
	}
	e := NewDocumentAIEngineWithProcess(cfg, process, logger)
	e.closeFn = client.Close
	return e, nil
}

// NewDocumentAIEngineWithProcess builds an engine around an existing process func.
func NewDocumentAIEngineWithProcess(cfg DocumentAIConfig, process ProcessFunc, logger *slog.Logger) *DocumentAIEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentAIEngine{cfg: cfg, process: process, logger: logger}
}

func (e *DocumentAIEngine) Name() string { return "documentai" }

func (e *DocumentAIEngine) Close() error {
	if e.closeFn == nil {
		return nil
	}
	return e.closeFn()
}

func (e *DocumentAIEngine) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", e.cfg.ProjectID, e.cfg.Location, e.cfg.ProcessorID)
}

func (e *DocumentAIEngine) Recognize(ctx context.Context, img image.Image) ([]Line, error) {
	data, err := encodePNG(img)
	if err != nil {
		return nil, common.ExtractionFailed("prepare image for document ai", err)
	}
	req := &documentaipb.ProcessRequest{
		Name: e.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: "image/png",
			},
		},
		SkipHumanReview: true,
	}
	doc, err := e.process(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.ExtractionFailed("document ai process", err)
	}
	lines := documentLines(doc)
	e.logger.Debug("ocr.documentai.recognized", "lines", len(lines))
	return lines, nil
}

// documentLines flattens page lines in page order. Documents without line
// layout fall back to splitting the full text.
func documentLines(doc *documentaipb.Document) []Line {
	if doc == nil {
		return []Line{}
	}
	var lines []Line
	for _, page := range doc.GetPages() {
		for _, l := range page.GetLines() {
			text := normalizeLine(textFromLayout(l.GetLayout(), doc.GetText()))
			if text == "" {
				continue
			}
			lines = append(lines, Line{Text: text, Confidence: l.GetLayout().GetConfidence()})
		}
	}
	if len(lines) > 0 {
		return lines
	}
	lines = []Line{}
	for _, s := range strings.Split(doc.GetText(), "\n") {
		if t := normalizeLine(s); t != "" {
			lines = append(lines, Line{Text: t})
		}
	}
	return lines
}

// textFromLayout resolves a layout's text anchor against the document text.
func textFromLayout(layout *documentaipb.Document_Page_Layout, fullText string) string {
	if layout == nil || layout.GetTextAnchor() == nil {
		return ""
	}
	runes := []rune(fullText)
	total := len(runes)
	var b strings.Builder
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		start, end := int(seg.GetStartIndex()), int(seg.GetEndIndex())
		if start < 0 {
			start = 0
		}
		if end > total {
			end = total
		}
		if start > end {
			start = end
		}
		b.WriteString(string(runes[start:end]))
	}
	return b.String()
}
