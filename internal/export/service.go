package export

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/repository"
)

const (
	sheetName = "Documents"
	// contentPreview caps extracted_content per cell; excelize rejects cells over 32767 chars.
	contentPreview = 2000
)

var fixedHeaders = []string{"ID", "File Name", "Document Type", "Processed At", "Source Object", "Extracted Content"}

// Lister is the slice of the repository the export reads from.
type Lister interface {
	List(ctx context.Context, filter repository.ListFilter) ([]*entity.Document, error)
}

// Service produces XLSX bytes for stored documents.
type Service struct {
	docs   Lister
	logger *slog.Logger
}

func NewService(docs Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

// ExportDocumentsXLSX returns a workbook with one row per document. Fixed
// fields come first, then one column per dynamic field name seen in any row,
// sorted by name.
func (s *Service) ExportDocumentsXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()
	docs, err := s.docs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	b, err := WriteXLSX(docs)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"document_type", filter.DocumentType,
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

// DynamicColumns returns the union of dynamic field names across docs, sorted.
func DynamicColumns(docs []*entity.Document) []string {
	seen := map[string]struct{}{}
	var cols []string
	for _, d := range docs {
		for _, k := range d.DynamicKeys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	slices.Sort(cols)
	return cols
}

func WriteXLSX(docs []*entity.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}

	dynamic := DynamicColumns(docs)
	headers := append(slices.Clone(fixedHeaders), dynamic...)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}

	for r, d := range docs {
		row := r + 2
		write := func(col int, v any) error {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			return f.SetCellValue(sheetName, cell, v)
		}
		values := []any{
			d.ID(),
			d.FileName(),
			d.DocumentType(),
			d.ProcessedAtISO(),
			d.SourceObject(),
			truncate(d.ExtractedContent(), contentPreview),
		}
		for _, k := range dynamic {
			v, _ := d.Field(k)
			values = append(values, v)
		}
		for i, v := range values {
			if v == nil {
				continue
			}
			if err := write(i+1, v); err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "B", 32)
	_ = f.SetColWidth(sheetName, "C", "C", 22)
	_ = f.SetColWidth(sheetName, "D", "D", 28)
	_ = f.SetColWidth(sheetName, "E", "E", 40)
	_ = f.SetColWidth(sheetName, "F", "F", 60)
	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
